package ndarray

// tile moves the pixels of tile between buf and the capability. isect is the
// part of tile inside the array and is never nil. The physical cursor is left
// wherever the last run put it
func (a *defaultAccess) tile(dir direction, buf interface{}, tile *OrderedShape, isect *Shape) error {
	inside := isect.SameShape(tile)

	if ti, ok := a.impl.(TileAccessImpl); ok && inside {
		if dir == dirRead {
			return ti.ReadTile(buf, isect)
		}
		return ti.WriteTile(buf, isect)
	}

	if dir == dirRead && !inside {
		fill, err := fillValue(a.desc.Dtype, a.desc.Fill)
		if err != nil {
			return err
		}
		fillPixels(buf, 0, int(tile.NumPixels()), fill)
	}

	return forEachRun(isect, a.shape.Order(), func(pos []int64, n int64) error {
		arrOff, err := a.shape.PositionToOffset(pos)
		if err != nil {
			return err
		}
		tileOff, err := tile.PositionToOffset(pos)
		if err != nil {
			return err
		}
		if err := a.impl.SetOffset(arrOff); err != nil {
			return err
		}
		if dir == dirRead {
			return a.impl.Read(buf, int(tileOff), int(n))
		}
		return a.impl.Write(buf, int(tileOff), int(n))
	})
}
