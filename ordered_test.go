package ndarray

import (
	"errors"
	"testing"
)

func TestOrderedShapeOffsets(t *testing.T) {
	s := MustShape([]int64{10, -5, 0}, []int64{3, 4, 2})

	cases := []struct {
		order   Order
		strides []int64
		pos     []int64
		offset  int64
	}{
		{RowMajor, []int64{8, 2, 1}, []int64{11, -3, 1}, 8 + 4 + 1},
		{ColumnMajor, []int64{1, 3, 12}, []int64{11, -3, 1}, 1 + 6 + 12},
	}
	for _, c := range cases {
		t.Run(c.order.String(), func(t *testing.T) {
			o, err := NewOrderedShape(s, c.order)
			if err != nil {
				t.Fatal(err)
			}
			if got := o.Strides(); !equalInt64s(got, c.strides) {
				t.Errorf("strides mismatch. want: %v got: %v", c.strides, got)
			}
			off, err := o.PositionToOffset(c.pos)
			if err != nil {
				t.Fatal(err)
			}
			if off != c.offset {
				t.Errorf("offset mismatch. want: %d got: %d", c.offset, off)
			}

			// every offset round-trips through its position
			for i := int64(0); i < o.NumPixels(); i++ {
				pos, err := o.OffsetToPosition(i)
				if err != nil {
					t.Fatal(err)
				}
				back, err := o.PositionToOffset(pos)
				if err != nil {
					t.Fatal(err)
				}
				if back != i {
					t.Fatalf("round trip mismatch at %d: position %s gave %d", i, FormatPosition(pos), back)
				}
			}
		})
	}
}

func TestOrderedShapeErrors(t *testing.T) {
	o, err := NewOrderedShape(MustShape([]int64{0, 0}, []int64{2, 2}), RowMajor)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := o.PositionToOffset([]int64{0}); !errors.Is(err, ErrDimMismatch) {
		t.Errorf("expected ErrDimMismatch, got: %v", err)
	}
	if _, err := o.PositionToOffset([]int64{2, 0}); !errors.Is(err, ErrOutOfRange) {
		t.Errorf("expected ErrOutOfRange, got: %v", err)
	}
	if _, err := o.OffsetToPosition(4); !errors.Is(err, ErrOutOfRange) {
		t.Errorf("expected ErrOutOfRange, got: %v", err)
	}
	if _, err := NewOrderedShape(o, Order(7)); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("expected ErrInvalidArgument, got: %v", err)
	}
}

func TestOrderedShapeEqual(t *testing.T) {
	s := MustShape([]int64{0, 0}, []int64{2, 3})
	c1, _ := NewOrderedShape(s, RowMajor)
	c2, _ := NewOrderedShape(s, RowMajor)
	f, _ := NewOrderedShape(s, ColumnMajor)

	if !c1.Equal(c2) {
		t.Error("expected equal ordered shapes")
	}
	if c1.Equal(f) {
		t.Error("shapes with different orders must not be equal")
	}
	if c1.Equal(s) {
		t.Error("an ordered shape must not equal a plain shape")
	}
	if c1.String() != "(0+2,0+3)C" || f.String() != "(0+2,0+3)F" {
		t.Errorf("string mismatch: %s %s", c1, f)
	}
}

func TestParseOrder(t *testing.T) {
	for s, want := range map[string]Order{"C": RowMajor, "": RowMajor, "F": ColumnMajor} {
		got, err := ParseOrder(s)
		if err != nil {
			t.Fatal(err)
		}
		if got != want {
			t.Errorf("ParseOrder(%q) mismatch. want: %s got: %s", s, want, got)
		}
	}
	if _, err := ParseOrder("K"); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("expected ErrInvalidArgument, got: %v", err)
	}
}

func TestForEachRun(t *testing.T) {
	region := MustShape([]int64{1, 2}, []int64{2, 3})

	type run struct {
		pos []int64
		n   int64
	}
	cases := []struct {
		order Order
		want  []run
	}{
		{RowMajor, []run{{[]int64{1, 2}, 3}, {[]int64{2, 2}, 3}}},
		{ColumnMajor, []run{{[]int64{1, 2}, 2}, {[]int64{1, 3}, 2}, {[]int64{1, 4}, 2}}},
	}
	for _, c := range cases {
		var got []run
		err := forEachRun(region, c.order, func(pos []int64, n int64) error {
			got = append(got, run{copyInt64s(pos), n})
			return nil
		})
		if err != nil {
			t.Fatal(err)
		}
		if len(got) != len(c.want) {
			t.Fatalf("%s: run count mismatch. want: %d got: %d", c.order, len(c.want), len(got))
		}
		for i := range got {
			if !equalInt64s(got[i].pos, c.want[i].pos) || got[i].n != c.want[i].n {
				t.Errorf("%s run %d mismatch. want: %v got: %v", c.order, i, c.want[i], got[i])
			}
		}
	}

	stop := errors.New("stop")
	calls := 0
	err := forEachRun(region, RowMajor, func(pos []int64, n int64) error {
		calls++
		return stop
	})
	if err != stop || calls != 1 {
		t.Errorf("expected early exit, got: %v after %d calls", err, calls)
	}
}
