// Package boltstore keeps chunked arrays in a single bolt database file
package boltstore

import (
	"bytes"
	"fmt"
	"io"
	"time"

	"github.com/boltdb/bolt"
	ndarray "github.com/qri-io/ndarray-go"
)

const StoreType = "BoltStore"

var bucketName = []byte("ndarray")

type Store struct {
	db *bolt.DB
}

var (
	_ ndarray.Store   = (*Store)(nil)
	_ ndarray.Lister  = (*Store)(nil)
	_ ndarray.Deleter = (*Store)(nil)
)

// Open opens or creates the database file at path. It waits at most a second
// for another process holding the file lock
func Open(path string) (*Store, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening bolt store: %w", err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketName)
		return err
	})
	if err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

func (s *Store) Type() string { return StoreType }

func (s *Store) Get(key string) (io.ReadCloser, error) {
	var val []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(bucketName).Get([]byte(key))
		if v == nil {
			return fmt.Errorf("%w: %s", ndarray.ErrNotfound, key)
		}
		// v is only valid for the life of the transaction
		val = append([]byte(nil), v...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return io.NopCloser(bytes.NewReader(val)), nil
}

func (s *Store) Put(key string, val io.Reader) error {
	data, err := io.ReadAll(val)
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketName).Put([]byte(key), data)
	})
}

func (s *Store) Delete(key string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketName).Delete([]byte(key))
	})
}

// Keys lists keys beginning with prefix in lexical order
func (s *Store) Keys(prefix string) ([]string, error) {
	var keys []string
	p := []byte(prefix)
	err := s.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(bucketName).Cursor()
		for k, _ := c.Seek(p); k != nil && bytes.HasPrefix(k, p); k, _ = c.Next() {
			keys = append(keys, string(k))
		}
		return nil
	})
	return keys, err
}

func (s *Store) Close() error {
	return s.db.Close()
}
