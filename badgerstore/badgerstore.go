// Package badgerstore keeps chunked arrays in a badger key/value database
package badgerstore

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/dgraph-io/badger/v4"
	ndarray "github.com/qri-io/ndarray-go"
)

const StoreType = "BadgerStore"

type Store struct {
	db *badger.DB
}

var (
	_ ndarray.Store   = (*Store)(nil)
	_ ndarray.Lister  = (*Store)(nil)
	_ ndarray.Deleter = (*Store)(nil)
)

// Open opens or creates a database in dir
func Open(dir string) (*Store, error) {
	return open(badger.DefaultOptions(dir))
}

// OpenInMemory opens a database that lives only as long as the Store
func OpenInMemory() (*Store, error) {
	return open(badger.DefaultOptions("").WithInMemory(true))
}

func open(opts badger.Options) (*Store, error) {
	opts = opts.WithLoggingLevel(badger.ERROR)
	opts.SyncWrites = false
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("opening badger store: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Type() string { return StoreType }

func (s *Store) Get(key string) (io.ReadCloser, error) {
	var val []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		val, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, fmt.Errorf("%w: %s", ndarray.ErrNotfound, key)
	} else if err != nil {
		return nil, err
	}
	return io.NopCloser(bytes.NewReader(val)), nil
}

func (s *Store) Put(key string, val io.Reader) error {
	data, err := io.ReadAll(val)
	if err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), data)
	})
}

func (s *Store) Delete(key string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(key))
	})
}

// Keys lists keys beginning with prefix in lexical order
func (s *Store) Keys(prefix string) ([]string, error) {
	var keys []string
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = []byte(prefix)
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			keys = append(keys, string(it.Item().KeyCopy(nil)))
		}
		return nil
	})
	return keys, err
}

func (s *Store) Close() error {
	return s.db.Close()
}
