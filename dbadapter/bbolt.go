// Package dbadapter implements the production db_get/db_set effect
// (spec.md §6) on top of go.etcd.io/bbolt, the teacher's persistence
// library of choice (JanFalkin-wapc-go's hello/testdata guests target the
// same embedded-KV style of host; bbolt is the natural production-grade
// choice for a single-process, single-writer oracle node).
package dbadapter

import (
	"fmt"

	"go.etcd.io/bbolt"
)

var defaultBucket = []byte("oracle-runtime")

// BBoltAdapter persists guest db_set/db_get values in a single bbolt
// bucket, keyed by the guest-supplied string key.
type BBoltAdapter struct {
	db     *bbolt.DB
	bucket []byte
}

// Open opens (creating if necessary) a bbolt database at path and ensures
// its default bucket exists.
func Open(path string) (*BBoltAdapter, error) {
	db, err := bbolt.Open(path, 0o600, nil)
	if err != nil {
		return nil, fmt.Errorf("dbadapter: open %q: %w", path, err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(defaultBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("dbadapter: create bucket: %w", err)
	}

	return &BBoltAdapter{db: db, bucket: defaultBucket}, nil
}

// Close closes the underlying bbolt database.
func (a *BBoltAdapter) Close() error {
	return a.db.Close()
}

// Get returns the stored value for key, and false if no value is stored.
func (a *BBoltAdapter) Get(key string) ([]byte, bool, error) {
	var value []byte
	err := a.db.View(func(tx *bbolt.Tx) error {
		v := tx.Bucket(a.bucket).Get([]byte(key))
		if v != nil {
			// bbolt only guarantees v's validity for the transaction's
			// lifetime; copy it out before returning.
			value = append([]byte{}, v...)
		}
		return nil
	})
	if err != nil {
		return nil, false, fmt.Errorf("dbadapter: get %q: %w", key, err)
	}
	return value, value != nil, nil
}

// Set stores value under key, overwriting any existing value.
func (a *BBoltAdapter) Set(key string, value []byte) error {
	err := a.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(a.bucket).Put([]byte(key), value)
	})
	if err != nil {
		return fmt.Errorf("dbadapter: set %q: %w", key, err)
	}
	return nil
}
