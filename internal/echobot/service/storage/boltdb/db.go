// Package boltdb implements storage.KV on a single BoltDB file with one
// bucket per namespace.
package boltdb

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/boltdb/bolt"
	"github.com/kiosk404/echobot/internal/echobot/service/storage"
)

// DB wraps a BoltDB instance and manages its lifecycle.
type DB struct {
	db *bolt.DB
}

var _ storage.KV = (*DB)(nil)

// Open opens or creates the database at path, creating parent directories.
func Open(path string) (*DB, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return &DB{db: db}, nil
}

// Close closes the underlying BoltDB instance.
func (d *DB) Close() error {
	return d.db.Close()
}

// Path returns the database file path.
func (d *DB) Path() string {
	return d.db.Path()
}

func (d *DB) Get(_ context.Context, ns, key string) ([]byte, bool, error) {
	if ns == "" || key == "" {
		return nil, false, storage.ErrInvalidKey
	}
	var out []byte
	err := d.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(ns))
		if b == nil {
			return nil
		}
		if v := b.Get([]byte(key)); v != nil {
			// Values are only valid for the life of the transaction.
			out = append([]byte{}, v...)
		}
		return nil
	})
	if err != nil {
		return nil, false, fmt.Errorf("failed to get %s/%s: %w", ns, key, err)
	}
	return out, out != nil, nil
}

func (d *DB) Set(_ context.Context, ns, key string, value []byte) error {
	if ns == "" || key == "" {
		return storage.ErrInvalidKey
	}
	return d.db.Update(func(tx *bolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists([]byte(ns))
		if err != nil {
			return fmt.Errorf("failed to create bucket %q: %w", ns, err)
		}
		return b.Put([]byte(key), value)
	})
}

func (d *DB) Delete(_ context.Context, ns, key string) error {
	if ns == "" || key == "" {
		return storage.ErrInvalidKey
	}
	return d.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(ns))
		if b == nil {
			return nil
		}
		return b.Delete([]byte(key))
	})
}

func (d *DB) Keys(_ context.Context, ns string) ([]string, error) {
	var keys []string
	err := d.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(ns))
		if b == nil {
			return nil
		}
		return b.ForEach(func(k, _ []byte) error {
			keys = append(keys, string(k))
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list namespace %q: %w", ns, err)
	}
	return keys, nil
}

// Namespaces lists the existing namespaces.
func (d *DB) Namespaces() ([]string, error) {
	var out []string
	err := d.db.View(func(tx *bolt.Tx) error {
		return tx.ForEach(func(name []byte, _ *bolt.Bucket) error {
			out = append(out, string(name))
			return nil
		})
	})
	return out, err
}
