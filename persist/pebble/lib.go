// Package pebble stores snapshots and updates in an embedded pebble
// key-value store.
package pebble

import (
	"context"
	"errors"
	"fmt"

	"github.com/cockroachdb/pebble"
)

// Persist implements the crmap.Persist interface on a pebble database.
type Persist struct {
	db     *pebble.DB
	prefix []byte
	sync   bool
}

// Open opens (creating if needed) a pebble database in dir. Writes are
// synced to disk before Store returns.
func Open(dir string) (*Persist, error) {
	db, err := pebble.Open(dir, &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("pebble open %s: %w", dir, err)
	}
	return &Persist{db: db, prefix: []byte("crmap/"), sync: true}, nil
}

// NewPersist stores blobs in an already open database under keys
// beginning with prefix. The caller keeps ownership of db.
func NewPersist(db *pebble.DB, prefix string) *Persist {
	return &Persist{db: db, prefix: []byte(prefix), sync: true}
}

func (p *Persist) key(name string) []byte {
	return append(append([]byte(nil), p.prefix...), name...)
}

// Load returns the bytes stored under name.
func (p *Persist) Load(ctx context.Context, name string) ([]byte, error) {
	value, closer, err := p.db.Get(p.key(name))
	if errors.Is(err, pebble.ErrNotFound) {
		return nil, fmt.Errorf("pebble: %s not found: %w", name, err)
	}
	if err != nil {
		return nil, err
	}
	defer closer.Close()
	return append([]byte(nil), value...), nil
}

// Store writes the bytes under name, replacing any previous value.
func (p *Persist) Store(ctx context.Context, name string, b []byte) error {
	opts := pebble.NoSync
	if p.sync {
		opts = pebble.Sync
	}
	return p.db.Set(p.key(name), b, opts)
}

// Close closes the database.
func (p *Persist) Close() error {
	return p.db.Close()
}
