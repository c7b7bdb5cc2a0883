package crmap

import (
	"context"
	"fmt"
	"sync"
)

type inMemoryStore struct {
	entries map[string][]byte
	l       sync.Mutex
}

// NewInMemoryStore provides a Persist that keeps snapshots and updates
// in a map, usually for testing.
func NewInMemoryStore() Persist {
	return &inMemoryStore{}
}

func (ims *inMemoryStore) Store(ctx context.Context, name string, value []byte) error {
	value = append([]byte(nil), value...)
	ims.l.Lock()
	if ims.entries == nil {
		ims.entries = map[string][]byte{name: value}
	} else {
		ims.entries[name] = value
	}
	ims.l.Unlock()
	return nil
}

func (ims *inMemoryStore) Load(ctx context.Context, name string) ([]byte, error) {
	ims.l.Lock()
	value, ok := ims.entries[name]
	ims.l.Unlock()
	if !ok {
		return nil, fmt.Errorf("inMemoryStore entry not found for %s", name)
	}
	return append([]byte(nil), value...), nil
}
