// Package redis stores snapshots and updates in redis.
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Persist implements the crmap.Persist interface on a redis client.
type Persist struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
}

// NewPersist stores blobs under keys beginning with prefix. A zero ttl
// keeps them forever.
func NewPersist(client redis.UniversalClient, prefix string, ttl time.Duration) *Persist {
	return &Persist{client: client, prefix: prefix, ttl: ttl}
}

// Load returns the bytes stored under name.
func (p *Persist) Load(ctx context.Context, name string) ([]byte, error) {
	b, err := p.client.Get(ctx, p.prefix+name).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("redis: %s not found: %w", name, err)
	}
	return b, err
}

// Store writes the bytes under name, replacing any previous value.
func (p *Persist) Store(ctx context.Context, name string, b []byte) error {
	return p.client.Set(ctx, p.prefix+name, b, p.ttl).Err()
}
