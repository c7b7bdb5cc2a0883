package crmap

import (
	"context"
	"encoding/base64"
	"fmt"

	"github.com/minio/blake2b-simd"
)

// SnapshotConfig controls how documents and updates are persisted.
type SnapshotConfig struct {
	// StoreWith stores and loads the serialized bytes.
	StoreWith Persist

	// Cache, if set, holds decoded updates by content name and may be
	// shared by multiple documents.
	Cache UpdateCache

	// Options configures documents created by LoadSnapshot.
	Options *Options
}

// SaveSnapshot stores the document's whole history under name.
func SaveSnapshot(ctx context.Context, cfg *SnapshotConfig, name string, d *Doc) error {
	if cfg.StoreWith == nil {
		return fmt.Errorf("no persistence mechanism set; set SnapshotConfig.StoreWith")
	}
	encoded, err := d.EncodeStateAsUpdate()
	if err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	err = cfg.StoreWith.Store(ctx, name, encoded)
	if err != nil {
		return fmt.Errorf("persist store %s: %w", name, err)
	}
	return nil
}

// LoadSnapshot loads the snapshot stored under name into a new document.
func LoadSnapshot(ctx context.Context, cfg *SnapshotConfig, name string) (*Doc, error) {
	if cfg.StoreWith == nil {
		return nil, fmt.Errorf("no persistence mechanism set; set SnapshotConfig.StoreWith")
	}
	encoded, err := cfg.StoreWith.Load(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("persist load %s: %w", name, err)
	}
	d := New(cfg.Options)
	if _, err := d.ApplyUpdate(encoded); err != nil {
		return nil, fmt.Errorf("snapshot %s: %w", name, err)
	}
	return d, nil
}

// UpdateName returns the content name an encoded update is stored under.
func UpdateName(encoded []byte) string {
	hashBytes := blake2b.Sum256(encoded)
	return base64.RawURLEncoding.EncodeToString(hashBytes[:])
}

// StoreUpdate encodes u and stores it under its content name, which it
// returns. Updates already stored through the cache are not re-stored.
func StoreUpdate(ctx context.Context, cfg *SnapshotConfig, u *Update) (string, error) {
	if cfg.StoreWith == nil {
		return "", fmt.Errorf("no persistence mechanism set; set SnapshotConfig.StoreWith")
	}
	encoded, err := u.Encode()
	if err != nil {
		return "", fmt.Errorf("encode: %w", err)
	}
	name := UpdateName(encoded)
	if cfg.Cache != nil && cfg.Cache.Contains(name) {
		return name, nil
	}
	err = cfg.StoreWith.Store(ctx, name, encoded)
	if err != nil {
		return "", fmt.Errorf("persist store: %w", err)
	}
	if cfg.Cache != nil {
		cfg.Cache.Add(name, u)
	}
	return name, nil
}

// LoadUpdate loads and decodes the update stored under the given content
// name, verifying its content matches the name.
func LoadUpdate(ctx context.Context, cfg *SnapshotConfig, name string) (*Update, error) {
	if cfg.Cache != nil {
		if u, ok := cfg.Cache.Get(name); ok {
			return u.(*Update), nil
		}
	}
	if cfg.StoreWith == nil {
		return nil, fmt.Errorf("no persistence mechanism set; set SnapshotConfig.StoreWith")
	}
	encoded, err := cfg.StoreWith.Load(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("persist load %s: %w", name, err)
	}
	if got := UpdateName(encoded); got != name {
		return nil, fmt.Errorf("%w: content of %s hashes to %s", ErrMalformedUpdate, name, got)
	}
	u, err := DecodeUpdate(encoded)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", name, err)
	}
	if cfg.Cache != nil {
		cfg.Cache.Add(name, u)
	}
	return u, nil
}
