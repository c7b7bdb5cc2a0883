package pebble

import (
	"context"
	"testing"

	"github.com/cockroachdb/pebble"
	"github.com/jrhy/crmap"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var ctx = context.Background()

func TestStoreLoad(t *testing.T) {
	p, err := Open(t.TempDir())
	require.NoError(t, err)
	defer p.Close()

	require.NoError(t, p.Store(ctx, "foo", []byte("hello")))
	b, err := p.Load(ctx, "foo")
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), b)

	require.NoError(t, p.Store(ctx, "foo", []byte("again")))
	b, err = p.Load(ctx, "foo")
	require.NoError(t, err)
	assert.Equal(t, []byte("again"), b)

	_, err = p.Load(ctx, "bar")
	require.ErrorIs(t, err, pebble.ErrNotFound)
}

func TestSnapshotSurvivesReopen(t *testing.T) {
	dir := t.TempDir()
	p, err := Open(dir)
	require.NoError(t, err)

	d := crmap.New(&crmap.Options{Replica: 7})
	require.NoError(t, d.Set("k", crmap.MustValueOf(map[string]interface{}{"x": 1})))
	require.NoError(t, d.Delete("gone"))
	require.NoError(t, crmap.SaveSnapshot(ctx, &crmap.SnapshotConfig{StoreWith: p}, "doc", d))
	require.NoError(t, p.Close())

	p, err = Open(dir)
	require.NoError(t, err)
	defer p.Close()
	loaded, err := crmap.LoadSnapshot(ctx, &crmap.SnapshotConfig{StoreWith: p}, "doc")
	require.NoError(t, err)
	assert.Equal(t, crmap.StateVector{7: 2}, loaded.StateVector())
	assert.Equal(t, []string{"k"}, loaded.Keys())
}
