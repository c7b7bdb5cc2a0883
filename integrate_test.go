package crmap

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCausalGap(t *testing.T) {
	t.Parallel()
	d := newTestDoc(1)
	_, err := d.Integrate(&Update{Blocks: []Block{
		{ID: ID{Origin: 7, Clock: 2}, Key: "k", Payload: Int(1)},
	}})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrCausalGap))
	var gap *CausalGapError
	require.True(t, errors.As(err, &gap))
	assert.Equal(t, CausalGapError{Origin: 7, Expected: 0, Got: 2}, *gap)
	assert.Equal(t, StateVector{}, d.StateVector())
	assert.Equal(t, 0, d.Len())
}

func TestIntegrationIsAllOrNothing(t *testing.T) {
	t.Parallel()
	d := newTestDoc(1)
	_, err := d.Integrate(&Update{Blocks: []Block{
		{ID: ID{2, 0}, Key: "a", Payload: Int(1)},
		{ID: ID{2, 1}, Key: "b", Payload: Int(2)},
		{ID: ID{3, 1}, Key: "c", Payload: Int(3)},
	}})
	var gap *CausalGapError
	require.True(t, errors.As(err, &gap))
	assert.Equal(t, ReplicaID(3), gap.Origin)
	assert.Equal(t, StateVector{}, d.StateVector())
	assert.Empty(t, d.VisibleEntries())
	assert.Nil(t, d.Contenders("a"))
}

func TestIntegrateUnsortedAndDuplicates(t *testing.T) {
	t.Parallel()
	d := newTestDoc(1)
	res, err := d.Integrate(&Update{Blocks: []Block{
		{ID: ID{2, 1}, Key: "a", Lamport: 1, Payload: Int(2)},
		{ID: ID{3, 0}, Key: "b", Payload: Bool(true)},
		{ID: ID{2, 0}, Key: "a", Payload: Int(1)},
	}})
	require.NoError(t, err)
	assert.Equal(t, IntegrationResult{Applied: 3}, res)
	assert.Equal(t, StateVector{2: 2, 3: 1}, d.StateVector())
	v, _ := d.Get("a")
	assert.Equal(t, Int(2), v)

	res, err = d.Integrate(&Update{Blocks: []Block{
		{ID: ID{2, 1}, Key: "a", Lamport: 1, Payload: Int(2)},
		{ID: ID{2, 2}, Key: "a", Lamport: 2, Payload: Int(3)},
		{ID: ID{2, 2}, Key: "a", Lamport: 2, Payload: Int(3)},
	}})
	require.NoError(t, err)
	assert.Equal(t, IntegrationResult{Applied: 1, Skipped: 2}, res)
	v, _ = d.Get("a")
	assert.Equal(t, Int(3), v)
}

func TestIntegrateIgnoresUpdateStateVector(t *testing.T) {
	t.Parallel()
	d := newTestDoc(1)
	_, err := d.Integrate(&Update{
		StateVector: StateVector{2: 10, 3: 4},
		Blocks:      []Block{{ID: ID{2, 0}, Key: "a", Payload: Null()}},
	})
	require.NoError(t, err)
	assert.Equal(t, StateVector{2: 1}, d.StateVector())
}

func TestIntegrateNil(t *testing.T) {
	t.Parallel()
	d := newTestDoc(1)
	res, err := d.Integrate(nil)
	require.NoError(t, err)
	assert.Equal(t, IntegrationResult{}, res)
	res, err = d.Integrate(&Update{})
	require.NoError(t, err)
	assert.Equal(t, IntegrationResult{}, res)
}

func TestIntegrateRejectsMalformedPayload(t *testing.T) {
	t.Parallel()
	d := newTestDoc(1)
	_, err := d.Integrate(&Update{Blocks: []Block{
		{ID: ID{2, 0}, Key: "a", Payload: Int(1)},
		{ID: ID{2, 1}, Key: "a", Payload: Map(MapEntry{"x", Tombstone()})},
	}})
	assert.ErrorIs(t, err, ErrMalformedUpdate)
	assert.Equal(t, StateVector{}, d.StateVector())
}

func TestApplyUpdate(t *testing.T) {
	t.Parallel()
	a := newTestDoc(1)
	require.NoError(t, a.Set("x", Float(1.5)))
	encoded, err := a.EncodeStateAsUpdate()
	require.NoError(t, err)

	b := newTestDoc(2)
	res, err := b.ApplyUpdate(encoded)
	require.NoError(t, err)
	assert.Equal(t, IntegrationResult{Applied: 1}, res)
	v, _ := b.Get("x")
	assert.Equal(t, Float(1.5), v)

	_, err = b.ApplyUpdate(encoded[:len(encoded)-1])
	assert.ErrorIs(t, err, ErrMalformedUpdate)
}

func TestMetrics(t *testing.T) {
	t.Parallel()
	reg := prometheus.NewRegistry()
	m, err := NewMetrics(reg, "crmap")
	require.NoError(t, err)
	a := New(&Options{Replica: 1, Metrics: m})
	b := New(&Options{Replica: 2, Metrics: m})

	require.NoError(t, a.Set("k", Int(1)))
	require.NoError(t, a.Delete("k"))
	syncThroughBytes(t, a, b)
	_, err = b.Integrate(a.Diff(nil))
	require.NoError(t, err)
	_, err = b.Integrate(&Update{Blocks: []Block{{ID: ID{9, 1}, Payload: Null()}}})
	require.ErrorIs(t, err, ErrCausalGap)

	assert.Equal(t, float64(2), testutil.ToFloat64(m.localWrites))
	assert.Equal(t, float64(4), testutil.ToFloat64(m.applied))
	assert.Equal(t, float64(2), testutil.ToFloat64(m.skipped))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.gaps))

	_, err = NewMetrics(reg, "crmap")
	assert.Error(t, err, "duplicate registration")

	unregistered, err := NewMetrics(nil, "")
	require.NoError(t, err)
	assert.NotNil(t, unregistered)
}
