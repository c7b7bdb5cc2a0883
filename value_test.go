package crmap

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValueOf(t *testing.T) {
	t.Parallel()
	v, err := ValueOf(map[string]interface{}{
		"b": []interface{}{uint8(1), int32(-2), float32(0.5)},
		"a": nil,
		"c": map[string]interface{}{},
	})
	require.NoError(t, err)
	assert.Equal(t, Map(
		MapEntry{"a", Null()},
		MapEntry{"b", Sequence(Int(1), Int(-2), Float(0.5))},
		MapEntry{"c", Map()},
	), v)

	v, err = ValueOf(NewOrderedMap().Set("z", true).Set("y", "s"))
	require.NoError(t, err)
	assert.Equal(t, Map(MapEntry{"z", Bool(true)}, MapEntry{"y", String("s")}), v)

	_, err = ValueOf(uint64(math.MaxUint64))
	assert.Error(t, err)
	_, err = ValueOf(struct{}{})
	assert.Error(t, err)
	_, err = ValueOf((*OrderedMap)(nil))
	assert.Error(t, err)
	_, err = ValueOf([]interface{}{(*OrderedMap)(nil)})
	assert.Error(t, err)
	assert.Panics(t, func() { MustValueOf(make(chan int)) })
}

func TestNonFiniteFloatsAreRejected(t *testing.T) {
	t.Parallel()
	d := newTestDoc(1)
	for _, f := range []float64{math.NaN(), math.Inf(1), math.Inf(-1)} {
		assert.Error(t, d.Set("f", Float(f)))
		assert.Error(t, d.Set("f", Sequence(Float(f))))
		_, err := EncodeUpdate([]Block{{ID: ID{1, 0}, Payload: Float(f)}}, nil)
		assert.ErrorIs(t, err, ErrMalformedUpdate)
		_, err = d.ApplyUpdate(rawUpdate(nil, []Block{{ID: ID{2, 0}, Key: "f", Payload: Float(f)}}))
		assert.ErrorIs(t, err, ErrMalformedUpdate)
	}
	assert.Equal(t, StateVector{}, d.StateVector())
	require.NoError(t, d.Set("f", Float(math.MaxFloat64)))
}

func TestValueCloneIsDeep(t *testing.T) {
	t.Parallel()
	orig := Map(
		MapEntry{"b", Bytes([]byte{1})},
		MapEntry{"s", Sequence(String("x"))},
	)
	c := orig.clone()
	assert.Equal(t, orig, c)
	c.Entries[0].Value.Scalar.([]byte)[0] = 9
	c.Entries[1].Value.Items[0] = Null()
	assert.Equal(t, Bytes([]byte{1}), orig.Entries[0].Value)
	assert.Equal(t, String("x"), orig.Entries[1].Value.Items[0])
	assert.Equal(t, Bytes(nil), Bytes(nil).clone())
	assert.Equal(t, Map(), Map().clone())
}
