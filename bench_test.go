package crmap

import (
	"bytes"
	"fmt"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/commands"
	"github.com/stretchr/testify/require"
)

func benchmarkSet(keys int, b *testing.B) {
	d := newTestDoc(1)
	for n := 0; n < b.N; n++ {
		require.NoError(b, d.Set(fmt.Sprint(n%keys), Int(int64(n))))
	}
}

func BenchmarkSet1(b *testing.B)   { benchmarkSet(1, b) }
func BenchmarkSet100(b *testing.B) { benchmarkSet(100, b) }
func BenchmarkSet10k(b *testing.B) { benchmarkSet(10_000, b) }
func BenchmarkSet1m(b *testing.B)  { benchmarkSet(1_000_000, b) }

func benchmarkGet(keys int, b *testing.B) {
	d := newTestDoc(1)
	for n := 0; n < keys; n++ {
		require.NoError(b, d.Set(fmt.Sprint(n), Int(int64(n))))
	}
	b.ResetTimer()
	for n := 0; n < b.N; n++ {
		d.Get(fmt.Sprint(n % keys))
	}
}

func BenchmarkGet100(b *testing.B) { benchmarkGet(100, b) }
func BenchmarkGet10k(b *testing.B) { benchmarkGet(10_000, b) }

func benchmarkSync(writes int, b *testing.B) {
	src := newTestDoc(1)
	for n := 0; n < writes; n++ {
		require.NoError(b, src.Set(fmt.Sprint(n%100), Int(int64(n))))
	}
	empty := StateVector{}.Encode()
	b.ResetTimer()
	for n := 0; n < b.N; n++ {
		update, err := src.EncodeDiff(empty)
		require.NoError(b, err)
		_, err = newTestDoc(2).ApplyUpdate(update)
		require.NoError(b, err)
	}
}

func BenchmarkSync100(b *testing.B) { benchmarkSync(100, b) }
func BenchmarkSync10k(b *testing.B) { benchmarkSync(10_000, b) }

func benchmarkProject(keys int, b *testing.B) {
	d := newTestDoc(1)
	for n := 0; n < keys; n++ {
		require.NoError(b, d.Set(fmt.Sprint(n), MustValueOf(map[string]interface{}{"n": n})))
	}
	b.ResetTimer()
	for n := 0; n < b.N; n++ {
		_, err := d.Project()
		require.NoError(b, err)
	}
}

func BenchmarkProject100(b *testing.B) { benchmarkProject(100, b) }
func BenchmarkProject10k(b *testing.B) { benchmarkProject(10_000, b) }

func BenchmarkExerciser(b *testing.B) {
	parameters := gopter.DefaultTestParametersWithSeed(1593228262585360000)
	parameters.MaxSize = 256
	parameters.MinSuccessfulTests = b.N
	properties := gopter.NewProperties(parameters)
	properties.Property("replica exerciser", commands.Prop(docCommands))
	out := bytes.NewBuffer(nil)
	reporter := gopter.NewFormatedReporter(false, 98, out)
	require.True(b, properties.Run(reporter))
}
