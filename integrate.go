package crmap

import (
	"fmt"
	"sort"

	mapset "github.com/deckarep/golang-set/v2"
)

// Integrate applies an update. Blocks the document already has are
// skipped, so integrating the same update twice is harmless. If any
// block's predecessors from its origin are neither in the document nor
// in the update, Integrate returns a *CausalGapError and leaves the
// document untouched; otherwise every new block is applied.
func (d *Doc) Integrate(u *Update) (IntegrationResult, error) {
	if u == nil {
		return IntegrationResult{}, nil
	}
	return d.integrate(u.Blocks)
}

// ApplyUpdate decodes and integrates an encoded update.
func (d *Doc) ApplyUpdate(b []byte) (IntegrationResult, error) {
	u, err := DecodeUpdate(b)
	if err != nil {
		return IntegrationResult{}, err
	}
	return d.Integrate(u)
}

func (d *Doc) integrate(blocks []Block) (IntegrationResult, error) {
	var res IntegrationResult
	order := make([]int, len(blocks))
	for i := range blocks {
		if err := blocks[i].validate(); err != nil {
			return res, fmt.Errorf("%w: %v", ErrMalformedUpdate, err)
		}
		order[i] = i
	}
	sort.SliceStable(order, func(i, j int) bool {
		a, b := &blocks[order[i]], &blocks[order[j]]
		if a.Origin != b.Origin {
			return a.Origin < b.Origin
		}
		return a.Clock < b.Clock
	})

	// Plan the whole call before touching the document, so a gap anywhere
	// leaves it unmodified.
	next := map[ReplicaID]uint64{}
	apply := make([]int, 0, len(blocks))
	for _, i := range order {
		b := &blocks[i]
		expected, ok := next[b.Origin]
		if !ok {
			expected = d.sv[b.Origin]
		}
		switch {
		case b.Clock < expected:
			res.Skipped++
		case b.Clock == expected:
			apply = append(apply, i)
			next[b.Origin] = expected + 1
		default:
			d.metrics.causalGap()
			d.log.Debug().Uint64("origin", uint64(b.Origin)).Uint64("expected", expected).
				Uint64("clock", b.Clock).Msg("causal gap")
			return IntegrationResult{}, &CausalGapError{Origin: b.Origin, Expected: expected, Got: b.Clock}
		}
	}

	touched := mapset.NewThreadUnsafeSet[string]()
	for _, i := range apply {
		b := new(Block)
		*b = blocks[i]
		b.Payload = b.Payload.clone()
		d.history[b.Origin] = append(d.history[b.Origin], b)
		d.sv[b.Origin]++
		d.insert(b)
		touched.Add(b.Key)
	}
	res.Applied = len(apply)
	d.metrics.integrated(res)
	d.log.Debug().Int("applied", res.Applied).Int("skipped", res.Skipped).
		Int("keys", touched.Cardinality()).Stringer("sv", d.sv).Msg("integrated")
	return res, nil
}
