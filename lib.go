package crmap

import (
	"sort"

	"github.com/rs/zerolog"
)

// Doc is one replica's copy of a shared map: its state vector, the full
// history of every origin it has applied, and per key the writes
// contending for that key.
type Doc struct {
	replica ReplicaID
	sv      StateVector
	// history[origin][clock] is the block with that ID; runs are
	// contiguous from clock 0, so len(history[o]) == sv[o].
	history map[ReplicaID][]*Block
	keys    map[string]*keyState
	visible int
	prune   bool
	baseLog zerolog.Logger
	log     zerolog.Logger
	metrics *Metrics
}

type keyState struct {
	// contenders is sorted so that each block beats the ones before it;
	// the last is the winner.
	contenders []*Block
	// first is the earliest write to the key in the same order, which
	// fixes the key's position in projections.
	first *Block
}

func (ks *keyState) winner() *Block {
	return ks.contenders[len(ks.contenders)-1]
}

func visible(b *Block) bool {
	return b != nil && !b.Payload.IsTombstone()
}

// insert adds an already-accounted block to its key's contention set.
func (d *Doc) insert(b *Block) {
	ks, ok := d.keys[b.Key]
	if !ok {
		ks = &keyState{first: b}
		d.keys[b.Key] = ks
	} else if ks.first.beats(b) {
		ks.first = b
	}
	var prev *Block
	if len(ks.contenders) > 0 {
		prev = ks.winner()
	}
	i := sort.Search(len(ks.contenders), func(i int) bool {
		return ks.contenders[i].beats(b)
	})
	ks.contenders = append(ks.contenders, nil)
	copy(ks.contenders[i+1:], ks.contenders[i:])
	ks.contenders[i] = b

	winner := ks.winner()
	if d.prune && len(ks.contenders) > 1 {
		ks.contenders = []*Block{winner}
	}
	if winner == prev {
		return
	}
	if visible(prev) {
		d.visible--
	}
	if visible(winner) {
		d.visible++
	}
	if e := d.log.Debug(); e.Enabled() {
		e.Str("key", b.Key).Stringer("winner", winner.ID)
		if prev != nil {
			e.Stringer("previous", prev.ID)
		}
		e.Msg("winner changed")
	}
}

// sortedKeys returns the keys with a visible winner, in projection order.
func (d *Doc) sortedKeys() []string {
	keys := make([]string, 0, d.visible)
	for k, ks := range d.keys {
		if visible(ks.winner()) {
			keys = append(keys, k)
		}
	}
	sort.Slice(keys, func(i, j int) bool {
		return d.keys[keys[j]].first.beats(d.keys[keys[i]].first)
	})
	return keys
}

func (d *Doc) origins() []ReplicaID {
	origins := make([]ReplicaID, 0, len(d.history))
	for o := range d.history {
		origins = append(origins, o)
	}
	sort.Slice(origins, func(i, j int) bool { return origins[i] < origins[j] })
	return origins
}
