package crmap

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
)

// Options configures a new Doc. The zero value is usable.
type Options struct {
	// Replica is this document's own writer id. 0 means draw a random
	// one with NewReplicaID.
	Replica ReplicaID

	// Logger receives debug logs of writes and integrations. nil
	// disables logging.
	Logger *zerolog.Logger

	// Metrics, if set, counts applied, skipped and rejected blocks.
	Metrics *Metrics

	// PruneDominated discards writes that have lost their key for good,
	// keeping only each key's winner. Origin history used for diffs is
	// always retained.
	PruneDominated bool
}

// Update is a set of blocks plus the state vector of the document that
// produced them.
type Update struct {
	StateVector StateVector
	Blocks      []Block
}

// IntegrationResult reports what an Integrate call did.
type IntegrationResult struct {
	// Applied counts blocks that were new to the document.
	Applied int
	// Skipped counts blocks the document had already applied.
	Skipped int
}

// Persist is the interface for loading and storing serialized updates
// and snapshots.
type Persist interface {
	// Store makes the given bytes accessible by the given name.
	Store(context.Context, string, []byte) error
	// Load retrieves the previously-stored bytes by the given name.
	Load(context.Context, string) ([]byte, error)
}

// New returns an empty document.
func New(opts *Options) *Doc {
	if opts == nil {
		opts = &Options{}
	}
	d := &Doc{
		replica: opts.Replica,
		sv:      StateVector{},
		history: map[ReplicaID][]*Block{},
		keys:    map[string]*keyState{},
		prune:   opts.PruneDominated,
		baseLog: zerolog.Nop(),
		metrics: opts.Metrics,
	}
	if d.replica == 0 {
		d.replica = NewReplicaID()
	}
	if opts.Logger != nil {
		d.baseLog = *opts.Logger
	}
	d.log = d.baseLog.With().Uint64("replica", uint64(d.replica)).Logger()
	return d
}

// Replica returns the id this document writes under.
func (d *Doc) Replica() ReplicaID {
	return d.replica
}

// Set writes value to key. The document keeps its own copy of value.
// Use Delete to remove a key.
func (d *Doc) Set(key string, value Value) error {
	if value.IsTombstone() {
		return fmt.Errorf("set %q: use Delete to write a tombstone", key)
	}
	if err := validateValue(value, 0, false); err != nil {
		return fmt.Errorf("set %q: %w", key, err)
	}
	return d.write(key, value)
}

// Delete removes key by writing a tombstone over its current value.
func (d *Doc) Delete(key string) error {
	return d.write(key, Tombstone())
}

func (d *Doc) write(key string, payload Value) error {
	b := Block{
		ID:      ID{d.replica, d.sv[d.replica]},
		Key:     key,
		Payload: payload,
	}
	if ks, ok := d.keys[key]; ok {
		b.Lamport = ks.winner().Lamport + 1
	}
	_, err := d.integrate([]Block{b})
	if err != nil {
		return fmt.Errorf("write %q: %w", key, err)
	}
	d.metrics.localWrite()
	d.log.Debug().Stringer("id", b.ID).Str("key", key).
		Stringer("kind", payload.Kind).Uint64("lamport", b.Lamport).Msg("local write")
	return nil
}

// StateVector returns a copy of the document's state vector.
func (d *Doc) StateVector() StateVector {
	return d.sv.Clone()
}

// VisibleEntries returns the winning value of every key that isn't
// deleted.
func (d *Doc) VisibleEntries() map[string]Value {
	entries := make(map[string]Value, d.visible)
	for k, ks := range d.keys {
		if w := ks.winner(); visible(w) {
			entries[k] = w.Payload.clone()
		}
	}
	return entries
}

// Get returns the winning value of key, or false if the key is absent
// or deleted.
func (d *Doc) Get(key string) (Value, bool) {
	ks, ok := d.keys[key]
	if !ok || !visible(ks.winner()) {
		return Value{}, false
	}
	return ks.winner().Payload.clone(), true
}

// Len returns the number of visible keys.
func (d *Doc) Len() int {
	return d.visible
}

// Keys returns the visible keys in projection order.
func (d *Doc) Keys() []string {
	return d.sortedKeys()
}

// Contenders returns the retained writes to key, the winner last.
func (d *Doc) Contenders(key string) []Block {
	ks, ok := d.keys[key]
	if !ok {
		return nil
	}
	out := make([]Block, len(ks.contenders))
	for i, b := range ks.contenders {
		out[i] = *b
		out[i].Payload = b.Payload.clone()
	}
	return out
}

// Clone returns an independent copy of the document that writes under
// the given replica id (0 for a random one). Blocks are immutable and
// shared.
func (d *Doc) Clone(replica ReplicaID) *Doc {
	if replica == 0 {
		replica = NewReplicaID()
	}
	c := &Doc{
		replica: replica,
		sv:      d.sv.Clone(),
		history: make(map[ReplicaID][]*Block, len(d.history)),
		keys:    make(map[string]*keyState, len(d.keys)),
		visible: d.visible,
		prune:   d.prune,
		baseLog: d.baseLog,
		log:     d.baseLog.With().Uint64("replica", uint64(replica)).Logger(),
		metrics: d.metrics,
	}
	for o, h := range d.history {
		c.history[o] = append([]*Block(nil), h...)
	}
	for k, ks := range d.keys {
		c.keys[k] = &keyState{
			contenders: append([]*Block(nil), ks.contenders...),
			first:      ks.first,
		}
	}
	return c
}
