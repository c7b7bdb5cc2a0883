package crmap

import "fmt"

// Block is a single write: the replica and clock that authored it, the
// key it sets, and the value or tombstone it sets it to. Blocks are
// never modified once created.
type Block struct {
	ID
	Key string
	// Lamport is the causal depth of the write on Key: one more than the
	// winner it overwrote, or 0 if the key had no winner when written.
	Lamport uint64
	Payload Value
}

func (b *Block) String() string {
	return fmt.Sprintf("%s %q=%s(L%d)", b.ID, b.Key, b.Payload.Kind, b.Lamport)
}

// beats reports whether b wins over o on the same key. Causally deeper
// writes win; equal depth is broken by replica id, higher wins.
func (b *Block) beats(o *Block) bool {
	if b.Lamport != o.Lamport {
		return b.Lamport > o.Lamport
	}
	if b.Origin != o.Origin {
		return b.Origin > o.Origin
	}
	return b.Clock > o.Clock
}

// validate checks the parts of a block that don't depend on a Doc.
func (b *Block) validate() error {
	if err := validateValue(b.Payload, 0, true); err != nil {
		return fmt.Errorf("block %s payload: %w", b.ID, err)
	}
	return nil
}
