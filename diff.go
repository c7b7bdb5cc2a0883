package crmap

import "fmt"

// Diff returns an update holding every block this document has that a
// peer with the given state vector lacks, together with this document's
// full state vector. A replica missing from theirs counts as 0. Per
// origin the blocks form a contiguous run starting at theirs[origin], so
// the peer can always integrate the result.
func (d *Doc) Diff(theirs StateVector) *Update {
	u := &Update{StateVector: d.StateVector()}
	for _, origin := range d.origins() {
		h := d.history[origin]
		for c := theirs[origin]; c < uint64(len(h)); c++ {
			b := *h[c]
			b.Payload = b.Payload.clone()
			u.Blocks = append(u.Blocks, b)
		}
	}
	d.log.Debug().Stringer("theirs", theirs).Int("blocks", len(u.Blocks)).Msg("diff")
	return u
}

// EncodeDiff is Diff for a peer's encoded state vector, returning the
// encoded update.
func (d *Doc) EncodeDiff(encodedStateVector []byte) ([]byte, error) {
	theirs, err := DecodeStateVector(encodedStateVector)
	if err != nil {
		return nil, fmt.Errorf("state vector: %w", err)
	}
	return d.Diff(theirs).Encode()
}

// EncodeStateAsUpdate encodes the document's whole history. Integrating
// the result into an empty document reproduces this one, so it serves
// as a snapshot.
func (d *Doc) EncodeStateAsUpdate() ([]byte, error) {
	return d.Diff(nil).Encode()
}
