package crmap

import (
	"fmt"
	"sort"
	"strings"
)

// StateVector maps each replica to the next clock expected from it:
// a Doc whose vector holds {r: n} has applied clocks [0, n) from r.
// A missing replica is equivalent to 0.
type StateVector map[ReplicaID]uint64

// Get returns the next expected clock for the given replica.
func (sv StateVector) Get(replica ReplicaID) uint64 {
	return sv[replica]
}

// Clone returns an independent copy; a nil vector clones to an empty one.
func (sv StateVector) Clone() StateVector {
	c := make(StateVector, len(sv))
	for r, clock := range sv {
		c[r] = clock
	}
	return c
}

// Replicas returns the replicas with a non-zero entry, ascending.
func (sv StateVector) Replicas() []ReplicaID {
	replicas := make([]ReplicaID, 0, len(sv))
	for r, clock := range sv {
		if clock > 0 {
			replicas = append(replicas, r)
		}
	}
	sort.Slice(replicas, func(i, j int) bool { return replicas[i] < replicas[j] })
	return replicas
}

// Covers reports whether sv has applied everything other has.
func (sv StateVector) Covers(other StateVector) bool {
	for r, clock := range other {
		if sv[r] < clock {
			return false
		}
	}
	return true
}

// Equal compares vectors, treating missing entries as 0.
func (sv StateVector) Equal(other StateVector) bool {
	return sv.Covers(other) && other.Covers(sv)
}

// Encode serializes the vector by itself, so a replica can send it to
// a peer and ask for a diff.
func (sv StateVector) Encode() []byte {
	buf := []byte{formatVersion}
	return appendStateVector(buf, sv)
}

// DecodeStateVector is the inverse of StateVector.Encode.
func DecodeStateVector(b []byte) (StateVector, error) {
	buf, err := decodeVersion(b)
	if err != nil {
		return nil, err
	}
	var sv StateVector
	buf, err = decodeStateVector(buf, &sv)
	if err != nil {
		return nil, err
	}
	if len(buf) != 0 {
		return nil, malformed("%d trailing bytes after state vector", len(buf))
	}
	return sv, nil
}

func (sv StateVector) String() string {
	var sb strings.Builder
	sb.WriteByte('{')
	for i, r := range sv.Replicas() {
		if i > 0 {
			sb.WriteByte(',')
		}
		fmt.Fprintf(&sb, "%d:%d", r, sv[r])
	}
	sb.WriteByte('}')
	return sb.String()
}
