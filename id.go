package crmap

import (
	"encoding/binary"
	"fmt"

	"github.com/google/uuid"
)

// ReplicaID identifies a writer. It is used for attribution and
// tie-breaking only.
type ReplicaID uint64

// replicaIDBits keeps generated ids within the exactly-representable
// integer range of a float64.
const replicaIDBits = 53

// NewReplicaID draws a random 53-bit replica id. Collisions between
// distinct replicas are not detected.
func NewReplicaID() ReplicaID {
	for {
		u := uuid.New()
		id := ReplicaID(binary.BigEndian.Uint64(u[8:]) & (1<<replicaIDBits - 1))
		if id != 0 {
			return id
		}
	}
}

// ID is the globally unique identity of a Block.
type ID struct {
	Origin ReplicaID
	Clock  uint64
}

func (id ID) String() string {
	return fmt.Sprintf("%d@%d", id.Clock, id.Origin)
}
