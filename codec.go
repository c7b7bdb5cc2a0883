package crmap

import (
	"encoding/binary"
	"fmt"
	"math"
	"sort"
)

// formatVersion leads every encoded update and state vector.
const formatVersion byte = 1

const (
	scalarNull byte = iota
	scalarFalse
	scalarTrue
	scalarInt
	scalarFloat
	scalarString
	scalarBytes
)

func appendLength(buf []byte, n uint64) []byte {
	return binary.AppendUvarint(buf, n)
}

func appendBytes(buf []byte, b []byte) []byte {
	buf = appendLength(buf, uint64(len(b)))
	return append(buf, b...)
}

func appendString(buf []byte, s string) []byte {
	buf = appendLength(buf, uint64(len(s)))
	return append(buf, s...)
}

func decodeLength(buf []byte, n *uint64) ([]byte, error) {
	k, len := binary.Uvarint(buf)
	if len <= 0 {
		return nil, malformed("bad length")
	}
	*n = k
	return buf[len:], nil
}

// decodeCount reads an element count, rejecting counts that couldn't
// possibly fit in the remaining bytes at minSize bytes per element.
func decodeCount(buf []byte, n *int, minSize int) ([]byte, error) {
	var k uint64
	buf, err := decodeLength(buf, &k)
	if err != nil {
		return nil, err
	}
	if k > uint64(len(buf)/minSize) {
		return nil, malformed("count %d exceeds remaining %d bytes", k, len(buf))
	}
	*n = int(k)
	return buf, nil
}

func decodeBytes(buf []byte, body *[]byte) ([]byte, error) {
	var n uint64
	buf, err := decodeLength(buf, &n)
	if err != nil {
		return nil, err
	}
	if uint64(len(buf)) < n {
		return nil, malformed("bad body length %d", n)
	}
	*body = buf[:n]
	return buf[n:], nil
}

func decodeVersion(buf []byte) ([]byte, error) {
	if len(buf) == 0 {
		return nil, malformed("empty input")
	}
	if buf[0] != formatVersion {
		return nil, malformed("unknown format version %d", buf[0])
	}
	return buf[1:], nil
}

func appendStateVector(buf []byte, sv StateVector) []byte {
	replicas := make([]ReplicaID, 0, len(sv))
	for r := range sv {
		replicas = append(replicas, r)
	}
	sort.Slice(replicas, func(i, j int) bool { return replicas[i] < replicas[j] })
	buf = appendLength(buf, uint64(len(replicas)))
	for _, r := range replicas {
		buf = appendLength(buf, uint64(r))
		buf = appendLength(buf, sv[r])
	}
	return buf
}

func decodeStateVector(buf []byte, sv *StateVector) ([]byte, error) {
	var count int
	buf, err := decodeCount(buf, &count, 2)
	if err != nil {
		return nil, err
	}
	out := make(StateVector, count)
	var prev uint64
	for i := 0; i < count; i++ {
		var r, clock uint64
		if buf, err = decodeLength(buf, &r); err != nil {
			return nil, err
		}
		if buf, err = decodeLength(buf, &clock); err != nil {
			return nil, err
		}
		if i > 0 && r <= prev {
			return nil, malformed("state vector replica %d out of order", r)
		}
		prev = r
		out[ReplicaID(r)] = clock
	}
	*sv = out
	return buf, nil
}

// EncodeUpdate serializes blocks and the state vector they were produced
// under.
func EncodeUpdate(blocks []Block, sv StateVector) ([]byte, error) {
	return (&Update{StateVector: sv, Blocks: blocks}).Encode()
}

// Encode serializes the update deterministically: state vector entries
// by replica, then blocks grouped by origin and ordered by clock. Each
// origin's clocks must form a contiguous run.
func (u *Update) Encode() ([]byte, error) {
	blocks := append([]Block(nil), u.Blocks...)
	sort.SliceStable(blocks, func(i, j int) bool {
		if blocks[i].Origin != blocks[j].Origin {
			return blocks[i].Origin < blocks[j].Origin
		}
		return blocks[i].Clock < blocks[j].Clock
	})
	if err := checkRuns(blocks); err != nil {
		return nil, err
	}
	buf := []byte{formatVersion}
	buf = appendStateVector(buf, u.StateVector)
	buf = appendLength(buf, uint64(len(blocks)))
	for i := range blocks {
		b := &blocks[i]
		if err := b.validate(); err != nil {
			return nil, malformed("%v", err)
		}
		buf = appendLength(buf, uint64(b.Origin))
		buf = appendLength(buf, b.Clock)
		buf = appendString(buf, b.Key)
		buf = appendLength(buf, b.Lamport)
		buf = appendValue(buf, b.Payload)
	}
	return buf, nil
}

// DecodeUpdate parses bytes produced by Encode. It does not consult any
// document.
func DecodeUpdate(b []byte) (*Update, error) {
	buf, err := decodeVersion(b)
	if err != nil {
		return nil, err
	}
	var u Update
	buf, err = decodeStateVector(buf, &u.StateVector)
	if err != nil {
		return nil, err
	}
	var count int
	// origin, clock, key length, lamport, tag, payload length
	buf, err = decodeCount(buf, &count, 6)
	if err != nil {
		return nil, err
	}
	if count > 0 {
		u.Blocks = make([]Block, count)
	}
	for i := range u.Blocks {
		buf, err = decodeBlock(buf, &u.Blocks[i])
		if err != nil {
			return nil, err
		}
	}
	if len(buf) != 0 {
		return nil, malformed("%d trailing bytes", len(buf))
	}
	if err := checkRuns(u.Blocks); err != nil {
		return nil, err
	}
	return &u, nil
}

func decodeBlock(buf []byte, b *Block) ([]byte, error) {
	var key []byte
	var err error
	var o uint64
	if buf, err = decodeLength(buf, &o); err != nil {
		return nil, err
	}
	b.Origin = ReplicaID(o)
	if buf, err = decodeLength(buf, &b.Clock); err != nil {
		return nil, err
	}
	if buf, err = decodeBytes(buf, &key); err != nil {
		return nil, err
	}
	b.Key = string(key)
	if buf, err = decodeLength(buf, &b.Lamport); err != nil {
		return nil, err
	}
	buf, err = decodeValue(buf, &b.Payload, 0, true)
	if err != nil {
		return nil, fmt.Errorf("block %s: %w", b.ID, err)
	}
	return buf, nil
}

// checkRuns verifies blocks are grouped by ascending origin, with
// contiguous ascending clocks within a group.
func checkRuns(blocks []Block) error {
	for i := 1; i < len(blocks); i++ {
		prev, cur := &blocks[i-1], &blocks[i]
		switch {
		case cur.Origin < prev.Origin:
			return malformed("origin %d after origin %d", cur.Origin, prev.Origin)
		case cur.Origin == prev.Origin && cur.Clock != prev.Clock+1:
			return malformed("origin %d clock %d follows clock %d", cur.Origin, cur.Clock, prev.Clock)
		}
	}
	return nil
}

// appendValue writes a payload tag followed by the length-prefixed body.
func appendValue(buf []byte, v Value) []byte {
	buf = append(buf, byte(v.Kind))
	return appendBytes(buf, appendBody(nil, v))
}

func appendBody(buf []byte, v Value) []byte {
	switch v.Kind {
	case KindScalar:
		switch s := v.Scalar.(type) {
		case nil:
			buf = append(buf, scalarNull)
		case bool:
			if s {
				buf = append(buf, scalarTrue)
			} else {
				buf = append(buf, scalarFalse)
			}
		case int64:
			buf = append(buf, scalarInt)
			buf = binary.AppendVarint(buf, s)
		case float64:
			buf = append(buf, scalarFloat)
			buf = binary.LittleEndian.AppendUint64(buf, math.Float64bits(s))
		case string:
			buf = append(buf, scalarString)
			buf = appendString(buf, s)
		case []byte:
			buf = append(buf, scalarBytes)
			buf = appendBytes(buf, s)
		}
	case KindMap:
		buf = appendLength(buf, uint64(len(v.Entries)))
		for _, e := range v.Entries {
			buf = appendString(buf, e.Key)
			buf = appendValue(buf, e.Value)
		}
	case KindSequence:
		buf = appendLength(buf, uint64(len(v.Items)))
		for _, item := range v.Items {
			buf = appendValue(buf, item)
		}
	}
	return buf
}

func decodeValue(buf []byte, v *Value, depth int, topLevel bool) ([]byte, error) {
	if depth > maxDepth {
		return nil, malformed("value nested deeper than %d", maxDepth)
	}
	if len(buf) == 0 {
		return nil, malformed("missing payload tag")
	}
	kind := Kind(buf[0])
	var body []byte
	buf, err := decodeBytes(buf[1:], &body)
	if err != nil {
		return nil, err
	}
	*v = Value{Kind: kind}
	switch kind {
	case KindScalar:
		body, err = decodeScalar(body, v)
	case KindMap:
		var count int
		// key length, tag, body length
		body, err = decodeCount(body, &count, 3)
		if err == nil && count > 0 {
			v.Entries = make([]MapEntry, count)
		}
		for i := range v.Entries {
			var key []byte
			if body, err = decodeBytes(body, &key); err != nil {
				break
			}
			v.Entries[i].Key = string(key)
			if body, err = decodeValue(body, &v.Entries[i].Value, depth+1, false); err != nil {
				break
			}
		}
	case KindSequence:
		var count int
		body, err = decodeCount(body, &count, 2)
		if err == nil && count > 0 {
			v.Items = make([]Value, count)
		}
		for i := range v.Items {
			if body, err = decodeValue(body, &v.Items[i], depth+1, false); err != nil {
				break
			}
		}
	case KindTombstone:
		if !topLevel {
			return nil, malformed("nested tombstone")
		}
	default:
		return nil, malformed("unknown payload tag %d", kind)
	}
	if err != nil {
		return nil, err
	}
	if len(body) != 0 {
		return nil, malformed("%d trailing bytes in %s payload", len(body), kind)
	}
	return buf, nil
}

func decodeScalar(body []byte, v *Value) ([]byte, error) {
	if len(body) == 0 {
		return nil, malformed("missing scalar tag")
	}
	tag := body[0]
	body = body[1:]
	switch tag {
	case scalarNull:
	case scalarFalse:
		v.Scalar = false
	case scalarTrue:
		v.Scalar = true
	case scalarInt:
		i, n := binary.Varint(body)
		if n <= 0 {
			return nil, malformed("bad int")
		}
		v.Scalar = i
		body = body[n:]
	case scalarFloat:
		if len(body) < 8 {
			return nil, malformed("short float")
		}
		v.Scalar = math.Float64frombits(binary.LittleEndian.Uint64(body))
		body = body[8:]
	case scalarString, scalarBytes:
		var raw []byte
		var err error
		if body, err = decodeBytes(body, &raw); err != nil {
			return nil, err
		}
		if tag == scalarString {
			v.Scalar = string(raw)
		} else {
			v.Scalar = append([]byte{}, raw...)
		}
	default:
		return nil, malformed("unknown scalar tag %d", tag)
	}
	return body, nil
}
