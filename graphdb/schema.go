package graphdb

import (
	"encoding/binary"
	"fmt"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/pborman/uuid"
)

// The database layout:
//
//	r + run                  -> RunInfo
//	s + run + id             -> snappy compressed state
//	i + run + state          -> id
//	e + run + from id + seq  -> Edge
//
// ids are big endian uint64 starting at 0 with the initial state.
var (
	runPrefix   = []byte("r")
	statePrefix = []byte("s")
	indexPrefix = []byte("i")
	edgePrefix  = []byte("e")
)

// RunInfo describes one search stored in the database.
type RunInfo struct {
	ID          string    `cbor:"id"`
	File        string    `cbor:"file"`
	Module      string    `cbor:"module"`
	Order       string    `cbor:"order"`
	Started     time.Time `cbor:"started"`
	Finished    time.Time `cbor:"finished"`
	States      uint64    `cbor:"states"`
	Transitions uint64    `cbor:"transitions"`
	Aborted     bool      `cbor:"aborted"`
}

// Edge is one stored transition.
type Edge struct {
	From     uint64 `cbor:"-"`
	To       uint64 `cbor:"to"`
	Label1st uint8  `cbor:"l1,omitempty"`
	Label    uint8  `cbor:"l"`
	FlagReg  uint32 `cbor:"fr,omitempty"`
	Flags    uint32 `cbor:"f,omitempty"`
}

var encMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("graphdb: failed to create CBOR enc mode: %v", err))
	}
	encMode = em
}

func encodeID(id uint64) []byte {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], id)
	return b[:]
}

func key(prefix []byte, run uuid.UUID, parts ...[]byte) []byte {
	k := make([]byte, 0, 64)
	k = append(k, prefix...)
	k = append(k, run...)
	for _, p := range parts {
		k = append(k, p...)
	}
	return k
}

func runKey(run uuid.UUID) []byte { return key(runPrefix, run) }
func stateKey(run uuid.UUID, id uint64) []byte { return key(statePrefix, run, encodeID(id)) }
func indexKey(run uuid.UUID, s []byte) []byte { return key(indexPrefix, run, s) }

// runRanges returns the [start, limit) key ranges holding the records of
// run, one per record prefix.
func runRanges(run uuid.UUID) [][2][]byte {
	var ranges [][2][]byte
	for _, p := range [][]byte{runPrefix, statePrefix, indexPrefix, edgePrefix} {
		start := key(p, run)
		ranges = append(ranges, [2][]byte{start, prefixLimit(start)})
	}
	return ranges
}

// prefixLimit returns the smallest key greater than every key starting
// with prefix, or nil if there is none.
func prefixLimit(prefix []byte) []byte {
	limit := append([]byte(nil), prefix...)
	for i := len(limit) - 1; i >= 0; i-- {
		if limit[i] < 0xff {
			limit[i]++
			return limit[:i+1]
		}
	}
	return nil
}

func edgeKey(run uuid.UUID, from uint64, seq uint32) []byte {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], seq)
	return key(edgePrefix, run, encodeID(from), b[:])
}
