// Package hashtab implements the visited-state table of the search: an open
// addressing table with double hashing that stores references to states
// kept elsewhere, plus 16 bits of the hash to skip most byte comparisons.
package hashtab

import (
	"bytes"
	"errors"
)

// MinEntries is the smallest table size. Below it the 16 remainder bits
// stored per bucket would not cover the part of the hash lost by the modulo.
const MinEntries = 65536

// bytes per bucket: state reference and hash remainder
const bucketSize = 8 + 2

var ErrUnresolvableCollision = errors.New("unresolvable hash conflict")

// Result of a Lookup.
type Result int

const (
	UnresolvableCollision Result = -1
	AlreadyPresent        Result = 0
	Insert                Result = 1
)

func (r Result) String() string {
	switch r {
	case Insert:
		return "insert"
	case AlreadyPresent:
		return "already present"
	case UnresolvableCollision:
		return "unresolvable collision"
	}
	return "unknown"
}

// Ref addresses a stored state in the backing Store.
type Ref uint64

// Store gives the table access to the bytes of stored states. Bytes returns
// at most n bytes starting at ref.
type Store interface {
	Bytes(ref uint64, n int) []byte
}

// Slot identifies a bucket returned by Lookup.
type Slot struct {
	index uint64
	rest  uint16
}

// Stats describes the fill state of a table.
type Stats struct {
	MemorySize       uint64 `yaml:"memory_size"`
	EntriesUsed      uint64 `yaml:"entries_used"`
	EntriesAvailable uint64 `yaml:"entries_available"`
	Conflicts        uint64 `yaml:"conflicts"`
	MaxRetries       uint64 `yaml:"max_retries"`
}

// Table is not safe for concurrent use.
type Table struct {
	entries uint64
	retries uint64
	refs    []uint64 // ref+1, 0 marks an empty bucket
	rests   []uint16
	store   Store

	used      uint64
	conflicts uint64
	maxRetry  uint64
}

// New creates a table with at least MinEntries buckets that probes at most
// retries buckets per lookup.
func New(entries, retries uint64, store Store) *Table {
	if entries < MinEntries {
		entries = MinEntries
	}
	if retries < 1 {
		retries = 1
	}
	return &Table{
		entries: entries,
		retries: retries,
		refs:    make([]uint64, entries),
		rests:   make([]uint16, entries),
		store:   store,
	}
}

// Lookup searches the bucket for data. Insert returns the free slot to pass
// to Store, AlreadyPresent returns the reference of the equal state.
func (t *Table) Lookup(data []byte) (Result, Slot, Ref) {
	hash := uint64(Hash(data, 0))
	step := 1 + hash%(t.entries-1)
	entry := hash % t.entries
	rest := uint16(hash / t.entries)

	for i := uint64(0); i < t.retries; i++ {
		switch {
		case t.refs[entry] == 0:
			return Insert, Slot{index: entry, rest: rest}, 0
		case t.rests[entry] != rest:
		case bytes.Equal(t.store.Bytes(t.refs[entry]-1, len(data)), data):
			return AlreadyPresent, Slot{index: entry, rest: rest}, Ref(t.refs[entry] - 1)
		}
		t.conflicts++
		if i+1 > t.maxRetry {
			t.maxRetry = i + 1
		}
		entry = (entry + step) % t.entries
	}
	return UnresolvableCollision, Slot{}, 0
}

// Store records ref in a slot obtained from a Lookup that returned Insert.
func (t *Table) Store(slot Slot, ref Ref) {
	if t.refs[slot.index] == 0 {
		t.used++
	}
	t.refs[slot.index] = uint64(ref) + 1
	t.rests[slot.index] = slot.rest
}

// Insert looks data up and stores ref if it is new.
func (t *Table) Insert(data []byte, ref Ref) Result {
	res, slot, _ := t.Lookup(data)
	if res == Insert {
		t.Store(slot, ref)
	}
	return res
}

// Len returns the number of stored states.
func (t *Table) Len() uint64 { return t.used }

func (t *Table) Stats() Stats {
	return Stats{
		MemorySize:       t.entries * bucketSize,
		EntriesUsed:      t.used,
		EntriesAvailable: t.entries,
		Conflicts:        t.conflicts,
		MaxRetries:       t.maxRetry,
	}
}
