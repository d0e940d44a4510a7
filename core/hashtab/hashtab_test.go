package hashtab

import (
	"encoding/binary"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// sliceStore keeps every stored blob back to back.
type sliceStore struct {
	buf []byte
}

func (s *sliceStore) add(data []byte) Ref {
	ref := Ref(len(s.buf))
	s.buf = append(s.buf, data...)
	return ref
}

func (s *sliceStore) Bytes(ref uint64, n int) []byte {
	if ref >= uint64(len(s.buf)) {
		return nil
	}
	end := int(ref) + n
	if end > len(s.buf) {
		end = len(s.buf)
	}
	return s.buf[ref:end]
}

func TestHashDeterministic(t *testing.T) {
	data := []byte("the quick brown fox jumps over the lazy dog")
	for n := 0; n <= len(data); n++ {
		if Hash(data[:n], 0) != Hash(append([]byte(nil), data[:n]...), 0) {
			t.Fatalf("hash of %d bytes not deterministic", n)
		}
	}
	if Hash(data, 0) == Hash(data, 1) {
		t.Errorf("seed does not change the hash")
	}
	seen := make(map[uint32]int)
	for n := 0; n <= len(data); n++ {
		h := Hash(data[:n], 0)
		if m, ok := seen[h]; ok {
			t.Errorf("prefixes of length %d and %d hash to %08x", m, n, h)
		}
		seen[h] = n
	}
}

func TestHashTailBytes(t *testing.T) {
	// every byte of the trailing partial block must influence the hash
	base := make([]byte, 23)
	h := Hash(base, 0)
	for i := range base {
		b := append([]byte(nil), base...)
		b[i] = 1
		if Hash(b, 0) == h {
			t.Errorf("byte %d does not affect the hash", i)
		}
	}
}

func TestNewBounds(t *testing.T) {
	tab := New(10, 0, &sliceStore{})
	st := tab.Stats()
	assert.Equal(t, uint64(MinEntries), st.EntriesAvailable)
	assert.Equal(t, uint64(MinEntries*bucketSize), st.MemorySize)
	assert.Equal(t, uint64(1), tab.retries)
}

func TestInsertIdempotent(t *testing.T) {
	store := &sliceStore{}
	tab := New(65536, 500, store)

	state := make([]byte, 40)
	for i := range state {
		state[i] = byte(i * 7)
	}
	res, slot, _ := tab.Lookup(state)
	require.Equal(t, Insert, res)
	ref := store.add(state)
	tab.Store(slot, ref)

	res, _, found := tab.Lookup(state)
	assert.Equal(t, AlreadyPresent, res)
	assert.Equal(t, ref, found)
	assert.Equal(t, AlreadyPresent, tab.Insert(state, ref))
	assert.Equal(t, uint64(1), tab.Len())

	// a prefix of a stored state is a different state
	assert.Equal(t, Insert, tab.Insert(state[:39], store.add(state[:39])))
	assert.Equal(t, uint64(2), tab.Len())
}

func TestManyRandomStates(t *testing.T) {
	store := &sliceStore{}
	tab := New(65536, 500, store)
	rnd := rand.New(rand.NewSource(1))

	inserted := 0
	var failed bool
	for i := 0; i < 70000; i++ {
		state := make([]byte, 40)
		rnd.Read(state)
		binary.BigEndian.PutUint32(state, uint32(i))
		res, slot, _ := tab.Lookup(state)
		if res == UnresolvableCollision {
			failed = true
			break
		}
		require.Equal(t, Insert, res, "state %d", i)
		tab.Store(slot, store.add(state))
		inserted++
	}
	// 70000 states cannot fit 65536 buckets
	require.True(t, failed)
	assert.Equal(t, uint64(inserted), tab.Len())

	// nothing that was inserted got lost
	for i := 0; i < inserted; i++ {
		state := store.buf[i*40 : (i+1)*40]
		res, _, ref := tab.Lookup(state)
		require.Equal(t, AlreadyPresent, res, "state %d", i)
		require.Equal(t, Ref(i*40), ref)
	}
	st := tab.Stats()
	assert.True(t, st.Conflicts > 0)
	assert.True(t, st.MaxRetries > 0 && st.MaxRetries <= 500)
}

func TestRetryBound(t *testing.T) {
	store := &sliceStore{}
	tab := New(MinEntries, 1, store)
	// fill every bucket so the single probe always hits a foreign entry
	for i := range tab.refs {
		tab.refs[i] = 1
		tab.rests[i] = 0xFFFF
	}
	store.add([]byte{0xEE})
	res, _, _ := tab.Lookup([]byte("x"))
	assert.Equal(t, UnresolvableCollision, res)
	assert.Equal(t, "unresolvable collision", res.String())
}
