package graphdb_test

import (
	"bytes"
	"context"
	"testing"

	"github.com/Aurorachain/go-nipsvm/bytecode"
	"github.com/Aurorachain/go-nipsvm/core/hashtab"
	"github.com/Aurorachain/go-nipsvm/core/state"
	"github.com/Aurorachain/go-nipsvm/core/vm"
	"github.com/Aurorachain/go-nipsvm/graphdb"
	"github.com/Aurorachain/go-nipsvm/graphdb/leveldb"
	"github.com/Aurorachain/go-nipsvm/search"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// toggle flips global byte 0 between 1 and 0: 3 states, 3 transitions.
func toggle(t *testing.T) *bytecode.Module {
	b := bytecode.NewBuilder("toggle")
	b.Emit(byte(vm.GLOBSZ), 1)
	b.Label("loop")
	b.Emit(byte(vm.LDC))
	b.Emit32(1)
	b.Emit(byte(vm.LDC))
	b.Emit32(0)
	b.Emit(byte(vm.LDVG1U))
	b.Emit(byte(vm.SUB))
	b.Emit(byte(vm.LDC))
	b.Emit32(0)
	b.Emit(byte(vm.STVG1U))
	b.Emit(byte(vm.STEPN), 1)
	b.Emit(byte(vm.JMP))
	b.Rel("loop")
	m, err := b.Build()
	require.NoError(t, err)
	return m
}

func newDB(t *testing.T) *leveldb.Database {
	db, err := leveldb.NewMemory()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func store(t *testing.T, db *leveldb.Database) string {
	w, err := graphdb.NewWriter(db, "toggle.b", "toggle", search.BreadthFirst.String())
	require.NoError(t, err)
	stats, err := search.Run(context.Background(), toggle(t), search.Config{
		BufferSize:  1 << 16,
		HashEntries: hashtab.MinEntries,
		Edges:       w,
	})
	require.NoError(t, err)
	require.NoError(t, w.Finish(graphdb.Summary{States: stats.States, Transitions: stats.Transitions}))
	return w.Run()
}

func TestStoreSearch(t *testing.T) {
	db := newDB(t)
	run := store(t, db)

	info, err := graphdb.ReadRun(db, run)
	require.NoError(t, err)
	assert.Equal(t, run, info.ID)
	assert.Equal(t, "toggle", info.Module)
	assert.Equal(t, "breadth-first", info.Order)
	assert.Equal(t, uint64(3), info.States)
	assert.Equal(t, uint64(3), info.Transitions)
	assert.False(t, info.Finished.Before(info.Started))

	s0, err := graphdb.ReadState(db, run, 0)
	require.NoError(t, err)
	want, err := state.NewArena(64).Initial()
	require.NoError(t, err)
	assert.Equal(t, want, s0)

	var total int
	for id := uint64(0); id < 3; id++ {
		edges, err := graphdb.ReadEdges(db, run, id)
		require.NoError(t, err)
		require.Len(t, edges, 1)
		assert.Equal(t, id, edges[0].From)
		assert.Equal(t, uint8(1), edges[0].Label)
		total += len(edges)

		s, err := graphdb.ReadState(db, run, id)
		require.NoError(t, err)
		got, err := graphdb.StateID(db, run, s)
		require.NoError(t, err)
		assert.Equal(t, id, got)
	}
	assert.Equal(t, 3, total)

	// the last state leads back to the first successor
	edges, err := graphdb.ReadEdges(db, run, 2)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), edges[0].To)
}

func TestRuns(t *testing.T) {
	db := newDB(t)
	first := store(t, db)
	second := store(t, db)
	assert.NotEqual(t, first, second)

	runs, err := graphdb.Runs(db)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	ids := []string{runs[0].ID, runs[1].ID}
	assert.ElementsMatch(t, []string{first, second}, ids)
}

func TestUnknown(t *testing.T) {
	db := newDB(t)
	run := store(t, db)

	_, err := graphdb.ReadState(db, run, 99)
	assert.Equal(t, graphdb.ErrUnknownState, errors.Cause(err))
	_, err = graphdb.ReadRun(db, "not a uuid")
	assert.Equal(t, graphdb.ErrUnknownRun, errors.Cause(err))
	_, err = graphdb.ReadRun(db, "5c2a8f2e-5a55-4a7b-8c1e-0d6f8b7a9c10")
	assert.Equal(t, graphdb.ErrUnknownRun, errors.Cause(err))

	edges, err := graphdb.ReadEdges(db, run, 99)
	require.NoError(t, err)
	assert.Empty(t, edges)
}

// compactLog records the ranges compacted through it.
type compactLog struct {
	*leveldb.Database
	ranges [][2][]byte
}

func (c *compactLog) Compact(start, limit []byte) error {
	c.ranges = append(c.ranges, [2][]byte{start, limit})
	return c.Database.Compact(start, limit)
}

func TestFinishCompactsRun(t *testing.T) {
	db := &compactLog{Database: newDB(t)}
	w, err := graphdb.NewWriter(db, "toggle.b", "toggle", search.BreadthFirst.String())
	require.NoError(t, err)
	stats, err := search.Run(context.Background(), toggle(t), search.Config{
		BufferSize:  1 << 16,
		HashEntries: hashtab.MinEntries,
		Edges:       w,
	})
	require.NoError(t, err)
	assert.Empty(t, db.ranges)
	require.NoError(t, w.Finish(graphdb.Summary{States: stats.States, Transitions: stats.Transitions}))

	require.Len(t, db.ranges, 4)
	for i, p := range []byte("rsie") {
		start, limit := db.ranges[i][0], db.ranges[i][1]
		assert.Equal(t, p, start[0])
		assert.Equal(t, p, limit[0])
		assert.Equal(t, -1, bytes.Compare(start, limit))
	}

	// compaction keeps the stored run readable
	info, err := graphdb.ReadRun(db, w.Run())
	require.NoError(t, err)
	assert.Equal(t, uint64(3), info.States)
	edges, err := graphdb.ReadEdges(db, w.Run(), 0)
	require.NoError(t, err)
	assert.Len(t, edges, 1)
}
