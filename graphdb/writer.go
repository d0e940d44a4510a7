package graphdb

import (
	"encoding/binary"
	"time"

	"github.com/Aurorachain/go-nipsvm/core/state"
	"github.com/Aurorachain/go-nipsvm/core/vm"
	"github.com/Aurorachain/go-nipsvm/log"
	"github.com/Aurorachain/go-nipsvm/metrics"
	"github.com/golang/snappy"
	lru "github.com/hashicorp/golang-lru"
	"github.com/pborman/uuid"
	"github.com/pkg/errors"
)

const idCacheLimit = 4096

var (
	statesWritten = metrics.NewCounter("graphdb/states")
	edgesWritten  = metrics.NewCounter("graphdb/edges")
	batchTimer    = metrics.NewTimer("graphdb/batch")
)

// Summary is stored with the run when the writer is finished.
type Summary struct {
	States      uint64
	Transitions uint64
	Aborted     bool
}

// Writer stores the transitions of one search as a new run.
type Writer struct {
	db    KeyValueStore
	batch Batch
	info  RunInfo
	run   uuid.UUID

	pending map[string]uint64 // ids in the unwritten batch
	cache   *lru.Cache        // ids already written
	next    uint64

	lastFrom uint64
	seq      uint32
	edges    uint64
}

// NewWriter registers a new run in db.
func NewWriter(db KeyValueStore, file, module, order string) (*Writer, error) {
	w := &Writer{
		db:      db,
		batch:   db.NewBatch(),
		run:     uuid.NewRandom(),
		pending: make(map[string]uint64),
	}
	w.cache, _ = lru.New(idCacheLimit)
	w.info = RunInfo{
		File:    file,
		Module:  module,
		Order:   order,
		Started: time.Now().UTC(),
	}
	w.info.ID = w.run.String()
	if err := w.putInfo(db); err != nil {
		return nil, err
	}
	log.LInfo("graph db run started", log.String("run", w.info.ID))
	return w, nil
}

// Run returns the id of the run being written.
func (w *Writer) Run() string {
	return w.info.ID
}

func (w *Writer) putInfo(kv KeyValueWriter) error {
	enc, err := encMode.Marshal(&w.info)
	if err != nil {
		return errors.Wrap(err, "encode run info")
	}
	return kv.Put(runKey(w.run), enc)
}

// id returns the id of s, storing s if it is new.
func (w *Writer) id(s state.State) (uint64, error) {
	if id, ok := w.pending[string(s)]; ok {
		return id, nil
	}
	if v, ok := w.cache.Get(string(s)); ok {
		return v.(uint64), nil
	}
	k := indexKey(w.run, s)
	if ok, err := w.db.Has(k); err != nil {
		return 0, err
	} else if ok {
		enc, err := w.db.Get(k)
		if err != nil {
			return 0, err
		}
		id := binary.BigEndian.Uint64(enc)
		w.cache.Add(string(s), id)
		return id, nil
	}

	id := w.next
	w.next++
	if err := w.batch.Put(k, encodeID(id)); err != nil {
		return 0, err
	}
	if err := w.batch.Put(stateKey(w.run, id), snappy.Encode(nil, s)); err != nil {
		return 0, err
	}
	w.pending[string(s)] = id
	statesWritten.Inc(1)
	return id, nil
}

// Edge implements the edge sink of a search.
func (w *Writer) Edge(from, to state.State, t *vm.Transition) error {
	f, err := w.id(from)
	if err != nil {
		return err
	}
	dst, err := w.id(to)
	if err != nil {
		return err
	}
	if f != w.lastFrom {
		w.lastFrom, w.seq = f, 0
	}
	enc, err := encMode.Marshal(&Edge{
		To:       dst,
		Label1st: t.Label1st,
		Label:    t.Label,
		FlagReg:  t.FlagReg,
		Flags:    uint32(t.Flags),
	})
	if err != nil {
		return errors.Wrap(err, "encode edge")
	}
	if err := w.batch.Put(edgeKey(w.run, f, w.seq), enc); err != nil {
		return err
	}
	w.seq++
	w.edges++
	edgesWritten.Inc(1)

	if w.batch.ValueSize() >= IdealBatchSize {
		return w.flush()
	}
	return nil
}

func (w *Writer) flush() error {
	start := time.Now()
	if err := w.batch.Write(); err != nil {
		return errors.Wrap(err, "write graph batch")
	}
	batchTimer.UpdateSince(start)
	w.batch.Reset()
	for s, id := range w.pending {
		w.cache.Add(s, id)
	}
	w.pending = make(map[string]uint64)
	return nil
}

// Finish writes the remaining records and the summary of the run.
func (w *Writer) Finish(sum Summary) error {
	w.info.Finished = time.Now().UTC()
	w.info.States = sum.States
	w.info.Transitions = sum.Transitions
	w.info.Aborted = sum.Aborted
	if err := w.putInfo(w.batch); err != nil {
		return err
	}
	if err := w.flush(); err != nil {
		return err
	}
	for _, r := range runRanges(w.run) {
		if err := w.db.Compact(r[0], r[1]); err != nil {
			return errors.Wrap(err, "compact run")
		}
	}
	log.LInfo("graph db run finished", log.String("run", w.info.ID),
		log.Uint64("states", w.next), log.Uint64("edges", w.edges))
	return nil
}
