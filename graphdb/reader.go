package graphdb

import (
	"encoding/binary"
	"sort"

	"github.com/Aurorachain/go-nipsvm/core/state"
	"github.com/fxamacker/cbor/v2"
	"github.com/golang/snappy"
	"github.com/pborman/uuid"
	"github.com/pkg/errors"
)

var (
	ErrUnknownRun   = errors.New("unknown run")
	ErrUnknownState = errors.New("unknown state")
)

func parseRun(run string) (uuid.UUID, error) {
	id := uuid.Parse(run)
	if id == nil {
		return nil, errors.Wrapf(ErrUnknownRun, "malformed run id %q", run)
	}
	return id, nil
}

// Runs lists the stored runs, oldest first.
func Runs(db Reader) ([]RunInfo, error) {
	it := db.NewIteratorWithPrefix(runPrefix)
	defer it.Release()

	var runs []RunInfo
	for it.Next() {
		var info RunInfo
		if err := cbor.Unmarshal(it.Value(), &info); err != nil {
			return nil, errors.Wrapf(err, "decode run %x", it.Key()[len(runPrefix):])
		}
		runs = append(runs, info)
	}
	if err := it.Error(); err != nil {
		return nil, err
	}
	sort.SliceStable(runs, func(i, j int) bool { return runs[i].Started.Before(runs[j].Started) })
	return runs, nil
}

// ReadRun returns the description of one run.
func ReadRun(db Reader, run string) (*RunInfo, error) {
	id, err := parseRun(run)
	if err != nil {
		return nil, err
	}
	enc, err := get(db, runKey(id), ErrUnknownRun)
	if err != nil {
		return nil, errors.Wrap(err, run)
	}
	info := new(RunInfo)
	if err := cbor.Unmarshal(enc, info); err != nil {
		return nil, errors.Wrap(err, "decode run info")
	}
	return info, nil
}

// ReadState returns the state stored under id.
func ReadState(db Reader, run string, id uint64) (state.State, error) {
	r, err := parseRun(run)
	if err != nil {
		return nil, err
	}
	enc, err := get(db, stateKey(r, id), ErrUnknownState)
	if err != nil {
		return nil, errors.Wrapf(err, "state %d", id)
	}
	s, err := snappy.Decode(nil, enc)
	if err != nil {
		return nil, errors.Wrapf(err, "decompress state %d", id)
	}
	return state.State(s), nil
}

// StateID looks up the id of s.
func StateID(db Reader, run string, s state.State) (uint64, error) {
	r, err := parseRun(run)
	if err != nil {
		return 0, err
	}
	enc, err := get(db, indexKey(r, s), ErrUnknownState)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint64(enc), nil
}

// ReadEdges returns the transitions leaving state from in the order they
// were generated.
func ReadEdges(db Reader, run string, from uint64) ([]Edge, error) {
	r, err := parseRun(run)
	if err != nil {
		return nil, err
	}
	it := db.NewIteratorWithPrefix(key(edgePrefix, r, encodeID(from)))
	defer it.Release()

	var edges []Edge
	for it.Next() {
		e := Edge{From: from}
		if err := cbor.Unmarshal(it.Value(), &e); err != nil {
			return nil, errors.Wrap(err, "decode edge")
		}
		edges = append(edges, e)
	}
	return edges, it.Error()
}

func get(db KeyValueReader, k []byte, missing error) ([]byte, error) {
	ok, err := db.Has(k)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, missing
	}
	return db.Get(k)
}
