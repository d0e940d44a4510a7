// Package search explores the state space of a NIPS module breadth-first or
// depth-first, storing every visited state once.
package search

import (
	"context"
	"fmt"

	"github.com/Aurorachain/go-nipsvm/bytecode"
	"github.com/Aurorachain/go-nipsvm/common/mclock"
	"github.com/Aurorachain/go-nipsvm/core/hashtab"
	"github.com/Aurorachain/go-nipsvm/core/state"
	"github.com/Aurorachain/go-nipsvm/core/vm"
	"github.com/Aurorachain/go-nipsvm/log"
	"github.com/pkg/errors"
)

// EdgeSink receives the transitions of a search. from and to are only valid
// during the call.
type EdgeSink interface {
	Edge(from, to state.State, t *vm.Transition) error
}

// EdgeSinks fans edges out to several sinks.
type EdgeSinks []EdgeSink

func (s EdgeSinks) Edge(from, to state.State, t *vm.Transition) error {
	for _, sink := range s {
		if err := sink.Edge(from, to, t); err != nil {
			return err
		}
	}
	return nil
}

type searcher struct {
	ctx   context.Context
	cfg   Config
	sched *vm.Scheduler
	arena *state.Arena
	table *hashtab.Table
	stats Stats
	pred  state.State // state being expanded
	err   error
	start mclock.AbsTime
}

// Run searches the state space of the module behind handle. The returned
// statistics are valid even if the search was aborted; the error then tells
// why.
func Run(ctx context.Context, handle bytecode.Handle, cfg Config) (*Stats, error) {
	cfg.setDefaults()
	s := &searcher{
		ctx:   ctx,
		cfg:   cfg,
		arena: state.NewArena(int(cfg.BufferSize)),
	}
	s.table = hashtab.New(cfg.HashEntries, cfg.HashRetries, s.arena)
	s.stats.Order = cfg.Order
	s.stats.DepthMax = cfg.DepthMax
	s.stats.BufferSize = cfg.BufferSize

	vmcfg := cfg.VM
	vmcfg.OnSuccessor = s.onSuccessor
	vmcfg.OnError = s.onError
	s.sched = vm.NewScheduler(handle, vmcfg)

	first, err := s.initial()
	if err != nil {
		s.progress(true)
		return &s.stats, err
	}

	if cfg.Order == BreadthFirst {
		log.Infof("doing breadth-first search")
	} else {
		log.Infof("doing depth-first search up to depth %d", cfg.DepthMax)
	}
	s.start = mclock.Now()
	if cfg.Order == BreadthFirst {
		s.bfs(0)
	} else {
		s.dfs(first, 0)
	}
	s.stats.Duration = mclock.Since(s.start)
	searchTimer.Update(s.stats.Duration)

	s.stats.BufferUsed = uint64(s.arena.Used())
	s.stats.Table = s.table.Stats()
	s.progress(true)
	if s.err != nil {
		s.stats.Aborted = true
		s.stats.Error = s.err.Error()
		log.Warnf("%s search aborted: %v", cfg.Order, s.err)
	}
	log.LInfo("search finished", log.String("order", cfg.Order.String()),
		log.Uint64("states", s.stats.States), log.Uint64("transitions", s.stats.Transitions),
		log.Dur("time", s.stats.Duration))
	return &s.stats, s.err
}

// initial stores the initial state as the first state of the arena.
func (s *searcher) initial() (state.State, error) {
	var (
		first state.State
		err   error
	)
	if s.cfg.Initial != nil {
		if _, err := state.Validate(s.cfg.Initial); err != nil {
			return nil, errors.Wrap(ErrInvalidInitialState, err.Error())
		}
		first, err = s.arena.Copy(s.cfg.Initial)
	} else {
		first, err = s.arena.Initial()
	}
	if err != nil {
		return nil, ErrOutOfStateMemory
	}
	s.table.Insert(first, 0)
	return first, nil
}

// bfs expands the states in the order they were stored. The arena is the
// queue.
func (s *searcher) bfs(off int) {
	for off < s.arena.Used() && s.err == nil {
		st := s.arena.StateAt(off)
		s.expand(st)
		off += len(st)
		s.noteSize(st)
	}
}

func (s *searcher) dfs(st state.State, depth uint) {
	if depth > s.cfg.DepthMax {
		return
	}
	if depth > s.stats.DepthReached {
		s.stats.DepthReached = depth
		depthGauge.Update(int64(depth))
	}

	start := s.arena.Used()
	s.expand(st)
	end := s.arena.Used()

	for off := start; off < end && s.err == nil; {
		succ := s.arena.StateAt(off)
		s.dfs(succ, depth+1)
		off += len(succ)
		s.noteSize(succ)
	}
}

func (s *searcher) noteSize(st state.State) {
	if len(st) > s.stats.MaxStateSize {
		s.stats.MaxStateSize = len(st)
	}
}

// expand reports all successors of st.
func (s *searcher) expand(st state.State) {
	if err := s.ctx.Err(); err != nil {
		s.err = err
		return
	}
	s.stats.States++
	statesCounter.Inc(1)
	statesMeter.Mark(1)
	if s.stats.States%s.cfg.ProgressEvery == 0 {
		s.progress(false)
	}

	s.pred = st
	if s.cfg.Hex != nil {
		fmt.Fprintf(s.cfg.Hex, "%X ->", []byte(st))
	}
	_, err := s.sched.Successors(st, 0)
	if s.cfg.Hex != nil {
		fmt.Fprintln(s.cfg.Hex)
	}
	if err != nil && s.err == nil {
		s.err = err
	}
	arenaGauge.Update(int64(s.arena.Used()))
}

func (s *searcher) progress(done bool) {
	if s.cfg.Progress == nil {
		return
	}
	s.cfg.Progress.Send(Progress{
		States:      s.stats.States,
		Transitions: s.stats.Transitions,
		Depth:       s.stats.DepthReached,
		BufferUsed:  uint64(s.arena.Used()),
		Elapsed:     mclock.Since(s.start),
		Done:        done,
	})
}

func (s *searcher) onSuccessor(t *vm.Transition) vm.Verdict {
	s.stats.Transitions++
	transitionsCounter.Inc(1)
	if t.State.ExclPid() != 0 {
		s.stats.AtomicSteps++
		atomicCounter.Inc(1)
	}

	if s.cfg.Edges != nil {
		if err := s.cfg.Edges.Edge(s.pred, t.State, t); err != nil {
			s.err = err
			return vm.Stop
		}
	}
	if s.cfg.Hex != nil {
		fmt.Fprintf(s.cfg.Hex, " %X", []byte(t.State))
	}

	res, slot, _ := s.table.Lookup(t.State)
	switch res {
	case hashtab.UnresolvableCollision:
		s.err = ErrUnresolvableCollision
		return vm.Stop
	case hashtab.AlreadyPresent:
		return vm.Continue
	}
	off := s.arena.Mark()
	if _, err := s.arena.Copy(t.State); err != nil {
		s.err = ErrOutOfStateMemory
		return vm.Stop
	}
	s.table.Store(slot, hashtab.Ref(off))
	log.Debugf("new state at offset %d (%d bytes, %s)", off, len(t.State), t.Flags)
	return vm.Continue
}

func (s *searcher) onError(e *vm.RuntimeError) vm.Verdict {
	log.Warnf("runtime error: %v", e)
	return vm.Stop
}
