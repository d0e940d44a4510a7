package vm

import (
	"sort"
	"testing"

	"github.com/Aurorachain/go-nipsvm/bytecode"
	"github.com/Aurorachain/go-nipsvm/core/state"
	"github.com/davecgh/go-spew/spew"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func labels(list []succ) []int {
	var l []int
	for _, s := range list {
		l = append(l, int(s.label))
	}
	sort.Ints(l)
	return l
}

func TestSingleStep(t *testing.T) {
	a := newAsm()
	a.step(STEPN, 5).op(NEX)
	list := newRunner(t, a.module(t)).mustSuccessors(initialState(t))
	require.Len(t, list, 1)
	assert.Equal(t, uint8(5), list[0].label)
	assert.Equal(t, Flags(0), list[0].flags)

	p, ok := list[0].state.Process(1)
	require.True(t, ok)
	assert.Equal(t, uint32(2), p.PC())
	assert.False(t, p.Active())
}

func TestBlockedSystem(t *testing.T) {
	a := newAsm()
	a.op(NEX)
	s0 := initialState(t)
	list := newRunner(t, a.module(t)).mustSuccessors(s0)
	require.Len(t, list, 1)
	assert.Equal(t, FlagSysBlock, list[0].flags)
	assert.Equal(t, s0, list[0].state)
}

func TestTimeoutRetry(t *testing.T) {
	a := newAsm()
	a.op(LDSTIMEOUT).op(NEXZ).step(STEPN, 1)
	list := newRunner(t, a.module(t)).mustSuccessors(initialState(t))
	require.Len(t, list, 1)
	assert.Equal(t, FlagTimeout, list[0].flags)
	assert.Equal(t, uint8(1), list[0].label)
}

func TestNondeterminism(t *testing.T) {
	tests := []struct {
		name string
		op   OpCode
		next func(a *asm)
		want []int
	}{
		{"ndet", NDET, func(a *asm) { a.step(STEPN, 1) }, []int{1, 2}},
		{"else skipped", ELSE, func(a *asm) { a.step(STEPN, 1) }, []int{1}},
		{"else taken", ELSE, func(a *asm) { a.op(NEX) }, []int{2}},
		{"unless", UNLESS, func(a *asm) { a.step(STEPN, 1) }, []int{2}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := newAsm()
			a.jmp(tt.op, "alt")
			tt.next(a)
			a.op(NEX)
			a.label("alt").step(STEPN, 2).op(NEX)
			list := newRunner(t, a.module(t)).mustSuccessors(initialState(t))
			assert.Equal(t, tt.want, labels(list))
		})
	}

	// the copy of UNLESS runs if the jump target cannot step
	a := newAsm()
	a.jmp(UNLESS, "alt").step(STEPN, 1).op(NEX)
	a.label("alt").op(NEX)
	list := newRunner(t, a.module(t)).mustSuccessors(initialState(t))
	assert.Equal(t, []int{1}, labels(list))
}

func TestStopOnSuccessor(t *testing.T) {
	a := newAsm()
	a.jmp(NDET, "alt").step(STEPN, 1).op(NEX)
	a.label("alt").step(STEPN, 2).op(NEX)
	r := newRunner(t, a.module(t))
	r.cfg.OnSuccessor = func(*Transition) Verdict { return Stop }
	list, n, err := r.successors(initialState(t))
	assert.Equal(t, ErrStopped, err)
	assert.Equal(t, 1, n)
	assert.Len(t, list, 1)
}

func TestSuccessorLimit(t *testing.T) {
	a := newAsm()
	a.jmp(NDET, "alt").jmp(NDET, "alt").step(STEPN, 1).op(NEX)
	a.label("alt").step(STEPN, 2).op(NEX)
	r := newRunner(t, a.module(t))
	r.cfg.SuccMax = 2
	_, _, err := r.successors(initialState(t))
	rerr, ok := err.(*RuntimeError)
	require.True(t, ok, "have %v", err)
	assert.Equal(t, KindSuccCount, rerr.Kind)

	r = newRunner(t, a.module(t))
	r.cfg.PathMax = 1
	_, _, err = r.successors(initialState(t))
	rerr, ok = err.(*RuntimeError)
	require.True(t, ok, "have %v", err)
	assert.Equal(t, KindPathCount, rerr.Kind)
}

func TestInvisibleChaining(t *testing.T) {
	t.Run("chained", func(t *testing.T) {
		a := newAsm()
		a.step(STEPI, 1).step(STEPN, 2).op(NEX)
		list := newRunner(t, a.module(t)).mustSuccessors(initialState(t))
		require.Len(t, list, 1)
		assert.Equal(t, uint8(2), list[0].label)
		assert.Equal(t, uint8(0), list[0].state.ExclPid())
	})
	t.Run("stuck invisible state is reported", func(t *testing.T) {
		a := newAsm()
		a.step(STEPI, 1).op(NEX)
		list := newRunner(t, a.module(t)).mustSuccessors(initialState(t))
		require.Len(t, list, 1)
		assert.Equal(t, uint8(1), list[0].label)
		assert.Equal(t, uint8(1), list[0].state.ExclPid())
	})
	t.Run("output stops chaining", func(t *testing.T) {
		a := newAsm()
		a.prints("x").step(STEPI, 1).step(STEPN, 2).op(NEX)
		list := newRunner(t, a.module(t)).mustSuccessors(initialState(t))
		require.Len(t, list, 1)
		assert.Equal(t, uint8(1), list[0].label)
		assert.Equal(t, "x", list[0].output)
	})
	t.Run("becoming the monitor stops chaining", func(t *testing.T) {
		a := newAsm()
		a.op(LDSPID).op(MONITOR).step(STEPI, 1).step(STEPN, 2).op(NEX)
		list := newRunner(t, a.module(t)).mustSuccessors(initialState(t))
		require.Len(t, list, 1, spew.Sdump(list))
		assert.Equal(t, uint8(1), list[0].label)
		assert.Equal(t, FlagMonitorExist|FlagMonitorExec, list[0].flags)
	})
	t.Run("invisible branches", func(t *testing.T) {
		a := newAsm()
		a.step(STEPI, 1).jmp(NDET, "alt").step(STEPN, 2).op(NEX)
		a.label("alt").step(STEPN, 3).op(NEX)
		list := newRunner(t, a.module(t)).mustSuccessors(initialState(t))
		assert.Equal(t, []int{2, 3}, labels(list))
	})
}

// twoProcs starts a second process at label other and completes a first
// step of the initial process.
func twoProcs(a *asm, stepOp OpCode) {
	a.run(0, 0, "other").op(POPX).step(stepOp, 1)
}

func TestExclusiveProcess(t *testing.T) {
	a := newAsm()
	twoProcs(a, STEPA)
	a.step(STEPN, 2).op(NEX)
	a.label("other").step(STEPN, 9).op(NEX)
	r := newRunner(t, a.module(t))

	list := r.mustSuccessors(initialState(t))
	require.Len(t, list, 1)
	s1 := list[0].state
	assert.Equal(t, uint8(1), s1.ExclPid())

	list = r.mustSuccessors(s1)
	assert.Equal(t, []int{2}, labels(list))

	// both processes interleave once the atomic sequence ended
	list = r.mustSuccessors(list[0].state)
	assert.Equal(t, []int{9}, labels(list))
}

func TestInterleaving(t *testing.T) {
	a := newAsm()
	twoProcs(a, STEPN)
	a.step(STEPN, 2).op(NEX)
	a.label("other").step(STEPN, 9).op(NEX)
	r := newRunner(t, a.module(t))
	list := r.mustSuccessors(initialState(t))
	require.Len(t, list, 1)
	list = r.mustSuccessors(list[0].state)
	assert.Equal(t, []int{2, 9}, labels(list))
}

// rendezvous builds a model in which process 1 sends 42 over an unbuffered
// channel to process 2, which stores it in global byte 2.
func rendezvous(t *testing.T) *bytecode.Module {
	a := newAsm()
	chid := func() { a.ldc(0).op(LDVG2U) }

	a.op(GLOBSZ, 3)
	a.ldc(8).op(CHNEW, 0, 1).ldc(0).op(STVG2U)
	a.run(0, 0, "recv").op(POPX)
	a.step(STEPN, 1)

	chid()
	chid()
	a.op(CHADD).ldc(42).op(CHSETO, 0)
	a.step(STEPN, 2)
	a.op(NEX)

	a.label("recv")
	chid()
	a.op(CHLEN).op(NEXZ)
	chid()
	a.op(CHGETO, 0).ldc(2).op(STVG1U)
	chid()
	a.op(CHDEL)
	a.step(STEPN, 3)
	a.op(NEX)
	return a.module(t)
}

func TestRendezvous(t *testing.T) {
	r := newRunner(t, rendezvous(t))
	list := r.mustSuccessors(initialState(t))
	require.Len(t, list, 1)

	list = r.mustSuccessors(list[0].state)
	require.Len(t, list, 1, spew.Sdump(list))
	sc := list[0]
	assert.Equal(t, FlagSync, sc.flags)
	assert.Equal(t, uint8(2), sc.label1st)
	assert.Equal(t, uint8(3), sc.label)
	assert.Equal(t, byte(42), sc.state.Globals()[2])
	assert.False(t, sc.state.SyncComm())
	chans := sc.state.Channels()
	require.Len(t, chans, 1)
	assert.Equal(t, 0, chans[0].CurLen())
}

func TestRendezvousWithoutReceiver(t *testing.T) {
	a := newAsm()
	a.ldc(8).op(CHNEW, 0, 1).op(CHADD).step(STEPN, 1).op(NEX)
	list := newRunner(t, a.module(t)).mustSuccessors(initialState(t))
	require.Len(t, list, 1)
	assert.Equal(t, FlagSysBlock, list[0].flags)
}

// monitored starts a monitor at label mon and then loops with label 2.
func monitored(a *asm) {
	a.run(0, 0, "mon").op(MONITOR).step(STEPN, 1)
	a.label("sys").step(STEPN, 2).jmp(JMP, "sys")
}

func TestMonitor(t *testing.T) {
	a := newAsm()
	a.Monitor()
	monitored(a)
	a.label("mon").step(STEPN, 7)
	a.Flag(bytecode.FlagAccept)
	a.step(STEPT, 8)
	m := a.module(t)
	r := newRunner(t, m)

	list := r.mustSuccessors(initialState(t))
	require.Len(t, list, 1)
	s1 := list[0]
	assert.Equal(t, FlagMonitorExist|FlagMonitorExec|FlagMonitorAccept, s1.flags)
	assert.Equal(t, uint8(1), s1.label)
	assert.True(t, s1.state.MonitorAccepting())

	list = r.mustSuccessors(s1.state)
	require.Len(t, list, 1)
	s2 := list[0]
	assert.Equal(t, FlagMonitorExist|FlagMonitorExec|FlagMonitorTerm, s2.flags)
	assert.True(t, s2.state.MonitorTerminated())

	// a terminated monitor stays terminated
	list = r.mustSuccessors(s2.state)
	require.Len(t, list, 1)
	assert.Equal(t, FlagMonitorExist|FlagMonitorTerm, list[0].flags)
	assert.Equal(t, s2.state, list[0].state)
}

func TestBlockedMonitor(t *testing.T) {
	a := newAsm()
	a.Monitor()
	monitored(a)
	a.label("mon").op(NEX)
	m := a.module(t)

	list := newRunner(t, m).mustSuccessors(initialState(t))
	require.Len(t, list, 1)
	assert.Equal(t, FlagMonitorExist|FlagMonitorBlock, list[0].flags)

	r := newRunner(t, m)
	r.cfg.DropMonitorBlocked = true
	list, n, err := r.successors(initialState(t))
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	assert.Empty(t, list)
}

func TestMonitorKilled(t *testing.T) {
	tests := []struct {
		name string
		keep bool
	}{
		{"removed", false},
		{"kept", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := newAsm()
			a.Monitor()
			a.run(0, 0, "mon").op(MONITOR).step(STEPN, 1)
			a.ldc(2).op(KILL).step(STEPN, 2).op(NEX)
			a.label("mon").step(STEPN, 7).jmp(JMP, "mon")
			r := newRunner(t, a.module(t))
			r.cfg.KeepTerminated = tt.keep

			list := r.mustSuccessors(initialState(t))
			require.Len(t, list, 1)
			assert.Equal(t, FlagMonitorExist|FlagMonitorExec, list[0].flags)
			s1 := list[0].state

			// the step killing the monitor is reported without monitor flags
			list = r.mustSuccessors(s1)
			require.Len(t, list, 1, spew.Sdump(list))
			assert.Equal(t, uint8(2), list[0].label)
			assert.Equal(t, Flags(0), list[0].flags)
			s2 := list[0].state
			assert.True(t, s2.MonitorTerminated())
			_, ok := s2.Process(2)
			assert.Equal(t, tt.keep, ok)

			list = r.mustSuccessors(s2)
			require.Len(t, list, 1)
			assert.Equal(t, FlagMonitorExist|FlagMonitorTerm, list[0].flags)
			assert.Equal(t, s2, list[0].state)
		})
	}
}

func TestMonitorKillsItself(t *testing.T) {
	a := newAsm()
	a.Monitor()
	monitored(a)
	a.label("mon").op(LDSPID).op(KILL)
	r := newRunner(t, a.module(t))

	list := r.mustSuccessors(initialState(t))
	require.Len(t, list, 1)
	assert.Equal(t, FlagMonitorExist|FlagMonitorExec|FlagMonitorTerm, list[0].flags)
	assert.True(t, list[0].state.MonitorTerminated())

	list = r.mustSuccessors(list[0].state)
	require.Len(t, list, 1)
	assert.Equal(t, FlagMonitorExist|FlagMonitorTerm, list[0].flags)
}

func TestMonitorSCC(t *testing.T) {
	a := newAsm()
	a.Monitor()
	monitored(a)
	a.label("mon").SCC(0, bytecode.SCCNonAccepting)
	a.step(STEPN, 7)
	a.SCC(1, bytecode.SCCFullyAccepting)
	a.op(NEX)
	m := a.module(t)

	_, ok := MonitorSCC(m, initialState(t))
	assert.False(t, ok)

	list := newRunner(t, m).mustSuccessors(initialState(t))
	require.Len(t, list, 1)
	id, ok := MonitorSCC(m, list[0].state)
	require.True(t, ok)
	assert.Equal(t, uint32(1), id)
}

func TestKeepTerminated(t *testing.T) {
	a := newAsm()
	a.step(STEPT, 1)
	m := a.module(t)

	list := newRunner(t, m).mustSuccessors(initialState(t))
	require.Len(t, list, 1)
	assert.Equal(t, 0, list[0].state.ProcCnt())

	r := newRunner(t, m)
	r.cfg.KeepTerminated = true
	list = r.mustSuccessors(initialState(t))
	require.Len(t, list, 1)
	p, ok := list[0].state.Process(1)
	require.True(t, ok)
	assert.True(t, p.Terminated())

	// nothing is enabled any more
	list = r.mustSuccessors(list[0].state)
	require.Len(t, list, 1)
	assert.Equal(t, FlagSysBlock, list[0].flags)
}

func TestStateMemoryExhausted(t *testing.T) {
	a := newAsm()
	a.step(STEPN, 1)
	r := newRunner(t, a.module(t))
	r.cfg.StateMem = state.InitialSize
	_, _, err := r.successors(initialState(t))
	rerr, ok := err.(*RuntimeError)
	require.True(t, ok, "have %v", err)
	assert.Equal(t, KindStateMem, rerr.Kind)
	assert.Equal(t, uint8(1), rerr.Pid)
}

func TestFlagsString(t *testing.T) {
	assert.Equal(t, "none", Flags(0).String())
	assert.Equal(t, "sync|monitor_exist", (FlagSync | FlagMonitorExist).String())
}
