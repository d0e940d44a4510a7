package vm

import (
	"encoding/binary"
	"testing"

	"github.com/Aurorachain/go-nipsvm/bytecode"
	"github.com/Aurorachain/go-nipsvm/core/state"
	"github.com/davecgh/go-spew/spew"
	"github.com/stretchr/testify/require"
)

// asm is a tiny assembler on top of bytecode.Builder.
type asm struct {
	*bytecode.Builder
}

func newAsm() *asm {
	return &asm{bytecode.NewBuilder("test")}
}

func (a *asm) label(name string) *asm {
	a.Label(name)
	return a
}

func (a *asm) op(op OpCode, operands ...byte) *asm {
	a.Emit(byte(op))
	a.Emit(operands...)
	return a
}

func (a *asm) ldc(v int32) *asm {
	a.Emit(byte(LDC))
	a.Emit32(uint32(v))
	return a
}

// jmp emits an instruction whose last operand is a relative address.
func (a *asm) jmp(op OpCode, label string, operands ...byte) *asm {
	a.Emit(byte(op))
	a.Emit(operands...)
	a.Rel(label)
	return a
}

func (a *asm) step(op OpCode, label uint8) *asm {
	return a.op(op, label)
}

func (a *asm) run(lvarSz, paramCnt uint8, label string) *asm {
	return a.jmp(RUN, label, lvarSz, paramCnt)
}

func (a *asm) prints(s string) *asm {
	idx := a.AddString(s)
	a.Emit(byte(PRINTS))
	a.Emit16(idx)
	return a
}

func (a *asm) module(t *testing.T) *bytecode.Module {
	m, err := a.Build()
	require.NoError(t, err)
	return m
}

// succ is a copy of a reported transition.
type succ struct {
	state    state.State
	label1st uint8
	label    uint8
	flagReg  uint32
	flags    Flags
	output   string
}

type runner struct {
	t      *testing.T
	m      *bytecode.Module
	cfg    Config
	errors []*RuntimeError
}

func newRunner(t *testing.T, m *bytecode.Module) *runner {
	return &runner{t: t, m: m}
}

// successors runs the scheduler on s and returns copies of the reported
// transitions in order.
func (r *runner) successors(s state.State) ([]succ, int, error) {
	var list []succ
	cfg := r.cfg
	cfg.OnSuccessor = func(tr *Transition) Verdict {
		out := tr.Sys1st.Render(r.m) + tr.Sys.Render(r.m) + tr.Monitor.Render(r.m)
		list = append(list, succ{
			state:    append(state.State(nil), tr.State...),
			label1st: tr.Label1st,
			label:    tr.Label,
			flagReg:  tr.FlagReg,
			flags:    tr.Flags,
			output:   out,
		})
		if r.cfg.OnSuccessor != nil {
			return r.cfg.OnSuccessor(tr)
		}
		return Continue
	}
	onError := r.cfg.OnError
	cfg.OnError = func(e *RuntimeError) Verdict {
		r.errors = append(r.errors, e)
		if onError == nil {
			return Stop
		}
		return onError(e)
	}
	n, err := NewScheduler(r.m, cfg).Successors(s, 0)
	return list, n, err
}

// mustSuccessors requires generation to succeed.
func (r *runner) mustSuccessors(s state.State) []succ {
	list, n, err := r.successors(s)
	require.NoError(r.t, err)
	require.Equal(r.t, len(list), n, spew.Sdump(list))
	for _, sc := range list {
		_, err := state.Validate(sc.state)
		require.NoError(r.t, err, spew.Sdump(sc.state))
	}
	return list
}

func initialState(t *testing.T) state.State {
	s, err := state.NewArena(64).Initial()
	require.NoError(t, err)
	return s
}

// eval runs body in the initial process and returns the value it left on
// the stack. The value is stored in the globals by the program itself.
func eval(t *testing.T, body func(a *asm)) int32 {
	a := newAsm()
	a.op(GLOBSZ, 4)
	body(a)
	a.ldc(0).op(STVG4).step(STEPN, 0)
	list := newRunner(t, a.module(t)).mustSuccessors(initialState(t))
	require.Len(t, list, 1)
	return int32(binary.BigEndian.Uint32(list[0].state.Globals()))
}
