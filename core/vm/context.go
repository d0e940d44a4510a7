package vm

import (
	"encoding/binary"
	"math"

	"github.com/Aurorachain/go-nipsvm/core/state"
)

type mode int

const (
	modeInvalid mode = iota
	modeActive
	modeCompleted
	modeStop
)

// unlimited is the step limit of paths that run in any case.
const unlimited = math.MaxUint32

// path is an execution path waiting on the path stack.
type path struct {
	glob       state.State
	output     *Output
	maxStepCnt uint32
}

// Context executes the instructions of one process step. It owns the scratch
// arena its intermediate states are allocated from.
type Context struct {
	sched *Scheduler
	code  []byte

	mode      mode
	invisible bool
	label     uint8
	flagReg   uint32

	glob   state.State
	proc   state.Process
	output *Output

	paths   []path
	pathMax int
	arena   *state.Arena

	stepCnt     uint32
	initFlagReg uint32
	timeout     bool
	lastPid     uint8

	err error
}

func newContext(s *Scheduler, arena *state.Arena, flagReg uint32, timeout bool, lastPid uint8) *Context {
	return &Context{
		sched:       s,
		code:        s.handle.Code(),
		pathMax:     s.cfg.PathMax,
		arena:       arena,
		initFlagReg: flagReg,
		timeout:     timeout,
		lastPid:     lastPid,
	}
}

// fail reports a runtime error of the current process and abandons the
// current path. The path stays abandoned even if the handler asks to go on.
func (c *Context) fail(kind ErrorKind) error {
	if c.mode == modeStop {
		return c.err
	}
	e := &RuntimeError{Kind: kind}
	if c.proc != nil {
		e.Pid, e.PC = c.proc.Pid(), c.proc.PC()
	}
	return c.raise(e)
}

func (c *Context) raise(e *RuntimeError) error {
	e.Verdict = c.sched.onError(e)
	c.err = e
	c.mode = modeInvalid
	if e.Verdict == Stop {
		c.mode = modeStop
	}
	return e
}

// stop aborts the context with an error that already carries a stop.
func (c *Context) stop(err error) error {
	c.mode = modeStop
	c.err = err
	return err
}

// setState makes s the current state and looks up the active process again.
func (c *Context) setState(s state.State) error {
	c.glob = s
	return c.refresh()
}

func (c *Context) refresh() error {
	p, ok := c.glob.ActiveProcess()
	if !ok {
		c.proc = nil
		return c.fail(KindNoActiveProc)
	}
	c.proc = p
	return nil
}

// finish ends the step of the current process. The state shrinks in place.
func (c *Context) finish(label uint8, invisible bool) {
	c.mode = modeCompleted
	c.invisible = invisible
	c.label = label
	c.flagReg = c.proc.FlagReg()
	c.glob = c.glob.Deactivate()
	c.proc = nil
	c.stepCnt++
}

func (c *Context) pushPath(p path) error {
	if len(c.paths) >= c.pathMax {
		return c.fail(KindPathCount)
	}
	c.paths = append(c.paths, p)
	return nil
}

func (c *Context) push(v int32) error {
	n := c.proc.StackCur()
	if n >= c.proc.StackMax() {
		return c.fail(KindStackOverflow)
	}
	c.proc.SetStackSlot(n, v)
	c.proc.SetStackCur(n + 1)
	return nil
}

func (c *Context) pushBool(b bool) error {
	if b {
		return c.push(1)
	}
	return c.push(0)
}

func (c *Context) pop() (int32, error) {
	n := c.proc.StackCur()
	if n == 0 {
		return 0, c.fail(KindStackUnderflow)
	}
	n--
	v := c.proc.StackSlot(n)
	c.proc.SetStackSlot(n, 0)
	c.proc.SetStackCur(n)
	return v, nil
}

func (c *Context) top() (int32, error) {
	n := c.proc.StackCur()
	if n == 0 {
		return 0, c.fail(KindStackUnderflow)
	}
	return c.proc.StackSlot(n - 1), nil
}

// pop2 pops b, then a.
func (c *Context) pop2() (a, b int32, err error) {
	if b, err = c.pop(); err != nil {
		return
	}
	a, err = c.pop()
	return
}

// fetch reads n operand bytes and advances the program counter.
func (c *Context) fetch(n int) ([]byte, error) {
	pc := c.proc.PC()
	if uint64(pc)+uint64(n) > uint64(len(c.code)) {
		return nil, c.fail(KindBytecode)
	}
	c.proc.SetPC(pc + uint32(n))
	return c.code[pc : pc+uint32(n)], nil
}

func (c *Context) operand8() (uint8, error) {
	b, err := c.fetch(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (c *Context) operand16() (uint16, error) {
	b, err := c.fetch(2)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint16(b), nil
}

func (c *Context) operand32() (uint32, error) {
	b, err := c.fetch(4)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(b), nil
}

// jump moves the program counter by rel bytes.
func (c *Context) jump(rel int16) {
	c.proc.SetPC(uint32(int64(c.proc.PC()) + int64(rel)))
}

type area int

const (
	localArea area = iota
	globalArea
)

// memory returns n bytes of variable memory at addr.
func (c *Context) memory(a area, addr int32, n int) ([]byte, error) {
	mem, kind := c.proc.Locals(), KindLocal
	if a == globalArea {
		mem, kind = c.glob.Globals(), KindGlobal
	}
	if addr < 0 || int(addr)+n > len(mem) {
		return nil, c.fail(kind)
	}
	return mem[addr : int(addr)+n], nil
}

// access describes the width, signedness and byte order of a variable.
type access struct {
	size   int
	signed bool
	order  binary.ByteOrder
}

var (
	u8  = access{1, false, binary.BigEndian}
	s8  = access{1, true, binary.BigEndian}
	u16 = access{2, false, binary.BigEndian}
	s16 = access{2, true, binary.BigEndian}
	w32 = access{4, true, binary.BigEndian}

	u16le = access{2, false, binary.LittleEndian}
	s16le = access{2, true, binary.LittleEndian}
	w32le = access{4, true, binary.LittleEndian}
)

func (a access) load(b []byte) int32 {
	switch a.size {
	case 1:
		if a.signed {
			return int32(int8(b[0]))
		}
		return int32(b[0])
	case 2:
		v := a.order.Uint16(b)
		if a.signed {
			return int32(int16(v))
		}
		return int32(v)
	}
	return int32(a.order.Uint32(b))
}

func (a access) store(b []byte, v int32) {
	switch a.size {
	case 1:
		b[0] = byte(v)
	case 2:
		a.order.PutUint16(b, uint16(v))
	default:
		a.order.PutUint32(b, uint32(v))
	}
}

// fieldAccess returns the access of a message field or parameter declared
// with the signed bit count t.
func fieldAccess(t int8) access {
	return access{size: state.FieldWidth(t), signed: t < 0, order: binary.BigEndian}
}
