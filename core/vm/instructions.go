package vm

import (
	"bytes"
	"math"

	"github.com/Aurorachain/go-nipsvm/bytecode"
	"github.com/Aurorachain/go-nipsvm/core/state"
	"github.com/Aurorachain/go-nipsvm/params"
)

type executionFunc func(c *Context) error

func opNop(c *Context) error { return nil }

func opLdc(c *Context) error {
	v, err := c.operand32()
	if err != nil {
		return err
	}
	return c.push(int32(v))
}

func makeLoad(a area, acc access) executionFunc {
	return func(c *Context) error {
		addr, err := c.pop()
		if err != nil {
			return err
		}
		b, err := c.memory(a, addr, acc.size)
		if err != nil {
			return err
		}
		return c.push(acc.load(b))
	}
}

func makeStore(a area, acc access) executionFunc {
	return func(c *Context) error {
		addr, err := c.pop()
		if err != nil {
			return err
		}
		v, err := c.pop()
		if err != nil {
			return err
		}
		b, err := c.memory(a, addr, acc.size)
		if err != nil {
			return err
		}
		acc.store(b, v)
		return nil
	}
}

// makeLoadAddr and makeStoreAddr take the address from a byte operand.
func makeLoadAddr(a area, acc access) executionFunc {
	return func(c *Context) error {
		addr, err := c.operand8()
		if err != nil {
			return err
		}
		b, err := c.memory(a, int32(addr), acc.size)
		if err != nil {
			return err
		}
		return c.push(acc.load(b))
	}
}

func makeStoreAddr(a area, acc access) executionFunc {
	return func(c *Context) error {
		addr, err := c.operand8()
		if err != nil {
			return err
		}
		v, err := c.pop()
		if err != nil {
			return err
		}
		b, err := c.memory(a, int32(addr), acc.size)
		if err != nil {
			return err
		}
		acc.store(b, v)
		return nil
	}
}

func truncMask(bits int) int32 {
	if bits >= 32 {
		return -1
	}
	return int32(1)<<uint(bits) - 1
}

func opTrunc(c *Context) error {
	b, err := c.operand8()
	if err != nil {
		return err
	}
	v, err := c.pop()
	if err != nil {
		return err
	}
	switch bits := int(int8(b)); {
	case bits >= 0:
		v &= truncMask(bits)
	case v >= 0:
		v &= truncMask(-bits)
	default:
		v = -(-v & truncMask(-bits))
	}
	return c.push(v)
}

func opLdsTimeout(c *Context) error { return c.pushBool(c.timeout) }
func opLdsPid(c *Context) error     { return c.push(int32(c.proc.Pid())) }
func opLdsNrpr(c *Context) error    { return c.push(int32(c.glob.CountEnabled())) }
func opLdsLast(c *Context) error    { return c.push(int32(c.lastPid)) }

// opLdsNp pushes 1 unless some process sits at a progress location.
func opLdsNp(c *Context) error {
	h := c.sched.handle
	for _, p := range c.glob.Processes() {
		if h.FlagsAt(p.PC())&bytecode.FlagProgress != 0 {
			return c.push(0)
		}
	}
	return c.push(1)
}

func makeBinary(f func(a, b int32) int32) executionFunc {
	return func(c *Context) error {
		a, b, err := c.pop2()
		if err != nil {
			return err
		}
		return c.push(f(a, b))
	}
}

func makeCompare(f func(a, b int32) bool) executionFunc {
	return func(c *Context) error {
		a, b, err := c.pop2()
		if err != nil {
			return err
		}
		return c.pushBool(f(a, b))
	}
}

func makeUnary(f func(a int32) int32) executionFunc {
	return func(c *Context) error {
		a, err := c.pop()
		if err != nil {
			return err
		}
		return c.push(f(a))
	}
}

func opDiv(c *Context) error {
	a, b, err := c.pop2()
	if err != nil {
		return err
	}
	if b == 0 {
		return c.fail(KindDivZero)
	}
	return c.push(a / b)
}

func opMod(c *Context) error {
	a, b, err := c.pop2()
	if err != nil {
		return err
	}
	if b == 0 {
		return c.fail(KindDivZero)
	}
	return c.push(a % b)
}

func opIchk(c *Context) error {
	n, err := c.operand8()
	if err != nil {
		return err
	}
	i, err := c.top()
	if err != nil {
		return err
	}
	if i < 0 || i >= int32(n) {
		return c.fail(KindIndex)
	}
	return nil
}

func opBchk(c *Context) error {
	v, err := c.pop()
	if err != nil {
		return err
	}
	if v == 0 {
		return c.fail(KindAssert)
	}
	return nil
}

func opJmp(c *Context) error {
	rel, err := c.operand16()
	if err != nil {
		return err
	}
	c.jump(int16(rel))
	return nil
}

func makeCondJump(onZero bool) executionFunc {
	return func(c *Context) error {
		rel, err := c.operand16()
		if err != nil {
			return err
		}
		v, err := c.pop()
		if err != nil {
			return err
		}
		if (v == 0) == onZero {
			c.jump(int16(rel))
		}
		return nil
	}
}

func opLjmp(c *Context) error {
	addr, err := c.operand32()
	if err != nil {
		return err
	}
	c.proc.SetPC(addr)
	return nil
}

func register(c *Context) (int, error) {
	r, err := c.operand8()
	return int(r & 7), err
}

func opTop(c *Context) error {
	r, err := register(c)
	if err != nil {
		return err
	}
	v, err := c.top()
	if err != nil {
		return err
	}
	c.proc.SetRegister(r, v)
	return nil
}

func opPop(c *Context) error {
	r, err := register(c)
	if err != nil {
		return err
	}
	v, err := c.pop()
	if err != nil {
		return err
	}
	c.proc.SetRegister(r, v)
	return nil
}

func opPush(c *Context) error {
	r, err := register(c)
	if err != nil {
		return err
	}
	return c.push(c.proc.Register(r))
}

func opPopx(c *Context) error {
	_, err := c.pop()
	return err
}

func makeRegAdd(d int32) executionFunc {
	return func(c *Context) error {
		r, err := register(c)
		if err != nil {
			return err
		}
		c.proc.SetRegister(r, c.proc.Register(r)+d)
		return nil
	}
}

func opLoop(c *Context) error {
	r, err := register(c)
	if err != nil {
		return err
	}
	rel, err := c.operand16()
	if err != nil {
		return err
	}
	v := c.proc.Register(r) - 1
	c.proc.SetRegister(r, v)
	if v > 0 {
		c.jump(int16(rel))
	}
	return nil
}

func opCall(c *Context) error {
	rel, err := c.operand16()
	if err != nil {
		return err
	}
	if err := c.push(int32(c.proc.PC())); err != nil {
		return err
	}
	c.jump(int16(rel))
	return nil
}

func opRet(c *Context) error {
	v, err := c.pop()
	if err != nil {
		return err
	}
	c.proc.SetPC(uint32(v))
	return nil
}

func opLcall(c *Context) error {
	addr, err := c.operand32()
	if err != nil {
		return err
	}
	if err := c.push(int32(c.proc.PC())); err != nil {
		return err
	}
	c.proc.SetPC(addr)
	return nil
}

// bitsAccess returns the access for a value declared with bits bits,
// negative for signed values.
func bitsAccess(bits int32) access {
	switch {
	case bits >= -7 && bits <= 8:
		return access{1, bits < 0, u8.order}
	case bits >= -15 && bits <= 16:
		return access{2, bits < 0, u8.order}
	}
	return access{4, bits < 0, u8.order}
}

func opChnew(c *Context) error {
	maxLen, err := c.operand8()
	if err != nil {
		return err
	}
	typeLen, err := c.operand8()
	if err != nil {
		return err
	}
	if c.glob.ChanCnt() >= int(params.ChanCntMax) {
		return c.fail(KindChanCount)
	}
	if typeLen == 0 {
		return c.fail(KindInvalidChanType)
	}
	types := make([]int8, typeLen)
	msgLen := 0
	for i := int(typeLen) - 1; i >= 0; i-- {
		v, err := c.pop()
		if err != nil {
			return err
		}
		if v < -31 || v > 32 {
			return c.fail(KindInvalidChanType)
		}
		types[i] = int8(v)
		msgLen += bitsAccess(v).size
	}
	if msgLen > math.MaxUint8 {
		return c.fail(KindInvalidChanType)
	}
	chid := c.glob.NewChannelID(c.proc.Pid())
	if chid == 0 {
		return c.fail(KindChanCount)
	}
	s, err := c.arena.InsertChannel(c.glob, chid, maxLen, typeLen, uint8(msgLen))
	if err != nil {
		return c.fail(KindStateMem)
	}
	if err := c.setState(s); err != nil {
		return err
	}
	ch, _ := c.glob.Channel(chid)
	for i, t := range types {
		ch.SetType(i, t)
	}
	return c.push(int32(chid))
}

// channel pops a channel id and looks the channel up.
func (c *Context) channel() (state.Channel, error) {
	v, err := c.pop()
	if err != nil {
		return nil, err
	}
	if v <= 0 || v > math.MaxUint16 {
		return nil, c.fail(KindInvalidChanID)
	}
	ch, ok := c.glob.Channel(uint16(v))
	if !ok {
		return nil, c.fail(KindNoChan)
	}
	return ch, nil
}

// nonEmpty pops a channel id and requires at least one message.
func (c *Context) nonEmpty(kind ErrorKind) (state.Channel, error) {
	ch, err := c.channel()
	if err != nil {
		return nil, err
	}
	if ch.CurLen() < 1 {
		return nil, c.fail(kind)
	}
	return ch, nil
}

func opChmax(c *Context) error {
	ch, err := c.channel()
	if err != nil {
		return err
	}
	return c.push(int32(ch.Capacity()))
}

func opChlen(c *Context) error {
	ch, err := c.channel()
	if err != nil {
		return err
	}
	return c.push(int32(ch.CurLen()))
}

func opChfree(c *Context) error {
	ch, err := c.channel()
	if err != nil {
		return err
	}
	return c.push(int32(ch.Capacity() - ch.CurLen()))
}

func opChadd(c *Context) error {
	ch, err := c.channel()
	if err != nil {
		return err
	}
	n := ch.CurLen()
	if n >= ch.Capacity() {
		return c.fail(KindChanOverflow)
	}
	msg := ch.Message(n)
	for i := range msg {
		msg[i] = 0
	}
	ch.SetCurLen(n + 1)
	return nil
}

// field returns the bytes of field ofs within msg and its access.
func field(ch state.Channel, msg []byte, ofs int) ([]byte, access) {
	at := 0
	for i := 0; i < ofs; i++ {
		at += state.FieldWidth(ch.Type(i))
	}
	acc := bitsAccess(int32(ch.Type(ofs)))
	return msg[at : at+acc.size], acc
}

// chanSet writes field ofs of the newest message.
func (c *Context) chanSet(value int32, ofs uint32) error {
	ch, err := c.nonEmpty(KindChanEmpty)
	if err != nil {
		return err
	}
	if ofs >= uint32(ch.TypeLen()) {
		return nil
	}
	b, acc := field(ch, ch.Message(ch.CurLen()-1), int(ofs))
	acc.store(b, value)
	return nil
}

// chanGet pushes field ofs of the oldest message.
func (c *Context) chanGet(ofs uint32) error {
	ch, err := c.nonEmpty(KindChanEmpty)
	if err != nil {
		return err
	}
	if ofs >= uint32(ch.TypeLen()) {
		return c.push(0)
	}
	b, acc := field(ch, ch.Message(0), int(ofs))
	return c.push(acc.load(b))
}

func opChset(c *Context) error {
	v, err := c.pop()
	if err != nil {
		return err
	}
	ofs, err := c.pop()
	if err != nil {
		return err
	}
	return c.chanSet(v, uint32(ofs))
}

func opChget(c *Context) error {
	ofs, err := c.pop()
	if err != nil {
		return err
	}
	return c.chanGet(uint32(ofs))
}

func opChseto(c *Context) error {
	v, err := c.pop()
	if err != nil {
		return err
	}
	ofs, err := c.operand8()
	if err != nil {
		return err
	}
	return c.chanSet(v, uint32(ofs))
}

func opChgeto(c *Context) error {
	ofs, err := c.operand8()
	if err != nil {
		return err
	}
	return c.chanGet(uint32(ofs))
}

func opChdel(c *Context) error {
	ch, err := c.nonEmpty(KindChanUnderflow)
	if err != nil {
		return err
	}
	n, ml := ch.CurLen()-1, ch.MsgLen()
	msgs := ch.Messages()
	copy(msgs, msgs[ml:(n+1)*ml])
	tail := msgs[n*ml : (n+1)*ml]
	for i := range tail {
		tail[i] = 0
	}
	ch.SetCurLen(n)
	return nil
}

// opChsort moves the newest message in front of the first older message
// that compares greater. Fields are big-endian so bytes compare like values.
func opChsort(c *Context) error {
	ch, err := c.nonEmpty(KindChanEmpty)
	if err != nil {
		return err
	}
	n, ml := ch.CurLen(), ch.MsgLen()
	msgs := ch.Messages()
	newest := append([]byte(nil), msgs[(n-1)*ml:n*ml]...)
	i := 0
	for ; i < n-1; i++ {
		if bytes.Compare(msgs[i*ml:(i+1)*ml], newest) > 0 {
			break
		}
	}
	copy(msgs[(i+1)*ml:n*ml], msgs[i*ml:(n-1)*ml])
	copy(msgs[i*ml:], newest)
	return nil
}

func opChrot(c *Context) error {
	ch, err := c.nonEmpty(KindChanEmpty)
	if err != nil {
		return err
	}
	n, ml := ch.CurLen(), ch.MsgLen()
	msgs := ch.Messages()
	first := append([]byte(nil), msgs[:ml]...)
	copy(msgs, msgs[ml:n*ml])
	copy(msgs[(n-1)*ml:], first)
	return nil
}

// makeBranch forks the current path. The copy continues at the jump target,
// or at the next instruction if swap is set. With ifNoStep the copy only
// runs while no other path has completed a step.
func makeBranch(swap, ifNoStep bool) executionFunc {
	return func(c *Context) error {
		rel, err := c.operand16()
		if err != nil {
			return err
		}
		dup, err := c.arena.Copy(c.glob)
		if err != nil {
			return c.fail(KindStateMem)
		}
		if swap {
			c.jump(int16(rel))
		} else {
			p, _ := dup.ActiveProcess()
			p.SetPC(uint32(int64(p.PC()) + int64(int16(rel))))
		}
		max := uint32(unlimited)
		if ifNoStep {
			max = c.stepCnt
		}
		return c.pushPath(path{glob: dup, output: c.output, maxStepCnt: max})
	}
}

func (c *Context) nex() {
	c.mode = modeInvalid
	c.glob = nil
	c.proc = nil
}

func opNex(c *Context) error {
	c.nex()
	return nil
}

func makeNexIf(zero bool) executionFunc {
	return func(c *Context) error {
		v, err := c.pop()
		if err != nil {
			return err
		}
		if (v == 0) == zero {
			c.nex()
		}
		return nil
	}
}

func makeStep(m uint8) executionFunc {
	return func(c *Context) error {
		label, err := c.operand8()
		if err != nil {
			return err
		}
		pid := c.proc.Pid()
		c.proc.SetMode(m)
		switch m {
		case state.ModeAtomic, state.ModeInvisible:
			c.glob.SetExclPid(pid)
		default:
			c.glob.SetExclPid(0)
		}
		c.finish(label, m == state.ModeInvisible)
		if m == state.ModeTerminated && !c.sched.cfg.KeepTerminated {
			c.glob = c.glob.RemoveProcess(pid)
		}
		return nil
	}
}

// spawn starts a new process at addr and passes it paramCnt parameters
// taken from the stack as (bits, value) pairs.
func (c *Context) spawn(lvarSz, paramCnt uint8, addr uint32) error {
	if c.glob.ProcCnt() >= int(params.ProcCntMax) {
		return c.fail(KindProcCount)
	}
	maxPid := c.glob.MaxPid()
	if maxPid >= params.PidMax {
		return c.fail(KindProcCount)
	}
	pid := maxPid + 1
	s, err := c.arena.InsertProcess(c.glob, pid, lvarSz)
	if err != nil {
		return c.fail(KindStateMem)
	}
	if err := c.setState(s); err != nil {
		return err
	}
	np, _ := c.glob.Process(pid)
	np.SetPC(addr)

	n := int(paramCnt)
	vals, bits := make([]int32, n), make([]int32, n)
	for i := n - 1; i >= 0; i-- {
		if vals[i], err = c.pop(); err != nil {
			return err
		}
		if bits[i], err = c.pop(); err != nil {
			return err
		}
	}
	locals, off, i := np.Locals(), 0, 0
	for ; i < n; i++ {
		acc := bitsAccess(bits[i])
		if off+acc.size > len(locals) {
			break
		}
		acc.store(locals[off:], vals[i])
		off += acc.size
	}
	if err := c.push(int32(pid)); err != nil {
		return err
	}
	if i < n {
		return c.fail(KindLocal)
	}
	return nil
}

func opRun(c *Context) error {
	lvarSz, err := c.operand8()
	if err != nil {
		return err
	}
	paramCnt, err := c.operand8()
	if err != nil {
		return err
	}
	rel, err := c.operand16()
	if err != nil {
		return err
	}
	addr := uint32(int64(c.proc.PC()) + int64(int16(rel)))
	return c.spawn(lvarSz, paramCnt, addr)
}

func opLrun(c *Context) error {
	lvarSz, err := c.operand8()
	if err != nil {
		return err
	}
	paramCnt, err := c.operand8()
	if err != nil {
		return err
	}
	addr, err := c.operand32()
	if err != nil {
		return err
	}
	return c.spawn(lvarSz, paramCnt, addr)
}

func (c *Context) resizeGlobals(sz uint16) error {
	s, err := c.arena.ResizeGlobals(c.glob, sz)
	if err != nil {
		return c.fail(KindStateMem)
	}
	return c.setState(s)
}

func opGlobsz(c *Context) error {
	sz, err := c.operand8()
	if err != nil {
		return err
	}
	return c.resizeGlobals(uint16(sz))
}

func opGlobszx(c *Context) error {
	sz, err := c.operand16()
	if err != nil {
		return err
	}
	return c.resizeGlobals(sz)
}

func opLocsz(c *Context) error {
	sz, err := c.operand8()
	if err != nil {
		return err
	}
	s, err := c.arena.ResizeLocals(c.glob, c.proc.Pid(), sz)
	if err != nil {
		return c.fail(KindStateMem)
	}
	return c.setState(s)
}

func opFclr(c *Context) error {
	c.proc.SetFlagReg(0)
	return nil
}

func opFget(c *Context) error {
	f, err := c.operand8()
	if err != nil {
		return err
	}
	return c.pushBool(c.proc.FlagReg()&(1<<(f&31)) != 0)
}

func opFset(c *Context) error {
	f, err := c.operand8()
	if err != nil {
		return err
	}
	v, err := c.pop()
	if err != nil {
		return err
	}
	mask := uint32(1) << (f & 31)
	if v != 0 {
		c.proc.SetFlagReg(c.proc.FlagReg() | mask)
	} else {
		c.proc.SetFlagReg(c.proc.FlagReg() &^ mask)
	}
	return nil
}

func opBget(c *Context) error {
	r, err := register(c)
	if err != nil {
		return err
	}
	b, err := c.operand8()
	if err != nil {
		return err
	}
	return c.pushBool(c.proc.Register(r)&(1<<(b&31)) != 0)
}

func opBset(c *Context) error {
	r, err := register(c)
	if err != nil {
		return err
	}
	b, err := c.operand8()
	if err != nil {
		return err
	}
	v, err := c.pop()
	if err != nil {
		return err
	}
	mask := int32(1) << (b & 31)
	if v != 0 {
		c.proc.SetRegister(r, c.proc.Register(r)|mask)
	} else {
		c.proc.SetRegister(r, c.proc.Register(r)&^mask)
	}
	return nil
}

func opPrints(c *Context) error {
	str, err := c.operand16()
	if err != nil {
		return err
	}
	c.output = &Output{Prev: c.output, IsStr: true, Str: str}
	return nil
}

func opPrintv(c *Context) error {
	f, err := c.operand8()
	if err != nil {
		return err
	}
	v, err := c.pop()
	if err != nil {
		return err
	}
	c.output = &Output{Prev: c.output, Fmt: f, Value: v}
	return nil
}

func opLda(c *Context) error {
	addr, err := c.operand32()
	if err != nil {
		return err
	}
	return c.push(int32(addr))
}

// process looks up the process with pid v.
func (c *Context) process(s state.State, v int32) (state.Process, error) {
	if v <= 0 || v > math.MaxUint8 {
		return nil, c.fail(KindInvalidProcID)
	}
	p, ok := s.Process(uint8(v))
	if !ok {
		return nil, c.fail(KindNoProc)
	}
	return p, nil
}

func opPcval(c *Context) error {
	v, err := c.pop()
	if err != nil {
		return err
	}
	p, err := c.process(c.glob, v)
	if err != nil {
		return err
	}
	return c.push(int32(p.PC()))
}

// makeLvar reads a local variable of another process.
func makeLvar(acc access) executionFunc {
	return func(c *Context) error {
		addr, err := c.pop()
		if err != nil {
			return err
		}
		v, err := c.pop()
		if err != nil {
			return err
		}
		p, err := c.process(c.glob, v)
		if err != nil {
			return err
		}
		if addr < 0 || int(addr)+acc.size > p.LvarSz() {
			return c.fail(KindLocal)
		}
		return c.push(acc.load(p.Locals()[addr:]))
	}
}

// opEnab checks whether a process could make a step in the current state
// without the current process.
func opEnab(c *Context) error {
	v, err := c.pop()
	if err != nil {
		return err
	}
	s := c.sched
	arena := s.arenas.get(s.cfg.EnabStateMem)
	defer s.arenas.put(arena)
	glob, err := arena.Copy(c.glob)
	if err != nil {
		return c.fail(KindStateMem)
	}
	glob = glob.RemoveProcess(c.proc.Pid())
	glob.SetExclPid(0)

	p, err := c.process(glob, v)
	if err != nil {
		return err
	}
	if p.Terminated() {
		return c.push(0)
	}
	act, err := arena.Activate(glob, p.Pid(), s.cfg.StackMax, c.initFlagReg)
	if err != nil {
		return c.raise(&RuntimeError{Kind: KindStateMem, Pid: p.Pid(), PC: p.PC()})
	}
	sub := newContext(s, arena, c.initFlagReg, c.timeout, c.lastPid)
	sub.paths = append(sub.paths, path{glob: act, maxStepCnt: unlimited})
	succs, err := sub.execPaths(true, 1)
	if err != nil {
		return c.stop(err)
	}
	return c.pushBool(len(succs) > 0)
}

func opMonitor(c *Context) error {
	v, err := c.pop()
	if err != nil {
		return err
	}
	if v == 0 {
		c.glob.SetMonitorPid(0)
		return nil
	}
	p, err := c.process(c.glob, v)
	if err != nil {
		return err
	}
	c.glob.SetMonitorPid(p.Pid())
	return nil
}

// opKill terminates a process. Killing the current process completes the
// step like STEP T but keeps the process in the state.
func opKill(c *Context) error {
	v, err := c.pop()
	if err != nil {
		return err
	}
	p, err := c.process(c.glob, v)
	if err != nil {
		return err
	}
	if p.Active() {
		c.proc.SetMode(state.ModeTerminated)
		c.glob.SetExclPid(0)
		c.finish(0, false)
		return nil
	}
	p.SetMode(state.ModeTerminated)
	if !c.sched.cfg.KeepTerminated {
		c.glob = c.glob.RemoveProcess(p.Pid())
	}
	return c.refresh()
}

func makeLoadBit(a area) executionFunc {
	return func(c *Context) error {
		bit, err := c.pop()
		if err != nil {
			return err
		}
		addr, err := c.pop()
		if err != nil {
			return err
		}
		b, err := c.memory(a, addr, 1)
		if err != nil {
			return err
		}
		return c.pushBool(b[0]&(1<<uint(bit&7)) != 0)
	}
}

func makeStoreBit(a area) executionFunc {
	return func(c *Context) error {
		bit, err := c.pop()
		if err != nil {
			return err
		}
		addr, err := c.pop()
		if err != nil {
			return err
		}
		v, err := c.pop()
		if err != nil {
			return err
		}
		b, err := c.memory(a, addr, 1)
		if err != nil {
			return err
		}
		mask := byte(1) << uint(bit&7)
		if v != 0 {
			b[0] |= mask
		} else {
			b[0] &^= mask
		}
		return nil
	}
}
