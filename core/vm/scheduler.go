package vm

import (
	"strings"

	"github.com/Aurorachain/go-nipsvm/bytecode"
	"github.com/Aurorachain/go-nipsvm/core/state"
	"github.com/Aurorachain/go-nipsvm/params"
)

// Flags describe how a successor was produced.
type Flags uint32

const (
	FlagSync          Flags = 0x01 // rendezvous completed by a second process
	FlagTimeout       Flags = 0x02 // produced with the timeout variable set
	FlagSysBlock      Flags = 0x04 // system blocked, state reported as it is
	FlagMonitorBlock  Flags = 0x08 // system moved, monitor could not follow
	FlagMonitorExist  Flags = 0x10
	FlagMonitorExec   Flags = 0x20
	FlagMonitorAccept Flags = 0x40
	FlagMonitorTerm   Flags = 0x80
)

var flagNames = []struct {
	f    Flags
	name string
}{
	{FlagSync, "sync"},
	{FlagTimeout, "timeout"},
	{FlagSysBlock, "sys_block"},
	{FlagMonitorBlock, "monitor_block"},
	{FlagMonitorExist, "monitor_exist"},
	{FlagMonitorExec, "monitor_exec"},
	{FlagMonitorAccept, "monitor_accept"},
	{FlagMonitorTerm, "monitor_term"},
}

func (f Flags) String() string {
	var names []string
	for _, n := range flagNames {
		if f&n.f != 0 {
			names = append(names, n.name)
		}
	}
	if len(names) == 0 {
		return "none"
	}
	return strings.Join(names, "|")
}

// Transition is handed to the successor callback. State and the output
// lists are only valid during the callback; copy what must be kept.
type Transition struct {
	State      state.State
	Label1st   uint8 // label of the sending half of a rendezvous
	Label      uint8
	FlagReg1st uint32
	FlagReg    uint32
	Flags      Flags
	Sys1st     *Output
	Sys        *Output
	Monitor    *Output
}

// Config bounds the resources of a scheduler and carries its callbacks.
// Zero values are replaced by the defaults in params.
type Config struct {
	StackMax     uint8
	StateMem     int
	EnabStateMem int
	InvisMem     int
	PathMax      int
	InvisMax     int
	SuccMax      int

	// KeepTerminated leaves terminated processes in the state instead of
	// removing them at STEP T.
	KeepTerminated bool
	// DropMonitorBlocked suppresses system successors the monitor cannot
	// follow instead of reporting them with FlagMonitorBlock.
	DropMonitorBlocked bool

	OnSuccessor func(t *Transition) Verdict
	OnError     func(e *RuntimeError) Verdict // nil stops on every error
}

func (cfg *Config) setDefaults() {
	if cfg.StackMax == 0 {
		cfg.StackMax = params.StackMax
	}
	if cfg.StateMem == 0 {
		cfg.StateMem = params.StateMem
	}
	if cfg.EnabStateMem == 0 {
		cfg.EnabStateMem = params.EnabStateMem
	}
	if cfg.InvisMem == 0 {
		cfg.InvisMem = params.InvisMem
	}
	if cfg.PathMax == 0 {
		cfg.PathMax = params.PathMax
	}
	if cfg.InvisMax == 0 {
		cfg.InvisMax = params.InvisMax
	}
	if cfg.SuccMax == 0 {
		cfg.SuccMax = params.SuccMax
	}
}

// arenaPool recycles scratch arenas by size. Arenas are handed out reset.
type arenaPool struct {
	free map[int][]*state.Arena
}

func (p *arenaPool) get(size int) *state.Arena {
	if l := p.free[size]; len(l) > 0 {
		a := l[len(l)-1]
		p.free[size] = l[:len(l)-1]
		a.Reset()
		return a
	}
	return state.NewArena(size)
}

func (p *arenaPool) put(a *state.Arena) {
	if p.free == nil {
		p.free = make(map[int][]*state.Arena)
	}
	p.free[a.Cap()] = append(p.free[a.Cap()], a)
}

// Scheduler generates the successors of global states. It is not safe for
// concurrent use.
type Scheduler struct {
	handle bytecode.Handle
	cfg    Config
	arenas arenaPool
}

func NewScheduler(handle bytecode.Handle, cfg Config) *Scheduler {
	cfg.setDefaults()
	return &Scheduler{handle: handle, cfg: cfg}
}

// Handle returns the module the scheduler executes.
func (s *Scheduler) Handle() bytecode.Handle { return s.handle }

func (s *Scheduler) onError(e *RuntimeError) Verdict {
	if s.cfg.OnError == nil {
		return Stop
	}
	return s.cfg.OnError(e)
}

// report raises an error outside of an execution context.
func (s *Scheduler) report(kind ErrorKind, pid uint8, pc uint32) error {
	e := &RuntimeError{Kind: kind, Pid: pid, PC: pc}
	if e.Verdict = s.onError(e); e.Verdict == Stop {
		return e
	}
	return nil
}

func (s *Scheduler) emit(t *Transition) error {
	if s.cfg.OnSuccessor == nil {
		return nil
	}
	if s.cfg.OnSuccessor(t) == Stop {
		return ErrStopped
	}
	return nil
}

// firstHalf keeps the sending part of a rendezvous.
type firstHalf struct {
	label   uint8
	flagReg uint32
	output  *Output
}

type counts struct {
	sys   int // system successors
	total int // reported successors
}

// Successors reports every successor of s to the OnSuccessor callback and
// returns how many were reported. flagReg is the initial flag register of
// the stepping process. A non-nil error means generation was stopped,
// either by a callback or by a runtime error.
func (s *Scheduler) Successors(st state.State, flagReg uint32) (int, error) {
	if st.MonitorTerminated() {
		return 1, s.emit(&Transition{State: st, Flags: FlagMonitorExist | FlagMonitorTerm})
	}

	var cnt counts
	if err := s.sysStep(st, flagReg, 0, s.sysSucc(&cnt), &cnt); err != nil {
		return cnt.total, err
	}
	if cnt.sys > 0 {
		return cnt.total, nil
	}

	flags := FlagSysBlock
	if pid := st.MonitorPid(); pid != 0 {
		flags |= FlagMonitorExist
		if st.MonitorAccepting() {
			flags |= FlagMonitorAccept
		}
	}
	return 1, s.emit(&Transition{State: st, Flags: flags})
}

// sysStep steps the system processes. An enabled exclusive process runs
// alone; without any successor the step is retried with timeout set.
func (s *Scheduler) sysStep(glob state.State, flagReg uint32, flags Flags, cb succFunc, cnt *counts) error {
	procs := glob.EnabledProcesses()
	if len(procs) > int(params.PidMax) {
		return s.report(KindEnabledProcCount, 0, 0)
	}
	monitor := glob.MonitorPid()
	start := cnt.sys

	for _, timeout := range []bool{false, true} {
		if excl := glob.ExclPid(); excl != 0 && excl != monitor {
			for _, p := range procs {
				if p.Pid() != excl {
					continue
				}
				if err := s.procSteps(glob, p, flagReg, timeout, 0, flags, cb); err != nil {
					return err
				}
				if cnt.sys > start {
					return nil
				}
				break
			}
		}

		for _, p := range procs {
			if p.Pid() == monitor {
				continue
			}
			if err := s.procSteps(glob, p, flagReg, timeout, 0, flags, cb); err != nil {
				return err
			}
		}
		if cnt.sys > start {
			return nil
		}
		flags |= FlagTimeout
	}
	return nil
}

// sysSucc handles a successor of a system process. A sending rendezvous is
// completed by every other process able to receive.
func (s *Scheduler) sysSucc(cnt *counts) succFunc {
	return func(succ *tmpSucc, pid uint8, flagReg uint32, timeout bool, flags Flags) error {
		if !succ.syncComm {
			return s.execMonitor(succ, &firstHalf{}, pid, flags, cnt)
		}

		first := &firstHalf{label: succ.label, flagReg: succ.flagReg, output: succ.output}
		glob := succ.glob
		procs := glob.EnabledProcesses()
		if len(procs) > int(params.PidMax) {
			return s.report(KindEnabledProcCount, 0, 0)
		}
		syncSucc := func(succ *tmpSucc, pid uint8, _ uint32, _ bool, flags Flags) error {
			if succ.syncComm {
				return nil
			}
			return s.execMonitor(succ, first, pid, flags, cnt)
		}
		for _, p := range procs {
			if p.Pid() == glob.MonitorPid() || p.Pid() == pid {
				continue
			}
			if err := s.procSteps(glob, p, flagReg, timeout, 0, flags|FlagSync, syncSucc); err != nil {
				return err
			}
		}
		return nil
	}
}

// execMonitor lets the monitor follow a complete system step. Without a
// live monitor the system successor is reported directly; the monitor
// flags of a monitor killed by the step show up in the next state.
func (s *Scheduler) execMonitor(sys *tmpSucc, first *firstHalf, last uint8, flags Flags, cnt *counts) error {
	cnt.sys++
	glob := sys.glob
	if m, ok := liveMonitor(glob); ok {
		flags |= FlagMonitorExist
		start := cnt.total
		cb := func(succ *tmpSucc, pid uint8, _ uint32, _ bool, flags Flags) error {
			return s.monitorSucc(succ, pid, flags, first, sys, cnt)
		}
		for _, timeout := range []bool{false, true} {
			if err := s.procSteps(glob, m, 0, timeout, last, flags, cb); err != nil {
				return err
			}
			if cnt.total > start {
				return nil
			}
		}
		if s.cfg.DropMonitorBlocked {
			return nil
		}
		flags |= FlagMonitorBlock
		if glob.MonitorAccepting() {
			flags |= FlagMonitorAccept
		}
	}

	cnt.total++
	return s.emit(&Transition{
		State:      glob,
		Label1st:   first.label,
		Label:      sys.label,
		FlagReg1st: first.flagReg,
		FlagReg:    sys.flagReg,
		Flags:      flags,
		Sys1st:     first.output,
		Sys:        sys.output,
	})
}

// liveMonitor returns the monitor of glob unless there is none or it has
// terminated.
func liveMonitor(glob state.State) (state.Process, bool) {
	pid := glob.MonitorPid()
	if pid == 0 {
		return nil, false
	}
	m, ok := glob.Process(pid)
	if !ok || m.Terminated() {
		return nil, false
	}
	return m, true
}

// monitorSucc reports a state in which the monitor followed a system step.
// The accept flag of the monitor location is cached in the process.
func (s *Scheduler) monitorSucc(succ *tmpSucc, pid uint8, flags Flags, first *firstHalf, sys *tmpSucc, cnt *counts) error {
	if succ.syncComm {
		return nil
	}
	flags |= FlagMonitorExec
	m, ok := succ.glob.Process(pid)
	if ok && s.handle.FlagsAt(m.PC())&bytecode.FlagAccept != 0 {
		m.SetFlags(m.Flags() | state.FlagMonitorAccept)
		flags |= FlagMonitorAccept
	}
	if !ok || m.Terminated() {
		flags |= FlagMonitorTerm
	}

	cnt.total++
	return s.emit(&Transition{
		State:      succ.glob,
		Label1st:   first.label,
		Label:      sys.label,
		FlagReg1st: first.flagReg,
		FlagReg:    sys.flagReg,
		Flags:      flags,
		Sys1st:     first.output,
		Sys:        sys.output,
		Monitor:    succ.output,
	})
}

// SCCLookup maps code addresses to SCCs of the monitor automaton.
type SCCLookup interface {
	SCCAt(addr uint32) (uint32, bool)
}

// MonitorSCC returns the SCC the monitor of s is in.
func MonitorSCC(l SCCLookup, s state.State) (uint32, bool) {
	pid := s.MonitorPid()
	if pid == 0 {
		return 0, false
	}
	m, ok := s.Process(pid)
	if !ok {
		return 0, false
	}
	return l.SCCAt(m.PC())
}
