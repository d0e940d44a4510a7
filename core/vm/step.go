package vm

import "github.com/Aurorachain/go-nipsvm/core/state"

// succFunc receives a visible state in which process pid completed a step
// started with flagReg and timeout.
type succFunc func(succ *tmpSucc, pid uint8, flagReg uint32, timeout bool, flags Flags) error

// invisBuffer collects invisible states for the next round of chaining.
type invisBuffer struct {
	arena *state.Arena
	succs []tmpSucc
	max   int
}

func (b *invisBuffer) reset() {
	b.arena.Reset()
	b.succs = b.succs[:0]
}

// procStep executes one step of process proc in glob. Invisible results are
// copied into invis, all others go to cb. stateCnt counts every completed
// state.
func (s *Scheduler) procStep(glob state.State, proc state.Process, flagReg uint32, timeout bool, last uint8,
	flags Flags, cb succFunc, invis *invisBuffer, stateCnt *int) error {
	pid, pc := proc.Pid(), proc.PC()

	arena := s.arenas.get(s.cfg.StateMem)
	defer s.arenas.put(arena)

	act, err := arena.Activate(glob, pid, s.cfg.StackMax, flagReg)
	if err != nil {
		return s.report(KindStateMem, pid, pc)
	}
	p, _ := act.Process(pid)
	p.SetFlags(p.Flags() &^ state.FlagMonitorAccept)

	c := newContext(s, arena, flagReg, timeout, last)
	c.paths = append(c.paths, path{glob: act, maxStepCnt: unlimited})
	succs, err := c.execPaths(false, s.cfg.SuccMax)
	if err != nil {
		return err
	}

	for i := range succs {
		succ := &succs[i]
		*stateCnt++
		if succ.invisible && !succ.syncComm && succ.output == nil {
			dup, err := invis.arena.Copy(succ.glob)
			if err != nil {
				return s.report(KindInvisMem, pid, pc)
			}
			if len(invis.succs) >= invis.max {
				return s.report(KindInvisCount, pid, pc)
			}
			t := *succ
			t.glob = dup
			invis.succs = append(invis.succs, t)
			continue
		}
		if err := cb(succ, pid, flagReg, timeout, flags); err != nil {
			return err
		}
	}
	return nil
}

// procSteps executes a step of proc and keeps stepping the same process
// from every invisible state reached. An invisible state the process cannot
// leave, or no longer exists in, is reported as it is.
func (s *Scheduler) procSteps(glob state.State, proc state.Process, flagReg uint32, timeout bool, last uint8,
	flags Flags, cb succFunc) error {
	var bufs [2]*invisBuffer
	for i := range bufs {
		bufs[i] = &invisBuffer{arena: s.arenas.get(s.cfg.InvisMem), max: s.cfg.InvisMax}
		defer s.arenas.put(bufs[i].arena)
	}
	pid := proc.Pid()
	wasMonitor := glob.MonitorPid() == pid

	cur := 0
	var cnt int
	if err := s.procStep(glob, proc, flagReg, timeout, last, flags, cb, bufs[cur], &cnt); err != nil {
		return err
	}
	for len(bufs[cur].succs) > 0 {
		next := bufs[1-cur]
		next.reset()
		for i := range bufs[cur].succs {
			succ := &bufs[cur].succs[i]
			// A process that is gone, or that became or stopped being the
			// monitor during an invisible step, may not continue silently.
			p, ok := succ.glob.Process(pid)
			cnt := 0
			if ok && wasMonitor == (succ.glob.MonitorPid() == pid) {
				if err := s.procStep(succ.glob, p, flagReg, timeout, last, flags, cb, next, &cnt); err != nil {
					return err
				}
			}
			if cnt == 0 {
				if err := cb(succ, pid, flagReg, timeout, flags); err != nil {
					return err
				}
			}
		}
		bufs[cur].succs = bufs[cur].succs[:0]
		cur = 1 - cur
	}
	return nil
}
