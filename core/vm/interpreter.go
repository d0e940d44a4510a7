package vm

import "github.com/Aurorachain/go-nipsvm/core/state"

// tmpSucc is a state in which a process completed a step.
type tmpSucc struct {
	glob      state.State
	invisible bool
	syncComm  bool
	label     uint8
	flagReg   uint32
	output    *Output
}

// run executes instructions until the current path leaves the active mode.
func (c *Context) run() {
	for c.mode == modeActive {
		pc := c.proc.PC()
		if uint64(pc) >= uint64(len(c.code)) {
			c.fail(KindBytecode)
			return
		}
		c.proc.SetPC(pc + 1)
		operation := instructionSet[c.code[pc]]
		if !operation.valid {
			c.fail(KindInvalidOpcode)
			return
		}
		if err := operation.execute(c); err != nil {
			return
		}
	}
}

// execPaths runs the paths on the path stack until all of them completed a
// step or died. Completed states are collected up to succMax. A non-nil error
// means the run was stopped.
func (c *Context) execPaths(stopOnFirst bool, succMax int) ([]tmpSucc, error) {
	var succs []tmpSucc
	for len(c.paths) > 0 {
		p := c.paths[len(c.paths)-1]
		c.paths = c.paths[:len(c.paths)-1]
		if c.stepCnt > p.maxStepCnt {
			continue
		}
		c.glob = p.glob
		c.mode = modeActive
		c.invisible, c.label, c.flagReg = false, 0, 0
		c.output = p.output
		c.proc = nil
		if err := c.refresh(); err != nil {
			if c.mode == modeStop {
				return succs, c.err
			}
			break
		}

		c.run()

		if c.mode == modeCompleted {
			if len(succs) < succMax {
				succs = append(succs, tmpSucc{
					glob:      c.glob,
					invisible: c.invisible,
					syncComm:  c.glob.SyncComm(),
					label:     c.label,
					flagReg:   c.flagReg,
					output:    c.output,
				})
			} else {
				c.fail(KindSuccCount)
			}
		}
		if c.mode == modeStop {
			return succs, c.err
		}
		if stopOnFirst && len(succs) > 0 {
			break
		}
	}
	return succs, nil
}
