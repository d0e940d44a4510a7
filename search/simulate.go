package search

import (
	"context"
	"fmt"
	"io"
	"math/rand"
	"strconv"
	"strings"

	"github.com/Aurorachain/go-nipsvm/bytecode"
	"github.com/Aurorachain/go-nipsvm/core/state"
	"github.com/Aurorachain/go-nipsvm/core/vm"
	"github.com/Aurorachain/go-nipsvm/log"
	"github.com/Aurorachain/go-nipsvm/params"
	"github.com/pkg/errors"
)

// Prompter asks the user for a line of input.
type Prompter interface {
	PromptInput(prompt string) (string, error)
}

// Confirmer is implemented by prompters that can ask a yes/no question.
// Quitting an interactive simulation is confirmed through it when the
// prompter has it.
type Confirmer interface {
	PromptConfirm(prompt string) (bool, error)
}

// SimConfig configures a simulation run.
type SimConfig struct {
	Random bool // pick successors at random instead of asking
	Quiet  bool // random mode: only print the final state
	Hex    bool // print states in hex as well

	BufferSize uint64 // bytes for current and successor states
	StatesMax  int    // successor slots per step
	MaxSteps   uint   // 0 means unlimited
	Seed       int64

	Initial  state.State
	Out      io.Writer
	Prompter Prompter // required unless Random

	VM vm.Config
}

func (c *SimConfig) setDefaults() {
	if c.BufferSize == 0 {
		c.BufferSize = params.BufferMinMB << 20
	}
	if c.StatesMax == 0 {
		c.StatesMax = int(params.SimStatesDefaultK << 10)
	}
	if c.Out == nil {
		c.Out = io.Discard
	}
}

// SimResult summarizes a simulation.
type SimResult struct {
	Steps  uint
	Reason string
	Final  state.State
}

type simSucc struct {
	state   state.State
	label1  uint8
	label   uint8
	flagReg uint32
	flags   vm.Flags
	output  string
}

type simulator struct {
	cfg    SimConfig
	handle bytecode.Handle
	next   *state.Arena
	succs  []simSucc
	steps  uint
	err    error
}

// Simulate walks a single path through the state space, choosing each
// successor at random or through cfg.Prompter.
func Simulate(ctx context.Context, handle bytecode.Handle, cfg SimConfig) (*SimResult, error) {
	cfg.setDefaults()
	if !cfg.Random && cfg.Prompter == nil {
		return nil, errors.New("interactive simulation needs a prompter")
	}
	// one buffer: the current state in the lower half, successors above
	buf := make([]byte, cfg.BufferSize)
	half := len(buf) / 2
	sim := &simulator{
		cfg:    cfg,
		handle: handle,
		next:   state.NewArenaFrom(buf[half:]),
	}
	cur := state.NewArenaFrom(buf[:half:half])
	rnd := rand.New(rand.NewSource(cfg.Seed))

	vmcfg := cfg.VM
	vmcfg.OnSuccessor = sim.onSuccessor
	vmcfg.OnError = func(e *vm.RuntimeError) vm.Verdict {
		fmt.Fprintf(cfg.Out, "RUNTIME ERROR: %v\n", e)
		return vm.Stop
	}
	sched := vm.NewScheduler(handle, vmcfg)

	var (
		st  state.State
		err error
	)
	if cfg.Initial != nil {
		if _, err := state.Validate(cfg.Initial); err != nil {
			return nil, errors.Wrap(ErrInvalidInitialState, err.Error())
		}
		st, err = cur.Copy(cfg.Initial)
	} else {
		st, err = cur.Initial()
	}
	if err != nil {
		return nil, ErrOutOfStateMemory
	}

	res := &SimResult{}
	verbose := !cfg.Random || !cfg.Quiet
	for {
		if verbose {
			sim.printState("", st)
		}
		if cfg.MaxSteps != 0 && res.Steps >= cfg.MaxSteps {
			res.Reason = "step limit reached"
			break
		}
		if err := ctx.Err(); err != nil {
			res.Reason = "canceled"
			res.Final = st
			return res, err
		}

		sim.next.Reset()
		sim.succs = sim.succs[:0]
		sim.err = nil
		if _, err := sched.Successors(st, 0); err != nil {
			if sim.err != nil {
				err = sim.err
			}
			res.Reason = "error"
			res.Final = st
			return res, err
		}

		if len(sim.succs) == 1 {
			if f := sim.succs[0].flags; f&vm.FlagSysBlock != 0 {
				res.Reason = "system blocked"
				break
			} else if f&vm.FlagMonitorTerm != 0 && f&vm.FlagMonitorExec == 0 {
				res.Reason = "monitor terminated"
				break
			}
		}

		var pick int
		if cfg.Random {
			pick = rnd.Intn(len(sim.succs))
		} else {
			for i := range sim.succs {
				sim.printSucc(i)
			}
			var ok bool
			sim.steps = res.Steps
			if pick, ok, err = sim.ask(); err != nil {
				if err == io.EOF {
					res.Reason = "end of input"
					break
				}
				return res, err
			} else if !ok {
				res.Reason = "quit"
				break
			}
		}
		if verbose && cfg.Random {
			sim.printSucc(pick)
		}

		cur.Reset()
		if st, err = cur.Copy(sim.succs[pick].state); err != nil {
			return res, ErrOutOfStateMemory
		}
		res.Steps++
	}
	res.Final = st
	if !verbose {
		sim.printState("final ", st)
	}
	fmt.Fprintf(cfg.Out, "%s after %d steps\n", res.Reason, res.Steps)
	log.Debugf("simulation finished: %s after %d steps", res.Reason, res.Steps)
	return res, nil
}

func (sim *simulator) onSuccessor(t *vm.Transition) vm.Verdict {
	if len(sim.succs) >= sim.cfg.StatesMax {
		sim.err = ErrTooManySuccessors
		return vm.Stop
	}
	st, err := sim.next.Copy(t.State)
	if err != nil {
		sim.err = ErrOutOfStateMemory
		return vm.Stop
	}
	var out []string
	for _, o := range []*vm.Output{t.Sys1st, t.Sys, t.Monitor} {
		if o != nil {
			out = append(out, o.Render(sim.handle))
		}
	}
	sim.succs = append(sim.succs, simSucc{
		state:   st,
		label1:  t.Label1st,
		label:   t.Label,
		flagReg: t.FlagReg,
		flags:   t.Flags,
		output:  strings.Join(out, ""),
	})
	return vm.Continue
}

func (sim *simulator) printState(prefix string, st state.State) {
	fmt.Fprintf(sim.cfg.Out, "%s%s", prefix, st)
	if sim.cfg.Hex {
		fmt.Fprintf(sim.cfg.Out, "hex: %X\n", []byte(st))
	}
	fmt.Fprintln(sim.cfg.Out)
}

func (sim *simulator) printSucc(i int) {
	s := &sim.succs[i]
	fmt.Fprintf(sim.cfg.Out, "successor %d: label %d", i+1, s.label)
	if s.flags&vm.FlagSync != 0 {
		fmt.Fprintf(sim.cfg.Out, " (sync label %d)", s.label1)
	}
	fmt.Fprintf(sim.cfg.Out, " flag_reg 0x%08X flags %s\n", s.flagReg, s.flags)
	if s.output != "" {
		fmt.Fprintf(sim.cfg.Out, "  output: %q\n", s.output)
	}
	if !sim.cfg.Random {
		fmt.Fprintf(sim.cfg.Out, "%s\n", s.state)
	}
}

// ask returns the zero based choice, or false if the user quit.
func (sim *simulator) ask() (int, bool, error) {
	prompt := fmt.Sprintf("select successor (1-%d, q to quit): ", len(sim.succs))
	for {
		line, err := sim.cfg.Prompter.PromptInput(prompt)
		if err != nil {
			return 0, false, err
		}
		line = strings.TrimSpace(line)
		if line == "q" || line == "quit" {
			c, ok := sim.cfg.Prompter.(Confirmer)
			if !ok {
				return 0, false, nil
			}
			yes, err := c.PromptConfirm(fmt.Sprintf("quit after %d steps?", sim.steps))
			if err != nil || yes {
				return 0, false, err
			}
			continue
		}
		if line == "" && len(sim.succs) == 1 {
			return 0, true, nil
		}
		n, err := strconv.Atoi(line)
		if err == nil && n >= 1 && n <= len(sim.succs) {
			return n - 1, true, nil
		}
		fmt.Fprintf(sim.cfg.Out, "invalid choice %q\n", line)
	}
}
