// Package runtime executes raw bytecode without a bytecode file, which is
// handy for tests, examples and fuzzing.
package runtime

import (
	"github.com/Aurorachain/go-nipsvm/bytecode"
	"github.com/Aurorachain/go-nipsvm/core/state"
	"github.com/Aurorachain/go-nipsvm/core/vm"
)

// Config is a basic type specifying certain configuration flags for running
// the VM.
type Config struct {
	// State to start from, the initial state of the code if nil.
	State state.State
	// FlagReg is the initial flag register of the stepping process.
	FlagReg uint32
	VM      vm.Config
}

// Result is a copy of one successor.
type Result struct {
	State   state.State
	Label   uint8
	FlagReg uint32
	Flags   vm.Flags
	Output  string
}

func setDefaults(cfg *Config) error {
	if cfg.State == nil {
		s, err := state.NewArena(state.InitialSize).Initial()
		if err != nil {
			return err
		}
		cfg.State = s
	}
	return nil
}

// Execute returns all successors of the start state of code.
func Execute(code []byte, cfg *Config) ([]Result, error) {
	if cfg == nil {
		cfg = new(Config)
	}
	if err := setDefaults(cfg); err != nil {
		return nil, err
	}
	return successors(bytecode.NewModule("runtime", code), cfg.State, cfg.FlagReg, cfg.VM)
}

// Trace follows the first successor for at most steps steps and returns the
// visited states. It ends early once the system is blocked.
func Trace(code []byte, steps int, cfg *Config) ([]Result, error) {
	if cfg == nil {
		cfg = new(Config)
	}
	if err := setDefaults(cfg); err != nil {
		return nil, err
	}
	m := bytecode.NewModule("runtime", code)
	var (
		trace   []Result
		cur     = cfg.State
		flagReg = cfg.FlagReg
	)
	for i := 0; i < steps; i++ {
		list, err := successors(m, cur, flagReg, cfg.VM)
		if err != nil {
			return trace, err
		}
		if len(list) == 0 || list[0].Flags&vm.FlagSysBlock != 0 {
			break
		}
		trace = append(trace, list[0])
		cur, flagReg = list[0].State, list[0].FlagReg
	}
	return trace, nil
}

func successors(m *bytecode.Module, s state.State, flagReg uint32, cfg vm.Config) ([]Result, error) {
	var list []Result
	cfg.OnSuccessor = func(t *vm.Transition) vm.Verdict {
		list = append(list, Result{
			State:   append(state.State(nil), t.State...),
			Label:   t.Label,
			FlagReg: t.FlagReg,
			Flags:   t.Flags,
			Output:  t.Sys1st.Render(m) + t.Sys.Render(m) + t.Monitor.Render(m),
		})
		return vm.Continue
	}
	_, err := vm.NewScheduler(m, cfg).Successors(s, flagReg)
	return list, err
}
