package main

import (
	"fmt"
	"os"
	"runtime"
	"strconv"
	"strings"

	"github.com/Aurorachain/go-nipsvm/bytecode"
	"github.com/Aurorachain/go-nipsvm/cmd/utils"
	"github.com/Aurorachain/go-nipsvm/core/state"
	"github.com/Aurorachain/go-nipsvm/core/vm"
	"github.com/Aurorachain/go-nipsvm/graphdb"
	"github.com/Aurorachain/go-nipsvm/graphdb/leveldb"
	"github.com/Aurorachain/go-nipsvm/params"
	"github.com/fatih/color"
	"gopkg.in/urfave/cli.v1"
)

var (
	lookupCommand = cli.Command{
		Action:    utils.MigrateFlags(lookup),
		Name:      "lookup",
		Usage:     "Look up the source code location of an address",
		ArgsUsage: "<bytecode file> [<bytecode module>]",
		Flags:     []cli.Flag{utils.LookupFlag},
		Category:  "MISCELLANEOUS COMMANDS",
	}
	disasmCommand = cli.Command{
		Action:    disasm,
		Name:      "disasm",
		Usage:     "Disassemble the bytecode of a module",
		ArgsUsage: "<bytecode file> [<bytecode module>]",
		Category:  "MISCELLANEOUS COMMANDS",
	}
	graphCommand = cli.Command{
		Action:    utils.MigrateFlags(graph),
		Name:      "graph",
		Usage:     "List stored search runs or show a stored state",
		ArgsUsage: "[<run> [<state id>]]",
		Flags:     []cli.Flag{utils.GraphDBFlag},
		Category:  "SEARCH COMMANDS",
		Description: `
Without arguments the graph command lists the runs stored in the graph
database given by --graphdb. With a run id it shows the initial state, or
the state with the given id, together with its transitions.`,
	}
	versionCommand = cli.Command{
		Action:    version,
		Name:      "version",
		Usage:     "Print version numbers",
		ArgsUsage: " ",
		Category:  "MISCELLANEOUS COMMANDS",
	}
)

func parseAddr(s string) (uint32, error) {
	v, err := strconv.ParseUint(strings.TrimSpace(s), 0, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid address %q", s)
	}
	return uint32(v), nil
}

func lookup(ctx *cli.Context) error {
	addr, err := parseAddr(ctx.GlobalString(utils.LookupFlag.Name))
	if err != nil {
		utils.Fatalf("%v", err)
	}
	m, _, _ := utils.LoadModule(ctx)
	loc := m.SourceLocation(addr)
	fmt.Printf("looked up address 0x%08X: %s\n\n", loc.Addr, loc)
	return nil
}

func disasm(ctx *cli.Context) error {
	m, _, _ := utils.LoadModule(ctx)
	return vm.Disassemble(os.Stdout, m)
}

func graph(ctx *cli.Context) error {
	dir := ctx.GlobalString(utils.GraphDBFlag.Name)
	if dir == "" {
		utils.Fatalf("no graph database given, use --%s", utils.GraphDBFlag.Name)
	}
	db, err := leveldb.New(dir, 0, 0)
	if err != nil {
		utils.Fatalf("could not open graph database %s: %v", dir, err)
	}
	defer db.Close()

	args := ctx.Args()
	if len(args) == 0 {
		runs, err := graphdb.Runs(db)
		if err != nil {
			return err
		}
		for _, r := range runs {
			verdict := color.GreenString("completed")
			if r.Aborted {
				verdict = color.RedString("aborted")
			}
			fmt.Printf("%s  %s  %s %s  %s %s  states %d  transitions %d\n", r.ID,
				r.Started.Local().Format("2006-01-02 15:04:05"), r.File, r.Module, r.Order, verdict,
				r.States, r.Transitions)
		}
		return nil
	}

	run := args[0]
	var id uint64
	if len(args) > 1 {
		if id, err = strconv.ParseUint(args[1], 0, 64); err != nil {
			utils.Fatalf("invalid state id %q", args[1])
		}
	}
	s, err := graphdb.ReadState(db, run, id)
	if err != nil {
		return err
	}
	edges, err := graphdb.ReadEdges(db, run, id)
	if err != nil {
		return err
	}
	fmt.Printf("state %d:\n%s\n", id, s)
	printEdges(edges)
	return nil
}

func printEdges(edges []graphdb.Edge) {
	for _, e := range edges {
		flags := vm.Flags(e.Flags)
		if e.Flags&uint32(vm.FlagSync) != 0 {
			fmt.Printf("  -> %d  labels %d,%d  flags %s\n", e.To, e.Label1st, e.Label, flags)
		} else {
			fmt.Printf("  -> %d  label %d  flags %s\n", e.To, e.Label, flags)
		}
	}
}

func version(ctx *cli.Context) error {
	fmt.Println("NIPS VM")
	fmt.Println("Version:", params.Version)
	if gitCommit != "" {
		fmt.Println("Git Commit:", gitCommit)
	}
	fmt.Println("Bytecode Format:", bytecode.Magic)
	fmt.Println("Initial State Size:", state.InitialSize)
	fmt.Println("Architecture:", runtime.GOARCH)
	fmt.Println("Go Version:", runtime.Version())
	fmt.Println("Operating System:", runtime.GOOS)
	return nil
}
