// nipsvm is the command line interface of the NIPS virtual machine.
package main

import (
	"fmt"
	"os"
	"sort"

	"github.com/Aurorachain/go-nipsvm/cmd/utils"
	"github.com/Aurorachain/go-nipsvm/log"
	"github.com/Aurorachain/go-nipsvm/metrics"
	"github.com/mattn/go-colorable"
	"gopkg.in/urfave/cli.v1"
)

var (
	// Git SHA1 commit hash of the release (set via linker flags)
	gitCommit = ""

	app = utils.NewApp(gitCommit, "the NIPS virtual machine: state space search and simulation")

	generalFlags = []cli.Flag{
		utils.ConfigFileFlag,
		utils.LogLevelFlag,
		utils.MetricsEnabledFlag,
		utils.InitialStateFlag,
		utils.HexFlag,
		utils.BufferFlag,
	}

	searchFlags = []cli.Flag{
		utils.BreadthFirstFlag,
		utils.DepthFlag,
		utils.HashEntriesFlag,
		utils.HashRetriesFlag,
		utils.GraphFlag,
		utils.GraphFileFlag,
		utils.GraphDBFlag,
		utils.GraphDBCacheFlag,
		utils.ReportFlag,
	}

	simulateFlags = []cli.Flag{
		utils.RandomFlag,
		utils.QuietRandomFlag,
		utils.StatesFlag,
		utils.StepsFlag,
		utils.SeedFlag,
		utils.DataDirFlag,
	}

	vmFlags = []cli.Flag{
		utils.StackMaxFlag,
		utils.KeepTerminatedFlag,
		utils.DropMonitorBlockedFlag,
	}
)

func init() {
	// Initialize the CLI app and start nipsvm
	app.Action = nipsvm
	app.HideVersion = true // we have a command to print the version
	app.Copyright = "Copyright 2018 The go-nipsvm Authors"
	app.ArgsUsage = "<bytecode file> [<bytecode module>]"
	app.Commands = []cli.Command{
		searchCommand,
		simulateCommand,
		lookupCommand,
		disasmCommand,
		graphCommand,
		versionCommand,
		dumpConfigCommand,
	}
	sort.Sort(cli.CommandsByName(app.Commands))

	app.Flags = append(app.Flags, generalFlags...)
	app.Flags = append(app.Flags, searchFlags...)
	app.Flags = append(app.Flags, simulateFlags...)
	app.Flags = append(app.Flags, vmFlags...)
	app.Flags = append(app.Flags, utils.LookupFlag)

	app.Before = func(ctx *cli.Context) error {
		log.SetOutput(colorable.NewColorableStderr())
		log.SetLevel(ctx.GlobalString(utils.LogLevelFlag.Name))
		return nil
	}

	app.After = func(ctx *cli.Context) error {
		metrics.Dump(os.Stderr)
		log.Sync()
		return nil
	}
}

func main() {
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// nipsvm is the main entry point: it searches if -B or -D is given, looks
// up an address for -L and simulates otherwise.
func nipsvm(ctx *cli.Context) error {
	if len(ctx.Args()) == 0 {
		return cli.ShowAppHelp(ctx)
	}
	switch {
	case ctx.GlobalIsSet(utils.LookupFlag.Name):
		return lookup(ctx)
	case ctx.GlobalBool(utils.BreadthFirstFlag.Name), ctx.GlobalIsSet(utils.DepthFlag.Name):
		return runSearch(ctx)
	}
	return simulate(ctx)
}
