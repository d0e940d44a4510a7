package main

import (
	"context"
	"os"

	"github.com/Aurorachain/go-nipsvm/cmd/utils"
	"github.com/Aurorachain/go-nipsvm/console"
	"github.com/Aurorachain/go-nipsvm/search"
	"github.com/fatih/color"
	"github.com/mattn/go-colorable"
	"gopkg.in/urfave/cli.v1"
)

var simulateCommand = cli.Command{
	Action:    utils.MigrateFlags(simulate),
	Name:      "simulate",
	Usage:     "Walk through the state space interactively or at random",
	ArgsUsage: "<bytecode file> [<bytecode module>]",
	Flags:     append(append(generalFlags, simulateFlags...), vmFlags...),
	Category:  "SEARCH COMMANDS",
	Description: `
The simulate command prints the current state and its successors and asks
which successor to follow. With -R the successor is chosen at random, -Rq
only prints the last state.`,
}

func simulate(ctx *cli.Context) error {
	cfg := makeConfig(ctx)
	m, _, _ := utils.LoadModule(ctx)
	sc, err := cfg.simConfig()
	if err != nil {
		utils.Fatalf("invalid initial state: %v", err)
	}

	runCtx := context.Background()
	if sc.Random {
		var stop func()
		runCtx, stop = utils.InterruptContext()
		defer stop()
		sc.Out = colorable.NewColorableStdout()
	} else {
		session := console.New(console.Config{DataDir: cfg.Simulate.DataDir})
		defer session.Close()
		sc.Prompter = session
		sc.Out = session.Printer()
	}

	res, err := search.Simulate(runCtx, m, sc)
	if err != nil {
		color.New(color.FgRed, color.Bold).Fprintf(os.Stdout, "simulation stopped: %v\n", err)
		return nil
	}
	if res.Reason == "system blocked" {
		color.New(color.FgYellow).Println("the system is blocked")
	}
	return nil
}
