package main

import (
	"os"

	"github.com/Aurorachain/go-nipsvm/cmd/utils"
	"github.com/Aurorachain/go-nipsvm/event"
	"github.com/Aurorachain/go-nipsvm/graphdb"
	"github.com/Aurorachain/go-nipsvm/graphdb/leveldb"
	"github.com/Aurorachain/go-nipsvm/log"
	"github.com/Aurorachain/go-nipsvm/search"
	"github.com/fatih/color"
	"github.com/pkg/errors"
	"gopkg.in/urfave/cli.v1"
)

var searchCommand = cli.Command{
	Action:    utils.MigrateFlags(runSearch),
	Name:      "search",
	Usage:     "Explore the state space of a module",
	ArgsUsage: "<bytecode file> [<bytecode module>]",
	Flags:     append(append(generalFlags, searchFlags...), vmFlags...),
	Category:  "SEARCH COMMANDS",
	Description: `
The search command visits every reachable state of the module once, breadth
first by default or depth first up to the depth given with -D, and prints
statistics about the state space.`,
}

func runSearch(ctx *cli.Context) error {
	cfg := makeConfig(ctx)
	m, file, module := utils.LoadModule(ctx)
	sc, err := cfg.searchConfig()
	if err != nil {
		utils.Fatalf("invalid initial state: %v", err)
	}
	if cfg.Search.Hex {
		sc.Hex = os.Stdout
	}

	var sinks search.EdgeSinks
	if cfg.Search.Graph {
		name := cfg.Search.GraphFile
		if name == "" {
			name = search.GraphFile(file, module)
		}
		f, err := os.Create(name)
		if err != nil {
			log.Warnf("could not open graph output file %q (%v) -> no graph output", name, err)
		} else {
			defer f.Close()
			dot := search.NewDotWriter(f, search.GraphName(file, module))
			defer func() {
				if err := dot.Close(); err != nil {
					log.Errorf("failed to write graph %s: %v", name, err)
				}
			}()
			sinks = append(sinks, dot)
		}
	}

	var gw *graphdb.Writer
	if dir := cfg.GraphDB.Dir; dir != "" {
		db, err := leveldb.New(dir, cfg.GraphDB.Cache, 0)
		if err != nil {
			utils.Fatalf("could not open graph database %s: %v", dir, err)
		}
		defer db.Close()
		if gw, err = graphdb.NewWriter(db, file, m.Name, sc.Order.String()); err != nil {
			utils.Fatalf("could not start graph database run: %v", err)
		}
		sinks = append(sinks, gw)
	}
	if len(sinks) > 0 {
		sc.Edges = sinks
	}

	var feed event.Feed
	sc.Progress = &feed
	progressDone := logProgress(&feed)

	runCtx, stop := utils.InterruptContext()
	defer stop()
	stats, err := search.Run(runCtx, m, sc)
	<-progressDone
	if errors.Cause(err) == search.ErrInvalidInitialState {
		utils.Fatalf("%v", err)
	}

	if gw != nil {
		sum := graphdb.Summary{States: stats.States, Transitions: stats.Transitions, Aborted: stats.Aborted}
		if err := gw.Finish(sum); err != nil {
			log.Errorf("failed to finish graph database run: %v", err)
		} else {
			color.New(color.FgCyan).Printf("graph stored as run %s\n", gw.Run())
		}
	}
	if err := stats.WriteReport(os.Stdout); err != nil {
		return err
	}
	if stats.Aborted {
		color.New(color.FgRed, color.Bold).Printf("\nsearch aborted: %s\n", stats.Error)
	} else {
		color.New(color.FgGreen).Println("\nsearch completed")
	}

	if cfg.Search.Report != "" {
		f, err := os.Create(cfg.Search.Report)
		if err != nil {
			return errors.Wrap(err, "create report")
		}
		defer f.Close()
		if err := stats.WriteYAML(f); err != nil {
			return errors.Wrap(err, "write report")
		}
	}
	return nil
}

// logProgress logs every progress event of a search until the final one.
func logProgress(feed *event.Feed) <-chan struct{} {
	ch := make(chan search.Progress, 4)
	sub := feed.Subscribe(ch)
	done := make(chan struct{})
	go func() {
		defer close(done)
		defer sub.Unsubscribe()
		for p := range ch {
			if p.Done {
				return
			}
			log.LInfo("searching", log.Uint64("states", p.States), log.Uint64("transitions", p.Transitions),
				log.Uint64("depth", uint64(p.Depth)), log.Uint64("memory", p.BufferUsed), log.Dur("elapsed", p.Elapsed))
		}
	}()
	return done
}
