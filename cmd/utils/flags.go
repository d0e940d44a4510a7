package utils

import (
	"fmt"

	"github.com/Aurorachain/go-nipsvm/params"
	"gopkg.in/urfave/cli.v1"
)

var (
	// General settings
	ConfigFileFlag = cli.StringFlag{
		Name:  "config",
		Usage: "TOML configuration file",
	}
	LogLevelFlag = cli.StringFlag{
		Name:  "loglevel",
		Usage: "Logging verbosity: debug, info, warn, error",
		Value: "info",
	}
	MetricsEnabledFlag = cli.BoolFlag{
		Name:  "metrics",
		Usage: "Enable metrics collection and print them after the run",
	}

	// Search settings
	BreadthFirstFlag = cli.BoolFlag{
		Name:  "B",
		Usage: "Perform breadth-first search",
	}
	DepthFlag = cli.UintFlag{
		Name:  "D",
		Usage: "Perform depth-first search up to the specified depth",
	}
	HexFlag = cli.BoolFlag{
		Name:  "H",
		Usage: "Print states in hexadecimal",
	}
	InitialStateFlag = cli.StringFlag{
		Name:  "I",
		Usage: "Use the supplied initial state (format: \"[0-9A-F]*\")",
	}
	BufferFlag = cli.Uint64Flag{
		Name:  "b",
		Usage: fmt.Sprintf("Buffer size in MB (valid: %d..%d)", params.BufferMinMB, params.BufferMaxMB),
		Value: params.BufferDefaultMB,
	}
	HashEntriesFlag = cli.Uint64Flag{
		Name:  "hash-entries",
		Usage: fmt.Sprintf("Hash table size in k entries (valid: %d..%d)", params.HashEntriesMinK, params.HashEntriesMaxK),
		Value: params.HashEntriesDefaultK,
	}
	HashRetriesFlag = cli.Uint64Flag{
		Name:  "hash-retries",
		Usage: fmt.Sprintf("Hash table retries (valid: %d..%d)", params.HashRetriesMin, params.HashRetriesMax),
		Value: params.HashRetriesDefault,
	}
	GraphFlag = cli.BoolFlag{
		Name:  "g",
		Usage: "Output the state graph in graphviz format to <bytecode file>[_<module>].dot",
	}
	GraphFileFlag = cli.StringFlag{
		Name:  "gf",
		Usage: "Output the state graph in graphviz format to the given file",
	}
	GraphDBFlag = cli.StringFlag{
		Name:  "graphdb",
		Usage: "Store the state graph in the leveldb database in this directory",
	}
	GraphDBCacheFlag = cli.IntFlag{
		Name:  "graphdb.cache",
		Usage: "Megabytes of memory allocated to the graph database",
		Value: 16,
	}
	LookupFlag = cli.StringFlag{
		Name:  "L",
		Usage: "Look up the source code location of an address",
	}
	ReportFlag = cli.StringFlag{
		Name:  "report",
		Usage: "Write the search statistics as YAML to this file",
	}

	// Simulation settings
	RandomFlag = cli.BoolFlag{
		Name:  "R",
		Usage: "Perform random simulation",
	}
	QuietRandomFlag = cli.BoolFlag{
		Name:  "Rq",
		Usage: "Perform quiet random simulation",
	}
	StatesFlag = cli.Uint64Flag{
		Name:  "s",
		Usage: fmt.Sprintf("Successor buffer entries in k (valid: %d..%d)", params.SimStatesMinK, params.SimStatesMaxK),
		Value: params.SimStatesDefaultK,
	}
	StepsFlag = cli.UintFlag{
		Name:  "steps",
		Usage: "Stop a simulation after this many steps (0 = unlimited)",
	}
	SeedFlag = cli.Int64Flag{
		Name:  "seed",
		Usage: "Seed of a random simulation (0 = time based)",
	}
	DataDirFlag = cli.StringFlag{
		Name:  "datadir",
		Usage: "Directory for the interactive simulation history",
	}

	// Virtual machine settings
	StackMaxFlag = cli.UintFlag{
		Name:  "vm.stack",
		Usage: "Operand stack slots of a process",
		Value: uint(params.StackMax),
	}
	KeepTerminatedFlag = cli.BoolFlag{
		Name:  "vm.keepterminated",
		Usage: "Keep terminated processes in the state",
	}
	DropMonitorBlockedFlag = cli.BoolFlag{
		Name:  "vm.dropblocked",
		Usage: "Drop successors in which the monitor cannot step",
	}
)
