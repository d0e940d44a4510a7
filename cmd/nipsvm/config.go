package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"reflect"
	"time"
	"unicode"

	"github.com/Aurorachain/go-nipsvm/cmd/utils"
	"github.com/Aurorachain/go-nipsvm/core/vm"
	"github.com/Aurorachain/go-nipsvm/log"
	"github.com/Aurorachain/go-nipsvm/params"
	"github.com/Aurorachain/go-nipsvm/search"
	"github.com/naoina/toml"
	"gopkg.in/urfave/cli.v1"
)

var (
	dumpConfigCommand = cli.Command{
		Action:      utils.MigrateFlags(dumpConfig),
		Name:        "dumpconfig",
		Usage:       "Show configuration values",
		ArgsUsage:   "",
		Flags:       append(append(searchFlags, simulateFlags...), vmFlags...),
		Category:    "MISCELLANEOUS COMMANDS",
		Description: `The dumpconfig command shows configuration values.`,
	}
)

// These settings ensure that TOML keys use the same names as Go struct fields.
var tomlSettings = toml.Config{
	NormFieldName: func(rt reflect.Type, key string) string {
		return key
	},
	FieldToKey: func(rt reflect.Type, field string) string {
		return field
	},
	MissingField: func(rt reflect.Type, field string) error {
		link := ""
		if unicode.IsUpper(rune(rt.Name()[0])) && rt.PkgPath() != "main" {
			link = fmt.Sprintf(", see https://godoc.org/%s#%s for available fields", rt.PkgPath(), rt.Name())
		}
		return fmt.Errorf("field '%s' is not defined in %s%s", field, rt.String(), link)
	},
}

type searchConfig struct {
	DepthFirst   bool
	DepthMax     uint
	BufferMB     uint64
	HashEntriesK uint64
	HashRetries  uint64
	Hex          bool
	Graph        bool
	GraphFile    string `toml:",omitempty"`
	Report       string `toml:",omitempty"`
}

type simulateConfig struct {
	Random   bool
	Quiet    bool
	StatesK  uint64
	MaxSteps uint
	Seed     int64
	DataDir  string `toml:",omitempty"`
}

type vmConfig struct {
	StackMax           uint8
	KeepTerminated     bool
	DropMonitorBlocked bool
}

type graphDBConfig struct {
	Dir   string `toml:",omitempty"`
	Cache int
}

type nipsConfig struct {
	LogLevel string
	Initial  string `toml:",omitempty"`

	Search   searchConfig
	Simulate simulateConfig
	VM       vmConfig
	GraphDB  graphDBConfig
}

func defaultConfig() nipsConfig {
	return nipsConfig{
		LogLevel: "info",
		Search: searchConfig{
			BufferMB:     params.BufferDefaultMB,
			HashEntriesK: params.HashEntriesDefaultK,
			HashRetries:  params.HashRetriesDefault,
		},
		Simulate: simulateConfig{
			StatesK: params.SimStatesDefaultK,
		},
		VM: vmConfig{
			StackMax: params.StackMax,
		},
		GraphDB: graphDBConfig{
			Cache: 16,
		},
	}
}

func loadConfig(file string, cfg *nipsConfig) error {
	f, err := os.Open(file)
	if err != nil {
		return err
	}
	defer f.Close()

	err = tomlSettings.NewDecoder(bufio.NewReader(f)).Decode(cfg)
	// Add file name to errors that have a line number.
	if _, ok := err.(*toml.LineError); ok {
		err = errors.New(file + ", " + err.Error())
	}
	return err
}

// makeConfig loads the configuration file and applies the command line on
// top of it.
func makeConfig(ctx *cli.Context) nipsConfig {
	cfg := defaultConfig()
	if file := ctx.GlobalString(utils.ConfigFileFlag.Name); file != "" {
		if err := loadConfig(file, &cfg); err != nil {
			utils.Fatalf("%v", err)
		}
	}
	if err := applyFlags(ctx, &cfg); err != nil {
		utils.Fatalf("%v", err)
	}
	return cfg
}

func applyFlags(ctx *cli.Context, cfg *nipsConfig) error {
	if ctx.GlobalIsSet(utils.LogLevelFlag.Name) {
		cfg.LogLevel = ctx.GlobalString(utils.LogLevelFlag.Name)
	}
	if !log.ValidLevel(cfg.LogLevel) {
		return fmt.Errorf("unknown log level %q", cfg.LogLevel)
	}
	if ctx.GlobalIsSet(utils.InitialStateFlag.Name) {
		cfg.Initial = ctx.GlobalString(utils.InitialStateFlag.Name)
	}

	s := &cfg.Search
	if ctx.GlobalIsSet(utils.DepthFlag.Name) {
		s.DepthFirst = true
		s.DepthMax = ctx.GlobalUint(utils.DepthFlag.Name)
	}
	if ctx.GlobalBool(utils.BreadthFirstFlag.Name) {
		s.DepthFirst = false
	}
	if ctx.GlobalIsSet(utils.BufferFlag.Name) {
		s.BufferMB = ctx.GlobalUint64(utils.BufferFlag.Name)
	}
	if ctx.GlobalIsSet(utils.HashEntriesFlag.Name) {
		s.HashEntriesK = ctx.GlobalUint64(utils.HashEntriesFlag.Name)
	}
	if ctx.GlobalIsSet(utils.HashRetriesFlag.Name) {
		s.HashRetries = ctx.GlobalUint64(utils.HashRetriesFlag.Name)
	}
	if ctx.GlobalBool(utils.HexFlag.Name) {
		s.Hex = true
	}
	if ctx.GlobalBool(utils.GraphFlag.Name) {
		s.Graph = true
	}
	if file := ctx.GlobalString(utils.GraphFileFlag.Name); file != "" {
		s.Graph = true
		s.GraphFile = file
	}
	if file := ctx.GlobalString(utils.ReportFlag.Name); file != "" {
		s.Report = file
	}

	sim := &cfg.Simulate
	if ctx.GlobalBool(utils.RandomFlag.Name) {
		sim.Random, sim.Quiet = true, false
	}
	if ctx.GlobalBool(utils.QuietRandomFlag.Name) {
		sim.Random, sim.Quiet = true, true
	}
	if ctx.GlobalIsSet(utils.StatesFlag.Name) {
		sim.StatesK = ctx.GlobalUint64(utils.StatesFlag.Name)
	}
	if ctx.GlobalIsSet(utils.StepsFlag.Name) {
		sim.MaxSteps = ctx.GlobalUint(utils.StepsFlag.Name)
	}
	if ctx.GlobalIsSet(utils.SeedFlag.Name) {
		sim.Seed = ctx.GlobalInt64(utils.SeedFlag.Name)
	}
	if ctx.GlobalIsSet(utils.DataDirFlag.Name) {
		sim.DataDir = ctx.GlobalString(utils.DataDirFlag.Name)
	}

	if ctx.GlobalIsSet(utils.StackMaxFlag.Name) {
		n := ctx.GlobalUint(utils.StackMaxFlag.Name)
		if n == 0 || n > 255 {
			return fmt.Errorf("stack size %d out of range 1..255", n)
		}
		cfg.VM.StackMax = uint8(n)
	}
	if ctx.GlobalBool(utils.KeepTerminatedFlag.Name) {
		cfg.VM.KeepTerminated = true
	}
	if ctx.GlobalBool(utils.DropMonitorBlockedFlag.Name) {
		cfg.VM.DropMonitorBlocked = true
	}

	if ctx.GlobalIsSet(utils.GraphDBFlag.Name) {
		cfg.GraphDB.Dir = ctx.GlobalString(utils.GraphDBFlag.Name)
	}
	if ctx.GlobalIsSet(utils.GraphDBCacheFlag.Name) {
		cfg.GraphDB.Cache = ctx.GlobalInt(utils.GraphDBCacheFlag.Name)
	}
	return cfg.check()
}

// check validates the ranges the command line tool accepts.
func (cfg *nipsConfig) check() error {
	if err := search.CheckBufferMB(cfg.Search.BufferMB); err != nil {
		return err
	}
	if err := search.CheckHash(cfg.Search.HashEntriesK, cfg.Search.HashRetries); err != nil {
		return err
	}
	return search.CheckStatesK(cfg.Simulate.StatesK)
}

func (cfg *nipsConfig) vmConfig() vm.Config {
	return vm.Config{
		StackMax:           cfg.VM.StackMax,
		KeepTerminated:     cfg.VM.KeepTerminated,
		DropMonitorBlocked: cfg.VM.DropMonitorBlocked,
	}
}

func (cfg *nipsConfig) searchConfig() (search.Config, error) {
	sc := search.Config{
		Order:       search.BreadthFirst,
		BufferSize:  cfg.Search.BufferMB << 20,
		HashEntries: cfg.Search.HashEntriesK << 10,
		HashRetries: cfg.Search.HashRetries,
		VM:          cfg.vmConfig(),
	}
	if cfg.Search.DepthFirst {
		sc.Order = search.DepthFirst
		sc.DepthMax = cfg.Search.DepthMax
	}
	if cfg.Initial != "" {
		s, err := utils.ParseState(cfg.Initial)
		if err != nil {
			return sc, err
		}
		sc.Initial = s
	}
	return sc, nil
}

func (cfg *nipsConfig) simConfig() (search.SimConfig, error) {
	sc := search.SimConfig{
		Random:     cfg.Simulate.Random,
		Quiet:      cfg.Simulate.Quiet,
		Hex:        cfg.Search.Hex,
		BufferSize: cfg.Search.BufferMB << 20,
		StatesMax:  int(cfg.Simulate.StatesK << 10),
		MaxSteps:   cfg.Simulate.MaxSteps,
		Seed:       cfg.Simulate.Seed,
		VM:         cfg.vmConfig(),
	}
	if sc.Seed == 0 {
		sc.Seed = time.Now().UnixNano()
	}
	if cfg.Initial != "" {
		s, err := utils.ParseState(cfg.Initial)
		if err != nil {
			return sc, err
		}
		sc.Initial = s
	}
	return sc, nil
}

func dumpConfig(ctx *cli.Context) error {
	cfg := makeConfig(ctx)
	out, err := tomlSettings.Marshal(&cfg)
	if err != nil {
		return err
	}
	io.WriteString(os.Stdout, "# nipsvm "+params.Version+"\n\n")
	os.Stdout.Write(out)
	return nil
}
