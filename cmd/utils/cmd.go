// Package utils contains internal helper functions for the nipsvm command.
package utils

import (
	"context"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/Aurorachain/go-nipsvm/bytecode"
	"github.com/Aurorachain/go-nipsvm/core/state"
	"github.com/Aurorachain/go-nipsvm/log"
	"github.com/Aurorachain/go-nipsvm/params"
	"github.com/pkg/errors"
	"gopkg.in/urfave/cli.v1"
)

// NewApp creates an app with sane defaults.
func NewApp(gitCommit, usage string) *cli.App {
	app := cli.NewApp()
	app.Name = filepath.Base(os.Args[0])
	app.Author = ""
	app.Email = ""
	app.Version = params.VersionWithCommit(gitCommit)
	app.Usage = usage
	return app
}

// Fatalf formats a message to standard error and exits the program.
// The message is also printed to standard output if standard error
// is redirected to a different file.
func Fatalf(format string, args ...interface{}) {
	w := io.MultiWriter(os.Stdout, os.Stderr)
	if runtime.GOOS == "windows" {
		// The SameFile check below doesn't work on Windows.
		// stdout is unlikely to get redirected though, so just print there.
		w = os.Stdout
	} else {
		outf, _ := os.Stdout.Stat()
		errf, _ := os.Stderr.Stat()
		if outf != nil && errf != nil && os.SameFile(outf, errf) {
			w = os.Stderr
		}
	}
	fmt.Fprintf(w, "Fatal: "+format+"\n", args...)
	os.Exit(1)
}

// MigrateFlags sets the global flag from a local flag when it's set.
// This is a temporary function used for migrating old command/flags to the
// new format.
func MigrateFlags(action func(ctx *cli.Context) error) func(*cli.Context) error {
	return func(ctx *cli.Context) error {
		for _, name := range ctx.FlagNames() {
			if ctx.IsSet(name) {
				ctx.GlobalSet(name, ctx.String(name))
			}
		}
		return action(ctx)
	}
}

// InterruptContext returns a context that is canceled on the first
// interrupt. Further interrupts are counted down before the process exits.
func InterruptContext() (context.Context, func()) {
	ctx, cancel := context.WithCancel(context.Background())
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, os.Interrupt)
	go func() {
		if _, ok := <-sigc; !ok {
			return
		}
		log.Info("Got interrupt, stopping search...")
		cancel()
		for i := 3; i > 0; i-- {
			if _, ok := <-sigc; !ok {
				return
			}
			if i > 1 {
				log.Warnf("Already stopping, interrupt %d more times to exit.", i-1)
			}
		}
		os.Exit(1)
	}()
	return ctx, func() {
		signal.Stop(sigc)
		close(sigc)
		cancel()
	}
}

// ModuleArgs returns the bytecode file and optional module name given on
// the command line.
func ModuleArgs(ctx *cli.Context) (file, module string, err error) {
	args := ctx.Args()
	switch len(args) {
	case 1:
		return args[0], "", nil
	case 2:
		return args[0], args[1], nil
	}
	return "", "", errors.New("expected <bytecode file> [<bytecode module>]")
}

// LoadModule loads the module named on the command line.
func LoadModule(ctx *cli.Context) (*bytecode.Module, string, string) {
	file, module, err := ModuleArgs(ctx)
	if err != nil {
		Fatalf("%v", err)
	}
	m, err := bytecode.LoadFile(file, module)
	if err != nil {
		if module != "" {
			Fatalf("could not load bytecode module \"%s\" from file \"%s\": %v", module, file, err)
		}
		Fatalf("could not load bytecode from file \"%s\": %v", file, err)
	}
	log.Infof("loaded module %q from %s (%d bytes of code)", m.Name, file, len(m.Code()))
	return m, file, module
}

// ParseState decodes a state given as hex digits and checks its layout.
func ParseState(s string) (state.State, error) {
	b, err := hex.DecodeString(strings.TrimSpace(s))
	if err != nil {
		return nil, errors.Wrap(err, "malformed hex state")
	}
	if len(b) > params.InitialStateMax {
		return nil, fmt.Errorf("state of %d bytes exceeds %d", len(b), params.InitialStateMax)
	}
	return state.Validate(b)
}
