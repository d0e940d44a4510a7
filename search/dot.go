package search

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/Aurorachain/go-nipsvm/core/state"
	"github.com/Aurorachain/go-nipsvm/core/vm"
)

// GraphName builds the graph name from the bytecode file and module name.
func GraphName(file, module string) string {
	if module == "" {
		return sanitize(file)
	}
	return sanitize(file) + "_" + sanitize(module)
}

// GraphFile returns the default dot file name for a module.
func GraphFile(file, module string) string {
	if module == "" {
		return file + ".dot"
	}
	return file + "_" + module + ".dot"
}

func sanitize(s string) string {
	return strings.Map(func(r rune) rune {
		if r < ' ' || r == '\'' || r == '"' || r == '\\' {
			return '_'
		}
		return r
	}, s)
}

// DotWriter writes the explored state graph in graphviz format.
type DotWriter struct {
	w   *bufio.Writer
	err error
}

// NewDotWriter writes the graph header.
func NewDotWriter(w io.Writer, name string) *DotWriter {
	d := &DotWriter{w: bufio.NewWriter(w)}
	_, d.err = fmt.Fprintf(d.w, "digraph \"%s\" {\n", name)
	return d
}

// Edge implements EdgeSink.
func (d *DotWriter) Edge(from, to state.State, _ *vm.Transition) error {
	if d.err != nil {
		return d.err
	}
	_, d.err = fmt.Fprintf(d.w, "\"%s\" -> \"%s\";\n", state.Format(from, true), state.Format(to, true))
	return d.err
}

// Close writes the closing brace and flushes. The underlying writer is not
// closed.
func (d *DotWriter) Close() error {
	if d.err != nil {
		return d.err
	}
	if _, err := d.w.WriteString("}\n"); err != nil {
		return err
	}
	return d.w.Flush()
}
