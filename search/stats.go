package search

import (
	"fmt"
	"io"
	"time"

	"github.com/Aurorachain/go-nipsvm/core/hashtab"
	"gopkg.in/yaml.v3"
)

const mb = 1048576.0

// Stats of a finished or aborted search.
type Stats struct {
	Order        Order         `yaml:"-"`
	DepthMax     uint          `yaml:"depth_max,omitempty"`
	Aborted      bool          `yaml:"aborted"`
	Error        string        `yaml:"error,omitempty"`
	States       uint64        `yaml:"states"`
	Transitions  uint64        `yaml:"transitions"`
	AtomicSteps  uint64        `yaml:"atomic_steps"`
	MaxStateSize int           `yaml:"max_state_size"`
	DepthReached uint          `yaml:"depth_reached,omitempty"`
	Duration     time.Duration `yaml:"duration"`
	BufferSize   uint64        `yaml:"buffer_size"`
	BufferUsed   uint64        `yaml:"buffer_used"`
	Table        hashtab.Stats `yaml:"table"`
}

// TimePerState returns the average time spent per visited state.
func (s *Stats) TimePerState() time.Duration {
	if s.States == 0 {
		return 0
	}
	return s.Duration / time.Duration(s.States)
}

func percent(part, total uint64) float64 {
	if total == 0 {
		return 0
	}
	return 100 * float64(part) / float64(total)
}

// WriteReport prints the statistics in the traditional text layout.
func (s *Stats) WriteReport(w io.Writer) error {
	verdict := "completed"
	if s.Aborted {
		verdict = "aborted"
	}
	var (
		err error
		p   = func(format string, args ...interface{}) {
			if err == nil {
				_, err = fmt.Fprintf(w, format, args...)
			}
		}
	)
	p("\n")
	if s.Order == BreadthFirst {
		p("breadth-first search %s:\n", verdict)
	} else {
		p("depth-first search up to depth %d %s:\n", s.DepthMax, verdict)
	}
	p("          states visited: %d\n", s.States)
	p("     transitions visited: %d\n", s.Transitions)
	p("            atomic steps: %d\n", s.AtomicSteps)
	p("      maximum state size: %d\n", s.MaxStateSize)
	if s.Order == DepthFirst {
		p("           reached depth: %d\n", s.DepthReached)
	}
	p("              total time: %d.%06d s\n", s.Duration/time.Second, (s.Duration%time.Second)/time.Microsecond)
	p("          time per state: %f us\n", float64(s.TimePerState())/float64(time.Microsecond))
	p("\n")
	p("state memory statistics:\n")
	p("                   total: %0.2fMB\n", float64(s.BufferSize)/mb)
	p("                    used: %0.2fMB (%0.1f%%)\n", float64(s.BufferUsed)/mb, percent(s.BufferUsed, s.BufferSize))
	p("\n")
	p("state table statistics:\n")
	p("            memory usage: %0.2fMB\n", float64(s.Table.MemorySize)/mb)
	p("  buckets used/available: %d/%d (%0.1f%%)\n", s.Table.EntriesUsed, s.Table.EntriesAvailable,
		percent(s.Table.EntriesUsed, s.Table.EntriesAvailable))
	p("     max. no. of retries: %d\n", s.Table.MaxRetries)
	p("    conflicts (resolved): %d\n", s.Table.Conflicts)
	return err
}

type yamlStats struct {
	Order string `yaml:"order"`
	Stats `yaml:",inline"`
}

// WriteYAML writes the statistics as a YAML document.
func (s *Stats) WriteYAML(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(yamlStats{Order: s.Order.String(), Stats: *s}); err != nil {
		return err
	}
	return enc.Close()
}
