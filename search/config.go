package search

import (
	"fmt"
	"io"
	"time"

	"github.com/Aurorachain/go-nipsvm/core/state"
	"github.com/Aurorachain/go-nipsvm/core/vm"
	"github.com/Aurorachain/go-nipsvm/event"
	"github.com/Aurorachain/go-nipsvm/params"
)

// Order selects the exploration order.
type Order int

const (
	BreadthFirst Order = iota
	DepthFirst
)

func (o Order) String() string {
	if o == DepthFirst {
		return "depth-first"
	}
	return "breadth-first"
}

// Config of a state space search. Zero sizes select the defaults in params.
type Config struct {
	Order    Order
	DepthMax uint // depth-first only

	BufferSize  uint64 // bytes of state memory
	HashEntries uint64
	HashRetries uint64

	// Initial replaces the initial state of the module. It is validated
	// before use.
	Initial state.State

	// Edges receives every transition including those to known states.
	Edges EdgeSink
	// Hex, if set, receives every expanded state and its successors in hex.
	Hex io.Writer

	// Progress, if set, receives a Progress value every ProgressEvery
	// expanded states and once when the search ends.
	Progress      *event.Feed
	ProgressEvery uint64

	VM vm.Config
}

// Progress is sent on Config.Progress while a search runs.
type Progress struct {
	States      uint64
	Transitions uint64
	Depth       uint // reached depth, depth-first only
	BufferUsed  uint64
	Elapsed     time.Duration
	Done        bool
}

func (c *Config) setDefaults() {
	if c.BufferSize == 0 {
		c.BufferSize = params.BufferDefaultMB << 20
	}
	if c.HashEntries == 0 {
		c.HashEntries = params.HashEntriesDefaultK << 10
	}
	if c.HashRetries == 0 {
		c.HashRetries = params.HashRetriesDefault
	}
	if c.ProgressEvery == 0 {
		c.ProgressEvery = params.ProgressInterval
	}
}

// CheckBufferMB validates a state memory size given in megabytes.
func CheckBufferMB(mb uint64) error {
	if mb < params.BufferMinMB || mb > params.BufferMaxMB {
		return fmt.Errorf("buffer size %dMB out of range %d..%d", mb, params.BufferMinMB, params.BufferMaxMB)
	}
	return nil
}

// CheckHash validates hash table parameters, entries in units of 1024.
func CheckHash(entriesK, retries uint64) error {
	if entriesK < params.HashEntriesMinK || entriesK > params.HashEntriesMaxK {
		return fmt.Errorf("hash entries %dk out of range %d..%d", entriesK, params.HashEntriesMinK, params.HashEntriesMaxK)
	}
	if retries < params.HashRetriesMin || retries > params.HashRetriesMax {
		return fmt.Errorf("hash retries %d out of range %d..%d", retries, params.HashRetriesMin, params.HashRetriesMax)
	}
	return nil
}

// CheckStatesK validates the successor buffer of a simulation, in units of
// 1024 entries.
func CheckStatesK(k uint64) error {
	if k < params.SimStatesMinK || k > params.SimStatesMaxK {
		return fmt.Errorf("state count %dk out of range %d..%d", k, params.SimStatesMinK, params.SimStatesMaxK)
	}
	return nil
}
