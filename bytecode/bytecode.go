// Package bytecode holds compiled NIPS modules: the code itself plus the
// tables the VM and the tools consult while running it (per-address flags,
// strings for PRINTS/PRINTV, source locations, structure information and
// the SCC map of the monitor).
package bytecode

import (
	"fmt"
	"sort"

	"github.com/hashicorp/golang-lru"
)

// Per-address flags.
const (
	FlagProgress uint32 = 0x1
	FlagAccept   uint32 = 0x2
)

// Module flags.
const ModFlagMonitor uint32 = 0x1

// SCC types of the monitor automaton.
const (
	SCCNonAccepting       uint8 = 0
	SCCPartiallyAccepting uint8 = 1
	SCCFullyAccepting     uint8 = 2
)

const lookupCacheLimit = 1024

// Handle is what the VM needs from a loaded module.
type Handle interface {
	Code() []byte
	FlagsAt(addr uint32) uint32
	MonitorPresent() bool
	String(idx uint16) (string, bool)
	SourceLocation(addr uint32) SourceLoc
}

type FlagEntry struct {
	Addr  uint32
	Flags uint32
}

// SourceLoc maps a code address to a line and column. Line and Col are -1
// if the module carries no source locations.
type SourceLoc struct {
	Addr uint32
	Line int64
	Col  int64
}

func (l SourceLoc) String() string {
	return fmt.Sprintf("line %d col %d", l.Line, l.Col)
}

// StructInfo describes a structure starting at an address.
type StructInfo struct {
	Addr uint32
	Code uint8
	Type string
	Name string
}

type SCCEntry struct {
	Addr uint32
	ID   uint32
}

// SCCInfo is the SCC decomposition of the monitor. Weak is set unless some
// component is partially accepting.
type SCCInfo struct {
	Types []uint8
	Map   []SCCEntry
	Weak  bool
}

// Module is a loaded bytecode module. It is safe for concurrent reads.
type Module struct {
	Name     string
	ModFlags uint32

	code        []byte
	flags       []FlagEntry
	strings     []string
	srcLocs     []SourceLoc
	structInfos []StructInfo
	scc         SCCInfo

	cache *lru.Cache
}

type cacheKey struct {
	srcLoc bool
	addr   uint32
}

// NewModule wraps code without any tables.
func NewModule(name string, code []byte) *Module {
	m := &Module{Name: name, code: code, scc: SCCInfo{Weak: true}}
	m.init()
	return m
}

func (m *Module) init() {
	m.cache, _ = lru.New(lookupCacheLimit)
	sort.SliceStable(m.flags, func(i, j int) bool { return m.flags[i].Addr < m.flags[j].Addr })
	sort.SliceStable(m.srcLocs, func(i, j int) bool { return m.srcLocs[i].Addr < m.srcLocs[j].Addr })
	sort.SliceStable(m.structInfos, func(i, j int) bool { return m.structInfos[i].Addr < m.structInfos[j].Addr })
	sort.SliceStable(m.scc.Map, func(i, j int) bool { return m.scc.Map[i].Addr < m.scc.Map[j].Addr })
}

func (m *Module) Code() []byte { return m.code }

func (m *Module) MonitorPresent() bool { return m.ModFlags&ModFlagMonitor != 0 }

// FlagsAt returns the flags recorded for addr, 0 if there are none.
func (m *Module) FlagsAt(addr uint32) uint32 {
	key := cacheKey{addr: addr}
	if v, ok := m.cache.Get(key); ok {
		return v.(uint32)
	}
	var flags uint32
	i := sort.Search(len(m.flags), func(i int) bool { return m.flags[i].Addr >= addr })
	if i < len(m.flags) && m.flags[i].Addr == addr {
		flags = m.flags[i].Flags
	}
	m.cache.Add(key, flags)
	return flags
}

// String returns entry idx of the string table.
func (m *Module) String(idx uint16) (string, bool) {
	if int(idx) >= len(m.strings) {
		return "", false
	}
	return m.strings[idx], true
}

// SourceLocation returns the entry for addr or, if there is none, the
// closest entry before it. Addresses before the first entry map to the
// first entry.
func (m *Module) SourceLocation(addr uint32) SourceLoc {
	if len(m.srcLocs) == 0 {
		return SourceLoc{Addr: addr, Line: -1, Col: -1}
	}
	key := cacheKey{srcLoc: true, addr: addr}
	if v, ok := m.cache.Get(key); ok {
		return v.(SourceLoc)
	}
	i := sort.Search(len(m.srcLocs), func(i int) bool { return m.srcLocs[i].Addr > addr })
	if i > 0 {
		i--
	}
	loc := m.srcLocs[i]
	m.cache.Add(key, loc)
	return loc
}

// StructInfos returns all structure information records at addr.
func (m *Module) StructInfos(addr uint32) []StructInfo {
	i := sort.Search(len(m.structInfos), func(i int) bool { return m.structInfos[i].Addr >= addr })
	j := i
	for j < len(m.structInfos) && m.structInfos[j].Addr == addr {
		j++
	}
	return m.structInfos[i:j]
}

// SCCAt returns the SCC id of the monitor location at addr.
func (m *Module) SCCAt(addr uint32) (uint32, bool) {
	i := sort.Search(len(m.scc.Map), func(i int) bool { return m.scc.Map[i].Addr >= addr })
	if i < len(m.scc.Map) && m.scc.Map[i].Addr == addr {
		return m.scc.Map[i].ID, true
	}
	return 0, false
}

// SCCType returns the type of SCC id.
func (m *Module) SCCType(id uint32) (uint8, bool) {
	if id >= uint32(len(m.scc.Types)) {
		return 0, false
	}
	return m.scc.Types[id], true
}

// WeakGraph reports whether the monitor has no partially accepting SCC.
func (m *Module) WeakGraph() bool { return m.scc.Weak }

// Strings returns the string table.
func (m *Module) Strings() []string { return m.strings }
