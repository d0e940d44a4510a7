package bytecode

import (
	"encoding/binary"
	"fmt"
	"math"
)

type fixup struct {
	at    uint32
	label string
	abs   bool
}

// Builder assembles a module in memory. Relative operands are resolved
// against the address behind the operand, which is where the VM stands
// when it applies them.
type Builder struct {
	name     string
	modFlags uint32
	code     []byte
	labels   map[string]uint32
	fixups   []fixup
	flags    map[uint32]uint32
	strings  []string
	srcLocs  []SourceLoc
	scc      SCCInfo
}

func NewBuilder(name string) *Builder {
	return &Builder{
		name:   name,
		labels: make(map[string]uint32),
		flags:  make(map[uint32]uint32),
		scc:    SCCInfo{Weak: true},
	}
}

// Addr returns the address of the next emitted byte.
func (b *Builder) Addr() uint32 { return uint32(len(b.code)) }

// Label names the current address.
func (b *Builder) Label(name string) *Builder {
	b.labels[name] = b.Addr()
	return b
}

// Emit appends raw bytes, usually an opcode and its byte operands.
func (b *Builder) Emit(bs ...byte) *Builder {
	b.code = append(b.code, bs...)
	return b
}

func (b *Builder) Emit16(v uint16) *Builder {
	b.code = append(b.code, byte(v>>8), byte(v))
	return b
}

func (b *Builder) Emit32(v uint32) *Builder {
	b.code = append(b.code, byte(v>>24), byte(v>>16), byte(v>>8), byte(v))
	return b
}

// Rel emits a 16 bit operand relative to the end of the operand.
func (b *Builder) Rel(label string) *Builder {
	b.fixups = append(b.fixups, fixup{at: b.Addr(), label: label})
	return b.Emit16(0)
}

// Abs emits a 32 bit absolute address operand.
func (b *Builder) Abs(label string) *Builder {
	b.fixups = append(b.fixups, fixup{at: b.Addr(), label: label, abs: true})
	return b.Emit32(0)
}

// Flag adds flags to the current address.
func (b *Builder) Flag(flags uint32) *Builder {
	b.flags[b.Addr()] |= flags
	return b
}

// AddString adds s to the string table and returns its index.
func (b *Builder) AddString(s string) uint16 {
	b.strings = append(b.strings, s)
	return uint16(len(b.strings) - 1)
}

// Loc records a source location for the current address.
func (b *Builder) Loc(line, col int64) *Builder {
	b.srcLocs = append(b.srcLocs, SourceLoc{Addr: b.Addr(), Line: line, Col: col})
	return b
}

// Monitor marks the module as containing a monitor process.
func (b *Builder) Monitor() *Builder {
	b.modFlags |= ModFlagMonitor
	return b
}

// SCC records the SCC id of the current address. typ is the type of the
// component.
func (b *Builder) SCC(id uint32, typ uint8) *Builder {
	for uint32(len(b.scc.Types)) <= id {
		b.scc.Types = append(b.scc.Types, SCCNonAccepting)
	}
	b.scc.Types[id] = typ
	if typ == SCCPartiallyAccepting {
		b.scc.Weak = false
	}
	b.scc.Map = append(b.scc.Map, SCCEntry{Addr: b.Addr(), ID: id})
	return b
}

// Build resolves all label references and returns the module.
func (b *Builder) Build() (*Module, error) {
	code := append([]byte(nil), b.code...)
	for _, f := range b.fixups {
		target, ok := b.labels[f.label]
		if !ok {
			return nil, fmt.Errorf("undefined label %q", f.label)
		}
		if f.abs {
			binary.BigEndian.PutUint32(code[f.at:], target)
			continue
		}
		rel := int64(target) - int64(f.at+2)
		if rel < math.MinInt16 || rel > math.MaxInt16 {
			return nil, fmt.Errorf("label %q out of range at 0x%08X", f.label, f.at)
		}
		binary.BigEndian.PutUint16(code[f.at:], uint16(int16(rel)))
	}
	m := &Module{
		Name:     b.name,
		ModFlags: b.modFlags,
		code:     code,
		strings:  append([]string(nil), b.strings...),
		srcLocs:  append([]SourceLoc(nil), b.srcLocs...),
		scc: SCCInfo{
			Types: append([]uint8(nil), b.scc.Types...),
			Map:   append([]SCCEntry(nil), b.scc.Map...),
			Weak:  b.scc.Weak,
		},
	}
	for addr, flags := range b.flags {
		m.flags = append(m.flags, FlagEntry{Addr: addr, Flags: flags})
	}
	m.init()
	return m, nil
}
