package bytecode

import (
	"bytes"
	"encoding/binary"
	"io"
)

type encoder struct {
	bytes.Buffer
}

func (e *encoder) u8(v uint8)   { e.WriteByte(v) }
func (e *encoder) u16(v uint16) { binary.Write(&e.Buffer, binary.BigEndian, v) }
func (e *encoder) u32(v uint32) { binary.Write(&e.Buffer, binary.BigEndian, v) }

func (e *encoder) str(s string) {
	e.u16(uint16(len(s) + 1))
	e.WriteString(s)
	e.WriteByte(0)
}

// part writes a part header followed by body.
func (e *encoder) part(typ string, body []byte) {
	e.WriteString(typ)
	e.u32(uint32(len(body)))
	e.Write(body)
}

// WriteTo writes m as a single module bytecode file.
func (m *Module) WriteTo(w io.Writer) (int64, error) {
	var mod encoder
	mod.str(m.Name)

	parts := 2
	var body encoder
	body.u32(m.ModFlags)
	mod.u16(0) // part count, patched below
	mod.part("modf", body.Bytes())
	mod.part("bc  ", m.code)

	if len(m.flags) > 0 {
		body.Reset()
		body.u16(uint16(len(m.flags)))
		for _, f := range m.flags {
			body.u32(f.Addr)
			body.u32(f.Flags)
		}
		mod.part("flag", body.Bytes())
		parts++
	}
	if len(m.strings) > 0 {
		body.Reset()
		body.u16(uint16(len(m.strings)))
		for _, s := range m.strings {
			body.str(s)
		}
		mod.part("str ", body.Bytes())
		parts++
	}
	if len(m.srcLocs) > 0 {
		body.Reset()
		body.u16(uint16(len(m.srcLocs)))
		for _, l := range m.srcLocs {
			body.u32(l.Addr)
			body.u32(uint32(l.Line))
			body.u32(uint32(l.Col))
		}
		mod.part("sloc", body.Bytes())
		parts++
	}
	if len(m.structInfos) > 0 {
		body.Reset()
		body.u16(uint16(len(m.structInfos)))
		for _, si := range m.structInfos {
			body.u32(si.Addr)
			body.u8(si.Code)
			body.str(si.Type)
			body.str(si.Name)
		}
		mod.part("stin", body.Bytes())
		parts++
	}
	if len(m.scc.Types) > 0 || len(m.scc.Map) > 0 {
		body.Reset()
		body.u16(uint16(len(m.scc.Types)))
		for _, t := range m.scc.Types {
			body.u8(t)
		}
		body.u16(uint16(len(m.scc.Map)))
		for _, e := range m.scc.Map {
			body.u32(e.Addr)
			body.u32(e.ID)
		}
		mod.part("scc ", body.Bytes())
		parts++
	}
	raw := mod.Bytes()
	nameEnd := 2 + len(m.Name) + 1
	binary.BigEndian.PutUint16(raw[nameEnd:], uint16(parts))

	var file encoder
	file.WriteString(Magic)
	file.u16(1)
	file.part("mod ", raw)
	return file.WriteTo(w)
}
