package bytecode

import (
	"bytes"
	"encoding/binary"
	"io"
	"io/ioutil"

	"github.com/pkg/errors"
)

// Magic starts every bytecode file.
const Magic = "NIPS v2 "

var (
	ErrInvalidFormat  = errors.New("invalid bytecode format")
	ErrModuleNotFound = errors.New("bytecode module not found")
)

// LoadFile loads module name from a bytecode file. An empty name selects
// the first module of the file.
func LoadFile(path, name string) (*Module, error) {
	data, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "could not read bytecode")
	}
	m, err := Load(bytes.NewReader(data), name)
	if err != nil {
		return nil, errors.Wrapf(err, "could not load %q", path)
	}
	return m, nil
}

// Load reads module name from r. An empty name selects the first module.
func Load(r io.Reader, name string) (*Module, error) {
	d := &decoder{r: r}
	magic := d.bytes(len(Magic))
	if d.err != nil || string(magic) != Magic {
		return nil, errors.Wrap(ErrInvalidFormat, "bad magic")
	}
	secCnt := d.u16()
	for i := 0; i < int(secCnt) && d.err == nil; i++ {
		typ := string(d.bytes(4))
		size := d.u32()
		if d.err != nil {
			break
		}
		if typ != "mod " {
			d.skip(size)
			continue
		}
		sec := &decoder{r: io.LimitReader(r, int64(size))}
		modName := sec.str()
		if sec.err != nil {
			return nil, errors.Wrap(sec.err, "module name")
		}
		if name != "" && modName != name {
			d.skip(size - sec.n)
			continue
		}
		m, err := sec.module()
		if err != nil {
			return nil, errors.Wrapf(err, "module %q", modName)
		}
		m.Name = modName
		m.init()
		return m, nil
	}
	if d.err != nil {
		return nil, d.err
	}
	return nil, errors.Wrapf(ErrModuleNotFound, "module %q", name)
}

// decoder reads big-endian fields and remembers the first error.
type decoder struct {
	r   io.Reader
	n   uint32
	err error
}

func (d *decoder) bytes(n int) []byte {
	if d.err != nil {
		return nil
	}
	b := make([]byte, n)
	if _, err := io.ReadFull(d.r, b); err != nil {
		d.err = errors.Wrap(ErrInvalidFormat, "unexpected end of data")
		return nil
	}
	d.n += uint32(n)
	return b
}

func (d *decoder) skip(n uint32) {
	if d.err != nil {
		return
	}
	if _, err := io.CopyN(ioutil.Discard, d.r, int64(n)); err != nil {
		d.err = errors.Wrap(ErrInvalidFormat, "unexpected end of data")
		return
	}
	d.n += n
}

func (d *decoder) u8() uint8 {
	b := d.bytes(1)
	if b == nil {
		return 0
	}
	return b[0]
}

func (d *decoder) u16() uint16 {
	b := d.bytes(2)
	if b == nil {
		return 0
	}
	return binary.BigEndian.Uint16(b)
}

func (d *decoder) u32() uint32 {
	b := d.bytes(4)
	if b == nil {
		return 0
	}
	return binary.BigEndian.Uint32(b)
}

// str reads a size prefixed, NUL terminated string. Empty strings are
// invalid.
func (d *decoder) str() string {
	n := d.u16()
	if d.err != nil {
		return ""
	}
	if n == 0 {
		d.err = errors.Wrap(ErrInvalidFormat, "empty string")
		return ""
	}
	b := d.bytes(int(n))
	if b == nil {
		return ""
	}
	if i := bytes.IndexByte(b, 0); i >= 0 {
		b = b[:i]
	} else {
		b = b[:n-1]
	}
	return string(b)
}

func (d *decoder) module() (*Module, error) {
	m := &Module{scc: SCCInfo{Weak: true}}
	var seen = make(map[string]bool)
	partCnt := d.u16()
	for i := 0; i < int(partCnt) && d.err == nil; i++ {
		typ := string(d.bytes(4))
		size := d.u32()
		if d.err != nil {
			break
		}
		switch typ {
		case "bc  ", "flag", "str ", "sloc", "stin", "scc ":
			if seen[typ] {
				return nil, errors.Wrapf(ErrInvalidFormat, "duplicate part %q", typ)
			}
			seen[typ] = true
		}
		switch typ {
		case "modf":
			m.ModFlags |= d.u32()
		case "bc  ":
			m.code = d.bytes(int(size))
		case "flag":
			cnt := d.u16()
			m.flags = make([]FlagEntry, 0, cnt)
			for j := 0; j < int(cnt) && d.err == nil; j++ {
				m.flags = append(m.flags, FlagEntry{Addr: d.u32(), Flags: d.u32()})
			}
		case "str ":
			cnt := d.u16()
			m.strings = make([]string, 0, cnt)
			for j := 0; j < int(cnt) && d.err == nil; j++ {
				m.strings = append(m.strings, d.str())
			}
		case "sloc":
			cnt := d.u16()
			m.srcLocs = make([]SourceLoc, 0, cnt)
			for j := 0; j < int(cnt) && d.err == nil; j++ {
				addr, line, col := d.u32(), d.u32(), d.u32()
				m.srcLocs = append(m.srcLocs, SourceLoc{Addr: addr, Line: int64(line), Col: int64(col)})
			}
		case "stin":
			cnt := d.u16()
			m.structInfos = make([]StructInfo, 0, cnt)
			for j := 0; j < int(cnt) && d.err == nil; j++ {
				var si StructInfo
				si.Addr = d.u32()
				si.Code = d.u8()
				si.Type = d.str()
				si.Name = d.str()
				m.structInfos = append(m.structInfos, si)
			}
		case "scc ":
			cnt := d.u16()
			m.scc.Types = make([]uint8, 0, cnt)
			for j := 0; j < int(cnt) && d.err == nil; j++ {
				t := d.u8()
				if t == SCCPartiallyAccepting {
					m.scc.Weak = false
				}
				m.scc.Types = append(m.scc.Types, t)
			}
			cnt = d.u16()
			m.scc.Map = make([]SCCEntry, 0, cnt)
			for j := 0; j < int(cnt) && d.err == nil; j++ {
				m.scc.Map = append(m.scc.Map, SCCEntry{Addr: d.u32(), ID: d.u32()})
			}
		default:
			d.skip(size)
		}
	}
	if d.err != nil {
		return nil, d.err
	}
	if !seen["bc  "] {
		return nil, errors.Wrap(ErrModuleNotFound, "no bytecode in module")
	}
	return m, nil
}
