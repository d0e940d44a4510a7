package bytecode

import (
	"bytes"
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testModule(t *testing.T) *Module {
	b := NewBuilder("main")
	b.Monitor()
	b.Loc(1, 1).Emit(0x00)
	b.Label("loop").Flag(FlagProgress).Loc(2, 5).Emit(0x48).Rel("end")
	b.Flag(FlagAccept).SCC(0, SCCFullyAccepting).Emit(0x4B).Abs("loop")
	b.Loc(7, 3).Label("end").SCC(1, SCCNonAccepting).Emit(0x00)
	b.AddString("hello %d\n")
	b.AddString("bye")
	m, err := b.Build()
	require.NoError(t, err)
	return m
}

func TestBuilderResolvesLabels(t *testing.T) {
	m := testModule(t)
	assert.Equal(t, []byte{0x00, 0x48, 0x00, 0x05, 0x4B, 0x00, 0x00, 0x00, 0x01, 0x00}, m.Code())

	_, err := NewBuilder("x").Emit(0x48).Rel("nowhere").Build()
	assert.Error(t, err)
}

func TestLookups(t *testing.T) {
	m := testModule(t)
	assert.True(t, m.MonitorPresent())
	assert.Equal(t, FlagProgress, m.FlagsAt(1))
	assert.Equal(t, FlagAccept, m.FlagsAt(4))
	assert.Equal(t, uint32(0), m.FlagsAt(2))
	// cached answers stay the same
	assert.Equal(t, FlagProgress, m.FlagsAt(1))

	cases := []struct {
		addr uint32
		line int64
	}{
		{0, 1}, {1, 2}, {3, 2}, {8, 2}, {9, 7}, {100, 7},
	}
	for _, c := range cases {
		if loc := m.SourceLocation(c.addr); loc.Line != c.line {
			t.Errorf("addr %d: have line %d, want %d", c.addr, loc.Line, c.line)
		}
	}

	s, ok := m.String(1)
	assert.True(t, ok)
	assert.Equal(t, "bye", s)
	_, ok = m.String(2)
	assert.False(t, ok)

	id, ok := m.SCCAt(4)
	require.True(t, ok)
	typ, ok := m.SCCType(id)
	require.True(t, ok)
	assert.Equal(t, SCCFullyAccepting, typ)
	_, ok = m.SCCAt(5)
	assert.False(t, ok)
	assert.True(t, m.WeakGraph())
}

func TestSourceLocationWithoutTable(t *testing.T) {
	m := NewModule("bare", []byte{0})
	assert.Equal(t, SourceLoc{Addr: 42, Line: -1, Col: -1}, m.SourceLocation(42))
	assert.False(t, m.MonitorPresent())
}

func TestLoadWrittenModule(t *testing.T) {
	m := testModule(t)
	var buf bytes.Buffer
	_, err := m.WriteTo(&buf)
	require.NoError(t, err)

	loaded, err := Load(bytes.NewReader(buf.Bytes()), "")
	require.NoError(t, err)
	assert.Equal(t, "main", loaded.Name)
	assert.Equal(t, m.Code(), loaded.Code())
	assert.Equal(t, m.ModFlags, loaded.ModFlags)
	assert.Equal(t, FlagAccept, loaded.FlagsAt(4))
	assert.Equal(t, int64(7), loaded.SourceLocation(9).Line)
	assert.Equal(t, m.Strings(), loaded.Strings())
	id, ok := loaded.SCCAt(9)
	assert.True(t, ok)
	assert.Equal(t, uint32(1), id)

	_, err = Load(bytes.NewReader(buf.Bytes()), "other")
	assert.Equal(t, ErrModuleNotFound, errors.Cause(err))
}

func TestLoadFile(t *testing.T) {
	dir, err := ioutil.TempDir("", "bytecode")
	require.NoError(t, err)
	defer os.RemoveAll(dir)

	path := filepath.Join(dir, "model.b")
	f, err := os.Create(path)
	require.NoError(t, err)
	_, err = testModule(t).WriteTo(f)
	require.NoError(t, err)
	require.NoError(t, f.Close())

	m, err := LoadFile(path, "main")
	require.NoError(t, err)
	assert.Len(t, m.Code(), 10)

	_, err = LoadFile(filepath.Join(dir, "missing.b"), "")
	assert.Error(t, err)
}

func TestLoadInvalid(t *testing.T) {
	var buf bytes.Buffer
	_, err := testModule(t).WriteTo(&buf)
	require.NoError(t, err)
	good := buf.Bytes()

	// duplicate bytecode part
	var mod encoder
	mod.str("dup")
	mod.u16(2)
	mod.part("bc  ", []byte{0})
	mod.part("bc  ", []byte{0})
	var file encoder
	file.WriteString(Magic)
	file.u16(1)
	file.part("mod ", mod.Bytes())

	// module without bytecode, preceded by an unknown section
	var empty encoder
	empty.str("empty")
	empty.u16(1)
	empty.part("xxxx", []byte{1, 2, 3})
	var file2 encoder
	file2.WriteString(Magic)
	file2.u16(2)
	file2.part("junk", []byte{9, 9})
	file2.part("mod ", empty.Bytes())

	cases := []struct {
		data []byte
		want error
	}{
		{[]byte("NIPS v1 \x00\x00"), ErrInvalidFormat},
		{good[:len(good)-3], ErrInvalidFormat},
		{file.Bytes(), ErrInvalidFormat},
		{file2.Bytes(), ErrModuleNotFound},
		{[]byte(Magic + "\x00\x00"), ErrModuleNotFound},
	}
	for i, c := range cases {
		_, err := Load(bytes.NewReader(c.data), "")
		if errors.Cause(err) != c.want {
			t.Errorf("case %d: have %v, want %v", i, err, c.want)
		}
	}
}
