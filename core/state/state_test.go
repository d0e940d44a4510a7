package state

import (
	"bytes"
	"strings"
	"testing"

	"github.com/davecgh/go-spew/spew"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitialState(t *testing.T) {
	a := NewArena(64)
	s, err := a.Initial()
	require.NoError(t, err)
	require.Equal(t, []byte{0, 0, 1, 0, 0, 0, 1, 0, 0, 0, 0, 0, 0}, []byte(s[:13]))
	assert.Equal(t, InitialSize, s.Size())
	assert.Equal(t, 1, s.ProcCnt())
	p, ok := s.Process(1)
	require.True(t, ok)
	assert.Equal(t, uint32(0), p.PC())
	assert.False(t, p.Active())
}

func TestArenaExhaustion(t *testing.T) {
	a := NewArena(InitialSize + 3)
	s, err := a.Initial()
	require.NoError(t, err)
	_, err = a.Copy(s)
	assert.Equal(t, ErrOutOfArenaSpace, err)
	assert.Equal(t, InitialSize, a.Used())

	mark := a.Mark()
	_, err = a.Alloc(3)
	require.NoError(t, err)
	a.Release(mark)
	assert.Equal(t, 3, a.Free())
}

// Every mutation must keep the packed size equal to the walked size.
func TestSizeWalkAfterMutations(t *testing.T) {
	a := NewArena(4096)
	s, err := a.Initial()
	require.NoError(t, err)

	s, err = a.ResizeGlobals(s, 5)
	require.NoError(t, err)
	copy(s.Globals(), []byte{1, 2, 3, 4, 5})
	s, err = a.InsertProcess(s, 2, 3)
	require.NoError(t, err)
	s, err = a.InsertChannel(s, 0x0102, 2, 1, 1)
	require.NoError(t, err)
	s, err = a.InsertChannel(s, 0x0101, 0, 2, 3)
	require.NoError(t, err)
	s, err = a.ResizeLocals(s, 2, 6)
	require.NoError(t, err)

	require.Equal(t, len(s), s.Size(), spew.Sdump(s))
	_, err = Validate(s)
	require.NoError(t, err)

	chans := s.Channels()
	require.Len(t, chans, 2)
	assert.Equal(t, uint16(0x0101), chans[0].Chid())
	assert.Equal(t, uint16(0x0102), chans[1].Chid())
	assert.Equal(t, 1, chans[0].Capacity())
	assert.Equal(t, 2, chans[1].Capacity())

	s, err = a.ResizeGlobals(s, 2)
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2}, s.Globals())
	assert.Equal(t, len(s), s.Size())
}

func TestActivateDeactivateRoundTrip(t *testing.T) {
	a := NewArena(4096)
	s, _ := a.Initial()
	s, _ = a.InsertProcess(s, 2, 4)
	p, _ := s.Process(2)
	copy(p.Locals(), []byte{9, 8, 7, 6})
	s, _ = a.InsertChannel(s, 0x0101, 1, 1, 1)
	orig := append(State(nil), s...)

	act, err := a.Activate(s, 2, 4, 0xA5)
	require.NoError(t, err)
	require.Equal(t, len(s)-ProcessHeaderSize+ActiveHeaderSize+4*StackSlotSize, len(act))
	require.Equal(t, len(act), act.Size())

	ap, ok := act.ActiveProcess()
	require.True(t, ok)
	assert.Equal(t, uint8(2), ap.Pid())
	assert.Equal(t, uint32(0xA5), ap.FlagReg())
	assert.Equal(t, 4, ap.StackMax())
	assert.Equal(t, []byte{9, 8, 7, 6}, ap.Locals())
	ap.SetRegister(3, -7)
	ap.SetStackSlot(0, 42)
	ap.SetStackCur(1)
	assert.Equal(t, int32(-7), ap.Register(3))

	back := act.Deactivate()
	assert.True(t, bytes.Equal(orig, back), "deactivate changed state:\n%s\n%s", spew.Sdump(orig), spew.Sdump(back))
	_, ok = back.ActiveProcess()
	assert.False(t, ok)
}

func TestRemoveProcess(t *testing.T) {
	a := NewArena(1024)
	s, _ := a.Initial()
	s, _ = a.InsertProcess(s, 2, 1)
	s, _ = a.InsertProcess(s, 3, 2)
	s, _ = a.InsertChannel(s, 0x0201, 0, 1, 1)

	s = s.RemoveProcess(2)
	require.Equal(t, len(s), s.Size())
	assert.Equal(t, 2, s.ProcCnt())
	_, ok := s.Process(2)
	assert.False(t, ok)
	_, ok = s.Channel(0x0201)
	assert.True(t, ok)
	assert.Equal(t, uint8(3), s.MaxPid())

	same := s.RemoveProcess(42)
	assert.Equal(t, len(s), len(same))
}

func TestInsertChannelErrors(t *testing.T) {
	a := NewArena(1 << 20)
	s, _ := a.Initial()
	s, err := a.InsertChannel(s, 0x0101, 1, 1, 1)
	require.NoError(t, err)
	_, err = a.InsertChannel(s, 0x0101, 1, 1, 1)
	assert.Equal(t, ErrDuplicateChannel, err)

	for i := 2; s.ChanCnt() < 255; i++ {
		s, err = a.InsertChannel(s, uint16(i), 0, 0, 0)
		require.NoError(t, err)
	}
	_, err = a.InsertChannel(s, 0x7FFF, 0, 0, 0)
	assert.Equal(t, ErrTooManyChannels, err)
}

func TestNewChannelID(t *testing.T) {
	a := NewArena(1 << 16)
	s, _ := a.Initial()
	assert.Equal(t, uint16(0x0101), s.NewChannelID(1))
	s, _ = a.InsertChannel(s, 0x0105, 0, 0, 0)
	s, _ = a.InsertChannel(s, 0x0203, 0, 0, 0)
	assert.Equal(t, uint16(0x0106), s.NewChannelID(1))
	assert.Equal(t, uint16(0x0204), s.NewChannelID(2))
	s, _ = a.InsertChannel(s, 0x01FF, 0, 0, 0)
	assert.Equal(t, uint16(0), s.NewChannelID(1))
}

func TestSyncCommAndMonitor(t *testing.T) {
	a := NewArena(1024)
	s, _ := a.Initial()
	s, _ = a.InsertChannel(s, 0x0101, 0, 1, 1)
	assert.False(t, s.SyncComm())
	c, _ := s.Channel(0x0101)
	c.SetCurLen(1)
	assert.True(t, s.SyncComm())

	assert.False(t, s.MonitorTerminated())
	assert.False(t, s.MonitorAcceptingOrTerminated())
	s.SetMonitorPid(1)
	assert.False(t, s.MonitorAccepting())
	p, _ := s.Process(1)
	p.SetFlags(p.Flags() | FlagMonitorAccept)
	assert.True(t, s.MonitorAccepting())
	assert.True(t, s.MonitorAcceptingOrTerminated())
	p.SetMode(ModeTerminated)
	assert.True(t, s.MonitorTerminated())
	assert.Equal(t, 0, s.CountEnabled())
	s.SetMonitorPid(9)
	assert.True(t, s.MonitorTerminated())
}

func TestValidate(t *testing.T) {
	a := NewArena(1024)
	s, _ := a.Initial()
	s, _ = a.InsertChannel(s, 0x0101, 2, 1, 1)
	good := append([]byte(nil), s...)
	_, err := Validate(good)
	require.NoError(t, err)

	bad := [][]byte{
		good[:5],
		good[:len(good)-1],
		append(append([]byte(nil), good...), 0),
		{0, 9, 0, 0, 0, 0, 0},
		{0, 0, 2, 0, 0, 0, 1, 0, 0, 0, 0, 0, 0, 1, 0, 0, 0, 0, 0, 0},
	}
	for i, b := range bad {
		if _, err := Validate(b); err == nil {
			t.Errorf("case %d: malformed state accepted: %x", i, b)
		}
	}
}

func TestFormat(t *testing.T) {
	a := NewArena(1024)
	s, _ := a.Initial()
	s, _ = a.ResizeGlobals(s, 1)
	s.Globals()[0] = 0xAB
	s, _ = a.InsertChannel(s, 0x0101, 2, 2, 3)
	c, _ := s.Channel(0x0101)
	c.SetType(0, -7)
	c.SetType(1, 16)
	copy(c.Message(0), []byte{0xFF, 0x01, 0x02})
	c.SetCurLen(1)

	out := Format(s, false)
	for _, want := range []string{
		"global state excl_pid=0 monitor_pid=0 (size=",
		"  variables: 0xAB\n",
		"  process pid=1 mode=normal pc=0x00000000 (size=7)\n",
		"  channel chid=0x0101=1-1 max_len=2 (size=14)\n",
		"    type: -7 16\n",
		"      1)  -1 258\n",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("Format output misses %q:\n%s", want, out)
		}
	}
	dot := Format(s, true)
	assert.True(t, strings.HasSuffix(strings.Split(dot, "\n")[0], DotLineEnd))
}
