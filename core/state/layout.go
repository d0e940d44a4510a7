package state

import "encoding/binary"

// Header sizes of the packed representation.
const (
	GlobalHeaderSize  = 6
	ProcessHeaderSize = 7
	ActiveHeaderSize  = 45
	ChannelHeaderSize = 6
	StackSlotSize     = 4
)

// Process flags.
const (
	ModeMask       = 0x03
	ModeNormal     = 0x00
	ModeAtomic     = 0x01
	ModeInvisible  = 0x02
	ModeTerminated = 0x03

	FlagMonitorAccept = 0x10
	FlagActive        = 0x80
)

// Number of flag bits in the flag register.
const FlagRegBits = 32

var be = binary.BigEndian

// State is a packed global system state:
//
//	gvar_sz u16 | proc_cnt u8 | excl_pid u8 | monitor_pid u8 | chan_cnt u8
//	globals | processes | channels (ascending chid)
//
// Published states are immutable; only the scheduler edits states it
// allocated itself.
type State []byte

func (s State) GvarSz() int          { return int(be.Uint16(s[0:])) }
func (s State) ProcCnt() int         { return int(s[2]) }
func (s State) ExclPid() uint8       { return s[3] }
func (s State) SetExclPid(pid uint8) { s[3] = pid }
func (s State) MonitorPid() uint8    { return s[4] }
func (s State) SetMonitorPid(p uint8) {
	s[4] = p
}
func (s State) ChanCnt() int { return int(s[5]) }

// Globals returns the global variable bytes.
func (s State) Globals() []byte {
	return s[GlobalHeaderSize : GlobalHeaderSize+s.GvarSz()]
}

func (s State) processesOffset() int {
	return GlobalHeaderSize + s.GvarSz()
}

// channelsOffset walks the processes to the first channel header.
func (s State) channelsOffset() int {
	off := s.processesOffset()
	for i := 0; i < s.ProcCnt(); i++ {
		off += processSize(s[off:])
	}
	return off
}

// Size walks the state and returns its packed length.
func (s State) Size() int {
	off := s.channelsOffset()
	for i := 0; i < s.ChanCnt(); i++ {
		off += channelSize(s[off:])
	}
	return off
}

// Process is a view of one process inside a state. Writes go through to the
// underlying state.
type Process []byte

func processSize(b []byte) int {
	if b[1]&FlagActive != 0 {
		return ActiveHeaderSize + int(b[2]) + int(b[44])*StackSlotSize
	}
	return ProcessHeaderSize + int(b[2])
}

func (p Process) Pid() uint8        { return p[0] }
func (p Process) Flags() uint8      { return p[1] }
func (p Process) SetFlags(f uint8)  { p[1] = f }
func (p Process) Mode() uint8       { return p[1] & ModeMask }
func (p Process) Active() bool      { return p[1]&FlagActive != 0 }
func (p Process) Terminated() bool  { return p.Mode() == ModeTerminated }
func (p Process) LvarSz() int       { return int(p[2]) }
func (p Process) PC() uint32        { return be.Uint32(p[3:]) }
func (p Process) SetPC(pc uint32)   { be.PutUint32(p[3:], pc) }
func (p Process) Size() int         { return processSize(p) }
func (p Process) headerSize() int {
	if p.Active() {
		return ActiveHeaderSize
	}
	return ProcessHeaderSize
}

// SetMode replaces the mode bits.
func (p Process) SetMode(mode uint8) {
	p[1] = p[1]&^ModeMask | mode&ModeMask
}

// Locals returns the local variable bytes.
func (p Process) Locals() []byte {
	h := p.headerSize()
	return p[h : h+p.LvarSz()]
}

// The accessors below are only valid on an active process.

func (p Process) Register(i int) int32        { return int32(be.Uint32(p[7+4*(i&7):])) }
func (p Process) SetRegister(i int, v int32)  { be.PutUint32(p[7+4*(i&7):], uint32(v)) }
func (p Process) FlagReg() uint32             { return be.Uint32(p[39:]) }
func (p Process) SetFlagReg(f uint32)         { be.PutUint32(p[39:], f) }
func (p Process) StackCur() int               { return int(p[43]) }
func (p Process) SetStackCur(n int)           { p[43] = uint8(n) }
func (p Process) StackMax() int               { return int(p[44]) }
func (p Process) StackSlot(i int) int32       { return int32(be.Uint32(p[p.stackOffset()+4*i:])) }
func (p Process) SetStackSlot(i int, v int32) { be.PutUint32(p[p.stackOffset()+4*i:], uint32(v)) }

func (p Process) stackOffset() int {
	return ActiveHeaderSize + p.LvarSz()
}

// Channel is a view of one channel inside a state.
type Channel []byte

func channelSize(b []byte) int {
	return ChannelHeaderSize + int(b[5]) + capacity(b[2])*int(b[4])
}

func capacity(maxLen uint8) int {
	if maxLen == 0 {
		return 1
	}
	return int(maxLen)
}

func (c Channel) Chid() uint16     { return be.Uint16(c[0:]) }
func (c Channel) MaxLen() int      { return int(c[2]) }
func (c Channel) CurLen() int      { return int(c[3]) }
func (c Channel) SetCurLen(n int)  { c[3] = uint8(n) }
func (c Channel) MsgLen() int      { return int(c[4]) }
func (c Channel) TypeLen() int     { return int(c[5]) }
func (c Channel) Type(i int) int8  { return int8(c[ChannelHeaderSize+i]) }
func (c Channel) SetType(i int, t int8) {
	c[ChannelHeaderSize+i] = uint8(t)
}
func (c Channel) Size() int { return channelSize(c) }

// Capacity is the number of message slots, max(1, max_len); the extra slot
// of a rendezvous channel holds the message in flight.
func (c Channel) Capacity() int { return capacity(c[2]) }

// Message returns the bytes of message slot i, oldest first.
func (c Channel) Message(i int) []byte {
	off := ChannelHeaderSize + c.TypeLen() + i*c.MsgLen()
	return c[off : off+c.MsgLen()]
}

// Messages returns all message slots.
func (c Channel) Messages() []byte {
	off := ChannelHeaderSize + c.TypeLen()
	return c[off : off+c.Capacity()*c.MsgLen()]
}

// FieldWidth returns the byte width of a message field declared with the
// signed bit count t (negative for signed values).
func FieldWidth(t int8) int {
	switch {
	case t < 0 && t >= -7, t >= 0 && t <= 8:
		return 1
	case t < 0 && t >= -15, t >= 0 && t <= 16:
		return 2
	}
	return 4
}

// Processes returns views of all processes in order.
func (s State) Processes() []Process {
	procs := make([]Process, 0, s.ProcCnt())
	off := s.processesOffset()
	for i := 0; i < s.ProcCnt(); i++ {
		n := processSize(s[off:])
		procs = append(procs, Process(s[off:off+n]))
		off += n
	}
	return procs
}

// processOffset returns the offset of the process with the given pid or -1.
func (s State) processOffset(pid uint8) int {
	off := s.processesOffset()
	for i := 0; i < s.ProcCnt(); i++ {
		if s[off] == pid {
			return off
		}
		off += processSize(s[off:])
	}
	return -1
}

// Process returns the process with the given pid.
func (s State) Process(pid uint8) (Process, bool) {
	off := s.processOffset(pid)
	if off < 0 {
		return nil, false
	}
	return Process(s[off : off+processSize(s[off:])]), true
}

func (s State) activeOffset() int {
	off := s.processesOffset()
	for i := 0; i < s.ProcCnt(); i++ {
		if s[off+1]&FlagActive != 0 {
			return off
		}
		off += processSize(s[off:])
	}
	return -1
}

// ActiveProcess returns the first active process.
func (s State) ActiveProcess() (Process, bool) {
	off := s.activeOffset()
	if off < 0 {
		return nil, false
	}
	return Process(s[off : off+processSize(s[off:])]), true
}

// MaxPid returns the largest pid in use, 0 without processes.
func (s State) MaxPid() uint8 {
	var max uint8
	off := s.processesOffset()
	for i := 0; i < s.ProcCnt(); i++ {
		if s[off] > max {
			max = s[off]
		}
		off += processSize(s[off:])
	}
	return max
}

// Channels returns views of all channels in ascending chid order.
func (s State) Channels() []Channel {
	chans := make([]Channel, 0, s.ChanCnt())
	off := s.channelsOffset()
	for i := 0; i < s.ChanCnt(); i++ {
		n := channelSize(s[off:])
		chans = append(chans, Channel(s[off:off+n]))
		off += n
	}
	return chans
}

// Channel returns the channel with the given id.
func (s State) Channel(chid uint16) (Channel, bool) {
	off := s.channelsOffset()
	for i := 0; i < s.ChanCnt(); i++ {
		n := channelSize(s[off:])
		if be.Uint16(s[off:]) == chid {
			return Channel(s[off : off+n]), true
		}
		off += n
	}
	return nil, false
}

// NewChannelID returns pid<<8 | (highest suffix used by pid)+1, or 0 when
// all 255 suffixes are taken.
func (s State) NewChannelID(pid uint8) uint16 {
	begin := uint16(pid) << 8
	var maxEnd uint16
	off := s.channelsOffset()
	for i := 0; i < s.ChanCnt(); i++ {
		chid := be.Uint16(s[off:])
		if chid&0xFF00 == begin && chid&0xFF > maxEnd {
			maxEnd = chid & 0xFF
		}
		off += channelSize(s[off:])
	}
	if maxEnd+1 > 0xFF {
		return 0
	}
	return begin | (maxEnd + 1)
}

// SyncComm reports whether a rendezvous is in flight, i.e. some channel
// holds more messages than its max_len.
func (s State) SyncComm() bool {
	off := s.channelsOffset()
	for i := 0; i < s.ChanCnt(); i++ {
		if s[off+3] > s[off+2] {
			return true
		}
		off += channelSize(s[off:])
	}
	return false
}

// EnabledProcesses returns the processes that are not terminated.
func (s State) EnabledProcesses() []Process {
	var procs []Process
	for _, p := range s.Processes() {
		if !p.Terminated() {
			procs = append(procs, p)
		}
	}
	return procs
}

// CountEnabled returns the number of processes that are not terminated.
func (s State) CountEnabled() int {
	cnt := 0
	off := s.processesOffset()
	for i := 0; i < s.ProcCnt(); i++ {
		if s[off+1]&ModeMask != ModeTerminated {
			cnt++
		}
		off += processSize(s[off:])
	}
	return cnt
}

// MonitorAccepting reports whether the monitor exists and sits in an
// accepting location.
func (s State) MonitorAccepting() bool {
	p, ok := s.Process(s.MonitorPid())
	return ok && p.Flags()&FlagMonitorAccept != 0
}

// MonitorTerminated reports whether a monitor was installed and is gone or
// terminated.
func (s State) MonitorTerminated() bool {
	pid := s.MonitorPid()
	if pid == 0 {
		return false
	}
	p, ok := s.Process(pid)
	return !ok || p.Terminated()
}

// MonitorAcceptingOrTerminated combines both monitor predicates.
func (s State) MonitorAcceptingOrTerminated() bool {
	pid := s.MonitorPid()
	if pid == 0 {
		return false
	}
	p, ok := s.Process(pid)
	return !ok || p.Terminated() || p.Flags()&FlagMonitorAccept != 0
}
