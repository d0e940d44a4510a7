package state

// InitialSize is the size of the initial state.
const InitialSize = GlobalHeaderSize + ProcessHeaderSize

// Initial allocates the initial state: no globals, no channels and a single
// process with pid 1 at pc 0.
func (a *Arena) Initial() (State, error) {
	b, err := a.Alloc(InitialSize)
	if err != nil {
		return nil, err
	}
	b[2] = 1
	b[GlobalHeaderSize] = 1
	return State(b), nil
}

// Copy duplicates s.
func (a *Arena) Copy(s State) (State, error) {
	b, err := a.Alloc(len(s))
	if err != nil {
		return nil, err
	}
	copy(b, s)
	return State(b), nil
}

// ResizeGlobals copies s with gvarSz bytes of globals. Surviving globals keep
// their value, new bytes are zero.
func (a *Arena) ResizeGlobals(s State, gvarSz uint16) (State, error) {
	old := s.GvarSz()
	n := len(s) - old + int(gvarSz)
	b, err := a.Alloc(n)
	if err != nil {
		return nil, err
	}
	copy(b, s[:GlobalHeaderSize])
	be.PutUint16(b, gvarSz)
	keep := old
	if int(gvarSz) < keep {
		keep = int(gvarSz)
	}
	copy(b[GlobalHeaderSize:], s[GlobalHeaderSize:GlobalHeaderSize+keep])
	copy(b[GlobalHeaderSize+int(gvarSz):], s[GlobalHeaderSize+old:])
	return State(b), nil
}

// ResizeLocals copies s with lvarSz bytes of locals for process pid.
func (a *Arena) ResizeLocals(s State, pid uint8, lvarSz uint8) (State, error) {
	off := s.processOffset(pid)
	if off < 0 {
		return nil, ErrNoProcess
	}
	p := Process(s[off:])
	old := p.LvarSz()
	hdr := off + p.headerSize()
	b, err := a.Alloc(len(s) - old + int(lvarSz))
	if err != nil {
		return nil, err
	}
	copy(b, s[:hdr])
	b[off+2] = lvarSz
	keep := old
	if int(lvarSz) < keep {
		keep = int(lvarSz)
	}
	copy(b[hdr:], s[hdr:hdr+keep])
	copy(b[hdr+int(lvarSz):], s[hdr+old:])
	return State(b), nil
}

// Activate copies s with process pid turned into an active process: zeroed
// registers, the given flag register, an empty stack of stackMax slots.
func (a *Arena) Activate(s State, pid uint8, stackMax uint8, flagReg uint32) (State, error) {
	off := s.processOffset(pid)
	if off < 0 {
		return nil, ErrNoProcess
	}
	lvar := int(s[off+2])
	b, err := a.Alloc(len(s) - ProcessHeaderSize + ActiveHeaderSize + int(stackMax)*StackSlotSize)
	if err != nil {
		return nil, err
	}
	copy(b, s[:off+ProcessHeaderSize])
	p := Process(b[off:])
	p[1] |= FlagActive
	p.SetFlagReg(flagReg)
	p[44] = stackMax
	copy(b[off+ActiveHeaderSize:], s[off+ProcessHeaderSize:off+ProcessHeaderSize+lvar])
	rest := off + ActiveHeaderSize + lvar + int(stackMax)*StackSlotSize
	copy(b[rest:], s[off+ProcessHeaderSize+lvar:])
	return State(b), nil
}

// Deactivate turns the active process back into a plain process in place,
// dropping registers and stack. The shrunk state is returned.
func (s State) Deactivate() State {
	off := s.activeOffset()
	if off < 0 {
		return s
	}
	lvar := int(s[off+2])
	stack := int(s[off+44]) * StackSlotSize
	n := s.Size()
	s[off+1] &^= FlagActive
	copy(s[off+ProcessHeaderSize:], s[off+ActiveHeaderSize:off+ActiveHeaderSize+lvar])
	src := off + ActiveHeaderSize + lvar + stack
	copy(s[off+ProcessHeaderSize+lvar:], s[src:n])
	return s[:n-(ActiveHeaderSize-ProcessHeaderSize)-stack]
}

// RemoveProcess splices process pid out of s in place. The shrunk state is
// returned; s is returned unchanged if pid does not exist.
func (s State) RemoveProcess(pid uint8) State {
	off := s.processOffset(pid)
	if off < 0 {
		return s
	}
	n := s.Size()
	sz := processSize(s[off:])
	s[2]--
	copy(s[off:], s[off+sz:n])
	return s[:n-sz]
}

// InsertProcess copies s with a new process appended after the existing
// ones: mode normal, pc 0, lvarSz zeroed locals.
func (a *Arena) InsertProcess(s State, pid uint8, lvarSz uint8) (State, error) {
	if s.ProcCnt() >= 255 {
		return nil, ErrTooManyProcesses
	}
	off := s.channelsOffset()
	b, err := a.Alloc(len(s) + ProcessHeaderSize + int(lvarSz))
	if err != nil {
		return nil, err
	}
	copy(b, s[:off])
	b[2]++
	b[off] = pid
	b[off+2] = lvarSz
	copy(b[off+ProcessHeaderSize+int(lvarSz):], s[off:])
	return State(b), nil
}

// InsertChannel copies s with a new empty channel inserted in chid order.
func (a *Arena) InsertChannel(s State, chid uint16, maxLen, typeLen, msgLen uint8) (State, error) {
	if s.ChanCnt() >= 255 {
		return nil, ErrTooManyChannels
	}
	off := s.channelsOffset()
	for i := 0; i < s.ChanCnt(); i++ {
		c := be.Uint16(s[off:])
		if c == chid {
			return nil, ErrDuplicateChannel
		}
		if c > chid {
			break
		}
		off += channelSize(s[off:])
	}
	sz := ChannelHeaderSize + int(typeLen) + capacity(maxLen)*int(msgLen)
	b, err := a.Alloc(len(s) + sz)
	if err != nil {
		return nil, err
	}
	copy(b, s[:off])
	b[5]++
	be.PutUint16(b[off:], chid)
	b[off+2] = maxLen
	b[off+4] = msgLen
	b[off+5] = typeLen
	copy(b[off+sz:], s[off:])
	return State(b), nil
}
