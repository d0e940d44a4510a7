package state

import "fmt"

// Validate walks s with bounds checks and returns the state trimmed to its
// packed size. It is used on states that did not come out of the VM, such
// as an initial state given in hex.
func Validate(b []byte) (State, error) {
	if len(b) < GlobalHeaderSize {
		return nil, fmt.Errorf("%w: %d bytes, header needs %d", ErrMalformedState, len(b), GlobalHeaderSize)
	}
	s := State(b)
	off := GlobalHeaderSize + s.GvarSz()
	if off > len(b) {
		return nil, fmt.Errorf("%w: globals exceed state", ErrMalformedState)
	}
	active := 0
	pids := make(map[uint8]bool)
	for i := 0; i < s.ProcCnt(); i++ {
		if off+ProcessHeaderSize > len(b) {
			return nil, fmt.Errorf("%w: process %d header exceeds state", ErrMalformedState, i)
		}
		if b[off+1]&FlagActive != 0 {
			if off+ActiveHeaderSize > len(b) {
				return nil, fmt.Errorf("%w: active process %d header exceeds state", ErrMalformedState, i)
			}
			active++
		}
		pid := b[off]
		if pid == 0 || pids[pid] {
			return nil, fmt.Errorf("%w: invalid or duplicate pid %d", ErrMalformedState, pid)
		}
		pids[pid] = true
		off += processSize(b[off:])
		if off > len(b) {
			return nil, fmt.Errorf("%w: process %d exceeds state", ErrMalformedState, pid)
		}
	}
	if active > 1 {
		return nil, fmt.Errorf("%w: %d active processes", ErrMalformedState, active)
	}
	var last uint16
	for i := 0; i < s.ChanCnt(); i++ {
		if off+ChannelHeaderSize > len(b) {
			return nil, fmt.Errorf("%w: channel %d header exceeds state", ErrMalformedState, i)
		}
		c := Channel(b[off:])
		if c.Chid() == 0 || (i > 0 && c.Chid() <= last) {
			return nil, fmt.Errorf("%w: channel ids not ascending at 0x%04X", ErrMalformedState, c.Chid())
		}
		if c.CurLen() > c.Capacity() {
			return nil, fmt.Errorf("%w: channel 0x%04X holds %d of %d messages", ErrMalformedState, c.Chid(), c.CurLen(), c.Capacity())
		}
		last = c.Chid()
		off += channelSize(b[off:])
		if off > len(b) {
			return nil, fmt.Errorf("%w: channel 0x%04X exceeds state", ErrMalformedState, last)
		}
	}
	if off != len(b) {
		return nil, fmt.Errorf("%w: %d trailing bytes", ErrMalformedState, len(b)-off)
	}
	return s, nil
}
