package state

// Arena is a flat byte buffer handing out zeroed chunks from a moving
// cursor. Chunks are never freed individually; Reset or Release rewind the
// cursor and invalidate everything allocated after the mark.
type Arena struct {
	buf []byte
	cur int
}

// NewArena allocates an arena of size bytes.
func NewArena(size int) *Arena {
	return &Arena{buf: make([]byte, size)}
}

// NewArenaFrom wraps a caller provided buffer.
func NewArenaFrom(buf []byte) *Arena {
	return &Arena{buf: buf}
}

// Alloc returns n zeroed bytes or ErrOutOfArenaSpace.
func (a *Arena) Alloc(n int) ([]byte, error) {
	if n < 0 || len(a.buf)-a.cur < n {
		return nil, ErrOutOfArenaSpace
	}
	b := a.buf[a.cur : a.cur+n : a.cur+n]
	for i := range b {
		b[i] = 0
	}
	a.cur += n
	return b, nil
}

// Used returns the number of allocated bytes.
func (a *Arena) Used() int { return a.cur }

// Cap returns the total size of the arena.
func (a *Arena) Cap() int { return len(a.buf) }

// Free returns the number of bytes still available.
func (a *Arena) Free() int { return len(a.buf) - a.cur }

// Reset discards every allocation.
func (a *Arena) Reset() { a.cur = 0 }

// Mark returns the current cursor for a later Release.
func (a *Arena) Mark() int { return a.cur }

// Release rewinds the cursor to a mark obtained from Mark.
func (a *Arena) Release(mark int) {
	if mark >= 0 && mark <= a.cur {
		a.cur = mark
	}
}

// StateAt returns the state stored at offset off.
func (a *Arena) StateAt(off int) State {
	s := State(a.buf[off:a.cur])
	return s[:s.Size()]
}

// Bytes returns up to n allocated bytes starting at off.
func (a *Arena) Bytes(off uint64, n int) []byte {
	if off >= uint64(a.cur) {
		return nil
	}
	end := int(off) + n
	if end > a.cur {
		end = a.cur
	}
	return a.buf[off:end]
}
