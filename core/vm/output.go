package vm

import (
	"fmt"
	"strings"

	"github.com/Aurorachain/go-nipsvm/bytecode"
)

// Output is an entry of the output list built by PRINTS and PRINTV. The
// list is linked backwards: Prev points to the previous entry.
type Output struct {
	Prev  *Output
	IsStr bool
	Str   uint16 // string table index
	Fmt   uint8  // conversion character
	Value int32
}

// Entries returns the list oldest first.
func (o *Output) Entries() []*Output {
	var list []*Output
	for e := o; e != nil; e = e.Prev {
		list = append(list, e)
	}
	for i, j := 0, len(list)-1; i < j; i, j = i+1, j-1 {
		list[i], list[j] = list[j], list[i]
	}
	return list
}

// Render prints the list using the string table of h. Unknown strings are
// rendered as their index.
func (o *Output) Render(h bytecode.Handle) string {
	var b strings.Builder
	for _, e := range o.Entries() {
		if e.IsStr {
			if s, ok := h.String(e.Str); ok {
				b.WriteString(s)
			} else {
				fmt.Fprintf(&b, "<string %d>", e.Str)
			}
			continue
		}
		b.WriteString(formatValue(e.Fmt, e.Value))
	}
	return b.String()
}

func formatValue(f uint8, v int32) string {
	switch f {
	case 'u':
		return fmt.Sprintf("%d", uint32(v))
	case 'x':
		return fmt.Sprintf("%x", uint32(v))
	case 'X':
		return fmt.Sprintf("%X", uint32(v))
	case 'o':
		return fmt.Sprintf("%o", uint32(v))
	case 'c':
		return string(rune(byte(v)))
	}
	return fmt.Sprintf("%d", v)
}
