package state

import (
	"fmt"
	"strings"
)

// DotLineEnd terminates lines inside a graphviz record label.
const DotLineEnd = `\l\`

// Format renders s as text. In dot mode every line ends with DotLineEnd so
// the result can be embedded in a graphviz label.
func Format(s State, dot bool) string {
	var b strings.Builder
	le := ""
	if dot {
		le = DotLineEnd
	}
	fmt.Fprintf(&b, "global state excl_pid=%d monitor_pid=%d (size=%d)%s\n", s.ExclPid(), s.MonitorPid(), s.Size(), le)
	b.WriteString("  variables:")
	for _, v := range s.Globals() {
		fmt.Fprintf(&b, " 0x%02X", v)
	}
	b.WriteString(le + "\n")
	for _, p := range s.Processes() {
		formatProcess(&b, p, le)
	}
	for _, c := range s.Channels() {
		formatChannel(&b, c, le)
	}
	if s.MonitorPid() != 0 {
		b.WriteString("Monitor:")
		if s.MonitorAcceptingOrTerminated() {
			b.WriteString(" ACCEPTING")
		}
		if s.MonitorTerminated() {
			b.WriteString(" TERMINATED")
		}
		b.WriteString(le + "\n")
	}
	return b.String()
}

// String implements fmt.Stringer.
func (s State) String() string {
	return Format(s, false)
}

func formatProcess(b *strings.Builder, p Process, le string) {
	active := ""
	if p.Active() {
		active = "active "
	}
	fmt.Fprintf(b, "  %sprocess pid=%d", active, p.Pid())
	switch p.Mode() {
	case ModeNormal, ModeAtomic:
		b.WriteString(" mode=normal")
	case ModeInvisible:
		b.WriteString(" mode=invisible")
	case ModeTerminated:
		b.WriteString(" mode=terminated")
	}
	fmt.Fprintf(b, " pc=0x%08X (size=%d)%s\n", p.PC(), p.Size(), le)
	if p.Active() {
		b.WriteString("    registers:")
		for i := 0; i < 8; i++ {
			fmt.Fprintf(b, " r%d=%d", i, p.Register(i))
		}
		b.WriteString(le + "\n")
		b.WriteString("    flag register:")
		f := p.FlagReg()
		for i := FlagRegBits - 1; i >= 0; i-- {
			if i&7 == 7 {
				b.WriteByte(' ')
			}
			fmt.Fprintf(b, "%d", f>>uint(i)&1)
		}
		b.WriteString(le + "\n")
	}
	b.WriteString("    variables:")
	for _, v := range p.Locals() {
		fmt.Fprintf(b, " 0x%02X", v)
	}
	b.WriteString(le + "\n")
	if p.Active() {
		fmt.Fprintf(b, "    stack (max=%d):", p.StackMax())
		for i := 0; i < p.StackCur(); i++ {
			fmt.Fprintf(b, " %d", p.StackSlot(i))
		}
		b.WriteString(le + "\n")
	}
}

func formatChannel(b *strings.Builder, c Channel, le string) {
	chid := c.Chid()
	fmt.Fprintf(b, "  channel chid=0x%04X=%d-%d max_len=%d (size=%d)%s\n", chid, chid>>8, chid&0xFF, c.MaxLen(), c.Size(), le)
	b.WriteString("    type:")
	for i := 0; i < c.TypeLen(); i++ {
		fmt.Fprintf(b, " %d", c.Type(i))
	}
	b.WriteString(le + "\n")
	b.WriteString("    messages:" + le + "\n")
	for i := 0; i < c.CurLen() && i < c.Capacity(); i++ {
		fmt.Fprintf(b, "      %d) ", i+1)
		msg := c.Message(i)
		for j := 0; j < c.TypeLen(); j++ {
			t := c.Type(j)
			w := FieldWidth(t)
			if len(msg) < w {
				break
			}
			fmt.Fprintf(b, " %s", FormatField(msg, t))
			msg = msg[w:]
		}
		b.WriteString(le + "\n")
	}
}

// FormatField renders the message field of type t at the start of msg.
func FormatField(msg []byte, t int8) string {
	return fmt.Sprintf("%d", ReadField(msg, t))
}

// ReadField decodes the message field of type t at the start of msg,
// sign-extending signed fields.
func ReadField(msg []byte, t int8) int64 {
	switch FieldWidth(t) {
	case 1:
		if t < 0 {
			return int64(int8(msg[0]))
		}
		return int64(msg[0])
	case 2:
		if t < 0 {
			return int64(int16(be.Uint16(msg)))
		}
		return int64(be.Uint16(msg))
	}
	if t < 0 {
		return int64(int32(be.Uint32(msg)))
	}
	return int64(be.Uint32(msg))
}
