package vm

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/Aurorachain/go-nipsvm/bytecode"
)

var (
	ErrUndefinedOpcode      = errors.New("undefined opcode")
	ErrTruncatedInstruction = errors.New("truncated instruction")
)

// Instruction is a decoded instruction.
type Instruction struct {
	Addr     uint32
	Op       OpCode
	Operands []int64
	Target   uint32 // jump destination, valid if Jumps is set
	Jumps    bool
	Size     int
}

// Decode decodes the instruction at addr.
func Decode(code []byte, addr uint32) (Instruction, error) {
	if uint64(addr) >= uint64(len(code)) {
		return Instruction{}, ErrTruncatedInstruction
	}
	op := OpCode(code[addr])
	operation := instructionSet[op]
	if !operation.valid {
		return Instruction{Addr: addr, Op: op, Size: 1}, ErrUndefinedOpcode
	}
	size := operation.size()
	if uint64(addr)+uint64(size) > uint64(len(code)) {
		return Instruction{Addr: addr, Op: op, Size: size}, ErrTruncatedInstruction
	}
	ins := Instruction{Addr: addr, Op: op, Size: size, Jumps: operation.jumps}
	raw := code[addr : addr+uint32(size)]
	ofs := 1
	for _, k := range operation.operands {
		var v int64
		switch k {
		case operandU8, operandReg:
			v = int64(raw[ofs])
		case operandI8:
			v = int64(int8(raw[ofs]))
		case operandU16, operandStr:
			v = int64(binary.BigEndian.Uint16(raw[ofs:]))
		case operandRel16:
			v = int64(int16(binary.BigEndian.Uint16(raw[ofs:])))
		case operandI32:
			v = int64(int32(binary.BigEndian.Uint32(raw[ofs:])))
		case operandAbs32:
			v = int64(binary.BigEndian.Uint32(raw[ofs:]))
		}
		ins.Operands = append(ins.Operands, v)
		ofs += k.size()
	}
	if ins.Jumps {
		ins.Target, _ = jumpTarget(operation, raw, addr)
	}
	return ins, nil
}

// Format renders the instruction. Strings referenced by PRINTS are looked
// up in h if it is not nil.
func (ins Instruction) Format(h bytecode.Handle) string {
	operation := instructionSet[ins.Op]
	if !operation.valid {
		return fmt.Sprintf("0x%02X", byte(ins.Op))
	}
	var b strings.Builder
	b.WriteString(operation.name)
	for i, k := range operation.operands {
		if i >= len(ins.Operands) {
			break
		}
		if i == 0 {
			b.WriteByte(' ')
		} else {
			b.WriteString(", ")
		}
		v := ins.Operands[i]
		switch k {
		case operandReg:
			fmt.Fprintf(&b, "r%d", v&7)
		case operandRel16, operandAbs32:
			fmt.Fprintf(&b, "0x%08X", ins.Target)
		case operandStr:
			if s, ok := lookupString(h, uint16(v)); ok {
				b.WriteString(strconv.Quote(s))
			} else {
				fmt.Fprintf(&b, "%d", v)
			}
		case operandU8:
			if ins.Op == PRINTV {
				fmt.Fprintf(&b, "%q", rune(byte(v)))
				continue
			}
			fmt.Fprintf(&b, "%d", v)
		default:
			fmt.Fprintf(&b, "%d", v)
		}
	}
	return b.String()
}

func lookupString(h bytecode.Handle, idx uint16) (string, bool) {
	if h == nil {
		return "", false
	}
	return h.String(idx)
}

// Disassemble writes a listing of the module to w. Jump destinations get a
// label line, per-address flags are appended as a comment. Undecodable bytes
// are listed as data.
func Disassemble(w io.Writer, h bytecode.Handle) error {
	code := h.Code()
	targets := jumpTargets(code)
	for addr := uint32(0); uint64(addr) < uint64(len(code)); {
		if targets.isSet(uint64(addr)) {
			if _, err := fmt.Fprintf(w, "L_%08X:\n", addr); err != nil {
				return err
			}
		}
		ins, err := Decode(code, addr)
		if err != nil {
			if _, err := fmt.Fprintf(w, "0x%08X:  .byte 0x%02X\n", addr, code[addr]); err != nil {
				return err
			}
			addr++
			continue
		}
		line := fmt.Sprintf("0x%08X:  %s", addr, ins.Format(h))
		if f := h.FlagsAt(addr); f != 0 {
			line += "  ; " + flagComment(f)
		}
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
		addr += uint32(ins.Size)
	}
	return nil
}

func flagComment(f uint32) string {
	var names []string
	if f&bytecode.FlagProgress != 0 {
		names = append(names, "progress")
	}
	if f&bytecode.FlagAccept != 0 {
		names = append(names, "accept")
	}
	if rest := f &^ (bytecode.FlagProgress | bytecode.FlagAccept); rest != 0 {
		names = append(names, fmt.Sprintf("0x%X", rest))
	}
	return strings.Join(names, " ")
}
