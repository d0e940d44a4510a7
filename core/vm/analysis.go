package vm

import "encoding/binary"

// bitvec is a bit vector which maps code addresses to a marker bit.
type bitvec []byte

func (bits bitvec) set(pos uint64) {
	bits[pos/8] |= 0x80 >> (pos % 8)
}

func (bits bitvec) isSet(pos uint64) bool {
	if pos/8 >= uint64(len(bits)) {
		return false
	}
	return bits[pos/8]&(0x80>>(pos%8)) != 0
}

// jumpTargets marks every address a jump, branch, call or process start
// in code refers to. Decoding follows instruction boundaries from address 0
// and stops at the first undefined or truncated instruction.
func jumpTargets(code []byte) bitvec {
	bits := make(bitvec, len(code)/8+1)
	for pc := uint64(0); pc < uint64(len(code)); {
		operation := instructionSet[code[pc]]
		size := uint64(operation.size())
		if !operation.valid || pc+size > uint64(len(code)) {
			break
		}
		if operation.jumps {
			if dest, ok := jumpTarget(operation, code[pc:pc+size], uint32(pc)); ok && uint64(dest) < uint64(len(code)) {
				bits.set(uint64(dest))
			}
		}
		pc += size
	}
	return bits
}

// jumpTarget returns the code address referenced by instruction ins at addr.
func jumpTarget(operation operation, ins []byte, addr uint32) (uint32, bool) {
	ofs := 1
	for _, k := range operation.operands {
		switch k {
		case operandRel16:
			rel := int16(binary.BigEndian.Uint16(ins[ofs:]))
			return uint32(int64(addr) + int64(ofs+2) + int64(rel)), true
		case operandAbs32:
			return binary.BigEndian.Uint32(ins[ofs:]), true
		}
		ofs += k.size()
	}
	return 0, false
}
