package vm

import "github.com/Aurorachain/go-nipsvm/core/state"

// operandKind describes an instruction operand for the disassembler.
type operandKind int

const (
	operandU8 operandKind = iota
	operandI8
	operandReg
	operandU16
	operandRel16 // relative to the address behind the operand
	operandI32
	operandAbs32
	operandStr
)

func (k operandKind) size() int {
	switch k {
	case operandU8, operandI8, operandReg:
		return 1
	case operandU16, operandRel16, operandStr:
		return 2
	}
	return 4
}

type operation struct {
	execute  executionFunc
	name     string
	operands []operandKind
	jumps    bool // has a code address operand
	valid    bool
}

// size returns the encoded length of the instruction including the opcode.
func (o operation) size() int {
	n := 1
	for _, k := range o.operands {
		n += k.size()
	}
	return n
}

var instructionSet [256]operation

func init() {
	instructionSet = newInstructionSet()
}

func op(execute executionFunc, name string, operands ...operandKind) operation {
	o := operation{execute: execute, name: name, operands: operands, valid: true}
	for _, k := range operands {
		if k == operandRel16 || k == operandAbs32 {
			o.jumps = true
		}
	}
	return o
}

var widthNames = [...]string{"1u", "1s", "2u", "2s", "4"}

func newInstructionSet() [256]operation {
	var set [256]operation
	widths := []access{u8, s8, u16, s16, w32}
	areas := []struct {
		a    area
		name string
	}{{localArea, "L"}, {globalArea, "G"}}

	set[NOP] = op(opNop, "NOP")
	set[LDC] = op(opLdc, "LDC", operandI32)
	for i, ar := range areas {
		for j, w := range widths {
			n := ar.name + " " + widthNames[j]
			set[LDVL1U+OpCode(i*5+j)] = op(makeLoad(ar.a, w), "LDV "+n)
			set[STVL1U+OpCode(i*5+j)] = op(makeStore(ar.a, w), "STV "+n)
			set[LDVAL1U+OpCode(i*5+j)] = op(makeLoadAddr(ar.a, w), "LDVA "+n, operandU8)
			set[STVAL1U+OpCode(i*5+j)] = op(makeStoreAddr(ar.a, w), "STVA "+n, operandU8)
		}
	}
	set[TRUNC] = op(opTrunc, "TRUNC", operandI8)

	set[LDSTIMEOUT] = op(opLdsTimeout, "LDS timeout")
	set[LDSPID] = op(opLdsPid, "LDS pid")
	set[LDSNRPR] = op(opLdsNrpr, "LDS nrpr")
	set[LDSLAST] = op(opLdsLast, "LDS last")
	set[LDSNP] = op(opLdsNp, "LDS np")

	set[ADD] = op(makeBinary(func(a, b int32) int32 { return a + b }), "ADD")
	set[SUB] = op(makeBinary(func(a, b int32) int32 { return a - b }), "SUB")
	set[MUL] = op(makeBinary(func(a, b int32) int32 { return a * b }), "MUL")
	set[DIV] = op(opDiv, "DIV")
	set[MOD] = op(opMod, "MOD")
	set[NEG] = op(makeUnary(func(a int32) int32 { return -a }), "NEG")
	set[NOT] = op(makeUnary(func(a int32) int32 { return ^a }), "NOT")
	set[AND] = op(makeBinary(func(a, b int32) int32 { return a & b }), "AND")
	set[OR] = op(makeBinary(func(a, b int32) int32 { return a | b }), "OR")
	set[XOR] = op(makeBinary(func(a, b int32) int32 { return a ^ b }), "XOR")
	set[SHL] = op(makeBinary(func(a, b int32) int32 { return a << (uint32(b) & 31) }), "SHL")
	set[SHR] = op(makeBinary(func(a, b int32) int32 { return a >> (uint32(b) & 31) }), "SHR")
	set[EQ] = op(makeCompare(func(a, b int32) bool { return a == b }), "EQ")
	set[NEQ] = op(makeCompare(func(a, b int32) bool { return a != b }), "NEQ")
	set[LT] = op(makeCompare(func(a, b int32) bool { return a < b }), "LT")
	set[LTE] = op(makeCompare(func(a, b int32) bool { return a <= b }), "LTE")
	set[GT] = op(makeCompare(func(a, b int32) bool { return a > b }), "GT")
	set[GTE] = op(makeCompare(func(a, b int32) bool { return a >= b }), "GTE")
	set[BNOT] = op(makeUnary(func(a int32) int32 {
		if a == 0 {
			return 1
		}
		return 0
	}), "BNOT")
	set[BAND] = op(makeCompare(func(a, b int32) bool { return a != 0 && b != 0 }), "BAND")
	set[BOR] = op(makeCompare(func(a, b int32) bool { return a != 0 || b != 0 }), "BOR")

	set[ICHK] = op(opIchk, "ICHK", operandU8)
	set[BCHK] = op(opBchk, "BCHK")

	set[JMP] = op(opJmp, "JMP", operandRel16)
	set[JMPZ] = op(makeCondJump(true), "JMPZ", operandRel16)
	set[JMPNZ] = op(makeCondJump(false), "JMPNZ", operandRel16)
	set[LJMP] = op(opLjmp, "LJMP", operandAbs32)

	set[TOP] = op(opTop, "TOP", operandReg)
	set[POP] = op(opPop, "POP", operandReg)
	set[PUSH] = op(opPush, "PUSH", operandReg)
	set[POPX] = op(opPopx, "POPX")
	set[INC] = op(makeRegAdd(1), "INC", operandReg)
	set[DEC] = op(makeRegAdd(-1), "DEC", operandReg)
	set[LOOP] = op(opLoop, "LOOP", operandReg, operandRel16)

	set[CALL] = op(opCall, "CALL", operandRel16)
	set[RET] = op(opRet, "RET")
	set[LCALL] = op(opLcall, "LCALL", operandAbs32)

	set[CHNEW] = op(opChnew, "CHNEW", operandU8, operandU8)
	set[CHMAX] = op(opChmax, "CHMAX")
	set[CHLEN] = op(opChlen, "CHLEN")
	set[CHFREE] = op(opChfree, "CHFREE")
	set[CHADD] = op(opChadd, "CHADD")
	set[CHSET] = op(opChset, "CHSET")
	set[CHGET] = op(opChget, "CHGET")
	set[CHDEL] = op(opChdel, "CHDEL")
	set[CHSORT] = op(opChsort, "CHSORT")
	set[CHROT] = op(opChrot, "CHROT")
	set[CHSETO] = op(opChseto, "CHSETO", operandU8)
	set[CHGETO] = op(opChgeto, "CHGETO", operandU8)

	set[NDET] = op(makeBranch(false, false), "NDET", operandRel16)
	set[ELSE] = op(makeBranch(false, true), "ELSE", operandRel16)
	set[UNLESS] = op(makeBranch(true, true), "UNLESS", operandRel16)
	set[NEX] = op(opNex, "NEX")
	set[NEXZ] = op(makeNexIf(true), "NEXZ")
	set[NEXNZ] = op(makeNexIf(false), "NEXNZ")

	set[STEPN] = op(makeStep(state.ModeNormal), "STEP N", operandU8)
	set[STEPA] = op(makeStep(state.ModeAtomic), "STEP A", operandU8)
	set[STEPI] = op(makeStep(state.ModeInvisible), "STEP I", operandU8)
	set[STEPT] = op(makeStep(state.ModeTerminated), "STEP T", operandU8)

	set[RUN] = op(opRun, "RUN", operandU8, operandU8, operandRel16)
	set[LRUN] = op(opLrun, "LRUN", operandU8, operandU8, operandAbs32)
	set[GLOBSZ] = op(opGlobsz, "GLOBSZ", operandU8)
	set[LOCSZ] = op(opLocsz, "LOCSZ", operandU8)
	set[GLOBSZX] = op(opGlobszx, "GLOBSZX", operandU16)

	set[FCLR] = op(opFclr, "FCLR")
	set[FGET] = op(opFget, "FGET", operandU8)
	set[FSET] = op(opFset, "FSET", operandU8)
	set[BGET] = op(opBget, "BGET", operandReg, operandU8)
	set[BSET] = op(opBset, "BSET", operandReg, operandU8)

	set[PRINTS] = op(opPrints, "PRINTS", operandStr)
	set[PRINTV] = op(opPrintv, "PRINTV", operandU8)

	set[LDA] = op(opLda, "LDA", operandAbs32)
	set[PCVAL] = op(opPcval, "PCVAL")
	for j, w := range widths {
		set[LVAR1U+OpCode(j)] = op(makeLvar(w), "LVAR "+widthNames[j])
	}
	set[ENAB] = op(opEnab, "ENAB")
	set[MONITOR] = op(opMonitor, "MONITOR")
	set[KILL] = op(opKill, "KILL")

	set[LDBL] = op(makeLoadBit(localArea), "LDB L")
	set[LDBG] = op(makeLoadBit(globalArea), "LDB G")
	set[STBL] = op(makeStoreBit(localArea), "STB L")
	set[STBG] = op(makeStoreBit(globalArea), "STB G")

	le := []struct {
		acc  access
		name string
	}{{u16le, "2u"}, {s16le, "2s"}, {w32le, "4"}}
	for i, ar := range areas {
		for j, w := range le {
			n := ar.name + " " + w.name + " LE"
			set[LDVL2ULE+OpCode(i*3+j)] = op(makeLoad(ar.a, w.acc), "LDV "+n)
			set[STVL2ULE+OpCode(i*3+j)] = op(makeStore(ar.a, w.acc), "STV "+n)
		}
	}
	return set
}
