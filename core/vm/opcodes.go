package vm

import "fmt"

// OpCode is a single byte instruction of the NIPS VM.
type OpCode byte

// Loads and stores. L addresses locals, G globals; the suffix gives the
// width and signedness.
const (
	NOP OpCode = iota
	LDC
	LDVL1U
	LDVL1S
	LDVL2U
	LDVL2S
	LDVL4
	LDVG1U
	LDVG1S
	LDVG2U
	LDVG2S
	LDVG4
	STVL1U
	STVL1S
	STVL2U
	STVL2S
	STVL4
	STVG1U
	STVG1S
	STVG2U
	STVG2S
	STVG4
	TRUNC
)

// Special values.
const (
	LDSTIMEOUT OpCode = iota + 0x18
	LDSPID
	LDSNRPR
	LDSLAST
	LDSNP
)

// Arithmetic, comparison and boolean logic.
const (
	ADD OpCode = iota + 0x20
	SUB
	MUL
	DIV
	MOD
	NEG
	NOT
	AND
	OR
	XOR
	SHL
	SHR
	EQ
	NEQ
	LT
	LTE
	GT
	GTE
	BNOT
	BAND
	BOR
)

const (
	ICHK OpCode = 0x40
	BCHK OpCode = 0x41
)

// Jumps, registers and calls.
const (
	JMP OpCode = iota + 0x48
	JMPZ
	JMPNZ
	LJMP
)

const (
	TOP OpCode = iota + 0x50
	POP
	PUSH
	POPX
	INC
	DEC
	LOOP
)

const (
	CALL OpCode = iota + 0x58
	RET
	LCALL
)

// Channels.
const (
	CHNEW OpCode = iota + 0x60
	CHMAX
	CHLEN
	CHFREE
	CHADD
	CHSET
	CHGET
	CHDEL
	CHSORT
	CHROT  OpCode = 0x6B
	CHSETO OpCode = 0x6C
	CHGETO OpCode = 0x6D
)

// Nondeterminism and steps.
const (
	NDET   OpCode = 0x70
	ELSE   OpCode = 0x72
	UNLESS OpCode = 0x73
	NEX    OpCode = 0x74
	NEXZ   OpCode = 0x75
	NEXNZ  OpCode = 0x76
	STEPN  OpCode = 0x78
	STEPA  OpCode = 0x79
	STEPI  OpCode = 0x7A
	STEPT  OpCode = 0x7B
)

// Processes, memory sizes, flags and output.
const (
	RUN     OpCode = 0x80
	LRUN    OpCode = 0x81
	GLOBSZ  OpCode = 0x84
	LOCSZ   OpCode = 0x85
	GLOBSZX OpCode = 0x86
	FCLR    OpCode = 0x88
	FGET    OpCode = 0x89
	FSET    OpCode = 0x8A
	BGET    OpCode = 0x8C
	BSET    OpCode = 0x8D
	PRINTS  OpCode = 0x90
	PRINTV  OpCode = 0x91
)

// Loads and stores with the address as operand.
const (
	LDVAL1U OpCode = iota + 0x92
	LDVAL1S
	LDVAL2U
	LDVAL2S
	LDVAL4
	LDVAG1U
	LDVAG1S
	LDVAG2U
	LDVAG2S
	LDVAG4
	STVAL1U
	STVAL1S
	STVAL2U
	STVAL2S
	STVAL4
	STVAG1U
	STVAG1S
	STVAG2U
	STVAG2S
	STVAG4
)

const (
	LDA     OpCode = 0xB0
	PCVAL   OpCode = 0xB4
	LVAR1U  OpCode = 0xB8
	LVAR1S  OpCode = 0xB9
	LVAR2U  OpCode = 0xBA
	LVAR2S  OpCode = 0xBB
	LVAR4   OpCode = 0xBC
	ENAB    OpCode = 0xBE
	MONITOR OpCode = 0xC0
	KILL    OpCode = 0xC4
)

// Bit access and little endian loads and stores.
const (
	LDBL OpCode = iota + 0xD0
	LDBG
	STBL
	STBG
	LDVL2ULE
	LDVL2SLE
	LDVL4LE
	LDVG2ULE
	LDVG2SLE
	LDVG4LE
	STVL2ULE
	STVL2SLE
	STVL4LE
	STVG2ULE
	STVG2SLE
	STVG4LE
)

func (op OpCode) String() string {
	if o := instructionSet[op]; o.valid {
		return o.name
	}
	return fmt.Sprintf("opcode 0x%02X not defined", byte(op))
}
