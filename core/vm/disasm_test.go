package vm

import (
	"bytes"
	"strings"
	"testing"

	"github.com/Aurorachain/go-nipsvm/bytecode"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecode(t *testing.T) {
	a := newAsm()
	a.ldc(-5).jmp(LOOP, "top", 3).label("top").run(2, 1, "top")
	code := a.module(t).Code()

	ins, err := Decode(code, 0)
	require.NoError(t, err)
	assert.Equal(t, LDC, ins.Op)
	assert.Equal(t, []int64{-5}, ins.Operands)
	assert.Equal(t, 5, ins.Size)
	assert.False(t, ins.Jumps)

	ins, err = Decode(code, 5)
	require.NoError(t, err)
	assert.Equal(t, LOOP, ins.Op)
	assert.True(t, ins.Jumps)
	assert.Equal(t, uint32(9), ins.Target)
	assert.Equal(t, "LOOP r3, 0x00000009", ins.Format(nil))

	ins, err = Decode(code, 9)
	require.NoError(t, err)
	assert.Equal(t, []int64{2, 1, -5}, ins.Operands)
	assert.Equal(t, uint32(9), ins.Target)

	_, err = Decode(code[:7], 5)
	assert.Equal(t, ErrTruncatedInstruction, err)
	_, err = Decode([]byte{0xFF}, 0)
	assert.Equal(t, ErrUndefinedOpcode, err)
}

func TestDisassemble(t *testing.T) {
	a := newAsm()
	a.prints("hi\n").op(PRINTV, 'd')
	a.label("loop").Flag(bytecode.FlagProgress)
	a.step(STEPN, 1).jmp(JMP, "loop")
	a.Emit(0xFF)

	var buf bytes.Buffer
	require.NoError(t, Disassemble(&buf, a.module(t)))
	want := strings.Join([]string{
		`0x00000000:  PRINTS "hi\n"`,
		`0x00000003:  PRINTV 'd'`,
		`L_00000005:`,
		`0x00000005:  STEP N 1  ; progress`,
		`0x00000007:  JMP 0x00000005`,
		`0x0000000A:  .byte 0xFF`,
	}, "\n") + "\n"
	assert.Equal(t, want, buf.String())
}

func TestOpCodeString(t *testing.T) {
	assert.Equal(t, "LDV G 2u LE", LDVG2ULE.String())
	assert.Equal(t, "STVA L 4", STVAL4.String())
	assert.Equal(t, "opcode 0xFF not defined", OpCode(0xFF).String())
}
