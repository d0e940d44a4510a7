package runtime

import (
	"testing"

	"github.com/Aurorachain/go-nipsvm/core/vm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// counter increments global 0 modulo 3 forever.
var counter = []byte{
	byte(vm.GLOBSZ), 1,
	byte(vm.LDC), 0, 0, 0, 0,
	byte(vm.LDVG1U),
	byte(vm.LDC), 0, 0, 0, 1,
	byte(vm.ADD),
	byte(vm.LDC), 0, 0, 0, 3,
	byte(vm.MOD),
	byte(vm.LDC), 0, 0, 0, 0,
	byte(vm.STVG1U),
	byte(vm.STEPN), 2,
	byte(vm.JMP), 0xFF, 0xE3, // -29: back to address 2
}

func TestExecuteDefaults(t *testing.T) {
	ret, err := Execute(counter, nil)
	require.NoError(t, err)
	require.Len(t, ret, 1)
	assert.Equal(t, uint8(2), ret[0].Label)
	assert.Equal(t, []byte{1}, ret[0].State.Globals())
	assert.Empty(t, ret[0].Output)
}

func TestTrace(t *testing.T) {
	ret, err := Trace(counter, 5, nil)
	require.NoError(t, err)
	require.Len(t, ret, 5)
	var got []byte
	for _, r := range ret {
		got = append(got, r.State.Globals()[0])
	}
	assert.Equal(t, []byte{1, 2, 0, 1, 2}, got)

	// a single NEX blocks the system right away
	ret, err = Trace([]byte{byte(vm.NEX)}, 5, nil)
	require.NoError(t, err)
	assert.Empty(t, ret)
}

func TestExecuteRuntimeError(t *testing.T) {
	// STVG1U with an empty stack
	_, err := Execute([]byte{byte(vm.STVG1U)}, nil)
	require.Error(t, err)
	_, ok := err.(*vm.RuntimeError)
	assert.True(t, ok, "%T", err)
}
