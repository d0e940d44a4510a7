package runtime_test

import (
	"fmt"

	"github.com/Aurorachain/go-nipsvm/core/vm"
	"github.com/Aurorachain/go-nipsvm/core/vm/runtime"
)

func ExampleExecute() {
	// g0 = 7, then STEP N 1
	code := []byte{
		byte(vm.GLOBSZ), 1,
		byte(vm.LDC), 0, 0, 0, 7,
		byte(vm.LDC), 0, 0, 0, 0,
		byte(vm.STVG1U),
		byte(vm.STEPN), 1,
	}
	ret, err := runtime.Execute(code, nil)
	if err != nil {
		fmt.Println(err)
	}
	for _, r := range ret {
		fmt.Println(r.Label, r.State.Globals())
	}
	// Output:
	// 1 [7]
}
