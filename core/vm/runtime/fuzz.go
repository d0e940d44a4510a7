// +build gofuzz

package runtime

import "github.com/Aurorachain/go-nipsvm/core/state"

// Fuzz is the go-fuzz entry point. Runtime errors of the input are expected,
// a successor that is not a valid state is a crash.
func Fuzz(input []byte) int {
	list, err := Execute(input, nil)
	if err != nil {
		return 0
	}
	for _, r := range list {
		if _, err := state.Validate(r.State); err != nil {
			panic(err)
		}
	}
	return 1
}
