// Copyright 2018 The go-nipsvm Authors
// This file is part of the go-nipsvm library.
//
// The go-nipsvm library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The go-nipsvm library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the go-nipsvm library. If not, see <http://www.gnu.org/licenses/>.

package vm

import (
	"errors"
	"fmt"
)

var ErrStopped = errors.New("successor generation stopped")

// ErrorKind classifies runtime errors of a model.
type ErrorKind int

const (
	KindBytecode ErrorKind = iota
	KindInvalidOpcode
	KindLocal
	KindGlobal
	KindStackOverflow
	KindStackUnderflow
	KindDivZero
	KindOverflow
	KindIndex
	KindAssert
	KindInvalidProcID
	KindNoProc
	KindInvalidChanID
	KindNoChan
	KindInvalidChanType
	KindChanOverflow
	KindChanUnderflow
	KindChanEmpty
	KindProcCount
	KindChanCount
	KindPathCount
	KindInvisCount
	KindSuccCount
	KindStateMem
	KindNoActiveProc
	KindEnabledProcCount
	KindInvisMem
)

var kindText = [...]string{
	KindBytecode:         "bytecode segmentation fault",
	KindInvalidOpcode:    "invalid opcode",
	KindLocal:            "invalid local memory access",
	KindGlobal:           "invalid global memory access",
	KindStackOverflow:    "stack overflow",
	KindStackUnderflow:   "stack underflow",
	KindDivZero:          "division by zero",
	KindOverflow:         "overflow error",
	KindIndex:            "invalid array index",
	KindAssert:           "assertion violated",
	KindInvalidProcID:    "invalid process id",
	KindNoProc:           "no process with specified process id",
	KindInvalidChanID:    "invalid channel id",
	KindNoChan:           "no channel with specified channel id",
	KindInvalidChanType:  "invalid channel type",
	KindChanOverflow:     "channel overflow",
	KindChanUnderflow:    "channel underflow",
	KindChanEmpty:        "channel is empty, but message is needed",
	KindProcCount:        "too many processes",
	KindChanCount:        "too many channels",
	KindPathCount:        "too many parallel execution paths",
	KindInvisCount:       "too many invisible states",
	KindSuccCount:        "too many possible successor states",
	KindStateMem:         "out of temporary state memory",
	KindNoActiveProc:     "no active process",
	KindEnabledProcCount: "too many enabled processes",
	KindInvisMem:         "out of memory for invisible states",
}

func (k ErrorKind) String() string {
	if k >= 0 && int(k) < len(kindText) {
		return kindText[k]
	}
	return fmt.Sprintf("unknown error %d", int(k))
}

// Verdict is the answer of a callback: go on or abort the whole run.
type Verdict int

const (
	Continue Verdict = iota
	Stop
)

// RuntimeError is a runtime error of the model in process Pid at PC. Errors
// without process context carry pid 0.
type RuntimeError struct {
	Kind    ErrorKind
	Pid     uint8
	PC      uint32
	Verdict Verdict
}

func (e *RuntimeError) Error() string {
	if e.Pid == 0 {
		return e.Kind.String()
	}
	return fmt.Sprintf("%s (pid %d, pc 0x%08X)", e.Kind, e.Pid, e.PC)
}
