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

package params

// Limits of the successor generator. The memory sizes are per call to the
// scheduler; the counts bound the scratch tables kept while stepping.
const (
	StackMax     uint8 = 64     // Operand stack slots of an activated process.
	StateMem     int   = 262144 // Scratch memory for the states of one process step.
	EnabStateMem int   = 32768  // Scratch memory for the nested check of ENAB.
	InvisMem     int   = 32768  // Memory for the states of one invisible step chain.
	PathMax      int   = 256    // Pending nondeterministic execution paths.
	InvisMax     int   = 256    // States buffered while chaining invisible steps.
	SuccMax      int   = 256    // Temporary successors of a single process step.

	ProcCntMax uint8 = 255 // Processes in one state.
	ChanCntMax uint8 = 255 // Channels in one state.
	PidMax     uint8 = 255 // Largest process id.
)

// Bounds and defaults of the search driver.
const (
	BufferMinMB     uint64 = 1
	BufferDefaultMB uint64 = 256
	BufferMaxMB     uint64 = 8192

	HashEntriesMinK     uint64 = 64
	HashEntriesDefaultK uint64 = 4096
	HashEntriesMaxK     uint64 = 131072

	HashRetriesMin     uint64 = 2
	HashRetriesDefault uint64 = 500
	HashRetriesMax     uint64 = 1000

	SimStatesMinK     uint64 = 1
	SimStatesDefaultK uint64 = 8
	SimStatesMaxK     uint64 = 1024
)

// InitialStateMax bounds a state given on the command line, in bytes.
const InitialStateMax = 1024

// ProgressInterval is the default number of expanded states between two
// progress events of a search.
const ProgressInterval uint64 = 1 << 18
