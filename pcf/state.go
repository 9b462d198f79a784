//
// state.go
//
// Copyright (c) 2026 Markku Rossi
//
// All rights reserved.
//

package pcf

import (
	"fmt"
)

// Status specifies the execution status of the interpreter.
type Status int

// Execution statuses. Finished is the normal completion where the
// program counter runs past the last instruction. Halted is entered
// when RET is executed with an empty call stack.
const (
	Running Status = iota
	Finished
	Halted
)

var statuses = map[Status]string{
	Running:  "running",
	Finished: "finished",
	Halted:   "halted",
}

func (s Status) String() string {
	name, ok := statuses[s]
	if ok {
		return name
	}
	return fmt.Sprintf("{Status %d}", int(s))
}

// Code returns the numeric exit code of the status.
func (s Status) Code() int {
	switch s {
	case Halted:
		return -1
	default:
		return 0
	}
}

// frame implements an activation record.
type frame struct {
	ret  int
	rest *frame
}

// ioPhase specifies the progress of an I/O role call.
type ioPhase uint8

const (
	ioNotStarted ioPhase = iota
	ioInProgress
	ioComplete
)

func (p ioPhase) String() string {
	switch p {
	case ioNotStarted:
		return "not-started"
	case ioInProgress:
		return "in-progress"
	case ioComplete:
		return "complete"
	default:
		return fmt.Sprintf("{ioPhase %d}", p)
	}
}

// IORounds specifies the number of rounds in an I/O role call.
const IORounds = 32

// ioCursor tracks the rounds of the current I/O role call. The
// dispatcher re-executes the CALL instruction until the cursor is
// complete.
type ioCursor struct {
	phase ioPhase
	round uint32
	index uint32
}

func (c ioCursor) String() string {
	if c.phase == ioInProgress {
		return fmt.Sprintf("%s{round=%d, index=%d}", c.phase, c.round, c.index)
	}
	return c.phase.String()
}

// Counters hold execution statistics.
type Counters struct {
	Steps     uint64
	Gates     uint64
	Delegated uint64
	Calls     uint64
	Returns   uint64
	IORounds  uint64
}

// State implements the execution state of the interpreter.
type State struct {
	PC     int
	Base   uint32
	Wires  *WireBank
	Status Status
	Stats  Counters

	stack   *frame
	depth   int
	pending *Gate
	gate    Gate
	io      ioCursor
}

// Depth returns the call stack depth.
func (st *State) Depth() int {
	return st.depth
}

// Pending returns the gate currently being delegated or nil if no
// delegation is in progress.
func (st *State) Pending() *Gate {
	return st.pending
}

// IOActive tests if an I/O role call is in progress.
func (st *State) IOActive() bool {
	return st.io.phase != ioNotStarted
}

// IORound returns the next round of the active I/O role call.
func (st *State) IORound() int {
	return int(st.io.round)
}

func (st *State) push(ret int) {
	st.stack = &frame{
		ret:  ret,
		rest: st.stack,
	}
	st.depth++
}

func (st *State) pop() (int, bool) {
	if st.stack == nil {
		return 0, false
	}
	top := st.stack
	st.stack = top.rest
	st.depth--
	return top.ret, true
}

func (st *State) String() string {
	return fmt.Sprintf("pc=%d base=%d depth=%d io=%s status=%s",
		st.PC, st.Base, st.depth, st.io, st.Status)
}
