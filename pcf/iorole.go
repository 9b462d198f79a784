//
// iorole.go
//
// Copyright (c) 2026 Markku Rossi
//
// All rights reserved.
//

package pcf

import (
	"github.com/cockroachdb/errors"
)

// The I/O roles are CALL targets that run a 32-round protocol. Each
// round is one step of the interpreter: the CALL instruction is
// dispatched again until the I/O cursor is complete. The dispatch
// after the last round resets the cursor and the control continues
// from the next instruction.

// input implements the alice and bob input roles. The 32 wires below
// the callee frame hold the index of the first input bit, most
// significant bit first. Round r stores the key of input bit index+r
// into the wire boundary+r.
func (vm *Interpreter) input(pc int, instr *Instr, tag Tag) error {
	st := &vm.st
	boundary, err := vm.boundary(instr)
	if err != nil {
		return err
	}

	switch st.io.phase {
	case ioComplete:
		vm.finishIO(instr, boundary)
		return nil

	case ioNotStarted:
		index, err := vm.selectionIndex(boundary)
		if err != nil {
			return err
		}
		st.io = ioCursor{
			phase: ioInProgress,
			index: index,
		}
	}

	r := st.io.round
	result, err := st.Wires.Abs(r, boundary)
	if err != nil {
		return err
	}
	g := Gate{
		Wire1:      st.io.index + r,
		Wire2:      st.io.index + r,
		Result:     result,
		TruthTable: TableIO,
		Tag:        tag,
	}
	w, err := st.Wires.At(result)
	if err != nil {
		return err
	}
	key, err := vm.delegate(g)
	if err != nil {
		return err
	}
	if key == nil {
		return allocationFailure("no key for input wire %d", g.Result)
	}
	w.setKey(key)
	w.Flag = Unknown

	vm.nextRound(pc)
	return nil
}

// output implements the output_alice and output_bob roles. Round r
// reveals the wire boundary-32+r.
func (vm *Interpreter) output(pc int, instr *Instr, tag Tag) error {
	st := &vm.st
	boundary, err := vm.boundary(instr)
	if err != nil {
		return err
	}

	switch st.io.phase {
	case ioComplete:
		vm.finishIO(instr, boundary)
		return nil

	case ioNotStarted:
		st.io = ioCursor{
			phase: ioInProgress,
		}
	}

	back := IORounds - st.io.round
	if back > boundary {
		return errors.Mark(errors.Newf("output wire %d-%d out of bounds",
			boundary, back), ErrIndexOutOfBounds)
	}
	addr := boundary - back
	if _, err := st.Wires.At(addr); err != nil {
		return err
	}
	key, err := vm.delegate(Gate{
		Wire1:      addr,
		Wire2:      addr,
		Result:     addr,
		TruthTable: TableIO,
		Tag:        tag,
	})
	if err != nil {
		return err
	}
	if key != nil {
		key.Release()
	}

	vm.nextRound(pc)
	return nil
}

// boundary returns the absolute address of the callee frame of the
// I/O role call instr. The boundary may equal the bank size.
func (vm *Interpreter) boundary(instr *Instr) (uint32, error) {
	boundary := uint64(vm.st.Base) + uint64(instr.Value)
	if boundary > uint64(vm.st.Wires.Size()) {
		return 0, errors.Mark(errors.Newf("frame boundary %d+%d out of bounds",
			vm.st.Base, instr.Value), ErrIndexOutOfBounds)
	}
	return uint32(boundary), nil
}

// selectionIndex reads the 32-bit input index from the wires below
// the frame boundary.
func (vm *Interpreter) selectionIndex(boundary uint32) (uint32, error) {
	var index uint32
	if boundary < IORounds {
		return 0, errors.Mark(errors.Newf("input index below wire %d",
			boundary), ErrIndexOutOfBounds)
	}
	for i := uint32(1); i <= IORounds; i++ {
		w, err := vm.st.Wires.At(boundary - i)
		if err != nil {
			return 0, err
		}
		bit, err := w.Bool()
		if err != nil {
			return 0, errors.Wrapf(err, "input index wire %d", boundary-i)
		}
		index = index<<1 | bit
	}
	return index, nil
}

// nextRound advances the I/O cursor and arranges the CALL instruction
// at pc to be dispatched again.
func (vm *Interpreter) nextRound(pc int) {
	st := &vm.st
	st.io.round++
	st.Stats.IORounds++
	if st.io.round >= IORounds {
		st.io.phase = ioComplete
	}
	st.PC = pc
}

func (vm *Interpreter) finishIO(instr *Instr, boundary uint32) {
	vm.st.io = ioCursor{}
	vm.log.Debug("io complete", "role", instr.Target,
		"boundary", boundary)
}
