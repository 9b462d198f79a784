//
// ops.go
//
// Copyright (c) 2026 Markku Rossi
//
// All rights reserved.
//

package pcf

import (
	"math"

	"github.com/cockroachdb/errors"
)

// The wire addresses of the instructions are relative to the current
// frame base.

func (vm *Interpreter) initBase(instr *Instr) error {
	addr, ok := vm.prog.Labels.Lookup("main")
	if !ok {
		return undefinedLabel("main")
	}
	vm.st.PC = addr
	vm.st.Base = instr.Value
	return nil
}

// mkPtr converts the frame-relative offset in the wire into an
// absolute wire address. The base is added even if the value is
// already absolute.
func (vm *Interpreter) mkPtr(instr *Instr) error {
	w, err := vm.st.Wires.Addr(instr.Dest, vm.st.Base)
	if err != nil {
		return err
	}
	if w.Flag != Known {
		return typeViolation("pointer wire %d+%d not known",
			vm.st.Base, instr.Dest)
	}
	w.Value += vm.st.Base
	return nil
}

func (vm *Interpreter) constant(instr *Instr) error {
	w, err := vm.st.Wires.Addr(instr.Dest, vm.st.Base)
	if err != nil {
		return err
	}
	w.Value = instr.Value
	w.Flag = Known
	w.setKey(nil)
	return nil
}

func (vm *Interpreter) bits(instr *Instr) error {
	st := &vm.st
	src, err := st.Wires.Addr(instr.Source, st.Base)
	if err != nil {
		return err
	}
	if src.Flag != Known {
		return typeViolation("bits source wire %d+%d not known",
			st.Base, instr.Source)
	}
	val := src.Value

	for _, dest := range instr.Dests {
		w, err := st.Wires.Addr(dest, st.Base)
		if err != nil {
			return err
		}
		bit := val & 1
		key, err := vm.constKey(bit)
		if err != nil {
			return err
		}
		w.Value = bit
		w.Flag = Known
		w.setKey(key)

		val >>= 1
	}
	return nil
}

// pointer returns the absolute address stored in the frame-relative
// wire rel.
func (vm *Interpreter) pointer(rel uint32) (uint32, error) {
	w, err := vm.st.Wires.Addr(rel, vm.st.Base)
	if err != nil {
		return 0, err
	}
	if w.Flag != Known {
		return 0, typeViolation("pointer wire %d+%d not known",
			vm.st.Base, rel)
	}
	return w.Value, nil
}

// start returns the absolute start address of the frame-relative wire
// range at rel.
func (vm *Interpreter) start(rel uint32) (uint32, error) {
	addr := uint64(rel) + uint64(vm.st.Base)
	if addr > math.MaxUint32 {
		return 0, errors.Mark(errors.Newf("wire %d+%d out of bounds",
			vm.st.Base, rel), ErrIndexOutOfBounds)
	}
	return uint32(addr), nil
}

func (vm *Interpreter) copy(instr *Instr) error {
	st := &vm.st
	var dest, source uint32
	var err error

	switch instr.Op {
	case Copy:
		dest, err = vm.start(instr.Dest)
		if err == nil {
			source, err = vm.start(instr.Source)
		}

	case CopyIndirDest:
		dest, err = vm.pointer(instr.Dest)
		if err == nil {
			source, err = vm.start(instr.Source)
		}

	case CopyIndirSource:
		dest, err = vm.start(instr.Dest)
		if err == nil {
			source, err = vm.pointer(instr.Source)
		}

	default:
		return errors.Newf("invalid copy instruction %s", instr.Op)
	}
	if err != nil {
		return err
	}

	if err := st.Wires.Range(dest, instr.Width); err != nil {
		return err
	}
	if err := st.Wires.Range(source, instr.Width); err != nil {
		return err
	}

	for i := uint32(0); i < instr.Width; i++ {
		s, err := st.Wires.At(source + i)
		if err != nil {
			return err
		}
		d, err := st.Wires.At(dest + i)
		if err != nil {
			return err
		}
		// Clone before releasing the destination key: the ranges
		// may overlap.
		key := cloneKey(s.Key)
		if s.Key != nil && key == nil {
			return allocationFailure("clone of wire %d key failed", source+i)
		}
		d.setKey(key)
		d.Value = s.Value
		d.Flag = s.Flag
	}
	return nil
}

func (vm *Interpreter) gate(instr *Instr) error {
	st := &vm.st
	if st.pending != nil {
		return errors.Mark(errors.Newf("gate %s pending", st.pending),
			ErrGateReentrancy)
	}
	if instr.Table >= 16 {
		return errors.Mark(errors.Newf("truth table %d", instr.Table),
			ErrOutOfRangeTruthTable)
	}

	op1, err := st.Wires.Abs(instr.Wire1, st.Base)
	if err != nil {
		return err
	}
	op2, err := st.Wires.Abs(instr.Wire2, st.Base)
	if err != nil {
		return err
	}
	res, err := st.Wires.Abs(instr.Dest, st.Base)
	if err != nil {
		return err
	}

	a, err := st.Wires.At(op1)
	if err != nil {
		return err
	}
	b, err := st.Wires.At(op2)
	if err != nil {
		return err
	}
	c, err := st.Wires.At(res)
	if err != nil {
		return err
	}
	st.Stats.Gates++

	c.setKey(nil)

	if a.Flag == Known && b.Flag == Known {
		va, err := a.Bool()
		if err != nil {
			return errors.Wrapf(err, "wire %d", op1)
		}
		vb, err := b.Bool()
		if err != nil {
			return errors.Wrapf(err, "wire %d", op2)
		}
		bit := Eval(instr.Table, va, vb)
		key, err := vm.constKey(bit)
		if err != nil {
			return err
		}
		c.Value = bit
		c.Flag = Known
		c.setKey(key)
		return nil
	}

	if a.Key == nil {
		return typeViolation("gate operand wire %d has no key material", op1)
	}
	if b.Key == nil {
		return typeViolation("gate operand wire %d has no key material", op2)
	}
	key, err := vm.delegate(Gate{
		Wire1:      op1,
		Wire2:      op2,
		Result:     res,
		TruthTable: instr.Table,
		Tag:        Internal,
	})
	if err != nil {
		return err
	}
	if key == nil {
		return allocationFailure("no key for gate result wire %d", res)
	}
	c.setKey(key)
	c.Flag = Unknown
	return nil
}

func (vm *Interpreter) call(pc int, instr *Instr) error {
	switch instr.Target {
	case RoleAlice:
		return vm.input(pc, instr, InputA)
	case RoleBob:
		return vm.input(pc, instr, InputB)
	case RoleOutputAlice:
		return vm.output(pc, instr, OutputA)
	case RoleOutputBob:
		return vm.output(pc, instr, OutputB)
	}

	st := &vm.st
	addr, ok := vm.prog.Labels.Lookup(instr.Target)
	if !ok {
		return undefinedLabel(instr.Target)
	}
	if vm.params.MaxCallDepth > 0 && st.depth >= vm.params.MaxCallDepth {
		return allocationFailure("call stack depth %d exceeds limit %d",
			st.depth+1, vm.params.MaxCallDepth)
	}
	if uint64(st.Base)+uint64(instr.Value) > math.MaxUint32 {
		return errors.Mark(errors.Newf("frame base %d+%d overflows",
			st.Base, instr.Value), ErrIndexOutOfBounds)
	}
	st.push(st.PC)
	st.PC = addr
	st.Base += instr.Value
	st.Stats.Calls++

	vm.log.Debug("call", "target", instr.Target, "addr", addr,
		"base", st.Base, "depth", st.depth)
	return nil
}

func (vm *Interpreter) ret() error {
	st := &vm.st
	addr, ok := st.pop()
	if !ok {
		st.Status = Halted
		vm.log.Debug("halt", "pc", st.PC, "steps", st.Stats.Steps)
		return nil
	}
	st.PC = addr
	st.Stats.Returns++
	return nil
}
