//
// interpreter.go
//
// Copyright (c) 2026 Markku Rossi
//
// All rights reserved.
//

package pcf

import (
	"fmt"
	"log/slog"

	"github.com/cockroachdb/errors"
	"github.com/markkurossi/text/superscript"
)

// Params specify interpreter parameters.
type Params struct {
	// NumWires overrides the wire bank size of the program if
	// non-zero.
	NumWires int

	// MaxCallDepth specifies the maximum call stack depth. Zero
	// means unlimited.
	MaxCallDepth int

	// MaxSteps specifies the maximum number of instructions to
	// execute. Zero means unlimited.
	MaxSteps uint64

	// Logger receives interpreter log messages.
	Logger *slog.Logger

	// Trace logs each executed instruction at debug level.
	Trace bool
}

// NewParams returns new interpreter params object, initialized with
// the default values.
func NewParams() *Params {
	return &Params{
		MaxCallDepth: 1 << 16,
		Logger:       slog.New(slog.DiscardHandler),
	}
}

// Interpreter implements the PCF bytecode interpreter.
type Interpreter struct {
	params Params
	prog   *Program
	eval   Evaluator
	consts [2]Key
	log    *slog.Logger
	st     State
	err    error
}

// New creates a new interpreter for the program. The consts are the
// canonical keys of the boolean constants 0 and 1. They remain owned
// by the caller: the interpreter only clones them.
func New(prog *Program, eval Evaluator, consts [2]Key, params *Params) (
	*Interpreter, error) {

	if params == nil {
		params = NewParams()
	}
	if eval == nil {
		return nil, errors.New("no evaluator")
	}
	for bit, k := range consts {
		if k == nil {
			return nil, allocationFailure("constant key %d not set", bit)
		}
	}
	numWires := prog.NumWires
	if params.NumWires > 0 {
		numWires = params.NumWires
	}
	log := params.Logger
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}

	return &Interpreter{
		params: *params,
		prog:   prog,
		eval:   eval,
		consts: consts,
		log:    log,
		st: State{
			Wires: NewWireBank(numWires),
		},
	}, nil
}

// State returns the execution state.
func (vm *Interpreter) State() *State {
	return &vm.st
}

// Wires returns the interpreter wire bank.
func (vm *Interpreter) Wires() *WireBank {
	return vm.st.Wires
}

// Err returns the fatal error that stopped the interpreter or nil if
// no error has occurred.
func (vm *Interpreter) Err() error {
	return vm.err
}

// Done tests if the interpreter has reached a terminal state.
func (vm *Interpreter) Done() bool {
	return vm.err != nil || vm.st.Status != Running
}

// Close releases all keys held by the wire bank.
func (vm *Interpreter) Close() {
	vm.st.Wires.Release()
}

// Run executes the program until it finishes, halts, or fails.
func (vm *Interpreter) Run() error {
	for !vm.Done() {
		if err := vm.Step(); err != nil {
			return err
		}
	}
	return vm.err
}

// Step executes one instruction.
func (vm *Interpreter) Step() error {
	if vm.err != nil {
		return vm.err
	}
	st := &vm.st
	if st.Status != Running {
		return errors.Wrapf(ErrHalted, "status %s", st.Status)
	}
	if st.PC < 0 || st.PC >= len(vm.prog.Instrs) {
		st.Status = Finished
		return nil
	}
	if vm.params.MaxSteps > 0 && st.Stats.Steps >= vm.params.MaxSteps {
		return vm.fail(st.PC, nil,
			errors.Wrapf(ErrStepLimit, "%d steps", st.Stats.Steps))
	}

	pc := st.PC
	instr := &vm.prog.Instrs[pc]
	st.PC = pc + 1
	st.Stats.Steps++

	if vm.params.Trace {
		vm.log.Debug(fmt.Sprintf("%04d%s", pc, superscript.Itoa(st.depth)),
			"instr", instr.String(), "base", st.Base)
	}

	if err := vm.exec(pc, instr); err != nil {
		return vm.fail(pc, instr, err)
	}
	if st.Status == Running && st.PC >= len(vm.prog.Instrs) {
		st.Status = Finished
	}
	return nil
}

func (vm *Interpreter) fail(pc int, instr *Instr, err error) error {
	if instr != nil {
		err = errors.Wrapf(err, "%04d: %s", pc, instr)
	} else {
		err = errors.Wrapf(err, "%04d", pc)
	}
	vm.err = err
	vm.log.Error("fatal error", "pc", pc, "state", vm.st.String(), "err", err)
	return err
}

func (vm *Interpreter) exec(pc int, instr *Instr) error {
	switch instr.Op {
	case Nop, Label:
		return nil
	case InitBase:
		return vm.initBase(instr)
	case MkPtr:
		return vm.mkPtr(instr)
	case Const:
		return vm.constant(instr)
	case Bits:
		return vm.bits(instr)
	case Copy, CopyIndirDest, CopyIndirSource:
		return vm.copy(instr)
	case GateOp:
		return vm.gate(instr)
	case Call:
		return vm.call(pc, instr)
	case Ret:
		return vm.ret()
	default:
		return errors.Newf("unsupported instruction %s", instr.Op)
	}
}

// constKey returns a clone of the canonical key of the bit.
func (vm *Interpreter) constKey(bit uint32) (Key, error) {
	key := vm.consts[bit&1].Clone()
	if key == nil {
		return nil, allocationFailure("clone of constant key %d failed", bit)
	}
	return key, nil
}

// delegate invokes the evaluator for the gate. Only one delegation
// can be pending at a time.
func (vm *Interpreter) delegate(g Gate) (Key, error) {
	st := &vm.st
	if st.pending != nil {
		return nil, errors.Mark(errors.Newf("gate %s already pending",
			st.pending), ErrGateReentrancy)
	}
	st.gate = g
	st.pending = &st.gate
	defer func() {
		st.pending = nil
	}()
	st.Stats.Delegated++

	key, err := vm.eval.Evaluate(st, st.pending)
	if err != nil {
		return nil, errors.Wrapf(err, "evaluate %s", g)
	}
	return key, nil
}
