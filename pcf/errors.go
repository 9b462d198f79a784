//
// errors.go
//
// Copyright (c) 2026 Markku Rossi
//
// All rights reserved.
//

package pcf

import (
	"github.com/cockroachdb/errors"
)

// Interpreter errors. All errors are fatal: the interpreter stops at
// the first error and refuses to step further. Use errors.Is to test
// the error class.
var (
	ErrUndefinedLabel       = errors.New("undefined label")
	ErrWireTypeViolation    = errors.New("wire type violation")
	ErrOutOfRangeTruthTable = errors.New("truth table out of range")
	ErrGateReentrancy       = errors.New("gate reentrancy")
	ErrIndexOutOfBounds     = errors.New("index out of bounds")
	ErrAllocationFailure    = errors.New("allocation failure")
	ErrStepLimit            = errors.New("step limit exceeded")
	ErrHalted               = errors.New("interpreter halted")
)

func undefinedLabel(name string) error {
	return errors.Mark(errors.Newf("undefined label %q", name),
		ErrUndefinedLabel)
}

func typeViolation(format string, args ...interface{}) error {
	return errors.Mark(errors.Newf(format, args...), ErrWireTypeViolation)
}

func allocationFailure(format string, args ...interface{}) error {
	return errors.Mark(errors.Newf(format, args...), ErrAllocationFailure)
}
