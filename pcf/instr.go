//
// instr.go
//
// Copyright (c) 2026 Markku Rossi
//
// All rights reserved.
//

package pcf

import (
	"fmt"
	"strings"
)

// Opcode specifies the instruction operation.
type Opcode uint8

// Instruction opcodes.
const (
	Nop Opcode = iota
	Label
	InitBase
	MkPtr
	Const
	Bits
	Copy
	CopyIndirDest
	CopyIndirSource
	GateOp
	Call
	Ret
)

var opcodes = map[Opcode]string{
	Nop:             "NOP",
	Label:           "LABEL",
	InitBase:        "INITBASE",
	MkPtr:           "MKPTR",
	Const:           "CONST",
	Bits:            "BITS",
	Copy:            "COPY",
	CopyIndirDest:   "INDIR_COPY",
	CopyIndirSource: "COPY_INDIR",
	GateOp:          "GATE",
	Call:            "CALL",
	Ret:             "RET",
}

var mnemonics map[string]Opcode

func init() {
	mnemonics = make(map[string]Opcode)
	for k, v := range opcodes {
		mnemonics[v] = k
	}
}

func (op Opcode) String() string {
	name, ok := opcodes[op]
	if ok {
		return name
	}
	return fmt.Sprintf("{Opcode %d}", op)
}

// Names of the call targets that implement the I/O roles.
const (
	RoleAlice       = "alice"
	RoleBob         = "bob"
	RoleOutputAlice = "output_alice"
	RoleOutputBob   = "output_bob"
)

// Instr implements a decoded instruction. The fields used depend on
// the opcode:
//
//	INITBASE   Value
//	MKPTR      Dest
//	CONST      Dest, Value
//	BITS       Source, Dests
//	COPY       Dest, Source, Width (also INDIR_COPY, COPY_INDIR)
//	GATE       Dest, Wire1, Wire2, Table
//	CALL       Target, Value (callee frame size)
//	LABEL      Target
type Instr struct {
	Op     Opcode
	Dest   uint32
	Source uint32
	Width  uint32
	Value  uint32
	Wire1  uint32
	Wire2  uint32
	Table  uint8
	Dests  []uint32
	Target string
}

// NewInitBase creates an INITBASE instruction.
func NewInitBase(base uint32) Instr {
	return Instr{
		Op:    InitBase,
		Value: base,
	}
}

// NewMkPtr creates a MKPTR instruction.
func NewMkPtr(idx uint32) Instr {
	return Instr{
		Op:   MkPtr,
		Dest: idx,
	}
}

// NewConst creates a CONST instruction.
func NewConst(dest, value uint32) Instr {
	return Instr{
		Op:    Const,
		Dest:  dest,
		Value: value,
	}
}

// NewBits creates a BITS instruction.
func NewBits(source uint32, dests ...uint32) Instr {
	return Instr{
		Op:     Bits,
		Source: source,
		Dests:  dests,
	}
}

// NewCopy creates a copy instruction. The op must be one of Copy,
// CopyIndirDest, or CopyIndirSource.
func NewCopy(op Opcode, dest, source, width uint32) Instr {
	return Instr{
		Op:     op,
		Dest:   dest,
		Source: source,
		Width:  width,
	}
}

// NewGate creates a GATE instruction.
func NewGate(dest, wire1, wire2 uint32, table uint8) Instr {
	return Instr{
		Op:    GateOp,
		Dest:  dest,
		Wire1: wire1,
		Wire2: wire2,
		Table: table,
	}
}

// NewCall creates a CALL instruction.
func NewCall(target string, newbase uint32) Instr {
	return Instr{
		Op:     Call,
		Target: target,
		Value:  newbase,
	}
}

// NewRet creates a RET instruction.
func NewRet() Instr {
	return Instr{
		Op: Ret,
	}
}

// NewLabel creates a LABEL instruction.
func NewLabel(name string) Instr {
	return Instr{
		Op:     Label,
		Target: name,
	}
}

// String returns the instruction in the program text format.
func (i Instr) String() string {
	switch i.Op {
	case Nop, Ret:
		return i.Op.String()

	case Label:
		return fmt.Sprintf("%s %s", i.Op, i.Target)

	case InitBase:
		return fmt.Sprintf("%s %d", i.Op, i.Value)

	case MkPtr:
		return fmt.Sprintf("%s %d", i.Op, i.Dest)

	case Const:
		return fmt.Sprintf("%s %d %d", i.Op, i.Dest, i.Value)

	case Bits:
		var sb strings.Builder
		fmt.Fprintf(&sb, "%s %d", i.Op, i.Source)
		for _, d := range i.Dests {
			fmt.Fprintf(&sb, " %d", d)
		}
		return sb.String()

	case Copy, CopyIndirDest, CopyIndirSource:
		return fmt.Sprintf("%s %d %d %d", i.Op, i.Dest, i.Source, i.Width)

	case GateOp:
		if i.Table >= 16 {
			return fmt.Sprintf("%s %d %d %d %d", i.Op,
				i.Dest, i.Wire1, i.Wire2, i.Table)
		}
		return fmt.Sprintf("%s %d %d %d %d %d %d %d", i.Op,
			i.Dest, i.Wire1, i.Wire2,
			i.Table&1, (i.Table>>1)&1, (i.Table>>2)&1, (i.Table>>3)&1)

	case Call:
		return fmt.Sprintf("%s %s %d", i.Op, i.Target, i.Value)

	default:
		return i.Op.String()
	}
}
