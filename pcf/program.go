//
// program.go
//
// Copyright (c) 2026 Markku Rossi
//
// All rights reserved.
//

package pcf

import (
	"fmt"
	"io"
	"sort"

	"github.com/cockroachdb/errors"
)

// MinWires specifies the minimum size of the wire bank. The I/O roles
// access 32 wires on both sides of the callee frame boundary.
const MinWires = 64 + 32

// Labels maps function names to instruction addresses. The mapping is
// built once when the program is loaded and it is read-only after
// that.
type Labels struct {
	m map[string]int
}

// NewLabels creates a label table from the name to address map. The
// map is copied.
func NewLabels(m map[string]int) Labels {
	l := Labels{
		m: make(map[string]int, len(m)),
	}
	for k, v := range m {
		l.m[k] = v
	}
	return l
}

// Lookup returns the address of the label name.
func (l Labels) Lookup(name string) (int, bool) {
	addr, ok := l.m[name]
	return addr, ok
}

// Len returns the number of labels.
func (l Labels) Len() int {
	return len(l.m)
}

// Names returns the label names sorted by their addresses.
func (l Labels) Names() []string {
	var names []string
	for k := range l.m {
		names = append(names, k)
	}
	sort.Slice(names, func(i, j int) bool {
		ai := l.m[names[i]]
		aj := l.m[names[j]]
		if ai != aj {
			return ai < aj
		}
		return names[i] < names[j]
	})
	return names
}

// Program implements a loaded PCF program.
type Program struct {
	Instrs   []Instr
	Labels   Labels
	NumWires int
}

// NewProgram creates a program from the instructions. The label table
// is built from the LABEL instructions: each label maps to its own
// address. If numWires is 0, the wire bank size is computed from the
// wire addresses the instructions reference.
func NewProgram(instrs []Instr, numWires int) (*Program, error) {
	labels := make(map[string]int)
	for idx, instr := range instrs {
		if instr.Op != Label {
			continue
		}
		if _, ok := labels[instr.Target]; ok {
			return nil, errors.Newf("label %s redefined at %d",
				instr.Target, idx)
		}
		labels[instr.Target] = idx
	}
	if numWires == 0 {
		numWires = wireUsage(instrs)
	}
	if numWires < MinWires {
		numWires = MinWires
	}
	return &Program{
		Instrs:   instrs,
		Labels:   NewLabels(labels),
		NumWires: numWires,
	}, nil
}

func wireUsage(instrs []Instr) int {
	var max uint64
	update := func(vals ...uint64) {
		for _, v := range vals {
			if v > max {
				max = v
			}
		}
	}
	for _, instr := range instrs {
		switch instr.Op {
		case InitBase, Call:
			update(uint64(instr.Value) + IORounds)
		case MkPtr, Const:
			update(uint64(instr.Dest))
		case Bits:
			update(uint64(instr.Source))
			for _, dest := range instr.Dests {
				update(uint64(dest))
			}
		case Copy, CopyIndirDest, CopyIndirSource:
			update(uint64(instr.Dest)+uint64(instr.Width),
				uint64(instr.Source)+uint64(instr.Width))
		case GateOp:
			update(uint64(instr.Dest), uint64(instr.Wire1),
				uint64(instr.Wire2))
		}
	}
	return int(max) + 1
}

// Dump prints the program listing with labels and instruction
// addresses.
func (p *Program) Dump(w io.Writer) {
	fmt.Fprintf(w, "# %d instructions, %d labels, %d wires\n",
		len(p.Instrs), p.Labels.Len(), p.NumWires)
	fmt.Fprintf(w, "WIRES %d\n", p.NumWires)
	for idx, instr := range p.Instrs {
		if instr.Op == Label {
			fmt.Fprintf(w, "%s\t# %04d\n", instr, idx)
			continue
		}
		fmt.Fprintf(w, "\t%s\n", instr)
	}
}
