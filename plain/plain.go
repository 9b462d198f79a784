//
// plain.go
//
// Copyright (c) 2026 Markku Rossi
//
// All rights reserved.
//

// Package plain implements a cleartext evaluator for the PCF
// interpreter. The keys carry the wire bits in the clear. The
// evaluator is useful for testing and debugging PCF programs.
package plain

import (
	"fmt"

	"github.com/markkurossi/pcf/keys"
	"github.com/markkurossi/pcf/pcf"
)

var (
	_ pcf.Evaluator = &Evaluator{}
)

// Party indices.
const (
	Alice = 0
	Bob   = 1
)

// Evaluator implements the cleartext evaluator.
type Evaluator struct {
	Pool    *keys.Pool[bool]
	Inputs  [2][]uint32
	Outputs [2][]uint32

	word  [2]uint32
	round [2]int
}

// New creates a new cleartext evaluator for the parties' input
// words. The input bit k of a party is bit k%32 of the word k/32.
func New(alice, bob []uint32) *Evaluator {
	return &Evaluator{
		Pool:   keys.NewPool[bool](),
		Inputs: [2][]uint32{alice, bob},
	}
}

// Constants creates the canonical keys of the constants 0 and 1. The
// caller owns the keys.
func (e *Evaluator) Constants() [2]pcf.Key {
	return [2]pcf.Key{
		e.Pool.New(false),
		e.Pool.New(true),
	}
}

// Evaluate implements pcf.Evaluator.Evaluate.
func (e *Evaluator) Evaluate(st *pcf.State, g *pcf.Gate) (pcf.Key, error) {
	switch g.Tag {
	case pcf.Internal:
		a, err := Bit(st.Wires, g.Wire1)
		if err != nil {
			return nil, err
		}
		b, err := Bit(st.Wires, g.Wire2)
		if err != nil {
			return nil, err
		}
		return e.Pool.New(g.Eval(a, b) == 1), nil

	case pcf.InputA, pcf.InputB:
		return e.Pool.New(e.inputBit(party(g.Tag), g.Wire1)), nil

	case pcf.OutputA, pcf.OutputB:
		bit, err := Bit(st.Wires, g.Wire1)
		if err != nil {
			return nil, err
		}
		e.output(party(g.Tag), bit)
		return nil, nil

	default:
		return nil, fmt.Errorf("unsupported gate tag %s", g.Tag)
	}
}

func party(tag pcf.Tag) int {
	switch tag {
	case pcf.InputB, pcf.OutputB:
		return Bob
	default:
		return Alice
	}
}

func (e *Evaluator) inputBit(p int, k uint32) bool {
	word := int(k / 32)
	if word >= len(e.Inputs[p]) {
		return false
	}
	return (e.Inputs[p][word]>>(k%32))&1 == 1
}

func (e *Evaluator) output(p int, bit uint32) {
	e.word[p] |= bit << e.round[p]
	e.round[p]++
	if e.round[p] >= pcf.IORounds {
		e.Outputs[p] = append(e.Outputs[p], e.word[p])
		e.word[p] = 0
		e.round[p] = 0
	}
}

// Bit returns the cleartext bit of the wire at addr. Known wires
// without a key return their value.
func Bit(wires *pcf.WireBank, addr uint32) (uint32, error) {
	w, err := wires.Get(addr)
	if err != nil {
		return 0, err
	}
	if w.Key == nil {
		return w.Bool()
	}
	v, err := keys.ValueOf[bool](w.Key)
	if err != nil {
		return 0, fmt.Errorf("wire %d: %w", addr, err)
	}
	if v {
		return 1, nil
	}
	return 0, nil
}
