//
// gate.go
//
// Copyright (c) 2026 Markku Rossi
//
// All rights reserved.
//

package pcf

import (
	"fmt"
)

// Tag specifies the provenance of a gate descriptor.
type Tag uint8

// Gate tags.
const (
	Internal Tag = iota
	InputA
	InputB
	OutputA
	OutputB
)

var tags = map[Tag]string{
	Internal: "internal",
	InputA:   "input_a",
	InputB:   "input_b",
	OutputA:  "output_a",
	OutputB:  "output_b",
}

func (t Tag) String() string {
	name, ok := tags[t]
	if ok {
		return name
	}
	return fmt.Sprintf("{Tag %d}", t)
}

// Input tests if the tag is an input role tag.
func (t Tag) Input() bool {
	return t == InputA || t == InputB
}

// Output tests if the tag is an output role tag.
func (t Tag) Output() bool {
	return t == OutputA || t == OutputB
}

// Common truth tables.
const (
	TableAND  uint8 = 0b1000
	TableOR   uint8 = 0b1110
	TableXOR  uint8 = 0b0110
	TableXNOR uint8 = 0b1001
	TableNAND uint8 = 0b0111
	TableNOR  uint8 = 0b0001
	TableA    uint8 = 0b1010
	TableNotA uint8 = 0b0101
	TableB    uint8 = 0b1100
	TableNotB uint8 = 0b0011

	// TableIO is the table carried by input and output round
	// descriptors.
	TableIO uint8 = TableNotA
)

// Gate describes a delegated gate or an I/O round. Wire addresses are
// absolute wire bank addresses, except for input rounds where Wire1
// and Wire2 index the input bits of the party.
type Gate struct {
	Wire1      uint32
	Wire2      uint32
	Result     uint32
	TruthTable uint8
	Tag        Tag
}

func (g Gate) String() string {
	return fmt.Sprintf("%s w%d w%d %04b -> w%d",
		g.Tag, g.Wire1, g.Wire2, g.TruthTable, g.Result)
}

// Eval evaluates the gate truth table for the operand bits a and b.
func (g Gate) Eval(a, b uint32) uint32 {
	return Eval(g.TruthTable, a, b)
}

// Eval evaluates the truth table for the operand bits a and b.
func Eval(table uint8, a, b uint32) uint32 {
	return uint32(table>>(a+2*b)) & 1
}
