//
// evaluator.go
//
// Copyright (c) 2026 Markku Rossi
//
// All rights reserved.
//

// Package garble implements a garbled-circuit evaluator for the PCF
// interpreter. The garbler and the evaluator run in the same process:
// each delegated gate is garbled and then evaluated with the active
// labels of its input wires. The evaluator's input labels are handed
// over directly instead of with oblivious transfer.
package garble

import (
	"crypto/aes"
	"crypto/cipher"
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

// Key holds the key material of a wire: the garbler's label pair and
// the evaluator's active label.
type Key struct {
	Wire   Wire
	Active Label
}

func (k Key) String() string {
	return k.Active.String()
}

// Stats hold garbling statistics.
type Stats struct {
	Tables     uint64
	TableBytes uint64
	FreeGates  uint64
	Inputs     uint64
	Outputs    uint64
}

// Evaluator implements the garbled-circuit evaluator.
type Evaluator struct {
	Pool    *keys.Pool[Key]
	Inputs  [2][]uint32
	Outputs [2][]uint32
	Stats   Stats

	prg   *PRG
	alg   cipher.Block
	r     Label
	tweak uint32
	buf   LabelData
	table [4]Label
	word  [2]uint32
	round [2]int
}

// New creates a new garbled-circuit evaluator for the parties' input
// words. The input bit k of a party is bit k%32 of the word k/32.
func New(prg *PRG, alice, bob []uint32) (*Evaluator, error) {
	var key [32]byte
	if _, err := prg.Read(key[:]); err != nil {
		return nil, err
	}
	alg, err := aes.NewCipher(key[:])
	if err != nil {
		return nil, err
	}
	return &Evaluator{
		Pool:   keys.NewPool[Key](),
		Inputs: [2][]uint32{alice, bob},
		prg:    prg,
		alg:    alg,
		r:      prg.Label().WithS(true),
	}, nil
}

// R returns the free-XOR offset of the garbler.
func (e *Evaluator) R() Label {
	return e.r
}

// Constants creates the canonical keys of the constants 0 and 1. The
// keys share one label pair. The caller owns the keys.
func (e *Evaluator) Constants() [2]pcf.Key {
	w := e.newWire()
	return [2]pcf.Key{
		e.Pool.New(Key{Wire: w, Active: w.L0}),
		e.Pool.New(Key{Wire: w, Active: w.L1}),
	}
}

func (e *Evaluator) newWire() Wire {
	l0 := e.prg.Label()
	return Wire{
		L0: l0,
		L1: l0.Xor(e.r),
	}
}

// Evaluate implements pcf.Evaluator.Evaluate.
func (e *Evaluator) Evaluate(st *pcf.State, g *pcf.Gate) (pcf.Key, error) {
	switch g.Tag {
	case pcf.Internal:
		a, err := e.key(st.Wires, g.Wire1)
		if err != nil {
			return nil, err
		}
		b, err := e.key(st.Wires, g.Wire2)
		if err != nil {
			return nil, err
		}
		return e.Pool.New(e.gate(g.TruthTable, a, b)), nil

	case pcf.InputA, pcf.InputB:
		w := e.newWire()
		bit := e.inputBit(party(g.Tag), g.Wire1)
		e.Stats.Inputs++
		return e.Pool.New(Key{
			Wire:   w,
			Active: w.Label(bit),
		}), nil

	case pcf.OutputA, pcf.OutputB:
		bit, err := e.decode(st.Wires, g.Wire1)
		if err != nil {
			return nil, err
		}
		e.Stats.Outputs++
		e.output(party(g.Tag), bit)
		return nil, nil

	default:
		return nil, fmt.Errorf("unsupported gate tag %s", g.Tag)
	}
}

func (e *Evaluator) gate(table uint8, a, b Key) Key {
	switch table {
	case pcf.TableXOR, pcf.TableXNOR:
		// Free XOR.
		l0 := a.Wire.L0.Xor(b.Wire.L0)
		c := Wire{
			L0: l0,
			L1: l0.Xor(e.r),
		}
		if table == pcf.TableXNOR {
			c = c.Swap()
		}
		e.Stats.FreeGates++
		return Key{
			Wire:   c,
			Active: a.Active.Xor(b.Active),
		}

	case pcf.TableA:
		e.Stats.FreeGates++
		return a

	case pcf.TableNotA:
		e.Stats.FreeGates++
		return Key{
			Wire:   a.Wire.Swap(),
			Active: a.Active,
		}

	case pcf.TableB:
		e.Stats.FreeGates++
		return b

	case pcf.TableNotB:
		e.Stats.FreeGates++
		return Key{
			Wire:   b.Wire.Swap(),
			Active: b.Active,
		}
	}

	// Garble.
	c := e.newWire()
	t := e.tweak
	e.tweak++

	for x := uint32(0); x < 2; x++ {
		for y := uint32(0); y < 2; y++ {
			la := a.Wire.Label(x)
			lb := b.Wire.Label(y)
			lc := c.Label(pcf.Eval(table, x, y))
			e.table[idx(la, lb)] = encrypt(e.alg, la, lb, lc, t, &e.buf)
		}
	}
	e.Stats.Tables++
	e.Stats.TableBytes += uint64(len(e.table) * len(e.buf))

	// Evaluate.
	row := e.table[idx(a.Active, b.Active)]
	return Key{
		Wire:   c,
		Active: decrypt(e.alg, a.Active, b.Active, t, row, &e.buf),
	}
}

func (e *Evaluator) key(wires *pcf.WireBank, addr uint32) (Key, error) {
	w, err := wires.Get(addr)
	if err != nil {
		return Key{}, err
	}
	k, err := keys.ValueOf[Key](w.Key)
	if err != nil {
		return Key{}, fmt.Errorf("wire %d: %w", addr, err)
	}
	return k, nil
}

// decode resolves the bit value of the wire at addr. Known wires
// without a key return their value.
func (e *Evaluator) decode(wires *pcf.WireBank, addr uint32) (uint32, error) {
	w, err := wires.Get(addr)
	if err != nil {
		return 0, err
	}
	if w.Key == nil {
		return w.Bool()
	}
	k, err := keys.ValueOf[Key](w.Key)
	if err != nil {
		return 0, fmt.Errorf("wire %d: %w", addr, err)
	}
	bit, err := k.Wire.Bit(k.Active)
	if err != nil {
		return 0, fmt.Errorf("wire %d: %w", addr, err)
	}
	return bit, nil
}

func party(tag pcf.Tag) int {
	switch tag {
	case pcf.InputB, pcf.OutputB:
		return Bob
	default:
		return Alice
	}
}

func (e *Evaluator) inputBit(p int, k uint32) uint32 {
	word := int(k / 32)
	if word >= len(e.Inputs[p]) {
		return 0
	}
	return (e.Inputs[p][word] >> (k % 32)) & 1
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
