//
// wire.go
//
// Copyright (c) 2026 Markku Rossi
//
// All rights reserved.
//

package pcf

import (
	"fmt"

	"github.com/cockroachdb/errors"
)

// Flag tells if the wire value is known in the clear.
type Flag uint8

// Wire flags.
const (
	Known Flag = iota
	Unknown
)

func (f Flag) String() string {
	switch f {
	case Known:
		return "known"
	case Unknown:
		return "unknown"
	default:
		return fmt.Sprintf("{Flag %d}", f)
	}
}

// Wire implements a wire cell. Known wires carry their value in
// Value. Unknown wires exist only as the key material in Key.
type Wire struct {
	Value uint32
	Flag  Flag
	Key   Key
}

func (w *Wire) String() string {
	if w.Flag == Known {
		return fmt.Sprintf("%d", w.Value)
	}
	return "?"
}

// setKey releases the current key and takes the ownership of k.
func (w *Wire) setKey(k Key) {
	if w.Key != nil {
		w.Key.Release()
	}
	w.Key = k
}

// Bool returns the wire value as a bit. The wire must be Known and
// its value 0 or 1.
func (w *Wire) Bool() (uint32, error) {
	if w.Flag != Known {
		return 0, errors.Mark(errors.New("wire value not known"),
			ErrWireTypeViolation)
	}
	if w.Value > 1 {
		return 0, errors.Mark(errors.Newf("non-boolean wire value %d",
			w.Value), ErrWireTypeViolation)
	}
	return w.Value, nil
}

// WireBank implements the fixed-size wire storage of a program.
type WireBank struct {
	wires []Wire
}

// NewWireBank creates a wire bank with size wires. All wires are
// initially Known with value 0 and no key.
func NewWireBank(size int) *WireBank {
	return &WireBank{
		wires: make([]Wire, size),
	}
}

// Size returns the number of wires in the bank.
func (b *WireBank) Size() int {
	return len(b.wires)
}

// At returns the wire at the absolute address addr.
func (b *WireBank) At(addr uint32) (*Wire, error) {
	if uint64(addr) >= uint64(len(b.wires)) {
		return nil, errors.Mark(errors.Newf("wire %d out of bounds [0...%d[",
			addr, len(b.wires)), ErrIndexOutOfBounds)
	}
	return &b.wires[addr], nil
}

// Abs returns the absolute address of the frame-relative address rel
// in the frame at base. The address must be in the bank.
func (b *WireBank) Abs(rel, base uint32) (uint32, error) {
	addr := uint64(rel) + uint64(base)
	if addr >= uint64(len(b.wires)) {
		return 0, errors.Mark(errors.Newf("wire %d+%d out of bounds [0...%d[",
			base, rel, len(b.wires)), ErrIndexOutOfBounds)
	}
	return uint32(addr), nil
}

// Addr returns the wire at the frame-relative address rel in the
// frame at base.
func (b *WireBank) Addr(rel, base uint32) (*Wire, error) {
	addr, err := b.Abs(rel, base)
	if err != nil {
		return nil, err
	}
	return &b.wires[addr], nil
}

// Get returns a copy of the wire at addr. The returned key is
// borrowed from the bank and must not be released by the caller.
func (b *WireBank) Get(addr uint32) (Wire, error) {
	w, err := b.At(addr)
	if err != nil {
		return Wire{}, err
	}
	return *w, nil
}

// Range checks that the wires [addr...addr+width[ are in the bank.
func (b *WireBank) Range(addr, width uint32) error {
	end := uint64(addr) + uint64(width)
	if end > uint64(len(b.wires)) {
		return errors.Mark(errors.Newf("wires [%d...%d[ out of bounds [0...%d[",
			addr, end, len(b.wires)), ErrIndexOutOfBounds)
	}
	return nil
}

// Keys returns the number of wires that hold a key.
func (b *WireBank) Keys() int {
	var count int
	for i := range b.wires {
		if b.wires[i].Key != nil {
			count++
		}
	}
	return count
}

// Release releases all keys held by the bank.
func (b *WireBank) Release() {
	for i := range b.wires {
		b.wires[i].setKey(nil)
	}
}
