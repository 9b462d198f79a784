//
// label.go
//
// Copyright (c) 2026 Markku Rossi
//
// All rights reserved.
//

package garble

import (
	"encoding/binary"
	"fmt"
)

// Label implements a 128 bit wire label. The most significant bit of
// D0 is the point-and-permute select bit.
type Label struct {
	D0 uint64
	D1 uint64
}

// LabelData contains label data as byte array.
type LabelData [16]byte

const sBit = 0x8000000000000000

func (l Label) String() string {
	return fmt.Sprintf("%016x%016x", l.D0, l.D1)
}

// Equal tests if the labels are equal.
func (l Label) Equal(o Label) bool {
	return l.D0 == o.D0 && l.D1 == o.D1
}

// S returns the label's select bit.
func (l Label) S() bool {
	return l.D0&sBit != 0
}

// WithS returns the label with the select bit set to s.
func (l Label) WithS(s bool) Label {
	if s {
		l.D0 |= sBit
	} else {
		l.D0 &^= sBit
	}
	return l
}

// Xor returns l^o.
func (l Label) Xor(o Label) Label {
	return Label{
		D0: l.D0 ^ o.D0,
		D1: l.D1 ^ o.D1,
	}
}

// Mul2 returns the label multiplied by 2 in the 128 bit space.
func (l Label) Mul2() Label {
	return Label{
		D0: l.D0<<1 | l.D1>>63,
		D1: l.D1 << 1,
	}
}

// Mul4 returns the label multiplied by 4 in the 128 bit space.
func (l Label) Mul4() Label {
	return Label{
		D0: l.D0<<2 | l.D1>>62,
		D1: l.D1 << 2,
	}
}

// GetData stores the label into the label data.
func (l Label) GetData(buf *LabelData) {
	binary.BigEndian.PutUint64(buf[0:8], l.D0)
	binary.BigEndian.PutUint64(buf[8:16], l.D1)
}

// LabelFromData creates a label from the label data.
func LabelFromData(buf *LabelData) Label {
	return Label{
		D0: binary.BigEndian.Uint64(buf[0:8]),
		D1: binary.BigEndian.Uint64(buf[8:16]),
	}
}

// NewTweak creates a label from the tweak value.
func NewTweak(tweak uint32) Label {
	return Label{
		D1: uint64(tweak),
	}
}

// Wire holds the 0 and 1 labels of a wire.
type Wire struct {
	L0 Label
	L1 Label
}

func (w Wire) String() string {
	return fmt.Sprintf("%s/%s", w.L0, w.L1)
}

// Label returns the label of the bit value.
func (w Wire) Label(bit uint32) Label {
	if bit != 0 {
		return w.L1
	}
	return w.L0
}

// Bit resolves the label back into the bit value.
func (w Wire) Bit(l Label) (uint32, error) {
	switch {
	case l.Equal(w.L0):
		return 0, nil
	case l.Equal(w.L1):
		return 1, nil
	default:
		return 0, fmt.Errorf("unknown label %s for wire %v", l, w)
	}
}

// Swap returns the wire with its labels swapped.
func (w Wire) Swap() Wire {
	return Wire{
		L0: w.L1,
		L1: w.L0,
	}
}
