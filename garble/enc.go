//
// enc.go
//
// Copyright (c) 2026 Markku Rossi
//
// All rights reserved.
//

package garble

import (
	"crypto/cipher"
)

// Garbled table rows are C ^ π(K) ^ K where K = 2A ^ 4B ^ T and π is
// AES with a fixed key.

func makeK(a, b Label, t uint32) Label {
	return a.Mul2().Xor(b.Mul4()).Xor(NewTweak(t))
}

func hash(alg cipher.Block, a, b Label, t uint32, buf *LabelData) Label {
	k := makeK(a, b, t)
	k.GetData(buf)
	alg.Encrypt(buf[:], buf[:])
	return LabelFromData(buf).Xor(k)
}

func encrypt(alg cipher.Block, a, b, c Label, t uint32,
	buf *LabelData) Label {
	return hash(alg, a, b, t, buf).Xor(c)
}

func decrypt(alg cipher.Block, a, b Label, t uint32, encrypted Label,
	buf *LabelData) Label {
	return hash(alg, a, b, t, buf).Xor(encrypted)
}

// idx returns the table row of the labels.
func idx(a, b Label) int {
	var ret int
	if a.S() {
		ret |= 0x2
	}
	if b.S() {
		ret |= 0x1
	}
	return ret
}
