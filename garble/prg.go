//
// prg.go
//
// Copyright (c) 2026 Markku Rossi
//
// All rights reserved.
//

package garble

import (
	"crypto/rand"
	"crypto/sha256"

	"golang.org/x/crypto/chacha20"
)

// PRG generates wire labels from a ChaCha20 keystream.
type PRG struct {
	cipher *chacha20.Cipher
	buf    LabelData
}

// NewPRG creates a new label generator. If seed is nil, the generator
// is seeded from crypto/rand. Otherwise the generator output is fully
// determined by the seed.
func NewPRG(seed []byte) (*PRG, error) {
	var key [chacha20.KeySize]byte
	if seed == nil {
		if _, err := rand.Read(key[:]); err != nil {
			return nil, err
		}
	} else {
		key = sha256.Sum256(seed)
	}
	var nonce [chacha20.NonceSize]byte

	c, err := chacha20.NewUnauthenticatedCipher(key[:], nonce[:])
	if err != nil {
		return nil, err
	}
	return &PRG{
		cipher: c,
	}, nil
}

// Read fills p with keystream bytes.
func (prg *PRG) Read(p []byte) (int, error) {
	for i := range p {
		p[i] = 0
	}
	prg.cipher.XORKeyStream(p, p)
	return len(p), nil
}

// Label returns the next random label.
func (prg *PRG) Label() Label {
	prg.buf = LabelData{}
	prg.cipher.XORKeyStream(prg.buf[:], prg.buf[:])
	return LabelFromData(&prg.buf)
}
