//
// key.go
//
// Copyright (c) 2026 Markku Rossi
//
// All rights reserved.
//

package pcf

// Key is an owned handle to the key material of a wire. The
// interpreter never looks inside a key, it only manages the handle
// lifetime. Each wire owns at most one live handle.
type Key interface {
	// Clone returns a new handle sharing the key material. The
	// receiver remains valid.
	Clone() Key

	// Release retires the handle. The handle must not be used after
	// Release.
	Release()
}

// Evaluator resolves delegated gates and I/O rounds into key
// material. It is called synchronously from the interpreter's step
// function. The ownership of the returned key passes to the
// interpreter. For output rounds the returned key, if any, is
// released immediately.
type Evaluator interface {
	Evaluate(st *State, g *Gate) (Key, error)
}

// EvaluatorFunc implements Evaluator with a function.
type EvaluatorFunc func(st *State, g *Gate) (Key, error)

// Evaluate calls f(st, g).
func (f EvaluatorFunc) Evaluate(st *State, g *Gate) (Key, error) {
	return f(st, g)
}

func cloneKey(k Key) Key {
	if k == nil {
		return nil
	}
	return k.Clone()
}
