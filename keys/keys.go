//
// keys.go
//
// Copyright (c) 2026 Markku Rossi
//
// All rights reserved.
//

// Package keys implements reference-counted key handles for the PCF
// interpreter. All handles of a key share the same immutable key
// material. The pool counts the live handles so that handle leaks can
// be detected.
package keys

import (
	"fmt"
	"sync/atomic"

	"github.com/markkurossi/pcf/pcf"
)

var (
	_ pcf.Key = &Handle[bool]{}
)

// Pool creates key handles and tracks the number of live handles.
type Pool[T any] struct {
	live    atomic.Int64
	created atomic.Uint64
}

// NewPool creates a new key pool.
func NewPool[T any]() *Pool[T] {
	return new(Pool[T])
}

// New creates a new key with the key material v. The returned handle
// is the only owner of the key.
func (p *Pool[T]) New(v T) *Handle[T] {
	e := &entry[T]{
		value: v,
	}
	return p.handle(e)
}

func (p *Pool[T]) handle(e *entry[T]) *Handle[T] {
	e.refs.Add(1)
	p.live.Add(1)
	p.created.Add(1)
	return &Handle[T]{
		pool:  p,
		entry: e,
	}
}

// Live returns the number of live handles.
func (p *Pool[T]) Live() int64 {
	return p.live.Load()
}

// Created returns the number of handles created.
func (p *Pool[T]) Created() uint64 {
	return p.created.Load()
}

type entry[T any] struct {
	value T
	refs  atomic.Int32
}

// Handle implements pcf.Key.
type Handle[T any] struct {
	pool     *Pool[T]
	entry    *entry[T]
	released atomic.Bool
}

// Value returns the key material.
func (h *Handle[T]) Value() T {
	h.check("Value")
	return h.entry.value
}

// Refs returns the number of live handles sharing the key material.
func (h *Handle[T]) Refs() int {
	return int(h.entry.refs.Load())
}

// Clone implements pcf.Key.Clone.
func (h *Handle[T]) Clone() pcf.Key {
	h.check("Clone")
	return h.pool.handle(h.entry)
}

// Release implements pcf.Key.Release.
func (h *Handle[T]) Release() {
	if !h.released.CompareAndSwap(false, true) {
		panic("keys: Release on released handle")
	}
	h.entry.refs.Add(-1)
	h.pool.live.Add(-1)
}

func (h *Handle[T]) check(op string) {
	if h.released.Load() {
		panic(fmt.Sprintf("keys: %s on released handle", op))
	}
}

func (h *Handle[T]) String() string {
	if h.released.Load() {
		return "{released}"
	}
	return fmt.Sprintf("%v", h.entry.value)
}

// ValueOf returns the key material of the key k. The key must be a
// *Handle[T] created by a Pool[T].
func ValueOf[T any](k pcf.Key) (T, error) {
	var zero T
	if k == nil {
		return zero, fmt.Errorf("no key")
	}
	h, ok := k.(*Handle[T])
	if !ok {
		return zero, fmt.Errorf("unexpected key type %T", k)
	}
	if h.released.Load() {
		return zero, fmt.Errorf("key released")
	}
	return h.entry.value, nil
}
