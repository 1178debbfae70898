// Copyright (c) 2024 The eamon-interpreter authors.
// Licensed under the Apache License, Version 2.0.

// Package memory implements the VM's flat chunked global variable store.
// Grounded on the teacher's (db47h/ngaro) single flat []Cell address space:
// this generalizes direct Cell indexing into a dense vector of Chunks, one
// per declared variable, indexed by the low 31 bits of a global address.
package memory

import "github.com/braeun/eamon-interpreter/value"

// Memory is a dense vector of Chunks indexed by global slot number. It is
// created by the VM at load time with capacity equal to the image's
// declared numeric-block size (the ENTRY opcode's operand).
type Memory struct {
	chunks []value.Chunk
}

// New returns a Memory with n empty scalar slots, ready to be populated by
// CLR/RSZ as the VM's init epilogue runs.
func New(n int) *Memory {
	return &Memory{chunks: make([]value.Chunk, n)}
}

// Len returns the number of declared chunks.
func (m *Memory) Len() int { return len(m.chunks) }

// Chunk returns the chunk at slot idx, allocating a single Undefined-typed
// zero slot if it has never been initialized (defensive; the compiler's
// init epilogue should always reach every slot with an explicit CLR first).
func (m *Memory) Chunk(idx int) value.Chunk {
	c := m.chunks[idx]
	if c == nil {
		c = value.NewChunk(value.Undefined, 1)
		m.chunks[idx] = c
	}
	return c
}

// SetChunk replaces the chunk at slot idx outright (used by RSZ, which may
// change a chunk's length).
func (m *Memory) SetChunk(idx int, c value.Chunk) {
	m.chunks[idx] = c
}

// Clear resets the chunk at idx to the T-zero state of t, preserving its
// current length.
func (m *Memory) Clear(idx int, t value.Type) {
	m.Chunk(idx).Clear(t)
}

// Resize grows or shrinks the chunk at idx to n slots, clearing every slot
// to the T-zero value of t.
func (m *Memory) Resize(idx int, t value.Type, n int) {
	m.chunks[idx] = m.Chunk(idx).Resize(t, n)
}

// Get returns the scalar value at (idx, offset).
func (m *Memory) Get(idx, offset int) value.Value {
	return m.Chunk(idx)[offset]
}

// Set stores v at (idx, offset), coercing it to t first.
func (m *Memory) Set(idx, offset int, t value.Type, v value.Value) {
	m.Chunk(idx)[offset] = v.Cast(t)
}
