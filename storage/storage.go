// Package storage provides the non-volatile byte stores the configuration
// record lives in.
package storage

import (
	"fmt"
	"io"
	"sync"
)

// EEPROM is a fixed-capacity byte store addressed by offset.
type EEPROM interface {
	Capacity() int
	io.ReaderAt
	io.WriterAt
}

// Erased is the value of a never-written EEPROM cell.
const Erased = 0xFF

// Memory is an in-process EEPROM.
type Memory struct {
	mu   sync.RWMutex
	data []byte
}

// NewMemory returns an erased EEPROM of size bytes.
func NewMemory(size int) *Memory {
	m := &Memory{data: make([]byte, size)}
	for i := range m.data {
		m.data[i] = Erased
	}
	return m
}

// Capacity implements EEPROM.
func (m *Memory) Capacity() int { return len(m.data) }

func bounds(capacity int, off int64, n int) error {
	if off < 0 || off+int64(n) > int64(capacity) {
		return fmt.Errorf("eeprom access [%d, %d) outside capacity %d: %w", off, off+int64(n), capacity, io.ErrUnexpectedEOF)
	}
	return nil
}

// ReadAt implements io.ReaderAt.
func (m *Memory) ReadAt(p []byte, off int64) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := bounds(len(m.data), off, len(p)); err != nil {
		return 0, err
	}
	return copy(p, m.data[off:]), nil
}

// WriteAt implements io.WriterAt.
func (m *Memory) WriteAt(p []byte, off int64) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := bounds(len(m.data), off, len(p)); err != nil {
		return 0, err
	}
	return copy(m.data[off:], p), nil
}

// Bytes returns a copy of the whole content.
func (m *Memory) Bytes() []byte {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]byte(nil), m.data...)
}
