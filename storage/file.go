package storage

import (
	"bytes"
	"fmt"
	"os"
	"sync"
)

// DefaultCapacity matches the 1 KiB EEPROM of the board MCU.
const DefaultCapacity = 1024

// File is an EEPROM backed by a fixed-size image file. The image is created
// erased when missing and held under an exclusive advisory lock while open.
type File struct {
	mu       sync.Mutex
	f        *os.File
	path     string
	capacity int
}

// OpenFile opens or creates the image at path. An existing image keeps its
// size; a new one gets capacity bytes.
func OpenFile(path string, capacity int) (*File, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open eeprom image %s: %w", path, err)
	}
	if err := lock(f); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("lock eeprom image %s: %w", path, err)
	}

	st, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("stat eeprom image %s: %w", path, err)
	}
	size := int(st.Size())
	if size == 0 {
		if _, err := f.WriteAt(bytes.Repeat([]byte{Erased}, capacity), 0); err != nil {
			_ = f.Close()
			return nil, fmt.Errorf("erase eeprom image %s: %w", path, err)
		}
		if err := f.Sync(); err != nil {
			_ = f.Close()
			return nil, err
		}
		size = capacity
	}
	return &File{f: f, path: path, capacity: size}, nil
}

// Path returns the image path.
func (e *File) Path() string { return e.path }

// Capacity implements EEPROM.
func (e *File) Capacity() int { return e.capacity }

// ReadAt implements io.ReaderAt.
func (e *File) ReadAt(p []byte, off int64) (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.f == nil {
		return 0, os.ErrClosed
	}
	if err := bounds(e.capacity, off, len(p)); err != nil {
		return 0, err
	}
	return e.f.ReadAt(p, off)
}

// WriteAt implements io.WriterAt. Every write is synced before returning.
func (e *File) WriteAt(p []byte, off int64) (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.f == nil {
		return 0, os.ErrClosed
	}
	if err := bounds(e.capacity, off, len(p)); err != nil {
		return 0, err
	}
	n, err := e.f.WriteAt(p, off)
	if err != nil {
		return n, err
	}
	return n, e.f.Sync()
}

// Close releases the lock and the file.
func (e *File) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.f == nil {
		return nil
	}
	_ = unlock(e.f)
	err := e.f.Close()
	e.f = nil
	return err
}

// Reopen switches to the file currently found at the image path, for
// instance after another tool replaced the image by renaming a new file over
// it. The capacity becomes the size of the new image.
func (e *File) Reopen() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.f == nil {
		return os.ErrClosed
	}
	f, err := os.OpenFile(e.path, os.O_RDWR, 0)
	if err != nil {
		return fmt.Errorf("reopen eeprom image %s: %w", e.path, err)
	}
	if same(e.f, f) {
		_ = f.Close()
		return nil
	}
	st, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return fmt.Errorf("stat eeprom image %s: %w", e.path, err)
	}
	if err := lock(f); err != nil {
		_ = f.Close()
		return fmt.Errorf("lock eeprom image %s: %w", e.path, err)
	}
	_ = unlock(e.f)
	_ = e.f.Close()
	e.f = f
	e.capacity = int(st.Size())
	return nil
}

func same(a, b *os.File) bool {
	sa, err := a.Stat()
	if err != nil {
		return false
	}
	sb, err := b.Stat()
	if err != nil {
		return false
	}
	return os.SameFile(sa, sb)
}
