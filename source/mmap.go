// Copyright 2025 The bdb Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package source

import (
	"fmt"
	"os"
	"sync/atomic"

	"golang.org/x/sys/unix"
)

// Mmap is a Source backed by a read-only shared mapping of a file.
type Mmap struct {
	path     string
	data     []byte
	isClosed atomic.Bool
}

var _ Source = &Mmap{}

// OpenMmap maps path into memory.  Page access during traversal jumps
// around the file, so the mapping is advised MADV_RANDOM.
func OpenMmap(path string) (*Mmap, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("os.Open(%s): %w", path, err)
	}
	defer func() {
		// the mapping outlives the descriptor
		_ = f.Close()
	}()

	stats, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("f.Stat: %w", err)
	}
	size := stats.Size()
	if size == 0 {
		return &Mmap{path: path}, nil
	}
	if int64(int(size)) != size {
		return nil, fmt.Errorf("%s: %d bytes is too large to map", path, size)
	}

	data, err := unix.Mmap(int(f.Fd()), 0, int(size), unix.PROT_READ, unix.MAP_SHARED)
	if err != nil {
		return nil, fmt.Errorf("unix.Mmap(%s): %w", path, err)
	}
	if err := unix.Madvise(data, unix.MADV_RANDOM); err != nil {
		_ = unix.Munmap(data)
		return nil, fmt.Errorf("madvise: %w", err)
	}

	return &Mmap{path: path, data: data}, nil
}

func (m *Mmap) Bytes(off int64, n int) ([]byte, error) {
	if m.isClosed.Load() {
		return nil, errClosed
	}
	if err := checkRange(int64(len(m.data)), off, n); err != nil {
		return nil, err
	}
	return m.data[off : off+int64(n) : off+int64(n)], nil
}

func (m *Mmap) Size() int64 {
	return int64(len(m.data))
}

func (m *Mmap) ID() string {
	return m.path
}

// Close unmaps the file.  Slices previously returned by Bytes must not
// be used afterwards.
func (m *Mmap) Close() error {
	if m.isClosed.Swap(true) || m.data == nil {
		return nil
	}
	data := m.data
	m.data = nil
	if err := unix.Munmap(data); err != nil {
		return fmt.Errorf("unix.Munmap: %w", err)
	}
	return nil
}
