// Copyright 2025 The bdb Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

// Package source provides read-only, byte-addressable views of a
// database image, and a Pager that slices them into pages.
package source

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sync/atomic"

	"github.com/dgryski/go-farm"
)

var errClosed = errors.New("source closed")

// Source is an immutable byte image.  Implementations are safe for
// concurrent use.
type Source interface {
	// Bytes returns the n bytes at off.  The result must not be
	// modified; in-memory implementations return a view of their
	// backing buffer.
	Bytes(off int64, n int) ([]byte, error)
	// Size is the total image length in bytes.
	Size() int64
	// ID identifies the image in provenance and logs.
	ID() string
	Close() error
}

func checkRange(size, off int64, n int) error {
	if off < 0 || n < 0 {
		return fmt.Errorf("negative range (off %d, len %d)", off, n)
	}
	if off+int64(n) > size {
		return fmt.Errorf("range [%d, %d) beyond image of %d bytes: %w", off, off+int64(n), size, io.ErrUnexpectedEOF)
	}
	return nil
}

// Mem is a Source over a byte slice.
type Mem struct {
	data []byte
	id   string
}

var _ Source = &Mem{}

// NewMem wraps data.  An empty id is replaced by a fingerprint of the
// contents, so identical images get identical provenance.
func NewMem(data []byte, id string) *Mem {
	if id == "" {
		id = fmt.Sprintf("mem:%016x", farm.Fingerprint64(data))
	}
	return &Mem{data: data, id: id}
}

// ReadAll materializes r (usually stdin) into a Mem; page access needs
// random seeks.
func ReadAll(r io.Reader, id string) (*Mem, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("io.ReadAll: %w", err)
	}
	return NewMem(data, id), nil
}

func (m *Mem) Bytes(off int64, n int) ([]byte, error) {
	if err := checkRange(int64(len(m.data)), off, n); err != nil {
		return nil, err
	}
	return m.data[off : off+int64(n) : off+int64(n)], nil
}

func (m *Mem) Size() int64 {
	return int64(len(m.data))
}

func (m *Mem) ID() string {
	return m.id
}

func (m *Mem) Close() error {
	return nil
}

// File reads through an *os.File with pread, copying every request.
type File struct {
	f        *os.File
	size     int64
	isClosed atomic.Bool
}

var _ Source = &File{}

// OpenFile opens path for positional reads.
func OpenFile(path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("os.Open(%s): %w", path, err)
	}
	stats, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("f.Stat: %w", err)
	}
	return &File{f: f, size: stats.Size()}, nil
}

func (s *File) Bytes(off int64, n int) ([]byte, error) {
	if s.isClosed.Load() {
		return nil, errClosed
	}
	if err := checkRange(s.size, off, n); err != nil {
		return nil, err
	}
	buf := make([]byte, n)
	if read, err := s.f.ReadAt(buf, off); err != nil {
		return nil, fmt.Errorf("f.ReadAt(%d, len: %d): %w", off, n, err)
	} else if read != n {
		return nil, fmt.Errorf("short read of %d ReadAt(%d, len: %d)", read, off, n)
	}
	return buf, nil
}

func (s *File) Size() int64 {
	return s.size
}

func (s *File) ID() string {
	return s.f.Name()
}

func (s *File) Close() error {
	if s.isClosed.Swap(true) {
		return nil
	}
	return s.f.Close()
}
