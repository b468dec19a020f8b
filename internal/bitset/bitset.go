// Copyright 2025 The bdb Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

// Package bitset tracks which pages of a file have been visited.
package bitset

// Pages is a fixed-size bitmap indexed by page number.
type Pages struct {
	bits  []uint64
	count uint32
}

// New returns a bitmap able to hold pages [0, count).
func New(count uint32) *Pages {
	return &Pages{
		bits:  make([]uint64, (uint64(count)+63)/64),
		count: count,
	}
}

func offsets(pgno uint32) (word uint32, bit uint64) {
	return pgno / 64, uint64(pgno % 64)
}

// Mark sets pgno and reports whether it was previously unset.
// Out-of-range pages are ignored and report false.
func (p *Pages) Mark(pgno uint32) bool {
	if pgno >= p.count {
		return false
	}
	word, bit := offsets(pgno)
	if p.bits[word]&(1<<bit) != 0 {
		return false
	}
	p.bits[word] |= 1 << bit
	return true
}
