// Copyright 2025 The bdb Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package bitset

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPages(t *testing.T) {
	p := New(128)

	require.Equal(t, 2, len(p.bits))
	require.Equal(t, uint32(128), p.count)

	// should do nothing
	require.False(t, p.Mark(132))

	zero := []uint64{0, 0}
	require.Equal(t, zero, p.bits)

	require.True(t, p.Mark(7))
	// second mark reports the page as already seen
	require.False(t, p.Mark(7))
	require.True(t, p.Mark(64))
	require.Equal(t, []uint64{1 << 7, 1}, p.bits)

	for i := uint32(0); i < 128; i++ {
		p.Mark(i)
	}
	full := []uint64{^uint64(0), ^uint64(0)}
	require.Equal(t, full, p.bits)
}

func TestPagesOddCount(t *testing.T) {
	p := New(65)
	require.Equal(t, 2, len(p.bits))
	require.True(t, p.Mark(64))
	require.False(t, p.Mark(65))
}
