// Copyright 2025 The bdb Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package btree

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bpowers/bdb/internal/pagetest"
	"github.com/bpowers/bdb/page"
	"github.com/bpowers/bdb/source"
)

func loadLeaf(t *testing.T, p *source.Pager, b *pagetest.Builder, pgno uint32) Leaf {
	t.Helper()
	buf, err := p.Page(pgno)
	require.NoError(t, err)
	hdr, err := page.DecodeHeader(buf, b.Order(), b.Layout())
	require.NoError(t, err)
	require.NoError(t, hdr.Check(len(buf)))
	return Leaf{Pgno: pgno, Buf: buf, Header: hdr}
}

func strs(pairs []Pair) [][2]string {
	out := make([][2]string, 0, len(pairs))
	for _, p := range pairs {
		out = append(out, [2]string{string(p.Key.Bytes()), string(p.Value.Bytes())})
	}
	return out
}

func TestExtractLeafPairing(t *testing.T) {
	for _, layout := range []page.Layout{page.LayoutBounds, page.LayoutIndexed} {
		t.Run(layout.String(), func(t *testing.T) {
			b := pagetest.New(pagetest.WithLayout(layout))
			pg := b.Leaf(
				pagetest.Str("k1"), pagetest.Str("v1"),
				pagetest.Str("k2"), pagetest.Str("v2"),
				pagetest.Str("k3"),
			)
			p := pager(b)

			pairs, faults, err := ExtractLeaf(p, b.Order(), loadLeaf(t, p, b, pg))
			require.NoError(t, err)
			assert.Empty(t, faults)
			assert.Equal(t, [][2]string{{"k1", "v1"}, {"k2", "v2"}}, strs(pairs))
			assert.Equal(t, 2, pairs[1].KeySlot)
			assert.Equal(t, 3, pairs[1].ValueSlot)
		})
	}
}

func TestExtractLeafSkipsTombstones(t *testing.T) {
	b := pagetest.New()
	pg := b.Leaf(pagetest.Str("k1"), pagetest.Str("gone").Deleted(), pagetest.Str("v1"))
	p := pager(b)

	pairs, faults, err := ExtractLeaf(p, b.Order(), loadLeaf(t, p, b, pg))
	require.NoError(t, err)
	assert.Empty(t, faults)
	assert.Equal(t, [][2]string{{"k1", "v1"}}, strs(pairs))
	assert.Equal(t, 0, pairs[0].KeySlot)
	assert.Equal(t, 2, pairs[0].ValueSlot)
}

func TestExtractLeafBadSlot(t *testing.T) {
	b := pagetest.New()
	pg := b.Leaf(
		pagetest.Str("k1"), pagetest.Str("v1"),
		pagetest.Str("k2"), pagetest.Str("v2"),
		pagetest.Str("k3"), pagetest.Str("v3"),
	)
	// points into the slot array, below upper
	b.SetSlot(pg, 2, 40)
	// points at the last three bytes of the page
	b.SetSlot(pg, 3, uint16(b.PageSize()-2))
	p := pager(b)

	pairs, faults, err := ExtractLeaf(p, b.Order(), loadLeaf(t, p, b, pg))
	require.NoError(t, err)
	require.Len(t, faults, 2)
	assert.Equal(t, 2, faults[0].Slot)
	assert.Equal(t, 40, faults[0].Offset)
	assert.ErrorIs(t, faults[0].Err, page.ErrFieldOutOfBounds)
	assert.Equal(t, 3, faults[1].Slot)
	assert.Equal(t, [][2]string{{"k1", "v1"}, {"k3", "v3"}}, strs(pairs))
}

func TestExtractLeafOverflow(t *testing.T) {
	b := pagetest.New()
	key := pattern(5000)
	val := pattern(9000)
	kref := b.Overflow(key)
	vref := b.Overflow(val)
	pg := b.Leaf(pagetest.Ref(kref), pagetest.Ref(vref), pagetest.Str("small"), pagetest.Str("v"))
	p := pager(b)

	pairs, _, err := ExtractLeaf(p, b.Order(), loadLeaf(t, p, b, pg))
	require.NoError(t, err)
	require.Len(t, pairs, 2)
	assert.Equal(t, key, pairs[0].Key.Bytes())
	assert.Equal(t, val, pairs[0].Value.Bytes())
	assert.False(t, pairs[0].Key.Borrowed())
	assert.True(t, pairs[1].Key.Borrowed())
}

func TestExtractLeafPageFaults(t *testing.T) {
	t.Run("unknown kind", func(t *testing.T) {
		b := pagetest.New()
		pg := b.Leaf(pagetest.Str("k"), pagetest.RawKind(0x02, []byte("v")))
		p := pager(b)

		_, _, err := ExtractLeaf(p, b.Order(), loadLeaf(t, p, b, pg))
		require.ErrorIs(t, err, page.ErrUnknownLeafItemKind)
		fe, ok := page.AsFormatError(err)
		require.True(t, ok)
		assert.Equal(t, pg, fe.Page)
		assert.Equal(t, 1, fe.Slot)
	})

	t.Run("truncated value chain", func(t *testing.T) {
		b := pagetest.New()
		ref := b.Overflow(pattern(10000))
		b.SetNext(ref.FirstPage, 0)
		pg := b.Leaf(pagetest.Str("k"), pagetest.Ref(ref))
		p := pager(b)

		_, _, err := ExtractLeaf(p, b.Order(), loadLeaf(t, p, b, pg))
		assert.ErrorIs(t, err, page.ErrTruncatedOverflowChain)
	})
}
