// Copyright 2025 The bdb Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package bdb

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bpowers/bdb/internal/pagetest"
)

func rec(k, v string, pgno uint32) Record {
	return Record{Key: []byte(k), Value: []byte(v), Provenance: Provenance{SourceID: "t", Page: pgno}}
}

func TestMapLastWriteWins(t *testing.T) {
	m := NewMap()
	_, replaced := m.Put(rec("k", "old", 1))
	assert.False(t, replaced)
	prev, replaced := m.Put(rec("k", "new", 2))
	require.True(t, replaced)
	assert.Equal(t, "old", string(prev.Value))

	e, ok := m.Entry([]byte("k"))
	require.True(t, ok)
	assert.Equal(t, "new", string(e.Value))
	assert.Equal(t, uint32(2), e.Provenance.Page)
	assert.Equal(t, 1, m.Len())

	_, ok = m.Get([]byte("missing"))
	assert.False(t, ok)
}

func TestMapOrderAndDigest(t *testing.T) {
	a := NewMap()
	a.Put(rec("b", "2", 1))
	a.Put(rec("a", "1", 1))
	a.Put(rec("c", "3", 1))

	b := NewMap()
	b.Put(rec("c", "3", 9))
	b.Put(rec("a", "1", 9))
	b.Put(rec("b", "2", 9))

	assert.Equal(t, []string{"a", "b", "c"}, a.Keys())
	assert.Equal(t, a.Digest(), b.Digest(), "digest ignores order and provenance")

	var keys []string
	for k := range a.All() {
		keys = append(keys, string(k))
	}
	assert.Equal(t, []string{"a", "b", "c"}, keys)

	b.Put(rec("b", "x", 9))
	assert.NotEqual(t, a.Digest(), b.Digest())

	// swapping values between keys changes the digest
	c := NewMap()
	c.Put(rec("a", "2", 1))
	c.Put(rec("b", "1", 1))
	c.Put(rec("c", "3", 1))
	assert.NotEqual(t, a.Digest(), c.Digest())
}

func TestMapDuplicateKeysAcrossLeaves(t *testing.T) {
	b := pagetest.New()
	x := b.Leaf(pagetest.Str("dup"), pagetest.Str("first"))
	y := b.Leaf(pagetest.Str("dup"), pagetest.Str("second"))
	b.SetRoot(b.Internal(pagetest.Child{Page: x}, pagetest.Child{Page: y, Key: []byte("dup")}))

	r, err := NewReader(b.Source())
	require.NoError(t, err)
	defer r.Close()

	m, _, err := r.Map()
	require.NoError(t, err)
	e, ok := m.Entry([]byte("dup"))
	require.True(t, ok)
	assert.Equal(t, "second", string(e.Value))
	assert.Equal(t, y, e.Provenance.Page)
}

func TestRecordsOwnTheirBytes(t *testing.T) {
	b := twoPairs()
	src := b.Source()
	r, err := NewReader(src)
	require.NoError(t, err)
	defer r.Close()

	m, _, err := r.Map()
	require.NoError(t, err)

	// scribble over the leaf page; recovered records must not change
	leaf, err := src.Bytes(4096, 4096)
	require.NoError(t, err)
	for i := range leaf {
		leaf[i] = 0
	}
	assert.Equal(t, map[string]string{"a": "1", "b": "2"}, m.Strings())
}
