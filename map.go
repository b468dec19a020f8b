// Copyright 2025 The bdb Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package bdb

import (
	"iter"
	"slices"

	"github.com/dgryski/go-farm"
)

// Provenance records where a record was recovered from.
type Provenance struct {
	SourceID string
	Page     uint32
	// Slot is the slot index of the key entry on Page.
	Slot int
}

// Record is one recovered key/value pair.  Key and Value are owned by
// the record: they never alias the source image.
type Record struct {
	Key        []byte
	Value      []byte
	Provenance Provenance
}

// Entry is a Map value.
type Entry struct {
	Key        []byte
	Value      []byte
	Provenance Provenance
}

// Map collects records by key.  A later record with an equal key
// replaces the earlier one, so with a sequential scan the last record
// visited in traversal order wins.
type Map struct {
	entries map[string]Entry
}

// NewMap returns an empty Map.
func NewMap() *Map {
	return &Map{entries: make(map[string]Entry)}
}

// Put inserts r, returning the entry it replaced, if any.
func (m *Map) Put(r Record) (prev Entry, replaced bool) {
	k := string(r.Key)
	prev, replaced = m.entries[k]
	m.entries[k] = Entry{Key: r.Key, Value: r.Value, Provenance: r.Provenance}
	return prev, replaced
}

// Get returns the value stored under key.
func (m *Map) Get(key []byte) ([]byte, bool) {
	e, ok := m.entries[string(key)]
	return e.Value, ok
}

// Entry returns the full entry stored under key.
func (m *Map) Entry(key []byte) (Entry, bool) {
	e, ok := m.entries[string(key)]
	return e, ok
}

// Len is the number of distinct keys.
func (m *Map) Len() int {
	return len(m.entries)
}

// Keys returns every key in byte order.
func (m *Map) Keys() []string {
	keys := make([]string, 0, len(m.entries))
	for k := range m.entries {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// All iterates entries in key order.
func (m *Map) All() iter.Seq2[[]byte, Entry] {
	return func(yield func([]byte, Entry) bool) {
		for _, k := range m.Keys() {
			e := m.entries[k]
			if !yield(e.Key, e) {
				return
			}
		}
	}
}

// Strings copies the contents into a plain map, mostly for tests and
// printing.
func (m *Map) Strings() map[string]string {
	out := make(map[string]string, len(m.entries))
	for k, e := range m.entries {
		out[k] = string(e.Value)
	}
	return out
}

// Digest fingerprints the key/value contents.  It doesn't depend on
// insertion order or provenance, so two recoveries of the same data
// have the same digest.
func (m *Map) Digest() uint64 {
	var sum uint64
	for k, e := range m.entries {
		sum += farm.Hash64WithSeed(e.Value, farm.Fingerprint64([]byte(k)))
	}
	return sum
}
