// Copyright 2025 The bdb Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package walletdb

import (
	"errors"
	"fmt"
	"iter"
	"unicode/utf8"

	"github.com/bpowers/bdb"
)

// ErrNotWalletKey is returned for keys that don't follow the
// length-prefixed tag convention.
var ErrNotWalletKey = errors.New("key has no length-prefixed UTF-8 tag")

// SplitKey separates a wallet key into its tag and the bytes after it.
// The suffix aliases key.
func SplitKey(key []byte) (tag string, suffix []byte, ok bool) {
	n, width, ok := ReadCompactSize(key)
	if !ok || n > uint64(len(key)-width) {
		return "", nil, false
	}
	raw := key[width : width+int(n)]
	if !utf8.Valid(raw) {
		return "", nil, false
	}
	return string(raw), key[width+int(n):], true
}

// AppendKey builds a wallet key from a tag and suffix.
func AppendKey(dst []byte, tag string, suffix []byte) []byte {
	dst = AppendCompactSize(dst, uint64(len(tag)))
	dst = append(dst, tag...)
	return append(dst, suffix...)
}

// Triple is the unit handed to decoders.
type Triple struct {
	Tag        string
	KeySuffix  []byte
	Value      []byte
	Provenance bdb.Provenance
}

// Classify splits a recovered record into a Triple.
func Classify(rec bdb.Record) (Triple, error) {
	tag, suffix, ok := SplitKey(rec.Key)
	if !ok {
		return Triple{}, fmt.Errorf("page %d slot %d: %w", rec.Provenance.Page, rec.Provenance.Slot, ErrNotWalletKey)
	}
	return Triple{
		Tag:        tag,
		KeySuffix:  suffix,
		Value:      rec.Value,
		Provenance: rec.Provenance,
	}, nil
}

// Triples classifies a record sequence.  Records whose keys don't carry
// a tag are yielded with ErrNotWalletKey and the sequence goes on; an
// error from records itself ends it.
func Triples(records iter.Seq2[bdb.Record, error]) iter.Seq2[Triple, error] {
	return func(yield func(Triple, error) bool) {
		for rec, err := range records {
			if err != nil {
				yield(Triple{}, err)
				return
			}
			if !yield(Classify(rec)) {
				return
			}
		}
	}
}
