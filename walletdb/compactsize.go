// Copyright 2025 The bdb Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

// Package walletdb splits recovered wallet records into (tag, key
// suffix, value) triples and dispatches them to registered decoders.
// Wallet keys start with a compact-size length and that many bytes of
// UTF-8 tag; whatever follows is type specific.
package walletdb

import (
	"encoding/binary"
	"math"
)

// CompactSizeLen is the number of bytes AppendCompactSize uses for n.
func CompactSizeLen(n uint64) int {
	switch {
	case n < 0xfd:
		return 1
	case n <= math.MaxUint16:
		return 3
	case n <= math.MaxUint32:
		return 5
	default:
		return 9
	}
}

// AppendCompactSize appends the minimal encoding of n to dst.
func AppendCompactSize(dst []byte, n uint64) []byte {
	switch CompactSizeLen(n) {
	case 1:
		return append(dst, byte(n))
	case 3:
		return binary.LittleEndian.AppendUint16(append(dst, 0xfd), uint16(n))
	case 5:
		return binary.LittleEndian.AppendUint32(append(dst, 0xfe), uint32(n))
	default:
		return binary.LittleEndian.AppendUint64(append(dst, 0xff), n)
	}
}

// ReadCompactSize decodes a compact size from the front of b, returning
// the value and the bytes consumed.  ok is false if b is too short.
// Non-minimal encodings are accepted.
func ReadCompactSize(b []byte) (n uint64, width int, ok bool) {
	if len(b) == 0 {
		return 0, 0, false
	}
	switch b[0] {
	case 0xfd:
		if len(b) < 3 {
			return 0, 0, false
		}
		return uint64(binary.LittleEndian.Uint16(b[1:])), 3, true
	case 0xfe:
		if len(b) < 5 {
			return 0, 0, false
		}
		return uint64(binary.LittleEndian.Uint32(b[1:])), 5, true
	case 0xff:
		if len(b) < 9 {
			return 0, 0, false
		}
		return binary.LittleEndian.Uint64(b[1:]), 9, true
	default:
		return uint64(b[0]), 1, true
	}
}
