// Copyright 2025 The bdb Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package page

import (
	"encoding/binary"
	"fmt"
)

// Endian is the byte order a file was written in.
type Endian uint8

const (
	LittleEndian Endian = iota
	BigEndian
)

// Order returns the encoding/binary byte order for e.
func (e Endian) Order() binary.ByteOrder {
	if e == BigEndian {
		return binary.BigEndian
	}
	return binary.LittleEndian
}

func (e Endian) String() string {
	if e == BigEndian {
		return "big-endian"
	}
	return "little-endian"
}

// Layout selects one of the two page header encodings.
type Layout uint8

const (
	// LayoutAuto defers the choice to the meta page version.
	LayoutAuto Layout = iota
	// LayoutBounds stores lower/upper and a flags word in a 28-byte header.
	LayoutBounds
	// LayoutIndexed stores entries/hf_offset and a type byte in a 26-byte header.
	LayoutIndexed
)

const (
	boundsHeaderSize  = 28
	indexedHeaderSize = 26

	// indexedMinVersion is the first Btree meta version written by BDB 4.x.
	indexedMinVersion = 8
)

// HeaderSize is the fixed header length, which is also where the slot
// array starts.
func (l Layout) HeaderSize() int {
	if l == LayoutIndexed {
		return indexedHeaderSize
	}
	return boundsHeaderSize
}

func (l Layout) String() string {
	switch l {
	case LayoutBounds:
		return "bounds"
	case LayoutIndexed:
		return "indexed"
	default:
		return "auto"
	}
}

// ParseLayout is the inverse of Layout.String.
func ParseLayout(s string) (Layout, error) {
	switch s {
	case "", "auto":
		return LayoutAuto, nil
	case "bounds":
		return LayoutBounds, nil
	case "indexed":
		return LayoutIndexed, nil
	default:
		return LayoutAuto, fmt.Errorf("unknown page layout %q (want auto, bounds or indexed)", s)
	}
}

// DetectLayout picks the header encoding from the meta page: files
// written by BDB 4.x or newer (Btree meta version 8 and up) use the
// indexed layout.
func DetectLayout(m *Meta) Layout {
	if m.Version >= indexedMinVersion {
		return LayoutIndexed
	}
	return LayoutBounds
}

// Type is the canonical page type.  Raw codes that don't map onto one
// of the canonical types are preserved by Other.
type Type uint16

const (
	TypeLeaf     Type = 0x02
	TypeInternal Type = 0x03
	TypeOverflow Type = 0x04
	TypeMeta     Type = 0x09

	otherBit Type = 0x100
)

// Other wraps a raw on-disk type code with no canonical meaning.
func Other(raw uint8) Type {
	return otherBit | Type(raw)
}

// IsOther reports whether t is an unrecognised raw code.
func (t Type) IsOther() bool {
	return t&otherBit != 0
}

// Code returns the canonical code, or the raw code for Other types.
func (t Type) Code() uint8 {
	return uint8(t)
}

func (t Type) String() string {
	switch t {
	case TypeLeaf:
		return "leaf"
	case TypeInternal:
		return "internal"
	case TypeOverflow:
		return "overflow"
	case TypeMeta:
		return "meta"
	default:
		return fmt.Sprintf("other(0x%02x)", t.Code())
	}
}

// TypeFromFlags decodes the low 5 bits of a bounds-layout flags word.
func TypeFromFlags(flags uint32) Type {
	switch code := uint8(flags & 0x1f); code {
	case 0x02:
		return TypeLeaf
	case 0x03:
		return TypeInternal
	case 0x04:
		return TypeOverflow
	case 0x09:
		return TypeMeta
	default:
		return Other(code)
	}
}

// TypeFromByte decodes the indexed-layout type byte.  5 is P_LBTREE and
// 7 is P_OVERFLOW in BDB; 4 is accepted as overflow too so both layouts
// agree on the canonical code.
func TypeFromByte(b uint8) Type {
	switch b {
	case 0x05:
		return TypeLeaf
	case 0x03:
		return TypeInternal
	case 0x07, 0x04:
		return TypeOverflow
	case 0x09:
		return TypeMeta
	default:
		return Other(b)
	}
}
