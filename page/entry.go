// Copyright 2025 The bdb Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package page

import (
	"encoding/binary"
	"fmt"
)

const (
	KindKeyData  = 0x01
	KindOverflow = 0x03

	deletedBit = 0x80
	kindMask   = 0x7f

	entryHeaderSize    = 3
	overflowEntrySize  = 12
	internalHeaderSize = 12
)

// OverflowRef points at a value stored on a chain of overflow pages.
type OverflowRef struct {
	FirstPage uint32
	TotalLen  uint32
}

// Field is either inline bytes or an overflow reference.  Inline bytes
// are a view into the page buffer they were decoded from and are only
// valid as long as that buffer is.
type Field struct {
	inline   []byte
	ref      OverflowRef
	overflow bool
}

// InlineField wraps bytes stored on the page.
func InlineField(b []byte) Field {
	return Field{inline: b}
}

// OverflowField wraps a reference to an overflow chain.
func OverflowField(ref OverflowRef) Field {
	return Field{ref: ref, overflow: true}
}

// IsOverflow reports whether the field lives off-page.
func (f Field) IsOverflow() bool {
	return f.overflow
}

// Inline returns the borrowed inline bytes, or nil for overflow fields.
func (f Field) Inline() []byte {
	return f.inline
}

// Ref returns the overflow reference; only meaningful if IsOverflow.
func (f Field) Ref() OverflowRef {
	return f.ref
}

// Len is the logical length of the field.
func (f Field) Len() int {
	if f.overflow {
		return int(f.ref.TotalLen)
	}
	return len(f.inline)
}

func (f Field) String() string {
	if f.overflow {
		return fmt.Sprintf("overflow{pg %d, %d bytes}", f.ref.FirstPage, f.ref.TotalLen)
	}
	return fmt.Sprintf("inline{%d bytes}", len(f.inline))
}

// Entry is one decoded leaf slot.
type Entry struct {
	Deleted bool
	Field   Field
}

// ValidSlotOffset reports whether off can start a leaf entry on a page
// whose data region begins at upper: off must lie in
// [upper, pageSize-3).
func ValidSlotOffset(off, upper, pageSize int) bool {
	return off >= upper && off < pageSize-entryHeaderSize
}

// DecodeEntry parses the leaf entry at absolute offset off.
func DecodeEntry(buf []byte, off int, o binary.ByteOrder) (Entry, error) {
	if off < 0 || off+entryHeaderSize > len(buf) {
		return Entry{}, Errorf(ErrFieldOutOfBounds, NoPage, "entry header at %d past page end %d", off, len(buf))
	}
	raw := buf[off+2]
	e := Entry{Deleted: raw&deletedBit != 0}

	switch kind := raw & kindMask; kind {
	case KindKeyData:
		n := int(o.Uint16(buf[off:]))
		start := off + entryHeaderSize
		if start+n > len(buf) {
			return Entry{}, Errorf(ErrFieldOutOfBounds, NoPage, "inline field [%d, %d) past page end %d", start, start+n, len(buf))
		}
		e.Field = InlineField(buf[start : start+n : start+n])
	case KindOverflow:
		if off+overflowEntrySize > len(buf) {
			return Entry{}, Errorf(ErrFieldOutOfBounds, NoPage, "overflow reference at %d past page end %d", off, len(buf))
		}
		e.Field = OverflowField(OverflowRef{
			FirstPage: o.Uint32(buf[off+4:]),
			TotalLen:  o.Uint32(buf[off+8:]),
		})
	default:
		return Entry{}, Errorf(ErrUnknownLeafItemKind, NoPage, "kind 0x%02x at %d", kind, off)
	}
	return e, nil
}

// InternalEntry is one decoded internal-page slot.  Key is the
// separator, used for routing only.
type InternalEntry struct {
	Child   uint32
	Records uint32
	Key     Field
	Deleted bool
}

// DecodeInternal parses the BINTERNAL entry at absolute offset off:
//
//	len:u16, kind:u8, pad:u8, child:u32, nrecs:u32, data[len]
//
// For overflow separators data holds an overflow entry.
func DecodeInternal(buf []byte, off int, o binary.ByteOrder) (InternalEntry, error) {
	if off < 0 || off+internalHeaderSize > len(buf) {
		return InternalEntry{}, Errorf(ErrFieldOutOfBounds, NoPage, "internal entry at %d past page end %d", off, len(buf))
	}
	n := int(o.Uint16(buf[off:]))
	raw := buf[off+2]
	ie := InternalEntry{
		Child:   o.Uint32(buf[off+4:]),
		Records: o.Uint32(buf[off+8:]),
		Deleted: raw&deletedBit != 0,
	}
	start := off + internalHeaderSize
	if start+n > len(buf) {
		return InternalEntry{}, Errorf(ErrFieldOutOfBounds, NoPage, "separator [%d, %d) past page end %d", start, start+n, len(buf))
	}
	data := buf[start : start+n : start+n]

	switch kind := raw & kindMask; kind {
	case KindKeyData:
		ie.Key = InlineField(data)
	case KindOverflow:
		if len(data) < overflowEntrySize {
			return InternalEntry{}, Errorf(ErrFieldOutOfBounds, NoPage, "overflow separator of %d bytes at %d", len(data), off)
		}
		ie.Key = OverflowField(OverflowRef{
			FirstPage: o.Uint32(data[4:]),
			TotalLen:  o.Uint32(data[8:]),
		})
	default:
		return InternalEntry{}, Errorf(ErrUnknownLeafItemKind, NoPage, "internal kind 0x%02x at %d", kind, off)
	}
	return ie, nil
}
