// Copyright 2025 The bdb Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package page

import (
	"encoding/binary"
)

// Header is the part of a page common to every page kind.  Lower and
// Upper are populated for both layouts: read directly from a bounds
// header, derived from Entries/HighFree for an indexed one.
type Header struct {
	Layout Layout

	LSN  LSN
	Pgno uint32
	Prev uint32
	Next uint32

	// bounds layout
	Flags uint32

	// indexed layout
	Entries  uint16
	HighFree uint16
	Level    uint8

	Lower int
	Upper int
	Type  Type
}

// DecodeHeader parses the fixed header at the start of buf.
func DecodeHeader(buf []byte, o binary.ByteOrder, layout Layout) (Header, error) {
	size := layout.HeaderSize()
	if len(buf) < size {
		return Header{}, Errorf(ErrShortPage, NoPage, "%d bytes, %s header needs %d", len(buf), layout, size)
	}

	h := Header{
		Layout: layout,
		LSN: LSN{
			File:   o.Uint32(buf[0:]),
			Offset: o.Uint32(buf[4:]),
		},
		Pgno: o.Uint32(buf[8:]),
		Prev: o.Uint32(buf[12:]),
		Next: o.Uint32(buf[16:]),
	}

	if layout == LayoutIndexed {
		h.Entries = o.Uint16(buf[20:])
		h.HighFree = o.Uint16(buf[22:])
		h.Level = buf[24]
		h.Type = TypeFromByte(buf[25])
		h.Lower = indexedHeaderSize + 2*int(h.Entries)
		h.Upper = int(h.HighFree)
	} else {
		h.Flags = o.Uint32(buf[20:])
		h.Lower = int(o.Uint16(buf[24:]))
		h.Upper = int(o.Uint16(buf[26:]))
		h.Type = TypeFromFlags(h.Flags)
	}

	return h, nil
}

// HeaderSize is the start of the slot array.
func (h *Header) HeaderSize() int {
	return h.Layout.HeaderSize()
}

// NumSlots is derived from Lower, never read verbatim.
func (h *Header) NumSlots() int {
	n := (h.Lower - h.HeaderSize()) / 2
	if n < 0 {
		return 0
	}
	return n
}

// Check enforces header_size <= lower <= upper <= pageSize on leaf and
// internal pages.  Other page kinds don't use the slot array.
func (h *Header) Check(pageSize int) error {
	if h.Type != TypeLeaf && h.Type != TypeInternal {
		return nil
	}
	lower, upper := h.Lower, h.Upper
	switch {
	case lower < h.HeaderSize():
		return Errorf(ErrHeaderInvariantViolation, h.Pgno, "lower %d below header size %d", lower, h.HeaderSize())
	case lower > upper:
		return Errorf(ErrHeaderInvariantViolation, h.Pgno, "lower %d above upper %d", lower, upper)
	case upper > pageSize:
		return Errorf(ErrHeaderInvariantViolation, h.Pgno, "upper %d beyond page size %d", upper, pageSize)
	}
	return nil
}

// Slots returns the absolute entry offsets stored in the slot array.
// Call Check first; the array is clamped to buf regardless.
func (h *Header) Slots(buf []byte, o binary.ByteOrder) []int {
	start := h.HeaderSize()
	end := start + 2*h.NumSlots()
	if end > len(buf) {
		end = len(buf) - (len(buf)-start)%2
	}
	if end <= start {
		return nil
	}
	offs := make([]int, 0, (end-start)/2)
	for i := start; i < end; i += 2 {
		offs = append(offs, int(o.Uint16(buf[i:])))
	}
	return offs
}

// Payload returns the data region of an overflow page.  Indexed pages
// record the number of bytes in use in hf_offset.
func (h *Header) Payload(buf []byte) []byte {
	start := h.HeaderSize()
	if len(buf) <= start {
		return nil
	}
	payload := buf[start:]
	if h.Layout == LayoutIndexed && h.HighFree > 0 && int(h.HighFree) <= len(payload) {
		payload = payload[:h.HighFree]
	}
	return payload
}
