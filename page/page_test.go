// Copyright 2025 The bdb Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package page

import (
	"encoding/binary"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func metaPage(o binary.ByteOrder, size int, pageSize, version, root uint32) []byte {
	buf := make([]byte, size)
	o.PutUint32(buf[offMagic:], BtreeMagic)
	o.PutUint32(buf[offVersion:], version)
	o.PutUint32(buf[offPageSize:], pageSize)
	buf[offMetaType] = 0x09
	o.PutUint32(buf[offLastPgno:], 2)
	o.PutUint32(buf[offRoot:], root)
	return buf
}

func TestProbe(t *testing.T) {
	for _, e := range []Endian{LittleEndian, BigEndian} {
		t.Run(e.String(), func(t *testing.T) {
			buf := metaPage(e.Order(), 4096, 4096, 9, 1)
			e.Order().PutUint32(buf[offCryptoMagic:], 0xdeadbeef)

			m, err := Probe(buf)
			require.NoError(t, err)
			assert.Equal(t, e, m.Endian)
			assert.Equal(t, uint32(4096), m.PageSize)
			assert.Equal(t, uint32(1), m.Root)
			assert.Equal(t, uint32(2), m.LastPgno)
			assert.Equal(t, uint32(9), m.Version)
			assert.Equal(t, TypeMeta, m.Type)
			assert.True(t, m.HasTail)
			assert.True(t, m.Encrypted())

			p := m.Profile(LayoutAuto)
			assert.Equal(t, LayoutIndexed, p.Layout)
			assert.Equal(t, int64(3*4096), p.PageOffset(3))
		})
	}
}

func TestProbeWithoutTail(t *testing.T) {
	m, err := Probe(metaPage(binary.LittleEndian, MinMetaSize, 512, 7, 1))
	require.NoError(t, err)
	assert.False(t, m.HasTail)
	assert.False(t, m.Encrypted())
	assert.Equal(t, LayoutBounds, m.Profile(LayoutAuto).Layout)
	assert.Equal(t, LayoutIndexed, m.Profile(LayoutIndexed).Layout)
}

func TestProbeErrors(t *testing.T) {
	tests := []struct {
		name string
		buf  []byte
		want error
	}{
		{"short", make([]byte, 100), ErrShortPage},
		{"zero", make([]byte, 4096), ErrMagicNotFound},
		{"page size zero", metaPage(binary.LittleEndian, 4096, 0, 9, 1), ErrImplausiblePageSize},
		{"page size odd", metaPage(binary.BigEndian, 4096, 1000, 9, 1), ErrImplausiblePageSize},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Probe(tt.buf)
			require.ErrorIs(t, err, tt.want)
			fe, ok := AsFormatError(err)
			require.True(t, ok)
			assert.Equal(t, uint32(0), fe.Page)
		})
	}
}

func TestDecodeHeaderBounds(t *testing.T) {
	o := binary.BigEndian
	buf := make([]byte, 512)
	o.PutUint32(buf[8:], 5)
	o.PutUint32(buf[12:], 4)
	o.PutUint32(buf[16:], 6)
	o.PutUint32(buf[20:], 0x22) // leaf plus high flag bits
	o.PutUint16(buf[24:], 34)
	o.PutUint16(buf[26:], 400)

	h, err := DecodeHeader(buf, o, LayoutBounds)
	require.NoError(t, err)
	assert.Equal(t, uint32(5), h.Pgno)
	assert.Equal(t, uint32(4), h.Prev)
	assert.Equal(t, uint32(6), h.Next)
	assert.Equal(t, TypeLeaf, h.Type)
	assert.Equal(t, 3, h.NumSlots())
	require.NoError(t, h.Check(len(buf)))
}

func TestDecodeHeaderIndexed(t *testing.T) {
	o := binary.LittleEndian
	buf := make([]byte, 512)
	o.PutUint32(buf[8:], 7)
	o.PutUint16(buf[20:], 4)
	o.PutUint16(buf[22:], 300)
	buf[24] = 1
	buf[25] = 5

	h, err := DecodeHeader(buf, o, LayoutIndexed)
	require.NoError(t, err)
	assert.Equal(t, TypeLeaf, h.Type)
	assert.Equal(t, 26+8, h.Lower)
	assert.Equal(t, 300, h.Upper)
	assert.Equal(t, 4, h.NumSlots())
	assert.Equal(t, uint8(1), h.Level)
	require.NoError(t, h.Check(len(buf)))

	_, err = DecodeHeader(buf[:20], o, LayoutIndexed)
	assert.ErrorIs(t, err, ErrShortPage)
}

func TestHeaderCheck(t *testing.T) {
	tests := []struct {
		name         string
		typ          Type
		lower, upper int
		ok           bool
	}{
		{"empty page", TypeLeaf, 28, 512, true},
		{"lower below header", TypeLeaf, 20, 512, false},
		{"lower above upper", TypeInternal, 300, 200, false},
		{"upper past page", TypeLeaf, 28, 600, false},
		{"overflow pages are not checked", TypeOverflow, 0, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := Header{Layout: LayoutBounds, Type: tt.typ, Lower: tt.lower, Upper: tt.upper}
			err := h.Check(512)
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ErrHeaderInvariantViolation)
			}
		})
	}
}

func TestHeaderCheckIndexed(t *testing.T) {
	tests := []struct {
		name     string
		entries  uint16
		highFree uint16
		ok       bool
	}{
		{"empty page", 0, 512, true},
		{"slots reach hf_offset", 10, 26 + 20, true},
		{"slots past hf_offset", 200, 300, false},
		{"hf_offset past page", 4, 600, false},
		{"slot count wraps uint16 lower", 32768, 512, false},
		{"largest slot count", 0xffff, 512, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := binary.LittleEndian
			buf := make([]byte, 512)
			o.PutUint16(buf[20:], tt.entries)
			o.PutUint16(buf[22:], tt.highFree)
			buf[25] = 5

			h, err := DecodeHeader(buf, o, LayoutIndexed)
			require.NoError(t, err)
			assert.Equal(t, 26+2*int(tt.entries), h.Lower)
			err = h.Check(len(buf))
			if tt.ok {
				assert.NoError(t, err)
				assert.Equal(t, int(tt.entries), h.NumSlots())
			} else {
				assert.ErrorIs(t, err, ErrHeaderInvariantViolation)
			}
		})
	}
}

func TestPayload(t *testing.T) {
	buf := make([]byte, 512)
	h := Header{Layout: LayoutBounds}
	assert.Len(t, h.Payload(buf), 512-28)

	h = Header{Layout: LayoutIndexed, HighFree: 100}
	assert.Len(t, h.Payload(buf), 100)

	h = Header{Layout: LayoutIndexed, HighFree: 1000}
	assert.Len(t, h.Payload(buf), 512-26, "out of range hf_offset uses the whole region")
}

func TestTypeCodes(t *testing.T) {
	assert.Equal(t, TypeLeaf, TypeFromFlags(0x02))
	assert.Equal(t, TypeInternal, TypeFromFlags(0x03))
	assert.Equal(t, TypeOverflow, TypeFromFlags(0x04))
	assert.Equal(t, TypeLeaf, TypeFromByte(5))
	assert.Equal(t, TypeOverflow, TypeFromByte(7))

	o := TypeFromByte(0x0d)
	assert.True(t, o.IsOther())
	assert.Equal(t, uint8(0x0d), o.Code())
}

func TestDecodeEntry(t *testing.T) {
	o := binary.LittleEndian
	buf := make([]byte, 64)

	o.PutUint16(buf[10:], 3)
	buf[12] = KindKeyData
	copy(buf[13:], "abc")
	e, err := DecodeEntry(buf, 10, o)
	require.NoError(t, err)
	assert.False(t, e.Deleted)
	assert.False(t, e.Field.IsOverflow())
	assert.Equal(t, []byte("abc"), e.Field.Inline())

	buf[32+2] = KindOverflow | deletedBit
	o.PutUint32(buf[32+4:], 9)
	o.PutUint32(buf[32+8:], 10000)
	e, err = DecodeEntry(buf, 32, o)
	require.NoError(t, err)
	assert.True(t, e.Deleted)
	require.True(t, e.Field.IsOverflow())
	assert.Equal(t, OverflowRef{FirstPage: 9, TotalLen: 10000}, e.Field.Ref())
	assert.Equal(t, 10000, e.Field.Len())
}

func TestDecodeEntryErrors(t *testing.T) {
	o := binary.LittleEndian
	buf := make([]byte, 64)

	o.PutUint16(buf[50:], 40)
	buf[52] = KindKeyData
	_, err := DecodeEntry(buf, 50, o)
	assert.ErrorIs(t, err, ErrFieldOutOfBounds)

	buf[58] = KindOverflow
	_, err = DecodeEntry(buf, 56, o)
	assert.ErrorIs(t, err, ErrFieldOutOfBounds)

	buf[2] = 0x02
	_, err = DecodeEntry(buf, 0, o)
	assert.ErrorIs(t, err, ErrUnknownLeafItemKind)

	_, err = DecodeEntry(buf, 62, o)
	assert.ErrorIs(t, err, ErrFieldOutOfBounds)
}

func TestValidSlotOffset(t *testing.T) {
	assert.True(t, ValidSlotOffset(400, 400, 512))
	assert.False(t, ValidSlotOffset(399, 400, 512))
	assert.True(t, ValidSlotOffset(508, 400, 512))
	assert.False(t, ValidSlotOffset(509, 400, 512))
}

func TestDecodeInternal(t *testing.T) {
	o := binary.BigEndian
	buf := make([]byte, 64)
	o.PutUint16(buf[0:], 2)
	buf[2] = KindKeyData
	o.PutUint32(buf[4:], 17)
	o.PutUint32(buf[8:], 3)
	copy(buf[12:], "mk")

	ie, err := DecodeInternal(buf, 0, o)
	require.NoError(t, err)
	assert.Equal(t, uint32(17), ie.Child)
	assert.Equal(t, uint32(3), ie.Records)
	assert.Equal(t, []byte("mk"), ie.Key.Inline())

	o.PutUint16(buf[20:], 12)
	buf[22] = KindOverflow
	o.PutUint32(buf[24:], 4)
	o.PutUint32(buf[32+4:], 8)
	o.PutUint32(buf[32+8:], 900)
	ie, err = DecodeInternal(buf, 20, o)
	require.NoError(t, err)
	assert.Equal(t, uint32(4), ie.Child)
	assert.Equal(t, OverflowRef{FirstPage: 8, TotalLen: 900}, ie.Key.Ref())

	_, err = DecodeInternal(buf, 60, o)
	assert.ErrorIs(t, err, ErrFieldOutOfBounds)
}

func TestFormatError(t *testing.T) {
	err := Errorf(ErrFieldOutOfBounds, NoPage, "past end").OnPage(4).At(2, 300)
	assert.True(t, errors.Is(err, ErrFieldOutOfBounds))
	assert.Equal(t, uint32(4), err.Page)
	assert.Equal(t, 2, err.Slot)
	assert.Equal(t, 300, err.Offset)
	assert.Contains(t, err.Error(), "page 4")
}
