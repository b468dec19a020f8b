// Copyright 2025 The bdb Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package page

import (
	"encoding/binary"
)

const (
	// BtreeMagic is stored at offset 12 of page 0 in the writer's byte order.
	BtreeMagic = 0x00053162

	// MinMetaSize is the smallest buffer Probe accepts.
	MinMetaSize = 512

	metaTailSize = 516

	offMagic       = 12
	offVersion     = 16
	offPageSize    = 20
	offEncryptAlg  = 24
	offMetaType    = 25
	offMetaFlags   = 26
	offFree        = 28
	offLastPgno    = 32
	offKeyCount    = 40
	offRecordCount = 44
	offMetaBFlags  = 48
	offUID         = 52
	offMinKey      = 76
	offReLen       = 80
	offRePad       = 84
	offRoot        = 88
	offCryptoMagic = 460
	offIV          = 476
	offChecksum    = 496
)

// LSN is a log sequence number.
type LSN struct {
	File   uint32
	Offset uint32
}

// Meta holds every field of the Btree meta page.
type Meta struct {
	Endian Endian

	LSN  LSN
	Pgno uint32

	Magic       uint32
	Version     uint32
	PageSize    uint32
	EncryptAlg  uint8
	Type        Type
	MetaFlags   uint8
	Free        uint32
	LastPgno    uint32
	KeyCount    uint32
	RecordCount uint32
	Flags       uint32
	UID         [20]byte
	MinKey      uint32
	ReLen       uint32
	RePad       uint32
	Root        uint32

	// Crypto tail, only read when the buffer covers it.  Surfaced for
	// inspection only; this package never decrypts.
	HasTail     bool
	CryptoMagic uint32
	IV          [16]byte
	Checksum    [20]byte
}

// Encrypted reports whether the tail carries a crypto magic.
func (m *Meta) Encrypted() bool {
	return m.HasTail && m.CryptoMagic != 0
}

// Profile is the immutable geometry every later page read uses.
type Profile struct {
	PageSize uint32
	Endian   Endian
	Root     uint32
	Version  uint32
	LastPgno uint32
	Layout   Layout
}

// Order is shorthand for p.Endian.Order().
func (p Profile) Order() binary.ByteOrder {
	return p.Endian.Order()
}

// PageOffset returns the absolute file offset of page pgno.
func (p Profile) PageOffset(pgno uint32) int64 {
	return int64(pgno) * int64(p.PageSize)
}

// Profile derives the read geometry from m.  A layout other than
// LayoutAuto overrides detection.
func (m *Meta) Profile(layout Layout) Profile {
	if layout == LayoutAuto {
		layout = DetectLayout(m)
	}
	return Profile{
		PageSize: m.PageSize,
		Endian:   m.Endian,
		Root:     m.Root,
		Version:  m.Version,
		LastPgno: m.LastPgno,
		Layout:   layout,
	}
}

// DetectEndian tests the magic at offset 12 in both byte orders.
func DetectEndian(buf []byte) (Endian, bool) {
	if len(buf) < offMagic+4 {
		return 0, false
	}
	if binary.LittleEndian.Uint32(buf[offMagic:]) == BtreeMagic {
		return LittleEndian, true
	}
	if binary.BigEndian.Uint32(buf[offMagic:]) == BtreeMagic {
		return BigEndian, true
	}
	return 0, false
}

// Probe decodes the meta page at the start of buf.  buf must hold at
// least MinMetaSize bytes; the crypto tail is only decoded if buf holds
// at least 516.
func Probe(buf []byte) (*Meta, error) {
	if len(buf) < MinMetaSize {
		return nil, Errorf(ErrShortPage, 0, "meta page buffer is %d bytes, need %d", len(buf), MinMetaSize)
	}

	endian, ok := DetectEndian(buf)
	if !ok {
		return nil, Errorf(ErrMagicNotFound, 0, "no 0x%08x at offset %d in either byte order", BtreeMagic, offMagic)
	}
	o := endian.Order()

	pageSize := o.Uint32(buf[offPageSize:])
	if pageSize == 0 || pageSize%512 != 0 {
		return nil, Errorf(ErrImplausiblePageSize, 0, "page size %d", pageSize)
	}

	m := &Meta{
		Endian: endian,
		LSN: LSN{
			File:   o.Uint32(buf[0:]),
			Offset: o.Uint32(buf[4:]),
		},
		Pgno:        o.Uint32(buf[8:]),
		Magic:       o.Uint32(buf[offMagic:]),
		Version:     o.Uint32(buf[offVersion:]),
		PageSize:    pageSize,
		EncryptAlg:  buf[offEncryptAlg],
		Type:        TypeFromByte(buf[offMetaType]),
		MetaFlags:   buf[offMetaFlags],
		Free:        o.Uint32(buf[offFree:]),
		LastPgno:    o.Uint32(buf[offLastPgno:]),
		KeyCount:    o.Uint32(buf[offKeyCount:]),
		RecordCount: o.Uint32(buf[offRecordCount:]),
		Flags:       o.Uint32(buf[offMetaBFlags:]),
		MinKey:      o.Uint32(buf[offMinKey:]),
		ReLen:       o.Uint32(buf[offReLen:]),
		RePad:       o.Uint32(buf[offRePad:]),
		Root:        o.Uint32(buf[offRoot:]),
	}
	copy(m.UID[:], buf[offUID:offUID+len(m.UID)])

	if len(buf) >= metaTailSize {
		m.HasTail = true
		m.CryptoMagic = o.Uint32(buf[offCryptoMagic:])
		copy(m.IV[:], buf[offIV:offIV+len(m.IV)])
		copy(m.Checksum[:], buf[offChecksum:offChecksum+len(m.Checksum)])
	}

	return m, nil
}
