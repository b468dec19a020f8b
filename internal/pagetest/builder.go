// Copyright 2025 The bdb Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

// Package pagetest builds synthetic Btree images for tests and fixture
// generation.  Builders panic on misuse: they exist to make well-known
// shapes (and deliberately broken ones) cheap to write down.
package pagetest

import (
	"encoding/binary"
	"fmt"

	"github.com/bpowers/bdb/page"
	"github.com/bpowers/bdb/source"
)

const (
	metaTypeByte = 0x09

	boundsLeaf     = 0x02
	boundsInternal = 0x03
	boundsOverflow = 0x04

	indexedLeaf     = 0x05
	indexedInternal = 0x03
	indexedOverflow = 0x07
)

// Option configures a Builder.
type Option func(*options)

type options struct {
	pageSize int
	endian   page.Endian
	layout   page.Layout
	version  uint32
}

// WithPageSize sets the page size (default 4096).
func WithPageSize(n int) Option {
	return func(opts *options) {
		opts.pageSize = n
	}
}

// WithEndian sets the byte order (default little-endian).
func WithEndian(e page.Endian) Option {
	return func(opts *options) {
		opts.endian = e
	}
}

// WithLayout sets the page header layout (default bounds).  The meta
// version is chosen to match unless WithVersion is also given.
func WithLayout(l page.Layout) Option {
	return func(opts *options) {
		opts.layout = l
	}
}

// WithVersion overrides the meta page version.
func WithVersion(v uint32) Option {
	return func(opts *options) {
		opts.version = v
	}
}

// Item is one leaf entry.
type Item struct {
	data    []byte
	ref     *page.OverflowRef
	deleted bool
	kind    byte
}

// Inline is an entry stored on the leaf page.
func Inline(b []byte) Item {
	return Item{data: b, kind: page.KindKeyData}
}

// Str is Inline for a string.
func Str(s string) Item {
	return Inline([]byte(s))
}

// Ref is an entry pointing at an overflow chain.
func Ref(ref page.OverflowRef) Item {
	return Item{ref: &ref, kind: page.KindOverflow}
}

// RawKind is an inline-shaped entry with an arbitrary kind byte.
func RawKind(kind byte, data []byte) Item {
	return Item{data: data, kind: kind}
}

// Deleted marks the entry as a tombstone.
func (it Item) Deleted() Item {
	it.deleted = true
	return it
}

func (it Item) size() int {
	if it.ref != nil {
		return 12
	}
	return 3 + len(it.data)
}

// Child is one internal-page routing entry.
type Child struct {
	Page uint32
	Key  []byte
}

// Builder accumulates pages; page 0 is always the meta page and is
// rendered by Bytes.
type Builder struct {
	opts     options
	order    binary.ByteOrder
	pages    [][]byte
	root     uint32
	lastPgno *uint32
	meta     func([]byte)
}

// New returns an empty Builder.
func New(opts ...Option) *Builder {
	options := options{
		pageSize: 4096,
		endian:   page.LittleEndian,
		layout:   page.LayoutBounds,
	}
	for _, opt := range opts {
		opt(&options)
	}
	if options.layout == page.LayoutAuto {
		options.layout = page.LayoutBounds
	}
	if options.version == 0 {
		options.version = 7
		if options.layout == page.LayoutIndexed {
			options.version = 9
		}
	}
	return &Builder{
		opts:  options,
		order: options.endian.Order(),
		pages: [][]byte{make([]byte, options.pageSize)},
		root:  1,
	}
}

// PageSize is the configured page size.
func (b *Builder) PageSize() int {
	return b.opts.pageSize
}

// Order is the configured byte order.
func (b *Builder) Order() binary.ByteOrder {
	return b.order
}

// Layout is the configured header layout.
func (b *Builder) Layout() page.Layout {
	return b.opts.layout
}

func (b *Builder) alloc() uint32 {
	b.pages = append(b.pages, make([]byte, b.opts.pageSize))
	return uint32(len(b.pages) - 1)
}

// Page returns the mutable bytes of pgno.
func (b *Builder) Page(pgno uint32) []byte {
	return b.pages[pgno]
}

// Blank allocates an all-zero page.
func (b *Builder) Blank() uint32 {
	return b.alloc()
}

// SetRoot sets the root recorded in the meta page (default 1).
func (b *Builder) SetRoot(pgno uint32) {
	b.root = pgno
}

// SetLastPgno overrides the last_pgno recorded in the meta page.
func (b *Builder) SetLastPgno(pgno uint32) {
	b.lastPgno = &pgno
}

// EditMeta runs fn over the rendered meta page, after the standard
// fields are written.
func (b *Builder) EditMeta(fn func(meta []byte)) {
	b.meta = fn
}

func (b *Builder) writeHeader(buf []byte, pgno, prev, next uint32, typ byte, lower, upper int, level byte) {
	o := b.order
	o.PutUint32(buf[8:], pgno)
	o.PutUint32(buf[12:], prev)
	o.PutUint32(buf[16:], next)
	if b.opts.layout == page.LayoutIndexed {
		entries := (lower - page.LayoutIndexed.HeaderSize()) / 2
		o.PutUint16(buf[20:], uint16(entries))
		o.PutUint16(buf[22:], uint16(upper))
		buf[24] = level
		buf[25] = typ
	} else {
		o.PutUint32(buf[20:], uint32(typ))
		o.PutUint16(buf[24:], uint16(lower))
		o.PutUint16(buf[26:], uint16(upper))
	}
}

func (b *Builder) typeCode(t page.Type) byte {
	indexed := b.opts.layout == page.LayoutIndexed
	switch t {
	case page.TypeLeaf:
		if indexed {
			return indexedLeaf
		}
		return boundsLeaf
	case page.TypeInternal:
		if indexed {
			return indexedInternal
		}
		return boundsInternal
	case page.TypeOverflow:
		if indexed {
			return indexedOverflow
		}
		return boundsOverflow
	default:
		return t.Code()
	}
}

// Leaf allocates a leaf page holding items in slot order.
func (b *Builder) Leaf(items ...Item) uint32 {
	pgno := b.alloc()
	buf := b.pages[pgno]
	o := b.order

	hdrSize := b.opts.layout.HeaderSize()
	lower := hdrSize + 2*len(items)
	upper := len(buf)
	for i, it := range items {
		upper -= it.size()
		if upper < lower {
			panic(fmt.Errorf("leaf page %d overflows with %d items", pgno, len(items)))
		}
		kind := it.kind
		if it.deleted {
			kind |= 0x80
		}
		if it.ref != nil {
			buf[upper+2] = kind
			o.PutUint32(buf[upper+4:], it.ref.FirstPage)
			o.PutUint32(buf[upper+8:], it.ref.TotalLen)
		} else {
			o.PutUint16(buf[upper:], uint16(len(it.data)))
			buf[upper+2] = kind
			copy(buf[upper+3:], it.data)
		}
		o.PutUint16(buf[hdrSize+2*i:], uint16(upper))
	}
	b.writeHeader(buf, pgno, 0, 0, b.typeCode(page.TypeLeaf), lower, upper, 1)
	return pgno
}

// Internal allocates an internal page routing to children in order.
func (b *Builder) Internal(children ...Child) uint32 {
	pgno := b.alloc()
	buf := b.pages[pgno]
	o := b.order

	hdrSize := b.opts.layout.HeaderSize()
	lower := hdrSize + 2*len(children)
	upper := len(buf)
	for i, c := range children {
		upper -= 12 + len(c.Key)
		if upper < lower {
			panic(fmt.Errorf("internal page %d overflows with %d children", pgno, len(children)))
		}
		o.PutUint16(buf[upper:], uint16(len(c.Key)))
		buf[upper+2] = page.KindKeyData
		o.PutUint32(buf[upper+4:], c.Page)
		copy(buf[upper+12:], c.Key)
		o.PutUint16(buf[hdrSize+2*i:], uint16(upper))
	}
	b.writeHeader(buf, pgno, 0, 0, b.typeCode(page.TypeInternal), lower, upper, 2)
	return pgno
}

// Overflow stores data on a fresh chain of overflow pages.
func (b *Builder) Overflow(data []byte) page.OverflowRef {
	hdrSize := b.opts.layout.HeaderSize()
	capacity := b.opts.pageSize - hdrSize

	n := (len(data) + capacity - 1) / capacity
	if n == 0 {
		n = 1
	}
	first := uint32(len(b.pages))
	for i := 0; i < n; i++ {
		pgno := b.alloc()
		chunk := data[min(i*capacity, len(data)):min((i+1)*capacity, len(data))]
		var prev, next uint32
		if i > 0 {
			prev = pgno - 1
		}
		if i < n-1 {
			next = pgno + 1
		}
		buf := b.pages[pgno]
		copy(buf[hdrSize:], chunk)
		b.writeHeader(buf, pgno, prev, next, b.typeCode(page.TypeOverflow), hdrSize, len(chunk), 0)
	}
	return page.OverflowRef{FirstPage: first, TotalLen: uint32(len(data))}
}

// SetSlot overwrites slot i of pgno's slot array.
func (b *Builder) SetSlot(pgno uint32, i int, off uint16) {
	b.order.PutUint16(b.pages[pgno][b.opts.layout.HeaderSize()+2*i:], off)
}

// SetNext overwrites the next pointer of pgno.
func (b *Builder) SetNext(pgno, next uint32) {
	b.order.PutUint32(b.pages[pgno][16:], next)
}

// SetType overwrites the page type of pgno.
func (b *Builder) SetType(pgno uint32, t page.Type) {
	buf := b.pages[pgno]
	if b.opts.layout == page.LayoutIndexed {
		buf[25] = b.typeCode(t)
	} else {
		b.order.PutUint32(buf[20:], uint32(b.typeCode(t)))
	}
}

// SetUpper overwrites the data-region start of a bounds or indexed page.
func (b *Builder) SetUpper(pgno uint32, upper uint16) {
	buf := b.pages[pgno]
	if b.opts.layout == page.LayoutIndexed {
		b.order.PutUint16(buf[22:], upper)
	} else {
		b.order.PutUint16(buf[26:], upper)
	}
}

// SetEntries overwrites the slot count of an indexed page.
func (b *Builder) SetEntries(pgno uint32, n uint16) {
	b.order.PutUint16(b.pages[pgno][20:], n)
}

func (b *Builder) renderMeta() []byte {
	meta := make([]byte, b.opts.pageSize)
	o := b.order
	last := uint32(len(b.pages) - 1)
	if b.lastPgno != nil {
		last = *b.lastPgno
	}
	o.PutUint32(meta[12:], page.BtreeMagic)
	o.PutUint32(meta[16:], b.opts.version)
	o.PutUint32(meta[20:], uint32(b.opts.pageSize))
	meta[25] = metaTypeByte
	o.PutUint32(meta[32:], last)
	o.PutUint32(meta[76:], 2)
	o.PutUint32(meta[84:], 0x20)
	o.PutUint32(meta[88:], b.root)
	for i := range 20 {
		meta[52+i] = byte(i + 1)
	}
	if b.meta != nil {
		b.meta(meta)
	}
	return meta
}

// Bytes renders the full image.
func (b *Builder) Bytes() []byte {
	out := make([]byte, 0, len(b.pages)*b.opts.pageSize)
	out = append(out, b.renderMeta()...)
	for _, p := range b.pages[1:] {
		out = append(out, p...)
	}
	return out
}

// Source renders the image into an in-memory Source.
func (b *Builder) Source() *source.Mem {
	return source.NewMem(b.Bytes(), "")
}
