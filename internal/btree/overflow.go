// Copyright 2025 The bdb Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

// Package btree walks the pages of a Btree file and turns leaf pages
// into key/value pairs.
package btree

import (
	"encoding/binary"

	"github.com/bpowers/bdb/internal/bitset"
	"github.com/bpowers/bdb/page"
	"github.com/bpowers/bdb/source"
)

// Datum is a materialized key or value.  Inline fields borrow the page
// buffer they came from; overflow fields are always freshly allocated.
type Datum struct {
	b        []byte
	borrowed bool
}

// Bytes returns the datum without copying.  If Borrowed, the slice is
// only valid while the source page is.
func (d Datum) Bytes() []byte {
	return d.b
}

// Borrowed reports whether Bytes aliases a page buffer.
func (d Datum) Borrowed() bool {
	return d.borrowed
}

// Owned returns bytes the caller may keep, copying borrowed data.
func (d Datum) Owned() []byte {
	if !d.borrowed {
		return d.b
	}
	c := make([]byte, len(d.b))
	copy(c, d.b)
	return c
}

// Materialize resolves f to bytes, following an overflow chain if needed.
func Materialize(p *source.Pager, o binary.ByteOrder, layout page.Layout, f page.Field) (Datum, error) {
	if !f.IsOverflow() {
		return Datum{b: f.Inline(), borrowed: true}, nil
	}
	b, err := ReadOverflow(p, o, layout, f.Ref())
	if err != nil {
		return Datum{}, err
	}
	return Datum{b: b}, nil
}

// ReadOverflow follows the chain starting at ref.FirstPage and returns
// exactly ref.TotalLen bytes.  Every page in the chain must be an
// overflow page, and the chain must not end (next == 0) early.
func ReadOverflow(p *source.Pager, o binary.ByteOrder, layout page.Layout, ref page.OverflowRef) ([]byte, error) {
	remaining := int64(ref.TotalLen)

	// don't let a corrupt length drive a huge allocation
	capacity := remaining
	if limit := int64(p.Count()) * int64(p.PageSize()); capacity > limit {
		capacity = limit
	}
	out := make([]byte, 0, capacity)

	seen := bitset.New(p.Count())
	pgno := ref.FirstPage
	for remaining > 0 {
		buf, err := p.Page(pgno)
		if err != nil {
			return nil, err
		}
		if !seen.Mark(pgno) {
			return nil, page.Errorf(page.ErrPageCycle, pgno, "overflow chain from page %d loops", ref.FirstPage)
		}
		hdr, err := page.DecodeHeader(buf, o, layout)
		if err != nil {
			return nil, attribute(err, pgno)
		}
		if hdr.Type != page.TypeOverflow {
			return nil, page.Errorf(page.ErrUnexpectedPageType, pgno, "overflow chain from page %d reached a %s page", ref.FirstPage, hdr.Type)
		}

		payload := hdr.Payload(buf)
		take := int64(len(payload))
		if take > remaining {
			take = remaining
		}
		out = append(out, payload[:take]...)
		remaining -= take

		if remaining == 0 {
			break
		}
		if hdr.Next == 0 {
			return nil, page.Errorf(page.ErrTruncatedOverflowChain, pgno, "chain from page %d ended with %d of %d bytes missing", ref.FirstPage, remaining, ref.TotalLen)
		}
		pgno = hdr.Next
	}
	return out, nil
}

// attribute stamps pgno onto a FormatError that wasn't tied to a page.
func attribute(err error, pgno uint32) error {
	if fe, ok := page.AsFormatError(err); ok && fe.Page == page.NoPage {
		return fe.OnPage(pgno)
	}
	return err
}
