// Copyright 2025 The bdb Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package source

import (
	"fmt"

	"github.com/dgraph-io/ristretto/v2"

	"github.com/bpowers/bdb/page"
)

// Pager turns a Source into an array of fixed-size pages.
type Pager struct {
	src      Source
	pageSize int
	count    uint32
	cache    *ristretto.Cache[uint64, []byte]
}

// NewPager slices src into pages of pageSize bytes.  A trailing partial
// page is not addressable.
func NewPager(src Source, pageSize int) *Pager {
	count := src.Size() / int64(pageSize)
	if count > int64(^uint32(0)) {
		count = int64(^uint32(0))
	}
	return &Pager{
		src:      src,
		pageSize: pageSize,
		count:    uint32(count),
	}
}

// NewCachedPager is NewPager plus an in-memory cache holding up to
// maxPages pages.  Only worth it for sources that copy on every read.
func NewCachedPager(src Source, pageSize int, maxPages int) (*Pager, error) {
	p := NewPager(src, pageSize)
	if maxPages <= 0 {
		return p, nil
	}
	cache, err := ristretto.NewCache(&ristretto.Config[uint64, []byte]{
		NumCounters:        int64(maxPages) * 10,
		MaxCost:            int64(maxPages) * int64(pageSize),
		BufferItems:        64,
		// cost is page bytes only, so MaxCost holds exactly maxPages
		IgnoreInternalCost: true,
	})
	if err != nil {
		return nil, fmt.Errorf("ristretto.NewCache: %w", err)
	}
	p.cache = cache
	return p, nil
}

// PageSize is the page length in bytes.
func (p *Pager) PageSize() int {
	return p.pageSize
}

// Count is the number of whole pages in the source.
func (p *Pager) Count() uint32 {
	return p.count
}

// SourceID forwards to the underlying Source.
func (p *Pager) SourceID() string {
	return p.src.ID()
}

// Page returns the bytes of page pgno.  The result must not be modified.
func (p *Pager) Page(pgno uint32) ([]byte, error) {
	if pgno >= p.count {
		return nil, page.Errorf(page.ErrPageOutOfRange, pgno, "image has %d pages", p.count)
	}
	if p.cache != nil {
		if buf, ok := p.cache.Get(uint64(pgno)); ok {
			return buf, nil
		}
	}
	buf, err := p.src.Bytes(int64(pgno)*int64(p.pageSize), p.pageSize)
	if err != nil {
		return nil, fmt.Errorf("page %d: %w", pgno, err)
	}
	if p.cache != nil {
		p.cache.Set(uint64(pgno), buf, int64(len(buf)))
	}
	return buf, nil
}

// Close releases the cache; the Source is owned by the caller.
func (p *Pager) Close() {
	if p.cache != nil {
		p.cache.Close()
	}
}
