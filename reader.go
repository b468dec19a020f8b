// Copyright 2025 The bdb Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

// Package bdb recovers raw key/value records from Berkeley DB Btree
// files, such as legacy wallet.dat files, without the database engine.
// It tolerates damaged images: slots with impossible offsets are always
// skipped, and in BestEffort mode whole pages or subtrees that fail to
// decode are skipped with a Diagnostic instead of aborting the read.
//
// Typical use:
//
//	r, err := bdb.Open("wallet.dat", bdb.WithMode(bdb.BestEffort))
//	if err != nil {
//		return err
//	}
//	defer r.Close()
//	scan := r.Scan()
//	for rec, err := range scan.Records() {
//		if err != nil {
//			return err
//		}
//		use(rec.Key, rec.Value)
//	}
//	for _, d := range scan.Diagnostics() {
//		log.Print(d)
//	}
package bdb

import (
	"fmt"
	"os"

	"github.com/bpowers/bdb/internal/btree"
	"github.com/bpowers/bdb/page"
	"github.com/bpowers/bdb/source"
)

// Reader holds the format profile of one image.  It is read-only and
// can run any number of Scans.
type Reader struct {
	src     source.Source
	ownsSrc bool
	opts    options
	meta    *page.Meta
	profile page.Profile
	pager   *source.Pager
}

// Open opens the file at path.  "-" reads standard input into memory
// first, since pages are accessed out of order.
func Open(path string, opts ...Option) (*Reader, error) {
	options := newOptions(opts)

	var src source.Source
	var err error
	switch {
	case path == "-":
		src, err = source.ReadAll(os.Stdin, "stdin")
	case options.fileReads:
		src, err = source.OpenFile(path)
	default:
		src, err = source.OpenMmap(path)
	}
	if err != nil {
		return nil, err
	}

	r, err := newReader(src, options)
	if err != nil {
		_ = src.Close()
		return nil, err
	}
	r.ownsSrc = true
	return r, nil
}

// NewReader probes the meta page of src.  The caller keeps ownership
// of src.
func NewReader(src source.Source, opts ...Option) (*Reader, error) {
	return newReader(src, newOptions(opts))
}

func newReader(src source.Source, options options) (*Reader, error) {
	meta, err := probe(src)
	if err != nil {
		return nil, err
	}
	if meta.Pgno != 0 {
		options.logger.Warn("meta page records a non-zero page number", "source", src.ID(), "pgno", meta.Pgno)
	}
	if meta.Encrypted() {
		options.logger.Warn("meta page carries a crypto magic; values are likely encrypted", "source", src.ID(), "crypto_magic", meta.CryptoMagic)
	}

	profile := meta.Profile(options.layout)
	pager, err := source.NewCachedPager(src, int(profile.PageSize), options.cachePages)
	if err != nil {
		return nil, err
	}

	options.logger.Debug("probed format",
		"source", src.ID(),
		"endian", profile.Endian,
		"page_size", profile.PageSize,
		"layout", profile.Layout,
		"version", profile.Version,
		"root", profile.Root,
		"last_pgno", profile.LastPgno)

	return &Reader{
		src:     src,
		opts:    options,
		meta:    meta,
		profile: profile,
		pager:   pager,
	}, nil
}

// probe reads page 0.  The first pass only needs the minimum meta size
// to learn the page size; the second re-reads the whole page so the
// crypto tail is covered when the page is large enough.
func probe(src source.Source) (*page.Meta, error) {
	size := src.Size()
	if size < page.MinMetaSize {
		return nil, page.Errorf(page.ErrShortPage, 0, "image of %d bytes can't hold a meta page", size)
	}
	head, err := src.Bytes(0, page.MinMetaSize)
	if err != nil {
		return nil, fmt.Errorf("reading meta page: %w", err)
	}
	meta, err := page.Probe(head)
	if err != nil {
		return nil, err
	}
	if meta.PageSize <= page.MinMetaSize {
		return meta, nil
	}

	n := int64(meta.PageSize)
	if n > size {
		n = size
	}
	full, err := src.Bytes(0, int(n))
	if err != nil {
		return nil, fmt.Errorf("reading meta page: %w", err)
	}
	return page.Probe(full)
}

// checkGeometry rejects images whose meta page can't be trusted to
// drive a traversal.  These faults are fatal in every mode.
func (r *Reader) checkGeometry() error {
	p := r.profile
	if uint64(r.pager.Count()) < uint64(p.LastPgno)+1 {
		return page.Errorf(page.ErrFileTooShort, 0, "last_pgno %d but image holds %d pages of %d bytes", p.LastPgno, r.pager.Count(), p.PageSize)
	}
	if p.Root == 0 || p.Root > p.LastPgno {
		return page.Errorf(page.ErrRootOutOfRange, 0, "root %d not in [1, %d]", p.Root, p.LastPgno)
	}
	return nil
}

// Meta returns the decoded meta page.
func (r *Reader) Meta() *page.Meta {
	return r.meta
}

// Profile returns the geometry used for every page read.
func (r *Reader) Profile() page.Profile {
	return r.profile
}

// SourceID identifies the underlying image.
func (r *Reader) SourceID() string {
	return r.src.ID()
}

func (r *Reader) walker() *btree.Walker {
	return &btree.Walker{
		Pager:  r.pager,
		Order:  r.profile.Order(),
		Layout: r.profile.Layout,
	}
}

// Outline renders the page tree under the root, with faults inline.
func (r *Reader) Outline() (string, error) {
	if err := r.checkGeometry(); err != nil {
		return "", err
	}
	tree := r.walker().Outline(r.profile.Root)
	tree.SetValue(fmt.Sprintf("%s (root %d, %s, %s layout)", r.src.ID(), r.profile.Root, r.profile.Endian, r.profile.Layout))
	return tree.String(), nil
}

// Map runs a fresh Scan and collects it.  On an aborted scan the map is
// nil and the error is the fault that stopped it.
func (r *Reader) Map() (*Map, []Diagnostic, error) {
	scan := r.Scan()
	m := NewMap()
	for rec, err := range scan.Records() {
		if err != nil {
			return nil, scan.Diagnostics(), err
		}
		m.Put(rec)
	}
	return m, scan.Diagnostics(), nil
}

// Close releases the page cache, and the source if Open created it.
func (r *Reader) Close() error {
	r.pager.Close()
	if r.ownsSrc {
		return r.src.Close()
	}
	return nil
}
