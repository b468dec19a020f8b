// Copyright 2025 The bdb Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package btree

import (
	"encoding/binary"

	"github.com/bpowers/bdb/internal/bitset"
	"github.com/bpowers/bdb/page"
	"github.com/bpowers/bdb/source"
)

// Walker visits the leaves of a Btree depth-first, left to right.
type Walker struct {
	Pager  *source.Pager
	Order  binary.ByteOrder
	Layout page.Layout

	// Fault decides the fate of a page-level fault.  Returning nil
	// skips the page (and its subtree); returning an error aborts the
	// walk with it.  A nil Fault aborts on every fault.
	Fault func(err error) error
	// Slot is told about internal-page slots skipped for bad offsets.
	Slot func(pgno uint32, sf SlotFault)
	// Enter is called before each page is read.
	Enter func(pgno uint32)
}

func (w *Walker) fault(err error) error {
	if w.Fault == nil {
		return err
	}
	return w.Fault(err)
}

// Walk traverses the tree rooted at root, calling visit for every leaf
// in key order.  An error from visit stops the walk and is returned
// as-is.  Failing to read the root page itself is always fatal.
func (w *Walker) Walk(root uint32, visit func(Leaf) error) error {
	seen := bitset.New(w.Pager.Count())
	stack := []uint32{root}

	for len(stack) > 0 {
		pgno := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if w.Enter != nil {
			w.Enter(pgno)
		}

		buf, err := w.Pager.Page(pgno)
		if err != nil {
			if pgno == root {
				return err
			}
			if err := w.fault(err); err != nil {
				return err
			}
			continue
		}
		if !seen.Mark(pgno) {
			if err := w.fault(page.Errorf(page.ErrPageCycle, pgno, "reached again during traversal")); err != nil {
				return err
			}
			continue
		}

		hdr, err := w.header(pgno, buf)
		if err != nil {
			if err := w.fault(err); err != nil {
				return err
			}
			continue
		}

		switch hdr.Type {
		case page.TypeLeaf:
			if err := visit(Leaf{Pgno: pgno, Buf: buf, Header: hdr}); err != nil {
				return err
			}
		case page.TypeInternal:
			children, err := w.children(pgno, buf, &hdr)
			if err != nil {
				if err := w.fault(err); err != nil {
					return err
				}
				continue
			}
			for i := len(children) - 1; i >= 0; i-- {
				stack = append(stack, children[i].Child)
			}
		default:
			err := page.Errorf(page.ErrUnexpectedPageType, pgno, "expected leaf or internal, found %s", hdr.Type)
			if err := w.fault(err); err != nil {
				return err
			}
		}
	}

	return nil
}

func (w *Walker) header(pgno uint32, buf []byte) (page.Header, error) {
	hdr, err := page.DecodeHeader(buf, w.Order, w.Layout)
	if err != nil {
		return page.Header{}, attribute(err, pgno)
	}
	if err := hdr.Check(len(buf)); err != nil {
		return page.Header{}, attribute(err, pgno)
	}
	return hdr, nil
}

// children decodes the routing entries of an internal page in slot
// order.  Separator keys are kept for inspection but never followed.
func (w *Walker) children(pgno uint32, buf []byte, hdr *page.Header) ([]page.InternalEntry, error) {
	offs := hdr.Slots(buf, w.Order)
	entries := make([]page.InternalEntry, 0, len(offs))
	for slot, off := range offs {
		if !page.ValidSlotOffset(off, hdr.Upper, len(buf)) {
			if w.Slot != nil {
				err := page.Errorf(page.ErrFieldOutOfBounds, pgno, "slot offset outside [%d, %d)", hdr.Upper, len(buf)-3)
				w.Slot(pgno, SlotFault{Slot: slot, Offset: off, Err: err.At(slot, off)})
			}
			continue
		}
		ie, err := page.DecodeInternal(buf, off, w.Order)
		if err != nil {
			return nil, locate(err, pgno, slot, off)
		}
		entries = append(entries, ie)
	}
	return entries, nil
}
