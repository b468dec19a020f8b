// Copyright 2025 The bdb Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package btree

import (
	"fmt"

	"github.com/xlab/treeprint"

	"github.com/bpowers/bdb/internal/bitset"
	"github.com/bpowers/bdb/page"
)

// Outline renders the page structure under root for inspection.
// Faults are rendered in place rather than stopping the outline.
func (w *Walker) Outline(root uint32) treeprint.Tree {
	tree := treeprint.New()
	seen := bitset.New(w.Pager.Count())
	w.outline(tree, root, seen)
	return tree
}

func (w *Walker) outline(parent treeprint.Tree, pgno uint32, seen *bitset.Pages) {
	buf, err := w.Pager.Page(pgno)
	if err != nil {
		parent.AddNode(fmt.Sprintf("page %d: %s", pgno, err))
		return
	}
	if !seen.Mark(pgno) {
		parent.AddNode(fmt.Sprintf("page %d: %s", pgno, page.ErrPageCycle))
		return
	}
	hdr, err := w.header(pgno, buf)
	if err != nil {
		parent.AddNode(fmt.Sprintf("page %d: %s", pgno, err))
		return
	}

	switch hdr.Type {
	case page.TypeInternal:
		children, err := w.children(pgno, buf, &hdr)
		if err != nil {
			parent.AddNode(fmt.Sprintf("page %d internal: %s", pgno, err))
			return
		}
		branch := parent.AddBranch(fmt.Sprintf("page %d internal (%d children)", pgno, len(children)))
		for _, child := range children {
			w.outline(branch, child.Child, seen)
		}
	default:
		parent.AddNode(fmt.Sprintf("page %d %s (%d slots, lower %d, upper %d)", pgno, hdr.Type, hdr.NumSlots(), hdr.Lower, hdr.Upper))
	}
}
