// Copyright 2025 The bdb Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package btree

import (
	"encoding/binary"

	"github.com/bpowers/bdb/page"
	"github.com/bpowers/bdb/source"
)

// Leaf is a decoded leaf page handed out by the Walker.
type Leaf struct {
	Pgno   uint32
	Buf    []byte
	Header page.Header
}

// Pair is one key/value record recovered from a leaf page.
type Pair struct {
	Key       Datum
	Value     Datum
	KeySlot   int
	ValueSlot int
}

// SlotFault is a slot that was skipped because its offset can't start
// an entry.  Skipping a slot never fails the page.
type SlotFault struct {
	Slot   int
	Offset int
	Err    error
}

type slotEntry struct {
	slot  int
	entry page.Entry
}

// ExtractLeaf pairs the live entries of a leaf page.  Keys and values
// sit in adjacent slots: after dropping bad offsets and deleted entries,
// the first entry is a key, the next its value, and so on.  A trailing
// key with no value on the page is dropped.
//
// The returned error is a page-level fault (an undecodable entry or a
// broken overflow chain); the SlotFaults are tolerated skips.
func ExtractLeaf(p *source.Pager, o binary.ByteOrder, leaf Leaf) ([]Pair, []SlotFault, error) {
	hdr := &leaf.Header
	if hdr.Type != page.TypeLeaf {
		return nil, nil, page.Errorf(page.ErrUnexpectedPageType, leaf.Pgno, "expected leaf, found %s", hdr.Type)
	}
	pageSize := len(leaf.Buf)
	upper := hdr.Upper

	var faults []SlotFault
	live := make([]slotEntry, 0, hdr.NumSlots())
	for slot, off := range hdr.Slots(leaf.Buf, o) {
		if !page.ValidSlotOffset(off, upper, pageSize) {
			err := page.Errorf(page.ErrFieldOutOfBounds, leaf.Pgno, "slot offset outside [%d, %d)", upper, pageSize-3)
			faults = append(faults, SlotFault{Slot: slot, Offset: off, Err: err.At(slot, off)})
			continue
		}
		e, err := page.DecodeEntry(leaf.Buf, off, o)
		if err != nil {
			return nil, faults, locate(err, leaf.Pgno, slot, off)
		}
		if e.Deleted {
			continue
		}
		live = append(live, slotEntry{slot: slot, entry: e})
	}

	pairs := make([]Pair, 0, len(live)/2)
	for i := 0; i+1 < len(live); i += 2 {
		k, v := live[i], live[i+1]
		key, err := Materialize(p, o, hdr.Layout, k.entry.Field)
		if err != nil {
			return nil, faults, locate(err, leaf.Pgno, k.slot, -1)
		}
		value, err := Materialize(p, o, hdr.Layout, v.entry.Field)
		if err != nil {
			return nil, faults, locate(err, leaf.Pgno, v.slot, -1)
		}
		pairs = append(pairs, Pair{
			Key:       key,
			Value:     value,
			KeySlot:   k.slot,
			ValueSlot: v.slot,
		})
	}

	return pairs, faults, nil
}

// locate attributes err to a leaf slot.  Overflow faults already name
// the chain page they happened on and are left alone.
func locate(err error, pgno uint32, slot, off int) error {
	fe, ok := page.AsFormatError(err)
	if !ok || fe.Page != page.NoPage {
		return err
	}
	return fe.OnPage(pgno).At(slot, off)
}
