// Copyright 2025 The bdb Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package bdb

import (
	"errors"
	"iter"

	"github.com/bpowers/bdb/internal/btree"
)

// State is the position of a Scan in its lifecycle.
type State uint8

const (
	Start State = iota
	ProbingFormat
	Traversing
	Decoding
	Extracting
	// Done: every reachable page was read.
	Done
	// PartialDone: BestEffort finished but skipped something.
	PartialDone
	// Aborted: a fault ended the scan early.
	Aborted
)

func (s State) String() string {
	switch s {
	case Start:
		return "start"
	case ProbingFormat:
		return "probing-format"
	case Traversing:
		return "traversing"
	case Decoding:
		return "decoding"
	case Extracting:
		return "extracting"
	case Done:
		return "done"
	case PartialDone:
		return "partial-done"
	case Aborted:
		return "aborted"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further transitions can happen.
func (s State) Terminal() bool {
	return s == Done || s == PartialDone || s == Aborted
}

var (
	errScanReused = errors.New("scan already consumed; start a new one with Reader.Scan")
	errStopped    = errors.New("consumer stopped")
)

// Scan is a single pass over a Reader.  It is not safe for concurrent
// use and its Records sequence can be consumed once.
type Scan struct {
	r       *Reader
	state   State
	diags   []Diagnostic
	err     error
	records int
}

// Scan starts a new pass.  Scans share nothing but the read-only image,
// so repeated scans of the same Reader yield the same records.
func (r *Reader) Scan() *Scan {
	return &Scan{r: r}
}

// State is the current lifecycle state.  If the consumer stops ranging
// over Records early the state is left where traversal paused.
func (s *Scan) State() State {
	return s.state
}

// Diagnostics lists every tolerated fault so far, in traversal order.
func (s *Scan) Diagnostics() []Diagnostic {
	return s.diags
}

// Err is the fault that aborted the scan, if any.
func (s *Scan) Err() error {
	return s.err
}

// Count is the number of records yielded so far.
func (s *Scan) Count() int {
	return s.records
}

// fault applies the consistency policy to a page-level fault.
func (s *Scan) fault(err error) error {
	if s.r.opts.mode == Conservative {
		return err
	}
	d := newDiagnostic(err)
	s.diags = append(s.diags, d)
	s.r.opts.logger.Warn("skipping page", "source", s.r.src.ID(), "page", d.Page, "err", err)
	return nil
}

// slot records a skipped slot; these are tolerated in every mode.
func (s *Scan) slot(pgno uint32, sf btree.SlotFault) {
	d := Diagnostic{Page: pgno, Slot: sf.Slot, Offset: sf.Offset, Err: sf.Err}
	s.diags = append(s.diags, d)
	s.r.opts.logger.Warn("skipping slot", "source", s.r.src.ID(), "page", pgno, "slot", sf.Slot, "offset", sf.Offset, "err", sf.Err)
}

func (s *Scan) abort(err error) {
	s.state = Aborted
	s.err = err
	s.r.opts.logger.Debug("scan aborted", "source", s.r.src.ID(), "records", s.records, "err", err)
}

func (s *Scan) finish() {
	s.state = Done
	if s.r.opts.mode == BestEffort && len(s.diags) > 0 {
		s.state = PartialDone
	}
	s.r.opts.logger.Debug("scan finished", "source", s.r.src.ID(), "state", s.state, "records", s.records, "diagnostics", len(s.diags))
}

// Records lazily yields every record in key order.  A non-nil error is
// always the last item: the fault that aborted the scan.  Breaking out
// of the loop early is safe and needs no cleanup.
func (s *Scan) Records() iter.Seq2[Record, error] {
	return func(yield func(Record, error) bool) {
		if s.state != Start {
			yield(Record{}, errScanReused)
			return
		}

		r := s.r
		s.state = ProbingFormat
		if err := r.checkGeometry(); err != nil {
			s.abort(err)
			yield(Record{}, err)
			return
		}

		s.state = Traversing
		w := r.walker()
		w.Fault = s.fault
		w.Slot = s.slot
		w.Enter = func(pgno uint32) {
			s.state = Decoding
		}

		sourceID := r.src.ID()
		err := w.Walk(r.profile.Root, func(leaf btree.Leaf) error {
			s.state = Extracting
			pairs, faults, err := btree.ExtractLeaf(r.pager, r.profile.Order(), leaf)
			for _, sf := range faults {
				s.slot(leaf.Pgno, sf)
			}
			if err != nil {
				if err := s.fault(err); err != nil {
					return err
				}
				s.state = Traversing
				return nil
			}
			for _, p := range pairs {
				rec := Record{
					Key:   p.Key.Owned(),
					Value: p.Value.Owned(),
					Provenance: Provenance{
						SourceID: sourceID,
						Page:     leaf.Pgno,
						Slot:     p.KeySlot,
					},
				}
				s.records++
				if !yield(rec, nil) {
					return errStopped
				}
			}
			s.state = Traversing
			return nil
		})

		switch {
		case errors.Is(err, errStopped):
			return
		case err != nil:
			s.abort(err)
			yield(Record{}, err)
		default:
			s.finish()
		}
	}
}
