// Copyright 2025 The bdb Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package bdb

import (
	"fmt"

	"github.com/bpowers/bdb/page"
)

// The fault kinds a Reader can report.  Every error carrying one of
// these is a *page.FormatError that can be matched with errors.Is.
var (
	ErrMagicNotFound            = page.ErrMagicNotFound
	ErrImplausiblePageSize      = page.ErrImplausiblePageSize
	ErrShortPage                = page.ErrShortPage
	ErrHeaderInvariantViolation = page.ErrHeaderInvariantViolation
	ErrUnexpectedPageType       = page.ErrUnexpectedPageType
	ErrTruncatedOverflowChain   = page.ErrTruncatedOverflowChain
	ErrFieldOutOfBounds         = page.ErrFieldOutOfBounds
	ErrUnknownLeafItemKind      = page.ErrUnknownLeafItemKind
	ErrPageOutOfRange           = page.ErrPageOutOfRange
	ErrPageCycle                = page.ErrPageCycle
	ErrFileTooShort             = page.ErrFileTooShort
	ErrRootOutOfRange           = page.ErrRootOutOfRange
)

// Diagnostic is a tolerated fault: a skipped slot in any mode, or a
// skipped page or subtree in BestEffort mode.
type Diagnostic struct {
	Page   uint32
	Slot   int // -1 if the fault isn't tied to a slot
	Offset int // -1 if unknown
	Err    error

	// PageSkipped is set when the fault cost the whole page (and, for
	// internal pages, its subtree) rather than a single slot.
	PageSkipped bool
}

// newDiagnostic describes a skipped page, located by err.
func newDiagnostic(err error) Diagnostic {
	d := Diagnostic{Page: page.NoPage, Slot: -1, Offset: -1, Err: err, PageSkipped: true}
	if fe, ok := page.AsFormatError(err); ok {
		d.Page = fe.Page
		d.Slot = fe.Slot
		d.Offset = fe.Offset
	}
	return d
}

// SlotLevel reports whether only a single slot was skipped.
func (d Diagnostic) SlotLevel() bool {
	return !d.PageSkipped
}

func (d Diagnostic) String() string {
	what := "skipped slot"
	if d.PageSkipped {
		what = "skipped page"
	}
	return fmt.Sprintf("%s: %s", what, d.Err)
}
