// Copyright 2025 The bdb Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package page

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrMagicNotFound            = errors.New("btree magic not found")
	ErrImplausiblePageSize      = errors.New("implausible page size")
	ErrShortPage                = errors.New("page shorter than header")
	ErrHeaderInvariantViolation = errors.New("page header invariant violated")
	ErrUnexpectedPageType       = errors.New("unexpected page type")
	ErrTruncatedOverflowChain   = errors.New("overflow chain truncated")
	ErrFieldOutOfBounds         = errors.New("field out of bounds")
	ErrUnknownLeafItemKind      = errors.New("unknown leaf item kind")
	ErrPageOutOfRange           = errors.New("page number out of range")
	ErrPageCycle                = errors.New("page visited twice")
	ErrFileTooShort             = errors.New("file shorter than last page")
	ErrRootOutOfRange           = errors.New("root page out of range")
)

// NoPage is used in a FormatError when the fault isn't tied to a page.
const NoPage = ^uint32(0)

// FormatError locates a decoding fault.  It unwraps to one of the Err*
// sentinels above, so callers should test it with errors.Is.
type FormatError struct {
	Err    error
	Page   uint32
	Slot   int // -1 if not slot specific
	Offset int // -1 if not offset specific
	Detail string
}

func (e *FormatError) Error() string {
	var sb strings.Builder
	sb.WriteString(e.Err.Error())
	if e.Page != NoPage {
		fmt.Fprintf(&sb, " (page %d", e.Page)
		if e.Slot >= 0 {
			fmt.Fprintf(&sb, " slot %d", e.Slot)
		}
		if e.Offset >= 0 {
			fmt.Fprintf(&sb, " off %d", e.Offset)
		}
		sb.WriteByte(')')
	}
	if e.Detail != "" {
		sb.WriteString(": ")
		sb.WriteString(e.Detail)
	}
	return sb.String()
}

func (e *FormatError) Unwrap() error {
	return e.Err
}

// Errorf builds a FormatError for page pgno with a formatted detail.
func Errorf(kind error, pgno uint32, format string, args ...interface{}) *FormatError {
	return &FormatError{
		Err:    kind,
		Page:   pgno,
		Slot:   -1,
		Offset: -1,
		Detail: fmt.Sprintf(format, args...),
	}
}

// At returns a copy of e with its slot and offset set.
func (e *FormatError) At(slot, off int) *FormatError {
	c := *e
	c.Slot = slot
	c.Offset = off
	return &c
}

// OnPage returns a copy of e attributed to pgno.
func (e *FormatError) OnPage(pgno uint32) *FormatError {
	c := *e
	c.Page = pgno
	return &c
}

// AsFormatError is a convenience around errors.As.
func AsFormatError(err error) (*FormatError, bool) {
	var fe *FormatError
	if errors.As(err, &fe) {
		return fe, true
	}
	return nil, false
}
