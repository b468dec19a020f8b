// Copyright 2025 The bdb Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package bdb

import (
	"io"
	"log/slog"

	"github.com/bpowers/bdb/page"
)

// Mode controls how a Scan reacts to page-level faults.
type Mode uint8

const (
	// Conservative aborts the scan on the first page-level fault.
	Conservative Mode = iota
	// BestEffort records the fault, skips the page or subtree, and
	// keeps going.
	BestEffort
)

func (m Mode) String() string {
	if m == BestEffort {
		return "best-effort"
	}
	return "conservative"
}

// Option configures a Reader.
type Option func(*options)

type options struct {
	mode       Mode
	logger     *slog.Logger
	layout     page.Layout
	fileReads  bool
	cachePages int
}

func newOptions(opts []Option) options {
	var options options
	options.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	for _, opt := range opts {
		opt(&options)
	}
	return options
}

// WithMode selects the consistency policy (default Conservative).
func WithMode(m Mode) Option {
	return func(opts *options) {
		opts.mode = m
	}
}

// WithLogger sets a logger for diagnostics and traversal progress.
// If not provided, no logging output will be produced.
func WithLogger(logger *slog.Logger) Option {
	return func(opts *options) {
		if logger != nil {
			opts.logger = logger
		}
	}
}

// WithLayout forces a page header layout instead of detecting it from
// the meta page version.
func WithLayout(l page.Layout) Option {
	return func(opts *options) {
		opts.layout = l
	}
}

// WithFileReads makes Open read pages with pread instead of mapping the
// file.
func WithFileReads() Option {
	return func(opts *options) {
		opts.fileReads = true
	}
}

// WithPageCache keeps up to n decoded-from-disk pages in memory.  It
// only helps sources that copy on every read, such as WithFileReads.
func WithPageCache(n int) Option {
	return func(opts *options) {
		opts.cachePages = n
	}
}
