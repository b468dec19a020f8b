// Copyright 2025 The bdb Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

// Package page decodes the on-disk structures of a Berkeley DB Btree
// file: the meta page, per-page headers, leaf entries and internal
// entries.  Nothing in this package reads from disk; every function
// takes the bytes of a single page.
//
// A Btree file is an array of fixed-size pages.  Page 0 is the meta
// page, and the byte order of every multi-byte field is whatever the
// writing host used, detected from the meta magic:
//
//	┌───────────────────┐ page 0
//	│ meta page         │
//	├───────────────────┤ page 1
//	│ internal / leaf / │
//	│ overflow pages    │
//	│ ...               │
//	└───────────────────┘ page last_pgno
//
// Leaf and internal pages are slotted: a header, then an array of
// 2-byte absolute offsets growing up, and entries packed down from the
// end of the page:
//
//	 0                           hdr        lower         upper      page_size
//	+----------------------------+----------+-------------+----------------+
//	| header                     | slots... | free space  | entries...     |
//	+----------------------------+----------+-------------+----------------+
//
// Two header encodings exist.  The bounds layout stores lower/upper
// directly in a 28-byte header and the page type in the low 5 bits of a
// flags word.  The indexed layout (BDB 4.x and later) stores a slot
// count and the high free offset in a 26-byte header with the page type
// in byte 25.
//
// A leaf entry is either inline:
//
//	+----+----+----+----------------------+
//	| len     |kind| data[len]...         |
//	+----+----+----+----------------------+
//
// or a reference to a chain of overflow pages:
//
//	+----+----+----+----+----+----+----+----+----+----+----+----+
//	| pad     |kind|pad | first page        | total length      |
//	+----+----+----+----+----+----+----+----+----+----+----+----+
//
// The high bit of kind marks a deleted entry.
package page
