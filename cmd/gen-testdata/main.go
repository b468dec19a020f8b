// Copyright 2025 The bdb Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

// gen-testdata writes a synthetic wallet image: tagged keys in a
// multi-level Btree, with a share of values spilled to overflow chains.
package main

import (
	"bytes"
	"crypto/hmac"
	crand "crypto/rand"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"math/rand"
	"os"
	"slices"

	"github.com/spf13/cobra"

	"github.com/bpowers/bdb/internal/pagetest"
	"github.com/bpowers/bdb/page"
	"github.com/bpowers/bdb/walletdb"
)

const hmacKey = "d259c7f656caf7f1"

var tags = []string{"key", "name", "pool", "tx", "purpose"}

type pair struct {
	key, value []byte
}

func newRand(seed int64) *rand.Rand {
	if seed == 0 {
		var seedBytes [8]byte
		if _, err := crand.Read(seedBytes[:]); err != nil {
			panic(err)
		}
		seed = int64(binary.LittleEndian.Uint64(seedBytes[:]))
	}
	return rand.New(rand.NewSource(seed))
}

func genPairs(rng *rand.Rand, n, overflowEvery, pageSize int) []pair {
	h := hmac.New(sha256.New, []byte(hmacKey))
	pairs := make([]pair, 0, n)
	for i := 0; i < n; i++ {
		var buf [8]byte
		if _, err := rng.Read(buf[:]); err != nil {
			panic(err)
		}
		h.Reset()
		h.Write(buf[:])
		tag := tags[i%len(tags)]
		key := walletdb.AppendKey(nil, tag, h.Sum(nil)[:20])

		size := 16 + rng.Intn(96)
		if overflowEvery > 0 && i%overflowEvery == 0 {
			size = pageSize + rng.Intn(2*pageSize)
		}
		value := make([]byte, size)
		if _, err := rng.Read(value); err != nil {
			panic(err)
		}
		pairs = append(pairs, pair{key: key, value: value})
	}
	slices.SortFunc(pairs, func(a, b pair) int {
		return bytes.Compare(a.key, b.key)
	})
	return pairs
}

// build lays pairs out left to right and stacks internal levels on top
// until a single root remains.
func build(b *pagetest.Builder, pairs []pair) uint32 {
	budget := b.PageSize() - b.Layout().HeaderSize() - 64
	inlineMax := b.PageSize() / 4

	var level []pagetest.Child
	var items []pagetest.Item
	var firstKey []byte
	used := 0
	flush := func() {
		if len(items) == 0 {
			return
		}
		level = append(level, pagetest.Child{Page: b.Leaf(items...), Key: firstKey})
		items, used, firstKey = nil, 0, nil
	}
	for _, p := range pairs {
		v := pagetest.Inline(p.value)
		vsize := 3 + len(p.value)
		if len(p.value) > inlineMax {
			v = pagetest.Ref(b.Overflow(p.value))
			vsize = 12
		}
		need := 3 + len(p.key) + vsize + 4
		if used+need > budget {
			flush()
		}
		if firstKey == nil {
			firstKey = p.key
		}
		items = append(items, pagetest.Inline(p.key), v)
		used += need
	}
	flush()

	for len(level) > 1 {
		var next []pagetest.Child
		var group []pagetest.Child
		used = 0
		for _, c := range level {
			need := 12 + len(c.Key) + 2
			if used+need > budget {
				next = append(next, pagetest.Child{Page: b.Internal(group...), Key: group[0].Key})
				group, used = nil, 0
			}
			group = append(group, c)
			used += need
		}
		next = append(next, pagetest.Child{Page: b.Internal(group...), Key: group[0].Key})
		level = next
	}
	if len(level) == 0 {
		return b.Leaf()
	}
	return level[0].Page
}

func main() {
	var (
		out           string
		n             int
		seed          int64
		pageSize      int
		overflowEvery int
		bigEndian     bool
		layout        string
	)

	cmd := &cobra.Command{
		Use:   "gen-testdata",
		Short: "Write a synthetic wallet Btree image",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			l, err := page.ParseLayout(layout)
			if err != nil {
				return err
			}
			opts := []pagetest.Option{pagetest.WithPageSize(pageSize), pagetest.WithLayout(l)}
			if bigEndian {
				opts = append(opts, pagetest.WithEndian(page.BigEndian))
			}
			b := pagetest.New(opts...)
			b.SetRoot(build(b, genPairs(newRand(seed), n, overflowEvery, pageSize)))

			if out == "" || out == "-" {
				_, err = os.Stdout.Write(b.Bytes())
				return err
			}
			if err := os.WriteFile(out, b.Bytes(), 0o644); err != nil {
				return fmt.Errorf("write %s: %w", out, err)
			}
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVarP(&out, "out", "o", "", "output file (default stdout)")
	f.IntVarP(&n, "records", "n", 1000, "number of records")
	f.Int64Var(&seed, "seed", 0, "random seed (0 picks one)")
	f.IntVar(&pageSize, "page-size", 4096, "page size in bytes")
	f.IntVar(&overflowEvery, "overflow-every", 50, "spill every Nth value to an overflow chain; 0 disables")
	f.BoolVar(&bigEndian, "big-endian", false, "write a big-endian image")
	f.StringVar(&layout, "layout", "bounds", "page header layout: bounds or indexed")

	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "gen-testdata: %s\n", err)
		os.Exit(1)
	}
}
