// Copyright 2025 The bdb Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

// bdbsalvage inspects and recovers records from Berkeley DB Btree files.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/bpowers/bdb"
	"github.com/bpowers/bdb/page"
)

type globalFlags struct {
	verbose    bool
	bestEffort bool
	fileReads  bool
	cachePages int
	layout     string
}

func (g *globalFlags) logger() *slog.Logger {
	level := slog.LevelWarn
	if g.verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

func (g *globalFlags) open(path string) (*bdb.Reader, error) {
	layout, err := page.ParseLayout(g.layout)
	if err != nil {
		return nil, err
	}
	mode := bdb.Conservative
	if g.bestEffort {
		mode = bdb.BestEffort
	}
	opts := []bdb.Option{
		bdb.WithMode(mode),
		bdb.WithLogger(g.logger()),
		bdb.WithLayout(layout),
		bdb.WithPageCache(g.cachePages),
	}
	if g.fileReads {
		opts = append(opts, bdb.WithFileReads())
	}
	r, err := bdb.Open(path, opts...)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	return r, nil
}

func main() {
	var g globalFlags

	rootCmd := &cobra.Command{
		Use:           "bdbsalvage",
		Short:         "Recover key/value records from Berkeley DB Btree files",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	pf := rootCmd.PersistentFlags()
	pf.BoolVarP(&g.verbose, "verbose", "v", false, "log traversal progress to stderr")
	pf.BoolVar(&g.bestEffort, "best-effort", false, "skip damaged pages instead of stopping at the first one")
	pf.BoolVar(&g.fileReads, "file-reads", false, "read pages with pread instead of mmap")
	pf.IntVar(&g.cachePages, "cache-pages", 0, "pages to cache in memory (with --file-reads)")
	pf.StringVar(&g.layout, "layout", "auto", "page header layout: auto, bounds or indexed")

	rootCmd.AddCommand(
		metaCmd(&g),
		dumpCmd(&g),
		treeCmd(&g),
		tagsCmd(&g),
		exportCmd(&g),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "bdbsalvage: %s\n", err)
		os.Exit(1)
	}
}
