// Copyright 2025 The bdb Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package main

import (
	"errors"
	"fmt"
	"io"
	"slices"

	"github.com/spf13/cobra"

	"github.com/bpowers/bdb"
	"github.com/bpowers/bdb/internal/export"
	"github.com/bpowers/bdb/walletdb"
)

func metaCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "meta FILE",
		Short: "Print the meta page fields",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := g.open(args[0])
			if err != nil {
				return err
			}
			defer r.Close()
			printMeta(cmd.OutOrStdout(), r)
			return nil
		},
	}
}

func printMeta(w io.Writer, r *bdb.Reader) {
	m := r.Meta()
	p := r.Profile()
	fmt.Fprintf(w, "source:       %s\n", r.SourceID())
	fmt.Fprintf(w, "endian:       %s\n", m.Endian)
	fmt.Fprintf(w, "magic:        %#08x\n", m.Magic)
	fmt.Fprintf(w, "version:      %d\n", m.Version)
	fmt.Fprintf(w, "layout:       %s\n", p.Layout)
	fmt.Fprintf(w, "page size:    %d\n", m.PageSize)
	fmt.Fprintf(w, "type:         %s\n", m.Type)
	fmt.Fprintf(w, "last pgno:    %d\n", m.LastPgno)
	fmt.Fprintf(w, "free:         %d\n", m.Free)
	fmt.Fprintf(w, "root:         %d\n", m.Root)
	fmt.Fprintf(w, "keys:         %d\n", m.KeyCount)
	fmt.Fprintf(w, "records:      %d\n", m.RecordCount)
	fmt.Fprintf(w, "flags:        %#x\n", m.Flags)
	fmt.Fprintf(w, "uid:          %x\n", m.UID)
	fmt.Fprintf(w, "lsn:          %d/%d\n", m.LSN.File, m.LSN.Offset)
	if m.HasTail {
		fmt.Fprintf(w, "encrypted:    %t\n", m.Encrypted())
	}
}

func printDiagnostics(w io.Writer, diags []bdb.Diagnostic) {
	if len(diags) == 0 {
		return
	}
	fmt.Fprintf(w, "diagnostics (%d):\n", len(diags))
	for _, d := range diags {
		fmt.Fprintf(w, "  %s\n", d)
	}
}

func dumpCmd(g *globalFlags) *cobra.Command {
	var limit int
	var hexOut bool
	cmd := &cobra.Command{
		Use:   "dump FILE",
		Short: "Recover records and print them",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := g.open(args[0])
			if err != nil {
				return err
			}
			defer r.Close()

			w := cmd.OutOrStdout()
			printMeta(w, r)
			fmt.Fprintln(w)

			scan := r.Scan()
			for rec, err := range scan.Records() {
				if err != nil {
					printDiagnostics(w, scan.Diagnostics())
					return err
				}
				if limit >= 0 && scan.Count() > limit {
					continue
				}
				if hexOut {
					fmt.Fprintf(w, "%d/%d\t%x\t%x\n", rec.Provenance.Page, rec.Provenance.Slot, rec.Key, rec.Value)
				} else {
					fmt.Fprintf(w, "%d/%d\tkey %d bytes\tvalue %d bytes\n", rec.Provenance.Page, rec.Provenance.Slot, len(rec.Key), len(rec.Value))
				}
			}
			fmt.Fprintf(w, "\n%d records, scan %s\n", scan.Count(), scan.State())
			printDiagnostics(w, scan.Diagnostics())
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 10, "records to print; -1 prints all")
	cmd.Flags().BoolVar(&hexOut, "hex", false, "print keys and values as hex")
	return cmd
}

func treeCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "tree FILE",
		Short: "Print the page tree under the root",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := g.open(args[0])
			if err != nil {
				return err
			}
			defer r.Close()
			out, err := r.Outline()
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), out)
			return nil
		},
	}
}

func tagsCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "tags FILE",
		Short: "Count wallet records by key tag",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := g.open(args[0])
			if err != nil {
				return err
			}
			defer r.Close()

			counts := make(map[string]int)
			var untagged int
			scan := r.Scan()
			for t, err := range walletdb.Triples(scan.Records()) {
				switch {
				case errors.Is(err, walletdb.ErrNotWalletKey):
					untagged++
					continue
				case err != nil:
					return err
				}
				counts[t.Tag]++
			}

			w := cmd.OutOrStdout()
			tags := make([]string, 0, len(counts))
			for tag := range counts {
				tags = append(tags, tag)
			}
			slices.Sort(tags)
			for _, tag := range tags {
				fmt.Fprintf(w, "%-16s %d\n", tag, counts[tag])
			}
			if untagged > 0 {
				fmt.Fprintf(w, "%-16s %d\n", "(untagged)", untagged)
			}
			printDiagnostics(w, scan.Diagnostics())
			return nil
		},
	}
}

func exportCmd(g *globalFlags) *cobra.Command {
	var dbPath string
	var batch int
	cmd := &cobra.Command{
		Use:   "export FILE",
		Short: "Copy recovered records into a LevelDB database",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if dbPath == "" {
				return errors.New("--leveldb is required")
			}
			r, err := g.open(args[0])
			if err != nil {
				return err
			}
			defer r.Close()

			sink, err := export.Open(dbPath, export.WithBatchSize(batch), export.WithLogger(g.logger()))
			if err != nil {
				return err
			}
			scan := r.Scan()
			stats, err := sink.Export(scan.Records())
			if cerr := sink.Close(); err == nil {
				err = cerr
			}

			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "exported %d records (%d bytes, %d replaced) in %d batches to %s\n",
				stats.Records, stats.Bytes, stats.Replaced, stats.Batches, dbPath)
			printDiagnostics(w, scan.Diagnostics())
			return err
		},
	}
	cmd.Flags().StringVar(&dbPath, "leveldb", "", "destination LevelDB directory")
	cmd.Flags().IntVar(&batch, "batch", 1024, "records per write batch")
	return cmd
}
