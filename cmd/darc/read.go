package main

import (
	"encoding/hex"
	"fmt"
	"context"
	"io"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	darc "github.com/meigma/darc/core"
	darchttp "github.com/meigma/darc/core/http"
)

type readFlags struct {
	data        string
	json        bool
	decode      bool
	concurrency int
}

func newReadCmd(a *app) *cobra.Command {
	var f readFlags
	cmd := &cobra.Command{
		Use:   "read <archive> [extractDir]",
		Short: "List or extract the entries of an archive",
		Long: `Without extractDir, print every entry's path, size, compressed size,
ratio and encryption flag. With extractDir, write every entry below it.

Pass --data to read a split archive, with <archive> naming the index.
Archives given as http:// or https:// URLs are read with range requests.`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runRead(cmd, f, args)
		},
	}
	cmd.Flags().StringVar(&f.data, "data", "", "data file of a split archive")
	cmd.Flags().BoolVar(&f.json, "json", false, "list entries as JSON")
	cmd.Flags().BoolVar(&f.decode, "decode", false, "decrypt and decompress entries when extracting")
	cmd.Flags().IntVar(&f.concurrency, "concurrency", 1, "payload reads in flight when extracting, useful for URLs")
	return cmd
}

func (a *app) runRead(cmd *cobra.Command, f readFlags, args []string) error {
	paths := []string{args[0]}
	if f.data != "" {
		paths = append(paths, f.data)
	}

	opts := []darc.Option{darc.WithLogger(a.logger)}
	if a.cfg.EncryptionKey != "" {
		opts = append(opts, darc.WithKey([]byte(a.cfg.EncryptionKey)))
	}
	r, err := openArchive(cmd.Context(), paths, opts)
	if err != nil {
		return fmt.Errorf("open %s: %w", args[0], err)
	}
	defer r.Close()

	entries, err := r.Entries()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(args) == 2 {
		dest := args[1]
		fmt.Fprintf(out, "Extracting entries to %s:\n", dest)
		bar := newProgress(len(entries), !a.cfg.NoProgress)
		err := r.ExtractAll(cmd.Context(), dest,
			darc.ExtractWithDecode(f.decode),
			darc.ExtractWithConcurrency(f.concurrency),
			darc.ExtractWithProgress(bar.extractFunc()))
		bar.finish()
		if err != nil {
			return fmt.Errorf("could not extract files: %w", err)
		}
		for _, e := range entries {
			fmt.Fprintf(out, "> %s\n", e.Path)
		}
		return nil
	}

	if f.json {
		return writeJSONListing(out, r, entries)
	}
	writeListing(out, entries)
	return nil
}

// openArchive opens local paths directly and URLs through range requests.
func openArchive(ctx context.Context, paths []string, opts []darc.Option) (*darc.Reader, error) {
	if !isURL(paths[0]) {
		return darc.OpenPaths(paths, opts...)
	}
	sources := make([]darc.ByteSource, 0, len(paths))
	for _, p := range paths {
		if !isURL(p) {
			return nil, fmt.Errorf("%s: cannot mix URLs and local files", p)
		}
		src, err := darchttp.NewSource(ctx, p, darchttp.WithPinnedETag())
		if err != nil {
			return nil, err
		}
		sources = append(sources, src)
	}
	if len(sources) == 2 {
		return darc.NewSplitReader(sources[0], sources[1], opts...)
	}
	return darc.NewReader(sources[0], opts...)
}

func isURL(p string) bool {
	return strings.HasPrefix(p, "http://") || strings.HasPrefix(p, "https://")
}

func writeListing(w io.Writer, entries []*darc.Entry) {
	for _, e := range entries {
		encrypted := "-"
		if e.IsEncrypted() {
			encrypted = "yes"
		}
		fmt.Fprintf(w, "> %s\n", e.Path)
		fmt.Fprintf(w, "       size: %d\n", e.Size)
		fmt.Fprintf(w, " compressed: %d\n", e.CompressedSize)
		fmt.Fprintf(w, "      ratio: %s\n", strconv.FormatFloat(e.Ratio(), 'f', -1, 32))
		fmt.Fprintf(w, "  encrypted: %s\n", encrypted)
		fmt.Fprintln(w)
	}
}

type jsonEntry struct {
	Path           string  `json:"path"`
	Size           uint32  `json:"size"`
	CompressedSize uint32  `json:"compressed_size"`
	Ratio          float64 `json:"ratio"`
	Offset         uint32  `json:"offset"`
	Compressed     bool    `json:"compressed"`
	Encrypted      bool    `json:"encrypted"`
	Hash           string  `json:"hash,omitempty"`
}

type jsonListing struct {
	Version uint32      `json:"version"`
	Entries []jsonEntry `json:"entries"`
}

func writeJSONListing(w io.Writer, r *darc.Reader, entries []*darc.Entry) error {
	version, err := r.Version()
	if err != nil {
		return err
	}
	listing := jsonListing{Version: version, Entries: make([]jsonEntry, 0, len(entries))}
	for _, e := range entries {
		listing.Entries = append(listing.Entries, jsonEntry{
			Path:           e.Path,
			Size:           e.Size,
			CompressedSize: e.CompressedSize,
			Ratio:          e.Ratio(),
			Offset:         e.ResourceOffset,
			Compressed:     e.IsCompressed(),
			Encrypted:      e.IsEncrypted(),
			Hash:           hex.EncodeToString(e.Hash),
		})
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(listing)
}
