package main

import (
	"fmt"
	"path/filepath"

	"github.com/opencontainers/go-digest"
	"github.com/spf13/cobra"

	darc "github.com/meigma/darc/core"
	"github.com/meigma/darc/manifest"
)

const buildUsage = "usage: darc build <root> <out> [-c] <file1> <file2>..."

type buildFlags struct {
	compress bool
	split    bool
	manifest string
	ordering string
}

func newBuildCmd(a *app) *cobra.Command {
	var f buildFlags
	cmd := &cobra.Command{
		Use:   "build <root> <out> [-c] <file>...",
		Short: "Pack files under a content root into an archive",
		Long: `Pack the listed files, which must lie under root, into out.

With --split the archive is written as <out>.arci (index) and <out>.arcd
(data). Script extensions are encrypted with the configured key.`,
		Args: cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runBuild(cmd, f, args)
		},
	}
	cmd.Flags().BoolVarP(&f.compress, "compress", "c", false, "compress every listed file")
	cmd.Flags().BoolVar(&f.split, "split", false, "write an index/data pair")
	cmd.Flags().StringVar(&f.manifest, "manifest", "", "write a resource manifest to this path")
	cmd.Flags().StringVar(&f.ordering, "ordering", "", "entry order: path or hash (default depends on layout)")
	return cmd
}

func (a *app) runBuild(cmd *cobra.Command, f buildFlags, args []string) error {
	cfg := a.cfg
	root, out, files := cfg.Root, cfg.Output, args
	if len(args) < 2 {
		fmt.Fprintln(cmd.ErrOrStderr(), buildUsage)
	} else {
		root, out, files = args[0], args[1], args[2:]
	}

	compress := cfg.Compress
	if cmd.Flags().Changed("compress") {
		compress = f.compress
	}
	split := cfg.Split
	if cmd.Flags().Changed("split") {
		split = f.split
	}
	ordering := cfg.Ordering
	if cmd.Flags().Changed("ordering") {
		ordering = f.ordering
	}

	alg := digest.Algorithm(cfg.HashAlgorithm)
	opts := []darc.WriterOption{
		darc.WriteWithLogger(a.logger),
		darc.WriteWithHashAlgorithm(alg),
	}
	if ordering != "" {
		o, err := darc.ParseOrdering(ordering)
		if err != nil {
			return err
		}
		opts = append(opts, darc.WriteWithOrdering(o))
	}
	if cfg.EncryptionKey != "" {
		opts = append(opts, darc.WriteWithEncryption([]byte(cfg.EncryptionKey), cfg.EncryptedExtensions...))
	}
	if len(cfg.SkipCompressionExtensions) > 0 {
		opts = append(opts, darc.WriteWithSkipCompression(darc.SkipExtensions(cfg.SkipCompressionExtensions...)))
	}

	var mb *manifest.Builder
	if f.manifest != "" {
		var err error
		mb, err = manifest.NewBuilder(manifest.WithAlgorithm(alg), manifest.WithLogger(a.logger))
		if err != nil {
			return err
		}
		opts = append(opts, darc.WriteWithManifest(mb))
	}

	bar := newProgress(2*len(files), !cfg.NoProgress)
	opts = append(opts, darc.WriteWithProgress(bar.buildFunc()))

	w, err := darc.NewWriter(root, opts...)
	if err != nil {
		return err
	}
	for _, file := range files {
		if err := w.Add(file, compress); err != nil {
			return err
		}
	}

	ctx := cmd.Context()
	if split {
		index, data := out+".arci", out+".arcd"
		err = w.WriteSplitFiles(ctx, index, data)
		bar.finish()
		if err != nil {
			return err
		}
		a.logger.Info("wrote archive", "index", index, "data", data, "entries", w.Len())
	} else {
		err = w.WriteFile(ctx, out)
		bar.finish()
		if err != nil {
			return err
		}
		a.logger.Info("wrote archive", "path", out, "entries", w.Len())
	}

	if mb != nil {
		if err := mb.WriteFile(filepath.Clean(f.manifest)); err != nil {
			return fmt.Errorf("write manifest: %w", err)
		}
	}
	return nil
}
