package main

import (
	"fmt"
	"io"
	"os"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/meigma/darc/textureset"
)

type layoutFlags struct {
	margin     int
	powerOfTwo bool
}

func newLayoutCmd(a *app) *cobra.Command {
	var f layoutFlags
	cmd := &cobra.Command{
		Use:   "layout [file]",
		Short: "Pack rectangles into a texture set layout",
		Long: `Read a JSON array of {"id", "width", "height"} rectangles from file or
stdin and print the packed layout as JSON.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runLayout(cmd, f, args)
		},
	}
	cmd.Flags().IntVar(&f.margin, "margin", 0, "pixels reserved after each rectangle")
	cmd.Flags().BoolVar(&f.powerOfTwo, "power-of-two", true, "round the canvas up to powers of two")
	return cmd
}

func (a *app) runLayout(cmd *cobra.Command, f layoutFlags, args []string) error {
	margin := a.cfg.Layout.Margin
	if cmd.Flags().Changed("margin") {
		margin = f.margin
	}
	pow2 := a.cfg.Layout.PowerOfTwo
	if cmd.Flags().Changed("power-of-two") {
		pow2 = f.powerOfTwo
	}

	var in io.Reader = cmd.InOrStdin()
	if len(args) == 1 {
		file, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer file.Close()
		in = file
	}

	var rects []textureset.Rect
	if err := json.NewDecoder(in).Decode(&rects); err != nil {
		return fmt.Errorf("decode rectangles: %w", err)
	}

	layout, err := textureset.Pack(margin, rects, textureset.WithPowerOfTwo(pow2))
	if err != nil {
		return err
	}
	a.logger.Debug("packed layout", "rectangles", len(rects), "width", layout.Width, "height", layout.Height)

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(layout)
}
