package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ivlev/cloudtiles/internal/prepare"
)

func newPrepareCommand(ctx *commandContext) *cobra.Command {
	var flags prepare.Options

	cmd := &cobra.Command{
		Use:   "prepare",
		Short: "Cut the labelled regions of the training images into per-class tiles",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := ctx.config
			f := cmd.Flags()
			if f.Changed("csv") {
				cfg.Prepare.CSVPath = flags.CSVPath
			}
			if f.Changed("images") {
				cfg.Prepare.ImagesDir = flags.ImagesDir
			}
			if f.Changed("output") {
				cfg.Prepare.OutputDir = flags.OutputDir
			}
			if f.Changed("mode") {
				cfg.Prepare.Mode = flags.Mode
			}
			if f.Changed("tile-size") {
				cfg.Prepare.TileSize = flags.TileSize
			}
			if f.Changed("min-box") {
				cfg.Prepare.MinBoxSize = flags.MinBoxSize
			}
			if f.Changed("kernel") {
				cfg.Prepare.KernelSize = flags.KernelSize
			}
			if f.Changed("mask-scale") {
				cfg.Prepare.MaskScale = flags.MaskScale
			}
			if f.Changed("workers") {
				cfg.Prepare.Workers = flags.Workers
			}
			if f.Changed("backend") {
				cfg.Prepare.Backend = flags.Backend
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			p, err := prepare.New(cfg.PrepareOptions())
			if err != nil {
				return err
			}
			report, err := p.Run(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d records, %d processed, %d skipped, %d without tiles, %d files written in %.1fs\n",
				report.Records, report.Processed, report.Skipped, report.Empty, report.Tiles, report.Seconds)
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&flags.CSVPath, "csv", "", "Label table (Image_Label,EncodedPixels)")
	f.StringVar(&flags.ImagesDir, "images", "", "Directory with the training images")
	f.StringVar(&flags.OutputDir, "output", "", "Output directory")
	f.StringVar(&flags.Mode, "mode", "", "Output mode: tiles or masks")
	f.IntVar(&flags.TileSize, "tile-size", 0, "Tile edge in pixels")
	f.IntVar(&flags.MinBoxSize, "min-box", 0, "Smallest region edge kept, in pixels")
	f.IntVar(&flags.KernelSize, "kernel", 0, "Opening kernel size, 0 disables the opening")
	f.Float64Var(&flags.MaskScale, "mask-scale", 0, "Downscale factor in masks mode")
	f.IntVar(&flags.Workers, "workers", 0, "Parallel workers, 0 for one per CPU")
	f.StringVar(&flags.Backend, "backend", "", "Region backend: native or gocv")
	return cmd
}
