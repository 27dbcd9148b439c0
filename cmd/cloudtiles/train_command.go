package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ivlev/cloudtiles/internal/train"
)

func newTrainCommand(ctx *commandContext) *cobra.Command {
	var flags train.Options

	cmd := &cobra.Command{
		Use:   "train",
		Short: "Train a tile classifier (SLP, ANN or CNN)",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := ctx.config
			f := cmd.Flags()
			if f.Changed("model") {
				cfg.Train.Model = flags.Model
			}
			if f.Changed("batch-size") {
				cfg.Train.BatchSize = max(1, flags.BatchSize)
			}
			if f.Changed("samples") {
				cfg.Train.Samples = flags.Samples
			}
			if f.Changed("epochs") {
				cfg.Train.Epochs = flags.Epochs
			}
			if f.Changed("weights") {
				cfg.Train.Weights = flags.Weights
			}
			if f.Changed("eval-batch") {
				cfg.Train.EvalBatch = flags.EvalBatch
			}
			if f.Changed("data") {
				cfg.Train.DataDir = flags.DataDir
			}
			if f.Changed("log-dir") {
				cfg.Train.LogDir = flags.LogDir
			}
			if f.Changed("seed") {
				cfg.Train.Seed = flags.Seed
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			res, err := train.Run(cmd.Context(), cfg.TrainOptions())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Testing accuracy: %.6f (%s)\n", res.TestAccuracy, res.RunDir)
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&flags.Model, "model", "", "Which model to use: SLP, ANN or CNN")
	f.IntVar(&flags.BatchSize, "batch-size", 0, "Mini batch size")
	f.IntVar(&flags.Samples, "samples", 0, "How many samples to load from each category")
	f.IntVar(&flags.Epochs, "epochs", 0, "Training epochs")
	f.StringVar(&flags.Weights, "weights", "", "Checkpoint to restore, or \"latest\"")
	f.IntVar(&flags.EvalBatch, "eval-batch", 0, "Evaluate on batches of this size instead of the full sets")
	f.StringVar(&flags.DataDir, "data", "", "Directory with one sub-directory of tiles per class")
	f.StringVar(&flags.LogDir, "log-dir", "", "Directory for run logs and checkpoints")
	f.Int64Var(&flags.Seed, "seed", 0, "Random seed, 0 for time based")
	return cmd
}
