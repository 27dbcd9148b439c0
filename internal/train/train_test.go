package train

import (
	"context"
	"errors"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ivlev/cloudtiles/internal/nn"
	"github.com/ivlev/cloudtiles/internal/source"
)

// writeTiles creates two classes of flat tiles, bright and dark.
func writeTiles(t *testing.T, dir string, perClass int) {
	t.Helper()
	levels := map[string]uint8{"Fish": 230, "Sugar": 20}
	for class, level := range levels {
		classDir := filepath.Join(dir, class)
		if err := os.MkdirAll(classDir, 0755); err != nil {
			t.Fatal(err)
		}
		for i := 0; i < perClass; i++ {
			img := image.NewGray(image.Rect(0, 0, 16, 16))
			for p := range img.Pix {
				img.Pix[p] = level + uint8(i)
			}
			if err := source.Save(filepath.Join(classDir, fmt.Sprintf("%05d.png", i)), img); err != nil {
				t.Fatal(err)
			}
		}
	}
}

func baseOptions(t *testing.T) Options {
	dir := t.TempDir()
	dataDir := filepath.Join(dir, "mini_data")
	writeTiles(t, dataDir, 6)
	return Options{
		Model:           nn.VariantSLP,
		BatchSize:       4,
		SplitRatio:      0.5,
		Epochs:          3,
		InputSize:       8,
		DataDir:         dataDir,
		LogDir:          filepath.Join(dir, "logs"),
		KeepCheckpoints: 2,
		Seed:            1,
	}
}

func TestRun(t *testing.T) {
	opts := baseOptions(t)

	res, err := Run(context.Background(), opts)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if res.TrainSize != 6 || res.TestSize != 6 {
		t.Errorf("split %d/%d, want 6/6", res.TrainSize, res.TestSize)
	}
	if res.EpochSteps != 1 || res.Steps != 3 {
		t.Errorf("epoch steps %d, steps %d", res.EpochSteps, res.Steps)
	}
	if len(res.Classes) != 2 || res.Classes[0] != "Fish" {
		t.Errorf("classes %v", res.Classes)
	}
	if res.TestAccuracy < 0 || res.TestAccuracy > 1 {
		t.Errorf("accuracy %f out of range", res.TestAccuracy)
	}

	metrics, err := ReadMetrics(res.RunDir)
	if err != nil {
		t.Fatalf("ReadMetrics failed: %v", err)
	}
	if len(metrics) != 3 || metrics[0].Step != 1 || metrics[2].Epoch != 2 {
		t.Errorf("unexpected metrics %+v", metrics)
	}

	entries, err := os.ReadDir(filepath.Join(res.RunDir, checkpointsDir))
	if err != nil {
		t.Fatal(err)
	}
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	if len(names) != 2 || names[0] != "model-1.ckpt" || names[1] != "model-2.ckpt" {
		t.Errorf("checkpoints %v, want model-1 and model-2", names)
	}
}

func TestRunRestoresLatest(t *testing.T) {
	opts := baseOptions(t)
	first, err := Run(context.Background(), opts)
	if err != nil {
		t.Fatalf("first run failed: %v", err)
	}

	opts.Weights = LatestWeights
	opts.Epochs = 1
	second, err := Run(context.Background(), opts)
	if err != nil {
		t.Fatalf("second run failed: %v", err)
	}

	want := filepath.Join(first.RunDir, checkpointsDir, "model-2.ckpt")
	if second.Restored != want {
		t.Errorf("restored %s, want %s", second.Restored, want)
	}
	if second.RunDir == first.RunDir {
		t.Error("second run reused the first run directory")
	}

	opts.Model = nn.VariantANN
	opts.Weights = want
	if _, err := Run(context.Background(), opts); err == nil {
		t.Error("Expected error restoring an SLP checkpoint into an ANN")
	}

	opts.Weights = LatestWeights
	if _, err := Run(context.Background(), opts); err == nil {
		t.Error("Expected error when no ANN run exists")
	}
}

func TestRunErrors(t *testing.T) {
	opts := baseOptions(t)

	cnn := opts
	cnn.Model = nn.VariantCNN
	if _, err := Run(context.Background(), cnn); !errors.Is(err, nn.ErrNotImplemented) {
		t.Errorf("CNN returned %v", err)
	}

	noEpochs := opts
	noEpochs.Epochs = 0
	if _, err := Run(context.Background(), noEpochs); err == nil {
		t.Error("Expected error for zero epochs")
	}

	missing := opts
	missing.DataDir = filepath.Join(t.TempDir(), "absent")
	if _, err := Run(context.Background(), missing); err == nil {
		t.Error("Expected error for missing data dir")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := Run(ctx, opts); !errors.Is(err, context.Canceled) {
		t.Errorf("canceled run returned %v", err)
	}
}

func TestRunDir(t *testing.T) {
	got := RunDir("logs", "SLP", time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC))
	if want := filepath.Join("logs", "SLP", "20260102-030405"); got != want {
		t.Errorf("RunDir = %s, want %s", got, want)
	}
}

func TestLatestCheckpoint(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"model-9.ckpt", "model-10.ckpt", "model-x.ckpt", "notes.txt"} {
		os.WriteFile(filepath.Join(dir, name), nil, 0644)
	}

	got, err := latestCheckpoint(dir)
	if err != nil {
		t.Fatalf("latestCheckpoint failed: %v", err)
	}
	if filepath.Base(got) != "model-10.ckpt" {
		t.Errorf("got %s, want model-10.ckpt", got)
	}

	if _, err := latestCheckpoint(t.TempDir()); err == nil {
		t.Error("Expected error for empty dir")
	}
}
