// Package train runs minibatch training of the tile classifiers and keeps
// checkpoints and per-epoch metrics in a timestamped run directory.
package train

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/ivlev/cloudtiles/internal/dataset"
	"github.com/ivlev/cloudtiles/internal/logging"
	"github.com/ivlev/cloudtiles/internal/nn"
)

// LatestWeights restores the newest checkpoint of the newest run.
const LatestWeights = "latest"

type Options struct {
	Model        string
	BatchSize    int
	Samples      int // per class, 0 for all
	SplitRatio   float64
	Epochs       int
	LearningRate float64
	DecayRate    float64
	DecayEpochs  int
	Hidden       []int
	L1           float64
	InputSize    int
	// EvalBatch > 0 evaluates on a batch of that size instead of the whole
	// train and test sets.
	EvalBatch       int
	LogDir          string
	DataDir         string
	Weights         string
	KeepCheckpoints int
	Seed            int64
}

func (o *Options) setDefaults() {
	if o.BatchSize <= 0 {
		o.BatchSize = 128
	}
	if o.SplitRatio <= 0 || o.SplitRatio >= 1 {
		o.SplitRatio = 0.7
	}
	if o.LearningRate <= 0 {
		o.LearningRate = 0.5
	}
	if o.DecayRate <= 0 {
		o.DecayRate = 0.5
	}
	if o.DecayEpochs <= 0 {
		o.DecayEpochs = 40
	}
	if o.KeepCheckpoints <= 0 {
		o.KeepCheckpoints = 5
	}
	if o.InputSize <= 0 {
		o.InputSize = dataset.DefaultInputSize
	}
	if len(o.Hidden) == 0 {
		o.Hidden = []int{256, 128, 64}
	}
	if o.LogDir == "" {
		o.LogDir = "logs"
	}
	if o.Seed == 0 {
		o.Seed = time.Now().UnixNano()
	}
}

type Result struct {
	RunDir       string
	Classes      []string
	TrainSize    int
	TestSize     int
	Steps        int
	EpochSteps   int
	Restored     string
	TestAccuracy float64
	Metrics      []Metric
}

func Run(ctx context.Context, opts Options) (*Result, error) {
	if opts.Model == "" {
		return nil, errors.New("model is required")
	}
	if opts.DataDir == "" {
		return nil, errors.New("data dir is required")
	}
	if opts.Epochs <= 0 {
		return nil, fmt.Errorf("epochs must be positive, got %d", opts.Epochs)
	}
	opts.setDefaults()
	rng := rand.New(rand.NewSource(opts.Seed))

	data, classes, err := dataset.Load(opts.DataDir, dataset.LoadOptions{ClassCap: opts.Samples, InputSize: opts.InputSize})
	if err != nil {
		return nil, err
	}
	if data.Len() == 0 {
		return nil, fmt.Errorf("no samples in %s", opts.DataDir)
	}
	trainSet, testSet := dataset.Split(data, opts.SplitRatio, rng)
	if trainSet.Len() == 0 {
		return nil, fmt.Errorf("split ratio %.2f leaves no training samples out of %d", opts.SplitRatio, data.Len())
	}

	batchSize := min(trainSet.Len(), opts.BatchSize)
	epochSteps := trainSet.Len() / batchSize
	steps := opts.Epochs * epochSteps

	net, err := nn.New(opts.Model, len(data.Images[0]), len(classes), opts.Hidden, rng)
	if err != nil {
		return nil, err
	}

	restored := ""
	if opts.Weights != "" {
		path, err := resolveWeights(opts.LogDir, opts.Model, opts.Weights)
		if err != nil {
			return nil, fmt.Errorf("resolve weights: %w", err)
		}
		loaded, err := loadCheckpoint(path)
		if err != nil {
			return nil, err
		}
		if loaded.Variant != net.Variant || !loaded.Compatible(net) {
			return nil, fmt.Errorf("checkpoint %s does not match a %s model with %d inputs and %d classes", path, opts.Model, net.Inputs(), net.Classes())
		}
		net = loaded
		restored = path
		logging.Logger.Info("model restored", zap.String("path", path))
	}

	run, err := newRun(opts.LogDir, opts.Model, time.Now(), opts.KeepCheckpoints)
	if err != nil {
		return nil, err
	}

	logging.Logger.Info("training",
		zap.String("model", opts.Model),
		zap.Strings("classes", classes),
		zap.Int("train", trainSet.Len()),
		zap.Int("test", testSet.Len()),
		zap.Int("batch", batchSize),
		zap.Int("epoch_steps", epochSteps),
		zap.Int("steps", steps),
		zap.String("run_dir", run.dir))

	schedule := nn.ExponentialDecay{
		Initial:   opts.LearningRate,
		Rate:      opts.DecayRate,
		Steps:     opts.DecayEpochs * epochSteps,
		Staircase: true,
	}

	var trainCursor, testCursor dataset.Cursor
	var batch dataset.Batch
	epoch := 0
	for step := 1; step <= steps; step++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		lr := schedule.At(step - 1)
		batch, trainCursor = trainSet.Next(trainCursor, batchSize)
		net.Step(batch, lr, opts.L1)

		if step%epochSteps != 0 && step != 1 {
			continue
		}
		if err := run.checkpoint(net, epoch, step); err != nil {
			return nil, err
		}

		trainEval, testEval := trainSet.All(), testSet.All()
		if opts.EvalBatch > 0 {
			trainEval, _ = trainSet.Next(trainCursor, opts.EvalBatch)
			testEval, testCursor = testSet.Next(testCursor, opts.EvalBatch)
		}
		m := Metric{Epoch: epoch, Step: step, LearningRate: schedule.At(step)}
		m.TrainAccuracy, m.TrainLoss = net.Evaluate(trainEval)
		m.TestAccuracy, m.TestLoss = net.Evaluate(testEval)
		if err := run.record(m); err != nil {
			return nil, err
		}

		logging.Logger.Info(fmt.Sprintf("Epoch %d", epoch),
			zap.Float64("train_accuracy", m.TrainAccuracy),
			zap.Float64("train_loss", m.TrainLoss),
			zap.Float64("test_accuracy", m.TestAccuracy),
			zap.Float64("test_loss", m.TestLoss),
			zap.Float64("learning_rate", m.LearningRate))
		epoch++
	}

	testAccuracy, _ := net.Evaluate(testSet.All())
	logging.Logger.Info("optimization finished", zap.Float64("test_accuracy", testAccuracy))

	return &Result{
		RunDir:       run.dir,
		Classes:      classes,
		TrainSize:    trainSet.Len(),
		TestSize:     testSet.Len(),
		Steps:        steps,
		EpochSteps:   epochSteps,
		Restored:     restored,
		TestAccuracy: testAccuracy,
		Metrics:      run.metrics,
	}, nil
}

func loadCheckpoint(path string) (*nn.Network, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	net, _, err := nn.Load(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	return net, nil
}
