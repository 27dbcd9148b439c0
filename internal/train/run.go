package train

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ivlev/cloudtiles/internal/nn"
	"github.com/ivlev/cloudtiles/internal/system"
)

const (
	checkpointsDir = "checkpoints"
	checkpointExt  = ".ckpt"
	MetricsName    = "metrics.yaml"
)

// Metric is one evaluation point of a run.
type Metric struct {
	Epoch         int     `yaml:"epoch"`
	Step          int     `yaml:"step"`
	TrainAccuracy float64 `yaml:"train_accuracy"`
	TrainLoss     float64 `yaml:"train_loss"`
	TestAccuracy  float64 `yaml:"test_accuracy"`
	TestLoss      float64 `yaml:"test_loss"`
	LearningRate  float64 `yaml:"learning_rate"`
}

type run struct {
	dir         string
	keep        int
	checkpoints []string
	metrics     []Metric
}

// RunDir is where a run of model started at t keeps its files.
func RunDir(logDir, model string, t time.Time) string {
	return filepath.Join(logDir, model, t.Format("20060102-150405"))
}

// Runs started within the same second get a numeric suffix.
func newRun(logDir, model string, t time.Time, keep int) (*run, error) {
	base := RunDir(logDir, model, t)
	if err := os.MkdirAll(filepath.Dir(base), 0755); err != nil {
		return nil, fmt.Errorf("create log dir: %w", err)
	}

	dir := base
	for i := 1; ; i++ {
		err := os.Mkdir(dir, 0755)
		if err == nil {
			break
		}
		if !os.IsExist(err) {
			return nil, fmt.Errorf("create run dir: %w", err)
		}
		dir = fmt.Sprintf("%s-%d", base, i)
	}
	if err := os.Mkdir(filepath.Join(dir, checkpointsDir), 0755); err != nil {
		return nil, fmt.Errorf("create checkpoints dir: %w", err)
	}
	return &run{dir: dir, keep: keep}, nil
}

func checkpointName(epoch int) string {
	return fmt.Sprintf("model-%d%s", epoch, checkpointExt)
}

func (r *run) checkpoint(net *nn.Network, epoch, step int) error {
	path := filepath.Join(r.dir, checkpointsDir, checkpointName(epoch))
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create checkpoint: %w", err)
	}
	if err := net.Save(f, step); err != nil {
		f.Close()
		return fmt.Errorf("save checkpoint: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("save checkpoint: %w", err)
	}

	r.checkpoints = append(r.checkpoints, path)
	for len(r.checkpoints) > r.keep {
		if err := os.Remove(r.checkpoints[0]); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("rotate checkpoints: %w", err)
		}
		r.checkpoints = r.checkpoints[1:]
	}
	return nil
}

func (r *run) record(m Metric) error {
	r.metrics = append(r.metrics, m)
	data, err := yaml.Marshal(r.metrics)
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(r.dir, MetricsName), data, 0644)
}

// ReadMetrics loads the metrics file of a run directory.
func ReadMetrics(runDir string) ([]Metric, error) {
	data, err := os.ReadFile(filepath.Join(runDir, MetricsName))
	if err != nil {
		return nil, err
	}
	var metrics []Metric
	if err := yaml.Unmarshal(data, &metrics); err != nil {
		return nil, err
	}
	return metrics, nil
}

func resolveWeights(logDir, model, weights string) (string, error) {
	if weights != LatestWeights {
		return weights, nil
	}
	runDir, err := system.FindLatest(filepath.Join(logDir, model), "", true)
	if err != nil {
		return "", err
	}
	return latestCheckpoint(filepath.Join(runDir, checkpointsDir))
}

func latestCheckpoint(dir string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", err
	}
	best, bestEpoch := "", -1
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, "model-") || !strings.HasSuffix(name, checkpointExt) {
			continue
		}
		epoch, err := strconv.Atoi(strings.TrimSuffix(strings.TrimPrefix(name, "model-"), checkpointExt))
		if err != nil {
			continue
		}
		if epoch > bestEpoch {
			best, bestEpoch = filepath.Join(dir, name), epoch
		}
	}
	if best == "" {
		return "", fmt.Errorf("no checkpoints found in %s", dir)
	}
	return best, nil
}
