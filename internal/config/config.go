package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"slices"
	"strings"

	"github.com/spf13/viper"

	"github.com/ivlev/cloudtiles/internal/dataset"
	"github.com/ivlev/cloudtiles/internal/nn"
	"github.com/ivlev/cloudtiles/internal/prepare"
	"github.com/ivlev/cloudtiles/internal/train"
)

const DefaultPath = "config.yaml"

type Config struct {
	Log     LogConfig     `mapstructure:"log"`
	Prepare PrepareConfig `mapstructure:"prepare"`
	Train   TrainConfig   `mapstructure:"train"`

	// File is the config file that was read, empty when only defaults apply.
	File string `mapstructure:"-"`
}

type LogConfig struct {
	Mode string `mapstructure:"mode"`
}

type PrepareConfig struct {
	CSVPath    string   `mapstructure:"csv_path"`
	ImagesDir  string   `mapstructure:"images_dir"`
	OutputDir  string   `mapstructure:"output_dir"`
	Mode       string   `mapstructure:"mode"`
	TileSize   int      `mapstructure:"tile_size"`
	MinBoxSize int      `mapstructure:"min_box_size"`
	KernelSize int      `mapstructure:"kernel_size"`
	MaskScale  float64  `mapstructure:"mask_scale"`
	Workers    int      `mapstructure:"workers"`
	Backend    string   `mapstructure:"backend"`
	Classes    []string `mapstructure:"classes"`
}

type TrainConfig struct {
	Model           string  `mapstructure:"model"`
	BatchSize       int     `mapstructure:"batch_size"`
	Samples         int     `mapstructure:"samples"`
	SplitRatio      float64 `mapstructure:"split_ratio"`
	Epochs          int     `mapstructure:"epochs"`
	LearningRate    float64 `mapstructure:"learning_rate"`
	DecayRate       float64 `mapstructure:"decay_rate"`
	DecayEpochs     int     `mapstructure:"decay_epochs"`
	Hidden          []int   `mapstructure:"hidden"`
	L1              float64 `mapstructure:"l1"`
	InputSize       int     `mapstructure:"input_size"`
	EvalBatch       int     `mapstructure:"eval_batch"`
	LogDir          string  `mapstructure:"log_dir"`
	DataDir         string  `mapstructure:"data_dir"`
	Weights         string  `mapstructure:"weights"`
	KeepCheckpoints int     `mapstructure:"keep_checkpoints"`
	Seed            int64   `mapstructure:"seed"`
}

// Load reads a YAML config file over the defaults. A missing file is not an
// error. Environment variables such as CLOUDTILES_TRAIN_EPOCHS override both.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("cloudtiles")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	found := false
	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			v.SetConfigFile(configPath)
			v.SetConfigType("yaml")
			if err := v.ReadInConfig(); err != nil {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
			found = true
		} else if !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to stat config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if found {
		cfg.File = configPath
	}
	return &cfg, nil
}

// New loads DefaultPath and falls back to the defaults if it cannot be read.
func New() *Config {
	cfg, err := Load(DefaultPath)
	if err != nil {
		cfg, _ = Load("")
	}
	return cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log.mode", "debug")

	v.SetDefault("prepare.csv_path", "data/train.csv")
	v.SetDefault("prepare.images_dir", "data/train_images")
	v.SetDefault("prepare.output_dir", "data/mini_data")
	v.SetDefault("prepare.mode", prepare.ModeTiles)
	v.SetDefault("prepare.tile_size", 256)
	v.SetDefault("prepare.min_box_size", 256)
	v.SetDefault("prepare.kernel_size", 10)
	v.SetDefault("prepare.mask_scale", 0.25)
	v.SetDefault("prepare.workers", 0)
	v.SetDefault("prepare.backend", "native")
	v.SetDefault("prepare.classes", dataset.Classes)

	v.SetDefault("train.model", nn.VariantANN)
	v.SetDefault("train.batch_size", 128)
	v.SetDefault("train.samples", 3000)
	v.SetDefault("train.split_ratio", 0.7)
	v.SetDefault("train.epochs", 1000)
	v.SetDefault("train.learning_rate", 0.5)
	v.SetDefault("train.decay_rate", 0.5)
	v.SetDefault("train.decay_epochs", 40)
	v.SetDefault("train.hidden", []int{256, 128, 64})
	v.SetDefault("train.l1", 0.0)
	v.SetDefault("train.input_size", dataset.DefaultInputSize)
	v.SetDefault("train.eval_batch", 0)
	v.SetDefault("train.log_dir", "logs")
	v.SetDefault("train.data_dir", "data/mini_data")
	v.SetDefault("train.weights", "")
	v.SetDefault("train.keep_checkpoints", 5)
	v.SetDefault("train.seed", 0)
}

// Validate rejects values the pipelines would otherwise silently replace.
func (c *Config) Validate() error {
	var errs []error

	if c.Log.Mode != "debug" && c.Log.Mode != "release" {
		errs = append(errs, fmt.Errorf("log.mode must be debug or release, got %q", c.Log.Mode))
	}

	p := c.Prepare
	if p.Mode != prepare.ModeTiles && p.Mode != prepare.ModeMasks {
		errs = append(errs, fmt.Errorf("prepare.mode must be %s or %s, got %q", prepare.ModeTiles, prepare.ModeMasks, p.Mode))
	}
	if p.TileSize <= 0 {
		errs = append(errs, fmt.Errorf("prepare.tile_size must be positive, got %d", p.TileSize))
	}
	if p.MinBoxSize < 0 || p.KernelSize < 0 {
		errs = append(errs, errors.New("prepare.min_box_size and prepare.kernel_size must not be negative"))
	}
	if p.MaskScale <= 0 || p.MaskScale > 1 {
		errs = append(errs, fmt.Errorf("prepare.mask_scale must be in (0, 1], got %g", p.MaskScale))
	}
	if len(p.Classes) == 0 {
		errs = append(errs, errors.New("prepare.classes must not be empty"))
	}

	t := c.Train
	if !slices.Contains([]string{nn.VariantSLP, nn.VariantANN, nn.VariantCNN}, t.Model) {
		errs = append(errs, fmt.Errorf("train.model must be one of SLP, ANN, CNN, got %q", t.Model))
	}
	if t.BatchSize <= 0 || t.Epochs <= 0 {
		errs = append(errs, errors.New("train.batch_size and train.epochs must be positive"))
	}
	if t.SplitRatio <= 0 || t.SplitRatio >= 1 {
		errs = append(errs, fmt.Errorf("train.split_ratio must be in (0, 1), got %g", t.SplitRatio))
	}
	if t.LearningRate <= 0 || t.DecayRate <= 0 {
		errs = append(errs, errors.New("train.learning_rate and train.decay_rate must be positive"))
	}
	for _, w := range t.Hidden {
		if w <= 0 {
			errs = append(errs, fmt.Errorf("train.hidden widths must be positive, got %v", t.Hidden))
			break
		}
	}
	if t.L1 < 0 {
		errs = append(errs, fmt.Errorf("train.l1 must not be negative, got %g", t.L1))
	}

	return errors.Join(errs...)
}

func (c *Config) PrepareOptions() prepare.Options {
	p := c.Prepare
	return prepare.Options{
		CSVPath:    p.CSVPath,
		ImagesDir:  p.ImagesDir,
		OutputDir:  p.OutputDir,
		Mode:       p.Mode,
		TileSize:   p.TileSize,
		MinBoxSize: p.MinBoxSize,
		KernelSize: p.KernelSize,
		MaskScale:  p.MaskScale,
		Workers:    p.Workers,
		Backend:    p.Backend,
		Classes:    p.Classes,
	}
}

func (c *Config) TrainOptions() train.Options {
	t := c.Train
	return train.Options{
		Model:           t.Model,
		BatchSize:       t.BatchSize,
		Samples:         t.Samples,
		SplitRatio:      t.SplitRatio,
		Epochs:          t.Epochs,
		LearningRate:    t.LearningRate,
		DecayRate:       t.DecayRate,
		DecayEpochs:     t.DecayEpochs,
		Hidden:          t.Hidden,
		L1:              t.L1,
		InputSize:       t.InputSize,
		EvalBatch:       t.EvalBatch,
		LogDir:          t.LogDir,
		DataDir:         t.DataDir,
		Weights:         t.Weights,
		KeepCheckpoints: t.KeepCheckpoints,
		Seed:            t.Seed,
	}
}
