package dataset

import (
	"fmt"
	"image"
	"os"
	"path/filepath"
	"sort"

	"go.uber.org/zap"
	"golang.org/x/image/draw"

	"github.com/ivlev/cloudtiles/internal/logging"
	"github.com/ivlev/cloudtiles/internal/source"
)

const DefaultInputSize = 32

// LoadOptions controls how tiles are turned into samples.
type LoadOptions struct {
	ClassCap  int // samples per class, 0 or less for all
	InputSize int // samples are InputSize×InputSize grayscale
	// Open lists the tiles of one class directory. Defaults to
	// source.NewImageSource.
	Open func(dir string) (source.Source, error)
}

func openImages(dir string) (source.Source, error) {
	src, err := source.NewImageSource(dir)
	if err != nil {
		return nil, err
	}
	return src, nil
}

// Preprocess converts img to a size×size grayscale vector scaled to [0, 1].
func Preprocess(img image.Image, size int) []float32 {
	gray := image.NewGray(image.Rect(0, 0, size, size))
	draw.BiLinear.Scale(gray, gray.Bounds(), img, img.Bounds(), draw.Src, nil)

	out := make([]float32, len(gray.Pix))
	for i, v := range gray.Pix {
		out[i] = float32(v) / 255
	}
	return out
}

// Load reads a directory with one sub-directory of tiles per class. Class
// ids follow the sorted directory names, which are returned alongside.
func Load(dir string, opts LoadOptions) (*Datapack, []string, error) {
	if opts.InputSize <= 0 {
		opts.InputSize = DefaultInputSize
	}
	if opts.Open == nil {
		opts.Open = openImages
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, nil, fmt.Errorf("read data dir: %w", err)
	}
	var classes []string
	for _, e := range entries {
		if e.IsDir() {
			classes = append(classes, e.Name())
		}
	}
	sort.Strings(classes)
	if len(classes) == 0 {
		return nil, nil, fmt.Errorf("no class directories in %s", dir)
	}

	logging.Logger.Info("loading data", zap.String("dir", dir), zap.Int("classes", len(classes)))

	data := &Datapack{}
	for id, class := range classes {
		src, err := opts.Open(filepath.Join(dir, class))
		if err != nil {
			return nil, nil, err
		}
		count := appendClass(data, src, id, len(classes), opts)
		logging.Logger.Info("class loaded", zap.String("class", class), zap.Int("samples", count))
	}

	if data.Len() == 0 {
		return nil, nil, fmt.Errorf("no samples found in %s", dir)
	}
	return data, classes, nil
}

// appendClass skips unreadable tiles.
func appendClass(data *Datapack, src source.Source, id, classes int, opts LoadOptions) int {
	count := 0
	for i := 0; i < src.Count(); i++ {
		if opts.ClassCap > 0 && count >= opts.ClassCap {
			break
		}
		img, err := src.Load(i)
		if err != nil {
			logging.Logger.Warn("skipping unreadable tile", zap.String("path", src.Path(i)), zap.Error(err))
			continue
		}
		data.Images = append(data.Images, Preprocess(img, opts.InputSize))
		data.Labels = append(data.Labels, OneHot(id, classes))
		count++
	}
	return count
}
