// Package prepare turns the segmentation label table into per-class image
// tiles (or downscaled image/mask pairs) for classifier training.
package prepare

import (
	"context"
	"errors"
	"fmt"
	"image"
	"math"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/image/draw"
	"golang.org/x/sync/errgroup"

	"github.com/ivlev/cloudtiles/internal/dataset"
	"github.com/ivlev/cloudtiles/internal/logging"
	"github.com/ivlev/cloudtiles/internal/mask"
	"github.com/ivlev/cloudtiles/internal/region"
	"github.com/ivlev/cloudtiles/internal/rle"
	"github.com/ivlev/cloudtiles/internal/source"
	"github.com/ivlev/cloudtiles/internal/system"
)

const (
	ModeTiles = "tiles"
	ModeMasks = "masks"

	ManifestName = "manifest.yaml"
)

type Options struct {
	CSVPath    string
	ImagesDir  string
	OutputDir  string
	Mode       string
	TileSize   int
	MinBoxSize int
	KernelSize int
	MaskScale  float64
	Workers    int
	Backend    string
	Classes    []string
}

// Pipeline runs one preparation pass. It is not reusable.
type Pipeline struct {
	opts      Options
	extractor *region.Extractor

	counter   atomic.Int64
	processed atomic.Int64
	skipped   atomic.Int64
	empty     atomic.Int64

	mu    sync.Mutex
	tiles []Tile
}

func New(opts Options) (*Pipeline, error) {
	if opts.Mode == "" {
		opts.Mode = ModeTiles
	}
	if opts.Mode != ModeTiles && opts.Mode != ModeMasks {
		return nil, fmt.Errorf("unknown mode %q (want %s or %s)", opts.Mode, ModeTiles, ModeMasks)
	}
	if opts.CSVPath == "" || opts.ImagesDir == "" || opts.OutputDir == "" {
		return nil, fmt.Errorf("csv path, images dir and output dir are required")
	}
	if opts.TileSize <= 0 {
		opts.TileSize = 256
	}
	if opts.MaskScale <= 0 || opts.MaskScale > 1 {
		opts.MaskScale = 0.25
	}
	if opts.Workers <= 0 {
		opts.Workers = system.DefaultWorkers()
	}
	if len(opts.Classes) == 0 {
		opts.Classes = dataset.Classes
	}

	backend, err := region.NewBackend(opts.Backend)
	if err != nil {
		return nil, err
	}
	return &Pipeline{
		opts: opts,
		extractor: &region.Extractor{
			Backend:    backend,
			KernelSize: opts.KernelSize,
			MinSize:    opts.MinBoxSize,
		},
	}, nil
}

func (p *Pipeline) Run(ctx context.Context) (*Report, error) {
	startTime := time.Now()

	f, err := os.Open(p.opts.CSVPath)
	if err != nil {
		return nil, fmt.Errorf("open label table: %w", err)
	}
	records, err := dataset.ReadRecords(f)
	f.Close()
	if err != nil {
		return nil, err
	}
	masked := dataset.WithMasks(records)

	for _, class := range p.opts.Classes {
		dir := filepath.Join(p.opts.OutputDir, class)
		if p.opts.Mode == ModeMasks {
			dir = filepath.Join(dir, "masks")
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create output dir: %w", err)
		}
	}

	logging.Logger.Info("preparing dataset",
		zap.String("mode", p.opts.Mode),
		zap.Int("records", len(records)),
		zap.Int("with_masks", len(masked)),
		zap.Int("workers", p.opts.Workers))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.opts.Workers)
	for _, rec := range masked {
		if gctx.Err() != nil {
			break
		}
		rec := rec
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			if err := p.process(rec); err != nil {
				p.skipped.Add(1)
				logging.Logger.Warn("skipping record",
					zap.String("image", rec.ImageID),
					zap.String("label", rec.Label),
					zap.Error(err))
				return nil
			}
			done := p.processed.Add(1)
			logging.Logger.Debug("record ready", zap.Int64("done", done), zap.Int("total", len(masked)))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	report := &Report{
		Records:   len(records),
		Processed: int(p.processed.Load()),
		Skipped:   int(p.skipped.Load()),
		Empty:     int(p.empty.Load()),
		Tiles:     len(p.tiles),
		Seconds:   time.Since(startTime).Seconds(),
		Resources: system.Snapshot(),
	}

	sort.Slice(p.tiles, func(i, j int) bool { return p.tiles[i].File < p.tiles[j].File })
	manifest := &Manifest{Version: "1.0", Mode: p.opts.Mode, Tiles: p.tiles, Report: report}
	if err := WriteManifest(manifest, filepath.Join(p.opts.OutputDir, ManifestName)); err != nil {
		return nil, fmt.Errorf("write manifest: %w", err)
	}

	logging.Logger.Info("dataset ready",
		zap.Int("processed", report.Processed),
		zap.Int("skipped", report.Skipped),
		zap.Int("empty", report.Empty),
		zap.Int("tiles", report.Tiles),
		zap.Float64("seconds", report.Seconds),
		zap.Uint64("rss_bytes", report.Resources.ProcessRSS))
	return report, nil
}

var errUnknownClass = errors.New("unknown class")

func (p *Pipeline) process(rec dataset.Record) error {
	if !slices.Contains(p.opts.Classes, rec.Label) {
		return fmt.Errorf("%w %q", errUnknownClass, rec.Label)
	}

	img, err := source.Decode(filepath.Join(p.opts.ImagesDir, rec.ImageID))
	if err != nil {
		return err
	}
	b := img.Bounds()
	m, err := rle.Decode(rec.Encoding, b.Dx(), b.Dy())
	if err != nil {
		return err
	}

	if p.opts.Mode == ModeMasks {
		return p.writeScaled(rec, img, m)
	}
	return p.writeTiles(rec, img, m)
}

func (p *Pipeline) writeTiles(rec dataset.Record, img image.Image, m *mask.Mask) error {
	boxes, err := p.extractor.Extract(m)
	if err != nil {
		return err
	}

	written := 0
	for _, box := range boxes {
		crop := box.Rect().Add(img.Bounds().Min)
		if crop.Empty() {
			continue
		}

		dst := system.GetImage(p.opts.TileSize, p.opts.TileSize)
		draw.BiLinear.Scale(dst, dst.Bounds(), img, crop, draw.Src, nil)

		name := fmt.Sprintf("%05d.png", p.counter.Add(1)-1)
		rel := filepath.Join(rec.Label, name)
		err := source.Save(filepath.Join(p.opts.OutputDir, rel), dst)
		system.PutImage(dst)
		if err != nil {
			return err
		}

		p.addTile(Tile{
			File:  rel,
			Image: rec.ImageID,
			Label: rec.Label,
			Box:   &Rectangle{X: box.Min.X, Y: box.Min.Y, W: box.Dx(), H: box.Dy()},
		})
		written++
	}
	if written == 0 {
		p.empty.Add(1)
	}
	return nil
}

// Masks are always written as PNG.
func (p *Pipeline) writeScaled(rec dataset.Record, img image.Image, m *mask.Mask) error {
	b := img.Bounds()
	w := max(1, int(math.Round(float64(b.Dx())*p.opts.MaskScale)))
	h := max(1, int(math.Round(float64(b.Dy())*p.opts.MaskScale)))

	scaled := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.BiLinear.Scale(scaled, scaled.Bounds(), img, b, draw.Src, nil)

	scaledMask := image.NewGray(image.Rect(0, 0, w, h))
	draw.BiLinear.Scale(scaledMask, scaledMask.Bounds(), m.Gray(), m.Bounds(), draw.Src, nil)

	rel := filepath.Join(rec.Label, rec.ImageID)
	maskRel := filepath.Join(rec.Label, "masks", strings.TrimSuffix(rec.ImageID, filepath.Ext(rec.ImageID))+".png")

	if err := source.Save(filepath.Join(p.opts.OutputDir, rel), scaled); err != nil {
		return err
	}
	if err := source.Save(filepath.Join(p.opts.OutputDir, maskRel), scaledMask); err != nil {
		return err
	}

	p.addTile(Tile{File: rel, Image: rec.ImageID, Label: rec.Label, Mask: maskRel})
	return nil
}

func (p *Pipeline) addTile(t Tile) {
	p.mu.Lock()
	p.tiles = append(p.tiles, t)
	p.mu.Unlock()
}
