// Package region turns binary masks into bounding boxes of their large
// connected regions.
//
// The mask is first cleaned with a morphological opening, then the borders of
// its regions are traced (outer borders and hole borders alike), and each
// border's extent becomes a Box. Boxes smaller than the minimum size along
// either axis are dropped.
package region

import (
	"fmt"
	"image"

	"github.com/ivlev/cloudtiles/internal/mask"
)

const (
	DefaultKernelSize = 10
	DefaultMinSize    = 256
)

// Box is the extent of a contour: Min and Max are its smallest and largest
// point coordinates. As a crop rectangle it covers [Min, Max).
type Box struct {
	Min image.Point
	Max image.Point
}

func (b Box) Dx() int { return b.Max.X - b.Min.X }
func (b Box) Dy() int { return b.Max.Y - b.Min.Y }

// Rect returns the crop rectangle of the box.
func (b Box) Rect() image.Rectangle {
	return image.Rectangle{Min: b.Min, Max: b.Max}
}

func (b Box) String() string {
	return fmt.Sprintf("[%v %v]", b.Min, b.Max)
}

// Contour is a traced region border.
type Contour struct {
	Points []image.Point
	Hole   bool
	Parent int // index of the enclosing contour, -1 at the top level
}

// Bounds returns the box spanned by the contour points.
func (c Contour) Bounds() Box {
	if len(c.Points) == 0 {
		return Box{}
	}
	b := Box{Min: c.Points[0], Max: c.Points[0]}
	for _, p := range c.Points[1:] {
		if p.X < b.Min.X {
			b.Min.X = p.X
		}
		if p.Y < b.Min.Y {
			b.Min.Y = p.Y
		}
		if p.X > b.Max.X {
			b.Max.X = p.X
		}
		if p.Y > b.Max.Y {
			b.Max.Y = p.Y
		}
	}
	return b
}

// Backend supplies the image-processing primitives the extractor needs.
type Backend interface {
	// Open applies erosion followed by dilation with a kernel×kernel square.
	Open(m *mask.Mask, kernel int) (*mask.Mask, error)
	// FindContours traces every region border of m.
	FindContours(m *mask.Mask) ([]Contour, error)
}

// Extractor finds bounding boxes of large regions in a mask.
type Extractor struct {
	Backend    Backend
	KernelSize int // opening kernel side, 0 or less disables the opening
	MinSize    int // minimum box extent along both axes
}

// NewExtractor returns an extractor with the native backend and default sizes.
func NewExtractor() *Extractor {
	return &Extractor{
		Backend:    NativeBackend{},
		KernelSize: DefaultKernelSize,
		MinSize:    DefaultMinSize,
	}
}

// Extract returns one box per surviving contour. The order of the boxes is
// not meaningful.
func (e *Extractor) Extract(m *mask.Mask) ([]Box, error) {
	backend := e.Backend
	if backend == nil {
		backend = NativeBackend{}
	}

	cleaned := m
	if e.KernelSize > 0 {
		var err error
		cleaned, err = backend.Open(m, e.KernelSize)
		if err != nil {
			return nil, fmt.Errorf("opening: %w", err)
		}
	}

	contours, err := backend.FindContours(cleaned)
	if err != nil {
		return nil, fmt.Errorf("find contours: %w", err)
	}

	boxes := []Box{}
	for _, c := range contours {
		b := c.Bounds()
		if b.Dx() < e.MinSize || b.Dy() < e.MinSize {
			continue
		}
		boxes = append(boxes, b)
	}
	return boxes, nil
}

// ExtractBoxes runs the native pipeline with the default kernel size.
func ExtractBoxes(m *mask.Mask, minSize int) ([]Box, error) {
	e := NewExtractor()
	e.MinSize = minSize
	return e.Extract(m)
}
