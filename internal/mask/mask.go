package mask

import (
	"bytes"
	"image"
)

const (
	// Background and Foreground are the only values a Mask pixel takes.
	Background uint8 = 0
	Foreground uint8 = 255
)

// Mask is a binary image with the same pixel grid as its source image.
// Pix is row-major: the pixel at (x, y) is Pix[y*Width+x].
type Mask struct {
	Width  int
	Height int
	Pix    []uint8
}

// New returns an all-background mask of the given size.
func New(width, height int) *Mask {
	return &Mask{
		Width:  width,
		Height: height,
		Pix:    make([]uint8, width*height),
	}
}

// Bounds returns the pixel rectangle covered by the mask.
func (m *Mask) Bounds() image.Rectangle {
	return image.Rect(0, 0, m.Width, m.Height)
}

// At reports whether (x, y) is foreground. Points outside the mask are background.
func (m *Mask) At(x, y int) bool {
	if x < 0 || y < 0 || x >= m.Width || y >= m.Height {
		return false
	}
	return m.Pix[y*m.Width+x] != Background
}

// Set marks (x, y) as foreground or background. Points outside the mask are ignored.
func (m *Mask) Set(x, y int, on bool) {
	if x < 0 || y < 0 || x >= m.Width || y >= m.Height {
		return
	}
	if on {
		m.Pix[y*m.Width+x] = Foreground
	} else {
		m.Pix[y*m.Width+x] = Background
	}
}

// Fill marks every pixel of r (clipped to the mask) as foreground.
func (m *Mask) Fill(r image.Rectangle) {
	r = r.Intersect(m.Bounds())
	for y := r.Min.Y; y < r.Max.Y; y++ {
		row := m.Pix[y*m.Width : (y+1)*m.Width]
		for x := r.Min.X; x < r.Max.X; x++ {
			row[x] = Foreground
		}
	}
}

// Count returns the number of foreground pixels.
func (m *Mask) Count() int {
	n := 0
	for _, v := range m.Pix {
		if v != Background {
			n++
		}
	}
	return n
}

// Gray returns a grayscale view of the mask. The view shares Pix with m.
func (m *Mask) Gray() *image.Gray {
	return &image.Gray{
		Pix:    m.Pix,
		Stride: m.Width,
		Rect:   m.Bounds(),
	}
}

// FromGray binarizes img: pixels brighter than threshold become foreground.
func FromGray(img *image.Gray, threshold uint8) *Mask {
	b := img.Bounds()
	m := New(b.Dx(), b.Dy())
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if img.GrayAt(x, y).Y > threshold {
				m.Pix[(y-b.Min.Y)*m.Width+(x-b.Min.X)] = Foreground
			}
		}
	}
	return m
}

// Equal reports whether a and b have the same size and pixels.
func Equal(a, b *Mask) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Width == b.Width && a.Height == b.Height && bytes.Equal(a.Pix, b.Pix)
}
