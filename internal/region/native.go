package region

import (
	"fmt"

	"github.com/ivlev/cloudtiles/internal/mask"
)

// NativeBackend implements Backend in pure Go.
type NativeBackend struct{}

func (NativeBackend) Open(m *mask.Mask, kernel int) (*mask.Mask, error) {
	if err := checkMask(m); err != nil {
		return nil, err
	}
	return open(m, kernel), nil
}

func (NativeBackend) FindContours(m *mask.Mask) ([]Contour, error) {
	if err := checkMask(m); err != nil {
		return nil, err
	}
	return traceContours(m), nil
}

func checkMask(m *mask.Mask) error {
	if m == nil {
		return fmt.Errorf("nil mask")
	}
	if len(m.Pix) != m.Width*m.Height {
		return fmt.Errorf("mask has %d pixels, want %dx%d", len(m.Pix), m.Width, m.Height)
	}
	return nil
}
