//go:build gocv

package region

import (
	"fmt"
	"image"

	"gocv.io/x/gocv"

	"github.com/ivlev/cloudtiles/internal/mask"
)

// GocvBackend implements Backend with OpenCV.
type GocvBackend struct{}

func newGocvBackend() (Backend, error) {
	return GocvBackend{}, nil
}

func toMat(m *mask.Mask) (gocv.Mat, error) {
	if err := checkMask(m); err != nil {
		return gocv.Mat{}, err
	}
	return gocv.NewMatFromBytes(m.Height, m.Width, gocv.MatTypeCV8U, m.Pix)
}

func (GocvBackend) Open(m *mask.Mask, kernel int) (*mask.Mask, error) {
	src, err := toMat(m)
	if err != nil {
		return nil, err
	}
	defer src.Close()

	element := gocv.GetStructuringElement(gocv.MorphRect, image.Point{X: kernel, Y: kernel})
	defer element.Close()

	opened := gocv.NewMat()
	defer opened.Close()
	gocv.MorphologyEx(src, &opened, gocv.MorphOpen, element)

	pix := opened.ToBytes()
	if len(pix) != m.Width*m.Height {
		return nil, fmt.Errorf("opened mat has %d bytes, want %d", len(pix), m.Width*m.Height)
	}
	return &mask.Mask{Width: m.Width, Height: m.Height, Pix: pix}, nil
}

func (GocvBackend) FindContours(m *mask.Mask) ([]Contour, error) {
	src, err := toMat(m)
	if err != nil {
		return nil, err
	}
	defer src.Close()

	hierarchy := gocv.NewMat()
	defer hierarchy.Close()

	found := gocv.FindContoursWithParams(src, &hierarchy, gocv.RetrievalTree, gocv.ChainApproxSimple)
	defer found.Close()

	contours := make([]Contour, found.Size())
	for i := range contours {
		contours[i].Points = found.At(i).ToPoints()
		contours[i].Parent = -1
		if !hierarchy.Empty() {
			// [next, previous, first child, parent]
			contours[i].Parent = int(hierarchy.GetVeciAt(0, i)[3])
		}
	}
	// Nesting depth alternates between outer and hole borders.
	for i := range contours {
		depth := 0
		for p := contours[i].Parent; p >= 0 && depth <= len(contours); p = contours[p].Parent {
			depth++
		}
		contours[i].Hole = depth%2 == 1
	}
	return contours, nil
}
