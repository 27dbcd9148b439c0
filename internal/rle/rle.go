// Package rle converts between run-length encoded strings and binary masks.
//
// An encoding is a whitespace separated list of "start length" pairs over the
// column-major flattened pixel index, with 1-based starts. Pixel (x, y) of a
// mask of height h has flat index x*h + y.
package rle

import (
	"strconv"
	"strings"

	"github.com/ivlev/cloudtiles/internal/mask"
)

// NoMask is the sentinel encoding for an image without a mask. Blank strings
// are treated the same way since that is how a missing CSV value reads.
const NoMask = "-1"

// IsNoMask reports whether s is the sentinel marker.
func IsNoMask(s string) bool {
	s = strings.TrimSpace(s)
	return s == "" || s == NoMask
}

// Decode builds a width×height mask from an encoding.
//
// Starts outside the mask are rejected with a *RangeError. Runs that extend
// past the last pixel are clamped. Overlapping runs are merged.
func Decode(encoding string, width, height int) (*mask.Mask, error) {
	if width <= 0 || height <= 0 {
		return nil, ErrDimensions
	}
	m := mask.New(width, height)
	if IsNoMask(encoding) {
		return m, nil
	}

	tokens := strings.Fields(encoding)
	if len(tokens)%2 != 0 {
		return nil, &DecodeError{Pos: -1, Err: ErrOddTokens}
	}

	values := make([]int, len(tokens))
	for i, tok := range tokens {
		v, err := strconv.Atoi(tok)
		if err != nil || v < 0 {
			return nil, &DecodeError{Pos: i, Token: tok, Err: ErrBadToken}
		}
		values[i] = v
	}

	size := width * height
	flat := make([]uint8, size)
	for i := 0; i < len(values); i += 2 {
		start, length := values[i]-1, values[i+1]
		if start < 0 || start >= size {
			return nil, &RangeError{Pair: i / 2, Start: values[i], Size: size}
		}
		end := start + length
		if end > size || end < start {
			end = size
		}
		for k := start; k < end; k++ {
			flat[k] = mask.Foreground
		}
	}

	// flat is column-major; transpose into the row-major mask.
	for k, v := range flat {
		if v == mask.Background {
			continue
		}
		x, y := k/height, k%height
		m.Pix[y*width+x] = v
	}
	return m, nil
}

// Encode is the inverse of Decode. An empty mask encodes to "".
func Encode(m *mask.Mask) string {
	var b strings.Builder
	size := m.Width * m.Height
	runStart := -1
	flush := func(end int) {
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(strconv.Itoa(runStart + 1))
		b.WriteByte(' ')
		b.WriteString(strconv.Itoa(end - runStart))
		runStart = -1
	}

	for k := 0; k < size; k++ {
		x, y := k/m.Height, k%m.Height
		on := m.Pix[y*m.Width+x] != mask.Background
		switch {
		case on && runStart < 0:
			runStart = k
		case !on && runStart >= 0:
			flush(k)
		}
	}
	if runStart >= 0 {
		flush(size)
	}
	return b.String()
}
