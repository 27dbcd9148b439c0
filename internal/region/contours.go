package region

import (
	"image"

	"github.com/ivlev/cloudtiles/internal/mask"
)

// Neighbour offsets in clockwise order (y grows downwards), starting east.
var neighbours = [8]image.Point{
	{1, 0}, {1, 1}, {0, 1}, {-1, 1},
	{-1, 0}, {-1, -1}, {0, -1}, {1, -1},
}

func direction(from, to image.Point) int {
	d := to.Sub(from)
	for i, n := range neighbours {
		if n == d {
			return i
		}
	}
	return -1
}

// labels: 0 background, 1 unvisited, ±n on border n. One pixel frame.
type labels struct {
	w, h int
	v    []int32
}

func newLabels(m *mask.Mask) *labels {
	l := &labels{w: m.Width + 2, h: m.Height + 2}
	l.v = make([]int32, l.w*l.h)
	for y := 0; y < m.Height; y++ {
		for x := 0; x < m.Width; x++ {
			if m.Pix[y*m.Width+x] != mask.Background {
				l.v[(y+1)*l.w+x+1] = 1
			}
		}
	}
	return l
}

// mask coordinates
func (l *labels) at(p image.Point) int32 { return l.v[(p.Y+1)*l.w+p.X+1] }

func (l *labels) set(p image.Point, v int32) { l.v[(p.Y+1)*l.w+p.X+1] = v }

// Suzuki & Abe, 8-connectivity.
func traceContours(m *mask.Mask) []Contour {
	l := newLabels(m)

	// Border 1 is the image frame, a hole border at the root.
	type border struct {
		hole   bool
		parent int32
	}
	borders := []border{{}, {hole: true, parent: 0}}
	var contours []Contour
	nbd := int32(1)

	for y := 0; y < m.Height; y++ {
		lnbd := int32(1)
		for x := 0; x < m.Width; x++ {
			p := image.Pt(x, y)
			v := l.at(p)
			if v == 0 {
				continue
			}

			var from image.Point
			start, hole := false, false
			switch {
			case v == 1 && l.at(image.Pt(x-1, y)) == 0:
				from, start = image.Pt(x-1, y), true
			case v >= 1 && l.at(image.Pt(x+1, y)) == 0:
				from, start, hole = image.Pt(x+1, y), true, true
				if v > 1 {
					lnbd = v
				}
			}

			if start {
				nbd++
				prev := borders[lnbd]
				parent := lnbd
				if hole == prev.hole {
					parent = prev.parent
				}
				borders = append(borders, border{hole: hole, parent: parent})

				points := l.follow(p, from, nbd)
				idx := int(parent) - 2 // contours[i] is border i+2
				if idx < -1 {
					idx = -1
				}
				contours = append(contours, Contour{
					Points: simplify(points),
					Hole:   hole,
					Parent: idx,
				})
			}

			if v := l.at(p); v != 1 {
				if v < 0 {
					v = -v
				}
				lnbd = v
			}
		}
	}
	return contours
}

func (l *labels) follow(start, from image.Point, nbd int32) []image.Point {
	d0 := direction(start, from)
	first := -1
	for k := 0; k < 8; k++ {
		d := (d0 + k) % 8
		if l.at(start.Add(neighbours[d])) != 0 {
			first = d
			break
		}
	}
	if first < 0 {
		l.set(start, -nbd)
		return []image.Point{start}
	}

	p1 := start.Add(neighbours[first])
	p2, p3 := p1, start
	var points []image.Point
	for {
		d := direction(p3, p2)
		eastZero := false
		var p4 image.Point
		for k := 1; k <= 8; k++ {
			dd := (d - k + 8) % 8
			q := p3.Add(neighbours[dd])
			if l.at(q) != 0 {
				p4 = q
				break
			}
			if dd == 0 {
				eastZero = true
			}
		}

		if eastZero {
			l.set(p3, -nbd)
		} else if l.at(p3) == 1 {
			l.set(p3, nbd)
		}
		points = append(points, p3)

		if p4 == start && p3 == p1 {
			return points
		}
		p2, p3 = p3, p4
	}
}

func simplify(points []image.Point) []image.Point {
	n := len(points)
	if n <= 2 {
		return points
	}
	out := make([]image.Point, 0, n/2+1)
	for i, p := range points {
		prev := points[(i+n-1)%n]
		next := points[(i+1)%n]
		if p.Sub(prev) != next.Sub(p) {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		out = append(out, points[0])
	}
	return out
}
