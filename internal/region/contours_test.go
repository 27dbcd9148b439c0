package region

import (
	"image"
	"testing"

	"github.com/ivlev/cloudtiles/internal/mask"
)

func TestTraceRectangleCorners(t *testing.T) {
	m := mask.New(10, 10)
	m.Fill(image.Rect(2, 2, 7, 6))

	contours := traceContours(m)
	if len(contours) != 1 {
		t.Fatalf("expected 1 contour, got %d", len(contours))
	}
	c := contours[0]
	if c.Hole || c.Parent != -1 {
		t.Errorf("outer border reported as hole=%v parent=%d", c.Hole, c.Parent)
	}

	want := map[image.Point]bool{
		{2, 2}: true, {6, 2}: true, {6, 5}: true, {2, 5}: true,
	}
	if len(c.Points) != len(want) {
		t.Fatalf("expected 4 corner points, got %v", c.Points)
	}
	for _, p := range c.Points {
		if !want[p] {
			t.Errorf("unexpected point %v in %v", p, c.Points)
		}
	}
}

func TestTraceSinglePixel(t *testing.T) {
	m := mask.New(5, 5)
	m.Set(4, 4, true)

	contours := traceContours(m)
	if len(contours) != 1 || len(contours[0].Points) != 1 || contours[0].Points[0] != image.Pt(4, 4) {
		t.Fatalf("unexpected contours %+v", contours)
	}
	if b := contours[0].Bounds(); b.Dx() != 0 || b.Dy() != 0 {
		t.Errorf("single pixel bounds %v", b)
	}
}

func TestTraceHierarchy(t *testing.T) {
	m := mask.New(20, 20)
	m.Fill(image.Rect(2, 2, 18, 18))
	for y := 6; y < 14; y++ {
		for x := 6; x < 14; x++ {
			m.Set(x, y, false)
		}
	}
	m.Fill(image.Rect(9, 9, 11, 11)) // island inside the hole

	contours := traceContours(m)
	if len(contours) != 3 {
		t.Fatalf("expected outer, hole and island borders, got %d", len(contours))
	}

	outer, hole, island := contours[0], contours[1], contours[2]
	if outer.Hole || outer.Parent != -1 {
		t.Errorf("outer: hole=%v parent=%d", outer.Hole, outer.Parent)
	}
	if !hole.Hole || hole.Parent != 0 {
		t.Errorf("hole: hole=%v parent=%d", hole.Hole, hole.Parent)
	}
	if island.Hole || island.Parent != 1 {
		t.Errorf("island: hole=%v parent=%d", island.Hole, island.Parent)
	}

	if b := hole.Bounds(); b != (Box{Min: image.Pt(5, 5), Max: image.Pt(14, 14)}) {
		t.Errorf("hole bounds %v, want [(5,5) (14,14)]", b)
	}
	if b := island.Bounds(); b != (Box{Min: image.Pt(9, 9), Max: image.Pt(10, 10)}) {
		t.Errorf("island bounds %v", b)
	}
}

func TestTraceSeparateRegions(t *testing.T) {
	m := mask.New(30, 10)
	m.Fill(image.Rect(1, 1, 5, 5))
	m.Fill(image.Rect(10, 2, 20, 8))
	m.Set(25, 9, true)
	m.Set(26, 8, true) // diagonal neighbour, same region

	contours := traceContours(m)
	if len(contours) != 3 {
		t.Fatalf("expected 3 regions, got %d", len(contours))
	}
	for i, c := range contours {
		if c.Hole || c.Parent != -1 {
			t.Errorf("contour %d: hole=%v parent=%d", i, c.Hole, c.Parent)
		}
	}
}

func TestErodeDilateSquare(t *testing.T) {
	m := mask.New(40, 40)
	m.Fill(image.Rect(10, 10, 30, 30))

	eroded := erode(m, 10)
	for _, tc := range []struct {
		p  image.Point
		on bool
	}{
		{image.Pt(15, 15), true}, {image.Pt(25, 25), true},
		{image.Pt(14, 20), false}, {image.Pt(26, 20), false},
	} {
		if eroded.At(tc.p.X, tc.p.Y) != tc.on {
			t.Errorf("eroded %v = %v, want %v", tc.p, !tc.on, tc.on)
		}
	}

	opened := open(m, 10)
	if got, want := opened.Count(), 20*20; got != want {
		t.Errorf("opened square has %d pixels, want %d", got, want)
	}
	if !opened.At(11, 11) || opened.At(10, 10) || !opened.At(30, 30) {
		t.Errorf("opened square shifted unexpectedly")
	}
}

func TestErodeKeepsEdgeRegions(t *testing.T) {
	m := mask.New(30, 30)
	m.Fill(image.Rect(0, 0, 15, 30))

	opened := open(m, 10)
	if !opened.At(0, 0) || !opened.At(0, 29) {
		t.Error("pixels outside the image must not erode edge regions")
	}
}

func TestSimplifyKeepsExtent(t *testing.T) {
	line := []image.Point{{0, 0}, {1, 0}, {2, 0}, {1, 0}}
	got := simplify(line)
	if len(got) != 2 {
		t.Fatalf("simplify(%v) = %v", line, got)
	}
	c := Contour{Points: got}
	if b := c.Bounds(); b != (Box{Min: image.Pt(0, 0), Max: image.Pt(2, 0)}) {
		t.Errorf("bounds %v", b)
	}
}
