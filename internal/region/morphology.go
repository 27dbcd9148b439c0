package region

import "github.com/ivlev/cloudtiles/internal/mask"

// zero padded summed-area table
func integral(m *mask.Mask) []int32 {
	w := m.Width + 1
	sum := make([]int32, w*(m.Height+1))
	for y := 0; y < m.Height; y++ {
		var row int32
		for x := 0; x < m.Width; x++ {
			if m.Pix[y*m.Width+x] != mask.Background {
				row++
			}
			sum[(y+1)*w+x+1] = sum[y*w+x+1] + row
		}
	}
	return sum
}

// window is anchored at k/2; cells outside the mask are not counted.
func window(m *mask.Mask, k int, keep func(count, area int32) bool) *mask.Mask {
	out := mask.New(m.Width, m.Height)
	if m.Width == 0 || m.Height == 0 {
		return out
	}
	sum := integral(m)
	w := m.Width + 1
	anchor := k / 2

	for y := 0; y < m.Height; y++ {
		y0 := max(0, y-anchor)
		y1 := min(m.Height-1, y+k-1-anchor)
		for x := 0; x < m.Width; x++ {
			x0 := max(0, x-anchor)
			x1 := min(m.Width-1, x+k-1-anchor)
			count := sum[(y1+1)*w+x1+1] - sum[y0*w+x1+1] - sum[(y1+1)*w+x0] + sum[y0*w+x0]
			area := int32((x1 - x0 + 1) * (y1 - y0 + 1))
			if keep(count, area) {
				out.Pix[y*m.Width+x] = mask.Foreground
			}
		}
	}
	return out
}

func erode(m *mask.Mask, k int) *mask.Mask {
	return window(m, k, func(count, area int32) bool { return count == area })
}

func dilate(m *mask.Mask, k int) *mask.Mask {
	return window(m, k, func(count, _ int32) bool { return count > 0 })
}

func open(m *mask.Mask, k int) *mask.Mask {
	if k <= 1 {
		return &mask.Mask{Width: m.Width, Height: m.Height, Pix: append([]uint8(nil), m.Pix...)}
	}
	return dilate(erode(m, k), k)
}
