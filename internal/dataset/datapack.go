package dataset

import (
	"fmt"
	"math/rand"
)

// Datapack holds flattened samples and their one-hot labels.
type Datapack struct {
	Images [][]float32
	Labels [][]float32
}

// Batch is a view into a Datapack.
type Batch struct {
	Images [][]float32
	Labels [][]float32
}

func (b Batch) Len() int { return len(b.Images) }

// Cursor is a read position into a Datapack. The zero value starts at the
// first sample.
type Cursor int

func (d *Datapack) Len() int { return len(d.Images) }

// Validate checks that images and labels pair up.
func (d *Datapack) Validate() error {
	if len(d.Images) != len(d.Labels) {
		return fmt.Errorf("datapack has %d images and %d labels", len(d.Images), len(d.Labels))
	}
	return nil
}

// All returns every sample as one batch.
func (d *Datapack) All() Batch {
	return Batch{Images: d.Images, Labels: d.Labels}
}

// Next returns n samples starting at c and the cursor after them. A batch
// that would run past the end starts over from the first sample instead. A
// negative n returns the whole set and a reset cursor. To peek without
// advancing, drop the returned cursor.
func (d *Datapack) Next(c Cursor, n int) (Batch, Cursor) {
	if n < 0 || n >= d.Len() {
		return d.All(), 0
	}
	pos := int(c)
	if pos < 0 || pos+n > d.Len() {
		pos = 0
	}
	end := pos + n
	return Batch{Images: d.Images[pos:end], Labels: d.Labels[pos:end]}, Cursor(end)
}

// Split shuffles d and cuts it into train and test packs, with int(n*ratio)
// samples in train.
func Split(d *Datapack, ratio float64, rng *rand.Rand) (train, test *Datapack) {
	n := d.Len()
	idx := rng.Perm(n)

	images := make([][]float32, n)
	labels := make([][]float32, n)
	for i, j := range idx {
		images[i] = d.Images[j]
		labels[i] = d.Labels[j]
	}

	split := int(float64(n) * ratio)
	if split < 0 {
		split = 0
	}
	if split > n {
		split = n
	}
	train = &Datapack{Images: images[:split], Labels: labels[:split]}
	test = &Datapack{Images: images[split:], Labels: labels[split:]}
	return train, test
}

// OneHot returns a label vector of the given size with position id set.
func OneHot(id, size int) []float32 {
	v := make([]float32, size)
	v[id] = 1
	return v
}
