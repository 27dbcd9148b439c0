// Package nn implements the small feed-forward classifiers trained on cloud
// tiles: a single layer perceptron and a ReLU multi layer network, both
// ending in linear logits scored with softmax cross entropy.
package nn

import (
	"errors"
	"fmt"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/ivlev/cloudtiles/internal/dataset"
)

const (
	VariantSLP = "SLP"
	VariantANN = "ANN"
	VariantCNN = "CNN"
)

var ErrNotImplemented = errors.New("not implemented")

// Dense is a fully connected layer. W is the row-major backing of the In×Out
// weight matrix.
type Dense struct {
	In, Out int
	W       []float64
	B       []float64
}

func newDense(in, out int) *Dense {
	return &Dense{In: in, Out: out, W: make([]float64, in*out), B: make([]float64, out)}
}

// weights shares W.
func (d *Dense) weights() *mat.Dense {
	return mat.NewDense(d.In, d.Out, d.W)
}

func (d *Dense) forward(x mat.Matrix) *mat.Dense {
	var out mat.Dense
	out.Mul(x, d.weights())
	out.Apply(func(_, j int, v float64) float64 { return v + d.B[j] }, &out)
	return &out
}

// Network applies its layers in order with ReLU between them.
type Network struct {
	Variant string
	Layers  []*Dense
}

// NewPerceptron returns a single dense layer with weights and biases drawn
// from N(0, 1).
func NewPerceptron(in, classes int, rng *rand.Rand) *Network {
	d := newDense(in, classes)
	for i := range d.W {
		d.W[i] = rng.NormFloat64()
	}
	for i := range d.B {
		d.B[i] = rng.NormFloat64()
	}
	return &Network{Variant: VariantSLP, Layers: []*Dense{d}}
}

// NewMLP returns a ReLU network with the given hidden widths. Weights come
// from a normal distribution with stddev 0.1 truncated at two deviations and
// biases start at 0.1.
func NewMLP(in int, hidden []int, classes int, rng *rand.Rand) *Network {
	net := &Network{Variant: VariantANN}
	last := in
	for _, width := range append(append([]int{}, hidden...), classes) {
		d := newDense(last, width)
		for i := range d.W {
			d.W[i] = truncatedNormal(rng, 0.1)
		}
		for i := range d.B {
			d.B[i] = 0.1
		}
		net.Layers = append(net.Layers, d)
		last = width
	}
	return net
}

func truncatedNormal(rng *rand.Rand, stddev float64) float64 {
	for {
		z := rng.NormFloat64()
		if math.Abs(z) <= 2 {
			return z * stddev
		}
	}
}

// New builds a network by variant name.
func New(variant string, in, classes int, hidden []int, rng *rand.Rand) (*Network, error) {
	if in <= 0 || classes <= 0 {
		return nil, fmt.Errorf("invalid network shape %d -> %d", in, classes)
	}
	switch variant {
	case VariantSLP:
		return NewPerceptron(in, classes, rng), nil
	case VariantANN:
		for _, w := range hidden {
			if w <= 0 {
				return nil, fmt.Errorf("invalid hidden width %d", w)
			}
		}
		return NewMLP(in, hidden, classes, rng), nil
	case VariantCNN:
		return nil, fmt.Errorf("model %s: %w", variant, ErrNotImplemented)
	default:
		return nil, fmt.Errorf("unknown model %q, use one of %s, %s, %s", variant, VariantSLP, VariantANN, VariantCNN)
	}
}

// Inputs is the expected sample length.
func (n *Network) Inputs() int { return n.Layers[0].In }

// Classes is the number of logits.
func (n *Network) Classes() int { return n.Layers[len(n.Layers)-1].Out }

func toMatrix(rows [][]float32, cols int) *mat.Dense {
	data := make([]float64, 0, len(rows)*cols)
	for _, r := range rows {
		for _, v := range r {
			data = append(data, float64(v))
		}
	}
	return mat.NewDense(len(rows), cols, data)
}

// input, then post-ReLU hidden outputs, then logits
func (n *Network) activations(x *mat.Dense) []*mat.Dense {
	acts := make([]*mat.Dense, len(n.Layers)+1)
	acts[0] = x
	for l, d := range n.Layers {
		out := d.forward(acts[l])
		if l < len(n.Layers)-1 {
			out.Apply(func(_, _ int, v float64) float64 { return math.Max(v, 0) }, out)
		}
		acts[l+1] = out
	}
	return acts
}

// Logits runs the network on one sample.
func (n *Network) Logits(x []float32) []float64 {
	acts := n.activations(toMatrix([][]float32{x}, n.Inputs()))
	return mat.Row(nil, 0, acts[len(acts)-1])
}

// Predict returns the index of the largest logit.
func (n *Network) Predict(x []float32) int {
	return argmax(n.Logits(x))
}

// Evaluate returns the accuracy and mean softmax cross entropy over b.
func (n *Network) Evaluate(b dataset.Batch) (accuracy, loss float64) {
	if b.Len() == 0 {
		return 0, 0
	}
	acts := n.activations(toMatrix(b.Images, n.Inputs()))
	logits := acts[len(acts)-1]

	correct := 0
	for i, label := range b.Labels {
		row := logits.RawRowView(i)
		loss += crossEntropy(softmax(row), label)
		if argmax(row) == labelClass(label) {
			correct++
		}
	}
	count := float64(b.Len())
	return float64(correct) / count, loss / count
}

// Step runs one gradient descent update on b with the gradients averaged over
// the batch. A positive l1 adds l1*|w| per weight to the objective. It
// returns the batch loss before the update.
func (n *Network) Step(b dataset.Batch, lr, l1 float64) float64 {
	if b.Len() == 0 {
		return 0
	}
	acts := n.activations(toMatrix(b.Images, n.Inputs()))
	logits := acts[len(acts)-1]

	var loss float64
	delta := mat.NewDense(b.Len(), n.Classes(), nil)
	for i, label := range b.Labels {
		probs := softmax(logits.RawRowView(i))
		loss += crossEntropy(probs, label)
		for j, p := range probs {
			delta.Set(i, j, p-float64(label[j]))
		}
	}

	scale := lr / float64(b.Len())
	penalty := lr * l1
	for l := len(n.Layers) - 1; l >= 0; l-- {
		d := n.Layers[l]
		w := d.weights()

		var gradW mat.Dense
		gradW.Mul(acts[l].T(), delta)
		gradB := make([]float64, d.Out)
		for j := range gradB {
			gradB[j] = mat.Sum(delta.ColView(j))
		}

		var prev *mat.Dense
		if l > 0 {
			in := acts[l]
			prev = new(mat.Dense)
			prev.Mul(delta, w.T())
			prev.Apply(func(i, j int, v float64) float64 {
				if in.At(i, j) <= 0 {
					return 0
				}
				return v
			}, prev)
		}

		w.Apply(func(i, j int, v float64) float64 {
			v -= scale * gradW.At(i, j)
			if penalty != 0 {
				v -= penalty * sign(v)
			}
			return v
		}, w)
		for j, g := range gradB {
			d.B[j] -= scale * g
		}
		delta = prev
	}
	return loss / float64(b.Len())
}

func softmax(logits []float64) []float64 {
	lse := floats.LogSumExp(logits)
	out := make([]float64, len(logits))
	for i, v := range logits {
		out[i] = math.Exp(v - lse)
	}
	return out
}

func crossEntropy(probs []float64, label []float32) float64 {
	var loss float64
	for i, y := range label {
		if y == 0 {
			continue
		}
		loss -= float64(y) * math.Log(math.Max(probs[i], 1e-12))
	}
	return loss
}

func argmax(v []float64) int {
	return floats.MaxIdx(v)
}

func labelClass(label []float32) int {
	best := 0
	for i := range label {
		if label[i] > label[best] {
			best = i
		}
	}
	return best
}

func sign(v float64) float64 {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	}
	return 0
}
