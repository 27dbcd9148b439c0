package nn

import "math"

// ExponentialDecay scales Initial by Rate once every Steps steps. Without
// Staircase the decay is continuous.
type ExponentialDecay struct {
	Initial   float64
	Rate      float64
	Steps     int
	Staircase bool
}

func (e ExponentialDecay) At(step int) float64 {
	if e.Steps <= 0 || step <= 0 {
		return e.Initial
	}
	p := float64(step) / float64(e.Steps)
	if e.Staircase {
		p = math.Floor(p)
	}
	return e.Initial * math.Pow(e.Rate, p)
}
