package region

import "fmt"

// NewBackend creates a backend based on the specified variant
func NewBackend(variant string) (Backend, error) {
	switch variant {
	case "native", "":
		return NativeBackend{}, nil
	case "gocv":
		return newGocvBackend()
	default:
		return nil, fmt.Errorf("unknown region backend: %s", variant)
	}
}
