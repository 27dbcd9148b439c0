//go:build !gocv

package region

import "fmt"

func newGocvBackend() (Backend, error) {
	return nil, fmt.Errorf("gocv backend not available: rebuild with -tags gocv")
}
