package rle

import (
	"errors"
	"fmt"
)

var (
	ErrOddTokens  = errors.New("odd number of tokens")
	ErrBadToken   = errors.New("token is not a non-negative integer")
	ErrDimensions = errors.New("mask dimensions must be positive")
)

// DecodeError reports a malformed encoding.
type DecodeError struct {
	Pos   int    // token index, -1 when the error concerns the whole string
	Token string // offending token, empty when Pos is -1
	Err   error
}

func (e *DecodeError) Error() string {
	if e.Pos < 0 {
		return fmt.Sprintf("rle: %v", e.Err)
	}
	return fmt.Sprintf("rle: token %d (%q): %v", e.Pos, e.Token, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// RangeError reports a run whose start lies outside the mask.
type RangeError struct {
	Pair  int // pair index within the encoding
	Start int // 1-based start as written in the encoding
	Size  int // width*height
}

func (e *RangeError) Error() string {
	return fmt.Sprintf("rle: pair %d: start %d outside [1, %d]", e.Pair, e.Start, e.Size)
}
