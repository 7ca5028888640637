/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package room

import (
	"crypto/rand"
	"fmt"
	"io"
)

const (
	CodeLength   = 8
	CodeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
)

// NewCode returns a random room code drawn from crypto/rand.
func NewCode() (string, error) {
	return NewCodeFrom(rand.Reader)
}

// NewCodeFrom maps CodeLength bytes from r onto CodeAlphabet with byte % 36.
// The slight bias toward the first 4 symbols is accepted; codes only need to
// be infeasible to enumerate. A short read is an error; there is no fallback.
func NewCodeFrom(r io.Reader) (string, error) {
	buf := make([]byte, CodeLength)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", fmt.Errorf("%w: %w", ErrEntropy, err)
	}

	out := make([]byte, CodeLength)
	for i := range out {
		out[i] = CodeAlphabet[int(buf[i])%len(CodeAlphabet)]
	}

	return string(out), nil
}
