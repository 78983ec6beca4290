// Package generator talks to the hosted language models that write online
// adventures.
package generator

import (
	"context"
	"errors"
)

// ErrUnavailable covers every way a generation request can fail: missing
// client, transport, auth, quota, or an empty answer.
var ErrUnavailable = errors.New("text generation unavailable")

// Options tune a single generation request.
type Options struct {
	Model       string
	MaxTokens   int
	Temperature float32
}

// TextGenerator produces raw prose for a prompt.
type TextGenerator interface {
	Generate(ctx context.Context, prompt string, opts Options) (string, error)
}
