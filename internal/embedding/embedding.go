// Package embedding turns text into fixed-length vectors using an external
// provider: Google Gemini or any OpenAI-compatible /embeddings endpoint.
package embedding

import (
	"context"
	"errors"
)

// ErrEmptyEmbedding is returned when a provider answers without a vector.
var ErrEmptyEmbedding = errors.New("provider returned an empty embedding")

// Embedder computes the embedding of a text.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Close() error
}

// Func adapts an ordinary function to the Embedder interface.
type Func func(ctx context.Context, text string) ([]float32, error)

func (f Func) Embed(ctx context.Context, text string) ([]float32, error) {
	return f(ctx, text)
}

func (f Func) Close() error {
	return nil
}
