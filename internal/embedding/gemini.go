package embedding

import (
	"context"
	"fmt"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// Gemini embeds text with a Gemini embedding model.
type Gemini struct {
	client *genai.Client
	model  string
}

// NewGemini creates a client authenticated with apiKey.
func NewGemini(ctx context.Context, apiKey, model string) (*Gemini, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("in internal/embedding/gemini.go/NewGemini(): error while `genai.NewClient()` calling: %w", err)
	}

	return &Gemini{
		client: client,
		model:  model,
	}, nil
}

func (g *Gemini) Embed(ctx context.Context, text string) ([]float32, error) {
	res, err := g.client.EmbeddingModel(g.model).EmbedContent(ctx, genai.Text(text))
	if err != nil {
		return nil, fmt.Errorf("gemini embedding request failed: %w", err)
	}
	if res.Embedding == nil || len(res.Embedding.Values) == 0 {
		return nil, ErrEmptyEmbedding
	}

	return res.Embedding.Values, nil
}

func (g *Gemini) Close() error {
	return g.client.Close()
}
