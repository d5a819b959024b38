package embedding

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
)

type embeddingsRequest struct {
	Input string `json:"input"`
	Model string `json:"model"`
}

type embeddingsResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
}

// HTTP embeds text with an OpenAI-compatible POST {baseURL}/embeddings endpoint.
type HTTP struct {
	client *resty.Client
	model  string
}

// NewHTTP returns a client of the endpoint. An empty apiKey sends no Authorization header.
func NewHTTP(baseURL, apiKey, model string) *HTTP {
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(30 * time.Second).
		SetHeader("Content-Type", "application/json")
	if apiKey != "" {
		client.SetAuthToken(apiKey)
	}

	return &HTTP{
		client: client,
		model:  model,
	}
}

func (h *HTTP) Embed(ctx context.Context, text string) ([]float32, error) {
	result := &embeddingsResponse{}
	response, err := h.client.R().
		SetContext(ctx).
		SetBody(embeddingsRequest{Input: text, Model: h.model}).
		SetResult(result).
		Post("/embeddings")
	if err != nil {
		return nil, fmt.Errorf("embedding request failed: %w", err)
	}
	if response.IsError() {
		return nil, fmt.Errorf("embedding request failed with status %d: %s", response.StatusCode(), response.String())
	}
	if len(result.Data) == 0 || len(result.Data[0].Embedding) == 0 {
		return nil, ErrEmptyEmbedding
	}

	return result.Data[0].Embedding, nil
}

func (h *HTTP) Close() error {
	return nil
}
