package grader

import (
	"context"
	"errors"
	"math"
	"net/http"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// openAIBackend talks to any OpenAI-compatible chat completions endpoint,
// Gemini's compatibility layer included.
type openAIBackend struct {
	client *openai.Client
	model  string
}

func newOpenAIBackend(cfg Config) *openAIBackend {
	oc := openai.DefaultConfig(cfg.APIKey)
	oc.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.HTTPClient != nil {
		oc.HTTPClient = cfg.HTTPClient
	}
	return &openAIBackend{
		client: openai.NewClientWithConfig(oc),
		model:  cfg.Model,
	}
}

func (b *openAIBackend) complete(ctx context.Context, system, user string) (string, error) {
	resp, err := b.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: b.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
		// zero is dropped by omitempty
		Temperature: math.SmallestNonzeroFloat32,
		MaxTokens:   maxOutputTokens,
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("completion has no choices")
	}
	return resp.Choices[0].Message.Content, nil
}

func (b *openAIBackend) rateLimited(err error) bool {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode == http.StatusTooManyRequests
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode == http.StatusTooManyRequests
	}
	// non-JSON error bodies only carry the status in the message
	return strings.Contains(err.Error(), "status code: 429")
}

func (b *openAIBackend) close() error {
	return nil
}
