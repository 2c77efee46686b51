package grader

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

const (
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"

	DefaultBaseURL      = "https://generativelanguage.googleapis.com/v1beta/openai"
	DefaultModel        = "gemini-2.5-flash"
	DefaultRetryBackoff = 1500 * time.Millisecond
	DefaultTimeout      = 10 * time.Second

	maxOutputTokens = 5
)

const systemPrompt = `You are a lenient quiz answer validator. Determine if the user's answer conveys the same meaning as the correct answer. Be GENEROUS and accept equivalent answers including: numbers vs words ("6" = "six"), different order ("31 december" = "December 31st"), different date formats, abbreviations, minor typos, synonyms, partial matches that capture the key idea, different casing, and any other reasonable equivalence. When in doubt, accept the answer. Use the context/explanation to understand what the question is really asking. Respond with ONLY "true" or "false". Nothing else.`

// Config selects and tunes the grading model. BaseURL is only read by the
// openai provider and Endpoint only by the gemini provider.
type Config struct {
	Provider     string
	BaseURL      string
	Endpoint     string
	Model        string
	APIKey       string
	RetryBackoff time.Duration
	Timeout      time.Duration
	HTTPClient   *http.Client
}

func (c Config) withDefaults() Config {
	if c.Provider == "" {
		c.Provider = ProviderOpenAI
	}
	if c.Provider == ProviderOpenAI && c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	if c.Model == "" {
		c.Model = DefaultModel
	}
	if c.RetryBackoff <= 0 {
		c.RetryBackoff = DefaultRetryBackoff
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	return c
}

type backend interface {
	complete(ctx context.Context, system, user string) (string, error)
	rateLimited(err error) bool
	close() error
}

// Client asks a language model whether a typed answer matches the expected
// one. It never returns errors: every failure grades the answer as wrong.
type Client struct {
	backend  backend
	provider string
	backoff  time.Duration
	timeout  time.Duration
}

// New builds a client for cfg. A missing API key yields a client that
// rejects every answer.
func New(ctx context.Context, cfg Config) (*Client, error) {
	cfg = cfg.withDefaults()
	c := &Client{provider: cfg.Provider, backoff: cfg.RetryBackoff, timeout: cfg.Timeout}
	if cfg.APIKey == "" {
		log.Warn().Str("provider", cfg.Provider).Msg("grader api key not set, semantic grading disabled")
		return c, nil
	}

	switch cfg.Provider {
	case ProviderOpenAI:
		c.backend = newOpenAIBackend(cfg)
	case ProviderGemini:
		b, err := newGeminiBackend(ctx, cfg)
		if err != nil {
			return nil, err
		}
		c.backend = b
	default:
		return nil, fmt.Errorf("unknown grader provider %q", cfg.Provider)
	}
	return c, nil
}

// Enabled reports whether the client can reach a model.
func (c *Client) Enabled() bool {
	return c != nil && c.backend != nil
}

// CheckEquivalence reports whether userAnswer means the same as correctAnswer.
func (c *Client) CheckEquivalence(ctx context.Context, userAnswer, correctAnswer, explanation string) bool {
	if !c.Enabled() {
		log.Error().Msg("grader not configured, answer rejected")
		return false
	}

	prompt := buildPrompt(userAnswer, correctAnswer, explanation)
	content, err := c.ask(ctx, prompt)
	if err != nil && c.backend.rateLimited(err) {
		log.Warn().Str("provider", c.provider).Dur("backoff", c.backoff).Msg("grader rate limited, retrying once")
		timer := time.NewTimer(c.backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			log.Error().Err(ctx.Err()).Msg("grading canceled during backoff")
			return false
		case <-timer.C:
		}
		content, err = c.ask(ctx, prompt)
	}
	if err != nil {
		log.Error().Err(err).Str("provider", c.provider).Msg("grader request failed")
		return false
	}
	if strings.TrimSpace(content) == "" {
		log.Error().Str("provider", c.provider).Msg("grader returned empty content")
		return false
	}
	return Verdict(content)
}

func (c *Client) ask(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	return c.backend.complete(ctx, systemPrompt, prompt)
}

// Close releases the backend connection, if any.
func (c *Client) Close() error {
	if !c.Enabled() {
		return nil
	}
	return c.backend.close()
}

// Verdict accepts only a bare "true", ignoring case and surrounding space.
func Verdict(content string) bool {
	return strings.ToLower(strings.TrimSpace(content)) == "true"
}

func buildPrompt(userAnswer, correctAnswer, explanation string) string {
	prompt := fmt.Sprintf("Correct answer: %q\nUser answer: %q", correctAnswer, userAnswer)
	if explanation != "" {
		prompt += fmt.Sprintf("\nContext/Explanation: %q", explanation)
	}
	return prompt
}
