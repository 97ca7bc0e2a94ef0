// Package llm is the chat-completion client used for both the analysis
// and generation tiers. It speaks the OpenAI-compatible wire format, so
// any provider exposing that shape works by overriding the base URL.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/plexmix/plexmix-backend/internal/domain/playlist"
)

const (
	// DefaultBaseURL targets the OpenAI API.
	DefaultBaseURL = "https://api.openai.com/v1"

	// DefaultTimeout bounds one completion call; generation responses
	// with large track lists can be slow.
	DefaultTimeout = 120 * time.Second
)

// Client calls one chat-completion provider.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// Option is a functional option for configuring the client.
type Option func(*Client)

// WithBaseURL points the client at a non-default provider endpoint.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(baseURL, "/")
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// NewClient creates a completion client with the given API key.
func NewClient(apiKey string, opts ...Option) *Client {
	c := &Client{
		baseURL:    DefaultBaseURL,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: DefaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Temperature float64       `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// Complete sends one system+user exchange and returns the model's text
// with token usage. Transient failures come back as retryable
// ProviderErrors; anything else is permanent.
func (c *Client) Complete(ctx context.Context, model, system, prompt string, maxTokens int) (playlist.Completion, error) {
	body, err := json.Marshal(chatRequest{
		Model: model,
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: prompt},
		},
		MaxTokens:   maxTokens,
		Temperature: 0.7,
	})
	if err != nil {
		return playlist.Completion{}, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return playlist.Completion{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return playlist.Completion{}, &playlist.ProviderError{
			Retryable: true,
			Err:       fmt.Errorf("completion request: %w", err),
		}
	}
	defer resp.Body.Close()

	var parsed chatResponse
	if decodeErr := json.NewDecoder(resp.Body).Decode(&parsed); decodeErr != nil && resp.StatusCode == http.StatusOK {
		return playlist.Completion{}, &playlist.ProviderError{
			Retryable: false,
			Err:       fmt.Errorf("decode response: %w", decodeErr),
		}
	}

	if resp.StatusCode != http.StatusOK {
		message := resp.Status
		if parsed.Error != nil && parsed.Error.Message != "" {
			message = parsed.Error.Message
		}
		return playlist.Completion{}, &playlist.ProviderError{
			Retryable: isRetryableStatus(resp.StatusCode),
			Err:       fmt.Errorf("provider returned status %d: %s", resp.StatusCode, message),
		}
	}

	if len(parsed.Choices) == 0 {
		return playlist.Completion{}, &playlist.ProviderError{
			Retryable: false,
			Err:       fmt.Errorf("provider returned no choices"),
		}
	}

	completion := playlist.Completion{
		Text:         parsed.Choices[0].Message.Content,
		InputTokens:  parsed.Usage.PromptTokens,
		OutputTokens: parsed.Usage.CompletionTokens,
	}
	log.Debug().
		Str("model", model).
		Int("input_tokens", completion.InputTokens).
		Int("output_tokens", completion.OutputTokens).
		Msg("Completion finished")
	return completion, nil
}

// isRetryableStatus covers rate limits, request timeouts and server
// errors; all other client errors are permanent.
func isRetryableStatus(status int) bool {
	return status == http.StatusRequestTimeout ||
		status == http.StatusTooManyRequests ||
		status >= http.StatusInternalServerError
}

// modelPrice is USD per one million tokens.
type modelPrice struct {
	input  float64
	output float64
}

// pricing is keyed by model name prefix, longest prefix wins.
var pricing = map[string]modelPrice{
	"gpt-4o-mini":   {input: 0.15, output: 0.60},
	"gpt-4o":        {input: 2.50, output: 10.00},
	"gpt-4.1-mini":  {input: 0.40, output: 1.60},
	"gpt-4.1":       {input: 2.00, output: 8.00},
	"gpt-3.5-turbo": {input: 0.50, output: 1.50},
}

// EstimateCost converts token usage to an approximate USD cost.
// Unknown models cost zero rather than guessing.
func EstimateCost(model string, inputTokens, outputTokens int) float64 {
	var best string
	for prefix := range pricing {
		if strings.HasPrefix(model, prefix) && len(prefix) > len(best) {
			best = prefix
		}
	}
	if best == "" {
		return 0
	}
	price := pricing[best]
	return float64(inputTokens)/1_000_000*price.input + float64(outputTokens)/1_000_000*price.output
}

// EstimateCost satisfies the pipeline's cost reporting collaborator.
func (c *Client) EstimateCost(model string, inputTokens, outputTokens int) float64 {
	return EstimateCost(model, inputTokens, outputTokens)
}
