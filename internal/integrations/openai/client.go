package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sangukO/haru-word/internal/domain"
)

const (
	defaultBaseURL = "https://api.openai.com/v1"
	defaultTimeout = 10 * time.Second

	maxErrorBody    = 4 << 10
	maxResponseBody = 1 << 20
)

type completionRequest struct {
	Model       string               `json:"model"`
	Messages    []domain.ChatMessage `json:"messages"`
	Temperature *float64             `json:"temperature,omitempty"`
	MaxTokens   int                  `json:"max_tokens,omitempty"`
}

type completionResponse struct {
	ID      string `json:"id"`
	Choices []struct {
		Message      domain.ChatMessage `json:"message"`
		FinishReason string             `json:"finish_reason"`
	} `json:"choices"`
}

// Getter reads a parameter by name; paramstore.Client implements it.
type Getter interface {
	GetParameter(ctx context.Context, name string) (string, error)
}

// Client calls the Chat Completions endpoint of OpenAI or a compatible server.
// The API key is read from the parameter store on first use.
type Client struct {
	endpoint    string
	http        *http.Client
	getter      Getter
	tokenName   string
	temperature *float64
	maxTokens   int
	keys        keyCache
}

type Option func(*Client)

// WithBaseURL points the client at another OpenAI-compatible server. Both
// "http://host" and "http://host/v1" are accepted.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		c.endpoint = completionsURL(baseURL)
	}
}

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithTemperature sets the sampling temperature sent with every request.
func WithTemperature(t float64) Option {
	return func(c *Client) {
		c.temperature = &t
	}
}

// WithMaxTokens caps the completion length.
func WithMaxTokens(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.maxTokens = n
		}
	}
}

func NewClient(ps Getter, paramPrefix string, opts ...Option) (*Client, error) {
	if ps == nil {
		return nil, errors.New("openai: paramstore getter must not be nil")
	}
	prefix := strings.TrimRight(strings.TrimSpace(paramPrefix), "/")
	if prefix == "" {
		return nil, errors.New("openai: parameter prefix must not be empty")
	}
	c := &Client{
		endpoint:  completionsURL(defaultBaseURL),
		http:      &http.Client{Timeout: defaultTimeout},
		getter:    ps,
		tokenName: prefix + tokenParameterSuffix,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func completionsURL(baseURL string) string {
	base := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	switch {
	case base == "":
		base = defaultBaseURL
	case !strings.HasSuffix(base, "/v1"):
		base += "/v1"
	}
	return base + "/chat/completions"
}

func (c *Client) apiKey(ctx context.Context) (string, error) {
	return c.keys.get(ctx, func(ctx context.Context) (string, error) {
		return loadAPIKey(ctx, c.getter, c.tokenName)
	})
}

// Chat returns the content of the first choice. Blank content is not an
// error here; callers decide what an empty answer means.
func (c *Client) Chat(ctx context.Context, model string, messages []domain.ChatMessage) (string, error) {
	if strings.TrimSpace(model) == "" {
		return "", errors.New("openai: model must not be empty")
	}
	key, err := c.apiKey(ctx)
	if err != nil {
		return "", err
	}

	payload, err := json.Marshal(completionRequest{
		Model:       model,
		Messages:    messages,
		Temperature: c.temperature,
		MaxTokens:   c.maxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("openai: marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("openai: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+key)

	body, err := c.send(req)
	if err != nil {
		return "", fmt.Errorf("openai: request failed: %w", err)
	}

	var out completionResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return "", fmt.Errorf("openai: decode response: %w", err)
	}
	if len(out.Choices) == 0 {
		return "", errors.New("openai: no choices in response")
	}
	return out.Choices[0].Message.Content, nil
}

func (c *Client) send(req *http.Request) ([]byte, error) {
	res, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = res.Body.Close() }()

	if res.StatusCode/100 != 2 {
		buf, _ := io.ReadAll(io.LimitReader(res.Body, maxErrorBody))
		return nil, newHTTPStatusError(res.StatusCode, req.URL.String(), buf)
	}
	buf, err := io.ReadAll(io.LimitReader(res.Body, maxResponseBody))
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}
	return buf, nil
}
