package llm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"memoai-go/internal/config"
	"memoai-go/internal/models"

	"github.com/quailyquaily/uniai"
	"github.com/quailyquaily/uniai/chat"
	"github.com/sirupsen/logrus"
	"github.com/tidwall/sjson"
)

// ChatBackend is the slice of uniai.Client this package needs.
type ChatBackend interface {
	Chat(ctx context.Context, opts ...chat.Option) (*chat.Result, error)
}

// Recorder captures outbound API calls for the debug panel.
type Recorder interface {
	Record(endpoint, method string, request, response []byte, status *int, errMsg string)
}

// Usage mirrors provider token accounting.
type Usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
	TotalTokens  int `json:"total_tokens"`
}

// Result is one completed generation.
type Result struct {
	Content string  `json:"content"`
	Model   string  `json:"model"`
	Usage   Usage   `json:"usage"`
	CostUSD float64 `json:"cost_usd"`
}

// Prompt is the input to a generation: an optional system prompt, the user
// text, prior conversation turns, and an optional inline image.
type Prompt struct {
	System        string
	Text          string
	History       []chat.Message
	ImageBase64   string
	ImageMIMEType string
}

// Client calls AI providers through uniai with retries, per-call timeouts and
// debug recording.
type Client struct {
	backend    ChatBackend
	registry   *models.Registry
	recorder   Recorder
	timeout    time.Duration
	maxRetries int
}

// Option customizes the client.
type Option func(*Client)

// WithBackend swaps the chat backend, used by tests.
func WithBackend(b ChatBackend) Option {
	return func(c *Client) { c.backend = b }
}

// WithRecorder installs a call recorder.
func WithRecorder(r Recorder) Option {
	return func(c *Client) { c.recorder = r }
}

// NewClient builds a client over the configured providers.
func NewClient(cfg config.AIConfig, registry *models.Registry, opts ...Option) *Client {
	c := &Client{
		backend: uniai.New(uniai.Config{
			GeminiAPIKey:    cfg.GeminiAPIKey,
			OpenAIAPIKey:    cfg.OpenAIAPIKey,
			AnthropicAPIKey: cfg.AnthropicAPIKey,
		}),
		registry:   registry,
		timeout:    time.Duration(cfg.TimeoutSec) * time.Second,
		maxRetries: cfg.MaxRetries,
	}
	if c.timeout <= 0 {
		c.timeout = 60 * time.Second
	}
	if c.maxRetries < 1 {
		c.maxRetries = 1
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Generate runs one generation against the given model id, retrying transient
// failures with a linear backoff.
func (c *Client) Generate(ctx context.Context, modelID string, prompt Prompt) (*Result, error) {
	provider, model := models.SplitID(modelID)
	if provider == "" {
		return nil, fmt.Errorf("llm: model id %q has no provider prefix", modelID)
	}
	msgs := buildMessages(prompt)

	var lastErr error
	for attempt := 0; attempt < c.maxRetries; attempt++ {
		if attempt > 0 {
			logrus.WithFields(logrus.Fields{"model": modelID, "attempt": attempt + 1}).
				Warn("retrying ai call")
			if err := sleepCtx(ctx, time.Duration(attempt)*2*time.Second); err != nil {
				return nil, err
			}
		}

		callCtx, cancel := context.WithTimeout(ctx, c.timeout)
		res, err := c.backend.Chat(callCtx,
			chat.WithProvider(provider),
			chat.WithModel(model),
			chat.WithMessages(msgs...),
		)
		cancel()
		if err != nil {
			lastErr = err
			c.record(modelID, prompt, nil, err)
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			continue
		}

		out := &Result{
			Content: res.Text,
			Model:   modelID,
			Usage: Usage{
				InputTokens:  res.Usage.InputTokens,
				OutputTokens: res.Usage.OutputTokens,
				TotalTokens:  res.Usage.TotalTokens,
			},
			CostUSD: c.cost(modelID, res.Usage),
		}
		c.record(modelID, prompt, out, nil)
		return out, nil
	}
	if lastErr == nil {
		lastErr = errors.New("llm: no attempts made")
	}
	return nil, fmt.Errorf("llm: generation failed after %d attempts: %w", c.maxRetries, lastErr)
}

func (c *Client) cost(modelID string, usage chat.Usage) float64 {
	pricing := c.registry.Pricing(modelID)
	return (float64(usage.InputTokens)*pricing.Input + float64(usage.OutputTokens)*pricing.Output) / 1000.0
}

// record hands the exchange to the debug recorder. The raw base64 image rides
// in an image_data field so the recorder's sanitizer has something to strip.
func (c *Client) record(modelID string, prompt Prompt, result *Result, callErr error) {
	if c.recorder == nil {
		return
	}
	req := []byte(`{}`)
	req, _ = sjson.SetBytes(req, "model", modelID)
	req, _ = sjson.SetBytes(req, "system", prompt.System)
	req, _ = sjson.SetBytes(req, "text", prompt.Text)
	if prompt.ImageBase64 != "" {
		req, _ = sjson.SetBytes(req, "image_data", prompt.ImageBase64)
		req, _ = sjson.SetBytes(req, "image_mime_type", prompt.ImageMIMEType)
	}

	var resp []byte
	status := 200
	errMsg := ""
	if callErr != nil {
		status = 502
		errMsg = callErr.Error()
	} else if result != nil {
		resp = []byte(`{}`)
		resp, _ = sjson.SetBytes(resp, "content", result.Content)
		resp, _ = sjson.SetBytes(resp, "usage.input_tokens", result.Usage.InputTokens)
		resp, _ = sjson.SetBytes(resp, "usage.output_tokens", result.Usage.OutputTokens)
		resp, _ = sjson.SetBytes(resp, "usage.total_tokens", result.Usage.TotalTokens)
		resp, _ = sjson.SetBytes(resp, "cost_usd", result.CostUSD)
	}
	c.recorder.Record("llm/"+modelID, "POST", req, resp, &status, errMsg)
}

func buildMessages(p Prompt) []chat.Message {
	var msgs []chat.Message
	if p.System != "" {
		msgs = append(msgs, chat.System(p.System))
	}
	msgs = append(msgs, p.History...)
	if p.ImageBase64 != "" {
		mime := p.ImageMIMEType
		if mime == "" {
			mime = "image/png"
		}
		parts := []chat.Part{chat.ImageBase64Part(mime, p.ImageBase64)}
		if p.Text != "" {
			parts = append([]chat.Part{chat.TextPart(p.Text)}, parts...)
		}
		msgs = append(msgs, chat.UserParts(parts...))
	} else {
		msgs = append(msgs, chat.User(p.Text))
	}
	return msgs
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
