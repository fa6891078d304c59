// Package notion talks to the Notion REST API, the system of record for
// everything this service persists.
package notion

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"memoai-go/internal/config"

	log "github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"
	"golang.org/x/time/rate"
)

// DefaultBaseURL is the Notion API root.
const DefaultBaseURL = "https://api.notion.com/v1"

// BlockCharLimit is Notion's per-rich-text-item character limit.
const BlockCharLimit = 2000

const blockBatchSize = 100

// ErrStatusIgnored marks a response whose status was on the caller's ignore
// list; the result carries no payload.
var ErrStatusIgnored = errors.New("notion: ignored status")

// ErrNotDatabase is returned when a schema lookup hits an ID that is not a
// database (Notion answers 400 for page IDs).
var ErrNotDatabase = errors.New("notion: not a database")

// StatusError is a non-2xx response that was not retried away.
type StatusError struct {
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("notion: HTTP %d: %s", e.Status, e.Body)
}

// Recorder receives the shape of every outbound API call for the debug
// panel. Implementations must tolerate concurrent calls.
type Recorder interface {
	Record(endpoint, method string, request, response []byte, status *int, errMsg string)
}

// Client is a minimal Notion REST client with retry, backoff and request
// pacing. The zero value is not usable; construct with NewClient.
type Client struct {
	apiKey     string
	version    string
	baseURL    string
	httpc      *http.Client
	maxRetries int
	pacer      *rate.Limiter
	recorder   Recorder
}

// Option customizes a Client.
type Option func(*Client)

// WithBaseURL points the client at a different API root (tests).
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = u }
}

// WithHTTPClient substitutes the underlying HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.httpc = h }
}

// WithRecorder wires the debug recorder.
func WithRecorder(r Recorder) Option {
	return func(c *Client) { c.recorder = r }
}

// NewClient builds a client from configuration.
func NewClient(cfg config.NotionConfig, opts ...Option) *Client {
	c := &Client{
		apiKey:     cfg.APIKey,
		version:    cfg.Version,
		baseURL:    DefaultBaseURL,
		httpc:      &http.Client{Timeout: time.Duration(cfg.TimeoutSec) * time.Second},
		maxRetries: cfg.MaxRetries,
		// Notion allows ~3 req/s; pace outbound calls to stay clear of 429s.
		pacer: rate.NewLimiter(rate.Every(350*time.Millisecond), 1),
	}
	if c.version == "" {
		c.version = "2022-06-28"
	}
	if c.maxRetries < 1 {
		c.maxRetries = 3
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// do performs one logical API call with retries. The final outcome is pushed
// to the recorder; intermediate retried attempts are not.
func (c *Client) do(ctx context.Context, method, path string, body []byte, ignore ...int) (gjson.Result, error) {
	if c.apiKey == "" {
		return gjson.Result{}, errors.New("notion: NOTION_API_KEY is not set")
	}

	url := c.baseURL + "/" + path
	var lastErr error

	for attempt := 0; attempt < c.maxRetries; attempt++ {
		if err := c.pacer.Wait(ctx); err != nil {
			return gjson.Result{}, err
		}

		var reader io.Reader
		if body != nil {
			reader = bytes.NewReader(body)
		}
		req, err := http.NewRequestWithContext(ctx, method, url, reader)
		if err != nil {
			return gjson.Result{}, err
		}
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
		req.Header.Set("Notion-Version", c.version)
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.httpc.Do(req)
		if err != nil {
			lastErr = err
			if attempt < c.maxRetries-1 {
				backoff := time.Duration(1<<attempt) * time.Second
				log.WithError(err).WithFields(log.Fields{"endpoint": path, "attempt": attempt + 1}).
					Warnf("notion request failed, retrying in %s", backoff)
				if !sleepCtx(ctx, backoff) {
					return gjson.Result{}, ctx.Err()
				}
				continue
			}
			c.record(path, method, body, nil, nil, err.Error())
			return gjson.Result{}, err
		}

		respBody, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()
		if readErr != nil {
			lastErr = readErr
			c.record(path, method, body, nil, &resp.StatusCode, readErr.Error())
			return gjson.Result{}, readErr
		}
		status := resp.StatusCode

		if status == http.StatusTooManyRequests {
			wait := retryAfter(resp.Header.Get("Retry-After"))
			log.WithField("endpoint", path).Warnf("notion rate limited, waiting %s", wait)
			if !sleepCtx(ctx, wait) {
				return gjson.Result{}, ctx.Err()
			}
			continue
		}

		for _, ig := range ignore {
			if status == ig {
				c.record(path, method, body, respBody, &status, "")
				return gjson.Result{}, fmt.Errorf("%w: %d", ErrStatusIgnored, status)
			}
		}

		if status >= 200 && status < 300 {
			c.record(path, method, body, respBody, &status, "")
			return gjson.ParseBytes(respBody), nil
		}

		if status >= 500 && attempt < c.maxRetries-1 {
			backoff := time.Duration(1<<attempt) * time.Second
			log.WithFields(log.Fields{"endpoint": path, "status": status}).
				Warnf("notion server error, retrying in %s", backoff)
			lastErr = &StatusError{Status: status, Body: string(respBody)}
			if !sleepCtx(ctx, backoff) {
				return gjson.Result{}, ctx.Err()
			}
			continue
		}

		serr := &StatusError{Status: status, Body: string(respBody)}
		c.record(path, method, body, respBody, &status, serr.Error())
		return gjson.Result{}, serr
	}

	if lastErr == nil {
		lastErr = fmt.Errorf("notion: %s %s exhausted retries", method, path)
	}
	c.record(path, method, body, nil, nil, lastErr.Error())
	return gjson.Result{}, lastErr
}

func (c *Client) record(endpoint, method string, req, resp []byte, status *int, errMsg string) {
	if c.recorder == nil {
		return
	}
	c.recorder.Record("notion/"+endpoint, method, req, resp, status, errMsg)
}

func retryAfter(header string) time.Duration {
	if n, err := strconv.Atoi(header); err == nil && n > 0 {
		return time.Duration(n) * time.Second
	}
	return 2 * time.Second
}

// sleepCtx sleeps for d unless the context ends first; returns false on
// cancellation.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}
