package llm

import (
	"context"
	"errors"
	"testing"

	"memoai-go/internal/config"
	"memoai-go/internal/models"

	"github.com/quailyquaily/uniai/chat"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

type fakeBackend struct {
	req    *chat.Request
	result *chat.Result
	err    error
	calls  int
}

func (f *fakeBackend) Chat(ctx context.Context, opts ...chat.Option) (*chat.Result, error) {
	f.calls++
	req, err := chat.BuildRequest(opts...)
	if err != nil {
		return nil, err
	}
	f.req = req
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

type fakeCreds struct{}

func (fakeCreds) HasProvider(string) bool { return true }

type captureRecorder struct {
	endpoint string
	request  []byte
	response []byte
	status   *int
	errMsg   string
}

func (c *captureRecorder) Record(endpoint, method string, req, resp []byte, status *int, errMsg string) {
	c.endpoint = endpoint
	c.request = req
	c.response = resp
	c.status = status
	c.errMsg = errMsg
}

func testCfg(retries int) config.AIConfig {
	return config.AIConfig{TimeoutSec: 5, MaxRetries: retries}
}

func TestGenerate_TextPrompt(t *testing.T) {
	backend := &fakeBackend{result: &chat.Result{
		Text:  `{"ok":true}`,
		Usage: chat.Usage{InputTokens: 100, OutputTokens: 50, TotalTokens: 150},
	}}
	registry := models.NewRegistry(fakeCreds{})
	c := NewClient(testCfg(1), registry, WithBackend(backend))

	res, err := c.Generate(context.Background(), "openai/gpt-4o", Prompt{
		System: "be terse",
		Text:   "hello",
	})
	require.NoError(t, err)
	assert.Equal(t, `{"ok":true}`, res.Content)
	assert.Equal(t, 150, res.Usage.TotalTokens)

	// gpt-4o: 0.0025 in, 0.01 out per 1K
	assert.InDelta(t, (100*0.0025+50*0.01)/1000.0, res.CostUSD, 1e-12)

	require.NotNil(t, backend.req)
	assert.Equal(t, "openai", backend.req.Provider)
	assert.Equal(t, "gpt-4o", backend.req.Model)
	require.Len(t, backend.req.Messages, 2)
	assert.Equal(t, chat.RoleSystem, backend.req.Messages[0].Role)
	assert.Equal(t, "hello", backend.req.Messages[1].Content)
}

func TestGenerate_ImagePromptUsesParts(t *testing.T) {
	backend := &fakeBackend{result: &chat.Result{Text: "ok"}}
	c := NewClient(testCfg(1), models.NewRegistry(fakeCreds{}), WithBackend(backend))

	_, err := c.Generate(context.Background(), "gemini/gemini-2.0-flash-exp", Prompt{
		Text:          "describe",
		ImageBase64:   "QUFB",
		ImageMIMEType: "image/jpeg",
	})
	require.NoError(t, err)

	last := backend.req.Messages[len(backend.req.Messages)-1]
	require.Len(t, last.Parts, 2)
	assert.Equal(t, chat.PartTypeText, last.Parts[0].Type)
	assert.Equal(t, chat.PartTypeImageBase64, last.Parts[1].Type)
	assert.Equal(t, "image/jpeg", last.Parts[1].MIMEType)
}

func TestGenerate_MissingProviderPrefix(t *testing.T) {
	c := NewClient(testCfg(1), models.NewRegistry(fakeCreds{}), WithBackend(&fakeBackend{}))

	_, err := c.Generate(context.Background(), "gpt-4o", Prompt{Text: "x"})
	assert.Error(t, err)
}

func TestGenerate_FailureWrapsLastError(t *testing.T) {
	backend := &fakeBackend{err: errors.New("upstream down")}
	c := NewClient(testCfg(1), models.NewRegistry(fakeCreds{}), WithBackend(backend))

	_, err := c.Generate(context.Background(), "openai/gpt-4o", Prompt{Text: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "upstream down")
	assert.Equal(t, 1, backend.calls)
}

func TestGenerate_RecordsExchange(t *testing.T) {
	rec := &captureRecorder{}
	backend := &fakeBackend{result: &chat.Result{
		Text:  "answer",
		Usage: chat.Usage{InputTokens: 1, OutputTokens: 2, TotalTokens: 3},
	}}
	c := NewClient(testCfg(1), models.NewRegistry(fakeCreds{}), WithBackend(backend), WithRecorder(rec))

	_, err := c.Generate(context.Background(), "openai/gpt-4o", Prompt{
		Text:        "what is this",
		ImageBase64: "QUFBQUFB",
	})
	require.NoError(t, err)

	assert.Equal(t, "llm/openai/gpt-4o", rec.endpoint)
	assert.Equal(t, "QUFBQUFB", gjson.GetBytes(rec.request, "image_data").String())
	assert.Equal(t, "answer", gjson.GetBytes(rec.response, "content").String())
	require.NotNil(t, rec.status)
	assert.Equal(t, 200, *rec.status)
}

func TestGenerate_RecordsFailure(t *testing.T) {
	rec := &captureRecorder{}
	backend := &fakeBackend{err: errors.New("boom")}
	c := NewClient(testCfg(1), models.NewRegistry(fakeCreds{}), WithBackend(backend), WithRecorder(rec))

	_, err := c.Generate(context.Background(), "openai/gpt-4o", Prompt{Text: "x"})
	require.Error(t, err)
	assert.Equal(t, "boom", rec.errMsg)
	require.NotNil(t, rec.status)
	assert.Equal(t, 502, *rec.status)
}
