package debug

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClipboard struct {
	writes []string
	err    error
}

func (f *fakeClipboard) WriteText(text string) error {
	if f.err != nil {
		return f.err
	}
	f.writes = append(f.writes, text)
	return nil
}

type fakeNotifier struct {
	msgs []string
}

func (f *fakeNotifier) Notify(msg string) { f.msgs = append(f.msgs, msg) }

func TestCopyLastCall_EmptyState(t *testing.T) {
	clip := &fakeClipboard{}
	notify := &fakeNotifier{}

	CopyLastCall(NewState(), clip, notify)

	assert.Empty(t, clip.writes)
	assert.Equal(t, []string{"Nothing to copy"}, notify.msgs)
}

func TestCopyLastCall_PopulatedState(t *testing.T) {
	state := NewState()
	state.Record("notion/pages", "POST", []byte(`{"a":1}`), []byte(`{"ok":true}`), nil, "")
	clip := &fakeClipboard{}
	notify := &fakeNotifier{}

	CopyLastCall(state, clip, notify)

	require.Len(t, clip.writes, 1)
	text := clip.writes[0]
	require.True(t, strings.HasPrefix(text, LastCallBanner+"\n"))

	var rec CallRecord
	require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(text, LastCallBanner+"\n")), &rec))
	assert.Equal(t, "notion/pages", rec.Endpoint)
	assert.Equal(t, []string{"Copied to clipboard"}, notify.msgs)
}

func TestCopyLastCall_WriteFailure(t *testing.T) {
	state := NewState()
	state.Record("e", "GET", nil, nil, nil, "")
	notify := &fakeNotifier{}

	CopyLastCall(state, &fakeClipboard{err: errors.New("denied")}, notify)

	assert.Equal(t, []string{"Copy failed"}, notify.msgs)
}

func TestCopyModelList(t *testing.T) {
	state := NewState()
	clip := &fakeClipboard{}
	notify := &fakeNotifier{}

	CopyModelList(state, clip, notify)
	assert.Empty(t, clip.writes)
	assert.Equal(t, []string{"Nothing to copy"}, notify.msgs)

	state.SetRawModelList(json.RawMessage(`[{"id":"openai/gpt-4o"}]`))
	CopyModelList(state, clip, notify)
	require.Len(t, clip.writes, 1)
	assert.NotContains(t, clip.writes[0], LastCallBanner)
	assert.JSONEq(t, `[{"id":"openai/gpt-4o"}]`, clip.writes[0])
}

func TestCopyOperationsDoNotInterfere(t *testing.T) {
	state := NewState()
	state.SetRawModelList(json.RawMessage(`[1]`))
	clip := &fakeClipboard{}
	notify := &fakeNotifier{}

	// last-call slot is still empty even though the model list is populated
	CopyLastCall(state, clip, notify)
	assert.Empty(t, clip.writes)

	CopyModelList(state, clip, notify)
	assert.Len(t, clip.writes, 1)
}
