package debug

import (
	"encoding/json"
	"sync"
	"time"
)

// SelectedModelKey is the preference entry holding the user's model choice.
const SelectedModelKey = "memo_ai_selected_model"

// PreferenceStore is durable key/value storage for user preferences.
// Implemented by the prefs package.
type PreferenceStore interface {
	Get(key string) (string, bool)
	Set(key, value string) error
	Delete(key string) error
}

// CallRecord is the single most recent outbound API call.
type CallRecord struct {
	Timestamp time.Time       `json:"timestamp"`
	Endpoint  string          `json:"endpoint"`
	Method    string          `json:"method"`
	Status    *int            `json:"status"`
	Error     *string         `json:"error"`
	Request   json.RawMessage `json:"request,omitempty"`
	Response  json.RawMessage `json:"response,omitempty"`
}

// State owns the debug façade's mutable slots: the last recorded API call,
// the cached raw model list, and the in-memory selected model. It is
// injected everywhere instead of living as package globals.
type State struct {
	mu            sync.RWMutex
	lastCall      *CallRecord
	rawModelList  json.RawMessage
	selectedModel string
}

func NewState() *State {
	return &State{}
}

// LastCall returns the most recent record, nil when nothing was recorded.
func (s *State) LastCall() *CallRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.lastCall == nil {
		return nil
	}
	rec := *s.lastCall
	return &rec
}

// SetRawModelList stashes the raw model list for later clipboard export.
func (s *State) SetRawModelList(raw json.RawMessage) {
	s.mu.Lock()
	s.rawModelList = raw
	s.mu.Unlock()
}

func (s *State) RawModelList() json.RawMessage {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.rawModelList
}

func (s *State) SelectedModel() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.selectedModel
}

func (s *State) SetSelectedModel(model string) {
	s.mu.Lock()
	s.selectedModel = model
	s.mu.Unlock()
}

func (s *State) ClearSelectedModel() {
	s.mu.Lock()
	s.selectedModel = ""
	s.mu.Unlock()
}
