package debug

import (
	"context"

	"github.com/sirupsen/logrus"
)

// AppConfig is the client-facing slice of server configuration.
type AppConfig struct {
	DebugMode           bool   `json:"debug_mode"`
	DefaultSystemPrompt string `json:"default_system_prompt,omitempty"`
}

// ConfigSource fetches the client configuration resource.
type ConfigSource interface {
	FetchConfig(ctx context.Context) (*AppConfig, error)
}

// Element is a gateable UI affordance. Hidden suppresses its display;
// showing it restores the default.
type Element struct {
	hidden bool
}

func (e *Element) SetHidden(hidden bool) {
	if e == nil {
		return
	}
	e.hidden = hidden
}

func (e *Element) Hidden() bool {
	if e == nil {
		return false
	}
	return e.hidden
}

// UIState holds the two gated menu affordances. Either may be nil, which
// gating treats as a silent no-op.
type UIState struct {
	ModelMenu *Element
	DebugMenu *Element
}

// Initialize fetches the config once and never fails: any error yields the
// safe default with debug mode off, so gating stays deterministic.
func Initialize(ctx context.Context, src ConfigSource) *AppConfig {
	cfg, err := src.FetchConfig(ctx)
	if err != nil || cfg == nil {
		if err != nil {
			logrus.WithError(err).Warn("config fetch failed, defaulting debug mode off")
		}
		return &AppConfig{DebugMode: false}
	}
	return cfg
}

// ApplyDebugGate sets the visibility of both gated elements to match the
// flag. A false flag also clears the in-memory selected model and removes
// the persisted preference; this downgrade fires on every false evaluation
// and re-enabling does not restore the cleared preference.
func ApplyDebugGate(state *State, ui UIState, prefs PreferenceStore, debugMode bool) {
	ui.ModelMenu.SetHidden(!debugMode)
	ui.DebugMenu.SetHidden(!debugMode)

	if debugMode {
		return
	}
	state.ClearSelectedModel()
	if prefs != nil {
		if err := prefs.Delete(SelectedModelKey); err != nil {
			logrus.WithError(err).Warn("failed to remove selected model preference")
		}
	}
}
