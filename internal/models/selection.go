package models

import (
	"errors"

	"github.com/sirupsen/logrus"
)

// ErrNoModels means no provider has credentials for the required capability.
var ErrNoModels = errors.New("models: no models available, configure an API key")

// Selector picks a model for a request, honoring the configured defaults.
type Selector struct {
	registry     *Registry
	defaultText  string
	defaultImage string
}

// NewSelector wires a selector over the registry. The defaults are tried
// first in their respective fallback chains.
func NewSelector(registry *Registry, defaultText, defaultImage string) *Selector {
	return &Selector{registry: registry, defaultText: defaultText, defaultImage: defaultImage}
}

// SelectForInput picks the model id for a request. An explicit user selection
// wins when its provider is configured, even if it cannot handle images.
// Otherwise the default model is tried, then a fallback chain, then anything
// available.
func (s *Selector) SelectForInput(hasImage bool, userSelection string) (string, error) {
	if userSelection != "" {
		meta, ok := s.registry.Metadata(userSelection)
		if ok && s.registry.creds.HasProvider(meta.ProviderKey) {
			if hasImage && !meta.SupportsVision {
				logrus.WithField("model", userSelection).
					Warn("selected model does not support images, request may fail")
			}
			return userSelection, nil
		}
		logrus.WithField("model", userSelection).
			Warn("selected model is not available, falling back to default")
	}

	if hasImage {
		return s.selectVision()
	}
	return s.selectText()
}

func (s *Selector) selectVision() (string, error) {
	visionModels := s.registry.ByCapability(true)
	if len(visionModels) == 0 {
		return "", ErrNoModels
	}
	chain := append([]string{s.defaultImage},
		"gemini/gemini-2.0-flash-exp",
		"gemini/gemini-1.5-flash",
		"gemini/gemini-1.5-pro",
		"openai/gpt-4o-mini",
		"openai/gpt-4o",
		"anthropic/claude-3-5-sonnet-20241022",
	)
	for _, id := range chain {
		if containsID(visionModels, id) {
			if id != s.defaultImage {
				logrus.WithField("model", id).Info("using fallback vision model")
			}
			return id, nil
		}
	}
	return visionModels[0].ID, nil
}

func (s *Selector) selectText() (string, error) {
	available := s.registry.Available()
	if len(available) == 0 {
		return "", ErrNoModels
	}
	chain := append([]string{s.defaultText},
		"gemini/gemini-2.0-flash-exp",
		"gemini/gemini-1.5-flash",
		"gemini/gemini-1.5-pro",
		"openai/gpt-4o-mini",
		"anthropic/claude-3-5-haiku-20241022",
	)
	for _, id := range chain {
		if containsID(available, id) {
			if id != s.defaultText {
				logrus.WithField("model", id).Info("using fallback text model")
			}
			return id, nil
		}
	}
	// Prefer a text-only model before resorting to anything available.
	if textOnly := s.registry.ByCapability(false); len(textOnly) > 0 {
		return textOnly[0].ID, nil
	}
	return available[0].ID, nil
}

func containsID(models []Info, id string) bool {
	for _, m := range models {
		if m.ID == id {
			return true
		}
	}
	return false
}
