package models

import "strings"

// Cost holds per-1K-token pricing in USD.
type Cost struct {
	Input  float64 `json:"input"`
	Output float64 `json:"output"`
}

// Info describes one model in the catalog.
type Info struct {
	ID             string `json:"id"`       // routing id, e.g. "gemini/gemini-2.0-flash-exp"
	Name           string `json:"name"`     // bare model name for the UI
	Provider       string `json:"provider"` // human-readable provider name
	ProviderKey    string `json:"provider_key"`
	SupportsVision bool   `json:"supports_vision"`
	SupportsJSON   bool   `json:"supports_json"`
	Recommended    bool   `json:"recommended"`
	CostPer1K      Cost   `json:"cost_per_1k_tokens"`
}

// Credentials reports whether a provider has usable API credentials.
// Implemented by config.Config.
type Credentials interface {
	HasProvider(key string) bool
}

// Registry is the curated model catalog bound to a set of credentials.
type Registry struct {
	entries []Info
	creds   Credentials
}

// NewRegistry builds a registry over the default catalog.
func NewRegistry(creds Credentials) *Registry {
	return &Registry{entries: defaultCatalog(), creds: creds}
}

// All returns every catalog entry regardless of credentials.
func (r *Registry) All() []Info {
	out := make([]Info, len(r.entries))
	copy(out, r.entries)
	return out
}

// Available returns entries whose provider has configured credentials.
func (r *Registry) Available() []Info {
	var out []Info
	for _, m := range r.entries {
		if r.creds != nil && r.creds.HasProvider(m.ProviderKey) {
			out = append(out, m)
		}
	}
	return out
}

// ByCapability filters available models by vision support.
func (r *Registry) ByCapability(supportsVision bool) []Info {
	var out []Info
	for _, m := range r.Available() {
		if m.SupportsVision == supportsVision {
			out = append(out, m)
		}
	}
	return out
}

// Metadata looks up a model by its full id.
func (r *Registry) Metadata(id string) (Info, bool) {
	for _, m := range r.entries {
		if m.ID == id {
			return m, true
		}
	}
	return Info{}, false
}

// Pricing returns per-1K pricing for a model id, zero when unknown.
func (r *Registry) Pricing(id string) Cost {
	if m, ok := r.Metadata(id); ok {
		return m.CostPer1K
	}
	return Cost{}
}

// SplitID splits a "provider/model" id into its parts. Ids without a slash
// keep the whole string as the model with an empty provider.
func SplitID(id string) (provider, model string) {
	if i := strings.IndexByte(id, '/'); i >= 0 {
		return id[:i], id[i+1:]
	}
	return "", id
}

func gemini(name string, vision bool, in, out float64) Info {
	return Info{
		ID:             "gemini/" + name,
		Name:           name,
		Provider:       "Gemini API",
		ProviderKey:    "gemini",
		SupportsVision: vision,
		SupportsJSON:   true,
		CostPer1K:      Cost{Input: in, Output: out},
	}
}

func openai(name string, vision bool, in, out float64) Info {
	return Info{
		ID:             "openai/" + name,
		Name:           name,
		Provider:       "OpenAI",
		ProviderKey:    "openai",
		SupportsVision: vision,
		SupportsJSON:   true,
		CostPer1K:      Cost{Input: in, Output: out},
	}
}

func anthropic(name string, vision bool, in, out float64) Info {
	return Info{
		ID:             "anthropic/" + name,
		Name:           name,
		Provider:       "Anthropic",
		ProviderKey:    "anthropic",
		SupportsVision: vision,
		SupportsJSON:   true,
		CostPer1K:      Cost{Input: in, Output: out},
	}
}

// recommendedIDs are the catalog entries surfaced first in the UI, the
// heads of the selection fallback chains.
var recommendedIDs = map[string]bool{
	"gemini/gemini-2.0-flash-exp":          true,
	"openai/gpt-4o-mini":                   true,
	"anthropic/claude-3-5-sonnet-20241022": true,
}

// defaultCatalog is the curated model list, sorted by provider then name.
func defaultCatalog() []Info {
	catalog := []Info{
		anthropic("claude-3-5-haiku-20241022", false, 0.0008, 0.004),
		anthropic("claude-3-5-sonnet-20241022", true, 0.003, 0.015),
		gemini("gemini-1.5-flash", true, 0.000075, 0.0003),
		gemini("gemini-1.5-pro", true, 0.00125, 0.005),
		gemini("gemini-2.0-flash", true, 0.0001, 0.0004),
		gemini("gemini-2.0-flash-exp", true, 0, 0),
		gemini("gemini-2.5-flash", true, 0.0003, 0.0025),
		gemini("gemini-2.5-pro", true, 0.00125, 0.01),
		openai("gpt-4.1-mini", true, 0.0004, 0.0016),
		openai("gpt-4o", true, 0.0025, 0.01),
		openai("gpt-4o-mini", true, 0.00015, 0.0006),
	}
	for i := range catalog {
		catalog[i].Recommended = recommendedIDs[catalog[i].ID]
	}
	return catalog
}
