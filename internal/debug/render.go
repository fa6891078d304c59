package debug

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
)

// RenderTarget receives the rendered panel HTML. A nil target makes
// rendering a silent no-op.
type RenderTarget interface {
	SetHTML(html string)
}

// Restriction labels for the CORS section.
const (
	corsRestrictedLabel = "Restricted"
	corsOpenLabel       = "Open (all origins allowed)"
)

const troubleshootingHint = "Check that the server is running and DEBUG_MODE is enabled."

// ShowDebugPanel fetches one snapshot and renders it into the target,
// replacing any previous content. Failures render an error panel instead.
// The raw model list is stashed into state regardless of the target.
func ShowDebugPanel(ctx context.Context, fetcher SnapshotFetcher, state *State, target RenderTarget) {
	snap, err := fetcher.FetchSnapshot(ctx)
	if err != nil {
		setHTML(target, RenderErrorPanel(err))
		return
	}
	if snap.Models != nil && len(snap.Models.RawList) > 0 {
		state.SetRawModelList(snap.Models.RawList)
	}
	setHTML(target, RenderSnapshot(state, snap))
}

func setHTML(target RenderTarget, html string) {
	if target == nil {
		return
	}
	target.SetHTML(html)
}

// RenderSnapshot assembles the full panel. Optional sections render nothing
// when their data is absent; the environment and last-call sections always
// render with fallback text.
func RenderSnapshot(state *State, snap *Snapshot) string {
	var b strings.Builder
	if snap.Timestamp != "" {
		fmt.Fprintf(&b, `<div class="debug-timestamp">%s</div>`, escapeHTML(snap.Timestamp))
	}
	b.WriteString(renderCors(snap.Cors))
	b.WriteString(renderLastCall(state.LastCall()))
	b.WriteString(renderEnvironment(snap.Environment))
	b.WriteString(renderEnvVars(snap.EnvVars))
	b.WriteString(renderModels(snap.Models))
	return b.String()
}

// RenderErrorPanel replaces the panel content with a single error block.
func RenderErrorPanel(err error) string {
	message := err.Error()
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		message = fmt.Sprintf("%d %s", httpErr.Status, httpErr.StatusText)
	}
	return fmt.Sprintf(
		`<div class="debug-error"><h3>Debug fetch failed</h3><p>%s</p><p class="hint">%s</p></div>`,
		escapeHTML(message), troubleshootingHint)
}

func renderCors(cors *CorsInfo) string {
	if cors == nil {
		return ""
	}
	label := corsOpenLabel
	if cors.IsRestricted {
		label = corsRestrictedLabel
	}
	var b strings.Builder
	b.WriteString(`<div class="debug-section"><h3>CORS Configuration</h3>`)
	fmt.Fprintf(&b, `<p>Allowed Origins: %s</p>`, escapeHTML(strings.Join(cors.AllowedOrigins, ", ")))
	fmt.Fprintf(&b, `<p>Mode: %s</p>`, label)
	if cors.DetectedPlatform != "" {
		fmt.Fprintf(&b, `<p>Platform: %s</p>`, escapeHTML(cors.DetectedPlatform))
	}
	b.WriteString(`</div>`)
	return b.String()
}

func renderLastCall(rec *CallRecord) string {
	var b strings.Builder
	b.WriteString(`<div class="debug-section"><h3>Last API Call</h3>`)
	if rec == nil {
		b.WriteString(`<p>No API calls recorded yet.</p>`)
	} else {
		pretty, err := json.MarshalIndent(rec, "", "  ")
		if err != nil {
			pretty = []byte("(unrenderable record)")
		}
		fmt.Fprintf(&b, `<pre>%s</pre>`, escapeHTML(string(pretty)))
	}
	b.WriteString(`</div>`)
	return b.String()
}

func renderEnvironment(env map[string]string) string {
	var b strings.Builder
	b.WriteString(`<div class="debug-section"><h3>Environment</h3>`)
	if len(env) == 0 {
		b.WriteString(`<p>No environment info available.</p>`)
	} else {
		for _, k := range sortedKeys(env) {
			fmt.Fprintf(&b, `<p>%s: %s</p>`, escapeHTML(k), escapeHTML(env[k]))
		}
	}
	b.WriteString(`</div>`)
	return b.String()
}

func renderEnvVars(vars map[string]*string) string {
	if vars == nil {
		return ""
	}
	var b strings.Builder
	b.WriteString(`<div class="debug-section"><h3>Environment Variables</h3>`)
	keys := make([]string, 0, len(vars))
	for k := range vars {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		val := "(not set)"
		if vars[k] != nil {
			val = *vars[k]
		}
		fmt.Fprintf(&b, `<p>%s: %s</p>`, escapeHTML(k), escapeHTML(val))
	}
	b.WriteString(`</div>`)
	return b.String()
}

func renderModels(models *ModelCatalog) string {
	if models == nil {
		return ""
	}
	var b strings.Builder
	b.WriteString(`<div class="debug-section"><h3>Model Catalog</h3>`)
	fmt.Fprintf(&b, `<p>Total: %d, Recommended: %d</p>`, models.TotalCount, models.RecommendedCount)
	if len(models.RawList) > 0 {
		fmt.Fprintf(&b, `<details><summary>Raw list</summary><pre>%s</pre></details>`,
			escapeHTML(prettyJSON(models.RawList)))
	}
	b.WriteString(`</div>`)
	return b.String()
}

func prettyJSON(raw json.RawMessage) string {
	var buf strings.Builder
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return string(raw)
	}
	enc := json.NewEncoder(&buf)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return string(raw)
	}
	return strings.TrimRight(buf.String(), "\n")
}

// escapeHTML neutralizes tag openers in server-supplied strings before they
// reach markup.
func escapeHTML(s string) string {
	return strings.ReplaceAll(s, "<", "&lt;")
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
