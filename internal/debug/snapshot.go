package debug

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// CorsInfo describes the server's CORS posture.
type CorsInfo struct {
	AllowedOrigins   []string `json:"allowed_origins"`
	IsRestricted     bool     `json:"is_restricted"`
	DetectedPlatform string   `json:"detected_platform,omitempty"`
}

// ModelCatalog summarizes the model registry for the debug panel.
type ModelCatalog struct {
	RecommendedCount int             `json:"recommended_count"`
	TotalCount       int             `json:"total_count"`
	RawList          json.RawMessage `json:"raw_list"`
}

// Snapshot is the transient server-side debug view. Optional sections are
// nil when the server omitted them.
type Snapshot struct {
	Timestamp   string             `json:"timestamp,omitempty"`
	Cors        *CorsInfo          `json:"cors,omitempty"`
	Environment map[string]string  `json:"environment,omitempty"`
	EnvVars     map[string]*string `json:"env_vars,omitempty"`
	Models      *ModelCatalog      `json:"models,omitempty"`
}

// SnapshotFetcher obtains a fresh debug snapshot. One attempt, no retry.
type SnapshotFetcher interface {
	FetchSnapshot(ctx context.Context) (*Snapshot, error)
}

// HTTPError is a non-2xx answer from the debug endpoint.
type HTTPError struct {
	Status     int
	StatusText string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.Status, e.StatusText)
}

// HTTPFetcher fetches snapshots from a running server's debug endpoint.
type HTTPFetcher struct {
	URL    string
	Client *http.Client
}

func (f *HTTPFetcher) FetchSnapshot(ctx context.Context) (*Snapshot, error) {
	httpc := f.Client
	if httpc == nil {
		httpc = http.DefaultClient
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.URL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := httpc.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &HTTPError{Status: resp.StatusCode, StatusText: http.StatusText(resp.StatusCode)}
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	var snap Snapshot
	if err := json.Unmarshal(body, &snap); err != nil {
		return nil, err
	}
	return &snap, nil
}
