package debug

import (
	"fmt"
	"strings"
	"time"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// imageDataKey is the payload field whose value gets replaced before storage.
const imageDataKey = "image_data"

// Record stores a new last-call record, overwriting any prior one. Request
// and response payloads pass through a sanitization pass so encoded images
// never linger in retained debug state.
func (s *State) Record(endpoint, method string, request, response []byte, status *int, errMsg string) {
	rec := &CallRecord{
		Timestamp: time.Now(),
		Endpoint:  endpoint,
		Method:    method,
		Status:    status,
		Request:   SanitizePayload(request),
		Response:  SanitizePayload(response),
	}
	if errMsg != "" {
		rec.Error = &errMsg
	}
	s.mu.Lock()
	s.lastCall = rec
	s.mu.Unlock()
}

// SanitizePayload deep-copies a JSON payload, replacing every string field
// named image_data at any depth with a placeholder carrying only its length.
// Non-JSON payloads come back unchanged.
func SanitizePayload(raw []byte) []byte {
	if len(raw) == 0 {
		return nil
	}
	if !gjson.ValidBytes(raw) {
		out := make([]byte, len(raw))
		copy(out, raw)
		return out
	}
	return sanitizeValue(gjson.ParseBytes(raw))
}

func sanitizeValue(v gjson.Result) []byte {
	switch {
	case v.IsObject():
		out := []byte(`{}`)
		v.ForEach(func(key, val gjson.Result) bool {
			path := escapeKey(key.String())
			if key.String() == imageDataKey && val.Type == gjson.String {
				out, _ = sjson.SetBytes(out, path, imagePlaceholder(val.String()))
				return true
			}
			out, _ = sjson.SetRawBytes(out, path, sanitizeValue(val))
			return true
		})
		return out
	case v.IsArray():
		out := []byte(`[]`)
		v.ForEach(func(_, item gjson.Result) bool {
			out, _ = sjson.SetRawBytes(out, "-1", sanitizeValue(item))
			return true
		})
		return out
	default:
		return []byte(v.Raw)
	}
}

func imagePlaceholder(value string) string {
	return fmt.Sprintf("[image data: %d chars]", len([]rune(value)))
}

var keyEscaper = strings.NewReplacer(".", `\.`, "*", `\*`, "?", `\?`, "|", `\|`, "#", `\#`, "@", `\@`)

func escapeKey(key string) string {
	return keyEscaper.Replace(key)
}
