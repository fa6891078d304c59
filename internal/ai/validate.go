package ai

import (
	"strconv"
	"strings"

	"memoai-go/internal/notion"

	"github.com/quailyquaily/uniai"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// parseModelJSON turns raw model output into a JSON value, tolerating code
// fences, leading prose and mildly broken JSON. Returns false when nothing
// parseable remains.
func parseModelJSON(raw string) (gjson.Result, bool) {
	s := stripFences(raw)
	if gjson.Valid(s) {
		return gjson.Parse(s), true
	}

	// Slice out the outermost braces, the usual "here is your JSON:" case.
	if start, end := strings.Index(s, "{"), strings.LastIndex(s, "}"); start >= 0 && end > start {
		if inner := s[start : end+1]; gjson.Valid(inner) {
			return gjson.Parse(inner), true
		}
	}

	if candidates, err := uniai.CollectJSONCandidates(s); err == nil {
		for _, cand := range candidates {
			if gjson.Valid(cand) {
				return gjson.Parse(cand), true
			}
		}
	}
	if repaired := uniai.AttemptJSONRepair(s); gjson.Valid(repaired) {
		return gjson.Parse(repaired), true
	}
	return gjson.Result{}, false
}

func stripFences(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

// ValidateAndFixJSON parses model output and casts each recognized key to the
// Notion property payload its schema type demands. Keys not in the schema are
// dropped; unparseable input yields an empty object.
func ValidateAndFixJSON(raw string, schema notion.Schema) []byte {
	data, ok := parseModelJSON(raw)
	if !ok || !data.IsObject() {
		return []byte(`{}`)
	}

	out := []byte(`{}`)
	data.ForEach(func(key, val gjson.Result) bool {
		spec, known := schema[key.String()]
		if !known {
			return true
		}
		path := notion.EscapePath(key.String())

		// Unwrap values already in Notion payload shape, {"title": [...]} etc.
		if val.IsObject() {
			if inner := val.Get(spec.Type); inner.Exists() {
				val = inner
			}
		}

		switch spec.Type {
		case "select":
			if name := optionName(val); name != "" {
				out, _ = sjson.SetBytes(out, path+".select.name", name)
			}
		case "status":
			if name := optionName(val); name != "" {
				out, _ = sjson.SetBytes(out, path+".status.name", name)
			}
		case "multi_select":
			items := val.Array()
			if !val.IsArray() {
				items = []gjson.Result{val}
			}
			opts := []byte(`[]`)
			for _, item := range items {
				if name := optionName(item); name != "" {
					opt, _ := sjson.SetBytes([]byte(`{}`), "name", name)
					opts, _ = sjson.SetRawBytes(opts, "-1", opt)
				}
			}
			out, _ = sjson.SetRawBytes(out, path+".multi_select", opts)
		case "date":
			start := val
			if val.IsObject() {
				start = val.Get("start")
			}
			if s := scalarString(start); s != "" {
				out, _ = sjson.SetBytes(out, path+".date.start", s)
			}
		case "checkbox":
			out, _ = sjson.SetBytes(out, path+".checkbox", truthy(val))
		case "number":
			if n, ok := asNumber(val); ok {
				out, _ = sjson.SetBytes(out, path+".number", n)
			}
		case "title":
			out, _ = sjson.SetBytes(out, path+".title.0.text.content", textValue(val))
		case "rich_text":
			out, _ = sjson.SetBytes(out, path+".rich_text.0.text.content", textValue(val))
		case "people", "files":
			// need real Notion ids, nothing castable
		}
		return true
	})
	return out
}

// optionName accepts either a bare value or a {"name": ...} object.
func optionName(val gjson.Result) string {
	if val.IsObject() {
		val = val.Get("name")
	}
	return scalarString(val)
}

// textValue flattens rich_text-shaped arrays back to plain text.
func textValue(val gjson.Result) string {
	if val.IsArray() {
		var b strings.Builder
		val.ForEach(func(_, item gjson.Result) bool {
			if s := item.Get("plain_text").String(); s != "" {
				b.WriteString(s)
			} else {
				b.WriteString(item.Get("text.content").String())
			}
			return true
		})
		return b.String()
	}
	return scalarString(val)
}

func scalarString(val gjson.Result) string {
	switch val.Type {
	case gjson.Null:
		return ""
	default:
		return val.String()
	}
}

func truthy(val gjson.Result) bool {
	switch val.Type {
	case gjson.True:
		return true
	case gjson.False, gjson.Null:
		return false
	case gjson.Number:
		return val.Float() != 0
	case gjson.String:
		return val.String() != "" && !strings.EqualFold(val.String(), "false")
	default:
		return val.Exists()
	}
}

func asNumber(val gjson.Result) (float64, bool) {
	switch val.Type {
	case gjson.Number:
		return val.Float(), true
	case gjson.String:
		n, err := strconv.ParseFloat(strings.TrimSpace(val.String()), 64)
		return n, err == nil
	}
	return 0, false
}
