package notion

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

var (
	// Markdown images with a data URI: ![alt](data:image/png;base64,...)
	mdDataImagePattern = regexp.MustCompile(`(?s)!\[.*?\]\(data:image/.*?\)`)
	// HTML img tags with a data URI src.
	htmlDataImagePattern = regexp.MustCompile(`(?s)<img[^>]+src=["']data:image/[^"']+["'][^>]*>`)
)

// ExtractPlainText joins the plain_text of a rich_text/title array.
func ExtractPlainText(items gjson.Result) string {
	var b strings.Builder
	items.ForEach(func(_, item gjson.Result) bool {
		b.WriteString(item.Get("plain_text").String())
		return true
	})
	return b.String()
}

// SanitizeImageData strips inline base64 image payloads from text. Long data
// URIs blow past Notion's limits and bloat every payload they ride in.
func SanitizeImageData(text string) string {
	text = mdDataImagePattern.ReplaceAllString(text, "")
	text = htmlDataImagePattern.ReplaceAllString(text, "")
	text = strings.ReplaceAll(text, "[画像送信]", "")
	return strings.TrimSpace(text)
}

// SanitizeProperties cleans rich_text and title values: inline images are
// stripped and over-long items split at the per-item character limit.
func SanitizeProperties(properties []byte) []byte {
	out := properties
	gjson.ParseBytes(properties).ForEach(func(key, val gjson.Result) bool {
		for _, field := range []string{"rich_text", "title"} {
			items := val.Get(field)
			if !items.IsArray() || len(items.Array()) == 0 {
				continue
			}
			rebuilt := sanitizeRichTextItems(items)
			out, _ = sjson.SetRawBytes(out, EscapePath(key.String())+"."+field, rebuilt)
		}
		return true
	})
	return out
}

func sanitizeRichTextItems(items gjson.Result) []byte {
	out := []byte(`[]`)
	items.ForEach(func(_, item gjson.Result) bool {
		content := item.Get("text.content")
		if !content.Exists() {
			out, _ = sjson.SetRawBytes(out, "-1", []byte(item.Raw))
			return true
		}
		clean := SanitizeImageData(content.String())
		for _, chunk := range chunkString(clean, BlockCharLimit) {
			piece := []byte(`{"type":"text","text":{"content":""}}`)
			piece, _ = sjson.SetBytes(piece, "text.content", chunk)
			if ann := item.Get("annotations"); ann.Exists() {
				piece, _ = sjson.SetRawBytes(piece, "annotations", []byte(ann.Raw))
			}
			out, _ = sjson.SetRawBytes(out, "-1", piece)
		}
		return true
	})
	return out
}

// EnsureTitleProperty guarantees a title property exists, deriving one from
// the fallback text when the AI did not produce any.
func EnsureTitleProperty(properties []byte, schema Schema, fallback string) []byte {
	hasTitle := false
	gjson.ParseBytes(properties).ForEach(func(_, val gjson.Result) bool {
		if val.Get("title").Exists() {
			hasTitle = true
			return false
		}
		return true
	})
	if hasTitle {
		return properties
	}

	key := schema.TitleKey()
	if key == "" {
		key = "Name"
	}
	safe := fallback
	if safe == "" {
		safe = "Untitled"
	}
	safe = strings.SplitN(safe, "\n", 2)[0]
	if runes := []rune(safe); len(runes) > 100 {
		safe = string(runes[:100])
	}

	title := []byte(`[{"text":{"content":""}}]`)
	title, _ = sjson.SetBytes(title, "0.text.content", safe)
	out, _ := sjson.SetRawBytes(properties, EscapePath(key)+".title", title)
	return out
}

// ContentBlocks converts text into paragraph block payloads, split at the
// per-item character limit.
func ContentBlocks(text string) []json.RawMessage {
	if text == "" {
		return nil
	}
	chunks := chunkString(text, BlockCharLimit)
	blocks := make([]json.RawMessage, 0, len(chunks))
	for _, chunk := range chunks {
		block := []byte(`{"object":"block","type":"paragraph","paragraph":{"rich_text":[{"type":"text","text":{"content":""}}]}}`)
		block, _ = sjson.SetBytes(block, "paragraph.rich_text.0.text.content", chunk)
		blocks = append(blocks, block)
	}
	return blocks
}

// chunkString splits s into rune-safe pieces of at most limit characters.
// Strings within the limit (including empty) come back as a single piece.
func chunkString(s string, limit int) []string {
	runes := []rune(s)
	if len(runes) <= limit {
		return []string{s}
	}
	var out []string
	for i := 0; i < len(runes); i += limit {
		end := i + limit
		if end > len(runes) {
			end = len(runes)
		}
		out = append(out, string(runes[i:end]))
	}
	return out
}

var pathEscaper = strings.NewReplacer(".", `\.`, "*", `\*`, "?", `\?`, "|", `\|`, "#", `\#`, "@", `\@`)

// EscapePath escapes a property name for use as a gjson/sjson path segment.
func EscapePath(key string) string {
	return pathEscaper.Replace(key)
}
