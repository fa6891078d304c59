package ai

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"memoai-go/internal/notion"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// Turn is one prior conversation message.
type Turn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// PromptStore holds the default system prompt, swappable on config reload.
type PromptStore struct {
	mu     sync.RWMutex
	prompt string
}

// NewPromptStore seeds the store with the configured default.
func NewPromptStore(prompt string) *PromptStore {
	return &PromptStore{prompt: prompt}
}

func (p *PromptStore) Default() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.prompt
}

func (p *PromptStore) SetDefault(prompt string) {
	p.mu.Lock()
	p.prompt = prompt
	p.mu.Unlock()
}

// schemaSummary renders the schema as a compact JSON object the model can
// read: property name to type, with option names for select-like types.
func schemaSummary(schema notion.Schema) string {
	keys := make([]string, 0, len(schema))
	for k := range schema {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := []byte(`{}`)
	for _, k := range keys {
		spec := schema[k]
		desc := spec.Type
		if len(spec.Options) > 0 {
			desc += fmt.Sprintf(" options: [%s]", strings.Join(spec.Options, ", "))
		}
		out, _ = sjson.SetBytes(out, notion.EscapePath(k), desc)
	}
	return string(out)
}

// SimplifyExamples flattens recent page properties into one line per page,
// used as few-shot examples in the data-entry prompt.
func SimplifyExamples(pages []gjson.Result) string {
	var b strings.Builder
	for _, props := range pages {
		line := []byte(`{}`)
		props.ForEach(func(key, val gjson.Result) bool {
			path := notion.EscapePath(key.String())
			switch val.Get("type").String() {
			case "title":
				line, _ = sjson.SetBytes(line, path, notion.ExtractPlainText(val.Get("title")))
			case "rich_text":
				line, _ = sjson.SetBytes(line, path, notion.ExtractPlainText(val.Get("rich_text")))
			case "select":
				line, _ = sjson.SetBytes(line, path, val.Get("select.name").Value())
			case "multi_select":
				var names []string
				val.Get("multi_select").ForEach(func(_, opt gjson.Result) bool {
					names = append(names, opt.Get("name").String())
					return true
				})
				line, _ = sjson.SetBytes(line, path, names)
			case "date":
				line, _ = sjson.SetBytes(line, path, val.Get("date.start").Value())
			case "checkbox":
				line, _ = sjson.SetBytes(line, path, val.Get("checkbox").Bool())
			default:
				line, _ = sjson.SetBytes(line, path, "N/A")
			}
			return true
		})
		b.WriteString("- ")
		b.Write(line)
		b.WriteString("\n")
	}
	return b.String()
}

// ConstructPrompt builds the one-shot data-entry prompt: schema, recent
// examples, the user input, and a strict-JSON instruction.
func ConstructPrompt(text string, schema notion.Schema, examples []gjson.Result, systemPrompt string) string {
	var b strings.Builder
	b.WriteString(systemPrompt)
	b.WriteString("\n\nTarget Database Schema:\n")
	b.WriteString(schemaSummary(schema))
	b.WriteString("\n\nRecent Examples:\n")
	b.WriteString(SimplifyExamples(examples))
	b.WriteString("\nUser Input:\n")
	b.WriteString(text)
	b.WriteString("\n\nOutput JSON format strictly. NO markdown code blocks.\n")
	return b.String()
}

// ConstructChatPrompt builds the conversational prompt, carrying prior turns
// and the response structure contract.
func ConstructChatPrompt(text string, schema notion.Schema, systemPrompt string, history []Turn) string {
	var hist strings.Builder
	for _, turn := range history {
		if turn.Role == "system" {
			hist.WriteString("[System Info]: " + turn.Content + "\n")
			continue
		}
		hist.WriteString(strings.ToUpper(turn.Role) + ": " + turn.Content + "\n")
	}

	if text == "" {
		text = "(No text provided)"
	}

	var b strings.Builder
	b.WriteString(systemPrompt)
	b.WriteString("\n\nTarget Schema:\n")
	b.WriteString(schemaSummary(schema))
	b.WriteString("\n\nSession History:\n")
	b.WriteString(hist.String())
	b.WriteString("\nCurrent User Input:\n")
	b.WriteString(text)
	b.WriteString(`

Restraints:
- You are a helpful AI assistant.
- Your output must be valid JSON ONLY.
- Structure:
{
  "message": "Response to the user",
  "refined_text": "Refined version of the input, if applicable (or null)",
  "properties": { "Property Name": "Value" }
}
- If the user is just chatting, "properties" should be null.
- If the user wants to save/add data, fill "properties" according to the Schema.
`)
	return b.String()
}
