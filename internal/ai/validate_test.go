package ai

import (
	"testing"

	"memoai-go/internal/notion"

	"github.com/stretchr/testify/assert"
	"github.com/tidwall/gjson"
)

func taskSchema() notion.Schema {
	return notion.Schema{
		"Name":     {Type: "title"},
		"Memo":     {Type: "rich_text"},
		"Tag":      {Type: "select", Options: []string{"idea", "task"}},
		"Labels":   {Type: "multi_select"},
		"State":    {Type: "status"},
		"Due":      {Type: "date"},
		"Done":     {Type: "checkbox"},
		"Points":   {Type: "number"},
		"Assignee": {Type: "people"},
	}
}

func TestValidateAndFixJSON_CastsTypes(t *testing.T) {
	raw := `{
		"Name": "write report",
		"Memo": "details here",
		"Tag": "task",
		"Labels": ["work", "urgent"],
		"State": {"name": "In progress"},
		"Due": "2026-03-01",
		"Done": true,
		"Points": "3.5",
		"Assignee": "someone",
		"Unknown": "dropped"
	}`
	out := ValidateAndFixJSON(raw, taskSchema())

	assert.Equal(t, "write report", gjson.GetBytes(out, "Name.title.0.text.content").String())
	assert.Equal(t, "details here", gjson.GetBytes(out, "Memo.rich_text.0.text.content").String())
	assert.Equal(t, "task", gjson.GetBytes(out, "Tag.select.name").String())
	assert.Equal(t, "work", gjson.GetBytes(out, "Labels.multi_select.0.name").String())
	assert.Equal(t, "urgent", gjson.GetBytes(out, "Labels.multi_select.1.name").String())
	assert.Equal(t, "In progress", gjson.GetBytes(out, "State.status.name").String())
	assert.Equal(t, "2026-03-01", gjson.GetBytes(out, "Due.date.start").String())
	assert.True(t, gjson.GetBytes(out, "Done.checkbox").Bool())
	assert.Equal(t, 3.5, gjson.GetBytes(out, "Points.number").Float())
	assert.False(t, gjson.GetBytes(out, "Assignee").Exists())
	assert.False(t, gjson.GetBytes(out, "Unknown").Exists())
}

func TestValidateAndFixJSON_StripsCodeFences(t *testing.T) {
	out := ValidateAndFixJSON("```json\n{\"Tag\": \"idea\"}\n```", taskSchema())
	assert.Equal(t, "idea", gjson.GetBytes(out, "Tag.select.name").String())
}

func TestValidateAndFixJSON_RecoversEmbeddedObject(t *testing.T) {
	out := ValidateAndFixJSON(`Here is the result: {"Name": "x"} hope it helps`, taskSchema())
	assert.Equal(t, "x", gjson.GetBytes(out, "Name.title.0.text.content").String())
}

func TestValidateAndFixJSON_FatalReturnsEmptyObject(t *testing.T) {
	assert.Equal(t, `{}`, string(ValidateAndFixJSON("not json at all", taskSchema())))
	assert.Equal(t, `{}`, string(ValidateAndFixJSON("", taskSchema())))
}

func TestValidateAndFixJSON_ScalarCoercions(t *testing.T) {
	schema := taskSchema()

	// single value promoted to multi_select array
	out := ValidateAndFixJSON(`{"Labels": "solo"}`, schema)
	assert.Equal(t, "solo", gjson.GetBytes(out, "Labels.multi_select.0.name").String())

	// select given as an object
	out = ValidateAndFixJSON(`{"Tag": {"name": "idea"}}`, schema)
	assert.Equal(t, "idea", gjson.GetBytes(out, "Tag.select.name").String())

	// date given as an object
	out = ValidateAndFixJSON(`{"Due": {"start": "2026-01-02"}}`, schema)
	assert.Equal(t, "2026-01-02", gjson.GetBytes(out, "Due.date.start").String())

	// null select dropped, non-numeric number dropped
	out = ValidateAndFixJSON(`{"Tag": null, "Points": "many"}`, schema)
	assert.False(t, gjson.GetBytes(out, "Tag").Exists())
	assert.False(t, gjson.GetBytes(out, "Points").Exists())

	// title given as rich_text-shaped array
	out = ValidateAndFixJSON(`{"Name": [{"plain_text": "a"}, {"plain_text": "b"}]}`, schema)
	assert.Equal(t, "ab", gjson.GetBytes(out, "Name.title.0.text.content").String())

	// title echoing the write-side shape
	out = ValidateAndFixJSON(`{"Name": [{"text": {"content": "echoed"}}]}`, schema)
	assert.Equal(t, "echoed", gjson.GetBytes(out, "Name.title.0.text.content").String())

	// full Notion payload shape passes through intact
	out = ValidateAndFixJSON(`{"Name": {"title": [{"text": {"content": "wrapped"}}]}, "Tag": {"select": {"name": "task"}}}`, schema)
	assert.Equal(t, "wrapped", gjson.GetBytes(out, "Name.title.0.text.content").String())
	assert.Equal(t, "task", gjson.GetBytes(out, "Tag.select.name").String())
}
