package notion

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/tidwall/gjson"
)

func TestExtractPlainText(t *testing.T) {
	items := gjson.Parse(`[{"plain_text":"Hello, "},{"plain_text":"world"}]`)
	assert.Equal(t, "Hello, world", ExtractPlainText(items))

	assert.Equal(t, "", ExtractPlainText(gjson.Parse(`[]`)))
	assert.Equal(t, "", ExtractPlainText(gjson.Result{}))
}

func TestSanitizeImageData(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"markdown data uri", "before ![img](data:image/png;base64,AAAA) after", "before  after"},
		{"html img tag", `x <img src="data:image/jpeg;base64,QUFB" alt="y"> z`, "x  z"},
		{"send marker", "メモ[画像送信]", "メモ"},
		{"plain text untouched", "just a note", "just a note"},
		{"regular image link kept", "![alt](https://example.com/a.png)", "![alt](https://example.com/a.png)"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, SanitizeImageData(tc.in))
		})
	}
}

func TestSanitizeProperties_StripsImagesAndChunks(t *testing.T) {
	long := strings.Repeat("あ", BlockCharLimit+5)
	props := []byte(`{"Memo":{"rich_text":[{"type":"text","text":{"content":"` + long + `"}}]},"Done":{"checkbox":true}}`)

	out := SanitizeProperties(props)

	items := gjson.GetBytes(out, "Memo.rich_text").Array()
	assert.Len(t, items, 2)
	assert.Len(t, []rune(items[0].Get("text.content").String()), BlockCharLimit)
	assert.Len(t, []rune(items[1].Get("text.content").String()), 5)
	// untouched sibling property
	assert.True(t, gjson.GetBytes(out, "Done.checkbox").Bool())
}

func TestSanitizeProperties_TitleImageStripped(t *testing.T) {
	props := []byte(`{"Name":{"title":[{"type":"text","text":{"content":"note ![i](data:image/png;base64,AAAA)"}}]}}`)
	out := SanitizeProperties(props)
	assert.Equal(t, "note", gjson.GetBytes(out, "Name.title.0.text.content").String())
}

func TestEnsureTitleProperty(t *testing.T) {
	schema := Schema{"Name": {Type: "title"}, "Memo": {Type: "rich_text"}}

	t.Run("title present is untouched", func(t *testing.T) {
		props := []byte(`{"Name":{"title":[{"text":{"content":"kept"}}]}}`)
		out := EnsureTitleProperty(props, schema, "fallback")
		assert.Equal(t, "kept", gjson.GetBytes(out, "Name.title.0.text.content").String())
	})

	t.Run("missing title generated from fallback", func(t *testing.T) {
		props := []byte(`{"Memo":{"rich_text":[{"text":{"content":"x"}}]}}`)
		out := EnsureTitleProperty(props, schema, "first line\nsecond line")
		assert.Equal(t, "first line", gjson.GetBytes(out, "Name.title.0.text.content").String())
	})

	t.Run("empty fallback becomes Untitled", func(t *testing.T) {
		out := EnsureTitleProperty([]byte(`{}`), Schema{}, "")
		assert.Equal(t, "Untitled", gjson.GetBytes(out, "Name.title.0.text.content").String())
	})

	t.Run("fallback capped at 100 chars", func(t *testing.T) {
		out := EnsureTitleProperty([]byte(`{}`), schema, strings.Repeat("t", 150))
		assert.Len(t, []rune(gjson.GetBytes(out, "Name.title.0.text.content").String()), 100)
	})
}

func TestContentBlocks(t *testing.T) {
	assert.Nil(t, ContentBlocks(""))

	blocks := ContentBlocks(strings.Repeat("a", BlockCharLimit*2+1))
	assert.Len(t, blocks, 3)
	first := gjson.GetBytes(blocks[0], "paragraph.rich_text.0.text.content").String()
	assert.Len(t, first, BlockCharLimit)
	assert.Equal(t, "paragraph", gjson.GetBytes(blocks[0], "type").String())
}

func TestParseSchema(t *testing.T) {
	raw := gjson.Parse(`{
		"Name": {"type": "title", "title": {}},
		"Tag": {"type": "select", "select": {"options": [{"name": "a"}, {"name": "b"}]}},
		"Labels": {"type": "multi_select", "multi_select": {"options": [{"name": "x"}]}}
	}`)
	schema := ParseSchema(raw)
	assert.Equal(t, "title", schema["Name"].Type)
	assert.Equal(t, []string{"a", "b"}, schema["Tag"].Options)
	assert.Equal(t, []string{"x"}, schema["Labels"].Options)
	assert.Equal(t, "Name", schema.TitleKey())
	assert.Equal(t, "", Schema{}.TitleKey())
}
