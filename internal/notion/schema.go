package notion

import "github.com/tidwall/gjson"

// PropertySpec is the distilled shape of one database property: its Notion
// type plus option names for select-like types.
type PropertySpec struct {
	Type    string
	Options []string
}

// Schema maps property names to their specs.
type Schema map[string]PropertySpec

// ParseSchema distills a Notion "properties" object into a Schema.
func ParseSchema(props gjson.Result) Schema {
	schema := make(Schema)
	props.ForEach(func(key, val gjson.Result) bool {
		spec := PropertySpec{Type: val.Get("type").String()}
		switch spec.Type {
		case "select", "multi_select", "status":
			val.Get(spec.Type + ".options").ForEach(func(_, opt gjson.Result) bool {
				spec.Options = append(spec.Options, opt.Get("name").String())
				return true
			})
		}
		schema[key.String()] = spec
		return true
	})
	return schema
}

// TitleKey returns the name of the title property, or "" when absent.
func (s Schema) TitleKey() string {
	for name, spec := range s {
		if spec.Type == "title" {
			return name
		}
	}
	return ""
}

// DefaultPageSchema is the schema used for chat sessions targeting a plain
// page rather than a database.
func DefaultPageSchema() Schema {
	return Schema{
		"Title":   {Type: "title"},
		"Content": {Type: "rich_text"},
	}
}
