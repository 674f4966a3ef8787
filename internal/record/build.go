package record

import (
	"encoding/json"
)

// The constructors below produce property values in the upstream shape. They
// are used for update payloads and for fixtures.

func build(key string, v any) Property {
	raw, err := json.Marshal(v)
	if err != nil {
		return Property{}
	}
	return Property{fields: map[string]json.RawMessage{key: raw}}
}

func richSpans(s string) []map[string]any {
	return []map[string]any{{
		"type":       "text",
		"text":       map[string]string{"content": s},
		"plain_text": s,
	}}
}

// TitleValue builds a title property.
func TitleValue(s string) Property { return build("title", richSpans(s)) }

// RichTextValue builds a rich-text property.
func RichTextValue(s string) Property { return build("rich_text", richSpans(s)) }

// NumberValue builds a number property.
func NumberValue(n float64) Property { return build("number", n) }

// SelectValue builds a select property.
func SelectValue(name string) Property {
	return build("select", map[string]string{"name": name})
}

// StatusValue builds a status property.
func StatusValue(name string) Property {
	return build("status", map[string]string{"name": name})
}

// MultiSelectValue builds a multi-select property.
func MultiSelectValue(names ...string) Property {
	opts := make([]map[string]string, 0, len(names))
	for _, n := range names {
		opts = append(opts, map[string]string{"name": n})
	}
	return build("multi_select", opts)
}

// DateValue builds a date property starting at start.
func DateValue(start string) Property {
	return build("date", map[string]any{"start": start})
}

// RelationValue builds a relation to ids.
func RelationValue(ids ...string) Property {
	refs := make([]map[string]string, 0, len(ids))
	for _, id := range ids {
		refs = append(refs, map[string]string{"id": id})
	}
	return build("relation", refs)
}

// CheckboxValue builds a checkbox property.
func CheckboxValue(b bool) Property { return build("checkbox", b) }

// FormulaNumberValue builds a formula property with a numeric result.
func FormulaNumberValue(n float64) Property {
	return build("formula", map[string]any{"type": "number", "number": n})
}

// RollupNumberValue builds a rollup property with a numeric result.
func RollupNumberValue(n float64) Property {
	return build("rollup", map[string]any{"type": "number", "number": n})
}

// New builds a record from a label to property map.
func New(id string, props map[string]Property) Record {
	if props == nil {
		props = map[string]Property{}
	}
	return Record{ID: id, Properties: props}
}
