package record

import (
	"bytes"
	"encoding/json"
	"math"
	"strings"
)

// Property is one property value of a page. Decoding never fails; the raw
// members are kept and interpreted lazily by the extractors.
type Property struct {
	Type   string
	fields map[string]json.RawMessage
}

// UnmarshalJSON implements json.Unmarshaler.
func (p *Property) UnmarshalJSON(b []byte) error {
	var m map[string]json.RawMessage
	if err := json.Unmarshal(b, &m); err != nil {
		malformed("property", b, err)
		*p = Property{}
		return nil
	}
	p.fields = m
	p.Type = ""
	if raw, ok := m["type"]; ok {
		if err := json.Unmarshal(raw, &p.Type); err != nil {
			p.Type = ""
		}
	}
	return nil
}

// MarshalJSON implements json.Marshaler.
func (p Property) MarshalJSON() ([]byte, error) {
	if p.fields == nil {
		return []byte("null"), nil
	}
	return json.Marshal(p.fields)
}

var emptyValues = [][]byte{
	[]byte("null"),
	[]byte("[]"),
	[]byte(`""`),
	[]byte("{}"),
}

// IsEmpty reports whether no member besides id and type carries a value.
func (p Property) IsEmpty() bool {
	for key, raw := range p.fields {
		if key == "id" || key == "type" {
			continue
		}
		trimmed := bytes.TrimSpace(raw)
		empty := len(trimmed) == 0
		for _, v := range emptyValues {
			if bytes.Equal(trimmed, v) {
				empty = true
				break
			}
		}
		if !empty {
			return false
		}
	}
	return true
}

func (p Property) raw(key string) (json.RawMessage, bool) {
	raw, ok := p.fields[key]
	if !ok {
		return nil, false
	}
	if t := bytes.TrimSpace(raw); len(t) == 0 || bytes.Equal(t, []byte("null")) {
		return nil, false
	}
	return raw, true
}

func (p Property) object(key string) (Property, bool) {
	raw, ok := p.raw(key)
	if !ok {
		return Property{}, false
	}
	var sub Property
	_ = sub.UnmarshalJSON(raw)
	return sub, sub.fields != nil
}

func (p Property) str(key string) (string, bool) {
	raw, ok := p.raw(key)
	if !ok {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		malformed(key, raw, err)
		return "", false
	}
	return s, true
}

// num reads a JSON number, accepting numeric strings as well.
func (p Property) num(key string) (float64, bool) {
	raw, ok := p.raw(key)
	if !ok {
		return 0, false
	}
	var n float64
	if err := json.Unmarshal(raw, &n); err == nil {
		if math.IsNaN(n) || math.IsInf(n, 0) {
			return 0, false
		}
		return n, true
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if v, ok := parseFinite(s); ok {
			return v, true
		}
	}
	malformed(key, raw, nil)
	return 0, false
}

type span struct {
	PlainText string `json:"plain_text"`
	Text      *struct {
		Content string `json:"content"`
	} `json:"text,omitempty"`
}

func (p Property) spans(key string) string {
	raw, ok := p.raw(key)
	if !ok {
		return ""
	}
	var ss []span
	if err := json.Unmarshal(raw, &ss); err != nil {
		malformed(key, raw, err)
		return ""
	}
	var b strings.Builder
	for _, s := range ss {
		if s.PlainText == "" && s.Text != nil {
			b.WriteString(s.Text.Content)
			continue
		}
		b.WriteString(s.PlainText)
	}
	return b.String()
}

type named struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

func (p Property) list(key string) []named {
	raw, ok := p.raw(key)
	if !ok {
		return nil
	}
	var items []named
	if err := json.Unmarshal(raw, &items); err != nil {
		malformed(key, raw, err)
		return nil
	}
	return items
}

// Text concatenates title or rich-text spans. Formula strings and bare
// plain_text members are read as a fallback.
func (p Property) Text() string {
	for _, key := range []string{"title", "rich_text"} {
		if s := p.spans(key); s != "" {
			return s
		}
	}
	if s, ok := p.str("plain_text"); ok {
		return s
	}
	if f, ok := p.object("formula"); ok {
		if s, ok := f.str("string"); ok {
			return s
		}
	}
	return ""
}

// LookupNumber resolves a numeric value. The order is fixed: direct number,
// formula number, rollup number, "<N>分" choice label, numeric text.
func (p Property) LookupNumber() (float64, bool) {
	if n, ok := p.num("number"); ok {
		return n, true
	}
	for _, key := range []string{"formula", "rollup"} {
		if sub, ok := p.object(key); ok {
			if n, ok := sub.num("number"); ok {
				return n, true
			}
		}
	}
	if label := p.Select(); label != "" {
		if n, ok := lookupLabelScore(label); ok {
			return n, true
		}
	}
	if n, ok := lookupNumericText(p.Text()); ok {
		return n, true
	}
	return 0, false
}

// Number is LookupNumber defaulting to 0.
func (p Property) Number() float64 {
	n, _ := p.LookupNumber()
	return n
}

// Date returns the start of a date value. Formula and rollup dates and the
// created/last-edited property types are accepted.
func (p Property) Date() (string, bool) {
	if d, ok := p.object("date"); ok {
		if s, ok := d.str("start"); ok && s != "" {
			return s, true
		}
	}
	for _, key := range []string{"formula", "rollup"} {
		if sub, ok := p.object(key); ok {
			if d, ok := sub.object("date"); ok {
				if s, ok := d.str("start"); ok && s != "" {
					return s, true
				}
			}
		}
	}
	for _, key := range []string{"created_time", "last_edited_time"} {
		if s, ok := p.str(key); ok && s != "" {
			return s, true
		}
	}
	return "", false
}

// Select returns the name of a select or status option.
func (p Property) Select() string {
	for _, key := range []string{"select", "status"} {
		if o, ok := p.object(key); ok {
			if s, ok := o.str("name"); ok {
				return s
			}
		}
	}
	return ""
}

// MultiSelect returns the option names, never nil.
func (p Property) MultiSelect() []string {
	items := p.list("multi_select")
	out := make([]string, 0, len(items))
	for _, it := range items {
		out = append(out, it.Name)
	}
	return out
}

// Relation returns the related page ids, never nil.
func (p Property) Relation() []string {
	items := p.list("relation")
	out := make([]string, 0, len(items))
	for _, it := range items {
		if it.ID != "" {
			out = append(out, it.ID)
		}
	}
	return out
}

// Checkbox is true only for an explicit true.
func (p Property) Checkbox() bool {
	raw, ok := p.raw("checkbox")
	if !ok {
		return false
	}
	var b bool
	if err := json.Unmarshal(raw, &b); err != nil {
		malformed("checkbox", raw, err)
		return false
	}
	return b
}

// URL returns the url value.
func (p Property) URL() string {
	s, _ := p.str("url")
	return s
}

// Labels returns the values used when grouping: multi-select names, else the
// select name, else the text. Empty values are dropped.
func (p Property) Labels() []string {
	if ms := p.MultiSelect(); len(ms) > 0 {
		out := ms[:0]
		for _, s := range ms {
			if strings.TrimSpace(s) != "" {
				out = append(out, s)
			}
		}
		return out
	}
	if s := p.Select(); s != "" {
		return []string{s}
	}
	if s := strings.TrimSpace(p.Text()); s != "" {
		return []string{s}
	}
	return []string{}
}
