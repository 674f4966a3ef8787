// Package record decodes upstream database pages and extracts typed values
// from their properties.
//
// Extraction is total: a property that is missing or carries an unexpected
// shape reads as the default of the requested type. Unexpected shapes are
// logged at debug level and never surface as errors.
package record

import (
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"lifeos/internal/dates"
)

// Record is one page of an upstream database.
type Record struct {
	ID             string              `json:"id"`
	CreatedTime    string              `json:"created_time,omitempty"`
	LastEditedTime string              `json:"last_edited_time,omitempty"`
	Properties     map[string]Property `json:"properties"`
}

// Decode reads one upstream page.
func Decode(raw json.RawMessage) (Record, error) {
	var r Record
	if err := json.Unmarshal(raw, &r); err != nil {
		return Record{}, fmt.Errorf("decode record: %w", err)
	}
	if r.Properties == nil {
		r.Properties = map[string]Property{}
	}
	return r, nil
}

// DecodeAll reads a list of pages, skipping entries that are not objects.
func DecodeAll(raws []json.RawMessage) []Record {
	out := make([]Record, 0, len(raws))
	for _, raw := range raws {
		r, err := Decode(raw)
		if err != nil {
			malformed("record", raw, err)
			continue
		}
		out = append(out, r)
	}
	return out
}

// Property returns the property stored under label, or the zero Property.
func (r Record) Property(label string) Property {
	return r.Properties[label]
}

// Has reports whether the record carries label at all.
func (r Record) Has(label string) bool {
	_, ok := r.Properties[label]
	return ok
}

// Lookup resolves a semantic field to the first candidate label present on
// the record that holds a non-empty value, falling back to the first present
// candidate.
func (r Record) Lookup(f Field) (Property, Candidate, bool) {
	var (
		first    Property
		firstC   Candidate
		hasFirst bool
	)
	for _, c := range f.Candidates {
		p, ok := r.Properties[c.Label]
		if !ok {
			continue
		}
		if !p.IsEmpty() {
			return p, c, true
		}
		if !hasFirst {
			first, firstC, hasFirst = p, c, true
		}
	}
	return first, firstC, hasFirst
}

func (r Record) field(f Field) Property {
	p, _, _ := r.Lookup(f)
	return p
}

// Text returns the plain text of f, or "".
func (r Record) Text(f Field) string { return r.field(f).Text() }

// Number returns the resolved number of f, or 0.
func (r Record) Number(f Field) float64 { return r.field(f).Number() }

// Select returns the choice label of f, or "".
func (r Record) Select(f Field) string { return r.field(f).Select() }

// MultiSelect returns the choice labels of f, never nil.
func (r Record) MultiSelect(f Field) []string { return r.field(f).MultiSelect() }

// Relation returns the related page ids of f, never nil.
func (r Record) Relation(f Field) []string { return r.field(f).Relation() }

// Checkbox reports whether f is checked.
func (r Record) Checkbox(f Field) bool { return r.field(f).Checkbox() }

// URL returns the url value of f, or "".
func (r Record) URL(f Field) string { return r.field(f).URL() }

// Labels returns the grouping values of f: choice labels, else the text.
func (r Record) Labels(f Field) []string { return r.field(f).Labels() }

// LookupNumber is Number with a presence flag.
func (r Record) LookupNumber(f Field) (float64, bool) {
	for _, c := range f.Candidates {
		if p, ok := r.Properties[c.Label]; ok {
			if n, ok := p.LookupNumber(); ok {
				return n, true
			}
		}
	}
	return 0, false
}

// Date returns the ISO date string of f.
func (r Record) Date(f Field) (string, bool) {
	return r.field(f).Date()
}

// Time parses the date of f in loc.
func (r Record) Time(f Field, loc *time.Location) (time.Time, bool) {
	s, ok := r.Date(f)
	if !ok {
		return time.Time{}, false
	}
	return dates.Parse(s, loc)
}

// DayKey returns the calendar day of f in loc.
func (r Record) DayKey(f Field, loc *time.Location) (string, bool) {
	s, ok := r.Date(f)
	if !ok {
		return "", false
	}
	return dates.KeyOf(s, loc)
}

// Minutes returns the duration stored in f converted to minutes using the
// unit of the candidate label that held it.
func (r Record) Minutes(f Field) (float64, bool) {
	for _, c := range f.Candidates {
		p, ok := r.Properties[c.Label]
		if !ok {
			continue
		}
		n, ok := p.LookupNumber()
		if !ok {
			continue
		}
		return c.Unit.ToMinutes(n), true
	}
	return 0, false
}

// RelatedTo reports whether the relation f contains id.
func (r Record) RelatedTo(f Field, id string) bool {
	for _, rel := range r.Relation(f) {
		if rel == id {
			return true
		}
	}
	return false
}

// CreatedAt parses the page creation time.
func (r Record) CreatedAt() (time.Time, bool) {
	return dates.Parse(r.CreatedTime, time.UTC)
}

func malformed(kind string, raw []byte, err error) {
	const maxSample = 120
	sample := string(raw)
	if len(sample) > maxSample {
		sample = sample[:maxSample]
	}
	zap.L().Named("record").Debug("malformed value",
		zap.String("kind", kind),
		zap.String("sample", sample),
		zap.Error(err))
}
