package record

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Unit tells how a numeric duration candidate is stored.
type Unit int

const (
	UnitNone Unit = iota
	UnitMinutes
	UnitHours
)

// ToMinutes converts n from u to minutes. UnitNone is taken as minutes.
func (u Unit) ToMinutes(n float64) float64 {
	if u == UnitHours {
		return n * 60
	}
	return n
}

func (u Unit) String() string {
	switch u {
	case UnitMinutes:
		return "minutes"
	case UnitHours:
		return "hours"
	default:
		return ""
	}
}

// ParseUnit reads "minutes", "hours" or an empty string.
func ParseUnit(s string) (Unit, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return UnitNone, nil
	case "minutes", "minute", "min", "m":
		return UnitMinutes, nil
	case "hours", "hour", "h":
		return UnitHours, nil
	}
	return UnitNone, fmt.Errorf("unknown unit %q", s)
}

// Candidate is one label a semantic field may be stored under.
type Candidate struct {
	Label string
	Unit  Unit
}

// Field is a semantic field with its candidate labels in preference order.
type Field struct {
	Name       string
	Candidates []Candidate
}

// NewField builds a field with unitless candidate labels.
func NewField(name string, labels ...string) Field {
	f := Field{Name: name}
	for _, l := range labels {
		f.Candidates = append(f.Candidates, Candidate{Label: l})
	}
	return f
}

// Label returns the preferred label, used when building upstream filters.
func (f Field) Label() string {
	if len(f.Candidates) == 0 {
		return ""
	}
	return f.Candidates[0].Label
}

// ParseLabelScore reads a "<N>分" choice label. Malformed labels yield 0.
func ParseLabelScore(label string) float64 {
	n, _ := lookupLabelScore(label)
	return n
}

func lookupLabelScore(label string) (float64, bool) {
	s := strings.TrimSpace(label)
	if !strings.HasSuffix(s, "分") {
		return 0, false
	}
	return parseFinite(strings.TrimSuffix(s, "分"))
}

func lookupNumericText(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	if n, ok := parseFinite(s); ok {
		return n, true
	}
	return lookupLabelScore(s)
}

// ParseNumber reads a plain number or a "<N>分" label. NaN and infinities
// are rejected.
func ParseNumber(s string) (float64, bool) {
	return lookupNumericText(s)
}

// parseFinite parses s as a float, rejecting NaN and infinities.
func parseFinite(s string) (float64, bool) {
	n, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(n) || math.IsInf(n, 0) {
		return 0, false
	}
	return n, true
}
