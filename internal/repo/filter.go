package repo

import (
	"encoding/json"
)

// Filter is a node of an upstream query filter: either a leaf comparing one
// property or an and/or combination of child filters.
type Filter struct {
	Property string
	Kind     string
	Operator string
	Value    any

	And []Filter
	Or  []Filter
}

// MarshalJSON renders the upstream filter shape.
func (f Filter) MarshalJSON() ([]byte, error) {
	switch {
	case len(f.And) > 0:
		return json.Marshal(map[string][]Filter{"and": f.And})
	case len(f.Or) > 0:
		return json.Marshal(map[string][]Filter{"or": f.Or})
	case f.Property == "":
		return []byte("{}"), nil
	}
	return json.Marshal(map[string]any{
		"property": f.Property,
		f.Kind:     map[string]any{f.Operator: f.Value},
	})
}

// Leaf compares property (of upstream type kind) with value.
func Leaf(property, kind, operator string, value any) Filter {
	return Filter{Property: property, Kind: kind, Operator: operator, Value: value}
}

// SelectEquals matches a select property equal to value.
func SelectEquals(property, value string) Filter {
	return Leaf(property, "select", "equals", value)
}

// NumberAtMost matches a number property no greater than n.
func NumberAtMost(property string, n float64) Filter {
	return Leaf(property, "number", "less_than_or_equal_to", n)
}

// DateEquals matches a date property on day.
func DateEquals(property, day string) Filter {
	return Leaf(property, "date", "equals", day)
}

// DateOnOrBefore matches a date property on or before day.
func DateOnOrBefore(property, day string) Filter {
	return Leaf(property, "date", "on_or_before", day)
}

// DateOnOrAfter matches a date property on or after boundary.
func DateOnOrAfter(property, boundary string) Filter {
	return Leaf(property, "date", "on_or_after", boundary)
}

// And combines filters that must all match.
func And(fs ...Filter) Filter { return Filter{And: fs} }

// Or combines filters of which one must match.
func Or(fs ...Filter) Filter { return Filter{Or: fs} }

// Sort orders query results by one property.
type Sort struct {
	Property  string `json:"property"`
	Direction string `json:"direction"`
}

// Ascending sorts by property, smallest first.
func Ascending(property string) Sort { return Sort{Property: property, Direction: "ascending"} }

// Descending sorts by property, largest first.
func Descending(property string) Sort { return Sort{Property: property, Direction: "descending"} }
