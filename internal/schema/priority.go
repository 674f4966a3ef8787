package schema

import (
	"strings"
)

// Urgency is the display bucket of an action priority. Lower sorts first.
type Urgency int

const (
	Urgent Urgency = iota
	Important
	Normal
	Optional
)

func (u Urgency) String() string {
	switch u {
	case Urgent:
		return "urgent"
	case Important:
		return "important"
	case Optional:
		return "optional"
	default:
		return "normal"
	}
}

// PriorityTable maps one priority vocabulary onto urgency buckets.
type PriorityTable map[string]Urgency

// PriorityByCommitment is the "must / should / could / if time" vocabulary.
var PriorityByCommitment = PriorityTable{
	"P1必须完成": Urgent,
	"P2应该完成": Important,
	"P3可以完成": Normal,
	"P4有空再做": Optional,
}

// PriorityByMatrix is the urgent/important matrix vocabulary.
var PriorityByMatrix = PriorityTable{
	"P1-紧急重要":   Urgent,
	"P2-重要不紧急":  Important,
	"P3-紧急不重要":  Normal,
	"P4-不紧急不重要": Optional,
}

var prefixBuckets = map[byte]Urgency{'1': Urgent, '2': Important, '3': Normal, '4': Optional}

// ClassifyPriority maps a priority label to its bucket. Labels missing from
// every table fall back to a leading "P<digit>", then to Normal.
func ClassifyPriority(label string, tables ...PriorityTable) Urgency {
	label = strings.TrimSpace(label)
	for _, t := range tables {
		if u, ok := t[label]; ok {
			return u
		}
	}
	if len(label) >= 2 && (label[0] == 'P' || label[0] == 'p') {
		if u, ok := prefixBuckets[label[1]]; ok {
			return u
		}
	}
	return Normal
}

// Classify uses the vocabulary's own priority tables.
func (v Vocabulary) Classify(label string) Urgency {
	return ClassifyPriority(label, v.Priority...)
}

// EnergyIcon returns the icon for an energy requirement label.
func (v Vocabulary) EnergyIcon(label string) string {
	if icon, ok := v.EnergyIcons[label]; ok {
		return icon
	}
	return "⚡"
}
