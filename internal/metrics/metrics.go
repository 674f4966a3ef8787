// Package metrics derives dashboard figures from records.
//
// Every function is pure and total: empty or malformed input yields zero
// values, never an error or a panic.
package metrics

import (
	"math"
	"sort"
	"strings"
	"time"

	"lifeos/internal/record"
	"lifeos/internal/schema"
)

// Count is the number of records carrying one value.
type Count struct {
	Key   string `json:"key"`
	Count int    `json:"count"`
}

// Rank is the mean score of one group.
type Rank struct {
	Group   string  `json:"group"`
	Average float64 `json:"average"`
	Count   int     `json:"count"`
}

// CorrelationRow joins one day of health data with that day's mood.
type CorrelationRow struct {
	Date         string  `json:"date"`
	SleepQuality float64 `json:"sleepQuality"`
	Energy       float64 `json:"energy"`
	AverageMood  float64 `json:"averageMood"`
	SleepHours   float64 `json:"sleepHours"`
}

// Average is the sum of the numeric values of f divided by the number of
// records. Records without a value count as 0.
func Average(records []record.Record, f record.Field) float64 {
	if len(records) == 0 {
		return 0
	}
	var sum float64
	for _, r := range records {
		sum += r.Number(f)
	}
	return sum / float64(len(records))
}

// OrdinalScore averages the mapped value of a label field. A value that is
// not a label of table but reads as a number within the table's range is
// used as is. Anything else counts as 0.
func OrdinalScore(records []record.Record, f record.Field, table map[string]float64) float64 {
	if len(records) == 0 {
		return 0
	}
	var sum float64
	for _, r := range records {
		sum += ordinal(r, f, table)
	}
	return sum / float64(len(records))
}

func ordinal(r record.Record, f record.Field, table map[string]float64) float64 {
	l := label(r, f)
	if v, ok := table[l]; ok {
		return v
	}
	n, ok := r.LookupNumber(f)
	if !ok {
		n, ok = record.ParseNumber(l)
	}
	if !ok || len(table) == 0 {
		return 0
	}
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, v := range table {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	if n < lo || n > hi {
		return 0
	}
	return n
}

// RateOfCondition is the rounded percentage of records matching pred.
func RateOfCondition(records []record.Record, pred func(record.Record) bool) int {
	if len(records) == 0 {
		return 0
	}
	n := 0
	for _, r := range records {
		if pred(r) {
			n++
		}
	}
	return int(math.Round(100 * float64(n) / float64(len(records))))
}

// GroupCount counts records per value of f in first-seen order. Multi-choice
// values are flattened; empty values are skipped.
func GroupCount(records []record.Record, f record.Field) []Count {
	index := map[string]int{}
	out := []Count{}
	for _, r := range records {
		for _, v := range r.Labels(f) {
			i, ok := index[v]
			if !ok {
				i = len(out)
				index[v] = i
				out = append(out, Count{Key: v})
			}
			out[i].Count++
		}
	}
	return out
}

// RankByEffectiveness groups records by group and ranks the groups by their
// mean score, highest first. Ties keep first-seen order. Records with an
// empty group or no numeric score are skipped.
func RankByEffectiveness(records []record.Record, group, score record.Field) []Rank {
	type acc struct {
		sum float64
		n   int
	}
	index := map[string]int{}
	var keys []string
	var accs []acc
	for _, r := range records {
		key := groupKey(r, group)
		if key == "" {
			continue
		}
		s, ok := r.LookupNumber(score)
		if !ok {
			continue
		}
		i, seen := index[key]
		if !seen {
			i = len(keys)
			index[key] = i
			keys = append(keys, key)
			accs = append(accs, acc{})
		}
		accs[i].sum += s
		accs[i].n++
	}

	out := make([]Rank, 0, len(keys))
	for i, k := range keys {
		out = append(out, Rank{Group: k, Average: accs[i].sum / float64(accs[i].n), Count: accs[i].n})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Average > out[j].Average })
	return out
}

// ProgressOf is the rounded mean progress of the projects related to goalID.
func ProgressOf(goalID string, projects []record.Record, p schema.ProjectFields) int {
	var sum float64
	n := 0
	for _, r := range projects {
		if !r.RelatedTo(p.Goal, goalID) {
			continue
		}
		sum += r.Number(p.Progress)
		n++
	}
	if n == 0 {
		return 0
	}
	return int(math.Round(sum / float64(n)))
}

// RelatedTo filters records whose relation f contains id.
func RelatedTo(records []record.Record, f record.Field, id string) []record.Record {
	out := []record.Record{}
	for _, r := range records {
		if r.RelatedTo(f, id) {
			out = append(out, r)
		}
	}
	return out
}

// WeeklyHoursFor sums the logged hours related to entityID.
func WeeklyHoursFor(entityID string, logs []record.Record, l schema.LogFields) float64 {
	var minutes float64
	for _, r := range logs {
		if !r.RelatedTo(l.Related, entityID) {
			continue
		}
		m, _ := r.Minutes(l.Duration)
		minutes += m
	}
	return Hours(minutes)
}

// FocusThreshold is the minimum focus quality counted as focused work.
const FocusThreshold = 3

// FocusHours sums the hours of logs with focus quality at or above
// FocusThreshold.
func FocusHours(logs []record.Record, l schema.LogFields) float64 {
	var minutes float64
	for _, r := range logs {
		if r.Number(l.Focus) < FocusThreshold {
			continue
		}
		m, _ := r.Minutes(l.Duration)
		minutes += m
	}
	return Hours(minutes)
}

// TotalHours sums the duration of every record.
func TotalHours(records []record.Record, duration record.Field) float64 {
	var minutes float64
	for _, r := range records {
		m, _ := r.Minutes(duration)
		minutes += m
	}
	return Hours(minutes)
}

// AverageHours averages a duration field in hours over all records.
func AverageHours(records []record.Record, duration record.Field) float64 {
	if len(records) == 0 {
		return 0
	}
	return TotalHours(records, duration) / float64(len(records))
}

// MoodVolatility is max minus min of the derivable moods, 0 for fewer than two.
func MoodVolatility(emotions []record.Record, mood record.Field) float64 {
	var lo, hi float64
	n := 0
	for _, r := range emotions {
		v, ok := r.LookupNumber(mood)
		if !ok {
			continue
		}
		if n == 0 || v < lo {
			lo = v
		}
		if n == 0 || v > hi {
			hi = v
		}
		n++
	}
	if n < 2 {
		return 0
	}
	return hi - lo
}

// PositiveMood is the mood at or above which an entry counts as positive.
const PositiveMood = 6

// PositiveRate is the percentage of emotion entries with a positive mood.
func PositiveRate(emotions []record.Record, mood record.Field) int {
	return RateOfCondition(emotions, func(r record.Record) bool {
		return r.Number(mood) >= PositiveMood
	})
}

// ExerciseRate is the percentage of health entries with any exercise.
func ExerciseRate(health []record.Record, exercise record.Field) int {
	return RateOfCondition(health, func(r record.Record) bool {
		m, _ := r.Minutes(exercise)
		return m > 0
	})
}

type dayEntry struct {
	sleepQuality float64
	energy       float64
	hasEnergy    bool
	sleepHours   float64
	moods        []float64
}

// CorrelationSeries joins health and emotion entries by calendar day in loc.
// A day is kept when its sleep quality maps onto scale (a label, or a number
// within the scale's range), its energy is present and at least one mood was
// recorded that day. A later health record for the same day replaces an
// earlier one.
func CorrelationSeries(health, emotions []record.Record, h schema.HealthFields, e schema.EmotionFields, scale map[string]float64, loc *time.Location) []CorrelationRow {
	days := map[string]*dayEntry{}
	for _, r := range health {
		key, ok := r.DayKey(h.Date, loc)
		if !ok {
			continue
		}
		energy, hasEnergy := r.LookupNumber(h.Energy)
		sleepMinutes, _ := r.Minutes(h.SleepHours)
		entry := &dayEntry{
			sleepQuality: ordinal(r, h.SleepQuality, scale),
			energy:       energy,
			hasEnergy:    hasEnergy,
			sleepHours:   Hours(sleepMinutes),
		}
		days[key] = entry
	}
	for _, r := range emotions {
		key, ok := r.DayKey(e.RecordedAt, loc)
		if !ok {
			continue
		}
		entry, ok := days[key]
		if !ok {
			continue
		}
		if v, ok := r.LookupNumber(e.Mood); ok {
			entry.moods = append(entry.moods, v)
		}
	}

	out := []CorrelationRow{}
	for key, d := range days {
		if d.sleepQuality <= 0 || !d.hasEnergy || len(d.moods) == 0 {
			continue
		}
		var sum float64
		for _, m := range d.moods {
			sum += m
		}
		out = append(out, CorrelationRow{
			Date:         key,
			SleepQuality: d.sleepQuality,
			Energy:       d.energy,
			AverageMood:  sum / float64(len(d.moods)),
			SleepHours:   d.sleepHours,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out
}

// Latest returns the record with the most recent value of the date field f.
// Records without a parseable date are ignored.
func Latest(records []record.Record, f record.Field, loc *time.Location) (record.Record, bool) {
	var (
		best     record.Record
		bestTime time.Time
		found    bool
	)
	for _, r := range records {
		t, ok := r.Time(f, loc)
		if !ok {
			continue
		}
		if !found || t.After(bestTime) {
			best, bestTime, found = r, t, true
		}
	}
	return best, found
}

// SortByTime returns a copy ordered ascending by the date field f. Records
// without a date sort last, keeping their relative order.
func SortByTime(records []record.Record, f record.Field, loc *time.Location) []record.Record {
	type keyed struct {
		r  record.Record
		t  time.Time
		ok bool
	}
	ks := make([]keyed, len(records))
	for i, r := range records {
		t, ok := r.Time(f, loc)
		ks[i] = keyed{r: r, t: t, ok: ok}
	}
	sort.SliceStable(ks, func(i, j int) bool {
		if ks[i].ok != ks[j].ok {
			return ks[i].ok
		}
		return ks[i].t.Before(ks[j].t)
	})
	out := make([]record.Record, len(ks))
	for i, k := range ks {
		out[i] = k.r
	}
	return out
}

// Filter keeps the records matching pred.
func Filter(records []record.Record, pred func(record.Record) bool) []record.Record {
	out := []record.Record{}
	for _, r := range records {
		if pred(r) {
			out = append(out, r)
		}
	}
	return out
}

// Top returns at most n leading elements.
func Top[T any](xs []T, n int) []T {
	if n < 0 {
		n = 0
	}
	if len(xs) <= n {
		return xs
	}
	return xs[:n]
}

// Hours converts minutes to hours.
func Hours(minutes float64) float64 {
	return minutes / 60
}

func label(r record.Record, f record.Field) string {
	if s := r.Select(f); s != "" {
		return s
	}
	return strings.TrimSpace(r.Text(f))
}

func groupKey(r record.Record, f record.Field) string {
	return strings.Join(r.Labels(f), "、")
}
