package dashboard

import (
	"context"

	"go.uber.org/zap"

	"lifeos/internal/metrics"
	"lifeos/internal/repo"
)

// ActionItem is one action due today.
type ActionItem struct {
	ID            string  `json:"id"`
	Title         string  `json:"title"`
	Priority      string  `json:"priority"`
	Urgency       string  `json:"urgency"`
	Energy        string  `json:"energy"`
	EnergyIcon    string  `json:"energyIcon"`
	EstimateHours float64 `json:"estimateHours"`
	Deadline      string  `json:"deadline,omitempty"`
}

// Vitals is the latest state of body and mind.
type Vitals struct {
	Mood        float64 `json:"mood"`
	MoodStars   string  `json:"moodStars"`
	MoodEmoji   string  `json:"moodEmoji"`
	Energy      float64 `json:"energy"`
	EnergyStars string  `json:"energyStars"`
	SleepScore  float64 `json:"sleepScore"`
	FocusHours  float64 `json:"focusHours"`
}

// LogEntry is one block of today's timeline.
type LogEntry struct {
	ID         string  `json:"id"`
	Start      string  `json:"start,omitempty"`
	Activity   string  `json:"activity"`
	Category   string  `json:"category"`
	Hours      float64 `json:"hours"`
	Value      float64 `json:"value"`
	ValueStars string  `json:"valueStars"`
}

// CockpitRenderer shows today's actions, vitals and timeline.
type CockpitRenderer struct {
	base
}

func NewCockpit(r repo.Repo, logger *zap.Logger) *CockpitRenderer {
	return &CockpitRenderer{base: newBase(Cockpit, "执行驾驶舱", r, logger)}
}

func (c *CockpitRenderer) Render(ctx context.Context, sink Sink) error {
	return c.run(ctx, sink, []section{
		{name: "actions", title: "今日行动", build: c.actions},
		{name: "vitals", title: "生命体征", build: c.vitals},
		{name: "timeline", title: "今日时间线", build: c.timeline},
	})
}

func (c *CockpitRenderer) actions(ctx context.Context) (any, error) {
	records, err := c.repo.TodayActions(ctx)
	if err != nil {
		return nil, err
	}
	a, vocab := c.repo.Schema.Actions, c.repo.Schema.Vocabulary
	items := make([]ActionItem, 0, len(records))
	for _, r := range records {
		priority := r.Select(a.Priority)
		energy := r.Select(a.Energy)
		deadline, _ := r.Date(a.Deadline)
		estimate, _ := r.Minutes(a.Estimate)
		items = append(items, ActionItem{
			ID:            r.ID,
			Title:         r.Text(a.Description),
			Priority:      priority,
			Urgency:       vocab.Classify(priority).String(),
			Energy:        energy,
			EnergyIcon:    vocab.EnergyIcon(energy),
			EstimateHours: round1(metrics.Hours(estimate)),
			Deadline:      deadline,
		})
	}
	return items, nil
}

func (c *CockpitRenderer) vitals(ctx context.Context) (any, error) {
	emotions, err := c.repo.RecentEmotions(ctx, 1)
	if err != nil {
		return nil, err
	}
	health, err := c.repo.RecentHealth(ctx, 1)
	if err != nil {
		return nil, err
	}
	logs, err := c.repo.TodayLogs(ctx)
	if err != nil {
		return nil, err
	}
	s, loc := c.repo.Schema, c.repo.Zone()

	var v Vitals
	if latest, ok := metrics.Latest(emotions, s.Emotions.RecordedAt, loc); ok {
		v.Mood = latest.Number(s.Emotions.Mood)
	}
	if latest, ok := metrics.Latest(health, s.Health.Date, loc); ok {
		v.Energy = latest.Number(s.Health.Energy)
		v.SleepScore = latest.Number(s.Health.SleepScore)
	}
	v.MoodStars = Stars(v.Mood/2, 5)
	v.MoodEmoji = MoodEmoji(v.Mood)
	v.EnergyStars = Stars(v.Energy, 5)
	v.FocusHours = round1(metrics.FocusHours(logs, s.Logs))
	return v, nil
}

func (c *CockpitRenderer) timeline(ctx context.Context) (any, error) {
	logs, err := c.repo.TodayLogs(ctx)
	if err != nil {
		return nil, err
	}
	l, loc := c.repo.Schema.Logs, c.repo.Zone()
	sorted := metrics.SortByTime(logs, l.Start, loc)
	entries := make([]LogEntry, 0, len(sorted))
	for _, r := range sorted {
		var start string
		if t, ok := r.Time(l.Start, loc); ok {
			start = t.Format("15:04")
		}
		minutes, _ := r.Minutes(l.Duration)
		value := r.Number(l.Value)
		entries = append(entries, LogEntry{
			ID:         r.ID,
			Start:      start,
			Activity:   r.Text(l.Activity),
			Category:   r.Select(l.Category),
			Hours:      round1(metrics.Hours(minutes)),
			Value:      value,
			ValueStars: Stars(value, 5),
		})
	}
	return entries, nil
}
