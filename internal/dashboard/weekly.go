package dashboard

import (
	"context"

	"go.uber.org/zap"

	"lifeos/internal/dates"
	"lifeos/internal/metrics"
	"lifeos/internal/repo"
)

// Snapshot is the weekly rollup.
type Snapshot struct {
	WeekStart         string  `json:"weekStart"`
	CompletedActions  int     `json:"completedActions"`
	MoodVolatility    float64 `json:"moodVolatility"`
	AverageSleepHours float64 `json:"averageSleepHours"`
	LoggedHours       float64 `json:"loggedHours"`
	FocusHours        float64 `json:"focusHours"`
	FinanceEntries    int     `json:"financeEntries"`
}

// WeeklyRenderer reports on the current week.
type WeeklyRenderer struct {
	base
}

func NewWeekly(r repo.Repo, logger *zap.Logger) *WeeklyRenderer {
	return &WeeklyRenderer{base: newBase(Weekly, "周报", r, logger)}
}

func (w *WeeklyRenderer) Render(ctx context.Context, sink Sink) error {
	return w.run(ctx, sink, []section{
		{name: "snapshot", title: "上周数据快照", build: w.snapshot},
	})
}

func (w *WeeklyRenderer) snapshot(ctx context.Context) (any, error) {
	data, err := w.repo.WeeklyData(ctx)
	if err != nil {
		return nil, err
	}
	s := w.repo.Schema
	return Snapshot{
		WeekStart:         dates.DayKey(data.Start, w.repo.Zone()),
		CompletedActions:  len(data.CompletedActions),
		MoodVolatility:    round1(metrics.MoodVolatility(data.Emotions, s.Emotions.Mood)),
		AverageSleepHours: round1(metrics.AverageHours(data.Health, s.Health.SleepHours)),
		LoggedHours:       round1(metrics.TotalHours(data.Logs, s.Logs.Duration)),
		FocusHours:        round1(metrics.FocusHours(data.Logs, s.Logs)),
		FinanceEntries:    len(data.Finance),
	}, nil
}
