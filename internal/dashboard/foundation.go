package dashboard

import (
	"context"

	"go.uber.org/zap"

	"lifeos/internal/metrics"
	"lifeos/internal/record"
	"lifeos/internal/repo"
)

// KPI is the headline figures of the analytics window.
type KPI struct {
	AverageEnergy     float64 `json:"averageEnergy"`
	AverageSleepHours float64 `json:"averageSleepHours"`
	SleepQuality      float64 `json:"sleepQuality"`
	ExerciseRate      int     `json:"exerciseRate"`
	PositiveRate      int     `json:"positiveRate"`
	HealthEntries     int     `json:"healthEntries"`
	EmotionEntries    int     `json:"emotionEntries"`
}

// CorrelationPoint is one day of the sleep, energy and mood chart. Mood is
// halved onto the same five-point axis.
type CorrelationPoint struct {
	Date         string  `json:"date"`
	SleepQuality float64 `json:"sleepQuality"`
	Energy       float64 `json:"energy"`
	Mood         float64 `json:"mood"`
}

// Correlation carries the joined series and its chart projection.
type Correlation struct {
	Rows  []metrics.CorrelationRow `json:"rows"`
	Chart []CorrelationPoint       `json:"chart"`
}

// ExerciseRow is one day with exercise.
type ExerciseRow struct {
	Date      string  `json:"date,omitempty"`
	Type      string  `json:"type"`
	Intensity string  `json:"intensity"`
	Feeling   string  `json:"feeling"`
	Minutes   float64 `json:"minutes"`
	Energy    float64 `json:"energy"`
}

// FoundationRenderer analyses health and emotion over a rolling window.
type FoundationRenderer struct {
	base
	opts Options
}

func NewFoundation(r repo.Repo, opts Options, logger *zap.Logger) *FoundationRenderer {
	return &FoundationRenderer{base: newBase(Foundation, "基座分析", r, logger), opts: opts.withDefaults()}
}

type foundationData struct {
	health   []record.Record
	emotions []record.Record
}

func (f *FoundationRenderer) Render(ctx context.Context, sink Sink) error {
	var data *foundationData
	load := func(ctx context.Context) (*foundationData, error) {
		if data != nil {
			return data, nil
		}
		health, err := f.repo.RecentHealth(ctx, f.opts.FoundationDays)
		if err != nil {
			return nil, err
		}
		emotions, err := f.repo.RecentEmotions(ctx, f.opts.FoundationDays)
		if err != nil {
			return nil, err
		}
		data = &foundationData{health: health, emotions: emotions}
		return data, nil
	}
	with := func(fn func(*foundationData) any) func(context.Context) (any, error) {
		return func(ctx context.Context) (any, error) {
			d, err := load(ctx)
			if err != nil {
				return nil, err
			}
			return fn(d), nil
		}
	}
	return f.run(ctx, sink, []section{
		{name: "kpi", title: "核心指标概览", build: with(f.kpi)},
		{name: "triggers", title: "情绪触发源分布", build: with(f.triggers)},
		{name: "recovery", title: "高效恢复行动排行榜", build: with(f.recovery)},
		{name: "correlation", title: "睡眠-精力-情绪关联图", build: with(f.correlation)},
		{name: "exercise", title: "运动-精力-情绪关联分析", build: with(f.exercise)},
	})
}

func (f *FoundationRenderer) kpi(d *foundationData) any {
	h, e := f.repo.Schema.Health, f.repo.Schema.Emotions
	return KPI{
		AverageEnergy:     round1(metrics.Average(d.health, h.Energy)),
		AverageSleepHours: round1(metrics.AverageHours(d.health, h.SleepHours)),
		SleepQuality:      round1(metrics.OrdinalScore(d.health, h.SleepQuality, f.repo.Schema.SleepQuality)),
		ExerciseRate:      metrics.ExerciseRate(d.health, h.Exercise),
		PositiveRate:      metrics.PositiveRate(d.emotions, e.Mood),
		HealthEntries:     len(d.health),
		EmotionEntries:    len(d.emotions),
	}
}

func (f *FoundationRenderer) triggers(d *foundationData) any {
	return metrics.GroupCount(d.emotions, f.repo.Schema.Emotions.Trigger)
}

func (f *FoundationRenderer) recovery(d *foundationData) any {
	e := f.repo.Schema.Emotions
	return metrics.Top(metrics.RankByEffectiveness(d.emotions, e.Recovery, e.Effectiveness), f.opts.RecoveryTop)
}

func (f *FoundationRenderer) correlation(d *foundationData) any {
	s := f.repo.Schema
	rows := metrics.CorrelationSeries(d.health, d.emotions, s.Health, s.Emotions, s.SleepQuality, f.repo.Zone())
	chart := make([]CorrelationPoint, 0, len(rows))
	for _, r := range rows {
		chart = append(chart, CorrelationPoint{
			Date:         r.Date,
			SleepQuality: r.SleepQuality,
			Energy:       r.Energy,
			Mood:         r.AverageMood / 2,
		})
	}
	return Correlation{Rows: rows, Chart: chart}
}

func (f *FoundationRenderer) exercise(d *foundationData) any {
	h, loc := f.repo.Schema.Health, f.repo.Zone()
	days := metrics.Filter(d.health, func(r record.Record) bool {
		m, _ := r.Minutes(h.Exercise)
		return m > 0
	})
	days = metrics.Top(days, f.opts.ExerciseTop)
	rows := make([]ExerciseRow, 0, len(days))
	for _, r := range days {
		day, _ := r.DayKey(h.Date, loc)
		minutes, _ := r.Minutes(h.Exercise)
		rows = append(rows, ExerciseRow{
			Date:      day,
			Type:      r.Select(h.ExerciseType),
			Intensity: r.Select(h.Intensity),
			Feeling:   r.Select(h.Feeling),
			Minutes:   minutes,
			Energy:    r.Number(h.Energy),
		})
	}
	return rows
}
