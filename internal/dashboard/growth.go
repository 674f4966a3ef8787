package dashboard

import (
	"context"

	"go.uber.org/zap"

	"lifeos/internal/metrics"
	"lifeos/internal/record"
	"lifeos/internal/repo"
)

// Lesson is one entry of the lessons gallery.
type Lesson struct {
	ID      string  `json:"id"`
	Event   string  `json:"event"`
	Insight string  `json:"insight"`
	Value   float64 `json:"value"`
	Stars   string  `json:"stars"`
}

// GrowthRenderer summarises the latest growth reviews.
type GrowthRenderer struct {
	base
	opts Options
}

func NewGrowth(r repo.Repo, opts Options, logger *zap.Logger) *GrowthRenderer {
	return &GrowthRenderer{base: newBase(Growth, "成长引擎", r, logger), opts: opts.withDefaults()}
}

func (g *GrowthRenderer) Render(ctx context.Context, sink Sink) error {
	var reviews []record.Record
	loaded := false
	with := func(fn func([]record.Record) any) func(context.Context) (any, error) {
		return func(ctx context.Context) (any, error) {
			if !loaded {
				rs, err := g.repo.RecentGrowthReviews(ctx, g.opts.GrowthLimit)
				if err != nil {
					return nil, err
				}
				reviews, loaded = rs, true
			}
			return fn(reviews), nil
		}
	}
	gr := g.repo.Schema.Growth
	return g.run(ctx, sink, []section{
		{name: "event_types", title: "成长事件类型分析", build: with(func(rs []record.Record) any {
			return metrics.GroupCount(rs, gr.EventType)
		})},
		{name: "skills", title: "能力提升雷达图", build: with(func(rs []record.Record) any {
			return metrics.GroupCount(rs, gr.Skills)
		})},
		{name: "lessons", title: "教训名人堂", build: with(g.lessons)},
	})
}

func (g *GrowthRenderer) lessons(reviews []record.Record) any {
	gr := g.repo.Schema.Growth
	top := metrics.Top(reviews, g.opts.LessonTop)
	out := make([]Lesson, 0, len(top))
	for _, r := range top {
		value := r.Number(gr.Value)
		out = append(out, Lesson{
			ID:      r.ID,
			Event:   r.Text(gr.Event),
			Insight: r.Text(gr.Lesson),
			Value:   value,
			Stars:   Stars(value/2, 5),
		})
	}
	return out
}
