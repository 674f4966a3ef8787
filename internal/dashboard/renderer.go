// Package dashboard turns repository records into dashboard frames.
//
// A renderer fetches what each of its sections needs, derives the figures
// through package metrics and publishes one frame per section to a Sink.
// Renderers keep no display state, so rendering twice publishes the same
// frames again.
package dashboard

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"lifeos/internal/logging"
	"lifeos/internal/repo"
)

// Renderer produces the frames of one dashboard.
type Renderer interface {
	Name() string
	Title() string
	Render(ctx context.Context, sink Sink) error
}

// Dashboard names.
const (
	Compass    = "compass"
	Cockpit    = "cockpit"
	Foundation = "foundation"
	Growth     = "growth"
	Weekly     = "weekly"
)

// Order is the load order of the dashboards.
var Order = []string{Compass, Cockpit, Foundation, Growth, Weekly}

// Options tunes the query windows of the renderers.
type Options struct {
	// FoundationDays is the analytics window (default 30).
	FoundationDays int
	// GrowthLimit is the number of growth reviews considered (default 10).
	GrowthLimit int
	// RecoveryTop bounds the recovery ranking (default 10).
	RecoveryTop int
	// ExerciseTop bounds the exercise list (default 10).
	ExerciseTop int
	// LessonTop bounds the lessons gallery (default 5).
	LessonTop int
}

// DefaultOptions returns the standard windows.
func DefaultOptions() Options {
	return Options{FoundationDays: 30, GrowthLimit: 10, RecoveryTop: 10, ExerciseTop: 10, LessonTop: 5}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.FoundationDays <= 0 {
		o.FoundationDays = d.FoundationDays
	}
	if o.GrowthLimit <= 0 {
		o.GrowthLimit = d.GrowthLimit
	}
	if o.RecoveryTop <= 0 {
		o.RecoveryTop = d.RecoveryTop
	}
	if o.ExerciseTop <= 0 {
		o.ExerciseTop = d.ExerciseTop
	}
	if o.LessonTop <= 0 {
		o.LessonTop = d.LessonTop
	}
	return o
}

// All builds the five renderers in load order.
func All(r repo.Repo, opts Options, logger *zap.Logger) []Renderer {
	return []Renderer{
		NewCompass(r, logger),
		NewCockpit(r, logger),
		NewFoundation(r, opts, logger),
		NewGrowth(r, opts, logger),
		NewWeekly(r, logger),
	}
}

type section struct {
	name  string
	title string
	build func(ctx context.Context) (any, error)
}

type base struct {
	name   string
	title  string
	repo   repo.Repo
	logger *zap.Logger
}

func newBase(name, title string, r repo.Repo, logger *zap.Logger) base {
	if logger == nil {
		logger = zap.NewNop()
	}
	return base{name: name, title: title, repo: r, logger: logger.Named(name)}
}

func (b base) Name() string  { return b.name }
func (b base) Title() string { return b.title }

// run renders sections in order. The first failing section is published as
// a failed frame and stops the dashboard.
func (b base) run(ctx context.Context, sink Sink, sections []section) error {
	for _, s := range sections {
		if err := ctx.Err(); err != nil {
			return err
		}
		data, err := s.build(ctx)
		frame := Frame{
			Dashboard:  b.name,
			Section:    s.name,
			Title:      s.title,
			RenderedAt: b.repo.Clock(),
		}
		if err != nil {
			b.logger.Error("Render section failed",
				zap.String("section", s.name),
				zap.String("error", logging.SanitizeError(err)))
			frame.Err = logging.SanitizeError(err)
			sink.Publish(frame)
			return fmt.Errorf("render %s/%s: %w", b.name, s.name, err)
		}
		frame.Data = data
		sink.Publish(frame)
	}
	b.logger.Debug("Dashboard rendered", zap.Int("sections", len(sections)))
	return nil
}
