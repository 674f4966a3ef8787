package repo

import (
	"context"
	"fmt"
	"sort"
	"time"

	"lifeos/internal/dates"
	"lifeos/internal/metrics"
	"lifeos/internal/record"
	"lifeos/internal/schema"
)

func (r Repo) statusEquals(property, value string) Filter {
	kind := r.Schema.StatusKind
	if kind == "" {
		kind = "select"
	}
	return Leaf(property, kind, "equals", value)
}

func (r Repo) today() string {
	return dates.DayKey(r.now(), r.loc())
}

func boundary(t time.Time) string {
	return t.Format(time.RFC3339)
}

// CoreValues returns the values whose priority is at most MaxValuePriority.
func (r Repo) CoreValues(ctx context.Context) ([]record.Record, error) {
	limit := r.MaxValuePriority
	if limit == 0 {
		limit = 2
	}
	f := NumberAtMost(r.Schema.Values.Priority.Label(), limit)
	return r.Fetch(ctx, schema.Values, &f, nil)
}

// ActiveGoals returns goals in progress.
func (r Repo) ActiveGoals(ctx context.Context) ([]record.Record, error) {
	f := r.statusEquals(r.Schema.Goals.Status.Label(), r.Schema.InProgress)
	return r.Fetch(ctx, schema.Goals, &f, nil)
}

// ActiveProjects returns projects in progress, nearest deadline first.
func (r Repo) ActiveProjects(ctx context.Context) ([]record.Record, error) {
	p := r.Schema.Projects
	f := r.statusEquals(p.Status.Label(), r.Schema.InProgress)
	return r.Fetch(ctx, schema.Projects, &f, []Sort{Ascending(p.Deadline.Label())})
}

// TodayActions returns open actions due today or earlier. Upstream sorts by
// deadline; the result is then stably grouped by urgency bucket.
func (r Repo) TodayActions(ctx context.Context) ([]record.Record, error) {
	a := r.Schema.Actions
	f := And(
		r.statusEquals(a.Status.Label(), r.Schema.Todo),
		DateOnOrBefore(a.Deadline.Label(), r.today()),
	)
	actions, err := r.Fetch(ctx, schema.Actions, &f, []Sort{Ascending(a.Deadline.Label())})
	if err != nil {
		return nil, err
	}
	SortByUrgency(actions, a.Priority, r.Schema.Vocabulary)
	return actions, nil
}

// SortByUrgency orders actions by urgency bucket, keeping the existing order
// within a bucket.
func SortByUrgency(actions []record.Record, priority record.Field, v schema.Vocabulary) {
	sort.SliceStable(actions, func(i, j int) bool {
		return v.Classify(actions[i].Select(priority)) < v.Classify(actions[j].Select(priority))
	})
}

// TodayLogs returns the daily log entries dated today.
func (r Repo) TodayLogs(ctx context.Context) ([]record.Record, error) {
	f := DateEquals(r.Schema.Logs.Date.Label(), r.today())
	return r.Fetch(ctx, schema.DailyLog, &f, nil)
}

// RecentHealth returns health entries from the last days days.
func (r Repo) RecentHealth(ctx context.Context, days int) ([]record.Record, error) {
	return r.RecordsSince(ctx, schema.Health, dates.DaysAgo(r.now(), days))
}

// RecentEmotions returns emotion entries from the last days days.
func (r Repo) RecentEmotions(ctx context.Context, days int) ([]record.Record, error) {
	return r.RecordsSince(ctx, schema.Emotions, dates.DaysAgo(r.now(), days))
}

// RecentGrowthReviews returns the newest limit growth reviews.
func (r Repo) RecentGrowthReviews(ctx context.Context, limit int) ([]record.Record, error) {
	reviews, err := r.Fetch(ctx, schema.GrowthReview, nil, []Sort{Descending(r.Schema.Growth.CreatedAt.Label())})
	if err != nil {
		return nil, err
	}
	return metrics.Top(reviews, limit), nil
}

// RecordsSince returns entries of ds whose date field is on or after since.
func (r Repo) RecordsSince(ctx context.Context, ds schema.Dataset, since time.Time) ([]record.Record, error) {
	field, ok := r.Schema.DateField(ds)
	if !ok {
		return nil, &FetchError{Dataset: ds, Err: fmt.Errorf("dataset has no date field")}
	}
	f := DateOnOrAfter(field.Label(), boundary(since))
	return r.Fetch(ctx, ds, &f, nil)
}

// CompletedActionsSince returns actions marked done on or after since.
func (r Repo) CompletedActionsSince(ctx context.Context, since time.Time) ([]record.Record, error) {
	a := r.Schema.Actions
	f := And(
		r.statusEquals(a.Status.Label(), r.Schema.Done),
		DateOnOrAfter(a.CompletedAt.Label(), boundary(since)),
	)
	return r.Fetch(ctx, schema.Actions, &f, nil)
}

// Weekly is everything recorded since the start of the current week.
type Weekly struct {
	Start            time.Time
	Logs             []record.Record
	CompletedActions []record.Record
	Emotions         []record.Record
	Health           []record.Record
	Finance          []record.Record
}

// WeekStartTime is midnight of the first day of the current week.
func (r Repo) WeekStartTime() time.Time {
	return dates.WeekStart(r.now(), r.loc(), r.WeekStart)
}

// WeeklyData fetches the weekly rollup inputs one dataset after another.
func (r Repo) WeeklyData(ctx context.Context) (Weekly, error) {
	w := Weekly{Start: r.WeekStartTime()}
	var err error
	if w.Logs, err = r.RecordsSince(ctx, schema.DailyLog, w.Start); err != nil {
		return Weekly{}, err
	}
	if w.CompletedActions, err = r.CompletedActionsSince(ctx, w.Start); err != nil {
		return Weekly{}, err
	}
	if w.Emotions, err = r.RecordsSince(ctx, schema.Emotions, w.Start); err != nil {
		return Weekly{}, err
	}
	if w.Health, err = r.RecordsSince(ctx, schema.Health, w.Start); err != nil {
		return Weekly{}, err
	}
	if w.Finance, err = r.RecordsSince(ctx, schema.Finance, w.Start); err != nil {
		return Weekly{}, err
	}
	return w, nil
}
