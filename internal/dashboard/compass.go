package dashboard

import (
	"context"

	"go.uber.org/zap"

	"lifeos/internal/metrics"
	"lifeos/internal/repo"
	"lifeos/internal/schema"
)

// ValueCard is one core value.
type ValueCard struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Priority    float64 `json:"priority"`
}

// GoalRow is one active goal with the projects serving it.
type GoalRow struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Domain   string   `json:"domain"`
	Projects []string `json:"projects"`
	Progress int      `json:"progress"`
}

// InvestmentCard is the time put into one active project this week.
type InvestmentCard struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	WeeklyHours float64 `json:"weeklyHours"`
	Progress    float64 `json:"progress"`
	Deadline    string  `json:"deadline,omitempty"`
}

// CompassRenderer shows values, goals and where the week's hours went.
type CompassRenderer struct {
	base
}

func NewCompass(r repo.Repo, logger *zap.Logger) *CompassRenderer {
	return &CompassRenderer{base: newBase(Compass, "战略罗盘", r, logger)}
}

func (c *CompassRenderer) Render(ctx context.Context, sink Sink) error {
	return c.run(ctx, sink, []section{
		{name: "values", title: "我的核心价值观", build: c.values},
		{name: "goals", title: "本季/本年核心目标", build: c.goals},
		{name: "investment", title: "目标投入仪表盘", build: c.investment},
	})
}

func (c *CompassRenderer) values(ctx context.Context) (any, error) {
	records, err := c.repo.CoreValues(ctx)
	if err != nil {
		return nil, err
	}
	v := c.repo.Schema.Values
	cards := make([]ValueCard, 0, len(records))
	for _, r := range records {
		cards = append(cards, ValueCard{
			ID:          r.ID,
			Name:        r.Text(v.Name),
			Description: r.Text(v.Description),
			Priority:    r.Number(v.Priority),
		})
	}
	return cards, nil
}

func (c *CompassRenderer) goals(ctx context.Context) (any, error) {
	goals, err := c.repo.ActiveGoals(ctx)
	if err != nil {
		return nil, err
	}
	projects, err := c.repo.ActiveProjects(ctx)
	if err != nil {
		return nil, err
	}
	g, p := c.repo.Schema.Goals, c.repo.Schema.Projects
	rows := make([]GoalRow, 0, len(goals))
	for _, goal := range goals {
		related := metrics.RelatedTo(projects, p.Goal, goal.ID)
		names := make([]string, 0, len(related))
		for _, pr := range related {
			names = append(names, pr.Text(p.Name))
		}
		rows = append(rows, GoalRow{
			ID:       goal.ID,
			Name:     goal.Text(g.Name),
			Domain:   goal.Select(g.Domain),
			Projects: names,
			Progress: metrics.ProgressOf(goal.ID, projects, p),
		})
	}
	return rows, nil
}

func (c *CompassRenderer) investment(ctx context.Context) (any, error) {
	projects, err := c.repo.ActiveProjects(ctx)
	if err != nil {
		return nil, err
	}
	logs, err := c.repo.RecordsSince(ctx, schema.DailyLog, c.repo.WeekStartTime())
	if err != nil {
		return nil, err
	}
	p, l := c.repo.Schema.Projects, c.repo.Schema.Logs
	cards := make([]InvestmentCard, 0, len(projects))
	for _, pr := range projects {
		deadline, _ := pr.Date(p.Deadline)
		cards = append(cards, InvestmentCard{
			ID:          pr.ID,
			Name:        pr.Text(p.Name),
			WeeklyHours: round1(metrics.WeeklyHoursFor(pr.ID, logs, l)),
			Progress:    pr.Number(p.Progress),
			Deadline:    deadline,
		})
	}
	return cards, nil
}
