// Package app wires configuration, transport, repository and dashboards
// into a running application.
package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"lifeos/internal/config"
	"lifeos/internal/dashboard"
	"lifeos/internal/dates"
	"lifeos/internal/record"
	"lifeos/internal/repo"
	"lifeos/internal/retry"
	"lifeos/internal/transport"
)

// InitFailedNotice is shown when the first load of the dashboards fails.
const InitFailedNotice = "初始化失败，请检查网络连接和配置"

// Options overrides parts of the wiring, mostly for tests and the CLI.
type Options struct {
	// Transport replaces the transport built from config.
	Transport transport.Transport
	// Sink receives frames alongside the store.
	Sink dashboard.Sink
	// Now replaces the wall clock.
	Now func() time.Time
	// LookupEnv replaces os.LookupEnv.
	LookupEnv func(string) (string, bool)
}

// Notice is a transient message with an expiry.
type Notice struct {
	Message string    `json:"message"`
	Expires time.Time `json:"expires"`
}

// App is the assembled application.
type App struct {
	Config    *config.Config
	Logger    *zap.Logger
	Transport transport.Transport
	Repo      repo.Repo
	Gateway   repo.Gateway
	Store     *dashboard.Store
	Manager   *dashboard.Manager
	Location  *time.Location
	StartedAt time.Time

	now func() time.Time

	mu      sync.Mutex
	notices []Notice
}

// Build assembles the application from cfg.
func Build(cfg *config.Config, logger *zap.Logger, opts Options) (*App, error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.LookupEnv == nil {
		opts.LookupEnv = os.LookupEnv
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	sch, err := cfg.BuildSchema()
	if err != nil {
		return nil, err
	}
	t := opts.Transport
	if t == nil {
		t, err = NewTransport(cfg, logger, opts.LookupEnv)
		if err != nil {
			return nil, err
		}
	}
	loc := cfg.Location()

	r := repo.New(t, cfg.DatabaseIDs())
	r.Schema = sch
	r.Location = loc
	r.WeekStart = cfg.FirstWeekday()
	r.PageSize = cfg.Queries.PageSize
	r.Now = now
	r.Logger = logger.Named("repo")
	if cfg.Queries.ValuesMaxPriority > 0 {
		r.MaxValuePriority = cfg.Queries.ValuesMaxPriority
	}

	store := dashboard.NewStore()
	var sink dashboard.Sink = store
	if opts.Sink != nil {
		sink = dashboard.Tee{store, opts.Sink}
	}
	renderOpts := dashboard.DefaultOptions()
	renderOpts.FoundationDays = cfg.Queries.FoundationDays
	renderOpts.GrowthLimit = cfg.Queries.GrowthLimit
	renderers := dashboard.All(r, renderOpts, logger)

	return &App{
		Config:    cfg,
		Logger:    logger,
		Transport: t,
		Repo:      r,
		Gateway: repo.Gateway{
			Transport: t,
			Schema:    sch,
			Location:  loc,
			Now:       now,
			Logger:    logger.Named("gateway"),
		},
		Store:     store,
		Manager:   dashboard.NewManager(sink, logger, renderers...),
		Location:  loc,
		StartedAt: now(),
		now:       now,
	}, nil
}

// NewTransport builds the direct or relay transport selected by cfg.
func NewTransport(cfg *config.Config, logger *zap.Logger, lookup func(string) (string, bool)) (transport.Transport, error) {
	if lookup == nil {
		lookup = os.LookupEnv
	}
	switch cfg.Transport.Mode {
	case config.ModeDirect:
		token, _ := lookup(cfg.Upstream.TokenEnv)
		rc := retry.DefaultConfig()
		rc.MaxRetries = cfg.Upstream.MaxRetries
		n, err := transport.NewNotion(transport.NotionConfig{
			BaseURL: cfg.Upstream.BaseURL,
			Token:   strings.TrimSpace(token),
			Version: cfg.Upstream.Version,
			Timeout: cfg.UpstreamTimeout(),
			Retry:   rc,
		}, logger)
		if err != nil {
			return nil, fmt.Errorf("set %s: %w", cfg.Upstream.TokenEnv, err)
		}
		return n, nil
	case config.ModeProxy:
		endpoint := cfg.Endpoint()
		if endpoint == "" {
			return nil, fmt.Errorf("no relay endpoint for environment %s", cfg.Environment)
		}
		p := transport.NewProxy(endpoint)
		p.Timeout = cfg.UpstreamTimeout()
		if cfg.Transport.TokenEnv != "" {
			if token, ok := lookup(cfg.Transport.TokenEnv); ok {
				p.BearerToken = strings.TrimSpace(token)
			}
		}
		return p, nil
	}
	return nil, fmt.Errorf("unknown transport mode %q", cfg.Transport.Mode)
}

// Init loads every dashboard. On failure a transient notice is raised and
// the error returned.
func (a *App) Init(ctx context.Context) error {
	if err := a.Manager.LoadAll(ctx); err != nil {
		a.Logger.Error("Initial load failed", zap.Error(err))
		a.Notify(InitFailedNotice)
		return err
	}
	return nil
}

// Notify raises a notice that expires after the configured notice TTL.
func (a *App) Notify(message string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.notices = append(a.notices, Notice{
		Message: message,
		Expires: a.now().Add(a.Config.NoticeDuration()),
	})
}

// Notices returns the notices that have not expired yet and drops the rest.
func (a *App) Notices() []Notice {
	a.mu.Lock()
	defer a.mu.Unlock()
	now := a.now()
	live := a.notices[:0]
	for _, n := range a.notices {
		if now.Before(n.Expires) {
			live = append(live, n)
		}
	}
	a.notices = live
	return append([]Notice(nil), live...)
}

// NoticeMessages is Notices reduced to the message text.
func (a *App) NoticeMessages() []string {
	notices := a.Notices()
	out := make([]string, 0, len(notices))
	for _, n := range notices {
		out = append(out, n.Message)
	}
	return out
}

// Countdown is the number of whole days left until the countdown ends.
func (a *App) Countdown() int {
	start := a.Config.CountdownStart(a.Location)
	return dates.DaysRemaining(start, a.Config.Countdown.Days, a.now())
}

// Run loads the dashboards, then refreshes the current one on the configured
// interval until ctx is done. A failed initial load does not stop the
// refresh loop.
func (a *App) Run(ctx context.Context) error {
	_ = a.Init(ctx)
	a.Manager.StartAutoRefresh(ctx, a.Config.Refresh())
	<-ctx.Done()
	return nil
}

// CompleteAction marks an action done and re-renders the cockpit.
func (a *App) CompleteAction(ctx context.Context, actionID string) (record.Record, error) {
	updated, err := a.Gateway.CompleteAction(ctx, actionID)
	if err != nil {
		return record.Record{}, err
	}
	if err := a.Manager.Render(ctx, dashboard.Cockpit); err != nil {
		a.Logger.Warn("Re-render after completing action failed", zap.String("action_id", actionID), zap.Error(err))
	}
	return updated, nil
}

// Status summarises the running application.
type Status struct {
	Environment string    `json:"environment"`
	Transport   string    `json:"transport"`
	Current     string    `json:"current"`
	Dashboards  []string  `json:"dashboards"`
	DaysLeft    int       `json:"daysLeft"`
	Notices     []Notice  `json:"notices"`
	StartedAt   time.Time `json:"startedAt"`
}

func (a *App) Status() Status {
	return Status{
		Environment: a.Config.Environment,
		Transport:   a.Config.Transport.Mode,
		Current:     a.Manager.Current(),
		Dashboards:  a.Manager.Names(),
		DaysLeft:    a.Countdown(),
		Notices:     a.Notices(),
		StartedAt:   a.StartedAt,
	}
}
