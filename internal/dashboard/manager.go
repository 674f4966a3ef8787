package dashboard

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// DefaultRefreshInterval is how often the current dashboard is re-rendered.
const DefaultRefreshInterval = 5 * time.Minute

// ErrUnknownDashboard is returned for a name no renderer answers to.
var ErrUnknownDashboard = errors.New("unknown dashboard")

// Manager owns the renderers, tracks which dashboard is current and drives
// the refresh timer.
type Manager struct {
	sink   Sink
	logger *zap.Logger

	order     []string
	renderers map[string]Renderer

	mu      sync.RWMutex
	current string
}

// NewManager registers renderers in load order. The first one starts as the
// current dashboard.
func NewManager(sink Sink, logger *zap.Logger, renderers ...Renderer) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	m := &Manager{
		sink:      sink,
		logger:    logger.Named("dashboards"),
		renderers: make(map[string]Renderer, len(renderers)),
	}
	for _, r := range renderers {
		if _, dup := m.renderers[r.Name()]; dup {
			continue
		}
		m.order = append(m.order, r.Name())
		m.renderers[r.Name()] = r
	}
	if len(m.order) > 0 {
		m.current = m.order[0]
	}
	return m
}

// Names lists the dashboards in load order.
func (m *Manager) Names() []string {
	return append([]string(nil), m.order...)
}

// Renderer looks up a dashboard by name.
func (m *Manager) Renderer(name string) (Renderer, bool) {
	r, ok := m.renderers[name]
	return r, ok
}

// LoadAll renders every dashboard one after another. A failing dashboard does
// not stop the rest; the failures are returned joined.
func (m *Manager) LoadAll(ctx context.Context) error {
	var errs []error
	for _, name := range m.order {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := m.Render(ctx, name); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Render renders one dashboard into the sink.
func (m *Manager) Render(ctx context.Context, name string) error {
	r, ok := m.renderers[name]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownDashboard, name)
	}
	start := time.Now()
	if err := r.Render(ctx, m.sink); err != nil {
		m.logger.Warn("Dashboard render failed", zap.String("dashboard", name), zap.Error(err))
		return err
	}
	m.logger.Info("Dashboard rendered",
		zap.String("dashboard", name),
		zap.Duration("elapsed", time.Since(start)))
	return nil
}

// SetCurrent switches the current dashboard. Unknown names are rejected and
// leave the current dashboard unchanged.
func (m *Manager) SetCurrent(name string) error {
	if _, ok := m.renderers[name]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownDashboard, name)
	}
	m.mu.Lock()
	m.current = name
	m.mu.Unlock()
	return nil
}

func (m *Manager) Current() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

// RefreshCurrent re-renders the current dashboard.
func (m *Manager) RefreshCurrent(ctx context.Context) error {
	name := m.Current()
	if name == "" {
		return nil
	}
	return m.Render(ctx, name)
}

// StartAutoRefresh re-renders the current dashboard every interval until ctx
// is done. It does not wait for an in-flight LoadAll.
func (m *Manager) StartAutoRefresh(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultRefreshInterval
	}
	go m.refreshLoop(ctx, interval)
}

func (m *Manager) refreshLoop(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			// Render already logged any failure.
			_ = m.RefreshCurrent(ctx)
		}
	}
}
