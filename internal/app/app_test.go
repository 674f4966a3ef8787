package app

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"lifeos/internal/config"
	"lifeos/internal/dashboard"
	"lifeos/internal/transport"
)

type recordingTransport struct {
	mu       sync.Mutex
	err      error
	requests []transport.Request
}

func (f *recordingTransport) Invoke(_ context.Context, req transport.Request) (json.RawMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)
	if f.err != nil {
		return nil, f.err
	}
	if req.Method == transport.MethodQueryDatabase {
		return json.RawMessage(`{"results":[],"has_more":false}`), nil
	}
	return json.RawMessage(`{"id":"` + req.PageID + `","properties":{}}`), nil
}

func (f *recordingTransport) methods() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.requests))
	for _, r := range f.requests {
		out = append(out, r.Method)
	}
	return out
}

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.FromYAML([]byte("timezone: UTC\n"))
	require.NoError(t, err)
	return cfg
}

func build(t *testing.T, ft *recordingTransport, c *clock) *App {
	t.Helper()
	a, err := Build(testConfig(t), zap.NewNop(), Options{Transport: ft, Now: c.now})
	require.NoError(t, err)
	return a
}

func TestInitLoadsEveryDashboard(t *testing.T) {
	ft := &recordingTransport{}
	c := &clock{t: time.Date(2024, 3, 6, 15, 30, 0, 0, time.UTC)}
	a := build(t, ft, c)

	require.NoError(t, a.Init(context.Background()))
	for _, name := range dashboard.Order {
		assert.NotEmpty(t, a.Store.Frames(name), name)
	}
	assert.Empty(t, a.Notices())
}

func TestInitFailureRaisesTransientNotice(t *testing.T) {
	ft := &recordingTransport{err: errors.New("dial tcp: connection refused")}
	c := &clock{t: time.Date(2024, 3, 6, 15, 30, 0, 0, time.UTC)}
	a := build(t, ft, c)

	require.Error(t, a.Init(context.Background()))
	assert.Equal(t, []string{InitFailedNotice}, a.NoticeMessages())

	c.t = c.t.Add(2 * time.Second)
	assert.Len(t, a.Notices(), 1)

	c.t = c.t.Add(time.Second)
	assert.Empty(t, a.Notices())

	// every dashboard still published its failed section
	for _, name := range dashboard.Order {
		frames := a.Store.Frames(name)
		require.NotEmpty(t, frames, name)
		assert.True(t, frames[len(frames)-1].Failed(), name)
	}
}

func TestCountdown(t *testing.T) {
	c := &clock{t: time.Date(2024, 3, 6, 15, 30, 0, 0, time.UTC)}
	a := build(t, &recordingTransport{}, c)
	assert.Equal(t, 9934, a.Countdown())

	c.t = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, 10000, a.Countdown())
}

func TestCompleteActionRerendersCockpit(t *testing.T) {
	ft := &recordingTransport{}
	c := &clock{t: time.Date(2024, 3, 6, 15, 30, 0, 0, time.UTC)}
	a := build(t, ft, c)

	updated, err := a.CompleteAction(context.Background(), "act-1")
	require.NoError(t, err)
	assert.Equal(t, "act-1", updated.ID)

	methods := ft.methods()
	require.NotEmpty(t, methods)
	assert.Equal(t, transport.MethodUpdatePage, methods[0])
	assert.NotEmpty(t, a.Store.Frames(dashboard.Cockpit))
	assert.Empty(t, a.Store.Frames(dashboard.Compass))

	var props map[string]map[string]any
	require.NoError(t, json.Unmarshal(ft.requests[0].Properties, &props))
	assert.Equal(t, map[string]any{"name": "已完成"}, props["状态"]["select"])
	assert.Equal(t, "2024-03-06T15:30:00Z", props["完成日期"]["date"].(map[string]any)["start"])
}

func TestNewTransportByMode(t *testing.T) {
	cfg := testConfig(t)
	env := map[string]string{"NOTION_API_KEY": "secret_abc", "LIFEOS_PROXY_TOKEN": "tok"}
	lookup := func(k string) (string, bool) { v, ok := env[k]; return v, ok }

	tr, err := NewTransport(cfg, nil, lookup)
	require.NoError(t, err)
	p, ok := tr.(*transport.Proxy)
	require.True(t, ok)
	assert.Equal(t, "http://localhost:3001/api/notion", p.URL)
	assert.Equal(t, "tok", p.BearerToken)

	cfg.Transport.Mode = config.ModeDirect
	tr, err = NewTransport(cfg, nil, lookup)
	require.NoError(t, err)
	_, ok = tr.(*transport.Notion)
	assert.True(t, ok)

	delete(env, "NOTION_API_KEY")
	_, err = NewTransport(cfg, nil, lookup)
	assert.Error(t, err)
}

func TestRunStopsWithContext(t *testing.T) {
	a := build(t, &recordingTransport{}, &clock{t: time.Now()})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
