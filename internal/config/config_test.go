package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lifeos/internal/schema"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, 5*time.Minute, cfg.Refresh())
	assert.Equal(t, 3*time.Second, cfg.NoticeDuration())
	assert.Equal(t, 30*time.Second, cfg.UpstreamTimeout())
	assert.Equal(t, time.Monday, cfg.FirstWeekday())
	assert.Equal(t, 10000, cfg.Countdown.Days)
	assert.Equal(t, "http://localhost:3001/api/notion", cfg.Endpoint())
	assert.Len(t, cfg.Datasets, len(schema.AllDatasets))
	assert.Equal(t, "235b6a1ba40681958663f66a8f7c415e", cfg.DatabaseIDs()[schema.Goals])
	assert.Contains(t, cfg.Proxy.AllowedOrigins, "https://fhyfang.github.io")
}

func TestFromYAMLOverlaysDefaults(t *testing.T) {
	cfg, err := FromYAML([]byte(`
environment: production
timezone: Asia/Shanghai
week_start: sunday
datasets:
  goals: custom-goals
`))
	require.NoError(t, err)
	assert.Equal(t, "https://lifeos-dashboard.onrender.com/api/notion", cfg.Endpoint())
	assert.Equal(t, time.Sunday, cfg.FirstWeekday())
	assert.Equal(t, "Asia/Shanghai", cfg.Location().String())
	assert.Equal(t, "custom-goals", cfg.Datasets["goals"])
	// untouched datasets keep their default id
	assert.Equal(t, "235b6a1ba40681369b6cf6dc2ddd4aee", cfg.Datasets["values"])
}

func TestValidateRejects(t *testing.T) {
	cases := map[string]string{
		"environment":  "environment: staging",
		"timezone":     "timezone: Mars/Olympus",
		"week start":   "week_start: someday",
		"interval":     "refresh_interval: soon",
		"negative ttl": "notice_ttl: -1s",
		"mode":         "transport: {mode: carrier-pigeon}",
		"dataset":      "datasets: {recipes: abc}",
		"status kind":  "schema: {status_kind: checkbox}",
		"unit":         "schema: {labels: {daily_log: {duration: [{label: x, unit: fortnights}]}}}",
		"field":        "schema: {labels: {daily_log: {mood: [{label: x}]}}}",
		"countdown":    "countdown: {start: 2024/01/01}",
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := FromYAML([]byte(doc))
			assert.Error(t, err)
		})
	}
}

func TestApplyEnv(t *testing.T) {
	cfg := Default()
	env := map[string]string{"DB_HEALTH": " h-override ", "DB_GOALS": ""}
	cfg.ApplyEnv(func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	})
	assert.Equal(t, "h-override", cfg.Datasets["health"])
	assert.Equal(t, "235b6a1ba40681958663f66a8f7c415e", cfg.Datasets["goals"])
}

func TestBuildSchemaOverrides(t *testing.T) {
	cfg, err := FromYAML([]byte(`
schema:
  status_kind: status
  labels:
    daily_log:
      duration:
        - {label: 时长, unit: hours}
`))
	require.NoError(t, err)
	s, err := cfg.BuildSchema()
	require.NoError(t, err)
	assert.Equal(t, "status", s.StatusKind)
	require.Len(t, s.Logs.Duration.Candidates, 1)
	assert.Equal(t, "时长", s.Logs.Duration.Candidates[0].Label)
}

func TestLoadOptional(t *testing.T) {
	dir := t.TempDir()
	cfg, err := LoadOptional(dir)
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)

	_, err = Load(dir)
	assert.Error(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, FileName), []byte("week_start: tue\n"), 0o644))
	cfg, err = LoadOptional(dir)
	require.NoError(t, err)
	assert.Equal(t, time.Tuesday, cfg.FirstWeekday())
}

func TestCountdownStart(t *testing.T) {
	cfg := Default()
	start := cfg.CountdownStart(time.UTC)
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), start)
}
