package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"lifeos/internal/dates"
	"lifeos/internal/record"
	"lifeos/internal/schema"
)

// FileName is the config file looked up in the workspace.
const FileName = "lifeos.yml"

// Transport modes.
const (
	ModeDirect = "direct"
	ModeProxy  = "proxy"
)

// Config models lifeos.yml.
type Config struct {
	Environment     string `yaml:"environment"`
	Timezone        string `yaml:"timezone"`
	WeekStart       string `yaml:"week_start"`
	RefreshInterval string `yaml:"refresh_interval"`
	NoticeTTL       string `yaml:"notice_ttl"`
	Countdown       struct {
		Start string `yaml:"start"`
		Days  int    `yaml:"days"`
	} `yaml:"countdown"`
	Logging struct {
		Level string `yaml:"level"`
	} `yaml:"logging"`
	Transport struct {
		Mode      string            `yaml:"mode"`
		Endpoints map[string]string `yaml:"endpoints"`
		// TokenEnv names the variable holding the bearer token sent to a
		// relay that requires one.
		TokenEnv string `yaml:"token_env"`
	} `yaml:"transport"`
	Upstream struct {
		BaseURL    string `yaml:"base_url"`
		Version    string `yaml:"version"`
		TokenEnv   string `yaml:"token_env"`
		Timeout    string `yaml:"timeout"`
		MaxRetries int    `yaml:"max_retries"`
	} `yaml:"upstream"`
	Proxy struct {
		Addr           string   `yaml:"addr"`
		Path           string   `yaml:"path"`
		AllowedOrigins []string `yaml:"allowed_origins"`
		JWTSecretEnv   string   `yaml:"jwt_secret_env"`
	} `yaml:"proxy"`
	Datasets map[string]string `yaml:"datasets"`
	Schema   struct {
		StatusKind string                            `yaml:"status_kind"`
		Labels     map[string]map[string][]LabelSpec `yaml:"labels"`
	} `yaml:"schema"`
	Queries struct {
		ValuesMaxPriority float64 `yaml:"values_max_priority"`
		FoundationDays    int     `yaml:"foundation_days"`
		GrowthLimit       int     `yaml:"growth_limit"`
		PageSize          int     `yaml:"page_size"`
	} `yaml:"queries"`
}

// LabelSpec is one candidate label of a semantic field.
type LabelSpec struct {
	Label string `yaml:"label"`
	Unit  string `yaml:"unit,omitempty"`
}

// Load reads and validates config from workspace.
func Load(workspace string) (*Config, error) {
	path := Path(workspace)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config %s not found; create one with lifeos config init", path)
		}
		return nil, err
	}
	return FromYAML(data)
}

// Validate ensures the config meets required structure.
func (c *Config) Validate() error {
	switch c.Environment {
	case "development", "production":
	default:
		return fmt.Errorf("config.environment must be development or production, got %q", c.Environment)
	}
	if _, err := dates.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("config.timezone: %w", err)
	}
	if _, err := dates.ParseWeekday(c.WeekStart); err != nil {
		return fmt.Errorf("config.week_start: %w", err)
	}
	for name, value := range map[string]string{
		"refresh_interval": c.RefreshInterval,
		"notice_ttl":       c.NoticeTTL,
		"upstream.timeout": c.Upstream.Timeout,
	} {
		if value == "" {
			continue
		}
		d, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("config.%s: %w", name, err)
		}
		if d <= 0 {
			return fmt.Errorf("config.%s must be positive", name)
		}
	}
	if c.Countdown.Start != "" {
		if _, err := time.Parse(dates.DayLayout, c.Countdown.Start); err != nil {
			return fmt.Errorf("config.countdown.start must be YYYY-MM-DD: %w", err)
		}
	}
	if c.Countdown.Days < 0 {
		return fmt.Errorf("config.countdown.days must not be negative")
	}
	switch c.Transport.Mode {
	case ModeDirect:
		if strings.TrimSpace(c.Upstream.TokenEnv) == "" {
			return fmt.Errorf("config.upstream.token_env is required in direct mode")
		}
	case ModeProxy:
		if strings.TrimSpace(c.Endpoint()) == "" {
			return fmt.Errorf("config.transport.endpoints has no entry for environment %s", c.Environment)
		}
	default:
		return fmt.Errorf("config.transport.mode must be direct or proxy, got %q", c.Transport.Mode)
	}
	if c.Upstream.MaxRetries < 0 {
		return fmt.Errorf("config.upstream.max_retries must not be negative")
	}
	for name, id := range c.Datasets {
		if !schema.Dataset(name).Known() {
			return fmt.Errorf("config.datasets has unknown dataset %s", name)
		}
		if strings.TrimSpace(id) == "" {
			return fmt.Errorf("config.datasets.%s is empty", name)
		}
	}
	switch c.Schema.StatusKind {
	case "", "select", "status":
	default:
		return fmt.Errorf("config.schema.status_kind must be select or status")
	}
	if _, err := c.BuildSchema(); err != nil {
		return err
	}
	if c.Proxy.Path != "" && !strings.HasPrefix(c.Proxy.Path, "/") {
		return fmt.Errorf("config.proxy.path must start with /")
	}
	return nil
}

// Path returns the config file path for a workspace.
func Path(workspace string) string {
	if workspace == "" {
		workspace = "."
	}
	return filepath.Join(workspace, FileName)
}

// GenerateDefault returns default config YAML.
func GenerateDefault() string {
	return defaultTemplate
}

// LoadOptional returns the default config if the file does not exist.
func LoadOptional(workspace string) (*Config, error) {
	path := Path(workspace)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, err
	}
	return FromYAML(data)
}

// Default returns the default Config struct.
func Default() *Config {
	var cfg Config
	_ = yaml.NewDecoder(bytes.NewBufferString(defaultTemplate)).Decode(&cfg)
	return &cfg
}

// FromYAML parses config from raw YAML bytes on top of the defaults and
// validates the result.
func FromYAML(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("invalid config yaml: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// FromFile reads YAML config from the given path.
func FromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return FromYAML(data)
}

// ApplyEnv overrides dataset ids from DB_<DATASET> variables.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) {
	if lookup == nil {
		lookup = os.LookupEnv
	}
	if c.Datasets == nil {
		c.Datasets = map[string]string{}
	}
	for _, ds := range schema.AllDatasets {
		if v, ok := lookup(ds.EnvKey()); ok && strings.TrimSpace(v) != "" {
			c.Datasets[string(ds)] = strings.TrimSpace(v)
		}
	}
}

// DatabaseIDs maps every configured dataset to its upstream id.
func (c *Config) DatabaseIDs() map[schema.Dataset]string {
	out := make(map[schema.Dataset]string, len(c.Datasets))
	for name, id := range c.Datasets {
		out[schema.Dataset(name)] = id
	}
	return out
}

// DatasetNames lists the configured datasets, sorted.
func (c *Config) DatasetNames() []string {
	names := make([]string, 0, len(c.Datasets))
	for name := range c.Datasets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Endpoint is the proxy URL for the configured environment.
func (c *Config) Endpoint() string {
	return c.Transport.Endpoints[c.Environment]
}

// Location resolves the configured time zone.
func (c *Config) Location() *time.Location {
	loc, err := dates.LoadLocation(c.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

// FirstWeekday is the configured start of the week.
func (c *Config) FirstWeekday() time.Weekday {
	d, err := dates.ParseWeekday(c.WeekStart)
	if err != nil {
		return time.Monday
	}
	return d
}

// Refresh is the auto refresh interval.
func (c *Config) Refresh() time.Duration {
	return durationOr(c.RefreshInterval, 5*time.Minute)
}

// NoticeDuration is how long a transient notice stays visible.
func (c *Config) NoticeDuration() time.Duration {
	return durationOr(c.NoticeTTL, 3*time.Second)
}

// UpstreamTimeout bounds one upstream call.
func (c *Config) UpstreamTimeout() time.Duration {
	return durationOr(c.Upstream.Timeout, 30*time.Second)
}

// CountdownStart is the first day of the countdown, in loc.
func (c *Config) CountdownStart(loc *time.Location) time.Time {
	t, err := time.ParseInLocation(dates.DayLayout, c.Countdown.Start, loc)
	if err != nil {
		return time.Date(2024, 1, 1, 0, 0, 0, 0, loc)
	}
	return t
}

// BuildSchema applies the label overrides to the default schema.
func (c *Config) BuildSchema() (schema.Schema, error) {
	s := schema.Default()
	if c.Schema.StatusKind != "" {
		s.StatusKind = c.Schema.StatusKind
	}
	datasets := make([]string, 0, len(c.Schema.Labels))
	for ds := range c.Schema.Labels {
		datasets = append(datasets, ds)
	}
	sort.Strings(datasets)
	for _, ds := range datasets {
		fields := c.Schema.Labels[ds]
		for name, specs := range fields {
			cands := make([]record.Candidate, 0, len(specs))
			for _, spec := range specs {
				unit, err := record.ParseUnit(spec.Unit)
				if err != nil {
					return schema.Schema{}, fmt.Errorf("config.schema.labels.%s.%s: %w", ds, name, err)
				}
				cands = append(cands, record.Candidate{Label: spec.Label, Unit: unit})
			}
			if err := s.Override(schema.Dataset(ds), name, cands); err != nil {
				return schema.Schema{}, fmt.Errorf("config.schema.labels: %w", err)
			}
		}
	}
	return s, nil
}

func durationOr(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

const defaultTemplate = `environment: development
timezone: Local
week_start: monday
refresh_interval: 5m
notice_ttl: 3s

countdown:
  start: "2024-01-01"
  days: 10000

logging:
  level: info

transport:
  mode: proxy
  endpoints:
    development: http://localhost:3001/api/notion
    production: https://lifeos-dashboard.onrender.com/api/notion
  token_env: LIFEOS_PROXY_TOKEN

upstream:
  base_url: https://api.notion.com
  version: "2022-06-28"
  token_env: NOTION_API_KEY
  timeout: 30s
  max_retries: 3

proxy:
  addr: ":3001"
  path: /api/notion
  allowed_origins:
    - http://localhost:3000
    - https://fhyfang.github.io
    - https://lifeos-dashboard.onrender.com
  jwt_secret_env: ""

datasets:
  values: 235b6a1ba40681369b6cf6dc2ddd4aee
  values_check: 235b6a1ba40681299abaffe6f8c0cf2a
  goals: 235b6a1ba40681958663f66a8f7c415e
  projects: 235b6a1ba40681c5a1fff21434479d7f
  actions: 235b6a1ba40681709066ffc71e397670
  daily_log: 235b6a1ba40681f6bb1aef4d6b297e44
  emotions: 235b6a1ba40681e49a28d1ac5c544175
  health: 235b6a1ba40681d68417e04382f4a415
  attention: 235b6a1ba4068155a4a5fb159817c0a7
  creation: 235b6a1ba4068119a758ca37fff85a61
  interaction: 235b6a1ba406811399b4d712954ed9b0
  finance: 235b6a1ba406811780d3f4befebe85c9
  growth_review: 235b6a1ba406816682b9cd596d63eb84
  desires: 236b6a1ba40680e8bc09ef708acd9c34
  knowledge: 235b6a1ba40681b1877ffd6e3ba0e78d
  mental_models: 235b6a1ba40681e1a6c9cbbb95c13a45
  relationships: 235b6a1ba40681e49ce5debe17b5262c

schema:
  status_kind: select
  # labels:
  #   daily_log:
  #     duration:
  #       - {label: 实际时长（分钟）, unit: minutes}
  #       - {label: 实际时长, unit: hours}

queries:
  values_max_priority: 2
  foundation_days: 30
  growth_limit: 10
  page_size: 100
`
