package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/go-pkgz/lgr"
	"gopkg.in/yaml.v3"

	"github.com/umputun/cubscope/pkg/domain"
	"github.com/umputun/cubscope/pkg/filter"
)

//go:generate go run ../../cmd/schema/main.go schema.json

// Config holds the application configuration
type Config struct {
	Server struct {
		Listen  string        `yaml:"listen" json:"listen" jsonschema:"default=:8080,description=HTTP server listen address"`
		Timeout time.Duration `yaml:"timeout" json:"timeout" jsonschema:"default=30s,description=HTTP server timeout"`
		BaseURL string        `yaml:"base_url" json:"base_url" jsonschema:"description=Public base URL used in RSS links"`
	} `yaml:"server" json:"server" jsonschema:"description=Server configuration"`

	Collect CollectConfig `yaml:"collect" json:"collect" jsonschema:"description=Collection configuration"`

	Auth struct {
		Token string `yaml:"token" json:"token" jsonschema:"description=Bearer token for manual collection trigger, open endpoint if empty"`
	} `yaml:"auth" json:"auth" jsonschema:"description=Manual trigger authentication"`

	Team TeamConfig `yaml:"team" json:"team" jsonschema:"description=Team presentation"`

	Sources []SourceConfig `yaml:"sources" json:"sources" jsonschema:"description=Feeds to collect from, built-in list if empty"`

	Filter FilterConfig `yaml:"filter" json:"filter" jsonschema:"description=Relevance rules, built-in team rules for lists not set"`
}

// CollectConfig holds collection settings
type CollectConfig struct {
	Interval      time.Duration `yaml:"interval" json:"interval" jsonschema:"default=30m,description=Periodic collection interval; negative disables periodic runs"`
	Schedule      string        `yaml:"schedule" json:"schedule" jsonschema:"description=Cron expression, overrides interval"`
	FetchTimeout  time.Duration `yaml:"fetch_timeout" json:"fetch_timeout" jsonschema:"default=20s,description=Timeout per feed request"`
	UserAgent     string        `yaml:"user_agent" json:"user_agent" jsonschema:"default=Mozilla/5.0 (compatible; CubsFeed/1.0),description=User agent for feed requests"`
	MaxItems      int           `yaml:"max_items" json:"max_items" jsonschema:"default=50,minimum=1,description=Maximum items kept per run"`
	SummaryMaxLen int           `yaml:"summary_max_len" json:"summary_max_len" jsonschema:"default=5000,minimum=1,description=Maximum summary length in characters"`
	Concurrency   int           `yaml:"concurrency" json:"concurrency" jsonschema:"default=4,minimum=1,description=Parallel feed fetches"`
	Output        string        `yaml:"output" json:"output" jsonschema:"default=items.json,description=Path of the JSON artifact"`
	HistoryDB     string        `yaml:"history_db" json:"history_db" jsonschema:"default=cubscope.db,description=SQLite file for run history, disabled if set to -"`
	HistoryKeep   int           `yaml:"history_keep" json:"history_keep" jsonschema:"default=100,minimum=1,description=Number of runs kept in history"`
}

// TeamConfig holds team name and quick links shown on the index page
type TeamConfig struct {
	Name       string `yaml:"name" json:"name" jsonschema:"default=Chicago Cubs — MLB Feed,description=Team title"`
	QuickLinks []Link `yaml:"quick_links" json:"quick_links" jsonschema:"description=Quick link buttons, left to right"`
}

// Link is a titled url
type Link struct {
	Title string `yaml:"title" json:"title" jsonschema:"required"`
	URL   string `yaml:"url" json:"url" jsonschema:"required"`
}

// SourceConfig defines a single feed
type SourceConfig struct {
	Name       string `yaml:"name" json:"name" jsonschema:"required,description=Display name"`
	URL        string `yaml:"url" json:"url" jsonschema:"required,description=Feed URL"`
	Trusted    bool   `yaml:"trusted" json:"trusted" jsonschema:"default=false,description=Accept every non-excluded entry"`
	PreferName bool   `yaml:"prefer_name" json:"prefer_name" jsonschema:"default=false,description=Show name instead of the feed title"`
}

// FilterConfig holds relevance term lists, a list not set in the file takes the built-in value
type FilterConfig struct {
	Exclude        []string `yaml:"exclude" json:"exclude" jsonschema:"description=Terms rejecting an item, even from trusted sources"`
	Strong         []string `yaml:"strong" json:"strong" jsonschema:"description=Terms accepting an item on their own"`
	Team           []string `yaml:"team" json:"team" jsonschema:"description=Team keywords, accepted together with a context term"`
	Context        []string `yaml:"context" json:"context" jsonschema:"description=Sport context terms"`
	TrustedDomains []string `yaml:"trusted_domains" json:"trusted_domains" jsonschema:"description=Link or feed url fragments of trusted sites"`
	TrustedSources []string `yaml:"trusted_sources" json:"trusted_sources" jsonschema:"description=Source names treated as trusted"`
}

// Load reads configuration from a YAML file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path) //nolint:gosec // file path comes from CLI flag
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	// expand environment variables
	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return finalize(&cfg)
}

// LoadOrDefault loads config from path, missing file gives the built-in configuration
func LoadOrDefault(path string) (*Config, error) {
	if path == "" {
		return Default()
	}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		lgr.Printf("[INFO] config %s not found, using built-in defaults", path)
		return Default()
	}
	return Load(path)
}

// Default returns the built-in configuration
func Default() (*Config, error) {
	return finalize(&Config{})
}

// finalize applies defaults, then validates and verifies against the embedded schema
func finalize(cfg *Config) (*Config, error) {
	setDefaults(cfg)

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	// verify against embedded schema
	if err := VerifyAgainstEmbeddedSchema(cfg); err != nil {
		// log warning but don't fail - schema validation is supplementary
		lgr.Printf("[WARN] schema validation failed: %v", err)
	}
	return cfg, nil
}

func setDefaults(cfg *Config) {
	// server
	if cfg.Server.Listen == "" {
		cfg.Server.Listen = ":8080"
	}
	if cfg.Server.Timeout == 0 {
		cfg.Server.Timeout = 30 * time.Second
	}

	// collect
	if cfg.Collect.Interval == 0 && cfg.Collect.Schedule == "" {
		cfg.Collect.Interval = 30 * time.Minute
	}
	if cfg.Collect.FetchTimeout == 0 {
		cfg.Collect.FetchTimeout = 20 * time.Second
	}
	if cfg.Collect.UserAgent == "" {
		cfg.Collect.UserAgent = "Mozilla/5.0 (compatible; CubsFeed/1.0)"
	}
	if cfg.Collect.MaxItems == 0 {
		cfg.Collect.MaxItems = 50
	}
	if cfg.Collect.SummaryMaxLen == 0 {
		cfg.Collect.SummaryMaxLen = 5000
	}
	if cfg.Collect.Concurrency == 0 {
		cfg.Collect.Concurrency = 4
	}
	if cfg.Collect.Output == "" {
		cfg.Collect.Output = "items.json"
	}
	if cfg.Collect.HistoryDB == "" {
		cfg.Collect.HistoryDB = "cubscope.db"
	}
	if cfg.Collect.HistoryKeep == 0 {
		cfg.Collect.HistoryKeep = 100
	}

	// team and sources
	if cfg.Team.Name == "" {
		cfg.Team.Name = DefaultTeamName
	}
	if cfg.Team.QuickLinks == nil {
		cfg.Team.QuickLinks = DefaultQuickLinks()
	}
	if len(cfg.Sources) == 0 {
		cfg.Sources = DefaultSources()
	}

	// filter, nil list means not set, an explicit empty list stays empty
	def := filter.DefaultRules()
	setList := func(dst *[]string, val []string) {
		if *dst == nil {
			*dst = val
		}
	}
	setList(&cfg.Filter.Exclude, def.Exclude)
	setList(&cfg.Filter.Strong, def.Strong)
	setList(&cfg.Filter.Team, def.Team)
	setList(&cfg.Filter.Context, def.Context)
	setList(&cfg.Filter.TrustedDomains, def.TrustedDomains)
	setList(&cfg.Filter.TrustedSources, def.TrustedSources)
}

// validate checks configuration for correctness
func validate(cfg *Config) error {
	if cfg.Server.Timeout < time.Second {
		return fmt.Errorf("server timeout must be at least 1 second")
	}
	if cfg.Server.BaseURL != "" {
		if u, err := url.Parse(cfg.Server.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("server.base_url %q is not an absolute url", cfg.Server.BaseURL)
		}
	}

	if cfg.Collect.Interval > 0 && cfg.Collect.Interval < time.Minute && cfg.Collect.Schedule == "" {
		return fmt.Errorf("collect.interval must be at least 1 minute")
	}
	if cfg.Collect.FetchTimeout < time.Second {
		return fmt.Errorf("collect.fetch_timeout must be at least 1 second")
	}
	if cfg.Collect.MaxItems < 1 {
		return fmt.Errorf("collect.max_items must be at least 1")
	}
	if cfg.Collect.SummaryMaxLen < 1 {
		return fmt.Errorf("collect.summary_max_len must be at least 1")
	}
	if cfg.Collect.Concurrency < 1 {
		return fmt.Errorf("collect.concurrency must be at least 1")
	}
	if cfg.Collect.HistoryKeep < 1 {
		return fmt.Errorf("collect.history_keep must be at least 1")
	}

	names := make(map[string]struct{}, len(cfg.Sources))
	for i, src := range cfg.Sources {
		if strings.TrimSpace(src.Name) == "" {
			return fmt.Errorf("sources[%d].name is required", i)
		}
		u, err := url.Parse(src.URL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("sources[%d].url %q must be an http(s) url", i, src.URL)
		}
		if _, dup := names[src.Name]; dup {
			return fmt.Errorf("sources[%d].name %q is duplicated", i, src.Name)
		}
		names[src.Name] = struct{}{}
	}
	return nil
}

// PeriodicEnabled reports whether collections run on interval or schedule,
// a negative interval without schedule leaves only startup and manual runs
func (c *Config) PeriodicEnabled() bool {
	return c.Collect.Schedule != "" || c.Collect.Interval > 0
}

// HistoryEnabled returns true if run history should be stored
func (c *Config) HistoryEnabled() bool {
	return c.Collect.HistoryDB != "-"
}

// DomainSources returns configured sources as domain values
func (c *Config) DomainSources() []domain.Source {
	res := make([]domain.Source, 0, len(c.Sources))
	for _, s := range c.Sources {
		res = append(res, domain.Source{Name: s.Name, URL: s.URL, Trusted: s.Trusted, PreferName: s.PreferName})
	}
	return res
}

// Rules returns the classifier rules
func (c *Config) Rules() filter.Rules {
	return filter.Rules{
		Exclude:        c.Filter.Exclude,
		Strong:         c.Filter.Strong,
		Team:           c.Filter.Team,
		Context:        c.Filter.Context,
		TrustedDomains: c.Filter.TrustedDomains,
		TrustedSources: c.Filter.TrustedSources,
	}
}
