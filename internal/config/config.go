// Package config loads and validates scraper configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// MinRequestDelay is the politeness floor. Configurations specifying a
// smaller delay are rejected at load time.
const MinRequestDelay = 3 * time.Second

// Config captures all scraper configuration knobs loaded via Viper.
type Config struct {
	BaseURL   string         `mapstructure:"base_url"`
	UserAgent string         `mapstructure:"user_agent"`
	Fetch     FetchConfig    `mapstructure:"fetch"`
	Cache     CacheConfig    `mapstructure:"cache"`
	Database  DatabaseConfig `mapstructure:"database"`
	Logging   LoggingConfig  `mapstructure:"logging"`
	Discovery Discovery      `mapstructure:"discovery"`
	Classify  ClassifyConfig `mapstructure:"classify"`
	PDF       PDFConfig      `mapstructure:"pdf"`
	Metrics   MetricsConfig  `mapstructure:"metrics"`
}

// FetchConfig governs the polite-fetching state machine.
type FetchConfig struct {
	RequestDelaySeconds float64 `mapstructure:"request_delay_seconds"`
	JitterMaxSeconds    float64 `mapstructure:"jitter_max_seconds"`
	TimeoutSeconds      int     `mapstructure:"timeout_seconds"`
	MaxRetries          int     `mapstructure:"max_retries"`
	RetryBackoffSeconds []int   `mapstructure:"retry_backoff_seconds"`
	HaltThreshold       int     `mapstructure:"halt_threshold"`
	MaxPageBytes        int64   `mapstructure:"max_page_bytes"`
}

// CacheConfig sets the on-disk HTTP cache location and expiry.
type CacheConfig struct {
	Dir        string `mapstructure:"dir"`
	TTLSeconds int    `mapstructure:"ttl_seconds"`
}

// DatabaseConfig controls the local SQLite store.
type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

// LoggingConfig toggles zap development features and the JSON log file.
type LoggingConfig struct {
	Development bool   `mapstructure:"development"`
	Path        string `mapstructure:"path"`
}

// Discovery holds the per-page-role selectors the parser consumes.
type Discovery struct {
	IndexPath      string          `mapstructure:"index_path"`
	RegionSelector string          `mapstructure:"region_selector"`
	RiverSelector  string          `mapstructure:"river_selector"`
	Detail         DetailSelectors `mapstructure:"detail_selectors"`
}

// DetailSelectors names the labeled sections of a river detail page.
type DetailSelectors struct {
	FishType    string `mapstructure:"fish_type"`
	Situation   string `mapstructure:"situation"`
	Flies       string `mapstructure:"recommended_lures"`
	Regulations string `mapstructure:"regulations"`
}

// CategoryRule maps a fly category name to the keywords that identify it.
// Rules are evaluated in order; the first match wins.
type CategoryRule struct {
	Name     string   `mapstructure:"name"`
	Keywords []string `mapstructure:"keywords"`
}

// ClassifyConfig is the auditable pattern-matching policy for fly
// classification. It is configuration data, not logic.
type ClassifyConfig struct {
	Categories []CategoryRule `mapstructure:"categories"`
	Colors     []string       `mapstructure:"colors"`
}

// PDFConfig controls offline PDF export.
type PDFConfig struct {
	OutputDir string `mapstructure:"output_dir"`
	PageSize  string `mapstructure:"page_size"`
}

// MetricsConfig controls the optional Prometheus endpoint.
type MetricsConfig struct {
	Addr string `mapstructure:"addr"`
}

// RequestDelay returns the minimum gap between outbound requests.
func (c Config) RequestDelay() time.Duration {
	return time.Duration(c.Fetch.RequestDelaySeconds * float64(time.Second))
}

// JitterMax returns the upper bound for random delay jitter.
func (c Config) JitterMax() time.Duration {
	return time.Duration(c.Fetch.JitterMaxSeconds * float64(time.Second))
}

// Timeout returns the per-request HTTP timeout.
func (c Config) Timeout() time.Duration {
	return time.Duration(c.Fetch.TimeoutSeconds) * time.Second
}

// RetryBackoff returns the backoff schedule as durations.
func (c Config) RetryBackoff() []time.Duration {
	out := make([]time.Duration, 0, len(c.Fetch.RetryBackoffSeconds))
	for _, s := range c.Fetch.RetryBackoffSeconds {
		out = append(out, time.Duration(s)*time.Second)
	}
	return out
}

// CacheTTL returns the cache freshness window.
func (c Config) CacheTTL() time.Duration {
	return time.Duration(c.Cache.TTLSeconds) * time.Second
}

// Load builds a Config from disk/environment. An empty path loads defaults
// and environment overrides only.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("RIVERSCOUT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("base_url", "https://nzfishing.com")
	v.SetDefault("user_agent", "riverscout/1.0 (+https://github.com/nzflyfish/riverscout)")
	v.SetDefault("fetch.request_delay_seconds", 3.0)
	v.SetDefault("fetch.jitter_max_seconds", 0.0)
	v.SetDefault("fetch.timeout_seconds", 30)
	v.SetDefault("fetch.max_retries", 3)
	v.SetDefault("fetch.retry_backoff_seconds", []int{1, 2, 4, 8})
	v.SetDefault("fetch.halt_threshold", 3)
	v.SetDefault("fetch.max_page_bytes", 5*1024*1024)
	v.SetDefault("cache.dir", ".cache/riverscout")
	v.SetDefault("cache.ttl_seconds", 86400)
	v.SetDefault("database.path", "data/riverscout.db")
	v.SetDefault("logging.development", true)
	v.SetDefault("logging.path", "")
	v.SetDefault("discovery.index_path", "/where-to-fish/")
	v.SetDefault("discovery.region_selector", "div.region-list a")
	v.SetDefault("discovery.river_selector", "div.fishing-waters a")
	v.SetDefault("discovery.detail_selectors.fish_type", ".fish-type")
	v.SetDefault("discovery.detail_selectors.situation", ".situation")
	v.SetDefault("discovery.detail_selectors.recommended_lures", ".recommended-lures")
	v.SetDefault("discovery.detail_selectors.regulations", ".regulations")
	v.SetDefault("classify.colors", defaultColors)
	v.SetDefault("pdf.output_dir", "pdfs")
	v.SetDefault("pdf.page_size", "A4")
	v.SetDefault("metrics.addr", "")
}

var defaultColors = []string{
	"black", "brown", "olive", "gray", "grey", "white", "red", "yellow",
	"orange", "green", "blue", "purple", "pink", "tan", "gold", "silver",
}

// DefaultCategories mirrors the classification policy shipped with the
// scraper. Rules are ordered; the first matching rule wins.
var DefaultCategories = []CategoryRule{
	{Name: "nymph", Keywords: []string{"nymph", "hare", "pheasant tail", "prince"}},
	{Name: "dry", Keywords: []string{"dry", "wulff", "adams", "elk hair", "parachute"}},
	{Name: "streamer", Keywords: []string{"streamer", "bugger", "woolly", "muddler", "zonker"}},
	{Name: "wet", Keywords: []string{"wet", "soft hackle"}},
}

// Validate enforces required values and the politeness invariants.
func (c Config) Validate() error {
	if !strings.HasPrefix(c.BaseURL, "http://") && !strings.HasPrefix(c.BaseURL, "https://") {
		return fmt.Errorf("base_url must start with http:// or https://")
	}
	if strings.TrimSpace(c.UserAgent) == "" {
		return fmt.Errorf("user_agent must be set")
	}
	if c.RequestDelay() < MinRequestDelay {
		return fmt.Errorf("fetch.request_delay_seconds must be >= %.1f, got %.2f",
			MinRequestDelay.Seconds(), c.Fetch.RequestDelaySeconds)
	}
	if c.Fetch.JitterMaxSeconds < 0 {
		return fmt.Errorf("fetch.jitter_max_seconds must be >= 0")
	}
	if c.Fetch.TimeoutSeconds <= 0 {
		return fmt.Errorf("fetch.timeout_seconds must be > 0")
	}
	if c.Fetch.MaxRetries <= 0 {
		return fmt.Errorf("fetch.max_retries must be > 0")
	}
	if len(c.Fetch.RetryBackoffSeconds) == 0 {
		return fmt.Errorf("fetch.retry_backoff_seconds must not be empty")
	}
	if c.Fetch.HaltThreshold <= 0 {
		return fmt.Errorf("fetch.halt_threshold must be > 0")
	}
	if c.Cache.TTLSeconds <= 0 {
		return fmt.Errorf("cache.ttl_seconds must be > 0")
	}
	if strings.TrimSpace(c.Database.Path) == "" {
		return fmt.Errorf("database.path must be set")
	}
	return nil
}

// Categories returns the configured classification rules, falling back to
// the default policy when the config file omits them.
func (c Config) Categories() []CategoryRule {
	if len(c.Classify.Categories) > 0 {
		return c.Classify.Categories
	}
	return DefaultCategories
}

// Colors returns the recognized color vocabulary.
func (c Config) Colors() []string {
	if len(c.Classify.Colors) > 0 {
		return c.Classify.Colors
	}
	return defaultColors
}
