package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"companion/internal/agenda"
)

// NewsConfig controls RSS aggregation and topic classification.
type NewsConfig struct {
	// Limit is the per-topic article cap.
	Limit int `yaml:"limit" json:"limit"`
	// MaxAgeHours drops entries older than this, when a publish date parses.
	MaxAgeHours int `yaml:"max_age_hours" json:"max_age_hours"`
	// Topics maps a topic name to the regex patterns that select it.
	// The first matching topic wins; unmatched entries fall into "General".
	Topics map[string][]string `yaml:"topics" json:"topics"`
	// DomainWhitelist / DomainBlacklist filter entries by link host.
	DomainWhitelist []string `yaml:"domain_whitelist" json:"domain_whitelist"`
	DomainBlacklist []string `yaml:"domain_blacklist" json:"domain_blacklist"`
	// Feeds is the curated RSS/Atom source list.
	Feeds []string `yaml:"feeds" json:"feeds"`
}

// EmailConfig holds SMTP delivery settings.
type EmailConfig struct {
	Enabled bool   `yaml:"enabled" json:"enabled"`
	Host    string `yaml:"host" json:"host"`
	Port    string `yaml:"port" json:"port"`
	From    string `yaml:"from" json:"from"`
	// To is a comma-separated recipient list.
	To            string `yaml:"to" json:"to"`
	Username      string `yaml:"username" json:"username"`
	Password      string `yaml:"password" json:"password"`
	SubjectPrefix string `yaml:"subject_prefix" json:"subject_prefix"`
}

// DigestConfig controls the email-body digest.
type DigestConfig struct {
	// Lang is "es" or "en".
	Lang string `yaml:"lang" json:"lang"`
	// OllamaURL enables local LLM synthesis when non-empty
	// (e.g. "http://localhost:11434"). The heuristic digest is the fallback.
	OllamaURL   string `yaml:"ollama_url" json:"ollama_url"`
	OllamaModel string `yaml:"ollama_model" json:"ollama_model"`
	// HeadlineCount is how many headlines feed the digest.
	HeadlineCount int `yaml:"headline_count" json:"headline_count"`
}

// BasicAuthConfig holds HTTP Basic Auth credentials for the web endpoints.
type BasicAuthConfig struct {
	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password" json:"password"`
}

// Config is the top-level application configuration.
type Config struct {
	// Listen is the HTTP listen address for the report server.
	Listen string `yaml:"listen" json:"listen"`

	// Timezone is the IANA working timezone (e.g. "America/Mexico_City").
	Timezone string `yaml:"timezone" json:"timezone"`

	// WorkdayStartHour / WorkdayEndHour bound the free-slot search window.
	WorkdayStartHour int `yaml:"workday_start_hour" json:"workday_start_hour"`
	WorkdayEndHour   int `yaml:"workday_end_hour" json:"workday_end_hour"`

	// MinBlockMinutes is the minimum study-block length.
	MinBlockMinutes int `yaml:"min_block_minutes" json:"min_block_minutes"`

	// RefreshCron schedules report generation in daemon mode
	// (e.g. "0 7 * * *" for 07:00 daily).
	RefreshCron string `yaml:"refresh" json:"refresh"`

	// FeedURL is the calendar ICS subscription endpoint.
	FeedURL string `yaml:"feed_url" json:"feed_url"`

	// CacheDir is where the feed fetcher keeps its HTTP cache.
	CacheDir string `yaml:"cache_dir" json:"cache_dir"`

	// Output artifact paths.
	ReportPath   string `yaml:"report_path" json:"report_path"`
	SnapshotPath string `yaml:"snapshot_path" json:"snapshot_path"`
	StudyICSPath string `yaml:"study_ics_path" json:"study_ics_path"`

	// ReportPublicURL, if set, is linked from the email body.
	ReportPublicURL string `yaml:"report_public_url" json:"report_public_url"`

	// Tickers are the market symbols to track.
	Tickers []string `yaml:"tickers" json:"tickers"`
	// PriceWindowDays is the stats/chart lookback.
	PriceWindowDays int `yaml:"price_window_days" json:"price_window_days"`

	News   NewsConfig   `yaml:"news" json:"news"`
	Email  EmailConfig  `yaml:"email" json:"email"`
	Digest DigestConfig `yaml:"digest" json:"digest"`

	// BasicAuth, if non-nil, protects all web endpoints except /health.
	BasicAuth *BasicAuthConfig `yaml:"basic_auth,omitempty" json:"basic_auth,omitempty"`
}

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		Listen:           "127.0.0.1:8080",
		Timezone:         "America/Mexico_City",
		WorkdayStartHour: 8,
		WorkdayEndHour:   21,
		MinBlockMinutes:  60,
		RefreshCron:      "0 7 * * *",
		CacheDir:         "./var/feed-cache",
		ReportPath:       "data/processed/daily_report.html",
		SnapshotPath:     "data/processed/daily_report.png",
		StudyICSPath:     "data/processed/study_blocks.ics",
		Tickers:          []string{"SPY", "NVDA", "MSFT", "TSLA", "AMZN"},
		PriceWindowDays:  14,
		News: NewsConfig{
			Limit:       6,
			MaxAgeHours: 36,
			Topics: map[string][]string{
				"AI": {
					`\bai\b`,
					`artificial intelligence`,
					`gen(ai|erative ai)`,
					`\bllm(s)?\b`,
					`gpt(-\d+)?`,
					`anthropic|openai|deepmind`,
				},
				"Machine Learning": {
					`machine[- ]learning`,
					`\bml\b`,
					`deep[- ]learning`,
					`neural (net|network|networks)`,
					`transformer(s)?`,
					`\b(model|models|training|fine[- ]tune|fine[- ]tuning)\b`,
				},
				"Fintech": {
					`\bfintech\b`,
					`payment(s)?|paytech`,
					`bank(ing)?|neobank|digital bank`,
					`lending|credit|remittance(s)?`,
					`stripe|visa|mastercard|paypal|square|block( inc)?`,
					`\bsaas\b`,
				},
			},
			DomainWhitelist: []string{
				"wsj.com", "feeds.a.dj.com",
				"bloomberg.com", "feeds.bloomberg.com",
				"ft.com",
				"techcrunch.com",
				"theverge.com",
				"semianalysis.com",
				"reuters.com",
				"nytimes.com", "rss.nytimes.com",
				"forbes.com",
				"finance.yahoo.com",
			},
			DomainBlacklist: []string{},
			Feeds: []string{
				"https://feeds.a.dj.com/rss/RSSMarketsMain.xml",
				"https://feeds.a.dj.com/rss/WSJcomUSBusiness.xml",
				"https://feeds.bloomberg.com/markets/news.rss",
				"https://feeds.bloomberg.com/technology/news.rss",
				"https://www.ft.com/technology?format=rss",
				"https://www.ft.com/companies/financials?format=rss",
				"https://techcrunch.com/feed/",
				"https://www.theverge.com/rss/index.xml",
				"https://www.semianalysis.com/feed",
				"https://www.reuters.com/finance/markets/rss",
				"https://www.reuters.com/technology/rss",
				"https://rss.nytimes.com/services/xml/rss/nyt/Technology.xml",
				"https://rss.nytimes.com/services/xml/rss/nyt/Business.xml",
				"https://www.forbes.com/innovation/feed/",
				"https://www.forbes.com/money/feed/",
				"https://finance.yahoo.com/news/rssindex",
			},
		},
		Email: EmailConfig{
			Enabled:       false,
			Port:          "587",
			SubjectPrefix: "[Daily Companion]",
		},
		Digest: DigestConfig{
			Lang:          "es",
			OllamaModel:   "qwen2.5:3b-instruct",
			HeadlineCount: 5,
		},
		BasicAuth: nil,
	}
}

// Normalize fills in missing/zero values with sensible defaults so that
// partially-filled configs still behave correctly.
func (c *Config) Normalize() {
	def := DefaultConfig()

	if c.Listen == "" {
		c.Listen = def.Listen
	}
	if c.Timezone == "" {
		c.Timezone = def.Timezone
	}
	if c.WorkdayStartHour == 0 && c.WorkdayEndHour == 0 {
		c.WorkdayStartHour = def.WorkdayStartHour
		c.WorkdayEndHour = def.WorkdayEndHour
	}
	if c.MinBlockMinutes == 0 {
		c.MinBlockMinutes = def.MinBlockMinutes
	}
	if c.RefreshCron == "" {
		c.RefreshCron = def.RefreshCron
	}
	if c.CacheDir == "" {
		c.CacheDir = def.CacheDir
	}
	if c.ReportPath == "" {
		c.ReportPath = def.ReportPath
	}
	if c.SnapshotPath == "" {
		c.SnapshotPath = def.SnapshotPath
	}
	if c.StudyICSPath == "" {
		c.StudyICSPath = def.StudyICSPath
	}
	if c.Tickers == nil {
		c.Tickers = def.Tickers
	}
	if c.PriceWindowDays <= 0 {
		c.PriceWindowDays = def.PriceWindowDays
	}

	if c.News.Limit <= 0 {
		c.News.Limit = def.News.Limit
	}
	if c.News.MaxAgeHours <= 0 {
		c.News.MaxAgeHours = def.News.MaxAgeHours
	}
	if c.News.Topics == nil {
		c.News.Topics = def.News.Topics
	}
	if c.News.DomainWhitelist == nil {
		c.News.DomainWhitelist = def.News.DomainWhitelist
	}
	if c.News.DomainBlacklist == nil {
		c.News.DomainBlacklist = []string{}
	}
	if c.News.Feeds == nil {
		c.News.Feeds = def.News.Feeds
	}

	if c.Email.Port == "" {
		c.Email.Port = def.Email.Port
	}
	if c.Email.SubjectPrefix == "" {
		c.Email.SubjectPrefix = def.Email.SubjectPrefix
	}

	switch c.Digest.Lang {
	case "es", "en":
	default:
		c.Digest.Lang = def.Digest.Lang
	}
	if c.Digest.OllamaModel == "" {
		c.Digest.OllamaModel = def.Digest.OllamaModel
	}
	if c.Digest.HeadlineCount <= 0 {
		c.Digest.HeadlineCount = def.Digest.HeadlineCount
	}
}

// Location resolves the configured timezone. An unknown identifier is a
// configuration error that aborts report generation.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, &agenda.ConfigError{Field: "timezone", Reason: err.Error()}
	}
	return loc, nil
}

// Load loads configuration from the given YAML path.
//
// Behavior:
//   - If the file does not exist, a default config is written (0600) and
//     returned.
//   - Otherwise the YAML is unmarshalled and normalized.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			cfg := DefaultConfig()
			if err := Save(path, cfg); err != nil {
				return cfg, err
			}
			return cfg, nil
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	cfg.Normalize()

	return &cfg, nil
}

// Save writes the given configuration to the specified path atomically
// (temp file + rename) with 0600 permissions.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
	}

	cfg.Normalize()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".companion-config-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}

// Save is a convenience method delegating to the package-level Save.
func (c *Config) Save(path string) error {
	return Save(path, c)
}
