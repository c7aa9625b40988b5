package config

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/robfig/cron/v3"
	"github.com/subosito/gotenv"
	"gopkg.in/yaml.v3"

	"PortfolioMonitor/internal/domain"
)

const (
	defaultTimezone = "UTC"
	configPathEnv   = "PORTFOLIO_MONITOR_CONFIG"
	dotEnvFile      = ".env"
)

//go:embed portfolio.yaml
var defaultPortfolio []byte

// Config holds high-level settings required across the application.
type Config struct {
	Database      DatabaseConfig     `yaml:"database"`
	Monitor       MonitorConfig      `yaml:"monitor"`
	Scheduler     SchedulerConfig    `yaml:"scheduler"`
	Sources       []SourceConfig     `yaml:"sources"`
	Relevance     RelevanceConfig    `yaml:"relevance"`
	Notifications NotificationConfig `yaml:"notifications"`
	Sentiment     SentimentConfig    `yaml:"sentiment"`
	HTTP          HTTPConfig         `yaml:"http"`
	Logging       LoggingConfig      `yaml:"logging"`
	Entities      []EntityConfig     `yaml:"entities"`
}

// DatabaseConfig selects the storage driver and its connection string.
type DatabaseConfig struct {
	Driver string `yaml:"driver"`
	URL    string `yaml:"url"`
}

// MonitorConfig tunes one monitoring run.
type MonitorConfig struct {
	LookbackDays        int           `yaml:"lookbackDays"`
	MaxArticlesPerCheck int           `yaml:"maxArticlesPerCheck"`
	EntityDelay         time.Duration `yaml:"entityDelay"`
	Concurrency         int           `yaml:"concurrency"`
	EnableSentiment     *bool         `yaml:"enableSentiment"`
}

// SentimentEnabled reports the sentiment toggle (on unless explicitly disabled).
func (m MonitorConfig) SentimentEnabled() bool {
	return m.EnableSentiment == nil || *m.EnableSentiment
}

// Lookback converts LookbackDays into a duration.
func (m MonitorConfig) Lookback() time.Duration {
	return time.Duration(m.LookbackDays) * 24 * time.Hour
}

// SchedulerConfig defines when the monitor runs: a cron expression wins over the interval.
type SchedulerConfig struct {
	CronExpression  string         `yaml:"cronExpression"`
	IntervalMinutes int            `yaml:"intervalMinutes"`
	Timezone        string         `yaml:"timezone"`
	location        *time.Location `yaml:"-"`
}

// Location resolves the scheduler timezone string to a time.Location.
func (s SchedulerConfig) Location() *time.Location {
	if s.location != nil {
		return s.location
	}
	loc, _ := time.LoadLocation(defaultTimezone)
	return loc
}

// Spec returns the cron spec the scheduler should use.
func (s SchedulerConfig) Spec() string {
	if s.CronExpression != "" {
		return s.CronExpression
	}
	return fmt.Sprintf("@every %dm", s.IntervalMinutes)
}

// SourceConfig describes one search strategy and how it is throttled.
type SourceConfig struct {
	Name     string        `yaml:"name"`
	Enabled  bool          `yaml:"enabled"`
	Keywords int           `yaml:"keywords"`
	Interval time.Duration `yaml:"interval"`
	BaseURL  string        `yaml:"baseUrl"`
	APIKey   string        `yaml:"apiKey"`
	Site     string        `yaml:"site"`
	Label    string        `yaml:"label"`
}

// RelevanceConfig overrides the generic deny/allow lists when non-empty.
type RelevanceConfig struct {
	Deny  []string `yaml:"deny"`
	Allow []string `yaml:"allow"`
}

// NotificationConfig encapsulates outbound channels.
type NotificationConfig struct {
	Console  bool           `yaml:"console"`
	Telegram TelegramConfig `yaml:"telegram"`
	Slack    SlackConfig    `yaml:"slack"`
}

// TelegramConfig wires all data required to send messages.
type TelegramConfig struct {
	BotToken string `yaml:"botToken"`
	ChatID   string `yaml:"chatId"`
}

// SlackConfig holds the incoming webhook.
type SlackConfig struct {
	WebhookURL string `yaml:"webhookUrl"`
}

// SentimentConfig points at an optional remote scorer; VADER is used when ServiceURL is empty.
type SentimentConfig struct {
	ServiceURL string `yaml:"serviceUrl"`
	APIKey     string `yaml:"apiKey"`
}

// HTTPConfig configures the reporting API.
type HTTPConfig struct {
	Addr string `yaml:"addr"`
}

// LoggingConfig mirrors logging.Config.
type LoggingConfig struct {
	Level      string `yaml:"level"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"maxSizeMb"`
	MaxBackups int    `yaml:"maxBackups"`
	MaxAgeDays int    `yaml:"maxAgeDays"`
}

// EntityConfig is a monitored company plus its curated relevance rules.
type EntityConfig struct {
	Name           string   `yaml:"name"`
	Keywords       []string `yaml:"keywords"`
	Description    string   `yaml:"description"`
	Fund           string   `yaml:"fund"`
	Website        string   `yaml:"website"`
	Exclude        []string `yaml:"exclude"`
	RequireContext []string `yaml:"requireContext"`
	Identifiers    []string `yaml:"identifiers"`
}

// MonitoredEntities converts configured entities into domain records.
func (c Config) MonitoredEntities() []domain.MonitoredEntity {
	out := make([]domain.MonitoredEntity, 0, len(c.Entities))
	for _, e := range c.Entities {
		out = append(out, domain.MonitoredEntity{
			Name:        e.Name,
			Keywords:    append([]string(nil), e.Keywords...),
			Description: e.Description,
			Fund:        e.Fund,
			Website:     e.Website,
		})
	}
	return out
}

// FundEntities returns the monitored entities of one fund, matched case-insensitively.
func (c Config) FundEntities(fund string) ([]domain.MonitoredEntity, error) {
	fund = strings.TrimSpace(fund)
	var out []domain.MonitoredEntity
	for _, e := range c.MonitoredEntities() {
		if strings.EqualFold(e.Fund, fund) {
			out = append(out, e)
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: no company in fund %q", domain.ErrEntityNotFound, fund)
	}
	return out, nil
}

// Entity finds a configured entity by name, case-insensitively.
func (c Config) Entity(name string) (EntityConfig, error) {
	for _, e := range c.Entities {
		if strings.EqualFold(e.Name, strings.TrimSpace(name)) {
			return e, nil
		}
	}
	return EntityConfig{}, fmt.Errorf("%w: %s", domain.ErrEntityNotFound, name)
}

// Source returns the configuration of a named source.
func (c Config) Source(name string) (SourceConfig, bool) {
	for _, s := range c.Sources {
		if s.Name == name {
			return s, true
		}
	}
	return SourceConfig{}, false
}

// Load reads .env, the YAML configuration (embedded portfolio by default) and environment overrides.
func Load() (Config, error) {
	return LoadFrom("")
}

// LoadFrom is Load with an explicit YAML file; an empty path falls back to $PORTFOLIO_MONITOR_CONFIG.
func LoadFrom(path string) (Config, error) {
	if err := gotenv.Load(dotEnvFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("load %s: %w", dotEnvFile, err)
	}

	cfg, err := defaultConfig()
	if err != nil {
		return Config{}, err
	}

	if path == "" {
		path = os.Getenv(configPathEnv)
	}
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
		var fileCfg Config
		if err := yaml.Unmarshal(raw, &fileCfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
		cfg = mergeConfig(cfg, fileCfg)
	}

	if err := cfg.applyEnvOverrides(); err != nil {
		return Config{}, err
	}
	if err := cfg.bindTimezone(); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// envOverrides lists the supported variables; nil means unset.
type envOverrides struct {
	DatabaseDriver  *string `envconfig:"DATABASE_DRIVER"`
	DatabaseURL     *string `envconfig:"DATABASE_URL"`
	DaysLookback    *int    `envconfig:"DAYS_LOOKBACK"`
	MaxArticles     *int    `envconfig:"MAX_ARTICLES_PER_CHECK"`
	CheckInterval   *int    `envconfig:"CHECK_INTERVAL_MINUTES"`
	EnableSentiment *bool   `envconfig:"ENABLE_SENTIMENT_ANALYSIS"`
	LogLevel        *string `envconfig:"LOG_LEVEL"`
	LogFile         *string `envconfig:"LOG_FILE"`
	NewsAPIKey      *string `envconfig:"NEWS_API_KEY"`
	SlackWebhookURL *string `envconfig:"SLACK_WEBHOOK_URL"`
	TelegramToken   *string `envconfig:"TELEGRAM_BOT_TOKEN"`
	TelegramChatID  *string `envconfig:"TELEGRAM_CHAT_ID"`
	SentimentURL    *string `envconfig:"SENTIMENT_SERVICE_URL"`
	HTTPAddr        *string `envconfig:"HTTP_ADDR"`
}

func (c *Config) applyEnvOverrides() error {
	var env envOverrides
	if err := envconfig.Process("", &env); err != nil {
		return fmt.Errorf("environment: %w", err)
	}

	if env.DatabaseURL != nil {
		c.Database.URL = *env.DatabaseURL
		if env.DatabaseDriver == nil && isPostgresURL(*env.DatabaseURL) {
			c.Database.Driver = "postgres"
		}
	}
	setString(&c.Database.Driver, env.DatabaseDriver)
	setInt(&c.Monitor.LookbackDays, env.DaysLookback)
	setInt(&c.Monitor.MaxArticlesPerCheck, env.MaxArticles)
	setInt(&c.Scheduler.IntervalMinutes, env.CheckInterval)
	if env.EnableSentiment != nil {
		enabled := *env.EnableSentiment
		c.Monitor.EnableSentiment = &enabled
	}
	setString(&c.Logging.Level, env.LogLevel)
	setString(&c.Logging.File, env.LogFile)
	setString(&c.Notifications.Slack.WebhookURL, env.SlackWebhookURL)
	setString(&c.Notifications.Telegram.BotToken, env.TelegramToken)
	setString(&c.Notifications.Telegram.ChatID, env.TelegramChatID)
	setString(&c.Sentiment.ServiceURL, env.SentimentURL)
	setString(&c.HTTP.Addr, env.HTTPAddr)

	if env.NewsAPIKey != nil {
		for i := range c.Sources {
			if c.Sources[i].Name == "newsapi" {
				c.Sources[i].APIKey = *env.NewsAPIKey
			}
		}
	}
	return nil
}

func (c *Config) bindTimezone() error {
	tz := c.Scheduler.Timezone
	if tz == "" {
		tz = defaultTimezone
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return fmt.Errorf("scheduler timezone %s: %w", tz, err)
	}
	c.Scheduler.location = loc
	return nil
}

var (
	knownDrivers = map[string]bool{"sqlite": true, "sqlite3": true, "postgres": true, "postgresql": true, "pq": true}
	knownSources = map[string]bool{"googlenews": true, "newsapi": true, "websearch": true}
)

// Validate rejects configurations the monitor cannot run with.
func (c Config) Validate() error {
	var errs []error

	if !knownDrivers[strings.ToLower(c.Database.Driver)] {
		errs = append(errs, fmt.Errorf("%w: %q", domain.ErrUnknownDriver, c.Database.Driver))
	}
	if strings.TrimSpace(c.Database.URL) == "" {
		errs = append(errs, errors.New("database url is empty"))
	}
	if c.Monitor.LookbackDays <= 0 {
		errs = append(errs, errors.New("lookback days must be positive"))
	}
	if c.Monitor.MaxArticlesPerCheck <= 0 {
		errs = append(errs, errors.New("max articles per check must be positive"))
	}
	if c.Monitor.Concurrency <= 0 {
		errs = append(errs, errors.New("concurrency must be positive"))
	}
	if c.Monitor.EntityDelay < 0 {
		errs = append(errs, errors.New("entity delay must not be negative"))
	}

	if c.Scheduler.CronExpression != "" {
		if _, err := cron.ParseStandard(c.Scheduler.CronExpression); err != nil {
			errs = append(errs, fmt.Errorf("cron expression: %w", err))
		}
	} else if c.Scheduler.IntervalMinutes <= 0 {
		errs = append(errs, errors.New("check interval must be positive"))
	}

	seenSources := map[string]bool{}
	for _, s := range c.Sources {
		if !knownSources[s.Name] {
			errs = append(errs, fmt.Errorf("unknown source %q", s.Name))
		}
		if seenSources[s.Name] {
			errs = append(errs, fmt.Errorf("duplicate source %q", s.Name))
		}
		seenSources[s.Name] = true
		if s.Keywords < 0 || s.Interval < 0 {
			errs = append(errs, fmt.Errorf("source %s: negative limits", s.Name))
		}
	}

	if len(c.Entities) == 0 {
		errs = append(errs, errors.New("no entities configured"))
	}
	seenEntities := map[string]bool{}
	for i, e := range c.Entities {
		name := strings.ToLower(strings.TrimSpace(e.Name))
		if name == "" {
			errs = append(errs, fmt.Errorf("entity #%d has no name", i+1))
			continue
		}
		if seenEntities[name] {
			errs = append(errs, fmt.Errorf("duplicate entity %q", e.Name))
		}
		seenEntities[name] = true
		if len(e.Keywords) == 0 {
			errs = append(errs, fmt.Errorf("entity %q has no keywords", e.Name))
		}
	}

	return errors.Join(errs...)
}

func mergeConfig(base, override Config) Config {
	if override.Database.Driver != "" {
		base.Database.Driver = override.Database.Driver
	}
	if override.Database.URL != "" {
		base.Database.URL = override.Database.URL
	}

	if override.Monitor.LookbackDays != 0 {
		base.Monitor.LookbackDays = override.Monitor.LookbackDays
	}
	if override.Monitor.MaxArticlesPerCheck != 0 {
		base.Monitor.MaxArticlesPerCheck = override.Monitor.MaxArticlesPerCheck
	}
	if override.Monitor.EntityDelay != 0 {
		base.Monitor.EntityDelay = override.Monitor.EntityDelay
	}
	if override.Monitor.Concurrency != 0 {
		base.Monitor.Concurrency = override.Monitor.Concurrency
	}
	if override.Monitor.EnableSentiment != nil {
		base.Monitor.EnableSentiment = override.Monitor.EnableSentiment
	}

	if override.Scheduler.CronExpression != "" {
		base.Scheduler.CronExpression = override.Scheduler.CronExpression
	}
	if override.Scheduler.IntervalMinutes != 0 {
		base.Scheduler.IntervalMinutes = override.Scheduler.IntervalMinutes
	}
	if override.Scheduler.Timezone != "" {
		base.Scheduler.Timezone = override.Scheduler.Timezone
	}

	if len(override.Sources) > 0 {
		base.Sources = override.Sources
	}
	if len(override.Relevance.Deny) > 0 {
		base.Relevance.Deny = override.Relevance.Deny
	}
	if len(override.Relevance.Allow) > 0 {
		base.Relevance.Allow = override.Relevance.Allow
	}

	if override.Notifications.Console {
		base.Notifications.Console = true
	}
	if override.Notifications.Telegram.BotToken != "" {
		base.Notifications.Telegram.BotToken = override.Notifications.Telegram.BotToken
	}
	if override.Notifications.Telegram.ChatID != "" {
		base.Notifications.Telegram.ChatID = override.Notifications.Telegram.ChatID
	}
	if override.Notifications.Slack.WebhookURL != "" {
		base.Notifications.Slack.WebhookURL = override.Notifications.Slack.WebhookURL
	}

	if override.Sentiment.ServiceURL != "" {
		base.Sentiment.ServiceURL = override.Sentiment.ServiceURL
	}
	if override.Sentiment.APIKey != "" {
		base.Sentiment.APIKey = override.Sentiment.APIKey
	}

	if override.HTTP.Addr != "" {
		base.HTTP.Addr = override.HTTP.Addr
	}

	if override.Logging.Level != "" {
		base.Logging.Level = override.Logging.Level
	}
	if override.Logging.File != "" {
		base.Logging.File = override.Logging.File
	}
	if override.Logging.MaxSizeMB != 0 {
		base.Logging.MaxSizeMB = override.Logging.MaxSizeMB
	}
	if override.Logging.MaxBackups != 0 {
		base.Logging.MaxBackups = override.Logging.MaxBackups
	}
	if override.Logging.MaxAgeDays != 0 {
		base.Logging.MaxAgeDays = override.Logging.MaxAgeDays
	}

	if len(override.Entities) > 0 {
		base.Entities = override.Entities
	}

	return base
}

func defaultConfig() (Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(defaultPortfolio, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse embedded portfolio: %w", err)
	}
	if err := cfg.bindTimezone(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func isPostgresURL(url string) bool {
	return strings.HasPrefix(url, "postgres://") || strings.HasPrefix(url, "postgresql://")
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

func setInt(dst *int, v *int) {
	if v != nil {
		*dst = *v
	}
}
