package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	defaultTimezone = "UTC"

	configPathEnv     = "CLEARFEED_CONFIG"
	databasePathEnv   = "DATABASE_PATH"
	telegramTokenEnv  = "TELEGRAM_BOT_TOKEN"
	trendingWeightEnv = "TRENDING_WEIGHT"
	useTrendingEnv    = "USE_TRENDING"
	trendsFeedURLEnv  = "TRENDS_FEED_URL"
	maxPerCategoryEnv = "MAX_ARTICLES_PER_CATEGORY"
	retentionDaysEnv  = "RETENTION_DAYS"
)

// Config holds high-level settings required across the application.
type Config struct {
	Database      DatabaseConfig     `yaml:"database"`
	Logging       LoggingConfig      `yaml:"logging"`
	Scheduler     SchedulerConfig    `yaml:"scheduler"`
	Trending      TrendingConfig     `yaml:"trending"`
	Digest        DigestConfig       `yaml:"digest"`
	Retention     RetentionConfig    `yaml:"retention"`
	Notifications NotificationConfig `yaml:"notifications"`
	Filters       FilterConfig       `yaml:"filters"`
	Categories    []CategoryConfig   `yaml:"categories"`
}

// DatabaseConfig locates the SQLite database file.
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// LoggingConfig sets the slog level.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// SchedulerConfig defines the recurring job cadence.
type SchedulerConfig struct {
	FetchCron   string         `yaml:"fetchCron"`
	DigestCron  string         `yaml:"digestCron"`
	CleanupCron string         `yaml:"cleanupCron"`
	Timezone    string         `yaml:"timezone"`
	location    *time.Location `yaml:"-"`
}

// Location resolves the scheduler timezone string to a time.Location.
func (s SchedulerConfig) Location() *time.Location {
	if s.location != nil {
		return s.location
	}
	loc, _ := time.LoadLocation(defaultTimezone)
	return loc
}

// TrendingConfig controls the trend source and the composite score split.
// Trending is on by default; Disabled opts out of the trend fetch entirely.
type TrendingConfig struct {
	Disabled bool    `yaml:"disabled"`
	FeedURL  string  `yaml:"feedUrl"`
	Weight   float64 `yaml:"weight"`
}

// DigestConfig bounds per-category delivery batches.
type DigestConfig struct {
	MaxArticlesPerCategory int `yaml:"maxArticlesPerCategory"`
}

// RetentionConfig controls the article retention sweep.
type RetentionConfig struct {
	Days int `yaml:"days"`
}

// NotificationConfig encapsulates outbound channels.
type NotificationConfig struct {
	Telegram TelegramConfig `yaml:"telegram"`
}

// TelegramConfig wires the bot credentials; chats are addressed per user.
type TelegramConfig struct {
	BotToken string `yaml:"botToken"`
}

// FilterConfig carries the service-wide blocklists applied before storage.
type FilterConfig struct {
	BlockedKeywords []string `yaml:"blockedKeywords"`
	BlockedSources  []string `yaml:"blockedSources"`
}

// CategoryConfig declares one category and its feed endpoints. The configured
// list is the category enumeration: nothing else is ever fetched or stored.
type CategoryConfig struct {
	Name  string   `yaml:"name"`
	Feeds []string `yaml:"feeds"`
}

// Load reads YAML configuration (if present) and applies environment
// overrides.
func Load() Config {
	cfg := defaultConfig()

	if path := os.Getenv(configPathEnv); path != "" {
		if raw, err := os.ReadFile(path); err != nil {
			log.Printf("config: cannot read %s: %v (falling back to defaults)", path, err)
		} else {
			var fileCfg Config
			if err := yaml.Unmarshal(raw, &fileCfg); err != nil {
				log.Printf("config: cannot parse %s: %v (falling back to defaults)", path, err)
			} else {
				cfg = mergeConfig(cfg, fileCfg)
			}
		}
	}

	cfg.applyEnvOverrides()
	cfg.bindTimezone()
	cfg.clampWeight()

	if len(cfg.Categories) == 0 {
		cfg.Categories = defaultConfig().Categories
	}

	return cfg
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(databasePathEnv); v != "" {
		c.Database.Path = v
	}

	if v := os.Getenv(telegramTokenEnv); v != "" {
		c.Notifications.Telegram.BotToken = v
	}

	if v := os.Getenv(trendsFeedURLEnv); v != "" {
		c.Trending.FeedURL = v
	}

	if v := os.Getenv(useTrendingEnv); v != "" {
		c.Trending.Disabled = v == "false" || v == "0"
	}

	if v := os.Getenv(trendingWeightEnv); v != "" {
		if weight, err := strconv.ParseFloat(v, 64); err == nil {
			c.Trending.Weight = weight
		}
	}

	if v := os.Getenv(maxPerCategoryEnv); v != "" {
		if limit, err := strconv.Atoi(v); err == nil && limit > 0 {
			c.Digest.MaxArticlesPerCategory = limit
		}
	}

	if v := os.Getenv(retentionDaysEnv); v != "" {
		if days, err := strconv.Atoi(v); err == nil && days > 0 {
			c.Retention.Days = days
		}
	}
}

func (c *Config) bindTimezone() {
	tz := c.Scheduler.Timezone
	if tz == "" {
		tz = defaultTimezone
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		log.Printf("config: unknown timezone %s, reverting to %s", tz, defaultTimezone)
		loc, _ = time.LoadLocation(defaultTimezone)
	}
	c.Scheduler.location = loc
}

func (c *Config) clampWeight() {
	if c.Trending.Weight < 0 {
		c.Trending.Weight = 0
	}
	if c.Trending.Weight > 1 {
		c.Trending.Weight = 1
	}
}

func mergeConfig(base, override Config) Config {
	if override.Database.Path != "" {
		base.Database = override.Database
	}

	if override.Logging.Level != "" {
		base.Logging = override.Logging
	}

	if override.Scheduler.FetchCron != "" {
		base.Scheduler.FetchCron = override.Scheduler.FetchCron
	}
	if override.Scheduler.DigestCron != "" {
		base.Scheduler.DigestCron = override.Scheduler.DigestCron
	}
	if override.Scheduler.CleanupCron != "" {
		base.Scheduler.CleanupCron = override.Scheduler.CleanupCron
	}
	if override.Scheduler.Timezone != "" {
		base.Scheduler.Timezone = override.Scheduler.Timezone
	}

	if override.Trending.FeedURL != "" {
		base.Trending.FeedURL = override.Trending.FeedURL
	}
	if override.Trending.Weight != 0 {
		base.Trending.Weight = override.Trending.Weight
	}
	if override.Trending.Disabled {
		base.Trending.Disabled = true
	}

	if override.Digest.MaxArticlesPerCategory > 0 {
		base.Digest = override.Digest
	}

	if override.Retention.Days > 0 {
		base.Retention = override.Retention
	}

	if override.Notifications.Telegram.BotToken != "" {
		base.Notifications.Telegram.BotToken = override.Notifications.Telegram.BotToken
	}

	if len(override.Filters.BlockedKeywords) > 0 {
		base.Filters.BlockedKeywords = override.Filters.BlockedKeywords
	}
	if len(override.Filters.BlockedSources) > 0 {
		base.Filters.BlockedSources = override.Filters.BlockedSources
	}

	if len(override.Categories) > 0 {
		base.Categories = override.Categories
	}

	return base
}

func defaultConfig() Config {
	tz, _ := time.LoadLocation(defaultTimezone)
	return Config{
		Database: DatabaseConfig{Path: "data/clearfeed.db"},
		Logging:  LoggingConfig{Level: "info"},
		Scheduler: SchedulerConfig{
			FetchCron:   "0 */2 * * *",
			DigestCron:  "0 9,18 * * *",
			CleanupCron: "30 3 * * *",
			Timezone:    defaultTimezone,
			location:    tz,
		},
		Trending: TrendingConfig{
			FeedURL: "https://trends.google.com/trending/rss?geo=US",
			Weight:  0.6,
		},
		Digest:    DigestConfig{MaxArticlesPerCategory: 5},
		Retention: RetentionConfig{Days: 30},
		Filters: FilterConfig{
			BlockedKeywords: []string{
				"killed", "murder", "massacre", "assassination", "death toll",
				"casualties", "airstrike", "bombing", "terrorist", "terrorism",
				"genocide", "kidnapped", "stabbing", "shooting", "gunman",
				"hostage", "tragedy", "catastrophe", "horrific", "gruesome",
				"scandal", "corruption", "conspiracy theory", "disinformation",
				"propaganda", "hate crime", "racism", "bigotry", "shocking",
				"horrifying", "nightmare", "bloodbath", "carnage",
			},
			BlockedSources: []string{
				"infowars.com", "naturalnews.com", "beforeitsnews.com",
				"rt.com", "sputniknews.com", "dailymail.co.uk",
				"thesun.co.uk", "nypost.com", "breitbart.com",
				"buzzfeed.com", "upworthy.com",
			},
		},
		Categories: []CategoryConfig{
			{
				Name: "Science & Space",
				Feeds: []string{
					"https://www.nasa.gov/feed/",
					"https://www.space.com/feeds/all",
					"https://www.sciencedaily.com/rss/all.xml",
				},
			},
			{
				Name: "Tech & Innovation",
				Feeds: []string{
					"https://www.engadget.com/rss.xml",
					"https://techcrunch.com/feed/",
					"https://arstechnica.com/feed/",
				},
			},
			{
				Name: "Good News",
				Feeds: []string{
					"https://www.positive.news/feed/",
					"https://www.goodnewsnetwork.org/feed/",
				},
			},
		},
	}
}
