package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Logging    LoggingConfig    `mapstructure:"logging"`
	Feed       FeedConfig       `mapstructure:"feed"`
	Quality    QualityConfig    `mapstructure:"quality"`
	Resolver   ResolverConfig   `mapstructure:"resolver"`
	TMDB       TMDBConfig       `mapstructure:"tmdb"`
	IMDB       IMDBConfig       `mapstructure:"imdb"`
	OpenRouter OpenRouterConfig `mapstructure:"openrouter"`
	Posters    PosterConfig     `mapstructure:"posters"`
	Scheduler  SchedulerConfig  `mapstructure:"scheduler"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
	// APIKey guards the /api/v1 endpoints when set. Health, metrics
	// and the event stream stay open.
	APIKey string `mapstructure:"api_key"`
}

// DatabaseConfig holds database configuration.
type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	Path       string `mapstructure:"path"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	Compress   bool   `mapstructure:"compress"`
}

// FeedConfig points at the scraped topic dump consumed by the
// pipeline. Path may be a single JSON or YAML file or a directory of
// them.
type FeedConfig struct {
	Path string `mapstructure:"path"`
}

// QualityConfig controls release selection.
type QualityConfig struct {
	Allow4K bool `mapstructure:"allow_4k"`
}

// ResolverConfig tunes identity resolution.
type ResolverConfig struct {
	Concurrency         int     `mapstructure:"concurrency"`
	SimilarityThreshold float64 `mapstructure:"similarity_threshold"`
	MaxEditDistance     int     `mapstructure:"max_edit_distance"`
	YearTolerance       int     `mapstructure:"year_tolerance"`
}

// TMDBConfig holds TMDB API access and response cache settings.
type TMDBConfig struct {
	APIKey       string        `mapstructure:"api_key"`
	BaseURL      string        `mapstructure:"base_url"`
	ImageBaseURL string        `mapstructure:"image_base_url"`
	Timeout      int           `mapstructure:"timeout"`
	CacheDir     string        `mapstructure:"cache_dir"`
	CacheTTL     time.Duration `mapstructure:"cache_ttl"`
}

// IMDBConfig holds RapidAPI IMDb access settings. Host names the
// RapidAPI product and is sent as the x-rapidapi-host header.
type IMDBConfig struct {
	APIKey  string `mapstructure:"api_key"`
	Host    string `mapstructure:"host"`
	BaseURL string `mapstructure:"base_url"`
	Timeout int    `mapstructure:"timeout"`
}

// OpenRouterConfig holds vision and text model access settings.
type OpenRouterConfig struct {
	APIKey            string        `mapstructure:"api_key"`
	BaseURL           string        `mapstructure:"base_url"`
	FastModel         string        `mapstructure:"fast_model"`
	DeepModel         string        `mapstructure:"deep_model"`
	MinNameConfidence float64       `mapstructure:"min_name_confidence"`
	Timeout           time.Duration `mapstructure:"timeout"`
}

// PosterConfig controls poster image fetching.
type PosterConfig struct {
	Dir      string        `mapstructure:"dir"`
	MaxBytes int64         `mapstructure:"max_bytes"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// SchedulerConfig holds cron expressions for background runs.
type SchedulerConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	IngestCron  string `mapstructure:"ingest_cron"`
	ResolveCron string `mapstructure:"resolve_cron"`
}

// Load reads configuration from file and environment variables.
// Priority: environment variables > config file > defaults.
// A .env file in the working directory is folded into the
// environment first so API keys can live next to the binary.
func Load(configPath string) (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("$HOME/.showsift")
	}

	v.SetEnvPrefix("SHOWSIFT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Bare key names used by the upstream services remain usable
	// alongside the prefixed form.
	_ = v.BindEnv("tmdb.api_key", "SHOWSIFT_TMDB_API_KEY", "TMDB_API_KEY")
	_ = v.BindEnv("openrouter.api_key", "SHOWSIFT_OPENROUTER_API_KEY", "OPENROUTER_API_KEY")
	_ = v.BindEnv("imdb.api_key", "SHOWSIFT_IMDB_API_KEY", "RAPIDAPI_KEY")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found, using defaults + env vars
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyEmbeddedKeys(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// setDefaults sets default values in viper.
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.host", "127.0.0.1")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.api_key", "")

	// Database defaults
	v.SetDefault("database.path", "./data/showsift.db")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
	v.SetDefault("logging.path", "")
	v.SetDefault("logging.max_size_mb", 10)
	v.SetDefault("logging.max_backups", 3)
	v.SetDefault("logging.max_age_days", 28)
	v.SetDefault("logging.compress", true)

	// Feed defaults
	v.SetDefault("feed.path", "./data/feed.json")

	// Quality defaults
	v.SetDefault("quality.allow_4k", false)

	// Resolver defaults
	v.SetDefault("resolver.concurrency", 4)
	v.SetDefault("resolver.similarity_threshold", 0.85)
	v.SetDefault("resolver.max_edit_distance", 2)
	v.SetDefault("resolver.year_tolerance", 1)

	// TMDB defaults
	v.SetDefault("tmdb.api_key", "")
	v.SetDefault("tmdb.base_url", "https://api.themoviedb.org/3")
	v.SetDefault("tmdb.image_base_url", "https://image.tmdb.org/t/p")
	v.SetDefault("tmdb.timeout", 30)
	v.SetDefault("tmdb.cache_dir", "./data/cache/tmdb")
	v.SetDefault("tmdb.cache_ttl", "24h")

	// IMDb defaults
	v.SetDefault("imdb.api_key", "")
	v.SetDefault("imdb.host", "imdb236.p.rapidapi.com")
	v.SetDefault("imdb.base_url", "https://imdb236.p.rapidapi.com")
	v.SetDefault("imdb.timeout", 30)

	// OpenRouter defaults
	v.SetDefault("openrouter.api_key", "")
	v.SetDefault("openrouter.base_url", "https://openrouter.ai/api/v1")
	v.SetDefault("openrouter.fast_model", "openai/gpt-5-nano")
	v.SetDefault("openrouter.deep_model", "openai/gpt-5.2")
	v.SetDefault("openrouter.min_name_confidence", 0.7)
	v.SetDefault("openrouter.timeout", "120s")

	// Poster defaults
	v.SetDefault("posters.dir", "./data/posters")
	v.SetDefault("posters.max_bytes", 10*1024*1024)
	v.SetDefault("posters.timeout", "30s")

	// Scheduler defaults
	v.SetDefault("scheduler.enabled", false)
	v.SetDefault("scheduler.ingest_cron", "0 */6 * * *")
	v.SetDefault("scheduler.resolve_cron", "30 */6 * * *")
}

// Validate rejects configurations the application cannot run with.
// Missing API keys are not errors: the resolver degrades tier by
// tier when a service is unavailable.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}
	if c.Database.Path == "" {
		return fmt.Errorf("database.path must not be empty")
	}
	switch strings.ToLower(c.Logging.Format) {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format %q must be console or json", c.Logging.Format)
	}
	if c.Resolver.Concurrency < 1 {
		return fmt.Errorf("resolver.concurrency %d must be at least 1", c.Resolver.Concurrency)
	}
	if c.Resolver.SimilarityThreshold <= 0 || c.Resolver.SimilarityThreshold > 1 {
		return fmt.Errorf("resolver.similarity_threshold %f must be in (0, 1]", c.Resolver.SimilarityThreshold)
	}
	if c.Resolver.MaxEditDistance < 0 {
		return fmt.Errorf("resolver.max_edit_distance %d must not be negative", c.Resolver.MaxEditDistance)
	}
	if c.Resolver.YearTolerance < 0 {
		return fmt.Errorf("resolver.year_tolerance %d must not be negative", c.Resolver.YearTolerance)
	}
	if c.OpenRouter.MinNameConfidence < 0 || c.OpenRouter.MinNameConfidence > 1 {
		return fmt.Errorf("openrouter.min_name_confidence %f must be in [0, 1]", c.OpenRouter.MinNameConfidence)
	}
	if c.Posters.MaxBytes < 0 {
		return fmt.Errorf("posters.max_bytes %d must not be negative", c.Posters.MaxBytes)
	}
	return nil
}

// Address returns the server address string.
func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
