// Package config loads and validates application configuration from YAML files
// with environment-variable overrides. It provides typed structs for every
// subsystem (Server, Postgres, Redis, Kafka, Articles, Summarizer, Site, etc.).
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level application configuration.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Postgres   PostgresConfig   `yaml:"postgres"`
	Redis      RedisConfig      `yaml:"redis"`
	Kafka      KafkaConfig      `yaml:"kafka"`
	Articles   ArticlesConfig   `yaml:"articles"`
	Summarizer SummarizerConfig `yaml:"summarizer"`
	Site       SiteConfig       `yaml:"site"`
	Blog       BlogConfig       `yaml:"blog"`
	RateLimit  RateLimitConfig  `yaml:"rateLimit"`
	Admin      AdminConfig      `yaml:"admin"`
	Logging    LoggingConfig    `yaml:"logging"`
	Metrics    MetricsConfig    `yaml:"metrics"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"readTimeout"`
	WriteTimeout    time.Duration `yaml:"writeTimeout"`
	RequestTimeout  time.Duration `yaml:"requestTimeout"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
}

// PostgresConfig holds PostgreSQL connection parameters.
type PostgresConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	Database        string        `yaml:"database"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	SSLMode         string        `yaml:"sslMode"`
	URL             string        `yaml:"url"`
	MaxOpenConns    int           `yaml:"maxOpenConns"`
	MaxIdleConns    int           `yaml:"maxIdleConns"`
	ConnMaxLifetime time.Duration `yaml:"connMaxLifetime"`
}

// DSN returns a lib/pq-compatible data source name. An explicit URL (as
// exported by most hosting providers in DATABASE_URL) takes precedence.
func (p PostgresConfig) DSN() string {
	if p.URL != "" {
		return p.URL
	}
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

// RedisConfig holds Redis connection and page-cache parameters.
type RedisConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	PoolSize int           `yaml:"poolSize"`
	CacheTTL time.Duration `yaml:"cacheTTL"`
}

// KafkaConfig holds the broker list and the topic used for publish events.
type KafkaConfig struct {
	Enabled        bool     `yaml:"enabled"`
	Brokers        []string `yaml:"brokers"`
	PublishedTopic string   `yaml:"publishedTopic"`
}

// ArticlesConfig controls where Markdown sources live and how the ingestion
// driver walks them.
type ArticlesConfig struct {
	Dir           string        `yaml:"dir"`
	Extensions    []string      `yaml:"extensions"`
	Workers       int           `yaml:"workers"`
	IngestOnStart bool          `yaml:"ingestOnStart"`
	Watch         bool          `yaml:"watch"`
	Debounce      time.Duration `yaml:"debounce"`
}

// SummarizerConfig controls the optional LLM summarization step.
type SummarizerConfig struct {
	Enabled   bool          `yaml:"enabled"`
	APIKey    string        `yaml:"apiKey"`
	Model     string        `yaml:"model"`
	Prompt    string        `yaml:"prompt"`
	Timeout   time.Duration `yaml:"timeout"`
	OnFailure string        `yaml:"onFailure"`
}

// Summarization failure policies.
const (
	OnFailureSkip  = "skip"
	OnFailureEmpty = "empty"
)

// SiteConfig holds presentation settings for the public website.
type SiteConfig struct {
	Title      string `yaml:"title"`
	BaseURL    string `yaml:"baseUrl"`
	AssetsDir  string `yaml:"assetsDir"`
	ResumePath string `yaml:"resumePath"`
}

// BlogConfig controls listing and search sizes.
type BlogConfig struct {
	PerPage     int `yaml:"perPage"`
	MaxPerPage  int `yaml:"maxPerPage"`
	LatestCount int `yaml:"latestCount"`
	SearchLimit int `yaml:"searchLimit"`
	RenderCache int `yaml:"renderCache"`
}

// RateLimitConfig bounds form submissions per client address.
type RateLimitConfig struct {
	Requests int           `yaml:"requests"`
	Window   time.Duration `yaml:"window"`
}

// AdminConfig protects the on-demand ingestion endpoint.
type AdminConfig struct {
	Token string `yaml:"token"`
}

// LoggingConfig controls structured logging level and output format.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// MetricsConfig controls the Prometheus metrics server.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

// Load reads a YAML config file (if provided) and applies environment-variable
// overrides. A missing file at the default path is not an error; defaults are
// used instead.
func Load(path string) (*Config, error) {
	cfg := defaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parsing config file %s: %w", path, err)
			}
		}
	}
	applyEnvOverrides(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects values the services cannot run with.
func (c *Config) Validate() error {
	var problems []string
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		problems = append(problems, fmt.Sprintf("server.port %d out of range", c.Server.Port))
	}
	if c.Articles.Dir == "" {
		problems = append(problems, "articles.dir is required")
	}
	if c.Articles.Workers < 1 {
		problems = append(problems, "articles.workers must be at least 1")
	}
	if c.Blog.PerPage < 1 || c.Blog.PerPage > c.Blog.MaxPerPage {
		problems = append(problems, "blog.perPage must be between 1 and blog.maxPerPage")
	}
	switch c.Summarizer.OnFailure {
	case OnFailureSkip, OnFailureEmpty:
	default:
		problems = append(problems, fmt.Sprintf("summarizer.onFailure %q must be %q or %q",
			c.Summarizer.OnFailure, OnFailureSkip, OnFailureEmpty))
	}
	if c.Summarizer.Enabled && c.Summarizer.APIKey == "" {
		problems = append(problems, "summarizer.apiKey is required when the summarizer is enabled")
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		problems = append(problems, "kafka.brokers is required when kafka is enabled")
	}
	if len(problems) > 0 {
		return fmt.Errorf("invalid config: %s", strings.Join(problems, "; "))
	}
	return nil
}

// defaultConfig returns a Config with defaults suitable for local
// development.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            3000,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			RequestTimeout:  10 * time.Second,
			ShutdownTimeout: 15 * time.Second,
		},
		Postgres: PostgresConfig{
			Host:            "localhost",
			Port:            5432,
			Database:        "website",
			User:            "website",
			Password:        "localdev",
			SSLMode:         "disable",
			MaxOpenConns:    5,
			MaxIdleConns:    2,
			ConnMaxLifetime: 5 * time.Minute,
		},
		Redis: RedisConfig{
			Enabled:  false,
			Addr:     "localhost:6379",
			PoolSize: 10,
			CacheTTL: 5 * time.Minute,
		},
		Kafka: KafkaConfig{
			Enabled:        false,
			Brokers:        []string{"localhost:9092"},
			PublishedTopic: "article-published",
		},
		Articles: ArticlesConfig{
			Dir:        "articles",
			Extensions: []string{".md"},
			Workers:    1,
			Debounce:   500 * time.Millisecond,
		},
		Summarizer: SummarizerConfig{
			Model:     "gemini-1.5-flash",
			Prompt:    "Summarise the following article in at most three sentences. Reply with the summary only.\n\n{{.Body}}",
			Timeout:   20 * time.Second,
			OnFailure: OnFailureSkip,
		},
		Site: SiteConfig{
			Title:      "Notes",
			BaseURL:    "http://localhost:3000",
			AssetsDir:  "assets",
			ResumePath: "resume.yaml",
		},
		Blog: BlogConfig{
			PerPage:     10,
			MaxPerPage:  50,
			LatestCount: 3,
			SearchLimit: 25,
			RenderCache: 256,
		},
		RateLimit: RateLimitConfig{
			Requests: 10,
			Window:   time.Minute,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Port:    9090,
		},
	}
}

// applyEnvOverrides reads BLOG_* environment variables (and the conventional
// DATABASE_URL) and overrides the corresponding config fields.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("BLOG_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.Postgres.URL = v
	}
	if v := os.Getenv("BLOG_POSTGRES_HOST"); v != "" {
		cfg.Postgres.Host = v
	}
	if v := os.Getenv("BLOG_POSTGRES_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Postgres.Port = port
		}
	}
	if v := os.Getenv("BLOG_POSTGRES_DATABASE"); v != "" {
		cfg.Postgres.Database = v
	}
	if v := os.Getenv("BLOG_POSTGRES_USER"); v != "" {
		cfg.Postgres.User = v
	}
	if v := os.Getenv("BLOG_POSTGRES_PASSWORD"); v != "" {
		cfg.Postgres.Password = v
	}
	if v := os.Getenv("BLOG_POSTGRES_SSLMODE"); v != "" {
		cfg.Postgres.SSLMode = v
	}
	if v := os.Getenv("BLOG_REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
		cfg.Redis.Enabled = true
	}
	if v := os.Getenv("BLOG_REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := os.Getenv("BLOG_KAFKA_BROKERS"); v != "" {
		cfg.Kafka.Brokers = strings.Split(v, ",")
		cfg.Kafka.Enabled = true
	}
	if v := os.Getenv("BLOG_ARTICLES_DIR"); v != "" {
		cfg.Articles.Dir = v
	}
	if v := os.Getenv("BLOG_ARTICLES_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Articles.Workers = n
		}
	}
	if v := os.Getenv("GEMINI_API_KEY"); v != "" {
		cfg.Summarizer.APIKey = v
	}
	if v := os.Getenv("BLOG_SUMMARIZER_ENABLED"); v != "" {
		if enabled, err := strconv.ParseBool(v); err == nil {
			cfg.Summarizer.Enabled = enabled
		}
	}
	if v := os.Getenv("BLOG_SITE_BASE_URL"); v != "" {
		cfg.Site.BaseURL = v
	}
	if v := os.Getenv("BLOG_ADMIN_TOKEN"); v != "" {
		cfg.Admin.Token = v
	}
	if v := os.Getenv("BLOG_LOGGING_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("BLOG_LOGGING_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
}
