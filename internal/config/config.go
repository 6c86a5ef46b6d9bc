package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Platforms with a legacy API_URL_<PLATFORM> environment override.
var knownPlatforms = []string{"linkedin", "twitter", "instagram", "facebook", "tiktok", "youtube"}

type Config struct {
	Mongo       MongoConfig    `yaml:"mongo"`
	Database    DatabaseConfig `yaml:"database"`
	RabbitMQ    RabbitMQConfig `yaml:"rabbitmq"`
	Fetch       FetchConfig    `yaml:"fetch"`
	Poll        PollConfig     `yaml:"poll"`
	MetricsAddr string         `yaml:"metrics_addr"`
	LogLevel    string         `yaml:"log_level"`
}

type MongoConfig struct {
	URI            string            `yaml:"uri"`
	Database       string            `yaml:"database"`
	ConnectTimeout time.Duration     `yaml:"connect_timeout"`
	Collections    CollectionsConfig `yaml:"collections"`
}

type CollectionsConfig struct {
	TrackingSets string `yaml:"tracking_sets"`
	Profiles     string `yaml:"profiles"`
	Posts        string `yaml:"posts"`
}

type RabbitMQConfig struct {
	URL        string `yaml:"url"`
	Exchange   string `yaml:"exchange"`
	RoutingKey string `yaml:"routing_key"`
	QueueName  string `yaml:"queue_name"`
}

// Enabled reports whether post events should be published.
func (r RabbitMQConfig) Enabled() bool {
	return r.URL != ""
}

type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	DBName   string `yaml:"dbname"`
	SSLMode  string `yaml:"sslmode"`
}

// Enabled reports whether the postgres run ledger is configured.
func (d DatabaseConfig) Enabled() bool {
	return d.Host != ""
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.DBName, d.SSLMode,
	)
}

type FetchConfig struct {
	Endpoints     map[string]string `yaml:"endpoints"`
	FallbackURL   string            `yaml:"fallback_url"`
	QueryParam    string            `yaml:"query_param"`
	Timeout       time.Duration     `yaml:"timeout"`
	RatePerSecond float64           `yaml:"rate_per_second"`
	Burst         int               `yaml:"burst"`
	Retry         RetryConfig       `yaml:"retry"`
}

type RetryConfig struct {
	MaxAttempts    int           `yaml:"max_attempts"`
	InitialBackoff time.Duration `yaml:"initial_backoff"`
	MaxBackoff     time.Duration `yaml:"max_backoff"`
}

type PollConfig struct {
	Interval        time.Duration `yaml:"interval"`
	RunTimeout      time.Duration `yaml:"run_timeout"`
	DefaultPlatform string        `yaml:"default_platform"`
}

func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg.applyEnvEndpoints()
	cfg.setDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.Mongo.URI == "" {
		return fmt.Errorf("mongo.uri is required")
	}
	if c.Poll.Interval < 0 || c.Poll.RunTimeout < 0 {
		return fmt.Errorf("poll durations must not be negative")
	}
	return nil
}

// applyEnvEndpoints lower-cases endpoint keys and fills platforms the file
// leaves unset from API_URL_<PLATFORM> and API_BASE_URL.
func (c *Config) applyEnvEndpoints() {
	endpoints := make(map[string]string, len(c.Fetch.Endpoints))
	for platform, u := range c.Fetch.Endpoints {
		if u != "" {
			endpoints[strings.ToLower(strings.TrimSpace(platform))] = u
		}
	}

	for _, platform := range knownPlatforms {
		if _, ok := endpoints[platform]; ok {
			continue
		}
		if u := os.Getenv("API_URL_" + strings.ToUpper(platform)); u != "" {
			endpoints[platform] = u
		}
	}
	c.Fetch.Endpoints = endpoints

	if c.Fetch.FallbackURL == "" {
		c.Fetch.FallbackURL = os.Getenv("API_BASE_URL")
	}
	if c.Mongo.URI == "" {
		c.Mongo.URI = os.Getenv("MONGO_URI")
	}
}

func (c *Config) setDefaults() {
	if c.Mongo.Database == "" {
		c.Mongo.Database = "social"
	}
	if c.Mongo.ConnectTimeout == 0 {
		c.Mongo.ConnectTimeout = 10 * time.Second
	}
	if c.Mongo.Collections.TrackingSets == "" {
		c.Mongo.Collections.TrackingSets = "collections"
	}
	if c.Mongo.Collections.Profiles == "" {
		c.Mongo.Collections.Profiles = "profiles"
	}
	if c.Mongo.Collections.Posts == "" {
		c.Mongo.Collections.Posts = "posts"
	}
	if c.Database.Port == 0 {
		c.Database.Port = 5432
	}
	if c.Database.SSLMode == "" {
		c.Database.SSLMode = "disable"
	}
	if c.RabbitMQ.Exchange == "" {
		c.RabbitMQ.Exchange = "social_fetcher"
	}
	if c.RabbitMQ.RoutingKey == "" {
		c.RabbitMQ.RoutingKey = "posts"
	}
	if c.RabbitMQ.QueueName == "" {
		c.RabbitMQ.QueueName = "social_posts"
	}
	if c.Fetch.QueryParam == "" {
		c.Fetch.QueryParam = "id"
	}
	if c.Fetch.Timeout == 0 {
		c.Fetch.Timeout = 60 * time.Second
	}
	if c.Fetch.Burst == 0 {
		c.Fetch.Burst = 1
	}
	if c.Fetch.Retry.MaxAttempts == 0 {
		c.Fetch.Retry.MaxAttempts = 3
	}
	if c.Fetch.Retry.InitialBackoff == 0 {
		c.Fetch.Retry.InitialBackoff = 1 * time.Second
	}
	if c.Fetch.Retry.MaxBackoff == 0 {
		c.Fetch.Retry.MaxBackoff = 30 * time.Second
	}
	if c.Poll.Interval == 0 {
		c.Poll.Interval = 10 * time.Second
	}
	if c.Poll.RunTimeout == 0 {
		c.Poll.RunTimeout = 2 * time.Minute
	}
	if c.Poll.DefaultPlatform == "" {
		c.Poll.DefaultPlatform = "linkedin"
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
}
