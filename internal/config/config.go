package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"amenityhub/internal/models"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	App        AppConfig         `yaml:"app"`
	Database   DatabaseConfig    `yaml:"database"`
	Redis      RedisConfig       `yaml:"redis"`
	Backup     BackupConfig      `yaml:"backup"`
	Monitoring MonitoringConfig  `yaml:"monitoring"`
	Logging    LoggingConfig     `yaml:"logging"`
	API        APIConfig         `yaml:"api"`
	Booking    BookingConfig     `yaml:"booking"`
	Artifact   ArtifactConfig    `yaml:"artifact"`
	Cache      CacheConfig       `yaml:"cache"`
	Events     EventsConfig      `yaml:"events"`
	Managers   []string          `yaml:"managers"`
	Resources  []models.Resource `yaml:"resources"`
}

type AppConfig struct {
	Name        string `yaml:"name"`
	Environment string `yaml:"environment"`
	Version     string `yaml:"version"`
}

type DatabaseConfig struct {
	Path string `yaml:"path"`
}

type RedisConfig struct {
	Address  string `yaml:"address"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	PoolSize int    `yaml:"pool_size"`
}

type BackupConfig struct {
	Enabled       bool   `yaml:"enabled"`
	Schedule      string `yaml:"schedule"`
	RetentionDays int    `yaml:"retention_days"`
	StoragePath   string `yaml:"storage_path"`
}

type MonitoringConfig struct {
	PrometheusEnabled bool `yaml:"prometheus_enabled"`
	PrometheusPort    int  `yaml:"prometheus_port"`
}

type LoggingConfig struct {
	Level    string `yaml:"level"`
	Format   string `yaml:"format"`
	Output   string `yaml:"output"`
	FilePath string `yaml:"file_path"`
}

type APIConfig struct {
	Enabled   bool               `yaml:"enabled"`
	HTTP      APIHTTPConfig      `yaml:"http"`
	Auth      APIAuthConfig      `yaml:"auth"`
	RateLimit APIRateLimitConfig `yaml:"rate_limit"`
}

type APIHTTPConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

type APIAuthConfig struct {
	Enabled         bool           `yaml:"enabled"`
	HeaderAPIKey    string         `yaml:"header_api_key"`
	HeaderExtra     string         `yaml:"header_extra"`
	HeaderRequester string         `yaml:"header_requester"`
	APIKeys         []APIClientKey `yaml:"api_keys"`
}

type APIClientKey struct {
	Key         string   `yaml:"key"`
	Extra       string   `yaml:"extra"`
	Name        string   `yaml:"name"`
	Permissions []string `yaml:"permissions"`
}

type APIRateLimitConfig struct {
	RPS   float64 `yaml:"rps"`
	Burst int     `yaml:"burst"`
}

type BookingConfig struct {
	ConfirmationMode string        `yaml:"confirmation_mode"`
	HoldWindow       time.Duration `yaml:"hold_window"`
	CancelCutoff     time.Duration `yaml:"cancel_cutoff"`
	MaxDuration      time.Duration `yaml:"max_duration"`
	MaxAdvance       time.Duration `yaml:"max_advance"`
	StorageTimeout   time.Duration `yaml:"storage_timeout"`
	SweepInterval    time.Duration `yaml:"sweep_interval"`
	SweepBatch       int           `yaml:"sweep_batch"`
}

type ArtifactConfig struct {
	Secret string `yaml:"secret"`
	Issuer string `yaml:"issuer"`
}

type CacheConfig struct {
	ResourceTTL time.Duration `yaml:"resource_ttl"`
}

type EventsConfig struct {
	Kafka KafkaConfig `yaml:"kafka"`
	AMQP  AMQPConfig  `yaml:"amqp"`
	Relay RelayConfig `yaml:"relay"`
}

type KafkaConfig struct {
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
}

type AMQPConfig struct {
	URL      string `yaml:"url"`
	Exchange string `yaml:"exchange"`
}

type RelayConfig struct {
	PollInterval time.Duration `yaml:"poll_interval"`
	BatchSize    int           `yaml:"batch_size"`
	MaxRetries   int           `yaml:"max_retries"`
	RetryJitter  float64       `yaml:"retry_jitter"`
}

// MinArtifactSecret минимальная длина ключа подписи артефактов
const MinArtifactSecret = 32

func Load(configPath string) (*Config, error) {
	// Загружаем .env файл если существует
	if err := godotenv.Load(".env"); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, err
	}

	// Предварительная замена переменных окружения в YAML
	expandedData := []byte(os.ExpandEnv(string(data)))

	var config Config
	if err := yaml.Unmarshal(expandedData, &config); err != nil {
		return nil, err
	}

	config.applyDefaults()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

func (c *Config) Validate() error {
	if c.Database.Path == "" {
		return errors.New("database path is required")
	}

	if len(c.Artifact.Secret) < MinArtifactSecret {
		return fmt.Errorf("artifact secret must be at least %d bytes", MinArtifactSecret)
	}

	switch c.Booking.ConfirmationMode {
	case models.ConfirmationImmediate, models.ConfirmationHold:
	default:
		return fmt.Errorf("unknown booking.confirmation_mode %q", c.Booking.ConfirmationMode)
	}

	if c.Booking.CancelCutoff < 0 {
		return errors.New("booking.cancel_cutoff must not be negative")
	}

	return ValidateResources(c.Resources)
}

func ValidateResources(resources []models.Resource) error {
	ids := make(map[string]bool)
	for _, res := range resources {
		id := strings.TrimSpace(res.ID)
		if id == "" {
			return fmt.Errorf("resource '%s' has empty ID", res.Name)
		}
		if ids[id] {
			return fmt.Errorf("duplicate resource ID found: %s", id)
		}
		if res.PricePerHour < 0 {
			return fmt.Errorf("resource %s has negative price_per_hour", id)
		}
		ids[id] = true
	}
	return nil
}

// IsManager reports whether requesterID may act on reservations of others.
func (c *Config) IsManager(requesterID string) bool {
	for _, m := range c.Managers {
		if m == requesterID {
			return true
		}
	}
	return false
}

func (c *Config) applyDefaults() {
	if c.API.HTTP.Port == 0 {
		c.API.HTTP.Port = 8080
	}
	if c.Monitoring.PrometheusEnabled && c.Monitoring.PrometheusPort == 0 {
		c.Monitoring.PrometheusPort = 9090
	}
	if !c.API.HTTP.Enabled && c.API.Enabled {
		c.API.HTTP.Enabled = true
	}
	if c.API.Auth.HeaderAPIKey == "" {
		c.API.Auth.HeaderAPIKey = "x-api-key"
	}
	if c.API.Auth.HeaderExtra == "" {
		c.API.Auth.HeaderExtra = "x-api-extra"
	}
	if c.API.Auth.HeaderRequester == "" {
		c.API.Auth.HeaderRequester = "x-requester-id"
	}

	// Booking defaults
	if c.Booking.ConfirmationMode == "" {
		c.Booking.ConfirmationMode = models.ConfirmationImmediate
	}
	if c.Booking.HoldWindow == 0 {
		c.Booking.HoldWindow = models.DefaultHoldWindow
	}
	if c.Booking.MaxDuration == 0 {
		c.Booking.MaxDuration = models.DefaultMaxDuration
	}
	if c.Booking.MaxAdvance == 0 {
		c.Booking.MaxAdvance = models.DefaultMaxAdvance
	}
	if c.Booking.StorageTimeout == 0 {
		c.Booking.StorageTimeout = models.DefaultStorageTimeout
	}
	if c.Booking.SweepInterval == 0 {
		c.Booking.SweepInterval = models.DefaultSweepInterval
	}
	if c.Booking.SweepBatch == 0 {
		c.Booking.SweepBatch = models.DefaultSweepBatch
	}

	if c.Artifact.Issuer == "" {
		c.Artifact.Issuer = c.App.Name
	}
	if c.Cache.ResourceTTL == 0 {
		c.Cache.ResourceTTL = models.DefaultResourceCacheTTL
	}

	if c.Events.Kafka.Topic == "" {
		c.Events.Kafka.Topic = "reservations"
	}
	if c.Events.AMQP.Exchange == "" {
		c.Events.AMQP.Exchange = "reservations"
	}
	if c.Events.Relay.PollInterval == 0 {
		c.Events.Relay.PollInterval = 2 * time.Second
	}
	if c.Events.Relay.BatchSize == 0 {
		c.Events.Relay.BatchSize = 20
	}
	if c.Events.Relay.MaxRetries == 0 {
		c.Events.Relay.MaxRetries = 5
	}
}
