package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	// MinPort is the minimum valid port number
	MinPort = 1
	// MaxPort is the maximum valid port number
	MaxPort = 65535
)

// Config represents the complete application configuration
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	RabbitMQ RabbitMQConfig `yaml:"rabbitmq"`
	Dispatch DispatchConfig `yaml:"dispatch"`
	Billing  BillingConfig  `yaml:"billing"`
	Logging  LoggingConfig  `yaml:"logging"`
	App      AppConfig      `yaml:"app"`
	Worker   WorkerConfig   `yaml:"worker"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// DatabaseConfig holds PostgreSQL connection configuration
type DatabaseConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	Database        string        `yaml:"database"`
	SSLMode         string        `yaml:"sslmode"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `yaml:"conn_max_idle_time"`
}

// RabbitMQConfig holds RabbitMQ connection configuration
type RabbitMQConfig struct {
	Host       string           `yaml:"host"`
	Port       int              `yaml:"port"`
	User       string           `yaml:"user"`
	Password   string           `yaml:"password"`
	VHost      string           `yaml:"vhost"`
	Connection ConnectionConfig `yaml:"connection"`
	Consumer   ConsumerConfig   `yaml:"consumer"`
}

// ConnectionConfig holds RabbitMQ connection settings
type ConnectionConfig struct {
	RetryAttempts     int           `yaml:"retry_attempts"`
	RetryInterval     time.Duration `yaml:"retry_interval"`
	Heartbeat         time.Duration `yaml:"heartbeat"`
	ConnectionTimeout time.Duration `yaml:"connection_timeout"`
}

// ConsumerConfig holds RabbitMQ consumer settings
type ConsumerConfig struct {
	PrefetchCount int `yaml:"prefetch_count"`
}

// DispatchConfig holds the reply-race deadlines per work queue and the
// shared completion queue names.
type DispatchConfig struct {
	GenerateTimeout   time.Duration `yaml:"generate_timeout"`
	ThreadTimeout     time.Duration `yaml:"thread_timeout"`
	TranscriptTimeout time.Duration `yaml:"transcript_timeout"`
	CloningTimeout    time.Duration `yaml:"cloning_timeout"`

	RequestCompletionQueue  string `yaml:"request_completion_queue"`
	ThreadCompletionQueue   string `yaml:"thread_completion_queue"`
	CloningCompletionQueue  string `yaml:"cloning_completion_queue"`
	CampaignCompletionQueue string `yaml:"campaign_completion_queue"`
}

// BillingConfig holds Paddle API settings. The bearer token comes from the
// environment, never from the config file.
type BillingConfig struct {
	BaseURL          string        `yaml:"base_url"`
	Timeout          time.Duration `yaml:"timeout"`
	DefaultAllowance int           `yaml:"default_allowance"`
	SubbedAllowance  int           `yaml:"subbed_allowance"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level        string `yaml:"level"`
	Format       string `yaml:"format"`
	Output       string `yaml:"output"`
	EnableCaller bool   `yaml:"enable_caller"`
}

// AppConfig holds application metadata
type AppConfig struct {
	Name        string `yaml:"name"`
	Version     string `yaml:"version"`
	Environment string `yaml:"environment"`
}

// WorkerConfig holds worker simulator configuration
type WorkerConfig struct {
	Concurrency     int           `yaml:"concurrency"`
	ProcessingDelay time.Duration `yaml:"processing_delay"`
	FailureRate     float64       `yaml:"failure_rate"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// Load reads and parses the configuration file
func Load(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	config.applyDefaults()
	return &config, nil
}

// applyDefaults fills queue names and deadlines left empty in the file.
func (c *Config) applyDefaults() {
	if c.Dispatch.GenerateTimeout <= 0 {
		c.Dispatch.GenerateTimeout = 30 * time.Second
	}
	if c.Dispatch.ThreadTimeout <= 0 {
		c.Dispatch.ThreadTimeout = 5 * time.Second
	}
	if c.Dispatch.TranscriptTimeout <= 0 {
		c.Dispatch.TranscriptTimeout = 30 * time.Second
	}
	if c.Dispatch.CloningTimeout <= 0 {
		c.Dispatch.CloningTimeout = 10 * time.Second
	}
	if c.Dispatch.RequestCompletionQueue == "" {
		c.Dispatch.RequestCompletionQueue = "request_completion"
	}
	if c.Dispatch.ThreadCompletionQueue == "" {
		c.Dispatch.ThreadCompletionQueue = "thread_completion"
	}
	if c.Dispatch.CloningCompletionQueue == "" {
		c.Dispatch.CloningCompletionQueue = "cloning_completion"
	}
	if c.Dispatch.CampaignCompletionQueue == "" {
		c.Dispatch.CampaignCompletionQueue = "campaign_completion"
	}
}

// ValidateAPIConfig checks the fields the API service depends on.
func (c *Config) ValidateAPIConfig() error {
	if c.Server.Port < MinPort || c.Server.Port > MaxPort {
		return fmt.Errorf("invalid server port: %d (must be between %d and %d)", c.Server.Port, MinPort, MaxPort)
	}

	if c.Database.Host == "" {
		return fmt.Errorf("database host is required")
	}

	if c.Database.Port < MinPort || c.Database.Port > MaxPort {
		return fmt.Errorf("invalid database port: %d (must be between %d and %d)", c.Database.Port, MinPort, MaxPort)
	}

	if c.Database.Database == "" {
		return fmt.Errorf("database name is required")
	}

	if c.RabbitMQ.Host == "" {
		return fmt.Errorf("rabbitmq host is required")
	}

	if c.RabbitMQ.Port < MinPort || c.RabbitMQ.Port > MaxPort {
		return fmt.Errorf("invalid rabbitmq port: %d (must be between %d and %d)", c.RabbitMQ.Port, MinPort, MaxPort)
	}

	if c.Billing.BaseURL == "" {
		return fmt.Errorf("billing base_url is required")
	}

	return nil
}

// ValidateWorkerConfig checks the fields the worker simulator depends on.
func (c *Config) ValidateWorkerConfig() error {
	if c.RabbitMQ.Host == "" {
		return fmt.Errorf("rabbitmq host is required")
	}

	if c.Worker.Concurrency <= 0 {
		return fmt.Errorf("worker concurrency must be greater than 0")
	}

	if c.Worker.FailureRate < 0 || c.Worker.FailureRate > 1 {
		return fmt.Errorf("worker failure_rate must be between 0 and 1")
	}

	if c.Worker.ShutdownTimeout <= 0 {
		return fmt.Errorf("worker shutdown_timeout must be greater than 0")
	}

	return nil
}
