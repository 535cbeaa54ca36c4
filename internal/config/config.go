package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	// MinPort is the minimum valid port number
	MinPort = 1
	// MaxPort is the maximum valid port number
	MaxPort = 65535

	// DefaultReconnectDelay is used when the config leaves the broker
	// reconnect delay unset.
	DefaultReconnectDelay = Duration(time.Second)
)

// Duration is a time.Duration that unmarshals from YAML values written in
// time.ParseDuration notation, e.g. "750ms" or "10s".
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}

	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}

	*d = Duration(parsed)
	return nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// Config represents the complete application configuration
type Config struct {
	App      AppConfig      `yaml:"app"`
	Server   ServerConfig   `yaml:"server"`
	RabbitMQ RabbitMQConfig `yaml:"rabbitmq"`
	Gateway  GatewayConfig  `yaml:"gateway"`
	Delivery DeliveryConfig `yaml:"delivery"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// AppConfig holds application metadata
type AppConfig struct {
	Name        string `yaml:"name"`
	Version     string `yaml:"version"`
	Environment string `yaml:"environment"`
}

// ServerConfig holds HTTP server configuration for the enqueue API
type ServerConfig struct {
	Port            int      `yaml:"port"`
	APIKey          string   `yaml:"api_key"`
	ReadTimeout     Duration `yaml:"read_timeout"`
	WriteTimeout    Duration `yaml:"write_timeout"`
	IdleTimeout     Duration `yaml:"idle_timeout"`
	ShutdownTimeout Duration `yaml:"shutdown_timeout"`
}

// RabbitMQConfig holds broker connection and queue configuration
type RabbitMQConfig struct {
	URL        string           `yaml:"url"`
	Queue      string           `yaml:"queue"`
	Connection ConnectionConfig `yaml:"connection"`
	Publish    PublishConfig    `yaml:"publish"`
}

// ConnectionConfig holds broker connection settings
type ConnectionConfig struct {
	Heartbeat         Duration `yaml:"heartbeat"`
	ConnectionTimeout Duration `yaml:"connection_timeout"`
}

// PublishConfig holds broker publish retry settings
type PublishConfig struct {
	RetryAttempts     int      `yaml:"retry_attempts"`
	RetryInterval     Duration `yaml:"retry_interval"`
	BackoffMultiplier float64  `yaml:"backoff_multiplier"`
}

// GatewayConfig holds the delivery-channel gateway endpoint
type GatewayConfig struct {
	URL string `yaml:"url"`
}

// DeliveryConfig holds the delivery pipeline settings
type DeliveryConfig struct {
	RateLimitTime  Duration `yaml:"rate_limit_time"`
	ReconnectDelay Duration `yaml:"reconnect_delay"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level        string `yaml:"level"`
	Format       string `yaml:"format"`
	Output       string `yaml:"output"`
	EnableCaller bool   `yaml:"enable_caller"`
}

// Load reads the configuration file, then applies environment overrides.
func Load(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := applyEnvOverrides(&config); err != nil {
		return nil, err
	}

	if config.Delivery.ReconnectDelay <= 0 {
		config.Delivery.ReconnectDelay = DefaultReconnectDelay
	}

	return &config, nil
}

// applyEnvOverrides maps the recognized environment options onto the
// configuration. Environment values win over the YAML file.
func applyEnvOverrides(c *Config) error {
	if v := os.Getenv("AMQP_URL"); v != "" {
		c.RabbitMQ.URL = v
	}

	if v := os.Getenv("JOB_QUEUE"); v != "" {
		c.RabbitMQ.Queue = v
	}

	if v := os.Getenv("RATE_LIMIT_TIME_MS"); v != "" {
		ms, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid RATE_LIMIT_TIME_MS %q: %w", v, err)
		}
		c.Delivery.RateLimitTime = Duration(time.Duration(ms) * time.Millisecond)
	}

	if v := os.Getenv("SERVICE_NAME"); v != "" {
		c.App.Name = v
	}

	if v := os.Getenv("JOB_ENQUEUE_API_KEY"); v != "" {
		c.Server.APIKey = v
	}

	if v := os.Getenv("GATEWAY_URL"); v != "" {
		c.Gateway.URL = v
	}

	return nil
}

// ValidateAPIConfig checks the configuration for the enqueue API service
func (c *Config) ValidateAPIConfig() error {
	if c.Server.Port < MinPort || c.Server.Port > MaxPort {
		return fmt.Errorf("invalid server port: %d (must be between %d and %d)", c.Server.Port, MinPort, MaxPort)
	}

	if c.Server.APIKey == "" {
		return fmt.Errorf("api key is required")
	}

	return c.validateBroker()
}

// ValidateDeliveryConfig checks the configuration for the delivery service
func (c *Config) ValidateDeliveryConfig() error {
	if c.Gateway.URL == "" {
		return fmt.Errorf("gateway url is required")
	}

	if c.Delivery.RateLimitTime <= 0 {
		return fmt.Errorf("delivery rate_limit_time must be greater than 0")
	}

	if c.Delivery.ReconnectDelay <= 0 {
		return fmt.Errorf("delivery reconnect_delay must be greater than 0")
	}

	return c.validateBroker()
}

func (c *Config) validateBroker() error {
	if c.RabbitMQ.URL == "" {
		return fmt.Errorf("rabbitmq url is required")
	}

	if c.RabbitMQ.Queue == "" {
		return fmt.Errorf("rabbitmq queue name is required")
	}

	return nil
}
