package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Environment string `yaml:"environment"`
	Server      struct {
		Port            int           `yaml:"port"`
		ReadTimeout     time.Duration `yaml:"read_timeout"`
		WriteTimeout    time.Duration `yaml:"write_timeout"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	} `yaml:"server"`
	Metrics struct {
		Enabled bool   `yaml:"enabled"`
		Path    string `yaml:"path"`
	} `yaml:"metrics"`
	Data struct {
		Source       string `yaml:"source"` // csv or clickhouse
		CalendarPath string `yaml:"calendar_path"`
		PricesPath   string `yaml:"prices_path"`
		SalesPath    string `yaml:"sales_path"`
	} `yaml:"data"`
	Forecast struct {
		DefaultHorizon int           `yaml:"default_horizon"`
		MaxHorizon     int           `yaml:"max_horizon"`
		OnMissingLag   string        `yaml:"on_missing_lag"` // zero or abort
		CacheTTL       time.Duration `yaml:"cache_ttl"`
		RateLimit      int           `yaml:"rate_limit"` // requests per second, 0 disables
	} `yaml:"forecast"`
	Model struct {
		Type       string        `yaml:"type"` // linear or http
		Path       string        `yaml:"path"`
		ServiceURL string        `yaml:"service_url"`
		Timeout    time.Duration `yaml:"timeout"`
	} `yaml:"model"`
	Ingest struct {
		Enabled        bool          `yaml:"enabled"`
		Backend        string        `yaml:"backend"` // kafka or clickhouse
		FeedURL        string        `yaml:"feed_url"`
		APIKey         string        `yaml:"api_key"`
		Stores         []string      `yaml:"stores"`
		BatchSize      int           `yaml:"batch_size"`
		BatchTimeout   time.Duration `yaml:"batch_timeout"`
		ReconnectDelay time.Duration `yaml:"reconnect_delay"`
		PingInterval   time.Duration `yaml:"ping_interval"`
	} `yaml:"ingest"`
	Kafka struct {
		Brokers       []string `yaml:"brokers"`
		SalesTopic    string   `yaml:"sales_topic"`
		ForecastTopic string   `yaml:"forecast_topic"`
		RequiredAcks  int      `yaml:"required_acks"`
		Compression   string   `yaml:"compression"`
		Producer      struct {
			MaxAttempts  int           `yaml:"max_attempts"`
			Linger       time.Duration `yaml:"linger"`
			BatchBytes   int           `yaml:"batch_bytes"`
			BatchSize    int           `yaml:"batch_size"`
			WriteTimeout time.Duration `yaml:"write_timeout"`
			ReadTimeout  time.Duration `yaml:"read_timeout"`
			Async        bool          `yaml:"async"`
		} `yaml:"producer"`
		Consumer struct {
			GroupID    string        `yaml:"group_id"`
			Workers    int           `yaml:"workers"`
			BufferSize int           `yaml:"buffer_size"`
			RetryMax   int           `yaml:"retry_max"`
			BackoffMin time.Duration `yaml:"backoff_min"`
			BackoffMax time.Duration `yaml:"backoff_max"`
			DLQTopic   string        `yaml:"dlq_topic"`
			MinBytes   int           `yaml:"min_bytes"`
			MaxBytes   int           `yaml:"max_bytes"`
		} `yaml:"consumer"`
	} `yaml:"kafka"`
	ClickHouse struct {
		Host             string        `yaml:"host"`
		Port             int           `yaml:"port"`
		Database         string        `yaml:"database"`
		User             string        `yaml:"user"`
		Password         string        `yaml:"password"`
		UseHTTP          bool          `yaml:"use_http"`
		AsyncInsert      bool          `yaml:"async_insert"`
		WaitForAsync     bool          `yaml:"wait_for_async_insert"`
		DialTimeout      time.Duration `yaml:"dial_timeout"`
		ReadTimeout      time.Duration `yaml:"read_timeout"`
		WriteTimeout     time.Duration `yaml:"write_timeout"`
		MaxExecutionTime time.Duration `yaml:"max_execution_time"`
	} `yaml:"clickhouse"`
	Redis struct {
		Enabled  bool   `yaml:"enabled"`
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`
	Batch struct {
		Workers   int    `yaml:"workers"`
		QueueName string `yaml:"queue_name"`
	} `yaml:"batch"`
}

// Load reads and parses a YAML configuration file.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	c.applyDefaults()

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &c, nil
}

// LoadWithEnv loads config from YAML and overrides with environment variables.
func LoadWithEnv(path string) (*Config, error) {
	c, err := Load(path)
	if err != nil {
		return nil, err
	}

	if v := os.Getenv("MODEL_PATH"); v != "" {
		c.Model.Path = v
	}
	if v := os.Getenv("MODEL_SERVICE_URL"); v != "" {
		c.Model.ServiceURL = v
	}
	if v := os.Getenv("FEED_API_KEY"); v != "" {
		c.Ingest.APIKey = v
	}
	if v := os.Getenv("STORES"); v != "" {
		c.Ingest.Stores = strings.Split(v, ",")
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Redis.Addr = v
	}

	return c, nil
}

func (c *Config) applyDefaults() {
	if c.Metrics.Path == "" {
		c.Metrics.Path = "/metrics"
	}
	if c.Forecast.DefaultHorizon == 0 {
		c.Forecast.DefaultHorizon = 28
	}
	if c.Forecast.MaxHorizon == 0 {
		c.Forecast.MaxHorizon = 56
	}
	if c.Forecast.OnMissingLag == "" {
		c.Forecast.OnMissingLag = "zero"
	}
	if c.Batch.Workers == 0 {
		c.Batch.Workers = 4
	}
	if c.Batch.QueueName == "" {
		c.Batch.QueueName = "forecast_jobs"
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Environment == "" {
		return fmt.Errorf("environment is required")
	}
	if c.Data.Source != "csv" && c.Data.Source != "clickhouse" {
		return fmt.Errorf("data.source must be 'csv' or 'clickhouse', got '%s'", c.Data.Source)
	}
	if c.Data.Source == "csv" {
		if c.Data.CalendarPath == "" || c.Data.PricesPath == "" || c.Data.SalesPath == "" {
			return fmt.Errorf("data.calendar_path, data.prices_path and data.sales_path are required for csv source")
		}
	}
	if c.Model.Type != "linear" && c.Model.Type != "http" {
		return fmt.Errorf("model.type must be 'linear' or 'http', got '%s'", c.Model.Type)
	}
	if c.Model.Type == "linear" && c.Model.Path == "" {
		return fmt.Errorf("model.path is required for linear model")
	}
	if c.Model.Type == "http" && c.Model.ServiceURL == "" {
		return fmt.Errorf("model.service_url is required for http model")
	}
	if c.Forecast.MaxHorizon < c.Forecast.DefaultHorizon {
		return fmt.Errorf("forecast.max_horizon must be >= forecast.default_horizon")
	}
	if c.Ingest.Enabled {
		if c.Ingest.Backend != "kafka" && c.Ingest.Backend != "clickhouse" {
			return fmt.Errorf("ingest.backend must be 'kafka' or 'clickhouse', got '%s'", c.Ingest.Backend)
		}
		if c.Ingest.FeedURL == "" {
			return fmt.Errorf("ingest.feed_url is required when ingest is enabled")
		}
	}
	return nil
}
