package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
)

// EnvPrefix namespaces every environment variable, e.g. DEMANDCAST_SERVER_PORT
const EnvPrefix = "DEMANDCAST"

// Config represents the complete application configuration
type Config struct {
	Server    ServerConfig    `yaml:"server" envconfig:"SERVER"`
	Security  SecurityConfig  `yaml:"security" envconfig:"SECURITY"`
	Logging   LoggingConfig   `yaml:"logging" envconfig:"LOGGING"`
	Data      DataConfig      `yaml:"data" envconfig:"DATA"`
	Forecast  ForecastConfig  `yaml:"forecast" envconfig:"FORECAST"`
	Telemetry TelemetryConfig `yaml:"telemetry" envconfig:"TELEMETRY"`
	WebSocket WebSocketConfig `yaml:"websocket" envconfig:"WEBSOCKET"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Port            int           `yaml:"port" envconfig:"PORT"`
	ReadTimeout     time.Duration `yaml:"read_timeout" envconfig:"READ_TIMEOUT"`
	WriteTimeout    time.Duration `yaml:"write_timeout" envconfig:"WRITE_TIMEOUT"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" envconfig:"IDLE_TIMEOUT"`
	MaxHeaderBytes  int           `yaml:"max_header_bytes" envconfig:"MAX_HEADER_BYTES"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" envconfig:"SHUTDOWN_TIMEOUT"`
	RequestTimeout  time.Duration `yaml:"request_timeout" envconfig:"REQUEST_TIMEOUT"`
}

// SecurityConfig contains security-related configuration
type SecurityConfig struct {
	AllowedOrigins []string        `yaml:"allowed_origins" envconfig:"ALLOWED_ORIGINS"`
	EnableCORS     bool            `yaml:"enable_cors" envconfig:"ENABLE_CORS"`
	RateLimit      RateLimitConfig `yaml:"rate_limit" envconfig:"RATE_LIMIT"`
}

// RateLimitConfig contains rate limiting configuration
type RateLimitConfig struct {
	Enabled bool    `yaml:"enabled" envconfig:"ENABLED"`
	RPS     float64 `yaml:"rps" envconfig:"RPS"`
	Burst   int     `yaml:"burst" envconfig:"BURST"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level    string `yaml:"level" envconfig:"LEVEL"`
	Output   string `yaml:"output" envconfig:"OUTPUT"`
	FilePath string `yaml:"file_path" envconfig:"FILE_PATH"`
}

// DataConfig describes where transactions come from and how their
// columns are named.
type DataConfig struct {
	// Sources are file paths (.csv, .xlsx, optionally "book.xlsx#Sheet")
	// or Google Sheets handles of the form sheets://<spreadsheet-id>/<range>.
	Sources         []string `yaml:"sources" envconfig:"SOURCES"`
	ItemColumn      string   `yaml:"item_column" envconfig:"ITEM_COLUMN"`
	TimestampColumn string   `yaml:"timestamp_column" envconfig:"TIMESTAMP_COLUMN"`
	QuantityColumn  string   `yaml:"quantity_column" envconfig:"QUANTITY_COLUMN"`
	// SheetsCredentialsFile is a service account JSON used for sheets:// sources.
	SheetsCredentialsFile string `yaml:"sheets_credentials_file" envconfig:"SHEETS_CREDENTIALS_FILE"`
	SheetsAPIKey          string `yaml:"sheets_api_key" envconfig:"SHEETS_API_KEY"`
}

// ForecastConfig bounds the forecast horizon
type ForecastConfig struct {
	DefaultHorizon int `yaml:"default_horizon" envconfig:"DEFAULT_HORIZON"`
	MaxHorizon     int `yaml:"max_horizon" envconfig:"MAX_HORIZON"`
	CadenceDays    int `yaml:"cadence_days" envconfig:"CADENCE_DAYS"`
	Suggestions    int `yaml:"suggestions" envconfig:"SUGGESTIONS"`
}

// TelemetryConfig selects OpenTelemetry exporters
type TelemetryConfig struct {
	Environment    string  `yaml:"environment" envconfig:"ENVIRONMENT"`
	TraceExporter  string  `yaml:"trace_exporter" envconfig:"TRACE_EXPORTER"`
	MetricExporter string  `yaml:"metric_exporter" envconfig:"METRIC_EXPORTER"`
	SampleRatio    float64 `yaml:"sample_ratio" envconfig:"SAMPLE_RATIO"`
}

// WebSocketConfig contains WebSocket configuration
type WebSocketConfig struct {
	ReadBufferSize  int           `yaml:"read_buffer_size" envconfig:"READ_BUFFER_SIZE"`
	WriteBufferSize int           `yaml:"write_buffer_size" envconfig:"WRITE_BUFFER_SIZE"`
	PingPeriod      time.Duration `yaml:"ping_period" envconfig:"PING_PERIOD"`
	PongWait        time.Duration `yaml:"pong_wait" envconfig:"PONG_WAIT"`
}

// Load builds the configuration from defaults, the first config file found
// and environment variables, in increasing order of precedence.
func Load() (*Config, error) {
	return LoadFile(getConfigFilePath())
}

// LoadFile is Load with an explicit config file. An empty path skips the file.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if err := loadFromFile(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
	}

	// Fields without a matching variable are left untouched, so file values
	// and defaults survive unless overridden.
	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// loadFromFile overlays the YAML file onto cfg
func loadFromFile(filePath string, cfg *Config) error {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

// Validate checks and normalizes the configuration
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	if c.Server.ReadTimeout <= 0 {
		return fmt.Errorf("server read timeout must be positive")
	}

	if c.Server.WriteTimeout <= 0 {
		return fmt.Errorf("server write timeout must be positive")
	}

	if c.Security.EnableCORS && len(c.Security.AllowedOrigins) == 0 {
		return fmt.Errorf("at least one allowed origin must be specified")
	}

	if err := c.Data.validate(); err != nil {
		return err
	}

	if err := c.Forecast.validate(); err != nil {
		return err
	}

	switch strings.ToLower(c.Logging.Output) {
	case "console", "file", "both":
	default:
		c.Logging.Output = "console"
	}
	if c.Logging.Output != "console" && c.Logging.FilePath == "" {
		c.Logging.FilePath = "logs/demandcast.log"
	}

	return nil
}

func (d *DataConfig) validate() error {
	sources := d.Sources[:0:0]
	for _, s := range d.Sources {
		if s = strings.TrimSpace(s); s != "" {
			sources = append(sources, s)
		}
	}
	d.Sources = sources

	if len(d.Sources) == 0 {
		return fmt.Errorf("at least one data source must be specified")
	}
	if strings.TrimSpace(d.ItemColumn) == "" {
		return fmt.Errorf("item column name must not be empty")
	}
	if strings.TrimSpace(d.TimestampColumn) == "" {
		return fmt.Errorf("timestamp column name must not be empty")
	}
	if strings.TrimSpace(d.QuantityColumn) == "" {
		return fmt.Errorf("quantity column name must not be empty")
	}
	return nil
}

func (f *ForecastConfig) validate() error {
	if f.MaxHorizon < 1 || f.MaxHorizon > 52 {
		return fmt.Errorf("max horizon must be between 1 and 52, got %d", f.MaxHorizon)
	}
	if f.DefaultHorizon < 1 || f.DefaultHorizon > f.MaxHorizon {
		return fmt.Errorf("default horizon must be between 1 and %d, got %d", f.MaxHorizon, f.DefaultHorizon)
	}
	if f.CadenceDays <= 0 {
		return fmt.Errorf("cadence must be a positive number of days, got %d", f.CadenceDays)
	}
	if f.Suggestions < 0 {
		f.Suggestions = 0
	}
	return nil
}

// getConfigFilePath returns the path to the config file
func getConfigFilePath() string {
	if p := os.Getenv(EnvPrefix + "_CONFIG"); p != "" {
		return p
	}

	locations := []string{
		"config.yaml",
		"configs/config.yaml",
		"../configs/config.yaml",
	}

	for _, location := range locations {
		if _, err := os.Stat(location); err == nil {
			return location
		}
	}

	return "" // No config file found, use env vars only
}

// Default returns default configuration
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    60 * time.Second,
			IdleTimeout:     60 * time.Second,
			MaxHeaderBytes:  1 << 20, // 1MB
			ShutdownTimeout: 30 * time.Second,
			RequestTimeout:  45 * time.Second,
		},
		Security: SecurityConfig{
			AllowedOrigins: []string{"http://localhost:8080"},
			EnableCORS:     true,
			RateLimit: RateLimitConfig{
				Enabled: true,
				RPS:     20,
				Burst:   10,
			},
		},
		Logging: LoggingConfig{
			Level:    "info",
			Output:   "console",
			FilePath: "logs/demandcast.log",
		},
		Data: DataConfig{
			Sources: []string{
				"Transactional_data_retail_01.csv",
				"Transactional_data_retail_02.csv",
			},
			ItemColumn:      "StockCode",
			TimestampColumn: "InvoiceDate",
			QuantityColumn:  "Quantity",
		},
		Forecast: ForecastConfig{
			DefaultHorizon: 15,
			MaxHorizon:     52,
			CadenceDays:    7,
			Suggestions:    5,
		},
		Telemetry: TelemetryConfig{
			Environment:    "development",
			TraceExporter:  "none",
			MetricExporter: "prometheus",
			SampleRatio:    1.0,
		},
		WebSocket: WebSocketConfig{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			PingPeriod:      30 * time.Second,
			PongWait:        60 * time.Second,
		},
	}
}
