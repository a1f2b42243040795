package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config represents the complete application configuration
type Config struct {
	Source    SourceConfig    `mapstructure:"source"`
	Normalize NormalizeConfig `mapstructure:"normalize"`
	Sink      SinkConfig      `mapstructure:"sink"`
	Charts    ChartsConfig    `mapstructure:"charts"`
	Report    ReportConfig    `mapstructure:"report"`
	Notify    NotifyConfig    `mapstructure:"notify"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// SourceConfig holds raw-data acquisition configuration
type SourceConfig struct {
	APIBaseURL     string        `mapstructure:"api_base_url"`
	APIKey         string        `mapstructure:"api_key"`
	City           string        `mapstructure:"city"`
	Units          string        `mapstructure:"units"` // metric, imperial or standard
	Timeout        time.Duration `mapstructure:"timeout"`
	MaxRetries     int           `mapstructure:"max_retries"`
	RetryDelayBase time.Duration `mapstructure:"retry_delay_base"`
	RawPath        string        `mapstructure:"raw_path"`
}

// NormalizeConfig holds normalization behavior configuration
type NormalizeConfig struct {
	// TimestampLayouts are Go time layouts tried in order after the
	// unix-seconds form; first match wins.
	TimestampLayouts []string `mapstructure:"timestamp_layouts"`
}

// SinkConfig holds persistence configuration
type SinkConfig struct {
	DBPath  string `mapstructure:"db_path"`
	CSVPath string `mapstructure:"csv_path"`
}

// ChartsConfig holds chart rendering configuration
type ChartsConfig struct {
	OutputDir     string `mapstructure:"output_dir"`
	RollingWindow int    `mapstructure:"rolling_window"`
}

// ReportConfig holds output validation configuration
type ReportConfig struct {
	Path           string  `mapstructure:"path"`
	TemperatureMin float64 `mapstructure:"temperature_min"`
	TemperatureMax float64 `mapstructure:"temperature_max"`
}

// NotifyConfig holds Telegram notification configuration
type NotifyConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	BotToken string `mapstructure:"bot_token"`
	ChatID   string `mapstructure:"chat_id"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads configuration from file and environment variables.
// A .env file in the working directory is loaded first so secrets like
// WEATHER_ETL_SOURCE_API_KEY can live outside the config file.
func Load(path string) (*Config, error) {
	// Missing .env is fine; explicit env vars still apply.
	_ = godotenv.Load()

	v := viper.New()

	// Set config file
	v.SetConfigFile(path)

	// Set defaults
	setDefaults(v)

	// Enable environment variable override
	v.SetEnvPrefix("WEATHER_ETL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read config file
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Unmarshal into Config struct
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// OPENWEATHER_API_KEY is honored as a fallback so the key can be shared
	// with other tooling.
	if cfg.Source.APIKey == "" {
		cfg.Source.APIKey = os.Getenv("OPENWEATHER_API_KEY")
	}

	return &cfg, nil
}

// setDefaults configures default values for all configuration options
func setDefaults(v *viper.Viper) {
	// Source defaults
	v.SetDefault("source.api_base_url", "https://api.openweathermap.org/data/2.5")
	v.SetDefault("source.units", "metric")
	v.SetDefault("source.timeout", "10s")
	v.SetDefault("source.max_retries", 3)
	v.SetDefault("source.retry_delay_base", "500ms")
	v.SetDefault("source.raw_path", "./data/raw_data.ndjson")

	// Normalize defaults
	v.SetDefault("normalize.timestamp_layouts", []string{
		"2006-01-02 15:04:05",
		"2006-01-02 15:04",
		time.RFC3339,
	})

	// Sink defaults
	v.SetDefault("sink.db_path", "./data/weather.db")
	v.SetDefault("sink.csv_path", "./data/clean_data.csv")

	// Charts defaults
	v.SetDefault("charts.output_dir", "./reports")
	v.SetDefault("charts.rolling_window", 5)

	// Report defaults
	v.SetDefault("report.path", "./data/validation_report.json")
	v.SetDefault("report.temperature_min", -60.0)
	v.SetDefault("report.temperature_max", 60.0)

	// Notify defaults
	v.SetDefault("notify.enabled", false)

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}

// Validate checks that all configuration values are valid
func (c *Config) Validate() error {
	// Validate Source config
	if c.Source.APIBaseURL == "" {
		return fmt.Errorf("source.api_base_url is required")
	}
	validUnits := map[string]bool{"metric": true, "imperial": true, "standard": true}
	if !validUnits[c.Source.Units] {
		return fmt.Errorf("source.units must be one of: metric, imperial, standard")
	}
	if c.Source.Timeout <= 0 {
		return fmt.Errorf("source.timeout must be positive")
	}
	if c.Source.MaxRetries < 0 {
		return fmt.Errorf("source.max_retries must not be negative")
	}
	if c.Source.RawPath == "" {
		return fmt.Errorf("source.raw_path is required")
	}

	// Validate Normalize config
	if len(c.Normalize.TimestampLayouts) == 0 {
		return fmt.Errorf("normalize.timestamp_layouts must contain at least one layout")
	}

	// Validate Sink config
	if c.Sink.DBPath == "" {
		return fmt.Errorf("sink.db_path is required")
	}
	if c.Sink.CSVPath == "" {
		return fmt.Errorf("sink.csv_path is required")
	}

	// Validate Charts config
	if c.Charts.OutputDir == "" {
		return fmt.Errorf("charts.output_dir is required")
	}
	if c.Charts.RollingWindow < 1 {
		return fmt.Errorf("charts.rolling_window must be at least 1")
	}

	// Validate Report config
	if c.Report.Path == "" {
		return fmt.Errorf("report.path is required")
	}
	if c.Report.TemperatureMin >= c.Report.TemperatureMax {
		return fmt.Errorf("report.temperature_min must be below report.temperature_max")
	}

	// Validate Notify config
	if c.Notify.Enabled {
		if c.Notify.BotToken == "" {
			return fmt.Errorf("notify.bot_token is required when notify is enabled")
		}
		if c.Notify.ChatID == "" {
			return fmt.Errorf("notify.chat_id is required when notify is enabled")
		}
	}

	// Validate Logging config
	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[c.Logging.Level] {
		return fmt.Errorf("logging.level must be one of: debug, info, warn, error")
	}
	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[c.Logging.Format] {
		return fmt.Errorf("logging.format must be one of: json, text")
	}

	return nil
}
