// Package config loads agent configuration from file and environment.
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config represents the complete agent configuration
type Config struct {
	Stream    StreamConfig    `mapstructure:"stream"`
	Solana    SolanaConfig    `mapstructure:"solana"`
	Platform  PlatformConfig  `mapstructure:"platform"`
	Trading   TradingConfig   `mapstructure:"trading"`
	Screening ScreeningConfig `mapstructure:"screening"`
	Watch     WatchConfig     `mapstructure:"watch"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
}

// StreamConfig holds the token creation stream configuration
type StreamConfig struct {
	Endpoint string        `mapstructure:"endpoint"`
	Buffer   int           `mapstructure:"buffer"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// SolanaConfig holds ledger RPC configuration
type SolanaConfig struct {
	RPCURL  string        `mapstructure:"rpc_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// PlatformConfig holds the launch platform API configuration
type PlatformConfig struct {
	APIURL  string        `mapstructure:"api_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// TradingConfig holds trade endpoint configuration
type TradingConfig struct {
	Endpoint    string        `mapstructure:"endpoint"`
	APIKey      string        `mapstructure:"api_key"`
	BuyQuantity float64       `mapstructure:"buy_quantity"`
	SlippagePct float64       `mapstructure:"slippage_pct"`
	PriorityFee float64       `mapstructure:"priority_fee"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

// ScreeningConfig holds holder resolution tuning
type ScreeningConfig struct {
	ResolveAttempts int           `mapstructure:"resolve_attempts"`
	ResolveDelay    time.Duration `mapstructure:"resolve_delay"`
	RequestTimeout  time.Duration `mapstructure:"request_timeout"`
}

// WatchConfig holds peak monitoring configuration
type WatchConfig struct {
	PollInterval time.Duration `mapstructure:"poll_interval"`
}

// StorageConfig holds verdict journal configuration
type StorageConfig struct {
	PostgresDSN string `mapstructure:"postgres_dsn"`
	UseMemory   bool   `mapstructure:"use_memory"`
}

// MetricsConfig holds the metrics HTTP server configuration
type MetricsConfig struct {
	Addr string `mapstructure:"addr"`
}

// Load reads configuration from file and environment variables
func Load(path string) (*Config, error) {
	v := viper.New()

	v.SetConfigFile(path)

	setDefaults(v)

	v.SetEnvPrefix("PUMP_AGENT")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// setDefaults configures default values for all configuration options
func setDefaults(v *viper.Viper) {
	// Stream defaults
	v.SetDefault("stream.endpoint", "wss://pumpportal.fun/api/data")
	v.SetDefault("stream.buffer", 1000)
	v.SetDefault("stream.timeout", "60s")

	// Solana defaults
	v.SetDefault("solana.rpc_url", "https://api.mainnet-beta.solana.com")
	v.SetDefault("solana.timeout", "30s")

	// Platform defaults
	v.SetDefault("platform.api_url", "https://frontend-api.pump.fun")
	v.SetDefault("platform.timeout", "15s")

	// Trading defaults
	v.SetDefault("trading.endpoint", "https://pumpportal.fun/api/trade")
	v.SetDefault("trading.buy_quantity", 100000.0)
	v.SetDefault("trading.slippage_pct", 5.0)
	v.SetDefault("trading.priority_fee", 0.005)
	v.SetDefault("trading.timeout", "30s")

	// Screening defaults
	v.SetDefault("screening.resolve_attempts", 5)
	v.SetDefault("screening.resolve_delay", "10s")
	v.SetDefault("screening.request_timeout", "15s")

	// Watch defaults
	v.SetDefault("watch.poll_interval", "60s")

	// Storage defaults
	v.SetDefault("storage.use_memory", false)

	// Metrics defaults
	v.SetDefault("metrics.addr", ":9090")
}

// Validate checks that all configuration values are valid
func (c *Config) Validate() error {
	if c.Stream.Endpoint == "" {
		return fmt.Errorf("stream.endpoint is required")
	}
	if c.Stream.Buffer < 1 {
		return fmt.Errorf("stream.buffer must be at least 1")
	}

	if c.Solana.RPCURL == "" {
		return fmt.Errorf("solana.rpc_url is required")
	}

	if c.Platform.APIURL == "" {
		return fmt.Errorf("platform.api_url is required")
	}

	if c.Trading.Endpoint == "" {
		return fmt.Errorf("trading.endpoint is required")
	}
	if c.Trading.BuyQuantity <= 0 {
		return fmt.Errorf("trading.buy_quantity must be positive")
	}
	if c.Trading.SlippagePct < 0 || c.Trading.SlippagePct > 100 {
		return fmt.Errorf("trading.slippage_pct must be between 0 and 100")
	}
	if c.Trading.PriorityFee < 0 {
		return fmt.Errorf("trading.priority_fee must not be negative")
	}

	if c.Screening.ResolveAttempts < 1 {
		return fmt.Errorf("screening.resolve_attempts must be at least 1")
	}
	if c.Screening.ResolveDelay < 0 {
		return fmt.Errorf("screening.resolve_delay must not be negative")
	}
	if c.Screening.RequestTimeout < 1*time.Second {
		return fmt.Errorf("screening.request_timeout must be at least 1 second")
	}

	if c.Watch.PollInterval < 1*time.Second {
		return fmt.Errorf("watch.poll_interval must be at least 1 second")
	}

	if !c.Storage.UseMemory && c.Storage.PostgresDSN == "" {
		return fmt.Errorf("storage.postgres_dsn is required unless storage.use_memory is set")
	}

	return nil
}
