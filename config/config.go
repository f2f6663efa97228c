package config

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"

	"fiat-ramp/pkg/rates"
	"fiat-ramp/pkg/types"
)

const (
	EnvPrefix      = "FIAT_RAMP"
	ConfigFileName = ".fiat-ramp"
)

// Config holds the application configuration
type Config struct {
	Rates      rates.Config
	Quote      QuoteConfig
	Precision  map[string]int32
	Currencies types.CurrencyOptions
	Orders     OrdersConfig
	Auth       AuthConfig
	Log        LogConfig
}

// QuoteConfig tunes the interactive quote session
type QuoteConfig struct {
	Debounce       time.Duration
	RequestTimeout time.Duration
	DefaultFiat    string
	DefaultCrypto  string
	DefaultAmount  string
}

// OrdersConfig locates the order store and the settlement webhook
type OrdersConfig struct {
	StoragePath    string
	WebhookURL     string
	WebhookSecret  string
	WebhookTimeout time.Duration
}

// AuthConfig is the signed-in user
type AuthConfig struct {
	UserID string
	Email  string
	Role   string
}

// LogConfig controls diagnostic output on stderr
type LogConfig struct {
	Level  string
	Format string
}

// SetDefaults registers the default of every key on v
func SetDefaults(v *viper.Viper) {
	defaults := types.DefaultCurrencyOptions()

	v.SetDefault("rates.source", "fixed")
	v.SetDefault("rates.fallback", []string{})
	v.SetDefault("rates.cache_ttl", rates.DefaultCacheTTL)
	v.SetDefault("rates.spread_percent", 0.0)
	v.SetDefault("coingecko.endpoint", rates.DefaultCoinGeckoEndpoint)
	v.SetDefault("oneclick.base_url", "https://1click.chaindefuser.com")

	v.SetDefault("quote.debounce", 800*time.Millisecond)
	v.SetDefault("quote.request_timeout", 10*time.Second)
	v.SetDefault("quote.default_fiat", "USD")
	v.SetDefault("quote.default_crypto", "BTC")
	v.SetDefault("quote.default_amount", "500")

	v.SetDefault("currencies.fiat", defaults.Fiat)
	v.SetDefault("currencies.crypto", defaults.Crypto)

	v.SetDefault("orders.storage_path", "")
	v.SetDefault("orders.webhook_timeout", 15*time.Second)
	v.SetDefault("auth.role", "user")

	v.SetDefault("log.level", "warn")
	v.SetDefault("log.format", "text")
}

// Load reads configuration from environment variables and config file
func Load() (*Config, error) {
	viper.SetConfigName(ConfigFileName)
	viper.SetConfigType("yaml")
	viper.AddConfigPath("$HOME")
	viper.AddConfigPath(".")

	SetDefaults(viper.GetViper())

	// FIAT_RAMP_RATES_SOURCE overrides rates.source
	viper.SetEnvPrefix(EnvPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// Config file is optional
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, errors.Wrap(err, "failed to read config file")
		}
	}

	return FromViper(viper.GetViper())
}

// FromViper builds a Config from the keys set on v
func FromViper(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		Rates: rates.Config{
			Source:        strings.ToLower(v.GetString("rates.source")),
			Fallback:      v.GetStringSlice("rates.fallback"),
			CacheTTL:      v.GetDuration("rates.cache_ttl"),
			SpreadPercent: v.GetFloat64("rates.spread_percent"),
			Fixed:         v.GetStringMapString("rates.fixed"),
			CoinGecko: rates.CoinGeckoConfig{
				Endpoint: v.GetString("coingecko.endpoint"),
				IDs:      v.GetStringMapString("coingecko.ids"),
			},
			OneClick: rates.OneClickConfig{
				JWTToken:    v.GetString("oneclick.jwt_token"),
				BaseURL:     v.GetString("oneclick.base_url"),
				Recipient:   v.GetString("oneclick.recipient"),
				Stablecoins: v.GetStringMapString("oneclick.stablecoins"),
			},
		},
		Quote: QuoteConfig{
			Debounce:       v.GetDuration("quote.debounce"),
			RequestTimeout: v.GetDuration("quote.request_timeout"),
			DefaultFiat:    strings.ToUpper(v.GetString("quote.default_fiat")),
			DefaultCrypto:  strings.ToUpper(v.GetString("quote.default_crypto")),
			DefaultAmount:  v.GetString("quote.default_amount"),
		},
		Precision: make(map[string]int32),
		Currencies: types.CurrencyOptions{
			Fiat:   upper(v.GetStringSlice("currencies.fiat")),
			Crypto: upper(v.GetStringSlice("currencies.crypto")),
		},
		Orders: OrdersConfig{
			StoragePath:    expandHome(v.GetString("orders.storage_path")),
			WebhookURL:     v.GetString("orders.webhook_url"),
			WebhookSecret:  v.GetString("orders.webhook_secret"),
			WebhookTimeout: v.GetDuration("orders.webhook_timeout"),
		},
		Auth: AuthConfig{
			UserID: v.GetString("auth.user_id"),
			Email:  v.GetString("auth.email"),
			Role:   v.GetString("auth.role"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
		},
	}

	for code := range v.GetStringMap("precision") {
		places := v.GetInt32("precision." + code)
		if places < 0 {
			return nil, errors.Errorf("precision.%s must not be negative", code)
		}
		cfg.Precision[strings.ToUpper(code)] = places
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks values that would otherwise fail deep inside a command
func (c *Config) Validate() error {
	if len(c.Currencies.Fiat) == 0 || len(c.Currencies.Crypto) == 0 {
		return errors.New("currencies.fiat and currencies.crypto must not be empty")
	}
	if c.Quote.Debounce < 0 {
		return errors.New("quote.debounce must not be negative")
	}
	if c.Quote.RequestTimeout <= 0 {
		return errors.New("quote.request_timeout must be positive")
	}
	if c.Rates.SpreadPercent < 0 || c.Rates.SpreadPercent >= 100 {
		return errors.Errorf("rates.spread_percent must be in [0, 100), got %v", c.Rates.SpreadPercent)
	}
	if c.Orders.WebhookURL != "" && c.Orders.WebhookTimeout <= 0 {
		return errors.New("orders.webhook_timeout must be positive")
	}
	if _, err := logrus.ParseLevel(c.Log.Level); err != nil {
		return errors.Wrap(err, "log.level")
	}
	return nil
}

// NewLogger builds the diagnostic logger. verbose forces debug level.
func NewLogger(cfg LogConfig, verbose bool, out io.Writer) (*logrus.Logger, error) {
	if out == nil {
		out = os.Stderr
	}
	logger := logrus.New()
	logger.SetOutput(out)

	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		return nil, errors.Wrap(err, "log.level")
	}
	if verbose {
		level = logrus.DebugLevel
	}
	logger.SetLevel(level)

	switch strings.ToLower(cfg.Format) {
	case "json":
		logger.SetFormatter(&logrus.JSONFormatter{TimestampFormat: time.RFC3339Nano})
	case "", "text":
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	default:
		return nil, errors.Errorf("unknown log.format %q", cfg.Format)
	}
	return logger, nil
}

func upper(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.ToUpper(strings.TrimSpace(v)); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func expandHome(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return home + path[1:]
		}
	}
	return path
}
