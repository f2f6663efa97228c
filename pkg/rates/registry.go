package rates

import (
	"sort"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"fiat-ramp/pkg/client"
)

// Config selects and parameterises the price sources
type Config struct {
	Source        string
	Fallback      []string
	CacheTTL      time.Duration
	SpreadPercent float64
	Fixed         map[string]string
	CoinGecko     CoinGeckoConfig
	OneClick      OneClickConfig
}

type CoinGeckoConfig struct {
	Endpoint string
	IDs      map[string]string
}

type OneClickConfig struct {
	JWTToken    string
	BaseURL     string
	Recipient   string
	Stablecoins map[string]string
}

// Factory builds one named source
type Factory func(cfg Config) (PriceSource, error)

// Registry holds the known price source factories
type Registry struct {
	factories map[string]Factory
	logger    *logrus.Entry
}

// NewRegistry returns a registry with the fixed, coingecko and oneclick sources
func NewRegistry(logger *logrus.Entry) *Registry {
	if logger == nil {
		logger = logrus.WithField("component", "rates")
	}
	r := &Registry{
		factories: make(map[string]Factory),
		logger:    logger,
	}

	r.Register("fixed", func(cfg Config) (PriceSource, error) {
		table := cfg.Fixed
		if len(table) == 0 {
			table = DefaultFixedPrices
		}
		return NewFixedSource(table)
	})
	r.Register("coingecko", func(cfg Config) (PriceSource, error) {
		return NewCoinGeckoSource(nil, cfg.CoinGecko.Endpoint, cfg.CoinGecko.IDs), nil
	})
	r.Register("oneclick", func(cfg Config) (PriceSource, error) {
		if cfg.OneClick.Recipient == "" {
			return nil, errors.New("oneclick source needs oneclick.recipient")
		}
		api := client.NewOneClickClient(cfg.OneClick.JWTToken, cfg.OneClick.BaseURL)
		return NewOneClickSource(api, cfg.OneClick.Stablecoins, cfg.OneClick.Recipient), nil
	})

	return r
}

// Register adds or replaces a factory
func (r *Registry) Register(name string, factory Factory) {
	r.factories[strings.ToLower(name)] = factory
}

// Names lists the registered sources
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Source builds a single source by name
func (r *Registry) Source(name string, cfg Config) (PriceSource, error) {
	factory, ok := r.factories[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return nil, errors.Errorf("price source %q not found (known: %s)", name, strings.Join(r.Names(), ", "))
	}
	return factory(cfg)
}

// Build creates the configured primary source with its fallbacks and cache,
// wrapped in a Converter
func (r *Registry) Build(cfg Config) (*Converter, error) {
	name := cfg.Source
	if name == "" {
		name = "fixed"
	}
	primary, err := r.Source(name, cfg)
	if err != nil {
		return nil, errors.Wrap(err, "primary price source")
	}

	var fallbacks []PriceSource
	for _, fb := range cfg.Fallback {
		fb = strings.TrimSpace(fb)
		if fb == "" || strings.EqualFold(fb, name) {
			continue
		}
		source, err := r.Source(fb, cfg)
		if err != nil {
			// A broken fallback should not take the primary down
			r.logger.WithError(err).WithField("source", fb).Warn("skipping fallback price source")
			continue
		}
		fallbacks = append(fallbacks, source)
	}

	cached := NewCachedSource(primary,
		WithFallbacks(fallbacks...),
		WithTTL(cfg.CacheTTL),
		WithCacheLogger(r.logger),
	)
	return NewConverter(cached, decimal.NewFromFloat(cfg.SpreadPercent)), nil
}
