package rates

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

const DefaultCacheTTL = 10 * time.Second

type cachedPrice struct {
	price     decimal.Decimal
	source    string
	timestamp time.Time
}

// CachedSource fronts a primary source with a TTL cache and ordered fallbacks
type CachedSource struct {
	primary   PriceSource
	fallbacks []PriceSource
	ttl       time.Duration
	now       func() time.Time
	logger    *logrus.Entry

	mu     sync.RWMutex
	prices map[string]cachedPrice
}

// CacheOption configures a CachedSource
type CacheOption func(*CachedSource)

// WithFallbacks sets the sources tried in order after the primary fails
func WithFallbacks(sources ...PriceSource) CacheOption {
	return func(c *CachedSource) {
		for _, s := range sources {
			if s != nil {
				c.fallbacks = append(c.fallbacks, s)
			}
		}
	}
}

// WithTTL sets how long a price is reused. Zero disables caching.
func WithTTL(ttl time.Duration) CacheOption {
	return func(c *CachedSource) {
		c.ttl = ttl
	}
}

// WithNow overrides the time source
func WithNow(now func() time.Time) CacheOption {
	return func(c *CachedSource) {
		c.now = now
	}
}

// WithCacheLogger installs a custom logger
func WithCacheLogger(l *logrus.Entry) CacheOption {
	return func(c *CachedSource) {
		c.logger = l
	}
}

// NewCachedSource wraps primary
func NewCachedSource(primary PriceSource, opts ...CacheOption) *CachedSource {
	c := &CachedSource{
		primary: primary,
		ttl:     DefaultCacheTTL,
		now:     time.Now,
		logger:  logrus.WithField("component", "rates"),
		prices:  make(map[string]cachedPrice),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

func (c *CachedSource) Name() string {
	return c.primary.Name()
}

// Price serves a fresh cached price or asks the primary, then each fallback
func (c *CachedSource) Price(ctx context.Context, crypto, fiat string) (decimal.Decimal, error) {
	key := pairKey(crypto, fiat)
	if cached, ok := c.get(key); ok {
		return cached.price, nil
	}

	price, err := c.primary.Price(ctx, crypto, fiat)
	if err == nil {
		c.set(key, price, c.primary.Name())
		return price, nil
	}
	primaryErr := err

	for _, fallback := range c.fallbacks {
		if ctx.Err() != nil {
			break
		}
		price, err := fallback.Price(ctx, crypto, fiat)
		if err != nil {
			c.logger.WithError(err).WithField("source", fallback.Name()).Debug("fallback price failed")
			continue
		}
		c.logger.WithFields(logrus.Fields{
			"primary":  c.primary.Name(),
			"fallback": fallback.Name(),
			"pair":     key,
			"error":    primaryErr.Error(),
		}).Warn("using fallback price source")
		c.set(key, price, fallback.Name())
		return price, nil
	}

	return decimal.Zero, errors.Wrapf(primaryErr, "all price sources failed for %s", key)
}

// LastSource reports which source produced the cached price of a pair
func (c *CachedSource) LastSource(crypto, fiat string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	cached, ok := c.prices[pairKey(crypto, fiat)]
	return cached.source, ok
}

func (c *CachedSource) get(key string) (cachedPrice, bool) {
	if c.ttl <= 0 {
		return cachedPrice{}, false
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	cached, ok := c.prices[key]
	if !ok || c.now().Sub(cached.timestamp) > c.ttl {
		return cachedPrice{}, false
	}
	return cached, true
}

func (c *CachedSource) set(key string, price decimal.Decimal, source string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.prices[key] = cachedPrice{
		price:     price,
		source:    source,
		timestamp: c.now(),
	}
}
