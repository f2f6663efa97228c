package rates

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

const DefaultCoinGeckoEndpoint = "https://api.coingecko.com/api/v3/simple/price"

// DefaultCoinGeckoIDs maps asset symbols to CoinGecko identifiers
var DefaultCoinGeckoIDs = map[string]string{
	"BTC":  "bitcoin",
	"ETH":  "ethereum",
	"USDT": "tether",
	"USDC": "usd-coin",
	"SOL":  "solana",
}

// HTTPDoer is satisfied by *http.Client
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// CoinGeckoSource reads the public simple price API
type CoinGeckoSource struct {
	client   HTTPDoer
	endpoint string
	idMap    map[string]string
}

// NewCoinGeckoSource creates the source. A nil client gets a 5 second timeout.
// idMap entries are merged over DefaultCoinGeckoIDs.
func NewCoinGeckoSource(client HTTPDoer, endpoint string, idMap map[string]string) *CoinGeckoSource {
	ep := strings.TrimSpace(endpoint)
	if ep == "" {
		ep = DefaultCoinGeckoEndpoint
	}
	if client == nil {
		client = &http.Client{Timeout: 5 * time.Second}
	}
	mapped := make(map[string]string, len(DefaultCoinGeckoIDs)+len(idMap))
	for k, v := range DefaultCoinGeckoIDs {
		mapped[k] = v
	}
	for k, v := range idMap {
		mapped[strings.ToUpper(strings.TrimSpace(k))] = strings.TrimSpace(v)
	}
	return &CoinGeckoSource{client: client, endpoint: ep, idMap: mapped}
}

func (s *CoinGeckoSource) Name() string {
	return "coingecko"
}

func (s *CoinGeckoSource) assetID(symbol string) string {
	if id, ok := s.idMap[strings.ToUpper(strings.TrimSpace(symbol))]; ok && id != "" {
		return id
	}
	return strings.ToLower(strings.TrimSpace(symbol))
}

func (s *CoinGeckoSource) Price(ctx context.Context, crypto, fiat string) (decimal.Decimal, error) {
	id := s.assetID(crypto)
	vs := strings.ToLower(strings.TrimSpace(fiat))
	if id == "" || vs == "" {
		return decimal.Zero, errors.Wrapf(ErrUnsupportedPair, "%s/%s", crypto, fiat)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.endpoint, nil)
	if err != nil {
		return decimal.Zero, errors.Wrap(err, "coingecko: build request")
	}
	values := url.Values{}
	values.Set("ids", id)
	values.Set("vs_currencies", vs)
	req.URL.RawQuery = values.Encode()
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return decimal.Zero, errors.Wrap(err, "coingecko: request")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return decimal.Zero, errors.Errorf("coingecko: status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	decoder := json.NewDecoder(resp.Body)
	decoder.UseNumber()
	var payload map[string]map[string]interface{}
	if err := decoder.Decode(&payload); err != nil {
		return decimal.Zero, errors.Wrap(err, "coingecko: decode")
	}

	entry, ok := payload[id]
	if !ok {
		return decimal.Zero, errors.Wrapf(ErrUnsupportedPair, "coingecko has no asset %s", id)
	}
	raw, ok := entry[vs]
	if !ok {
		return decimal.Zero, errors.Wrapf(ErrUnsupportedPair, "coingecko has no %s price for %s", vs, id)
	}

	var priceStr string
	switch v := raw.(type) {
	case json.Number:
		priceStr = v.String()
	case string:
		priceStr = v
	case float64:
		priceStr = strconv.FormatFloat(v, 'f', -1, 64)
	default:
		priceStr = fmt.Sprintf("%v", v)
	}

	price, err := decimal.NewFromString(strings.TrimSpace(priceStr))
	if err != nil {
		return decimal.Zero, errors.Wrapf(err, "coingecko: invalid price %q", priceStr)
	}
	if !price.IsPositive() {
		return decimal.Zero, errors.Wrapf(ErrNoPrice, "coingecko: %s/%s is %s", crypto, fiat, price)
	}
	return price, nil
}
