package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	oneclick "github.com/defuse-protocol/one-click-sdk-go"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

const tokenListTTL = 5 * time.Minute

// OneClickClient wraps the 1Click SDK
type OneClickClient struct {
	client *oneclick.APIClient
	token  string

	mu        sync.Mutex
	tokens    []oneclick.TokenResponse
	fetchedAt time.Time
}

// NewOneClickClient creates a new 1Click API client. An empty baseURL keeps
// the SDK default server.
func NewOneClickClient(jwtToken, baseURL string) *OneClickClient {
	config := oneclick.NewConfiguration()
	config.HTTPClient = &http.Client{Timeout: 15 * time.Second}
	if baseURL = strings.TrimSpace(baseURL); baseURL != "" {
		config.Servers = oneclick.ServerConfigurations{{URL: strings.TrimRight(baseURL, "/")}}
	}

	return &OneClickClient{
		client: oneclick.NewAPIClient(config),
		token:  jwtToken,
	}
}

func (c *OneClickClient) authContext(ctx context.Context) context.Context {
	if c.token == "" {
		return ctx
	}
	return context.WithValue(ctx, oneclick.ContextAccessToken, c.token)
}

// GetSupportedTokens retrieves all supported tokens. The list is reused for a few minutes.
func (c *OneClickClient) GetSupportedTokens(ctx context.Context) ([]oneclick.TokenResponse, error) {
	c.mu.Lock()
	if c.tokens != nil && time.Since(c.fetchedAt) < tokenListTTL {
		tokens := c.tokens
		c.mu.Unlock()
		return tokens, nil
	}
	c.mu.Unlock()

	resp, httpResp, err := c.client.OneClickAPI.GetTokens(c.authContext(ctx)).Execute()
	if err != nil {
		return nil, errors.Wrap(err, "failed to get tokens")
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode != http.StatusOK {
		return nil, errors.Errorf("API returned status code %d", httpResp.StatusCode)
	}

	c.mu.Lock()
	c.tokens = resp
	c.fetchedAt = time.Now()
	c.mu.Unlock()

	return resp, nil
}

// FindToken searches for a token by symbol across all chains
func (c *OneClickClient) FindToken(ctx context.Context, symbol string) (*oneclick.TokenResponse, error) {
	tokens, err := c.GetSupportedTokens(ctx)
	if err != nil {
		return nil, err
	}

	symbol = strings.ToUpper(symbol)

	// Try exact match first
	for i := range tokens {
		if strings.ToUpper(tokens[i].GetSymbol()) == symbol {
			return &tokens[i], nil
		}
	}

	// Try partial match
	for i := range tokens {
		if strings.Contains(strings.ToUpper(tokens[i].GetSymbol()), symbol) {
			return &tokens[i], nil
		}
	}

	return nil, errors.Errorf("token '%s' not found", symbol)
}

// FindTokenOnChain searches for a token by symbol on a specific chain
func (c *OneClickClient) FindTokenOnChain(ctx context.Context, symbol, chain string) (*oneclick.TokenResponse, error) {
	tokens, err := c.GetSupportedTokens(ctx)
	if err != nil {
		return nil, err
	}

	symbol = strings.ToUpper(symbol)
	chain = strings.ToLower(chain)

	for i := range tokens {
		if strings.ToUpper(tokens[i].GetSymbol()) == symbol &&
			strings.ToLower(tokens[i].GetBlockchain()) == chain {
			return &tokens[i], nil
		}
	}

	return nil, errors.Errorf("token '%s' not found on chain '%s'", symbol, chain)
}

// UnitPrice asks for a dry quote of one unit of from into to and returns
// amountOut / amountIn. recipient receives nothing since no deposit address is issued.
func (c *OneClickClient) UnitPrice(ctx context.Context, from, to, recipient string) (decimal.Decimal, error) {
	if recipient == "" {
		return decimal.Zero, errors.New("recipient address is required for 1Click quotes")
	}

	source, err := c.FindToken(ctx, from)
	if err != nil {
		return decimal.Zero, errors.Wrap(err, "source token")
	}
	dest, err := c.FindToken(ctx, to)
	if err != nil {
		return decimal.Zero, errors.Wrap(err, "destination token")
	}

	// One whole unit in the smallest denomination
	amount := decimal.NewFromInt(1).Shift(int32(source.GetDecimals())).StringFixed(0)

	quoteReq := oneclick.NewQuoteRequest(
		true,                // dry
		"EXACT_INPUT",       // swapType
		100,                 // slippageTolerance (1%)
		source.GetAssetId(), // originAsset
		"ORIGIN_CHAIN",      // depositType
		dest.GetAssetId(),   // destinationAsset
		amount,              // amount in smallest unit
		recipient,           // refundTo
		"ORIGIN_CHAIN",      // refundType
		recipient,           // recipient
		"DESTINATION_CHAIN", // recipientType
		time.Now().Add(10*time.Minute),
	)

	resp, httpResp, err := c.client.OneClickAPI.GetQuote(c.authContext(ctx)).QuoteRequest(*quoteReq).Execute()
	if err != nil {
		return decimal.Zero, apiError(httpResp, err)
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		return decimal.Zero, errors.Errorf("API returned status code %d", httpResp.StatusCode)
	}
	if resp == nil {
		return decimal.Zero, errors.New("empty quote response")
	}

	quote := resp.GetQuote()
	amountIn, err := decimal.NewFromString(quote.GetAmountInFormatted())
	if err != nil {
		return decimal.Zero, errors.Wrap(err, "failed to parse amount in")
	}
	amountOut, err := decimal.NewFromString(quote.GetAmountOutFormatted())
	if err != nil {
		return decimal.Zero, errors.Wrap(err, "failed to parse amount out")
	}
	if amountIn.IsZero() {
		return decimal.Zero, errors.New("quote has zero input amount")
	}

	return amountOut.Div(amountIn), nil
}

// apiError extracts the message of a failed API call from its body
func apiError(httpResp *http.Response, err error) error {
	if httpResp == nil {
		return errors.Wrap(err, "failed to get quote from API")
	}
	defer httpResp.Body.Close()

	bodyBytes, readErr := io.ReadAll(io.LimitReader(httpResp.Body, 4096))
	if readErr != nil || len(bodyBytes) == 0 {
		return fmt.Errorf("failed to get quote from API (status: %d): %w", httpResp.StatusCode, err)
	}

	var errorResp map[string]interface{}
	if jsonErr := json.Unmarshal(bodyBytes, &errorResp); jsonErr == nil {
		if message, ok := errorResp["message"].(string); ok {
			return errors.Errorf("API error (status %d): %s", httpResp.StatusCode, message)
		}
		if details, ok := errorResp["errors"]; ok {
			return errors.Errorf("API error (status %d): %v", httpResp.StatusCode, details)
		}
	}
	return errors.Errorf("API error (status %d): %s", httpResp.StatusCode, string(bodyBytes))
}
