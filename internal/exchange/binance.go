package exchange

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/avolkov/spreadscan/internal/models"
)

const binanceDefaultBaseURL = "https://api.binance.com"

// BinanceAdapter talks to the public Binance REST API. Binance uses
// concatenated symbols (BTCUSDT) and returns plain JSON objects without
// an envelope.
type BinanceAdapter struct {
	httpClient *http.Client
	baseURL    string
	creds      Credentials
	logger     *logrus.Logger
}

// NewBinanceAdapter creates a Binance adapter. An empty baseURL selects
// the production API.
func NewBinanceAdapter(baseURL string, creds Credentials, logger *logrus.Logger) *BinanceAdapter {
	if baseURL == "" {
		baseURL = binanceDefaultBaseURL
	}
	if logger == nil {
		logger = logrus.New()
	}
	return &BinanceAdapter{
		httpClient: &http.Client{Timeout: RequestTimeout},
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		creds:      creds,
		logger:     logger,
	}
}

func (a *BinanceAdapter) Name() string { return "Binance" }

type binanceBookTicker struct {
	BidPrice string `json:"bidPrice"`
	AskPrice string `json:"askPrice"`
}

type binanceTicker24h struct {
	LastPrice string `json:"lastPrice"`
	Volume    string `json:"volume"`
}

type binanceDepth struct {
	Bids [][]string `json:"bids"`
	Asks [][]string `json:"asks"`
}

// GetPrice combines the bookTicker endpoint (best bid/ask) with the 24hr
// ticker (last price and volume). A malformed volume field degrades to
// zero; a missing last price fails the quote.
func (a *BinanceAdapter) GetPrice(ctx context.Context, pair string) (*models.PriceQuote, error) {
	if err := ValidatePair(pair); err != nil {
		return nil, err
	}
	symbol := ToJoinedSymbol(pair)

	var book binanceBookTicker
	if err := a.get(ctx, "getPrice", "/api/v3/ticker/bookTicker", url.Values{"symbol": {symbol}}, &book); err != nil {
		return nil, err
	}

	bid, errBid := decimal.NewFromString(book.BidPrice)
	ask, errAsk := decimal.NewFromString(book.AskPrice)
	if errBid != nil || errAsk != nil {
		return nil, &UpstreamError{Exchange: a.Name(), Op: "getPrice", Message: "missing or malformed price fields"}
	}

	var ticker binanceTicker24h
	if err := a.get(ctx, "getPrice", "/api/v3/ticker/24hr", url.Values{"symbol": {symbol}}, &ticker); err != nil {
		return nil, err
	}
	last, err := decimal.NewFromString(ticker.LastPrice)
	if err != nil {
		return nil, &UpstreamError{Exchange: a.Name(), Op: "getPrice", Message: "missing or malformed last price"}
	}
	volume, err := decimal.NewFromString(ticker.Volume)
	if err != nil {
		volume = decimal.Zero
	}

	return &models.PriceQuote{
		Pair:      pair,
		Bid:       bid,
		Ask:       ask,
		Last:      last,
		Volume24h: volume,
		Exchange:  a.Name(),
		QuotedAt:  time.Now().UTC(),
	}, nil
}

// GetOrderBook fetches depth bounded by limit on both sides.
func (a *BinanceAdapter) GetOrderBook(ctx context.Context, pair string, limit int) (*models.OrderBookSnapshot, error) {
	if err := ValidatePair(pair); err != nil {
		return nil, err
	}
	symbol := ToJoinedSymbol(pair)

	params := url.Values{"symbol": {symbol}}
	if limit > 0 {
		params.Set("limit", fmt.Sprintf("%d", limit))
	}

	var depth binanceDepth
	if err := a.get(ctx, "getOrderBook", "/api/v3/depth", params, &depth); err != nil {
		return nil, err
	}

	bids, err := parseStringLevels(depth.Bids, limit)
	if err != nil {
		return nil, &UpstreamError{Exchange: a.Name(), Op: "getOrderBook", Message: err.Error()}
	}
	asks, err := parseStringLevels(depth.Asks, limit)
	if err != nil {
		return nil, &UpstreamError{Exchange: a.Name(), Op: "getOrderBook", Message: err.Error()}
	}

	return &models.OrderBookSnapshot{
		Pair:      pair,
		Exchange:  a.Name(),
		Bids:      bids,
		Asks:      asks,
		Timestamp: time.Now().UnixMilli(),
	}, nil
}

// Get24hVolume reads rolling base volume from the 24hr ticker. Failures
// degrade to zero.
func (a *BinanceAdapter) Get24hVolume(ctx context.Context, pair string) decimal.Decimal {
	if err := ValidatePair(pair); err != nil {
		return decimal.Zero
	}
	symbol := ToJoinedSymbol(pair)

	var ticker binanceTicker24h
	if err := a.get(ctx, "get24hVolume", "/api/v3/ticker/24hr", url.Values{"symbol": {symbol}}, &ticker); err != nil {
		a.logger.WithError(err).WithField("pair", pair).Warn("Binance 24h volume lookup failed")
		return decimal.Zero
	}

	vol, err := decimal.NewFromString(ticker.Volume)
	if err != nil {
		return decimal.Zero
	}
	return vol
}

// HealthCheck pings the connectivity endpoint with a short deadline.
func (a *BinanceAdapter) HealthCheck(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, HealthCheckTimeout)
	defer cancel()

	var empty struct{}
	if err := a.get(ctx, "healthCheck", "/api/v3/ping", nil, &empty); err != nil {
		a.logger.WithError(err).Warn("Binance health check failed")
		return false
	}
	return true
}

func (a *BinanceAdapter) get(ctx context.Context, op, path string, params url.Values, out interface{}) error {
	endpoint := a.baseURL + path
	if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return &UpstreamError{Exchange: a.Name(), Op: op, Message: fmt.Sprintf("failed to create request: %v", err)}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return &NetworkError{Exchange: a.Name(), Op: op, Err: err}
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			a.logger.WithError(cerr).Debug("error closing response body")
		}
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return &NetworkError{Exchange: a.Name(), Op: op, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &UpstreamError{Exchange: a.Name(), Op: op, StatusCode: resp.StatusCode, Message: string(body)}
	}

	if err := json.Unmarshal(body, out); err != nil {
		return &UpstreamError{Exchange: a.Name(), Op: op, Message: fmt.Sprintf("failed to decode response: %v", err)}
	}
	return nil
}
