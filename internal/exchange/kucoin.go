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

const kucoinDefaultBaseURL = "https://api.kucoin.com"

// KucoinAdapter talks to the public KuCoin REST API. KuCoin uses dash
// symbols (BTC-USDT) and string-encoded prices wrapped in a code/data
// envelope.
type KucoinAdapter struct {
	httpClient *http.Client
	baseURL    string
	creds      Credentials
	logger     *logrus.Logger
}

// NewKucoinAdapter creates a KuCoin adapter. An empty baseURL selects the
// production API; tests point it at a local server.
func NewKucoinAdapter(baseURL string, creds Credentials, logger *logrus.Logger) *KucoinAdapter {
	if baseURL == "" {
		baseURL = kucoinDefaultBaseURL
	}
	if logger == nil {
		logger = logrus.New()
	}
	return &KucoinAdapter{
		httpClient: &http.Client{Timeout: RequestTimeout},
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		creds:      creds,
		logger:     logger,
	}
}

func (a *KucoinAdapter) Name() string { return "KuCoin" }

type kucoinEnvelope struct {
	Code string          `json:"code"`
	Data json.RawMessage `json:"data"`
}

type kucoinLevel1 struct {
	BestBid string `json:"bestBid"`
	BestAsk string `json:"bestAsk"`
	Price   string `json:"price"`
	Time    int64  `json:"time"`
}

type kucoinStats struct {
	Vol string `json:"vol"`
}

type kucoinLevel2 struct {
	Bids [][]string `json:"bids"`
	Asks [][]string `json:"asks"`
	Time int64      `json:"time"`
}

type kucoinStatus struct {
	Status string `json:"status"`
}

// GetPrice fetches top-of-book from the level1 endpoint and 24h volume
// from the stats endpoint. The stats call is best effort: a failed volume
// lookup leaves volume at zero rather than failing the quote.
func (a *KucoinAdapter) GetPrice(ctx context.Context, pair string) (*models.PriceQuote, error) {
	if err := ValidatePair(pair); err != nil {
		return nil, err
	}
	symbol := ToDashSymbol(pair)

	var level1 kucoinLevel1
	if err := a.get(ctx, "getPrice", "/api/v1/market/orderbook/level1", url.Values{"symbol": {symbol}}, &level1); err != nil {
		return nil, err
	}

	bid, errBid := decimal.NewFromString(level1.BestBid)
	ask, errAsk := decimal.NewFromString(level1.BestAsk)
	last, errLast := decimal.NewFromString(level1.Price)
	if errBid != nil || errAsk != nil || errLast != nil {
		return nil, &UpstreamError{Exchange: a.Name(), Op: "getPrice", Message: "missing or malformed price fields"}
	}

	return &models.PriceQuote{
		Pair:      pair,
		Bid:       bid,
		Ask:       ask,
		Last:      last,
		Volume24h: a.Get24hVolume(ctx, pair),
		Exchange:  a.Name(),
		QuotedAt:  time.Now().UTC(),
	}, nil
}

// GetOrderBook fetches the level2_20 snapshot and truncates both sides to
// the requested depth.
func (a *KucoinAdapter) GetOrderBook(ctx context.Context, pair string, limit int) (*models.OrderBookSnapshot, error) {
	if err := ValidatePair(pair); err != nil {
		return nil, err
	}
	symbol := ToDashSymbol(pair)

	var level2 kucoinLevel2
	if err := a.get(ctx, "getOrderBook", "/api/v1/market/orderbook/level2_20", url.Values{"symbol": {symbol}}, &level2); err != nil {
		return nil, err
	}

	bids, err := parseStringLevels(level2.Bids, limit)
	if err != nil {
		return nil, &UpstreamError{Exchange: a.Name(), Op: "getOrderBook", Message: err.Error()}
	}
	asks, err := parseStringLevels(level2.Asks, limit)
	if err != nil {
		return nil, &UpstreamError{Exchange: a.Name(), Op: "getOrderBook", Message: err.Error()}
	}

	timestamp := level2.Time
	if timestamp == 0 {
		timestamp = time.Now().UnixMilli()
	}

	return &models.OrderBookSnapshot{
		Pair:      pair,
		Exchange:  a.Name(),
		Bids:      bids,
		Asks:      asks,
		Timestamp: timestamp,
	}, nil
}

// Get24hVolume reads the rolling volume from the market stats endpoint.
// Failures are logged and degrade to zero.
func (a *KucoinAdapter) Get24hVolume(ctx context.Context, pair string) decimal.Decimal {
	if err := ValidatePair(pair); err != nil {
		return decimal.Zero
	}
	symbol := ToDashSymbol(pair)

	var stats kucoinStats
	if err := a.get(ctx, "get24hVolume", "/api/v1/market/stats", url.Values{"symbol": {symbol}}, &stats); err != nil {
		a.logger.WithError(err).WithField("pair", pair).Warn("KuCoin 24h volume lookup failed")
		return decimal.Zero
	}

	vol, err := decimal.NewFromString(stats.Vol)
	if err != nil {
		return decimal.Zero
	}
	return vol
}

// HealthCheck probes the service status endpoint with a short deadline.
// KuCoin reports "open" when trading is fully available.
func (a *KucoinAdapter) HealthCheck(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, HealthCheckTimeout)
	defer cancel()

	var status kucoinStatus
	if err := a.get(ctx, "healthCheck", "/api/v1/status", nil, &status); err != nil {
		a.logger.WithError(err).Warn("KuCoin health check failed")
		return false
	}
	return status.Status == "open"
}

// get performs a GET request and decodes the code/data envelope into out.
func (a *KucoinAdapter) get(ctx context.Context, op, path string, params url.Values, out interface{}) error {
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

	var envelope kucoinEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return &UpstreamError{Exchange: a.Name(), Op: op, Message: fmt.Sprintf("failed to decode response: %v", err)}
	}
	if len(envelope.Data) == 0 || string(envelope.Data) == "null" {
		return &UpstreamError{Exchange: a.Name(), Op: op, Message: "empty data in response"}
	}
	if err := json.Unmarshal(envelope.Data, out); err != nil {
		return &UpstreamError{Exchange: a.Name(), Op: op, Message: fmt.Sprintf("failed to decode data: %v", err)}
	}
	return nil
}

// parseStringLevels converts [["price","size"], ...] rows into order book
// levels, keeping at most limit entries.
func parseStringLevels(rows [][]string, limit int) ([]models.OrderBookLevel, error) {
	if limit > 0 && len(rows) > limit {
		rows = rows[:limit]
	}
	levels := make([]models.OrderBookLevel, 0, len(rows))
	for _, row := range rows {
		if len(row) < 2 {
			return nil, fmt.Errorf("order book row has %d fields, want 2", len(row))
		}
		price, err := decimal.NewFromString(row[0])
		if err != nil {
			return nil, fmt.Errorf("malformed level price %q", row[0])
		}
		amount, err := decimal.NewFromString(row[1])
		if err != nil {
			return nil, fmt.Errorf("malformed level amount %q", row[1])
		}
		levels = append(levels, models.OrderBookLevel{Price: price, Amount: amount})
	}
	return levels, nil
}
