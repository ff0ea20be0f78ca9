package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avolkov/spreadscan/internal/exchange"
	"github.com/avolkov/spreadscan/internal/models"
	"github.com/avolkov/spreadscan/internal/services"
)

// fakeQuoteSource serves canned responses for handler tests.
type fakeQuoteSource struct {
	name     string
	quote    *models.PriceQuote
	quoteErr error
	book     *models.OrderBookSnapshot
	bookErr  error
}

func (f *fakeQuoteSource) ExchangeName() string { return f.name }

func (f *fakeQuoteSource) GetPrice(ctx context.Context, pair string) (*models.PriceQuote, error) {
	if f.quoteErr != nil {
		return nil, f.quoteErr
	}
	return f.quote, nil
}

func (f *fakeQuoteSource) GetOrderBook(ctx context.Context, pair string, limit int) (*models.OrderBookSnapshot, error) {
	if f.bookErr != nil {
		return nil, f.bookErr
	}
	return f.book, nil
}

func marketTestRouter(sources map[string]services.QuoteSource) *gin.Engine {
	gin.SetMode(gin.TestMode)
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)

	handler := NewMarketHandler(sources, logger)
	router := gin.New()
	router.GET("/market/price/:exchange/:pair", handler.GetPrice)
	router.GET("/market/orderbook/:exchange/:pair", handler.GetOrderBook)
	return router
}

func TestMarketHandler_GetPrice(t *testing.T) {
	source := &fakeQuoteSource{
		name: "KuCoin",
		quote: &models.PriceQuote{
			Pair:     "BTC/USDT",
			Bid:      decimal.NewFromInt(49990),
			Ask:      decimal.NewFromInt(50000),
			Last:     decimal.NewFromInt(49995),
			Exchange: "KuCoin",
			QuotedAt: time.Now().UTC(),
		},
	}
	router := marketTestRouter(map[string]services.QuoteSource{"KuCoin": source})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/market/price/KuCoin/BTC-USDT", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var got models.PriceQuote
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, "BTC/USDT", got.Pair)
	assert.Equal(t, "KuCoin", got.Exchange)
	assert.True(t, got.Ask.Equal(decimal.NewFromInt(50000)))
}

func TestMarketHandler_GetPrice_UnknownExchange(t *testing.T) {
	router := marketTestRouter(map[string]services.QuoteSource{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/market/price/MtGox/BTC-USDT", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestMarketHandler_GetPrice_ErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{
			name:       "validation error",
			err:        &exchange.ValidationError{Pair: "nonsense", Message: "malformed"},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "config error",
			err:        &exchange.ConfigError{Exchange: "KuCoin", Message: "missing credentials"},
			wantStatus: http.StatusNotFound,
		},
		{
			name:       "upstream error",
			err:        &exchange.UpstreamError{Exchange: "KuCoin", Op: "getPrice", StatusCode: 500, Message: "boom"},
			wantStatus: http.StatusBadGateway,
		},
		{
			name:       "network error",
			err:        &exchange.NetworkError{Exchange: "KuCoin", Op: "getPrice", Err: context.DeadlineExceeded},
			wantStatus: http.StatusGatewayTimeout,
		},
		{
			name:       "unclassified error",
			err:        assert.AnError,
			wantStatus: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			source := &fakeQuoteSource{name: "KuCoin", quoteErr: tt.err}
			router := marketTestRouter(map[string]services.QuoteSource{"KuCoin": source})

			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/market/price/KuCoin/BTC-USDT", nil)
			router.ServeHTTP(w, req)

			assert.Equal(t, tt.wantStatus, w.Code)
		})
	}
}

func TestMarketHandler_GetOrderBook(t *testing.T) {
	source := &fakeQuoteSource{
		name: "KuCoin",
		book: &models.OrderBookSnapshot{
			Pair:     "BTC/USDT",
			Exchange: "KuCoin",
			Bids:     []models.OrderBookLevel{{Price: decimal.NewFromInt(49990), Amount: decimal.NewFromInt(1)}},
			Asks:     []models.OrderBookLevel{{Price: decimal.NewFromInt(50000), Amount: decimal.NewFromInt(1)}},
		},
	}
	router := marketTestRouter(map[string]services.QuoteSource{"KuCoin": source})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/market/orderbook/KuCoin/BTC-USDT?limit=5", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var got models.OrderBookSnapshot
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Len(t, got.Bids, 1)
	assert.Len(t, got.Asks, 1)
}

func TestMarketHandler_GetOrderBook_BadLimit(t *testing.T) {
	source := &fakeQuoteSource{name: "KuCoin"}
	router := marketTestRouter(map[string]services.QuoteSource{"KuCoin": source})

	for _, limit := range []string{"zero", "-1", "0"} {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/market/orderbook/KuCoin/BTC-USDT?limit="+limit, nil)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code, "limit=%s", limit)
	}
}
