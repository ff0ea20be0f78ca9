package exchange

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func kucoinTestServer(t *testing.T, handlers map[string]http.HandlerFunc) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	for path, handler := range handlers {
		mux.HandleFunc(path, handler)
	}
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func writeKucoinData(t *testing.T, w http.ResponseWriter, data interface{}) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	err := json.NewEncoder(w).Encode(map[string]interface{}{"code": "200000", "data": data})
	require.NoError(t, err)
}

func TestKucoinAdapter_GetPrice(t *testing.T) {
	server := kucoinTestServer(t, map[string]http.HandlerFunc{
		"/api/v1/market/orderbook/level1": func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "BTC-USDT", r.URL.Query().Get("symbol"))
			writeKucoinData(t, w, map[string]interface{}{
				"bestBid": "49990", "bestAsk": "50000", "price": "49995", "time": 1700000000000,
			})
		},
		"/api/v1/market/stats": func(w http.ResponseWriter, r *http.Request) {
			writeKucoinData(t, w, map[string]interface{}{"vol": "1234.5"})
		},
	})

	adapter := NewKucoinAdapter(server.URL, Credentials{}, logrus.New())
	quote, err := adapter.GetPrice(context.Background(), "BTC/USDT")
	require.NoError(t, err)

	assert.Equal(t, "KuCoin", quote.Exchange)
	assert.Equal(t, "BTC/USDT", quote.Pair)
	assert.True(t, quote.Bid.Equal(decimal.NewFromInt(49990)))
	assert.True(t, quote.Ask.Equal(decimal.NewFromInt(50000)))
	assert.True(t, quote.Last.Equal(decimal.NewFromInt(49995)))
	assert.True(t, quote.Volume24h.Equal(decimal.NewFromFloat(1234.5)))
	assert.True(t, quote.Ask.GreaterThanOrEqual(quote.Bid))
	assert.WithinDuration(t, time.Now(), quote.QuotedAt, 5*time.Second)
}

func TestKucoinAdapter_GetPrice_VolumeLookupDegrades(t *testing.T) {
	server := kucoinTestServer(t, map[string]http.HandlerFunc{
		"/api/v1/market/orderbook/level1": func(w http.ResponseWriter, r *http.Request) {
			writeKucoinData(t, w, map[string]interface{}{
				"bestBid": "49990", "bestAsk": "50000", "price": "49995",
			})
		},
		"/api/v1/market/stats": func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		},
	})

	adapter := NewKucoinAdapter(server.URL, Credentials{}, logrus.New())
	quote, err := adapter.GetPrice(context.Background(), "BTC/USDT")
	require.NoError(t, err)
	assert.True(t, quote.Volume24h.IsZero())
}

func TestKucoinAdapter_GetPrice_Errors(t *testing.T) {
	tests := []struct {
		name        string
		handler     http.HandlerFunc
		wantNetwork bool
	}{
		{
			name: "non-success status",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusTooManyRequests)
			},
		},
		{
			name: "empty data",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(`{"code":"200000","data":null}`))
			},
		},
		{
			name: "malformed price fields",
			handler: func(w http.ResponseWriter, r *http.Request) {
				writeKucoinData(t, w, map[string]interface{}{"bestBid": "", "bestAsk": "", "price": ""})
			},
		},
		{
			name: "not json",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte("<html>nope</html>"))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := kucoinTestServer(t, map[string]http.HandlerFunc{
				"/api/v1/market/orderbook/level1": tt.handler,
			})
			adapter := NewKucoinAdapter(server.URL, Credentials{}, logrus.New())

			_, err := adapter.GetPrice(context.Background(), "BTC/USDT")
			require.Error(t, err)
			var upstreamErr *UpstreamError
			assert.ErrorAs(t, err, &upstreamErr)
		})
	}
}

func TestKucoinAdapter_GetPrice_NetworkError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close() // connection refused from here on

	adapter := NewKucoinAdapter(server.URL, Credentials{}, logrus.New())
	_, err := adapter.GetPrice(context.Background(), "BTC/USDT")
	require.Error(t, err)

	var networkErr *NetworkError
	assert.ErrorAs(t, err, &networkErr)
}

func TestKucoinAdapter_GetPrice_InvalidPair(t *testing.T) {
	adapter := NewKucoinAdapter("http://localhost:0", Credentials{}, logrus.New())
	_, err := adapter.GetPrice(context.Background(), "not-a-pair")

	var validationErr *ValidationError
	assert.ErrorAs(t, err, &validationErr)
}

func TestKucoinAdapter_GetOrderBook(t *testing.T) {
	server := kucoinTestServer(t, map[string]http.HandlerFunc{
		"/api/v1/market/orderbook/level2_20": func(w http.ResponseWriter, r *http.Request) {
			writeKucoinData(t, w, map[string]interface{}{
				"bids": [][]string{{"49990", "1.5"}, {"49980", "2"}, {"49970", "3"}},
				"asks": [][]string{{"50000", "1"}, {"50010", "2"}, {"50020", "3"}},
				"time": 1700000000000,
			})
		},
	})

	adapter := NewKucoinAdapter(server.URL, Credentials{}, logrus.New())
	book, err := adapter.GetOrderBook(context.Background(), "BTC/USDT", 2)
	require.NoError(t, err)

	// Truncated to the requested depth.
	require.Len(t, book.Bids, 2)
	require.Len(t, book.Asks, 2)
	assert.True(t, book.Bids[0].Price.GreaterThan(book.Bids[1].Price))
	assert.True(t, book.Asks[0].Price.LessThan(book.Asks[1].Price))
	assert.Equal(t, int64(1700000000000), book.Timestamp)
}

func TestKucoinAdapter_Get24hVolume_DegradesToZero(t *testing.T) {
	server := kucoinTestServer(t, map[string]http.HandlerFunc{
		"/api/v1/market/stats": func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		},
	})

	adapter := NewKucoinAdapter(server.URL, Credentials{}, logrus.New())
	vol := adapter.Get24hVolume(context.Background(), "BTC/USDT")
	assert.True(t, vol.IsZero())
}

func TestKucoinAdapter_HealthCheck(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		want    bool
	}{
		{
			name: "open",
			handler: func(w http.ResponseWriter, r *http.Request) {
				writeKucoinData(t, w, map[string]interface{}{"status": "open"})
			},
			want: true,
		},
		{
			name: "maintenance",
			handler: func(w http.ResponseWriter, r *http.Request) {
				writeKucoinData(t, w, map[string]interface{}{"status": "cancelonly"})
			},
			want: false,
		},
		{
			name: "server error",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusServiceUnavailable)
			},
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := kucoinTestServer(t, map[string]http.HandlerFunc{
				"/api/v1/status": tt.handler,
			})
			adapter := NewKucoinAdapter(server.URL, Credentials{}, logrus.New())
			assert.Equal(t, tt.want, adapter.HealthCheck(context.Background()))
		})
	}
}

func TestKucoinAdapter_HealthCheck_NeverPanicsOnDeadServer(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close()

	adapter := NewKucoinAdapter(server.URL, Credentials{}, logrus.New())
	assert.False(t, adapter.HealthCheck(context.Background()))
}
