package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avolkov/spreadscan/internal/exchange"
	"github.com/avolkov/spreadscan/internal/models"
)

// fakeAdapter reports a fixed health state.
type fakeAdapter struct {
	name    string
	healthy bool
}

func (a *fakeAdapter) GetPrice(ctx context.Context, pair string) (*models.PriceQuote, error) {
	return nil, &exchange.UpstreamError{Exchange: a.name, Op: "getPrice", Message: "not implemented"}
}

func (a *fakeAdapter) GetOrderBook(ctx context.Context, pair string, limit int) (*models.OrderBookSnapshot, error) {
	return nil, &exchange.UpstreamError{Exchange: a.name, Op: "getOrderBook", Message: "not implemented"}
}

func (a *fakeAdapter) Get24hVolume(ctx context.Context, pair string) decimal.Decimal {
	return decimal.Zero
}

func (a *fakeAdapter) HealthCheck(ctx context.Context) bool { return a.healthy }

func (a *fakeAdapter) Name() string { return a.name }

// fakeRecorder captures UpdateHealthStatus calls.
type fakeRecorder struct {
	mu      sync.Mutex
	updates map[string]bool
	failErr error
}

func newFakeRecorder() *fakeRecorder {
	return &fakeRecorder{updates: make(map[string]bool)}
}

func (r *fakeRecorder) UpdateHealthStatus(ctx context.Context, name string, isActive bool, checkedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failErr != nil {
		return r.failErr
	}
	r.updates[name] = isActive
	return nil
}

func (r *fakeRecorder) get(name string) (bool, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.updates[name]
	return v, ok
}

func TestHealthMonitor_CheckRecordsResult(t *testing.T) {
	recorder := newFakeRecorder()
	monitor := NewHealthMonitor(recorder, time.Minute, quietLogger())
	monitor.AddAdapter(&fakeAdapter{name: "KuCoin", healthy: true})
	monitor.AddAdapter(&fakeAdapter{name: "Binance", healthy: false})

	healthy, err := monitor.Check(context.Background(), "KuCoin")
	require.NoError(t, err)
	assert.True(t, healthy)

	healthy, err = monitor.Check(context.Background(), "Binance")
	require.NoError(t, err)
	assert.False(t, healthy)

	recorded, ok := recorder.get("Binance")
	require.True(t, ok)
	assert.False(t, recorded)
}

func TestHealthMonitor_CheckUnknownExchange(t *testing.T) {
	monitor := NewHealthMonitor(newFakeRecorder(), time.Minute, quietLogger())

	_, err := monitor.Check(context.Background(), "Mt. Gox")
	require.Error(t, err)

	var configErr *exchange.ConfigError
	assert.ErrorAs(t, err, &configErr)
}

func TestHealthMonitor_RecorderFailureSurfaces(t *testing.T) {
	recorder := newFakeRecorder()
	recorder.failErr = assert.AnError

	monitor := NewHealthMonitor(recorder, time.Minute, quietLogger())
	monitor.AddAdapter(&fakeAdapter{name: "KuCoin", healthy: true})

	healthy, err := monitor.Check(context.Background(), "KuCoin")
	assert.Error(t, err)
	assert.True(t, healthy, "probe result still reported alongside the recording error")
}

func TestHealthMonitor_StartStop(t *testing.T) {
	recorder := newFakeRecorder()
	monitor := NewHealthMonitor(recorder, 10*time.Millisecond, quietLogger())
	monitor.AddAdapter(&fakeAdapter{name: "KuCoin", healthy: true})

	require.NoError(t, monitor.Start())
	assert.True(t, monitor.IsRunning())
	assert.Error(t, monitor.Start(), "double start must fail")

	// The loop runs an immediate probe before the first tick.
	assert.Eventually(t, func() bool {
		_, ok := recorder.get("KuCoin")
		return ok
	}, time.Second, 5*time.Millisecond)

	monitor.Stop()
	assert.False(t, monitor.IsRunning())
	monitor.Stop() // idempotent
}
