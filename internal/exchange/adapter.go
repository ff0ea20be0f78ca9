package exchange

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/avolkov/spreadscan/internal/models"
)

// Timeouts for upstream calls. Health probes use a shorter deadline so a
// dead venue is detected quickly.
const (
	RequestTimeout     = 10 * time.Second
	HealthCheckTimeout = 5 * time.Second
)

// Adapter is the per-exchange capability set. One implementation exists
// per venue; adding an exchange means adding an implementation plus a
// registry entry.
type Adapter interface {
	// GetPrice fetches the best bid/ask/last and a best-effort 24h volume
	// for the pair. Returns a NetworkError on timeout or connection
	// failure and an UpstreamError on non-success status or a payload
	// missing required fields.
	GetPrice(ctx context.Context, pair string) (*models.PriceQuote, error)

	// GetOrderBook fetches up to limit levels per side, truncating
	// whatever the venue returns beyond that.
	GetOrderBook(ctx context.Context, pair string, limit int) (*models.OrderBookSnapshot, error)

	// Get24hVolume returns the rolling 24h base volume. Volume is
	// advisory: any failure degrades to zero instead of propagating.
	Get24hVolume(ctx context.Context, pair string) decimal.Decimal

	// HealthCheck probes venue liveness. Any failure yields false.
	HealthCheck(ctx context.Context) bool

	// Name returns the stable exchange identifier used as cache and
	// ledger key.
	Name() string
}

// Credentials carries optional API credentials. The read-only operations
// above never need them; adapters accept them for future signed calls.
type Credentials struct {
	APIKey     string
	APISecret  string
	Passphrase string
}
