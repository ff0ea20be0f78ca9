package database

import (
	"context"
	"fmt"

	"github.com/avolkov/spreadscan/internal/models"
)

// SnapshotRepository persists the history of served quotes.
type SnapshotRepository struct {
	pool DatabasePool
}

func NewSnapshotRepository(pool DatabasePool) *SnapshotRepository {
	return &SnapshotRepository{pool: pool}
}

// StoreSnapshot records one quote against its exchange. The exchange is
// resolved by name so callers do not need the profile ID.
func (r *SnapshotRepository) StoreSnapshot(ctx context.Context, quote *models.PriceQuote) error {
	query := `
		INSERT INTO price_snapshots (exchange_id, pair, price, volume_24h, quoted_at)
		SELECT id, $2, $3, $4, $5 FROM exchanges WHERE name = $1
	`

	tag, err := r.pool.Exec(ctx, query,
		quote.Exchange, quote.Pair, quote.Last, quote.Volume24h, quote.QuotedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to store price snapshot: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("unknown exchange %s", quote.Exchange)
	}
	return nil
}
