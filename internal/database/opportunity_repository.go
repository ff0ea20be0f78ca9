package database

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/avolkov/spreadscan/internal/models"
)

// OpportunityRepository is the durable ledger for detected opportunities.
// At most one active row exists per (pair, buy_exchange, sell_exchange);
// a partial unique index enforces that and makes the upsert atomic under
// concurrent detection cycles.
type OpportunityRepository struct {
	pool DatabasePool
}

func NewOpportunityRepository(pool DatabasePool) *OpportunityRepository {
	return &OpportunityRepository{pool: pool}
}

const upsertOpportunityQuery = `
	INSERT INTO arbitrage_opportunities (
		id, pair, buy_exchange, sell_exchange, buy_price, sell_price,
		spread_amount, spread_percentage, volume, total_fees,
		profit_after_fees, status, expires_at, created_at
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, 'active', $12, $13)
	ON CONFLICT (pair, buy_exchange, sell_exchange) WHERE status = 'active'
	DO UPDATE SET
		buy_price = EXCLUDED.buy_price,
		sell_price = EXCLUDED.sell_price,
		spread_amount = EXCLUDED.spread_amount,
		spread_percentage = EXCLUDED.spread_percentage,
		volume = EXCLUDED.volume,
		total_fees = EXCLUDED.total_fees,
		profit_after_fees = EXCLUDED.profit_after_fees,
		expires_at = EXCLUDED.expires_at
`

// UpsertOpportunity inserts an opportunity or refreshes the existing
// active row for the same (pair, buy, sell) slot.
func (r *OpportunityRepository) UpsertOpportunity(ctx context.Context, opp *models.ArbitrageOpportunity) error {
	if opp.ID == "" {
		opp.ID = uuid.New().String()
	}

	_, err := r.pool.Exec(ctx, upsertOpportunityQuery,
		opp.ID, opp.Pair, opp.BuyExchange, opp.SellExchange,
		opp.BuyPrice, opp.SellPrice, opp.SpreadAmount, opp.SpreadPercent,
		opp.Volume, opp.TotalFees, opp.ProfitAfterFees, opp.ExpiresAt,
		opp.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert opportunity %s: %w", opp.Key(), err)
	}
	return nil
}

// UpsertOpportunities stores a detection cycle's output in one
// transaction.
func (r *OpportunityRepository) UpsertOpportunities(ctx context.Context, opportunities []models.ArbitrageOpportunity) error {
	if len(opportunities) == 0 {
		return nil
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	for i := range opportunities {
		opp := &opportunities[i]
		if opp.ID == "" {
			opp.ID = uuid.New().String()
		}
		_, err := tx.Exec(ctx, upsertOpportunityQuery,
			opp.ID, opp.Pair, opp.BuyExchange, opp.SellExchange,
			opp.BuyPrice, opp.SellPrice, opp.SpreadAmount, opp.SpreadPercent,
			opp.Volume, opp.TotalFees, opp.ProfitAfterFees, opp.ExpiresAt,
			opp.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to upsert opportunity %s: %w", opp.Key(), err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// ExpireStale transitions active rows whose deadline has passed. Rows
// still being reproduced have their expires_at pushed forward by the
// upsert, so only abandoned opportunities expire.
func (r *OpportunityRepository) ExpireStale(ctx context.Context, now time.Time) (int64, error) {
	query := `
		UPDATE arbitrage_opportunities
		SET status = 'expired'
		WHERE status = 'active' AND expires_at <= $1
	`

	tag, err := r.pool.Exec(ctx, query, now)
	if err != nil {
		return 0, fmt.Errorf("failed to expire stale opportunities: %w", err)
	}
	return tag.RowsAffected(), nil
}

// MarkExecuted transitions one active opportunity to executed. The core
// never calls this on its own; it exists for external execution
// confirmation.
func (r *OpportunityRepository) MarkExecuted(ctx context.Context, id string) error {
	query := `
		UPDATE arbitrage_opportunities
		SET status = 'executed'
		WHERE id = $1 AND status = 'active'
	`

	tag, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to mark opportunity %s executed: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("no active opportunity with id %s", id)
	}
	return nil
}

// ListActive returns active opportunities ordered by profit.
func (r *OpportunityRepository) ListActive(ctx context.Context, limit int) ([]models.ArbitrageOpportunity, error) {
	query := `
		SELECT id, pair, buy_exchange, sell_exchange, buy_price, sell_price,
			spread_amount, spread_percentage, volume, total_fees,
			profit_after_fees, status, expires_at, created_at
		FROM arbitrage_opportunities
		WHERE status = 'active' AND expires_at > NOW()
		ORDER BY profit_after_fees DESC, created_at DESC
		LIMIT $1
	`

	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query active opportunities: %w", err)
	}
	defer rows.Close()

	var opportunities []models.ArbitrageOpportunity
	for rows.Next() {
		var opp models.ArbitrageOpportunity
		err := rows.Scan(
			&opp.ID, &opp.Pair, &opp.BuyExchange, &opp.SellExchange,
			&opp.BuyPrice, &opp.SellPrice, &opp.SpreadAmount, &opp.SpreadPercent,
			&opp.Volume, &opp.TotalFees, &opp.ProfitAfterFees, &opp.Status,
			&opp.ExpiresAt, &opp.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan opportunity row: %w", err)
		}
		opportunities = append(opportunities, opp)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating opportunity rows: %w", err)
	}

	return opportunities, nil
}
