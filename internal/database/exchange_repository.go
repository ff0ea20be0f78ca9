package database

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/avolkov/spreadscan/internal/models"
)

// ExchangeRepository reads exchange profiles and records health check
// results. It is the only write path for is_active.
type ExchangeRepository struct {
	pool DatabasePool
}

func NewExchangeRepository(pool DatabasePool) *ExchangeRepository {
	return &ExchangeRepository{pool: pool}
}

const exchangeColumns = `
	id, name, api_url, COALESCE(api_key, ''), COALESCE(api_secret, ''),
	COALESCE(passphrase, ''), is_active, rate_limit, trading_fee,
	withdrawal_fee, min_trade_amount, supported_pairs, last_health_check,
	created_at`

// ListActiveExchanges returns all profiles currently marked active.
func (r *ExchangeRepository) ListActiveExchanges(ctx context.Context) ([]models.ExchangeProfile, error) {
	query := `SELECT ` + exchangeColumns + ` FROM exchanges WHERE is_active = true ORDER BY name`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query active exchanges: %w", err)
	}
	defer rows.Close()

	var profiles []models.ExchangeProfile
	for rows.Next() {
		profile, err := scanExchangeProfile(rows.Scan)
		if err != nil {
			return nil, err
		}
		profiles = append(profiles, *profile)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating exchange rows: %w", err)
	}

	return profiles, nil
}

// GetByName returns the profile for one exchange.
func (r *ExchangeRepository) GetByName(ctx context.Context, name string) (*models.ExchangeProfile, error) {
	query := `SELECT ` + exchangeColumns + ` FROM exchanges WHERE name = $1`

	row := r.pool.QueryRow(ctx, query, name)
	profile, err := scanExchangeProfile(row.Scan)
	if err != nil {
		return nil, fmt.Errorf("failed to load exchange %s: %w", name, err)
	}
	return profile, nil
}

// UpdateHealthStatus records a health probe result on the profile.
func (r *ExchangeRepository) UpdateHealthStatus(ctx context.Context, name string, isActive bool, checkedAt time.Time) error {
	query := `UPDATE exchanges SET is_active = $2, last_health_check = $3 WHERE name = $1`

	tag, err := r.pool.Exec(ctx, query, name, isActive, checkedAt)
	if err != nil {
		return fmt.Errorf("failed to update health status for %s: %w", name, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("exchange %s not found", name)
	}
	return nil
}

func scanExchangeProfile(scan func(dest ...interface{}) error) (*models.ExchangeProfile, error) {
	var profile models.ExchangeProfile
	var pairsJSON []byte

	err := scan(
		&profile.ID, &profile.Name, &profile.APIURL, &profile.APIKey,
		&profile.APISecret, &profile.Passphrase, &profile.IsActive,
		&profile.RateLimit, &profile.TradingFee, &profile.WithdrawalFee,
		&profile.MinTradeAmount, &pairsJSON, &profile.LastHealthCheck,
		&profile.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if len(pairsJSON) > 0 {
		if err := json.Unmarshal(pairsJSON, &profile.SupportedPairs); err != nil {
			return nil, fmt.Errorf("malformed supported_pairs for %s: %w", profile.Name, err)
		}
	}
	return &profile, nil
}
