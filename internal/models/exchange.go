package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// ExchangeProfile represents a configured exchange venue. Profiles are
// read-mostly: the health monitor is the only writer of IsActive and
// LastHealthCheck.
type ExchangeProfile struct {
	ID              int             `json:"id" db:"id"`
	Name            string          `json:"name" db:"name"`
	APIURL          string          `json:"api_url" db:"api_url"`
	APIKey          string          `json:"-" db:"api_key"`
	APISecret       string          `json:"-" db:"api_secret"`
	Passphrase      string          `json:"-" db:"passphrase"`
	IsActive        bool            `json:"is_active" db:"is_active"`
	RateLimit       int             `json:"rate_limit" db:"rate_limit"`
	TradingFee      decimal.Decimal `json:"trading_fee" db:"trading_fee"`
	WithdrawalFee   decimal.Decimal `json:"withdrawal_fee" db:"withdrawal_fee"`
	MinTradeAmount  decimal.Decimal `json:"min_trade_amount" db:"min_trade_amount"`
	SupportedPairs  []string        `json:"supported_pairs" db:"supported_pairs"`
	LastHealthCheck *time.Time      `json:"last_health_check" db:"last_health_check"`
	CreatedAt       time.Time       `json:"created_at" db:"created_at"`
}

// SupportsPair reports whether the profile lists the given pair.
func (p *ExchangeProfile) SupportsPair(pair string) bool {
	for _, supported := range p.SupportedPairs {
		if supported == pair {
			return true
		}
	}
	return false
}
