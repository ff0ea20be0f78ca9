package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Opportunity lifecycle states. Expired and executed are terminal.
const (
	OpportunityStatusActive   = "active"
	OpportunityStatusExpired  = "expired"
	OpportunityStatusExecuted = "executed"
)

// ArbitrageOpportunity represents a detected cross-exchange price spread
// that remains profitable after trading and withdrawal fees.
type ArbitrageOpportunity struct {
	ID              string          `json:"id" db:"id"`
	Pair            string          `json:"pair" db:"pair"`
	BuyExchange     string          `json:"buy_exchange" db:"buy_exchange"`
	SellExchange    string          `json:"sell_exchange" db:"sell_exchange"`
	BuyPrice        decimal.Decimal `json:"buy_price" db:"buy_price"`
	SellPrice       decimal.Decimal `json:"sell_price" db:"sell_price"`
	SpreadAmount    decimal.Decimal `json:"spread_amount" db:"spread_amount"`
	SpreadPercent   decimal.Decimal `json:"spread_percentage" db:"spread_percentage"`
	Volume          decimal.Decimal `json:"volume" db:"volume"`
	TotalFees       decimal.Decimal `json:"total_fees" db:"total_fees"`
	ProfitAfterFees decimal.Decimal `json:"profit_after_fees" db:"profit_after_fees"`
	Status          string          `json:"status" db:"status"`
	ExpiresAt       time.Time       `json:"expires_at" db:"expires_at"`
	CreatedAt       time.Time       `json:"created_at" db:"created_at"`
}

// Key identifies the ledger slot an opportunity occupies: at most one
// active row exists per (pair, buy exchange, sell exchange).
func (o *ArbitrageOpportunity) Key() string {
	return o.Pair + "|" + o.BuyExchange + "|" + o.SellExchange
}

// ArbitrageOpportunitiesResponse is the list payload returned by the API.
type ArbitrageOpportunitiesResponse struct {
	Opportunities []ArbitrageOpportunity `json:"opportunities"`
	Count         int                    `json:"count"`
	Timestamp     time.Time              `json:"timestamp"`
}
