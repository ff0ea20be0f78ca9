package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// PriceQuote represents a normalized top-of-book quote from one exchange.
// Immutable once constructed; ask >= bid >= 0 holds for every quote an
// adapter returns.
type PriceQuote struct {
	Pair      string          `json:"pair"`
	Bid       decimal.Decimal `json:"bid"`
	Ask       decimal.Decimal `json:"ask"`
	Last      decimal.Decimal `json:"last"`
	Volume24h decimal.Decimal `json:"volume_24h"`
	Exchange  string          `json:"exchange"`
	QuotedAt  time.Time       `json:"quoted_at"`
}

// Spread returns the ask/bid difference.
func (q *PriceQuote) Spread() decimal.Decimal {
	return q.Ask.Sub(q.Bid)
}

// SpreadPercent returns the spread as a percentage of the ask price.
// Zero when the ask is zero.
func (q *PriceQuote) SpreadPercent() decimal.Decimal {
	if q.Ask.IsZero() {
		return decimal.Zero
	}
	return q.Spread().Div(q.Ask).Mul(decimal.NewFromInt(100))
}

// OrderBookLevel is a single price level in an order book.
type OrderBookLevel struct {
	Price  decimal.Decimal `json:"price"`
	Amount decimal.Decimal `json:"amount"`
}

// OrderBookSnapshot holds bounded order book depth. Bids are ordered
// descending by price, asks ascending.
type OrderBookSnapshot struct {
	Pair      string           `json:"pair"`
	Exchange  string           `json:"exchange"`
	Bids      []OrderBookLevel `json:"bids"`
	Asks      []OrderBookLevel `json:"asks"`
	Timestamp int64            `json:"timestamp"`
}

// BidLiquidity returns the total amount available on the bid side.
func (s *OrderBookSnapshot) BidLiquidity() decimal.Decimal {
	total := decimal.Zero
	for _, level := range s.Bids {
		total = total.Add(level.Amount)
	}
	return total
}

// AskLiquidity returns the total amount available on the ask side.
func (s *OrderBookSnapshot) AskLiquidity() decimal.Decimal {
	total := decimal.Zero
	for _, level := range s.Asks {
		total = total.Add(level.Amount)
	}
	return total
}

// PriceSnapshot is the persisted form of a successfully served quote.
type PriceSnapshot struct {
	ID         int64           `json:"id" db:"id"`
	ExchangeID int             `json:"exchange_id" db:"exchange_id"`
	Pair       string          `json:"pair" db:"pair"`
	Price      decimal.Decimal `json:"price" db:"price"`
	Volume24h  decimal.Decimal `json:"volume_24h" db:"volume_24h"`
	QuotedAt   time.Time       `json:"quoted_at" db:"quoted_at"`
}
