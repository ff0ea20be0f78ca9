package exchange

import "strings"

// Pairs are handled internally in slash form (BTC/USDT). Each adapter maps
// to its venue's native symbol format and back; both directions are pure
// and deterministic, so converting twice is a no-op.

// ValidatePair checks that a pair is in BASE/QUOTE form with non-empty
// uppercase asset codes.
func ValidatePair(pair string) error {
	parts := strings.Split(pair, "/")
	if len(parts) != 2 {
		return &ValidationError{Pair: pair, Message: "expected BASE/QUOTE format"}
	}
	for _, part := range parts {
		if part == "" {
			return &ValidationError{Pair: pair, Message: "empty asset code"}
		}
		if part != strings.ToUpper(part) {
			return &ValidationError{Pair: pair, Message: "asset codes must be uppercase"}
		}
	}
	return nil
}

// ToDashSymbol converts BTC/USDT to BTC-USDT.
func ToDashSymbol(pair string) string {
	return strings.ReplaceAll(pair, "/", "-")
}

// FromDashSymbol converts BTC-USDT back to BTC/USDT.
func FromDashSymbol(symbol string) string {
	return strings.Replace(symbol, "-", "/", 1)
}

// quoteAssets lists known quote currencies, longest first, used to split
// concatenated symbols (BTCUSDT) back into pair form.
var quoteAssets = []string{"USDT", "USDC", "TUSD", "BUSD", "BTC", "ETH", "BNB", "EUR", "USD"}

// ToJoinedSymbol converts BTC/USDT to BTCUSDT.
func ToJoinedSymbol(pair string) string {
	return strings.ReplaceAll(pair, "/", "")
}

// FromJoinedSymbol splits BTCUSDT into BTC/USDT using the known quote
// asset suffixes. Returns the input unchanged when no suffix matches.
func FromJoinedSymbol(symbol string) string {
	for _, quote := range quoteAssets {
		if strings.HasSuffix(symbol, quote) && len(symbol) > len(quote) {
			return symbol[:len(symbol)-len(quote)] + "/" + quote
		}
	}
	return symbol
}
