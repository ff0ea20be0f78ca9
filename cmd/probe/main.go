// Command probe is a connectivity diagnostic: it talks to one exchange
// directly, bypassing cache and persistence, and prints what it sees.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/avolkov/spreadscan/internal/exchange"
	"github.com/avolkov/spreadscan/internal/models"
)

func main() {
	exchangeName := flag.String("exchange", "KuCoin", "exchange to probe")
	pair := flag.String("pair", "BTC/USDT", "trading pair in BASE/QUOTE form")
	depth := flag.Int("depth", 5, "order book levels to print per side")
	flag.Parse()

	logger := logrus.New()
	logger.SetLevel(logrus.WarnLevel)

	registry := exchange.NewRegistry(logger)
	adapter, err := registry.Build(&models.ExchangeProfile{Name: *exchangeName})
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v (supported: %v)\n", err, registry.Supported())
		os.Exit(1)
	}

	ctx := context.Background()

	fmt.Printf("Probing %s for %s\n\n", adapter.Name(), *pair)

	healthy := adapter.HealthCheck(ctx)
	fmt.Printf("health check: %v\n", healthy)

	quote, err := adapter.GetPrice(ctx, *pair)
	if err != nil {
		fmt.Fprintf(os.Stderr, "price fetch failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("bid: %s  ask: %s  last: %s\n", quote.Bid, quote.Ask, quote.Last)
	fmt.Printf("spread: %s (%s%%)\n", quote.Spread(), quote.SpreadPercent().StringFixed(4))
	fmt.Printf("24h volume: %s\n", quote.Volume24h)

	book, err := adapter.GetOrderBook(ctx, *pair, *depth)
	if err != nil {
		fmt.Fprintf(os.Stderr, "order book fetch failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("\norder book (top %d):\n", *depth)
	for i := 0; i < len(book.Asks); i++ {
		// Asks printed highest first so the book reads top-down.
		level := book.Asks[len(book.Asks)-1-i]
		fmt.Printf("  ask  %s x %s\n", level.Price, level.Amount)
	}
	for _, level := range book.Bids {
		fmt.Printf("  bid  %s x %s\n", level.Price, level.Amount)
	}
}
