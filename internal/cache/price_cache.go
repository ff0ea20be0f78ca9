package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"github.com/avolkov/spreadscan/internal/exchange"
	"github.com/avolkov/spreadscan/internal/models"
)

// SnapshotStore persists quotes as they are served. Storage failures are
// the store's to report and the cache's to log; they never reach the
// price caller.
type SnapshotStore interface {
	StoreSnapshot(ctx context.Context, quote *models.PriceQuote) error
}

// PriceCache fronts one adapter's price fetch with a short-TTL Redis
// cache. Concurrent misses for the same key collapse into a single
// upstream call; every waiter gets the same quote or the same error.
// Negative results are never cached.
type PriceCache struct {
	adapter   exchange.Adapter
	redis     *redis.Client
	snapshots SnapshotStore
	ttl       time.Duration
	group     singleflight.Group
	logger    *logrus.Logger
}

// NewPriceCache wraps an adapter. snapshots may be nil to disable the
// snapshot side effect.
func NewPriceCache(adapter exchange.Adapter, redisClient *redis.Client, snapshots SnapshotStore, ttl time.Duration, logger *logrus.Logger) *PriceCache {
	if logger == nil {
		logger = logrus.New()
	}
	if ttl <= 0 {
		ttl = 10 * time.Second
	}
	return &PriceCache{
		adapter:   adapter,
		redis:     redisClient,
		snapshots: snapshots,
		ttl:       ttl,
		logger:    logger,
	}
}

// ExchangeName returns the wrapped adapter's identifier.
func (c *PriceCache) ExchangeName() string {
	return c.adapter.Name()
}

func (c *PriceCache) cacheKey(pair string) string {
	return fmt.Sprintf("price:%s:%s", c.adapter.Name(), pair)
}

// GetPrice returns the cached quote for the pair, fetching from the
// exchange on a miss. A caller whose context is cancelled while waiting
// abandons only its own wait: the in-flight fetch completes and serves
// the remaining waiters.
func (c *PriceCache) GetPrice(ctx context.Context, pair string) (*models.PriceQuote, error) {
	key := c.cacheKey(pair)

	if quote := c.lookup(ctx, key); quote != nil {
		return quote, nil
	}

	resultCh := c.group.DoChan(key, func() (interface{}, error) {
		return c.fetch(key, pair)
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case result := <-resultCh:
		if result.Err != nil {
			return nil, result.Err
		}
		return result.Val.(*models.PriceQuote), nil
	}
}

// lookup reads the cached quote. Redis errors count as misses: the cache
// must degrade to upstream fetches, not fail the caller.
func (c *PriceCache) lookup(ctx context.Context, key string) *models.PriceQuote {
	data, err := c.redis.Get(ctx, key).Result()
	if err == redis.Nil {
		return nil
	}
	if err != nil {
		c.logger.WithError(err).WithField("key", key).Warn("price cache read failed")
		return nil
	}

	var quote models.PriceQuote
	if err := json.Unmarshal([]byte(data), &quote); err != nil {
		c.logger.WithError(err).WithField("key", key).Warn("malformed cached quote")
		return nil
	}
	return &quote
}

// fetch performs the deduplicated upstream call. It runs on a detached
// context so one waiter abandoning the flight cannot cancel it for the
// others; the adapter's own timeouts still bound the call.
func (c *PriceCache) fetch(key, pair string) (*models.PriceQuote, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*exchange.RequestTimeout)
	defer cancel()

	quote, err := c.adapter.GetPrice(ctx, pair)
	if err != nil {
		return nil, err
	}

	c.store(ctx, key, quote)

	if c.snapshots != nil {
		if err := c.snapshots.StoreSnapshot(ctx, quote); err != nil {
			c.logger.WithError(err).WithFields(logrus.Fields{
				"exchange": quote.Exchange,
				"pair":     quote.Pair,
			}).Error("failed to store price snapshot")
		}
	}

	return quote, nil
}

// store writes the quote to Redis with the cache TTL, best effort.
func (c *PriceCache) store(ctx context.Context, key string, quote *models.PriceQuote) {
	data, err := json.Marshal(quote)
	if err != nil {
		c.logger.WithError(err).WithField("key", key).Warn("failed to encode quote for cache")
		return
	}
	if err := c.redis.Set(ctx, key, data, c.ttl).Err(); err != nil {
		c.logger.WithError(err).WithField("key", key).Warn("price cache write failed")
	}
}

// GetOrderBook passes through to the adapter; depth is not cached since
// the detector consults it at most once per cycle.
func (c *PriceCache) GetOrderBook(ctx context.Context, pair string, limit int) (*models.OrderBookSnapshot, error) {
	return c.adapter.GetOrderBook(ctx, pair, limit)
}
