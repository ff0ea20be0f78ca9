package services

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/avolkov/spreadscan/internal/exchange"
	"github.com/avolkov/spreadscan/internal/models"
)

// QuoteSource serves quotes and depth for one exchange. The price cache
// satisfies it; tests plug in fakes.
type QuoteSource interface {
	ExchangeName() string
	GetPrice(ctx context.Context, pair string) (*models.PriceQuote, error)
	GetOrderBook(ctx context.Context, pair string, limit int) (*models.OrderBookSnapshot, error)
}

// DetectorConfig tunes the detection policy.
type DetectorConfig struct {
	// ReferenceVolume is the trade size assumed when order book depth is
	// not consulted.
	ReferenceVolume decimal.Decimal
	// ValidityWindow is how long past detection an opportunity stays
	// valid; a few multiples of the quote cache TTL.
	ValidityWindow time.Duration
	// UseOrderBook caps volume by matching depth on both legs.
	UseOrderBook bool
	// DepthLimit bounds order book queries per side.
	DepthLimit int
}

// venue pairs an exchange profile with its quote source and a
// concurrency bound derived from the venue's rate limit, so one slow or
// over-quota exchange cannot stall the others.
type venue struct {
	profile *models.ExchangeProfile
	source  QuoteSource
	sem     *semaphore.Weighted
}

// Detector scans one pair across venues and emits fee-adjusted
// opportunities. Each Detect call is an independent scan.
type Detector struct {
	mu     sync.RWMutex
	venues map[string]*venue
	cfg    DetectorConfig
	logger *logrus.Logger
}

func NewDetector(cfg DetectorConfig, logger *logrus.Logger) *Detector {
	if logger == nil {
		logger = logrus.New()
	}
	if cfg.ReferenceVolume.IsZero() {
		cfg.ReferenceVolume = decimal.NewFromFloat(0.1)
	}
	if cfg.ValidityWindow <= 0 {
		cfg.ValidityWindow = 30 * time.Second
	}
	if cfg.DepthLimit <= 0 {
		cfg.DepthLimit = 20
	}
	return &Detector{
		venues: make(map[string]*venue),
		cfg:    cfg,
		logger: logger,
	}
}

// AddVenue registers an exchange with the detector. The concurrency
// bound is derived from the profile's per-window rate limit.
func (d *Detector) AddVenue(profile *models.ExchangeProfile, source QuoteSource) {
	permits := int64(profile.RateLimit / 60)
	if permits < 1 {
		permits = 1
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.venues[profile.Name] = &venue{
		profile: profile,
		source:  source,
		sem:     semaphore.NewWeighted(permits),
	}
}

// VenueNames returns the registered exchange names.
func (d *Detector) VenueNames() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	names := make([]string, 0, len(d.venues))
	for name := range d.venues {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// marketView is one venue's view of the pair for a single cycle.
type marketView struct {
	venue *venue
	quote *models.PriceQuote
	book  *models.OrderBookSnapshot
}

// Detect scans the pair across the named exchanges and returns
// opportunities profitable after fees, ordered by profit descending with
// exchange names as deterministic tie-breaks. A fetch failure on one
// exchange excludes that exchange from the cycle and never aborts it.
func (d *Detector) Detect(ctx context.Context, pair string, exchangeNames []string) ([]models.ArbitrageOpportunity, error) {
	if err := exchange.ValidatePair(pair); err != nil {
		return nil, err
	}

	candidates := d.selectCandidates(pair, exchangeNames)
	if len(candidates) < 2 {
		return nil, nil
	}

	views := d.collectViews(ctx, pair, candidates)
	if len(views) < 2 {
		return nil, nil
	}

	now := time.Now().UTC()
	best := make(map[string]models.ArbitrageOpportunity)
	for _, buy := range views {
		for _, sell := range views {
			if buy.venue.profile.Name == sell.venue.profile.Name {
				continue
			}
			opp, ok := d.evaluate(pair, buy, sell, now)
			if !ok {
				continue
			}
			if prev, exists := best[opp.Key()]; !exists || opp.ProfitAfterFees.GreaterThan(prev.ProfitAfterFees) {
				best[opp.Key()] = opp
			}
		}
	}

	opportunities := make([]models.ArbitrageOpportunity, 0, len(best))
	for _, opp := range best {
		opportunities = append(opportunities, opp)
	}
	sort.Slice(opportunities, func(i, j int) bool {
		a, b := opportunities[i], opportunities[j]
		if !a.ProfitAfterFees.Equal(b.ProfitAfterFees) {
			return a.ProfitAfterFees.GreaterThan(b.ProfitAfterFees)
		}
		if a.BuyExchange != b.BuyExchange {
			return a.BuyExchange < b.BuyExchange
		}
		return a.SellExchange < b.SellExchange
	})

	return opportunities, nil
}

// selectCandidates filters the requested exchanges down to registered,
// active venues supporting the pair.
func (d *Detector) selectCandidates(pair string, exchangeNames []string) []*venue {
	d.mu.RLock()
	defer d.mu.RUnlock()

	var candidates []*venue
	for _, name := range exchangeNames {
		v, ok := d.venues[name]
		if !ok {
			d.logger.WithField("exchange", name).Warn("skipping unregistered exchange")
			continue
		}
		if !v.profile.IsActive {
			continue
		}
		if !v.profile.SupportsPair(pair) {
			continue
		}
		candidates = append(candidates, v)
	}
	return candidates
}

// collectViews fetches quotes (and depth, when enabled) for every
// candidate concurrently, bounded per venue by its rate-limit semaphore.
func (d *Detector) collectViews(ctx context.Context, pair string, candidates []*venue) []*marketView {
	var mu sync.Mutex
	views := make([]*marketView, 0, len(candidates))

	g, gctx := errgroup.WithContext(ctx)
	for _, v := range candidates {
		g.Go(func() error {
			if err := v.sem.Acquire(gctx, 1); err != nil {
				return nil
			}
			defer v.sem.Release(1)

			quote, err := v.source.GetPrice(gctx, pair)
			if err != nil {
				// One exchange failing only costs this cycle its quote.
				d.logger.WithError(err).WithFields(logrus.Fields{
					"exchange": v.profile.Name,
					"pair":     pair,
				}).Warn("excluding exchange from detection cycle")
				return nil
			}

			view := &marketView{venue: v, quote: quote}
			if d.cfg.UseOrderBook {
				book, err := v.source.GetOrderBook(gctx, pair, d.cfg.DepthLimit)
				if err != nil {
					d.logger.WithError(err).WithFields(logrus.Fields{
						"exchange": v.profile.Name,
						"pair":     pair,
					}).Warn("order book unavailable, using reference volume")
				} else {
					view.book = book
				}
			}

			mu.Lock()
			views = append(views, view)
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	// Stable input order keeps the scan deterministic.
	sort.Slice(views, func(i, j int) bool {
		return views[i].venue.profile.Name < views[j].venue.profile.Name
	})
	return views
}

// evaluate prices one ordered (buy, sell) leg pair: buy at the buy
// venue's ask, sell at the sell venue's bid, net of both trading fees and
// the withdrawal cost of moving the asset to the sell venue.
func (d *Detector) evaluate(pair string, buy, sell *marketView, now time.Time) (models.ArbitrageOpportunity, bool) {
	buyPrice := buy.quote.Ask
	sellPrice := sell.quote.Bid

	spread := sellPrice.Sub(buyPrice)
	if spread.Sign() <= 0 || buyPrice.Sign() <= 0 {
		return models.ArbitrageOpportunity{}, false
	}

	volume := d.executableVolume(buy, sell)
	if volume.Sign() <= 0 {
		return models.ArbitrageOpportunity{}, false
	}

	buyFees := buy.venue.profile.TradingFee.Mul(buyPrice).Mul(volume)
	sellFees := sell.venue.profile.TradingFee.Mul(sellPrice).Mul(volume)
	totalFees := buyFees.Add(sellFees).Add(sell.venue.profile.WithdrawalFee)

	profit := spread.Mul(volume).Sub(totalFees)
	if profit.Sign() <= 0 {
		return models.ArbitrageOpportunity{}, false
	}

	return models.ArbitrageOpportunity{
		Pair:            pair,
		BuyExchange:     buy.venue.profile.Name,
		SellExchange:    sell.venue.profile.Name,
		BuyPrice:        buyPrice,
		SellPrice:       sellPrice,
		SpreadAmount:    spread,
		SpreadPercent:   spread.Div(buyPrice).Mul(decimal.NewFromInt(100)),
		Volume:          volume,
		TotalFees:       totalFees,
		ProfitAfterFees: profit,
		Status:          models.OpportunityStatusActive,
		ExpiresAt:       now.Add(d.cfg.ValidityWindow),
		CreatedAt:       now,
	}, true
}

// executableVolume starts from the reference size, caps it by matching
// depth on both legs when depth was fetched, and rejects it when the
// result cannot satisfy either venue's minimum trade amount.
func (d *Detector) executableVolume(buy, sell *marketView) decimal.Decimal {
	volume := d.cfg.ReferenceVolume

	if buy.book != nil {
		if liquidity := buy.book.AskLiquidity(); liquidity.LessThan(volume) {
			volume = liquidity
		}
	}
	if sell.book != nil {
		if liquidity := sell.book.BidLiquidity(); liquidity.LessThan(volume) {
			volume = liquidity
		}
	}

	floor := buy.venue.profile.MinTradeAmount
	if sell.venue.profile.MinTradeAmount.GreaterThan(floor) {
		floor = sell.venue.profile.MinTradeAmount
	}
	if volume.LessThan(floor) {
		return decimal.Zero
	}
	return volume
}
