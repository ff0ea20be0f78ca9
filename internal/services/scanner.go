package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/avolkov/spreadscan/internal/models"
)

// OpportunityLedger is the durable store for detected opportunities.
// The opportunity repository satisfies it.
type OpportunityLedger interface {
	UpsertOpportunities(ctx context.Context, opportunities []models.ArbitrageOpportunity) error
	ExpireStale(ctx context.Context, now time.Time) (int64, error)
}

// Scanner drives periodic detection across the configured pairs and
// feeds results to the ledger. Pairs are independent and scanned
// concurrently.
type Scanner struct {
	detector *Detector
	ledger   OpportunityLedger
	pairs    []string
	interval time.Duration
	logger   *logrus.Logger

	ctx        context.Context
	cancel     context.CancelFunc
	wg         sync.WaitGroup
	mu         sync.RWMutex
	isRunning  bool
	lastScan   time.Time
	foundCount int
}

func NewScanner(detector *Detector, ledger OpportunityLedger, pairs []string, interval time.Duration, logger *logrus.Logger) *Scanner {
	if logger == nil {
		logger = logrus.New()
	}
	if interval <= 0 {
		interval = time.Minute
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Scanner{
		detector: detector,
		ledger:   ledger,
		pairs:    pairs,
		interval: interval,
		logger:   logger,
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Start begins the periodic scan loop.
func (s *Scanner) Start() error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return fmt.Errorf("scanner is already running")
	}
	s.isRunning = true
	s.mu.Unlock()

	s.logger.WithFields(logrus.Fields{
		"interval": s.interval,
		"pairs":    s.pairs,
	}).Info("Starting arbitrage scanner")

	s.wg.Add(1)
	go s.loop()
	return nil
}

// Stop shuts the loop down and waits for the in-flight cycle.
func (s *Scanner) Stop() {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return
	}
	s.isRunning = false
	s.mu.Unlock()

	s.cancel()
	s.wg.Wait()
	s.logger.Info("Arbitrage scanner stopped")
}

// IsRunning reports whether the loop is active.
func (s *Scanner) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// Status returns the last scan time and the opportunity count it found.
func (s *Scanner) Status() (time.Time, int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastScan, s.foundCount
}

func (s *Scanner) loop() {
	defer s.wg.Done()

	s.runCycle()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			s.runCycle()
		}
	}
}

// runCycle detects across every configured pair, upserts the results and
// expires ledger rows whose deadline passed without being reproduced.
func (s *Scanner) runCycle() {
	started := time.Now()
	exchanges := s.detector.VenueNames()

	var mu sync.Mutex
	total := 0

	g, gctx := errgroup.WithContext(s.ctx)
	for _, pair := range s.pairs {
		g.Go(func() error {
			opportunities, err := s.detector.Detect(gctx, pair, exchanges)
			if err != nil {
				s.logger.WithError(err).WithField("pair", pair).Error("detection failed")
				return nil
			}
			if len(opportunities) == 0 {
				return nil
			}
			if err := s.ledger.UpsertOpportunities(gctx, opportunities); err != nil {
				s.logger.WithError(err).WithField("pair", pair).Error("failed to store opportunities")
				return nil
			}
			mu.Lock()
			total += len(opportunities)
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	expired, err := s.ledger.ExpireStale(s.ctx, time.Now().UTC())
	if err != nil {
		s.logger.WithError(err).Warn("failed to expire stale opportunities")
	}

	s.mu.Lock()
	s.lastScan = time.Now()
	s.foundCount = total
	s.mu.Unlock()

	s.logger.WithFields(logrus.Fields{
		"duration_ms":         time.Since(started).Milliseconds(),
		"opportunities_found": total,
		"expired":             expired,
	}).Info("Scan cycle completed")
}
