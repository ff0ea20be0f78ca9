package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/avolkov/spreadscan/internal/exchange"
)

// HealthRecorder persists health probe results. The exchange repository
// satisfies it; this is the sole write path for an exchange's active
// flag.
type HealthRecorder interface {
	UpdateHealthStatus(ctx context.Context, name string, isActive bool, checkedAt time.Time) error
}

// HealthMonitor periodically probes each exchange and records the
// result.
type HealthMonitor struct {
	adapters map[string]exchange.Adapter
	recorder HealthRecorder
	interval time.Duration
	logger   *logrus.Logger

	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.RWMutex
	isRunning bool
	lastCheck time.Time
}

func NewHealthMonitor(recorder HealthRecorder, interval time.Duration, logger *logrus.Logger) *HealthMonitor {
	if logger == nil {
		logger = logrus.New()
	}
	if interval <= 0 {
		interval = time.Minute
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &HealthMonitor{
		adapters: make(map[string]exchange.Adapter),
		recorder: recorder,
		interval: interval,
		logger:   logger,
		ctx:      ctx,
		cancel:   cancel,
	}
}

// AddAdapter registers an exchange for monitoring.
func (m *HealthMonitor) AddAdapter(adapter exchange.Adapter) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.adapters[adapter.Name()] = adapter
}

// Check probes one exchange and records the outcome. Probe failures
// never propagate; they degrade to false.
func (m *HealthMonitor) Check(ctx context.Context, name string) (bool, error) {
	m.mu.RLock()
	adapter, ok := m.adapters[name]
	m.mu.RUnlock()
	if !ok {
		return false, &exchange.ConfigError{Exchange: name, Message: "unknown exchange"}
	}

	healthy := adapter.HealthCheck(ctx)
	if err := m.recorder.UpdateHealthStatus(ctx, name, healthy, time.Now().UTC()); err != nil {
		return healthy, fmt.Errorf("failed to record health status: %w", err)
	}

	m.logger.WithFields(logrus.Fields{
		"exchange": name,
		"healthy":  healthy,
	}).Debug("health check completed")

	return healthy, nil
}

// CheckAll probes every registered exchange.
func (m *HealthMonitor) CheckAll(ctx context.Context) {
	m.mu.RLock()
	names := make([]string, 0, len(m.adapters))
	for name := range m.adapters {
		names = append(names, name)
	}
	m.mu.RUnlock()

	for _, name := range names {
		if _, err := m.Check(ctx, name); err != nil {
			m.logger.WithError(err).WithField("exchange", name).Warn("health check not recorded")
		}
	}

	m.mu.Lock()
	m.lastCheck = time.Now()
	m.mu.Unlock()
}

// Start begins the periodic probe loop.
func (m *HealthMonitor) Start() error {
	m.mu.Lock()
	if m.isRunning {
		m.mu.Unlock()
		return fmt.Errorf("health monitor is already running")
	}
	m.isRunning = true
	m.mu.Unlock()

	m.logger.WithField("interval", m.interval).Info("Starting health monitor")

	m.wg.Add(1)
	go m.loop()
	return nil
}

// Stop shuts the loop down and waits for it.
func (m *HealthMonitor) Stop() {
	m.mu.Lock()
	if !m.isRunning {
		m.mu.Unlock()
		return
	}
	m.isRunning = false
	m.mu.Unlock()

	m.cancel()
	m.wg.Wait()
	m.logger.Info("Health monitor stopped")
}

// IsRunning reports whether the loop is active.
func (m *HealthMonitor) IsRunning() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.isRunning
}

func (m *HealthMonitor) loop() {
	defer m.wg.Done()

	m.CheckAll(m.ctx)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-m.ctx.Done():
			return
		case <-ticker.C:
			m.CheckAll(m.ctx)
		}
	}
}
