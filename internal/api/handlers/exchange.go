package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/avolkov/spreadscan/internal/exchange"
	"github.com/avolkov/spreadscan/internal/models"
	"github.com/avolkov/spreadscan/internal/services"
)

// ExchangeStore lists configured exchange profiles.
type ExchangeStore interface {
	ListActiveExchanges(ctx context.Context) ([]models.ExchangeProfile, error)
}

// ExchangeHandler exposes exchange configuration and on-demand health
// probes.
type ExchangeHandler struct {
	store   ExchangeStore
	monitor *services.HealthMonitor
	logger  *logrus.Logger
}

func NewExchangeHandler(store ExchangeStore, monitor *services.HealthMonitor, logger *logrus.Logger) *ExchangeHandler {
	if logger == nil {
		logger = logrus.New()
	}
	return &ExchangeHandler{store: store, monitor: monitor, logger: logger}
}

// ListExchanges handles GET /exchanges.
func (h *ExchangeHandler) ListExchanges(c *gin.Context) {
	profiles, err := h.store.ListActiveExchanges(c.Request.Context())
	if err != nil {
		h.logger.WithError(err).Error("failed to list exchanges")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list exchanges"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"exchanges": profiles,
		"count":     len(profiles),
		"timestamp": time.Now().UTC(),
	})
}

// ProbeHealth handles POST /exchanges/:name/health. The probe result is
// recorded on the profile; a failed probe is a valid (false) answer, not
// an error.
func (h *ExchangeHandler) ProbeHealth(c *gin.Context) {
	name := c.Param("name")

	healthy, err := h.monitor.Check(c.Request.Context(), name)
	if err != nil {
		var configErr *exchange.ConfigError
		if errors.As(err, &configErr) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		h.logger.WithError(err).WithField("exchange", name).Warn("health probe failed to record")
	}

	c.JSON(http.StatusOK, gin.H{
		"exchange":   name,
		"healthy":    healthy,
		"checked_at": time.Now().UTC(),
	})
}
