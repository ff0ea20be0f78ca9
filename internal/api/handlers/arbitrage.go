package handlers

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/avolkov/spreadscan/internal/exchange"
	"github.com/avolkov/spreadscan/internal/models"
	"github.com/avolkov/spreadscan/internal/services"
)

// OpportunityStore reads the opportunity ledger.
type OpportunityStore interface {
	ListActive(ctx context.Context, limit int) ([]models.ArbitrageOpportunity, error)
}

// ArbitrageHandler exposes on-demand detection and the active ledger.
type ArbitrageHandler struct {
	detector *services.Detector
	store    OpportunityStore
	logger   *logrus.Logger
}

func NewArbitrageHandler(detector *services.Detector, store OpportunityStore, logger *logrus.Logger) *ArbitrageHandler {
	if logger == nil {
		logger = logrus.New()
	}
	return &ArbitrageHandler{detector: detector, store: store, logger: logger}
}

// Detect handles GET /arbitrage/detect?pair=BTC-USDT&exchanges=a,b. When
// exchanges is empty every registered venue is scanned.
func (h *ArbitrageHandler) Detect(c *gin.Context) {
	rawPair := c.Query("pair")
	if rawPair == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "pair is required"})
		return
	}
	pair := exchange.FromDashSymbol(rawPair)

	exchanges := h.detector.VenueNames()
	if raw := c.Query("exchanges"); raw != "" {
		exchanges = strings.Split(raw, ",")
	}

	opportunities, err := h.detector.Detect(c.Request.Context(), pair, exchanges)
	if err != nil {
		c.JSON(statusForError(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, models.ArbitrageOpportunitiesResponse{
		Opportunities: opportunities,
		Count:         len(opportunities),
		Timestamp:     time.Now().UTC(),
	})
}

// ListOpportunities handles GET /arbitrage/opportunities?limit=.
func (h *ArbitrageHandler) ListOpportunities(c *gin.Context) {
	limit := 50
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		limit = parsed
	}

	opportunities, err := h.store.ListActive(c.Request.Context(), limit)
	if err != nil {
		h.logger.WithError(err).Error("failed to list opportunities")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list opportunities"})
		return
	}

	c.JSON(http.StatusOK, models.ArbitrageOpportunitiesResponse{
		Opportunities: opportunities,
		Count:         len(opportunities),
		Timestamp:     time.Now().UTC(),
	})
}
