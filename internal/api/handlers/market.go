package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/avolkov/spreadscan/internal/exchange"
	"github.com/avolkov/spreadscan/internal/services"
)

// MarketHandler serves prices and order books through the per-exchange
// caches.
type MarketHandler struct {
	sources map[string]services.QuoteSource
	logger  *logrus.Logger
}

func NewMarketHandler(sources map[string]services.QuoteSource, logger *logrus.Logger) *MarketHandler {
	if logger == nil {
		logger = logrus.New()
	}
	return &MarketHandler{sources: sources, logger: logger}
}

// GetPrice handles GET /market/price/:exchange/:pair. Pairs arrive in
// dash form (BTC-USDT) and are converted at the boundary.
func (h *MarketHandler) GetPrice(c *gin.Context) {
	source, ok := h.sources[c.Param("exchange")]
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown exchange"})
		return
	}
	pair := exchange.FromDashSymbol(c.Param("pair"))

	quote, err := source.GetPrice(c.Request.Context(), pair)
	if err != nil {
		status := statusForError(err)
		h.logger.WithError(err).WithFields(logrus.Fields{
			"exchange": source.ExchangeName(),
			"pair":     pair,
		}).Warn("price fetch failed")
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, quote)
}

// GetOrderBook handles GET /market/orderbook/:exchange/:pair?limit=.
func (h *MarketHandler) GetOrderBook(c *gin.Context) {
	source, ok := h.sources[c.Param("exchange")]
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown exchange"})
		return
	}
	pair := exchange.FromDashSymbol(c.Param("pair"))

	limit := 10
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		limit = parsed
	}

	book, err := source.GetOrderBook(c.Request.Context(), pair, limit)
	if err != nil {
		c.JSON(statusForError(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, book)
}

// statusForError maps the adapter error taxonomy onto HTTP statuses.
func statusForError(err error) int {
	var validationErr *exchange.ValidationError
	var configErr *exchange.ConfigError
	var upstreamErr *exchange.UpstreamError
	var networkErr *exchange.NetworkError

	switch {
	case errors.As(err, &validationErr):
		return http.StatusBadRequest
	case errors.As(err, &configErr):
		return http.StatusNotFound
	case errors.As(err, &upstreamErr):
		return http.StatusBadGateway
	case errors.As(err, &networkErr):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
