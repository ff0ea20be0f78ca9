package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/avolkov/spreadscan/internal/api/handlers"
	"github.com/avolkov/spreadscan/internal/database"
)

type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Services  Services  `json:"services"`
}

type Services struct {
	Database string `json:"database"`
	Redis    string `json:"redis"`
}

// SetupRoutes wires the HTTP surface. All market and arbitrage routes go
// through the handlers' injected collaborators; nothing here touches an
// exchange directly.
func SetupRoutes(
	router *gin.Engine,
	db *database.PostgresDB,
	redis *database.RedisClient,
	market *handlers.MarketHandler,
	exchanges *handlers.ExchangeHandler,
	arbitrage *handlers.ArbitrageHandler,
) {
	router.GET("/health", healthCheck(db, redis))

	v1 := router.Group("/api/v1")
	{
		marketGroup := v1.Group("/market")
		{
			marketGroup.GET("/price/:exchange/:pair", market.GetPrice)
			marketGroup.GET("/orderbook/:exchange/:pair", market.GetOrderBook)
		}

		exchangeGroup := v1.Group("/exchanges")
		{
			exchangeGroup.GET("", exchanges.ListExchanges)
			exchangeGroup.POST("/:name/health", exchanges.ProbeHealth)
		}

		arbitrageGroup := v1.Group("/arbitrage")
		{
			arbitrageGroup.GET("/detect", arbitrage.Detect)
			arbitrageGroup.GET("/opportunities", arbitrage.ListOpportunities)
		}
	}
}

func healthCheck(db *database.PostgresDB, redis *database.RedisClient) gin.HandlerFunc {
	return func(c *gin.Context) {
		response := HealthResponse{
			Status:    "healthy",
			Timestamp: time.Now().UTC(),
			Services:  Services{Database: "healthy", Redis: "healthy"},
		}

		if err := db.HealthCheck(c.Request.Context()); err != nil {
			response.Status = "unhealthy"
			response.Services.Database = "unhealthy"
		}
		if err := redis.HealthCheck(c.Request.Context()); err != nil {
			response.Status = "unhealthy"
			response.Services.Redis = "unhealthy"
		}

		status := http.StatusOK
		if response.Status != "healthy" {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, response)
	}
}
