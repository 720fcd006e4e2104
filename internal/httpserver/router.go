package httpserver

import (
	"context"
	"errors"
	"slices"
	"time"

	"storefront-engine/internal/engine"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Deps holds what the router needs.
type Deps struct {
	Engine       *engine.Engine
	Ready        func(context.Context) error
	AllowOrigins []string
}

// buildRouter wires routes for the API.
func buildRouter(logger *zap.Logger, deps Deps) (*gin.Engine, error) {
	if deps.Engine == nil {
		return nil, errors.New("httpserver: engine is required")
	}
	if gin.Mode() != gin.TestMode {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.LoggerWithWriter(zap.NewStdLog(logger.Named("access")).Writer()), gin.Recovery())
	router.Use(cors.New(corsConfig(deps.AllowOrigins)))

	router.GET("/healthz", healthHandler)
	router.GET("/readyz", readyHandler(deps.Ready))

	h := &handlers{engine: deps.Engine, logger: logger}

	router.PUT("/session", h.putSession)

	router.GET("/cart", h.getCart)
	router.DELETE("/cart", h.clearCart)
	router.POST("/cart/lines", h.addCartLine)
	router.PATCH("/cart/lines/:id", h.updateCartLine)
	router.DELETE("/cart/lines/:id", h.removeCartLine)
	router.GET("/cart/vendors", h.cartVendors)
	router.DELETE("/cart/notice", h.dismissNotice)

	router.GET("/addresses", h.listAddresses)
	router.POST("/addresses", h.addAddress)
	router.PATCH("/addresses/:id", h.updateAddress)
	router.DELETE("/addresses/:id", h.removeAddress)
	router.POST("/addresses/:id/default", h.setDefaultAddress)

	router.GET("/payment-methods", h.listPaymentMethods)
	router.POST("/payment-methods", h.addPaymentMethod)
	router.PATCH("/payment-methods/:id", h.updatePaymentMethod)
	router.DELETE("/payment-methods/:id", h.removePaymentMethod)
	router.POST("/payment-methods/:id/default", h.setDefaultPaymentMethod)

	router.POST("/orders", h.checkout)
	router.GET("/orders", h.listOrders)
	router.GET("/orders/:id", h.getOrder)
	router.PATCH("/orders/:id", h.updateOrder)
	router.POST("/orders/:id/status", h.advanceOrder)
	router.POST("/orders/:id/complete", h.completeOrder)
	router.POST("/orders/:id/cancel", h.cancelOrder)

	router.POST("/ratings", h.submitRating)
	router.GET("/products/:id/rating", h.productRating)
	router.GET("/vendors/:id/rating", h.vendorRating)

	return router, nil
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Type", "Accept", "Authorization"},
		MaxAge:       12 * time.Hour,
	}
	if len(origins) == 0 || slices.Contains(origins, "*") {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
	}
	return cfg
}
