package middleware

import (
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/sangkips/brokerdesk-api/internal/config"
)

// Headers the payment and import clients always send
var requiredHeaders = []string{IdempotencyKeyHeader, "Last-Event-ID"}

// CORSMiddleware creates a CORS middleware with the provided configuration
func CORSMiddleware(cfg *config.CORSConfig) gin.HandlerFunc {
	corsConfig := cors.Config{
		AllowOrigins: cfg.AllowedOrigins,
		AllowMethods: cfg.AllowedMethods,
		AllowHeaders: cfg.AllowedHeaders,
		ExposeHeaders: []string{
			"Content-Length", "Content-Type", "X-Request-ID",
			"X-Idempotency-Replayed", "X-RateLimit-Limit", "X-RateLimit-Remaining", "Retry-After",
		},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}

	if len(corsConfig.AllowOrigins) == 0 {
		corsConfig.AllowOrigins = []string{"http://localhost:3000", "http://127.0.0.1:3000"}
	}
	if len(corsConfig.AllowMethods) == 0 {
		corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "OPTIONS"}
	}
	if len(corsConfig.AllowHeaders) == 0 {
		corsConfig.AllowHeaders = []string{
			"Accept",
			"Authorization",
			"Content-Type",
			"X-Request-ID",
			"Origin",
		}
	}
	for _, h := range requiredHeaders {
		corsConfig.AllowHeaders = ensureHeader(corsConfig.AllowHeaders, h)
	}

	return cors.New(corsConfig)
}

func ensureHeader(headers []string, name string) []string {
	for _, h := range headers {
		if strings.EqualFold(h, name) {
			return headers
		}
	}
	return append(headers, name)
}
