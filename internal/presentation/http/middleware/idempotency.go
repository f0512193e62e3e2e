package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sangkips/brokerdesk-api/internal/domain/entity"
	"github.com/sangkips/brokerdesk-api/internal/domain/repository"
)

const (
	// IdempotencyKeyHeader is the HTTP header for idempotency keys
	IdempotencyKeyHeader = "Idempotency-Key"
	// IdempotencyKeyTTL is how long keys are valid
	IdempotencyKeyTTL = 24 * time.Hour
)

// IdempotencyConfig holds configuration for the idempotency middleware
type IdempotencyConfig struct {
	Repo repository.IdempotencyRepository
}

// responseWriter wraps gin.ResponseWriter to capture the response body
type responseWriter struct {
	gin.ResponseWriter
	body *bytes.Buffer
}

func (w responseWriter) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

// Idempotency replays the stored response when a request is retried with
// the same Idempotency-Key. The key is reserved before the handler runs, so
// a concurrent retry is refused rather than posted twice. Only 2xx
// responses are kept; anything else releases the key.
func Idempotency(config IdempotencyConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method != http.MethodPost && c.Request.Method != http.MethodPut && c.Request.Method != http.MethodPatch {
			c.Next()
			return
		}

		idempotencyKey := c.GetHeader(IdempotencyKeyHeader)
		if idempotencyKey == "" {
			c.Next()
			return
		}

		userIDValue, exists := c.Get("user_id")
		if !exists {
			c.Next()
			return
		}
		userID, ok := userIDValue.(uuid.UUID)
		if !ok {
			c.Next()
			return
		}

		body, err := io.ReadAll(c.Request.Body)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"success": false, "message": "Unable to read request body"})
			return
		}
		c.Request.Body = io.NopCloser(bytes.NewReader(body))
		sum := sha256.Sum256(body)
		hash := hex.EncodeToString(sum[:])

		ctx := c.Request.Context()
		existing, err := config.Repo.GetByKey(ctx, idempotencyKey, userID)
		if err != nil {
			slog.Warn("idempotency lookup failed", "error", err)
			c.Next()
			return
		}
		if existing != nil && existing.IsExpired() {
			if err := config.Repo.Release(ctx, existing.ID); err != nil {
				slog.Warn("failed to release expired idempotency key", "error", err)
			}
			existing = nil
		}
		if existing != nil {
			switch {
			case existing.RequestHash != hash:
				c.AbortWithStatusJSON(http.StatusUnprocessableEntity, gin.H{
					"success": false,
					"message": "Idempotency-Key was already used for a different request",
				})
			case existing.IsPending():
				c.AbortWithStatusJSON(http.StatusConflict, gin.H{
					"success": false,
					"message": "A request with this Idempotency-Key is still being processed",
				})
			default:
				c.Header("X-Idempotency-Replayed", "true")
				c.Data(existing.ResponseCode, "application/json; charset=utf-8", []byte(existing.ResponseBody))
				c.Abort()
			}
			return
		}

		ikey := &entity.IdempotencyKey{
			Key:         idempotencyKey,
			UserID:      userID,
			Endpoint:    c.Request.Method + " " + c.FullPath(),
			RequestHash: hash,
			ExpiresAt:   time.Now().UTC().Add(IdempotencyKeyTTL),
		}
		if err := config.Repo.Create(ctx, ikey); err != nil {
			// lost the race to a concurrent retry
			c.AbortWithStatusJSON(http.StatusConflict, gin.H{
				"success": false,
				"message": "A request with this Idempotency-Key is still being processed",
			})
			return
		}

		blw := &responseWriter{body: bytes.NewBufferString(""), ResponseWriter: c.Writer}
		c.Writer = blw

		c.Next()

		storeCtx := context.WithoutCancel(c.Request.Context())
		status := c.Writer.Status()
		if status >= 200 && status < 300 {
			if err := config.Repo.Complete(storeCtx, ikey.ID, status, blw.body.String()); err != nil {
				slog.Warn("failed to store idempotent response", "error", err)
			}
			return
		}
		if err := config.Repo.Release(storeCtx, ikey.ID); err != nil {
			slog.Warn("failed to release idempotency key", "error", err)
		}
	}
}

// PurgeExpiredIdempotencyKeys deletes expired keys every interval until ctx
// is done.
func PurgeExpiredIdempotencyKeys(ctx context.Context, repo repository.IdempotencyRepository, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := repo.DeleteExpired(ctx); err != nil && ctx.Err() == nil {
				slog.Warn("failed to purge expired idempotency keys", "error", err)
			}
		case <-ctx.Done():
			return
		}
	}
}
