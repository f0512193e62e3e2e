package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/sangkips/brokerdesk-api/internal/domain/entity"
)

// IdempotencyRepository defines the interface for idempotency key operations
type IdempotencyRepository interface {
	// GetByKey retrieves an idempotency key for a user
	GetByKey(ctx context.Context, key string, userID uuid.UUID) (*entity.IdempotencyKey, error)
	// Create stores a new idempotency key
	Create(ctx context.Context, ikey *entity.IdempotencyKey) error
	// Complete records the response for a key reserved by Create
	Complete(ctx context.Context, id uuid.UUID, code int, body string) error
	// Release forgets a reserved key so the request can be retried
	Release(ctx context.Context, id uuid.UUID) error
	// DeleteExpired removes expired keys
	DeleteExpired(ctx context.Context) error
}
