package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/sangkips/brokerdesk-api/internal/domain/entity"
	domainRepo "github.com/sangkips/brokerdesk-api/internal/domain/repository"
	"gorm.io/gorm"
)

type idempotencyRepository struct {
	db *gorm.DB
}

// NewIdempotencyRepository creates a new idempotency repository
func NewIdempotencyRepository(db *gorm.DB) domainRepo.IdempotencyRepository {
	return &idempotencyRepository{db: db}
}

func (r *idempotencyRepository) GetByKey(ctx context.Context, key string, userID uuid.UUID) (*entity.IdempotencyKey, error) {
	var ikey entity.IdempotencyKey
	err := conn(ctx, r.db).
		Where(&entity.IdempotencyKey{Key: key, UserID: userID}).
		First(&ikey).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &ikey, err
}

func (r *idempotencyRepository) Create(ctx context.Context, ikey *entity.IdempotencyKey) error {
	return conn(ctx, r.db).Create(ikey).Error
}

// Complete stores the response for a reserved key
func (r *idempotencyRepository) Complete(ctx context.Context, id uuid.UUID, code int, body string) error {
	return conn(ctx, r.db).Model(&entity.IdempotencyKey{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{"response_code": code, "response_body": body}).Error
}

func (r *idempotencyRepository) Release(ctx context.Context, id uuid.UUID) error {
	return conn(ctx, r.db).Where("id = ?", id).Delete(&entity.IdempotencyKey{}).Error
}

func (r *idempotencyRepository) DeleteExpired(ctx context.Context) error {
	return conn(ctx, r.db).
		Where("expires_at < ?", time.Now().UTC()).
		Delete(&entity.IdempotencyKey{}).Error
}
