package repository

import (
	"context"

	"github.com/sangkips/brokerdesk-api/internal/domain/entity"
	domainRepo "github.com/sangkips/brokerdesk-api/internal/domain/repository"
	"github.com/sangkips/brokerdesk-api/pkg/pagination"
	"gorm.io/gorm"
)

type auditLogRepository struct {
	db *gorm.DB
}

// NewAuditLogRepository creates a new audit log repository
func NewAuditLogRepository(db *gorm.DB) domainRepo.AuditLogRepository {
	return &auditLogRepository{db: db}
}

func (r *auditLogRepository) Create(ctx context.Context, entry *entity.AuditLog) error {
	return conn(ctx, r.db).Create(entry).Error
}

func (r *auditLogRepository) List(ctx context.Context, entityType, entityID string, params *pagination.PaginationParams) ([]entity.AuditLog, int64, error) {
	var entries []entity.AuditLog
	var total int64

	query := conn(ctx, r.db).Model(&entity.AuditLog{})
	if entityType != "" {
		query = query.Where("entity_type = ?", entityType)
	}
	if entityID != "" {
		query = query.Where("entity_id = ?", entityID)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	params.Validate()
	err := query.Offset(params.Offset()).Limit(params.PerPage).
		Order("created_at DESC").
		Find(&entries).Error

	return entries, total, err
}
