package repository

import (
	"context"

	"github.com/sangkips/brokerdesk-api/internal/domain/entity"
	"github.com/sangkips/brokerdesk-api/pkg/pagination"
)

// AuditLogRepository stores audit entries
type AuditLogRepository interface {
	Create(ctx context.Context, entry *entity.AuditLog) error
	List(ctx context.Context, entityType, entityID string, params *pagination.PaginationParams) ([]entity.AuditLog, int64, error)
}
