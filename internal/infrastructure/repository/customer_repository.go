package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/sangkips/brokerdesk-api/internal/domain/entity"
	domainRepo "github.com/sangkips/brokerdesk-api/internal/domain/repository"
	"github.com/sangkips/brokerdesk-api/pkg/pagination"
	"gorm.io/gorm"
)

type customerRepository struct {
	db *gorm.DB
}

// NewCustomerRepository creates a new customer repository
func NewCustomerRepository(db *gorm.DB) domainRepo.CustomerRepository {
	return &customerRepository{db: db}
}

func (r *customerRepository) Create(ctx context.Context, customer *entity.Customer) error {
	return conn(ctx, r.db).Create(customer).Error
}

func (r *customerRepository) GetByID(ctx context.Context, id uuid.UUID) (*entity.Customer, error) {
	var customer entity.Customer
	err := conn(ctx, r.db).First(&customer, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &customer, err
}

func (r *customerRepository) GetByIDs(ctx context.Context, ids []uuid.UUID) ([]entity.Customer, error) {
	var customers []entity.Customer
	if len(ids) == 0 {
		return customers, nil
	}
	err := conn(ctx, r.db).Where("id IN ?", ids).Find(&customers).Error
	return customers, err
}

func (r *customerRepository) Update(ctx context.Context, customer *entity.Customer) error {
	return conn(ctx, r.db).Save(customer).Error
}

func (r *customerRepository) List(ctx context.Context, params *pagination.PaginationParams, search string) ([]entity.Customer, int64, error) {
	var customers []entity.Customer
	var total int64

	query := conn(ctx, r.db).Model(&entity.Customer{}).
		Scopes(SearchScope(search, "first_name", "last_name", "email", "contact", "id_number"))

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	params.Validate()
	err := query.Offset(params.Offset()).Limit(params.PerPage).
		Order("last_name ASC, first_name ASC").
		Find(&customers).Error

	return customers, total, err
}
