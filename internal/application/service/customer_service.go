package service

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/sangkips/brokerdesk-api/internal/domain/entity"
	"github.com/sangkips/brokerdesk-api/internal/domain/repository"
	"github.com/sangkips/brokerdesk-api/pkg/apperror"
	"github.com/sangkips/brokerdesk-api/pkg/pagination"
)

// CustomerService handles customer-related operations
type CustomerService struct {
	customerRepo repository.CustomerRepository
	audit        AuditRecorder
}

// NewCustomerService creates a new customer service
func NewCustomerService(customerRepo repository.CustomerRepository, audit AuditRecorder) *CustomerService {
	return &CustomerService{customerRepo: customerRepo, audit: audit}
}

// CreateCustomerInput represents the create customer input
type CreateCustomerInput struct {
	FirstName string
	LastName  string
	Email     *string
	Contact   *string
	IDNumber  *string
	Address   *string
	Principal Principal
}

// CreateCustomer creates a new customer
func (s *CustomerService) CreateCustomer(ctx context.Context, input *CreateCustomerInput) (*entity.Customer, error) {
	if strings.TrimSpace(input.FirstName) == "" {
		return nil, apperror.NewValidationError([]apperror.FieldError{{Field: "first_name", Message: "first name is required"}})
	}

	customer := &entity.Customer{
		CreatedBy: input.Principal.UserID,
		FirstName: strings.TrimSpace(input.FirstName),
		LastName:  strings.TrimSpace(input.LastName),
		Email:     input.Email,
		Contact:   input.Contact,
		IDNumber:  input.IDNumber,
		Address:   input.Address,
	}

	if err := s.customerRepo.Create(ctx, customer); err != nil {
		return nil, err
	}

	s.audit.Record(ctx, AuditEvent{
		UserID:     input.Principal.UserID,
		Action:     AuditCustomerCreated,
		EntityType: "customer",
		EntityID:   customer.ID.String(),
	})
	return customer, nil
}

// GetCustomer retrieves a customer by ID
func (s *CustomerService) GetCustomer(ctx context.Context, id uuid.UUID) (*entity.Customer, error) {
	customer, err := s.customerRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if customer == nil {
		return nil, apperror.NewNotFoundError("Customer")
	}
	return customer, nil
}

// ListCustomers lists customers matching search on name, email, contact or id number
func (s *CustomerService) ListCustomers(ctx context.Context, params *pagination.PaginationParams, search string) (*pagination.PaginatedResult[entity.Customer], error) {
	customers, total, err := s.customerRepo.List(ctx, params, search)
	if err != nil {
		return nil, err
	}

	pag := pagination.NewPagination(params.Page, params.PerPage, total)
	return pagination.NewPaginatedResult(customers, pag), nil
}

// UpdateCustomerInput represents the update customer input. Nil fields are
// left unchanged. Receipts already issued keep the old details.
type UpdateCustomerInput struct {
	ID        uuid.UUID
	FirstName *string
	LastName  *string
	Email     *string
	Contact   *string
	IDNumber  *string
	Address   *string
	Principal Principal
}

// UpdateCustomer updates a customer
func (s *CustomerService) UpdateCustomer(ctx context.Context, input *UpdateCustomerInput) (*entity.Customer, error) {
	customer, err := s.GetCustomer(ctx, input.ID)
	if err != nil {
		return nil, err
	}

	if input.FirstName != nil {
		if strings.TrimSpace(*input.FirstName) == "" {
			return nil, apperror.NewValidationError([]apperror.FieldError{{Field: "first_name", Message: "first name is required"}})
		}
		customer.FirstName = strings.TrimSpace(*input.FirstName)
	}
	if input.LastName != nil {
		customer.LastName = strings.TrimSpace(*input.LastName)
	}
	if input.Email != nil {
		customer.Email = input.Email
	}
	if input.Contact != nil {
		customer.Contact = input.Contact
	}
	if input.IDNumber != nil {
		customer.IDNumber = input.IDNumber
	}
	if input.Address != nil {
		customer.Address = input.Address
	}

	if err := s.customerRepo.Update(ctx, customer); err != nil {
		return nil, err
	}

	s.audit.Record(ctx, AuditEvent{
		UserID:     input.Principal.UserID,
		Action:     AuditCustomerUpdated,
		EntityType: "customer",
		EntityID:   customer.ID.String(),
	})
	return customer, nil
}
