package service

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/sangkips/brokerdesk-api/internal/domain/entity"
	"github.com/sangkips/brokerdesk-api/internal/domain/repository"
	"github.com/sangkips/brokerdesk-api/pkg/apperror"
	"golang.org/x/crypto/bcrypt"
)

// UserService handles staff accounts and resolves request principals
type UserService struct {
	userRepo repository.UserRepository
	roleRepo repository.RoleRepository
	audit    AuditRecorder
}

// NewUserService creates a new user service
func NewUserService(userRepo repository.UserRepository, roleRepo repository.RoleRepository, audit AuditRecorder) *UserService {
	return &UserService{userRepo: userRepo, roleRepo: roleRepo, audit: audit}
}

// ResolvePrincipal builds the acting principal for a token subject. Roles
// and location come from the users table when the user is known locally,
// otherwise from the token.
func (s *UserService) ResolvePrincipal(ctx context.Context, userID uuid.UUID, name string, tokenRoles []string) (Principal, error) {
	principal := Principal{UserID: userID, Name: name, Roles: tokenRoles}

	user, err := s.userRepo.GetWithRoles(ctx, userID)
	if err != nil {
		return principal, err
	}
	if user == nil {
		return principal, nil
	}
	if !user.Active {
		return principal, apperror.NewForbiddenError("User account is disabled")
	}

	principal.Name = user.FullName()
	if len(user.Roles) > 0 {
		principal.Roles = user.RoleNames()
	}
	if user.Location != nil {
		principal.Location = *user.Location
	}
	return principal, nil
}

// CreateUserInput represents the create user input
type CreateUserInput struct {
	FirstName string
	LastName  string
	Email     string
	Password  string
	Location  *string
	Role      string
	Principal Principal
}

// CreateUser adds a staff member with one role
func (s *UserService) CreateUser(ctx context.Context, input *CreateUserInput) (*entity.User, error) {
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if email == "" || strings.TrimSpace(input.FirstName) == "" {
		return nil, apperror.NewValidationError([]apperror.FieldError{{Field: "email", Message: "name and email are required"}})
	}
	if len(input.Password) < 8 {
		return nil, apperror.NewValidationError([]apperror.FieldError{{Field: "password", Message: "password must be at least 8 characters"}})
	}

	existing, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, apperror.NewConflictError("Email already registered")
	}

	role, err := s.roleRepo.GetByName(ctx, input.Role)
	if err != nil {
		return nil, err
	}
	if role == nil {
		return nil, apperror.NewNotFoundError("Role")
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	user := &entity.User{
		FirstName: strings.TrimSpace(input.FirstName),
		LastName:  strings.TrimSpace(input.LastName),
		Email:     email,
		Password:  string(hashed),
		Location:  input.Location,
		Active:    true,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}
	if err := s.userRepo.AssignRole(ctx, user.ID, role.ID); err != nil {
		return nil, err
	}
	user.Roles = []entity.Role{*role}

	s.audit.Record(ctx, AuditEvent{
		UserID:     input.Principal.UserID,
		Action:     AuditUserCreated,
		EntityType: "user",
		EntityID:   user.ID.String(),
		Details:    map[string]interface{}{"role": role.Name},
	})
	return user, nil
}

// GetUser retrieves a user with roles
func (s *UserService) GetUser(ctx context.Context, id uuid.UUID) (*entity.User, error) {
	user, err := s.userRepo.GetWithRoles(ctx, id)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, apperror.NewNotFoundError("User")
	}
	return user, nil
}
