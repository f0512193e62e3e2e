package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/sangkips/brokerdesk-api/internal/application/service"
	"github.com/sangkips/brokerdesk-api/internal/presentation/http/dto/request"
	"github.com/sangkips/brokerdesk-api/internal/presentation/http/dto/response"
)

// UserHandler handles staff accounts and the caller's own profile
type UserHandler struct {
	userService *service.UserService
	permissions *service.RolePermissionTable
}

// NewUserHandler creates a new user handler
func NewUserHandler(userService *service.UserService, permissions *service.RolePermissionTable) *UserHandler {
	return &UserHandler{userService: userService, permissions: permissions}
}

// Me handles returning the acting principal and what it may do
// @Summary Current Principal
// @Tags users
// @Security BearerAuth
// @Produce json
// @Success 200 {object} response.APIResponse
// @Router /me [get]
func (h *UserHandler) Me(c *gin.Context) {
	principal, ok := mustPrincipal(c)
	if !ok {
		return
	}

	permissions := h.permissions.Permissions(principal.Roles)
	if permissions == nil {
		permissions = []string{}
	}
	response.OK(c, "Profile retrieved successfully", gin.H{
		"id":          principal.UserID,
		"name":        principal.Name,
		"roles":       principal.Roles,
		"location":    principal.Location,
		"permissions": permissions,
	})
}

// Create handles creating a staff account
func (h *UserHandler) Create(c *gin.Context) {
	principal, ok := mustPrincipal(c)
	if !ok {
		return
	}

	var req request.CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindingError(err))
		return
	}

	user, err := h.userService.CreateUser(c.Request.Context(), &service.CreateUserInput{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
		Password:  req.Password,
		Location:  req.Location,
		Role:      req.Role,
		Principal: principal,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, "User created successfully", user)
}

// Get handles getting a user with roles
func (h *UserHandler) Get(c *gin.Context) {
	id, err := uuidParam(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}

	user, err := h.userService.GetUser(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, "User retrieved successfully", user)
}

// RefreshPermissions reloads the role table after it was edited in the
// database and republishes it to other instances.
func (h *UserHandler) RefreshPermissions(c *gin.Context) {
	if err := h.permissions.Refresh(c.Request.Context()); err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, "Permission table reloaded", nil)
}
