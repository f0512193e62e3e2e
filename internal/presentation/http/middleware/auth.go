package middleware

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sangkips/brokerdesk-api/internal/application/service"
	"github.com/sangkips/brokerdesk-api/internal/presentation/http/dto/response"
	"github.com/sangkips/brokerdesk-api/pkg/utils"
)

// PrincipalResolver turns token claims into the acting principal
type PrincipalResolver interface {
	ResolvePrincipal(ctx context.Context, userID uuid.UUID, name string, tokenRoles []string) (service.Principal, error)
}

// AuthMiddleware creates a JWT authentication middleware. The resolved
// principal is stored under "principal".
func AuthMiddleware(jwtManager *utils.JWTManager, resolver PrincipalResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			response.Unauthorized(c, "Authorization header is required")
			c.Abort()
			return
		}

		// Extract token from "Bearer <token>"
		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
			response.Unauthorized(c, "Invalid authorization header format")
			c.Abort()
			return
		}

		claims, err := jwtManager.ValidateAccessToken(parts[1])
		if err != nil {
			response.Unauthorized(c, "Invalid or expired token")
			c.Abort()
			return
		}

		principal, err := resolver.ResolvePrincipal(c.Request.Context(), claims.UserID, claims.Name, claims.Roles)
		if err != nil {
			response.Error(c, err)
			c.Abort()
			return
		}

		c.Set("user_id", claims.UserID)
		c.Set("user_email", claims.Email)
		c.Set("user_roles", principal.Roles)
		c.Set("principal", principal)

		c.Next()
	}
}

// RequirePermission creates a middleware that requires a permission held by
// any of the principal's roles, checked against the live role table.
func RequirePermission(gate *service.AuthorizationGate, permission string) gin.HandlerFunc {
	return func(c *gin.Context) {
		val, exists := c.Get("principal")
		if !exists {
			response.Forbidden(c, "Access denied")
			c.Abort()
			return
		}

		principal, ok := val.(service.Principal)
		if !ok {
			response.Forbidden(c, "Access denied")
			c.Abort()
			return
		}

		if !gate.Can(principal, permission) {
			response.Forbidden(c, "You do not have permission to perform this action")
			c.Abort()
			return
		}

		c.Next()
	}
}
