package handler

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sangkips/brokerdesk-api/internal/application/service"
	"github.com/sangkips/brokerdesk-api/pkg/apperror"
	"github.com/sangkips/brokerdesk-api/pkg/pagination"
)

// GetUserID extracts the user ID from the Gin context
func GetUserID(c *gin.Context) *uuid.UUID {
	userIDVal, exists := c.Get("user_id")
	if !exists {
		return nil
	}
	userID, ok := userIDVal.(uuid.UUID)
	if !ok {
		return nil
	}
	return &userID
}

// GetPrincipal extracts the acting principal set by the auth middleware
func GetPrincipal(c *gin.Context) (service.Principal, bool) {
	val, exists := c.Get("principal")
	if !exists {
		return service.Principal{}, false
	}
	p, ok := val.(service.Principal)
	return p, ok
}

// mustPrincipal writes a 401 and returns false when no principal is set
func mustPrincipal(c *gin.Context) (service.Principal, bool) {
	p, ok := GetPrincipal(c)
	if !ok {
		c.JSON(401, gin.H{"success": false, "message": "User not authenticated"})
		return service.Principal{}, false
	}
	return p, true
}

func uuidParam(c *gin.Context, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		return uuid.Nil, apperror.NewBadRequestError("Invalid " + name)
	}
	return id, nil
}

func pageParams(page, perPage int) *pagination.PaginationParams {
	params := &pagination.PaginationParams{Page: page, PerPage: perPage}
	params.Validate()
	return params
}

func queryPage(c *gin.Context) *pagination.PaginationParams {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	perPage, _ := strconv.Atoi(c.DefaultQuery("per_page", "20"))
	return pageParams(page, perPage)
}

// parseDay accepts a calendar date or an RFC 3339 timestamp
func parseDay(field, raw string) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	if t, err := time.Parse("2006-01-02", raw); err == nil {
		return &t, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		t = t.UTC()
		return &t, nil
	}
	return nil, apperror.NewBadRequestError(field + " must be YYYY-MM-DD")
}

// bindingError converts a gin binding failure into a 422 field error
func bindingError(err error) error {
	return apperror.NewValidationError([]apperror.FieldError{{Field: "body", Message: err.Error()}})
}

// parseDayEnd reads an inclusive end date and returns the exclusive bound
func parseDayEnd(field, raw string) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	if t, err := time.Parse("2006-01-02", raw); err == nil {
		t = t.AddDate(0, 0, 1)
		return &t, nil
	}
	return parseDay(field, raw)
}
