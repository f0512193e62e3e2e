package request

// CreateUserRequest represents a staff account creation request
type CreateUserRequest struct {
	FirstName string  `json:"first_name" binding:"required,max=100"`
	LastName  string  `json:"last_name" binding:"omitempty,max=100"`
	Email     string  `json:"email" binding:"required,email"`
	Password  string  `json:"password" binding:"required,min=8"`
	Location  *string `json:"location" binding:"omitempty,max=100"`
	Role      string  `json:"role" binding:"required"`
}
