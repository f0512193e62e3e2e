package request

// CreateCustomerRequest represents a customer creation request
type CreateCustomerRequest struct {
	FirstName string  `json:"first_name" binding:"required,max=100"`
	LastName  string  `json:"last_name" binding:"omitempty,max=100"`
	Email     *string `json:"email" binding:"omitempty,email"`
	Contact   *string `json:"contact" binding:"omitempty,max=50"`
	IDNumber  *string `json:"id_number" binding:"omitempty,max=100"`
	Address   *string `json:"address"`
}

// UpdateCustomerRequest represents a customer update request
type UpdateCustomerRequest struct {
	FirstName *string `json:"first_name" binding:"omitempty,max=100"`
	LastName  *string `json:"last_name" binding:"omitempty,max=100"`
	Email     *string `json:"email" binding:"omitempty,email"`
	Contact   *string `json:"contact" binding:"omitempty,max=50"`
	IDNumber  *string `json:"id_number" binding:"omitempty,max=100"`
	Address   *string `json:"address"`
}
