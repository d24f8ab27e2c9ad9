package auth

// MaxUsernameLength matches the width of the username column.
const MaxUsernameLength = 80

// MaxPasswordBytes is the longest password bcrypt accepts.
const MaxPasswordBytes = 72

// RegisterRequest represents the registration request payload
type RegisterRequest struct {
	Username string `json:"username" validate:"required,max=80" example:"farmer01"`
	Password string `json:"password" validate:"required,max=72" example:"strongpassword123"`
}

// LoginRequest represents the login request payload
type LoginRequest struct {
	Username string `json:"username" validate:"required,max=80" example:"farmer01"`
	Password string `json:"password" validate:"required" example:"strongpassword123"`
}

// MessageResponse is the success body of register, login and logout.
type MessageResponse struct {
	Success bool   `json:"success" example:"true"`
	Message string `json:"message,omitempty" example:"Login successful"`
}
