package auth

import (
	"github.com/academiaalbert/academia-backend/internal/users"
)

// RegisterRequest is the sign-up payload. Names and phone become profile metadata.
type RegisterRequest struct {
	FirstName string  `json:"first_name" validate:"required"`
	LastName  string  `json:"last_name" validate:"required"`
	Email     string  `json:"email" validate:"required,email"`
	Password  string  `json:"password" validate:"required,min=6"`
	Phone     *string `json:"phone,omitempty"`
}

// LoginRequest captures the user credentials sent to the login endpoint.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// RefreshRequest carries the refresh token paired with the presented access token.
type RefreshRequest struct {
	AccessTokenID string `json:"-"`
	RefreshToken  string `json:"refresh_token" validate:"required"`
}

// SessionResponse is returned by register, login and refresh.
type SessionResponse struct {
	AccessToken  string         `json:"access_token"`
	RefreshToken string         `json:"refresh_token"`
	User         *users.UserDTO `json:"user"`
}
