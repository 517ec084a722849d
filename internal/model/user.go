package model

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
)

// User represents a user in the database.
type User struct {
	ID            int64
	Email         string
	Username      string
	PasswordHash  string
	EmailVerified bool
	IsActive      bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
	LastLoginAt   *time.Time
}

// SignupRequest represents a user registration request.
type SignupRequest struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	Password string `json:"password"`
}

// Validate expects Email and Username to be normalized already.
func (r SignupRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required.Error("is required")),
		validation.Field(&r.Username,
			validation.Required.Error("is required"),
			validation.RuneLength(2, 0).Error("must be at least 2 characters"),
		),
		validation.Field(&r.Password,
			validation.Required.Error("is required"),
			validation.RuneLength(8, 0).Error("must be at least 8 characters"),
			validation.Length(0, 72).Error("must be at most 72 bytes"),
		),
	)
}

// LoginRequest represents a user login request.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (r LoginRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required.Error("is required")),
		validation.Field(&r.Password, validation.Required.Error("is required")),
	)
}

// AuthResponse represents a signup or login response with a bearer token.
type AuthResponse struct {
	Message string       `json:"message"`
	User    UserResponse `json:"user"`
	Token   string       `json:"token"`
}

// UserResponse is the user summary returned by auth endpoints.
type UserResponse struct {
	ID        int64      `json:"id"`
	Email     string     `json:"email"`
	Username  string     `json:"username"`
	CreatedAt *time.Time `json:"created_at,omitempty"`
}

// MeResponse is the full account view of the authenticated user.
type MeResponse struct {
	ID            int64      `json:"id"`
	Email         string     `json:"email"`
	Username      string     `json:"username"`
	EmailVerified bool       `json:"email_verified"`
	IsActive      bool       `json:"is_active"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
	LastLoginAt   *time.Time `json:"last_login_at"`
	Profile       Profile    `json:"profile"`
}
