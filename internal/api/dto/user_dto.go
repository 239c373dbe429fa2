package dto

import (
	"time"

	"github.com/spec-kit/ticket-tracker/internal/domain"
)

// UserRegisterRequest payload for new accounts. Role defaults to USER.
type UserRegisterRequest struct {
	Name     string `json:"name" validate:"required,max=255"`
	Email    string `json:"email" validate:"required,email,max=320"`
	Password string `json:"password" validate:"required,min=6,max=72"`
	Role     string `json:"role"`
}

// LoginRequest payload for login. Blank fields are rejected as bad credentials.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthResponse standard response for auth endpoints.
type AuthResponse struct {
	Token     string       `json:"token"`
	TokenType string       `json:"token_type"`
	ExpiresAt time.Time    `json:"expires_at"`
	User      UserResponse `json:"user"`
}

// UserResponse is the public view of an account.
type UserResponse struct {
	ID        string      `json:"id"`
	Name      string      `json:"name"`
	Email     string      `json:"email"`
	Role      domain.Role `json:"role"`
	CreatedAt time.Time   `json:"created_at"`
}

// NewUserResponse maps a user summary.
func NewUserResponse(summary domain.UserSummary) UserResponse {
	return UserResponse{
		ID:        summary.ID,
		Name:      summary.Name,
		Email:     summary.Email,
		Role:      summary.Role,
		CreatedAt: summary.CreatedAt,
	}
}

// NewUserResponses maps a list of users.
func NewUserResponses(users []domain.User) []UserResponse {
	resp := make([]UserResponse, 0, len(users))
	for _, user := range users {
		resp = append(resp, NewUserResponse(user.Summary()))
	}
	return resp
}
