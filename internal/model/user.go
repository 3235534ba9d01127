package model

import (
	"time"

	"github.com/google/uuid"
)

// Role distinguishes regular users from admins.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// User represents a platform account.
type User struct {
	ID           uuid.UUID `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	Nickname     string    `json:"nickname"`
	AvatarURL    string    `json:"avatar_url"`
	Role         Role      `json:"role"`
	PasswordHash string    `json:"-"`
	Deleted      bool      `json:"deleted"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// UserTotals is a user's lifetime aggregate, derived as a sum over submitted
// attempts rather than kept as a mutable accumulator, so recomputing any
// attempt's score can never double-count.
type UserTotals struct {
	UserID         uuid.UUID `json:"user_id"`
	Name           string    `json:"name"`
	Nickname       string    `json:"nickname"`
	AvatarURL      string    `json:"avatar_url"`
	TotalScore     int       `json:"total_score"`
	CorrectCount   int       `json:"correct_count"`
	TotalQuestions int       `json:"total_questions"`
	Attempts       int       `json:"attempts"`
	CorrectRate    float64   `json:"correct_rate"`
}

// RegisterRequest is the payload for creating an account.
type RegisterRequest struct {
	Email    string `json:"email" binding:"required,email,max=255"`
	Name     string `json:"name" binding:"required,min=1,max=100"`
	Nickname string `json:"nickname" binding:"omitempty,max=100"`
	Password string `json:"password" binding:"required,min=6,max=72"`
}

// LoginRequest is the payload for logging in.
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// UpdateProfileRequest is the payload for editing the caller's own profile.
// Nil fields are left untouched.
type UpdateProfileRequest struct {
	Name      *string `json:"name" binding:"omitempty,min=1,max=100"`
	Nickname  *string `json:"nickname" binding:"omitempty,max=100"`
	AvatarURL *string `json:"avatar_url" binding:"omitempty,url,max=500"`
}
