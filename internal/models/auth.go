package models

import (
	"github.com/golang-jwt/jwt/v5"
)

// LoginRequest authenticates by username, roll number or email.
type LoginRequest struct {
	Identifier string `json:"identifier" validate:"required"`
	Password   string `json:"password" validate:"required"`
}

// SignupRequest registers an account. Username is derived from email when blank.
type SignupRequest struct {
	Username string   `json:"username" validate:"omitempty,min=3,max=64"`
	Email    string   `json:"email" validate:"omitempty,email"`
	Password string   `json:"password" validate:"required,min=6"`
	FullName string   `json:"name" validate:"required"`
	Role     UserRole `json:"role" validate:"omitempty,oneof=ADMIN TEACHER STUDENT"`
	RollNo   string   `json:"rollNo" validate:"omitempty,max=32"`
}

// LoginResponse returns the issued access token and user info.
type LoginResponse struct {
	AccessToken string   `json:"access_token"`
	ExpiresIn   int64    `json:"expires_in"`
	User        UserInfo `json:"user"`
}

// UserInfo describes the authenticated user in responses.
type UserInfo struct {
	ID       string   `json:"id"`
	Username string   `json:"username"`
	FullName string   `json:"full_name"`
	Role     UserRole `json:"role"`
	RollNo   *string  `json:"roll_no,omitempty"`
	Courses  []string `json:"courses"`
}

// JWTClaims represents the JWT payload for access tokens.
type JWTClaims struct {
	UserID   string   `json:"user_id"`
	Username string   `json:"username"`
	Role     UserRole `json:"role"`
	FullName string   `json:"full_name"`
	jwt.RegisteredClaims
}
