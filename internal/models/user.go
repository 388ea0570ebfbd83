package models

import (
	"errors"
	"strings"
	"time"
)

// Role constants for staff users
const (
	RoleSuperAdmin   = "super_admin"
	RoleCompanyAdmin = "company_admin"
	RoleDispatcher   = "dispatcher"
)

// User represents a back-office staff member
type User struct {
	ID           string     `json:"id" db:"id"`
	CompanyID    *string    `json:"company_id,omitempty" db:"company_id"` // nil for super admins
	Name         string     `json:"name" db:"name"`
	Email        string     `json:"email" db:"email"`
	PasswordHash string     `json:"-" db:"password_hash"`
	Role         string     `json:"role" db:"role"`
	LastLoginAt  *time.Time `json:"last_login_at,omitempty" db:"last_login_at"`
	CreatedAt    time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at" db:"updated_at"`
}

// UserSession records a login for audit purposes
type UserSession struct {
	ID         string    `json:"id" db:"id"`
	UserID     string    `json:"user_id" db:"user_id"`
	IPAddress  string    `json:"ip_address" db:"ip_address"`
	UserAgent  string    `json:"user_agent" db:"user_agent"`
	DeviceInfo string    `json:"device_info" db:"device_info"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
}

// LoginRequest represents the login payload
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// RefreshRequest represents the token refresh payload
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// CreateUserRequest represents the request to create a staff user
type CreateUserRequest struct {
	CompanyID *string `json:"company_id,omitempty"`
	Name      string  `json:"name" binding:"required"`
	Email     string  `json:"email" binding:"required,email"`
	Password  string  `json:"password" binding:"required,min=8"`
	Role      string  `json:"role" binding:"required"`
}

// Validate validates the create user request
func (r *CreateUserRequest) Validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return errors.New("name is required")
	}
	if len(r.Password) < 8 {
		return errors.New("password must be at least 8 characters")
	}
	switch r.Role {
	case RoleSuperAdmin, RoleCompanyAdmin, RoleDispatcher:
	default:
		return errors.New("role must be one of: super_admin, company_admin, dispatcher")
	}
	if r.Role != RoleSuperAdmin && r.CompanyID == nil {
		return errors.New("company_id is required for company-scoped roles")
	}
	return nil
}
