package models

import (
	"errors"
	"strings"
	"time"
)

// CompanyStatus represents the approval state of a company
type CompanyStatus string

const (
	CompanyStatusPending  CompanyStatus = "pending"
	CompanyStatusApproved CompanyStatus = "approved"
	CompanyStatusRejected CompanyStatus = "rejected"
)

// Company represents a taxi operator tenant. Companies register in pending
// status and must be approved by a super admin before they can create
// bookings or schedules.
type Company struct {
	ID              string        `json:"id" db:"id"`
	Name            string        `json:"name" db:"name"`
	Email           string        `json:"email" db:"email"`
	Phone           *string       `json:"phone,omitempty" db:"phone"`
	Address         *string       `json:"address,omitempty" db:"address"`
	Status          CompanyStatus `json:"status" db:"status"`
	RejectionReason *string       `json:"rejection_reason,omitempty" db:"rejection_reason"`
	ApprovedAt      *time.Time    `json:"approved_at,omitempty" db:"approved_at"`
	CreatedAt       time.Time     `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time     `json:"updated_at" db:"updated_at"`
}

// IsApproved reports whether the company may create bookings and schedules
func (c *Company) IsApproved() bool {
	return c.Status == CompanyStatusApproved
}

// CreateCompanyRequest represents the request to register a company
type CreateCompanyRequest struct {
	Name    string  `json:"name" binding:"required"`
	Email   string  `json:"email" binding:"required,email"`
	Phone   *string `json:"phone,omitempty"`
	Address *string `json:"address,omitempty"`
}

// Validate validates the company registration request
func (r *CreateCompanyRequest) Validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return errors.New("name is required")
	}
	if strings.TrimSpace(r.Email) == "" {
		return errors.New("email is required")
	}
	return nil
}

// RejectCompanyRequest represents the request to reject a company
type RejectCompanyRequest struct {
	Reason *string `json:"reason,omitempty"`
}
