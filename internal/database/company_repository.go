package database

import (
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/fleetride/backoffice/internal/models"
)

// CompanyRepository handles database operations for the companies table
type CompanyRepository struct {
	db DB
}

// NewCompanyRepository creates a new CompanyRepository
func NewCompanyRepository(db DB) *CompanyRepository {
	return &CompanyRepository{db: db}
}

const companyColumns = `id, name, email, phone, address, status, rejection_reason, approved_at, created_at, updated_at`

// Create registers a company in pending status
func (r *CompanyRepository) Create(company *models.Company) error {
	query := `
		INSERT INTO companies (id, name, email, phone, address, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at, updated_at
	`

	if company.ID == "" {
		company.ID = uuid.New().String()
	}
	if company.Status == "" {
		company.Status = models.CompanyStatusPending
	}

	err := r.db.QueryRow(
		query,
		company.ID, company.Name, company.Email, company.Phone, company.Address, company.Status,
	).Scan(&company.CreatedAt, &company.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create company: %w", err)
	}

	return nil
}

// GetByID retrieves a company by ID, nil when absent
func (r *CompanyRepository) GetByID(companyID string) (*models.Company, error) {
	query := `SELECT ` + companyColumns + ` FROM companies WHERE id = $1`
	return r.scanCompany(r.db.QueryRow(query, companyID))
}

// GetAll retrieves all companies, optionally filtered by status
func (r *CompanyRepository) GetAll(status *models.CompanyStatus) ([]models.Company, error) {
	query := `SELECT ` + companyColumns + ` FROM companies`
	args := []interface{}{}
	if status != nil {
		query += ` WHERE status = $1`
		args = append(args, *status)
	}
	query += ` ORDER BY created_at DESC`

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	companies := []models.Company{}
	for rows.Next() {
		var company models.Company
		var phone, address, rejectionReason sql.NullString
		var approvedAt sql.NullTime

		err := rows.Scan(
			&company.ID, &company.Name, &company.Email, &phone, &address,
			&company.Status, &rejectionReason, &approvedAt,
			&company.CreatedAt, &company.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}

		if phone.Valid {
			company.Phone = &phone.String
		}
		if address.Valid {
			company.Address = &address.String
		}
		if rejectionReason.Valid {
			company.RejectionReason = &rejectionReason.String
		}
		if approvedAt.Valid {
			company.ApprovedAt = &approvedAt.Time
		}

		companies = append(companies, company)
	}

	return companies, rows.Err()
}

// Approve moves a company to approved status
func (r *CompanyRepository) Approve(companyID string) error {
	query := `
		UPDATE companies
		SET status = $2, approved_at = NOW(), rejection_reason = NULL, updated_at = NOW()
		WHERE id = $1
	`
	return r.execExpectingRow(query, companyID, models.CompanyStatusApproved)
}

// Reject moves a company to rejected status
func (r *CompanyRepository) Reject(companyID string, reason *string) error {
	query := `
		UPDATE companies
		SET status = $2, rejection_reason = $3, updated_at = NOW()
		WHERE id = $1
	`

	result, err := r.db.Exec(query, companyID, models.CompanyStatusRejected, reason)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (r *CompanyRepository) execExpectingRow(query string, args ...interface{}) error {
	result, err := r.db.Exec(query, args...)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (r *CompanyRepository) scanCompany(row scanner) (*models.Company, error) {
	company := &models.Company{}
	var phone, address, rejectionReason sql.NullString
	var approvedAt sql.NullTime

	err := row.Scan(
		&company.ID, &company.Name, &company.Email, &phone, &address,
		&company.Status, &rejectionReason, &approvedAt,
		&company.CreatedAt, &company.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if phone.Valid {
		company.Phone = &phone.String
	}
	if address.Valid {
		company.Address = &address.String
	}
	if rejectionReason.Valid {
		company.RejectionReason = &rejectionReason.String
	}
	if approvedAt.Valid {
		company.ApprovedAt = &approvedAt.Time
	}

	return company, nil
}
