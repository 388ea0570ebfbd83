package database

import (
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/fleetride/backoffice/internal/models"
)

// CustomerRepository handles database operations for the customers table
type CustomerRepository struct {
	db DB
}

// NewCustomerRepository creates a new CustomerRepository
func NewCustomerRepository(db DB) *CustomerRepository {
	return &CustomerRepository{db: db}
}

const customerColumns = `id, company_id, name, phone, email, created_at, updated_at`

// Create registers a customer for a company
func (r *CustomerRepository) Create(customer *models.Customer) error {
	query := `
		INSERT INTO customers (id, company_id, name, phone, email)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at, updated_at
	`

	if customer.ID == "" {
		customer.ID = uuid.New().String()
	}

	err := r.db.QueryRow(
		query,
		customer.ID, customer.CompanyID, customer.Name, customer.Phone, customer.Email,
	).Scan(&customer.CreatedAt, &customer.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create customer: %w", err)
	}

	return nil
}

// GetByID retrieves a customer by ID, nil when absent
func (r *CustomerRepository) GetByID(customerID string) (*models.Customer, error) {
	query := `SELECT ` + customerColumns + ` FROM customers WHERE id = $1`
	return r.scanCustomer(r.db.QueryRow(query, customerID))
}

// GetByCompanyID retrieves all customers for a company
func (r *CustomerRepository) GetByCompanyID(companyID string) ([]models.Customer, error) {
	query := `SELECT ` + customerColumns + ` FROM customers WHERE company_id = $1 ORDER BY created_at DESC`

	rows, err := r.db.Query(query, companyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	customers := []models.Customer{}
	for rows.Next() {
		var customer models.Customer
		var email sql.NullString

		err := rows.Scan(
			&customer.ID, &customer.CompanyID, &customer.Name, &customer.Phone,
			&email, &customer.CreatedAt, &customer.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}

		if email.Valid {
			customer.Email = &email.String
		}

		customers = append(customers, customer)
	}

	return customers, rows.Err()
}

// Update updates customer details
func (r *CustomerRepository) Update(customer *models.Customer) error {
	query := `
		UPDATE customers
		SET name = $2, phone = $3, email = $4, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at
	`

	err := r.db.QueryRow(
		query,
		customer.ID, customer.Name, customer.Phone, customer.Email,
	).Scan(&customer.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to update customer: %w", err)
	}

	return nil
}

// Delete removes a customer
func (r *CustomerRepository) Delete(customerID string) error {
	result, err := r.db.Exec(`DELETE FROM customers WHERE id = $1`, customerID)
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

func (r *CustomerRepository) scanCustomer(row scanner) (*models.Customer, error) {
	customer := &models.Customer{}
	var email sql.NullString

	err := row.Scan(
		&customer.ID, &customer.CompanyID, &customer.Name, &customer.Phone,
		&email, &customer.CreatedAt, &customer.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if email.Valid {
		customer.Email = &email.String
	}

	return customer, nil
}
