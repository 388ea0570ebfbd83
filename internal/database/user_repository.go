package database

import (
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/fleetride/backoffice/internal/models"
)

// UserRepository handles database operations for staff users and sessions
type UserRepository struct {
	db DB
}

// NewUserRepository creates a new UserRepository
func NewUserRepository(db DB) *UserRepository {
	return &UserRepository{db: db}
}

const userColumns = `id, company_id, name, email, password_hash, role, last_login_at, created_at, updated_at`

// Create creates a staff user
func (r *UserRepository) Create(user *models.User) error {
	query := `
		INSERT INTO users (id, company_id, name, email, password_hash, role)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at, updated_at
	`

	if user.ID == "" {
		user.ID = uuid.New().String()
	}

	err := r.db.QueryRow(
		query,
		user.ID, user.CompanyID, user.Name, user.Email, user.PasswordHash, user.Role,
	).Scan(&user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}

	return nil
}

// GetByID retrieves a user by ID, nil when absent
func (r *UserRepository) GetByID(userID string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return r.scanUser(r.db.QueryRow(query, userID))
}

// GetByEmail retrieves a user by email, nil when absent
func (r *UserRepository) GetByEmail(email string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE LOWER(email) = LOWER($1)`
	return r.scanUser(r.db.QueryRow(query, email))
}

// UpdateLastLogin stamps the last successful login
func (r *UserRepository) UpdateLastLogin(userID string) error {
	_, err := r.db.Exec(`UPDATE users SET last_login_at = NOW(), updated_at = NOW() WHERE id = $1`, userID)
	return err
}

// CreateSession records a login session for audit
func (r *UserRepository) CreateSession(session *models.UserSession) error {
	query := `
		INSERT INTO user_sessions (id, user_id, ip_address, user_agent, device_info)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at
	`

	if session.ID == "" {
		session.ID = uuid.New().String()
	}

	err := r.db.QueryRow(
		query,
		session.ID, session.UserID, session.IPAddress, session.UserAgent, session.DeviceInfo,
	).Scan(&session.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}

	return nil
}

func (r *UserRepository) scanUser(row scanner) (*models.User, error) {
	user := &models.User{}
	var companyID sql.NullString
	var lastLoginAt sql.NullTime

	err := row.Scan(
		&user.ID, &companyID, &user.Name, &user.Email, &user.PasswordHash,
		&user.Role, &lastLoginAt, &user.CreatedAt, &user.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if companyID.Valid {
		user.CompanyID = &companyID.String
	}
	if lastLoginAt.Valid {
		user.LastLoginAt = &lastLoginAt.Time
	}

	return user, nil
}
