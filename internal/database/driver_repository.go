package database

import (
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/fleetride/backoffice/internal/models"
)

// DriverRepository handles database operations for the drivers table
type DriverRepository struct {
	db DB
}

// NewDriverRepository creates a new DriverRepository
func NewDriverRepository(db DB) *DriverRepository {
	return &DriverRepository{db: db}
}

const driverColumns = `id, company_id, city_id, name, phone, email, vehicle_info, status, created_at, updated_at`

// Create creates a new driver with status offline
func (r *DriverRepository) Create(driver *models.Driver) error {
	query := `
		INSERT INTO drivers (id, company_id, city_id, name, phone, email, vehicle_info, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at, updated_at
	`

	if driver.ID == "" {
		driver.ID = uuid.New().String()
	}
	if driver.Status == "" {
		driver.Status = models.DriverStatusOffline
	}

	err := r.db.QueryRow(
		query,
		driver.ID, driver.CompanyID, driver.CityID, driver.Name,
		driver.Phone, driver.Email, driver.VehicleInfo, driver.Status,
	).Scan(&driver.CreatedAt, &driver.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create driver: %w", err)
	}

	return nil
}

// GetByID retrieves a driver by ID, nil when absent
func (r *DriverRepository) GetByID(driverID string) (*models.Driver, error) {
	query := `SELECT ` + driverColumns + ` FROM drivers WHERE id = $1`
	return r.scanDriver(r.db.QueryRow(query, driverID))
}

// GetByIDForUpdate retrieves a driver inside tx with a row-level lock.
// Every check-then-claim sequence on driver status must go through this.
func (r *DriverRepository) GetByIDForUpdate(tx *sqlx.Tx, driverID string) (*models.Driver, error) {
	query := `SELECT ` + driverColumns + ` FROM drivers WHERE id = $1 FOR UPDATE`
	return r.scanDriver(tx.QueryRow(query, driverID))
}

// GetByCompanyID retrieves all drivers for a company
func (r *DriverRepository) GetByCompanyID(companyID string) ([]models.Driver, error) {
	query := `SELECT ` + driverColumns + ` FROM drivers WHERE company_id = $1 ORDER BY created_at DESC`

	rows, err := r.db.Query(query, companyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return r.scanDrivers(rows)
}

// Update updates driver details (not status; see UpdateStatus)
func (r *DriverRepository) Update(driver *models.Driver) error {
	query := `
		UPDATE drivers
		SET city_id = $2, name = $3, phone = $4, email = $5, vehicle_info = $6, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at
	`

	err := r.db.QueryRow(
		query,
		driver.ID, driver.CityID, driver.Name, driver.Phone, driver.Email, driver.VehicleInfo,
	).Scan(&driver.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to update driver: %w", err)
	}

	return nil
}

// UpdateStatus persists the driver status outside a transaction
func (r *DriverRepository) UpdateStatus(driverID string, status models.DriverStatus) error {
	query := `UPDATE drivers SET status = $2, updated_at = NOW() WHERE id = $1`

	result, err := r.db.Exec(query, driverID, status)
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

// UpdateStatusTx persists the driver status inside tx
func (r *DriverRepository) UpdateStatusTx(tx *sqlx.Tx, driverID string, status models.DriverStatus) error {
	query := `UPDATE drivers SET status = $2, updated_at = NOW() WHERE id = $1`

	result, err := tx.Exec(query, driverID, status)
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

// Delete removes a driver
func (r *DriverRepository) Delete(driverID string) error {
	result, err := r.db.Exec(`DELETE FROM drivers WHERE id = $1`, driverID)
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

func (r *DriverRepository) scanDriver(row scanner) (*models.Driver, error) {
	driver := &models.Driver{}
	var cityID, email, vehicleInfo sql.NullString

	err := row.Scan(
		&driver.ID, &driver.CompanyID, &cityID, &driver.Name, &driver.Phone,
		&email, &vehicleInfo, &driver.Status, &driver.CreatedAt, &driver.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if cityID.Valid {
		driver.CityID = &cityID.String
	}
	if email.Valid {
		driver.Email = &email.String
	}
	if vehicleInfo.Valid {
		driver.VehicleInfo = &vehicleInfo.String
	}

	return driver, nil
}

func (r *DriverRepository) scanDrivers(rows *sql.Rows) ([]models.Driver, error) {
	drivers := []models.Driver{}

	for rows.Next() {
		var driver models.Driver
		var cityID, email, vehicleInfo sql.NullString

		err := rows.Scan(
			&driver.ID, &driver.CompanyID, &cityID, &driver.Name, &driver.Phone,
			&email, &vehicleInfo, &driver.Status, &driver.CreatedAt, &driver.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}

		if cityID.Valid {
			driver.CityID = &cityID.String
		}
		if email.Valid {
			driver.Email = &email.String
		}
		if vehicleInfo.Valid {
			driver.VehicleInfo = &vehicleInfo.String
		}

		drivers = append(drivers, driver)
	}

	return drivers, rows.Err()
}
