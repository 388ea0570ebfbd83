package database

import (
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/fleetride/backoffice/internal/models"
)

// CityRepository handles database operations for the cities table
type CityRepository struct {
	db DB
}

// NewCityRepository creates a new CityRepository
func NewCityRepository(db DB) *CityRepository {
	return &CityRepository{db: db}
}

// Create adds a city
func (r *CityRepository) Create(city *models.City) error {
	query := `
		INSERT INTO cities (id, name)
		VALUES ($1, $2)
		RETURNING created_at
	`

	if city.ID == "" {
		city.ID = uuid.New().String()
	}

	err := r.db.QueryRow(query, city.ID, city.Name).Scan(&city.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create city: %w", err)
	}

	return nil
}

// GetByID retrieves a city by ID, nil when absent
func (r *CityRepository) GetByID(cityID string) (*models.City, error) {
	query := `SELECT id, name, created_at FROM cities WHERE id = $1`
	return r.scanCity(r.db.QueryRow(query, cityID))
}

// GetByName resolves a city by name, case- and whitespace-insensitive.
// Returns nil when no city matches.
func (r *CityRepository) GetByName(name string) (*models.City, error) {
	query := `SELECT id, name, created_at FROM cities WHERE LOWER(TRIM(name)) = LOWER(TRIM($1))`
	return r.scanCity(r.db.QueryRow(query, name))
}

// GetAll retrieves all cities
func (r *CityRepository) GetAll() ([]models.City, error) {
	query := `SELECT id, name, created_at FROM cities ORDER BY name`

	rows, err := r.db.Query(query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	cities := []models.City{}
	for rows.Next() {
		var city models.City
		if err := rows.Scan(&city.ID, &city.Name, &city.CreatedAt); err != nil {
			return nil, err
		}
		cities = append(cities, city)
	}

	return cities, rows.Err()
}

// Delete removes a city
func (r *CityRepository) Delete(cityID string) error {
	result, err := r.db.Exec(`DELETE FROM cities WHERE id = $1`, cityID)
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

func (r *CityRepository) scanCity(row scanner) (*models.City, error) {
	city := &models.City{}

	err := row.Scan(&city.ID, &city.Name, &city.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return city, nil
}
