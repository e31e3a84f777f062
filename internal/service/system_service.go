package service

import (
	"database/sql"
	"fmt"

	"github.com/titancoder666/polymarket-tax-engine/internal/apperrors"
	"github.com/titancoder666/polymarket-tax-engine/internal/database"
)

// SystemService handles system-related operations
type SystemService struct {
	db *sql.DB
}

// NewSystemService creates a new SystemService
func NewSystemService(db *sql.DB) *SystemService {
	return &SystemService{
		db: db,
	}
}

// CheckHealth checks the health of the system
func (s *SystemService) CheckHealth() error {
	if err := database.HealthCheck(s.db); err != nil {
		return fmt.Errorf("%w: %w", apperrors.ErrFailedToCheckHealth, err)
	}
	return nil
}
