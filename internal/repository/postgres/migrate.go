package postgres

import (
	"fmt"

	"banditArena/domain"

	"gorm.io/gorm"
)

// Migrate creates or updates the result and progress tables.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&domain.TrialResult{}, &domain.TaskProgress{}); err != nil {
		return fmt.Errorf("failed to migrate: %w", err)
	}
	return nil
}
