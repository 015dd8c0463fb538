package database

import (
	"fmt"

	"github.com/xpanvictor/interm/internal/repository/contextstore"
	"gorm.io/gorm"
)

func MigrateDB(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&contextstore.ContextEntity{},
		&contextstore.SessionTimingEntity{},
	); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return nil
}
