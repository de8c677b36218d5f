package db

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/yungbote/imagerate-backend/internal/domain"
)

func AutoMigrateAll(db *gorm.DB) error {
	return db.AutoMigrate(domain.Models()...)
}

// ResetAll drops evaluations, sync state and assets together, then recreates
// the schema. Asset ids restart from 1 afterwards, so existing evaluations
// would dangle if they were kept; they never are.
func ResetAll(db *gorm.DB) error {
	models := domain.Models()
	// Reverse dependency order: evaluations reference assets.
	for i := len(models) - 1; i >= 0; i-- {
		if err := db.Migrator().DropTable(models[i]); err != nil {
			return fmt.Errorf("drop %T: %w", models[i], err)
		}
	}
	return AutoMigrateAll(db)
}
