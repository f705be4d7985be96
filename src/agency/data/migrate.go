package data

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/stake-plus/cat-agency/src/agency/types"
)

var allModels = []interface{}{
	&types.Agent{}, &types.Mission{}, &types.Target{},
}

// Migrate creates or updates the agency schema.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(allModels...); err != nil {
		return fmt.Errorf("auto-migrate: %w", err)
	}
	return nil
}
