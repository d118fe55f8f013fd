package db

import (
	"fmt"

	"gorm.io/gorm"

	types "github.com/yungbote/adaptive-engine/internal/domain"
)

func AutoMigrateAll(db *gorm.DB) error {
	if err := db.AutoMigrate(types.Models()...); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return EnsureIndexes(db)
}

// EnsureIndexes adds indexes gorm tags cannot express.
func EnsureIndexes(db *gorm.DB) error {
	stmts := []struct{ name, sql string }{
		{"idx_activity_param_kind", `CREATE INDEX IF NOT EXISTS idx_activity_param_kind ON activity_param(kind);`},
		{"idx_collection_activity_position", `CREATE INDEX IF NOT EXISTS idx_collection_activity_position ON collection_activity(collection_id, position);`},
	}
	for _, s := range stmts {
		if err := db.Exec(s.sql).Error; err != nil {
			return fmt.Errorf("create %s: %w", s.name, err)
		}
	}
	return nil
}
