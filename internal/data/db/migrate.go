package db

import (
	"fmt"

	"gorm.io/gorm"

	types "github.com/yungbote/studybuddy-backend/internal/domain"
)

func AutoMigrateAll(db *gorm.DB) error {
	if err := db.AutoMigrate(types.AllModels()...); err != nil {
		return err
	}
	return EnsureSessionIndexes(db)
}

// EnsureSessionIndexes adds the partial unique index that backs the
// one-active-session-per-user rule. Both postgres and sqlite accept it.
func EnsureSessionIndexes(db *gorm.DB) error {
	if err := db.Exec(`
		CREATE UNIQUE INDEX IF NOT EXISTS idx_sessions_one_active
		ON sessions(user_email)
		WHERE is_active = true;
	`).Error; err != nil {
		return fmt.Errorf("create idx_sessions_one_active: %w", err)
	}
	return nil
}
