package db

import (
	"github.com/taskstate/tasksync/internal/domain"
	"gorm.io/gorm"
)

func RunMigrations(db *gorm.DB) error {
	if err := db.AutoMigrate(&domain.Task{}); err != nil {
		return err
	}

	return createCustomIndexes(db)
}

func createCustomIndexes(db *gorm.DB) error {
	// Cleanup scans completed tasks by age
	if err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_tasks_completed_created
		ON tasks (created_at)
		WHERE status IN ('done', 'failed', 'skipped')
	`).Error; err != nil {
		return err
	}

	// Display query: unseen tasks and recently seen ones
	if err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_tasks_seen_seen_at
		ON tasks (seen, seen_at)
	`).Error; err != nil {
		return err
	}

	return nil
}
