package migration_1

import (
	"fmt"

	"gorm.io/gorm"
)

type ChatTurn struct {
	Failed bool `gorm:"default:false"`
}

func Migration(db *gorm.DB) error {
	if err := db.Migrator().AddColumn(&ChatTurn{}, "failed"); err != nil {
		return fmt.Errorf("error adding Failed column: %w", err)
	}

	if err := db.Model(&ChatTurn{}).
		Where("failed IS NULL").
		Update("failed", false).Error; err != nil {
		return fmt.Errorf("error setting default value for Failed: %w", err)
	}

	return nil
}

func Rollback(db *gorm.DB) error {
	if err := db.Migrator().DropColumn(&ChatTurn{}, "Failed"); err != nil {
		return fmt.Errorf("error dropping Failed column: %w", err)
	}

	return nil
}
