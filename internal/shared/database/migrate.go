package database

import (
	"gorm.io/gorm"
)

// Migrate creates or updates the tables for models and then adds the
// constraints AutoMigrate cannot express.
func Migrate(db *gorm.DB, models ...interface{}) error {
	if len(models) == 0 {
		return nil
	}
	if err := db.AutoMigrate(models...); err != nil {
		return err
	}
	return MigrateConstraints(db)
}
