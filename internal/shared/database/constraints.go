package database

import (
	"gorm.io/gorm"
)

// MigrateConstraints adds critical database constraints for concurrency control.
// Only Postgres gets them; other dialects rely on the model tags.
func MigrateConstraints(db *gorm.DB) error {
	if db.Dialector.Name() != "postgres" {
		return nil
	}

	statements := []string{
		// A wallet can never go negative, whatever path writes it
		`DO $$ BEGIN
			ALTER TABLE users ADD CONSTRAINT chk_users_wallet_balance_non_negative CHECK (wallet_balance >= 0);
		EXCEPTION WHEN duplicate_object THEN NULL; END $$;`,

		// Seats never exceed capacity
		`DO $$ BEGIN
			ALTER TABLE trips ADD CONSTRAINT chk_trips_available_seats CHECK (available_seats >= 0 AND available_seats <= capacity);
		EXCEPTION WHEN duplicate_object THEN NULL; END $$;`,

		// The expiry sweep only ever scans unpaid bookings
		`CREATE INDEX IF NOT EXISTS idx_bookings_pending_created_at ON bookings (created_at) WHERE status = 'pending';`,
	}

	for _, stmt := range statements {
		if err := db.Exec(stmt).Error; err != nil {
			return err
		}
	}

	return nil
}
