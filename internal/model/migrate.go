package model

import "gorm.io/gorm"

// AutoMigrate runs GORM auto-migration for all models and creates custom indexes.
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&User{},
		&InviteCode{},
		&Constituency{},
		&Result{},
		&Contact{},
	); err != nil {
		return err
	}

	// Unique phone for non-soft-deleted users.
	if err := db.Exec(
		"CREATE UNIQUE INDEX IF NOT EXISTS idx_users_phone " +
			"ON users (phone) WHERE deleted_at IS NULL",
	).Error; err != nil {
		return err
	}

	// One row per (constituency, year, party): dataset reloads upsert on this.
	return db.Exec(
		"CREATE UNIQUE INDEX IF NOT EXISTS idx_results_constituency_year_party " +
			"ON results (constituency_code, year, party)",
	).Error
}
