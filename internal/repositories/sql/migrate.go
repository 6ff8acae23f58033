// Package sql wires the sqlite schema for the repositories beneath it.
package sql

import (
	"gorm.io/gorm"

	"github.com/william-ls-liu/evaluating-psi/internal/repositories/sql/session"
	"github.com/william-ls-liu/evaluating-psi/internal/repositories/sql/trial"
)

// Migrate creates or updates the tables for every repository entity.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&session.Session{},
		&trial.Trial{},
	)
}
