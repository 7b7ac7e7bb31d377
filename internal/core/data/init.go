// Package data contains the database model and query helpers for the
// persisted account state: credentials, cumulative scores, and the
// friendship relation.
package data

import (
	"fmt"

	"gorm.io/gorm"
)

// Initialize runs the schema migrations against an open database handle.
func Initialize(db *gorm.DB) error {
	if err := db.AutoMigrate(&Account{}, &Friendship{}); err != nil {
		return fmt.Errorf("error auto migrating db: %w", err)
	}
	return nil
}

// Shutdown closes the underlying database connection.
func Shutdown(db *gorm.DB) error {
	database, err := db.DB()
	if err != nil {
		return fmt.Errorf("error while getting current connection: %w", err)
	}
	if err := database.Close(); err != nil {
		return fmt.Errorf("error while closing database connection: %w", err)
	}
	return nil
}
