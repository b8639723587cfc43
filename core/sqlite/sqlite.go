// Package sqlite opens SQLite databases through the pure Go
// modernc.org/sqlite driver, so builds need no CGO.
//
// Use Open() instead of sql.Open() to ensure the correct driver is used.
package sqlite

import (
	"database/sql"

	_ "modernc.org/sqlite"
)

const driverName = "sqlite"

// Open opens a SQLite database using the registered driver.
func Open(dataSourceName string) (*sql.DB, error) {
	return sql.Open(driverName, dataSourceName)
}

// OpenReadOnly opens an existing SQLite database in read-only mode.
func OpenReadOnly(path string) (*sql.DB, error) {
	dsn := "file:" + path + "?mode=ro"
	return Open(dsn)
}
