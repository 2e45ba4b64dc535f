// Package sqlite opens SQLite databases through whichever driver the build
// selected.
//
// Build modes:
//   - Default: pure Go modernc.org/sqlite, no CGO required
//   - CGO (-tags cgo_sqlite): github.com/mattn/go-sqlite3
//
// Use Open instead of sql.Open so the driver name always matches the build.
package sqlite

import (
	"database/sql"
	"net/url"
	"strings"
)

// DriverName returns the database/sql driver name for this build.
func DriverName() string {
	return driverName
}

// DriverType returns "cgo" for mattn/go-sqlite3 and "purego" for
// modernc.org/sqlite.
func DriverType() string {
	return driverType
}

// IsCGO reports whether the CGO driver is compiled in.
func IsCGO() bool {
	return driverType == "cgo"
}

// Open opens the database at path, creating it if needed. Foreign keys are
// enforced and writers wait up to five seconds for a lock.
//
// The pool holds a single connection so per-connection pragmas apply to
// every statement and ":memory:" names one database.
func Open(path string) (*sql.DB, error) {
	db, err := sql.Open(driverName, path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	for _, pragma := range []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, err
		}
	}
	return db, nil
}

// OpenReadOnly opens an existing database without write access.
func OpenReadOnly(path string) (*sql.DB, error) {
	return sql.Open(driverName, fileURI(path)+"?mode=ro")
}

func fileURI(path string) string {
	if strings.HasPrefix(path, "file:") {
		return path
	}
	return "file:" + (&url.URL{Path: path}).EscapedPath()
}

// Info describes the compiled-in driver.
type Info struct {
	DriverName string `json:"driver_name"`
	DriverType string `json:"driver_type"`
	IsCGO      bool   `json:"is_cgo"`
	Package    string `json:"package"`
}

// GetInfo returns the compiled-in driver's details.
func GetInfo() Info {
	return Info{
		DriverName: driverName,
		DriverType: driverType,
		IsCGO:      IsCGO(),
		Package:    driverPackage,
	}
}
