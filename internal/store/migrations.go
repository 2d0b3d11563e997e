package store

import (
	"database/sql"
	"fmt"

	"postdeck/internal/logging"
)

// CurrentSchemaVersion is recorded in PRAGMA user_version.
//
// v1: positions, sessions(id, post_id, started_at)
// v2: sessions.ended_at and sessions.fragment
const CurrentSchemaVersion = 2

// Migration adds a column missing from databases created by older versions.
type Migration struct {
	Table  string
	Column string
	Def    string
}

// pendingMigrations handles tables that exist but predate newer columns.
var pendingMigrations = []Migration{
	{"sessions", "ended_at", "DATETIME"},
	{"sessions", "fragment", "TEXT NOT NULL DEFAULT ''"},
}

// RunMigrations applies column migrations and stamps the schema version.
func RunMigrations(db *sql.DB) (applied int, err error) {
	for _, m := range pendingMigrations {
		if !tableExists(db, m.Table) || columnExists(db, m.Table, m.Column) {
			continue
		}
		query := fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s", m.Table, m.Column, m.Def)
		if _, err := db.Exec(query); err != nil {
			return applied, fmt.Errorf("migration %s.%s: %w", m.Table, m.Column, err)
		}
		logging.Store("migration applied: added %s.%s", m.Table, m.Column)
		applied++
	}
	if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", CurrentSchemaVersion)); err != nil {
		return applied, fmt.Errorf("failed to record schema version: %w", err)
	}
	return applied, nil
}

// SchemaVersion returns PRAGMA user_version.
func SchemaVersion(db *sql.DB) (int, error) {
	var v int
	err := db.QueryRow("PRAGMA user_version").Scan(&v)
	return v, err
}

// columnExists checks if a column exists in a table using PRAGMA table_info.
func columnExists(db *sql.DB, table, column string) bool {
	rows, err := db.Query(fmt.Sprintf("PRAGMA table_info(%s)", table))
	if err != nil {
		logging.Get(logging.CategoryStore).Debug("PRAGMA table_info(%s) failed: %v", table, err)
		return false
	}
	defer rows.Close()

	for rows.Next() {
		var (
			cid, notnull, pk int
			name, ctype      string
			dflt             interface{}
		)
		if err := rows.Scan(&cid, &name, &ctype, &notnull, &dflt, &pk); err != nil {
			continue
		}
		if name == column {
			return true
		}
	}
	return false
}

// tableExists checks if a table exists in the database.
func tableExists(db *sql.DB, table string) bool {
	var count int
	query := "SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?"
	if err := db.QueryRow(query, table).Scan(&count); err != nil {
		return false
	}
	return count > 0
}
