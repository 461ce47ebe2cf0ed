package store

import (
	"context"
	"database/sql"
	"fmt"
)

// ExpectedSchemaVersion is the schema version this build requires.
const ExpectedSchemaVersion = 3

// Migration is one schema step.
type Migration struct {
	Up          func(*sql.Tx) error
	Description string
	Version     int
}

var migrations = []Migration{
	{
		Version:     1,
		Description: "Catalog tables",
		Up: func(tx *sql.Tx) error {
			return execAll(tx,
				`CREATE TABLE IF NOT EXISTS category (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					name TEXT UNIQUE NOT NULL,
					displayname TEXT NOT NULL DEFAULT '',
					displayorder INTEGER NOT NULL DEFAULT 0,
					css TEXT NOT NULL DEFAULT '',
					timemodified DATETIME DEFAULT CURRENT_TIMESTAMP
				)`,
				`CREATE TABLE IF NOT EXISTS component (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					name TEXT UNIQUE NOT NULL,
					displayname TEXT NOT NULL DEFAULT '',
					compcat INTEGER NOT NULL DEFAULT 0,
					imageclass TEXT NOT NULL DEFAULT '',
					code TEXT NOT NULL DEFAULT '',
					text TEXT NOT NULL DEFAULT '',
					variants TEXT NOT NULL DEFAULT '',
					displayorder INTEGER NOT NULL DEFAULT 0,
					css TEXT NOT NULL DEFAULT '',
					js TEXT NOT NULL DEFAULT '',
					iconurl TEXT NOT NULL DEFAULT '',
					hideforstudents INTEGER NOT NULL DEFAULT 0,
					timemodified DATETIME DEFAULT CURRENT_TIMESTAMP
				)`,
				`CREATE INDEX IF NOT EXISTS idx_component_compcat ON component(compcat)`,
				`CREATE TABLE IF NOT EXISTS flavor (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					name TEXT UNIQUE NOT NULL,
					displayname TEXT NOT NULL DEFAULT '',
					content TEXT NOT NULL DEFAULT '',
					css TEXT NOT NULL DEFAULT '',
					variants TEXT NOT NULL DEFAULT '',
					hideforstudents INTEGER NOT NULL DEFAULT 0,
					timemodified DATETIME DEFAULT CURRENT_TIMESTAMP
				)`,
				`CREATE TABLE IF NOT EXISTS variant (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					name TEXT UNIQUE NOT NULL,
					displayname TEXT NOT NULL DEFAULT '',
					content TEXT NOT NULL DEFAULT '',
					css TEXT NOT NULL DEFAULT '',
					iconurl TEXT NOT NULL DEFAULT '',
					timemodified DATETIME DEFAULT CURRENT_TIMESTAMP
				)`,
			)
		},
	},
	{
		Version:     2,
		Description: "Component flavor relation with per-pair icons",
		Up: func(tx *sql.Tx) error {
			return execAll(tx,
				`CREATE TABLE IF NOT EXISTS comp_flavor (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					componentname TEXT NOT NULL,
					flavorname TEXT NOT NULL,
					iconurl TEXT NOT NULL DEFAULT '',
					UNIQUE(componentname, flavorname)
				)`,
				`CREATE INDEX IF NOT EXISTS idx_comp_flavor_flavor ON comp_flavor(flavorname)`,
			)
		},
	},
	{
		Version:     3,
		Description: "User preferences",
		Up: func(tx *sql.Tx) error {
			return execAll(tx,
				`CREATE TABLE IF NOT EXISTS preference (
					userid INTEGER NOT NULL,
					name TEXT NOT NULL,
					value TEXT NOT NULL DEFAULT '',
					timemodified DATETIME DEFAULT CURRENT_TIMESTAMP,
					PRIMARY KEY (userid, name)
				)`,
			)
		},
	},
}

func execAll(tx *sql.Tx, queries ...string) error {
	for _, query := range queries {
		if _, err := tx.Exec(query); err != nil {
			return fmt.Errorf("failed to execute query: %w", err)
		}
	}
	return nil
}

// Migrate applies all pending migrations.
func (s *Store) Migrate(ctx context.Context) error {
	var current int
	if err := s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&current); err != nil {
		return fmt.Errorf("failed to get schema version: %w", err)
	}

	for _, m := range migrations {
		if m.Version <= current {
			continue
		}
		err := s.inTx(ctx, func(tx *sql.Tx) error {
			if err := m.Up(tx); err != nil {
				return fmt.Errorf("migration %d failed: %w", m.Version, err)
			}
			if _, err := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", m.Version)); err != nil {
				return fmt.Errorf("failed to update schema version: %w", err)
			}
			return nil
		})
		if err != nil {
			return err
		}
		s.logger.Info("Applied migration", "version", m.Version, "description", m.Description)
	}

	var final int
	if err := s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&final); err != nil {
		return fmt.Errorf("failed to verify final schema version: %w", err)
	}
	if final != ExpectedSchemaVersion {
		return fmt.Errorf("database schema version mismatch: expected %d, got %d", ExpectedSchemaVersion, final)
	}
	return nil
}

// SchemaVersion returns the database's current schema version.
func (s *Store) SchemaVersion(ctx context.Context) (int, error) {
	var v int
	if err := s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&v); err != nil {
		return 0, fmt.Errorf("failed to get schema version: %w", err)
	}
	return v, nil
}
