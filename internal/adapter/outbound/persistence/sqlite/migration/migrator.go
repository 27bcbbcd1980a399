package migration

import (
	"database/sql"
	"embed"
	"fmt"
	"strings"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

const createVersionTable = `CREATE TABLE IF NOT EXISTS schema_migrations (
	version    TEXT PRIMARY KEY,
	applied_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
)`

// Run applies the embedded migrations that are not yet recorded in
// schema_migrations, in lexicographic order, each in its own transaction.
func Run(db *sql.DB) error {
	if _, err := db.Exec(createVersionTable); err != nil {
		return fmt.Errorf("creating schema_migrations: %w", err)
	}

	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("reading migrations: %w", err)
	}
	for _, entry := range entries {
		version := strings.TrimSuffix(entry.Name(), ".sql")

		var applied int
		if err := db.QueryRow(`SELECT COUNT(*) FROM schema_migrations WHERE version = ?`, version).Scan(&applied); err != nil {
			return fmt.Errorf("checking %s: %w", version, err)
		}
		if applied > 0 {
			continue
		}

		data, err := migrationsFS.ReadFile("migrations/" + entry.Name())
		if err != nil {
			return fmt.Errorf("reading %s: %w", entry.Name(), err)
		}
		if err := apply(db, version, string(data)); err != nil {
			return err
		}
	}
	return nil
}

func apply(db *sql.DB, version, stmts string) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("beginning %s: %w", version, err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(stmts); err != nil {
		return fmt.Errorf("executing %s: %w", version, err)
	}
	if _, err := tx.Exec(`INSERT INTO schema_migrations (version) VALUES (?)`, version); err != nil {
		return fmt.Errorf("recording %s: %w", version, err)
	}
	return tx.Commit()
}
