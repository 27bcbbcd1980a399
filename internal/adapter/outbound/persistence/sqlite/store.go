package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	_ "github.com/mattn/go-sqlite3"

	"github.com/jonny/mediq/internal/adapter/outbound/persistence/sqlite/migration"
)

const memoryPath = ":memory:"

var validJournalModes = map[string]bool{
	"wal": true, "delete": true, "truncate": true,
	"persist": true, "memory": true, "off": true,
}

// Config holds SQLite connection configuration.
type Config struct {
	Path              string
	MaxOpenConns      int
	PragmaJournalMode string
	PragmaBusyTimeout int
}

// Store owns the report archive database.
type Store struct {
	DB *sql.DB
}

// NewStore opens the archive at cfg.Path and brings its schema up to date.
// An in-memory database is pinned to a single connection so every query sees
// the same tables.
func NewStore(cfg Config) (*Store, error) {
	mode := strings.ToLower(cfg.PragmaJournalMode)
	if mode == "" {
		mode = "wal"
	}
	if !validJournalModes[mode] {
		return nil, fmt.Errorf("invalid pragma journal mode: %q", cfg.PragmaJournalMode)
	}
	if cfg.Path == "" {
		return nil, fmt.Errorf("sqlite path is required")
	}

	params := url.Values{}
	params.Set("_journal_mode", mode)
	params.Set("_busy_timeout", strconv.Itoa(cfg.PragmaBusyTimeout))
	params.Set("_foreign_keys", "on")

	db, err := sql.Open("sqlite3", cfg.Path+"?"+params.Encode())
	if err != nil {
		return nil, fmt.Errorf("opening sqlite: %w", err)
	}
	conns := cfg.MaxOpenConns
	if cfg.Path == memoryPath || conns <= 0 {
		conns = 1
	}
	db.SetMaxOpenConns(conns)

	if err := migration.Run(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	return &Store{DB: db}, nil
}

func (s *Store) Ping(ctx context.Context) error { return s.DB.PingContext(ctx) }

func (s *Store) Close() error { return s.DB.Close() }
