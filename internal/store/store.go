// Package store persists organizations, branding, report snapshots with
// their AI interpretation, and PDF/e-mail delivery logs in SQLite.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"ipo-report-go/internal/logger"
)

var ErrNotFound = errors.New("store: not found")

// Store wraps the database handle.
type Store struct {
	db  *sql.DB
	log *logger.Logger
	now func() time.Time
}

// Open creates the database file (and its directory) when missing and runs
// the migrations.
func Open(ctx context.Context, path string, log *logger.Logger) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create data directory: %w", err)
		}
	}
	dsn := path + "?_pragma=journal_mode(WAL)&_pragma=foreign_keys(ON)&_pragma=busy_timeout(5000)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// sqlite serializes writers; one connection avoids SQLITE_BUSY churn
	db.SetMaxOpenConns(1)
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	s := &Store{db: db, log: log.WithComponent("store"), now: time.Now}
	if err := s.migrate(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	s.log.WithField("path", path).Info("database ready")
	return s, nil
}

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) migrate(ctx context.Context) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS organizations (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL UNIQUE,
			industry TEXT NOT NULL DEFAULT '',
			contact_email TEXT NOT NULL DEFAULT '',
			created_at INTEGER NOT NULL,
			updated_at INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS branding_configs (
			organization_id INTEGER PRIMARY KEY REFERENCES organizations(id) ON DELETE CASCADE,
			primary_color TEXT NOT NULL DEFAULT '',
			secondary_color TEXT NOT NULL DEFAULT '',
			accent_color TEXT NOT NULL DEFAULT '',
			font_family TEXT NOT NULL DEFAULT '',
			custom_css TEXT NOT NULL DEFAULT '',
			logo BLOB,
			updated_at INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS reports (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			organization_name TEXT NOT NULL,
			unit_name TEXT NOT NULL,
			data_hash TEXT NOT NULL,
			record_json TEXT NOT NULL DEFAULT '',
			ai_analysis TEXT NOT NULL DEFAULT '',
			created_at INTEGER NOT NULL,
			updated_at INTEGER NOT NULL,
			UNIQUE(organization_name, data_hash)
		)`,
		`CREATE TABLE IF NOT EXISTS pdf_generations (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id TEXT NOT NULL,
			unit_name TEXT NOT NULL,
			file_name TEXT NOT NULL,
			size_bytes INTEGER NOT NULL DEFAULT 0,
			duration_ms INTEGER NOT NULL DEFAULT 0,
			status TEXT NOT NULL,
			error TEXT NOT NULL DEFAULT '',
			created_at INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS email_logs (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id TEXT NOT NULL,
			recipients TEXT NOT NULL,
			subject TEXT NOT NULL,
			attachments INTEGER NOT NULL DEFAULT 0,
			status TEXT NOT NULL,
			error TEXT NOT NULL DEFAULT '',
			created_at INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_reports_created ON reports(created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_pdf_created ON pdf_generations(created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_email_created ON email_logs(created_at)`,
	}
	for _, q := range queries {
		if _, err := s.db.ExecContext(ctx, q); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) stamp() int64 { return s.now().UnixMilli() }

func fromStamp(ms int64) time.Time { return time.UnixMilli(ms).UTC() }
