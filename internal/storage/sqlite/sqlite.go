// Package sqlite holds the embedded job database.
package sqlite

import (
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite" // Register sqlite driver
)

//go:embed migrations/001_jobs.sql
var migration string

const memoryDSN = ":memory:"

type DB struct {
	*sqlx.DB
}

// Open opens the job database at path. A file that exists but cannot be read
// as a database is moved aside as <name>-corrupted-<timestamp><ext> and a
// fresh database is created in its place.
func Open(path string, logger *slog.Logger) (*DB, error) {
	if path != memoryDSN {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create database dir: %w", err)
		}
	}

	db, err := open(path)
	if err == nil {
		return db, nil
	}
	if path == memoryDSN {
		return nil, err
	}
	if _, statErr := os.Stat(path); statErr != nil {
		return nil, err
	}

	backup, mvErr := quarantine(path, time.Now().UTC())
	if mvErr != nil {
		return nil, errors.Join(err, mvErr)
	}
	logger.Warn("job database unreadable, starting fresh",
		"path", path,
		"backup", backup,
		"error", err,
	)

	return open(path)
}

func open(dsn string) (*DB, error) {
	db, err := sqlx.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// every update runs in a transaction on this single connection
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
	} {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("exec %s: %w", pragma, err)
		}
	}

	var check string
	if err := db.Get(&check, "PRAGMA integrity_check"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("integrity check: %w", err)
	}
	if check != "ok" {
		_ = db.Close()
		return nil, fmt.Errorf("integrity check: %s", check)
	}

	if _, err := db.Exec(migration); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return &DB{db}, nil
}

func quarantine(path string, now time.Time) (string, error) {
	ext := filepath.Ext(path)
	backup := fmt.Sprintf("%s-corrupted-%s%s", strings.TrimSuffix(path, ext), now.Format("20060102T150405Z"), ext)

	if err := os.Rename(path, backup); err != nil {
		return "", fmt.Errorf("move corrupted database: %w", err)
	}
	for _, suffix := range []string{"-wal", "-shm"} {
		_ = os.Remove(path + suffix)
	}
	return backup, nil
}
