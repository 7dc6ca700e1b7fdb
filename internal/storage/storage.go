package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

const (
	driverName = "sqlite3"

	// KeyAPIURL stores the API base URL chosen in the console.
	KeyAPIURL = "api_url"

	// fixed width so created_at sorts lexically
	timeLayout = "2006-01-02T15:04:05.000000000Z07:00"
)

// Store wraps the SQLite database and exposes higher-level helpers.
type Store struct {
	db   *sql.DB
	path string
}

// Activity is one journaled console event.
type Activity struct {
	ID        int64
	Kind      string
	AccountID sql.NullInt64
	Title     string
	Details   string
	CreatedAt time.Time
}

// Activity kinds.
const (
	KindSuccess = "success"
	KindError   = "error"
	KindImport  = "import"
)

var (
	// ErrNotFound indicates the requested record does not exist.
	ErrNotFound = errors.New("record not found")
)

// Open bootstraps the SQLite store at path, creating parent directories.
func Open(ctx context.Context, path string) (*Store, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("storage path required")
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}

	db, err := sql.Open(driverName, path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	store := &Store{db: db, path: path}
	if err := store.migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

// Close releases DB resources.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file location.
func (s *Store) Path() string {
	return s.path
}

func (s *Store) migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS settings (
            key TEXT PRIMARY KEY,
            value TEXT NOT NULL,
            updated_at TEXT NOT NULL
        );`,
		`CREATE TABLE IF NOT EXISTS activities (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            kind TEXT NOT NULL,
            account_id INTEGER,
            title TEXT NOT NULL,
            details TEXT,
            created_at TEXT NOT NULL
        );`,
		`CREATE INDEX IF NOT EXISTS idx_activities_account ON activities(account_id, created_at);`,
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin migrations: %w", err)
	}
	for _, stmt := range stmts {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			tx.Rollback()
			return fmt.Errorf("migrate: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit migrations: %w", err)
	}
	return nil
}

// Setting returns the stored value for key or ErrNotFound.
func (s *Store) Setting(ctx context.Context, key string) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM settings WHERE key = ?`, key).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("get setting %s: %w", key, err)
	}
	return value, nil
}

// SetSetting inserts or replaces a setting.
func (s *Store) SetSetting(ctx context.Context, key, value string) error {
	if strings.TrimSpace(key) == "" {
		return fmt.Errorf("setting key required")
	}
	_, err := s.db.ExecContext(ctx, `INSERT INTO settings (key, value, updated_at) VALUES (?, ?, ?)
        ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("save setting %s: %w", key, err)
	}
	return nil
}

// DeleteSetting removes a setting. Missing keys are not an error.
func (s *Store) DeleteSetting(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM settings WHERE key = ?`, key); err != nil {
		return fmt.Errorf("delete setting %s: %w", key, err)
	}
	return nil
}

// APIBaseURL returns the persisted API base URL, or fallback when none was saved.
func (s *Store) APIBaseURL(ctx context.Context, fallback string) (string, error) {
	value, err := s.Setting(ctx, KeyAPIURL)
	if errors.Is(err, ErrNotFound) || (err == nil && strings.TrimSpace(value) == "") {
		return fallback, nil
	}
	if err != nil {
		return "", err
	}
	return value, nil
}

// SetAPIBaseURL persists the API base URL. The running client is unaffected.
func (s *Store) SetAPIBaseURL(ctx context.Context, url string) error {
	url = strings.TrimSpace(url)
	if url == "" {
		return fmt.Errorf("api url required")
	}
	return s.SetSetting(ctx, KeyAPIURL, url)
}

// RecordActivity appends an entry to the journal.
func (s *Store) RecordActivity(ctx context.Context, a *Activity) error {
	if a == nil {
		return fmt.Errorf("nil activity")
	}
	if strings.TrimSpace(a.Title) == "" {
		return fmt.Errorf("activity title required")
	}
	if a.Kind == "" {
		a.Kind = KindSuccess
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}
	res, err := s.db.ExecContext(ctx, `INSERT INTO activities (kind, account_id, title, details, created_at) VALUES (?, ?, ?, ?, ?)`,
		a.Kind, nullInt64(a.AccountID), a.Title, nullString(a.Details), a.CreatedAt.UTC().Format(timeLayout))
	if err != nil {
		return fmt.Errorf("insert activity: %w", err)
	}
	if id, err := res.LastInsertId(); err == nil {
		a.ID = id
	}
	return nil
}

// ListActivities returns the journal newest first.
func (s *Store) ListActivities(ctx context.Context, limit int) ([]Activity, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `SELECT id, kind, account_id, title, details, created_at
        FROM activities ORDER BY created_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query activities: %w", err)
	}
	return scanActivities(rows)
}

// ListAccountActivity returns journal entries tied to one account.
func (s *Store) ListAccountActivity(ctx context.Context, accountID int64, limit int) ([]Activity, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `SELECT id, kind, account_id, title, details, created_at
        FROM activities WHERE account_id = ? ORDER BY created_at DESC, id DESC LIMIT ?`, accountID, limit)
	if err != nil {
		return nil, fmt.Errorf("query account activity: %w", err)
	}
	return scanActivities(rows)
}

func scanActivities(rows *sql.Rows) ([]Activity, error) {
	defer rows.Close()

	var activities []Activity
	for rows.Next() {
		var a Activity
		var details sql.NullString
		var created string
		if err := rows.Scan(&a.ID, &a.Kind, &a.AccountID, &a.Title, &details, &created); err != nil {
			return nil, fmt.Errorf("scan activity: %w", err)
		}
		a.Details = nullStringToString(details)
		if t, err := time.Parse(timeLayout, created); err == nil {
			a.CreatedAt = t
		}
		activities = append(activities, a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return activities, nil
}

// AccountRef builds a nullable account reference; ids <= 0 mean none.
func AccountRef(id int64) sql.NullInt64 {
	if id <= 0 {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: id, Valid: true}
}

func nullStringToString(ns sql.NullString) string {
	if ns.Valid {
		return ns.String
	}
	return ""
}

func nullString(s string) interface{} {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return s
}

func nullInt64(v sql.NullInt64) interface{} {
	if !v.Valid {
		return nil
	}
	return v.Int64
}
