// Package requestlog journals every notification the API receives, so that
// unmatched formats can be collected and replayed offline.
package requestlog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// Status is the outcome recorded for a request.
type Status string

const (
	StatusUnmatched  Status = "unmatched"
	StatusInvalid    Status = "invalid"
	StatusQueued     Status = "queued"
	StatusSaved      Status = "saved"
	StatusSinkFailed Status = "sink_failed"
)

const (
	defaultListLimit = 50
	maxListLimit     = 500
)

// ErrNotFound is returned for an unknown entry id.
var ErrNotFound = errors.New("request log entry not found")

// Entry is one journaled request.
type Entry struct {
	ID         string    `json:"id"`
	Package    string    `json:"package"`
	Text       string    `json:"text"`
	ReceivedAt time.Time `json:"received_at"`
	Status     Status    `json:"status"`
	SinkID     string    `json:"sink_id,omitempty"`
	Error      string    `json:"error,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Filter narrows List results. Limit is clamped to [1, 500], default 50.
type Filter struct {
	Status  Status
	Package string
	Limit   int
}

// Store is the SQLite-backed journal.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens (creating if needed) the journal at dbPath and migrates it.
func Open(dbPath string) (*Store, error) {
	if dir := filepath.Dir(dbPath); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	// SQLite allows one writer; serialise through a single connection.
	db.SetMaxOpenConns(1)

	return &Store{db: db, now: time.Now}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Record inserts e and returns its id, generating one when e.ID is empty.
func (s *Store) Record(ctx context.Context, e Entry) (string, error) {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	now := s.now().UnixMilli()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO requests (id, package, text, received_at, status, sink_id, error, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.Package, e.Text, e.ReceivedAt.UnixMilli(), string(e.Status), e.SinkID, e.Error, now, now,
	)
	if err != nil {
		return "", fmt.Errorf("Record: %w", err)
	}

	return e.ID, nil
}

// UpdateStatus sets the outcome of an existing entry.
func (s *Store) UpdateStatus(ctx context.Context, id string, status Status, sinkID, errMsg string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE requests SET status = ?, sink_id = ?, error = ?, updated_at = ?
		WHERE id = ?`,
		string(status), sinkID, errMsg, s.now().UnixMilli(), id,
	)
	if err != nil {
		return fmt.Errorf("UpdateStatus: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("UpdateStatus: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("UpdateStatus: %w: %s", ErrNotFound, id)
	}

	return nil
}

// Get returns a single entry.
func (s *Store) Get(ctx context.Context, id string) (*Entry, error) {
	row := s.db.QueryRowContext(ctx, selectEntries+` WHERE id = ?`, id)

	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("Get: %w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("Get: %w", err)
	}

	return e, nil
}

// List returns entries matching f, most recently received first.
func (s *Store) List(ctx context.Context, f Filter) ([]*Entry, error) {
	var (
		where []string
		args  []any
	)
	if f.Status != "" {
		where = append(where, "status = ?")
		args = append(args, string(f.Status))
	}
	if f.Package != "" {
		where = append(where, "package = ?")
		args = append(args, f.Package)
	}

	query := selectEntries
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY received_at DESC, created_at DESC, id LIMIT ?"
	args = append(args, clampLimit(f.Limit))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("List: %w", err)
	}
	defer rows.Close()

	entries := []*Entry{}
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("List: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("List: %w", err)
	}

	return entries, nil
}

const selectEntries = `SELECT id, package, text, received_at, status, sink_id, error, created_at, updated_at FROM requests`

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(sc scanner) (*Entry, error) {
	var (
		e                               Entry
		status                          string
		receivedAt, createdAt, updatedAt int64
	)
	if err := sc.Scan(&e.ID, &e.Package, &e.Text, &receivedAt, &status, &e.SinkID, &e.Error, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	e.Status = Status(status)
	e.ReceivedAt = time.UnixMilli(receivedAt).UTC()
	e.CreatedAt = time.UnixMilli(createdAt).UTC()
	e.UpdatedAt = time.UnixMilli(updatedAt).UTC()
	return &e, nil
}

func clampLimit(n int) int {
	switch {
	case n <= 0:
		return defaultListLimit
	case n > maxListLimit:
		return maxListLimit
	default:
		return n
	}
}
