// Package history records update checks and downloads in a local SQLite
// database so the CLI can throttle checks and list past downloads.
package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"appupdater/internal/debug"
	apperrors "appupdater/internal/errors"
)

var logf = debug.For("history")

const schema = `
	CREATE TABLE IF NOT EXISTS checks (
		id TEXT PRIMARY KEY,
		owner TEXT NOT NULL,
		repo TEXT NOT NULL,
		current_version TEXT NOT NULL,
		result TEXT NOT NULL,
		found_version TEXT NOT NULL DEFAULT '',
		message TEXT NOT NULL DEFAULT '',
		checked_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS checks_channel ON checks (owner, repo, checked_at);

	CREATE TABLE IF NOT EXISTS downloads (
		id TEXT PRIMARY KEY,
		owner TEXT NOT NULL,
		repo TEXT NOT NULL,
		version TEXT NOT NULL,
		asset TEXT NOT NULL,
		path TEXT NOT NULL,
		size INTEGER NOT NULL DEFAULT 0,
		downloaded_at TEXT NOT NULL
	);
`

// timeLayout sorts lexically in chronological order.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Check is one completed update check.
type Check struct {
	ID             string
	Owner          string
	Repo           string
	CurrentVersion string
	Result         string // state kind the check ended in
	FoundVersion   string
	Message        string
	CheckedAt      time.Time
}

// Download is one asset written to disk.
type Download struct {
	ID           string
	Owner        string
	Repo         string
	Version      string
	Asset        string
	Path         string
	Size         int64
	DownloadedAt time.Time
}

// Store is a handle on the history database. It is safe for concurrent use.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the time source used to stamp new entries.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// Open opens (creating if needed) the database at path and applies the schema.
func Open(ctx context.Context, path string, opts ...Option) (*Store, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, apperrors.New(apperrors.CodeConfig, "history path must not be blank", nil)
	}
	//nolint:gosec // G301: data directory needs standard permissions
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, storageError("create history directory", err)
	}

	db, err := sql.Open("sqlite", buildDSN(path))
	if err != nil {
		return nil, storageError("open history db", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, storageError("ping history db", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, storageError("apply history schema", err)
	}

	s := &Store{db: db, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	logf("opened %s", path)
	return s, nil
}

// buildDSN creates a read-write WAL DSN for the given path.
func buildDSN(path string) string {
	u := url.URL{
		Scheme: "file",
		Path:   filepath.ToSlash(path),
	}
	q := url.Values{}
	q.Add("_pragma", "busy_timeout(3000)")
	q.Add("_pragma", "journal_mode(WAL)")
	u.RawQuery = q.Encode()
	return u.String()
}

// Close releases the database.
func (s *Store) Close() error {
	if err := s.db.Close(); err != nil {
		return storageError("close history db", err)
	}
	return nil
}

// RecordCheck stores c, assigning an ID and timestamp when unset, and returns
// the stored entry.
func (s *Store) RecordCheck(ctx context.Context, c Check) (Check, error) {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.CheckedAt.IsZero() {
		c.CheckedAt = s.now()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO checks (id, owner, repo, current_version, result, found_version, message, checked_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, c.ID, c.Owner, c.Repo, c.CurrentVersion, c.Result, c.FoundVersion, c.Message, formatTime(c.CheckedAt))
	if err != nil {
		return Check{}, storageError("insert check", err)
	}
	return c, nil
}

// LastCheck returns the most recent check for owner/repo. The bool is false
// when the channel has never been checked.
func (s *Store) LastCheck(ctx context.Context, owner, repo string) (Check, bool, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, owner, repo, current_version, result, found_version, message, checked_at
		FROM checks
		WHERE owner = ? AND repo = ?
		ORDER BY checked_at DESC
		LIMIT 1
	`, owner, repo)

	var (
		c         Check
		checkedAt string
	)
	err := row.Scan(&c.ID, &c.Owner, &c.Repo, &c.CurrentVersion, &c.Result, &c.FoundVersion, &c.Message, &checkedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Check{}, false, nil
	}
	if err != nil {
		return Check{}, false, storageError("query last check", err)
	}
	if c.CheckedAt, err = parseTime(checkedAt); err != nil {
		return Check{}, false, storageError("parse checked_at", err)
	}
	return c, true, nil
}

// CheckedWithin reports whether owner/repo was last checked less than
// interval ago. A non-positive interval always reports false.
func (s *Store) CheckedWithin(ctx context.Context, owner, repo string, interval time.Duration) (bool, error) {
	if interval <= 0 {
		return false, nil
	}
	last, ok, err := s.LastCheck(ctx, owner, repo)
	if err != nil || !ok {
		return false, err
	}
	return s.now().Sub(last.CheckedAt) < interval, nil
}

// RecordDownload stores d, assigning an ID and timestamp when unset, and
// returns the stored entry.
func (s *Store) RecordDownload(ctx context.Context, d Download) (Download, error) {
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	if d.DownloadedAt.IsZero() {
		d.DownloadedAt = s.now()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO downloads (id, owner, repo, version, asset, path, size, downloaded_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, d.ID, d.Owner, d.Repo, d.Version, d.Asset, d.Path, max(d.Size, 0), formatTime(d.DownloadedAt))
	if err != nil {
		return Download{}, storageError("insert download", err)
	}
	return d, nil
}

// Downloads returns up to limit downloads, newest first. A non-positive
// limit returns every entry.
func (s *Store) Downloads(ctx context.Context, limit int) ([]Download, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, owner, repo, version, asset, path, size, downloaded_at
		FROM downloads
		ORDER BY downloaded_at DESC, id
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, storageError("query downloads", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var out []Download
	for rows.Next() {
		var (
			d  Download
			at string
		)
		if err := rows.Scan(&d.ID, &d.Owner, &d.Repo, &d.Version, &d.Asset, &d.Path, &d.Size, &at); err != nil {
			return nil, storageError("scan download", err)
		}
		if d.DownloadedAt, err = parseTime(at); err != nil {
			return nil, storageError("parse downloaded_at", err)
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, storageError("iterate downloads", err)
	}
	return out, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid timestamp %q: %w", s, err)
	}
	return t, nil
}

func storageError(msg string, err error) error {
	return apperrors.New(apperrors.CodeStorage, msg, err)
}
