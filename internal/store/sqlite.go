package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/ppiankov/truescope/internal/model"
)

const claimColumns = `c.id, c.kind, c.url, c.text, c.title, c.description, c.image, c.site_name,
	c.tags_json, c.status, c.submitted_by, c.created_at, c.updated_at`

type options struct {
	busyTimeout time.Duration
	now         func() time.Time
	newID       func() (uuid.UUID, error)
}

// Option customizes Open
type Option func(*options)

// WithBusyTimeout sets how long a writer waits on a locked database
func WithBusyTimeout(d time.Duration) Option { return func(o *options) { o.busyTimeout = d } }

// WithClock replaces the timestamp source
func WithClock(now func() time.Time) Option { return func(o *options) { o.now = now } }

// SQLite is the Store backed by modernc.org/sqlite
type SQLite struct {
	db    *sql.DB
	now   func() time.Time
	newID func() (uuid.UUID, error)
}

var _ Store = (*SQLite)(nil)

// Open opens (creating if needed) the claim database at path and applies the
// schema. path may be ":memory:" for an ephemeral store.
func Open(path string, opts ...Option) (*SQLite, error) {
	o := options{
		busyTimeout: 10 * time.Second,
		now:         time.Now,
		newID:       uuid.NewV7,
	}
	for _, opt := range opts {
		opt(&o)
	}

	memory := path == ":memory:"
	dsn := path
	if !memory {
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("store: mkdir: %w", err)
			}
		}
		dsn = fmt.Sprintf("%s?_txlock=immediate&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_pragma=foreign_keys(1)&_pragma=busy_timeout(%d)",
			path, o.busyTimeout.Milliseconds())
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("store: open: %w", err)
	}
	if memory {
		// Every connection to :memory: is a separate database
		db.SetMaxOpenConns(1)
	}

	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: apply schema: %w", err)
	}

	return &SQLite{db: db, now: o.now, newID: o.newID}, nil
}

// Close releases the database
func (s *SQLite) Close() error {
	return s.db.Close()
}

// Ping checks the database is reachable
func (s *SQLite) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Insert stores a new claim with a fresh id and status unverified
func (s *SQLite) Insert(ctx context.Context, c model.Claim) (*model.Claim, error) {
	id, err := s.newID()
	if err != nil {
		return nil, fmt.Errorf("%w: generate id: %w", model.ErrPersistence, err)
	}

	now := s.now().UTC().Truncate(time.Millisecond)
	c.ID = id.String()
	c.Status = model.StatusUnverified
	c.CreatedAt = now
	c.UpdatedAt = now
	if c.Tags == nil {
		c.Tags = []string{}
	}

	tags, err := json.Marshal(c.Tags)
	if err != nil {
		return nil, fmt.Errorf("%w: encode tags: %w", model.ErrPersistence, err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO claims (id, kind, url, text, title, description, image, site_name,
			tags_json, status, submitted_by, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.Kind, c.URL, c.Text,
		c.Metadata.Title, c.Metadata.Description, c.Metadata.Image, c.Metadata.SiteName,
		string(tags), c.Status, c.SubmittedBy, now.UnixMilli(), now.UnixMilli())
	if err != nil {
		return nil, fmt.Errorf("%w: insert claim: %w", model.ErrPersistence, err)
	}

	return &c, nil
}

// FindByID loads one claim
func (s *SQLite) FindByID(ctx context.Context, id string) (*model.Claim, error) {
	return findByID(ctx, s.db, id)
}

// Query lists claims matching f, ordered by creation time then id, newest first
func (s *SQLite) Query(ctx context.Context, f Filter, page, size int) ([]model.Claim, error) {
	page, size = ClampPage(page, size)

	var where []string
	var args []any

	if f.Status != "" {
		where = append(where, "c.status = ?")
		args = append(args, string(f.Status))
	}
	if tag := strings.ToLower(strings.TrimSpace(f.Tag)); tag != "" {
		where = append(where, "EXISTS (SELECT 1 FROM json_each(c.tags_json) WHERE json_each.value = ?)")
		args = append(args, tag)
	}
	if q := strings.TrimSpace(f.Query); q != "" {
		match := MatchExpr(q)
		if match == "" {
			// Nothing searchable in q, so nothing can match it
			return []model.Claim{}, nil
		}
		where = append(where, "c.seq IN (SELECT rowid FROM claims_fts WHERE claims_fts MATCH ?)")
		args = append(args, match)
	}

	query := "SELECT " + claimColumns + " FROM claims c"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY c.created_at DESC, c.id DESC LIMIT ? OFFSET ?"
	args = append(args, size, int64(page-1)*int64(size))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: query claims: %w", model.ErrPersistence, err)
	}
	defer rows.Close()

	claims := make([]model.Claim, 0, size)
	for rows.Next() {
		c, err := scanClaim(rows)
		if err != nil {
			return nil, err
		}
		claims = append(claims, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate claims: %w", model.ErrPersistence, err)
	}
	return claims, nil
}

// UpdateStatus performs a compare-and-swap on the claim's status
func (s *SQLite) UpdateStatus(ctx context.Context, id string, expected, next model.Status) (*model.Claim, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: begin: %w", model.ErrPersistence, err)
	}
	defer tx.Rollback()

	now := s.now().UTC().Truncate(time.Millisecond)
	res, err := tx.ExecContext(ctx,
		`UPDATE claims SET status = ?, updated_at = ? WHERE id = ? AND status = ?`,
		string(next), now.UnixMilli(), id, string(expected))
	if err != nil {
		return nil, fmt.Errorf("%w: update status: %w", model.ErrPersistence, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("%w: rows affected: %w", model.ErrPersistence, err)
	}

	if n == 0 {
		current, err := findByID(ctx, tx, id)
		if err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("%w: claim %s is %s, expected %s", model.ErrConflict, id, current.Status, expected)
	}

	c, err := findByID(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("%w: commit: %w", model.ErrPersistence, err)
	}
	return c, nil
}

// MatchExpr turns free text into an FTS5 query matching any of its words.
// Each word is quoted so FTS5 operators in user input are taken literally.
// Returns "" when q has no letters or digits.
func MatchExpr(q string) string {
	var terms []string
	for _, word := range strings.Fields(q) {
		if !strings.ContainsFunc(word, func(r rune) bool { return unicode.IsLetter(r) || unicode.IsDigit(r) }) {
			continue
		}
		terms = append(terms, `"`+strings.ReplaceAll(word, `"`, `""`)+`"`)
	}
	return strings.Join(terms, " OR ")
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func findByID(ctx context.Context, q queryer, id string) (*model.Claim, error) {
	row := q.QueryRowContext(ctx, "SELECT "+claimColumns+" FROM claims c WHERE c.id = ?", id)
	c, err := scanClaim(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("claim %s: %w", id, model.ErrNotFound)
	}
	return c, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanClaim(sc scanner) (*model.Claim, error) {
	var (
		c                model.Claim
		tags             string
		created, updated int64
	)
	err := sc.Scan(&c.ID, &c.Kind, &c.URL, &c.Text,
		&c.Metadata.Title, &c.Metadata.Description, &c.Metadata.Image, &c.Metadata.SiteName,
		&tags, &c.Status, &c.SubmittedBy, &created, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("%w: scan claim: %w", model.ErrPersistence, err)
	}

	if err := json.Unmarshal([]byte(tags), &c.Tags); err != nil {
		return nil, fmt.Errorf("%w: decode tags of %s: %w", model.ErrPersistence, c.ID, err)
	}
	if c.Tags == nil {
		c.Tags = []string{}
	}
	c.CreatedAt = time.UnixMilli(created).UTC()
	c.UpdatedAt = time.UnixMilli(updated).UTC()
	return &c, nil
}
