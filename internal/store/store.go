package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/xkilldash9x/libpass-cli/api/schemas"
	"github.com/xkilldash9x/libpass-cli/internal/profile"
)

// Sentinel errors for store operations.
var (
	ErrNoProfile       = errors.New("no library profile stored")
	ErrSessionNotFound = errors.New("automation session not found")
)

const profileKey = "library_profile"

const schema = `
CREATE TABLE IF NOT EXISTS kv (
	key        TEXT PRIMARY KEY,
	value      BLOB NOT NULL,
	updated_at TIMESTAMP NOT NULL
);
CREATE TABLE IF NOT EXISTS automation_sessions (
	id                TEXT PRIMARY KEY,
	return_to_url     TEXT NOT NULL,
	click_selectors   TEXT NOT NULL,
	current_step      INTEGER NOT NULL,
	return_to_article INTEGER NOT NULL,
	active            INTEGER NOT NULL,
	created_at        TIMESTAMP NOT NULL,
	updated_at        TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_sessions_active ON automation_sessions (active, created_at);
`

// Store provides a SQLite implementation of the profile and automation
// state stores.
type Store struct {
	db  *sql.DB
	log *zap.Logger
}

// Open opens (creating if necessary) the database at path and applies the
// schema.
func Open(path string, logger *zap.Logger) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}
	// The automation engine touches the store from a couple of goroutines;
	// sqlite handles one writer at a time.
	db.SetMaxOpenConns(1)

	return &Store{
		db:  db,
		log: logger.Named("store"),
	}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// -- ProfileStore --

// Profile returns the stored library profile, or ErrNoProfile.
func (s *Store) Profile(ctx context.Context) (*profile.LibraryProfile, error) {
	var raw []byte
	err := s.db.QueryRowContext(ctx, `SELECT value FROM kv WHERE key = ?`, profileKey).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoProfile
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query profile: %w", err)
	}

	p, err := profile.Unmarshal(raw)
	if err != nil {
		return nil, fmt.Errorf("stored profile is corrupt: %w", err)
	}
	return p, nil
}

// PutProfile stores the profile, replacing any previous one.
func (s *Store) PutProfile(ctx context.Context, p *profile.LibraryProfile) error {
	raw, err := profile.Marshal(p)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO kv (key, value, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		profileKey, raw, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to store profile: %w", err)
	}
	s.log.Debug("Profile stored", zap.String("library", p.LibraryName))
	return nil
}

// -- StateStore --

// CreateSession persists a new automation session record.
func (s *Store) CreateSession(ctx context.Context, sess *schemas.AutomationSession) error {
	selectors, err := json.Marshal(sess.ClickSelectors)
	if err != nil {
		return fmt.Errorf("failed to serialize click selectors: %w", err)
	}

	now := time.Now().UTC()
	sess.CreatedAt = now
	sess.UpdatedAt = now

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO automation_sessions
		 (id, return_to_url, click_selectors, current_step, return_to_article, active, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		sess.ID, sess.ReturnToURL, string(selectors), sess.CurrentStep,
		sess.ReturnToArticle, sess.Active, now, now)
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	return nil
}

// GetSession retrieves a session by ID, or ErrSessionNotFound.
func (s *Store) GetSession(ctx context.Context, id string) (*schemas.AutomationSession, error) {
	var (
		sess      schemas.AutomationSession
		selectors string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, return_to_url, click_selectors, current_step, return_to_article, active, created_at, updated_at
		 FROM automation_sessions WHERE id = ?`, id).
		Scan(&sess.ID, &sess.ReturnToURL, &selectors, &sess.CurrentStep,
			&sess.ReturnToArticle, &sess.Active, &sess.CreatedAt, &sess.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query session: %w", err)
	}

	if err := json.Unmarshal([]byte(selectors), &sess.ClickSelectors); err != nil {
		return nil, fmt.Errorf("stored click selectors are corrupt: %w", err)
	}
	return &sess, nil
}

// AdvanceStep atomically increments the step counter from the given value.
// The guarded UPDATE is the compare-and-swap: when the stored step no longer
// matches, another invocation got there first and false is returned.
func (s *Store) AdvanceStep(ctx context.Context, id string, from int) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE automation_sessions
		 SET current_step = current_step + 1, updated_at = ?
		 WHERE id = ? AND current_step = ?`,
		time.Now().UTC(), id, from)
	if err != nil {
		return false, fmt.Errorf("failed to advance step: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read rows affected: %w", err)
	}
	if n == 0 {
		s.log.Debug("Step advance lost the race", zap.String("session", id), zap.Int("from", from))
	}
	return n > 0, nil
}

// DeactivateSession clears the session's active flag.
func (s *Store) DeactivateSession(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE automation_sessions SET active = 0, updated_at = ? WHERE id = ?`,
		time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to deactivate session: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrSessionNotFound
	}
	return nil
}

// ActiveSession returns the most recently created active session, or
// ErrSessionNotFound. It exists for inspection tooling; the engine itself
// always addresses sessions by ID.
func (s *Store) ActiveSession(ctx context.Context) (*schemas.AutomationSession, error) {
	var id string
	err := s.db.QueryRowContext(ctx,
		`SELECT id FROM automation_sessions WHERE active = 1 ORDER BY created_at DESC LIMIT 1`).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query active session: %w", err)
	}
	return s.GetSession(ctx, id)
}
