package onboarding

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrSessionNotFound is returned for unknown sessions and for sessions that
// belong to another credential.
var ErrSessionNotFound = errors.New("onboarding session not found")

// Session is a persisted wizard bound to the credential that started it.
type Session struct {
	ID        string
	TokenHash string
	State     Snapshot
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Repository persists wizard sessions.
type Repository interface {
	Save(ctx context.Context, session Session) error
	Find(ctx context.Context, id string) (Session, error)
	Delete(ctx context.Context, id string) error
	// Purge removes sessions last updated before the cutoff and reports how
	// many were removed.
	Purge(ctx context.Context, before time.Time) (int64, error)
}

// PostgresRepository stores sessions in PostgreSQL with the state as JSONB.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository builds a Postgres-backed session repository.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// EnsureSchema creates the sessions table when it does not exist.
func (r *PostgresRepository) EnsureSchema(ctx context.Context) error {
	_, err := r.db.Exec(ctx, `CREATE TABLE IF NOT EXISTS onboarding_sessions (
        id UUID PRIMARY KEY,
        token_hash TEXT NOT NULL,
        state JSONB NOT NULL,
        created_at TIMESTAMPTZ NOT NULL,
        updated_at TIMESTAMPTZ NOT NULL
    )`)
	if err != nil {
		return fmt.Errorf("create onboarding_sessions: %w", err)
	}
	return nil
}

// Save inserts or replaces a session.
func (r *PostgresRepository) Save(ctx context.Context, session Session) error {
	sessionID, err := uuid.Parse(session.ID)
	if err != nil {
		return err
	}
	state, err := json.Marshal(session.State)
	if err != nil {
		return fmt.Errorf("encode session state: %w", err)
	}
	_, err = r.db.Exec(ctx, `INSERT INTO onboarding_sessions (id, token_hash, state, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5)
        ON CONFLICT (id) DO UPDATE SET state = EXCLUDED.state, updated_at = EXCLUDED.updated_at`,
		sessionID, session.TokenHash, state, session.CreatedAt.UTC(), session.UpdatedAt.UTC())
	return err
}

// Find fetches a session by id.
func (r *PostgresRepository) Find(ctx context.Context, id string) (Session, error) {
	sessionID, err := uuid.Parse(id)
	if err != nil {
		return Session{}, ErrSessionNotFound
	}
	row := r.db.QueryRow(ctx, `SELECT id, token_hash, state, created_at, updated_at
        FROM onboarding_sessions WHERE id = $1`, sessionID)
	var (
		idVal     uuid.UUID
		state     []byte
		createdAt time.Time
		updatedAt time.Time
		session   Session
	)
	if err := row.Scan(&idVal, &session.TokenHash, &state, &createdAt, &updatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Session{}, ErrSessionNotFound
		}
		return Session{}, err
	}
	if err := json.Unmarshal(state, &session.State); err != nil {
		return Session{}, fmt.Errorf("decode session state: %w", err)
	}
	session.ID = idVal.String()
	session.CreatedAt = createdAt.UTC()
	session.UpdatedAt = updatedAt.UTC()
	return session, nil
}

// Delete removes a session. Removing a missing session is not an error.
func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	sessionID, err := uuid.Parse(id)
	if err != nil {
		return nil
	}
	_, err = r.db.Exec(ctx, `DELETE FROM onboarding_sessions WHERE id = $1`, sessionID)
	return err
}

// Purge removes sessions last updated before the cutoff.
func (r *PostgresRepository) Purge(ctx context.Context, before time.Time) (int64, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM onboarding_sessions WHERE updated_at < $1`, before.UTC())
	if err != nil {
		return 0, fmt.Errorf("purge onboarding_sessions: %w", err)
	}
	return tag.RowsAffected(), nil
}
