package session

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const createTableSQL = `
CREATE TABLE IF NOT EXISTS bot_sessions (
	user_id BIGINT PRIMARY KEY,
	week_number INT NOT NULL,
	awaiting_photo BOOLEAN NOT NULL DEFAULT FALSE,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`

// PostgresStore persists sessions in Postgres so they survive
// restarts. It implements the same Store interface as MemoryStore and
// is selected at startup when DATABASE_URL is configured.
type PostgresStore struct {
	db *pgxpool.Pool
}

func NewPostgresStore(ctx context.Context, db *pgxpool.Pool) (*PostgresStore, error) {
	if _, err := db.Exec(ctx, createTableSQL); err != nil {
		return nil, fmt.Errorf("create bot_sessions table: %w", err)
	}
	return &PostgresStore{db: db}, nil
}

func (p *PostgresStore) Get(ctx context.Context, userID int64) (Session, bool, error) {
	var s Session
	err := p.db.QueryRow(ctx,
		`SELECT week_number, awaiting_photo FROM bot_sessions WHERE user_id = $1`,
		userID).Scan(&s.WeekNumber, &s.AwaitingPhoto)
	if errors.Is(err, pgx.ErrNoRows) {
		return Session{}, false, nil
	}
	if err != nil {
		return Session{}, false, fmt.Errorf("get session: %w", err)
	}
	return s, true, nil
}

func (p *PostgresStore) Set(ctx context.Context, userID int64, s Session) error {
	_, err := p.db.Exec(ctx, `
		INSERT INTO bot_sessions (user_id, week_number, awaiting_photo, updated_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (user_id) DO UPDATE
		SET week_number = $2, awaiting_photo = $3, updated_at = NOW()`,
		userID, s.WeekNumber, s.AwaitingPhoto)
	if err != nil {
		return fmt.Errorf("set session: %w", err)
	}
	return nil
}

// Update runs the mutation inside a transaction with the row locked, so
// concurrent updates for the same user cannot lose writes.
func (p *PostgresStore) Update(ctx context.Context, userID int64, fn func(*Session)) error {
	tx, err := p.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	var s Session
	err = tx.QueryRow(ctx,
		`SELECT week_number, awaiting_photo FROM bot_sessions WHERE user_id = $1 FOR UPDATE`,
		userID).Scan(&s.WeekNumber, &s.AwaitingPhoto)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("select for update: %w", err)
	}

	fn(&s)

	_, err = tx.Exec(ctx,
		`UPDATE bot_sessions SET week_number = $2, awaiting_photo = $3, updated_at = NOW() WHERE user_id = $1`,
		userID, s.WeekNumber, s.AwaitingPhoto)
	if err != nil {
		return fmt.Errorf("update session: %w", err)
	}

	return tx.Commit(ctx)
}
