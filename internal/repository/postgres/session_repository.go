package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"noticeboard/internal/model"
	"noticeboard/internal/repository"
)

type sessionRepository struct {
	pool *pgxpool.Pool
}

func NewSessionRepository(pool *pgxpool.Pool) repository.SessionRepository {
	return &sessionRepository{pool: pool}
}

var _ repository.SessionRepository = (*sessionRepository)(nil)

func (r *sessionRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Session, error) {
	query := `SELECT id, account_id, created_at, expires_at, ended_at FROM sessions WHERE id = $1`

	session := &model.Session{}
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&session.ID,
		&session.AccountID,
		&session.CreatedAt,
		&session.ExpiresAt,
		&session.EndedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return session, nil
}

func (r *sessionRepository) Create(ctx context.Context, session *model.Session) error {
	if session.ID == uuid.Nil {
		session.ID = uuid.New()
	}
	if session.CreatedAt.IsZero() {
		session.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO sessions (id, account_id, created_at, expires_at)
		VALUES ($1, $2, $3, $4)
	`
	_, err := r.pool.Exec(ctx, query, session.ID, session.AccountID, session.CreatedAt, session.ExpiresAt)
	return err
}

func (r *sessionRepository) End(ctx context.Context, id uuid.UUID, at time.Time) error {
	query := `UPDATE sessions SET ended_at = $2 WHERE id = $1 AND ended_at IS NULL`
	tag, err := r.pool.Exec(ctx, query, id, at.UTC())
	if err != nil {
		return err
	}
	return ensureAffected(tag)
}

func (r *sessionRepository) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	query := `DELETE FROM sessions WHERE expires_at < $1 OR ended_at < $1`
	tag, err := r.pool.Exec(ctx, query, before.UTC())
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
