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

type profileRepository struct {
	pool *pgxpool.Pool
}

func NewProfileRepository(pool *pgxpool.Pool) repository.ProfileRepository {
	return &profileRepository{pool: pool}
}

var _ repository.ProfileRepository = (*profileRepository)(nil)

const profileColumns = `
	user_id,
	name,
	email,
	role,
	faculty_id,
	status,
	created_at,
	last_login,
	last_logout,
	updated_at
`

func (r *profileRepository) FindByUserID(ctx context.Context, userID uuid.UUID) (*model.Profile, error) {
	query := `SELECT ` + profileColumns + ` FROM profiles WHERE user_id = $1`
	profile, err := scanProfile(r.pool.QueryRow(ctx, query, userID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return profile, nil
}

func (r *profileRepository) Create(ctx context.Context, profile *model.Profile) error {
	now := time.Now().UTC()
	if profile.CreatedAt.IsZero() {
		profile.CreatedAt = now
	}
	if profile.UpdatedAt.IsZero() {
		profile.UpdatedAt = profile.CreatedAt
	}

	query := `
		INSERT INTO profiles (
			user_id, name, email, role, faculty_id, status,
			created_at, last_login, last_logout, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err := r.pool.Exec(
		ctx,
		query,
		profile.UserID,
		profile.Name,
		profile.Email,
		profile.Role,
		profile.FacultyID,
		profile.Status,
		profile.CreatedAt,
		profile.LastLogin,
		profile.LastLogout,
		profile.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return ErrConflict
	}
	return err
}

func (r *profileRepository) UpdateStatus(
	ctx context.Context,
	userID uuid.UUID,
	status model.Status,
	at time.Time,
) (*model.Profile, error) {
	query := `
		UPDATE profiles
		SET status = $2,
			last_login = CASE WHEN $2 = 'online' THEN $3 ELSE last_login END,
			last_logout = CASE WHEN $2 = 'offline' THEN $3 ELSE last_logout END,
			updated_at = $3
		WHERE user_id = $1
		RETURNING ` + profileColumns

	profile, err := scanProfile(r.pool.QueryRow(ctx, query, userID, string(status), at.UTC()))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return profile, nil
}

func (r *profileRepository) CountByStatus(ctx context.Context, status model.Status) (int64, error) {
	var total int64
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM profiles WHERE status = $1`, string(status)).Scan(&total)
	if err != nil {
		return 0, err
	}
	return total, nil
}

func scanProfile(src scanTarget) (*model.Profile, error) {
	profile := &model.Profile{}
	err := src.Scan(
		&profile.UserID,
		&profile.Name,
		&profile.Email,
		&profile.Role,
		&profile.FacultyID,
		&profile.Status,
		&profile.CreatedAt,
		&profile.LastLogin,
		&profile.LastLogout,
		&profile.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return profile, nil
}
