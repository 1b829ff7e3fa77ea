package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"noticeboard/internal/model"
	"noticeboard/internal/repository"
)

type auditRepository struct {
	pool *pgxpool.Pool
}

func NewAuditRepository(pool *pgxpool.Pool) repository.AuditRepository {
	return &auditRepository{pool: pool}
}

var _ repository.AuditRepository = (*auditRepository)(nil)

// Create appends one entry. The trail is write-only from the application's
// side; it is read with SQL during incident review.
func (r *auditRepository) Create(ctx context.Context, log *model.AuditLog) error {
	if log.CreatedAt.IsZero() {
		log.CreatedAt = time.Now().UTC()
	}

	newValue, err := encodeJSONMap(log.NewValue)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO audit_logs (
			user_id,
			action,
			resource_type,
			resource_id,
			new_value,
			ip_address,
			created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`

	return r.pool.QueryRow(
		ctx,
		query,
		log.UserID,
		log.Action,
		log.ResourceType,
		log.ResourceID,
		newValue,
		log.IPAddress,
		log.CreatedAt,
	).Scan(&log.ID)
}
