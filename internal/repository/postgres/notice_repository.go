package postgres

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"noticeboard/internal/model"
	"noticeboard/internal/repository"
)

type noticeRepository struct {
	pool *pgxpool.Pool
}

func NewNoticeRepository(pool *pgxpool.Pool) repository.NoticeRepository {
	return &noticeRepository{pool: pool}
}

var _ repository.NoticeRepository = (*noticeRepository)(nil)

const noticeColumns = `
	id,
	title,
	content,
	is_event,
	category,
	importance,
	tags,
	created_by,
	created_by_email,
	created_at,
	"timestamp"
`

func (r *noticeRepository) Create(ctx context.Context, notice *model.Notice) error {
	if notice.ID == uuid.Nil {
		notice.ID = uuid.New()
	}
	if notice.CreatedAt.IsZero() {
		notice.CreatedAt = time.Now().UTC()
	}
	if notice.Timestamp == nil {
		ts := notice.CreatedAt
		notice.Timestamp = &ts
	}
	if notice.Tags == nil {
		notice.Tags = []string{}
	}

	query := `
		INSERT INTO notices (
			id, title, content, is_event, category, importance, tags,
			created_by, created_by_email, created_at, "timestamp"
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	_, err := r.pool.Exec(
		ctx,
		query,
		notice.ID,
		notice.Title,
		notice.Content,
		notice.IsEvent,
		notice.Category,
		notice.Importance,
		notice.Tags,
		notice.CreatedBy,
		notice.CreatedByEmail,
		notice.CreatedAt,
		notice.Timestamp,
	)
	return err
}

func (r *noticeRepository) ListAll(ctx context.Context) ([]*model.Notice, error) {
	query := `SELECT ` + noticeColumns + ` FROM notices ORDER BY "timestamp" DESC NULLS LAST, id`
	return r.query(ctx, query)
}

func (r *noticeRepository) Search(ctx context.Context, query string, page repository.Pagination) ([]*model.Notice, error) {
	limit, offset := normalizePagination(page)
	pattern := "%" + escapeLike(strings.TrimSpace(query)) + "%"

	var builder strings.Builder
	builder.WriteString("SELECT ")
	builder.WriteString(noticeColumns)
	builder.WriteString(` FROM notices
		WHERE title ILIKE $1
			OR content ILIKE $1
			OR category ILIKE $1
			OR EXISTS (SELECT 1 FROM unnest(tags) AS tag WHERE tag ILIKE $1)`)
	builder.WriteString(` ORDER BY "timestamp" DESC NULLS LAST, id LIMIT $2 OFFSET $3`)

	return r.query(ctx, builder.String(), pattern, limit, offset)
}

func (r *noticeRepository) Count(ctx context.Context) (int64, error) {
	var total int64
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM notices`).Scan(&total); err != nil {
		return 0, err
	}
	return total, nil
}

func (r *noticeRepository) query(ctx context.Context, query string, args ...any) ([]*model.Notice, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	notices := make([]*model.Notice, 0)
	for rows.Next() {
		item, err := scanNotice(rows)
		if err != nil {
			return nil, err
		}
		notices = append(notices, item)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return notices, nil
}

func scanNotice(src scanTarget) (*model.Notice, error) {
	notice := &model.Notice{}
	err := src.Scan(
		&notice.ID,
		&notice.Title,
		&notice.Content,
		&notice.IsEvent,
		&notice.Category,
		&notice.Importance,
		&notice.Tags,
		&notice.CreatedBy,
		&notice.CreatedByEmail,
		&notice.CreatedAt,
		&notice.Timestamp,
	)
	if err != nil {
		return nil, err
	}
	if notice.Tags == nil {
		notice.Tags = []string{}
	}
	return notice, nil
}

func escapeLike(value string) string {
	replacer := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return replacer.Replace(value)
}
