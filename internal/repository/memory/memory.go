// Package memory holds process-local repository implementations used by the
// development storage driver and by tests.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"noticeboard/internal/model"
	"noticeboard/internal/repository"
)

type Store struct {
	Accounts repository.AccountRepository
	Sessions repository.SessionRepository
	Profiles repository.ProfileRepository
	Notices  repository.NoticeRepository
	Audit    repository.AuditRepository
}

func NewStore() *Store {
	return &Store{
		Accounts: NewAccountRepository(),
		Sessions: NewSessionRepository(),
		Profiles: NewProfileRepository(),
		Notices:  NewNoticeRepository(),
		Audit:    NewAuditRepository(),
	}
}

type accountRepository struct {
	mu      sync.RWMutex
	byID    map[uuid.UUID]model.Account
	byEmail map[string]uuid.UUID
}

func NewAccountRepository() repository.AccountRepository {
	return &accountRepository{
		byID:    make(map[uuid.UUID]model.Account),
		byEmail: make(map[string]uuid.UUID),
	}
}

var _ repository.AccountRepository = (*accountRepository)(nil)

func (r *accountRepository) FindByID(_ context.Context, id uuid.UUID) (*model.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	account, ok := r.byID[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &account, nil
}

func (r *accountRepository) FindByEmail(_ context.Context, email string) (*model.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byEmail[normalizeEmail(email)]
	if !ok {
		return nil, repository.ErrNotFound
	}
	account := r.byID[id]
	return &account, nil
}

func (r *accountRepository) Create(_ context.Context, account *model.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	account.Email = normalizeEmail(account.Email)
	if _, exists := r.byEmail[account.Email]; exists {
		return repository.ErrConflict
	}
	if account.ID == uuid.Nil {
		account.ID = uuid.New()
	}
	if account.CreatedAt.IsZero() {
		account.CreatedAt = time.Now().UTC()
	}

	r.byID[account.ID] = *account
	r.byEmail[account.Email] = account.ID
	return nil
}

type sessionRepository struct {
	mu    sync.RWMutex
	items map[uuid.UUID]model.Session
}

func NewSessionRepository() repository.SessionRepository {
	return &sessionRepository{items: make(map[uuid.UUID]model.Session)}
}

var _ repository.SessionRepository = (*sessionRepository)(nil)

func (r *sessionRepository) FindByID(_ context.Context, id uuid.UUID) (*model.Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	session, ok := r.items[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &session, nil
}

func (r *sessionRepository) Create(_ context.Context, session *model.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if session.ID == uuid.Nil {
		session.ID = uuid.New()
	}
	if session.CreatedAt.IsZero() {
		session.CreatedAt = time.Now().UTC()
	}
	r.items[session.ID] = *session
	return nil
}

func (r *sessionRepository) End(_ context.Context, id uuid.UUID, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	session, ok := r.items[id]
	if !ok || session.EndedAt != nil {
		return repository.ErrNotFound
	}
	ended := at.UTC()
	session.EndedAt = &ended
	r.items[id] = session
	return nil
}

func (r *sessionRepository) DeleteExpired(_ context.Context, before time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var removed int64
	for id, session := range r.items {
		if session.ExpiresAt.Before(before) || (session.EndedAt != nil && session.EndedAt.Before(before)) {
			delete(r.items, id)
			removed++
		}
	}
	return removed, nil
}

type profileRepository struct {
	mu    sync.RWMutex
	items map[uuid.UUID]model.Profile
}

func NewProfileRepository() repository.ProfileRepository {
	return &profileRepository{items: make(map[uuid.UUID]model.Profile)}
}

var _ repository.ProfileRepository = (*profileRepository)(nil)

func (r *profileRepository) FindByUserID(_ context.Context, userID uuid.UUID) (*model.Profile, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	profile, ok := r.items[userID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &profile, nil
}

func (r *profileRepository) Create(_ context.Context, profile *model.Profile) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.items[profile.UserID]; exists {
		return repository.ErrConflict
	}
	if profile.CreatedAt.IsZero() {
		profile.CreatedAt = time.Now().UTC()
	}
	if profile.UpdatedAt.IsZero() {
		profile.UpdatedAt = profile.CreatedAt
	}
	r.items[profile.UserID] = *profile
	return nil
}

func (r *profileRepository) UpdateStatus(
	_ context.Context,
	userID uuid.UUID,
	status model.Status,
	at time.Time,
) (*model.Profile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	profile, ok := r.items[userID]
	if !ok {
		return nil, repository.ErrNotFound
	}

	stamp := at.UTC()
	profile.Status = status
	switch status {
	case model.StatusOnline:
		profile.LastLogin = &stamp
	case model.StatusOffline:
		profile.LastLogout = &stamp
	}
	profile.UpdatedAt = stamp
	r.items[userID] = profile

	out := profile
	return &out, nil
}

func (r *profileRepository) CountByStatus(_ context.Context, status model.Status) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var total int64
	for _, profile := range r.items {
		if profile.Status == status {
			total++
		}
	}
	return total, nil
}

type noticeRepository struct {
	mu    sync.RWMutex
	items []model.Notice
}

func NewNoticeRepository() repository.NoticeRepository {
	return &noticeRepository{}
}

var _ repository.NoticeRepository = (*noticeRepository)(nil)

func (r *noticeRepository) Create(_ context.Context, notice *model.Notice) error {
	r.mu.Lock()
	defer r.mu.Unlock()

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
	stored := *notice
	stored.Tags = append([]string{}, notice.Tags...)
	r.items = append(r.items, stored)
	return nil
}

func (r *noticeRepository) ListAll(_ context.Context) ([]*model.Notice, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.sorted(func(model.Notice) bool { return true }), nil
}

func (r *noticeRepository) Search(_ context.Context, query string, page repository.Pagination) ([]*model.Notice, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	needle := strings.ToLower(strings.TrimSpace(query))
	matches := r.sorted(func(n model.Notice) bool {
		if strings.Contains(strings.ToLower(n.Title), needle) ||
			strings.Contains(strings.ToLower(n.Content), needle) ||
			strings.Contains(strings.ToLower(n.Category), needle) {
			return true
		}
		for _, tag := range n.Tags {
			if strings.Contains(strings.ToLower(tag), needle) {
				return true
			}
		}
		return false
	})

	limit, offset := int(page.Limit), int(page.Offset)
	if limit <= 0 {
		limit = 20
	}
	if offset < 0 || offset >= len(matches) {
		return []*model.Notice{}, nil
	}
	end := offset + limit
	if end > len(matches) {
		end = len(matches)
	}
	return matches[offset:end], nil
}

func (r *noticeRepository) Count(_ context.Context) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return int64(len(r.items)), nil
}

func (r *noticeRepository) sorted(keep func(model.Notice) bool) []*model.Notice {
	out := make([]*model.Notice, 0, len(r.items))
	for i := range r.items {
		if !keep(r.items[i]) {
			continue
		}
		item := r.items[i]
		item.Tags = append([]string{}, r.items[i].Tags...)
		out = append(out, &item)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return timestampOf(out[i]).After(timestampOf(out[j]))
	})
	return out
}

func timestampOf(n *model.Notice) time.Time {
	if n.Timestamp == nil {
		return time.Time{}
	}
	return *n.Timestamp
}

type auditRepository struct {
	mu   sync.Mutex
	logs []model.AuditLog
	seq  int64
}

func NewAuditRepository() repository.AuditRepository {
	return &auditRepository{}
}

var _ repository.AuditRepository = (*auditRepository)(nil)

func (r *auditRepository) Create(_ context.Context, log *model.AuditLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.seq++
	log.ID = r.seq
	if log.CreatedAt.IsZero() {
		log.CreatedAt = time.Now().UTC()
	}
	r.logs = append(r.logs, *log)
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
