package service

import (
	"context"
	"crypto/rsa"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	jwt "github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"noticeboard/internal/metrics"
	"noticeboard/internal/model"
	"noticeboard/internal/repository"
	jwtutil "noticeboard/pkg/jwt"
)

const (
	defaultSessionTTL        = 7 * 24 * time.Hour
	defaultMinPasswordLength = 6
)

var emailPattern = regexp.MustCompile(`^[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}$`)

type IdentityOptions struct {
	SessionTTL        time.Duration
	MinPasswordLength int
	BcryptCost        int
}

// SessionToken is the result of establishing a session.
type SessionToken struct {
	Identity  model.Identity `json:"identity"`
	Token     string         `json:"token"`
	SessionID uuid.UUID      `json:"session_id"`
	ExpiresAt time.Time      `json:"expires_at"`
}

type IdentityService struct {
	accounts   repository.AccountRepository
	sessions   repository.SessionRepository
	audit      auditWriter
	privateKey *rsa.PrivateKey
	opts       IdentityOptions
	logger     *zap.Logger
	now        func() time.Time
}

func NewIdentityService(
	accounts repository.AccountRepository,
	sessions repository.SessionRepository,
	auditRepo repository.AuditRepository,
	privateKey *rsa.PrivateKey,
	opts IdentityOptions,
	logger *zap.Logger,
) *IdentityService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.SessionTTL <= 0 {
		opts.SessionTTL = defaultSessionTTL
	}
	if opts.MinPasswordLength <= 0 {
		opts.MinPasswordLength = defaultMinPasswordLength
	}
	if opts.BcryptCost <= 0 {
		opts.BcryptCost = bcrypt.DefaultCost
	}

	return &IdentityService{
		accounts:   accounts,
		sessions:   sessions,
		audit:      auditWriter{repo: auditRepo, logger: logger},
		privateKey: privateKey,
		opts:       opts,
		logger:     logger,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

func (s *IdentityService) MinPasswordLength() int {
	return s.opts.MinPasswordLength
}

// CreateAccount registers a new account and signs it in.
func (s *IdentityService) CreateAccount(ctx context.Context, email, password string) (*SessionToken, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if !emailPattern.MatchString(email) {
		metrics.IncAuthAttempt("create_account", "invalid")
		return nil, ErrInvalidEmail
	}
	if len(password) < s.opts.MinPasswordLength {
		metrics.IncAuthAttempt("create_account", "invalid")
		return nil, ErrWeakPassword
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), s.opts.BcryptCost)
	if err != nil {
		return nil, err
	}

	account := &model.Account{
		ID:           uuid.New(),
		Email:        email,
		PasswordHash: string(hashed),
		CreatedAt:    s.now(),
	}
	if err := s.accounts.Create(ctx, account); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			metrics.IncAuthAttempt("create_account", "conflict")
			return nil, ErrEmailInUse
		}
		return nil, err
	}

	s.audit.write(ctx, &account.ID, model.AuditAccountCreate, "account", account.ID.String(), map[string]interface{}{
		"email": account.Email,
	})
	metrics.IncAuthAttempt("create_account", "success")

	return s.openSession(ctx, account)
}

// Authenticate verifies credentials and opens a new session.
func (s *IdentityService) Authenticate(ctx context.Context, email, password string) (*SessionToken, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if !emailPattern.MatchString(email) {
		metrics.IncAuthAttempt("authenticate", "invalid")
		return nil, ErrInvalidEmail
	}

	account, err := s.accounts.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			metrics.IncAuthAttempt("authenticate", "rejected")
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(password)) != nil {
		metrics.IncAuthAttempt("authenticate", "rejected")
		return nil, ErrInvalidCredentials
	}

	metrics.IncAuthAttempt("authenticate", "success")
	return s.openSession(ctx, account)
}

// ResolveToken validates the signature and confirms the session is still open.
func (s *IdentityService) ResolveToken(ctx context.Context, token string) (*jwtutil.Claims, error) {
	if s.privateKey == nil {
		return nil, errors.New("private key is nil")
	}

	claims, err := jwtutil.ParseAccessToken(token, &s.privateKey.PublicKey)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, fmt.Errorf("%w: %w", ErrSessionInvalid, err)
		}
		return nil, ErrSessionInvalid
	}

	sessionID, err := uuid.Parse(claims.SessionID())
	if err != nil {
		return nil, ErrSessionInvalid
	}

	session, err := s.sessions.FindByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrSessionInvalid
		}
		return nil, err
	}
	if !session.Active(s.now()) || session.AccountID.String() != claims.UserID {
		return nil, ErrSessionInvalid
	}

	return claims, nil
}

// CurrentIdentity returns the identity behind an authenticated user id.
func (s *IdentityService) CurrentIdentity(ctx context.Context, userID string) (model.Identity, error) {
	uid, err := parseUserID(userID)
	if err != nil {
		return model.Identity{}, err
	}

	account, err := s.accounts.FindByID(ctx, uid)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.Identity{}, ErrAccountNotFound
		}
		return model.Identity{}, err
	}
	return account.Identity(), nil
}

// EndSession closes the session so its token stops resolving. Ending an
// already closed session is not an error.
func (s *IdentityService) EndSession(ctx context.Context, claims *jwtutil.Claims) error {
	if claims == nil {
		return ErrSessionInvalid
	}

	sessionID, err := uuid.Parse(claims.SessionID())
	if err != nil {
		return ErrSessionInvalid
	}

	if err := s.sessions.End(ctx, sessionID, s.now()); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil
		}
		return err
	}

	if uid, parseErr := parseUserID(claims.UserID); parseErr == nil {
		s.audit.write(ctx, &uid, model.AuditSessionEnd, "session", sessionID.String(), nil)
	}
	return nil
}

// PurgeSessions deletes sessions that expired or ended before the cutoff.
func (s *IdentityService) PurgeSessions(ctx context.Context, before time.Time) (int64, error) {
	return s.sessions.DeleteExpired(ctx, before)
}

func (s *IdentityService) openSession(ctx context.Context, account *model.Account) (*SessionToken, error) {
	if s.privateKey == nil {
		return nil, errors.New("private key is nil")
	}

	now := s.now()
	session := &model.Session{
		ID:        uuid.New(),
		AccountID: account.ID,
		CreatedAt: now,
		ExpiresAt: now.Add(s.opts.SessionTTL),
	}
	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, err
	}

	claims := jwtutil.NewClaims(account.ID.String(), account.Email, session.ID.String(), s.opts.SessionTTL)
	token, err := jwtutil.GenerateAccessToken(claims, s.privateKey)
	if err != nil {
		return nil, err
	}

	s.audit.write(ctx, &account.ID, model.AuditSessionCreate, "session", session.ID.String(), nil)

	return &SessionToken{
		Identity:  account.Identity(),
		Token:     token,
		SessionID: session.ID,
		ExpiresAt: session.ExpiresAt,
	}, nil
}
