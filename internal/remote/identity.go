package remote

import (
	"context"
	"net/http"
	"sync"

	"github.com/google/uuid"

	"noticeboard/internal/model"
)

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type sessionPayload struct {
	UID   uuid.UUID `json:"uid"`
	Email string    `json:"email"`
	Token string    `json:"token"`
}

// Identity signs in against the hub and reports session changes to its
// listeners.
type Identity struct {
	client *Client

	mu        sync.Mutex
	listeners []func(*model.Identity)
}

func NewIdentity(client *Client) *Identity {
	identity := &Identity{client: client}
	client.setUnauthorizedHook(func() { identity.notify(nil) })
	return identity
}

func (i *Identity) OnSessionChange(listener func(*model.Identity)) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.listeners = append(i.listeners, listener)
}

func (i *Identity) CreateAccount(ctx context.Context, email, password string) (model.Identity, error) {
	return i.openSession(ctx, "/auth/accounts", email, password)
}

func (i *Identity) Authenticate(ctx context.Context, email, password string) (model.Identity, error) {
	return i.openSession(ctx, "/auth/sessions", email, password)
}

// CurrentSession asks the hub who the held token belongs to. An unknown or
// expired token yields nil.
func (i *Identity) CurrentSession(ctx context.Context) (*model.Identity, error) {
	if i.client.Token() == "" {
		return nil, nil
	}

	var payload sessionPayload
	if err := i.client.do(ctx, http.MethodGet, "/auth/session", nil, nil, &payload); err != nil {
		if IsStatus(err, http.StatusUnauthorized) {
			return nil, nil
		}
		return nil, err
	}
	return &model.Identity{UID: payload.UID, Email: payload.Email}, nil
}

// EndSession revokes the token on the hub. A token the hub already rejects
// counts as ended.
func (i *Identity) EndSession(ctx context.Context) error {
	if i.client.Token() == "" {
		return nil
	}

	if err := i.client.do(ctx, http.MethodDelete, "/auth/session", nil, nil, nil); err != nil {
		if IsStatus(err, http.StatusUnauthorized) {
			return nil
		}
		return err
	}
	if i.client.dropToken() {
		i.notify(nil)
	}
	return nil
}

func (i *Identity) openSession(ctx context.Context, path, email, password string) (model.Identity, error) {
	var payload sessionPayload
	if err := i.client.do(ctx, http.MethodPost, path, nil, credentials{Email: email, Password: password}, &payload); err != nil {
		return model.Identity{}, err
	}

	i.client.setToken(payload.Token)
	identity := model.Identity{UID: payload.UID, Email: payload.Email}
	i.notify(&identity)
	return identity, nil
}

func (i *Identity) notify(identity *model.Identity) {
	i.mu.Lock()
	listeners := append(([]func(*model.Identity))(nil), i.listeners...)
	i.mu.Unlock()

	for _, listener := range listeners {
		listener(identity)
	}
}
