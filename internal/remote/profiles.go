package remote

import (
	"context"
	"net/http"
	"net/url"

	"noticeboard/internal/model"
)

type Profiles struct {
	client *Client
}

func NewProfiles(client *Client) *Profiles {
	return &Profiles{client: client}
}

// Get returns nil, nil when the hub has no profile for userID.
func (p *Profiles) Get(ctx context.Context, userID string) (*model.Profile, error) {
	var profile model.Profile
	if err := p.client.do(ctx, http.MethodGet, profilePath(userID), nil, nil, &profile); err != nil {
		if IsStatus(err, http.StatusNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &profile, nil
}

func (p *Profiles) Set(ctx context.Context, userID string, fields model.ProfileFields) error {
	return p.client.do(ctx, http.MethodPut, profilePath(userID), nil, fields, nil)
}

func (p *Profiles) Update(ctx context.Context, userID string, update model.ProfileUpdate) error {
	return p.client.do(ctx, http.MethodPatch, profilePath(userID), nil, update, nil)
}

func profilePath(userID string) string {
	return "/profiles/" + url.PathEscape(userID)
}
