package controller

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"noticeboard/internal/model"
)

type SignupInput struct {
	Name      string
	Email     string
	Password  string
	Role      model.Role
	FacultyID string
}

// Signup validates locally, creates the account and its profile, then enters
// the app. Nothing reaches the identity service when validation fails.
func (c *Controller) Signup(ctx context.Context, in SignupInput) error {
	name := strings.TrimSpace(in.Name)
	email := strings.TrimSpace(in.Email)
	facultyID := strings.TrimSpace(in.FacultyID)

	if blank(name, email, in.Password) || !in.Role.Valid() {
		c.view.Alert(msgFillAllFields)
		return ErrMissingFields
	}
	if in.Role == model.RoleFaculty {
		if facultyID == "" {
			c.view.Alert(msgFacultyIDRequired)
			return ErrFacultyIDRequired
		}
		if !c.faculty.Allowed(facultyID) {
			c.view.Alert(msgFacultyIDInvalid)
			return ErrFacultyIDInvalid
		}
	}

	identity, err := c.identity.CreateAccount(ctx, email, in.Password)
	if err != nil {
		c.view.Alert(errorMessage(err))
		return err
	}

	fields := model.ProfileFields{
		Name:   name,
		Email:  email,
		Role:   in.Role,
		Status: model.StatusOnline,
	}
	if in.Role == model.RoleFaculty {
		fields.FacultyID = &facultyID
	}
	if err := c.profiles.Set(ctx, identity.UID.String(), fields); err != nil {
		c.logger.Warn("create profile failed", zap.String("user_id", identity.UID.String()), zap.Error(err))
		c.view.Alert(errorMessage(err))
		return err
	}

	c.view.Alert(msgSignupSuccessful)
	c.enterAuthenticated(identity, in.Role)
	return nil
}

// Login signs in and enters the app only when selectedRole matches the role
// stored at signup. Any failure after authentication ends the new session.
func (c *Controller) Login(ctx context.Context, email, password string, selectedRole model.Role) error {
	email = strings.TrimSpace(email)
	if blank(email, password) {
		c.view.Alert(msgFillAllFields)
		return ErrMissingFields
	}

	identity, err := c.identity.Authenticate(ctx, email, password)
	if err != nil {
		c.view.Alert(errorMessage(err))
		return err
	}
	uid := identity.UID.String()

	profile, err := c.profiles.Get(ctx, uid)
	if err != nil {
		c.abandonSession(ctx)
		c.view.Alert(errorMessage(err))
		return err
	}
	if profile == nil {
		c.abandonSession(ctx)
		c.view.Alert(msgUserDataNotFound)
		return ErrProfileMissing
	}

	if profile.Role != selectedRole {
		c.abandonSession(ctx)
		c.view.Alert(roleMismatchMessage(profile.Role, selectedRole))
		return ErrRoleMismatch
	}

	online := model.StatusOnline
	if err := c.profiles.Update(ctx, uid, model.ProfileUpdate{Status: &online}); err != nil {
		c.abandonSession(ctx)
		c.view.Alert(errorMessage(err))
		return err
	}

	c.enterAuthenticated(identity, profile.Role)
	return nil
}

// Logout marks the profile offline, ends the remote session and only then
// clears local state. A failing step stops the sequence; earlier steps are
// not undone.
func (c *Controller) Logout(ctx context.Context) error {
	identity, _, ok := c.session.Current()
	if !ok {
		return ErrNotAuthenticated
	}

	offline := model.StatusOffline
	if err := c.profiles.Update(ctx, identity.UID.String(), model.ProfileUpdate{Status: &offline}); err != nil {
		c.view.Alert(errorMessage(err))
		return err
	}
	if err := c.identity.EndSession(ctx); err != nil {
		c.view.Alert(errorMessage(err))
		return err
	}

	c.exitAuthenticated()
	c.view.Alert(msgLoggedOut)
	return nil
}

// Restore resumes an existing remote session. A session without a profile
// is ended and the auth view shown.
func (c *Controller) Restore(ctx context.Context) error {
	identity, err := c.identity.CurrentSession(ctx)
	if err != nil {
		c.logger.Warn("load current session failed", zap.Error(err))
		c.view.ShowAuth()
		return err
	}
	if identity == nil {
		c.view.ShowAuth()
		return nil
	}

	profile, err := c.profiles.Get(ctx, identity.UID.String())
	if err != nil {
		c.logger.Warn("load profile failed", zap.String("user_id", identity.UID.String()), zap.Error(err))
		c.view.ShowAuth()
		return err
	}
	if profile == nil {
		c.abandonSession(ctx)
		c.view.ShowAuth()
		return ErrProfileMissing
	}

	c.enterAuthenticated(*identity, profile.Role)
	return nil
}
