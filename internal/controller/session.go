package controller

import (
	"strings"
	"sync"

	"noticeboard/internal/model"
)

// Session is the signed-in user as far as this client knows.
type Session struct {
	mu       sync.RWMutex
	identity *model.Identity
	role     model.Role
}

// Current returns the identity and role, and false when the session is empty.
func (s *Session) Current() (model.Identity, model.Role, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.identity == nil {
		return model.Identity{}, "", false
	}
	return *s.identity, s.role, true
}

func (s *Session) populate(identity model.Identity, role model.Role) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.identity = &identity
	s.role = role
}

func (s *Session) clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.identity = nil
	s.role = ""
}

// FacultyAllowList holds the faculty identifiers accepted at signup.
type FacultyAllowList struct {
	ids map[string]struct{}
}

func NewFacultyAllowList(ids []string) FacultyAllowList {
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if trimmed := strings.TrimSpace(id); trimmed != "" {
			set[trimmed] = struct{}{}
		}
	}
	return FacultyAllowList{ids: set}
}

func (l FacultyAllowList) Allowed(id string) bool {
	_, ok := l.ids[strings.TrimSpace(id)]
	return ok
}
