package service

import (
	"crypto/rand"
	"crypto/rsa"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"noticeboard/internal/repository/memory"
)

type testServices struct {
	store    *memory.Store
	identity *IdentityService
	profiles *ProfileService
}

func newTestServices(t *testing.T) *testServices {
	t.Helper()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}

	store := memory.NewStore()
	return &testServices{
		store: store,
		identity: NewIdentityService(store.Accounts, store.Sessions, store.Audit, key, IdentityOptions{
			BcryptCost: bcrypt.MinCost,
		}, nil),
		profiles: NewProfileService(store.Profiles, store.Audit, nil, nil),
	}
}
