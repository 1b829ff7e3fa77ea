// Package apitest assembles an in-memory hub for handler and client tests.
package apitest

import (
	"crypto/rand"
	"crypto/rsa"
	"testing"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"

	"noticeboard/internal/api"
	v1 "noticeboard/internal/api/v1"
	"noticeboard/internal/changefeed"
	"noticeboard/internal/repository/memory"
	"noticeboard/internal/service"
	"noticeboard/internal/sse"
)

type Hub struct {
	Router   *gin.Engine
	Store    *memory.Store
	Services api.Services
	SSE      *sse.SSEHub
}

type Options struct {
	EnforceFacultyRole bool
	InternalToken      string
	InternalLoopback   bool
}

// NewHub builds a router over memory storage. Rate limits are raised far
// above anything a test sends.
func NewHub(t testing.TB, opts Options) *Hub {
	t.Helper()
	gin.SetMode(gin.TestMode)

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}

	store := memory.NewStore()
	sseHub := sse.NewHub(nil)
	t.Cleanup(sseHub.Close)

	services := api.Services{
		Identity: service.NewIdentityService(store.Accounts, store.Sessions, store.Audit, key, service.IdentityOptions{
			BcryptCost: bcrypt.MinCost,
		}, nil),
		Profiles: service.NewProfileService(store.Profiles, store.Audit, nil, nil),
		Notices: service.NewNoticeService(
			store.Notices,
			store.Profiles,
			store.Audit,
			changefeed.NewLocal(nil),
			sseHub,
			service.NoticeOptions{EnforceFacultyRole: opts.EnforceFacultyRole},
			nil,
		),
	}

	router := api.NewRouter(services, api.RouterOptions{
		InternalToken:    opts.InternalToken,
		InternalLoopback: opts.InternalLoopback,
		V1:               v1.Options{AuthRateLimit: 100000},
	})

	return &Hub{Router: router, Store: store, Services: services, SSE: sseHub}
}
