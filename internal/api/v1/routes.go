package v1

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"noticeboard/internal/api/middleware"
	"noticeboard/internal/service"
)

type Options struct {
	SecureCookies bool
	// AuthRateLimit caps credential requests per client IP per minute.
	AuthRateLimit int
	// AllowedOrigins gates WebSocket upgrades; empty allows any origin.
	AllowedOrigins []string
	Logger         *zap.Logger
}

func RegisterRoutes(
	group *gin.RouterGroup,
	identity *service.IdentityService,
	profiles *service.ProfileService,
	notices *service.NoticeService,
	opts Options,
) {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.AuthRateLimit <= 0 {
		opts.AuthRateLimit = 10
	}

	authRequired := middleware.JWTAuth(identity)

	RegisterAuthRoutes(group, identity, authRequired, opts)
	RegisterProfileRoutes(group, profiles, authRequired)
	RegisterNoticeRoutes(group, notices, identity, authRequired)
	RegisterStreamRoutes(group, notices, authRequired, opts)
}

// authRateLimit caps credential attempts per client IP and, more loosely, per
// email address.
func authRateLimit(opts Options) []gin.HandlerFunc {
	byIP := middleware.NewLimiter(opts.AuthRateLimit, time.Minute)
	byEmail := middleware.NewLimiter(opts.AuthRateLimit*2, time.Minute)
	return []gin.HandlerFunc{
		byIP.Middleware(middleware.ClientIPKey("auth")),
		byEmail.Middleware(middleware.JSONFieldKey("auth", "email")),
	}
}
