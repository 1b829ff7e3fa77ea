package middleware

import (
	"crypto/subtle"
	"net/http"
	"net/netip"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"noticeboard/internal/api/response"
)

const (
	internalCallerKey   = "internal_caller"
	InternalTokenHeader = "X-Internal-Token"

	CallerLoopback = "loopback"
	CallerToken    = "token"
)

type InternalAuthOptions struct {
	Token string
	// AllowLoopback lets local operators reach the surface without the token.
	AllowLoopback bool
	Logger        *zap.Logger
}

// InternalAuth guards the operator surface (metrics and feed controls). The
// token is only read from the header or a bearer credential, never from the
// query string, so it stays out of access logs.
func InternalAuth(opts InternalAuthOptions) gin.HandlerFunc {
	expected := []byte(strings.TrimSpace(opts.Token))
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return func(c *gin.Context) {
		if opts.AllowLoopback && isLoopbackClient(c.ClientIP()) {
			c.Set(internalCallerKey, CallerLoopback)
			c.Next()
			return
		}

		if len(expected) == 0 {
			logger.Warn("internal surface has no token configured", zap.String("client_ip", c.ClientIP()))
			response.Fail(c, http.StatusUnauthorized, response.ErrUnauthorized, "unauthorized")
			c.Abort()
			return
		}

		provided := strings.TrimSpace(c.GetHeader(InternalTokenHeader))
		if provided == "" {
			provided = bearerTokenFromRequest(c.GetHeader("Authorization"))
		}
		if subtle.ConstantTimeCompare([]byte(provided), expected) != 1 {
			logger.Warn("internal request rejected",
				zap.String("client_ip", c.ClientIP()),
				zap.String("path", c.Request.URL.Path),
				zap.Bool("token_present", provided != ""),
			)
			response.Fail(c, http.StatusUnauthorized, response.ErrUnauthorized, "unauthorized")
			c.Abort()
			return
		}

		c.Set(internalCallerKey, CallerToken)
		c.Next()
	}
}

// InternalCaller reports how a request passed InternalAuth.
func InternalCaller(c *gin.Context) (string, bool) {
	value, ok := c.Get(internalCallerKey)
	if !ok {
		return "", false
	}
	caller, ok := value.(string)
	return caller, ok
}

func bearerTokenFromRequest(header string) string {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

func isLoopbackClient(clientIP string) bool {
	addr, err := netip.ParseAddr(strings.TrimSpace(clientIP))
	return err == nil && addr.IsLoopback()
}
