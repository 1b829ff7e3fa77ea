package middleware

import (
	"bytes"
	"encoding/json"
	"io"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	loggerpkg "noticeboard/pkg/logger"
)

const requestBodyLogLimit = 64 << 10

// RequestLogger writes one line per request. Feed streams are logged when
// they close, with how long the connection stayed open, and their bodies are
// never read.
func RequestLogger(logger *zap.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}

	return func(c *gin.Context) {
		startedAt := time.Now()
		stream := isFeedStream(c)

		var body []byte
		if !stream && hasJSONBody(c) {
			body = snapshotRequestBody(c)
		}

		c.Next()

		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("route", routeOf(c)),
			zap.String("client_ip", c.ClientIP()),
			zap.Int("status", c.Writer.Status()),
			zap.Int("size", c.Writer.Size()),
		}
		fields = append(fields, sessionFields(c)...)
		if caller, ok := InternalCaller(c); ok {
			fields = append(fields, zap.String("internal_caller", caller))
		}
		if len(c.Errors) > 0 {
			fields = append(fields, zap.String("errors", c.Errors.String()))
		}
		if payload, ok := decodeBody(body); ok {
			fields = append(fields, zap.Any("request_body", payload))
		}

		elapsed := time.Since(startedAt)
		message := "http request completed"
		if stream {
			message = "feed connection closed"
			fields = append(fields, zap.Duration("connected_for", elapsed))
		} else {
			fields = append(fields, zap.Duration("latency", elapsed))
		}

		sanitized := loggerpkg.SanitizeFields(fields)
		switch status := c.Writer.Status(); {
		case status >= 500:
			logger.Error(message, sanitized...)
		case status >= 400:
			logger.Warn(message, sanitized...)
		default:
			logger.Info(message, sanitized...)
		}
	}
}

// sessionFields ties a request to the account and session that made it. The
// session id is the token's jti, so it matches the sessions table.
func sessionFields(c *gin.Context) []zap.Field {
	claims, ok := GetClaims(c)
	if !ok || claims == nil {
		return nil
	}
	return []zap.Field{
		zap.String("user_id", claims.UserID),
		zap.String("session_id", claims.ID),
	}
}

func routeOf(c *gin.Context) string {
	if route := c.FullPath(); route != "" {
		return route
	}
	return c.Request.URL.Path
}

func isFeedStream(c *gin.Context) bool {
	route := c.FullPath()
	return strings.HasSuffix(route, "/notices/stream") || strings.HasSuffix(route, "/notices/ws")
}

func hasJSONBody(c *gin.Context) bool {
	if c.Request.Body == nil || c.Request.ContentLength == 0 {
		return false
	}
	return strings.HasPrefix(c.ContentType(), "application/json")
}

func decodeBody(body []byte) (any, bool) {
	if len(body) == 0 {
		return nil, false
	}
	var payload any
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, false
	}
	return payload, true
}

func snapshotRequestBody(c *gin.Context) []byte {
	raw, err := io.ReadAll(c.Request.Body)
	c.Request.Body = io.NopCloser(bytes.NewReader(raw))
	if err != nil || len(raw) > requestBodyLogLimit {
		return nil
	}
	return raw
}
