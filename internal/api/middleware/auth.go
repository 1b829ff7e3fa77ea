package middleware

import (
	"context"
	"errors"
	"strings"

	"github.com/gin-gonic/gin"
	jwt "github.com/golang-jwt/jwt/v5"

	"noticeboard/internal/api/response"
	jwtutil "noticeboard/pkg/jwt"
)

const (
	claimsContextKey = "claims"
	tokenContextKey  = "access_token"
	AccessTokenName  = "access_token"
)

type Claims = jwtutil.Claims

// TokenResolver turns a bearer token into claims for an open session.
type TokenResolver interface {
	ResolveToken(ctx context.Context, token string) (*jwtutil.Claims, error)
}

// JWTAuth requires an open session. Resolvers report expiry by returning an
// error that wraps jwt.ErrTokenExpired.
func JWTAuth(resolver TokenResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		if claims, ok := GetClaims(c); ok && claims != nil {
			c.Next()
			return
		}

		tokenString := tokenFromRequest(c)
		if tokenString == "" || resolver == nil {
			response.Fail(c, 401, response.ErrUnauthorized, "unauthorized")
			c.Abort()
			return
		}

		claims, err := resolver.ResolveToken(c.Request.Context(), tokenString)
		if err != nil {
			if errors.Is(err, jwt.ErrTokenExpired) {
				response.Fail(c, 401, response.ErrTokenExpired, "token expired")
			} else {
				response.Fail(c, 401, response.ErrUnauthorized, "unauthorized")
			}
			c.Abort()
			return
		}

		c.Set(claimsContextKey, claims)
		c.Set(tokenContextKey, tokenString)
		c.Next()
	}
}

func GetClaims(c *gin.Context) (*Claims, bool) {
	val, ok := c.Get(claimsContextKey)
	if !ok {
		return nil, false
	}
	claims, ok := val.(*Claims)
	if !ok || claims == nil {
		return nil, false
	}
	return claims, true
}

func tokenFromRequest(c *gin.Context) string {
	if cookieToken, err := c.Cookie(AccessTokenName); err == nil && cookieToken != "" {
		return cookieToken
	}

	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		return ""
	}
	if len(authHeader) < 7 || !strings.EqualFold(authHeader[:7], "Bearer ") {
		return ""
	}
	return strings.TrimSpace(authHeader[7:])
}
