package v1

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"noticeboard/internal/api/middleware"
	"noticeboard/internal/api/response"
	"noticeboard/internal/service"
)

type AuthHandler struct {
	identity      *service.IdentityService
	secureCookies bool
}

type credentialsRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type sessionResponse struct {
	UID       string    `json:"uid"`
	Email     string    `json:"email"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

type identityResponse struct {
	UID   string `json:"uid"`
	Email string `json:"email"`
}

func NewAuthHandler(identity *service.IdentityService, secureCookies bool) *AuthHandler {
	return &AuthHandler{identity: identity, secureCookies: secureCookies}
}

func RegisterAuthRoutes(group *gin.RouterGroup, identity *service.IdentityService, authRequired gin.HandlerFunc, opts Options) {
	if identity == nil {
		return
	}

	handler := NewAuthHandler(identity, opts.SecureCookies)
	auth := group.Group("/auth")
	limits := authRateLimit(opts)
	auth.POST("/accounts", withHandler(limits, handler.CreateAccount)...)
	auth.POST("/sessions", withHandler(limits, handler.CreateSession)...)
	auth.GET("/session", authRequired, handler.CurrentSession)
	auth.DELETE("/session", authRequired, handler.EndSession)
}

func withHandler(chain []gin.HandlerFunc, handler gin.HandlerFunc) []gin.HandlerFunc {
	out := make([]gin.HandlerFunc, 0, len(chain)+1)
	return append(append(out, chain...), handler)
}

// CreateAccount registers an account and returns a signed-in session.
func (h *AuthHandler) CreateAccount(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrBadRequest, "Email and password are required.")
		return
	}

	session, err := h.identity.CreateAccount(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		h.handleError(c, err)
		return
	}

	h.writeSession(c, http.StatusCreated, session)
}

func (h *AuthHandler) CreateSession(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrBadRequest, "Email and password are required.")
		return
	}

	session, err := h.identity.Authenticate(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		h.handleError(c, err)
		return
	}

	h.writeSession(c, http.StatusOK, session)
}

func (h *AuthHandler) CurrentSession(c *gin.Context) {
	claims, ok := middleware.GetClaims(c)
	if !ok {
		response.Fail(c, http.StatusUnauthorized, response.ErrUnauthorized, "unauthorized")
		return
	}

	identity, err := h.identity.CurrentIdentity(c.Request.Context(), claims.UserID)
	if err != nil {
		h.handleError(c, err)
		return
	}

	response.Success(c, identityResponse{UID: identity.UID.String(), Email: identity.Email})
}

func (h *AuthHandler) EndSession(c *gin.Context) {
	claims, ok := middleware.GetClaims(c)
	if !ok {
		response.Fail(c, http.StatusUnauthorized, response.ErrUnauthorized, "unauthorized")
		return
	}

	if err := h.identity.EndSession(c.Request.Context(), claims); err != nil {
		h.handleError(c, err)
		return
	}

	h.clearCookie(c, middleware.AccessTokenName)
	response.Success(c, nil)
}

func (h *AuthHandler) writeSession(c *gin.Context, status int, session *service.SessionToken) {
	maxAge := int(time.Until(session.ExpiresAt).Seconds())
	h.setCookie(c, middleware.AccessTokenName, session.Token, maxAge)

	c.JSON(status, response.Response{
		Code:    response.CodeSuccess,
		Message: "success",
		Data: sessionResponse{
			UID:       session.Identity.UID.String(),
			Email:     session.Identity.Email,
			Token:     session.Token,
			ExpiresAt: session.ExpiresAt,
		},
	})
}

func (h *AuthHandler) handleError(c *gin.Context, err error) {
	handleServiceError(c, err, h.identity.MinPasswordLength())
}

func (h *AuthHandler) setCookie(c *gin.Context, name, value string, maxAge int) {
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(name, value, maxAge, "/", "", h.secureCookies, true)
}

func (h *AuthHandler) clearCookie(c *gin.Context, name string) {
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(name, "", -1, "/", "", h.secureCookies, true)
}
