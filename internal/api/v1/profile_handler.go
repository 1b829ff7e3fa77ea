package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"noticeboard/internal/api/middleware"
	"noticeboard/internal/api/response"
	"noticeboard/internal/model"
	"noticeboard/internal/service"
)

type ProfileHandler struct {
	profiles *service.ProfileService
}

func NewProfileHandler(profiles *service.ProfileService) *ProfileHandler {
	return &ProfileHandler{profiles: profiles}
}

func RegisterProfileRoutes(group *gin.RouterGroup, profiles *service.ProfileService, authRequired gin.HandlerFunc) {
	if profiles == nil {
		return
	}

	handler := NewProfileHandler(profiles)
	group.GET("/profiles/:id", authRequired, handler.Get)
	group.PUT("/profiles/:id", authRequired, handler.Set)
	group.PATCH("/profiles/:id", authRequired, handler.Update)
}

func (h *ProfileHandler) Get(c *gin.Context) {
	claims, ok := middleware.GetClaims(c)
	if !ok {
		response.Fail(c, http.StatusUnauthorized, response.ErrUnauthorized, "unauthorized")
		return
	}

	profile, err := h.profiles.Get(c.Request.Context(), claims.UserID, c.Param("id"))
	if err != nil {
		handleServiceError(c, err, 0)
		return
	}
	response.Success(c, profile)
}

func (h *ProfileHandler) Set(c *gin.Context) {
	claims, ok := middleware.GetClaims(c)
	if !ok {
		response.Fail(c, http.StatusUnauthorized, response.ErrUnauthorized, "unauthorized")
		return
	}

	var req model.ProfileFields
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrBadRequest, "invalid request")
		return
	}

	profile, err := h.profiles.Set(c.Request.Context(), claims.UserID, c.Param("id"), req)
	if err != nil {
		handleServiceError(c, err, 0)
		return
	}
	response.Created(c, profile)
}

func (h *ProfileHandler) Update(c *gin.Context) {
	claims, ok := middleware.GetClaims(c)
	if !ok {
		response.Fail(c, http.StatusUnauthorized, response.ErrUnauthorized, "unauthorized")
		return
	}

	var req model.ProfileUpdate
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrBadRequest, "invalid request")
		return
	}

	profile, err := h.profiles.Update(c.Request.Context(), claims.UserID, c.Param("id"), req)
	if err != nil {
		handleServiceError(c, err, 0)
		return
	}
	response.Success(c, profile)
}
