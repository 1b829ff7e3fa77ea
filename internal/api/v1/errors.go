package v1

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"noticeboard/internal/api/response"
	"noticeboard/internal/service"
)

// Messages here reach end users verbatim.
func handleServiceError(c *gin.Context, err error, minPasswordLength int) {
	switch {
	case errors.Is(err, service.ErrInvalidEmail):
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidEmail, "The email address is badly formatted.")
	case errors.Is(err, service.ErrWeakPassword):
		response.Fail(c, http.StatusBadRequest, response.ErrWeakPassword,
			fmt.Sprintf("Password should be at least %d characters.", minPasswordLength))
	case errors.Is(err, service.ErrEmailInUse):
		response.Fail(c, http.StatusConflict, response.ErrEmailInUse, "The email address is already in use by another account.")
	case errors.Is(err, service.ErrInvalidCredentials):
		response.Fail(c, http.StatusUnauthorized, response.ErrInvalidCredential, "Invalid email or password.")
	case errors.Is(err, service.ErrSessionInvalid), errors.Is(err, service.ErrAccountNotFound):
		response.Fail(c, http.StatusUnauthorized, response.ErrUnauthorized, "unauthorized")
	case errors.Is(err, service.ErrInvalidUserID):
		response.Fail(c, http.StatusBadRequest, response.ErrBadRequest, "invalid user id")
	case errors.Is(err, service.ErrProfileNotFound):
		response.Fail(c, http.StatusNotFound, response.ErrProfileMissing, "profile not found")
	case errors.Is(err, service.ErrProfileExists):
		response.Fail(c, http.StatusConflict, response.ErrProfileExists, "profile already exists")
	case errors.Is(err, service.ErrProfileForbidden):
		response.Fail(c, http.StatusForbidden, response.ErrForbidden, "forbidden")
	case errors.Is(err, service.ErrInvalidProfile):
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidProfile, "invalid profile")
	case errors.Is(err, service.ErrInvalidNotice):
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidNotice,
			"title, content, category, importance and tags are required")
	case errors.Is(err, service.ErrInvalidNoticeQuery):
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidQuery, "query parameter q is required")
	case errors.Is(err, service.ErrNoticeForbidden):
		response.Fail(c, http.StatusForbidden, response.ErrNoticeRoleOnly, "only faculty may post notices")
	default:
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal, "internal error")
	}
}
