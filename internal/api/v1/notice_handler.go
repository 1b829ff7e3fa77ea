package v1

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"noticeboard/internal/api/middleware"
	"noticeboard/internal/api/response"
	"noticeboard/internal/model"
	"noticeboard/internal/repository"
	"noticeboard/internal/service"
)

const (
	noticeSearchDefaultPage = 1
	noticeSearchDefaultSize = 20
)

type NoticeHandler struct {
	notices  *service.NoticeService
	identity *service.IdentityService
}

func NewNoticeHandler(notices *service.NoticeService, identity *service.IdentityService) *NoticeHandler {
	return &NoticeHandler{notices: notices, identity: identity}
}

func RegisterNoticeRoutes(
	group *gin.RouterGroup,
	notices *service.NoticeService,
	identity *service.IdentityService,
	authRequired gin.HandlerFunc,
) {
	if notices == nil || identity == nil {
		return
	}

	handler := NewNoticeHandler(notices, identity)
	group.GET("/notices", authRequired, handler.List)
	group.GET("/notices/search", authRequired, handler.Search)
	group.POST("/notices", authRequired, handler.Create)
}

// List returns the full collection, newest first.
func (h *NoticeHandler) List(c *gin.Context) {
	notices, err := h.notices.Snapshot(c.Request.Context())
	if err != nil {
		handleServiceError(c, err, 0)
		return
	}
	response.Success(c, nonNilNotices(notices))
}

func (h *NoticeHandler) Search(c *gin.Context) {
	page := parsePositiveInt(c.Query("page"), noticeSearchDefaultPage)
	pageSize := parsePositiveInt(c.Query("page_size"), noticeSearchDefaultSize)

	notices, err := h.notices.Search(c.Request.Context(), c.Query("q"), repository.Pagination{
		Limit:  int32(pageSize),
		Offset: int32((page - 1) * pageSize),
	})
	if err != nil {
		handleServiceError(c, err, 0)
		return
	}
	response.Success(c, nonNilNotices(notices))
}

func (h *NoticeHandler) Create(c *gin.Context) {
	claims, ok := middleware.GetClaims(c)
	if !ok {
		response.Fail(c, http.StatusUnauthorized, response.ErrUnauthorized, "unauthorized")
		return
	}

	var req model.NoticeDraft
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrBadRequest, "invalid request")
		return
	}

	author, err := h.identity.CurrentIdentity(c.Request.Context(), claims.UserID)
	if err != nil {
		handleServiceError(c, err, 0)
		return
	}

	notice, err := h.notices.Create(c.Request.Context(), author, req)
	if err != nil {
		handleServiceError(c, err, 0)
		return
	}
	response.Created(c, notice)
}

func nonNilNotices(notices []*model.Notice) []*model.Notice {
	if notices == nil {
		return []*model.Notice{}
	}
	return notices
}

func parsePositiveInt(raw string, fallback int) int {
	value, err := strconv.Atoi(raw)
	if err != nil || value <= 0 {
		return fallback
	}
	if value > 200 {
		return 200
	}
	return value
}
