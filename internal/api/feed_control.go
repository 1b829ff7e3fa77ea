package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"noticeboard/internal/api/middleware"
	"noticeboard/internal/api/response"
	"noticeboard/internal/service"
)

const feedControlTimeout = 5 * time.Second

type feedStatus struct {
	Connections int   `json:"connections"`
	Notices     int64 `json:"notices"`
}

// registerFeedControlRoutes exposes the live feed to operators: how many
// connections this replica holds, and a way to push a fresh snapshot after
// editing notices directly in storage.
func registerFeedControlRoutes(group *gin.RouterGroup, notices *service.NoticeService, logger *zap.Logger) {
	if notices == nil {
		return
	}

	group.GET("/feed", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), feedControlTimeout)
		defer cancel()

		count, err := notices.Count(ctx)
		if err != nil {
			logger.Warn("count notices failed", zap.Error(err))
			response.Fail(c, http.StatusInternalServerError, response.ErrInternal, "internal error")
			return
		}
		response.Success(c, feedStatus{Connections: notices.FeedConnections(), Notices: count})
	})

	group.POST("/feed/rebroadcast", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), feedControlTimeout)
		defer cancel()

		caller, _ := middleware.InternalCaller(c)
		if err := notices.BroadcastSnapshot(ctx); err != nil {
			logger.Warn("manual snapshot rebroadcast failed", zap.String("caller", caller), zap.Error(err))
			response.Fail(c, http.StatusInternalServerError, response.ErrInternal, "internal error")
			return
		}
		logger.Info("notice snapshot rebroadcast", zap.String("caller", caller))
		response.Success(c, gin.H{"connections": notices.FeedConnections()})
	})
}
