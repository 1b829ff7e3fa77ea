package analyzer

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"noticeboard/internal/metrics"
	"noticeboard/internal/model"
)

// Engine produces an analysis for a title/content pair.
type Engine interface {
	Classify(title, content string) (model.Analysis, error)
}

type handler struct {
	engine Engine
	logger *zap.Logger
}

// RegisterRoutes mounts GET /api/health and POST /api/notices.
func RegisterRoutes(router gin.IRoutes, engine Engine, logger *zap.Logger) {
	if logger == nil {
		logger = zap.NewNop()
	}
	h := &handler{engine: engine, logger: logger}

	router.GET("/api/health", h.health)
	router.POST("/api/notices", h.analyze)
}

func (h *handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "OK", "message": "API Running!"})
}

func (h *handler) analyze(c *gin.Context) {
	startedAt := time.Now()

	var req Request
	// An empty body falls through to the missing-fields answer.
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		metrics.ObserveAnalyzerRequest("invalid", time.Since(startedAt))
		h.logger.Debug("malformed analyze request", zap.Error(err))
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: msgInvalidBody + err.Error()})
		return
	}

	analysis, err := h.engine.Classify(req.Title, req.Content)
	if err != nil {
		if errors.Is(err, ErrMissingFields) {
			metrics.ObserveAnalyzerRequest("invalid", time.Since(startedAt))
			c.JSON(http.StatusBadRequest, Response{Success: false, Error: msgTitleContentRequired})
			return
		}

		metrics.ObserveAnalyzerRequest("error", time.Since(startedAt))
		h.logger.Error("classify notice failed", zap.String("user_id", req.UserID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, Response{Success: false, Error: err.Error()})
		return
	}

	metrics.ObserveAnalyzerRequest("ok", time.Since(startedAt))
	h.logger.Debug("notice classified",
		zap.String("user_id", req.UserID),
		zap.String("category", analysis.Category),
		zap.String("importance", analysis.Importance),
	)
	c.JSON(http.StatusCreated, Response{Success: true, Analysis: &analysis})
}
