package api

import (
	"context"
	"net/http"
	"net/http/pprof"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"noticeboard/internal/api/middleware"
	v1 "noticeboard/internal/api/v1"
	"noticeboard/internal/service"
)

const defaultReadyTimeout = 3 * time.Second

type Services struct {
	Identity *service.IdentityService
	Profiles *service.ProfileService
	Notices  *service.NoticeService
}

type RouterOptions struct {
	AllowOrigins     []string
	InternalToken    string
	InternalLoopback bool
	PprofEnabled     bool
	// Ready reports storage health for /health/ready; nil means always ready.
	Ready        func(ctx context.Context) error
	ReadyTimeout time.Duration
	V1           v1.Options
	Logger       *zap.Logger
}

// NewRouter assembles the hub's HTTP surface.
func NewRouter(services Services, opts RouterOptions) *gin.Engine {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.ReadyTimeout <= 0 {
		opts.ReadyTimeout = defaultReadyTimeout
	}
	if opts.V1.Logger == nil {
		opts.V1.Logger = opts.Logger
	}
	if len(opts.V1.AllowedOrigins) == 0 {
		opts.V1.AllowedOrigins = opts.AllowOrigins
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(buildCORSMiddleware(opts.AllowOrigins))
	router.Use(middleware.RequestLogger(opts.Logger))

	healthHandler := func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
	readyHandler := func(c *gin.Context) {
		if opts.Ready != nil {
			ctx, cancel := context.WithTimeout(c.Request.Context(), opts.ReadyTimeout)
			defer cancel()

			if err := opts.Ready(ctx); err != nil {
				opts.Logger.Warn("readiness check failed", zap.Error(err))
				c.JSON(http.StatusServiceUnavailable, gin.H{
					"status": "not_ready",
					"error":  "storage unavailable",
				})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	}

	router.GET("/health", healthHandler)
	router.GET("/health/ready", readyHandler)
	router.GET("/api/v1/health", healthHandler)
	router.GET("/api/v1/health/ready", readyHandler)

	internal := router.Group("/internal")
	internal.Use(middleware.InternalAuth(middleware.InternalAuthOptions{
		Token:         opts.InternalToken,
		AllowLoopback: opts.InternalLoopback,
		Logger:        opts.Logger,
	}))
	internal.GET("/metrics", gin.WrapH(promhttp.Handler()))
	registerFeedControlRoutes(internal, services.Notices, opts.Logger)

	if opts.PprofEnabled {
		registerPprofRoutes(router)
		opts.Logger.Info("pprof endpoint enabled", zap.String("path", "/debug/pprof/"))
	}

	apiV1 := router.Group("/api/v1")
	v1.RegisterRoutes(apiV1, services.Identity, services.Profiles, services.Notices, opts.V1)

	return router
}

func buildCORSMiddleware(allowOrigins []string) gin.HandlerFunc {
	origins := make([]string, 0, len(allowOrigins))
	for _, origin := range allowOrigins {
		trimmed := strings.TrimSpace(origin)
		if trimmed == "" {
			continue
		}
		origins = append(origins, trimmed)
	}
	if len(origins) == 0 {
		origins = []string{"http://localhost:5173"}
	}

	return cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Type"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	})
}

func registerPprofRoutes(router *gin.Engine) {
	pprofGroup := router.Group("/debug/pprof")
	pprofGroup.GET("/", gin.WrapF(pprof.Index))
	pprofGroup.GET("/cmdline", gin.WrapF(pprof.Cmdline))
	pprofGroup.GET("/profile", gin.WrapF(pprof.Profile))
	pprofGroup.GET("/symbol", gin.WrapF(pprof.Symbol))
	pprofGroup.POST("/symbol", gin.WrapF(pprof.Symbol))
	pprofGroup.GET("/trace", gin.WrapF(pprof.Trace))
	pprofGroup.GET("/goroutine", gin.WrapH(pprof.Handler("goroutine")))
	pprofGroup.GET("/heap", gin.WrapH(pprof.Handler("heap")))
}
