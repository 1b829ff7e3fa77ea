package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"noticeboard/internal/analyzer"
	"noticeboard/internal/api/middleware"
	"noticeboard/internal/config"
	loggerpkg "noticeboard/pkg/logger"
)

const shutdownTimeout = 10 * time.Second

var Version = "dev"

func main() {
	cfg, err := config.LoadAnalyzer(os.Getenv("ANALYZER_CONFIG"))
	if err != nil {
		panic(fmt.Errorf("load config: %w", err))
	}

	logger, err := loggerpkg.New(loggerpkg.Options{
		Env:      cfg.App.Env,
		Level:    cfg.Log.Level,
		Encoding: cfg.Log.Encoding,
	})
	if err != nil {
		panic(fmt.Errorf("init logger: %w", err))
	}
	defer logger.Sync() //nolint:errcheck

	if !strings.EqualFold(cfg.App.Env, "development") {
		gin.SetMode(gin.ReleaseMode)
	}

	classifier, err := analyzer.NewClassifier(cfg.Rules)
	if err != nil {
		logger.Fatal("build classifier failed", zap.Error(err))
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(buildCORSMiddleware(cfg.CORS.AllowOrigins))
	router.Use(middleware.RequestLogger(logger))
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	analyzer.RegisterRoutes(router, classifier, logger)

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErrCh := make(chan error, 1)
	go func() {
		err := srv.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrCh <- err
			return
		}
		serverErrCh <- nil
	}()

	logger.Info("analyzer started", zap.String("addr", srv.Addr), zap.String("version", Version))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info("shutdown signal received", zap.String("signal", sig.String()))
	case err := <-serverErrCh:
		if err != nil {
			logger.Fatal("analyzer exited unexpectedly", zap.Error(err))
		}
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("shutdown analyzer failed", zap.Error(err))
	}
}

// The analyzer is called from browsers as well as the terminal client, so a
// lone "*" opens it to every origin.
func buildCORSMiddleware(origins []string) gin.HandlerFunc {
	cfg := cors.Config{
		AllowMethods: []string{"GET", "POST", "OPTIONS"},
		AllowHeaders: []string{"Content-Type"},
		MaxAge:       12 * time.Hour,
	}
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
	}
	return cors.New(cfg)
}
