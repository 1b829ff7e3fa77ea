package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"noticeboard/internal/api"
	v1 "noticeboard/internal/api/v1"
	"noticeboard/internal/config"
	"noticeboard/internal/event"
	"noticeboard/internal/scheduler"
	schedulerjobs "noticeboard/internal/scheduler/jobs"
	"noticeboard/internal/service"
	"noticeboard/internal/sse"
	loggerpkg "noticeboard/pkg/logger"
)

var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

func main() {
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "healthcheck":
			os.Exit(runHealthcheck())
		case "migrate":
			if err := runMigrateCommand(); err != nil {
				// #nosec G705 -- CLI output only; control characters are stripped.
				fmt.Fprintln(os.Stderr, sanitizeCLIError(err))
				os.Exit(1)
			}
			return
		}
	}

	cfg, err := config.LoadServer(os.Getenv("NOTICEBOARD_CONFIG"))
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

	if !cfg.IsDevelopment() {
		gin.SetMode(gin.ReleaseMode)
	}

	rootCtx, stopBackground := context.WithCancel(context.Background())
	defer stopBackground()

	repos, err := openStorage(rootCtx, cfg, logger)
	if err != nil {
		logger.Fatal("open storage failed", zap.Error(err))
	}
	defer repos.close()

	privateKey, err := loadSigningKey(cfg, logger)
	if err != nil {
		logger.Fatal("load jwt private key failed", zap.Error(err))
	}

	eventBus := event.NewBus()
	sseHub := sse.NewHub(logger)
	defer sseHub.Close()

	feed, err := newChangeFeed(rootCtx, cfg, eventBus, logger)
	if err != nil {
		logger.Fatal("init change feed failed", zap.Error(err))
	}

	identitySvc := service.NewIdentityService(repos.Accounts, repos.Sessions, repos.Audit, privateKey, service.IdentityOptions{
		SessionTTL:        cfg.Session.TTL,
		MinPasswordLength: cfg.Identity.MinPasswordLength,
		BcryptCost:        cfg.Identity.BcryptCost,
	}, logger)
	profileSvc := service.NewProfileService(repos.Profiles, repos.Audit, eventBus, logger)
	noticeSvc := service.NewNoticeService(repos.Notices, repos.Profiles, repos.Audit, feed, sseHub, service.NoticeOptions{
		EnforceFacultyRole: cfg.Notices.EnforceFacultyRole,
		Origin:             replicaID(),
	}, logger)

	gaugeJob := schedulerjobs.NewGaugeJob(noticeSvc, profileSvc, sseHub, logger)
	registerStatusSubscriber(eventBus, gaugeJob, logger)

	cronRunner := scheduler.NewScheduler(scheduler.Deps{
		GaugeJob:   gaugeJob,
		SessionJob: schedulerjobs.NewSessionJob(identitySvc, 0, logger),
	}, scheduler.Specs{
		Gauges:       cfg.Scheduler.GaugeSpec,
		SessionPurge: cfg.Scheduler.SessionPurgeSpec,
	}, logger)
	gaugeJob.RefreshGauges()
	cronRunner.Start()
	defer func() {
		stopCtx := cronRunner.Stop()
		select {
		case <-stopCtx.Done():
		case <-time.After(2 * time.Second):
		}
	}()

	router := api.NewRouter(api.Services{
		Identity: identitySvc,
		Profiles: profileSvc,
		Notices:  noticeSvc,
	}, api.RouterOptions{
		AllowOrigins:     cfg.CORS.AllowOrigins,
		InternalToken:    cfg.Security.InternalToken,
		InternalLoopback: cfg.Security.InternalLoopback,
		PprofEnabled:     cfg.IsDevelopment() && cfg.Debug.PprofEnabled,
		Ready:            repos.ready,
		ReadyTimeout:     cfg.Database.PingTimeout,
		V1: v1.Options{
			SecureCookies: cfg.Server.SecureCookies,
			AuthRateLimit: cfg.Security.AuthRateLimit,
		},
		Logger: logger,
	})

	// Streams stay open, so there is no write timeout.
	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           router,
		ReadTimeout:       cfg.Server.ReadTimeout,
		ReadHeaderTimeout: cfg.Server.ReadTimeout,
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

	logger.Info("server started",
		zap.String("addr", srv.Addr),
		zap.String("storage", cfg.Storage.Driver),
		zap.String("version", Version),
		zap.String("commit", Commit),
		zap.String("build_time", BuildTime),
	)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info("shutdown signal received", zap.String("signal", sig.String()))
	case err := <-serverErrCh:
		if err != nil {
			logger.Fatal("server exited unexpectedly", zap.Error(err))
		}
		return
	}

	// Closing the feed hub first ends open streams so Shutdown does not wait
	// on them.
	sseHub.Close()
	stopBackground()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown server failed", zap.Error(err))
	}
}
