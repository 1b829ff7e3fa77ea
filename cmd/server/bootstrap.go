package main

import (
	"context"
	"crypto/rsa"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"noticeboard/internal/changefeed"
	"noticeboard/internal/config"
	"noticeboard/internal/event"
	"noticeboard/internal/repository"
	"noticeboard/internal/repository/memory"
	"noticeboard/internal/repository/postgres"
	schedulerjobs "noticeboard/internal/scheduler/jobs"
	jwtutil "noticeboard/pkg/jwt"
)

type repositories struct {
	Accounts repository.AccountRepository
	Sessions repository.SessionRepository
	Profiles repository.ProfileRepository
	Notices  repository.NoticeRepository
	Audit    repository.AuditRepository

	ready func(ctx context.Context) error
	close func()
}

func openStorage(ctx context.Context, cfg config.Server, logger *zap.Logger) (*repositories, error) {
	if cfg.Storage.Driver == config.StorageDriverMemory {
		logger.Warn("using in-memory storage; data is lost on restart")
		store := memory.NewStore()
		return &repositories{
			Accounts: store.Accounts,
			Sessions: store.Sessions,
			Profiles: store.Profiles,
			Notices:  store.Notices,
			Audit:    store.Audit,
			close:    func() {},
		}, nil
	}

	pool, err := newDBPool(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return &repositories{
		Accounts: postgres.NewAccountRepository(pool),
		Sessions: postgres.NewSessionRepository(pool),
		Profiles: postgres.NewProfileRepository(pool),
		Notices:  postgres.NewNoticeRepository(pool),
		Audit:    postgres.NewAuditRepository(pool),
		ready:    pool.Ping,
		close:    pool.Close,
	}, nil
}

func newDBPool(ctx context.Context, cfg config.Server) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.Database.URL)
	if err != nil {
		return nil, fmt.Errorf("parse database.url failed: %w", err)
	}

	const maxInt32 = int(^uint32(0) >> 1)
	if cfg.Database.MaxConns > maxInt32 {
		return nil, fmt.Errorf("database.max_conns must be <= %d", maxInt32)
	}

	poolCfg.MaxConns = int32(cfg.Database.MaxConns) // #nosec G115 -- validated upper bound above.

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("create pgx pool failed: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, cfg.Database.PingTimeout)
	defer cancel()

	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database failed: %w", err)
	}

	return pool, nil
}

// loadSigningKey falls back to a throwaway key in development so the hub can
// start without any secrets.
func loadSigningKey(cfg config.Server, logger *zap.Logger) (*rsa.PrivateKey, error) {
	key, err := jwtutil.LoadPrivateKey(cfg.Security.JWTPrivateKey, "")
	if err == nil {
		return key, nil
	}
	if !errors.Is(err, jwtutil.ErrKeyNotConfigured) || !cfg.IsDevelopment() {
		return nil, err
	}

	logger.Warn("jwt private key not configured, generating an ephemeral key")
	return jwtutil.GenerateEphemeralKey()
}

// newChangeFeed relays notice changes through Redis when redis.url is set,
// otherwise within this process.
func newChangeFeed(ctx context.Context, cfg config.Server, bus *event.Bus, logger *zap.Logger) (changefeed.Feed, error) {
	local := changefeed.NewLocal(bus)
	if strings.TrimSpace(cfg.Redis.URL) == "" {
		return local, nil
	}

	opts, err := redis.ParseURL(strings.TrimSpace(cfg.Redis.URL))
	if err != nil {
		return nil, fmt.Errorf("parse redis.url failed: %w", err)
	}
	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis failed: %w", err)
	}

	feed := changefeed.NewRedis(client, cfg.Redis.Channel, local, logger)
	go func() {
		defer client.Close() //nolint:errcheck
		if err := feed.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("redis change feed stopped", zap.Error(err))
		}
	}()

	logger.Info("redis change feed enabled", zap.String("channel", cfg.Redis.Channel))
	return feed, nil
}

// registerStatusSubscriber keeps the online gauge current between scheduled
// refreshes.
func registerStatusSubscriber(bus *event.Bus, gauges *schedulerjobs.GaugeJob, logger *zap.Logger) {
	if bus == nil || gauges == nil {
		return
	}

	bus.Subscribe(event.EventProfileStatus, func(payload any) {
		status, ok := payload.(event.ProfileStatusPayload)
		if !ok {
			return
		}
		logger.Debug("profile status changed",
			zap.String("user_id", status.UserID),
			zap.String("status", status.Status),
		)
		gauges.RefreshGauges()
	})
}

func replicaID() string {
	host, err := os.Hostname()
	if err != nil || strings.TrimSpace(host) == "" {
		host = "hub"
	}
	return host + "-" + uuid.NewString()[:8]
}

func runHealthcheck() int {
	client := &http.Client{
		Timeout: 5 * time.Second,
	}

	addr := strings.TrimSpace(os.Getenv("NOTICEBOARD_HEALTHCHECK_URL"))
	if addr == "" {
		addr = "http://localhost:8080/health/ready"
	}

	resp, err := client.Get(addr)
	if err != nil {
		return 1
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return 1
	}
	return 0
}

func sanitizeCLIError(err error) string {
	if err == nil {
		return ""
	}

	text := strings.ReplaceAll(err.Error(), "\n", " ")
	text = strings.ReplaceAll(text, "\r", " ")
	return strings.TrimSpace(text)
}
