package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/edcore/school-admin-guard/internal/core/port"
	"github.com/edcore/school-admin-guard/internal/infra/config"
	"github.com/edcore/school-admin-guard/internal/infra/database"
	kafkainfra "github.com/edcore/school-admin-guard/internal/infra/kafka"
	"github.com/edcore/school-admin-guard/internal/infra/logger"
	redisinfra "github.com/edcore/school-admin-guard/internal/infra/redis"
	"github.com/edcore/school-admin-guard/internal/infra/security"
	"github.com/edcore/school-admin-guard/internal/repository/memory"
	postgresrepo "github.com/edcore/school-admin-guard/internal/repository/postgres"
	redisrepo "github.com/edcore/school-admin-guard/internal/repository/redis"
	"github.com/edcore/school-admin-guard/internal/transport/http/middleware"
	"github.com/edcore/school-admin-guard/internal/transport/http/routes"
	"github.com/edcore/school-admin-guard/internal/usecase"
)

// Application bundles the wired service graph and its lifecycle.
type Application struct {
	cfg    *config.AppConfig
	engine *gin.Engine
	logger *zap.Logger
	pool   *pgxpool.Pool
	redis  *redisinfra.Client
}

// New wires the full service graph from configuration.
func New(ctx context.Context, cfg *config.AppConfig) (*Application, error) {
	log, err := logger.New(cfg.App.Env)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	pool, err := database.NewPostgresPool(ctx, cfg.Postgres, log)
	if err != nil {
		return nil, fmt.Errorf("init postgres: %w", err)
	}

	redisClient, err := redisinfra.NewClient(cfg.Redis, log)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("init redis: %w", err)
	}

	hasher := security.NewPasswordHasher(security.Argon2Params{
		Memory:      cfg.Argon2.Memory,
		Iterations:  cfg.Argon2.Iterations,
		Parallelism: cfg.Argon2.Parallelism,
		SaltLength:  cfg.Argon2.SaltLength,
		KeyLength:   cfg.Argon2.KeyLength,
	})

	tokens, err := security.NewTokenIssuer(cfg.JWT.Secret, cfg.JWT.Issuer, cfg.JWT.SessionTokenTTL)
	if err != nil {
		_ = redisClient.Close()
		pool.Close()
		return nil, fmt.Errorf("init token issuer: %w", err)
	}

	repos := postgresrepo.NewRepositories(pool)

	attemptStore := redisrepo.NewAttemptStore(redisClient.Client(), redisrepo.AttemptStoreConfig{
		AttemptPrefix: cfg.Redis.AttemptPrefix,
		LockoutPrefix: cfg.Redis.LockoutPrefix,
		AttemptTTL:    cfg.Lockout.Window * 2,
	})
	challengeStore := redisrepo.NewChallengeStore(redisClient.Client(), cfg.Redis.ChallengePrefix)

	var auditPublisher port.AuditPublisher
	if len(cfg.Kafka.Brokers) > 0 {
		producer, err := kafkainfra.NewProducer(cfg.Kafka, log)
		if err != nil {
			log.Warn("failed to init kafka producer, using stub publisher", zap.Error(err))
			auditPublisher = kafkainfra.NewStubPublisher(log)
		} else {
			auditPublisher = kafkainfra.NewAuditPublisher(producer, log)
			log.Info("kafka audit publisher initialized", zap.Strings("brokers", cfg.Kafka.Brokers))
		}
	} else {
		log.Info("kafka brokers not configured, using stub publisher")
		auditPublisher = kafkainfra.NewStubPublisher(log)
	}

	auditMirror := memory.NewAuditMirror(cfg.Audit.MirrorSize)
	auditService := usecase.NewAuditService(repos.Audit, auditMirror, auditPublisher, log)

	throttleService := usecase.NewThrottleService(attemptStore, cfg.Lockout, log)
	challengeService := usecase.NewChallengeService(challengeStore, cfg.Challenge, log)
	deviceService := usecase.NewDeviceTrustService(repos.Devices, auditService, log)
	capabilityTable := usecase.DefaultCapabilityTable()
	if cfg.Permissions.TablePath != "" {
		capabilityTable, err = usecase.LoadCapabilityTable(cfg.Permissions.TablePath)
		if err != nil {
			_ = redisClient.Close()
			pool.Close()
			return nil, fmt.Errorf("load capability table: %w", err)
		}
	}
	permissionEngine := usecase.NewPermissionEngine(capabilityTable)
	adminService := usecase.NewAdminService(repos.Accounts, hasher, security.DefaultPasswordValidator(), auditService, log)
	systemService := usecase.NewSystemService(log)
	confirmationService := usecase.NewConfirmationService(challengeService, auditService, log)
	loginService := usecase.NewLoginService(repos.Accounts, hasher, tokens, throttleService, deviceService, challengeService, auditService, log)

	metrics, err := middleware.NewHTTPMetrics(middleware.HTTPMetricsOptions{})
	if err != nil {
		log.Warn("failed to init http metrics", zap.Error(err))
	}

	engine := routes.Register(routes.Dependencies{
		Config:   cfg,
		Logger:   log,
		Metrics:  metrics,
		Tokens:   tokens,
		Database: pool,
		Cache:    redisClient,
		Services: routes.ServiceSet{
			Login:         loginService,
			Admins:        adminService,
			Devices:       deviceService,
			Audit:         auditService,
			Confirmations: confirmationService,
			System:        systemService,
			Permissions:   permissionEngine,
		},
	})

	return &Application{
		cfg:    cfg,
		engine: engine,
		logger: log,
		pool:   pool,
		redis:  redisClient,
	}, nil
}

// Run serves HTTP until the context is cancelled, then shuts down cleanly.
func (a *Application) Run(ctx context.Context) error {
	defer func() {
		_ = a.logger.Sync()
	}()
	defer func() {
		if a.pool != nil {
			a.pool.Close()
		}
	}()
	defer func() {
		if a.redis != nil {
			_ = a.redis.Close()
		}
	}()

	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", a.cfg.App.Host, a.cfg.App.Port),
		Handler:           a.engine,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	a.logger.Info("starting admin guard API",
		zap.String("env", a.cfg.App.Env),
		zap.String("address", srv.Addr),
	)

	serverErrCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrCh <- fmt.Errorf("run server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown server: %w", err)
		}
		return nil
	case err := <-serverErrCh:
		return err
	}
}
