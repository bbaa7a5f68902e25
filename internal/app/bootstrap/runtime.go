package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	cacheadapter "github.com/viralforge/sala-escrow/internal/adapters/cache"
	eventadapter "github.com/viralforge/sala-escrow/internal/adapters/events"
	grpcadapter "github.com/viralforge/sala-escrow/internal/adapters/grpc"
	httpadapter "github.com/viralforge/sala-escrow/internal/adapters/http"
	"github.com/viralforge/sala-escrow/internal/adapters/memory"
	"github.com/viralforge/sala-escrow/internal/adapters/postgres"
	"github.com/viralforge/sala-escrow/internal/adapters/scheduler"
	"github.com/viralforge/sala-escrow/internal/adapters/security"
	"github.com/viralforge/sala-escrow/internal/application"
	"github.com/viralforge/sala-escrow/internal/ports"
)

type publisher interface {
	ports.DomainPublisher
	ports.AnalyticsPublisher
	ports.DLQPublisher
}

type Runtime struct {
	cfg        Config
	logger     *slog.Logger
	service    *application.Service
	httpServer *http.Server
	grpcServer *grpc.Server
	health     *health.Server
	timers     *scheduler.TimerScheduler
	outbox     *eventadapter.OutboxWorker
	holds      *eventadapter.HoldExpiryWorker
	durable    bool
	cleanupFn  func(context.Context)
}

func NewRuntime(ctx context.Context, configPath string) (*Runtime, error) {
	cfg, err := LoadConfig(configPath)
	if err != nil {
		return nil, err
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)
	logger.Info("bootstrapping sala escrow service", "http_port", cfg.HTTPPort, "grpc_port", cfg.GRPCPort)

	var cleanups []func(context.Context)
	cleanup := func(ctx context.Context) {
		for i := len(cleanups) - 1; i >= 0; i-- {
			cleanups[i](ctx)
		}
	}
	fail := func(err error) (*Runtime, error) {
		cleanup(ctx)
		return nil, err
	}

	var (
		uow         ports.UnitOfWork
		repos       ports.Repositories
		idempotency ports.IdempotencyRepository
		ready       func(context.Context) error
	)
	if cfg.DatabaseURL != "" {
		db, err := postgres.Connect(ctx, cfg.DatabaseURL, cfg.MaxDBConns)
		if err != nil {
			return fail(err)
		}
		sqlDB, err := db.DB()
		if err != nil {
			return fail(fmt.Errorf("gorm sql db: %w", err))
		}
		cleanups = append(cleanups, func(context.Context) { _ = sqlDB.Close() })
		if err := postgres.RunMigrations(ctx, db); err != nil {
			return fail(fmt.Errorf("run migrations: %w", err))
		}
		store := postgres.NewStore(db)
		uow, repos, idempotency, ready = store, store.Repositories(), store.Idempotency, store.Ping
	} else {
		logger.Warn("no postgres configured, using the in-memory store")
		store := memory.NewStore()
		uow, repos, idempotency = store, store.Repositories(), store.Idempotency
	}

	var (
		locker ports.AgreementLocker
		holds  ports.HoldScheduler
		queue  eventadapter.DueHolds
		timers *scheduler.TimerScheduler
	)
	if cfg.RedisURL != "" {
		client, err := cacheadapter.Connect(ctx, cfg.RedisURL)
		if err != nil {
			return fail(fmt.Errorf("connect redis: %w", err))
		}
		cleanups = append(cleanups, func(context.Context) { _ = client.Close() })
		hq := cacheadapter.NewRedisHoldQueue(client)
		locker, holds, queue = cacheadapter.NewRedisLocker(client, cfg.LockTTL, cfg.LockWait), hq, hq
		if ready != nil {
			pingDB := ready
			ready = func(ctx context.Context) error {
				if err := pingDB(ctx); err != nil {
					return err
				}
				return client.Ping(ctx).Err()
			}
		}
	} else {
		timers = scheduler.NewTimerScheduler()
		cleanups = append(cleanups, func(context.Context) { timers.Close() })
		locker, holds = cacheadapter.NewLocalLocker(cfg.LockWait), timers
	}

	var pub publisher = eventadapter.NewLoggingPublisher(logger)
	if len(cfg.KafkaBrokers) > 0 {
		kp, err := eventadapter.NewKafkaPublisher(cfg.KafkaBrokers, eventadapter.KafkaTopics{
			ByEvent:   cfg.KafkaTopics,
			Analytics: cfg.AnalyticsTopic,
			DLQ:       cfg.DLQTopic,
		})
		if err != nil {
			return fail(fmt.Errorf("init kafka publisher: %w", err))
		}
		cleanups = append(cleanups, func(context.Context) { _ = kp.Close() })
		pub = kp
	}

	svc := application.NewService(application.Dependencies{
		Config: application.Config{
			ServiceName:          cfg.ServiceID,
			IdempotencyTTL:       cfg.IdempotencyTTL,
			HoldPeriod:           cfg.HoldPeriod,
			MaxRejectedAttempts:  cfg.MaxRejected,
			OutboxFlushBatchSize: cfg.OutboxBatchSize,
			HoldSweepBatchSize:   cfg.HoldSweepBatch,
			PlatformAccountID:    cfg.PlatformAccount,
		},
		UnitOfWork:   uow,
		Repositories: repos,
		Locker:       locker,
		Holds:        holds,
		Idempotency:  idempotency,
		DomainEvents: pub,
		Analytics:    pub,
		DLQ:          pub,
	})
	if timers != nil {
		timers.OnExpire(svc.ExpireHold)
	}

	var verifier *security.HMACVerifier
	if cfg.JWTSecret != "" {
		verifier, err = security.NewHMACVerifier(cfg.JWTSecret, cfg.JWTIssuer)
		if err != nil {
			return fail(fmt.Errorf("init jwt verifier: %w", err))
		}
	} else {
		logger.Warn("no JWT secret configured, trusting bearer subjects for local/dev runtime")
	}

	handler := httpadapter.NewHandler(svc, httpadapter.Options{
		Verifier:      verifier,
		RatePerSecond: cfg.RateLimitPerSec,
		RateBurst:     cfg.RateLimitBurst,
		Ready:         ready,
	})
	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           httpadapter.NewRouter(handler),
		ReadHeaderTimeout: 5 * time.Second,
	}

	grpcServer := grpc.NewServer()
	healthSrv := health.NewServer()
	healthpb.RegisterHealthServer(grpcServer, healthSrv)
	healthSrv.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	grpcadapter.Register(grpcServer, grpcadapter.NewSalaInternalServer(svc))

	return &Runtime{
		cfg:        cfg,
		logger:     logger,
		service:    svc,
		httpServer: httpServer,
		grpcServer: grpcServer,
		health:     healthSrv,
		timers:     timers,
		outbox:     eventadapter.NewOutboxWorker(logger, svc, cfg.OutboxInterval),
		holds:      eventadapter.NewHoldExpiryWorker(logger, svc, queue, cfg.HoldSweepEvery, cfg.HoldSweepBatch),
		durable:    cfg.DatabaseURL != "",
		cleanupFn:  cleanup,
	}, nil
}

func (r *Runtime) RunAPI(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if r.timers != nil {
		armed, err := r.service.RearmHolds(ctx)
		if err != nil {
			r.logger.Error("re-arming hold timers failed", "operation", "rearm_holds", "outcome", "failure", "error", err)
		} else {
			r.logger.Info("hold timers re-armed", "operation", "rearm_holds", "outcome", "success", "count", armed)
		}
	}

	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", r.cfg.GRPCPort))
	if err != nil {
		r.cleanupFn(ctx)
		return fmt.Errorf("listen gRPC: %w", err)
	}

	errCh := make(chan error, 4)
	var workers sync.WaitGroup
	workerCtx, cancelWorkers := context.WithCancel(ctx)
	defer cancelWorkers()
	if r.cfg.EmbeddedWorkers {
		r.startWorkers(workerCtx, &workers, errCh)
	}

	go func() {
		r.logger.Info("http server started", "addr", r.httpServer.Addr)
		if err := r.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()
	go func() {
		r.logger.Info("grpc server started", "addr", lis.Addr().String())
		if err := r.grpcServer.Serve(lis); err != nil {
			errCh <- fmt.Errorf("grpc server: %w", err)
		}
	}()

	var runErr error
	select {
	case <-ctx.Done():
		r.logger.Info("shutdown signal received")
	case runErr = <-errCh:
		r.logger.Error("server failure", "error", runErr)
	}

	r.health.Shutdown()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), r.cfg.ShutdownDeadline)
	defer cancel()
	_ = r.httpServer.Shutdown(shutdownCtx)
	r.grpcServer.GracefulStop()
	cancelWorkers()
	workers.Wait()
	r.cleanupFn(shutdownCtx)
	return runErr
}

// RunWorker drains the outbox and expires due holds. It needs the shared
// Postgres store; an in-memory API runs these loops itself.
func (r *Runtime) RunWorker(ctx context.Context) error {
	if !r.durable {
		r.cleanupFn(ctx)
		return fmt.Errorf("worker requires DB_URL: the in-memory store is not shared between processes")
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 2)
	var workers sync.WaitGroup
	r.startWorkers(ctx, &workers, errCh)
	r.logger.Info("workers started")

	var runErr error
	select {
	case <-ctx.Done():
	case runErr = <-errCh:
		stop()
	}
	workers.Wait()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	r.cleanupFn(shutdownCtx)
	return runErr
}

func (r *Runtime) startWorkers(ctx context.Context, wg *sync.WaitGroup, errCh chan<- error) {
	run := func(name string, fn func(context.Context) error) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := fn(ctx); err != nil && !errors.Is(err, context.Canceled) {
				errCh <- fmt.Errorf("%s: %w", name, err)
			}
		}()
	}
	run("outbox worker", r.outbox.Run)
	run("hold expiry worker", r.holds.Run)
}
