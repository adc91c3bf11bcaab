package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	jwttoken "givepool/internal/jwt_token"
	"givepool/internal/platform/config"
	"givepool/internal/platform/httpserver"
	"givepool/internal/platform/logger"
	"givepool/internal/platform/middleware"
	platformredis "givepool/internal/platform/redis"
	"givepool/internal/pool/events"
	"givepool/internal/pool/events/kafka"
	"givepool/internal/pool/handler"
	"givepool/internal/pool/metrics"
	"givepool/internal/pool/service"
	"givepool/internal/pool/store"
	"givepool/internal/pool/store/memory"
	"givepool/internal/pool/store/postgres"
	"givepool/internal/ratelimit"
	"givepool/internal/secrets"
	"givepool/internal/treasury"
	"givepool/pkg/domain"
)

// main wires dependencies and owns the process lifecycle. Business logic
// lives in the internal packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Store selection: postgres when configured, memory otherwise.
	var (
		poolStore store.Store
		txRunner  store.TxRunner
		db        *sql.DB
	)
	if cfg.PostgresURL != "" {
		var err error
		db, err = postgres.Open(ctx, cfg.PostgresURL)
		if err != nil {
			log.Error("failed to open postgres", "error", err)
			os.Exit(1)
		}
		defer func() { _ = db.Close() }()
		poolStore = postgres.New(db)
		txRunner = postgres.NewTxRunner(db)
		log.Info("using postgres store")
	} else {
		memStore := memory.New()
		poolStore = memStore
		txRunner = memStore
		log.Info("using in-memory store")
	}

	notifiers := events.Fanout{events.NewSlogNotifier(log)}
	if len(cfg.Kafka.Brokers) > 0 {
		publisher, err := kafka.New(cfg.Kafka.Brokers, cfg.Kafka.Topic, log)
		if err != nil {
			log.Error("failed to connect kafka publisher", "error", err)
			os.Exit(1)
		}
		defer func() { _ = publisher.Close() }()
		notifiers = append(notifiers, publisher)
		log.Info("kafka event publishing enabled", "topic", cfg.Kafka.Topic)
	}

	poolMetrics := metrics.New()

	pool, err := service.New(
		poolStore,
		txRunner,
		treasury.NewMemory(log),
		domain.PrincipalID(cfg.AdminPrincipal),
		service.WithLogger(log),
		service.WithNotifier(notifiers),
		service.WithMetrics(poolMetrics),
	)
	if err != nil {
		log.Error("failed to build pool service", "error", err)
		os.Exit(1)
	}

	jwtService := jwttoken.NewJWTService(cfg.JWTSigningKey, "givepool", "givepool")

	var limiter ratelimit.Limiter
	if cfg.DonationsPerMinute > 0 {
		redisClient, err := platformredis.New(cfg.Redis)
		if err != nil {
			log.Error("failed to connect redis", "error", err)
			os.Exit(1)
		}
		if redisClient != nil {
			defer func() { _ = redisClient.Close() }()
			limiter = ratelimit.NewRedisLimiter(redisClient.Client, cfg.DonationsPerMinute)
			log.Info("redis rate limiting enabled", "per_minute", cfg.DonationsPerMinute)
		} else {
			limiter = ratelimit.NewMemoryLimiter(cfg.DonationsPerMinute)
			log.Info("in-memory rate limiting enabled", "per_minute", cfg.DonationsPerMinute)
		}
	}

	opts := []handler.Option{handler.WithMetrics(poolMetrics)}
	if limiter != nil {
		opts = append(opts, handler.WithDonationLimit(ratelimit.Middleware(limiter, log)))
	}
	var adminVerifier middleware.AdminKeyVerifier
	if v := secrets.NewAdminKeyVerifier(cfg.AdminKeyHash); v != nil {
		adminVerifier = v
	}
	poolHandler := handler.New(
		pool,
		log,
		jwttoken.NewJWTServiceAdapter(jwtService),
		adminVerifier,
		cfg.AdminPrincipal,
		opts...,
	)

	router := chi.NewRouter()
	router.Handle("/metrics", promhttp.Handler())
	poolHandler.Register(router)

	srv := httpserver.New(cfg.Addr, router)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting givepool", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error("server exited with error", "error", err)
		os.Exit(1)
	}
	log.Info("shutdown complete")
}
