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

	_ "github.com/jackc/pgx/v5/stdlib"
	"golang.org/x/sync/errgroup"

	apphandler "himstay/internal/application/handler"
	appservice "himstay/internal/application/service"
	appstore "himstay/internal/application/store"
	"himstay/internal/audit"
	"himstay/internal/jwttoken"
	"himstay/internal/payment/crypto"
	payhandler "himstay/internal/payment/handler"
	"himstay/internal/payment/ledger"
	"himstay/internal/payment/lock"
	paymetrics "himstay/internal/payment/metrics"
	payservice "himstay/internal/payment/service"
	txnstore "himstay/internal/payment/store"
	"himstay/internal/platform/config"
	"himstay/internal/platform/httpserver"
	"himstay/internal/platform/logger"
	redisplatform "himstay/internal/platform/redis"
	httpapi "himstay/internal/transport/http"
)

func main() {
	if err := run(); err != nil && !errors.Is(err, context.Canceled) {
		os.Exit(1)
	}
}

func run() error {
	cfg := config.FromEnv()
	log := logger.New()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Storage. An empty DATABASE_URL selects the in-memory stores; that mode
	// exists for development only, nothing survives a restart.
	var (
		appStore   appservice.Store
		payAppSt   payservice.ApplicationStore
		txnStore   ledger.Store
		auditStore audit.Store
		health     func() error
	)
	if cfg.Database.URL != "" {
		db, err := sql.Open("pgx", cfg.Database.URL)
		if err != nil {
			log.Error("database open failed", "error", err)
			return err
		}
		defer db.Close()
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := db.PingContext(pingCtx); err != nil {
			log.Error("database unreachable", "error", err)
			return err
		}
		pg := appstore.NewPostgres(db)
		appStore, payAppSt = pg, pg
		txnStore = txnstore.NewPostgres(db)
		auditStore = audit.NewPostgresStore(db)
		health = db.Ping
		log.Info("using postgres stores")
	} else {
		mem := appstore.NewMemoryStore()
		appStore, payAppSt = mem, mem
		txnStore = txnstore.NewMemoryStore()
		auditStore = audit.NewMemoryStore()
		log.Warn("DATABASE_URL not set, using in-memory stores")
	}

	// Initiation lock: redis when configured, in-process otherwise.
	var locker lock.Locker = lock.NewMemoryLocker()
	redisClient, err := redisplatform.New(cfg.Redis)
	if err != nil {
		log.Error("redis connection failed", "error", err)
		return err
	}
	if redisClient != nil {
		defer redisClient.Close()
		locker = lock.NewRedisLocker(redisClient.Client)
		log.Info("using redis initiation lock")
	}

	auditSvc := audit.NewService(auditStore, log)

	g, ctx := errgroup.WithContext(ctx)

	// Audit publishing is best-effort: without brokers, events still land in
	// the audit store.
	if len(cfg.Kafka.Brokers) > 0 {
		publisher, err := audit.NewPublisher(ctx, cfg.Kafka.Brokers, cfg.Kafka.Topic)
		if err != nil {
			log.Error("kafka publisher init failed", "error", err)
			return err
		}
		defer publisher.Close()
		worker := audit.NewWorker(publisher, auditSvc.Events(), log)
		g.Go(func() error { return worker.Run(ctx) })
		log.Info("audit publisher started", "topic", cfg.Kafka.Topic)
	}

	keys := crypto.NewKeyProvider(cfg.Gateway.SecretFile)
	cipher := crypto.New(keys)
	payMetrics := paymetrics.New()
	callbackURL := cfg.Server.PortalBaseURL + "/payment/callback"
	paySvc := payservice.New(cfg.Gateway, callbackURL, ledger.New(txnStore), payAppSt,
		cipher, locker, payMetrics, auditSvc, nil, log)
	appSvc := appservice.New(appStore, auditSvc, log)

	tokens := jwttoken.NewService(cfg.Auth.JWTSigningKey, cfg.Auth.Issuer)
	router := httpapi.NewRouter(httpapi.Deps{
		Applications: apphandler.New(appSvc, auditSvc, log),
		Payments:     payhandler.New(paySvc, cfg.Server.PortalBaseURL, log),
		Tokens:       tokens,
		Logger:       log,
		Health:       health,
	})

	server := httpserver.New(cfg.Server.Addr, router)
	g.Go(func() error {
		log.Info("server listening", "addr", cfg.Server.Addr,
			"testMode", cfg.Gateway.TestMode)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("server exited with error", "error", err)
		return err
	}
	log.Info("server stopped")
	return nil
}
