package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	sentryhttp "github.com/getsentry/sentry-go/http"
	"github.com/gorilla/mux"
	"github.com/otaviolbarbosa/nascere/internal/api"
	"github.com/otaviolbarbosa/nascere/internal/cache"
	"github.com/otaviolbarbosa/nascere/internal/config"
	"github.com/otaviolbarbosa/nascere/internal/crypto"
	"github.com/otaviolbarbosa/nascere/internal/database"
	"github.com/otaviolbarbosa/nascere/internal/logging"
	"github.com/otaviolbarbosa/nascere/internal/middleware"
	"github.com/otaviolbarbosa/nascere/internal/notify"
	"github.com/otaviolbarbosa/nascere/internal/seed"
	"github.com/otaviolbarbosa/nascere/internal/storage"
	"go.uber.org/zap"
)

const cacheTTL = 30 * time.Second

func main() {
	cfg := config.Load()
	logger := logging.Must(cfg.LogLevel, cfg.LogFormat, "nascere-api")
	defer func() { _ = logger.Sync() }()

	if cfg.SentryDSN != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:              cfg.SentryDSN,
			Environment:      cfg.SentryEnv,
			EnableTracing:    true,
			TracesSampleRate: 0.2,
		}); err != nil {
			logger.Warn("[sentry] init failed", zap.Error(err))
		}
		defer sentry.Flush(2 * time.Second)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(ctx, cfg)
	if err != nil {
		logger.Fatal("[db] open", zap.Error(err))
	}
	defer database.Close(db)
	if err := database.Migrate(ctx, db, logger); err != nil {
		logger.Fatal("[db] migrations", zap.Error(err))
	}
	if cfg.SeedDev {
		if err := seed.Run(ctx, db, logger); err != nil {
			logger.Warn("[seed] failed (ignored if already applied)", zap.Error(err))
		}
	}

	sealer, err := crypto.NewSealerFromEnv(cfg.DataEncryptionKeys, cfg.CurrentDataKeyVer)
	if err != nil {
		logger.Fatal("[crypto] data keys", zap.Error(err))
	}

	h := &api.Handler{DB: db, Cfg: cfg, Logger: logger, Sealer: sealer, Cache: newCache(ctx, cfg, logger)}

	if s3, err := storage.New(ctx, storage.Options{
		Bucket:       cfg.S3Bucket,
		Region:       cfg.S3Region,
		Endpoint:     cfg.S3Endpoint,
		UsePathStyle: cfg.S3UsePathStyle,
	}); err != nil {
		logger.Warn("[storage] disabled; document and receipt uploads will fail", zap.Error(err))
	} else {
		h.Storage = s3
	}

	publisher, err := notify.NewPublisherFromConfig(ctx, cfg, db, logger)
	if err != nil {
		logger.Fatal("[notify] publisher", zap.Error(err))
	}
	defer func() { _ = publisher.Close() }()
	svc := notify.NewService(notify.GormStore{DB: db}, publisher, logger)
	svc.OnDelivered(h.InvalidateUnread)
	h.Notify = svc
	logger.Info("[notify] transport", zap.String("transport", cfg.NotifyTransport))

	r := mux.NewRouter()
	r.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	}).Methods(http.MethodGet)
	r.HandleFunc("/ready", func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		sqlDB, err := db.DB()
		if err == nil {
			err = sqlDB.PingContext(req.Context())
		}
		if err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"db unhealthy"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ready"}`))
	}).Methods(http.MethodGet)
	h.Mount(r, cfg.JWTSecret)

	sentryHandler := sentryhttp.New(sentryhttp.Options{Repanic: true})
	chain := middleware.Recover(logger)(
		middleware.RequestID(
			middleware.AccessLog(logger)(
				sentryHandler.Handle(
					middleware.Timeout(cfg.RequestTimeoutSec)(
						middleware.CORS(cfg.CORSOrigins)(
							middleware.Gzip(r)))))))

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           chain,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
	}
	go func() {
		logger.Info("[api] listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("[api] server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("[api] shutdown", zap.Error(err))
	}
	logger.Info("[api] stopped")
}

// newCache usa Redis quando REDIS_ADDR está definido e responde; senão cache em memória.
func newCache(ctx context.Context, cfg *config.Config, logger *zap.Logger) cache.Store {
	if cfg.RedisAddr != "" {
		rc := cache.NewRedis(cache.NewRedisClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB), cacheTTL, "nascere:", logger)
		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		err := rc.Ping(pingCtx)
		if err == nil {
			return rc
		}
		logger.Warn("[cache] redis unavailable; using in-memory cache", zap.Error(err))
	}
	return cache.New(cacheTTL)
}
