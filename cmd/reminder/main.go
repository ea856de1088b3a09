// Command reminder roda os lembretes diários uma vez (cron) ou, com -serve,
// expõe POST /trigger para um agendador externo.
package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/otaviolbarbosa/nascere/internal/config"
	"github.com/otaviolbarbosa/nascere/internal/database"
	"github.com/otaviolbarbosa/nascere/internal/logging"
	"github.com/otaviolbarbosa/nascere/internal/notify"
	"github.com/otaviolbarbosa/nascere/internal/reminder"
	"go.uber.org/zap"
)

func main() {
	serve := flag.Bool("serve", false, "expose POST /trigger instead of running once")
	flag.Parse()

	cfg := config.Load()
	logger := logging.Must(cfg.LogLevel, cfg.LogFormat, "nascere-reminder")
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(ctx, cfg)
	if err != nil {
		logger.Fatal("[reminder] database", zap.Error(err))
	}
	defer database.Close(db)

	publisher, err := notify.NewPublisherFromConfig(ctx, cfg, db, logger)
	if err != nil {
		logger.Fatal("[reminder] notify publisher", zap.Error(err))
	}
	defer func() { _ = publisher.Close() }()

	svc := notify.NewService(notify.GormStore{DB: db}, publisher, logger)
	runner := reminder.NewRunner(reminder.GormStore{DB: db}, svc, cfg.Location(), logger)

	if !*serve {
		if _, err := runner.Run(ctx, time.Now()); err != nil {
			logger.Error("[reminder] run failed", zap.Error(err))
			os.Exit(1)
		}
		return
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           reminder.NewHandler(runner, cfg.ReminderAPIKey, nil),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logger.Info("[reminder] listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("[reminder] server", zap.Error(err))
		}
	}()
	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("[reminder] shutdown", zap.Error(err))
	}
}
