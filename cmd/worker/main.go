// Command worker delivers queued quote notifications by email.
package main

import (
	"github.com/erp/quoting/internal/infrastructure/config"
	"github.com/erp/quoting/internal/infrastructure/logger"
	"github.com/erp/quoting/internal/infrastructure/notification"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	log, err := logger.New(logger.Config{
		Level:   cfg.Log.Level,
		Format:  cfg.Log.Format,
		Output:  cfg.Log.Output,
		Service: cfg.App.Name + "-worker",
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = log.Sync()
	}()

	mailer := notification.NewMailer(cfg.Notification, log)
	processor := notification.NewProcessor(mailer, cfg.Notification.FromAddress, log)
	srv, mux := notification.NewServer(cfg.Redis, cfg.Notification, processor, log)

	log.Info("Notification worker starting",
		zap.String("redis", cfg.Redis.Addr()),
		zap.String("queue", cfg.Notification.Queue),
		zap.Int("concurrency", cfg.Notification.Concurrency),
	)

	// Run blocks until SIGTERM or SIGINT and drains in-flight tasks
	if err := srv.Run(mux); err != nil {
		log.Fatal("Notification worker stopped", zap.Error(err))
	}
	log.Info("Notification worker exited")
}
