package main

import (
	"context"
	stdlog "log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/tazhibayda/tours-service/internal/config"
	api "github.com/tazhibayda/tours-service/internal/http"
	"github.com/tazhibayda/tours-service/internal/log"
	"github.com/tazhibayda/tours-service/internal/mail"
	"github.com/tazhibayda/tours-service/internal/metrics"
	"github.com/tazhibayda/tours-service/internal/queue"
	"github.com/tazhibayda/tours-service/internal/repo"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		stdlog.Fatalf("config: %v", err)
	}

	logger, err := log.Init(cfg.Production)
	if err != nil {
		stdlog.Fatalf("logger init: %v", err)
	}
	defer logger.Sync()

	metrics.MustRegister()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	store, err := repo.NewStore(ctx, cfg.MongoURI, cfg.MongoDB)
	if err != nil {
		logger.Fatal("mongo connect", zap.Error(err))
	}
	defer store.Close(context.Background())

	if err := store.EnsureUserIndexes(ctx); err != nil {
		logger.Fatal("user indexes", zap.Error(err))
	}
	if err := store.EnsureTourIndexes(ctx); err != nil {
		logger.Fatal("tour indexes", zap.Error(err))
	}

	var rds *repo.Redis
	if cfg.RedisAddr != "" {
		rds = repo.NewRedis(cfg.RedisAddr)
		if err := rds.Ping(ctx); err != nil {
			logger.Fatal("redis connect", zap.Error(err))
		}
		defer rds.Close()
	}

	pub := queue.NewNoop()
	if cfg.RabbitURL != "" {
		pub, err = queue.NewRabbit(cfg.RabbitURL, "tours.events")
		if err != nil {
			logger.Fatal("rabbit connect", zap.Error(err))
		}
		defer pub.Close()
	}

	var mailer mail.Sender = mail.LogSender{}
	if cfg.SMTPHost != "" {
		mailer = mail.NewSMTP(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword, cfg.MailFrom)
	}

	h := api.NewHandler(store, store, mailer, pub, rds, cfg.JWTSecret, cfg.TokenTTLMin, cfg.RateLimitPerMin)
	r := api.NewRouter(h)

	srvErr := make(chan error, 1)
	go func() { srvErr <- r.Run(":" + cfg.Port) }()

	logger.Info("tours-service listening", zap.String("port", cfg.Port))

	// graceful shutdown
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)

	select {
	case s := <-sig:
		logger.Info("shutting down", zap.String("signal", s.String()))
	case err := <-srvErr:
		logger.Error("server error", zap.Error(err))
	}
}
