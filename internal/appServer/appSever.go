package appServer

import (
	"context"
	"crypto/tls"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ds124wfegd/eventbook/config"
	repository "github.com/ds124wfegd/eventbook/internal/database/postgres"
	rediscache "github.com/ds124wfegd/eventbook/internal/database/redis"
	"github.com/ds124wfegd/eventbook/internal/service"
	"github.com/ds124wfegd/eventbook/internal/transport"
	"github.com/ds124wfegd/eventbook/internal/worker"
	"github.com/ds124wfegd/eventbook/pkg/auth"
	"github.com/ds124wfegd/eventbook/pkg/broker"
	"github.com/ds124wfegd/eventbook/pkg/postgres"
	"github.com/ds124wfegd/eventbook/pkg/redis"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

type Server struct {
	httpServer *http.Server
}

func (s *Server) Run(cfg *config.Config, handler http.Handler) error {
	s.httpServer = &http.Server{
		Addr:              cfg.GetServerAddress(),
		Handler:           handler,
		MaxHeaderBytes:    1 << 20,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      cfg.Server.Timeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
		ReadHeaderTimeout: 3 * time.Second,
		TLSConfig:         &tls.Config{MinVersion: tls.VersionTLS12},
		ErrorLog:          log.New(logrus.StandardLogger().WriterLevel(logrus.ErrorLevel), "", 0),
	}
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func setupLogger(cfg *config.Config) {
	logrus.SetFormatter(&logrus.JSONFormatter{})
	logrus.SetOutput(os.Stdout)

	level, err := logrus.ParseLevel(cfg.Server.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	logrus.SetLevel(level)
}

func NewServer(cfg *config.Config) {
	setupLogger(cfg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize database
	db, err := postgres.NewPostgresDB(&cfg.Database)
	if err != nil {
		logrus.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	if err := postgres.RunMigrations(ctx, db); err != nil {
		logrus.Fatalf("Failed to run migrations: %v", err)
	}

	// Initialize repositories
	tx := repository.NewTransactor(db)
	eventRepo := repository.NewEventRepository(db)
	bookingRepo := repository.NewBookingRepository(db)
	userRepo := repository.NewUserRepository(db)

	// Redis is optional: without it there is no event cache and no dead letter store
	var (
		cache      service.EventCache
		deadLetter broker.DeadLetter
	)
	if cfg.Redis.Enabled {
		redisClient, err := redis.NewRedisClient(ctx, &cfg.Redis)
		if err != nil {
			logrus.Errorf("Failed to connect to Redis: %v. Continuing without cache...", err)
		} else {
			defer redisClient.Close()
			cache = rediscache.NewEventCache(redisClient, cfg.Redis.CacheTTL)

			dlq := broker.NewRedisDeadLetter(redisClient, cfg.Broker.DeadLetterKey)
			if pending, err := dlq.Len(ctx); err == nil && pending > 0 {
				logrus.WithField("pending", pending).Warn("Undelivered notifications in dead letter store")
				logDeadLetters(ctx, dlq)
			}
			deadLetter = dlq
		}
	}

	publisher, err := broker.New(&cfg.Broker)
	if err != nil {
		logrus.Errorf("Failed to initialize %q broker: %v. Falling back to log publisher...", cfg.Broker.Driver, err)
		publisher = broker.NewLogPublisher()
	}
	publisher = broker.WithRetry(publisher, cfg.Broker.MaxRetries, cfg.Broker.RetryDelay, deadLetter)
	defer publisher.Close()

	// Initialize services
	tokens := auth.NewTokenManager(cfg.JWT.Secret, cfg.JWT.Expiration)
	authService := service.NewAuthService(userRepo, tokens, cfg.Auth.AdminEmails, cfg.Auth.BcryptCost)
	eventService := service.NewEventService(tx, eventRepo, bookingRepo, cache, publisher)
	bookingService := service.NewBookingService(tx, bookingRepo, eventRepo, cache, publisher)

	// closed when no worker is running; the deferred publisher and db Close wait for it
	var workersDone <-chan struct{}
	if cfg.Worker.ReminderEnabled {
		reminderWorker := worker.NewReminderWorker(
			bookingService,
			cfg.Worker.ReminderInterval,
			cfg.Worker.ReminderWindow,
			cfg.Worker.BatchSize,
		)
		workersDone = reminderWorker.Go(ctx)
	} else {
		idle := make(chan struct{})
		close(idle)
		workersDone = idle
	}

	// Initialize handlers
	handlers := &transport.Handlers{
		Event:         transport.NewEventHandler(eventService),
		Booking:       transport.NewBookingHandler(bookingService),
		Auth:          transport.NewAuthHandler(authService),
		Authenticator: authService,
	}

	if cfg.IsProduction() || cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	srv := new(Server)
	go func() {
		if err := srv.Run(cfg, transport.InitRoutes(cfg, handlers)); err != nil && err != http.ErrServerClosed {
			logrus.Fatalf("error occured while running http server: %s", err.Error())
		}
	}()

	logrus.WithField("addr", cfg.GetServerAddress()).Info("App Started")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGTERM, syscall.SIGINT)
	<-quit

	logrus.Info("App Shutting Down")
	cancel()
	<-workersDone

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.Timeout)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logrus.Errorf("error occured on server shutting down: %s", err.Error())
	}
}

const deadLetterPreview = 5

func logDeadLetters(ctx context.Context, dlq *broker.RedisDeadLetter) {
	failed, err := dlq.List(ctx, deadLetterPreview)
	if err != nil {
		logrus.WithError(err).Warn("Failed to read dead letter store")
		return
	}
	for _, f := range failed {
		logrus.WithFields(logrus.Fields{
			"message_id": f.Message.ID,
			"topic":      f.Message.Topic,
			"attempts":   f.Attempts,
			"failed_at":  f.FailedAt,
			"error":      f.Error,
		}).Warn("Undelivered notification")
	}
}
