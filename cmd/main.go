package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"unsubscribe_service/internal/config"
	eventsRabbitMQ "unsubscribe_service/internal/events/rabbitmq"
	"unsubscribe_service/internal/http_server/handlers/sendemails"
	"unsubscribe_service/internal/http_server/handlers/status"
	"unsubscribe_service/internal/http_server/handlers/unsubscribe"
	"unsubscribe_service/internal/mailer"
	"unsubscribe_service/internal/middleware/identity"
	rateLimit "unsubscribe_service/internal/middleware/ratelimit"
	"unsubscribe_service/internal/migrate"
	"unsubscribe_service/internal/sender"
	"unsubscribe_service/internal/storage"
	"unsubscribe_service/internal/storage/postgres"
	redisStorage "unsubscribe_service/internal/storage/redis"
	"unsubscribe_service/internal/token"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/gorilla/handlers"
)

const (
	envLocal = "local"
	envDev   = "dev"
	envProd  = "prod"
)

func main() {
	cfg := config.MustLoad("./config/config.yaml")

	log := setupLogger(cfg.Env)

	log.Info("starting unsubscribe service", slog.String("env", cfg.Env))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigs
		log.Info("Shutdown signal received")
		cancel()
	}()

	var store storage.UnsubscribeStore

	switch cfg.Storage.Type {
	case "redis":
		repo, err := redisStorage.New(ctx, cfg.Storage.Redis.Address, cfg.Storage.Redis.Password, cfg.Storage.Redis.DB)
		if err != nil {
			log.Error("failed to connect redis", slog.String("err", err.Error()))
			os.Exit(1)
		}
		defer repo.Close()

		store = repo
	default:
		if err := migrate.Up(ctx, cfg.Storage.Postgres.DSN()); err != nil {
			log.Error("failed to run migrations", slog.String("err", err.Error()))
			os.Exit(1)
		}

		repo, err := postgres.New(ctx, cfg.Storage.Postgres)
		if err != nil {
			log.Error("failed to connect postgres", slog.String("err", err.Error()))
			os.Exit(1)
		}
		defer repo.Close()

		store = repo
	}

	var events unsubscribe.EventPublisher

	if cfg.RabbitMQ.URL != "" {
		publisher, err := eventsRabbitMQ.New(cfg.RabbitMQ.URL, cfg.RabbitMQ.QueueName)
		if err != nil {
			log.Error("failed to connect rabbitmq", slog.String("err", err.Error()))
			os.Exit(1)
		}
		defer publisher.Close()

		events = publisher
	}

	codec := token.NewCodec(cfg.Tokens.UnsubscribeTokenSecret)

	batch := sender.New(
		log,
		codec,
		mailer.New(cfg.Email),
		cfg.Email.Sender,
		cfg.Sender,
	)

	router := setupRouter(log, cfg, codec, store, events, batch)

	// The unsubscribe surface is public; /send-emails relies on the
	// bearer-token check, not on CORS.
	corsHandler := handlers.CORS(
		handlers.AllowedOrigins([]string{"*"}),
		handlers.AllowedHeaders([]string{"Authorization", "Content-Type"}),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodOptions}),
	)(router)

	srv := &http.Server{
		Addr:         cfg.HTTPServer.Address,
		Handler:      corsHandler,
		ReadTimeout:  cfg.HTTPServer.Timeout,
		WriteTimeout: cfg.HTTPServer.Timeout,
		IdleTimeout:  cfg.HTTPServer.IdleTimeout,
	}

	go func() {
		log.Info("HTTP server is running", slog.String("address", cfg.HTTPServer.Address))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("Server failed", slog.String("err", err.Error()))
			cancel()
		}
	}()

	<-ctx.Done()

	log.Info("Shutting down HTTP server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server shutdown error", slog.String("err", err.Error()))
	} else {
		log.Info("Server stopped gracefully")
	}

	log.Info("Unsubscribe service stopped")
}

func setupRouter(
	log *slog.Logger,
	cfg *config.Config,
	codec *token.Codec,
	store storage.UnsubscribeStore,
	events unsubscribe.EventPublisher,
	batch *sender.Sender,
) *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	validate := validator.New()

	r.With(rateLimit.Status()).Get("/unsubscribe",
		status.New(log, codec, store),
	)
	r.With(rateLimit.Unsubscribe()).Post("/unsubscribe",
		unsubscribe.New(log, codec, store, events),
	)
	r.With(
		rateLimit.SendEmails(),
		identity.New(log, cfg.Identity.Secret, cfg.Identity.Audience, cfg.Identity.Issuer),
	).Post("/send-emails",
		sendemails.New(log, validate, batch),
	)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	return r
}

func setupLogger(env string) *slog.Logger {
	var log *slog.Logger

	switch env {
	case envLocal:
		log = slog.New(
			slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}),
		)
	case envDev:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}),
		)
	case envProd:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}),
		)
	}

	return log
}
