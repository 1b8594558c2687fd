package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/academiaalbert/academia-backend/api/routes"
	"github.com/academiaalbert/academia-backend/internal/admin"
	"github.com/academiaalbert/academia-backend/internal/auth"
	"github.com/academiaalbert/academia-backend/internal/chat"
	"github.com/academiaalbert/academia-backend/internal/courses"
	"github.com/academiaalbert/academia-backend/internal/enrollments"
	"github.com/academiaalbert/academia-backend/internal/notifications"
	"github.com/academiaalbert/academia-backend/internal/users"
	"github.com/academiaalbert/academia-backend/pkg/auth/session"
	"github.com/academiaalbert/academia-backend/pkg/config"
	"github.com/academiaalbert/academia-backend/pkg/db"
	"github.com/academiaalbert/academia-backend/pkg/env"
	"github.com/academiaalbert/academia-backend/pkg/gemini"
	"github.com/academiaalbert/academia-backend/pkg/instance"
	"github.com/academiaalbert/academia-backend/pkg/logger"
	"github.com/academiaalbert/academia-backend/pkg/mailer"
	"github.com/academiaalbert/academia-backend/pkg/metrics"
	"github.com/academiaalbert/academia-backend/pkg/migrate"
	"github.com/academiaalbert/academia-backend/pkg/redis"
)

const shutdownTimeout = 20 * time.Second

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Environment: cfg.App.Env,
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		Format:      cfg.App.LogFormat,
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	sessionManager, err := session.NewManager(redisClient, cfg.JWT)
	if err != nil {
		logg.Error(context.Background(), "failed to create session manager", err)
		os.Exit(1)
	}

	services, err := buildServices(cfg, logg, dbClient, redisClient, sessionManager)
	if err != nil {
		logg.Error(context.Background(), "failed to wire services", err)
		os.Exit(1)
	}

	addr := ":" + env.Get("PORT", cfg.App.Port)
	ctx := logg.WithFields(context.Background(), map[string]any{
		"addr":     addr,
		"instance": instance.GetID(),
	})

	server := &http.Server{
		Addr:              addr,
		Handler:           routes.NewRouter(cfg, logg, dbClient, redisClient, sessionManager, prometheus.DefaultGatherer, services),
		ReadHeaderTimeout: 10 * time.Second,
	}

	sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logg.Info(ctx, "starting api server")
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-sigCtx.Done():
		logg.Info(ctx, "shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(ctx, "graceful shutdown failed", err)
		}
	}
	logg.Info(ctx, "api server stopped")
}

func buildServices(cfg *config.Config, logg *logger.Logger, dbClient *db.Client, redisClient *redis.Client, sessionManager *session.Manager) (routes.Services, error) {
	ctx := context.Background()
	profiles := users.NewRepository(dbClient.DB())
	courseRepo := courses.NewRepository(dbClient.DB())
	timeout := cfg.Store.Timeout

	authService, err := auth.NewService(auth.ServiceParams{
		UserRepo:       profiles,
		SessionManager: sessionManager,
		JWTConfig:      cfg.JWT,
		PasswordConfig: cfg.Password,
		AdminEmail:     cfg.Admin.Email,
		Timeout:        timeout,
		Logger:         logg,
	})
	if err != nil {
		return routes.Services{}, err
	}

	courseService, err := courses.NewService(courseRepo, profiles, redisClient, cfg.Catalog.CacheTTL, timeout, logg)
	if err != nil {
		return routes.Services{}, err
	}

	enrollmentMetrics := metrics.NewEnrollmentMetrics(prometheus.DefaultRegisterer)
	var enrollmentService enrollments.Service
	if notifier := buildNotifier(ctx, cfg, logg); notifier != nil {
		enrollmentService, err = enrollments.NewService(profiles, courseRepo, notifier, enrollmentMetrics, logg, timeout)
	} else {
		enrollmentService, err = enrollments.NewService(profiles, courseRepo, nil, enrollmentMetrics, logg, timeout)
	}
	if err != nil {
		return routes.Services{}, err
	}

	adminService, err := admin.NewService(profiles, courseRepo, timeout, logg)
	if err != nil {
		return routes.Services{}, err
	}

	var chatService chat.Service
	geminiClient, err := gemini.NewClient(cfg.Gemini)
	switch {
	case err == nil:
		chatService, err = chat.NewService(geminiClient, cfg.Gemini.SystemInstruction, cfg.Gemini.Timeout, logg)
	case errors.Is(err, gemini.ErrNotConfigured):
		logg.Warn(ctx, "chat.disabled")
		chatService, err = chat.NewService(nil, cfg.Gemini.SystemInstruction, cfg.Gemini.Timeout, logg)
	}
	if err != nil {
		return routes.Services{}, err
	}

	return routes.Services{
		Auth:        authService,
		Courses:     courseService,
		Enrollments: enrollmentService,
		Admin:       adminService,
		Chat:        chatService,
	}, nil
}

// buildNotifier returns nil when SendGrid is not configured; payment reviews then go out silently.
func buildNotifier(ctx context.Context, cfg *config.Config, logg *logger.Logger) *notifications.Notifier {
	mail, err := mailer.New(cfg.Sendgrid)
	if err != nil {
		if !errors.Is(err, mailer.ErrNotConfigured) {
			logg.Error(ctx, "mailer misconfigured", err)
		} else {
			logg.Warn(ctx, "notifications.disabled")
		}
		return nil
	}
	notifier, err := notifications.NewNotifier(mail)
	if err != nil {
		logg.Error(ctx, "failed to create notifier", err)
		return nil
	}
	return notifier
}
