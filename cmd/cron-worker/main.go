package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/academiaalbert/academia-backend/internal/courses"
	"github.com/academiaalbert/academia-backend/internal/cron"
	"github.com/academiaalbert/academia-backend/internal/notifications"
	"github.com/academiaalbert/academia-backend/internal/users"
	"github.com/academiaalbert/academia-backend/pkg/config"
	"github.com/academiaalbert/academia-backend/pkg/db"
	"github.com/academiaalbert/academia-backend/pkg/instance"
	"github.com/academiaalbert/academia-backend/pkg/logger"
	"github.com/academiaalbert/academia-backend/pkg/mailer"
	"github.com/academiaalbert/academia-backend/pkg/metrics"
	"github.com/academiaalbert/academia-backend/pkg/migrate"
	"github.com/academiaalbert/academia-backend/pkg/redis"
)

const serviceKind = "cron-worker"

func main() {
	logg := logger.New(logger.Options{ServiceName: serviceKind})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}
	cfg.Service.Kind = serviceKind

	logg = logger.New(logger.Options{
		ServiceName: serviceKind,
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

	registry, err := buildRegistry(cfg, logg, dbClient, redisClient)
	if err != nil {
		logg.Error(context.Background(), "failed to register cron jobs", err)
		os.Exit(1)
	}

	lock, err := cron.NewRedisLock(redisClient, lockKey(redisClient, cfg.App.Env), cfg.Cron.LockTTL)
	if err != nil {
		logg.Error(context.Background(), "failed to create cron lock", err)
		os.Exit(1)
	}

	service, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: registry,
		Lock:     lock,
		Metrics:  metrics.NewCronJobMetrics(prometheus.DefaultRegisterer),
		Interval: cfg.Cron.Interval,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create cron service", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"serviceKind": cfg.Service.Kind,
		"instance":    instance.GetID(),
		"interval":    cfg.Cron.Interval.String(),
	})
	logg.Info(ctx, "starting cron worker")

	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "cron worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "cron worker shutting down gracefully")
}

// buildRegistry registers the expiry reminder job. Without SendGrid the worker
// still runs but has nothing to deliver, so the job is left out.
func buildRegistry(cfg *config.Config, logg *logger.Logger, dbClient *db.Client, redisClient *redis.Client) (*cron.Registry, error) {
	registry := cron.NewRegistry()

	mail, err := mailer.New(cfg.Sendgrid)
	if errors.Is(err, mailer.ErrNotConfigured) {
		logg.Warn(context.Background(), "cron.expiry_reminder_disabled")
		return registry, nil
	}
	if err != nil {
		return nil, err
	}
	notifier, err := notifications.NewNotifier(mail)
	if err != nil {
		return nil, err
	}

	job, err := cron.NewExpiryReminderJob(cron.ExpiryReminderJobParams{
		Logger:   logg,
		Profiles: users.NewRepository(dbClient.DB()),
		Courses:  courses.NewRepository(dbClient.DB()),
		Dedupe:   redisClient,
		Notifier: notifier,
		Metrics:  metrics.NewEnrollmentMetrics(prometheus.DefaultRegisterer),
		Window:   cfg.Cron.ReminderWindow(),
		Timeout:  cfg.Store.Timeout,
	})
	if err != nil {
		return nil, err
	}
	if err := registry.Register(job); err != nil {
		return nil, fmt.Errorf("register %s: %w", job.Name(), err)
	}
	return registry, nil
}

func lockKey(keys *redis.Client, env string) string {
	if env == "" {
		env = "local"
	}
	return keys.LockKey(serviceKind + ":" + env)
}
