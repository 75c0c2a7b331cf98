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
	"github.com/spf13/cobra"

	"github.com/angelmondragon/tradedesk-backend/internal/cron"
	"github.com/angelmondragon/tradedesk-backend/internal/inquiries"
	"github.com/angelmondragon/tradedesk-backend/internal/notifications"
	"github.com/angelmondragon/tradedesk-backend/internal/orders"
	product "github.com/angelmondragon/tradedesk-backend/internal/products"
	"github.com/angelmondragon/tradedesk-backend/pkg/config"
	"github.com/angelmondragon/tradedesk-backend/pkg/db"
	"github.com/angelmondragon/tradedesk-backend/pkg/instance"
	"github.com/angelmondragon/tradedesk-backend/pkg/logger"
	"github.com/angelmondragon/tradedesk-backend/pkg/mail"
	"github.com/angelmondragon/tradedesk-backend/pkg/metrics"
	"github.com/angelmondragon/tradedesk-backend/pkg/migrate"
	"github.com/angelmondragon/tradedesk-backend/pkg/redis"
)

func main() {
	var jobName string
	root := &cobra.Command{
		Use:   "cron-worker",
		Short: "Run TradeDesk maintenance jobs on a schedule, or one job by name",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			run(jobName)
		},
	}
	root.Flags().StringVarP(&jobName, "job", "j", "", "run a single job by name and exit")
	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(jobName string) {
	logg := logger.New(logger.Options{ServiceName: "cron-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "cron-worker",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
		Format:      cfg.App.LogFormat,
	})

	dbClient, err := openDatabase(cfg, logg)
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

	registry, err := buildRegistry(cfg, logg, dbClient)
	if err != nil {
		logg.Error(context.Background(), "failed to build cron jobs", err)
		os.Exit(1)
	}

	metricsCollector := metrics.NewCronJobMetrics(prometheus.DefaultRegisterer)
	lock, err := cron.NewRedisLock(redisClient, redisClient.LockKey(lockName(cfg.App.Env)), cfg.Cron.LockTTL)
	if err != nil {
		logg.Error(context.Background(), "failed to create cron lock", err)
		os.Exit(1)
	}
	lock.SetOwner(cfg.App.WorkerID)

	service, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: registry,
		Lock:     lock,
		Metrics:  metricsCollector,
		Schedule: cfg.Cron.Schedule,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create cron service", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":      cfg.App.Env,
		"schedule": cfg.Cron.Schedule,
		"worker":   instance.ID(cfg.App.WorkerID),
	})

	if jobName != "" {
		ctx = logg.WithField(ctx, "job", jobName)
		if err := service.RunOnce(ctx, jobName); err != nil {
			logg.Error(ctx, "cron job failed", err)
			os.Exit(1)
		}
		logg.Info(ctx, "cron job finished")
		return
	}

	logg.Info(ctx, "starting cron worker")

	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "cron worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "cron worker shutting down gracefully")
}

func openDatabase(cfg *config.Config, logg *logger.Logger) (*db.Client, error) {
	if cfg.FeatureFlags.UseSQLite {
		return db.NewSQLite(context.Background(), cfg.FeatureFlags.SQLitePath, logg)
	}
	return db.New(context.Background(), cfg.DB, logg)
}

func buildRegistry(cfg *config.Config, logg *logger.Logger, dbClient *db.Client) (*cron.Registry, error) {
	conn := dbClient.DB()

	mailer, err := mail.FromConfig(cfg.Sendgrid, logg)
	if err != nil {
		return nil, fmt.Errorf("mailer: %w", err)
	}
	notificationRepo := notifications.NewRepository(conn)
	notifier, err := notifications.NewNotifier(notifications.NotifierParams{
		Repository: notificationRepo,
		Mailer:     mailer,
		AdminEmail: cfg.Notifications.AdminEmail,
		Logger:     logg,
	})
	if err != nil {
		return nil, fmt.Errorf("notifier: %w", err)
	}
	resolver := notifications.NewRecipientResolver(conn)
	catalog := product.NewRepository(conn)
	inquiryRepo := inquiries.NewRepository(conn)

	inquiryService, err := inquiries.NewService(inquiries.ServiceParams{
		Repository:    inquiryRepo,
		Tx:            dbClient,
		Notifier:      notifier,
		Resolver:      resolver,
		SKUs:          catalog,
		Logger:        logg,
		NumberPadding: cfg.Inquiry.NumberPadding,
	})
	if err != nil {
		return nil, fmt.Errorf("inquiry service: %w", err)
	}

	orderRepo := orders.NewRepository(conn)
	orderService, err := orders.NewService(orders.ServiceParams{
		Repository: orderRepo,
		Tx:         dbClient,
		Catalog:    catalog,
		Inquiries:  inquiryRepo,
		Notifier:   notifier,
		Resolver:   resolver,
		Logger:     logg,
	})
	if err != nil {
		return nil, fmt.Errorf("order service: %w", err)
	}

	cleanup, err := cron.NewNotificationCleanupJob(cron.NotificationCleanupJobParams{
		Logger:    logg,
		Purger:    notificationRepo,
		Retention: cfg.Cron.NotificationRetention,
	})
	if err != nil {
		return nil, fmt.Errorf("notification cleanup job: %w", err)
	}
	stale, err := cron.NewStaleInquiryJob(cron.StaleInquiryJobParams{
		Logger:    logg,
		Inquiries: inquiryService,
		MaxAge:    cfg.Inquiry.StaleAfter,
	})
	if err != nil {
		return nil, fmt.Errorf("stale inquiry job: %w", err)
	}
	expiry, err := cron.NewOrderExpiryJob(cron.OrderExpiryJobParams{
		Logger:  logg,
		Reader:  orderRepo,
		Expirer: orderService,
		TTL:     cfg.Cron.UnpaidOrderTTL,
	})
	if err != nil {
		return nil, fmt.Errorf("order expiry job: %w", err)
	}

	return cron.NewRegistry(cleanup, stale, expiry), nil
}

// lockName scopes the lock per environment so staging and prod workers
// sharing one redis never block each other.
func lockName(env string) string {
	if env == "" {
		env = "local"
	}
	return "cron-worker:" + env
}
