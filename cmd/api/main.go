package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/tradedesk-backend/api/controllers"
	"github.com/angelmondragon/tradedesk-backend/api/routes"
	"github.com/angelmondragon/tradedesk-backend/internal/attributes"
	"github.com/angelmondragon/tradedesk-backend/internal/auth"
	"github.com/angelmondragon/tradedesk-backend/internal/inquiries"
	"github.com/angelmondragon/tradedesk-backend/internal/notifications"
	"github.com/angelmondragon/tradedesk-backend/internal/orders"
	"github.com/angelmondragon/tradedesk-backend/internal/payments"
	product "github.com/angelmondragon/tradedesk-backend/internal/products"
	"github.com/angelmondragon/tradedesk-backend/internal/settings"
	"github.com/angelmondragon/tradedesk-backend/internal/shipping"
	"github.com/angelmondragon/tradedesk-backend/internal/users"
	"github.com/angelmondragon/tradedesk-backend/pkg/config"
	"github.com/angelmondragon/tradedesk-backend/pkg/db"
	"github.com/angelmondragon/tradedesk-backend/pkg/logger"
	"github.com/angelmondragon/tradedesk-backend/pkg/mail"
	"github.com/angelmondragon/tradedesk-backend/pkg/metrics"
	"github.com/angelmondragon/tradedesk-backend/pkg/migrate"
	"github.com/angelmondragon/tradedesk-backend/pkg/redis"
)

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

	deps, err := buildDeps(cfg, logg, dbClient)
	if err != nil {
		logg.Error(context.Background(), "failed to wire services", err)
		os.Exit(1)
	}
	deps.Config = cfg
	deps.Logger = logg
	deps.Redis = redisClient
	deps.HTTPMetrics = metrics.NewHTTPMetrics(prometheus.DefaultRegisterer)
	if err := dbClient.RegisterMetrics(prometheus.DefaultRegisterer, "tradedesk"); err != nil {
		logg.Error(context.Background(), "db pool metrics unavailable", err)
	}
	deps.Pingers = map[string]controllers.Pinger{
		"db":    dbClient,
		"redis": redisClient,
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})

	server := &http.Server{
		Addr:         addr,
		Handler:      routes.NewRouter(deps),
		ReadTimeout:  cfg.App.ReadTimeout,
		WriteTimeout: cfg.App.WriteTimeout,
		IdleTimeout:  cfg.App.IdleTimeout,
	}

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
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(ctx, "graceful shutdown failed", err)
		}
		logg.Info(ctx, "api server shut down")
	}
}

func openDatabase(cfg *config.Config, logg *logger.Logger) (*db.Client, error) {
	if cfg.FeatureFlags.UseSQLite {
		return db.NewSQLite(context.Background(), cfg.FeatureFlags.SQLitePath, logg)
	}
	return db.New(context.Background(), cfg.DB, logg)
}

// buildDeps constructs every service the router serves. Repositories share
// the one gorm handle; multi-step writes go through dbClient.WithTx.
func buildDeps(cfg *config.Config, logg *logger.Logger, dbClient *db.Client) (routes.Deps, error) {
	var deps routes.Deps
	conn := dbClient.DB()

	mailer, err := mail.FromConfig(cfg.Sendgrid, logg)
	if err != nil {
		return deps, fmt.Errorf("mailer: %w", err)
	}
	notificationRepo := notifications.NewRepository(conn)
	notifier, err := notifications.NewNotifier(notifications.NotifierParams{
		Repository: notificationRepo,
		Mailer:     mailer,
		AdminEmail: cfg.Notifications.AdminEmail,
		Logger:     logg,
	})
	if err != nil {
		return deps, fmt.Errorf("notifier: %w", err)
	}
	resolver := notifications.NewRecipientResolver(conn)
	if deps.Notifications, err = notifications.NewService(notificationRepo); err != nil {
		return deps, fmt.Errorf("notification service: %w", err)
	}

	userRepo := users.NewRepository(conn)
	if deps.Auth, err = auth.NewService(auth.ServiceParams{
		UserRepo:       userRepo,
		JWTConfig:      cfg.JWT,
		PasswordConfig: cfg.Password,
		Logger:         logg,
	}); err != nil {
		return deps, fmt.Errorf("auth service: %w", err)
	}
	if deps.Register, err = auth.NewRegisterService(auth.RegisterServiceParams{
		DB:             dbClient,
		Users:          userRepo,
		PasswordConfig: cfg.Password,
		JWTConfig:      cfg.JWT,
	}); err != nil {
		return deps, fmt.Errorf("register service: %w", err)
	}
	if deps.Users, err = users.NewService(userRepo, cfg.Password); err != nil {
		return deps, fmt.Errorf("users service: %w", err)
	}

	attributeRepo := attributes.NewRepository(conn)
	if deps.Attributes, err = attributes.NewService(attributeRepo, dbClient); err != nil {
		return deps, fmt.Errorf("attribute service: %w", err)
	}
	catalog := product.NewRepository(conn)
	if deps.Products, err = product.NewService(catalog, dbClient, attributeRepo); err != nil {
		return deps, fmt.Errorf("product service: %w", err)
	}

	inquiryRepo := inquiries.NewRepository(conn)
	if deps.Inquiries, err = inquiries.NewService(inquiries.ServiceParams{
		Repository:    inquiryRepo,
		Tx:            dbClient,
		Notifier:      notifier,
		Resolver:      resolver,
		SKUs:          catalog,
		Logger:        logg,
		NumberPadding: cfg.Inquiry.NumberPadding,
	}); err != nil {
		return deps, fmt.Errorf("inquiry service: %w", err)
	}

	orderRepo := orders.NewRepository(conn)
	if deps.Orders, err = orders.NewService(orders.ServiceParams{
		Repository: orderRepo,
		Tx:         dbClient,
		Catalog:    catalog,
		Inquiries:  inquiryRepo,
		Notifier:   notifier,
		Resolver:   resolver,
		Logger:     logg,
	}); err != nil {
		return deps, fmt.Errorf("order service: %w", err)
	}
	if deps.Payments, err = payments.NewService(payments.ServiceParams{
		Repository: payments.NewRepository(conn),
		Orders:     orderRepo,
		Tx:         dbClient,
		Notifier:   notifier,
		Resolver:   resolver,
		Logger:     logg,
	}); err != nil {
		return deps, fmt.Errorf("payment service: %w", err)
	}
	if deps.Shipping, err = shipping.NewService(shipping.ServiceParams{
		Repository: shipping.NewRepository(conn),
		Orders:     orderRepo,
		Tx:         dbClient,
		Notifier:   notifier,
		Resolver:   resolver,
		Logger:     logg,
	}); err != nil {
		return deps, fmt.Errorf("shipping service: %w", err)
	}

	if deps.Settings, err = settings.NewService(settings.NewRepository(conn), dbClient); err != nil {
		return deps, fmt.Errorf("settings service: %w", err)
	}
	return deps, nil
}
