package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/angelmondragon/tradedesk-backend/pkg/config"
	"github.com/angelmondragon/tradedesk-backend/pkg/logger"
)

// Client owns the process-wide gorm handle and its sql.DB pool.
type Client struct {
	conn *gorm.DB
}

// Pinger is what the readiness probe needs.
type Pinger interface {
	Ping(ctx context.Context) error
}

// New opens the postgres pool described by cfg and checks it answers before
// returning.
func New(ctx context.Context, cfg config.DBConfig, logg *logger.Logger) (*Client, error) {
	if cfg.DSN == "" {
		return nil, errors.New("database DSN is required")
	}
	client, err := open(postgres.New(postgres.Config{DSN: cfg.DSN, PreferSimpleProtocol: true}), logg, cfg.SlowQuery)
	if err != nil {
		return nil, fmt.Errorf("opening postgres: %w", err)
	}
	sqlDB, err := client.conn.DB()
	if err != nil {
		return nil, fmt.Errorf("sql handle: %w", err)
	}
	configurePool(sqlDB, cfg)
	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if logg != nil {
		stats := sqlDB.Stats()
		logg.Info(logg.WithField(ctx, "max_open", stats.MaxOpenConnections), "database connection established")
	}
	return client, nil
}

// NewSQLite opens a file database with foreign keys enforced. It backs local
// development and the test suite only.
func NewSQLite(ctx context.Context, path string, logg *logger.Logger) (*Client, error) {
	if path == "" {
		return nil, errors.New("sqlite path is required")
	}
	client, err := open(sqlite.Open(path+"?_foreign_keys=on"), logg, 0)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite: %w", err)
	}
	if logg != nil {
		logg.Warn(logg.WithField(ctx, "path", path), "using sqlite database; not for production")
	}
	return client, nil
}

func NewFromConn(conn *gorm.DB) *Client {
	return &Client{conn: conn}
}

func open(dialector gorm.Dialector, logg *logger.Logger, slow time.Duration) (*Client, error) {
	conn, err := gorm.Open(dialector, &gorm.Config{
		Logger:                 newQueryLogger(logg, slow),
		SkipDefaultTransaction: true,
	})
	if err != nil {
		return nil, err
	}
	return &Client{conn: conn}, nil
}

// configurePool applies only the limits that are set; zero keeps the
// database/sql default.
func configurePool(sqlDB *sql.DB, cfg config.DBConfig) {
	if n := cfg.MaxOpenConns; n > 0 {
		sqlDB.SetMaxOpenConns(n)
	}
	if n := cfg.MaxIdleConns; n > 0 {
		sqlDB.SetMaxIdleConns(n)
	}
	if d := cfg.ConnMaxLifetime; d > 0 {
		sqlDB.SetConnMaxLifetime(d)
	}
	if d := cfg.ConnMaxIdleTime; d > 0 {
		sqlDB.SetConnMaxIdleTime(d)
	}
}

func (c *Client) DB() *gorm.DB {
	return c.conn
}

// RegisterMetrics exports the pool counters (open, in use, wait time) as
// go_sql_* series labelled db_name=name.
func (c *Client) RegisterMetrics(reg prometheus.Registerer, name string) error {
	sqlDB, err := c.conn.DB()
	if err != nil {
		return err
	}
	return reg.Register(collectors.NewDBStatsCollector(sqlDB, name))
}

func (c *Client) Ping(ctx context.Context) error {
	sqlDB, err := c.conn.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (c *Client) Close() error {
	sqlDB, err := c.conn.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// WithTx runs fn in a transaction bound to ctx. An error or panic from fn
// rolls it back; a panic is re-raised after the rollback.
func (c *Client) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return c.conn.WithContext(ctx).Transaction(fn)
}
