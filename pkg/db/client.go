// Package db owns the gorm connection to Postgres shared by every repository.
package db

import (
	"context"
	"fmt"
	"io"
	"log"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/angelmondragon/koumale-backend/pkg/config"
	"github.com/angelmondragon/koumale-backend/pkg/logger"
)

// Client is the shared connection pool.
type Client struct {
	conn *gorm.DB
}

// Pinger is satisfied by anything the readiness probe can check.
type Pinger interface {
	Ping(ctx context.Context) error
}

// New opens the pool and waits for Postgres to answer, retrying up to
// cfg.ConnectAttempts times so containers can start in any order.
func New(ctx context.Context, cfg config.DBConfig, logg *logger.Logger) (*Client, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("database DSN is required")
	}

	conn, err := gorm.Open(
		postgres.New(postgres.Config{DSN: cfg.DSN, PreferSimpleProtocol: true}),
		&gorm.Config{
			Logger:                 silentLogger(),
			SkipDefaultTransaction: true,
			NowFunc:                NowUTC,
		},
	)
	if err != nil {
		return nil, fmt.Errorf("opening db connection: %w", err)
	}
	sqlDB, err := conn.DB()
	if err != nil {
		return nil, fmt.Errorf("getting sql db handle: %w", err)
	}

	if cfg.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}
	if cfg.ConnMaxIdleTime > 0 {
		sqlDB.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)
	}

	client := &Client{conn: conn}
	if err := client.waitReady(ctx, cfg.ConnectAttempts, cfg.ConnectBackoff, logg); err != nil {
		_ = sqlDB.Close()
		return nil, err
	}
	if logg != nil {
		logg.Info(ctx, "database connection established")
	}
	return client, nil
}

func (c *Client) waitReady(ctx context.Context, attempts int, backoff time.Duration, logg *logger.Logger) error {
	if attempts < 1 {
		attempts = 1
	}
	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err = c.Ping(ctx); err == nil {
			return nil
		}
		if attempt == attempts {
			break
		}
		if logg != nil {
			logg.Warn(logg.WithFields(ctx, map[string]any{"attempt": attempt, "error": err.Error()}), "database not ready, retrying")
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff * time.Duration(attempt)):
		}
	}
	return fmt.Errorf("database unreachable after %d attempts: %w", attempts, err)
}

func silentLogger() gormlogger.Interface {
	return gormlogger.New(log.New(io.Discard, "", 0), gormlogger.Config{LogLevel: gormlogger.Silent})
}

// NowUTC is the clock gorm stamps created_at and updated_at with.
func NowUTC() time.Time {
	return time.Now().UTC()
}

// FromGorm wraps an existing connection, used by tests over sqlite.
func FromGorm(conn *gorm.DB) *Client {
	return &Client{conn: conn}
}

// DB returns the underlying gorm connection.
func (c *Client) DB() *gorm.DB {
	return c.conn
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

// WithTx runs fn in a transaction. An error or panic from fn rolls back.
func (c *Client) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return c.conn.WithContext(ctx).Transaction(fn)
}
