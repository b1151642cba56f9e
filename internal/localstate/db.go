package localstate

import (
	"context"
	"fmt"
	"io"
	"log"

	"github.com/solarmart/solarmart-client/pkg/config"
	"github.com/solarmart/solarmart-client/pkg/logger"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Client wraps the sqlite database holding the durable slice of client state:
// the access credential, the serialized user object, and the cart snapshot.
// Everything else (catalog, media, orders, addresses) is refetched per session
// and never lands here.
type Client struct {
	conn *gorm.DB
}

// Open boots the local database and migrates the persisted record tables.
func Open(ctx context.Context, cfg config.LocalDBConfig, logg *logger.Logger) (*Client, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("local db path is required")
	}

	gormLogger := gormlogger.New(
		log.New(io.Discard, "", log.LstdFlags),
		gormlogger.Config{LogLevel: gormlogger.Silent},
	)

	conn, err := gorm.Open(sqlite.Open(cfg.Path), &gorm.Config{
		Logger:                 gormLogger,
		SkipDefaultTransaction: true,
	})
	if err != nil {
		return nil, fmt.Errorf("opening local db: %w", err)
	}

	if err := conn.WithContext(ctx).AutoMigrate(&CredentialRecord{}, &CartSnapshot{}); err != nil {
		return nil, fmt.Errorf("migrating local db: %w", err)
	}

	if logg != nil {
		logg.Info(ctx, "local state database ready")
	}

	return &Client{conn: conn}, nil
}

// DB returns the underlying GORM connection.
func (c *Client) DB() *gorm.DB {
	return c.conn
}

// Ping verifies the datasource is reachable.
func (c *Client) Ping(ctx context.Context) error {
	sqlDB, err := c.conn.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Close shuts down the pooled connections.
func (c *Client) Close() error {
	sqlDB, err := c.conn.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
