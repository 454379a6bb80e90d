package database

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"time"

	_ "github.com/lib/pq"
	"github.com/sirupsen/logrus"
	"github.com/tenderhub/tender-backend/shared"
)

var DB *sql.DB

// ConnectionConfig holds pool settings for the Postgres connection
type ConnectionConfig struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
	PingTimeout     time.Duration
}

// DefaultConnectionConfig returns pool settings suitable for a single service instance
func DefaultConnectionConfig() *ConnectionConfig {
	return &ConnectionConfig{
		MaxOpenConns:    25,
		MaxIdleConns:    5,
		ConnMaxLifetime: 30 * time.Minute,
		ConnMaxIdleTime: 5 * time.Minute,
		PingTimeout:     10 * time.Second,
	}
}

// Connect establishes the database connection with default pool configuration
func Connect(dbURL string) error {
	return ConnectWithConfig(dbURL, DefaultConnectionConfig())
}

// ConnectWithConfig establishes the database connection with custom pool configuration
func ConnectWithConfig(dbURL string, config *ConnectionConfig) error {
	var err error
	DB, err = sql.Open("postgres", dbURL)
	if err != nil {
		return shared.NewDatabaseError("failed to open database connection", "database", "Connect", err)
	}

	DB.SetMaxOpenConns(config.MaxOpenConns)
	DB.SetMaxIdleConns(config.MaxIdleConns)
	DB.SetConnMaxLifetime(config.ConnMaxLifetime)
	DB.SetConnMaxIdleTime(config.ConnMaxIdleTime)

	ctx, cancel := context.WithTimeout(context.Background(), config.PingTimeout)
	defer cancel()

	if err = DB.PingContext(ctx); err != nil {
		return shared.NewDatabaseError("failed to ping database", "database", "Connect", err)
	}

	logrus.WithFields(logrus.Fields{
		"max_open_conns":    config.MaxOpenConns,
		"max_idle_conns":    config.MaxIdleConns,
		"conn_max_lifetime": config.ConnMaxLifetime,
	}).Info("Connected to database successfully")

	return nil
}

// Migrate applies the schema file. Statements are idempotent
// (CREATE TABLE IF NOT EXISTS), so running on every startup is safe.
func Migrate(schemaPath string) error {
	if DB == nil {
		return fmt.Errorf("database connection not established")
	}

	schema, err := os.ReadFile(schemaPath)
	if err != nil {
		return fmt.Errorf("failed to read schema file %s: %w", schemaPath, err)
	}

	if _, err := DB.Exec(string(schema)); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}

	logrus.WithField("schema", schemaPath).Info("Database schema applied")
	return nil
}

func Close() {
	if DB != nil {
		DB.Close()
		logrus.Info("Database connection closed")
	}
}
