package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/chu-duc-anh/imnovelteam/config"
)

// DBType identifies the active database backend
type DBType string

const (
	DBTypeSQLite DBType = "sqlite"
	DBTypeMySQL  DBType = "mysql"
)

// DB holds the database connection
var DB *sql.DB

// dbType records which backend was initialized
var dbType DBType

// ErrBusy is returned when SQLite is busy after all retries
var ErrBusy = errors.New("database is busy, please try again")

// Init initializes the database connection and runs migrations
func Init(cfg *config.Config) error {
	var err error
	switch cfg.DBType {
	case "mysql":
		err = initMySQL(MySQLConfig{
			Host:            cfg.MySQLHost,
			Port:            cfg.MySQLPort,
			User:            cfg.MySQLUser,
			Password:        cfg.MySQLPassword,
			Database:        cfg.MySQLDatabase,
			TLSEnabled:      cfg.MySQLTLSEnabled,
			TLSSkipVerify:   cfg.MySQLTLSSkipVerify,
			TLSCACert:       cfg.MySQLTLSCACert,
			MaxOpenConns:    cfg.MySQLMaxOpenConns,
			MaxIdleConns:    cfg.MySQLMaxIdleConns,
			ConnMaxLifetime: cfg.MySQLConnMaxLifetime,
			ConnMaxIdleTime: cfg.MySQLConnMaxIdleTime,
		})
	case "sqlite", "":
		err = initSQLite(cfg.DBPath)
	default:
		err = fmt.Errorf("unsupported DB_TYPE %q", cfg.DBType)
	}
	if err != nil {
		return err
	}

	// Run backend-specific migrations
	if dbType == DBTypeMySQL {
		err = runMySQLMigrations()
	} else {
		err = runSQLiteMigrations()
	}
	if err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	log.Printf("Database initialized (%s)", dbType)
	return nil
}

// Close closes the database connection
func Close() error {
	if DB != nil {
		return DB.Close()
	}
	return nil
}

// isBusyError checks if an error is a SQLite BUSY error
func isBusyError(err error) bool {
	if err == nil {
		return false
	}
	errStr := strings.ToLower(err.Error())
	return strings.Contains(errStr, "busy") || strings.Contains(errStr, "locked")
}

// WithRetry executes a function with retry logic for SQLITE_BUSY errors
// It will retry up to maxRetries times with exponential backoff
func WithRetry(fn func() error) error {
	return WithRetryContext(context.Background(), fn)
}

// WithRetryContext executes a function with retry logic and context support
func WithRetryContext(ctx context.Context, fn func() error) error {
	const maxRetries = 5
	baseDelay := 50 * time.Millisecond

	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		// Check context before each attempt
		if ctx.Err() != nil {
			return ctx.Err()
		}

		lastErr = fn()
		if lastErr == nil {
			return nil
		}

		// Only retry on SQLITE_BUSY errors
		if !isBusyError(lastErr) {
			return lastErr
		}

		if attempt > 0 {
			log.Printf("Database busy, retry attempt %d/%d", attempt+1, maxRetries)
		}

		// Exponential backoff: 50ms, 100ms, 200ms, 400ms, 800ms
		delay := baseDelay * time.Duration(1<<attempt)
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	log.Printf("Database busy after %d retries: %v", maxRetries, lastErr)
	return ErrBusy
}

// WithTransaction executes a function within a transaction with retry support
// If the function returns an error, the transaction is rolled back
// If the function succeeds, the transaction is committed
func WithTransaction(fn func(tx *sql.Tx) error) error {
	return WithRetry(func() error {
		tx, err := DB.Begin()
		if err != nil {
			return fmt.Errorf("failed to begin transaction: %w", err)
		}

		if err := fn(tx); err != nil {
			// Attempt rollback, ignore rollback errors
			_ = tx.Rollback()
			return err
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("failed to commit transaction: %w", err)
		}

		return nil
	})
}
