package database

import (
	"crypto/tls"
	"crypto/x509"
	"database/sql"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/go-sql-driver/mysql"
)

// MySQLConfig holds MySQL connection configuration
type MySQLConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string

	// TLS configuration
	TLSEnabled    bool
	TLSSkipVerify bool
	TLSCACert     string // Path to CA certificate file

	// Connection pool configuration
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

// initMySQL initializes a MySQL database connection
func initMySQL(cfg MySQLConfig) error {
	// First, try to create the database if it doesn't exist
	if err := ensureMySQLDatabaseExists(cfg); err != nil {
		return fmt.Errorf("failed to ensure database exists: %w", err)
	}

	// Build MySQL DSN
	mysqlCfg := mysql.NewConfig()
	mysqlCfg.User = cfg.User
	mysqlCfg.Passwd = cfg.Password
	mysqlCfg.Net = "tcp"
	mysqlCfg.Addr = fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	mysqlCfg.DBName = cfg.Database
	mysqlCfg.ParseTime = true
	mysqlCfg.Loc = time.UTC
	mysqlCfg.MultiStatements = true
	mysqlCfg.InterpolateParams = true

	// Configure TLS if enabled
	if cfg.TLSEnabled {
		tlsConfig, err := buildTLSConfig(cfg)
		if err != nil {
			return fmt.Errorf("failed to configure TLS: %w", err)
		}

		tlsConfigName := "custom"
		if err := mysql.RegisterTLSConfig(tlsConfigName, tlsConfig); err != nil {
			return fmt.Errorf("failed to register TLS config: %w", err)
		}
		mysqlCfg.TLSConfig = tlsConfigName
	}

	// Build DSN and open connection
	dsn := mysqlCfg.FormatDSN()
	var err error
	DB, err = sql.Open("mysql", dsn)
	if err != nil {
		return fmt.Errorf("failed to open MySQL database: %w", err)
	}

	// Configure connection pool
	DB.SetMaxOpenConns(cfg.MaxOpenConns)
	DB.SetMaxIdleConns(cfg.MaxIdleConns)
	DB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	DB.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	// Test the connection
	if err := DB.Ping(); err != nil {
		return fmt.Errorf("failed to ping MySQL database: %w", err)
	}

	dbType = DBTypeMySQL

	// Log connection info (without password)
	log.Printf("MySQL database initialized: %s@%s:%d/%s (TLS: %v)",
		cfg.User, cfg.Host, cfg.Port, cfg.Database, cfg.TLSEnabled)

	return nil
}

// ensureMySQLDatabaseExists connects without a database and creates it if necessary
func ensureMySQLDatabaseExists(cfg MySQLConfig) error {
	// Build MySQL DSN without database name
	mysqlCfg := mysql.NewConfig()
	mysqlCfg.User = cfg.User
	mysqlCfg.Passwd = cfg.Password
	mysqlCfg.Net = "tcp"
	mysqlCfg.Addr = fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	mysqlCfg.ParseTime = true
	mysqlCfg.Loc = time.UTC
	mysqlCfg.MultiStatements = true

	// Configure TLS if enabled
	if cfg.TLSEnabled {
		tlsConfig, err := buildTLSConfig(cfg)
		if err != nil {
			return fmt.Errorf("failed to configure TLS: %w", err)
		}

		tlsConfigName := "custom-init"
		_ = mysql.RegisterTLSConfig(tlsConfigName, tlsConfig)
		mysqlCfg.TLSConfig = tlsConfigName
	}

	dsn := mysqlCfg.FormatDSN()
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return fmt.Errorf("failed to open MySQL connection: %w", err)
	}
	defer db.Close()

	// Test the connection
	if err := db.Ping(); err != nil {
		return fmt.Errorf("failed to ping MySQL server: %w", err)
	}

	// Create database if it doesn't exist
	createDBSQL := fmt.Sprintf("CREATE DATABASE IF NOT EXISTS `%s` CHARACTER SET utf8mb4 COLLATE utf8mb4_unicode_ci", cfg.Database)
	if _, err := db.Exec(createDBSQL); err != nil {
		return fmt.Errorf("failed to create database '%s': %w", cfg.Database, err)
	}

	log.Printf("Ensured MySQL database '%s' exists", cfg.Database)
	return nil
}

// buildTLSConfig creates a TLS configuration for MySQL
func buildTLSConfig(cfg MySQLConfig) (*tls.Config, error) {
	tlsConfig := &tls.Config{
		InsecureSkipVerify: cfg.TLSSkipVerify,
		MinVersion:         tls.VersionTLS12,
	}

	// If a CA certificate is provided, load and use it
	if cfg.TLSCACert != "" {
		caCert, err := os.ReadFile(cfg.TLSCACert)
		if err != nil {
			return nil, fmt.Errorf("failed to read CA certificate: %w", err)
		}

		caCertPool := x509.NewCertPool()
		if !caCertPool.AppendCertsFromPEM(caCert) {
			return nil, fmt.Errorf("failed to parse CA certificate")
		}

		tlsConfig.RootCAs = caCertPool
		if !cfg.TLSSkipVerify {
			tlsConfig.InsecureSkipVerify = false
		}
	}

	return tlsConfig, nil
}

// runMySQLMigrations creates all required tables for MySQL
func runMySQLMigrations() error {
	migrations := []string{
		// Users table
		`CREATE TABLE IF NOT EXISTS users (
			id VARCHAR(36) PRIMARY KEY,
			username VARCHAR(191) UNIQUE NOT NULL,
			password_hash VARCHAR(191) NOT NULL,
			role VARCHAR(20) NOT NULL DEFAULT 'user',
			race VARCHAR(100) NOT NULL DEFAULT '',
			picture TEXT,
			ally_of_id VARCHAR(36),
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
			INDEX idx_users_username (username)
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci`,

		// Stories table
		`CREATE TABLE IF NOT EXISTS stories (
			id VARCHAR(36) PRIMARY KEY,
			creator_id VARCHAR(36) NOT NULL,
			title VARCHAR(300) NOT NULL,
			author VARCHAR(200) NOT NULL,
			translator VARCHAR(200) NOT NULL DEFAULT '',
			cover_image_url TEXT,
			genres TEXT,
			description TEXT,
			status VARCHAR(20) NOT NULL DEFAULT 'Ongoing',
			views INT NOT NULL DEFAULT 0,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
			FOREIGN KEY (creator_id) REFERENCES users(id),
			INDEX idx_stories_creator (creator_id)
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci`,

		// Story likes
		`CREATE TABLE IF NOT EXISTS story_likes (
			story_id VARCHAR(36) NOT NULL,
			user_id VARCHAR(36) NOT NULL,
			PRIMARY KEY (story_id, user_id),
			FOREIGN KEY (story_id) REFERENCES stories(id) ON DELETE CASCADE,
			FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci`,

		// Story bookmarks
		`CREATE TABLE IF NOT EXISTS story_bookmarks (
			story_id VARCHAR(36) NOT NULL,
			user_id VARCHAR(36) NOT NULL,
			PRIMARY KEY (story_id, user_id),
			FOREIGN KEY (story_id) REFERENCES stories(id) ON DELETE CASCADE,
			FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci`,

		// Story ratings
		`CREATE TABLE IF NOT EXISTS story_ratings (
			story_id VARCHAR(36) NOT NULL,
			user_id VARCHAR(36) NOT NULL,
			score TINYINT NOT NULL,
			PRIMARY KEY (story_id, user_id),
			FOREIGN KEY (story_id) REFERENCES stories(id) ON DELETE CASCADE,
			FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci`,

		// Chapters table
		`CREATE TABLE IF NOT EXISTS chapters (
			id VARCHAR(36) PRIMARY KEY,
			story_id VARCHAR(36) NOT NULL,
			title VARCHAR(300) NOT NULL,
			content LONGTEXT NOT NULL,
			position INT NOT NULL DEFAULT 0,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
			FOREIGN KEY (story_id) REFERENCES stories(id) ON DELETE CASCADE,
			INDEX idx_chapters_story (story_id, position)
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci`,

		// Comments table
		`CREATE TABLE IF NOT EXISTS comments (
			id VARCHAR(36) PRIMARY KEY,
			story_id VARCHAR(36) NOT NULL,
			chapter_id VARCHAR(36),
			author_id VARCHAR(36) NOT NULL,
			text TEXT NOT NULL,
			parent_id VARCHAR(36),
			is_pinned TINYINT NOT NULL DEFAULT 0,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (story_id) REFERENCES stories(id) ON DELETE CASCADE,
			FOREIGN KEY (author_id) REFERENCES users(id),
			INDEX idx_comments_story (story_id, chapter_id),
			INDEX idx_comments_parent (parent_id)
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci`,

		// Comment likes
		`CREATE TABLE IF NOT EXISTS comment_likes (
			comment_id VARCHAR(36) NOT NULL,
			user_id VARCHAR(36) NOT NULL,
			PRIMARY KEY (comment_id, user_id),
			FOREIGN KEY (comment_id) REFERENCES comments(id) ON DELETE CASCADE,
			FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci`,

		// Chat messages
		`CREATE TABLE IF NOT EXISTS chat_messages (
			id VARCHAR(36) PRIMARY KEY,
			sender_id VARCHAR(36) NOT NULL,
			receiver_id VARCHAR(36) NOT NULL,
			text TEXT NOT NULL,
			is_read TINYINT NOT NULL DEFAULT 0,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			INDEX idx_chat_messages_sender (sender_id, created_at),
			INDEX idx_chat_messages_receiver (receiver_id, created_at)
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci`,

		// Site settings
		`CREATE TABLE IF NOT EXISTS site_settings (
			id VARCHAR(36) PRIMARY KEY,
			setting_key VARCHAR(64) UNIQUE NOT NULL,
			value LONGTEXT NOT NULL,
			media_type VARCHAR(20) NOT NULL
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci`,
	}

	for _, migration := range migrations {
		if _, err := DB.Exec(migration); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}

	return nil
}
