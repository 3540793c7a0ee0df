package database

import (
	"database/sql"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// initSQLite initializes a SQLite database connection
func initSQLite(dbPath string) error {
	// Ensure the directory exists
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create database directory: %w", err)
	}

	// Open database connection with optimized settings for concurrent access
	// _journal_mode=WAL enables Write-Ahead Logging for better concurrent writes
	// _busy_timeout=10000 waits up to 10 seconds before returning SQLITE_BUSY
	// _synchronous=NORMAL is a good balance between safety and performance
	// _foreign_keys=ON enables foreign key constraints
	// _txlock=immediate ensures write transactions get the lock immediately
	dsn := fmt.Sprintf("%s?_journal_mode=WAL&_busy_timeout=10000&_synchronous=NORMAL&_foreign_keys=ON&_txlock=immediate", dbPath)

	var err error
	DB, err = sql.Open("sqlite", dsn)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}

	// WAL mode allows multiple readers and one writer concurrently.
	// Keep the pool small to avoid connection overhead.
	DB.SetMaxOpenConns(5)
	DB.SetMaxIdleConns(2)
	DB.SetConnMaxLifetime(5 * time.Minute)
	DB.SetConnMaxIdleTime(1 * time.Minute)

	// Test the connection
	if err := DB.Ping(); err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}

	// Verify WAL mode is enabled
	var journalMode string
	if err := DB.QueryRow("PRAGMA journal_mode").Scan(&journalMode); err != nil {
		log.Printf("Warning: Could not verify journal mode: %v", err)
	} else {
		log.Printf("SQLite journal mode: %s", journalMode)
	}

	dbType = DBTypeSQLite
	log.Printf("SQLite database opened: %s", dbPath)
	return nil
}

// runSQLiteMigrations creates all required tables
func runSQLiteMigrations() error {
	migrations := []string{
		// Users table
		`CREATE TABLE IF NOT EXISTS users (
			id TEXT PRIMARY KEY,
			username TEXT UNIQUE NOT NULL,
			password_hash TEXT NOT NULL,
			role TEXT NOT NULL DEFAULT 'user',
			race TEXT NOT NULL DEFAULT '',
			picture TEXT NOT NULL DEFAULT '',
			ally_of_id TEXT REFERENCES users(id),
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE INDEX IF NOT EXISTS idx_users_username ON users(username)`,

		// Stories table
		`CREATE TABLE IF NOT EXISTS stories (
			id TEXT PRIMARY KEY,
			creator_id TEXT NOT NULL REFERENCES users(id),
			title TEXT NOT NULL,
			author TEXT NOT NULL,
			translator TEXT NOT NULL DEFAULT '',
			cover_image_url TEXT NOT NULL DEFAULT '',
			genres TEXT NOT NULL DEFAULT '[]',
			description TEXT NOT NULL DEFAULT '',
			status TEXT NOT NULL DEFAULT 'Ongoing',
			views INTEGER NOT NULL DEFAULT 0,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE INDEX IF NOT EXISTS idx_stories_creator ON stories(creator_id)`,

		// Story likes (one row per user per story)
		`CREATE TABLE IF NOT EXISTS story_likes (
			story_id TEXT NOT NULL REFERENCES stories(id),
			user_id TEXT NOT NULL REFERENCES users(id),
			PRIMARY KEY (story_id, user_id)
		)`,

		// Story bookmarks (one row per user per story)
		`CREATE TABLE IF NOT EXISTS story_bookmarks (
			story_id TEXT NOT NULL REFERENCES stories(id),
			user_id TEXT NOT NULL REFERENCES users(id),
			PRIMARY KEY (story_id, user_id)
		)`,

		// Story ratings (one score per user per story, replaced on resubmit)
		`CREATE TABLE IF NOT EXISTS story_ratings (
			story_id TEXT NOT NULL REFERENCES stories(id),
			user_id TEXT NOT NULL REFERENCES users(id),
			score INTEGER NOT NULL,
			PRIMARY KEY (story_id, user_id)
		)`,

		// Chapters table
		`CREATE TABLE IF NOT EXISTS chapters (
			id TEXT PRIMARY KEY,
			story_id TEXT NOT NULL REFERENCES stories(id),
			title TEXT NOT NULL,
			content TEXT NOT NULL,
			position INTEGER NOT NULL DEFAULT 0,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE INDEX IF NOT EXISTS idx_chapters_story ON chapters(story_id, position)`,

		// Comments table
		`CREATE TABLE IF NOT EXISTS comments (
			id TEXT PRIMARY KEY,
			story_id TEXT NOT NULL REFERENCES stories(id),
			chapter_id TEXT,
			author_id TEXT NOT NULL REFERENCES users(id),
			text TEXT NOT NULL,
			parent_id TEXT,
			is_pinned INTEGER NOT NULL DEFAULT 0,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE INDEX IF NOT EXISTS idx_comments_story ON comments(story_id, chapter_id)`,
		`CREATE INDEX IF NOT EXISTS idx_comments_parent ON comments(parent_id)`,

		// Comment likes (one row per user per comment)
		`CREATE TABLE IF NOT EXISTS comment_likes (
			comment_id TEXT NOT NULL REFERENCES comments(id),
			user_id TEXT NOT NULL REFERENCES users(id),
			PRIMARY KEY (comment_id, user_id)
		)`,

		// Chat messages; sender/receiver hold user ids or the admin pseudo-id
		`CREATE TABLE IF NOT EXISTS chat_messages (
			id TEXT PRIMARY KEY,
			sender_id TEXT NOT NULL,
			receiver_id TEXT NOT NULL,
			text TEXT NOT NULL,
			is_read INTEGER NOT NULL DEFAULT 0,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE INDEX IF NOT EXISTS idx_chat_messages_sender ON chat_messages(sender_id, created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_chat_messages_receiver ON chat_messages(receiver_id, created_at)`,

		// Site settings (themable backgrounds and music)
		`CREATE TABLE IF NOT EXISTS site_settings (
			id TEXT PRIMARY KEY,
			setting_key TEXT UNIQUE NOT NULL,
			value TEXT NOT NULL,
			media_type TEXT NOT NULL
		)`,
	}

	for _, migration := range migrations {
		if _, err := DB.Exec(migration); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}

	return nil
}
