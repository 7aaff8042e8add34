package database

import (
	"database/sql"
	"fmt"
	"log"
	"os"

	_ "github.com/lib/pq"
)

var DB *sql.DB

// InitDatabase initializes the database connection. Persistence is
// optional: callers should skip this entirely when DATABASE_URL is unset
// and run without history or saved searches.
func InitDatabase() error {
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		return fmt.Errorf("DATABASE_URL environment variable is required")
	}

	var err error
	DB, err = sql.Open("postgres", dbURL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %v", err)
	}

	// Test the connection
	if err := DB.Ping(); err != nil {
		return fmt.Errorf("failed to ping database: %v", err)
	}

	log.Println("Successfully connected to database")
	return nil
}

// CreateTables creates the necessary tables if they don't exist
func CreateTables() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS search_history (
			id SERIAL PRIMARY KEY,
			query TEXT NOT NULL,
			session_id BIGINT NOT NULL,
			total_offers INTEGER DEFAULT 0,
			total_groups INTEGER DEFAULT 0,
			best_price DECIMAL(10,2),
			best_store VARCHAR(32),
			currency VARCHAR(3) DEFAULT 'AED',
			elapsed_ms BIGINT DEFAULT 0,
			searched_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS offer_snapshots (
			id SERIAL PRIMARY KEY,
			search_id INTEGER REFERENCES search_history(id) ON DELETE CASCADE,
			store VARCHAR(32) NOT NULL,
			title TEXT NOT NULL,
			price DECIMAL(10,2),
			currency VARCHAR(3) DEFAULT 'AED',
			link TEXT NOT NULL,
			group_key TEXT,
			is_best BOOLEAN DEFAULT FALSE
		)`,
		`CREATE TABLE IF NOT EXISTS saved_searches (
			id SERIAL PRIMARY KEY,
			query TEXT NOT NULL UNIQUE,
			target_price DECIMAL(10,2),
			last_checked TIMESTAMP,
			last_best_price DECIMAL(10,2),
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			is_active BOOLEAN DEFAULT TRUE
		)`,

		`CREATE INDEX IF NOT EXISTS idx_search_history_query ON search_history (query, searched_at DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_offer_snapshots_search ON offer_snapshots (search_id)`,
		`CREATE INDEX IF NOT EXISTS idx_saved_searches_active ON saved_searches (is_active) WHERE is_active`,
	}

	for _, query := range queries {
		_, err := DB.Exec(query)
		if err != nil {
			return fmt.Errorf("failed to create table: %v", err)
		}
	}

	return nil
}

// CloseDatabase closes the database connection
func CloseDatabase() error {
	if DB != nil {
		return DB.Close()
	}
	return nil
}
