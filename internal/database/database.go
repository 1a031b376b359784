package database

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	_ "github.com/mattn/go-sqlite3"
)

const dayTimeFormat = "2006-01-02 15:04:05"

type DB struct {
	*sql.DB
	logger *zerolog.Logger
}

func NewDB(path string, logger *zerolog.Logger) (*DB, error) {
	if path != ":memory:" {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// sqlite сериализует записи сам; одно соединение также сохраняет
	// схему для :memory:
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := createTables(db); err != nil {
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	logger.Info().Str("path", path).Msg("database initialized")
	return &DB{DB: db, logger: logger}, nil
}

func createTables(db *sql.DB) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS users (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            email TEXT UNIQUE NOT NULL,
            first_name TEXT NOT NULL,
            last_name TEXT,
            role TEXT NOT NULL DEFAULT 'client',
            created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
            updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
        )`,
		`CREATE TABLE IF NOT EXISTS restaurants (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            name TEXT UNIQUE NOT NULL,
            address TEXT,
            created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
            updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
        )`,
		`CREATE TABLE IF NOT EXISTS restaurant_tables (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            restaurant_id INTEGER NOT NULL,
            number INTEGER NOT NULL,
            seats INTEGER NOT NULL,
            UNIQUE(restaurant_id, number)
        )`,
		`CREATE TABLE IF NOT EXISTS working_times (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            restaurant_id INTEGER NOT NULL,
            weekday INTEGER NOT NULL,
            open_time TEXT NOT NULL,
            close_time TEXT NOT NULL,
            UNIQUE(restaurant_id, weekday)
        )`,
		`CREATE TABLE IF NOT EXISTS reservations (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            table_id INTEGER,
            client_id INTEGER NOT NULL,
            manager_id INTEGER,
            status TEXT NOT NULL DEFAULT 'pending',
            day_time TEXT NOT NULL,
            guests INTEGER NOT NULL,
            created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
            updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
        )`,

		`CREATE INDEX IF NOT EXISTS idx_reservations_status ON reservations(status)`,
		`CREATE INDEX IF NOT EXISTS idx_reservations_table_id ON reservations(table_id)`,
		`CREATE INDEX IF NOT EXISTS idx_reservations_client_id ON reservations(client_id)`,
		`CREATE INDEX IF NOT EXISTS idx_reservations_day_time ON reservations(day_time)`,
		`CREATE INDEX IF NOT EXISTS idx_tables_restaurant_id ON restaurant_tables(restaurant_id)`,
		`CREATE INDEX IF NOT EXISTS idx_working_times_restaurant_id ON working_times(restaurant_id)`,

		// An active reservation holds its exact slot exclusively. Turns a
		// concurrent same-slot insert into a constraint failure instead of a
		// silent double-booking.
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_reservations_active_slot
            ON reservations(table_id, day_time)
            WHERE status IN ('pending', 'reserved')`,
	}

	for _, query := range queries {
		if _, err := db.Exec(query); err != nil {
			return fmt.Errorf("error executing query %s: %w", query, err)
		}
	}
	return nil
}

// Времена храним локальными стенными часами; вход из любой зоны
// приводится к time.Local, иначе чтение вернуло бы сдвинутый момент.
func formatDayTime(t time.Time) string {
	return t.In(time.Local).Format(dayTimeFormat)
}

func parseDayTime(s string) (time.Time, error) {
	t, err := time.ParseInLocation(dayTimeFormat, s, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to parse day_time %q: %w", s, err)
	}
	return t, nil
}

func (db *DB) Close() error {
	return db.DB.Close()
}
