package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"reserveit/internal/models"
)

func (db *DB) CreateTable(ctx context.Context, table *models.RestaurantTable) error {
	query := `INSERT INTO restaurant_tables (restaurant_id, number, seats) VALUES (?, ?, ?)`
	result, err := db.ExecContext(ctx, query, table.RestaurantID, table.Number, table.Seats)
	if err != nil {
		return fmt.Errorf("failed to create table: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	table.ID = id
	return nil
}

func (db *DB) GetTable(ctx context.Context, id int64) (*models.RestaurantTable, error) {
	query := `SELECT id, restaurant_id, number, seats FROM restaurant_tables WHERE id = ?`
	var t models.RestaurantTable
	err := db.QueryRowContext(ctx, query, id).Scan(&t.ID, &t.RestaurantID, &t.Number, &t.Seats)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get table: %w", err)
	}
	return &t, nil
}

func (db *DB) GetTables(ctx context.Context, restaurantID int64) ([]models.RestaurantTable, error) {
	query := `SELECT id, restaurant_id, number, seats FROM restaurant_tables
              WHERE restaurant_id = ? ORDER BY number ASC`
	return db.queryTables(ctx, query, restaurantID)
}

// GetTablesWithMinSeats возвращает столики ресторана, вмещающие minSeats
// и больше, в порядке номеров.
func (db *DB) GetTablesWithMinSeats(ctx context.Context, restaurantID int64, minSeats int) ([]models.RestaurantTable, error) {
	query := `SELECT id, restaurant_id, number, seats FROM restaurant_tables
              WHERE restaurant_id = ? AND seats >= ? ORDER BY number ASC`
	return db.queryTables(ctx, query, restaurantID, minSeats)
}

func (db *DB) queryTables(ctx context.Context, query string, args ...any) ([]models.RestaurantTable, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query tables: %w", err)
	}
	defer rows.Close()

	var tables []models.RestaurantTable
	for rows.Next() {
		var t models.RestaurantTable
		if err := rows.Scan(&t.ID, &t.RestaurantID, &t.Number, &t.Seats); err != nil {
			return nil, fmt.Errorf("failed to scan table: %w", err)
		}
		tables = append(tables, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return tables, nil
}

// GetTableNumbers возвращает занятые номера столиков ресторана.
func (db *DB) GetTableNumbers(ctx context.Context, restaurantID int64) ([]int, error) {
	query := `SELECT number FROM restaurant_tables WHERE restaurant_id = ?`
	rows, err := db.QueryContext(ctx, query, restaurantID)
	if err != nil {
		return nil, fmt.Errorf("failed to query table numbers: %w", err)
	}
	defer rows.Close()

	var numbers []int
	for rows.Next() {
		var n int
		if err := rows.Scan(&n); err != nil {
			return nil, fmt.Errorf("failed to scan table number: %w", err)
		}
		numbers = append(numbers, n)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return numbers, nil
}

func (db *DB) DeleteTable(ctx context.Context, id int64) error {
	result, err := db.ExecContext(ctx, `DELETE FROM restaurant_tables WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete table: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}
