package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"reserveit/internal/models"
)

func (db *DB) CreateRestaurant(ctx context.Context, r *models.Restaurant) error {
	query := `INSERT INTO restaurants (name, address, created_at, updated_at) VALUES (?, ?, ?, ?)`
	now := time.Now()
	result, err := db.ExecContext(ctx, query, r.Name, r.Address, now, now)
	if err != nil {
		return fmt.Errorf("failed to create restaurant: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	r.ID = id
	r.CreatedAt = now
	r.UpdatedAt = now
	return nil
}

func (db *DB) GetRestaurant(ctx context.Context, id int64) (*models.Restaurant, error) {
	query := `SELECT id, name, address, created_at, updated_at FROM restaurants WHERE id = ?`
	var r models.Restaurant
	err := db.QueryRowContext(ctx, query, id).Scan(&r.ID, &r.Name, &r.Address, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get restaurant: %w", err)
	}
	return &r, nil
}

func (db *DB) GetAllRestaurants(ctx context.Context) ([]models.Restaurant, error) {
	query := `SELECT id, name, address, created_at, updated_at FROM restaurants ORDER BY name ASC`
	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query restaurants: %w", err)
	}
	defer rows.Close()

	var restaurants []models.Restaurant
	for rows.Next() {
		var r models.Restaurant
		if err := rows.Scan(&r.ID, &r.Name, &r.Address, &r.CreatedAt, &r.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan restaurant: %w", err)
		}
		restaurants = append(restaurants, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return restaurants, nil
}
