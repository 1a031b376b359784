package database

import (
	"context"
	"fmt"
	"strings"
	"time"

	"reserveit/internal/models"
)

// UpsertWorkingTime создает или заменяет окно работы для дня недели.
func (db *DB) UpsertWorkingTime(ctx context.Context, wt *models.WorkingTime) error {
	query := `INSERT INTO working_times (restaurant_id, weekday, open_time, close_time)
              VALUES (?, ?, ?, ?)
              ON CONFLICT(restaurant_id, weekday) DO UPDATE SET
                  open_time = excluded.open_time,
                  close_time = excluded.close_time`
	result, err := db.ExecContext(ctx, query,
		wt.RestaurantID, int(wt.Weekday), wt.Open.String(), wt.Close.String(),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert working time: %w", err)
	}
	if wt.ID == 0 {
		if id, err := result.LastInsertId(); err == nil {
			wt.ID = id
		}
	}
	return nil
}

func (db *DB) GetWorkingTimes(ctx context.Context, restaurantID int64) ([]models.WorkingTime, error) {
	query := `SELECT id, restaurant_id, weekday, open_time, close_time
              FROM working_times WHERE restaurant_id = ? ORDER BY weekday ASC`
	return db.queryWorkingTimes(ctx, query, restaurantID)
}

// GetWorkingTimesForDays возвращает окна работы на ближайшие days дней
// недели начиная со start, упорядоченные по дню недели.
func (db *DB) GetWorkingTimesForDays(ctx context.Context, restaurantID int64, start time.Weekday, days int) ([]models.WorkingTime, error) {
	if days <= 0 {
		return nil, nil
	}

	weekdays := make([]any, 0, days)
	for i := 0; i < days; i++ {
		weekdays = append(weekdays, (int(start)+i)%7)
	}

	placeholders := strings.Repeat("?, ", days-1) + "?"
	query := `SELECT id, restaurant_id, weekday, open_time, close_time
              FROM working_times
              WHERE restaurant_id = ? AND weekday IN (` + placeholders + `)
              ORDER BY weekday ASC`

	args := append([]any{restaurantID}, weekdays...)
	return db.queryWorkingTimes(ctx, query, args...)
}

func (db *DB) queryWorkingTimes(ctx context.Context, query string, args ...any) ([]models.WorkingTime, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query working times: %w", err)
	}
	defer rows.Close()

	var times []models.WorkingTime
	for rows.Next() {
		var wt models.WorkingTime
		var weekday int
		var open, close string
		if err := rows.Scan(&wt.ID, &wt.RestaurantID, &weekday, &open, &close); err != nil {
			return nil, fmt.Errorf("failed to scan working time: %w", err)
		}
		wt.Weekday = time.Weekday(weekday)
		if wt.Open, err = models.ParseTimeOfDay(open); err != nil {
			return nil, err
		}
		if wt.Close, err = models.ParseTimeOfDay(close); err != nil {
			return nil, err
		}
		times = append(times, wt)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return times, nil
}

func (db *DB) DeleteWorkingTime(ctx context.Context, restaurantID int64, weekday time.Weekday) error {
	query := `DELETE FROM working_times WHERE restaurant_id = ? AND weekday = ?`
	_, err := db.ExecContext(ctx, query, restaurantID, int(weekday))
	if err != nil {
		return fmt.Errorf("failed to delete working time: %w", err)
	}
	return nil
}
