package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"reserveit/internal/models"
)

const reservationColumns = `id, table_id, client_id, manager_id, status, day_time, guests, created_at, updated_at`

func scanReservation(row interface{ Scan(...any) error }) (*models.Reservation, error) {
	var r models.Reservation
	var dayTime string
	err := row.Scan(
		&r.ID, &r.TableID, &r.ClientID, &r.ManagerID, &r.Status,
		&dayTime, &r.Guests, &r.CreatedAt, &r.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	r.DayTime, err = parseDayTime(dayTime)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// InsertReservation создает новую бронь и возвращает её.
// Слот с активной бронью на том же столике даёт ErrSlotTaken.
func (db *DB) InsertReservation(ctx context.Context, tableID, clientID int64, status models.Status, dayTime time.Time, guests int) (*models.Reservation, error) {
	query := `INSERT INTO reservations (table_id, client_id, manager_id, status, day_time, guests, created_at, updated_at)
              VALUES (?, ?, NULL, ?, ?, ?, ?, ?)`
	now := time.Now()
	result, err := db.ExecContext(ctx, query,
		tableID,
		clientID,
		status,
		formatDayTime(dayTime),
		guests,
		now,
		now,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrSlotTaken
		}
		return nil, fmt.Errorf("failed to insert reservation: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get last insert id: %w", err)
	}

	return &models.Reservation{
		ID:        id,
		TableID:   sql.NullInt64{Int64: tableID, Valid: true},
		ClientID:  clientID,
		Status:    status,
		DayTime:   dayTime,
		Guests:    guests,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

func (db *DB) GetReservation(ctx context.Context, id int64) (*models.Reservation, error) {
	query := `SELECT ` + reservationColumns + ` FROM reservations WHERE id = ?`
	r, err := scanReservation(db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get reservation: %w", err)
	}
	return r, nil
}

func (db *DB) GetAllReservations(ctx context.Context) ([]*models.Reservation, error) {
	query := `SELECT ` + reservationColumns + ` FROM reservations ORDER BY day_time ASC`
	return db.queryReservations(ctx, query)
}

func (db *DB) GetReservationsByClientAndStatuses(ctx context.Context, clientID int64, statuses []models.Status) ([]*models.Reservation, error) {
	if len(statuses) == 0 {
		return nil, nil
	}
	placeholders := strings.Repeat("?, ", len(statuses)-1) + "?"
	query := `SELECT ` + reservationColumns + ` FROM reservations
              WHERE client_id = ? AND status IN (` + placeholders + `) ORDER BY day_time ASC`

	args := make([]any, 0, len(statuses)+1)
	args = append(args, clientID)
	for _, s := range statuses {
		args = append(args, s)
	}
	return db.queryReservations(ctx, query, args...)
}

func (db *DB) GetReservationsByTable(ctx context.Context, tableID int64) ([]*models.Reservation, error) {
	query := `SELECT ` + reservationColumns + ` FROM reservations WHERE table_id = ? ORDER BY day_time ASC`
	return db.queryReservations(ctx, query, tableID)
}

func (db *DB) queryReservations(ctx context.Context, query string, args ...any) ([]*models.Reservation, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query reservations: %w", err)
	}
	defer rows.Close()

	var reservations []*models.Reservation
	for rows.Next() {
		r, err := scanReservation(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan reservation: %w", err)
		}
		reservations = append(reservations, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return reservations, nil
}

// GetReservationDetails возвращает брони вместе с данными столика,
// ресторана и клиента для списков менеджера и экспорта.
func (db *DB) GetReservationDetails(ctx context.Context) ([]*models.ReservationDetails, error) {
	query := `SELECT r.id, r.table_id, r.client_id, r.manager_id, r.status, r.day_time,
                     r.guests, r.created_at, r.updated_at,
                     t.number, t.restaurant_id, rest.name, u.email
              FROM reservations r
              LEFT JOIN restaurant_tables t ON t.id = r.table_id
              LEFT JOIN restaurants rest ON rest.id = t.restaurant_id
              JOIN users u ON u.id = r.client_id
              ORDER BY r.day_time ASC`

	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query reservation details: %w", err)
	}
	defer rows.Close()

	var details []*models.ReservationDetails
	for rows.Next() {
		d := &models.ReservationDetails{}
		var dayTime string
		err := rows.Scan(
			&d.ID, &d.TableID, &d.ClientID, &d.ManagerID, &d.Status,
			&dayTime, &d.Guests, &d.CreatedAt, &d.UpdatedAt,
			&d.TableNumber, &d.RestaurantID, &d.RestaurantName, &d.ClientEmail,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan reservation details: %w", err)
		}
		d.DayTime, err = parseDayTime(dayTime)
		if err != nil {
			return nil, err
		}
		details = append(details, d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return details, nil
}

// UpdateReservation перезаписывает изменяемые поля брони.
func (db *DB) UpdateReservation(ctx context.Context, r *models.Reservation) error {
	query := `UPDATE reservations
              SET table_id = ?, manager_id = ?, status = ?, day_time = ?, guests = ?, updated_at = ?
              WHERE id = ?`
	result, err := db.ExecContext(ctx, query,
		r.TableID, r.ManagerID, r.Status, formatDayTime(r.DayTime), r.Guests, time.Now(), r.ID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrSlotTaken
		}
		return fmt.Errorf("failed to update reservation: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

func (db *DB) SetReservationStatus(ctx context.Context, id int64, status models.Status) error {
	query := `UPDATE reservations SET status = ?, updated_at = ? WHERE id = ?`
	_, err := db.ExecContext(ctx, query, status, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to set reservation status: %w", err)
	}
	return nil
}

// FinishElapsed переводит в finished все reserved-брони, чьё окно
// обслуживания истекло до cutoff. Возвращает число затронутых строк.
func (db *DB) FinishElapsed(ctx context.Context, cutoff time.Time) (int64, error) {
	query := `UPDATE reservations SET status = ?, updated_at = ?
              WHERE status = ? AND day_time < ?`
	result, err := db.ExecContext(ctx, query,
		models.StatusFinished, time.Now(), models.StatusReserved, formatDayTime(cutoff),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to finish elapsed reservations: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return 0, err
	}
	return rows, nil
}

// ClearTableReferences отвязывает удаляемый столик от истории броней.
func (db *DB) ClearTableReferences(ctx context.Context, tableID int64) error {
	query := `UPDATE reservations SET table_id = NULL, updated_at = ? WHERE table_id = ?`
	_, err := db.ExecContext(ctx, query, time.Now(), tableID)
	if err != nil {
		return fmt.Errorf("failed to clear table references: %w", err)
	}
	return nil
}
