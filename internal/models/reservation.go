package models

import (
	"database/sql"
	"time"
)

// Status описывает жизненный цикл брони.
type Status string

const (
	StatusPending  Status = "pending"
	StatusReserved Status = "reserved"
	StatusCanceled Status = "canceled"
	StatusFinished Status = "finished"
)

// ActualStatuses статусы активных броней клиента.
var ActualStatuses = []Status{StatusPending, StatusReserved}

// HistoryStatuses статусы завершённых броней клиента.
var HistoryStatuses = []Status{StatusCanceled, StatusFinished}

// IsTerminal reports whether no further transition is allowed.
func (s Status) IsTerminal() bool {
	return s == StatusCanceled || s == StatusFinished
}

// IsActive reports whether the reservation still occupies its table.
func (s Status) IsActive() bool {
	return s == StatusPending || s == StatusReserved
}

type Reservation struct {
	ID        int64         `json:"id"`
	TableID   sql.NullInt64 `json:"table_id"` // cleared when the table is deleted
	ClientID  int64         `json:"client_id"`
	ManagerID sql.NullInt64 `json:"manager_id"` // set on submit
	Status    Status        `json:"status"`
	DayTime   time.Time     `json:"day_time"`
	Guests    int           `json:"guests"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}

// EndTime возвращает момент, когда бронь освобождает столик.
func (r *Reservation) EndTime() time.Time {
	return r.DayTime.Add(ReservationDuration)
}

// ReservationDetails is a reservation joined with table and restaurant
// attributes for listings and exports.
type ReservationDetails struct {
	Reservation
	TableNumber    sql.NullInt64  `json:"table_number"`
	RestaurantID   sql.NullInt64  `json:"restaurant_id"`
	RestaurantName sql.NullString `json:"restaurant_name"`
	ClientEmail    string         `json:"client_email"`
}

// TableAvailability pairs a table with its currently bookable start times,
// ordered ascending. Request-scoped, never persisted.
type TableAvailability struct {
	Table RestaurantTable `json:"table"`
	Slots []time.Time     `json:"slots"`
}
