package models

import "time"

const (
	// AvailableDaysForReservation сколько дней вперёд открыто для бронирования
	AvailableDaysForReservation = 3

	// ReservationDurationHours сколько часов столик занят одной бронью
	ReservationDurationHours = 2

	// SlotIntervalMinutes шаг генерации слотов внутри рабочего дня
	SlotIntervalMinutes = 15
)

const (
	ReservationDuration = ReservationDurationHours * time.Hour
	SlotInterval        = SlotIntervalMinutes * time.Minute
)

const (
	// RateLimitRequests количество запросов клиента в окне
	RateLimitRequests = 30

	// RateLimitWindow окно ограничения частоты запросов
	RateLimitWindow = 60 // 1 минута в секундах
)
