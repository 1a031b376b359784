package reservation

import (
	"context"
	"fmt"
	"sort"
	"time"

	"reserveit/internal/models"
)

// slotDay помечает, к какому календарному дню относится сгенерированное
// время: к текущему дню работы или к следующему (окно через полночь).
type slotDay int

const (
	daySame slotDay = 1
	dayNext slotDay = 2
)

// noonCutoff: всё, что строго раньше 11:59 (и сама полночь), считается
// продолжением вчерашнего рабочего окна и сдвигается на следующий день.
const noonCutoff = models.TimeOfDay(11*60 + 59)

// generateSlots steps from open to end inclusive at the slot interval,
// wrapping past midnight, and labels every candidate with the day it
// belongs to. Pure function of the two wall-clock times.
func generateSlots(open, end models.TimeOfDay) map[models.TimeOfDay]slotDay {
	slots := make(map[models.TimeOfDay]slotDay)

	// Длина окна по модулю суток; хвост, не кратный шагу сетки,
	// отбрасывается, чтобы слоты не выходили за рабочие часы.
	span := int(end) - int(open)
	if span < 0 {
		span += 24 * 60
	}
	steps := span/models.SlotIntervalMinutes + 1

	t := open
	for i := 0; i < steps; i++ {
		if t == 0 || (t > 0 && t < noonCutoff) {
			slots[t] = dayNext
		} else {
			slots[t] = daySame
		}

		t = t.Add(models.SlotInterval)
	}
	return slots
}

// nearestDate возвращает ближайшую (включая сегодня) дату с данным днём недели.
func nearestDate(today time.Time, weekday time.Weekday) time.Time {
	date := today
	for date.Weekday() != weekday {
		date = date.AddDate(0, 0, 1)
	}
	return date
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// AvailableTables возвращает по каждому подходящему столику ресторана
// отсортированный список свободных времён начала брони на ближайшие
// models.AvailableDaysForReservation дней. Карта пересчитывается заново
// при каждом вызове.
func (s *Service) AvailableTables(ctx context.Context, restaurantID int64, guests int) ([]models.TableAvailability, error) {
	if _, err := s.finishPassed(ctx); err != nil {
		return nil, err
	}
	return s.availableTables(ctx, restaurantID, guests, 0)
}

// availableTables вычисляет карту доступности. excludeID исключает
// собственную бронь из поиска конфликтов при редактировании; 0 — ничего
// не исключать.
func (s *Service) availableTables(ctx context.Context, restaurantID int64, guests int, excludeID int64) ([]models.TableAvailability, error) {
	tables, err := s.db.GetTablesWithMinSeats(ctx, restaurantID, guests)
	if err != nil {
		return nil, fmt.Errorf("failed to load tables: %w", err)
	}

	now := s.now()
	today := startOfDay(now)

	workingTimes, err := s.db.GetWorkingTimesForDays(ctx, restaurantID, now.Weekday(), models.AvailableDaysForReservation)
	if err != nil {
		return nil, fmt.Errorf("failed to load working times: %w", err)
	}

	reservations, err := s.db.GetAllReservations(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load reservations: %w", err)
	}

	s.logger.Debug().
		Int64("restaurant_id", restaurantID).
		Int("guests", guests).
		Int("tables", len(tables)).
		Int("working_times", len(workingTimes)).
		Msg("computing availability map")

	availability := make([]models.TableAvailability, 0, len(tables))
	for _, table := range tables {
		var slots []time.Time
		for _, wt := range workingTimes {
			end := wt.Close.Add(-models.ReservationDuration)
			for tod, day := range generateSlots(wt.Open, end) {
				weekday := wt.Weekday
				if day == dayNext {
					weekday = (weekday + 1) % 7
				}
				date := nearestDate(today, weekday)
				resolved := tod.At(date)

				// Today's already-past times are dropped; future days are
				// kept regardless of the clock.
				if !date.Equal(today) || resolved.After(now) {
					slots = append(slots, resolved)
				}
			}
		}
		availability = append(availability, models.TableAvailability{Table: table, Slots: slots})
	}

	for _, r := range reservations {
		if !r.Status.IsActive() || !r.TableID.Valid || r.ID == excludeID {
			continue
		}
		for i := range availability {
			if availability[i].Table.ID != r.TableID.Int64 {
				continue
			}
			availability[i].Slots = removeConflicts(availability[i].Slots, r.DayTime, r.EndTime(), now)
		}
	}

	for i := range availability {
		sort.Slice(availability[i].Slots, func(a, b int) bool {
			return availability[i].Slots[a].Before(availability[i].Slots[b])
		})
	}

	return availability, nil
}

// removeConflicts отбрасывает времена внутри [start, end] включительно,
// а также уже прошедшие.
func removeConflicts(slots []time.Time, start, end, now time.Time) []time.Time {
	kept := slots[:0]
	for _, t := range slots {
		blocked := !t.Before(start) && !t.After(end)
		if blocked || t.Before(now) {
			continue
		}
		kept = append(kept, t)
	}
	return kept
}

// findTable ищет первый столик, в чьём списке есть запрошенное время.
func findTable(availability []models.TableAvailability, dayTime time.Time) (models.RestaurantTable, bool) {
	for _, ta := range availability {
		for _, slot := range ta.Slots {
			if slot.Equal(dayTime) {
				return ta.Table, true
			}
		}
	}
	return models.RestaurantTable{}, false
}
