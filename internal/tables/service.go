package tables

import (
	"context"
	"fmt"
	"time"

	"reserveit/internal/database"
	"reserveit/internal/models"

	"github.com/rs/zerolog"
)

// Service управляет столиками ресторана: нумерация, создание, удаление.
type Service struct {
	db     *database.DB
	logger *zerolog.Logger
}

func NewService(db *database.DB, logger *zerolog.Logger) *Service {
	return &Service{db: db, logger: logger}
}

// Create присваивает столику наименьший свободный положительный номер в
// рамках ресторана (освободившиеся номера переиспользуются) и сохраняет его.
func (s *Service) Create(ctx context.Context, table *models.RestaurantTable) error {
	numbers, err := s.db.GetTableNumbers(ctx, table.RestaurantID)
	if err != nil {
		return err
	}

	used := make(map[int]bool, len(numbers))
	for _, n := range numbers {
		used[n] = true
	}

	n := 1
	for used[n] {
		n++
	}
	table.Number = n

	if err := s.db.CreateTable(ctx, table); err != nil {
		return err
	}

	s.logger.Info().
		Int64("table_id", table.ID).
		Int64("restaurant_id", table.RestaurantID).
		Int("number", table.Number).
		Int("seats", table.Seats).
		Msg("table created")

	return nil
}

// List возвращает столики ресторана в порядке номеров.
func (s *Service) List(ctx context.Context, restaurantID int64) ([]models.RestaurantTable, error) {
	return s.db.GetTables(ctx, restaurantID)
}

// Delete удаляет столик, если на нём нет активных броней. История броней
// сохраняется: ссылка на столик обнуляется, строки остаются.
// Возвращает false без изменений, когда удаление запрещено.
func (s *Service) Delete(ctx context.Context, id int64) (bool, error) {
	reservations, err := s.db.GetReservationsByTable(ctx, id)
	if err != nil {
		return false, err
	}

	active := 0
	for _, r := range reservations {
		if r.Status.IsActive() {
			active++
		}
	}
	if active > 0 {
		s.logger.Warn().Int64("table_id", id).Int("active", active).Msg("table has active reservations, delete refused")
		return false, nil
	}

	if err := s.db.ClearTableReferences(ctx, id); err != nil {
		return false, err
	}
	if err := s.db.DeleteTable(ctx, id); err != nil {
		return false, fmt.Errorf("failed to delete table: %w", err)
	}

	s.logger.Info().Int64("table_id", id).Msg("table deleted")
	return true, nil
}

// WorkingHours upserts the opening window for one weekday.
func (s *Service) WorkingHours(ctx context.Context, restaurantID int64, weekday time.Weekday, open, close models.TimeOfDay) (*models.WorkingTime, error) {
	wt := &models.WorkingTime{
		RestaurantID: restaurantID,
		Weekday:      weekday,
		Open:         open,
		Close:        close,
	}
	if err := s.db.UpsertWorkingTime(ctx, wt); err != nil {
		return nil, err
	}
	return wt, nil
}
