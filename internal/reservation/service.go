package reservation

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"time"

	"reserveit/internal/database"
	"reserveit/internal/metrics"
	"reserveit/internal/models"

	"github.com/rs/zerolog"
)

var (
	// ErrNoAvailability запрошенное время не найдено в карте доступности.
	// Ожидаемый исход (например, слот заняли параллельно), не сбой системы.
	ErrNoAvailability = errors.New("no table available at the requested time")

	// ErrReservationNotFound бронь с таким id не существует.
	ErrReservationNotFound = errors.New("reservation not found")

	// ErrReservationClosed бронь уже отменена или завершена;
	// из терминального статуса переходов нет.
	ErrReservationClosed = errors.New("reservation is already closed")
)

// SortKey задаёт порядок списка броней менеджера.
type SortKey string

const (
	SortNone         SortKey = ""
	SortByStatus     SortKey = "status"
	SortByDayTime    SortKey = "dayTime"
	SortByRestaurant SortKey = "restaurant"
)

// statusRank: активные брони впереди, закрытые в хвосте списка.
var statusRank = map[models.Status]int{
	models.StatusPending:  0,
	models.StatusReserved: 1,
	models.StatusCanceled: 2,
	models.StatusFinished: 3,
}

// ParseSortKey maps a request parameter onto the closed set of sort keys.
// Unknown values fall back to SortNone.
func ParseSortKey(s string) SortKey {
	switch SortKey(s) {
	case SortByStatus, SortByDayTime, SortByRestaurant:
		return SortKey(s)
	default:
		return SortNone
	}
}

// Service реализует логику бронирования: расчёт доступности, создание,
// изменение, отмену и подтверждение броней, а также автозавершение
// истёкших броней перед каждым чтением.
type Service struct {
	db     *database.DB
	logger *zerolog.Logger

	// now подменяется в тестах
	now func() time.Time
}

func NewService(db *database.DB, logger *zerolog.Logger) *Service {
	return &Service{
		db:     db,
		logger: logger,
		now:    time.Now,
	}
}

// FinishPassed переводит reserved-брони с истёкшим окном обслуживания в
// finished и возвращает число затронутых броней.
func (s *Service) FinishPassed(ctx context.Context) (int64, error) {
	return s.finishPassed(ctx)
}

// finishPassed переводит reserved-брони с истёкшим окном обслуживания в
// finished. Выполняется в начале каждой операции чтения списков.
func (s *Service) finishPassed(ctx context.Context) (int64, error) {
	cutoff := s.now().Add(-models.ReservationDuration)
	n, err := s.db.FinishElapsed(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to finish passed reservations: %w", err)
	}
	if n > 0 {
		metrics.AddReservationsFinished(n)
		s.logger.Info().Int64("count", n).Msg("finished passed reservations")
	}
	return n, nil
}

// ActualByClient возвращает активные (pending/reserved) брони клиента.
func (s *Service) ActualByClient(ctx context.Context, clientID int64) ([]*models.Reservation, error) {
	if _, err := s.finishPassed(ctx); err != nil {
		return nil, err
	}
	return s.db.GetReservationsByClientAndStatuses(ctx, clientID, models.ActualStatuses)
}

// HistoryByClient возвращает завершённые (canceled/finished) брони клиента.
func (s *Service) HistoryByClient(ctx context.Context, clientID int64) ([]*models.Reservation, error) {
	if _, err := s.finishPassed(ctx); err != nil {
		return nil, err
	}
	return s.db.GetReservationsByClientAndStatuses(ctx, clientID, models.HistoryStatuses)
}

// All возвращает брони для менеджера: без назначенного менеджера либо
// назначенные ему, отсортированные по ключу.
func (s *Service) All(ctx context.Context, managerID int64, key SortKey) ([]*models.ReservationDetails, error) {
	if _, err := s.finishPassed(ctx); err != nil {
		return nil, err
	}

	details, err := s.db.GetReservationDetails(ctx)
	if err != nil {
		return nil, err
	}

	filtered := details[:0]
	for _, d := range details {
		if d.ManagerID.Valid && d.ManagerID.Int64 != managerID {
			continue
		}
		filtered = append(filtered, d)
	}

	switch key {
	case SortByStatus:
		sort.SliceStable(filtered, func(i, j int) bool {
			return statusRank[filtered[i].Status] < statusRank[filtered[j].Status]
		})
	case SortByDayTime:
		sort.SliceStable(filtered, func(i, j int) bool { return filtered[i].DayTime.Before(filtered[j].DayTime) })
	case SortByRestaurant:
		sort.SliceStable(filtered, func(i, j int) bool {
			return filtered[i].RestaurantName.String < filtered[j].RestaurantName.String
		})
	case SortNone:
	}

	return filtered, nil
}

// Get возвращает бронь по id.
func (s *Service) Get(ctx context.Context, id int64) (*models.Reservation, error) {
	r, err := s.db.GetReservation(ctx, id)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			s.logger.Warn().Int64("reservation_id", id).Msg("reservation does not exist")
			return nil, fmt.Errorf("reservation %d: %w", id, ErrReservationNotFound)
		}
		return nil, err
	}
	return r, nil
}

// Reserve подбирает столик со свободным слотом на dayTime и создает
// бронь в статусе pending без назначенного менеджера.
func (s *Service) Reserve(ctx context.Context, restaurantID int64, dayTime time.Time, guests int, clientID int64) (*models.Reservation, error) {
	availability, err := s.availableTables(ctx, restaurantID, guests, 0)
	if err != nil {
		return nil, err
	}

	table, ok := findTable(availability, dayTime)
	if !ok {
		s.logger.Warn().
			Int64("restaurant_id", restaurantID).
			Time("day_time", dayTime).
			Int("guests", guests).
			Msg("reservation failed: no tables available")
		return nil, ErrNoAvailability
	}

	r, err := s.db.InsertReservation(ctx, table.ID, clientID, models.StatusPending, dayTime, guests)
	if err != nil {
		if errors.Is(err, database.ErrSlotTaken) {
			// Проиграли гонку за слот между расчётом и записью.
			s.logger.Warn().Int64("table_id", table.ID).Time("day_time", dayTime).Msg("slot taken concurrently")
			return nil, ErrNoAvailability
		}
		return nil, err
	}

	metrics.IncReservationsCreated()
	s.logger.Info().
		Int64("reservation_id", r.ID).
		Int64("table_id", table.ID).
		Time("day_time", dayTime).
		Int("guests", guests).
		Int64("client_id", clientID).
		Msg("table reserved")

	return r, nil
}

// Update перепроверяет изменённые время и число гостей по карте
// доступности (собственная бронь исключается из поиска конфликтов),
// сбрасывает статус в pending и сохраняет бронь. Отменённая или
// завершённая бронь правке не подлежит.
func (s *Service) Update(ctx context.Context, r *models.Reservation) error {
	current, err := s.Get(ctx, r.ID)
	if err != nil {
		return err
	}
	// Из терминального статуса переходов нет
	if current.Status.IsTerminal() {
		return ErrReservationClosed
	}
	if !r.TableID.Valid {
		return ErrNoAvailability
	}

	table, err := s.db.GetTable(ctx, r.TableID.Int64)
	if err != nil {
		return fmt.Errorf("failed to resolve reservation table: %w", err)
	}

	availability, err := s.availableTables(ctx, table.RestaurantID, r.Guests, r.ID)
	if err != nil {
		return err
	}

	if _, ok := findTable(availability, r.DayTime); !ok {
		s.logger.Warn().Int64("reservation_id", r.ID).Msg("reservation update failed: no tables available")
		return ErrNoAvailability
	}

	r.Status = models.StatusPending
	if err := s.db.UpdateReservation(ctx, r); err != nil {
		if errors.Is(err, database.ErrSlotTaken) {
			return ErrNoAvailability
		}
		return err
	}

	s.logger.Info().Int64("reservation_id", r.ID).Time("day_time", r.DayTime).Msg("reservation updated")
	return nil
}

// Cancel безусловно переводит бронь в canceled. Повторная отмена не ошибка.
func (s *Service) Cancel(ctx context.Context, id int64) error {
	if err := s.db.SetReservationStatus(ctx, id, models.StatusCanceled); err != nil {
		return err
	}
	metrics.IncReservationsCanceled()
	s.logger.Info().Int64("reservation_id", id).Msg("reservation canceled")
	return nil
}

// Submit подтверждает бронь: статус reserved, менеджер закрепляется.
func (s *Service) Submit(ctx context.Context, id, managerID int64) error {
	r, err := s.Get(ctx, id)
	if err != nil {
		return err
	}

	r.Status = models.StatusReserved
	r.ManagerID = sql.NullInt64{Int64: managerID, Valid: true}

	if err := s.db.UpdateReservation(ctx, r); err != nil {
		return err
	}

	s.logger.Info().Int64("reservation_id", id).Int64("manager_id", managerID).Msg("reservation submitted")
	return nil
}
