package reservation

import (
	"context"
	"testing"
	"time"

	"reserveit/internal/database"
	"reserveit/internal/models"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Среда, 2 сентября 2026, полдень. Все расчёты в тестах отталкиваются
// от этого момента.
var testNow = time.Date(2026, 9, 2, 12, 0, 0, 0, time.Local)

func newTestService(t *testing.T, seats ...int) (*Service, *database.DB, int64) {
	logger := zerolog.Nop()
	db, err := database.NewDB(":memory:", &logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	ctx := context.Background()

	r := &models.Restaurant{Name: "Testaurant", Address: "Main st. 1"}
	require.NoError(t, db.CreateRestaurant(ctx, r))

	for i, s := range seats {
		table := &models.RestaurantTable{RestaurantID: r.ID, Number: i + 1, Seats: s}
		require.NoError(t, db.CreateTable(ctx, table))
	}

	// Ресторан работает каждый день, чтобы трёхдневное окно всегда
	// было заполнено.
	for d := time.Sunday; d <= time.Saturday; d++ {
		wt := &models.WorkingTime{
			RestaurantID: r.ID,
			Weekday:      d,
			Open:         models.MustTimeOfDay("10:00"),
			Close:        models.MustTimeOfDay("22:00"),
		}
		require.NoError(t, db.UpsertWorkingTime(ctx, wt))
	}

	svc := NewService(db, &logger)
	svc.now = func() time.Time { return testNow }
	return svc, db, r.ID
}

func seedUser(t *testing.T, db *database.DB, email string, role models.Role) int64 {
	u := &models.User{Email: email, FirstName: "Test", Role: role}
	require.NoError(t, db.CreateOrUpdateUser(context.Background(), u))
	return u.ID
}

func TestGenerateSlots_InclusiveRange(t *testing.T) {
	open := models.MustTimeOfDay("12:00")
	end := models.MustTimeOfDay("20:00")

	slots := generateSlots(open, end)

	// Каждые 15 минут от 12:00 до 20:00 включительно
	assert.Len(t, slots, 33)
	assert.Equal(t, daySame, slots[open])
	assert.Equal(t, daySame, slots[end])
	_, beyond := slots[end.Add(models.SlotInterval)]
	assert.False(t, beyond)
}

func TestGenerateSlots_MorningBelongsToNextDay(t *testing.T) {
	slots := generateSlots(models.MustTimeOfDay("10:00"), models.MustTimeOfDay("20:00"))

	assert.Equal(t, dayNext, slots[models.MustTimeOfDay("10:00")])
	assert.Equal(t, dayNext, slots[models.MustTimeOfDay("11:45")])
	assert.Equal(t, daySame, slots[models.MustTimeOfDay("12:00")])
}

func TestGenerateSlots_OvernightWrap(t *testing.T) {
	// Бар: открыт в 22:00, последняя посадка в 02:00
	slots := generateSlots(models.MustTimeOfDay("22:00"), models.MustTimeOfDay("02:00"))

	assert.Len(t, slots, 17)
	assert.Equal(t, daySame, slots[models.MustTimeOfDay("23:45")])
	assert.Equal(t, dayNext, slots[models.MustTimeOfDay("00:00")])
	assert.Equal(t, dayNext, slots[models.MustTimeOfDay("02:00")])
}

func TestGenerateSlots_MisalignedEnd(t *testing.T) {
	// Закрытие в 21:50 даёт конец окна 19:50 вне 15-минутной сетки:
	// генерация останавливается на последнем слоте внутри окна.
	open := models.MustTimeOfDay("10:00")
	end := models.MustTimeOfDay("19:50")

	slots := generateSlots(open, end)

	assert.Len(t, slots, 40)
	for slot := range slots {
		assert.False(t, slot.Before(open) || slot.After(end),
			"slot %s outside working window", slot)
	}
	_, ok := slots[models.MustTimeOfDay("19:45")]
	assert.True(t, ok)
	_, ok = slots[models.MustTimeOfDay("20:00")]
	assert.False(t, ok)
}

func TestNearestDate(t *testing.T) {
	today := startOfDay(testNow) // среда

	assert.Equal(t, today, nearestDate(today, time.Wednesday))
	assert.Equal(t, today.AddDate(0, 0, 1), nearestDate(today, time.Thursday))
	assert.Equal(t, today.AddDate(0, 0, 6), nearestDate(today, time.Tuesday))
}

func TestRemoveConflicts_InclusiveWindow(t *testing.T) {
	day := startOfDay(testNow)
	at := func(h, m int) time.Time { return day.Add(time.Duration(h)*time.Hour + time.Duration(m)*time.Minute) }

	slots := []time.Time{at(17, 45), at(18, 0), at(19, 0), at(20, 0), at(20, 15)}

	kept := removeConflicts(slots, at(18, 0), at(20, 0), testNow)

	assert.Equal(t, []time.Time{at(17, 45), at(20, 15)}, kept)
}

func TestRemoveConflicts_DropsPast(t *testing.T) {
	slots := []time.Time{testNow.Add(-time.Hour), testNow.Add(time.Hour)}

	kept := removeConflicts(slots, testNow.Add(48*time.Hour), testNow.Add(50*time.Hour), testNow)

	assert.Equal(t, []time.Time{testNow.Add(time.Hour)}, kept)
}

func TestAvailableTables_FiltersByCapacity(t *testing.T) {
	svc, _, restaurantID := newTestService(t, 2, 4, 6)
	ctx := context.Background()

	availability, err := svc.AvailableTables(ctx, restaurantID, 5)
	require.NoError(t, err)

	require.Len(t, availability, 1)
	assert.Equal(t, 6, availability[0].Table.Seats)
	assert.NotEmpty(t, availability[0].Slots)
}

func TestAvailableTables_SlotsSortedAndFuture(t *testing.T) {
	svc, _, restaurantID := newTestService(t, 4)
	ctx := context.Background()

	availability, err := svc.AvailableTables(ctx, restaurantID, 2)
	require.NoError(t, err)
	require.Len(t, availability, 1)

	slots := availability[0].Slots
	require.NotEmpty(t, slots)
	for i, slot := range slots {
		assert.True(t, slot.After(testNow), "slot %v not in the future", slot)
		if i > 0 {
			assert.True(t, slots[i-1].Before(slot), "slots out of order at %d", i)
		}
	}
}

func TestAvailableTables_ReservationBlocksWindow(t *testing.T) {
	svc, _, restaurantID := newTestService(t, 4)
	ctx := context.Background()
	clientID := seedUser(t, svc.db, "client@example.com", models.RoleClient)

	tomorrow := startOfDay(testNow).AddDate(0, 0, 1)
	at := func(h, m int) time.Time { return tomorrow.Add(time.Duration(h)*time.Hour + time.Duration(m)*time.Minute) }

	_, err := svc.Reserve(ctx, restaurantID, at(18, 0), 2, clientID)
	require.NoError(t, err)

	availability, err := svc.AvailableTables(ctx, restaurantID, 2)
	require.NoError(t, err)
	require.Len(t, availability, 1)

	blocked := map[time.Time]bool{}
	for _, slot := range availability[0].Slots {
		blocked[slot] = true
	}

	// Занято само время и весь двухчасовой интервал обслуживания
	assert.False(t, blocked[at(18, 0)])
	assert.False(t, blocked[at(19, 0)])
	assert.False(t, blocked[at(20, 0)])
	// Время перед интервалом свободно
	assert.True(t, blocked[at(17, 45)])
}
