package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"reserveit/internal/config"
	"reserveit/internal/database"
	"reserveit/internal/export"
	"reserveit/internal/models"
	"reserveit/internal/repository"
	"reserveit/internal/reservation"
	"reserveit/internal/tables"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testEnv struct {
	handler      http.Handler
	db           *database.DB
	restaurantID int64
	clientID     int64
	managerID    int64
}

func setupEnv(t *testing.T, cfg config.APIConfig, limiter repository.RateLimiter) *testEnv {
	logger := zerolog.Nop()
	db, err := database.NewDB(":memory:", &logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	ctx := context.Background()

	r := &models.Restaurant{Name: "Testaurant", Address: "Main st. 1"}
	require.NoError(t, db.CreateRestaurant(ctx, r))

	table := &models.RestaurantTable{RestaurantID: r.ID, Number: 1, Seats: 4}
	require.NoError(t, db.CreateTable(ctx, table))

	for d := time.Sunday; d <= time.Saturday; d++ {
		wt := &models.WorkingTime{
			RestaurantID: r.ID,
			Weekday:      d,
			Open:         models.MustTimeOfDay("10:00"),
			Close:        models.MustTimeOfDay("22:00"),
		}
		require.NoError(t, db.UpsertWorkingTime(ctx, wt))
	}

	client := &models.User{Email: "client@example.com", FirstName: "Ivan", Role: models.RoleClient}
	require.NoError(t, db.CreateOrUpdateUser(ctx, client))
	manager := &models.User{Email: "manager@example.com", FirstName: "Olga", Role: models.RoleManager}
	require.NoError(t, db.CreateOrUpdateUser(ctx, manager))

	if limiter == nil {
		limiter = repository.NewMemoryRateLimiter()
	}

	reservationSvc := reservation.NewService(db, &logger)
	tableSvc := tables.NewService(db, &logger)
	exporter := export.NewExporter(db, t.TempDir(), &logger)

	srv := NewHTTPServer(cfg, reservationSvc, tableSvc, exporter, limiter, &logger)

	return &testEnv{
		handler:      srv.Handler(),
		db:           db,
		restaurantID: r.ID,
		clientID:     client.ID,
		managerID:    manager.ID,
	}
}

// tomorrowEvening: завтра всегда в трёхдневном окне доступности и
// всегда в будущем.
func tomorrowEvening() time.Time {
	now := time.Now()
	tomorrow := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.Local).AddDate(0, 0, 1)
	return tomorrow.Add(18 * time.Hour)
}

func (e *testEnv) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) reserve(t *testing.T, dayTime time.Time) models.Reservation {
	rec := e.do(t, http.MethodPost, "/api/v1/reservations", map[string]any{
		"restaurant_id": e.restaurantID,
		"client_id":     e.clientID,
		"day_time":      dayTime,
		"guests":        2,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var r models.Reservation
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &r))
	return r
}

func openConfig() config.APIConfig {
	return config.APIConfig{Enabled: true, HTTP: config.APIHTTPConfig{Port: 0}}
}

func TestAvailabilityEndpoint(t *testing.T) {
	env := setupEnv(t, openConfig(), nil)

	rec := env.do(t, http.MethodGet,
		fmt.Sprintf("/api/v1/restaurants/%d/availability?guests=2", env.restaurantID), nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp struct {
		Availability []models.TableAvailability `json:"availability"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Availability, 1)
	assert.NotEmpty(t, resp.Availability[0].Slots)
}

func TestAvailabilityEndpoint_BadGuests(t *testing.T) {
	env := setupEnv(t, openConfig(), nil)

	rec := env.do(t, http.MethodGet,
		fmt.Sprintf("/api/v1/restaurants/%d/availability?guests=abc", env.restaurantID), nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestReserveEndpoint(t *testing.T) {
	env := setupEnv(t, openConfig(), nil)

	r := env.reserve(t, tomorrowEvening())

	assert.Equal(t, models.StatusPending, r.Status)
	assert.True(t, r.TableID.Valid)
}

func TestReserveEndpoint_Conflict(t *testing.T) {
	env := setupEnv(t, openConfig(), nil)

	env.reserve(t, tomorrowEvening())

	// Второй запрос на перекрывающееся время на единственный столик
	rec := env.do(t, http.MethodPost, "/api/v1/reservations", map[string]any{
		"restaurant_id": env.restaurantID,
		"client_id":     env.clientID,
		"day_time":      tomorrowEvening().Add(time.Hour),
		"guests":        2,
	})
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestGetReservationEndpoint(t *testing.T) {
	env := setupEnv(t, openConfig(), nil)

	created := env.reserve(t, tomorrowEvening())

	rec := env.do(t, http.MethodGet, fmt.Sprintf("/api/v1/reservations/%d", created.ID), nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var got models.Reservation
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, created.ID, got.ID)
}

func TestGetReservationEndpoint_NotFound(t *testing.T) {
	env := setupEnv(t, openConfig(), nil)

	rec := env.do(t, http.MethodGet, "/api/v1/reservations/99", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUpdateEndpoint(t *testing.T) {
	env := setupEnv(t, openConfig(), nil)

	created := env.reserve(t, tomorrowEvening())
	newTime := tomorrowEvening().Add(-4 * time.Hour) // 14:00

	rec := env.do(t, http.MethodPut, fmt.Sprintf("/api/v1/reservations/%d", created.ID), map[string]any{
		"day_time": newTime,
		"guests":   3,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var got models.Reservation
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, 3, got.Guests)
	assert.True(t, newTime.Equal(got.DayTime))
}

func TestCancelEndpoint_Idempotent(t *testing.T) {
	env := setupEnv(t, openConfig(), nil)

	created := env.reserve(t, tomorrowEvening())
	path := fmt.Sprintf("/api/v1/reservations/%d/cancel", created.ID)

	rec := env.do(t, http.MethodPost, path, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	rec = env.do(t, http.MethodPost, path, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestUpdateEndpoint_CanceledConflict(t *testing.T) {
	env := setupEnv(t, openConfig(), nil)

	created := env.reserve(t, tomorrowEvening())
	rec := env.do(t, http.MethodPost, fmt.Sprintf("/api/v1/reservations/%d/cancel", created.ID), nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodPut, fmt.Sprintf("/api/v1/reservations/%d", created.ID),
		map[string]any{"day_time": tomorrowEvening().Add(-4 * time.Hour), "guests": 2})
	assert.Equal(t, http.StatusConflict, rec.Code, rec.Body.String())
}

func TestSubmitEndpoint(t *testing.T) {
	env := setupEnv(t, openConfig(), nil)

	created := env.reserve(t, tomorrowEvening())

	rec := env.do(t, http.MethodPost, fmt.Sprintf("/api/v1/reservations/%d/submit", created.ID),
		map[string]any{"manager_id": env.managerID})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	get := env.do(t, http.MethodGet, fmt.Sprintf("/api/v1/reservations/%d", created.ID), nil)
	var got models.Reservation
	require.NoError(t, json.Unmarshal(get.Body.Bytes(), &got))
	assert.Equal(t, models.StatusReserved, got.Status)
	assert.Equal(t, env.managerID, got.ManagerID.Int64)
}

func TestClientReservationsEndpoint(t *testing.T) {
	env := setupEnv(t, openConfig(), nil)

	created := env.reserve(t, tomorrowEvening())
	canceled := env.reserve(t, tomorrowEvening().Add(-4*time.Hour))
	env.do(t, http.MethodPost, fmt.Sprintf("/api/v1/reservations/%d/cancel", canceled.ID), nil)

	var resp struct {
		Reservations []models.Reservation `json:"reservations"`
	}

	rec := env.do(t, http.MethodGet, fmt.Sprintf("/api/v1/clients/%d/reservations?scope=actual", env.clientID), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Reservations, 1)
	assert.Equal(t, created.ID, resp.Reservations[0].ID)

	rec = env.do(t, http.MethodGet, fmt.Sprintf("/api/v1/clients/%d/reservations?scope=history", env.clientID), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Reservations, 1)
	assert.Equal(t, canceled.ID, resp.Reservations[0].ID)
}

func TestManagerListEndpoint(t *testing.T) {
	env := setupEnv(t, openConfig(), nil)

	env.reserve(t, tomorrowEvening())

	rec := env.do(t, http.MethodGet,
		fmt.Sprintf("/api/v1/reservations?manager_id=%d&sort=dayTime", env.managerID), nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Reservations []models.ReservationDetails `json:"reservations"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Reservations, 1)
	assert.Equal(t, "client@example.com", resp.Reservations[0].ClientEmail)
}

func TestAuth(t *testing.T) {
	cfg := openConfig()
	cfg.Auth = config.APIAuthConfig{
		Enabled:      true,
		HeaderAPIKey: "x-api-key",
		APIKeys: []config.APIClientKey{
			{Key: "full-access", Name: "admin"},
			{Key: "read-only", Name: "viewer", Permissions: []string{"read:reservations"}},
		},
	}
	env := setupEnv(t, cfg, nil)

	t.Run("missing key", func(t *testing.T) {
		rec := env.do(t, http.MethodGet, "/api/v1/reservations?manager_id=1", nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("wrong permission", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/reservations", bytes.NewBufferString("{}"))
		req.Header.Set("x-api-key", "read-only")
		rec := httptest.NewRecorder()
		env.handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("allowed", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet,
			fmt.Sprintf("/api/v1/reservations?manager_id=%d", env.managerID), nil)
		req.Header.Set("x-api-key", "read-only")
		rec := httptest.NewRecorder()
		env.handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
	})
}

// denyAllLimiter отклоняет любой запрос на бронирование.
type denyAllLimiter struct{}

func (denyAllLimiter) Allow(context.Context, int64, int, time.Duration) (bool, error) {
	return false, nil
}

func TestReserveEndpoint_ClientRateLimited(t *testing.T) {
	env := setupEnv(t, openConfig(), denyAllLimiter{})

	rec := env.do(t, http.MethodPost, "/api/v1/reservations", map[string]any{
		"restaurant_id": env.restaurantID,
		"client_id":     env.clientID,
		"day_time":      tomorrowEvening(),
		"guests":        2,
	})
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}

func TestTablesEndpoints(t *testing.T) {
	env := setupEnv(t, openConfig(), nil)

	// Новый столик получает следующий свободный номер (1 уже занят сидом)
	rec := env.do(t, http.MethodPost,
		fmt.Sprintf("/api/v1/restaurants/%d/tables", env.restaurantID),
		map[string]any{"seats": 6})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var created models.RestaurantTable
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.Equal(t, 2, created.Number)

	rec = env.do(t, http.MethodGet,
		fmt.Sprintf("/api/v1/restaurants/%d/tables", env.restaurantID), nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Tables []models.RestaurantTable `json:"tables"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Len(t, resp.Tables, 2)

	rec = env.do(t, http.MethodDelete,
		fmt.Sprintf("/api/v1/restaurants/%d/tables/%d", env.restaurantID, created.ID), nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestDeleteTableEndpoint_ActiveReservation(t *testing.T) {
	env := setupEnv(t, openConfig(), nil)

	created := env.reserve(t, tomorrowEvening())

	rec := env.do(t, http.MethodDelete,
		fmt.Sprintf("/api/v1/restaurants/%d/tables/%d", env.restaurantID, created.TableID.Int64), nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestWorkingHoursEndpoint(t *testing.T) {
	env := setupEnv(t, openConfig(), nil)

	rec := env.do(t, http.MethodPut,
		fmt.Sprintf("/api/v1/restaurants/%d/working-hours", env.restaurantID),
		map[string]any{"weekday": 1, "open": "11:00", "close": "23:00"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var wt models.WorkingTime
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &wt))
	assert.Equal(t, "11:00", wt.Open.String())
}
