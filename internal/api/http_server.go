package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"reserveit/internal/config"
	"reserveit/internal/export"
	"reserveit/internal/models"
	"reserveit/internal/repository"
	"reserveit/internal/reservation"
	"reserveit/internal/tables"

	"github.com/rs/zerolog"
)

// HTTPServer exposes the reservation engine over a lightweight HTTP API.
type HTTPServer struct {
	cfg           config.APIConfig
	reservations  *reservation.Service
	tables        *tables.Service
	exporter      *export.Exporter
	clientLimiter repository.RateLimiter
	logger        *zerolog.Logger
	server        *http.Server
	auth          *HTTPAuth
}

func NewHTTPServer(
	cfg config.APIConfig,
	reservations *reservation.Service,
	tableSvc *tables.Service,
	exporter *export.Exporter,
	clientLimiter repository.RateLimiter,
	logger *zerolog.Logger,
) *HTTPServer {
	mux := http.NewServeMux()
	srv := &HTTPServer{
		cfg:           cfg,
		reservations:  reservations,
		tables:        tableSvc,
		exporter:      exporter,
		clientLimiter: clientLimiter,
		logger:        logger,
	}
	srv.auth = NewHTTPAuth(cfg)

	mux.HandleFunc("/api/v1/restaurants/", srv.handleRestaurantSubresources)
	mux.HandleFunc("/api/v1/reservations", srv.handleReservations)
	mux.HandleFunc("/api/v1/reservations/", srv.handleReservationByID)
	mux.HandleFunc("/api/v1/clients/", srv.handleClientReservations)

	handler := loggingMiddleware(logger, srv.auth.Wrap(mux))

	srv.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      15 * time.Second,
	}

	return srv
}

// Handler returns the root handler, used directly in tests.
func (s *HTTPServer) Handler() http.Handler {
	return s.server.Handler
}

func (s *HTTPServer) Start() error {
	s.logger.Info().Str("addr", s.server.Addr).Msg("HTTP API listening")
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *HTTPServer) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// /api/v1/restaurants/{id}/availability, .../tables[/{tableID}], .../working-hours
func (s *HTTPServer) handleRestaurantSubresources(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/v1/restaurants/")
	parts := strings.Split(rest, "/")
	if len(parts) < 2 {
		writeError(w, http.StatusNotFound, "not found")
		return
	}

	restaurantID, err := parseID(parts[0])
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid restaurant id")
		return
	}

	switch {
	case len(parts) == 2 && parts[1] == "availability":
		s.handleAvailability(w, r, restaurantID)
	case len(parts) == 2 && parts[1] == "tables":
		s.handleTables(w, r, restaurantID)
	case len(parts) == 3 && parts[1] == "tables":
		s.handleTableByID(w, r, parts[2])
	case len(parts) == 2 && parts[1] == "working-hours":
		s.handleWorkingHours(w, r, restaurantID)
	default:
		writeError(w, http.StatusNotFound, "not found")
	}
}

// GET /api/v1/restaurants/{id}/availability?guests=N
func (s *HTTPServer) handleAvailability(w http.ResponseWriter, r *http.Request, restaurantID int64) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	guests, err := parsePositiveInt(r.URL.Query().Get("guests"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "guests must be a positive integer")
		return
	}

	availability, err := s.reservations.AvailableTables(r.Context(), restaurantID, guests)
	if err != nil {
		s.logger.Error().Err(err).Msg("availability computation failed")
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"availability": availability})
}

// GET lists tables, POST creates one with the next free number.
func (s *HTTPServer) handleTables(w http.ResponseWriter, r *http.Request, restaurantID int64) {
	switch r.Method {
	case http.MethodGet:
		list, err := s.tables.List(r.Context(), restaurantID)
		if err != nil {
			s.logger.Error().Err(err).Msg("table listing failed")
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"tables": list})
	case http.MethodPost:
		var req struct {
			Seats int `json:"seats"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Seats <= 0 {
			writeError(w, http.StatusBadRequest, "seats must be a positive integer")
			return
		}
		table := &models.RestaurantTable{RestaurantID: restaurantID, Seats: req.Seats}
		if err := s.tables.Create(r.Context(), table); err != nil {
			s.logger.Error().Err(err).Msg("table creation failed")
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		writeJSON(w, http.StatusCreated, table)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

// DELETE /api/v1/restaurants/{id}/tables/{tableID}
func (s *HTTPServer) handleTableByID(w http.ResponseWriter, r *http.Request, rawID string) {
	if r.Method != http.MethodDelete {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	tableID, err := parseID(rawID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid table id")
		return
	}

	deleted, err := s.tables.Delete(r.Context(), tableID)
	if err != nil {
		s.logger.Error().Err(err).Msg("table deletion failed")
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if !deleted {
		writeError(w, http.StatusConflict, "table has active reservations")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"deleted": true})
}

// PUT /api/v1/restaurants/{id}/working-hours {weekday, open, close}
func (s *HTTPServer) handleWorkingHours(w http.ResponseWriter, r *http.Request, restaurantID int64) {
	if r.Method != http.MethodPut {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req struct {
		Weekday int    `json:"weekday"`
		Open    string `json:"open"`
		Close   string `json:"close"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Weekday < 0 || req.Weekday > 6 {
		writeError(w, http.StatusBadRequest, "weekday, open and close are required")
		return
	}

	open, err := models.ParseTimeOfDay(req.Open)
	if err != nil {
		writeError(w, http.StatusBadRequest, "open must be HH:MM")
		return
	}
	closeAt, err := models.ParseTimeOfDay(req.Close)
	if err != nil {
		writeError(w, http.StatusBadRequest, "close must be HH:MM")
		return
	}

	wt, err := s.tables.WorkingHours(r.Context(), restaurantID, time.Weekday(req.Weekday), open, closeAt)
	if err != nil {
		s.logger.Error().Err(err).Msg("working hours update failed")
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, wt)
}

type reserveRequest struct {
	RestaurantID int64     `json:"restaurant_id"`
	ClientID     int64     `json:"client_id"`
	DayTime      time.Time `json:"day_time"`
	Guests       int       `json:"guests"`
}

// POST /api/v1/reservations — create; GET — manager listing.
func (s *HTTPServer) handleReservations(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		s.handleReserve(w, r)
	case http.MethodGet:
		s.handleManagerList(w, r)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *HTTPServer) handleReserve(w http.ResponseWriter, r *http.Request) {
	var req reserveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.RestaurantID <= 0 || req.ClientID <= 0 || req.Guests <= 0 || req.DayTime.IsZero() {
		writeError(w, http.StatusBadRequest, "restaurant_id, client_id, day_time and guests are required")
		return
	}

	allowed, err := s.clientLimiter.Allow(r.Context(), req.ClientID, models.RateLimitRequests, models.RateLimitWindow*time.Second)
	if err != nil {
		s.logger.Error().Err(err).Msg("client rate limit check failed")
	} else if !allowed {
		writeError(w, http.StatusTooManyRequests, "too many booking requests")
		return
	}

	created, err := s.reservations.Reserve(r.Context(), req.RestaurantID, req.DayTime, req.Guests, req.ClientID)
	if err != nil {
		s.writeReservationError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, created)
}

// GET /api/v1/reservations?manager_id=N&sort=status|dayTime|restaurant
func (s *HTTPServer) handleManagerList(w http.ResponseWriter, r *http.Request) {
	managerID, err := parseID(r.URL.Query().Get("manager_id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "manager_id is required")
		return
	}

	key := reservation.ParseSortKey(r.URL.Query().Get("sort"))
	details, err := s.reservations.All(r.Context(), managerID, key)
	if err != nil {
		s.logger.Error().Err(err).Msg("manager listing failed")
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"reservations": details})
}

type updateRequest struct {
	DayTime time.Time `json:"day_time"`
	Guests  int       `json:"guests"`
}

type submitRequest struct {
	ManagerID int64 `json:"manager_id"`
}

// /api/v1/reservations/{id}[/cancel|/submit] and /api/v1/reservations/export
func (s *HTTPServer) handleReservationByID(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/v1/reservations/")

	if rest == "export" {
		s.handleExport(w, r)
		return
	}

	parts := strings.Split(rest, "/")
	id, err := parseID(parts[0])
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid reservation id")
		return
	}

	switch {
	case len(parts) == 1 && r.Method == http.MethodGet:
		s.handleGet(w, r, id)
	case len(parts) == 1 && r.Method == http.MethodPut:
		s.handleUpdate(w, r, id)
	case len(parts) == 2 && parts[1] == "cancel" && r.Method == http.MethodPost:
		s.handleCancel(w, r, id)
	case len(parts) == 2 && parts[1] == "submit" && r.Method == http.MethodPost:
		s.handleSubmit(w, r, id)
	default:
		writeError(w, http.StatusNotFound, "not found")
	}
}

func (s *HTTPServer) handleGet(w http.ResponseWriter, r *http.Request, id int64) {
	res, err := s.reservations.Get(r.Context(), id)
	if err != nil {
		s.writeReservationError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *HTTPServer) handleUpdate(w http.ResponseWriter, r *http.Request, id int64) {
	var req updateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Guests <= 0 || req.DayTime.IsZero() {
		writeError(w, http.StatusBadRequest, "day_time and guests are required")
		return
	}

	res, err := s.reservations.Get(r.Context(), id)
	if err != nil {
		s.writeReservationError(w, err)
		return
	}

	res.DayTime = req.DayTime
	res.Guests = req.Guests

	if err := s.reservations.Update(r.Context(), res); err != nil {
		s.writeReservationError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *HTTPServer) handleCancel(w http.ResponseWriter, r *http.Request, id int64) {
	if err := s.reservations.Cancel(r.Context(), id); err != nil {
		s.writeReservationError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": string(models.StatusCanceled)})
}

func (s *HTTPServer) handleSubmit(w http.ResponseWriter, r *http.Request, id int64) {
	var req submitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ManagerID <= 0 {
		writeError(w, http.StatusBadRequest, "manager_id is required")
		return
	}

	if err := s.reservations.Submit(r.Context(), id, req.ManagerID); err != nil {
		s.writeReservationError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": string(models.StatusReserved)})
}

// GET /api/v1/clients/{id}/reservations?scope=actual|history
func (s *HTTPServer) handleClientReservations(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/v1/clients/")
	parts := strings.Split(rest, "/")
	if len(parts) != 2 || parts[1] != "reservations" {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	clientID, err := parseID(parts[0])
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid client id")
		return
	}

	var list []*models.Reservation
	switch r.URL.Query().Get("scope") {
	case "history":
		list, err = s.reservations.HistoryByClient(r.Context(), clientID)
	case "actual", "":
		list, err = s.reservations.ActualByClient(r.Context(), clientID)
	default:
		writeError(w, http.StatusBadRequest, "scope must be actual or history")
		return
	}
	if err != nil {
		s.logger.Error().Err(err).Msg("client listing failed")
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"reservations": list})
}

// GET /api/v1/reservations/export?from=YYYY-MM-DD&to=YYYY-MM-DD
func (s *HTTPServer) handleExport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	from, err := time.ParseInLocation("2006-01-02", r.URL.Query().Get("from"), time.Local)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid from date; expected YYYY-MM-DD")
		return
	}
	to, err := time.ParseInLocation("2006-01-02", r.URL.Query().Get("to"), time.Local)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid to date; expected YYYY-MM-DD")
		return
	}
	// Включаем весь последний день диапазона
	to = to.AddDate(0, 0, 1).Add(-time.Second)

	path, err := s.exporter.ReservationsReport(r.Context(), from, to)
	if err != nil {
		s.logger.Error().Err(err).Msg("export failed")
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	w.Header().Set("Content-Disposition", "attachment; filename="+filepath.Base(path))
	http.ServeFile(w, r, path)
}

func (s *HTTPServer) writeReservationError(w http.ResponseWriter, err error) {
	switch {
	case isNoAvailability(err):
		writeError(w, http.StatusConflict, "no table available at the requested time")
	case isClosed(err):
		writeError(w, http.StatusConflict, "reservation is already closed")
	case isNotFound(err):
		writeError(w, http.StatusNotFound, "reservation not found")
	default:
		s.logger.Error().Err(err).Msg("reservation operation failed")
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
