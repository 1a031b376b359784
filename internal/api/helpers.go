package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"reserveit/internal/reservation"
)

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func parseID(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", raw)
	}
	return id, nil
}

func parsePositiveInt(raw string) (int, error) {
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid value %q", raw)
	}
	return n, nil
}

func isNoAvailability(err error) bool {
	return errors.Is(err, reservation.ErrNoAvailability)
}

func isClosed(err error) bool {
	return errors.Is(err, reservation.ErrReservationClosed)
}

func isNotFound(err error) bool {
	return errors.Is(err, reservation.ErrReservationNotFound)
}
