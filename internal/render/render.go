// Package render writes JSON responses and maps the error taxonomy onto
// HTTP status codes at the route boundary.
package render

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"

	"github.com/ayush/guestbook/backend/internal/models"
)

// JSON writes v with the given status code.
func JSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// OK writes {"ok":true} merged with the extra fields.
func OK(w http.ResponseWriter, extra map[string]interface{}) {
	body := map[string]interface{}{"ok": true}
	for k, v := range extra {
		body[k] = v
	}
	JSON(w, http.StatusOK, body)
}

// Error writes {"error": ...} for err. Taxonomy errors carry their own
// message; anything else is logged under op and reported generically.
func Error(w http.ResponseWriter, op string, err error) {
	status := Status(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		log.Printf("%s: %v", op, err)
		msg = "internal error"
	}
	JSON(w, status, map[string]string{"error": msg})
}

// Status maps err onto an HTTP status code.
func Status(err error) int {
	switch {
	case errors.Is(err, models.ErrBadRequest):
		return http.StatusBadRequest
	case errors.Is(err, models.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, models.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, models.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, models.ErrPayloadTooLarge):
		return http.StatusRequestEntityTooLarge
	}
	return http.StatusInternalServerError
}

// DecodeJSON reads a JSON request body into v, capped at 1MiB.
func DecodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("%w: invalid request body", models.ErrBadRequest)
	}
	return nil
}

// ID parses a positive integer path or query value.
func ID(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: invalid id %q", models.ErrNotFound, raw)
	}
	return id, nil
}

// Limit parses the ?limit= query value. Missing or malformed values
// yield 0 so the service applies its default.
func Limit(r *http.Request) int {
	n, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || n < 0 {
		return 0
	}
	return n
}
