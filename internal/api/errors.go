package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// ErrUnauthorized marks a missing or expired credential. Callers treat it as
// a signal to re-enter authentication rather than a generic failure.
var ErrUnauthorized = errors.New("unauthorized")

// ErrDuplicateReview marks a second review submission for the same rental.
// It gets its own user-facing message, distinct from generic failure.
var ErrDuplicateReview = errors.New("review already submitted for this rental")

// Error is a non-2xx response from the backend.
type Error struct {
	Status  int
	Message string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api: unexpected status %d", e.Status)
	}
	return fmt.Sprintf("api: %s (status %d)", e.Message, e.Status)
}

// responseError converts a non-2xx response into an error. The backend is
// inconsistent about error bodies: some endpoints return a JSON object with a
// "message" field, others plain text. Both are handled.
func responseError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

	msg := strings.TrimSpace(string(body))
	var payload struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && payload.Message != "" {
		msg = payload.Message
	}

	if resp.StatusCode == http.StatusUnauthorized {
		if msg == "" {
			return ErrUnauthorized
		}
		return fmt.Errorf("%w: %s", ErrUnauthorized, msg)
	}
	return &Error{Status: resp.StatusCode, Message: msg}
}
