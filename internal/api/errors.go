package api

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrNotFound is returned for 404 responses.
var ErrNotFound = errors.New("not found")

// APIError is a non-2xx response other than 404.
type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("stixly api status %d: %s", e.Status, e.Body)
}

// Message returns the "message" or "error" field of a JSON error body,
// or the raw body when it is not JSON.
func (e *APIError) Message() string {
	var body struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal([]byte(e.Body), &body); err == nil {
		if body.Message != "" {
			return body.Message
		}
		if body.Error != "" {
			return body.Error
		}
	}
	return e.Body
}

// Decode unmarshals the error body into v.
func (e *APIError) Decode(v any) error {
	return json.Unmarshal([]byte(e.Body), v)
}

// StatusOf returns the HTTP status carried by err: 404 for ErrNotFound,
// the APIError status, or 0.
func StatusOf(err error) int {
	if errors.Is(err, ErrNotFound) {
		return 404
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status
	}
	return 0
}
