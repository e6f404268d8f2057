package backend

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// APIError is a non-2xx response from the savings backend.
type APIError struct {
	StatusCode int
	Detail     string
	Body       string
}

func (e *APIError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("backend returned %d: %s", e.StatusCode, e.Detail)
	}
	return fmt.Sprintf("backend returned %d", e.StatusCode)
}

// UserDetail is the message the backend intends for the user, if any.
func (e *APIError) UserDetail() string { return e.Detail }

// NotFound reports whether the backend answered 404.
func (e *APIError) NotFound() bool { return e.StatusCode == http.StatusNotFound }

type errorBody struct {
	Detail json.RawMessage `json:"detail"`
}

// newAPIError decodes the backend's {"detail": ...} envelope. Only string
// details are surfaced; validation arrays and other shapes are kept in Body.
func newAPIError(status int, body []byte) *APIError {
	apiErr := &APIError{StatusCode: status, Body: string(body)}
	var envelope errorBody
	if err := json.Unmarshal(body, &envelope); err != nil || len(envelope.Detail) == 0 {
		return apiErr
	}
	var detail string
	if err := json.Unmarshal(envelope.Detail, &detail); err == nil {
		apiErr.Detail = detail
	}
	return apiErr
}
