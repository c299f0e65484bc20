package upstream

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ErrNoWorkspace is returned by the standard request pipeline when a
// workspace-scoped call is made without a current workspace.
var ErrNoWorkspace = errors.New("no workspace selected")

// APIError is a non-2xx answer from the league API.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("upstream responded %d %s", e.Status, http.StatusText(e.Status))
	}
	return fmt.Sprintf("upstream responded %d: %s", e.Status, e.Message)
}

// UserMessage reduces err to one human readable line: the message the server
// supplied when there is one, otherwise fallback.
func UserMessage(err error, fallback string) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) && strings.TrimSpace(apiErr.Message) != "" {
		return apiErr.Message
	}
	return fallback
}

func decodeError(status int, body []byte) *APIError {
	apiErr := &APIError{Status: status}
	var payload struct {
		Message string          `json:"message"`
		Error   json.RawMessage `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return apiErr
	}
	if payload.Message != "" {
		apiErr.Message = payload.Message
		return apiErr
	}
	if len(payload.Error) == 0 {
		return apiErr
	}
	var text string
	if err := json.Unmarshal(payload.Error, &text); err == nil {
		apiErr.Message = text
		return apiErr
	}
	var nested struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(payload.Error, &nested); err == nil {
		apiErr.Message = nested.Message
	}
	return apiErr
}

// StatusCode reports the HTTP status the league API answered with.
func (e *APIError) StatusCode() int {
	return e.Status
}
