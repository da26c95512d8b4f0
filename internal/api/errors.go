package api

import (
	"errors"
	"fmt"
	"net/http"
)

// StatusError is a request rejected by the server. It carries the HTTP
// status so callers can tell "resource absent" from "request failed" and
// render an empty state instead of a generic failure.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("api: %d %s: %s", e.Code, http.StatusText(e.Code), e.Message)
	}
	return fmt.Sprintf("api: %d %s", e.Code, http.StatusText(e.Code))
}

// IsNotFound reports whether err is a 404 from the server.
func IsNotFound(err error) bool {
	var statusErr *StatusError
	return errors.As(err, &statusErr) && statusErr.Code == http.StatusNotFound
}

// UserMessage extracts the best user-facing message for a failed request:
// the structured server message when present, then the generic HTTP status
// text, then the supplied fallback.
func UserMessage(err error, fallback string) string {
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		if statusErr.Message != "" {
			return statusErr.Message
		}
		if text := http.StatusText(statusErr.Code); text != "" {
			return text
		}
	}
	return fallback
}
