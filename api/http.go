package api

import (
	"fmt"
	"net/http"

	"github.com/flanksource/commons/logger"
	"github.com/labstack/echo/v4"
)

type HTTPError struct {
	Err     string `json:"error"`
	Message string `json:"message,omitempty"`
}

// Error implements the error interface. Not used by the application otherwise.
func (e *HTTPError) Error() string {
	return fmt.Sprintf("error=%s message=%s", e.Err, e.Message)
}

// HTTPStatus is the acknowledgement body returned by operations without a payload.
type HTTPStatus struct {
	Status string `json:"status"`
}

func WriteStatus(c echo.Context, status string) error {
	return c.JSON(http.StatusOK, HTTPStatus{Status: status})
}

// WriteError renders err as an HTTPError, mapping its code to a status code.
// Internal details are logged and never sent to the client.
func WriteError(c echo.Context, err error) error {
	code, message := ErrorCode(err), ErrorMessage(err)

	if debugInfo := ErrorDebugInfo(err); debugInfo != "" {
		logger.WithValues("code", code, "path", c.Path()).Errorf("%s", debugInfo)
	}

	return c.JSON(ErrorStatusCode(code), &HTTPError{Err: code, Message: message})
}

// ErrorStatusCode returns the associated HTTP status code for an application error code.
func ErrorStatusCode(code string) int {
	// lookup of application error codes to HTTP status codes.
	var codes = map[string]int{
		EMISSINGFIELD:    http.StatusBadRequest,
		EINVALID:         http.StatusBadRequest,
		EREFERENCE:       http.StatusBadRequest,
		EDUPLICATE:       http.StatusBadRequest,
		ENOTFOUND:        http.StatusNotFound,
		EUNAUTHORIZED:    http.StatusForbidden,
		EFORBIDDEN:       http.StatusForbidden,
		EUNAUTHENTICATED: http.StatusUnauthorized,
		EUNAVAILABLE:     http.StatusServiceUnavailable,
		EINTERNAL:        http.StatusInternalServerError,
	}

	if v, ok := codes[code]; ok {
		return v
	}

	return http.StatusInternalServerError
}
