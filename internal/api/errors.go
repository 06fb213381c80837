package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/internlink/backend/internal/gamification"
)

type errorBody struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

type errorEnvelope struct {
	Error errorBody `json:"error"`
}

// apiError pairs an error with the HTTP status and code it is reported as.
type apiError struct {
	Status int
	Code   string
	Err    error
}

func (e *apiError) Error() string { return e.Err.Error() }
func (e *apiError) Unwrap() error { return e.Err }

func classify(err error) *apiError {
	var ae *apiError
	switch {
	case errors.As(err, &ae):
		return ae
	case errors.Is(err, gamification.ErrUnknownCourse):
		return &apiError{Status: http.StatusNotFound, Code: "not_found", Err: err}
	case gamification.IsValidation(err):
		return &apiError{Status: http.StatusBadRequest, Code: "validation_error", Err: err}
	case gamification.IsPersistence(err):
		return &apiError{Status: http.StatusServiceUnavailable, Code: "persistence_error", Err: err}
	default:
		return &apiError{Status: http.StatusInternalServerError, Code: "internal_error", Err: err}
	}
}

func badRequest(err error) *apiError {
	return &apiError{Status: http.StatusBadRequest, Code: "validation_error", Err: err}
}

func respondError(c *gin.Context, err error) {
	ae := classify(err)
	msg := ae.Err.Error()
	if ae.Status >= http.StatusInternalServerError {
		_ = c.Error(err)
		// Storage details stay in the logs.
		msg = http.StatusText(ae.Status)
	}
	c.AbortWithStatusJSON(ae.Status, errorEnvelope{Error: errorBody{Message: msg, Code: ae.Code}})
}
