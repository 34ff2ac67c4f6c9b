package apierr

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/mcoot/hostguard/internal/model"
)

// APIError represents an API error response
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ErrorResponse wraps an APIError
type ErrorResponse struct {
	Error APIError `json:"error"`
}

// Common error codes
const (
	CodeInvalidRequest      = "INVALID_REQUEST"
	CodeInvalidIdentity     = "INVALID_IDENTITY"
	CodeUnauthorized        = "UNAUTHORIZED"
	CodeAuthorityTarget     = "AUTHORITY_TARGET"
	CodeNotAuthority        = "NOT_AUTHORITY"
	CodeParticipantNotFound = "PARTICIPANT_NOT_FOUND"
	CodeAlreadyBanned       = "ALREADY_BANNED"
	CodeNotBanned           = "NOT_BANNED"
	CodeNoSession           = "NO_SESSION"
	CodeSessionExists       = "SESSION_EXISTS"
	CodeAlreadyInSession    = "ALREADY_IN_SESSION"
	CodeNotInSession        = "NOT_IN_SESSION"
	CodeMatchInProgress     = "MATCH_IN_PROGRESS"
	CodeNoMatchInProgress   = "NO_MATCH_IN_PROGRESS"
	CodeEngineStopped       = "ENGINE_STOPPED"
	CodeInternalError       = "INTERNAL_ERROR"
)

// httpError combines an HTTP status code with an APIError
type httpError struct {
	status   int
	apiError APIError
}

// Error implements error interface
func (e *httpError) Error() string {
	return e.apiError.Message
}

// WriteError writes an error response to the response writer
func WriteError(w http.ResponseWriter, err error) {
	he := toHTTPError(err)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(he.status)
	_ = json.NewEncoder(w).Encode(ErrorResponse{Error: he.apiError})
}

// Status returns the HTTP status code err maps to
func Status(err error) int {
	return toHTTPError(err).status
}

// toHTTPError converts an error to an httpError
func toHTTPError(err error) *httpError {
	var he *httpError
	if errors.As(err, &he) {
		return he
	}

	switch {
	case errors.Is(err, model.ErrInvalidIdentity):
		return &httpError{http.StatusBadRequest, APIError{CodeInvalidIdentity, "Identity must not be empty"}}
	case errors.Is(err, model.ErrAuthorityTarget):
		return &httpError{http.StatusForbidden, APIError{CodeAuthorityTarget, "The session authority cannot be targeted"}}
	case errors.Is(err, model.ErrNotAuthority):
		return &httpError{http.StatusConflict, APIError{CodeNotAuthority, "Only the session authority can perform this action"}}
	case errors.Is(err, model.ErrParticipantNotFound):
		return &httpError{http.StatusNotFound, APIError{CodeParticipantNotFound, "Participant not found"}}
	case errors.Is(err, model.ErrAlreadyBanned):
		return &httpError{http.StatusConflict, APIError{CodeAlreadyBanned, "Identity is already banned"}}
	case errors.Is(err, model.ErrNotBanned):
		return &httpError{http.StatusNotFound, APIError{CodeNotBanned, "Identity is not banned"}}
	case errors.Is(err, model.ErrNoSession):
		return &httpError{http.StatusConflict, APIError{CodeNoSession, "No session is open"}}
	case errors.Is(err, model.ErrSessionExists):
		return &httpError{http.StatusConflict, APIError{CodeSessionExists, "A session is already open"}}
	case errors.Is(err, model.ErrAlreadyInSession):
		return &httpError{http.StatusConflict, APIError{CodeAlreadyInSession, "Participant is already in the session"}}
	case errors.Is(err, model.ErrNotInSession):
		return &httpError{http.StatusNotFound, APIError{CodeNotInSession, "Participant is not in the session"}}
	case errors.Is(err, model.ErrMatchInProgress):
		return &httpError{http.StatusConflict, APIError{CodeMatchInProgress, "Match is in progress"}}
	case errors.Is(err, model.ErrNoMatchInProgress):
		return &httpError{http.StatusConflict, APIError{CodeNoMatchInProgress, "No match in progress"}}
	case errors.Is(err, model.ErrEngineStopped):
		return &httpError{http.StatusServiceUnavailable, APIError{CodeEngineStopped, "Engine is not running"}}

	default:
		return &httpError{http.StatusInternalServerError, APIError{CodeInternalError, "Internal server error"}}
	}
}

// NewInvalidRequestError creates an invalid request error
func NewInvalidRequestError(message string) error {
	return &httpError{http.StatusBadRequest, APIError{CodeInvalidRequest, message}}
}

// NewUnauthorizedError creates an unauthorized error
func NewUnauthorizedError() error {
	return &httpError{http.StatusUnauthorized, APIError{CodeUnauthorized, "Authentication required"}}
}

// NewInternalError creates an internal server error
func NewInternalError() error {
	return &httpError{http.StatusInternalServerError, APIError{CodeInternalError, "Internal server error"}}
}
