package platform

import (
	"net/http"

	"github.com/classline/classline/internal/common/apperrors"
)

var (
	// ErrPlatform is the base error for all platform API errors.
	ErrPlatform apperrors.Error = apperrors.New("platform request failed").SetStatusCode(http.StatusInternalServerError)

	// ErrInvalidInput is returned when join input fails validation, either
	// client-side or as a 400 from the server.
	ErrInvalidInput apperrors.Error = ErrPlatform.New("invalid input").SetStatusCode(http.StatusBadRequest)

	// ErrRequiresPin is returned when the student name is already enrolled
	// and the server demands the rejoin PIN.
	ErrRequiresPin apperrors.Error = ErrPlatform.New("rejoin PIN required").SetStatusCode(http.StatusConflict)

	// ErrWrongPin is returned when the provided rejoin PIN does not match.
	ErrWrongPin apperrors.Error = ErrPlatform.New("rejoin PIN is incorrect").SetStatusCode(http.StatusUnauthorized)

	// ErrSessionFull is returned when the run has reached its enrollment cap.
	ErrSessionFull apperrors.Error = ErrPlatform.New("session is full").SetStatusCode(http.StatusForbidden)

	// ErrInvalidCode is returned when no live run matches the join code.
	ErrInvalidCode apperrors.Error = ErrPlatform.New("join code is not valid").SetStatusCode(http.StatusNotFound)

	// ErrSessionEnded is returned when the run has ended.
	ErrSessionEnded apperrors.Error = ErrPlatform.New("session has ended").SetStatusCode(http.StatusGone)

	// ErrRateLimited is returned when the server throttles the caller.
	ErrRateLimited apperrors.Error = ErrPlatform.New("rate limited, try again shortly").SetStatusCode(http.StatusTooManyRequests)
)
