// Package response is the single JSON shape the API speaks: payloads pass
// through RespondOK untouched, failures become an {error:{message,code}}
// envelope with the status derived from the service-layer sentinels.
package response

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "github.com/peres84/AdFlowEcomm/internal/pkg/errors"
)

type APIError struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

// StatusForError maps the shared error sentinels to HTTP statuses. ErrNotReady
// shares 409 with ErrConflict: merging before every scene is done is the same
// class of state conflict as regenerating an in-flight scene. Anything
// unrecognized is an internal error.
func StatusForError(err error) int {
	switch {
	case errors.Is(err, apperrors.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, apperrors.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, apperrors.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, apperrors.ErrNotReady):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func RespondError(c *gin.Context, status int, code string, err error) {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	c.JSON(status, ErrorEnvelope{
		Error: APIError{
			Message: msg,
			Code:    code,
		},
	})
}

// RespondServiceError is RespondError with the status picked from the error
// chain. Handlers use it for anything a service returns; hand-picked statuses
// are only for request parsing.
func RespondServiceError(c *gin.Context, code string, err error) {
	RespondError(c, StatusForError(err), code, err)
}

func RespondOK(c *gin.Context, payload any) {
	c.JSON(http.StatusOK, payload)
}
