package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/m-mizutani/conceptstudio/pkg/model"
	"github.com/m-mizutani/conceptstudio/pkg/repository"
	"github.com/m-mizutani/conceptstudio/pkg/service/gateway"
	"github.com/m-mizutani/conceptstudio/pkg/usecase/studio"
	"github.com/m-mizutani/conceptstudio/pkg/utils/logging"
)

type apiError struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

type errorEnvelope struct {
	Error apiError `json:"error"`
}

func respondError(c *gin.Context, status int, code, message string) {
	c.JSON(status, errorEnvelope{
		Error: apiError{
			Message: message,
			Code:    code,
		},
	})
}

// respondFailure maps an error from the use cases to a status code. For remote
// failures the message is the one the studio recorded for this submission.
func (s *Server) respondFailure(c *gin.Context, err error) {
	var reqErr *gateway.RequestError

	switch {
	case errors.Is(err, studio.ErrInvalidInput),
		errors.Is(err, model.ErrInvalidKind),
		errors.Is(err, model.ErrInvalidModel),
		errors.Is(err, model.ErrInvalidTheme):
		respondError(c, http.StatusBadRequest, "invalid_input", err.Error())
	case errors.Is(err, studio.ErrBusy):
		respondError(c, http.StatusConflict, "busy", err.Error())
	case errors.Is(err, repository.ErrNotFound):
		respondError(c, http.StatusNotFound, "not_found", "result not found")
	case errors.Is(err, studio.ErrExportDisabled):
		respondError(c, http.StatusServiceUnavailable, "export_disabled", err.Error())
	case errors.As(err, &reqErr):
		respondError(c, http.StatusBadGateway, "request_failed", failureMessage(err, reqErr))
	default:
		logging.From(c.Request.Context()).Error("request failed", "error", err)
		respondError(c, http.StatusInternalServerError, "internal", "internal server error")
	}
}

// failureMessage returns the user-facing message attached to err by the studio
func failureMessage(err error, reqErr *gateway.RequestError) string {
	var failure *studio.Failure
	if errors.As(err, &failure) {
		return failure.Message
	}
	return reqErr.Message
}
