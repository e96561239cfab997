package gateway

import (
	"errors"

	"github.com/m-mizutani/conceptstudio/pkg/model"
	"google.golang.org/genai"
)

// RequestError is returned for any failure of the remote call: transport, auth,
// quota or a rejected request. Message is the provider's own message when the
// service returned one.
type RequestError struct {
	Model   model.ModelID
	Code    int
	Message string
	cause   error
}

// NewRequestError wraps a failure of the remote call made with modelID
func NewRequestError(modelID model.ModelID, cause error) *RequestError {
	e := &RequestError{
		Model:   modelID,
		Message: cause.Error(),
		cause:   cause,
	}

	var apiErr genai.APIError
	if errors.As(cause, &apiErr) {
		e.Code = apiErr.Code
		if apiErr.Message != "" {
			e.Message = apiErr.Message
		}
	}

	return e
}

func (e *RequestError) Error() string {
	return "request failed: " + e.cause.Error()
}

func (e *RequestError) Unwrap() error {
	return e.cause
}
