package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/rs/zerolog"

	"github.com/kosarica/intake-service/internal/database"
	"github.com/kosarica/intake-service/internal/ingestion/docx"
	"github.com/kosarica/intake-service/internal/mapping"
	"github.com/kosarica/intake-service/internal/pipeline"
	"github.com/kosarica/intake-service/internal/storage"
)

// Error codes returned in ErrorBody.Code
const (
	CodeInvalidContainer     = "INVALID_CONTAINER"
	CodeMissingRequiredField = "MISSING_REQUIRED_FIELD"
	CodeUnsupportedFileType  = "UNSUPPORTED_FILE_TYPE"
	CodeValidationFailed     = "VALIDATION_FAILED"
	CodeBadRequest           = "BAD_REQUEST"
	CodeNotFound             = "NOT_FOUND"
	CodePayloadTooLarge      = "PAYLOAD_TOO_LARGE"
	CodePersistence          = "PERSISTENCE_ERROR"
	CodeInternal             = "INTERNAL"
)

// ErrorResponse is the body of every failed request
type ErrorResponse struct {
	Error ErrorBody `json:"error" jsonschema:"required"`
}

// ErrorBody describes what went wrong
type ErrorBody struct {
	Code    string      `json:"code" jsonschema:"required"`
	Message string      `json:"message" jsonschema:"required"`
	Details interface{} `json:"details,omitempty"`
}

// apiError is an error that already knows its HTTP rendering
type apiError struct {
	status  int
	code    string
	message string
	details interface{}
}

func (e *apiError) Error() string {
	return e.message
}

func badRequest(message string) error {
	return &apiError{status: http.StatusBadRequest, code: CodeBadRequest, message: message}
}

// writeError maps err onto a status code and error body
func writeError(c *gin.Context, err error) {
	body := ErrorBody{Code: CodeInternal, Message: "internal server error"}
	status := http.StatusInternalServerError

	var apiErr *apiError
	var validationErrs validation.Errors
	var missing *mapping.MissingFieldError

	switch {
	case errors.As(err, &apiErr):
		status, body = apiErr.status, ErrorBody{Code: apiErr.code, Message: apiErr.message, Details: apiErr.details}
	case errors.As(err, &validationErrs):
		status, body = http.StatusBadRequest, ErrorBody{Code: CodeValidationFailed, Message: "request validation failed", Details: validationErrs}
	case errors.As(err, &missing):
		status, body = http.StatusBadRequest, ErrorBody{
			Code:    CodeMissingRequiredField,
			Message: err.Error(),
			Details: gin.H{"field": missing.Field},
		}
	case errors.Is(err, pipeline.ErrUnsupportedFileType):
		status, body = http.StatusBadRequest, ErrorBody{Code: CodeUnsupportedFileType, Message: "file must be a .docx"}
	case errors.Is(err, docx.ErrInvalidContainer):
		status, body = http.StatusBadRequest, ErrorBody{Code: CodeInvalidContainer, Message: err.Error()}
	case errors.Is(err, database.ErrNotFound), errors.Is(err, storage.ErrNotFound):
		status, body = http.StatusNotFound, ErrorBody{Code: CodeNotFound, Message: err.Error()}
	case errors.Is(err, database.ErrPersistence):
		body = ErrorBody{Code: CodePersistence, Message: "failed to persist changes"}
	}

	if status >= http.StatusInternalServerError {
		zerolog.Ctx(c.Request.Context()).Error().Err(err).Str("path", c.FullPath()).Msg("Request failed")
	}
	_ = c.Error(err)
	c.AbortWithStatusJSON(status, ErrorResponse{Error: body})
}
