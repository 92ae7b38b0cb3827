package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	vatdomain "github.com/smallbiznis/vatledger/internal/vat/domain"
)

type ValidationError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

func (v ValidationErrors) Error() string {
	return "validation error"
}

type errorPayload struct {
	Type    string            `json:"type"`
	Message string            `json:"message"`
	Errors  []ValidationError `json:"errors,omitempty"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

var (
	ErrNotFound       = errors.New("not_found")
	ErrInvalidRequest = errors.New("invalid_request")
)

// validationSentinels maps each input error to the request field it concerns.
var validationSentinels = []struct {
	err   error
	field string
}{
	{vatdomain.ErrInvalidID, "id"},
	{vatdomain.ErrInvalidDateRange, "start_date"},
	{vatdomain.ErrInvalidPeriod, "period"},
	{vatdomain.ErrInvalidPeriodType, "period_type"},
	{vatdomain.ErrInvalidStatus, "status"},
	{vatdomain.ErrInvalidAmount, "amount"},
	{vatdomain.ErrInvalidFormat, "format"},
}

func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}

		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		status, payload := mapError(lastErr.Err)
		c.Header("Content-Type", "application/json")
		c.AbortWithStatusJSON(status, errorResponse{Error: payload})
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func invalidRequestError() error {
	return newValidationError("request", "invalid_request", "invalid request")
}

func newValidationError(field, code, message string) error {
	return &ValidationErrors{
		Errors: []ValidationError{
			{
				Field:   field,
				Code:    code,
				Message: message,
			},
		},
	}
}

func mapError(err error) (int, errorPayload) {
	if err == nil {
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}

	if vErr := asValidationErrors(err); vErr != nil {
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors:  vErr.Errors,
		}
	}

	if errors.Is(err, ErrInvalidRequest) || vatdomain.IsValidation(err) {
		field, code := validationField(err)
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors: []ValidationError{
				{
					Field:   field,
					Code:    code,
					Message: err.Error(),
				},
			},
		}
	}

	switch {
	case errors.Is(err, ErrNotFound),
		errors.Is(err, vatdomain.ErrNotFound):
		return http.StatusNotFound, errorPayload{
			Type:    "not_found",
			Message: messageOr(err, "not found"),
		}
	case errors.Is(err, vatdomain.ErrDuplicateReturn):
		return http.StatusConflict, errorPayload{
			Type:    "duplicate_tax_return",
			Message: err.Error(),
		}
	case errors.Is(err, vatdomain.ErrRecalculationInProgress):
		return http.StatusConflict, errorPayload{
			Type:    "recalculation_in_progress",
			Message: "a recalculation is already running",
		}
	case errors.Is(err, vatdomain.ErrInvalidState):
		return http.StatusUnprocessableEntity, errorPayload{
			Type:    "invalid_state",
			Message: err.Error(),
		}
	default:
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}
}

func asValidationErrors(err error) *ValidationErrors {
	var vErr *ValidationErrors
	if errors.As(err, &vErr) && vErr != nil {
		return vErr
	}
	return nil
}

func validationField(err error) (string, string) {
	for _, s := range validationSentinels {
		if errors.Is(err, s.err) {
			return s.field, s.err.Error()
		}
	}
	return "request", ErrInvalidRequest.Error()
}

func messageOr(err error, fallback string) string {
	if errors.Is(err, ErrNotFound) {
		return fallback
	}
	return err.Error()
}

// classifyErrorForLog returns the error type and code recorded on request logs.
func classifyErrorForLog(err error) (string, string) {
	_, payload := mapError(err)
	code := payload.Type
	if len(payload.Errors) > 0 {
		code = payload.Errors[0].Code
	}
	return payload.Type, code
}
