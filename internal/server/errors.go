package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	affiliatedomain "github.com/smallbiznis/affilia/internal/affiliate/domain"
	applicationdomain "github.com/smallbiznis/affilia/internal/application/domain"
	attributionservice "github.com/smallbiznis/affilia/internal/attribution/service"
	clickdomain "github.com/smallbiznis/affilia/internal/click/domain"
	ratescheduledomain "github.com/smallbiznis/affilia/internal/rateschedule/domain"
	retryqueuedomain "github.com/smallbiznis/affilia/internal/retryqueue/domain"
	"gorm.io/gorm"
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
	ErrInternal       = errors.New("internal_error")
	ErrNotFound       = errors.New("not_found")
	ErrInvalidRequest = errors.New("invalid_request")
)

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

	if isValidationError(err) {
		code := validationErrorCode(err)
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors: []ValidationError{
				{
					Field:   validationErrorField(code),
					Code:    code,
					Message: validationErrorMessage(code),
				},
			},
		}
	}

	switch {
	case isConflictError(err):
		return http.StatusConflict, errorPayload{
			Type:    "conflict",
			Message: err.Error(),
		}
	case isNotFoundError(err):
		return http.StatusNotFound, errorPayload{
			Type:    "not_found",
			Message: "not found",
		}
	case errors.Is(err, affiliatedomain.ErrAffiliateIneligible):
		return http.StatusUnprocessableEntity, errorPayload{
			Type:    "affiliate_ineligible",
			Message: "affiliate is not eligible for attribution",
		}
	case errors.Is(err, retryqueuedomain.ErrRetryLocked):
		return http.StatusLocked, errorPayload{
			Type:    "retry_locked",
			Message: "retry already in progress for this application",
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

func isValidationError(err error) bool {
	switch {
	case errors.Is(err, ErrInvalidRequest):
		return true
	case isAffiliateValidationError(err),
		isClickValidationError(err),
		isApplicationValidationError(err),
		isAttributionValidationError(err),
		isRateScheduleValidationError(err),
		isRetryValidationError(err):
		return true
	default:
		return false
	}
}

func isNotFoundError(err error) bool {
	switch {
	case errors.Is(err, ErrNotFound),
		errors.Is(err, affiliatedomain.ErrNotFound),
		errors.Is(err, affiliatedomain.ErrCodeNotFound),
		errors.Is(err, affiliatedomain.ErrSponsorNotFound),
		errors.Is(err, clickdomain.ErrNotFound),
		errors.Is(err, applicationdomain.ErrNotFound),
		errors.Is(err, retryqueuedomain.ErrNotFound),
		errors.Is(err, gorm.ErrRecordNotFound):
		return true
	default:
		return false
	}
}

func isConflictError(err error) bool {
	switch {
	case errors.Is(err, affiliatedomain.ErrCodeTaken),
		errors.Is(err, affiliatedomain.ErrInvalidTransition),
		errors.Is(err, applicationdomain.ErrReferenceTaken),
		errors.Is(err, retryqueuedomain.ErrAlreadyCompleted):
		return true
	default:
		return false
	}
}

func validationErrorCode(err error) string {
	switch {
	case errors.Is(err, ErrInvalidRequest):
		return "invalid_request"
	default:
		return err.Error()
	}
}

func validationErrorField(code string) string {
	if code == "invalid_request" {
		return "request"
	}
	if strings.HasPrefix(code, "invalid_") {
		return strings.TrimPrefix(code, "invalid_")
	}
	return ""
}

func validationErrorMessage(code string) string {
	switch code {
	case "invalid_request":
		return "invalid request"
	default:
		return "invalid value"
	}
}

func isAffiliateValidationError(err error) bool {
	switch err {
	case affiliatedomain.ErrInvalidName,
		affiliatedomain.ErrInvalidEmail,
		affiliatedomain.ErrInvalidTier,
		affiliatedomain.ErrInvalidID,
		affiliatedomain.ErrInvalidCode,
		affiliatedomain.ErrSelfSponsorship,
		affiliatedomain.ErrSponsorDepth:
		return true
	default:
		return false
	}
}

func isClickValidationError(err error) bool {
	switch err {
	case clickdomain.ErrInvalidID:
		return true
	default:
		return false
	}
}

func isApplicationValidationError(err error) bool {
	switch err {
	case applicationdomain.ErrInvalidID,
		applicationdomain.ErrInvalidReference,
		applicationdomain.ErrInvalidAmount:
		return true
	default:
		return false
	}
}

func isAttributionValidationError(err error) bool {
	switch err {
	case attributionservice.ErrInvalidApplicationID,
		attributionservice.ErrInvalidAmount:
		return true
	default:
		return false
	}
}

func isRateScheduleValidationError(err error) bool {
	switch err {
	case ratescheduledomain.ErrEmptySchedule,
		ratescheduledomain.ErrInvalidLevel,
		ratescheduledomain.ErrInvalidPercentage,
		ratescheduledomain.ErrLevelGap:
		return true
	default:
		return false
	}
}

func isRetryValidationError(err error) bool {
	switch err {
	case retryqueuedomain.ErrInvalidID:
		return true
	default:
		return false
	}
}
