package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/emergency-assist/hospital-recommender/internal/domain"
	"github.com/emergency-assist/hospital-recommender/internal/middleware"
)

// statusFor maps a service error to its HTTP status and envelope code.
func statusFor(err error) (int, string) {
	var verr *domain.ValidationError
	switch {
	case errors.As(err, &verr):
		return http.StatusBadRequest, domain.ErrCodeValidation
	case errors.Is(err, domain.ErrInvalidStatus),
		errors.Is(err, domain.ErrInvalidAlertType),
		errors.Is(err, domain.ErrUnsupportedStrategy),
		errors.Is(err, domain.ErrUnsupportedExportFmt):
		return http.StatusBadRequest, domain.ErrCodeInvalidInput
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, domain.ErrCodeNotFound
	case errors.Is(err, domain.ErrCatalogUnavailable):
		return http.StatusServiceUnavailable, domain.ErrCodeCatalogUnavailable
	default:
		return http.StatusInternalServerError, domain.ErrCodeInternalServer
	}
}

// respondError writes err as a ServiceError envelope. Internal errors are
// logged and their details withheld from the caller.
func (s *Server) respondError(c *gin.Context, err error) {
	status, code := statusFor(err)
	requestID := c.GetString(middleware.CorrelationIDKey)

	message := err.Error()
	details := ""
	var verr *domain.ValidationError
	if errors.As(err, &verr) {
		message = verr.Message
		details = verr.Field
	}
	if status >= http.StatusInternalServerError {
		s.logger.WithError(err).WithField("correlation_id", requestID).Error("Request failed")
		if status == http.StatusInternalServerError {
			message = "internal server error"
		}
	}

	_ = c.Error(err)
	c.JSON(status, domain.NewServiceError(code, message, details, requestID))
}

// respondBindError reports a malformed request body. Validation failures
// raised while decoding are reported like any other validation error.
func (s *Server) respondBindError(c *gin.Context, err error) {
	var verr *domain.ValidationError
	if errors.As(err, &verr) {
		s.respondError(c, verr)
		return
	}
	c.JSON(http.StatusBadRequest, domain.NewServiceError(
		domain.ErrCodeInvalidInput, "malformed request body", err.Error(), c.GetString(middleware.CorrelationIDKey),
	))
}
