package server

import (
	"errors"
	"net/http"

	donationdomain "github.com/NanaWhan/RamadanApi/internal/donation/domain"
	"github.com/NanaWhan/RamadanApi/internal/event"
	"github.com/NanaWhan/RamadanApi/internal/newsletter"
	"github.com/NanaWhan/RamadanApi/internal/partner"
	"github.com/NanaWhan/RamadanApi/internal/volunteer"
	"github.com/gin-gonic/gin"
)

type apiError struct {
	Status  int    `json:"-"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

func (e *apiError) Error() string { return e.Message }

var (
	ErrUnauthorized = &apiError{Status: http.StatusUnauthorized, Code: "unauthorized", Message: "unauthorized"}
	ErrRateLimited  = &apiError{Status: http.StatusTooManyRequests, Code: "rate_limited", Message: "too many requests"}
)

func invalidRequestError() *apiError {
	return &apiError{Status: http.StatusBadRequest, Code: "invalid_request", Message: "invalid request body"}
}

func newValidationError(field, code, message string) *apiError {
	return &apiError{Status: http.StatusBadRequest, Code: code, Message: message, Field: field}
}

// AbortWithError writes a JSON error envelope. Domain errors carry their
// own codes; anything unrecognized is a 500 with a generic body.
func AbortWithError(c *gin.Context, err error) {
	var api *apiError
	if errors.As(err, &api) {
		c.AbortWithStatusJSON(api.Status, gin.H{"error": api})
		return
	}

	status := statusForDomainError(err)
	if status == 0 {
		_ = c.Error(err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"error": gin.H{"code": "internal_error", "message": "internal server error"},
		})
		return
	}

	c.AbortWithStatusJSON(status, gin.H{
		"error": gin.H{"code": err.Error(), "message": err.Error()},
	})
}

func statusForDomainError(err error) int {
	switch {
	case errors.Is(err, donationdomain.ErrNotFound),
		errors.Is(err, event.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, donationdomain.ErrInvalidAmount),
		errors.Is(err, donationdomain.ErrInvalidStatus),
		errors.Is(err, volunteer.ErrInvalidName),
		errors.Is(err, volunteer.ErrInvalidPhone),
		errors.Is(err, partner.ErrInvalidOrganization),
		errors.Is(err, partner.ErrInvalidPhone),
		errors.Is(err, newsletter.ErrInvalidPhone),
		errors.Is(err, event.ErrInvalidTitle),
		errors.Is(err, event.ErrInvalidDates),
		errors.Is(err, event.ErrInvalidAttendee):
		return http.StatusBadRequest
	case errors.Is(err, donationdomain.ErrVerificationFailed):
		return http.StatusPaymentRequired
	case errors.Is(err, event.ErrRegistrationClosed),
		errors.Is(err, event.ErrCapacityExceeded):
		return http.StatusConflict
	}
	return 0
}
