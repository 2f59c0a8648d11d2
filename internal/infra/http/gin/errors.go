package ginserver

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	gin "github.com/gin-gonic/gin"

	"grabit/internal/app/handlers/support"
	"grabit/internal/app/middleware"
	"grabit/internal/app/uow"
	domainbooking "grabit/internal/domain/booking"
	domainlistings "grabit/internal/domain/listings"
	"grabit/internal/domain/shared/daterange"
)

type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// classify maps application errors onto an HTTP status and a stable code.
func classify(err error) (int, string) {
	switch {
	case errors.Is(err, middleware.ErrUnauthenticated):
		return http.StatusUnauthorized, "unauthenticated"
	case errors.Is(err, domainbooking.ErrMissingParameter):
		return http.StatusBadRequest, "missing_parameter"
	case errors.Is(err, daterange.ErrInvalidRange):
		return http.StatusBadRequest, "invalid_range"
	case errors.Is(err, domainbooking.ErrPastDate):
		return http.StatusBadRequest, "past_date"
	case errors.Is(err, domainlistings.ErrInvalidListingType):
		return http.StatusBadRequest, "invalid_listing_type"
	case errors.Is(err, domainbooking.ErrInvalidStatus):
		return http.StatusBadRequest, "invalid_status"
	case errors.Is(err, domainbooking.ErrSelfBooking):
		return http.StatusForbidden, "self_booking"
	case errors.Is(err, domainbooking.ErrNotAuthorized):
		return http.StatusForbidden, "not_authorized"
	case errors.Is(err, domainbooking.ErrBookingNotFound),
		errors.Is(err, domainlistings.ErrListingNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, domainbooking.ErrConflict):
		return http.StatusConflict, "conflict"
	case errors.Is(err, domainbooking.ErrInvalidTransition):
		return http.StatusConflict, "invalid_transition"
	case errors.Is(err, uow.ErrConcurrentUpdate):
		return http.StatusConflict, "concurrent_update"
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "timeout"
	default:
		return http.StatusInternalServerError, "server_error"
	}
}

func handleError(c *gin.Context, logger *slog.Logger, err error) {
	status, code := classify(err)
	message := err.Error()
	if status >= http.StatusInternalServerError {
		if logger != nil && !errors.Is(err, support.ErrServer) {
			// ErrServer was already logged with detail where it was raised
			logger.ErrorContext(c.Request.Context(), "request failed", "error", err, "path", c.FullPath())
		}
		message = "internal server error"
	}
	c.AbortWithStatusJSON(status, errorBody{Error: code, Message: message})
}
