package ginserver

import (
	"log/slog"
	"net/http"

	gin "github.com/gin-gonic/gin"

	"grabit/internal/app/commands"
	bookingapp "grabit/internal/app/handlers/booking"
)

type BookingHandler struct {
	Commands commands.Bus
	Logger   *slog.Logger
}

type createBookingRequest struct {
	ListingType string `json:"listing_type"`
	ListingID   string `json:"listing_id"`
	StartDate   string `json:"start_date"`
	EndDate     string `json:"end_date"`
}

func (h BookingHandler) Create(c *gin.Context) {
	user, ok := requireActor(c)
	if !ok {
		return
	}
	var req createBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, errorBody{Error: "invalid_body", Message: err.Error()})
		return
	}
	cmd := bookingapp.CreateBookingCommand{
		ListingType: req.ListingType,
		ListingID:   req.ListingID,
		Requester:   user.ID,
		StartDate:   req.StartDate,
		EndDate:     req.EndDate,
		IdemKey:     c.GetHeader("Idempotency-Key"),
	}
	result, err := commands.Dispatch[bookingapp.CreateBookingCommand, *bookingapp.CreateBookingResult](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		handleError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

func (h BookingHandler) Confirm(c *gin.Context) {
	user, ok := requireActor(c)
	if !ok {
		return
	}
	cmd := bookingapp.ConfirmBookingCommand{BookingID: c.Param("id"), Actor: user.ID}
	h.respond(c, func() (*bookingapp.BookingActionResult, error) {
		return commands.Dispatch[bookingapp.ConfirmBookingCommand, *bookingapp.BookingActionResult](c.Request.Context(), h.Commands, cmd)
	})
}

func (h BookingHandler) Cancel(c *gin.Context) {
	user, ok := requireActor(c)
	if !ok {
		return
	}
	cmd := bookingapp.CancelBookingCommand{BookingID: c.Param("id"), Actor: user.ID}
	h.respond(c, func() (*bookingapp.BookingActionResult, error) {
		return commands.Dispatch[bookingapp.CancelBookingCommand, *bookingapp.BookingActionResult](c.Request.Context(), h.Commands, cmd)
	})
}

func (h BookingHandler) SelfCancel(c *gin.Context) {
	user, ok := requireActor(c)
	if !ok {
		return
	}
	cmd := bookingapp.SelfCancelBookingCommand{BookingID: c.Param("id"), Actor: user.ID}
	h.respond(c, func() (*bookingapp.BookingActionResult, error) {
		return commands.Dispatch[bookingapp.SelfCancelBookingCommand, *bookingapp.BookingActionResult](c.Request.Context(), h.Commands, cmd)
	})
}

func (h BookingHandler) respond(c *gin.Context, run func() (*bookingapp.BookingActionResult, error)) {
	result, err := run()
	if err != nil {
		handleError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

var _ BookingHTTP = BookingHandler{}
