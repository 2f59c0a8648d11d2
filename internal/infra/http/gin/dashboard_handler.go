package ginserver

import (
	"log/slog"
	"net/http"

	gin "github.com/gin-gonic/gin"

	"grabit/internal/app/dto"
	bookingapp "grabit/internal/app/handlers/booking"
	"grabit/internal/app/queries"
)

type DashboardHandler struct {
	Queries queries.Bus
	Logger  *slog.Logger
}

func (h DashboardHandler) MyBookings(c *gin.Context) {
	user, ok := requireActor(c)
	if !ok {
		return
	}
	result, err := queries.Ask[bookingapp.ListRequesterBookingsQuery, dto.BookingCollection](c.Request.Context(), h.Queries,
		bookingapp.ListRequesterBookingsQuery{Requester: user.ID})
	if err != nil {
		handleError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h DashboardHandler) OwnerBookings(c *gin.Context) {
	user, ok := requireActor(c)
	if !ok {
		return
	}
	result, err := queries.Ask[bookingapp.ListOwnerBookingsQuery, dto.BookingCollection](c.Request.Context(), h.Queries,
		bookingapp.ListOwnerBookingsQuery{Owner: user.ID, Status: c.Query("status")})
	if err != nil {
		handleError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

var _ DashboardHTTP = DashboardHandler{}
