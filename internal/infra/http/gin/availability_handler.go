package ginserver

import (
	"log/slog"
	"net/http"

	gin "github.com/gin-gonic/gin"

	"grabit/internal/app/dto"
	availabilityapp "grabit/internal/app/handlers/availability"
	"grabit/internal/app/queries"
)

type AvailabilityHandler struct {
	Queries queries.Bus
	Logger  *slog.Logger
}

// Check answers GET /availability?listing_type=&listing_id=&start_date=&end_date=.
func (h AvailabilityHandler) Check(c *gin.Context) {
	query := availabilityapp.CheckAvailabilityQuery{
		ListingType: c.Query("listing_type"),
		ListingID:   c.Query("listing_id"),
		StartDate:   c.Query("start_date"),
		EndDate:     c.Query("end_date"),
	}
	result, err := queries.Ask[availabilityapp.CheckAvailabilityQuery, dto.Availability](c.Request.Context(), h.Queries, query)
	if err != nil {
		handleError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

var _ AvailabilityHTTP = AvailabilityHandler{}
