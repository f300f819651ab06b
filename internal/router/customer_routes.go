package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/hotel-booking/internal/middleware"
)

// RegisterCustomer registers the booking endpoints available to any
// signed-in user.  Ownership is checked by the booking service.  Writes
// purge cached listings because they change remaining rooms.
func RegisterCustomer(e *echo.Echo, d Deps) {
	g := e.Group("/v1",
		middleware.JWTAuth(d.JWTSecret),
		middleware.NewTokenBucket(d.RateLimit, d.Redis),
		middleware.InvalidateOnWrite(d.Cache, d.Redis),
	)
	g.POST("/bookings", d.Bookings.Create)
	g.GET("/my-bookings", d.Bookings.MyBookings)
	g.GET("/bookings/:id", d.Bookings.Get)
	g.PATCH("/bookings/:id", d.Bookings.Edit)
	// DELETE cancels; the record is kept.
	g.DELETE("/bookings/:id", d.Bookings.Cancel)
}
