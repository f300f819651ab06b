package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/hotel-booking/internal/middleware"
)

// RegisterAdmin registers administrator endpoints under /v1/admin.  All
// routes require a valid JWT carrying the admin claim.
func RegisterAdmin(e *echo.Echo, d Deps) {
	g := e.Group("/v1/admin",
		middleware.JWTAuth(d.JWTSecret),
		middleware.RequireAdmin(),
		middleware.InvalidateOnWrite(d.Cache, d.Redis),
	)

	// ---- Accommodations ----
	g.POST("/accommodations", d.Accommodations.Create)
	g.PATCH("/accommodations/:id", d.Accommodations.Update)
	g.DELETE("/accommodations/:id", d.Accommodations.Delete)
	g.POST("/accommodations/:id/reconcile", d.Accommodations.Reconcile)

	// ---- Bookings ----
	g.GET("/bookings", d.Bookings.AdminList)
	g.PATCH("/bookings/:id", d.Bookings.Edit)
	g.DELETE("/bookings/:id", d.Bookings.AdminDelete)
}
