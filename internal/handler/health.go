package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

// Pinger is implemented by *sql.DB.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Health is a liveness endpoint that also reports whether the database
// answers.  It returns 503 when it does not.
func Health(db Pinger) echo.HandlerFunc {
	return func(c echo.Context) error {
		if db == nil {
			return c.String(http.StatusOK, "ok")
		}
		ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
		defer cancel()
		if err := db.PingContext(ctx); err != nil {
			c.Logger().Warnf("health: database ping failed: %v", err)
			return c.JSON(http.StatusServiceUnavailable, echo.Map{"status": "degraded", "database": "down"})
		}
		return c.String(http.StatusOK, "ok")
	}
}
