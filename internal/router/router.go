// Package router wires handlers and middleware onto echo routes.
package router

import (
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/hotel-booking/internal/config"
	"github.com/iliyamo/hotel-booking/internal/handler"
	"github.com/iliyamo/hotel-booking/internal/middleware"
)

// Deps bundles everything the route tables need.  Redis may be nil, in
// which case caching and rate limiting pass requests through.
type Deps struct {
	JWTSecret      string
	DB             handler.Pinger
	Redis          *redis.Client
	Cache          config.CacheConfig
	RateLimit      config.RateLimitConfig
	Auth           *handler.AuthHandler
	Accommodations *handler.AccommodationHandler
	Bookings       *handler.BookingHandler
}

// RegisterRoutes registers every route of the API.
func RegisterRoutes(e *echo.Echo, d Deps) {
	e.GET("/healthz", handler.Health(d.DB))
	RegisterAuth(e, d.Auth, d.JWTSecret)
	RegisterPublic(e, d)
	RegisterCustomer(e, d)
	RegisterAdmin(e, d)
}

// RegisterAuth registers the token endpoints under /v1/auth and the
// authenticated profile endpoint.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, jwtSecret string) {
	g := e.Group("/v1/auth")
	g.POST("/register", a.Register)
	g.POST("/login", a.Login)
	g.POST("/refresh", a.Refresh)
	// Logout accepts either a refresh token in the body or a bearer token,
	// so it is not behind JWTAuth.
	g.POST("/logout", a.Logout)

	e.GET("/v1/me", a.Me, middleware.JWTAuth(jwtSecret))
}

// RegisterPublic registers the unauthenticated browse endpoints.  They are
// rate limited per client and served from the response cache.
func RegisterPublic(e *echo.Echo, d Deps) {
	g := e.Group("/v1/accommodations",
		middleware.NewTokenBucket(d.RateLimit, d.Redis),
		middleware.NewRedisCache(d.Cache, d.Redis),
	)
	g.GET("", d.Accommodations.List)
	g.GET("/:id", d.Accommodations.Get)
}
