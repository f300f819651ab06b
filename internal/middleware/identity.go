package middleware

import (
	"context"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/hotel-booking/internal/model"
)

const identityKey = "identity"

type ctxKey struct{}

// WithIdentity stores id on both the echo context and the request context
// so handlers and anything they call see the same caller.
func WithIdentity(c echo.Context, id model.Identity) {
	c.Set(identityKey, id)
	r := c.Request()
	c.SetRequest(r.WithContext(context.WithValue(r.Context(), ctxKey{}, id)))
}

// IdentityFrom returns the authenticated caller, if any.
func IdentityFrom(c echo.Context) (model.Identity, bool) {
	id, ok := c.Get(identityKey).(model.Identity)
	return id, ok
}

// IdentityFromContext is IdentityFrom for code that only has a
// context.Context.
func IdentityFromContext(ctx context.Context) (model.Identity, bool) {
	id, ok := ctx.Value(ctxKey{}).(model.Identity)
	return id, ok
}

// userKey identifies the caller for rate limiting; "anon" when no token
// was verified.
func userKey(c echo.Context) string {
	if id, ok := IdentityFrom(c); ok {
		return strconv.FormatUint(id.UserID, 10)
	}
	return "anon"
}
