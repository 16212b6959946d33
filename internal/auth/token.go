// Package auth guards the REST surface with a single shared API secret.
// There is no user store and no token issuance; callers present the secret
// on every request.
package auth

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

// Middleware enforces the shared API secret on every request of the group it
// is attached to. An empty secret disables authentication, which is the
// development default.
func Middleware(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if secret == "" {
				return next(c)
			}

			token := bearerToken(c.Request().Header.Get("Authorization"))
			if subtle.ConstantTimeCompare([]byte(token), []byte(secret)) != 1 {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid or missing API key")
			}
			return next(c)
		}
	}
}

// bearerToken strips the Authorization scheme prefix. Both "Bearer" and
// "Token" are accepted.
func bearerToken(header string) string {
	for _, prefix := range []string{"Bearer ", "Token "} {
		if strings.HasPrefix(header, prefix) {
			return strings.TrimSpace(header[len(prefix):])
		}
	}
	return strings.TrimSpace(header)
}
