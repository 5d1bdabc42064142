package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/labstack/echo/v4"
)

const (
	// ServiceTokenHeader carries the shared secret of backend producers
	ServiceTokenHeader = "X-Service-Token"
	// ServiceCallerKey is set to true on requests authenticated as a producer
	ServiceCallerKey = "serviceCaller"
)

// ServiceOrUserAuth lets backend producers in with the shared service token and
// hands every other request to userAuth. An empty token disables the producer path.
func ServiceOrUserAuth(token string, userAuth echo.MiddlewareFunc) echo.MiddlewareFunc {
	if token == "" {
		return userAuth
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		asUser := userAuth(next)
		return func(c echo.Context) error {
			presented := c.Request().Header.Get(ServiceTokenHeader)
			if presented == "" {
				return asUser(c)
			}
			if subtle.ConstantTimeCompare([]byte(presented), []byte(token)) != 1 {
				return echo.NewHTTPError(http.StatusUnauthorized, "Invalid service token")
			}
			c.Set(ServiceCallerKey, true)
			return next(c)
		}
	}
}

// IsServiceCaller reports whether the request was authenticated as a producer
func IsServiceCaller(c echo.Context) bool {
	ok, _ := c.Get(ServiceCallerKey).(bool)
	return ok
}
