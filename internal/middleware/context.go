package middleware

import "github.com/labstack/echo/v4"

// CallerIDKey is the echo context key holding the authenticated user id.
const CallerIDKey = "callerID"

// CallerID returns the authenticated user id, or "" when none was set.
func CallerID(c echo.Context) string {
	id, _ := c.Get(CallerIDKey).(string)
	return id
}
