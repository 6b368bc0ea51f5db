package server

import (
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"groqkit/pkg/groq"
)

// RequestIDMiddleware makes sure every request carries an X-Request-ID.
// A caller-supplied ID is kept, otherwise a UUID is generated. The ID is
// echoed in the response and forwarded to the Groq API with every call the
// request makes.
func RequestIDMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			id := req.Header.Get(echo.HeaderXRequestID)
			if id == "" {
				id = uuid.NewString()
				req.Header.Set(echo.HeaderXRequestID, id)
			}
			c.Response().Header().Set(echo.HeaderXRequestID, id)
			c.SetRequest(req.WithContext(groq.ContextWithRequestID(req.Context(), id)))
			return next(c)
		}
	}
}
