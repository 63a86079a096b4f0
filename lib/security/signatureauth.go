package security

import (
	"bytes"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"
)

// CallbackVerifier checks a gateway signature over the raw request body.
type CallbackVerifier func(body []byte, signature string) bool

// SignatureMiddleware rejects gateway callbacks whose header signature does not
// match the raw body. The body is restored for the handler and also exposed
// as "RawBody" on the context.
func SignatureMiddleware(header string, verify CallbackVerifier) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			body, err := io.ReadAll(c.Request().Body)
			if err != nil {
				return err
			}
			c.Request().Body = io.NopCloser(bytes.NewReader(body))

			signature := c.Request().Header.Get(header)
			if signature == "" || !verify(body, signature) {
				c.Logger().Errorf("rejected callback with invalid signature from %s", c.RealIP())
				return echo.NewHTTPError(http.StatusUnauthorized, echo.Map{
					"error":   true,
					"code":    1,
					"message": "invalid signature",
				})
			}
			c.Set("RawBody", body)
			return next(c)
		}
	}
}
