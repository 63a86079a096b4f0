package tokens

import (
	"net/http"

	"github.com/kinterstore/qrishub.go/common"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

// AdminTokenMiddleware guards operator endpoints with a static ADMIN_TOKEN.
// Without a configured token the guard is open.
func AdminTokenMiddleware(token string) echo.MiddlewareFunc {
	if token == "" {
		return func(next echo.HandlerFunc) echo.HandlerFunc {
			return next
		}
	}
	return middleware.KeyAuth(func(auth string, c echo.Context) (bool, error) {
		return auth == token, nil
	})
}

// AdminRoleMiddleware requires an access token carrying the admin role. It
// must run after Middleware.
func AdminRoleMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if role, _ := c.Get("UserRole").(string); role != common.RoleAdmin {
			return echo.NewHTTPError(http.StatusForbidden, echo.Map{
				"error":   true,
				"code":    1,
				"message": "admin access required",
			})
		}
		return next(c)
	}
}
