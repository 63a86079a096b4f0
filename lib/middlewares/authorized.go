package middlewares

import (
	"context"
	"net/http"

	"github.com/kinterstore/qrishub.go/db/models"
	"github.com/kinterstore/qrishub.go/lib/responses"
	"github.com/labstack/echo/v4"
)

type UserChecker interface {
	UserExists(ctx context.Context, userId int64) (bool, error)
}

type SubscriptionChecker interface {
	ActiveSubscription(ctx context.Context, userId int64) (*models.Subscription, error)
}

// Authorized rejects tokens of users that were deleted after the token was
// issued. The client treats USER_DELETED as a forced logout.
func Authorized(users UserChecker) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			userId, ok := c.Get("UserID").(int64)
			if !ok {
				return c.JSON(http.StatusUnauthorized, responses.BadAuthError)
			}
			exists, err := users.UserExists(c.Request().Context(), userId)
			if err != nil {
				return err
			}
			if !exists {
				return c.JSON(responses.UserDeletedError.HttpStatusCode, responses.UserDeletedError)
			}
			return next(c)
		}
	}
}

// SubscriptionRequired answers 403 with the subscriptionRequired marker when
// the user has no running subscription.
func SubscriptionRequired(subs SubscriptionChecker) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			userId, ok := c.Get("UserID").(int64)
			if !ok {
				return c.JSON(http.StatusUnauthorized, responses.BadAuthError)
			}
			sub, err := subs.ActiveSubscription(c.Request().Context(), userId)
			if err != nil {
				return err
			}
			if sub == nil {
				return c.JSON(responses.SubscriptionRequiredError.HttpStatusCode, responses.SubscriptionRequiredError)
			}
			c.Set("Subscription", sub)
			return next(c)
		}
	}
}
