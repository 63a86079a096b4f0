package controllers

import (
	"errors"
	"net/http"

	"github.com/kinterstore/qrishub.go/lib/responses"
	"github.com/kinterstore/qrishub.go/lib/service"
	"github.com/labstack/echo/v4"
)

// serviceError maps service sentinels onto their API error body. Anything
// unknown is handed to the HTTP error handler so it reaches Sentry.
func serviceError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, service.ErrTransactionNotFound):
		return c.JSON(http.StatusNotFound, responses.NotFoundError)
	case errors.Is(err, service.ErrPlanNotFound):
		return c.JSON(http.StatusNotFound, responses.PlanNotFoundError)
	case errors.Is(err, service.ErrTransactionFinalized):
		return c.JSON(http.StatusConflict, responses.TransactionFinalizedError)
	case errors.Is(err, service.ErrTransactionExpired):
		return c.JSON(http.StatusBadRequest, responses.TransactionExpiredError)
	case errors.Is(err, service.ErrIdempotencyInFlight):
		// the first request is still running, a retry with the same key will get its result
		c.Response().Header().Set("Retry-After", "1")
		return c.JSON(responses.IdempotencyConflictError.HttpStatusCode, responses.IdempotencyConflictError)
	case errors.Is(err, service.ErrProofTooLarge):
		return c.JSON(http.StatusRequestEntityTooLarge, responses.ProofTooLargeError)
	case errors.Is(err, service.ErrInvalidProof):
		return c.JSON(http.StatusBadRequest, responses.InvalidProofError)
	case errors.Is(err, service.ErrManualPaymentOnly):
		return c.JSON(http.StatusBadRequest, responses.ManualPaymentOnlyError)
	case errors.Is(err, service.ErrGatewayNotConfigured), errors.Is(err, service.ErrGatewayFailure):
		c.Logger().Errorf("Payment gateway error: %v", err)
		return c.JSON(http.StatusBadGateway, responses.GatewayUnavailableError)
	case errors.Is(err, service.ErrInvalidAction):
		return c.JSON(http.StatusBadRequest, responses.BadArgumentsError)
	case errors.Is(err, service.ErrBadAuth):
		return c.JSON(http.StatusUnauthorized, responses.BadAuthError)
	case errors.Is(err, service.ErrUserDeleted):
		return c.JSON(responses.UserDeletedError.HttpStatusCode, responses.UserDeletedError)
	}
	return err
}
