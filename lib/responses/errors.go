package responses

import (
	"net/http"

	"github.com/getsentry/sentry-go"
	sentryecho "github.com/getsentry/sentry-go/echo"
	"github.com/labstack/echo/v4"
)

type ErrorResponse struct {
	Error          bool   `json:"error"`
	Code           int    `json:"code"`
	Message        string `json:"message"`
	HttpStatusCode int    `json:"-"`
}

// MarkedErrorResponse carries a machine readable marker the client keys its
// behaviour on (forced logout, subscription expired).
type MarkedErrorResponse struct {
	Error                bool   `json:"error"`
	Code                 string `json:"code"`
	Message              string `json:"message"`
	SubscriptionRequired bool   `json:"subscriptionRequired,omitempty"`
	HttpStatusCode       int    `json:"-"`
}

var GeneralServerError = ErrorResponse{
	Error:          true,
	Code:           6,
	Message:        "Something went wrong. Please try again later",
	HttpStatusCode: 500,
}

var BadArgumentsError = ErrorResponse{
	Error:          true,
	Code:           8,
	Message:        "Bad arguments",
	HttpStatusCode: 400,
}

var BadAuthError = ErrorResponse{
	Error:          true,
	Code:           1,
	Message:        "bad auth",
	HttpStatusCode: 401,
}

var NotFoundError = ErrorResponse{
	Error:          true,
	Code:           4,
	Message:        "transaction not found",
	HttpStatusCode: 404,
}

var PlanNotFoundError = ErrorResponse{
	Error:          true,
	Code:           4,
	Message:        "plan not found or inactive",
	HttpStatusCode: 404,
}

var TransactionFinalizedError = ErrorResponse{
	Error:          true,
	Code:           2,
	Message:        "transaction is already finalized",
	HttpStatusCode: 409,
}

var TransactionExpiredError = ErrorResponse{
	Error:          true,
	Code:           2,
	Message:        "transaction expired",
	HttpStatusCode: 400,
}

var IdempotencyConflictError = ErrorResponse{
	Error:          true,
	Code:           2,
	Message:        "a payment for this request is already being created",
	HttpStatusCode: 503,
}

var InvalidProofError = ErrorResponse{
	Error:          true,
	Code:           3,
	Message:        "payment proof must be an image",
	HttpStatusCode: 400,
}

var ProofTooLargeError = ErrorResponse{
	Error:          true,
	Code:           3,
	Message:        "payment proof is too large",
	HttpStatusCode: 413,
}

var ManualPaymentOnlyError = ErrorResponse{
	Error:          true,
	Code:           2,
	Message:        "proof upload is only available for manual payments",
	HttpStatusCode: 400,
}

var GatewayUnavailableError = ErrorResponse{
	Error:          true,
	Code:           7,
	Message:        "payment gateway is unavailable",
	HttpStatusCode: 502,
}

var InvalidSignatureError = ErrorResponse{
	Error:          true,
	Code:           1,
	Message:        "invalid callback signature",
	HttpStatusCode: 401,
}

var AccountCreationDisabledError = ErrorResponse{
	Error:          true,
	Code:           1,
	Message:        "account creation is disabled",
	HttpStatusCode: 403,
}

var UserDeletedError = MarkedErrorResponse{
	Error:          true,
	Code:           "USER_DELETED",
	Message:        "This account no longer exists",
	HttpStatusCode: 401,
}

var SubscriptionRequiredError = MarkedErrorResponse{
	Error:                true,
	Code:                 "SUBSCRIPTION_REQUIRED",
	Message:              "An active subscription is required",
	SubscriptionRequired: true,
	HttpStatusCode:       403,
}

func HTTPErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	c.Logger().Error(err)
	if hub := sentryecho.GetHubFromContext(c); hub != nil && isErrAllowedForSentry(err) {
		hub.WithScope(func(scope *sentry.Scope) {
			scope.SetExtra("UserID", c.Get("UserID"))
			hub.CaptureException(err)
		})
	}
	if he, ok := err.(*echo.HTTPError); ok {
		c.JSON(he.Code, he.Message)
	} else {
		c.JSON(http.StatusInternalServerError, GeneralServerError)
	}
}

// bad auth responses are expected traffic, not exceptions
func isErrAllowedForSentry(err error) bool {
	he, ok := err.(*echo.HTTPError)
	if !ok {
		return true
	}
	if he.Code == http.StatusNotFound || he.Code == http.StatusMethodNotAllowed {
		return false
	}
	if m, ok := he.Message.(echo.Map); ok {
		if m["code"] == 1 && m["message"] == "bad auth" {
			return false
		}
	}
	return true
}
