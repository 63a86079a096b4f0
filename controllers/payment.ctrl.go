package controllers

import (
	"net/http"
	"strconv"

	"github.com/kinterstore/qrishub.go/common"
	"github.com/kinterstore/qrishub.go/db/models"
	"github.com/kinterstore/qrishub.go/lib/responses"
	"github.com/kinterstore/qrishub.go/lib/service"
	"github.com/labstack/echo/v4"
)

// PaymentController : user facing QRIS payment endpoints
type PaymentController struct {
	svc *service.QrishubService
}

func NewPaymentController(svc *service.QrishubService) *PaymentController {
	return &PaymentController{svc: svc}
}

type PaymentResponseBody struct {
	models.Transaction
	Display common.StatusDisplay `json:"display"`
}

type PaymentListResponseBody struct {
	Transactions []PaymentResponseBody `json:"transactions"`
	Total        int                   `json:"total"`
	Page         int                   `json:"page"`
	Limit        int                   `json:"limit"`
}

func paymentResponse(t *models.Transaction) *PaymentResponseBody {
	return &PaymentResponseBody{
		Transaction: *t,
		Display:     common.FormatStatus(common.PaymentStatusFromTransaction(t.Status, t.FailureReason)),
	}
}

func paymentList(transactions []models.Transaction, total, page, limit int) *PaymentListResponseBody {
	body := &PaymentListResponseBody{
		Transactions: make([]PaymentResponseBody, 0, len(transactions)),
		Total:        total,
		Page:         page,
		Limit:        limit,
	}
	for i := range transactions {
		body.Transactions = append(body.Transactions, *paymentResponse(&transactions[i]))
	}
	return body
}

// pagination reads ?page= and ?limit=, falling back to the first page.
func pagination(c echo.Context, defaultLimit int) (page, limit int) {
	page, _ = strconv.Atoi(c.QueryParam("page"))
	if page < 1 {
		page = 1
	}
	limit, _ = strconv.Atoi(c.QueryParam("limit"))
	if limit < 1 || limit > 100 {
		limit = defaultLimit
	}
	return page, limit
}

// CreatePayment godoc
// @Summary      Create a payment
// @Description  Creates a QRIS transaction for a subscription plan. Repeating the request with the same Idempotency-Key returns the same transaction.
// @Accept       json
// @Produce      json
// @Tags         Payment
// @Param        Idempotency-Key           header    string                            false  "Client generated purchase intent key"
// @Param        CreateTransactionRequest  body      service.CreateTransactionRequest  true   "Plan"
// @Success      200                       {object}  PaymentResponseBody
// @Success      201                       {object}  PaymentResponseBody
// @Failure      400                       {object}  responses.ErrorResponse
// @Failure      502                       {object}  responses.ErrorResponse
// @Failure      503                       {object}  responses.ErrorResponse
// @Router       /api/qris-payment [post]
// @Security     OAuth2Password
func (controller *PaymentController) CreatePayment(c echo.Context) error {
	userId := c.Get("UserID").(int64)

	var body service.CreateTransactionRequest
	if err := c.Bind(&body); err != nil {
		c.Logger().Errorf("Failed to load create payment request body: %v", err)
		return c.JSON(http.StatusBadRequest, responses.BadArgumentsError)
	}
	if err := c.Validate(&body); err != nil {
		c.Logger().Errorf("Invalid create payment request body: %v", err)
		return c.JSON(http.StatusBadRequest, responses.BadArgumentsError)
	}
	body.IdempotencyKey = c.Request().Header.Get(common.IdempotencyKeyHeader)
	if len(body.IdempotencyKey) > 128 {
		return c.JSON(http.StatusBadRequest, responses.BadArgumentsError)
	}

	t, created, err := controller.svc.CreateTransaction(c.Request().Context(), userId, &body)
	if err != nil {
		return serviceError(c, err)
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	return c.JSON(status, paymentResponse(t))
}

// CheckPayment godoc
// @Summary      Check a payment
// @Description  Returns the current status of a transaction. Overdue transactions are expired on the spot.
// @Produce      json
// @Tags         Payment
// @Param        ref  path      string  true  "Transaction reference"
// @Success      200  {object}  PaymentResponseBody
// @Failure      404  {object}  responses.ErrorResponse
// @Router       /api/qris-payment/{ref}/check [get]
// @Security     OAuth2Password
func (controller *PaymentController) CheckPayment(c echo.Context) error {
	userId := c.Get("UserID").(int64)
	t, err := controller.svc.CheckTransaction(c.Request().Context(), userId, c.Param("ref"))
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(http.StatusOK, paymentResponse(t))
}

// CancelPayment godoc
// @Summary      Cancel a payment
// @Description  Cancels an unpaid transaction
// @Produce      json
// @Tags         Payment
// @Param        ref  path      string  true  "Transaction reference"
// @Success      200  {object}  PaymentResponseBody
// @Failure      404  {object}  responses.ErrorResponse
// @Failure      409  {object}  responses.ErrorResponse
// @Router       /api/qris-payment/{ref}/cancel [post]
// @Security     OAuth2Password
func (controller *PaymentController) CancelPayment(c echo.Context) error {
	userId := c.Get("UserID").(int64)
	t, err := controller.svc.CancelTransaction(c.Request().Context(), userId, c.Param("ref"))
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(http.StatusOK, paymentResponse(t))
}

// ListPayments godoc
// @Summary      Payment history
// @Description  Paginated list of the user's transactions, newest first, without proof bodies
// @Produce      json
// @Tags         Payment
// @Param        page   query     int  false  "Page"
// @Param        limit  query     int  false  "Page size"
// @Success      200    {object}  PaymentListResponseBody
// @Router       /api/qris-payments [get]
// @Security     OAuth2Password
func (controller *PaymentController) ListPayments(c echo.Context) error {
	userId := c.Get("UserID").(int64)
	page, limit := pagination(c, controller.svc.Config.Payment.PageLimit)
	transactions, total, err := controller.svc.TransactionsFor(c.Request().Context(), userId, page, limit)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, paymentList(transactions, total, page, limit))
}
