package controllers

import (
	"net/http"
	"strconv"

	"github.com/kinterstore/qrishub.go/lib/responses"
	"github.com/kinterstore/qrishub.go/lib/service"
	"github.com/labstack/echo/v4"
)

// AdminController : operator endpoints for manual verification
type AdminController struct {
	svc *service.QrishubService
}

func NewAdminController(svc *service.QrishubService) *AdminController {
	return &AdminController{svc: svc}
}

type VerifyRequestBody struct {
	ID     int64  `json:"id" validate:"required,gt=0"`
	Action string `json:"action" validate:"required,oneof=approve reject"`
	Note   string `json:"note" validate:"max=512"`
}

type VerifyResponseBody struct {
	Ok          bool                `json:"ok"`
	Transaction PaymentResponseBody `json:"transaction"`
}

// Verify godoc
// @Summary      Verify a manual payment
// @Description  approve settles the transaction and activates the subscription, reject fails it
// @Accept       json
// @Produce      json
// @Tags         Admin
// @Param        VerifyRequestBody  body      VerifyRequestBody  true  "Decision"
// @Success      200                {object}  VerifyResponseBody
// @Failure      400                {object}  responses.ErrorResponse
// @Failure      404                {object}  responses.ErrorResponse
// @Failure      409                {object}  responses.ErrorResponse
// @Router       /api/subscriptions/verify [post]
// @Security     OAuth2Password
func (controller *AdminController) Verify(c echo.Context) error {
	adminId := c.Get("UserID").(int64)

	var body VerifyRequestBody
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, responses.BadArgumentsError)
	}
	if err := c.Validate(&body); err != nil {
		return c.JSON(http.StatusBadRequest, responses.BadArgumentsError)
	}
	t, err := controller.svc.VerifyTransaction(c.Request().Context(), adminId, body.ID, body.Action, body.Note)
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(http.StatusOK, &VerifyResponseBody{Ok: true, Transaction: *paymentResponse(t)})
}

// Pending godoc
// @Summary      Pending manual payments
// @Description  Unpaid, unexpired manual transactions, oldest first
// @Produce      json
// @Tags         Admin
// @Success      200  {object}  []PaymentResponseBody
// @Router       /api/pending [get]
// @Security     OAuth2Password
func (controller *AdminController) Pending(c echo.Context) error {
	transactions, err := controller.svc.PendingTransactions(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, paymentList(transactions, len(transactions), 1, len(transactions)).Transactions)
}

// ListPayments godoc
// @Summary      All payments
// @Produce      json
// @Tags         Admin
// @Param        status  query     string  false  "UNPAID, PAID, EXPIRED or FAILED"
// @Param        page    query     int     false  "Page"
// @Param        limit   query     int     false  "Page size"
// @Success      200     {object}  PaymentListResponseBody
// @Router       /api/admin/qris-payments [get]
// @Security     OAuth2Password
func (controller *AdminController) ListPayments(c echo.Context) error {
	page, limit := pagination(c, controller.svc.Config.Payment.PageLimit)
	transactions, total, err := controller.svc.AllTransactions(c.Request().Context(), c.QueryParam("status"), page, limit)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, paymentList(transactions, total, page, limit))
}

// GetPayment godoc
// @Summary      Payment detail
// @Description  Full transaction including the uploaded proof
// @Produce      json
// @Tags         Admin
// @Param        id   path      int  true  "Transaction id"
// @Success      200  {object}  PaymentResponseBody
// @Failure      404  {object}  responses.ErrorResponse
// @Router       /api/admin/qris-payments/{id} [get]
// @Security     OAuth2Password
func (controller *AdminController) GetPayment(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, responses.BadArgumentsError)
	}
	t, err := controller.svc.FindTransactionById(c.Request().Context(), id)
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(http.StatusOK, paymentResponse(t))
}

// DeleteUser godoc
// @Summary      Delete a user
// @Description  Soft delete. Outstanding tokens are answered with USER_DELETED.
// @Tags         Admin
// @Param        id  path  int  true  "User id"
// @Success      204
// @Router       /api/admin/users/{id} [delete]
// @Security     OAuth2Password
func (controller *AdminController) DeleteUser(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, responses.BadArgumentsError)
	}
	if err := controller.svc.DeleteUser(c.Request().Context(), id); err != nil {
		if err == service.ErrUserDeleted {
			return c.JSON(http.StatusNotFound, responses.NotFoundError)
		}
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
