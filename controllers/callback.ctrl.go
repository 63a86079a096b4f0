package controllers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/kinterstore/qrishub.go/lib/responses"
	"github.com/kinterstore/qrishub.go/lib/service"
	"github.com/kinterstore/qrishub.go/tripay"
	"github.com/labstack/echo/v4"
)

// CallbackController : payment gateway notifications
type CallbackController struct {
	svc *service.QrishubService
}

func NewCallbackController(svc *service.QrishubService) *CallbackController {
	return &CallbackController{svc: svc}
}

type CallbackResponseBody struct {
	Success bool `json:"success"`
}

// TripayCallback godoc
// @Summary      Tripay callback
// @Description  Signed status notification. The signature middleware has already checked X-Callback-Signature.
// @Accept       json
// @Produce      json
// @Tags         Gateway
// @Success      200  {object}  CallbackResponseBody
// @Failure      401  {object}  responses.ErrorResponse
// @Router       /api/tripay/callback [post]
func (controller *CallbackController) TripayCallback(c echo.Context) error {
	body, ok := c.Get("RawBody").([]byte)
	if !ok {
		return c.JSON(http.StatusBadRequest, responses.BadArgumentsError)
	}
	if event := c.Request().Header.Get("X-Callback-Event"); event != "" && event != "payment_status" {
		return c.JSON(http.StatusOK, &CallbackResponseBody{Success: true})
	}
	var payload tripay.CallbackPayload
	if err := json.Unmarshal(body, &payload); err != nil || payload.Reference == "" {
		return c.JSON(http.StatusBadRequest, responses.BadArgumentsError)
	}

	_, err := controller.svc.HandleGatewayCallback(c.Request().Context(), &payload)
	if errors.Is(err, service.ErrTransactionNotFound) {
		return c.JSON(http.StatusNotFound, responses.NotFoundError)
	}
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, &CallbackResponseBody{Success: true})
}
