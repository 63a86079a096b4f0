package controllers

import (
	"net/http"

	"github.com/kinterstore/qrishub.go/lib/responses"
	"github.com/kinterstore/qrishub.go/lib/service"
	"github.com/labstack/echo/v4"
	"github.com/skip2/go-qrcode"
)

// QRController : renders the QRIS payload of a transaction
type QRController struct {
	svc *service.QrishubService
}

func NewQRController(svc *service.QrishubService) *QRController {
	return &QRController{svc: svc}
}

// QR godoc
// @Summary      QR code of a payment
// @Description  PNG of the transaction's QRIS payload, or of the merchant's static QRIS for manual payments
// @Produce      png
// @Tags         Payment
// @Param        ref  path  string  true  "Transaction reference"
// @Success      200
// @Failure      404  {object}  responses.ErrorResponse
// @Router       /api/qris-payment/{ref}/qr [get]
// @Security     OAuth2Password
func (controller *QRController) QR(c echo.Context) error {
	userId := c.Get("UserID").(int64)
	ctx := c.Request().Context()

	t, err := controller.svc.FindTransaction(ctx, userId, c.Param("ref"))
	if err != nil {
		return serviceError(c, err)
	}
	payload := t.QrString
	if payload == "" {
		settings, err := controller.svc.QrisSettings(ctx)
		if err != nil {
			return err
		}
		payload = settings.QrString
	}
	if payload == "" {
		return c.JSON(http.StatusNotFound, responses.NotFoundError)
	}

	png, err := qrcode.Encode(payload, qrcode.Medium, 256)
	if err != nil {
		return err
	}
	return c.Blob(http.StatusOK, "image/png", png)
}
