package controllers

import (
	"io"
	"net/http"

	"github.com/kinterstore/qrishub.go/lib/proof"
	"github.com/kinterstore/qrishub.go/lib/responses"
	"github.com/kinterstore/qrishub.go/lib/service"
	"github.com/labstack/echo/v4"
)

// UploadProofController : payment proof uploads for manual QRIS payments
type UploadProofController struct {
	svc *service.QrishubService
}

func NewUploadProofController(svc *service.QrishubService) *UploadProofController {
	return &UploadProofController{svc: svc}
}

type UploadBase64RequestBody struct {
	// raw base64 or a data:image/...;base64, URL
	Proof string `json:"proof" validate:"required"`
}

// Upload godoc
// @Summary      Upload a payment proof
// @Description  Multipart upload (field "proof") of a transfer screenshot
// @Accept       mpfd
// @Produce      json
// @Tags         Payment
// @Param        ref    path      string  true  "Transaction reference"
// @Param        proof  formData  file    true  "Image"
// @Success      200    {object}  PaymentResponseBody
// @Failure      400    {object}  responses.ErrorResponse
// @Failure      413    {object}  responses.ErrorResponse
// @Router       /api/qris-payment/{ref}/upload [post]
// @Security     OAuth2Password
func (controller *UploadProofController) Upload(c echo.Context) error {
	userId := c.Get("UserID").(int64)

	file, err := c.FormFile("proof")
	if err != nil {
		return c.JSON(http.StatusBadRequest, responses.BadArgumentsError)
	}
	if file.Size > controller.svc.Config.Payment.MaxProofSize {
		return c.JSON(http.StatusRequestEntityTooLarge, responses.ProofTooLargeError)
	}
	src, err := file.Open()
	if err != nil {
		return err
	}
	defer src.Close()
	// one extra byte tells an oversized stream apart from an exact fit
	content, err := io.ReadAll(io.LimitReader(src, controller.svc.Config.Payment.MaxProofSize+1))
	if err != nil {
		return err
	}

	t, err := controller.svc.UploadProof(c.Request().Context(), userId, c.Param("ref"), content)
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(http.StatusOK, paymentResponse(t))
}

// UploadBase64 godoc
// @Summary      Upload a payment proof as base64
// @Accept       json
// @Produce      json
// @Tags         Payment
// @Param        ref                      path      string                   true  "Transaction reference"
// @Param        UploadBase64RequestBody  body      UploadBase64RequestBody  true  "Proof"
// @Success      200                      {object}  PaymentResponseBody
// @Failure      400                      {object}  responses.ErrorResponse
// @Failure      413                      {object}  responses.ErrorResponse
// @Router       /api/qris-payment/{ref}/upload-base64 [post]
// @Security     OAuth2Password
func (controller *UploadProofController) UploadBase64(c echo.Context) error {
	userId := c.Get("UserID").(int64)

	var body UploadBase64RequestBody
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, responses.BadArgumentsError)
	}
	if err := c.Validate(&body); err != nil {
		return c.JSON(http.StatusBadRequest, responses.BadArgumentsError)
	}
	content, err := proof.DecodeBase64(body.Proof)
	if err != nil {
		return c.JSON(http.StatusBadRequest, responses.InvalidProofError)
	}

	t, err := controller.svc.UploadProof(c.Request().Context(), userId, c.Param("ref"), content)
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(http.StatusOK, paymentResponse(t))
}
