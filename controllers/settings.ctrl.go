package controllers

import (
	"net/http"

	"github.com/kinterstore/qrishub.go/db/models"
	"github.com/kinterstore/qrishub.go/lib/responses"
	"github.com/kinterstore/qrishub.go/lib/service"
	"github.com/labstack/echo/v4"
)

// SettingsController : merchant QRIS settings and plans
type SettingsController struct {
	svc *service.QrishubService
}

func NewSettingsController(svc *service.QrishubService) *SettingsController {
	return &SettingsController{svc: svc}
}

type QrisSettingsRequestBody struct {
	MerchantName string `json:"merchant_name" validate:"required,max=128"`
	QrString     string `json:"qr_string"`
	QrImageUrl   string `json:"qr_image_url" validate:"omitempty,url"`
	Instructions string `json:"instructions"`
	ExpiryHours  int    `json:"expiry_hours" validate:"omitempty,min=1,max=720"`
}

type CreatePlanRequestBody struct {
	Name         string        `json:"name" validate:"required"`
	Description  string        `json:"description"`
	Price        models.Amount `json:"price" validate:"gt=0"`
	DurationDays int           `json:"duration_days" validate:"required,gt=0"`
}

// GetSettings godoc
// @Summary      QRIS settings
// @Description  Merchant name, static QRIS payload and payment instructions. Defaults are returned when none are stored.
// @Produce      json
// @Tags         Settings
// @Success      200  {object}  models.QrisSettings
// @Router       /api/qris-settings [get]
func (controller *SettingsController) GetSettings(c echo.Context) error {
	settings, err := controller.svc.QrisSettings(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, settings)
}

// SaveSettings godoc
// @Summary      Update QRIS settings
// @Accept       json
// @Produce      json
// @Tags         Settings
// @Param        QrisSettingsRequestBody  body      QrisSettingsRequestBody  true  "Settings"
// @Success      200                      {object}  models.QrisSettings
// @Failure      400                      {object}  responses.ErrorResponse
// @Router       /api/qris-settings [post]
// @Security     OAuth2Password
func (controller *SettingsController) SaveSettings(c echo.Context) error {
	var body QrisSettingsRequestBody
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, responses.BadArgumentsError)
	}
	if err := c.Validate(&body); err != nil {
		return c.JSON(http.StatusBadRequest, responses.BadArgumentsError)
	}
	settings, err := controller.svc.SaveQrisSettings(c.Request().Context(), &models.QrisSettings{
		MerchantName: body.MerchantName,
		QrString:     body.QrString,
		QrImageUrl:   body.QrImageUrl,
		Instructions: body.Instructions,
		ExpiryHours:  body.ExpiryHours,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, settings)
}

// Plans godoc
// @Summary      Subscription plans
// @Produce      json
// @Tags         Settings
// @Success      200  {object}  []models.SubscriptionPlan
// @Router       /api/plans [get]
func (controller *SettingsController) Plans(c echo.Context) error {
	plans, err := controller.svc.Plans(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, plans)
}

// CreatePlan godoc
// @Summary      Create a subscription plan
// @Accept       json
// @Produce      json
// @Tags         Admin
// @Param        CreatePlanRequestBody  body      CreatePlanRequestBody  true  "Plan"
// @Success      200                    {object}  models.SubscriptionPlan
// @Failure      400                    {object}  responses.ErrorResponse
// @Router       /api/admin/plans [post]
// @Security     OAuth2Password
func (controller *SettingsController) CreatePlan(c echo.Context) error {
	var body CreatePlanRequestBody
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, responses.BadArgumentsError)
	}
	if err := c.Validate(&body); err != nil {
		return c.JSON(http.StatusBadRequest, responses.BadArgumentsError)
	}
	plan, err := controller.svc.CreatePlan(c.Request().Context(), &models.SubscriptionPlan{
		Name:         body.Name,
		Description:  body.Description,
		Price:        body.Price,
		DurationDays: body.DurationDays,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, plan)
}
