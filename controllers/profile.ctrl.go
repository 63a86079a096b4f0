package controllers

import (
	"net/http"

	"github.com/kinterstore/qrishub.go/db/models"
	"github.com/kinterstore/qrishub.go/lib/service"
	"github.com/labstack/echo/v4"
)

// ProfileController : user profile and subscription state
type ProfileController struct {
	svc *service.QrishubService
}

func NewProfileController(svc *service.QrishubService) *ProfileController {
	return &ProfileController{svc: svc}
}

type ConnectionStatusResponseBody struct {
	Connected    bool                 `json:"connected"`
	Subscription *models.Subscription `json:"subscription"`
}

// Profile godoc
// @Summary      User profile
// @Description  The user and the running subscription, if any
// @Produce      json
// @Tags         Account
// @Success      200  {object}  service.UserProfile
// @Router       /api/user/profile [get]
// @Security     OAuth2Password
func (controller *ProfileController) Profile(c echo.Context) error {
	userId := c.Get("UserID").(int64)
	profile, err := controller.svc.UserProfile(c.Request().Context(), userId)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, profile)
}

// ConnectionStatus godoc
// @Summary      Connection status
// @Description  Subscription gated. Answers 403 with subscriptionRequired when no subscription is running.
// @Produce      json
// @Tags         Account
// @Success      200  {object}  ConnectionStatusResponseBody
// @Failure      403  {object}  responses.MarkedErrorResponse
// @Router       /api/connection/status [get]
// @Security     OAuth2Password
func (controller *ProfileController) ConnectionStatus(c echo.Context) error {
	sub, _ := c.Get("Subscription").(*models.Subscription)
	return c.JSON(http.StatusOK, &ConnectionStatusResponseBody{
		Connected:    sub != nil,
		Subscription: sub,
	})
}
