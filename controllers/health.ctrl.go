package controllers

import (
	"net/http"

	"github.com/kinterstore/qrishub.go/lib/service"
	"github.com/labstack/echo/v4"
)

type HealthController struct {
	svc *service.QrishubService
}

func NewHealthController(svc *service.QrishubService) *HealthController {
	return &HealthController{svc: svc}
}

type HealthResponseBody struct {
	Status   string `json:"status"`
	Database bool   `json:"database"`
}

// Health reports whether the database answers.
func (controller *HealthController) Health(c echo.Context) error {
	if err := controller.svc.DB.PingContext(c.Request().Context()); err != nil {
		c.Logger().Errorf("Health check failed: %v", err)
		return c.JSON(http.StatusServiceUnavailable, &HealthResponseBody{Status: "unavailable"})
	}
	return c.JSON(http.StatusOK, &HealthResponseBody{Status: "ok", Database: true})
}
