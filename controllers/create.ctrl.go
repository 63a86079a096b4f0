package controllers

import (
	"errors"
	"net/http"

	"github.com/kinterstore/qrishub.go/common"
	"github.com/kinterstore/qrishub.go/lib/responses"
	"github.com/kinterstore/qrishub.go/lib/service"
	"github.com/labstack/echo/v4"
)

// CreateUserController : Create user controller struct
type CreateUserController struct {
	svc *service.QrishubService
}

func NewCreateUserController(svc *service.QrishubService) *CreateUserController {
	return &CreateUserController{svc: svc}
}

type CreateUserRequestBody struct {
	Login    string `json:"login" validate:"required,min=3,max=64"`
	Password string `json:"password" validate:"required"`
	Email    string `json:"email" validate:"omitempty,email"`
}

type CreateAdminUserRequestBody struct {
	CreateUserRequestBody
	Role string `json:"role" validate:"omitempty,oneof=user admin"`
}

type CreateUserResponseBody struct {
	ID    int64  `json:"id"`
	Login string `json:"login"`
	Email string `json:"email,omitempty"`
	Role  string `json:"role"`
}

// Register godoc
// @Summary      Register
// @Description  Creates a user account
// @Accept       json
// @Produce      json
// @Tags         Auth
// @Param        CreateUserRequestBody  body      CreateUserRequestBody  true  "Account"
// @Success      200                    {object}  CreateUserResponseBody
// @Failure      400                    {object}  responses.ErrorResponse
// @Router       /api/register [post]
func (controller *CreateUserController) Register(c echo.Context) error {
	if !controller.svc.Config.AllowAccountCreation {
		return c.JSON(http.StatusForbidden, responses.AccountCreationDisabledError)
	}
	var body CreateUserRequestBody
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, responses.BadArgumentsError)
	}
	if err := c.Validate(&body); err != nil {
		return c.JSON(http.StatusBadRequest, responses.BadArgumentsError)
	}
	return controller.create(c, body, common.RoleUser)
}

// CreateUser godoc
// @Summary      Create a user
// @Description  Admin endpoint creating users or operators
// @Accept       json
// @Produce      json
// @Tags         Admin
// @Param        CreateAdminUserRequestBody  body      CreateAdminUserRequestBody  true  "Account"
// @Success      200                         {object}  CreateUserResponseBody
// @Failure      400                         {object}  responses.ErrorResponse
// @Router       /api/admin/users [post]
// @Security     OAuth2Password
func (controller *CreateUserController) CreateUser(c echo.Context) error {
	var body CreateAdminUserRequestBody
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, responses.BadArgumentsError)
	}
	if err := c.Validate(&body); err != nil {
		return c.JSON(http.StatusBadRequest, responses.BadArgumentsError)
	}
	return controller.create(c, body.CreateUserRequestBody, body.Role)
}

func (controller *CreateUserController) create(c echo.Context, body CreateUserRequestBody, role string) error {
	user, err := controller.svc.CreateUser(c.Request().Context(), body.Login, body.Password, body.Email, role)
	if errors.Is(err, service.ErrPasswordTooWeak) {
		return c.JSON(http.StatusBadRequest, responses.BadArgumentsError)
	}
	if err != nil {
		c.Logger().Errorf("Failed to create user %s: %v", body.Login, err)
		return c.JSON(http.StatusBadRequest, responses.BadArgumentsError)
	}
	return c.JSON(http.StatusOK, &CreateUserResponseBody{
		ID:    user.ID,
		Login: user.Login,
		Email: user.Email,
		Role:  user.Role,
	})
}
