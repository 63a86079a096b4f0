package controllers

import (
	"net/http"

	"github.com/kinterstore/qrishub.go/lib/responses"
	"github.com/kinterstore/qrishub.go/lib/service"
	"github.com/labstack/echo/v4"
)

// AuthController : AuthController struct
type AuthController struct {
	svc *service.QrishubService
}

func NewAuthController(svc *service.QrishubService) *AuthController {
	return &AuthController{
		svc: svc,
	}
}

type AuthRequestBody struct {
	Login    string `json:"login"`
	Password string `json:"password"`
}

type AuthResponseBody struct {
	RefreshToken string `json:"refresh_token"`
	AccessToken  string `json:"access_token"`
}

type RefreshRequestBody struct {
	Token string `json:"token" validate:"required"`
}

type RefreshResponseBody struct {
	Token string `json:"token"`
}

// Login godoc
// @Summary      Authenticate
// @Description  Exchanges login and password for an access and a refresh token
// @Accept       json
// @Produce      json
// @Tags         Auth
// @Param        AuthRequestBody  body      AuthRequestBody  true  "Credentials"
// @Success      200              {object}  AuthResponseBody
// @Failure      400              {object}  responses.ErrorResponse
// @Failure      401              {object}  responses.ErrorResponse
// @Router       /api/login [post]
func (controller *AuthController) Login(c echo.Context) error {

	var body AuthRequestBody

	if err := c.Bind(&body); err != nil {
		c.Logger().Errorf("Failed to load auth user request body: %v", err)
		return c.JSON(http.StatusBadRequest, responses.BadArgumentsError)
	}

	if body.Login == "" || body.Password == "" {
		// To support Swagger we also look in the Form data
		params, err := c.FormParams()
		if err != nil {
			return err
		}
		username := params.Get("username")
		password := params.Get("password")
		if username != "" && password != "" {
			body.Login = username
			body.Password = password
		}
	}

	accessToken, refreshToken, err := controller.svc.GenerateToken(c.Request().Context(), body.Login, body.Password)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, responses.BadAuthError)
	}

	return c.JSON(http.StatusOK, &AuthResponseBody{
		RefreshToken: refreshToken,
		AccessToken:  accessToken,
	})
}

// Refresh godoc
// @Summary      Refresh the access token
// @Description  Issues a new access token. A deleted user is answered with code USER_DELETED.
// @Accept       json
// @Produce      json
// @Tags         Auth
// @Param        RefreshRequestBody  body      RefreshRequestBody  true  "Refresh token"
// @Success      200                 {object}  RefreshResponseBody
// @Failure      401                 {object}  responses.MarkedErrorResponse
// @Router       /api/user/refresh [post]
func (controller *AuthController) Refresh(c echo.Context) error {
	var body RefreshRequestBody
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, responses.BadArgumentsError)
	}
	if err := c.Validate(&body); err != nil {
		return c.JSON(http.StatusBadRequest, responses.BadArgumentsError)
	}
	token, err := controller.svc.RefreshAccessToken(c.Request().Context(), body.Token)
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(http.StatusOK, &RefreshResponseBody{Token: token})
}
