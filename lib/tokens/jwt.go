package tokens

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt"
	"github.com/kinterstore/qrishub.go/db/models"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

var ErrRefreshTokenExpected = errors.New("refresh token expected")

type jwtCustomClaims struct {
	ID        int64  `json:"id"`
	Role      string `json:"role"`
	IsRefresh bool   `json:"isRefresh"`
	jwt.StandardClaims
}

// Middleware validates the bearer access token and exposes UserID and UserRole
// on the echo context.
func Middleware(secret []byte) echo.MiddlewareFunc {
	config := middleware.DefaultJWTConfig
	config.ContextKey = "UserJwt"
	config.SigningKey = secret
	config.ParseTokenFunc = func(auth string, c echo.Context) (interface{}, error) {
		token, claims, err := parse(secret, auth)
		if err != nil {
			return nil, err
		}
		if claims.IsRefresh {
			return nil, fmt.Errorf("refresh token used as access token")
		}
		return token, nil
	}
	config.ErrorHandlerWithContext = func(err error, c echo.Context) error {
		c.Logger().Error(err)
		return echo.NewHTTPError(http.StatusUnauthorized, echo.Map{
			"error":   true,
			"code":    1,
			"message": "bad auth",
		})
	}
	config.SuccessHandler = func(c echo.Context) {
		token := c.Get("UserJwt").(*jwt.Token)
		claims := token.Claims.(*jwtCustomClaims)
		c.Set("UserID", claims.ID)
		c.Set("UserRole", claims.Role)
	}
	return middleware.JWTWithConfig(config)
}

// GenerateAccessToken : Generate Access Token
func GenerateAccessToken(secret []byte, expiryInSeconds int, u *models.User) (string, error) {
	return generate(secret, expiryInSeconds, u, false)
}

// GenerateRefreshToken : Generate Refresh Token
func GenerateRefreshToken(secret []byte, expiryInSeconds int, u *models.User) (string, error) {
	return generate(secret, expiryInSeconds, u, true)
}

func generate(secret []byte, expiryInSeconds int, u *models.User, isRefresh bool) (string, error) {
	claims := &jwtCustomClaims{
		ID:        u.ID,
		Role:      u.Role,
		IsRefresh: isRefresh,
		StandardClaims: jwt.StandardClaims{
			ExpiresAt: time.Now().Add(time.Second * time.Duration(expiryInSeconds)).Unix(),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	t, err := token.SignedString(secret)
	if err != nil {
		return "", err
	}
	return t, nil
}

// ParseToken returns the user id of a valid access token.
func ParseToken(secret []byte, token string) (int64, error) {
	_, claims, err := parse(secret, token)
	if err != nil {
		return -1, err
	}
	if claims.IsRefresh {
		return -1, fmt.Errorf("refresh token used as access token")
	}
	return claims.ID, nil
}

// ParseRefreshToken returns the user id of a valid refresh token.
func ParseRefreshToken(secret []byte, token string) (int64, error) {
	_, claims, err := parse(secret, token)
	if err != nil {
		return -1, err
	}
	if !claims.IsRefresh {
		return -1, ErrRefreshTokenExpected
	}
	return claims.ID, nil
}

func parse(secret []byte, tokenString string) (*jwt.Token, *jwtCustomClaims, error) {
	claims := &jwtCustomClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return secret, nil
	})
	if err != nil {
		return nil, nil, err
	}
	if !token.Valid {
		return nil, nil, fmt.Errorf("invalid token")
	}
	return token, claims, nil
}
