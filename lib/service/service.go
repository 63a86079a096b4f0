package service

import (
	"context"
	"fmt"

	"github.com/kinterstore/qrishub.go/db/models"
	"github.com/kinterstore/qrishub.go/lib/idempotency"
	"github.com/kinterstore/qrishub.go/lib/tokens"
	"github.com/kinterstore/qrishub.go/rabbitmq"
	"github.com/kinterstore/qrishub.go/tripay"
	"github.com/uptrace/bun"
	"github.com/ziflex/lecho/v3"
	"golang.org/x/crypto/bcrypt"
)

type QrishubService struct {
	Config            *Config
	DB                *bun.DB
	Logger            *lecho.Logger
	Gateway           tripay.Client
	Idempotency       idempotency.Store
	TransactionPubSub *Pubsub
	RabbitMQClient    rabbitmq.Client
}

func (svc *QrishubService) idempotencyStore() idempotency.Store {
	if svc.Idempotency == nil {
		return idempotency.NopStore{}
	}
	return svc.Idempotency
}

func (svc *QrishubService) GenerateToken(ctx context.Context, login, password string) (accessToken, refreshToken string, err error) {
	var user models.User

	if login == "" || password == "" {
		return "", "", fmt.Errorf("login and password are required")
	}
	if err := svc.DB.NewSelect().Model(&user).Where("login = ?", login).Scan(ctx); err != nil {
		return "", "", ErrBadAuth
	}
	if user.Deleted {
		return "", "", ErrBadAuth
	}
	if bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)) != nil {
		return "", "", ErrBadAuth
	}
	return svc.issueTokens(&user)
}

// RefreshAccessToken exchanges a refresh token for a fresh access token. A
// token of a deleted user yields ErrUserDeleted so the client logs out.
func (svc *QrishubService) RefreshAccessToken(ctx context.Context, refreshToken string) (string, error) {
	userId, err := tokens.ParseRefreshToken(svc.Config.JWTSecret, refreshToken)
	if err != nil {
		return "", ErrBadAuth
	}
	user, err := svc.FindUser(ctx, userId)
	if err != nil {
		return "", ErrUserDeleted
	}
	if user.Deleted {
		return "", ErrUserDeleted
	}
	return tokens.GenerateAccessToken(svc.Config.JWTSecret, svc.Config.JWTAccessTokenExpiry, user)
}

func (svc *QrishubService) issueTokens(user *models.User) (accessToken, refreshToken string, err error) {
	accessToken, err = tokens.GenerateAccessToken(svc.Config.JWTSecret, svc.Config.JWTAccessTokenExpiry, user)
	if err != nil {
		return "", "", err
	}

	refreshToken, err = tokens.GenerateRefreshToken(svc.Config.JWTSecret, svc.Config.JWTRefreshTokenExpiry, user)
	if err != nil {
		return "", "", err
	}
	return accessToken, refreshToken, nil
}
