package service

import (
	"context"
	"fmt"
	"time"

	"github.com/kinterstore/qrishub.go/common"
	"github.com/kinterstore/qrishub.go/db/models"
	"github.com/kinterstore/qrishub.go/lib/security"
	passwordvalidator "github.com/wagslane/go-password-validator"
)

type UserProfile struct {
	User         *models.User         `json:"user"`
	Subscription *models.Subscription `json:"subscription,omitempty"`
	Active       bool                 `json:"active"`
}

func (svc *QrishubService) CreateUser(ctx context.Context, login, password, email, role string) (user *models.User, err error) {

	user = &models.User{Email: email, Role: role}
	if user.Role == "" {
		user.Role = common.RoleUser
	}

	// generate user login/password if not provided
	user.Login = login
	if login == "" {
		randLoginBytes, err := randBytesFromStr(20, alphaNumBytes)
		if err != nil {
			return nil, err
		}
		user.Login = string(randLoginBytes)
	}

	if password == "" {
		randPasswordBytes, err := randBytesFromStr(20, alphaNumBytes)
		if err != nil {
			return nil, err
		}
		password = string(randPasswordBytes)
	} else {
		if svc.Config.MinPasswordEntropy > 0 {
			entropy := passwordvalidator.GetEntropy(password)
			if entropy < float64(svc.Config.MinPasswordEntropy) {
				return nil, fmt.Errorf("%w: (%f), required is %d", ErrPasswordTooWeak, entropy, svc.Config.MinPasswordEntropy)
			}
		}
	}

	// we only store the hashed password but return the initial plain text password in the HTTP response
	user.Password = security.HashPassword(password)

	if _, err := svc.DB.NewInsert().Model(user).Exec(ctx); err != nil {
		return nil, err
	}
	//return actual password in the response, not the hashed one
	user.Password = password
	return user, nil
}

// DeleteUser soft-deletes a user; outstanding tokens stop working on the next
// request and refresh answers USER_DELETED.
func (svc *QrishubService) DeleteUser(ctx context.Context, userId int64) error {
	res, err := svc.DB.NewUpdate().Model(&models.User{}).
		Set("deleted = ?", true).
		Set("updated_at = ?", time.Now()).
		Where("id = ?", userId).
		Exec(ctx)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrUserDeleted
	}
	return nil
}

func (svc *QrishubService) FindUser(ctx context.Context, userId int64) (*models.User, error) {
	var user models.User

	err := svc.DB.NewSelect().Model(&user).Where("id = ?", userId).Limit(1).Scan(ctx)
	if err != nil {
		return &user, err
	}
	return &user, nil
}

func (svc *QrishubService) FindUserByLogin(ctx context.Context, login string) (*models.User, error) {
	var user models.User

	err := svc.DB.NewSelect().Model(&user).Where("login = ?", login).Limit(1).Scan(ctx)
	if err != nil {
		return &user, err
	}
	return &user, nil
}

// UserExists is used by the auth guard on every secured request.
func (svc *QrishubService) UserExists(ctx context.Context, userId int64) (bool, error) {
	return svc.DB.NewSelect().Model((*models.User)(nil)).
		Where("id = ?", userId).
		Where("deleted = ?", false).
		Exists(ctx)
}

func (svc *QrishubService) UserProfile(ctx context.Context, userId int64) (*UserProfile, error) {
	user, err := svc.FindUser(ctx, userId)
	if err != nil {
		return nil, err
	}
	sub, err := svc.ActiveSubscription(ctx, userId)
	if err != nil {
		return nil, err
	}
	return &UserProfile{
		User:         user,
		Subscription: sub,
		Active:       sub != nil,
	}, nil
}
