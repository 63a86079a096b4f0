package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/kinterstore/qrishub.go/common"
	"github.com/kinterstore/qrishub.go/db/models"
	"github.com/uptrace/bun"
)

// ActivateSubscription extends the user's running subscription by the plan
// duration, or starts a new one when none is running.
func (svc *QrishubService) ActivateSubscription(ctx context.Context, db bun.IDB, userId int64, plan *models.SubscriptionPlan, transactionId int64) (*models.Subscription, error) {
	now := time.Now()
	duration := time.Duration(plan.DurationDays) * 24 * time.Hour

	current := &models.Subscription{}
	err := db.NewSelect().Model(current).
		Where("user_id = ?", userId).
		Where("status = ?", common.SubscriptionStatusActive).
		Where("ends_at > ?", now).
		OrderExpr("ends_at DESC").
		Limit(1).
		For("UPDATE").
		Scan(ctx)
	switch {
	case err == nil:
		current.EndsAt = current.EndsAt.Add(duration)
		current.PlanID = plan.ID
		current.TransactionID = transactionId
		_, err = db.NewUpdate().Model(current).
			Column("ends_at", "plan_id", "transaction_id", "updated_at").
			WherePK().
			Exec(ctx)
		if err != nil {
			return nil, err
		}
		return current, nil
	case errors.Is(err, sql.ErrNoRows):
		sub := &models.Subscription{
			UserID:        userId,
			PlanID:        plan.ID,
			TransactionID: transactionId,
			Status:        common.SubscriptionStatusActive,
			StartsAt:      now,
			EndsAt:        now.Add(duration),
		}
		if _, err := db.NewInsert().Model(sub).Exec(ctx); err != nil {
			return nil, err
		}
		return sub, nil
	default:
		return nil, err
	}
}

// ActiveSubscription returns nil without error when the user has none.
func (svc *QrishubService) ActiveSubscription(ctx context.Context, userId int64) (*models.Subscription, error) {
	sub := &models.Subscription{}
	err := svc.DB.NewSelect().Model(sub).
		Relation("Plan").
		Where("?TableAlias.user_id = ?", userId).
		Where("?TableAlias.status = ?", common.SubscriptionStatusActive).
		Where("?TableAlias.ends_at > ?", time.Now()).
		OrderExpr("?TableAlias.ends_at DESC").
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return sub, nil
}

// ExpireSubscriptions flips lapsed subscriptions to expired.
func (svc *QrishubService) ExpireSubscriptions(ctx context.Context) (int64, error) {
	res, err := svc.DB.NewUpdate().Model((*models.Subscription)(nil)).
		Set("status = ?", common.SubscriptionStatusExpired).
		Set("updated_at = ?", time.Now()).
		Where("status = ?", common.SubscriptionStatusActive).
		Where("ends_at <= ?", time.Now()).
		Exec(ctx)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
