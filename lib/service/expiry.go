package service

import (
	"context"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/kinterstore/qrishub.go/common"
	"github.com/kinterstore/qrishub.go/db/models"
)

// ExpireOverdueTransactions moves every UNPAID transaction past its expiry to
// EXPIRED and publishes each one.
func (svc *QrishubService) ExpireOverdueTransactions(ctx context.Context) (int, error) {
	expired := []models.Transaction{}
	now := time.Now()
	_, err := svc.DB.NewUpdate().Model((*models.Transaction)(nil)).
		Set("status = ?", common.TransactionStatusExpired).
		Set("updated_at = ?", now).
		Where("status = ?", common.TransactionStatusUnpaid).
		Where("expired_at IS NOT NULL").
		Where("expired_at <= ?", now).
		Returning("*").
		Exec(ctx, &expired)
	if err != nil {
		return 0, err
	}
	for _, t := range expired {
		svc.TransactionPubSub.PublishTransaction(t)
	}
	return len(expired), nil
}

// StartExpiryRoutine sweeps until ctx is cancelled.
func (svc *QrishubService) StartExpiryRoutine(ctx context.Context) error {
	interval := svc.Config.Payment.SweepInterval()
	svc.Logger.Infof("Starting transaction expiry routine, sweeping every %s", interval)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	svc.sweep(ctx)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			svc.sweep(ctx)
		}
	}
}

func (svc *QrishubService) sweep(ctx context.Context) {
	count, err := svc.ExpireOverdueTransactions(ctx)
	if err != nil {
		if ctx.Err() == nil {
			svc.Logger.Error(err)
			sentry.CaptureException(err)
		}
		return
	}
	if count > 0 {
		svc.Logger.Infof("Expired %d overdue transactions", count)
	}
	lapsed, err := svc.ExpireSubscriptions(ctx)
	if err != nil {
		if ctx.Err() == nil {
			svc.Logger.Error(err)
		}
		return
	}
	if lapsed > 0 {
		svc.Logger.Infof("Expired %d lapsed subscriptions", lapsed)
	}
}
