package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/kinterstore/qrishub.go/db/models"
	"github.com/uptrace/bun"
)

// QrisSettings returns the active settings, creating defaults on first read.
func (svc *QrishubService) QrisSettings(ctx context.Context) (*models.QrisSettings, error) {
	settings := &models.QrisSettings{}
	err := svc.DB.NewSelect().Model(settings).
		Where("active = ?", true).
		OrderExpr("id DESC").
		Limit(1).
		Scan(ctx)
	if err == nil {
		return settings, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	settings = &models.QrisSettings{
		ExpiryHours: svc.Config.Payment.ExpiryHours,
		Active:      true,
	}
	if _, err := svc.DB.NewInsert().Model(settings).Exec(ctx); err != nil {
		return nil, err
	}
	return settings, nil
}

func (svc *QrishubService) SaveQrisSettings(ctx context.Context, in *models.QrisSettings) (*models.QrisSettings, error) {
	current, err := svc.QrisSettings(ctx)
	if err != nil {
		return nil, err
	}
	current.MerchantName = in.MerchantName
	current.QrString = in.QrString
	current.QrImageUrl = in.QrImageUrl
	current.Instructions = in.Instructions
	if in.ExpiryHours > 0 {
		current.ExpiryHours = in.ExpiryHours
	}
	_, err = svc.DB.NewUpdate().Model(current).
		Column("merchant_name", "qr_string", "qr_image_url", "instructions", "expiry_hours", "updated_at").
		WherePK().
		Exec(ctx)
	if err != nil {
		return nil, err
	}
	return current, nil
}

func (svc *QrishubService) Plans(ctx context.Context) ([]models.SubscriptionPlan, error) {
	plans := []models.SubscriptionPlan{}
	err := svc.DB.NewSelect().Model(&plans).
		Where("active = ?", true).
		OrderExpr("price ASC").
		Scan(ctx)
	return plans, err
}

func (svc *QrishubService) FindActivePlan(ctx context.Context, planId int64) (*models.SubscriptionPlan, error) {
	plan := &models.SubscriptionPlan{}
	err := svc.DB.NewSelect().Model(plan).
		Where("id = ?", planId).
		Where("active = ?", true).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrPlanNotFound
	}
	if err != nil {
		return nil, err
	}
	return plan, nil
}

// FindPlan loads a plan regardless of whether it is still sold.
func (svc *QrishubService) FindPlan(ctx context.Context, db bun.IDB, planId int64) (*models.SubscriptionPlan, error) {
	plan := &models.SubscriptionPlan{}
	err := db.NewSelect().Model(plan).Where("id = ?", planId).Limit(1).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrPlanNotFound
	}
	return plan, err
}

func (svc *QrishubService) CreatePlan(ctx context.Context, plan *models.SubscriptionPlan) (*models.SubscriptionPlan, error) {
	plan.Active = true
	if _, err := svc.DB.NewInsert().Model(plan).Exec(ctx); err != nil {
		return nil, err
	}
	return plan, nil
}
