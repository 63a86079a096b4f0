package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/kinterstore/qrishub.go/common"
	"github.com/kinterstore/qrishub.go/db/models"
	"github.com/kinterstore/qrishub.go/lib/proof"
	"github.com/kinterstore/qrishub.go/tripay"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/driver/pgdriver"
)

type CreateTransactionRequest struct {
	PlanID         int64  `json:"plan_id" validate:"required,gt=0"`
	PaymentType    string `json:"payment_type" validate:"omitempty,oneof=manual tripay"`
	PaymentMethod  string `json:"payment_method"`
	IdempotencyKey string `json:"-"`
}

type transition struct {
	Status        string
	FailureReason string
	VerifiedBy    int64
	Note          string
}

func (svc *QrishubService) CreateTransaction(ctx context.Context, userId int64, req *CreateTransactionRequest) (t *models.Transaction, created bool, err error) {
	plan, err := svc.FindActivePlan(ctx, req.PlanID)
	if err != nil {
		return nil, false, err
	}

	if req.IdempotencyKey != "" {
		existing, err := svc.findByIdempotencyKey(ctx, userId, req.IdempotencyKey)
		if err == nil {
			return existing, false, nil
		}
		if !errors.Is(err, ErrTransactionNotFound) {
			return nil, false, err
		}
	}

	now := time.Now()
	t = &models.Transaction{
		UserID:         userId,
		PlanID:         plan.ID,
		MerchantRef:    newMerchantRef(userId, now),
		Amount:         plan.Price,
		Status:         common.TransactionStatusUnpaid,
		IdempotencyKey: req.IdempotencyKey,
	}
	t.Reference, err = newReference(now)
	if err != nil {
		return nil, false, err
	}

	if req.IdempotencyKey != "" {
		existingRef, err := svc.idempotencyStore().Reserve(ctx, userId, req.IdempotencyKey, t.Reference)
		if err != nil {
			// the DB index still guards duplicates
			svc.Logger.Errorf("idempotency reservation failed for user %d: %v", userId, err)
		} else if existingRef != "" {
			existing, err := svc.FindTransaction(ctx, userId, existingRef)
			if err != nil {
				return nil, false, ErrIdempotencyInFlight
			}
			return existing, false, nil
		}
	}

	switch req.PaymentType {
	case common.PaymentTypeTripay:
		err = svc.prepareGatewayTransaction(ctx, t, plan, req.PaymentMethod, now)
	default:
		err = svc.prepareManualTransaction(ctx, t, now)
	}
	if err != nil {
		svc.releaseIdempotencyKey(ctx, userId, req.IdempotencyKey)
		return nil, false, err
	}
	t.ComputeTotal()

	if _, err := svc.DB.NewInsert().Model(t).Exec(ctx); err != nil {
		var pgErr pgdriver.Error
		if req.IdempotencyKey != "" && errors.As(err, &pgErr) && pgErr.IntegrityViolation() {
			existing, findErr := svc.findByIdempotencyKey(ctx, userId, req.IdempotencyKey)
			if findErr == nil {
				return existing, false, nil
			}
		}
		svc.releaseIdempotencyKey(ctx, userId, req.IdempotencyKey)
		return nil, false, err
	}

	svc.Logger.Infof("Created %s transaction %s for user %d total %s", t.PaymentType, t.Reference, userId, t.TotalAmount)
	svc.TransactionPubSub.PublishTransaction(*t)
	return t, true, nil
}

func (svc *QrishubService) releaseIdempotencyKey(ctx context.Context, userId int64, key string) {
	if key == "" {
		return
	}
	if err := svc.idempotencyStore().Release(ctx, userId, key); err != nil {
		svc.Logger.Errorf("could not release idempotency key for user %d: %v", userId, err)
	}
}

func (svc *QrishubService) prepareManualTransaction(ctx context.Context, t *models.Transaction, now time.Time) error {
	settings, err := svc.QrisSettings(ctx)
	if err != nil {
		return err
	}
	t.PaymentType = common.PaymentTypeManual
	t.PaymentMethod = common.PaymentMethodQris
	t.PaymentName = "QRIS"
	t.AccountName = settings.MerchantName
	t.QrString = settings.QrString
	t.QrUrl = settings.QrImageUrl
	t.Instructions = settings.Instructions
	t.ExpiredAt = bun.NullTime{Time: now.Add(svc.Config.Payment.Expiry(settings.ExpiryHours))}
	if svc.Config.Payment.UniqueCode {
		// a small surcharge lets the operator match the transfer to the order
		code, err := randInt(1, 999)
		if err != nil {
			return err
		}
		t.Fee = models.Amount(code)
	}
	return nil
}

func (svc *QrishubService) prepareGatewayTransaction(ctx context.Context, t *models.Transaction, plan *models.SubscriptionPlan, method string, now time.Time) error {
	if svc.Gateway == nil {
		return ErrGatewayNotConfigured
	}
	if method == "" {
		method = common.PaymentMethodQris
	}
	user, err := svc.FindUser(ctx, t.UserID)
	if err != nil {
		return err
	}
	customerName := user.Login
	customerEmail := user.Email
	if customerEmail == "" {
		customerEmail = fmt.Sprintf("%s@users.noreply", user.Login)
	}
	expiresAt := now.Add(svc.Config.Payment.Expiry(0))
	gtx, err := svc.Gateway.CreateTransaction(ctx, &tripay.CreateTransactionRequest{
		Method:        method,
		MerchantRef:   t.MerchantRef,
		Amount:        plan.Price.Whole(),
		CustomerName:  customerName,
		CustomerEmail: customerEmail,
		OrderItems: []tripay.OrderItem{{
			Sku:      fmt.Sprintf("PLAN-%d", plan.ID),
			Name:     plan.Name,
			Price:    plan.Price.Whole(),
			Quantity: 1,
		}},
		ExpiredTime: expiresAt.Unix(),
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrGatewayFailure, err)
	}

	t.PaymentType = common.PaymentTypeTripay
	t.Reference = gtx.Reference
	t.PaymentMethod = gtx.PaymentMethod
	t.PaymentName = gtx.PaymentName
	t.Fee = models.AmountFromWhole(gtx.FeeCustomer)
	t.PaymentCode = gtx.PayCode
	t.QrString = gtx.QrString
	t.QrUrl = gtx.QrUrl
	t.Instructions = tripay.FormatInstructions(gtx.Instructions)
	if at := gtx.ExpiresAt(); !at.IsZero() {
		expiresAt = at
	}
	t.ExpiredAt = bun.NullTime{Time: expiresAt}
	t.Raw = toRaw(gtx)
	return nil
}

func toRaw(v interface{}) map[string]interface{} {
	raw := map[string]interface{}{}
	b, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return nil
	}
	return raw
}

// FindTransaction loads a transaction owned by userId.
func (svc *QrishubService) FindTransaction(ctx context.Context, userId int64, reference string) (*models.Transaction, error) {
	t := &models.Transaction{}
	err := svc.DB.NewSelect().Model(t).
		Where("reference = ?", reference).
		Where("user_id = ?", userId).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrTransactionNotFound
	}
	if err != nil {
		return nil, err
	}
	return t, nil
}

func (svc *QrishubService) FindTransactionByReference(ctx context.Context, reference string) (*models.Transaction, error) {
	t := &models.Transaction{}
	err := svc.DB.NewSelect().Model(t).Where("reference = ?", reference).Limit(1).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrTransactionNotFound
	}
	if err != nil {
		return nil, err
	}
	return t, nil
}

func (svc *QrishubService) FindTransactionById(ctx context.Context, id int64) (*models.Transaction, error) {
	t := &models.Transaction{}
	err := svc.DB.NewSelect().Model(t).Relation("User").Where("?TableAlias.id = ?", id).Limit(1).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrTransactionNotFound
	}
	if err != nil {
		return nil, err
	}
	return t, nil
}

func (svc *QrishubService) findByIdempotencyKey(ctx context.Context, userId int64, key string) (*models.Transaction, error) {
	t := &models.Transaction{}
	err := svc.DB.NewSelect().Model(t).
		Where("user_id = ?", userId).
		Where("idempotency_key = ?", key).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrTransactionNotFound
	}
	if err != nil {
		return nil, err
	}
	return t, nil
}

// CheckTransaction returns the current state of a user's transaction,
// expiring it on the spot when overdue and consulting the gateway for
// gateway transactions that are still unpaid.
func (svc *QrishubService) CheckTransaction(ctx context.Context, userId int64, reference string) (*models.Transaction, error) {
	t, err := svc.FindTransaction(ctx, userId, reference)
	if err != nil {
		return nil, err
	}
	if t.Status != common.TransactionStatusUnpaid {
		return t, nil
	}
	if t.IsOverdue(time.Now()) {
		return svc.settleOrReload(ctx, t, svc.transition(ctx, svc.DB, t, transition{Status: common.TransactionStatusExpired}))
	}
	if t.PaymentType == common.PaymentTypeTripay && svc.Gateway != nil {
		gtx, err := svc.Gateway.TransactionDetail(ctx, t.Reference)
		if err != nil {
			// the stored state is still authoritative
			svc.Logger.Errorf("gateway status lookup for %s failed: %v", t.Reference, err)
			return t, nil
		}
		return svc.ApplyGatewayStatus(ctx, t, gtx.Status)
	}
	return t, nil
}

// settleOrReload turns a lost transition race into the winner's state.
func (svc *QrishubService) settleOrReload(ctx context.Context, t *models.Transaction, err error) (*models.Transaction, error) {
	if errors.Is(err, ErrTransactionFinalized) {
		return svc.FindTransactionByReference(ctx, t.Reference)
	}
	if err != nil {
		return nil, err
	}
	return t, nil
}

// ApplyGatewayStatus moves an unpaid transaction according to a gateway
// status. Unknown or UNPAID statuses leave it untouched.
func (svc *QrishubService) ApplyGatewayStatus(ctx context.Context, t *models.Transaction, gatewayStatus string) (*models.Transaction, error) {
	status, reason, ok := tripay.MapStatus(gatewayStatus)
	if !ok || t.Status != common.TransactionStatusUnpaid {
		return t, nil
	}
	if status == common.TransactionStatusPaid {
		return svc.settleOrReload(ctx, t, svc.settle(ctx, t, transition{Status: status}))
	}
	return svc.settleOrReload(ctx, t, svc.transition(ctx, svc.DB, t, transition{Status: status, FailureReason: reason}))
}

// HandleGatewayCallback applies a signed gateway callback.
func (svc *QrishubService) HandleGatewayCallback(ctx context.Context, payload *tripay.CallbackPayload) (*models.Transaction, error) {
	t, err := svc.FindTransactionByReference(ctx, payload.Reference)
	if err != nil {
		return nil, err
	}
	if t.PaymentType != common.PaymentTypeTripay {
		return nil, ErrTransactionNotFound
	}
	svc.Logger.Infof("Gateway callback for %s: %s", payload.Reference, payload.Status)
	return svc.ApplyGatewayStatus(ctx, t, payload.Status)
}

func (svc *QrishubService) UploadProof(ctx context.Context, userId int64, reference string, content []byte) (*models.Transaction, error) {
	t, err := svc.FindTransaction(ctx, userId, reference)
	if err != nil {
		return nil, err
	}
	if t.Status != common.TransactionStatusUnpaid {
		return nil, ErrTransactionFinalized
	}
	if t.PaymentType != common.PaymentTypeManual {
		return nil, ErrManualPaymentOnly
	}
	if t.IsOverdue(time.Now()) {
		if _, err := svc.settleOrReload(ctx, t, svc.transition(ctx, svc.DB, t, transition{Status: common.TransactionStatusExpired})); err != nil {
			return nil, err
		}
		return nil, ErrTransactionExpired
	}
	mimeType, err := proof.Validate(content, svc.Config.Payment.MaxProofSize)
	if errors.Is(err, proof.ErrTooLarge) {
		return nil, fmt.Errorf("%w: %v", ErrProofTooLarge, err)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidProof, err)
	}

	now := time.Now()
	res, err := svc.DB.NewUpdate().Model((*models.Transaction)(nil)).
		Set("payment_proof = ?", proof.DataURL(mimeType, content)).
		Set("proof_uploaded_at = ?", now).
		Set("updated_at = ?", now).
		Where("id = ?", t.ID).
		Where("status = ?", common.TransactionStatusUnpaid).
		Returning("*").
		Exec(ctx, t)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTransactionFinalized
		}
		return nil, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, ErrTransactionFinalized
	}
	svc.Logger.Infof("Payment proof uploaded for %s (%s, %d bytes)", t.Reference, mimeType, len(content))
	svc.TransactionPubSub.PublishTransaction(*t)
	return t, nil
}

// CancelTransaction is the user's own exit from an unpaid transaction.
func (svc *QrishubService) CancelTransaction(ctx context.Context, userId int64, reference string) (*models.Transaction, error) {
	t, err := svc.FindTransaction(ctx, userId, reference)
	if err != nil {
		return nil, err
	}
	if t.Status != common.TransactionStatusUnpaid {
		return nil, ErrTransactionFinalized
	}
	// an overdue payment ends as expired, not as cancelled
	if t.IsOverdue(time.Now()) {
		return svc.settleOrReload(ctx, t, svc.transition(ctx, svc.DB, t, transition{Status: common.TransactionStatusExpired}))
	}
	err = svc.transition(ctx, svc.DB, t, transition{
		Status:        common.TransactionStatusFailed,
		FailureReason: common.FailureReasonCancelled,
	})
	if err != nil {
		return nil, err
	}
	return t, nil
}

func (svc *QrishubService) TransactionsFor(ctx context.Context, userId int64, page, limit int) ([]models.Transaction, int, error) {
	transactions := []models.Transaction{}
	query := svc.listQuery(&transactions, limit, page).Where("user_id = ?", userId)
	total, err := query.ScanAndCount(ctx)
	if err != nil {
		return nil, 0, err
	}
	return transactions, total, nil
}

func (svc *QrishubService) AllTransactions(ctx context.Context, status string, page, limit int) ([]models.Transaction, int, error) {
	transactions := []models.Transaction{}
	query := svc.listQuery(&transactions, limit, page)
	if status != "" {
		query.Where("status = ?", status)
	}
	total, err := query.ScanAndCount(ctx)
	if err != nil {
		return nil, 0, err
	}
	return transactions, total, nil
}

// PendingTransactions lists what an operator can still act on, oldest first.
func (svc *QrishubService) PendingTransactions(ctx context.Context) ([]models.Transaction, error) {
	transactions := []models.Transaction{}
	err := svc.DB.NewSelect().Model(&transactions).
		ExcludeColumn("payment_proof").
		ColumnExpr("(payment_proof IS NOT NULL) AS has_payment_proof").
		Where("status = ?", common.TransactionStatusUnpaid).
		Where("payment_type = ?", common.PaymentTypeManual).
		WhereGroup(" AND ", func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.Where("expired_at IS NULL").WhereOr("expired_at > ?", time.Now())
		}).
		OrderExpr("created_at ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return transactions, nil
}

func (svc *QrishubService) listQuery(transactions *[]models.Transaction, limit, page int) *bun.SelectQuery {
	if limit <= 0 {
		limit = svc.Config.Payment.PageLimit
	}
	if limit <= 0 {
		limit = 20
	}
	return svc.DB.NewSelect().Model(transactions).
		ExcludeColumn("payment_proof").
		ColumnExpr("(payment_proof IS NOT NULL) AS has_payment_proof").
		OrderExpr("created_at DESC").
		Limit(limit).
		Offset(pageOffset(page, limit))
}

// VerifyTransaction applies an operator decision. Approval settles the
// transaction and activates the subscription atomically.
func (svc *QrishubService) VerifyTransaction(ctx context.Context, adminId, transactionId int64, action, note string) (*models.Transaction, error) {
	t, err := svc.FindTransactionById(ctx, transactionId)
	if err != nil {
		return nil, err
	}
	if t.Status != common.TransactionStatusUnpaid {
		return nil, ErrTransactionFinalized
	}
	switch action {
	case common.VerifyActionApprove:
		err = svc.settle(ctx, t, transition{Status: common.TransactionStatusPaid, VerifiedBy: adminId, Note: note})
	case common.VerifyActionReject:
		err = svc.transition(ctx, svc.DB, t, transition{
			Status:        common.TransactionStatusFailed,
			FailureReason: common.FailureReasonRejected,
			VerifiedBy:    adminId,
			Note:          note,
		})
	default:
		return nil, ErrInvalidAction
	}
	if err != nil {
		return nil, err
	}
	svc.Logger.Infof("Transaction %s %sd by admin %d", t.Reference, action, adminId)
	return t, nil
}

// settle marks a transaction PAID and activates the plan in one DB transaction.
func (svc *QrishubService) settle(ctx context.Context, t *models.Transaction, tr transition) error {
	err := svc.DB.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		if err := svc.applyTransition(ctx, tx, t, tr); err != nil {
			return err
		}
		plan, err := svc.FindPlan(ctx, tx, t.PlanID)
		if err != nil {
			return err
		}
		sub, err := svc.ActivateSubscription(ctx, tx, t.UserID, plan, t.ID)
		if err != nil {
			return err
		}
		t.SubscriptionID = sub.ID
		_, err = tx.NewUpdate().Model((*models.Transaction)(nil)).
			Set("subscription_id = ?", sub.ID).
			Where("id = ?", t.ID).
			Exec(ctx)
		return err
	})
	if err != nil {
		return err
	}
	svc.TransactionPubSub.PublishTransaction(*t)
	return nil
}

// transition is the single write path for status changes. It only matches
// UNPAID rows, so a terminal transaction can never move again.
func (svc *QrishubService) transition(ctx context.Context, db bun.IDB, t *models.Transaction, tr transition) error {
	if err := svc.applyTransition(ctx, db, t, tr); err != nil {
		return err
	}
	svc.TransactionPubSub.PublishTransaction(*t)
	return nil
}

func (svc *QrishubService) applyTransition(ctx context.Context, db bun.IDB, t *models.Transaction, tr transition) error {
	if !common.CanTransition(common.TransactionStatusUnpaid, tr.Status) {
		return fmt.Errorf("invalid target status %q", tr.Status)
	}
	now := time.Now()
	query := db.NewUpdate().Model((*models.Transaction)(nil)).
		Set("status = ?", tr.Status).
		Set("updated_at = ?", now)
	if tr.FailureReason != "" {
		query.Set("failure_reason = ?", tr.FailureReason)
	}
	if tr.Status == common.TransactionStatusPaid {
		query.Set("paid_at = ?", now)
	}
	if tr.VerifiedBy != 0 {
		query.Set("verified_by = ?", tr.VerifiedBy)
	}
	if tr.Note != "" {
		query.Set("verification_note = ?", tr.Note)
	}
	res, err := query.
		Where("id = ?", t.ID).
		Where("status = ?", common.TransactionStatusUnpaid).
		Returning("*").
		Exec(ctx, t)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrTransactionFinalized
		}
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrTransactionFinalized
	}
	return nil
}
