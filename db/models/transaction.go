package models

import (
	"context"
	"time"

	"github.com/uptrace/bun"
)

// Transaction : one payment attempt for a subscription plan
type Transaction struct {
	ID               int64                  `json:"id" bun:",pk,autoincrement"`
	Reference        string                 `json:"reference" bun:",unique,notnull"`
	MerchantRef      string                 `json:"merchant_ref" bun:",notnull"`
	UserID           int64                  `json:"user_id" bun:",notnull"`
	User             *User                  `json:"user,omitempty" bun:"rel:belongs-to,join:user_id=id"`
	SubscriptionID   int64                  `json:"subscription_id,omitempty" bun:",nullzero"`
	PlanID           int64                  `json:"plan_id,omitempty" bun:",nullzero"`
	Plan             *SubscriptionPlan      `json:"plan,omitempty" bun:"rel:belongs-to,join:plan_id=id"`
	PaymentMethod    string                 `json:"payment_method" bun:",notnull"`
	PaymentName      string                 `json:"payment_name" bun:",nullzero"`
	PaymentType      string                 `json:"payment_type" bun:",notnull,default:'manual'"`
	Amount           Amount                 `json:"amount" bun:"type:numeric(12,2),notnull"`
	Fee              Amount                 `json:"fee" bun:"type:numeric(12,2),notnull,default:0"`
	TotalAmount      Amount                 `json:"total_amount" bun:"type:numeric(12,2),notnull"`
	Status           string                 `json:"status" bun:",notnull,default:'UNPAID'"`
	FailureReason    string                 `json:"failure_reason,omitempty" bun:",nullzero"`
	PaymentCode      string                 `json:"payment_code,omitempty" bun:",nullzero"`
	AccountName      string                 `json:"account_name,omitempty" bun:",nullzero"`
	QrUrl            string                 `json:"qr_url,omitempty" bun:",nullzero"`
	QrString         string                 `json:"qr_string,omitempty" bun:",nullzero"`
	Instructions     string                 `json:"instructions,omitempty" bun:",nullzero"`
	IdempotencyKey   string                 `json:"-" bun:",nullzero"`
	PaymentProof     string                 `json:"payment_proof,omitempty" bun:",nullzero"`
	HasPaymentProof  bool                   `json:"has_payment_proof" bun:",scanonly"`
	ProofUploadedAt  bun.NullTime           `json:"proof_uploaded_at"`
	VerifiedBy       int64                  `json:"verified_by,omitempty" bun:",nullzero"`
	VerificationNote string                 `json:"verification_note,omitempty" bun:",nullzero"`
	Raw              map[string]interface{} `json:"-" bun:"type:jsonb,nullzero"`
	ExpiredAt        bun.NullTime           `json:"expired_at"`
	PaidAt           bun.NullTime           `json:"paid_at"`
	CreatedAt        time.Time              `json:"created_at" bun:",nullzero,notnull,default:current_timestamp"`
	UpdatedAt        bun.NullTime           `json:"updated_at"`
}

func (t *Transaction) BeforeAppendModel(ctx context.Context, query bun.Query) error {
	switch query.(type) {
	case *bun.UpdateQuery:
		t.UpdatedAt = bun.NullTime{Time: time.Now()}
	}
	return nil
}

// ComputeTotal enforces total_amount == amount + fee.
func (t *Transaction) ComputeTotal() {
	t.TotalAmount = t.Amount + t.Fee
}

// IsOverdue reports whether an unpaid transaction has passed its expiry.
func (t *Transaction) IsOverdue(now time.Time) bool {
	return t.Status == "UNPAID" && !t.ExpiredAt.IsZero() && !now.Before(t.ExpiredAt.Time)
}

// WithoutProof drops the proof body and keeps the flag, for listings.
func (t *Transaction) WithoutProof() {
	if t.PaymentProof != "" {
		t.HasPaymentProof = true
	}
	t.PaymentProof = ""
}

var _ bun.BeforeAppendModelHook = (*Transaction)(nil)
