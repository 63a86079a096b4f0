package models

import (
	"context"
	"time"

	"github.com/uptrace/bun"
)

// Subscription : a user's access window bought through a plan
type Subscription struct {
	ID            int64             `json:"id" bun:",pk,autoincrement"`
	UserID        int64             `json:"user_id" bun:",notnull"`
	User          *User             `json:"-" bun:"rel:belongs-to,join:user_id=id"`
	PlanID        int64             `json:"plan_id" bun:",notnull"`
	Plan          *SubscriptionPlan `json:"plan,omitempty" bun:"rel:belongs-to,join:plan_id=id"`
	TransactionID int64             `json:"transaction_id,omitempty" bun:",nullzero"`
	Status        string            `json:"status" bun:",notnull,default:'active'"`
	StartsAt      time.Time         `json:"starts_at" bun:",notnull"`
	EndsAt        time.Time         `json:"ends_at" bun:",notnull"`
	CreatedAt     time.Time         `json:"created_at" bun:",nullzero,notnull,default:current_timestamp"`
	UpdatedAt     bun.NullTime      `json:"updated_at"`
}

func (s *Subscription) BeforeAppendModel(ctx context.Context, query bun.Query) error {
	switch query.(type) {
	case *bun.UpdateQuery:
		s.UpdatedAt = bun.NullTime{Time: time.Now()}
	}
	return nil
}

// ActiveAt reports whether the subscription grants access at t.
func (s *Subscription) ActiveAt(t time.Time) bool {
	return s.Status == "active" && !t.Before(s.StartsAt) && t.Before(s.EndsAt)
}

var _ bun.BeforeAppendModelHook = (*Subscription)(nil)
