package models

import "time"

// SubscriptionPlan : a purchasable plan
type SubscriptionPlan struct {
	ID           int64     `json:"id" bun:",pk,autoincrement"`
	Name         string    `json:"name" bun:",notnull"`
	Description  string    `json:"description,omitempty" bun:",nullzero"`
	Price        Amount    `json:"price" bun:"type:numeric(12,2),notnull"`
	DurationDays int       `json:"duration_days" bun:",notnull"`
	Active       bool      `json:"active" bun:",notnull,default:true"`
	CreatedAt    time.Time `json:"created_at" bun:",nullzero,notnull,default:current_timestamp"`
}
