package models

import (
	"context"
	"time"

	"github.com/uptrace/bun"
)

// QrisSettings : operator settings for manual QRIS payments
type QrisSettings struct {
	bun.BaseModel `bun:"table:qris_settings"`

	ID           int64        `json:"id" bun:",pk,autoincrement"`
	MerchantName string       `json:"merchant_name" bun:",nullzero"`
	QrString     string       `json:"qr_string,omitempty" bun:",nullzero"`
	QrImageUrl   string       `json:"qr_image_url,omitempty" bun:",nullzero"`
	Instructions string       `json:"instructions,omitempty" bun:",nullzero"`
	ExpiryHours  int          `json:"expiry_hours" bun:",notnull,default:24"`
	Active       bool         `json:"active" bun:",notnull,default:true"`
	CreatedAt    time.Time    `json:"created_at" bun:",nullzero,notnull,default:current_timestamp"`
	UpdatedAt    bun.NullTime `json:"updated_at"`
}

func (s *QrisSettings) BeforeAppendModel(ctx context.Context, query bun.Query) error {
	switch query.(type) {
	case *bun.UpdateQuery:
		s.UpdatedAt = bun.NullTime{Time: time.Now()}
	}
	return nil
}

var _ bun.BeforeAppendModelHook = (*QrisSettings)(nil)
