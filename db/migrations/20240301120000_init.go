package migrations

import (
	"context"

	"github.com/kinterstore/qrishub.go/db/models"
	"github.com/uptrace/bun"
)

/* Since this init reflects the latest model fields when run on a fresh db,
make sure later migrations that add/remove columns use IfNotExists/IfExists.
*/
func init() {
	Migrations.MustRegister(func(ctx context.Context, db *bun.DB) error {
		tables := []interface{}{
			(*models.User)(nil),
			(*models.SubscriptionPlan)(nil),
			(*models.Subscription)(nil),
			(*models.Transaction)(nil),
			(*models.QrisSettings)(nil),
		}
		for _, model := range tables {
			if _, err := db.NewCreateTable().Model(model).IfNotExists().Exec(ctx); err != nil {
				return err
			}
		}
		return nil
	}, nil)
}
