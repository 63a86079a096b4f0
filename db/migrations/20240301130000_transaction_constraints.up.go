package migrations

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"
)

func init() {
	Migrations.MustRegister(func(ctx context.Context, db *bun.DB) error {

		if db.Dialect().Name().String() != "pg" {
			fmt.Printf("\033[1;31m%s\033[0m", "You are not using PostgreSQL. DB level checks can not be enabled!\n")
			return nil
		}
		sql := `
			-- the total is always amount + fee
				ALTER TABLE transactions
				ADD CONSTRAINT check_total_amount
				CHECK (total_amount = amount + fee);

			-- only known statuses
				ALTER TABLE transactions
				ADD CONSTRAINT check_status
				CHECK (status IN ('UNPAID', 'PAID', 'EXPIRED', 'FAILED'));

			-- a terminal transaction can never move again
				CREATE OR REPLACE FUNCTION check_transaction_final()
					RETURNS TRIGGER AS $$
				BEGIN
					IF OLD.status <> 'UNPAID' AND NEW.status <> OLD.status
					THEN
						RAISE EXCEPTION 'transaction % is final [status:%] [new_status:%]',
						OLD.reference,
						OLD.status,
						NEW.status;
					END IF;
					RETURN NEW;
				END;
				$$ LANGUAGE plpgsql;
				CREATE TRIGGER check_transaction_final
				BEFORE UPDATE ON transactions
				FOR EACH ROW EXECUTE PROCEDURE check_transaction_final();
		`
		if _, err := db.Exec(sql); err != nil {
			return err
		}
		return nil
	}, nil)
}
