package database

import (
	"fmt"

	"gorm.io/gorm"

	"needthisdone-payments/models"
)

// Migrate applies (idempotent) schema migrations:
//   - AutoMigrate (tables/columns/index tags)
//   - on postgres: CHECK constraints for the order payment invariants and the
//     attempt status enum
//
// The unique index on payment_attempts.idempotency_key comes from the model
// tags and is what makes CreateAttempt atomic; it is created on every dialect.
func Migrate(db *gorm.DB) error {
	return db.Transaction(func(tx *gorm.DB) error {
		if err := tx.AutoMigrate(
			&models.Order{},
			&models.PaymentAttempt{},
			&models.User{},
		); err != nil {
			return fmt.Errorf("automigrate failed: %w", err)
		}

		if tx.Dialector.Name() != "postgres" {
			return nil
		}

		checks := []struct{ table, name, expr string }{
			{"orders", "chk_orders_deposit_balance_total", "deposit_amount + balance_remaining = total"},
			{"orders", "chk_orders_balance_nonneg", "balance_remaining >= 0"},
			{"orders", "chk_orders_deposit_within_total", "deposit_amount > 0 AND deposit_amount <= total"},
			{"orders", "chk_orders_collected_within_balance", "balance_collected >= 0 AND balance_collected <= balance_remaining"},
			{"orders", "chk_orders_final_payment_status", "final_payment_status IN ('pending', 'paid')"},
			{"payment_attempts", "chk_payment_attempts_amount_pos", "amount_cents > 0"},
			{"payment_attempts", "chk_payment_attempts_status", "status IN ('processing', 'succeeded', 'failed')"},
		}
		for _, c := range checks {
			stmt := fmt.Sprintf(`DO $$
BEGIN
	IF NOT EXISTS (
		SELECT 1 FROM pg_constraint
		WHERE conrelid = '%s'::regclass
		  AND conname  = '%s'
	) THEN
		ALTER TABLE %s ADD CONSTRAINT %s CHECK (%s);
	END IF;
END $$;`, c.table, c.name, c.table, c.name, c.expr)
			if err := tx.Exec(stmt).Error; err != nil {
				return fmt.Errorf("check constraint migration failed on %s: %w", c.name, err)
			}
		}
		return nil
	})
}
