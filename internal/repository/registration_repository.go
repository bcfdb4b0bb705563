package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sports-academy-api/internal/models"
)

const registrationColumns = `id, student_id, sport_id, event_id, age_category_id, distance_id, sport_sub_type_id, academy_code, substitute, payment_id, registered_by, created_at`

const insertRegistrationQuery = `INSERT INTO registrations (` + registrationColumns + `) VALUES (:id, :student_id, :sport_id, :event_id, :age_category_id, :distance_id, :sport_sub_type_id, :academy_code, :substitute, :payment_id, :registered_by, :created_at)`

// RegistrationRepository persists student registrations and the payments that settle them.
type RegistrationRepository struct {
	db *sqlx.DB
}

// NewRegistrationRepository constructs the repository.
func NewRegistrationRepository(db *sqlx.DB) *RegistrationRepository {
	return &RegistrationRepository{db: db}
}

// RegisterBatch writes payment (when not nil) and regs in one transaction. Each registration
// runs under its own savepoint so one failing row does not sink the others; rowErrs[i] is the
// error of regs[i]. When no registration is written the transaction is rolled back, payment
// included. A non-nil error means nothing was written.
func (r *RegistrationRepository) RegisterBatch(ctx context.Context, payment *models.Payment, regs []models.Registration) ([]error, error) {
	rowErrs := make([]error, len(regs))
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return rowErrs, fmt.Errorf("begin registration batch: %w", err)
	}
	if payment != nil {
		if _, err := tx.NamedExecContext(ctx, insertPaymentQuery, payment); err != nil {
			tx.Rollback() //nolint:errcheck
			return rowErrs, fmt.Errorf("create payment: %w", err)
		}
	}

	written := 0
	for i := range regs {
		if _, err := tx.ExecContext(ctx, `SAVEPOINT registration_row`); err != nil {
			tx.Rollback() //nolint:errcheck
			return rowErrs, fmt.Errorf("savepoint registration: %w", err)
		}
		if _, err := tx.NamedExecContext(ctx, insertRegistrationQuery, &regs[i]); err != nil {
			rowErrs[i] = fmt.Errorf("create registration: %w", err)
			if _, err := tx.ExecContext(ctx, `ROLLBACK TO SAVEPOINT registration_row`); err != nil {
				tx.Rollback() //nolint:errcheck
				return rowErrs, fmt.Errorf("rollback registration row: %w", err)
			}
			continue
		}
		if _, err := tx.ExecContext(ctx, `RELEASE SAVEPOINT registration_row`); err != nil {
			tx.Rollback() //nolint:errcheck
			return rowErrs, fmt.Errorf("release registration row: %w", err)
		}
		written++
	}

	if written == 0 {
		if err := tx.Rollback(); err != nil {
			return rowErrs, fmt.Errorf("rollback registration batch: %w", err)
		}
		return rowErrs, nil
	}
	if err := tx.Commit(); err != nil {
		return rowErrs, fmt.Errorf("commit registration batch: %w", err)
	}
	return rowErrs, nil
}

// ListByPayment returns registrations settled by a payment.
func (r *RegistrationRepository) ListByPayment(ctx context.Context, paymentID string) ([]models.Registration, error) {
	query := `SELECT ` + registrationColumns + ` FROM registrations WHERE payment_id = $1 ORDER BY created_at ASC`
	var regs []models.Registration
	if err := r.db.SelectContext(ctx, &regs, query, paymentID); err != nil {
		return nil, fmt.Errorf("list registrations by payment: %w", err)
	}
	return regs, nil
}
