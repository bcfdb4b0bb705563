package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sports-academy-api/internal/models"
)

const paymentColumns = `id, checkout_id, provider, method, transaction_id, reference_number, proof_ref, amount_minor, currency, status, paid_by, created_at`

// Payments are only written together with their registrations, see RegistrationRepository.RegisterBatch.
const insertPaymentQuery = `INSERT INTO payments (` + paymentColumns + `) VALUES (:id, :checkout_id, :provider, :method, :transaction_id, :reference_number, :proof_ref, :amount_minor, :currency, :status, :paid_by, :created_at)`

// PaymentRepository reads settled and pending-verification payments.
type PaymentRepository struct {
	db *sqlx.DB
}

// NewPaymentRepository constructs the repository.
func NewPaymentRepository(db *sqlx.DB) *PaymentRepository {
	return &PaymentRepository{db: db}
}

// FindByTransactionID returns the payment recorded for a provider transaction or sql.ErrNoRows.
func (r *PaymentRepository) FindByTransactionID(ctx context.Context, transactionID string) (*models.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE transaction_id = $1 LIMIT 1`
	var payment models.Payment
	if err := r.db.GetContext(ctx, &payment, query, transactionID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find payment by transaction: %w", err)
	}
	return &payment, nil
}

// FindByCheckoutID returns the payment recorded for a checkout or sql.ErrNoRows.
func (r *PaymentRepository) FindByCheckoutID(ctx context.Context, checkoutID string) (*models.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE checkout_id = $1 ORDER BY created_at DESC LIMIT 1`
	var payment models.Payment
	if err := r.db.GetContext(ctx, &payment, query, checkoutID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find payment by checkout: %w", err)
	}
	return &payment, nil
}
