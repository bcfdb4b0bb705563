package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sports-academy-api/internal/models"
	"github.com/noah-isme/sports-academy-api/pkg/database"
)

func batchFixture() (*models.Payment, []models.Registration) {
	now := time.Now()
	tx := "pi_1"
	payment := &models.Payment{
		ID: "p1", CheckoutID: "c1", Provider: "stripe", Method: "CARD", TransactionID: &tx,
		AmountMinor: 12000, Currency: "USD", Status: models.PaymentStatusSucceeded, PaidBy: "u1", CreatedAt: now,
	}
	paymentID := payment.ID
	regs := []models.Registration{
		{ID: "r1", StudentID: "s1", SportID: "football", AgeCategoryID: "u12", PaymentID: &paymentID, RegisteredBy: "u1", CreatedAt: now},
		{ID: "r2", StudentID: "s2", SportID: "football", AgeCategoryID: "u12", PaymentID: &paymentID, RegisteredBy: "u1", CreatedAt: now},
	}
	return payment, regs
}

func TestRegisterBatchIsolatesFailingRows(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewRegistrationRepository(db)
	payment, regs := batchFixture()

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO payments").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("^SAVEPOINT registration_row").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("INSERT INTO registrations").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("^RELEASE SAVEPOINT registration_row").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("^SAVEPOINT registration_row").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("INSERT INTO registrations").WillReturnError(&pq.Error{Code: "23505"})
	mock.ExpectExec("^ROLLBACK TO SAVEPOINT registration_row").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	rowErrs, err := repo.RegisterBatch(context.Background(), payment, regs)
	require.NoError(t, err)
	require.Len(t, rowErrs, 2)
	assert.NoError(t, rowErrs[0])
	assert.True(t, database.IsUniqueViolation(rowErrs[1]))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRegisterBatchRollsBackPaymentWhenNoRowIsWritten(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewRegistrationRepository(db)
	payment, regs := batchFixture()

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO payments").WillReturnResult(sqlmock.NewResult(1, 1))
	for range regs {
		mock.ExpectExec("^SAVEPOINT registration_row").WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectExec("INSERT INTO registrations").WillReturnError(errors.New("check constraint"))
		mock.ExpectExec("^ROLLBACK TO SAVEPOINT registration_row").WillReturnResult(sqlmock.NewResult(0, 0))
	}
	mock.ExpectRollback()

	rowErrs, err := repo.RegisterBatch(context.Background(), payment, regs)
	require.NoError(t, err)
	assert.Error(t, rowErrs[0])
	assert.Error(t, rowErrs[1])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRegisterBatchPaymentConflictWritesNothing(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewRegistrationRepository(db)
	payment, regs := batchFixture()

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO payments").WillReturnError(&pq.Error{Code: "23505"})
	mock.ExpectRollback()

	_, err := repo.RegisterBatch(context.Background(), payment, regs)
	require.Error(t, err)
	assert.True(t, database.IsUniqueViolation(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRegisterBatchWithoutPayment(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewRegistrationRepository(db)
	_, regs := batchFixture()
	regs[0].PaymentID = nil

	mock.ExpectBegin()
	mock.ExpectExec("^SAVEPOINT registration_row").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("INSERT INTO registrations").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("^RELEASE SAVEPOINT registration_row").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	rowErrs, err := repo.RegisterBatch(context.Background(), nil, regs[:1])
	require.NoError(t, err)
	assert.NoError(t, rowErrs[0])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRegistrationListByPayment(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewRegistrationRepository(db)

	rows := sqlmock.NewRows([]string{"id", "student_id", "sport_id", "event_id", "age_category_id", "distance_id", "sport_sub_type_id", "academy_code", "substitute", "payment_id", "registered_by", "created_at"}).
		AddRow("r1", "s1", "football", nil, "u12", nil, nil, nil, false, "p1", "u1", time.Now())
	mock.ExpectQuery("FROM registrations WHERE payment_id = \\$1").WithArgs("p1").WillReturnRows(rows)

	regs, err := repo.ListByPayment(context.Background(), "p1")
	require.NoError(t, err)
	require.Len(t, regs, 1)
	assert.Equal(t, "p1", *regs[0].PaymentID)
}
