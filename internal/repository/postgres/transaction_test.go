package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"

	"franchise-ledger-backend/internal/domain"
	"franchise-ledger-backend/internal/repository"
)

var transactionRowColumns = []string{
	"id", "franchisee_id", "payment_type", "reference", "amount", "currency", "status", "payment_method",
	"provider_transaction_id", "schedule_id", "parent_transaction_id", "contract_id", "description", "metadata",
	"due_date", "initiated_at", "completed_at", "created_at", "updated_at",
}

func transactionRow(id int64, status domain.TransactionStatus, paymentType domain.PaymentType, scheduleID interface{}) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows(transactionRowColumns).AddRow(
		id, int32(9), string(paymentType), "TXN-ref", "500.00", "EUR", string(status), "card",
		"pi_1", scheduleID, nil, nil, "Monthly royalty for 2025-02", []byte(`{}`),
		now, now, nil, now, now,
	)
}

func TestTransactionRepository_Settle(t *testing.T) {
	ctx := context.Background()

	t.Run("ReplayOnCompletedIsNoOp", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		assert.NoError(t, err)
		defer db.Close()
		repo := NewTransactionRepository(db)

		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT .+ FROM transactions WHERE id = \$1 FOR UPDATE`).
			WithArgs(int64(11)).
			WillReturnRows(transactionRow(11, domain.TransactionStatusCompleted, domain.PaymentTypeMonthlyRoyalty, nil))
		mock.ExpectRollback()

		result, err := repo.Settle(ctx, repository.Settlement{TransactionID: 11, ProviderTransactionID: "pi_1"})
		assert.NoError(t, err)
		assert.True(t, result.AlreadySettled)
		assert.Nil(t, result.Movement)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("SettlingCancelledTransactionConflicts", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		assert.NoError(t, err)
		defer db.Close()
		repo := NewTransactionRepository(db)

		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT .+ FROM transactions WHERE id = \$1 FOR UPDATE`).
			WithArgs(int64(12)).
			WillReturnRows(transactionRow(12, domain.TransactionStatusCancelled, domain.PaymentTypeMonthlyRoyalty, nil))
		mock.ExpectRollback()

		_, err = repo.Settle(ctx, repository.Settlement{TransactionID: 12, ProviderTransactionID: "pi_1"})
		var conflict *domain.ConflictError
		assert.ErrorAs(t, err, &conflict)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("UnknownTransaction", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		assert.NoError(t, err)
		defer db.Close()
		repo := NewTransactionRepository(db)

		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT .+ FROM transactions WHERE id = \$1 FOR UPDATE`).
			WithArgs(int64(404)).
			WillReturnRows(sqlmock.NewRows(transactionRowColumns))
		mock.ExpectRollback()

		_, err = repo.Settle(ctx, repository.Settlement{TransactionID: 404})
		assert.ErrorIs(t, err, domain.ErrTransactionNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("PendingRoyaltySettlesAndClaimsSchedule", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		assert.NoError(t, err)
		defer db.Close()
		repo := NewTransactionRepository(db)

		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT .+ FROM transactions WHERE id = \$1 FOR UPDATE`).
			WithArgs(int64(13)).
			WillReturnRows(transactionRow(13, domain.TransactionStatusPending, domain.PaymentTypeMonthlyRoyalty, int64(77)))
		mock.ExpectExec(`UPDATE transactions SET status`).
			WillReturnResult(sqlmock.NewResult(0, 1))
		// movement posting: account lock, balance update, movement insert
		mock.ExpectQuery(`SELECT current_balance, status FROM accounts`).
			WithArgs(int32(9)).
			WillReturnRows(sqlmock.NewRows([]string{"current_balance", "status"}).AddRow("0", "ACTIVE"))
		mock.ExpectExec(`UPDATE accounts SET current_balance`).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectQuery(`INSERT INTO account_movements`).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(55)))
		mock.ExpectExec(`UPDATE accounts SET total_royalties_paid`).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(`UPDATE payment_schedules SET status`).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		result, err := repo.Settle(ctx, repository.Settlement{TransactionID: 13, ProviderTransactionID: "pi_9"})
		assert.NoError(t, err)
		assert.False(t, result.AlreadySettled)
		assert.Equal(t, domain.TransactionStatusCompleted, result.Transaction.Status)
		assert.Equal(t, int64(55), result.Movement.ID)
		assert.Equal(t, domain.MovementTypeDebit, result.Movement.Type)
		if assert.NotNil(t, result.ScheduleID) {
			assert.Equal(t, int64(77), *result.ScheduleID)
		}
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("LostScheduleClaimRollsBack", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		assert.NoError(t, err)
		defer db.Close()
		repo := NewTransactionRepository(db)

		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT .+ FROM transactions WHERE id = \$1 FOR UPDATE`).
			WithArgs(int64(14)).
			WillReturnRows(transactionRow(14, domain.TransactionStatusPending, domain.PaymentTypeMonthlyRoyalty, int64(78)))
		mock.ExpectExec(`UPDATE transactions SET status`).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectQuery(`SELECT current_balance, status FROM accounts`).
			WillReturnRows(sqlmock.NewRows([]string{"current_balance", "status"}).AddRow("0", "ACTIVE"))
		mock.ExpectExec(`UPDATE accounts SET current_balance`).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectQuery(`INSERT INTO account_movements`).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(56)))
		mock.ExpectExec(`UPDATE accounts SET total_royalties_paid`).
			WillReturnResult(sqlmock.NewResult(0, 1))
		// schedule already claimed by another transaction
		mock.ExpectExec(`UPDATE payment_schedules SET status`).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectRollback()

		_, err = repo.Settle(ctx, repository.Settlement{TransactionID: 14, ProviderTransactionID: "pi_10"})
		var conflict *domain.ConflictError
		assert.ErrorAs(t, err, &conflict)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestTransactionRepository_Create(t *testing.T) {
	ctx := context.Background()

	t.Run("RejectsNonPendingStatus", func(t *testing.T) {
		db, _, err := sqlmock.New()
		assert.NoError(t, err)
		defer db.Close()
		repo := NewTransactionRepository(db)

		err = repo.Create(ctx, &domain.Transaction{Status: domain.TransactionStatusCompleted})
		var validation *domain.ValidationError
		assert.ErrorAs(t, err, &validation)
	})

	t.Run("DuplicateProviderIDMapsToSentinel", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		assert.NoError(t, err)
		defer db.Close()
		repo := NewTransactionRepository(db)

		providerID := "pi_dup"
		mock.ExpectQuery(`INSERT INTO transactions`).
			WillReturnError(&pq.Error{Code: "23505", Constraint: "transactions_provider_transaction_id_key"})

		err = repo.Create(ctx, &domain.Transaction{
			FranchiseeID:          9,
			PaymentType:           domain.PaymentTypeEntryFee,
			Reference:             "TXN-dup",
			ProviderTransactionID: &providerID,
		})
		assert.ErrorIs(t, err, domain.ErrDuplicateProviderID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestTransactionRepository_TransitionStatus(t *testing.T) {
	ctx := context.Background()

	t.Run("SameStatusIsIdempotentNoOp", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		assert.NoError(t, err)
		defer db.Close()
		repo := NewTransactionRepository(db)

		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT .+ FROM transactions WHERE id = \$1 FOR UPDATE`).
			WithArgs(int64(21)).
			WillReturnRows(transactionRow(21, domain.TransactionStatusFailed, domain.PaymentTypeEntryFee, nil))
		mock.ExpectRollback()

		tx, err := repo.TransitionStatus(ctx, 21, domain.TransactionStatusFailed, nil)
		assert.NoError(t, err)
		assert.Equal(t, domain.TransactionStatusFailed, tx.Status)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("SameStatusStillMergesMetadata", func(t *testing.T) {
		// A requires_action sub-status can arrive when the transaction is
		// already processing. The status stays put but the metadata lands.
		db, mock, err := sqlmock.New()
		assert.NoError(t, err)
		defer db.Close()
		repo := NewTransactionRepository(db)

		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT .+ FROM transactions WHERE id = \$1 FOR UPDATE`).
			WithArgs(int64(23)).
			WillReturnRows(transactionRow(23, domain.TransactionStatusProcessing, domain.PaymentTypeEntryFee, nil))
		mock.ExpectExec(`UPDATE transactions SET status = \$1, metadata = \$2`).
			WithArgs(string(domain.TransactionStatusProcessing), []byte(`{"sub_status":"requires_action"}`), sqlmock.AnyArg(), int64(23)).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		tx, err := repo.TransitionStatus(ctx, 23, domain.TransactionStatusProcessing,
			map[string]string{"sub_status": "requires_action"})
		assert.NoError(t, err)
		assert.Equal(t, domain.TransactionStatusProcessing, tx.Status)
		assert.Equal(t, "requires_action", tx.Metadata["sub_status"])
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("IllegalTransitionConflicts", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		assert.NoError(t, err)
		defer db.Close()
		repo := NewTransactionRepository(db)

		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT .+ FROM transactions WHERE id = \$1 FOR UPDATE`).
			WithArgs(int64(22)).
			WillReturnRows(transactionRow(22, domain.TransactionStatusFailed, domain.PaymentTypeEntryFee, nil))
		mock.ExpectRollback()

		_, err = repo.TransitionStatus(ctx, 22, domain.TransactionStatusCompleted, nil)
		var conflict *domain.ConflictError
		assert.ErrorAs(t, err, &conflict)
		assert.Equal(t, string(domain.TransactionStatusFailed), conflict.From)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
