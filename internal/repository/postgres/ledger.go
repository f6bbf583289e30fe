package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"franchise-ledger-backend/internal/domain"
	"franchise-ledger-backend/internal/repository"
)

type ledgerRepository struct {
	db *sql.DB
}

func NewLedgerRepository(db *sql.DB) repository.LedgerRepository {
	return &ledgerRepository{db: db}
}

// Post applies one balance mutation. The account row is locked first, then
// the movement is appended; both inside a single transaction so the
// balance_before/balance_after chain can never have gaps.
func (r *ledgerRepository) Post(ctx context.Context, posting *domain.Posting) (*domain.AccountMovement, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	mv, err := postMovementTx(ctx, tx, posting)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit movement: %w", err)
	}
	return mv, nil
}

// postMovementTx is the shared posting primitive. Lock order is always the
// account row first, movement insert second; callers touching other tables
// (transactions, schedules) do so before calling in here.
func postMovementTx(ctx context.Context, tx *sql.Tx, posting *domain.Posting) (*domain.AccountMovement, error) {
	var (
		balance decimal.Decimal
		status  domain.AccountStatus
	)
	err := tx.QueryRowContext(ctx,
		`SELECT current_balance, status FROM accounts WHERE franchisee_id = $1 FOR UPDATE`,
		posting.FranchiseeID).Scan(&balance, &status)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrAccountNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to lock account %d: %w", posting.FranchiseeID, err)
	}
	if status == domain.AccountStatusBlocked {
		return nil, &domain.AccountBlockedError{FranchiseeID: posting.FranchiseeID}
	}

	mv := &domain.AccountMovement{
		FranchiseeID:  posting.FranchiseeID,
		TransactionID: posting.TransactionID,
		Type:          posting.Type,
		Amount:        posting.Amount,
		BalanceBefore: balance,
		Description:   posting.Description,
		Category:      posting.Category,
		CreatedBy:     posting.CreatedBy,
	}
	mv.BalanceAfter = balance.Add(mv.Signed())

	now := time.Now()
	update := `UPDATE accounts SET current_balance = $1, last_transaction_at = $2, updated_at = $2`
	args := []interface{}{mv.BalanceAfter, now}
	if posting.Type == domain.MovementTypeDebit {
		update += `, total_spent = total_spent + $3 WHERE franchisee_id = $4`
		args = append(args, posting.Amount, posting.FranchiseeID)
	} else {
		update += ` WHERE franchisee_id = $3`
		args = append(args, posting.FranchiseeID)
	}
	if _, err := tx.ExecContext(ctx, update, args...); err != nil {
		return nil, fmt.Errorf("failed to update balance for account %d: %w", posting.FranchiseeID, err)
	}

	err = tx.QueryRowContext(ctx,
		`INSERT INTO account_movements (franchisee_id, transaction_id, type, amount, balance_before, balance_after, description, category, created_by, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10) RETURNING id`,
		mv.FranchiseeID, mv.TransactionID, mv.Type, mv.Amount, mv.BalanceBefore, mv.BalanceAfter,
		mv.Description, mv.Category, mv.CreatedBy, now).Scan(&mv.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to insert movement: %w", err)
	}
	mv.CreatedAt = now
	return mv, nil
}

func (r *ledgerRepository) ListMovements(ctx context.Context, franchiseeID int32, page, pageSize int32) ([]domain.AccountMovement, int32, error) {
	offset := (page - 1) * pageSize
	query := `SELECT id, franchisee_id, transaction_id, type, amount, balance_before, balance_after, description, category, created_by, created_at
	          FROM account_movements WHERE franchisee_id = $1 ORDER BY id DESC LIMIT $2 OFFSET $3`
	rows, err := r.db.QueryContext(ctx, query, franchiseeID, pageSize, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var movements []domain.AccountMovement
	for rows.Next() {
		var (
			mv        domain.AccountMovement
			txID      sql.NullInt64
			createdBy sql.NullInt32
		)
		if err := rows.Scan(&mv.ID, &mv.FranchiseeID, &txID, &mv.Type, &mv.Amount,
			&mv.BalanceBefore, &mv.BalanceAfter, &mv.Description, &mv.Category, &createdBy, &mv.CreatedAt); err != nil {
			return nil, 0, err
		}
		if txID.Valid {
			mv.TransactionID = &txID.Int64
		}
		if createdBy.Valid {
			mv.CreatedBy = &createdBy.Int32
		}
		movements = append(movements, mv)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	var count int32
	err = r.db.QueryRowContext(ctx,
		`SELECT count(*) FROM account_movements WHERE franchisee_id = $1`, franchiseeID).Scan(&count)
	if err != nil {
		return nil, 0, err
	}
	return movements, count, nil
}

// SumMovements computes the signed sum of every movement ever posted against
// the account. The consistency audit compares it to current_balance.
func (r *ledgerRepository) SumMovements(ctx context.Context, franchiseeID int32) (decimal.Decimal, error) {
	var sum decimal.Decimal
	query := `SELECT COALESCE(SUM(CASE type WHEN 'DEBIT' THEN -amount ELSE amount END), 0)
	          FROM account_movements WHERE franchisee_id = $1`
	err := r.db.QueryRowContext(ctx, query, franchiseeID).Scan(&sum)
	if err != nil {
		return decimal.Zero, err
	}
	return sum, nil
}
