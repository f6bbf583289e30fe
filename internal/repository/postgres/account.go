package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"franchise-ledger-backend/internal/domain"
	"franchise-ledger-backend/internal/repository"
)

type accountRepository struct {
	db *sql.DB
}

func NewAccountRepository(db *sql.DB) repository.AccountRepository {
	return &accountRepository{db: db}
}

func (r *accountRepository) Create(ctx context.Context, acct *domain.Account) error {
	query := `INSERT INTO accounts (franchisee_id, current_balance, available_credit, credit_limit, total_spent, total_royalties_paid, status, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	now := time.Now()
	_, err := r.db.ExecContext(ctx, query,
		acct.FranchiseeID, acct.CurrentBalance, acct.AvailableCredit, acct.CreditLimit,
		acct.TotalSpent, acct.TotalRoyaltiesPaid, acct.Status, now, now)
	if err != nil {
		return err
	}
	acct.CreatedAt = now
	acct.UpdatedAt = now
	return nil
}

func (r *accountRepository) GetByFranchisee(ctx context.Context, franchiseeID int32) (*domain.Account, error) {
	acct := &domain.Account{}
	var lastTx sql.NullTime
	query := `SELECT franchisee_id, current_balance, available_credit, credit_limit, total_spent, total_royalties_paid, status, last_transaction_at, created_at, updated_at
	          FROM accounts WHERE franchisee_id = $1`
	err := r.db.QueryRowContext(ctx, query, franchiseeID).Scan(
		&acct.FranchiseeID, &acct.CurrentBalance, &acct.AvailableCredit, &acct.CreditLimit,
		&acct.TotalSpent, &acct.TotalRoyaltiesPaid, &acct.Status, &lastTx, &acct.CreatedAt, &acct.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrAccountNotFound
	}
	if err != nil {
		return nil, err
	}
	if lastTx.Valid {
		acct.LastTransactionAt = &lastTx.Time
	}
	return acct, nil
}

func (r *accountRepository) UpdateStatus(ctx context.Context, franchiseeID int32, status domain.AccountStatus) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE accounts SET status = $1, updated_at = $2 WHERE franchisee_id = $3`,
		status, time.Now(), franchiseeID)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return domain.ErrAccountNotFound
	}
	return nil
}

func (r *accountRepository) ListFranchiseeIDs(ctx context.Context) ([]int32, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT franchisee_id FROM accounts ORDER BY franchisee_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int32
	for rows.Next() {
		var id int32
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
