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

type contractRepository struct {
	db *sql.DB
}

func NewContractRepository(db *sql.DB) repository.ContractRepository {
	return &contractRepository{db: db}
}

const contractColumns = `id, franchisee_id, status, royalty_rate, monthly_royalty, franchise_fee, at_risk, activated_at, created_at, updated_at`

func scanContract(row rowScanner) (*domain.FranchiseContract, error) {
	c := &domain.FranchiseContract{}
	var (
		monthlyRoyalty decimal.NullDecimal
		activatedAt    sql.NullTime
	)
	err := row.Scan(&c.ID, &c.FranchiseeID, &c.Status, &c.RoyaltyRate, &monthlyRoyalty,
		&c.FranchiseFee, &c.AtRisk, &activatedAt, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if monthlyRoyalty.Valid {
		c.MonthlyRoyalty = &monthlyRoyalty.Decimal
	}
	if activatedAt.Valid {
		c.ActivatedAt = &activatedAt.Time
	}
	return c, nil
}

func (r *contractRepository) Create(ctx context.Context, c *domain.FranchiseContract) error {
	var monthlyRoyalty interface{}
	if c.MonthlyRoyalty != nil {
		monthlyRoyalty = *c.MonthlyRoyalty
	}
	now := time.Now()
	query := `INSERT INTO franchise_contracts (franchisee_id, status, royalty_rate, monthly_royalty, franchise_fee, at_risk, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, false, $6, $6) RETURNING id`
	err := r.db.QueryRowContext(ctx, query,
		c.FranchiseeID, c.Status, c.RoyaltyRate, monthlyRoyalty, c.FranchiseFee, now).Scan(&c.ID)
	if err != nil {
		return err
	}
	c.CreatedAt = now
	c.UpdatedAt = now
	return nil
}

func (r *contractRepository) GetByID(ctx context.Context, id int64) (*domain.FranchiseContract, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+contractColumns+` FROM franchise_contracts WHERE id = $1`, id)
	c, err := scanContract(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrContractNotFound
	}
	return c, err
}

func (r *contractRepository) GetByFranchisee(ctx context.Context, franchiseeID int32) (*domain.FranchiseContract, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+contractColumns+` FROM franchise_contracts WHERE franchisee_id = $1 ORDER BY created_at DESC LIMIT 1`,
		franchiseeID)
	c, err := scanContract(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrContractNotFound
	}
	return c, err
}

func (r *contractRepository) Activate(ctx context.Context, id int64, at time.Time) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE franchise_contracts SET status = $1, activated_at = $2, updated_at = $3 WHERE id = $4 AND status <> $5`,
		domain.ContractStatusActive, at, time.Now(), id, domain.ContractStatusTerminated)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return &domain.ConflictError{
			Op:      "activate",
			From:    string(domain.ContractStatusTerminated),
			To:      string(domain.ContractStatusActive),
			Subject: fmt.Sprintf("contract %d", id),
		}
	}
	return nil
}

// MarkAtRisk is monotonic: the flag is only ever set here, never cleared.
func (r *contractRepository) MarkAtRisk(ctx context.Context, id int64) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE franchise_contracts SET at_risk = true, updated_at = $1 WHERE id = $2`,
		time.Now(), id)
	return err
}
