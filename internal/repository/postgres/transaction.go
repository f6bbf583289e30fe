package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"

	"franchise-ledger-backend/internal/domain"
	"franchise-ledger-backend/internal/repository"
)

type transactionRepository struct {
	db *sql.DB
}

func NewTransactionRepository(db *sql.DB) repository.TransactionRepository {
	return &transactionRepository{db: db}
}

const transactionColumns = `id, franchisee_id, payment_type, reference, amount, currency, status, payment_method,
	provider_transaction_id, schedule_id, parent_transaction_id, contract_id, description, metadata,
	due_date, initiated_at, completed_at, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanTransaction(row rowScanner) (*domain.Transaction, error) {
	t := &domain.Transaction{}
	var (
		providerID  sql.NullString
		scheduleID  sql.NullInt64
		parentID    sql.NullInt64
		contractID  sql.NullInt64
		metadata    []byte
		dueDate     sql.NullTime
		completedAt sql.NullTime
	)
	err := row.Scan(&t.ID, &t.FranchiseeID, &t.PaymentType, &t.Reference, &t.Amount, &t.Currency,
		&t.Status, &t.PaymentMethod, &providerID, &scheduleID, &parentID, &contractID,
		&t.Description, &metadata, &dueDate, &t.InitiatedAt, &completedAt, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if providerID.Valid {
		t.ProviderTransactionID = &providerID.String
	}
	if scheduleID.Valid {
		t.ScheduleID = &scheduleID.Int64
	}
	if parentID.Valid {
		t.ParentTransactionID = &parentID.Int64
	}
	if contractID.Valid {
		t.ContractID = &contractID.Int64
	}
	if dueDate.Valid {
		t.DueDate = &dueDate.Time
	}
	if completedAt.Valid {
		t.CompletedAt = &completedAt.Time
	}
	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &t.Metadata); err != nil {
			return nil, fmt.Errorf("failed to decode metadata for transaction %d: %w", t.ID, err)
		}
	}
	return t, nil
}

func marshalMetadata(md map[string]string) ([]byte, error) {
	if md == nil {
		md = map[string]string{}
	}
	return json.Marshal(md)
}

// mapUniqueViolation converts the unique-index error on
// provider_transaction_id into the domain sentinel. That index is the
// storage-level idempotency backstop.
func mapUniqueViolation(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		if strings.Contains(pqErr.Constraint, "provider") {
			return domain.ErrDuplicateProviderID
		}
	}
	return err
}

func (r *transactionRepository) Create(ctx context.Context, t *domain.Transaction) error {
	if t.Status == "" {
		t.Status = domain.TransactionStatusPending
	}
	if t.Status != domain.TransactionStatusPending {
		return domain.NewValidationError("status", "transactions must be created pending")
	}
	metadata, err := marshalMetadata(t.Metadata)
	if err != nil {
		return err
	}
	now := time.Now()
	query := `INSERT INTO transactions (franchisee_id, payment_type, reference, amount, currency, status, payment_method,
	            provider_transaction_id, schedule_id, parent_transaction_id, contract_id, description, metadata,
	            due_date, initiated_at, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $16) RETURNING id`
	err = r.db.QueryRowContext(ctx, query,
		t.FranchiseeID, t.PaymentType, t.Reference, t.Amount, t.Currency, t.Status, t.PaymentMethod,
		t.ProviderTransactionID, t.ScheduleID, t.ParentTransactionID, t.ContractID, t.Description, metadata,
		t.DueDate, now, now).Scan(&t.ID)
	if err != nil {
		return mapUniqueViolation(err)
	}
	t.InitiatedAt = now
	t.CreatedAt = now
	t.UpdatedAt = now
	return nil
}

func (r *transactionRepository) GetByID(ctx context.Context, id int64) (*domain.Transaction, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE id = $1`, id)
	t, err := scanTransaction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrTransactionNotFound
	}
	return t, err
}

func (r *transactionRepository) GetByReference(ctx context.Context, reference string) (*domain.Transaction, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE reference = $1`, reference)
	t, err := scanTransaction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrTransactionNotFound
	}
	return t, err
}

func (r *transactionRepository) GetByProviderID(ctx context.Context, providerID string) (*domain.Transaction, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE provider_transaction_id = $1`, providerID)
	t, err := scanTransaction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrTransactionNotFound
	}
	return t, err
}

func (r *transactionRepository) SetProviderID(ctx context.Context, id int64, providerID string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE transactions SET provider_transaction_id = $1, updated_at = $2 WHERE id = $3`,
		providerID, time.Now(), id)
	return mapUniqueViolation(err)
}

// TransitionStatus applies a guarded transition under a row lock. Requesting
// the status the transaction already has is an idempotent no-op.
func (r *transactionRepository) TransitionStatus(ctx context.Context, id int64, to domain.TransactionStatus, metadata map[string]string) (*domain.Transaction, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	row := tx.QueryRowContext(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE id = $1 FOR UPDATE`, id)
	cur, err := scanTransaction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrTransactionNotFound
	}
	if err != nil {
		return nil, err
	}

	// Same-status with no metadata is a pure no-op. With metadata it still
	// writes: a requires_action sub-status arriving on an already-processing
	// transaction must not be dropped.
	if cur.Status == to && len(metadata) == 0 {
		return cur, nil
	}
	if cur.Status != to && !cur.Status.CanTransitionTo(to) {
		return nil, &domain.ConflictError{
			Op:      "transition",
			From:    string(cur.Status),
			To:      string(to),
			Subject: fmt.Sprintf("transaction %d", id),
		}
	}

	if cur.Metadata == nil {
		cur.Metadata = map[string]string{}
	}
	for k, v := range metadata {
		cur.Metadata[k] = v
	}
	encoded, err := marshalMetadata(cur.Metadata)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	_, err = tx.ExecContext(ctx,
		`UPDATE transactions SET status = $1, metadata = $2, updated_at = $3 WHERE id = $4`,
		to, encoded, now, id)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transition: %w", err)
	}
	cur.Status = to
	cur.UpdatedAt = now
	return cur, nil
}

// Settle completes a transaction and posts the resulting movement in one
// database transaction: status guard, status update, account row lock,
// movement insert and schedule claim all commit or roll back together.
// A replay against an already-completed transaction changes nothing.
func (r *transactionRepository) Settle(ctx context.Context, s repository.Settlement) (*repository.SettlementResult, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	row := tx.QueryRowContext(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE id = $1 FOR UPDATE`, s.TransactionID)
	cur, err := scanTransaction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrTransactionNotFound
	}
	if err != nil {
		return nil, err
	}

	if cur.Status == domain.TransactionStatusCompleted {
		return &repository.SettlementResult{Transaction: cur, AlreadySettled: true}, nil
	}
	if !cur.Status.CanTransitionTo(domain.TransactionStatusCompleted) {
		return nil, &domain.ConflictError{
			Op:      "settle",
			From:    string(cur.Status),
			To:      string(domain.TransactionStatusCompleted),
			Subject: fmt.Sprintf("transaction %d", s.TransactionID),
		}
	}

	now := time.Now()
	completedAt := s.CompletedAt
	if completedAt.IsZero() {
		completedAt = now
	}
	providerID := cur.ProviderTransactionID
	if s.ProviderTransactionID != "" {
		providerID = &s.ProviderTransactionID
	}
	_, err = tx.ExecContext(ctx,
		`UPDATE transactions SET status = $1, provider_transaction_id = $2, completed_at = $3, updated_at = $4 WHERE id = $5`,
		domain.TransactionStatusCompleted, providerID, completedAt, now, s.TransactionID)
	if err != nil {
		return nil, mapUniqueViolation(err)
	}

	mvType := domain.MovementTypeDebit
	if cur.SettlesAsCredit() {
		mvType = domain.MovementTypeCredit
	}
	mv, err := postMovementTx(ctx, tx, &domain.Posting{
		FranchiseeID:  cur.FranchiseeID,
		Type:          mvType,
		Amount:        cur.Amount,
		Description:   fmt.Sprintf("Settlement of %s", cur.Reference),
		Category:      strings.ToLower(string(cur.PaymentType)),
		TransactionID: &cur.ID,
	})
	if err != nil {
		return nil, err
	}

	if cur.PaymentType == domain.PaymentTypeMonthlyRoyalty {
		_, err = tx.ExecContext(ctx,
			`UPDATE accounts SET total_royalties_paid = total_royalties_paid + $1 WHERE franchisee_id = $2`,
			cur.Amount, cur.FranchiseeID)
		if err != nil {
			return nil, fmt.Errorf("failed to update royalties total: %w", err)
		}
	}

	result := &repository.SettlementResult{Transaction: cur, Movement: mv}

	if cur.ScheduleID != nil {
		res, err := tx.ExecContext(ctx,
			`UPDATE payment_schedules SET status = $1, transaction_id = $2, updated_at = $3
			 WHERE id = $4 AND status <> $5 AND (transaction_id IS NULL OR transaction_id = $2)`,
			domain.ScheduleStatusPaid, cur.ID, now, *cur.ScheduleID, domain.ScheduleStatusCancelled)
		if err != nil {
			return nil, fmt.Errorf("failed to mark schedule paid: %w", err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return nil, err
		}
		if affected == 0 {
			// Another transaction already claimed the schedule. Roll the
			// whole settle back rather than double-mark.
			return nil, &domain.ConflictError{
				Op:      "settle",
				From:    string(domain.ScheduleStatusPaid),
				To:      string(domain.ScheduleStatusPaid),
				Subject: fmt.Sprintf("schedule %d", *cur.ScheduleID),
			}
		}
		result.ScheduleID = cur.ScheduleID
	}

	// A completing refund also closes out its parent.
	if cur.PaymentType == domain.PaymentTypeRefund && cur.ParentTransactionID != nil {
		_, err = tx.ExecContext(ctx,
			`UPDATE transactions SET status = $1, updated_at = $2 WHERE id = $3 AND status = $4`,
			domain.TransactionStatusRefunded, now, *cur.ParentTransactionID, domain.TransactionStatusCompleted)
		if err != nil {
			return nil, fmt.Errorf("failed to mark parent refunded: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit settlement: %w", err)
	}

	cur.Status = domain.TransactionStatusCompleted
	cur.ProviderTransactionID = providerID
	cur.CompletedAt = &completedAt
	cur.UpdatedAt = now
	return result, nil
}

func (r *transactionRepository) ListByFranchisee(ctx context.Context, franchiseeID int32, status string, page, pageSize int32) ([]domain.Transaction, int32, error) {
	offset := (page - 1) * pageSize
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE franchisee_id = $1`
	args := []interface{}{franchiseeID}
	if status != "" {
		query += ` AND status = $2`
		args = append(args, status)
	}

	var count int32
	countQuery := `SELECT count(*) FROM (` + query + `) AS sub`
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&count); err != nil {
		return nil, 0, err
	}

	query += fmt.Sprintf(` ORDER BY created_at DESC LIMIT %d OFFSET %d`, pageSize, offset)
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var txs []domain.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, 0, err
		}
		txs = append(txs, *t)
	}
	return txs, count, rows.Err()
}

func (r *transactionRepository) ListPendingPastDue(ctx context.Context, asOf time.Time) ([]domain.Transaction, error) {
	return r.listByDueCutoff(ctx, asOf)
}

func (r *transactionRepository) ListPendingOverdueSince(ctx context.Context, dueBefore time.Time) ([]domain.Transaction, error) {
	return r.listByDueCutoff(ctx, dueBefore)
}

func (r *transactionRepository) listByDueCutoff(ctx context.Context, cutoff time.Time) ([]domain.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions
	          WHERE status IN ($1, $2) AND due_date IS NOT NULL AND due_date < $3
	          ORDER BY due_date`
	rows, err := r.db.QueryContext(ctx, query,
		domain.TransactionStatusPending, domain.TransactionStatusProcessing, cutoff)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var txs []domain.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		txs = append(txs, *t)
	}
	return txs, rows.Err()
}

// ListAbandoned returns pending transactions initiated before the cutoff that
// never saw a provider event and have not yet been flagged.
func (r *transactionRepository) ListAbandoned(ctx context.Context, initiatedBefore time.Time) ([]domain.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions
	          WHERE status = $1 AND initiated_at < $2 AND NOT (metadata ? $3)
	          ORDER BY initiated_at`
	rows, err := r.db.QueryContext(ctx, query,
		domain.TransactionStatusPending, initiatedBefore, domain.MetadataAbandonedAt)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var txs []domain.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		txs = append(txs, *t)
	}
	return txs, rows.Err()
}

// FlagAbandoned stamps the abandonment marker without touching the status.
// The transaction stays pending; it is never auto-completed or auto-failed.
func (r *transactionRepository) FlagAbandoned(ctx context.Context, id int64, at time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE transactions SET metadata = metadata || jsonb_build_object($1::text, $2::text), updated_at = $3
		 WHERE id = $4 AND status = $5`,
		domain.MetadataAbandonedAt, at.Format(time.RFC3339), time.Now(), id, domain.TransactionStatusPending)
	return err
}
