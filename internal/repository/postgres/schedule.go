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

type scheduleRepository struct {
	db *sql.DB
}

func NewScheduleRepository(db *sql.DB) repository.ScheduleRepository {
	return &scheduleRepository{db: db}
}

const scheduleColumns = `id, franchisee_id, contract_id, type, amount, due_date, period_start, period_end,
	calculated_revenue, status, transaction_id, reminder_count, last_reminder_at, created_at, updated_at`

func scanSchedule(row rowScanner) (*domain.PaymentSchedule, error) {
	s := &domain.PaymentSchedule{}
	var (
		amount       decimal.NullDecimal
		revenue      decimal.NullDecimal
		txID         sql.NullInt64
		lastReminder sql.NullTime
	)
	err := row.Scan(&s.ID, &s.FranchiseeID, &s.ContractID, &s.Type, &amount, &s.DueDate,
		&s.PeriodStart, &s.PeriodEnd, &revenue, &s.Status, &txID, &s.ReminderCount,
		&lastReminder, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if amount.Valid {
		s.Amount = &amount.Decimal
	}
	if revenue.Valid {
		s.CalculatedRevenue = &revenue.Decimal
	}
	if txID.Valid {
		s.TransactionID = &txID.Int64
	}
	if lastReminder.Valid {
		s.LastReminderAt = &lastReminder.Time
	}
	return s, nil
}

// CreateBatch inserts the schedules in one transaction. The unique index on
// (contract_id, type, period_start) turns duplicate rows into silent no-ops
// via ON CONFLICT DO NOTHING, so two writers generating the same schedule
// concurrently cannot double it. Returns the number of rows inserted;
// schedules that lost to an existing row keep a zero ID.
func (r *scheduleRepository) CreateBatch(ctx context.Context, schedules []*domain.PaymentSchedule) (int, error) {
	if len(schedules) == 0 {
		return 0, nil
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now()
	query := `INSERT INTO payment_schedules (franchisee_id, contract_id, type, amount, due_date, period_start, period_end, status, reminder_count, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, 0, $9, $9)
	          ON CONFLICT (contract_id, type, period_start) DO NOTHING
	          RETURNING id`
	inserted := 0
	for _, s := range schedules {
		var amount interface{}
		if s.Amount != nil {
			amount = *s.Amount
		}
		err := tx.QueryRowContext(ctx, query,
			s.FranchiseeID, s.ContractID, s.Type, amount, s.DueDate, s.PeriodStart, s.PeriodEnd,
			s.Status, now).Scan(&s.ID)
		if errors.Is(err, sql.ErrNoRows) {
			continue
		}
		if err != nil {
			return inserted, fmt.Errorf("failed to insert schedule due %s: %w", s.DueDate.Format("2006-01-02"), err)
		}
		s.CreatedAt = now
		s.UpdatedAt = now
		inserted++
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit schedule batch: %w", err)
	}
	return inserted, nil
}

func (r *scheduleRepository) GetByID(ctx context.Context, id int64) (*domain.PaymentSchedule, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+scheduleColumns+` FROM payment_schedules WHERE id = $1`, id)
	s, err := scanSchedule(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrScheduleNotFound
	}
	return s, err
}

func (r *scheduleRepository) ListByFranchisee(ctx context.Context, franchiseeID int32, status string) ([]domain.PaymentSchedule, error) {
	query := `SELECT ` + scheduleColumns + ` FROM payment_schedules WHERE franchisee_id = $1`
	args := []interface{}{franchiseeID}
	if status != "" {
		query += ` AND status = $2`
		args = append(args, status)
	}
	query += ` ORDER BY due_date`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var schedules []domain.PaymentSchedule
	for rows.Next() {
		s, err := scanSchedule(rows)
		if err != nil {
			return nil, err
		}
		schedules = append(schedules, *s)
	}
	return schedules, rows.Err()
}

// ListDueWithin returns unmaterialized pending schedules whose due date falls
// inside [from, to). The upcoming sweep materializes these.
func (r *scheduleRepository) ListDueWithin(ctx context.Context, from, to time.Time) ([]domain.PaymentSchedule, error) {
	query := `SELECT ` + scheduleColumns + ` FROM payment_schedules
	          WHERE status = $1 AND transaction_id IS NULL AND due_date >= $2 AND due_date < $3
	          ORDER BY due_date`
	rows, err := r.db.QueryContext(ctx, query, domain.ScheduleStatusPending, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var schedules []domain.PaymentSchedule
	for rows.Next() {
		s, err := scanSchedule(rows)
		if err != nil {
			return nil, err
		}
		schedules = append(schedules, *s)
	}
	return schedules, rows.Err()
}

func (r *scheduleRepository) SetRevenue(ctx context.Context, id int64, revenue decimal.Decimal) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE payment_schedules SET calculated_revenue = $1, updated_at = $2 WHERE id = $3 AND transaction_id IS NULL`,
		revenue, time.Now(), id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return domain.ErrScheduleAlreadyMaterialized
	}
	return nil
}

func (r *scheduleRepository) IncrementReminder(ctx context.Context, id int64, at time.Time, markOverdue bool) error {
	query := `UPDATE payment_schedules SET reminder_count = reminder_count + 1, last_reminder_at = $1, updated_at = $2`
	args := []interface{}{at, time.Now()}
	if markOverdue {
		query += `, status = $3 WHERE id = $4 AND status NOT IN ($5, $6)`
		args = append(args, domain.ScheduleStatusOverdue, id, domain.ScheduleStatusPaid, domain.ScheduleStatusCancelled)
	} else {
		query += ` WHERE id = $3`
		args = append(args, id)
	}
	_, err := r.db.ExecContext(ctx, query, args...)
	return err
}

func (r *scheduleRepository) Cancel(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE payment_schedules SET status = $1, updated_at = $2 WHERE id = $3 AND status NOT IN ($1, $4)`,
		domain.ScheduleStatusCancelled, time.Now(), id, domain.ScheduleStatusPaid)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return &domain.ConflictError{Op: "cancel", Subject: fmt.Sprintf("schedule %d", id)}
	}
	return nil
}

// ReleaseClaim detaches a dead transaction from its schedule. The schedule
// goes back to PENDING, or straight to OVERDUE when its due date has already
// passed, so the next materialization sweep picks it up again.
func (r *scheduleRepository) ReleaseClaim(ctx context.Context, scheduleID, transactionID int64, asOf time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE payment_schedules
		 SET transaction_id = NULL,
		     status = CASE WHEN due_date < $1 THEN $2::text ELSE $3::text END,
		     updated_at = $1
		 WHERE id = $4 AND transaction_id = $5 AND status NOT IN ($6, $7)`,
		asOf, domain.ScheduleStatusOverdue, domain.ScheduleStatusPending,
		scheduleID, transactionID, domain.ScheduleStatusPaid, domain.ScheduleStatusCancelled)
	if err != nil {
		return fmt.Errorf("failed to release schedule claim: %w", err)
	}
	return nil
}

// Materialize creates t as a pending transaction and claims the schedule for
// it in one database transaction. The WHERE transaction_id IS NULL guard
// makes the first writer win; everyone else gets
// domain.ErrScheduleAlreadyMaterialized and no new transaction row.
func (r *scheduleRepository) Materialize(ctx context.Context, scheduleID int64, t *domain.Transaction) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	row := tx.QueryRowContext(ctx,
		`SELECT `+scheduleColumns+` FROM payment_schedules WHERE id = $1 FOR UPDATE`, scheduleID)
	s, err := scanSchedule(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ErrScheduleNotFound
	}
	if err != nil {
		return err
	}
	if s.Materialized() {
		return domain.ErrScheduleAlreadyMaterialized
	}
	if s.Status == domain.ScheduleStatusCancelled {
		return &domain.ConflictError{
			Op:      "materialize",
			From:    string(s.Status),
			To:      string(domain.ScheduleStatusSent),
			Subject: fmt.Sprintf("schedule %d", scheduleID),
		}
	}

	t.Status = domain.TransactionStatusPending
	t.ScheduleID = &scheduleID
	metadata, err := marshalMetadata(t.Metadata)
	if err != nil {
		return err
	}
	now := time.Now()
	err = tx.QueryRowContext(ctx,
		`INSERT INTO transactions (franchisee_id, payment_type, reference, amount, currency, status, payment_method,
		   schedule_id, contract_id, description, metadata, due_date, initiated_at, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $13, $13) RETURNING id`,
		t.FranchiseeID, t.PaymentType, t.Reference, t.Amount, t.Currency, t.Status, t.PaymentMethod,
		scheduleID, t.ContractID, t.Description, metadata, t.DueDate, now).Scan(&t.ID)
	if err != nil {
		return fmt.Errorf("failed to insert materialized transaction: %w", err)
	}
	t.InitiatedAt = now
	t.CreatedAt = now
	t.UpdatedAt = now

	res, err := tx.ExecContext(ctx,
		`UPDATE payment_schedules SET transaction_id = $1, status = $2, updated_at = $3
		 WHERE id = $4 AND transaction_id IS NULL`,
		t.ID, domain.ScheduleStatusSent, now, scheduleID)
	if err != nil {
		return fmt.Errorf("failed to claim schedule: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return domain.ErrScheduleAlreadyMaterialized
	}

	return tx.Commit()
}
