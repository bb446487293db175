package sqlxrepos

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/MABDC-admin/st.francis-portal-sub001/core"
	"github.com/MABDC-admin/st.francis-portal-sub001/core/finance"
)

const uniqueViolation = "23505"

const (
	assessmentColumns = `id, student_id, school_id, academic_year_id, total_amount, discount_amount,
		net_amount, total_paid, balance, status, is_closed`
	paymentColumns = `id, student_id, assessment_id, school_id, academic_year_id, amount, payment_method,
		reference_number, notes, received_by, status, or_number, receipt_type, payment_date,
		voided_by, voided_at, void_reason, created_at`
)

type financeRepository struct {
	db   core.DB         // nil once bound to a transaction
	exec core.DBExecutor // the DB itself or the running transaction
}

var _ finance.Repository = (*financeRepository)(nil) // interface compliance check

func NewFinanceRepository(db core.DB) finance.Repository {
	return &financeRepository{db: db, exec: db}
}

// trapNoRowsErr maps psql "no rows" err to the given not found error
func (repo *financeRepository) trapNoRowsErr(err error, notFound error, msg string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return notFound
	}
	return errors.Wrap(err, msg)
}

func (repo *financeRepository) RunInTx(ctx context.Context, fn func(repo finance.Repository) error) (err error) {
	if repo.db == nil {
		return fn(repo)
	}

	tx, err := repo.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "beginning transaction")
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err = fn(&financeRepository{exec: tx}); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			return errors.Wrapf(err, "rolling back (%v)", rbErr)
		}
		return err
	}
	if err = tx.Commit(); err != nil {
		return errors.Wrap(err, "committing transaction")
	}
	return nil
}

func (repo *financeRepository) IsCurrentAcademicYear(ctx context.Context, academicYearID string) (bool, error) {
	if _, err := uuid.Parse(academicYearID); err != nil {
		return false, nil
	}
	var current bool
	err := repo.exec.GetContext(ctx, &current, `SELECT is_current FROM academic_years WHERE id = $1`, academicYearID)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, errors.Wrap(err, "checking academic year")
	}
	return current, nil
}

func (repo *financeRepository) GetAssessmentForUpdate(ctx context.Context, id string) (finance.Assessment, error) {
	if _, err := uuid.Parse(id); err != nil {
		return finance.Assessment{}, finance.ErrAssessmentNotFound
	}
	var row assessmentRow
	q := `SELECT ` + assessmentColumns + ` FROM student_assessments WHERE id = $1 FOR UPDATE`
	if err := repo.exec.GetContext(ctx, &row, q, id); err != nil {
		return finance.Assessment{}, repo.trapNoRowsErr(err, finance.ErrAssessmentNotFound, "locking assessment")
	}
	return row.assessment(), nil
}

func (repo *financeRepository) UpdateAssessmentTotals(ctx context.Context, a finance.Assessment) error {
	res, err := repo.exec.ExecContext(ctx, `
		UPDATE student_assessments
		SET total_paid = $2, balance = $3, status = $4, updated_at = NOW()
		WHERE id = $1`,
		a.ID, a.TotalPaid, a.Balance, string(a.Status))
	if err != nil {
		return errors.Wrap(err, "updating assessment totals")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return finance.ErrAssessmentNotFound
	}
	return nil
}

func (repo *financeRepository) QueryAssessments(ctx context.Context, schoolID string) ([]finance.Assessment, error) {
	var rows []assessmentRow
	q := `SELECT ` + assessmentColumns + ` FROM student_assessments WHERE school_id = $1 ORDER BY id`
	if err := repo.exec.SelectContext(ctx, &rows, q, schoolID); err != nil {
		return nil, errors.Wrap(err, "querying assessments")
	}
	assessments := make([]finance.Assessment, 0, len(rows))
	for _, r := range rows {
		assessments = append(assessments, r.assessment())
	}
	return assessments, nil
}

// NextORSequence relies on the row lock taken by ON CONFLICT DO UPDATE: concurrent allocators
// for the same school queue on it and each one sees the value committed by the previous.
func (repo *financeRepository) NextORSequence(ctx context.Context, schoolID, defaultFormat string) (finance.SequenceCounter, error) {
	var row counterRow
	err := repo.exec.GetContext(ctx, &row, `
		INSERT INTO finance_settings (id, school_id, or_next_number, or_number_format)
		VALUES ($1, $2, 2, $3)
		ON CONFLICT (school_id) DO UPDATE
		SET or_next_number = finance_settings.or_next_number + 1, updated_at = NOW()
		RETURNING id, school_id, or_next_number - 1 AS or_next_number, or_number_format`,
		uuid.New().String(), schoolID, defaultFormat)
	if err != nil {
		return finance.SequenceCounter{}, errors.Wrap(err, "incrementing OR counter")
	}
	return row.counter(), nil
}

func (repo *financeRepository) GetSequenceCounterForUpdate(ctx context.Context, schoolID string) (finance.SequenceCounter, error) {
	var row counterRow
	err := repo.exec.GetContext(ctx, &row, `
		SELECT id, school_id, or_next_number, or_number_format
		FROM finance_settings WHERE school_id = $1 FOR UPDATE`, schoolID)
	if err != nil {
		return finance.SequenceCounter{}, repo.trapNoRowsErr(err, finance.ErrSettingsNotFound, "locking finance settings")
	}
	return row.counter(), nil
}

func (repo *financeRepository) SaveSequenceCounter(ctx context.Context, c finance.SequenceCounter) error {
	_, err := sqlx.NamedExecContext(ctx, repo.exec, `
		INSERT INTO finance_settings (id, school_id, or_next_number, or_number_format)
		VALUES (:id, :school_id, :or_next_number, :or_number_format)
		ON CONFLICT (school_id) DO UPDATE
		SET or_next_number = EXCLUDED.or_next_number, or_number_format = EXCLUDED.or_number_format, updated_at = NOW()`,
		counterRow{ID: uuid.New().String(), SchoolID: c.SchoolID, NextNumber: c.NextNumber, FormatTemplate: c.FormatTemplate})
	if err != nil {
		return errors.Wrap(err, "saving finance settings")
	}
	return nil
}

func (repo *financeRepository) GetPaymentForUpdate(ctx context.Context, id string) (finance.Payment, error) {
	if _, err := uuid.Parse(id); err != nil {
		return finance.Payment{}, finance.ErrPaymentNotFound
	}
	var row paymentRow
	q := `SELECT ` + paymentColumns + ` FROM payments WHERE id = $1 FOR UPDATE`
	if err := repo.exec.GetContext(ctx, &row, q, id); err != nil {
		return finance.Payment{}, repo.trapNoRowsErr(err, finance.ErrPaymentNotFound, "locking payment")
	}
	return row.payment(), nil
}

func (repo *financeRepository) CreatePayment(ctx context.Context, p finance.Payment) (finance.Payment, error) {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	_, err := sqlx.NamedExecContext(ctx, repo.exec, `
		INSERT INTO payments (`+paymentColumns+`)
		VALUES (:id, :student_id, :assessment_id, :school_id, :academic_year_id, :amount, :payment_method,
			:reference_number, :notes, :received_by, :status, :or_number, :receipt_type, :payment_date,
			:voided_by, :voided_at, :void_reason, :created_at)`,
		newPaymentRow(p))
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return finance.Payment{}, errors.Wrapf(err, "OR number %s already issued", p.ORNumber)
		}
		return finance.Payment{}, errors.Wrap(err, "inserting payment")
	}
	return p, nil
}

// VoidPayment only ever touches the void columns: amount, method and OR number are immutable.
func (repo *financeRepository) VoidPayment(ctx context.Context, p finance.Payment) error {
	row := newPaymentRow(p)
	res, err := repo.exec.ExecContext(ctx, `
		UPDATE payments
		SET status = $2, voided_by = $3, voided_at = $4, void_reason = $5
		WHERE id = $1 AND status = $6`,
		row.ID, string(finance.PaymentVoided), row.VoidedBy, row.VoidedAt, row.VoidReason, string(finance.PaymentVerified))
	if err != nil {
		return errors.Wrap(err, "voiding payment")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return finance.ErrPaymentNotFound
	}
	return nil
}

func (repo *financeRepository) QueryPayments(ctx context.Context, assessmentID string) ([]finance.Payment, error) {
	if _, err := uuid.Parse(assessmentID); err != nil {
		return []finance.Payment{}, nil
	}
	var rows []paymentRow
	q := `SELECT ` + paymentColumns + ` FROM payments WHERE assessment_id = $1 ORDER BY created_at, or_number`
	if err := repo.exec.SelectContext(ctx, &rows, q, assessmentID); err != nil {
		return nil, errors.Wrap(err, "querying payments")
	}
	payments := make([]finance.Payment, 0, len(rows))
	for _, r := range rows {
		payments = append(payments, r.payment())
	}
	return payments, nil
}

func (repo *financeRepository) SumVerifiedPayments(ctx context.Context, schoolID string) (map[string]decimal.Decimal, error) {
	var rows []struct {
		AssessmentID string          `db:"assessment_id"`
		Total        decimal.Decimal `db:"total"`
	}
	err := repo.exec.SelectContext(ctx, &rows, `
		SELECT assessment_id, SUM(amount) AS total
		FROM payments
		WHERE school_id = $1 AND status = $2
		GROUP BY assessment_id`,
		schoolID, string(finance.PaymentVerified))
	if err != nil {
		return nil, errors.Wrap(err, "summing verified payments")
	}
	sums := make(map[string]decimal.Decimal, len(rows))
	for _, r := range rows {
		sums[r.AssessmentID] = r.Total
	}
	return sums, nil
}

func (repo *financeRepository) CreateAuditEntry(ctx context.Context, e finance.AuditEntry) error {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	_, err := sqlx.NamedExecContext(ctx, repo.exec, `
		INSERT INTO finance_audit_logs (id, school_id, user_id, action, table_name, record_id, reason, created_at)
		VALUES (:id, :school_id, :user_id, :action, :table_name, :record_id, :reason, :created_at)`,
		newAuditRow(e))
	if err != nil {
		return errors.Wrap(err, "writing audit entry")
	}
	return nil
}

// QueryAuditEntries lists the audit trail of one record, oldest first.
func QueryAuditEntries(ctx context.Context, exec core.DBExecutor, tableName, recordID string) ([]finance.AuditEntry, error) {
	var rows []auditRow
	err := exec.SelectContext(ctx, &rows, `
		SELECT id, school_id, user_id, action, table_name, record_id, reason, created_at
		FROM finance_audit_logs
		WHERE table_name = $1 AND record_id = $2
		ORDER BY created_at, id`,
		tableName, recordID)
	if err != nil {
		return nil, errors.Wrap(err, "querying audit entries")
	}
	entries := make([]finance.AuditEntry, 0, len(rows))
	for _, r := range rows {
		entries = append(entries, r.entry())
	}
	return entries, nil
}
