package inmemdb

import (
	"context"
	"sort"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/MABDC-admin/st.francis-portal-sub001/core/finance"
)

var errDuplicateORNumber = errors.New("duplicate key value violates unique constraint \"payments_school_or_number_key\"")

type financeRepository struct {
	db   *DB
	inTx bool
}

var _ finance.Repository = (*financeRepository)(nil) // interface compliance check

func NewFinanceRepository(db *DB) finance.Repository {
	return &financeRepository{db: db}
}

// lock takes the DB mutex unless the repository already runs inside a transaction holding it.
func (repo *financeRepository) lock() func() {
	if repo.inTx {
		return func() {}
	}
	repo.db.Lock()
	return repo.db.Unlock
}

func (repo *financeRepository) fail(op string) error {
	return repo.db.failures[op]
}

func (repo *financeRepository) RunInTx(ctx context.Context, fn func(repo finance.Repository) error) error {
	if repo.inTx {
		return fn(repo)
	}

	repo.db.Lock()
	defer repo.db.Unlock()

	if err := ctx.Err(); err != nil {
		return errors.Wrap(err, "beginning transaction")
	}
	snap := repo.db.snapshot()
	if err := fn(&financeRepository{db: repo.db, inTx: true}); err != nil {
		repo.db.restore(snap)
		return err
	}
	// a unit that outlived its deadline is rolled back like PostgreSQL would on a cancelled commit
	if err := ctx.Err(); err != nil {
		repo.db.restore(snap)
		return errors.Wrap(err, "committing transaction")
	}
	return nil
}

func (repo *financeRepository) IsCurrentAcademicYear(ctx context.Context, academicYearID string) (bool, error) {
	defer repo.lock()()
	if err := repo.fail("IsCurrentAcademicYear"); err != nil {
		return false, err
	}
	y, ok := repo.db.years[academicYearID]
	return ok && y.IsCurrent, nil
}

func (repo *financeRepository) GetAssessmentForUpdate(ctx context.Context, id string) (finance.Assessment, error) {
	defer repo.lock()()
	if err := repo.fail("GetAssessmentForUpdate"); err != nil {
		return finance.Assessment{}, err
	}
	a, ok := repo.db.assessments[id]
	if !ok {
		return finance.Assessment{}, finance.ErrAssessmentNotFound
	}
	return a, nil
}

func (repo *financeRepository) UpdateAssessmentTotals(ctx context.Context, a finance.Assessment) error {
	defer repo.lock()()
	if err := repo.fail("UpdateAssessmentTotals"); err != nil {
		return err
	}
	orig, ok := repo.db.assessments[a.ID]
	if !ok {
		return finance.ErrAssessmentNotFound
	}
	orig.TotalPaid = a.TotalPaid
	orig.Balance = a.Balance
	orig.Status = a.Status
	repo.db.assessments[a.ID] = orig
	return nil
}

func (repo *financeRepository) QueryAssessments(ctx context.Context, schoolID string) ([]finance.Assessment, error) {
	defer repo.lock()()
	assessments := make([]finance.Assessment, 0)
	for _, a := range repo.db.assessments {
		if a.SchoolID == schoolID {
			assessments = append(assessments, a)
		}
	}
	sort.Slice(assessments, func(i, j int) bool { return assessments[i].ID < assessments[j].ID })
	return assessments, nil
}

func (repo *financeRepository) NextORSequence(ctx context.Context, schoolID, defaultFormat string) (finance.SequenceCounter, error) {
	defer repo.lock()()
	if err := repo.fail("NextORSequence"); err != nil {
		return finance.SequenceCounter{}, err
	}
	c, ok := repo.db.counters[schoolID]
	if !ok {
		c = finance.SequenceCounter{SchoolID: schoolID, NextNumber: 1, FormatTemplate: defaultFormat}
	}
	issued := c
	c.NextNumber++
	repo.db.counters[schoolID] = c
	return issued, nil
}

func (repo *financeRepository) GetSequenceCounterForUpdate(ctx context.Context, schoolID string) (finance.SequenceCounter, error) {
	defer repo.lock()()
	c, ok := repo.db.counters[schoolID]
	if !ok {
		return finance.SequenceCounter{}, finance.ErrSettingsNotFound
	}
	return c, nil
}

func (repo *financeRepository) SaveSequenceCounter(ctx context.Context, c finance.SequenceCounter) error {
	defer repo.lock()()
	if err := repo.fail("SaveSequenceCounter"); err != nil {
		return err
	}
	repo.db.counters[c.SchoolID] = c
	return nil
}

func (repo *financeRepository) GetPaymentForUpdate(ctx context.Context, id string) (finance.Payment, error) {
	defer repo.lock()()
	p, ok := repo.db.payments[id]
	if !ok {
		return finance.Payment{}, finance.ErrPaymentNotFound
	}
	return p, nil
}

func (repo *financeRepository) CreatePayment(ctx context.Context, p finance.Payment) (finance.Payment, error) {
	defer repo.lock()()
	if err := repo.fail("CreatePayment"); err != nil {
		return finance.Payment{}, err
	}
	for _, existing := range repo.db.payments {
		if existing.SchoolID == p.SchoolID && existing.ORNumber == p.ORNumber {
			return finance.Payment{}, errors.Wrap(errDuplicateORNumber, "inserting payment")
		}
	}
	repo.db.payments[p.ID] = p
	return p, nil
}

// VoidPayment only ever touches the void columns: amount, method and OR number are immutable.
func (repo *financeRepository) VoidPayment(ctx context.Context, p finance.Payment) error {
	defer repo.lock()()
	if err := repo.fail("VoidPayment"); err != nil {
		return err
	}
	orig, ok := repo.db.payments[p.ID]
	if !ok || orig.Status != finance.PaymentVerified {
		return finance.ErrPaymentNotFound
	}
	orig.Status = finance.PaymentVoided
	orig.VoidedBy = p.VoidedBy
	orig.VoidedAt = p.VoidedAt
	orig.VoidReason = p.VoidReason
	repo.db.payments[p.ID] = orig
	return nil
}

func (repo *financeRepository) QueryPayments(ctx context.Context, assessmentID string) ([]finance.Payment, error) {
	defer repo.lock()()
	payments := make([]finance.Payment, 0)
	for _, p := range repo.db.payments {
		if p.AssessmentID == assessmentID {
			payments = append(payments, p)
		}
	}
	sort.Slice(payments, func(i, j int) bool { return payments[i].ORNumber < payments[j].ORNumber })
	return payments, nil
}

func (repo *financeRepository) SumVerifiedPayments(ctx context.Context, schoolID string) (map[string]decimal.Decimal, error) {
	defer repo.lock()()
	sums := make(map[string]decimal.Decimal)
	for _, p := range repo.db.payments {
		if p.SchoolID == schoolID && p.Status == finance.PaymentVerified {
			sums[p.AssessmentID] = sums[p.AssessmentID].Add(p.Amount)
		}
	}
	return sums, nil
}

func (repo *financeRepository) CreateAuditEntry(ctx context.Context, e finance.AuditEntry) error {
	defer repo.lock()()
	if err := repo.fail("CreateAuditEntry"); err != nil {
		return err
	}
	repo.db.audit = append(repo.db.audit, e)
	return nil
}
