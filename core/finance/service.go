package finance

import (
	"context"
	"fmt"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/MABDC-admin/st.francis-portal-sub001/core"
)

var (
	nowFunc = time.Now // mockable

	// errors
	ErrAssessmentNotFound   = core.NewNotFoundError("assessment not found")
	ErrPaymentNotFound      = core.NewNotFoundError("payment not found")
	ErrSettingsNotFound     = core.NewNotFoundError("finance settings not found")
	ErrAssessmentClosed     = core.NewConflictError("assessment is closed")
	ErrInactiveAcademicYear = core.NewConflictError("assessment does not belong to the active academic year")
	ErrPaymentNotVerified   = core.NewConflictError("only verified payments can be corrected")
	ErrNegativeTotalPaid    = core.NewConflictError("correction would leave the assessment with a negative total paid")
	ErrSequenceRewind       = core.NewConflictError("OR numbers cannot be moved backwards")

	errStudentMismatch = "assessment does not belong to this student"

	recordFailedMsg    = "payment could not be recorded, please try again"
	correctFailedMsg   = "payment could not be corrected, please try again"
	allocateFailedMsg  = "OR number could not be issued, please try again"
	settingsFailedMsg  = "finance settings could not be saved, please try again"
	reconcileFailedMsg = "ledger could not be reconciled, please try again"
)

type (
	// Repository is the persistence port of the ledger core.
	// Methods suffixed ForUpdate lock the row until the enclosing transaction ends.
	Repository interface {
		// RunInTx runs fn in a single transaction, fn receiving a Repository bound to it.
		// Returning an error from fn rolls every change back. Nested calls join the outer transaction.
		RunInTx(ctx context.Context, fn func(repo Repository) error) error

		IsCurrentAcademicYear(ctx context.Context, academicYearID string) (bool, error)
		GetAssessmentForUpdate(ctx context.Context, id string) (Assessment, error)
		UpdateAssessmentTotals(ctx context.Context, a Assessment) error
		QueryAssessments(ctx context.Context, schoolID string) ([]Assessment, error)

		// NextORSequence atomically returns the school's counter as it stood before being incremented by one.
		// A school without a counter starts at 1 with defaultFormat.
		NextORSequence(ctx context.Context, schoolID, defaultFormat string) (SequenceCounter, error)
		GetSequenceCounterForUpdate(ctx context.Context, schoolID string) (SequenceCounter, error)
		SaveSequenceCounter(ctx context.Context, c SequenceCounter) error

		GetPaymentForUpdate(ctx context.Context, id string) (Payment, error)
		CreatePayment(ctx context.Context, p Payment) (Payment, error)
		VoidPayment(ctx context.Context, p Payment) error
		// QueryPayments lists an assessment's payments, voided ones included, in issue order.
		// It is the read port of the student ledger and receipt printing screens.
		QueryPayments(ctx context.Context, assessmentID string) ([]Payment, error)
		SumVerifiedPayments(ctx context.Context, schoolID string) (map[string]decimal.Decimal, error)

		CreateAuditEntry(ctx context.Context, e AuditEntry) error
	}

	ServiceInterface interface {
		AllocateORNumber(ctx context.Context, schoolID string) (string, error)
		RecordPayment(ctx context.Context, np NewPayment) (Receipt, error)
		CorrectPayment(ctx context.Context, pc PaymentCorrection) (Receipt, error)
		ConfigureReceipts(ctx context.Context, rs ReceiptSettings) (SequenceCounter, error)
		Reconcile(ctx context.Context, schoolID string) ([]Discrepancy, error)
	}

	Service struct {
		repo       Repository
		logger     core.Logger
		validate   *validator.Validate
		translator ut.Translator
		conf       *core.Config
	}
)

var _ ServiceInterface = (*Service)(nil) // interface compliance check

func NewService(
	repo Repository,
	logger core.Logger,
	validate *validator.Validate,
	translator ut.Translator,
	conf *core.Config,
) *Service {
	return &Service{
		repo:       repo,
		logger:     logger,
		validate:   validate,
		translator: translator,
		conf:       conf,
	}
}

func (svc *Service) defaultORFormat() string {
	if svc.conf != nil && svc.conf.Finance.DefaultORFormat != "" {
		return svc.conf.Finance.DefaultORFormat
	}
	return DefaultORFormat
}

// withTimeout bounds a whole unit of work so that a stuck persistence call rolls everything back.
func (svc *Service) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if svc.conf != nil && svc.conf.Finance.TxTimeout > 0 {
		return context.WithTimeout(ctx, svc.conf.Finance.TxTimeout)
	}
	return context.WithCancel(ctx)
}

func (svc *Service) validateStruct(s interface{}) error {
	return core.TranslateValidationErrors(svc.validate.Struct(s), svc.translator)
}

// failure passes typed errors through and hides anything else behind a displayable PersistenceError.
func (svc *Service) failure(err error, msg string, extras map[string]interface{}) error {
	if core.IsValidation(err) || core.IsNotFound(err) || core.IsConflict(err) || core.IsPersistence(err) {
		return err
	}
	svc.logger.Error(msg, err, extras)
	return core.NewPersistenceError(msg, err)
}

// allocate issues the next OR number of a school; it must run inside repo's transaction.
func (svc *Service) allocate(ctx context.Context, repo Repository, schoolID string) (string, error) {
	counter, err := repo.NextORSequence(ctx, schoolID, svc.defaultORFormat())
	if err != nil {
		return "", errors.Wrap(err, "allocating OR number")
	}
	return FormatORNumber(counter.FormatTemplate, nowFunc().Year(), counter.NextNumber), nil
}

// AllocateORNumber issues a standalone OR number, e.g. for a manually written receipt.
func (svc *Service) AllocateORNumber(ctx context.Context, schoolID string) (string, error) {
	schoolID = core.CleanString(schoolID)
	if schoolID == "" {
		return "", core.NewValidationError(nil, core.FieldError{Field: "school_id", Error: "this field is required"})
	}

	ctx, cancel := svc.withTimeout(ctx)
	defer cancel()

	var orNo string
	err := svc.repo.RunInTx(ctx, func(repo Repository) error {
		var err error
		orNo, err = svc.allocate(ctx, repo, schoolID)
		return err
	})
	if err != nil {
		return "", svc.failure(err, allocateFailedMsg, map[string]interface{}{"school_id": schoolID})
	}
	return orNo, nil
}

// RecordPayment validates and commits a new verified payment, consuming one OR number.
// The OR allocation, the payment row, the assessment totals and the audit entry commit together or not at all.
func (svc *Service) RecordPayment(ctx context.Context, np NewPayment) (Receipt, error) {
	np.clean()
	if err := svc.validateStruct(np); err != nil {
		return Receipt{}, err
	}
	now := nowFunc().UTC()
	if np.PaymentDate.IsZero() {
		np.PaymentDate = now
	}

	ctx, cancel := svc.withTimeout(ctx)
	defer cancel()

	var rcpt Receipt
	err := svc.repo.RunInTx(ctx, func(repo Repository) error {
		a, err := repo.GetAssessmentForUpdate(ctx, np.AssessmentID)
		if err != nil {
			return err
		}
		if a.StudentID != np.StudentID {
			return core.NewValidationError(nil, core.FieldError{Field: "assessment_id", Error: errStudentMismatch})
		}
		if a.IsClosed {
			return ErrAssessmentClosed
		}
		current, err := repo.IsCurrentAcademicYear(ctx, a.AcademicYearID)
		if err != nil {
			return err
		}
		if !current {
			return ErrInactiveAcademicYear
		}
		updated, err := ApplyDelta(a, np.Amount)
		if err != nil {
			return err
		}

		orNo, err := svc.allocate(ctx, repo, a.SchoolID)
		if err != nil {
			return err
		}
		pmt, err := repo.CreatePayment(ctx, Payment{
			ID:              uuid.New().String(),
			StudentID:       a.StudentID,
			AssessmentID:    a.ID,
			SchoolID:        a.SchoolID,
			AcademicYearID:  a.AcademicYearID,
			Amount:          np.Amount,
			Method:          np.Method,
			ReferenceNumber: np.ReferenceNumber,
			Notes:           np.Notes,
			ReceivedBy:      np.ReceivedBy,
			Status:          PaymentVerified,
			ORNumber:        orNo,
			ReceiptType:     ReceiptTypeOR,
			PaymentDate:     np.PaymentDate.UTC(),
			CreatedAt:       now,
		})
		if err != nil {
			return err
		}
		if err = repo.UpdateAssessmentTotals(ctx, updated); err != nil {
			return err
		}
		if err = repo.CreateAuditEntry(ctx, AuditEntry{
			ID:        uuid.New().String(),
			SchoolID:  a.SchoolID,
			UserID:    np.ReceivedBy,
			Action:    ActionPaymentRecorded,
			TableName: auditTablePayments,
			RecordID:  pmt.ID,
			Reason:    fmt.Sprintf("%s %s via %s", orNo, np.Amount.StringFixed(2), np.Method),
			CreatedAt: now,
		}); err != nil {
			return err
		}

		rcpt = Receipt{ORNumber: orNo, Payment: pmt, Assessment: updated}
		return nil
	})
	if err != nil {
		return Receipt{}, svc.failure(err, recordFailedMsg, map[string]interface{}{
			"assessment_id": np.AssessmentID,
			"amount":        np.Amount.String(),
		})
	}

	svc.logger.Info(fmt.Sprintf("payment %s recorded", rcpt.ORNumber), map[string]interface{}{
		"assessment_id": rcpt.Assessment.ID,
		"total_paid":    rcpt.Assessment.TotalPaid.String(),
		"balance":       rcpt.Assessment.Balance.String(),
	}, core.Actor(rcpt.Payment.ReceivedBy))
	return rcpt, nil
}

// CorrectPayment voids a verified payment and reissues it with a new OR number.
// Nothing is edited in place: the original keeps its amount, method and OR number, and the assessment
// moves by the difference between the new and the original amount.
func (svc *Service) CorrectPayment(ctx context.Context, pc PaymentCorrection) (Receipt, error) {
	pc.clean()
	if err := svc.validateStruct(pc); err != nil {
		return Receipt{}, err
	}
	now := nowFunc().UTC()
	if pc.PaymentDate.IsZero() {
		pc.PaymentDate = now
	}

	ctx, cancel := svc.withTimeout(ctx)
	defer cancel()

	var rcpt Receipt
	err := svc.repo.RunInTx(ctx, func(repo Repository) error {
		orig, err := repo.GetPaymentForUpdate(ctx, pc.PaymentID)
		if err != nil {
			return err
		}
		if orig.Status != PaymentVerified {
			return ErrPaymentNotVerified
		}
		a, err := repo.GetAssessmentForUpdate(ctx, orig.AssessmentID)
		if err != nil {
			return err
		}
		updated, err := ApplyDelta(a, pc.Amount.Sub(orig.Amount))
		if err != nil {
			return err
		}

		orNo, err := svc.allocate(ctx, repo, a.SchoolID)
		if err != nil {
			return err
		}

		voided := orig
		voided.Status = PaymentVoided
		voided.VoidedBy = pc.CorrectedBy
		voided.VoidedAt = now
		voided.VoidReason = pc.Reason
		if voided.VoidReason == "" {
			voided.VoidReason = "corrected, reissued as " + orNo
		}
		if err = repo.VoidPayment(ctx, voided); err != nil {
			return err
		}

		receivedBy := pc.CorrectedBy
		if receivedBy == "" {
			receivedBy = orig.ReceivedBy
		}
		pmt, err := repo.CreatePayment(ctx, Payment{
			ID:              uuid.New().String(),
			StudentID:       orig.StudentID,
			AssessmentID:    orig.AssessmentID,
			SchoolID:        orig.SchoolID,
			AcademicYearID:  orig.AcademicYearID,
			Amount:          pc.Amount,
			Method:          pc.Method,
			ReferenceNumber: pc.ReferenceNumber,
			Notes:           correctionNotes(orig.ORNumber, pc.Notes),
			ReceivedBy:      receivedBy,
			Status:          PaymentVerified,
			ORNumber:        orNo,
			ReceiptType:     ReceiptTypeOR,
			PaymentDate:     pc.PaymentDate.UTC(),
			CreatedAt:       now,
		})
		if err != nil {
			return err
		}
		if err = repo.UpdateAssessmentTotals(ctx, updated); err != nil {
			return err
		}

		entries := []AuditEntry{
			{
				Action:   ActionPaymentVoided,
				RecordID: voided.ID,
				Reason:   voided.VoidReason,
			},
			{
				Action:   ActionPaymentReissued,
				RecordID: pmt.ID,
				Reason:   fmt.Sprintf("%s replaces %s (%s -> %s)", orNo, orig.ORNumber, orig.Amount.StringFixed(2), pc.Amount.StringFixed(2)),
			},
		}
		for _, e := range entries {
			e.ID = uuid.New().String()
			e.SchoolID = a.SchoolID
			e.UserID = pc.CorrectedBy
			e.TableName = auditTablePayments
			e.CreatedAt = now
			if err = repo.CreateAuditEntry(ctx, e); err != nil {
				return err
			}
		}

		rcpt = Receipt{ORNumber: orNo, Payment: pmt, Assessment: updated, Voided: &voided}
		return nil
	})
	if err != nil {
		return Receipt{}, svc.failure(err, correctFailedMsg, map[string]interface{}{
			"payment_id": pc.PaymentID,
			"amount":     pc.Amount.String(),
		})
	}

	svc.logger.Info(fmt.Sprintf("payment %s voided, reissued as %s", rcpt.Voided.ORNumber, rcpt.ORNumber), map[string]interface{}{
		"assessment_id": rcpt.Assessment.ID,
		"total_paid":    rcpt.Assessment.TotalPaid.String(),
		"balance":       rcpt.Assessment.Balance.String(),
	}, core.Actor(pc.CorrectedBy))
	return rcpt, nil
}

func correctionNotes(voidedOR, notes string) string {
	ref := "[Correction of " + voidedOR + "]"
	if notes == "" {
		return ref
	}
	return ref + " " + notes
}

// ConfigureReceipts sets a school's OR template and, optionally, moves its counter forward.
func (svc *Service) ConfigureReceipts(ctx context.Context, rs ReceiptSettings) (SequenceCounter, error) {
	rs.SchoolID = core.CleanString(rs.SchoolID)
	rs.Format = core.CleanString(rs.Format)
	rs.UpdatedBy = core.CleanString(rs.UpdatedBy)
	if err := svc.validateStruct(rs); err != nil {
		return SequenceCounter{}, err
	}

	ctx, cancel := svc.withTimeout(ctx)
	defer cancel()

	var counter SequenceCounter
	err := svc.repo.RunInTx(ctx, func(repo Repository) error {
		curr, err := repo.GetSequenceCounterForUpdate(ctx, rs.SchoolID)
		if err != nil {
			if !errors.Is(err, ErrSettingsNotFound) {
				return err
			}
			curr = SequenceCounter{SchoolID: rs.SchoolID, NextNumber: 1}
		}
		counter = SequenceCounter{SchoolID: rs.SchoolID, NextNumber: curr.NextNumber, FormatTemplate: rs.Format}
		if rs.NextNumber != 0 {
			if rs.NextNumber < curr.NextNumber {
				return ErrSequenceRewind
			}
			counter.NextNumber = rs.NextNumber
		}
		if err = repo.SaveSequenceCounter(ctx, counter); err != nil {
			return err
		}
		return repo.CreateAuditEntry(ctx, AuditEntry{
			ID:        uuid.New().String(),
			SchoolID:  rs.SchoolID,
			UserID:    rs.UpdatedBy,
			Action:    ActionSettingsUpdated,
			TableName: auditTableFinSettings,
			RecordID:  rs.SchoolID,
			Reason:    fmt.Sprintf("format %q, next number %d", counter.FormatTemplate, counter.NextNumber),
			CreatedAt: nowFunc().UTC(),
		})
	})
	if err != nil {
		return SequenceCounter{}, svc.failure(err, settingsFailedMsg, map[string]interface{}{"school_id": rs.SchoolID})
	}
	return counter, nil
}

// Reconcile lists the assessments of a school whose totals drifted from their verified payments.
func (svc *Service) Reconcile(ctx context.Context, schoolID string) ([]Discrepancy, error) {
	schoolID = core.CleanString(schoolID)
	if schoolID == "" {
		return nil, core.NewValidationError(nil, core.FieldError{Field: "school_id", Error: "this field is required"})
	}

	var discrepancies []Discrepancy
	err := svc.repo.RunInTx(ctx, func(repo Repository) error {
		assessments, err := repo.QueryAssessments(ctx, schoolID)
		if err != nil {
			return err
		}
		sums, err := repo.SumVerifiedPayments(ctx, schoolID)
		if err != nil {
			return err
		}
		for _, a := range assessments {
			if d, ok := reconcile(a, sums[a.ID]); !ok {
				discrepancies = append(discrepancies, d)
			}
		}
		return nil
	})
	if err != nil {
		return nil, svc.failure(err, reconcileFailedMsg, map[string]interface{}{"school_id": schoolID})
	}
	if len(discrepancies) > 0 {
		svc.logger.Warn(fmt.Sprintf("%d assessments out of balance", len(discrepancies)), map[string]interface{}{"school_id": schoolID})
	}
	return discrepancies, nil
}

func reconcile(a Assessment, verified decimal.Decimal) (Discrepancy, bool) {
	balance, status := DeriveStatus(a.NetAmount, verified)
	ok := a.TotalPaid.Equal(verified) && a.Balance.Equal(balance) && a.Status == status
	return Discrepancy{
		AssessmentID:      a.ID,
		StoredTotalPaid:   a.TotalPaid,
		VerifiedTotalPaid: verified,
		StoredBalance:     a.Balance,
		ExpectedBalance:   balance,
		StoredStatus:      a.Status,
		ExpectedStatus:    status,
	}, ok
}
