package finance

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/MABDC-admin/st.francis-portal-sub001/core"
)

type AssessmentStatus string

// Assessment statuses
const (
	AssessmentPending AssessmentStatus = "pending"
	AssessmentPartial AssessmentStatus = "partial"
	AssessmentPaid    AssessmentStatus = "paid"
	// AssessmentOverpaid is known to collaborators but never derived by the ledger (balances are clamped).
	AssessmentOverpaid AssessmentStatus = "overpaid"
)

type PaymentStatus string

// Payment statuses
const (
	PaymentVerified PaymentStatus = "verified"
	PaymentPending  PaymentStatus = "pending"
	PaymentVoided   PaymentStatus = "voided"
)

type PaymentMethod string

// Payment methods
const (
	MethodCash           PaymentMethod = "cash"
	MethodBankDeposit    PaymentMethod = "bank_deposit"
	MethodOnlineTransfer PaymentMethod = "online_transfer"
	MethodEWallet        PaymentMethod = "e_wallet"
	MethodCard           PaymentMethod = "card"
)

var PaymentMethods = []PaymentMethod{MethodCash, MethodBankDeposit, MethodOnlineTransfer, MethodEWallet, MethodCard}

func (m PaymentMethod) IsValid() bool {
	for _, pm := range PaymentMethods {
		if m == pm {
			return true
		}
	}
	return false
}

// RequiresReference is true for every method that leaves a trace outside the cashier's drawer.
func (m PaymentMethod) RequiresReference() bool { return m != MethodCash }

const ReceiptTypeOR = "OR"

// Audit actions
const (
	ActionPaymentRecorded = "payment.recorded"
	ActionPaymentVoided   = "payment.voided"
	ActionPaymentReissued = "payment.reissued"
	ActionSettingsUpdated = "finance_settings.updated"

	auditTablePayments    = "payments"
	auditTableFinSettings = "finance_settings"
)

// Assessment is a student's billing record for one academic year.
type Assessment struct {
	ID             string           `json:"id"`
	StudentID      string           `json:"student_id"`
	SchoolID       string           `json:"school_id"`
	AcademicYearID string           `json:"academic_year_id"`
	TotalAmount    decimal.Decimal  `json:"total_amount"`
	DiscountAmount decimal.Decimal  `json:"discount_amount"`
	NetAmount      decimal.Decimal  `json:"net_amount"`
	TotalPaid      decimal.Decimal  `json:"total_paid"`
	Balance        decimal.Decimal  `json:"balance"`
	Status         AssessmentStatus `json:"status"`
	IsClosed       bool             `json:"is_closed"`
}

// Overpayment is what was paid beyond the net amount; the ledger keeps Balance at zero in that case.
func (a Assessment) Overpayment() decimal.Decimal {
	if over := a.TotalPaid.Sub(a.NetAmount); over.IsPositive() {
		return over
	}
	return decimal.Zero
}

// Payment is append-only: rows are inserted verified and may only move to voided.
type Payment struct {
	ID              string          `json:"id"`
	StudentID       string          `json:"student_id"`
	AssessmentID    string          `json:"assessment_id"`
	SchoolID        string          `json:"school_id"`
	AcademicYearID  string          `json:"academic_year_id"`
	Amount          decimal.Decimal `json:"amount"`
	Method          PaymentMethod   `json:"payment_method"`
	ReferenceNumber string          `json:"reference_number,omitempty"`
	Notes           string          `json:"notes,omitempty"`
	ReceivedBy      string          `json:"received_by,omitempty"`
	Status          PaymentStatus   `json:"status"`
	ORNumber        string          `json:"or_number"`
	ReceiptType     string          `json:"receipt_type"`
	PaymentDate     time.Time       `json:"payment_date"`
	VoidedBy        string          `json:"voided_by,omitempty"`
	VoidedAt        time.Time       `json:"voided_at,omitempty"`
	VoidReason      string          `json:"void_reason,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
}

func (p Payment) IsVoided() bool { return p.Status == PaymentVoided }

// SequenceCounter is a school's official receipt counter (finance_settings).
type SequenceCounter struct {
	SchoolID       string `json:"school_id"`
	NextNumber     int64  `json:"or_next_number"`
	FormatTemplate string `json:"or_number_format"`
}

type AcademicYear struct {
	ID        string `json:"id"`
	SchoolID  string `json:"school_id"`
	Name      string `json:"name"`
	IsCurrent bool   `json:"is_current"`
}

// AuditEntry is one row of finance_audit_logs, written in the same transaction as the change it describes.
type AuditEntry struct {
	ID        string    `json:"id"`
	SchoolID  string    `json:"school_id"`
	UserID    string    `json:"user_id,omitempty"`
	Action    string    `json:"action"`
	TableName string    `json:"table_name"`
	RecordID  string    `json:"record_id"`
	Reason    string    `json:"reason,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// NewPayment contains information needed to record a payment against an assessment.
type NewPayment struct {
	StudentID       string          `json:"student_id" validate:"required"`
	AssessmentID    string          `json:"assessment_id" validate:"required"`
	Amount          decimal.Decimal `json:"amount" validate:"gt=0"`
	Method          PaymentMethod   `json:"payment_method" validate:"required,paymethod"`
	ReferenceNumber string          `json:"reference_number"`
	Notes           string          `json:"notes"`
	PaymentDate     time.Time       `json:"payment_date"`
	ReceivedBy      string          `json:"received_by"`
}

func (np *NewPayment) clean() {
	np.StudentID = core.CleanString(np.StudentID)
	np.AssessmentID = core.CleanString(np.AssessmentID)
	np.Method = PaymentMethod(core.CleanString(string(np.Method), true /* lower */))
	np.ReferenceNumber = core.CleanString(np.ReferenceNumber)
	np.Notes = core.CleanString(np.Notes)
	np.ReceivedBy = core.CleanString(np.ReceivedBy)
}

// PaymentCorrection describes the replacement of a verified payment (void and reissue).
type PaymentCorrection struct {
	PaymentID       string          `json:"payment_id" validate:"required"`
	Amount          decimal.Decimal `json:"amount" validate:"gt=0"`
	Method          PaymentMethod   `json:"payment_method" validate:"required,paymethod"`
	ReferenceNumber string          `json:"reference_number"`
	Notes           string          `json:"notes"`
	PaymentDate     time.Time       `json:"payment_date"`
	CorrectedBy     string          `json:"corrected_by" validate:"required"`
	Reason          string          `json:"void_reason"`
}

func (pc *PaymentCorrection) clean() {
	pc.PaymentID = core.CleanString(pc.PaymentID)
	pc.Method = PaymentMethod(core.CleanString(string(pc.Method), true /* lower */))
	pc.ReferenceNumber = core.CleanString(pc.ReferenceNumber)
	pc.Notes = core.CleanString(pc.Notes)
	pc.CorrectedBy = core.CleanString(pc.CorrectedBy)
	pc.Reason = core.CleanString(pc.Reason)
}

// ReceiptSettings updates a school's OR counter. A zero NextNumber keeps the current value.
type ReceiptSettings struct {
	SchoolID   string `json:"school_id" validate:"required"`
	Format     string `json:"or_number_format" validate:"required,orformat"`
	NextNumber int64  `json:"or_next_number" validate:"gte=0"`
	UpdatedBy  string `json:"updated_by"`
}

// Receipt is what a successful payment or correction hands back to the cashier.
type Receipt struct {
	ORNumber   string     `json:"or_number"`
	Payment    Payment    `json:"payment"`
	Assessment Assessment `json:"assessment"`
	Voided     *Payment   `json:"voided,omitempty"`
}

// Discrepancy is an assessment whose stored totals do not match its verified payments.
type Discrepancy struct {
	AssessmentID      string           `json:"assessment_id"`
	StoredTotalPaid   decimal.Decimal  `json:"stored_total_paid"`
	VerifiedTotalPaid decimal.Decimal  `json:"verified_total_paid"`
	StoredBalance     decimal.Decimal  `json:"stored_balance"`
	ExpectedBalance   decimal.Decimal  `json:"expected_balance"`
	StoredStatus      AssessmentStatus `json:"stored_status"`
	ExpectedStatus    AssessmentStatus `json:"expected_status"`
}
