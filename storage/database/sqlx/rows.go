package sqlxrepos

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/volatiletech/null/v8"

	"github.com/MABDC-admin/st.francis-portal-sub001/core/finance"
)

type assessmentRow struct {
	ID             string          `db:"id"`
	StudentID      string          `db:"student_id"`
	SchoolID       string          `db:"school_id"`
	AcademicYearID string          `db:"academic_year_id"`
	TotalAmount    decimal.Decimal `db:"total_amount"`
	DiscountAmount decimal.Decimal `db:"discount_amount"`
	NetAmount      decimal.Decimal `db:"net_amount"`
	TotalPaid      decimal.Decimal `db:"total_paid"`
	Balance        decimal.Decimal `db:"balance"`
	Status         string          `db:"status"`
	IsClosed       bool            `db:"is_closed"`
}

func (r assessmentRow) assessment() finance.Assessment {
	return finance.Assessment{
		ID:             r.ID,
		StudentID:      r.StudentID,
		SchoolID:       r.SchoolID,
		AcademicYearID: r.AcademicYearID,
		TotalAmount:    r.TotalAmount,
		DiscountAmount: r.DiscountAmount,
		NetAmount:      r.NetAmount,
		TotalPaid:      r.TotalPaid,
		Balance:        r.Balance,
		Status:         finance.AssessmentStatus(r.Status),
		IsClosed:       r.IsClosed,
	}
}

type paymentRow struct {
	ID              string          `db:"id"`
	StudentID       string          `db:"student_id"`
	AssessmentID    string          `db:"assessment_id"`
	SchoolID        string          `db:"school_id"`
	AcademicYearID  string          `db:"academic_year_id"`
	Amount          decimal.Decimal `db:"amount"`
	Method          string          `db:"payment_method"`
	ReferenceNumber null.String     `db:"reference_number"`
	Notes           null.String     `db:"notes"`
	ReceivedBy      null.String     `db:"received_by"`
	Status          string          `db:"status"`
	ORNumber        string          `db:"or_number"`
	ReceiptType     string          `db:"receipt_type"`
	PaymentDate     time.Time       `db:"payment_date"`
	VoidedBy        null.String     `db:"voided_by"`
	VoidedAt        null.Time       `db:"voided_at"`
	VoidReason      null.String     `db:"void_reason"`
	CreatedAt       time.Time       `db:"created_at"`
}

func newPaymentRow(p finance.Payment) paymentRow {
	return paymentRow{
		ID:              p.ID,
		StudentID:       p.StudentID,
		AssessmentID:    p.AssessmentID,
		SchoolID:        p.SchoolID,
		AcademicYearID:  p.AcademicYearID,
		Amount:          p.Amount,
		Method:          string(p.Method),
		ReferenceNumber: null.NewString(p.ReferenceNumber, p.ReferenceNumber != ""),
		Notes:           null.NewString(p.Notes, p.Notes != ""),
		ReceivedBy:      null.NewString(p.ReceivedBy, p.ReceivedBy != ""),
		Status:          string(p.Status),
		ORNumber:        p.ORNumber,
		ReceiptType:     p.ReceiptType,
		PaymentDate:     p.PaymentDate.UTC(),
		VoidedBy:        null.NewString(p.VoidedBy, p.VoidedBy != ""),
		VoidedAt:        null.NewTime(p.VoidedAt.UTC(), !p.VoidedAt.IsZero()),
		VoidReason:      null.NewString(p.VoidReason, p.VoidReason != ""),
		CreatedAt:       p.CreatedAt.UTC(),
	}
}

func (r paymentRow) payment() finance.Payment {
	return finance.Payment{
		ID:              r.ID,
		StudentID:       r.StudentID,
		AssessmentID:    r.AssessmentID,
		SchoolID:        r.SchoolID,
		AcademicYearID:  r.AcademicYearID,
		Amount:          r.Amount,
		Method:          finance.PaymentMethod(r.Method),
		ReferenceNumber: r.ReferenceNumber.String,
		Notes:           r.Notes.String,
		ReceivedBy:      r.ReceivedBy.String,
		Status:          finance.PaymentStatus(r.Status),
		ORNumber:        r.ORNumber,
		ReceiptType:     r.ReceiptType,
		PaymentDate:     r.PaymentDate,
		VoidedBy:        r.VoidedBy.String,
		VoidedAt:        r.VoidedAt.Time,
		VoidReason:      r.VoidReason.String,
		CreatedAt:       r.CreatedAt,
	}
}

// counterRow is a finance_settings row; the id is only assigned on first insert.
type counterRow struct {
	ID             string `db:"id"`
	SchoolID       string `db:"school_id"`
	NextNumber     int64  `db:"or_next_number"`
	FormatTemplate string `db:"or_number_format"`
}

func (r counterRow) counter() finance.SequenceCounter {
	return finance.SequenceCounter{SchoolID: r.SchoolID, NextNumber: r.NextNumber, FormatTemplate: r.FormatTemplate}
}

type auditRow struct {
	ID        string      `db:"id"`
	SchoolID  string      `db:"school_id"`
	UserID    null.String `db:"user_id"`
	Action    string      `db:"action"`
	TableName string      `db:"table_name"`
	RecordID  string      `db:"record_id"`
	Reason    null.String `db:"reason"`
	CreatedAt time.Time   `db:"created_at"`
}

func newAuditRow(e finance.AuditEntry) auditRow {
	return auditRow{
		ID:        e.ID,
		SchoolID:  e.SchoolID,
		UserID:    null.NewString(e.UserID, e.UserID != ""),
		Action:    e.Action,
		TableName: e.TableName,
		RecordID:  e.RecordID,
		Reason:    null.NewString(e.Reason, e.Reason != ""),
		CreatedAt: e.CreatedAt.UTC(),
	}
}

func (r auditRow) entry() finance.AuditEntry {
	return finance.AuditEntry{
		ID:        r.ID,
		SchoolID:  r.SchoolID,
		UserID:    r.UserID.String,
		Action:    r.Action,
		TableName: r.TableName,
		RecordID:  r.RecordID,
		Reason:    r.Reason.String,
		CreatedAt: r.CreatedAt,
	}
}
