package tests

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/MABDC-admin/st.francis-portal-sub001/core/finance"
	"github.com/MABDC-admin/st.francis-portal-sub001/tests"
)

const schoolID = "sfa"

func Test_financeApi_recordPayment(t *testing.T) {
	app, db := setup(t)
	year := testutil.CreateAcademicYear(t, db, schoolID, true)
	a := testutil.CreateAssessment(t, db, year, "stu-1", "10000")
	path := "/v1/payments"

	body := func(method, ref, amount string) []byte {
		return marchallObj(t, map[string]interface{}{
			"student_id":       "stu-1",
			"assessment_id":    a.ID,
			"amount":           amount,
			"payment_method":   method,
			"reference_number": ref,
		})
	}

	tests := []httpTest{
		{
			name:     "malformed body",
			body:     []byte(`{"amount": `),
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "empty body",
			body:     []byte(`{}`),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{
				"student_id":     "this field is required",
				"assessment_id":  "this field is required",
				"amount":         "amount must be greater than 0",
				"payment_method": "this field is required",
			}),
		},
		{
			name:     "bank deposit without reference",
			body:     body("bank_deposit", "", "4000"),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"reference_number": "a reference number is required for non-cash payments"}),
		},
		{
			name:     "unknown method",
			body:     body("cheque", "", "4000"),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{
				"payment_method": "payment_method must be one of cash, bank_deposit, online_transfer, e_wallet or card",
			}),
		},
		{
			name:     "sub-centavo amount",
			body:     body("cash", "", "12.345"),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"amount": "amount must have at most 2 decimal places and be less than 10000000000"}),
		},
		{
			name: "unknown assessment",
			body: marchallObj(t, map[string]interface{}{
				"student_id": "stu-1", "assessment_id": "nope", "amount": 1, "payment_method": "cash",
			}),
			wantCode: http.StatusNotFound,
			wantData: marchallObj(t, httpErr{Error: "assessment not found"}),
		},
		{
			name:     "cash payment",
			body:     body("cash", "", "4000"),
			staff:    staffID,
			wantCode: http.StatusCreated,
			extra:    fmt.Sprintf("OR-%d-000001", thisYear()),
		},
		{
			name:     "bank deposit with reference",
			body:     body("bank_deposit", "BDO-1234", "6000"),
			staff:    staffID,
			wantCode: http.StatusCreated,
			extra:    fmt.Sprintf("OR-%d-000002", thisYear()),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newStaffRequest(http.MethodPost, path, tt.staff, tt.body)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)

			if wantOR, ok := tt.extra.(string); ok && rec.Code == http.StatusCreated {
				var rcpt finance.Receipt
				unmarshal(t, rec, &rcpt)
				assert.Equal(t, wantOR, rcpt.ORNumber)
				assert.Equal(t, wantOR, rcpt.Payment.ORNumber)
				assert.Equal(t, staffID, rcpt.Payment.ReceivedBy)
				assert.Equal(t, finance.PaymentVerified, rcpt.Payment.Status)
			}
		})
	}

	// 4000 + 6000 settled it; anything more is an overpayment and the balance stays at zero
	rcpt := recordCash(t, app, a, "1")
	assert.Equal(t, finance.AssessmentPaid, rcpt.Assessment.Status)
	assert.True(t, rcpt.Assessment.Balance.IsZero())
}

func recordCash(t *testing.T, app http.Handler, a finance.Assessment, amount string) finance.Receipt {
	t.Helper()
	req, rec := newStaffRequest(http.MethodPost, "/v1/payments", staffID, marchallObj(t, map[string]interface{}{
		"student_id":     a.StudentID,
		"assessment_id":  a.ID,
		"amount":         amount,
		"payment_method": "cash",
	}))
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("recordCash() failed: %d %s", rec.Code, rec.Body.String())
	}
	var rcpt finance.Receipt
	unmarshal(t, rec, &rcpt)
	return rcpt
}

func Test_financeApi_correctPayment(t *testing.T) {
	app, db := setup(t)
	year := testutil.CreateAcademicYear(t, db, schoolID, true)
	a := testutil.CreateAssessment(t, db, year, "stu-1", "10000")
	orig := recordCash(t, app, a, "4000")

	path := func(id string) string { return "/v1/payments/" + id + "/correct" }
	body := marchallObj(t, map[string]interface{}{"amount": "5000", "payment_method": "cash", "notes": "keyed 4000"})

	tests := []httpTest{
		{
			name:     "no staff member",
			path:     path(orig.Payment.ID),
			body:     body,
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"corrected_by": "this field is required"}),
		},
		{
			name:     "unknown payment",
			path:     path("nope"),
			body:     body,
			staff:    "registrar-1",
			wantCode: http.StatusNotFound,
			wantData: marchallObj(t, httpErr{Error: "payment not found"}),
		},
		{
			name:     "zero amount",
			path:     path(orig.Payment.ID),
			body:     marchallObj(t, map[string]interface{}{"amount": 0, "payment_method": "cash"}),
			staff:    "registrar-1",
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"amount": "amount must be greater than 0"}),
		},
		{
			name:     "correct",
			path:     path(orig.Payment.ID),
			body:     body,
			staff:    "registrar-1",
			wantCode: http.StatusCreated,
		},
		{
			name:     "already voided",
			path:     path(orig.Payment.ID),
			body:     body,
			staff:    "registrar-1",
			wantCode: http.StatusConflict,
			wantData: marchallObj(t, httpErr{Error: "only verified payments can be corrected"}),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newStaffRequest(http.MethodPost, tt.path, tt.staff, tt.body)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)

			if rec.Code == http.StatusCreated {
				var rcpt finance.Receipt
				unmarshal(t, rec, &rcpt)
				assert.Equal(t, fmt.Sprintf("OR-%d-000002", thisYear()), rcpt.ORNumber)
				assert.True(t, rcpt.Assessment.TotalPaid.Equal(decimal.NewFromInt(5000)))
				assert.True(t, rcpt.Assessment.Balance.Equal(decimal.NewFromInt(5000)))
				assert.Equal(t, finance.AssessmentPartial, rcpt.Assessment.Status)
				if assert.NotNil(t, rcpt.Voided) {
					assert.Equal(t, orig.ORNumber, rcpt.Voided.ORNumber)
					assert.Equal(t, "registrar-1", rcpt.Voided.VoidedBy)
				}
			}
		})
	}
}

func Test_financeApi_configureReceipts(t *testing.T) {
	app, db := setup(t)
	year := testutil.CreateAcademicYear(t, db, schoolID, true)
	a := testutil.CreateAssessment(t, db, year, "stu-1", "10000")
	path := "/v1/schools/" + schoolID + "/finance-settings"

	tests := []httpTest{
		{
			name:     "missing sequence placeholder",
			body:     marchallObj(t, map[string]interface{}{"or_number_format": "SFA-{YYYY}"}),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"or_number_format": "or_number_format must contain the sequence placeholder exactly once"}),
		},
		{
			name:     "configure",
			body:     marchallObj(t, map[string]interface{}{"or_number_format": "SFA-{SEQ}", "or_next_number": 100}),
			wantCode: http.StatusOK,
			wantData: marchallObj(t, finance.SequenceCounter{SchoolID: schoolID, NextNumber: 100, FormatTemplate: "SFA-{SEQ}"}),
		},
		{
			name:     "rewind",
			body:     marchallObj(t, map[string]interface{}{"or_number_format": "SFA-{SEQ}", "or_next_number": 5}),
			wantCode: http.StatusConflict,
			wantData: marchallObj(t, httpErr{Error: "OR numbers cannot be moved backwards"}),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newStaffRequest(http.MethodPut, path, "admin-1", tt.body)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}

	rcpt := recordCash(t, app, a, "100")
	assert.Equal(t, "SFA-000100", rcpt.ORNumber)
}

func Test_financeApi_allocateORNumber(t *testing.T) {
	app, _ := setup(t)

	for i := 1; i <= 3; i++ {
		req, rec := newStaffRequest(http.MethodPost, "/v1/schools/"+schoolID+"/or-numbers", staffID)
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusCreated,
			wantData: marchallObj(t, map[string]string{"or_number": fmt.Sprintf("OR-%d-%06d", thisYear(), i)}),
		}, rec)
	}
}

func Test_financeApi_reconcile(t *testing.T) {
	app, db := setup(t)
	year := testutil.CreateAcademicYear(t, db, schoolID, true)
	a := testutil.CreateAssessment(t, db, year, "stu-1", "10000")
	rcpt := recordCash(t, app, a, "2500")
	path := "/v1/schools/" + schoolID + "/reconciliation"

	req, rec := newStaffRequest(http.MethodGet, path, staffID)
	app.ServeHTTP(rec, req)
	checkCodeAndData(t, httpTest{wantCode: http.StatusOK, wantData: []byte(`{"discrepancies": []}`)}, rec)

	// a write that bypassed the ledger
	drifted := rcpt.Assessment
	drifted.Balance = decimal.NewFromInt(100)
	db.AddAssessment(drifted)

	req, rec = newStaffRequest(http.MethodGet, path, staffID)
	app.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	var data struct {
		Discrepancies []finance.Discrepancy `json:"discrepancies"`
	}
	unmarshal(t, rec, &data)
	if assert.Len(t, data.Discrepancies, 1) {
		assert.Equal(t, a.ID, data.Discrepancies[0].AssessmentID)
		assert.True(t, data.Discrepancies[0].ExpectedBalance.Equal(decimal.NewFromInt(7500)))
	}
}

func Test_home(t *testing.T) {
	app, _ := setup(t)
	req, rec := newStaffRequest(http.MethodGet, "/", "")
	app.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}
