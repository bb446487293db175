package dig_container

import (
	"testing"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/MABDC-admin/st.francis-portal-sub001/core"
	"github.com/MABDC-admin/st.francis-portal-sub001/core/finance"
)

func TestNew_validator(t *testing.T) {
	c := New()

	err := c.Invoke(func(validate *validator.Validate, translator ut.Translator) {
		np := finance.NewPayment{
			StudentID:    "stu-1",
			AssessmentID: "a-1",
			Amount:       decimal.NewFromInt(100),
			Method:       finance.MethodBankDeposit,
		}
		err := core.TranslateValidationErrors(validate.Struct(np), translator)
		vErr, ok := err.(*core.ValidationError)
		if !ok || len(vErr.Fields) != 1 || vErr.Fields[0].Field != "reference_number" {
			t.Errorf("validate.Struct() error = %v, want a reference_number error", err)
		}
	})
	if err != nil {
		t.Fatalf("c.Invoke() failed: %v", err)
	}
}
