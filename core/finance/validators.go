package finance

import (
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/MABDC-admin/st.francis-portal-sub001/core"
)

var (
	payMethodTag  = "paymethod"
	payMethodText = "{0} must be one of cash, bank_deposit, online_transfer, e_wallet or card"

	referenceTag  = "nonemptyref"
	referenceText = "a reference number is required for non-cash payments"

	orFormatTag  = "orformat"
	orFormatText = "{0} must contain the sequence placeholder exactly once"

	moneyTag  = "money"
	moneyText = "{0} must have at most 2 decimal places and be less than 10000000000"

	// amounts are stored as NUMERIC(12,2)
	moneyPlaces int32 = 2
	maxMoney          = decimal.New(1, 10)
)

// InitValidators registers the finance validation tags on an already initialised validator.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(payMethodTag, payMethodValidation)
	core.RegisterCustomTranslation(validate, translator, payMethodTag, payMethodText)

	_ = validate.RegisterValidation(orFormatTag, orFormatValidation)
	core.RegisterCustomTranslation(validate, translator, orFormatTag, orFormatText)

	validate.RegisterStructValidation(paymentStructValidation, NewPayment{}, PaymentCorrection{})
	core.RegisterCustomTranslation(validate, translator, referenceTag, referenceText)
	core.RegisterCustomTranslation(validate, translator, moneyTag, moneyText)
}

// Custom Validators

func payMethodValidation(fl validator.FieldLevel) bool {
	return PaymentMethod(fl.Field().String()).IsValid()
}

func orFormatValidation(fl validator.FieldLevel) bool {
	return IsValidORFormat(fl.Field().String())
}

// IsStorableAmount reports whether amount fits a NUMERIC(12,2) column without rounding.
func IsStorableAmount(amount decimal.Decimal) bool {
	return amount.Equal(amount.Round(moneyPlaces)) && amount.Abs().LessThan(maxMoney)
}

// paymentStructValidation requires a reference number whenever the method is not cash,
// and a positive amount that can be stored as is.
func paymentStructValidation(sl validator.StructLevel) {
	var method PaymentMethod
	var ref string
	var amount decimal.Decimal

	switch p := sl.Current().Interface().(type) {
	case NewPayment:
		method, ref, amount = p.Method, p.ReferenceNumber, p.Amount
	case PaymentCorrection:
		method, ref, amount = p.Method, p.ReferenceNumber, p.Amount
	default:
		return
	}
	if method.IsValid() && method.RequiresReference() && ref == "" {
		sl.ReportError(ref, "reference_number", "ReferenceNumber", referenceTag, "")
	}
	// non-positive amounts are already reported by gt=0
	if amount.IsPositive() && !IsStorableAmount(amount) {
		sl.ReportError(amount.String(), "amount", "Amount", moneyTag, "")
	}
}
