package echoapi

import (
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/MABDC-admin/st.francis-portal-sub001/core"
	"github.com/MABDC-admin/st.francis-portal-sub001/core/finance"
)

var (
	idParam = "id"

	errInvalidBody = "invalid request body"
)

// bindBody binds the JSON body, reporting malformed payloads as validation errors.
func bindBody(ctx echo.Context, dest interface{}, what string) error {
	if err := ctx.Bind(dest); err != nil {
		if herr, ok := err.(*echo.HTTPError); ok {
			return core.NewValidationError(errors.Errorf("%s: %v", errInvalidBody, herr.Message))
		}
		return errors.Wrapf(err, "binding to %s", what)
	}
	return nil
}

func bindNewPayment(ctx echo.Context) (finance.NewPayment, error) {
	var data finance.NewPayment
	if err := bindBody(ctx, &data, "NewPayment"); err != nil {
		return data, err
	}
	if data.ReceivedBy == "" {
		data.ReceivedBy = string(contextActor(ctx))
	}
	return data, nil
}

func bindPaymentCorrection(ctx echo.Context) (finance.PaymentCorrection, error) {
	var data finance.PaymentCorrection
	if err := bindBody(ctx, &data, "PaymentCorrection"); err != nil {
		return data, err
	}
	data.PaymentID = ctx.Param(idParam)
	if data.CorrectedBy == "" {
		data.CorrectedBy = string(contextActor(ctx))
	}
	return data, nil
}

func bindReceiptSettings(ctx echo.Context) (finance.ReceiptSettings, error) {
	var data finance.ReceiptSettings
	if err := bindBody(ctx, &data, "ReceiptSettings"); err != nil {
		return data, err
	}
	data.SchoolID = ctx.Param(idParam)
	if data.UpdatedBy == "" {
		data.UpdatedBy = string(contextActor(ctx))
	}
	return data, nil
}
