package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/MABDC-admin/st.francis-portal-sub001/core/finance"
)

type financeApi struct {
	svc finance.ServiceInterface
}

func registerFinanceAPI(g *echo.Group, svc finance.ServiceInterface) {
	api := financeApi{svc: svc}

	pg := g.Group("/payments")
	pg.POST("", api.recordPayment)
	pg.POST("/:id/correct", api.correctPayment)

	sg := g.Group("/schools/:id")
	sg.POST("/or-numbers", api.allocateORNumber)
	sg.PUT("/finance-settings", api.configureReceipts)
	sg.GET("/reconciliation", api.reconcile)
}

// Handlers

func (api *financeApi) recordPayment(ctx echo.Context) error {
	data, err := bindNewPayment(ctx)
	if err != nil {
		return err
	}
	rcpt, err := api.svc.RecordPayment(ctx.Request().Context(), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, rcpt)
}

func (api *financeApi) correctPayment(ctx echo.Context) error {
	data, err := bindPaymentCorrection(ctx)
	if err != nil {
		return err
	}
	rcpt, err := api.svc.CorrectPayment(ctx.Request().Context(), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, rcpt)
}

func (api *financeApi) allocateORNumber(ctx echo.Context) error {
	orNo, err := api.svc.AllocateORNumber(ctx.Request().Context(), ctx.Param(idParam))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, echo.Map{"or_number": orNo})
}

func (api *financeApi) configureReceipts(ctx echo.Context) error {
	data, err := bindReceiptSettings(ctx)
	if err != nil {
		return err
	}
	counter, err := api.svc.ConfigureReceipts(ctx.Request().Context(), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, counter)
}

func (api *financeApi) reconcile(ctx echo.Context) error {
	discrepancies, err := api.svc.Reconcile(ctx.Request().Context(), ctx.Param(idParam))
	if err != nil {
		return err
	}
	if discrepancies == nil {
		discrepancies = []finance.Discrepancy{}
	}
	return ctx.JSON(http.StatusOK, echo.Map{"discrepancies": discrepancies})
}
