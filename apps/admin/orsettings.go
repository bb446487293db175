package main

import (
	"context"
	"fmt"

	"github.com/MABDC-admin/st.francis-portal-sub001/core/finance"
)

func (cli *commandLine) setORSettings(schoolID, format string, next int64, by string) error {
	counter, err := cli.finSvc.ConfigureReceipts(context.Background(), finance.ReceiptSettings{
		SchoolID:   schoolID,
		Format:     format,
		NextNumber: next,
		UpdatedBy:  by,
	})
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(cli.writer(), "%s: next OR number %s\n",
		counter.SchoolID, finance.FormatORNumber(counter.FormatTemplate, nowFunc().Year(), counter.NextNumber))
	return err
}
