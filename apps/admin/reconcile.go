package main

import (
	"context"
	"fmt"
	"text/tabwriter"
	"time"
)

var nowFunc = time.Now // mockable

// reconcile prints the drifted assessments of a school; finding any is reported as an error.
func (cli *commandLine) reconcile(schoolID string) error {
	discrepancies, err := cli.finSvc.Reconcile(context.Background(), schoolID)
	if err != nil {
		return err
	}
	if len(discrepancies) == 0 {
		_, err = fmt.Fprintf(cli.writer(), "%s: all assessments reconcile with their verified payments\n", schoolID)
		return err
	}

	w := tabwriter.NewWriter(cli.writer(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ASSESSMENT\tPAID (STORED)\tPAID (VERIFIED)\tBALANCE (STORED)\tBALANCE (EXPECTED)\tSTATUS (STORED)\tSTATUS (EXPECTED)")
	for _, d := range discrepancies {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			d.AssessmentID,
			d.StoredTotalPaid.StringFixed(2), d.VerifiedTotalPaid.StringFixed(2),
			d.StoredBalance.StringFixed(2), d.ExpectedBalance.StringFixed(2),
			d.StoredStatus, d.ExpectedStatus)
	}
	if err = w.Flush(); err != nil {
		return err
	}
	return fmt.Errorf("%d assessments out of balance", len(discrepancies))
}
