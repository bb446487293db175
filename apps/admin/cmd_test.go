package main

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"strconv"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/MABDC-admin/st.francis-portal-sub001/core"
	"github.com/MABDC-admin/st.francis-portal-sub001/core/finance"
	"github.com/MABDC-admin/st.francis-portal-sub001/storage/database/inmem"
	"github.com/MABDC-admin/st.francis-portal-sub001/tests"
)

const schoolID = "sfa"

func setup(t *testing.T) (*commandLine, *inmemdb.DB, *bytes.Buffer) {
	// set up DB & services
	db, err := inmemdb.Open()
	if err != nil {
		t.Fatalf("inmemdb.Open() failed: %v", err)
	}
	out := new(bytes.Buffer)

	// start CLI
	return &commandLine{
		finSvc: testutil.NewFinanceService(inmemdb.NewFinanceRepository(db)),
		out:    out,
	}, db, out
}

type cliTest struct {
	name       string
	args       []string // without program name
	wantErr    error
	wantErrStr string
	extra      interface{}
}

func Test_commandLine_migrate(t *testing.T) {
	cli, _, _ := setup(t)

	gooseRunFunc = func(command string, db *sql.DB, fsys fs.FS, dir string, args ...string) error {
		switch command {
		case "up", "up-by-one", "down", "fix", "redo", "reset", "status", "version": // pass
		case "up-to":
			if len(args) == 0 {
				return fmt.Errorf("up-to must be of form: goose [OPTIONS] DRIVER DBSTRING up-to VERSION")
			}
			if _, err := strconv.ParseInt(args[0], 10, 64); err != nil {
				return fmt.Errorf("version must be a number (got '%s')", args[0])
			}
		case "create":
			if len(args) == 0 {
				return fmt.Errorf("create must be of form: goose [OPTIONS] DRIVER DBSTRING create NAME [go|sql]")
			}
		case "down-to":
			if len(args) == 0 {
				return fmt.Errorf("down-to must be of form: goose [OPTIONS] DRIVER DBSTRING down-to VERSION")
			}
			if _, err := strconv.ParseInt(args[0], 10, 64); err != nil {
				return fmt.Errorf("version must be a number (got '%s')", args[0])
			}
		default:
			return fmt.Errorf("%q: no such command", command)
		}
		return nil
	}

	tests := []cliTest{
		{name: "no subcommand", args: []string{"migrate"}, wantErr: errHelp},
		{name: "unknown subcommand", args: []string{"migrate", "lol"}, wantErrStr: "\"lol\": no such command"},
		{name: "up-to: no args", args: []string{"migrate", "up-to"}, wantErrStr: "up-to must be of form: goose [OPTIONS] DRIVER DBSTRING up-to VERSION"},
		{name: "up-to: non-int arg", args: []string{"migrate", "up-to", "lol"}, wantErrStr: "version must be a number (got 'lol')"},
		{name: "create: no args", args: []string{"migrate", "create"}, wantErrStr: "create must be of form: goose [OPTIONS] DRIVER DBSTRING create NAME [go|sql]"},
		{name: "down-to: no args", args: []string{"migrate", "down-to"}, wantErrStr: "down-to must be of form: goose [OPTIONS] DRIVER DBSTRING down-to VERSION"},
		{name: "down-to: non-int arg", args: []string{"migrate", "down-to", "lol"}, wantErrStr: "version must be a number (got 'lol')"},
		{name: "up", args: []string{"migrate", "up"}},
		{name: "up-by-one", args: []string{"migrate", "up-by-one"}},
		{name: "up-to", args: []string{"migrate", "up-to", "2"}},
		{name: "down", args: []string{"migrate", "down"}},
		{name: "down-to", args: []string{"migrate", "down-to", "1"}},
		{name: "redo", args: []string{"migrate", "redo"}},
		{name: "reset", args: []string{"migrate", "reset"}},
		{name: "status", args: []string{"migrate", "status"}},
		{name: "version", args: []string{"migrate", "version"}},
		{name: "create", args: []string{"migrate", "create", "payment_channels", "sql"}},
		{name: "fix", args: []string{"migrate", "fix"}},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		t.Run(tt.name, func(t *testing.T) {
			if err := cli.run(args); err != nil {
				if tt.wantErr != nil {
					if err != tt.wantErr {
						t.Errorf("cli.run() error = %v, wantErr %v", err, tt.wantErr)
					}
				} else if tt.wantErrStr != "" {
					if err.Error() != tt.wantErrStr {
						t.Errorf("cli.run() error.Error() = %s, wantErrStr %s", err.Error(), tt.wantErrStr)
					}
				} else {
					t.Errorf("cli.run() unexpected error = %v", err)
				}
			}
		})
	}
}

func Test_commandLine_orsettings(t *testing.T) {
	cli, db, out := setup(t)

	tests := []cliTest{
		{name: "no command", wantErr: errHelp},
		{name: "unknown command", args: []string{"lol"}, wantErr: errHelp},
		{name: "no school", args: []string{"orsettings"}, wantErr: errHelp},
		{name: "invalid format", args: []string{"orsettings", "-school", schoolID, "-format", "OR-{YYYY}"}, extra: core.IsValidation},
		{name: "set format and next", args: []string{"orsettings", "-school", schoolID, "-format", "SFA-{SEQ}", "-next", "42", "-by", "admin"}},
		{name: "rewind", args: []string{"orsettings", "-school", schoolID, "-format", "SFA-{SEQ}", "-next", "7"}, extra: core.IsConflict},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		t.Run(tt.name, func(t *testing.T) {
			err := cli.run(args)
			switch {
			case tt.wantErr != nil:
				if err != tt.wantErr {
					t.Errorf("cli.run() error = %v, wantErr %v", err, tt.wantErr)
				}
			case tt.extra != nil:
				if check := tt.extra.(func(error) bool); !check(err) {
					t.Errorf("cli.run() unexpected error = %v", err)
				}
			case err != nil:
				t.Errorf("cli.run() unexpected error = %v", err)
			}
		})
	}

	counter, ok := db.SequenceCounter(schoolID)
	if !ok || counter.NextNumber != 42 || counter.FormatTemplate != "SFA-{SEQ}" {
		t.Errorf("SequenceCounter() = %+v, want next 42 and format SFA-{SEQ}", counter)
	}
	if got := out.String(); !strings.Contains(got, "SFA-000042") {
		t.Errorf("output = %q, want the next OR number", got)
	}
}

func Test_commandLine_reconcile(t *testing.T) {
	cli, db, out := setup(t)
	ctx := context.Background()

	year := testutil.CreateAcademicYear(t, db, schoolID, true)
	a := testutil.CreateAssessment(t, db, year, "stu-1", "10000")
	svc := testutil.NewFinanceService(inmemdb.NewFinanceRepository(db))
	rcpt, err := svc.RecordPayment(ctx, finance.NewPayment{
		StudentID:    a.StudentID,
		AssessmentID: a.ID,
		Amount:       decimal.NewFromInt(2500),
		Method:       finance.MethodCash,
	})
	if err != nil {
		t.Fatalf("RecordPayment() failed: %v", err)
	}

	if err = cli.run([]string{"admin", "reconcile"}); err != errHelp {
		t.Errorf("cli.run() error = %v, wantErr %v", err, errHelp)
	}

	if err = cli.run([]string{"admin", "reconcile", "-school", schoolID}); err != nil {
		t.Fatalf("cli.run() unexpected error = %v", err)
	}
	if !strings.Contains(out.String(), "all assessments reconcile") {
		t.Errorf("output = %q", out.String())
	}

	// drift the stored totals
	drifted := rcpt.Assessment
	drifted.TotalPaid = decimal.NewFromInt(3000)
	db.AddAssessment(drifted)

	out.Reset()
	err = cli.run([]string{"admin", "reconcile", "-school", schoolID})
	if err == nil || err.Error() != "1 assessments out of balance" {
		t.Errorf("cli.run() error = %v, want 1 assessments out of balance", err)
	}
	if got := out.String(); !strings.Contains(got, a.ID) || !strings.Contains(got, "3000.00") || !strings.Contains(got, "2500.00") {
		t.Errorf("output = %q, want the drifted assessment", got)
	}
}
