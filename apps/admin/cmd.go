package main

import (
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/MABDC-admin/st.francis-portal-sub001/core/finance"
)

var errHelp = errors.New("help provided")

type commandLine struct {
	db     *sql.DB
	finSvc finance.ServiceInterface
	out    io.Writer
}

func (cli *commandLine) printUsage() {
	fmt.Println("Usage:")
	fmt.Println("  migrate COMMAND [ARGS] - run a goose command (up, down, status, redo...) against the embedded migrations")
	fmt.Println("  orsettings -school SCHOOL_ID -format FORMAT [-next N] [-by USER_ID] - set a school's OR number template")
	fmt.Println("  reconcile -school SCHOOL_ID - list assessments whose totals drifted from their verified payments")
}

func (cli *commandLine) writer() io.Writer {
	if cli.out != nil {
		return cli.out
	}
	return os.Stdout
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	orSettingsCmd := flag.NewFlagSet("orsettings", flag.ContinueOnError)
	orSettingsSchool := orSettingsCmd.String("school", "", "The school's ID.")
	orSettingsFormat := orSettingsCmd.String("format", finance.DefaultORFormat, "The OR template; {YYYY} is the year, {SEQ} the zero-padded sequence.")
	orSettingsNext := orSettingsCmd.Int64("next", 0, "The next sequence to issue; 0 keeps the current one. Cannot move backwards.")
	orSettingsBy := orSettingsCmd.String("by", "", "The ID of the staff member making the change.")

	reconcileCmd := flag.NewFlagSet("reconcile", flag.ContinueOnError)
	reconcileSchool := reconcileCmd.String("school", "", "The school's ID.")

	switch args[1] {
	case "migrate":
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		return cli.migrate(args[2:])
	case "orsettings":
		if err := orSettingsCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *orSettingsSchool == "" {
			orSettingsCmd.Usage()
			return errHelp
		}
		return cli.setORSettings(*orSettingsSchool, *orSettingsFormat, *orSettingsNext, *orSettingsBy)
	case "reconcile":
		if err := reconcileCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *reconcileSchool == "" {
			reconcileCmd.Usage()
			return errHelp
		}
		return cli.reconcile(*reconcileSchool)
	default:
		cli.printUsage()
		return errHelp
	}
}
