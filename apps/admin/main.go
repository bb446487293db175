package main

import (
	"log"
	"os"

	"github.com/MABDC-admin/st.francis-portal-sub001/core"
	"github.com/MABDC-admin/st.francis-portal-sub001/core/finance"
	logsvc "github.com/MABDC-admin/st.francis-portal-sub001/services/logger"
	"github.com/MABDC-admin/st.francis-portal-sub001/storage/database"
	sqlxrepos "github.com/MABDC-admin/st.francis-portal-sub001/storage/database/sqlx"
)

var logger *log.Logger

func main() {
	defer os.Exit(0)

	logger = log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)
	conf := core.NewConfig()

	// set up DB
	errAndDie(database.CreateIfNotExist(conf))
	db, err := database.Open(conf)
	errAndDie(err)
	defer db.Close()

	// set up services
	validate, translator := core.NewValidator()
	finance.InitValidators(validate, translator)
	finSvc := finance.NewService(
		sqlxrepos.NewFinanceRepository(db),
		logsvc.NewRollbarLogger(logger, conf),
		validate,
		translator,
		conf,
	)

	// start CLI
	cli := commandLine{
		db:     db.DB,
		finSvc: finSvc,
	}
	if err := cli.run(os.Args); err != nil {
		if err != errHelp {
			logger.Printf("\nerror: %s\n", err)
		}
		os.Exit(1)
	}
}

func errAndDie(err error) {
	if err != nil {
		logger.Fatal(err)
	}
}
