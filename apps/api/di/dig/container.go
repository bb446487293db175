package dig_container

import (
	"fmt"
	"log"
	"os"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"go.uber.org/dig"

	echoapi "github.com/MABDC-admin/st.francis-portal-sub001/apps/api/echo"
	"github.com/MABDC-admin/st.francis-portal-sub001/core"
	"github.com/MABDC-admin/st.francis-portal-sub001/core/finance"
	logsvc "github.com/MABDC-admin/st.francis-portal-sub001/services/logger"
	"github.com/MABDC-admin/st.francis-portal-sub001/storage/database"
	sqlxrepos "github.com/MABDC-admin/st.francis-portal-sub001/storage/database/sqlx"
)

type DBLoggerParam struct {
	dig.In
	Logger core.Logger `name:"dbLogger"`
}

// ValidatorResult provides the validator and its translator, both set up for the finance payloads.
type ValidatorResult struct {
	dig.Out
	Validate   *validator.Validate
	Translator ut.Translator
}

func newLogger(conf *core.Config) core.Logger {
	stdLogger := log.New(os.Stdout, "API : ", log.LstdFlags)
	logger := logsvc.NewRollbarLogger(stdLogger, conf)
	logger.Enable(!conf.Debug && conf.RollbarToken != "")
	return logger
}

func newDBLogger(conf *core.Config) core.Logger {
	stdLogger := log.New(os.Stdout, "DB : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)
	logger := logsvc.NewRollbarLogger(stdLogger, conf)
	logger.Enable(!conf.Debug && conf.RollbarToken != "")
	return logger
}

func newDB(conf *core.Config, loggerParam DBLoggerParam) (*sqlx.DB, core.DB) {
	setUp := func() (*sqlx.DB, error) {
		if err := database.CreateIfNotExist(conf); err != nil {
			return nil, err
		}

		db, err := database.Open(conf)
		if err != nil {
			return nil, err
		}

		if err = database.Migrate(db); err != nil {
			return nil, err
		}
		return db, nil
	}

	db, err := setUp()
	if err != nil {
		loggerParam.Logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}
	return db, db
}

func newValidator() ValidatorResult {
	validate, translator := core.NewValidator()
	finance.InitValidators(validate, translator)
	return ValidatorResult{Validate: validate, Translator: translator}
}

func newServer(conf *core.Config, logger core.Logger, finSvc finance.ServiceInterface, translator ut.Translator) *echoapi.Server {
	return echoapi.NewServer(echoapi.ServerDeps{
		Conf:       conf,
		Logger:     logger,
		FinanceSvc: finSvc,
		Translator: translator,
	})
}

// New returns a new dependency injection dig.Container
func New() *dig.Container {
	c := dig.New()

	must(c.Provide(core.NewConfig))
	must(c.Provide(newLogger))
	must(c.Provide(newDBLogger, dig.Name("dbLogger")))
	must(c.Provide(newDB))
	must(c.Provide(sqlxrepos.NewFinanceRepository))
	must(c.Provide(newValidator))
	must(c.Provide(finance.NewService))
	must(c.Provide(func(svc *finance.Service) finance.ServiceInterface { return svc }))
	must(c.Provide(newServer))

	return c
}

// must exits program if err happened
func must(err error) {
	if err != nil {
		log.Fatal(errors.Wrap(err, "failed to provide dependency").Error())
	}
}
