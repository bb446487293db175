package testutil

import (
	"context"
	"io/ioutil"
	"log"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/trezcool/goose"

	"github.com/MABDC-admin/st.francis-portal-sub001/core"
	"github.com/MABDC-admin/st.francis-portal-sub001/core/finance"
	appfs "github.com/MABDC-admin/st.francis-portal-sub001/fs"
	logsvc "github.com/MABDC-admin/st.francis-portal-sub001/services/logger"
)

// LedgerSeeder is implemented by the in-memory DB and by SQLSeeder.
type LedgerSeeder interface {
	AddAcademicYear(y finance.AcademicYear)
	AddAssessment(a finance.Assessment)
}

func NewConfig() *core.Config {
	return &core.Config{
		AppName:  "St. Francis Finance",
		Env:      "TEST",
		TestMode: true,
		Server: core.ServerConfig{
			ShutdownTimeout: time.Second,
			DisableReqLogs:  true,
		},
		Finance: core.FinanceConfig{
			DefaultORFormat: finance.DefaultORFormat,
			TxTimeout:       5 * time.Second,
		},
	}
}

func NewLogger(conf *core.Config) core.Logger {
	std := log.New(ioutil.Discard, "", 0)
	if testing.Verbose() {
		std = log.New(os.Stdout, "TEST : ", log.LstdFlags|log.Lmicroseconds)
	}
	return logsvc.NewRollbarLogger(std, conf)
}

// NewFinanceService builds a finance.Service with the validators registered the way the apps do it.
func NewFinanceService(repo finance.Repository) *finance.Service {
	conf := NewConfig()
	validate, translator := core.NewValidator()
	finance.InitValidators(validate, translator)
	return finance.NewService(repo, NewLogger(conf), validate, translator, conf)
}

func CreateAcademicYear(t *testing.T, db LedgerSeeder, schoolID string, current bool) finance.AcademicYear {
	t.Helper()
	y := finance.AcademicYear{
		ID:        uuid.New().String(),
		SchoolID:  schoolID,
		Name:      "2025-2026",
		IsCurrent: current,
	}
	db.AddAcademicYear(y)
	return y
}

// CreateAssessment seeds an unpaid assessment of net netAmount.
func CreateAssessment(t *testing.T, db LedgerSeeder, year finance.AcademicYear, studentID, netAmount string) finance.Assessment {
	t.Helper()
	net, err := decimal.NewFromString(netAmount)
	if err != nil {
		t.Fatalf("CreateAssessment() failed: %v", err)
	}
	a := finance.Assessment{
		ID:             uuid.New().String(),
		StudentID:      studentID,
		SchoolID:       year.SchoolID,
		AcademicYearID: year.ID,
		TotalAmount:    net,
		DiscountAmount: decimal.Zero,
		NetAmount:      net,
		TotalPaid:      decimal.Zero,
		Balance:        net,
		Status:         finance.AssessmentPending,
	}
	db.AddAssessment(a)
	return a
}

func Dec(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	if err != nil {
		t.Fatalf("decimal.NewFromString(%q) failed: %v", s, err)
	}
	return d
}

// PrepareDB connects to TEST_DATABASE_URL, migrates it and empties the ledger tables.
// Tests are skipped when no test database is configured.
func PrepareDB(t *testing.T) *sqlx.DB {
	t.Helper()
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	db, err := sqlx.Open("postgres", dsn)
	if err != nil {
		t.Fatalf("sqlx.Open() failed: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if err = goose.RunFS("up", db.DB, appfs.FS, "migrations"); err != nil {
		t.Fatalf("migrating test database failed: %v", err)
	}
	_, err = db.Exec(`TRUNCATE finance_audit_logs, payments, student_assessments, finance_settings, academic_years`)
	if err != nil {
		t.Fatalf("truncating test database failed: %v", err)
	}
	return db
}

// SQLSeeder inserts fixtures straight into PostgreSQL.
type SQLSeeder struct {
	t  *testing.T
	db *sqlx.DB
}

var _ LedgerSeeder = (*SQLSeeder)(nil)

func NewSQLSeeder(t *testing.T, db *sqlx.DB) *SQLSeeder {
	return &SQLSeeder{t: t, db: db}
}

func (s *SQLSeeder) AddAcademicYear(y finance.AcademicYear) {
	_, err := s.db.ExecContext(context.Background(),
		`INSERT INTO academic_years (id, school_id, name, is_current) VALUES ($1, $2, $3, $4)`,
		y.ID, y.SchoolID, y.Name, y.IsCurrent)
	if err != nil {
		s.t.Fatalf("AddAcademicYear() failed: %v", err)
	}
}

func (s *SQLSeeder) AddAssessment(a finance.Assessment) {
	_, err := s.db.ExecContext(context.Background(), `
		INSERT INTO student_assessments (id, student_id, school_id, academic_year_id, total_amount,
			discount_amount, net_amount, total_paid, balance, status, is_closed)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		a.ID, a.StudentID, a.SchoolID, a.AcademicYearID, a.TotalAmount,
		a.DiscountAmount, a.NetAmount, a.TotalPaid, a.Balance, string(a.Status), a.IsClosed)
	if err != nil {
		s.t.Fatalf("AddAssessment() failed: %v", err)
	}
}
