package inmemdb

import (
	"sync"

	"github.com/MABDC-admin/st.francis-portal-sub001/core/finance"
)

type (
	// DB keeps the ledger tables in memory. A single mutex stands in for PostgreSQL's row locks:
	// transactions are fully serialised and restore a snapshot on rollback.
	DB struct {
		sync.Mutex

		assessments map[string]finance.Assessment
		payments    map[string]finance.Payment
		counters    map[string]finance.SequenceCounter
		years       map[string]finance.AcademicYear
		audit       []finance.AuditEntry

		failures map[string]error
	}

	snapshot struct {
		assessments map[string]finance.Assessment
		payments    map[string]finance.Payment
		counters    map[string]finance.SequenceCounter
		audit       []finance.AuditEntry
	}
)

func Open() (*DB, error) {
	db := &DB{
		assessments: make(map[string]finance.Assessment),
		payments:    make(map[string]finance.Payment),
		counters:    make(map[string]finance.SequenceCounter),
		years:       make(map[string]finance.AcademicYear),
		failures:    make(map[string]error),
	}
	return db, nil
}

// AddAcademicYear seeds an academic year (owned by the curriculum screens, read-only to the ledger).
func (db *DB) AddAcademicYear(y finance.AcademicYear) {
	db.Lock()
	defer db.Unlock()
	db.years[y.ID] = y
}

// AddAssessment seeds an assessment (generated by the billing screens).
func (db *DB) AddAssessment(a finance.Assessment) {
	db.Lock()
	defer db.Unlock()
	db.assessments[a.ID] = a
}

// SetSequenceCounter seeds a school's finance_settings row.
func (db *DB) SetSequenceCounter(c finance.SequenceCounter) {
	db.Lock()
	defer db.Unlock()
	db.counters[c.SchoolID] = c
}

func (db *DB) SequenceCounter(schoolID string) (finance.SequenceCounter, bool) {
	db.Lock()
	defer db.Unlock()
	c, ok := db.counters[schoolID]
	return c, ok
}

func (db *DB) AuditEntries() []finance.AuditEntry {
	db.Lock()
	defer db.Unlock()
	return append([]finance.AuditEntry(nil), db.audit...)
}

// FailOn makes the named repository operation (e.g. "UpdateAssessmentTotals") return err until cleared with a nil err.
func (db *DB) FailOn(op string, err error) {
	db.Lock()
	defer db.Unlock()
	if err == nil {
		delete(db.failures, op)
		return
	}
	db.failures[op] = err
}

func (db *DB) snapshot() snapshot {
	s := snapshot{
		assessments: make(map[string]finance.Assessment, len(db.assessments)),
		payments:    make(map[string]finance.Payment, len(db.payments)),
		counters:    make(map[string]finance.SequenceCounter, len(db.counters)),
		audit:       append([]finance.AuditEntry(nil), db.audit...),
	}
	for k, v := range db.assessments {
		s.assessments[k] = v
	}
	for k, v := range db.payments {
		s.payments[k] = v
	}
	for k, v := range db.counters {
		s.counters[k] = v
	}
	return s
}

func (db *DB) restore(s snapshot) {
	db.assessments = s.assessments
	db.payments = s.payments
	db.counters = s.counters
	db.audit = s.audit
}
