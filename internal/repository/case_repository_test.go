package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uni-ombuds/case-api/internal/models"
)

func newCaseMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func caseRows() *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows([]string{
		"id", "tracking_code", "case_type", "state", "priority", "narrative", "affected_rights", "resolution",
		"complainant_role", "complainant_document_type", "complainant_document_number", "complainant_first_name",
		"complainant_last_name", "complainant_email", "complainant_phone", "complainant_address", "notify_by_email",
		"respondent_first_name", "respondent_last_name", "respondent_position", "respondent_unit",
		"assigned_to", "response_due_at", "version", "created_at", "updated_at",
	}).AddRow(
		"case-1", "REC-2025-0001", "complaint", "pending", "medium", "narrative", "due process", nil,
		"student", "passport", "A123", "Ana", "Juarez", "ana@example.edu", "555", "Campus 1", true,
		nil, nil, nil, nil,
		nil, now, 1, now, now,
	)
}

func TestCaseRepositoryCreateWithEntry(t *testing.T) {
	db, mock, cleanup := newCaseMock(t)
	defer cleanup()
	repo := NewCaseRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO cases").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO audit_entries").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	c := &models.Case{TrackingCode: "REC-2025-0001", Type: models.CaseTypeComplaint, State: models.CaseStatePending}
	entry := &models.AuditEntry{Action: models.AuditActionCaseCreated, Comment: "case registered", Visible: true}
	err := repo.CreateWithEntry(context.Background(), c, entry)
	require.NoError(t, err)
	assert.NotEmpty(t, c.ID)
	assert.Equal(t, 1, c.Version)
	assert.Equal(t, c.ID, entry.CaseID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCaseRepositoryCreateWithEntryRollsBackOnEntryFailure(t *testing.T) {
	db, mock, cleanup := newCaseMock(t)
	defer cleanup()
	repo := NewCaseRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO cases").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO audit_entries").
		WillReturnError(sql.ErrConnDone)
	mock.ExpectRollback()

	err := repo.CreateWithEntry(context.Background(), &models.Case{}, &models.AuditEntry{})
	require.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCaseRepositoryGetByTrackingCodeIsCaseInsensitive(t *testing.T) {
	db, mock, cleanup := newCaseMock(t)
	defer cleanup()
	repo := NewCaseRepository(db)

	mock.ExpectQuery(`(?s)SELECT .+ FROM cases WHERE UPPER\(tracking_code\) = UPPER\(\$1\)`).
		WithArgs("rec-2025-0001").
		WillReturnRows(caseRows())

	c, err := repo.GetByTrackingCode(context.Background(), "rec-2025-0001")
	require.NoError(t, err)
	assert.Equal(t, "REC-2025-0001", c.TrackingCode)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCaseRepositoryUpdateStateWithEntry(t *testing.T) {
	db, mock, cleanup := newCaseMock(t)
	defer cleanup()
	repo := NewCaseRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE cases SET state").
		WithArgs(models.CaseStateInReview, sqlmock.AnyArg(), "case-1", 3).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO audit_entries").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	prev := models.CaseStatePending
	next := models.CaseStateInReview
	entry := &models.AuditEntry{CaseID: "case-1", Action: models.AuditActionStateChange, PrevState: &prev, NewState: &next, Visible: true}
	err := repo.UpdateStateWithEntry(context.Background(), "case-1", 3, models.CaseStateInReview, nil, entry)
	require.NoError(t, err)
	assert.NotEmpty(t, entry.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCaseRepositoryUpdateStateVersionMismatch(t *testing.T) {
	db, mock, cleanup := newCaseMock(t)
	defer cleanup()
	repo := NewCaseRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE cases SET state").
		WithArgs(models.CaseStateInReview, sqlmock.AnyArg(), "case-1", 3).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := repo.UpdateStateWithEntry(context.Background(), "case-1", 3, models.CaseStateInReview, nil, &models.AuditEntry{})
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCaseRepositoryUpdateStateWithResolution(t *testing.T) {
	db, mock, cleanup := newCaseMock(t)
	defer cleanup()
	repo := NewCaseRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE cases SET state = .+, resolution").
		WithArgs(models.CaseStateResolved, "mediated agreement", sqlmock.AnyArg(), "case-1", 5).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO audit_entries").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	resolution := "mediated agreement"
	err := repo.UpdateStateWithEntry(context.Background(), "case-1", 5, models.CaseStateResolved, &resolution, &models.AuditEntry{})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCaseRepositoryDeleteMissing(t *testing.T) {
	db, mock, cleanup := newCaseMock(t)
	defer cleanup()
	repo := NewCaseRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM cases WHERE id = $1")).
		WithArgs("missing").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Delete(context.Background(), "missing")
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCaseRepositoryListFilters(t *testing.T) {
	db, mock, cleanup := newCaseMock(t)
	defer cleanup()
	repo := NewCaseRepository(db)

	state := models.CaseStatePending
	mock.ExpectQuery(`(?s)SELECT .+ FROM cases WHERE 1=1 AND state = \$1 ORDER BY created_at DESC LIMIT 20 OFFSET 0`).
		WithArgs(state).
		WillReturnRows(caseRows())
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM cases WHERE 1=1 AND state = \$1`).
		WithArgs(state).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	cases, total, err := repo.List(context.Background(), models.CaseFilter{State: &state})
	require.NoError(t, err)
	assert.Len(t, cases, 1)
	assert.Equal(t, 1, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}
