package repository

import (
	"context"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uni-ombuds/case-api/internal/models"
)

func TestAuditRepositoryAppend(t *testing.T) {
	db, mock, cleanup := newCaseMock(t)
	defer cleanup()
	repo := NewAuditRepository(db)

	mock.ExpectExec("INSERT INTO audit_entries").
		WillReturnResult(sqlmock.NewResult(0, 1))

	entry := &models.AuditEntry{CaseID: "case-1", Action: "note_added", Comment: "called the complainant back", Visible: false}
	err := repo.Append(context.Background(), entry)
	require.NoError(t, err)
	assert.NotEmpty(t, entry.ID)
	assert.False(t, entry.CreatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAuditRepositoryListVisibleOnly(t *testing.T) {
	db, mock, cleanup := newCaseMock(t)
	defer cleanup()
	repo := NewAuditRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "case_id", "seq", "actor_id", "action", "comment", "prev_state", "new_state", "visible", "created_at"}).
		AddRow("e1", "case-1", 1, nil, "CASE_CREATED", "case registered", nil, "pending", true, now).
		AddRow("e2", "case-1", 2, "u1", "STATE_CHANGE", "triaged", "pending", "in_review", true, now)
	mock.ExpectQuery(`SELECT .+ FROM audit_entries WHERE case_id = \$1 AND visible = TRUE ORDER BY created_at ASC, seq ASC`).
		WithArgs("case-1").
		WillReturnRows(rows)

	entries, err := repo.List(context.Background(), models.AuditEntryFilter{CaseID: "case-1", VisibleOnly: true})
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, int64(1), entries[0].Seq)
	assert.Equal(t, "STATE_CHANGE", entries[1].Action)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAuditRepositoryAttachFiles(t *testing.T) {
	db, mock, cleanup := newCaseMock(t)
	defer cleanup()
	repo := NewAuditRepository(db)

	entries := []models.AuditEntry{{ID: "e1"}, {ID: "e2"}}
	rows := sqlmock.NewRows([]string{"id", "case_id", "entry_id", "category", "display_name", "size_bytes", "media_type", "storage_ref", "uploaded_at"}).
		AddRow("att-1", nil, "e2", "followup_attachment", "receipt.pdf", 1024, "application/pdf", "cases/REC-2025-0001/entries/att-1-receipt.pdf", time.Now())
	mock.ExpectQuery(`(?s)SELECT .+ FROM attachments WHERE entry_id = ANY\(\$1\) ORDER BY uploaded_at ASC`).
		WithArgs(pq.Array([]string{"e1", "e2"})).
		WillReturnRows(rows)

	err := repo.AttachFiles(context.Background(), entries)
	require.NoError(t, err)
	assert.Empty(t, entries[0].Attachments)
	require.Len(t, entries[1].Attachments, 1)
	assert.Equal(t, "receipt.pdf", entries[1].Attachments[0].DisplayName)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAuditRepositoryAttachFilesNoEntries(t *testing.T) {
	db, mock, cleanup := newCaseMock(t)
	defer cleanup()
	repo := NewAuditRepository(db)

	err := repo.AttachFiles(context.Background(), nil)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
