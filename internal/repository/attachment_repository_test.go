package repository

import (
	"context"
	"regexp"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uni-ombuds/case-api/internal/models"
)

func TestAttachmentRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newCaseMock(t)
	defer cleanup()
	repo := NewAttachmentRepository(db)

	mock.ExpectExec("INSERT INTO attachments").
		WillReturnResult(sqlmock.NewResult(0, 1))

	caseID := "case-1"
	att := &models.Attachment{
		CaseID:      &caseID,
		Category:    models.CategoryIdentityDocument,
		DisplayName: "passport.pdf",
		SizeBytes:   2048,
		MediaType:   models.MediaPDF,
		StorageRef:  "cases/REC-2025-0001/att-passport.pdf",
	}
	err := repo.Create(context.Background(), att)
	require.NoError(t, err)
	assert.NotEmpty(t, att.ID)
	assert.False(t, att.UploadedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAttachmentRepositoryTotalSizeByCategory(t *testing.T) {
	db, mock, cleanup := newCaseMock(t)
	defer cleanup()
	repo := NewAttachmentRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COALESCE(SUM(size_bytes), 0) FROM attachments WHERE case_id = $1 AND category = $2")).
		WithArgs("case-1", models.CategoryDocumentaryEvidence).
		WillReturnRows(sqlmock.NewRows([]string{"coalesce"}).AddRow(int64(24 * 1024 * 1024)))

	total, err := repo.TotalSizeByCategory(context.Background(), "case-1", models.CategoryDocumentaryEvidence)
	require.NoError(t, err)
	assert.Equal(t, int64(24*1024*1024), total)
	assert.NoError(t, mock.ExpectationsWereMet())
}
