package service

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uni-ombuds/case-api/internal/models"
	appErrors "github.com/uni-ombuds/case-api/pkg/errors"
	"github.com/uni-ombuds/case-api/pkg/storage"
)

const testMB = int64(1024 * 1024)

type mockAttachmentRepo struct {
	stored    []*models.Attachment
	totals    map[models.AttachmentCategory]int64
	createErr error
	deleted   []string
}

func (m *mockAttachmentRepo) Create(ctx context.Context, att *models.Attachment) error {
	if m.createErr != nil {
		return m.createErr
	}
	cp := *att
	m.stored = append(m.stored, &cp)
	return nil
}

func (m *mockAttachmentRepo) GetByID(ctx context.Context, id string) (*models.Attachment, error) {
	for _, att := range m.stored {
		if att.ID == id {
			cp := *att
			return &cp, nil
		}
	}
	return nil, errors.New("not found")
}

func (m *mockAttachmentRepo) ListByCase(ctx context.Context, caseID string) ([]models.Attachment, error) {
	out := make([]models.Attachment, 0, len(m.stored))
	for _, att := range m.stored {
		if att.CaseID != nil && *att.CaseID == caseID {
			out = append(out, *att)
		}
	}
	return out, nil
}

func (m *mockAttachmentRepo) TotalSizeByCategory(ctx context.Context, caseID string, category models.AttachmentCategory) (int64, error) {
	return m.totals[category], nil
}

func (m *mockAttachmentRepo) Delete(ctx context.Context, id string) error {
	m.deleted = append(m.deleted, id)
	return nil
}

type mockFileStore struct {
	saved   []string
	saveErr error
	removed []string
}

func (m *mockFileStore) SaveStream(filename string, r io.Reader) (string, error) {
	if m.saveErr != nil {
		return "", m.saveErr
	}
	m.saved = append(m.saved, filename)
	return filename, nil
}

func (m *mockFileStore) Delete(filename string) error {
	m.removed = append(m.removed, filename)
	return nil
}

func testEvidenceService(repo *mockAttachmentRepo, store *mockFileStore) *EvidenceService {
	signer := storage.NewSignedURLSigner("test-secret", 0)
	return NewEvidenceService(repo, store, signer, nil, nil)
}

func pdfFile(name string, size int64) EvidenceFile {
	return EvidenceFile{DisplayName: name, MediaType: models.MediaPDF, SizeBytes: size, Content: strings.NewReader("%PDF-1.4")}
}

func TestClassify(t *testing.T) {
	repo := &mockAttachmentRepo{totals: map[models.AttachmentCategory]int64{}}
	svc := testEvidenceService(repo, &mockFileStore{})

	tests := []struct {
		name     string
		file     EvidenceFile
		category models.AttachmentCategory
		wantErr  bool
	}{
		{"identity pdf within limit", pdfFile("passport.pdf", 1*testMB), models.CategoryIdentityDocument, false},
		{"identity png", EvidenceFile{DisplayName: "id.png", MediaType: models.MediaPNG, SizeBytes: testMB}, models.CategoryIdentityDocument, false},
		{"identity wrong media", EvidenceFile{DisplayName: "id.gif", MediaType: "image/gif", SizeBytes: testMB}, models.CategoryIdentityDocument, true},
		{"identity oversize", pdfFile("passport.pdf", 6*testMB), models.CategoryIdentityDocument, true},
		{"signature rejects pdf", pdfFile("sig.pdf", testMB), models.CategoryDigitalSignature, true},
		{"signature jpeg", EvidenceFile{DisplayName: "sig.jpg", MediaType: models.MediaJPEG, SizeBytes: testMB}, models.CategoryDigitalSignature, false},
		{"followup spreadsheet", EvidenceFile{DisplayName: "times.xlsx", MediaType: models.MediaXLSX, SizeBytes: 8 * testMB}, models.CategoryFollowupAttachment, false},
		{"followup oversize", pdfFile("big.pdf", 11*testMB), models.CategoryFollowupAttachment, true},
		{"generated record has no size cap", pdfFile("record.pdf", 50*testMB), models.CategoryGeneratedRecord, false},
		{"unknown category", pdfFile("file.pdf", testMB), models.AttachmentCategory("misc"), true},
		{"missing name", EvidenceFile{MediaType: models.MediaPDF, SizeBytes: testMB}, models.CategoryIdentityDocument, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			att, err := svc.Classify(context.Background(), "case-1", tt.file, tt.category)
			if tt.wantErr {
				assert.True(t, appErrors.Is(err, appErrors.ErrFileRejected))
				return
			}
			require.NoError(t, err)
			assert.NotEmpty(t, att.ID)
			assert.Equal(t, tt.category, att.Category)
		})
	}
}

func TestClassifyCumulativeLimit(t *testing.T) {
	repo := &mockAttachmentRepo{totals: map[models.AttachmentCategory]int64{
		models.CategoryDocumentaryEvidence: 24 * testMB,
	}}
	svc := testEvidenceService(repo, &mockFileStore{})

	// 24 MB stored + 2 MB new would exceed the 25 MB cumulative cap.
	_, err := svc.Classify(context.Background(), "case-1", pdfFile("more.pdf", 2*testMB), models.CategoryDocumentaryEvidence)
	assert.True(t, appErrors.Is(err, appErrors.ErrFileRejected))

	// 1 MB still fits exactly.
	_, err = svc.Classify(context.Background(), "case-1", pdfFile("last.pdf", 1*testMB), models.CategoryDocumentaryEvidence)
	assert.NoError(t, err)
}

func TestStoreForCase(t *testing.T) {
	repo := &mockAttachmentRepo{totals: map[models.AttachmentCategory]int64{}}
	store := &mockFileStore{}
	svc := testEvidenceService(repo, store)
	c := &models.Case{ID: "case-1", TrackingCode: "REC-2025-0001"}

	att, err := svc.StoreForCase(context.Background(), c, pdfFile("evidence.pdf", testMB), models.CategoryDocumentaryEvidence)
	require.NoError(t, err)
	require.NotNil(t, att.CaseID)
	assert.Equal(t, "case-1", *att.CaseID)
	assert.Contains(t, att.StorageRef, "cases/REC-2025-0001/")
	require.Len(t, repo.stored, 1)
	require.Len(t, store.saved, 1)
}

func TestStoreForCaseRejectsEntryCategory(t *testing.T) {
	svc := testEvidenceService(&mockAttachmentRepo{}, &mockFileStore{})
	c := &models.Case{ID: "case-1", TrackingCode: "REC-2025-0001"}

	_, err := svc.StoreForCase(context.Background(), c, pdfFile("note.pdf", testMB), models.CategoryFollowupAttachment)
	assert.True(t, appErrors.Is(err, appErrors.ErrFileRejected))
}

func TestStoreForEntry(t *testing.T) {
	repo := &mockAttachmentRepo{totals: map[models.AttachmentCategory]int64{}}
	store := &mockFileStore{}
	svc := testEvidenceService(repo, store)
	c := &models.Case{ID: "case-1", TrackingCode: "REC-2025-0001"}

	att, err := svc.StoreForEntry(context.Background(), c, "entry-1", pdfFile("receipt.pdf", testMB))
	require.NoError(t, err)
	require.NotNil(t, att.EntryID)
	assert.Equal(t, "entry-1", *att.EntryID)
	assert.Contains(t, att.StorageRef, "cases/REC-2025-0001/entries/")
}

func TestPersistCleansUpOnRowFailure(t *testing.T) {
	repo := &mockAttachmentRepo{totals: map[models.AttachmentCategory]int64{}, createErr: errors.New("insert failed")}
	store := &mockFileStore{}
	svc := testEvidenceService(repo, store)
	c := &models.Case{ID: "case-1", TrackingCode: "REC-2025-0001"}

	_, err := svc.StoreForCase(context.Background(), c, pdfFile("evidence.pdf", testMB), models.CategoryDocumentaryEvidence)
	require.Error(t, err)
	// The stored file must not outlive the failed metadata row.
	require.Len(t, store.saved, 1)
	assert.Equal(t, store.saved, store.removed)
}

func TestSignedDownload(t *testing.T) {
	repo := &mockAttachmentRepo{totals: map[models.AttachmentCategory]int64{}}
	store := &mockFileStore{}
	svc := testEvidenceService(repo, store)
	c := &models.Case{ID: "case-1", TrackingCode: "REC-2025-0001"}

	att, err := svc.StoreForCase(context.Background(), c, pdfFile("evidence.pdf", testMB), models.CategoryDocumentaryEvidence)
	require.NoError(t, err)

	got, token, expiresAt, err := svc.SignedDownload(context.Background(), att.ID)
	require.NoError(t, err)
	assert.Equal(t, att.ID, got.ID)
	assert.NotEmpty(t, token)
	assert.False(t, expiresAt.IsZero())

	_, _, _, err = svc.SignedDownload(context.Background(), "missing")
	assert.True(t, appErrors.Is(err, appErrors.ErrNotFound))
}
