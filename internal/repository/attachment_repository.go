package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/uni-ombuds/case-api/internal/models"
)

const attachmentColumns = "id, case_id, entry_id, category, display_name, size_bytes, media_type, storage_ref, uploaded_at"

// AttachmentRepository manages classified attachment metadata. The table
// enforces that a row links to a case or an entry, never both.
type AttachmentRepository struct {
	db *sqlx.DB
}

// NewAttachmentRepository constructs a new repository.
func NewAttachmentRepository(db *sqlx.DB) *AttachmentRepository {
	return &AttachmentRepository{db: db}
}

// Create inserts a classified attachment record.
func (r *AttachmentRepository) Create(ctx context.Context, att *models.Attachment) error {
	if att.ID == "" {
		att.ID = uuid.NewString()
	}
	if att.UploadedAt.IsZero() {
		att.UploadedAt = time.Now().UTC()
	}
	query := `INSERT INTO attachments (id, case_id, entry_id, category, display_name, size_bytes, media_type, storage_ref, uploaded_at)
VALUES (:id, :case_id, :entry_id, :category, :display_name, :size_bytes, :media_type, :storage_ref, :uploaded_at)`
	if _, err := r.db.NamedExecContext(ctx, query, att); err != nil {
		return fmt.Errorf("create attachment: %w", err)
	}
	return nil
}

// GetByID fetches one attachment record.
func (r *AttachmentRepository) GetByID(ctx context.Context, id string) (*models.Attachment, error) {
	query := fmt.Sprintf("SELECT %s FROM attachments WHERE id = $1", attachmentColumns)
	var att models.Attachment
	if err := r.db.GetContext(ctx, &att, query, id); err != nil {
		return nil, fmt.Errorf("get attachment: %w", err)
	}
	return &att, nil
}

// ListByCase returns the attachments linked directly to a case.
func (r *AttachmentRepository) ListByCase(ctx context.Context, caseID string) ([]models.Attachment, error) {
	query := fmt.Sprintf("SELECT %s FROM attachments WHERE case_id = $1 ORDER BY uploaded_at ASC", attachmentColumns)
	var attachments []models.Attachment
	if err := r.db.SelectContext(ctx, &attachments, query, caseID); err != nil {
		return nil, fmt.Errorf("list case attachments: %w", err)
	}
	return attachments, nil
}

// TotalSizeByCategory sums stored bytes for one category on a case. Used to
// enforce per-case cumulative limits.
func (r *AttachmentRepository) TotalSizeByCategory(ctx context.Context, caseID string, category models.AttachmentCategory) (int64, error) {
	var total int64
	query := "SELECT COALESCE(SUM(size_bytes), 0) FROM attachments WHERE case_id = $1 AND category = $2"
	if err := r.db.GetContext(ctx, &total, query, caseID, category); err != nil {
		return 0, fmt.Errorf("sum attachment sizes: %w", err)
	}
	return total, nil
}

// Delete removes an attachment record (upload rollback path).
func (r *AttachmentRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, "DELETE FROM attachments WHERE id = $1", id); err != nil {
		return fmt.Errorf("delete attachment: %w", err)
	}
	return nil
}
