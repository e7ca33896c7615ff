package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/uni-ombuds/case-api/internal/models"
)

const auditColumns = "id, case_id, seq, actor_id, action, comment, prev_state, new_state, visible, created_at"

const insertAuditEntrySQL = `INSERT INTO audit_entries (id, case_id, actor_id, action, comment, prev_state, new_state, visible, created_at)
VALUES (:id, :case_id, :actor_id, :action, :comment, :prev_state, :new_state, :visible, :created_at)`

// appendEntryTx inserts an audit entry inside an existing transaction. The
// seq column is a bigserial assigned by the database, giving insertion-order
// tie-breaks for entries sharing a timestamp.
func appendEntryTx(ctx context.Context, tx *sqlx.Tx, entry *models.AuditEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	if _, err := tx.NamedExecContext(ctx, insertAuditEntrySQL, entry); err != nil {
		return fmt.Errorf("append audit entry: %w", err)
	}
	return nil
}

// AuditRepository manages the append-only trail of case follow-ups.
type AuditRepository struct {
	db *sqlx.DB
}

// NewAuditRepository constructs a new repository.
func NewAuditRepository(db *sqlx.DB) *AuditRepository {
	return &AuditRepository{db: db}
}

// Append inserts a standalone entry (manual notes). Entries are never updated
// or deleted afterwards.
func (r *AuditRepository) Append(ctx context.Context, entry *models.AuditEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	if _, err := r.db.NamedExecContext(ctx, insertAuditEntrySQL, entry); err != nil {
		return fmt.Errorf("append audit entry: %w", err)
	}
	return nil
}

// List returns a case's entries ordered by timestamp, insertion order as
// tie-break.
func (r *AuditRepository) List(ctx context.Context, filter models.AuditEntryFilter) ([]models.AuditEntry, error) {
	query := fmt.Sprintf("SELECT %s FROM audit_entries WHERE case_id = $1", auditColumns)
	if filter.VisibleOnly {
		query += " AND visible = TRUE"
	}
	query += " ORDER BY created_at ASC, seq ASC"

	var entries []models.AuditEntry
	if err := r.db.SelectContext(ctx, &entries, query, filter.CaseID); err != nil {
		return nil, fmt.Errorf("list audit entries: %w", err)
	}
	return entries, nil
}

// AttachFiles loads attachments for the given entries and fills their
// Attachments slices in place.
func (r *AuditRepository) AttachFiles(ctx context.Context, entries []models.AuditEntry) error {
	if len(entries) == 0 {
		return nil
	}
	ids := make([]string, len(entries))
	index := make(map[string]int, len(entries))
	for i, entry := range entries {
		ids[i] = entry.ID
		index[entry.ID] = i
	}

	query := `SELECT id, case_id, entry_id, category, display_name, size_bytes, media_type, storage_ref, uploaded_at
FROM attachments WHERE entry_id = ANY($1) ORDER BY uploaded_at ASC`
	var files []models.Attachment
	if err := r.db.SelectContext(ctx, &files, query, pq.Array(ids)); err != nil {
		return fmt.Errorf("load entry attachments: %w", err)
	}
	for _, file := range files {
		if file.EntryID == nil {
			continue
		}
		if i, ok := index[*file.EntryID]; ok {
			entries[i].Attachments = append(entries[i].Attachments, file)
		}
	}
	return nil
}
