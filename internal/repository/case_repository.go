package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/uni-ombuds/case-api/internal/models"
)

const caseColumns = `id, tracking_code, case_type, state, priority, narrative, affected_rights, resolution,
complainant_role, complainant_document_type, complainant_document_number, complainant_first_name,
complainant_last_name, complainant_email, complainant_phone, complainant_address, notify_by_email,
respondent_first_name, respondent_last_name, respondent_position, respondent_unit,
assigned_to, response_due_at, version, created_at, updated_at`

// CaseRepository manages persistence for case records. State, priority and
// assignment updates are version-guarded and append their audit entry within
// the same transaction.
type CaseRepository struct {
	db *sqlx.DB
}

// NewCaseRepository constructs a new repository.
func NewCaseRepository(db *sqlx.DB) *CaseRepository {
	return &CaseRepository{db: db}
}

// CreateWithEntry inserts the case together with its creation audit entry in
// one transaction, so a case never exists without its first entry.
func (r *CaseRepository) CreateWithEntry(ctx context.Context, c *models.Case, entry *models.AuditEntry) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if c.CreatedAt.IsZero() {
		c.CreatedAt = now
	}
	c.UpdatedAt = now
	c.Version = 1

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin create case: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	query := `INSERT INTO cases (id, tracking_code, case_type, state, priority, narrative, affected_rights, resolution,
complainant_role, complainant_document_type, complainant_document_number, complainant_first_name,
complainant_last_name, complainant_email, complainant_phone, complainant_address, notify_by_email,
respondent_first_name, respondent_last_name, respondent_position, respondent_unit,
assigned_to, response_due_at, version, created_at, updated_at)
VALUES (:id, :tracking_code, :case_type, :state, :priority, :narrative, :affected_rights, :resolution,
:complainant_role, :complainant_document_type, :complainant_document_number, :complainant_first_name,
:complainant_last_name, :complainant_email, :complainant_phone, :complainant_address, :notify_by_email,
:respondent_first_name, :respondent_last_name, :respondent_position, :respondent_unit,
:assigned_to, :response_due_at, :version, :created_at, :updated_at)`
	if _, err := tx.NamedExecContext(ctx, query, c); err != nil {
		return fmt.Errorf("create case: %w", err)
	}

	entry.CaseID = c.ID
	if err := appendEntryTx(ctx, tx, entry); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit create case: %w", err)
	}
	return nil
}

// GetByID fetches a case by its opaque identifier.
func (r *CaseRepository) GetByID(ctx context.Context, id string) (*models.Case, error) {
	query := fmt.Sprintf("SELECT %s FROM cases WHERE id = $1", caseColumns)
	var c models.Case
	if err := r.db.GetContext(ctx, &c, query, id); err != nil {
		return nil, fmt.Errorf("get case by id: %w", err)
	}
	return &c, nil
}

// GetByTrackingCode fetches a case by tracking code, case-insensitively.
func (r *CaseRepository) GetByTrackingCode(ctx context.Context, code string) (*models.Case, error) {
	query := fmt.Sprintf("SELECT %s FROM cases WHERE UPPER(tracking_code) = UPPER($1)", caseColumns)
	var c models.Case
	if err := r.db.GetContext(ctx, &c, query, code); err != nil {
		return nil, fmt.Errorf("get case by tracking code: %w", err)
	}
	return &c, nil
}

// List returns cases per provided filter.
func (r *CaseRepository) List(ctx context.Context, filter models.CaseFilter) ([]models.Case, int, error) {
	where := []string{"1=1"}
	args := []interface{}{}
	if filter.Type != nil {
		where = append(where, fmt.Sprintf("case_type = $%d", len(args)+1))
		args = append(args, *filter.Type)
	}
	if filter.State != nil {
		where = append(where, fmt.Sprintf("state = $%d", len(args)+1))
		args = append(args, *filter.State)
	}
	if filter.Priority != nil {
		where = append(where, fmt.Sprintf("priority = $%d", len(args)+1))
		args = append(args, *filter.Priority)
	}
	if filter.AssignedTo != "" {
		where = append(where, fmt.Sprintf("assigned_to = $%d", len(args)+1))
		args = append(args, filter.AssignedTo)
	}
	if filter.Search != "" {
		where = append(where, fmt.Sprintf("(tracking_code ILIKE $%d OR complainant_last_name ILIKE $%d)", len(args)+1, len(args)+1))
		args = append(args, "%"+filter.Search+"%")
	}
	whereClause := strings.Join(where, " AND ")

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 200 {
		size = 20
	}
	offset := (page - 1) * size

	sortBy := "created_at"
	switch filter.SortBy {
	case "tracking_code", "state", "priority", "response_due_at", "updated_at":
		sortBy = filter.SortBy
	}
	sortOrder := "DESC"
	if strings.EqualFold(filter.SortOrder, "asc") {
		sortOrder = "ASC"
	}

	query := fmt.Sprintf("SELECT %s FROM cases WHERE %s ORDER BY %s %s LIMIT %d OFFSET %d",
		caseColumns, whereClause, sortBy, sortOrder, size, offset)
	var cases []models.Case
	if err := r.db.SelectContext(ctx, &cases, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list cases: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM cases WHERE %s", whereClause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count cases: %w", err)
	}
	return cases, total, nil
}

// UpdateStateWithEntry applies a state change guarded by the expected version
// and appends the audit entry in the same transaction. sql.ErrNoRows is
// returned when the version no longer matches.
func (r *CaseRepository) UpdateStateWithEntry(ctx context.Context, id string, expectedVersion int, newState models.CaseState, resolution *string, entry *models.AuditEntry) error {
	return r.mutateWithEntry(ctx, entry, func(tx *sqlx.Tx) (sql.Result, error) {
		if resolution != nil {
			return tx.ExecContext(ctx, `UPDATE cases SET state = $1, resolution = $2, version = version + 1, updated_at = $3
WHERE id = $4 AND version = $5`, newState, *resolution, time.Now().UTC(), id, expectedVersion)
		}
		return tx.ExecContext(ctx, `UPDATE cases SET state = $1, version = version + 1, updated_at = $2
WHERE id = $3 AND version = $4`, newState, time.Now().UTC(), id, expectedVersion)
	})
}

// UpdatePriorityWithEntry applies a priority change with the same guarantees.
func (r *CaseRepository) UpdatePriorityWithEntry(ctx context.Context, id string, expectedVersion int, priority models.CasePriority, entry *models.AuditEntry) error {
	return r.mutateWithEntry(ctx, entry, func(tx *sqlx.Tx) (sql.Result, error) {
		return tx.ExecContext(ctx, `UPDATE cases SET priority = $1, version = version + 1, updated_at = $2
WHERE id = $3 AND version = $4`, priority, time.Now().UTC(), id, expectedVersion)
	})
}

// UpdateAssigneeWithEntry reassigns the case with the same guarantees.
func (r *CaseRepository) UpdateAssigneeWithEntry(ctx context.Context, id string, expectedVersion int, handlerID string, entry *models.AuditEntry) error {
	return r.mutateWithEntry(ctx, entry, func(tx *sqlx.Tx) (sql.Result, error) {
		return tx.ExecContext(ctx, `UPDATE cases SET assigned_to = $1, version = version + 1, updated_at = $2
WHERE id = $3 AND version = $4`, handlerID, time.Now().UTC(), id, expectedVersion)
	})
}

// Delete removes a case and, through cascading constraints, its trail. This
// is the administrative escape hatch; the normal lifecycle archives instead.
func (r *CaseRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM cases WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("delete case: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (r *CaseRepository) mutateWithEntry(ctx context.Context, entry *models.AuditEntry, update func(tx *sqlx.Tx) (sql.Result, error)) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin case mutation: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	res, err := update(tx)
	if err != nil {
		return fmt.Errorf("update case: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update case rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}

	if err := appendEntryTx(ctx, tx, entry); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit case mutation: %w", err)
	}
	return nil
}
