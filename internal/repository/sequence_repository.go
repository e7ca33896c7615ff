package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/uni-ombuds/case-api/internal/models"
)

// SequenceRepository owns the per-(type, year) tracking-code counters. The
// increment happens in a single upsert so two concurrent callers can never
// observe the same value: the row lock serialises them.
type SequenceRepository struct {
	db *sqlx.DB
}

// NewSequenceRepository constructs a new repository.
func NewSequenceRepository(db *sqlx.DB) *SequenceRepository {
	return &SequenceRepository{db: db}
}

// Next atomically increments and returns the counter for the given case type
// and year, starting at 1.
func (r *SequenceRepository) Next(ctx context.Context, caseType models.CaseType, year int) (int, error) {
	query := `INSERT INTO case_sequences (case_type, year, value)
VALUES ($1, $2, 1)
ON CONFLICT (case_type, year) DO UPDATE SET value = case_sequences.value + 1
RETURNING value`
	var value int
	if err := r.db.GetContext(ctx, &value, query, caseType, year); err != nil {
		if Retryable(err) {
			return 0, err
		}
		return 0, fmt.Errorf("next case sequence: %w", err)
	}
	return value, nil
}

// Retryable reports postgres serialization/deadlock/unique conditions a
// caller may safely retry.
func Retryable(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case "40001", "40P01", "23505":
			return true
		}
	}
	return false
}
