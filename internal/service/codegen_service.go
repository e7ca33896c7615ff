package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/uni-ombuds/case-api/internal/models"
	"github.com/uni-ombuds/case-api/internal/repository"
	appErrors "github.com/uni-ombuds/case-api/pkg/errors"
)

type caseSequences interface {
	Next(ctx context.Context, caseType models.CaseType, year int) (int, error)
}

// CodeGenerator mints unique, human-readable tracking codes. Sequences are
// per (type, year) and owned by the storage layer, never computed from a
// fetched count.
type CodeGenerator struct {
	sequences caseSequences
	logger    *zap.Logger
}

// NewCodeGenerator constructs the generator.
func NewCodeGenerator(sequences caseSequences, logger *zap.Logger) *CodeGenerator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CodeGenerator{sequences: sequences, logger: logger}
}

// Next mints the next code for the given type and year, e.g. REC-2025-0001.
func (g *CodeGenerator) Next(ctx context.Context, caseType models.CaseType, year int) (string, error) {
	if !caseType.Valid() {
		return "", appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown case type %q", caseType))
	}
	seq, err := g.sequences.Next(ctx, caseType, year)
	if err != nil {
		if repository.Retryable(err) {
			return "", appErrors.Wrap(err, appErrors.ErrCodeGenConflict.Code, appErrors.ErrCodeGenConflict.Status, appErrors.ErrCodeGenConflict.Message)
		}
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to advance case sequence")
	}
	return FormatTrackingCode(caseType, year, seq), nil
}

// FormatTrackingCode assembles {PREFIX}-{YEAR}-{SEQ4}.
func FormatTrackingCode(caseType models.CaseType, year, seq int) string {
	return fmt.Sprintf("%s-%d-%04d", caseType.Prefix(), year, seq)
}

// AddBusinessDays returns the timestamp advanced by n week days, skipping
// Saturdays and Sundays.
func AddBusinessDays(from time.Time, days int) time.Time {
	t := from
	for added := 0; added < days; {
		t = t.AddDate(0, 0, 1)
		switch t.Weekday() {
		case time.Saturday, time.Sunday:
			continue
		default:
			added++
		}
	}
	return t
}
