package service

import (
	"context"
	"testing"
	"time"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uni-ombuds/case-api/internal/models"
	appErrors "github.com/uni-ombuds/case-api/pkg/errors"
)

type stubSequences struct {
	value int
	err   error
	calls int
}

func (s *stubSequences) Next(ctx context.Context, caseType models.CaseType, year int) (int, error) {
	s.calls++
	if s.err != nil {
		return 0, s.err
	}
	s.value++
	return s.value, nil
}

func TestCodeGeneratorNext(t *testing.T) {
	gen := NewCodeGenerator(&stubSequences{}, nil)

	code, err := gen.Next(context.Background(), models.CaseTypeComplaint, 2025)
	require.NoError(t, err)
	assert.Equal(t, "REC-2025-0001", code)

	code, err = gen.Next(context.Background(), models.CaseTypeComplaint, 2025)
	require.NoError(t, err)
	assert.Equal(t, "REC-2025-0002", code)
}

func TestCodeGeneratorNextUnknownType(t *testing.T) {
	gen := NewCodeGenerator(&stubSequences{}, nil)

	_, err := gen.Next(context.Background(), models.CaseType("petition"), 2025)
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))
}

func TestCodeGeneratorNextMapsRetryableConflicts(t *testing.T) {
	gen := NewCodeGenerator(&stubSequences{err: &pq.Error{Code: "23505"}}, nil)

	_, err := gen.Next(context.Background(), models.CaseTypeGrievance, 2025)
	assert.True(t, appErrors.Is(err, appErrors.ErrCodeGenConflict))
}

func TestFormatTrackingCode(t *testing.T) {
	tests := []struct {
		caseType models.CaseType
		year     int
		seq      int
		want     string
	}{
		{models.CaseTypeComplaint, 2025, 1, "REC-2025-0001"},
		{models.CaseTypeGrievance, 2025, 42, "QUE-2025-0042"},
		{models.CaseTypeDenunciation, 2026, 9999, "DEN-2026-9999"},
		{models.CaseTypeComplaint, 2026, 10001, "REC-2026-10001"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatTrackingCode(tt.caseType, tt.year, tt.seq))
	}
}

func TestAddBusinessDays(t *testing.T) {
	// 2025-01-03 is a Friday.
	friday := time.Date(2025, 1, 3, 10, 0, 0, 0, time.UTC)

	monday := AddBusinessDays(friday, 1)
	assert.Equal(t, time.Monday, monday.Weekday())
	assert.Equal(t, 6, monday.Day())

	// 20 business days from Friday is exactly four weeks later.
	due := AddBusinessDays(friday, 20)
	assert.Equal(t, time.Friday, due.Weekday())
	assert.Equal(t, time.Date(2025, 1, 31, 10, 0, 0, 0, time.UTC), due)
}
