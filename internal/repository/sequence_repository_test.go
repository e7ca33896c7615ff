package repository

import (
	"context"
	"errors"
	"fmt"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uni-ombuds/case-api/internal/models"
)

func TestSequenceRepositoryNext(t *testing.T) {
	db, mock, cleanup := newCaseMock(t)
	defer cleanup()
	repo := NewSequenceRepository(db)

	mock.ExpectQuery(`(?s)INSERT INTO case_sequences .+ ON CONFLICT \(case_type, year\) DO UPDATE SET value = case_sequences\.value \+ 1.+RETURNING value`).
		WithArgs(models.CaseTypeComplaint, 2025).
		WillReturnRows(sqlmock.NewRows([]string{"value"}).AddRow(7))

	value, err := repo.Next(context.Background(), models.CaseTypeComplaint, 2025)
	require.NoError(t, err)
	assert.Equal(t, 7, value)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSequenceRepositoryNextPassesRetryableThrough(t *testing.T) {
	db, mock, cleanup := newCaseMock(t)
	defer cleanup()
	repo := NewSequenceRepository(db)

	serialization := &pq.Error{Code: "40001"}
	mock.ExpectQuery("INSERT INTO case_sequences").
		WithArgs(models.CaseTypeComplaint, 2025).
		WillReturnError(serialization)

	_, err := repo.Next(context.Background(), models.CaseTypeComplaint, 2025)
	require.Error(t, err)
	assert.True(t, Retryable(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"serialization failure", &pq.Error{Code: "40001"}, true},
		{"deadlock detected", &pq.Error{Code: "40P01"}, true},
		{"unique violation", &pq.Error{Code: "23505"}, true},
		{"foreign key violation", &pq.Error{Code: "23503"}, false},
		{"wrapped unique violation", fmt.Errorf("create case: %w", &pq.Error{Code: "23505"}), true},
		{"plain error", errors.New("boom"), false},
		{"nil", nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Retryable(tt.err))
		})
	}
}
