package service

import (
	"bytes"
	"context"
	"encoding/csv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/yourusername/course-api/internal/domain/entity"
	apperrors "github.com/yourusername/course-api/internal/pkg/errors"
)

func TestSanitizeForExcel(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"user@example.com", "user@example.com"},
		{"=HYPERLINK(\"x\")", "'=HYPERLINK(\"x\")"},
		{"+1", "'+1"},
		{"-1", "'-1"},
		{"@cmd", "'@cmd"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, sanitizeForExcel(tt.in))
	}
}

func exportFixture(t *testing.T) (*ExportService, []ExportRow) {
	t.Helper()
	ctx := context.Background()
	quizRepo := new(MockQuizRepo)
	attemptRepo := new(MockAttemptRepo)
	userRepo := new(MockUserRepo)

	completedAt := time.Date(2026, 3, 1, 12, 30, 0, 0, time.UTC)
	attempts := []entity.QuizAttempt{
		{ID: "a-1", UserID: "u-1", Status: entity.AttemptStatusCompleted, StartedAt: completedAt.Add(-10 * time.Minute),
			CompletedAt: &completedAt, Score: 6, PercentageScore: 60, Passed: true, TimeSpent: 300},
		{ID: "a-2", UserID: "u-2", Status: entity.AttemptStatusInProgress, StartedAt: completedAt},
	}
	quizRepo.On("GetByID", ctx, testDomainID, testQuizID).Return(&entity.Quiz{ID: testQuizID, DomainID: testDomainID}, nil)
	attemptRepo.On("ListByQuiz", ctx, testQuizID).Return(attempts, nil)
	userRepo.On("GetByID", ctx, testDomainID, "u-1").Return(&entity.User{ID: "u-1", Email: "=evil@example.com"}, nil)
	userRepo.On("GetByID", ctx, testDomainID, "u-2").Return(nil, apperrors.ErrNotFound)

	svc := NewExportService(quizRepo, attemptRepo, userRepo)
	_, rows, err := svc.Rows(ctx, testDomainID, testQuizID)
	require.NoError(t, err)
	return svc, rows
}

func TestExportService_RowsFallbackToUserID(t *testing.T) {
	_, rows := exportFixture(t)
	require.Len(t, rows, 2)
	assert.Equal(t, "=evil@example.com", rows[0].User)
	assert.Equal(t, "u-2", rows[1].User)
}

func TestWriteCSV(t *testing.T) {
	_, rows := exportFixture(t)
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, rows))

	data := buf.Bytes()
	require.True(t, bytes.HasPrefix(data, []byte{0xEF, 0xBB, 0xBF}))
	records, err := csv.NewReader(bytes.NewReader(data[3:])).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, exportHeaders, records[0])
	assert.Equal(t, "'=evil@example.com", records[1][1])
	assert.Equal(t, "60.00", records[1][6])
	assert.Equal(t, "", records[2][4])
}

func TestWriteXLSX(t *testing.T) {
	_, rows := exportFixture(t)
	var buf bytes.Buffer
	require.NoError(t, WriteXLSX(&buf, rows))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	header, err := f.GetCellValue("Attempts", "A1")
	require.NoError(t, err)
	assert.Equal(t, "Attempt", header)
	user, err := f.GetCellValue("Attempts", "B2")
	require.NoError(t, err)
	assert.Equal(t, "'=evil@example.com", user)
}
