package service

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log"
	"strconv"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/yourusername/course-api/internal/domain/entity"
	"github.com/yourusername/course-api/internal/domain/repository"
)

// Форматы экспорта
const (
	ExportFormatCSV  = "csv"
	ExportFormatXLSX = "xlsx"
)

var exportHeaders = []string{"Attempt", "User", "Status", "Started", "Completed", "Score", "Percentage", "Passed", "Time spent (s)"}

// ExportService выгружает попытки теста для администратора
type ExportService struct {
	quizRepo    repository.QuizRepository
	attemptRepo repository.AttemptRepository
	userRepo    repository.UserRepository
}

// NewExportService создает сервис экспорта
func NewExportService(quizRepo repository.QuizRepository, attemptRepo repository.AttemptRepository, userRepo repository.UserRepository) *ExportService {
	return &ExportService{quizRepo: quizRepo, attemptRepo: attemptRepo, userRepo: userRepo}
}

// ExportRow - одна строка выгрузки
type ExportRow struct {
	AttemptID       string
	User            string
	Status          string
	StartedAt       time.Time
	CompletedAt     *time.Time
	Score           int
	PercentageScore float64
	Passed          bool
	TimeSpent       int
}

// Rows собирает строки выгрузки по тесту домена
func (s *ExportService) Rows(ctx context.Context, domainID, quizID string) (*entity.Quiz, []ExportRow, error) {
	quiz, err := s.quizRepo.GetByID(ctx, domainID, quizID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load quiz %s: %w", quizID, err)
	}
	attempts, err := s.attemptRepo.ListByQuiz(ctx, quizID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list attempts for quiz %s: %w", quizID, err)
	}

	emails := make(map[string]string)
	rows := make([]ExportRow, 0, len(attempts))
	for _, a := range attempts {
		email, ok := emails[a.UserID]
		if !ok {
			email = a.UserID
			if user, err := s.userRepo.GetByID(ctx, domainID, a.UserID); err == nil {
				email = user.Email
			}
			emails[a.UserID] = email
		}
		rows = append(rows, ExportRow{
			AttemptID:       a.ID,
			User:            email,
			Status:          a.Status,
			StartedAt:       a.StartedAt,
			CompletedAt:     a.CompletedAt,
			Score:           a.Score,
			PercentageScore: a.PercentageScore,
			Passed:          a.Passed,
			TimeSpent:       a.TimeSpent,
		})
	}
	return quiz, rows, nil
}

// WriteCSV пишет строки в CSV с BOM для Excel
func WriteCSV(w io.Writer, rows []ExportRow) error {
	if _, err := w.Write([]byte{0xEF, 0xBB, 0xBF}); err != nil {
		return err
	}
	writer := csv.NewWriter(w)
	if err := writer.Write(exportHeaders); err != nil {
		return err
	}
	for _, r := range rows {
		completed := ""
		if r.CompletedAt != nil {
			completed = r.CompletedAt.UTC().Format(time.RFC3339)
		}
		record := []string{
			r.AttemptID,
			sanitizeForExcel(r.User),
			r.Status,
			r.StartedAt.UTC().Format(time.RFC3339),
			completed,
			strconv.Itoa(r.Score),
			strconv.FormatFloat(r.PercentageScore, 'f', 2, 64),
			strconv.FormatBool(r.Passed),
			strconv.Itoa(r.TimeSpent),
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

// WriteXLSX пишет строки в Excel через StreamWriter
func WriteXLSX(w io.Writer, rows []ExportRow) error {
	f := excelize.NewFile()
	defer f.Close()

	sheetName := "Attempts"
	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return err
	}
	sw, err := f.NewStreamWriter(sheetName)
	if err != nil {
		return fmt.Errorf("failed to create stream writer: %w", err)
	}

	headers := make([]interface{}, len(exportHeaders))
	for i, h := range exportHeaders {
		headers[i] = h
	}
	if err := sw.SetRow("A1", headers); err != nil {
		return err
	}

	for i, r := range rows {
		completed := ""
		if r.CompletedAt != nil {
			completed = r.CompletedAt.UTC().Format(time.RFC3339)
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		row := []interface{}{
			r.AttemptID,
			sanitizeForExcel(r.User),
			r.Status,
			r.StartedAt.UTC().Format(time.RFC3339),
			completed,
			r.Score,
			r.PercentageScore,
			r.Passed,
			r.TimeSpent,
		}
		if err := sw.SetRow(cell, row); err != nil {
			log.Printf("[ExportService] Ошибка записи строки %d: %v", i+2, err)
		}
	}

	if err := sw.Flush(); err != nil {
		return fmt.Errorf("failed to flush xlsx: %w", err)
	}
	return f.Write(w)
}

// sanitizeForExcel экранирует данные для защиты от formula injection в Excel/CSV
func sanitizeForExcel(s string) string {
	if len(s) == 0 {
		return s
	}
	if s[0] == '=' || s[0] == '+' || s[0] == '-' || s[0] == '@' || s[0] == '\t' || s[0] == '\r' {
		return "'" + s
	}
	return s
}
