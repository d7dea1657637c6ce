package handler

import (
	"bytes"
	"fmt"
	"log"
	"net/http"
	"regexp"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/yourusername/course-api/internal/handler/dto"
	apperrors "github.com/yourusername/course-api/internal/pkg/errors"
	"github.com/yourusername/course-api/internal/service"
)

// QuizHandler обрабатывает административные запросы к тестам
type QuizHandler struct {
	quizService   *service.QuizService
	exportService *service.ExportService
}

// NewQuizHandler создает новый обработчик тестов
func NewQuizHandler(quizService *service.QuizService, exportService *service.ExportService) *QuizHandler {
	return &QuizHandler{
		quizService:   quizService,
		exportService: exportService,
	}
}

// CreateQuiz обрабатывает запрос на создание теста
func (h *QuizHandler) CreateQuiz(c *gin.Context) {
	domain, ok := domainFromContext(c)
	if !ok {
		handleError(c, "QuizHandler", apperrors.ErrNotFound)
		return
	}
	userID, _ := userIDFromContext(c)

	var req service.QuizSettings
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	quiz, err := h.quizService.CreateQuiz(c.Request.Context(), domain.ID, userID, req)
	if err != nil {
		handleError(c, "QuizHandler", err)
		return
	}

	c.JSON(http.StatusCreated, dto.NewQuizResponse(quiz, nil))
}

// UpdateSettings изменяет настройки теста
func (h *QuizHandler) UpdateSettings(c *gin.Context) {
	domain, ok := domainFromContext(c)
	if !ok {
		handleError(c, "QuizHandler", apperrors.ErrNotFound)
		return
	}
	quizID := c.GetString("quizID")

	var req service.QuizSettings
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	quiz, err := h.quizService.UpdateSettings(c.Request.Context(), domain.ID, quizID, req)
	if err != nil {
		handleError(c, "QuizHandler", err)
		return
	}

	c.JSON(http.StatusOK, dto.NewQuizResponse(quiz, nil))
}

// AddQuestion добавляет вопрос к тесту
func (h *QuizHandler) AddQuestion(c *gin.Context) {
	domain, ok := domainFromContext(c)
	if !ok {
		handleError(c, "QuizHandler", apperrors.ErrNotFound)
		return
	}
	quizID := c.GetString("quizID")

	var req dto.AddQuestionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	question, err := h.quizService.AddQuestion(c.Request.Context(), domain.ID, quizID, req.ToEntity())
	if err != nil {
		handleError(c, "QuizHandler", err)
		return
	}

	c.JSON(http.StatusCreated, dto.NewQuestionResponse(question))
}

// SetPublished публикует тест или снимает его с публикации
func (h *QuizHandler) SetPublished(c *gin.Context) {
	domain, ok := domainFromContext(c)
	if !ok {
		handleError(c, "QuizHandler", apperrors.ErrNotFound)
		return
	}
	quizID := c.GetString("quizID")

	var req dto.PublishRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	quiz, err := h.quizService.SetPublished(c.Request.Context(), domain.ID, quizID, *req.Published)
	if err != nil {
		handleError(c, "QuizHandler", err)
		return
	}

	c.JSON(http.StatusOK, dto.NewQuizResponse(quiz, nil))
}

// GetQuiz возвращает тест вместе с вопросами и правильными ответами
func (h *QuizHandler) GetQuiz(c *gin.Context) {
	domain, ok := domainFromContext(c)
	if !ok {
		handleError(c, "QuizHandler", apperrors.ErrNotFound)
		return
	}
	quizID := c.GetString("quizID")

	details, err := h.quizService.GetQuiz(c.Request.Context(), domain.ID, quizID)
	if err != nil {
		handleError(c, "QuizHandler", err)
		return
	}

	c.JSON(http.StatusOK, dto.NewQuizResponse(details.Quiz, details.Questions))
}

var unsafeFilenameChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// ExportAttempts выгружает попытки теста в CSV или XLSX
func (h *QuizHandler) ExportAttempts(c *gin.Context) {
	domain, ok := domainFromContext(c)
	if !ok {
		handleError(c, "QuizHandler", apperrors.ErrNotFound)
		return
	}
	quizID := c.GetString("quizID")

	format := c.DefaultQuery("format", service.ExportFormatCSV)
	if format != service.ExportFormatCSV && format != service.ExportFormatXLSX {
		c.JSON(http.StatusBadRequest, gin.H{"error": "format must be csv or xlsx"})
		return
	}

	quiz, rows, err := h.exportService.Rows(c.Request.Context(), domain.ID, quizID)
	if err != nil {
		handleError(c, "QuizHandler", err)
		return
	}

	// Буферизуем, чтобы ошибка записи не оставила клиенту обрезанный файл с кодом 200
	var buf bytes.Buffer
	contentType := "text/csv; charset=utf-8"
	if format == service.ExportFormatXLSX {
		contentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
		err = service.WriteXLSX(&buf, rows)
	} else {
		err = service.WriteCSV(&buf, rows)
	}
	if err != nil {
		handleError(c, "QuizHandler", fmt.Errorf("failed to export quiz %s: %w", quizID, err))
		return
	}

	filename := fmt.Sprintf("%s_attempts_%s.%s",
		unsafeFilenameChars.ReplaceAllString(quiz.Title, "_"), time.Now().UTC().Format("20060102"), format)
	log.Printf("[QuizHandler] Экспорт %d попыток теста %s (%s)", len(rows), quizID, format)

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s\"", filename))
	c.Data(http.StatusOK, contentType, buf.Bytes())
}
