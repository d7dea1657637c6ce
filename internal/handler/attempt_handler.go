package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yourusername/course-api/internal/handler/dto"
	apperrors "github.com/yourusername/course-api/internal/pkg/errors"
	"github.com/yourusername/course-api/internal/service"
)

// AttemptHandler обрабатывает запросы на прохождение тестов
type AttemptHandler struct {
	attemptService *service.AttemptService
}

// NewAttemptHandler создает новый обработчик попыток
func NewAttemptHandler(attemptService *service.AttemptService) *AttemptHandler {
	return &AttemptHandler{
		attemptService: attemptService,
	}
}

// requestScope достаёт домен и пользователя, установленные middleware
func requestScope(c *gin.Context) (domainID, userID string, ok bool) {
	domain, found := domainFromContext(c)
	if !found {
		handleError(c, "AttemptHandler", apperrors.ErrNotFound)
		return "", "", false
	}
	userID, found = userIDFromContext(c)
	if !found {
		c.Status(http.StatusUnauthorized)
		return "", "", false
	}
	return domain.ID, userID, true
}

// StartAttempt начинает попытку или возвращает незавершённую
func (h *AttemptHandler) StartAttempt(c *gin.Context) {
	domainID, userID, ok := requestScope(c)
	if !ok {
		return
	}
	quizID := c.GetString("quizID")

	attempt, err := h.attemptService.StartQuizAttempt(c.Request.Context(), domainID, quizID, userID)
	if err != nil {
		handleError(c, "AttemptHandler", err)
		return
	}

	c.JSON(http.StatusOK, dto.NewAttemptResponse(attempt))
}

// GetAttemptView возвращает опубликованный тест без правильных ответов
func (h *AttemptHandler) GetAttemptView(c *gin.Context) {
	domainID, _, ok := requestScope(c)
	if !ok {
		return
	}
	quizID := c.GetString("quizID")

	view, err := h.attemptService.GetQuizForAttempt(c.Request.Context(), domainID, quizID)
	if err != nil {
		handleError(c, "AttemptHandler", err)
		return
	}

	c.JSON(http.StatusOK, dto.NewQuizResponse(view.Quiz, view.Questions))
}

// SubmitAttempt завершает попытку и сохраняет результат
func (h *AttemptHandler) SubmitAttempt(c *gin.Context) {
	domainID, userID, ok := requestScope(c)
	if !ok {
		return
	}
	attemptID := c.GetString("attemptID")

	var req dto.SubmitAnswersRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	attempt, err := h.attemptService.SubmitQuizAttempt(c.Request.Context(), domainID, attemptID, userID, toSubmittedAnswers(req.Answers))
	if err != nil {
		handleError(c, "AttemptHandler", err)
		return
	}

	c.JSON(http.StatusOK, dto.NewAttemptResponse(attempt))
}

// EvaluateAttempt оценивает ответы без сохранения (только для администратора)
func (h *AttemptHandler) EvaluateAttempt(c *gin.Context) {
	domainID, _, ok := requestScope(c)
	if !ok {
		return
	}
	attemptID := c.GetString("attemptID")

	var req dto.SubmitAnswersRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	evaluation, err := h.attemptService.EvaluateQuizSubmission(c.Request.Context(), domainID, attemptID, toSubmittedAnswers(req.Answers))
	if err != nil {
		handleError(c, "AttemptHandler", err)
		return
	}

	c.JSON(http.StatusOK, evaluation)
}

// GetAttempt возвращает попытку её владельцу
func (h *AttemptHandler) GetAttempt(c *gin.Context) {
	domainID, userID, ok := requestScope(c)
	if !ok {
		return
	}
	attemptID := c.GetString("attemptID")

	attempt, err := h.attemptService.GetAttempt(c.Request.Context(), domainID, attemptID, userID)
	if err != nil {
		handleError(c, "AttemptHandler", err)
		return
	}

	c.JSON(http.StatusOK, dto.NewAttemptResponse(attempt))
}

// ListMyAttempts возвращает попытки текущего пользователя по тесту
func (h *AttemptHandler) ListMyAttempts(c *gin.Context) {
	domainID, userID, ok := requestScope(c)
	if !ok {
		return
	}
	quizID := c.GetString("quizID")

	attempts, err := h.attemptService.ListAttempts(c.Request.Context(), domainID, quizID, userID)
	if err != nil {
		handleError(c, "AttemptHandler", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"attempts": dto.NewListAttemptResponse(attempts)})
}

func toSubmittedAnswers(answers []dto.AnswerRequest) []service.SubmittedAnswer {
	submitted := make([]service.SubmittedAnswer, len(answers))
	for i, a := range answers {
		submitted[i] = service.SubmittedAnswer{
			QuestionID: a.QuestionID,
			Answer:     a.Answer,
			TimeSpent:  a.TimeSpent,
		}
	}
	return submitted
}
