package service

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/yourusername/course-api/internal/domain/entity"
	"github.com/yourusername/course-api/internal/domain/repository"
	apperrors "github.com/yourusername/course-api/internal/pkg/errors"
	"github.com/yourusername/course-api/internal/service/questiontype"
)

// QuizSettings - настраиваемые поля теста
type QuizSettings struct {
	Title        string `json:"title" binding:"required,min=1,max=255"`
	PassingScore *int   `json:"passing_score"`
	TimeLimit    int    `json:"time_limit"`
	MaxAttempts  int    `json:"max_attempts"`
}

// Validate проверяет диапазоны значений
func (s QuizSettings) Validate() error {
	if strings.TrimSpace(s.Title) == "" {
		return fmt.Errorf("%w: title is required", apperrors.ErrValidation)
	}
	if s.PassingScore != nil && (*s.PassingScore < 0 || *s.PassingScore > 100) {
		return fmt.Errorf("%w: passing_score must be between 0 and 100", apperrors.ErrValidation)
	}
	if s.TimeLimit < 0 || s.MaxAttempts < 0 {
		return fmt.Errorf("%w: time_limit and max_attempts must not be negative", apperrors.ErrValidation)
	}
	return nil
}

// QuizDetails - тест с полными вопросами (для автора)
type QuizDetails struct {
	Quiz      *entity.Quiz      `json:"quiz"`
	Questions []entity.Question `json:"questions"`
}

// QuizService предоставляет методы авторинга тестов
type QuizService struct {
	quizRepo     repository.QuizRepository
	questionRepo repository.QuestionRepository
	attemptRepo  repository.AttemptRepository
	cacheRepo    repository.CacheRepository
}

// NewQuizService создает новый сервис для работы с тестами
func NewQuizService(
	quizRepo repository.QuizRepository,
	questionRepo repository.QuestionRepository,
	attemptRepo repository.AttemptRepository,
	cacheRepo repository.CacheRepository,
) *QuizService {
	return &QuizService{
		quizRepo:     quizRepo,
		questionRepo: questionRepo,
		attemptRepo:  attemptRepo,
		cacheRepo:    cacheRepo,
	}
}

// CreateQuiz создает новый неопубликованный тест
func (s *QuizService) CreateQuiz(ctx context.Context, domainID, authorID string, settings QuizSettings) (*entity.Quiz, error) {
	if err := settings.Validate(); err != nil {
		return nil, err
	}
	quiz := &entity.Quiz{
		DomainID:     domainID,
		Title:        strings.TrimSpace(settings.Title),
		QuestionIDs:  entity.StringArray{},
		PassingScore: settings.PassingScore,
		TimeLimit:    settings.TimeLimit,
		MaxAttempts:  settings.MaxAttempts,
		CreatedBy:    authorID,
	}
	if err := s.quizRepo.Create(ctx, quiz); err != nil {
		return nil, fmt.Errorf("failed to create quiz: %w", err)
	}
	log.Printf("[QuizService] Создан тест %s в домене %s", quiz.ID, domainID)
	return quiz, nil
}

// UpdateSettings меняет настройки теста. Параметры оценки заморожены после первой завершённой попытки.
func (s *QuizService) UpdateSettings(ctx context.Context, domainID, quizID string, settings QuizSettings) (*entity.Quiz, error) {
	if err := settings.Validate(); err != nil {
		return nil, err
	}
	quiz, err := s.quizRepo.GetByID(ctx, domainID, quizID)
	if err != nil {
		return nil, fmt.Errorf("failed to load quiz %s: %w", quizID, err)
	}

	scoringChanged := quiz.EffectivePassingScore() != effectivePassingScore(settings.PassingScore) ||
		quiz.TimeLimit != settings.TimeLimit ||
		quiz.MaxAttempts != settings.MaxAttempts
	if scoringChanged {
		if err := s.ensureNoCompletedAttempts(ctx, quizID); err != nil {
			return nil, err
		}
		quiz.PassingScore = settings.PassingScore
		quiz.TimeLimit = settings.TimeLimit
		quiz.MaxAttempts = settings.MaxAttempts
	}
	quiz.Title = strings.TrimSpace(settings.Title)

	if err := s.quizRepo.Update(ctx, quiz); err != nil {
		return nil, fmt.Errorf("failed to update quiz %s: %w", quizID, err)
	}
	s.invalidateDisplay(ctx, quizID)
	return quiz, nil
}

// AddQuestion проверяет вопрос через провайдер его типа и добавляет его в тест
func (s *QuizService) AddQuestion(ctx context.Context, domainID, quizID string, question *entity.Question) (*entity.Question, error) {
	if err := questiontype.Validate(question); err != nil {
		return nil, err
	}
	if _, err := s.quizRepo.GetByID(ctx, domainID, quizID); err != nil {
		return nil, fmt.Errorf("failed to load quiz %s: %w", quizID, err)
	}
	if err := s.ensureNoCompletedAttempts(ctx, quizID); err != nil {
		return nil, err
	}

	question.ID = ""
	question.DomainID = domainID
	if err := s.quizRepo.AppendQuestion(ctx, quizID, question); err != nil {
		return nil, fmt.Errorf("failed to add question to quiz %s: %w", quizID, err)
	}
	s.invalidateDisplay(ctx, quizID)
	log.Printf("[QuizService] Вопрос %s (%s) добавлен в тест %s", question.ID, question.Type, quizID)
	return question, nil
}

// SetPublished публикует или снимает тест с публикации
func (s *QuizService) SetPublished(ctx context.Context, domainID, quizID string, published bool) (*entity.Quiz, error) {
	quiz, err := s.quizRepo.GetByID(ctx, domainID, quizID)
	if err != nil {
		return nil, fmt.Errorf("failed to load quiz %s: %w", quizID, err)
	}
	if published && len(quiz.QuestionIDs) == 0 {
		return nil, fmt.Errorf("%w: quiz has no questions", apperrors.ErrValidation)
	}
	quiz.Published = published
	if err := s.quizRepo.Update(ctx, quiz); err != nil {
		return nil, fmt.Errorf("failed to update quiz %s: %w", quizID, err)
	}
	s.invalidateDisplay(ctx, quizID)
	return quiz, nil
}

// GetQuiz возвращает тест с вопросами, включая правильные ответы
func (s *QuizService) GetQuiz(ctx context.Context, domainID, quizID string) (*QuizDetails, error) {
	quiz, err := s.quizRepo.GetByID(ctx, domainID, quizID)
	if err != nil {
		return nil, fmt.Errorf("failed to load quiz %s: %w", quizID, err)
	}
	questions, err := s.questionRepo.GetByIDs(ctx, domainID, quiz.QuestionIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to load questions for quiz %s: %w", quizID, err)
	}
	return &QuizDetails{Quiz: quiz, Questions: questions}, nil
}

func (s *QuizService) ensureNoCompletedAttempts(ctx context.Context, quizID string) error {
	count, err := s.attemptRepo.CountCompletedForQuiz(ctx, quizID)
	if err != nil {
		return fmt.Errorf("failed to count attempts for quiz %s: %w", quizID, err)
	}
	if count > 0 {
		return ErrQuizLocked
	}
	return nil
}

func (s *QuizService) invalidateDisplay(ctx context.Context, quizID string) {
	if err := s.cacheRepo.Delete(ctx, displayCacheKey(quizID)); err != nil {
		log.Printf("[QuizService] Ошибка инвалидации кеша теста %s: %v", quizID, err)
	}
}

func effectivePassingScore(v *int) int {
	if v == nil {
		return entity.DefaultPassingScore
	}
	return *v
}
