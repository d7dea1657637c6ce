package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/yourusername/course-api/internal/domain/entity"
	"github.com/yourusername/course-api/internal/domain/repository"
	apperrors "github.com/yourusername/course-api/internal/pkg/errors"
	"github.com/yourusername/course-api/internal/service/questiontype"
)

// Тип websocket-события о завершении попытки
const EventAttemptCompleted = "quiz:attempt_completed"

const (
	feedbackCorrect   = "Correct!"
	feedbackIncorrect = "Incorrect"
)

// EventPublisher отправляет событие конкретному пользователю (реализуется websocket.Manager)
type EventPublisher interface {
	SendEventToUser(userID string, eventType string, data interface{}) error
}

// SubmittedAnswer - ответ ученика на один вопрос
type SubmittedAnswer struct {
	QuestionID string   `json:"question_id" binding:"required"`
	Answer     []string `json:"answer"`
	TimeSpent  int      `json:"time_spent"`
}

// Evaluation - результат оценки набора ответов
type Evaluation struct {
	Answers         []entity.AttemptAnswer `json:"answers"`
	Score           int                    `json:"score"`
	TotalPoints     int                    `json:"total_points"`
	PercentageScore float64                `json:"percentage_score"`
	Passed          bool                   `json:"passed"`
	TimeSpent       int                    `json:"time_spent"`
}

// QuizView - тест в виде, безопасном для показа во время попытки
type QuizView struct {
	Quiz      *entity.Quiz      `json:"quiz"`
	Questions []entity.Question `json:"questions"`
}

// AttemptService управляет попытками прохождения тестов
type AttemptService struct {
	quizRepo     repository.QuizRepository
	questionRepo repository.QuestionRepository
	attemptRepo  repository.AttemptRepository
	cacheRepo    repository.CacheRepository
	events       EventPublisher
	displayTTL   time.Duration
	now          func() time.Time
}

// NewAttemptService создает новый сервис попыток
func NewAttemptService(
	quizRepo repository.QuizRepository,
	questionRepo repository.QuestionRepository,
	attemptRepo repository.AttemptRepository,
	cacheRepo repository.CacheRepository,
	events EventPublisher,
	displayTTL time.Duration,
) *AttemptService {
	return &AttemptService{
		quizRepo:     quizRepo,
		questionRepo: questionRepo,
		attemptRepo:  attemptRepo,
		cacheRepo:    cacheRepo,
		events:       events,
		displayTTL:   displayTTL,
		now:          time.Now,
	}
}

// displayCacheKey - ключ кеша проекции теста для показа
func displayCacheKey(quizID string) string {
	return fmt.Sprintf("quiz:%s:display", quizID)
}

// StartQuizAttempt начинает попытку или возвращает уже начатую
func (s *AttemptService) StartQuizAttempt(ctx context.Context, domainID, quizID, userID string) (*entity.QuizAttempt, error) {
	quiz, err := s.quizRepo.GetByID(ctx, domainID, quizID)
	if err != nil {
		return nil, fmt.Errorf("failed to load quiz %s: %w", quizID, err)
	}
	if !quiz.Published {
		return nil, ErrQuizNotPublished
	}

	existing, err := s.attemptRepo.FindInProgress(ctx, quizID, userID)
	if err == nil {
		log.Printf("[AttemptService] Пользователь %s продолжает попытку %s теста %s", userID, existing.ID, quizID)
		return existing, nil
	}
	if !errors.Is(err, apperrors.ErrNotFound) {
		return nil, fmt.Errorf("failed to check in-progress attempt: %w", err)
	}

	if quiz.HasAttemptLimit() {
		completed, err := s.attemptRepo.CountCompleted(ctx, quizID, userID)
		if err != nil {
			return nil, fmt.Errorf("failed to count completed attempts: %w", err)
		}
		if completed >= int64(quiz.MaxAttempts) {
			return nil, ErrAttemptLimitReached
		}
	}

	now := s.now()
	attempt := &entity.QuizAttempt{
		DomainID:  domainID,
		QuizID:    quizID,
		UserID:    userID,
		Status:    entity.AttemptStatusInProgress,
		StartedAt: now,
		Answers:   entity.AttemptAnswers{},
	}
	if limit := quiz.TimeLimitDuration(); limit > 0 {
		expiresAt := now.Add(limit)
		attempt.ExpiresAt = &expiresAt
	}

	if err := s.attemptRepo.Create(ctx, attempt); err != nil {
		if errors.Is(err, repository.ErrAttemptAlreadyInProgress) {
			// параллельный запрос успел создать попытку первым
			existing, findErr := s.attemptRepo.FindInProgress(ctx, quizID, userID)
			if findErr != nil {
				return nil, fmt.Errorf("failed to load concurrent attempt: %w", findErr)
			}
			return existing, nil
		}
		return nil, fmt.Errorf("failed to create attempt: %w", err)
	}

	log.Printf("[AttemptService] Пользователь %s начал попытку %s теста %s", userID, attempt.ID, quizID)
	return attempt, nil
}

// GetQuizForAttempt возвращает тест с вопросами без правильных ответов
func (s *AttemptService) GetQuizForAttempt(ctx context.Context, domainID, quizID string) (*QuizView, error) {
	cacheKey := displayCacheKey(quizID)
	var cached QuizView
	if err := s.cacheRepo.GetJSON(ctx, cacheKey, &cached); err == nil && cached.Quiz != nil {
		if cached.Quiz.DomainID != domainID {
			return nil, apperrors.ErrNotFound
		}
		return &cached, nil
	} else if err != nil && !errors.Is(err, apperrors.ErrNotFound) {
		log.Printf("[AttemptService] Ошибка чтения кеша %s: %v", cacheKey, err)
	}

	quiz, err := s.quizRepo.GetByID(ctx, domainID, quizID)
	if err != nil {
		return nil, fmt.Errorf("failed to load quiz %s: %w", quizID, err)
	}
	if !quiz.Published {
		return nil, ErrQuizNotPublished
	}
	questions, err := s.questionRepo.GetByIDs(ctx, domainID, quiz.QuestionIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to load questions for quiz %s: %w", quizID, err)
	}

	view := &QuizView{Quiz: quiz, Questions: make([]entity.Question, 0, len(questions))}
	for i := range questions {
		q := &questions[i]
		if p, ok := questiontype.Get(q.Type); ok {
			view.Questions = append(view.Questions, p.ProcessForDisplay(q, true))
		} else {
			view.Questions = append(view.Questions, questiontype.StripAnswers(q))
		}
	}

	if err := s.cacheRepo.SetJSON(ctx, cacheKey, view, s.displayTTL); err != nil {
		log.Printf("[AttemptService] Ошибка записи кеша %s: %v", cacheKey, err)
	}
	return view, nil
}

// EvaluateQuizSubmission оценивает ответы для попытки без сохранения
func (s *AttemptService) EvaluateQuizSubmission(ctx context.Context, domainID, attemptID string, answers []SubmittedAnswer) (*Evaluation, error) {
	attempt, err := s.attemptRepo.GetByID(ctx, domainID, attemptID)
	if err != nil {
		return nil, fmt.Errorf("failed to load attempt %s: %w", attemptID, err)
	}
	return s.evaluate(ctx, attempt, answers)
}

func (s *AttemptService) evaluate(ctx context.Context, attempt *entity.QuizAttempt, answers []SubmittedAnswer) (*Evaluation, error) {
	quiz, err := s.quizRepo.GetByID(ctx, attempt.DomainID, attempt.QuizID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, fmt.Errorf("%w: quiz %s, attempt %s", ErrQuizDeleted, attempt.QuizID, attempt.ID)
		}
		return nil, fmt.Errorf("failed to load quiz %s for attempt %s: %w", attempt.QuizID, attempt.ID, err)
	}
	questions, err := s.questionRepo.GetByIDs(ctx, attempt.DomainID, quiz.QuestionIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to load questions for quiz %s: %w", quiz.ID, err)
	}
	return Evaluate(quiz, questions, answers), nil
}

// Evaluate - чистая функция оценки. Ответы на неизвестные вопросы, вопросы неизвестного типа
// и повторные ответы на один вопрос пропускаются.
func Evaluate(quiz *entity.Quiz, questions []entity.Question, answers []SubmittedAnswer) *Evaluation {
	byID := make(map[string]*entity.Question, len(questions))
	result := &Evaluation{Answers: make([]entity.AttemptAnswer, 0, len(answers))}
	for i := range questions {
		byID[questions[i].ID] = &questions[i]
		result.TotalPoints += questions[i].Points
	}

	seen := make(map[string]struct{}, len(answers))
	for _, a := range answers {
		question, ok := byID[a.QuestionID]
		if !ok {
			continue
		}
		if _, dup := seen[a.QuestionID]; dup {
			continue
		}
		provider, ok := questiontype.Get(question.Type)
		if !ok {
			log.Printf("[AttemptService] WARN: вопрос %s имеет неизвестный тип %q, пропускаем", question.ID, question.Type)
			continue
		}
		seen[a.QuestionID] = struct{}{}

		score := provider.CalculateScore(a.Answer, question)
		feedback := feedbackIncorrect
		if score > 0 {
			feedback = feedbackCorrect
		}
		timeSpent := a.TimeSpent
		if timeSpent < 0 {
			timeSpent = 0
		}
		result.Answers = append(result.Answers, entity.AttemptAnswer{
			QuestionID: a.QuestionID,
			Answer:     a.Answer,
			IsCorrect:  score > 0,
			Score:      score,
			Feedback:   feedback,
			TimeSpent:  timeSpent,
		})
		result.Score += score
		result.TimeSpent += timeSpent
	}

	if result.TotalPoints > 0 {
		result.PercentageScore = float64(result.Score) / float64(result.TotalPoints) * 100
	}
	result.Passed = result.PercentageScore >= float64(quiz.EffectivePassingScore())
	return result
}

// SubmitQuizAttempt оценивает ответы и завершает попытку. Завершить попытку можно только один раз.
func (s *AttemptService) SubmitQuizAttempt(ctx context.Context, domainID, attemptID, userID string, answers []SubmittedAnswer) (*entity.QuizAttempt, error) {
	attempt, err := s.attemptRepo.GetByID(ctx, domainID, attemptID)
	if err != nil {
		return nil, fmt.Errorf("failed to load attempt %s: %w", attemptID, err)
	}
	if attempt.UserID != userID {
		return nil, apperrors.ErrForbidden
	}
	if !attempt.IsInProgress() {
		return nil, ErrAttemptNotInProgress
	}
	now := s.now()
	if attempt.IsExpiredAt(now) {
		return nil, ErrAttemptExpired
	}

	evaluation, err := s.evaluate(ctx, attempt, answers)
	if err != nil {
		return nil, err
	}

	completed := *attempt
	completed.CompletedAt = &now
	completed.Answers = evaluation.Answers
	completed.Score = evaluation.Score
	completed.PercentageScore = evaluation.PercentageScore
	completed.Passed = evaluation.Passed
	completed.TimeSpent = evaluation.TimeSpent

	if err := s.attemptRepo.Complete(ctx, &completed); err != nil {
		if errors.Is(err, repository.ErrAttemptNotInProgress) {
			log.Printf("[AttemptService] Попытка %s уже завершена параллельным запросом", attemptID)
			return nil, ErrAttemptNotInProgress
		}
		return nil, fmt.Errorf("failed to complete attempt %s: %w", attemptID, err)
	}

	log.Printf("[AttemptService] Попытка %s завершена: %d/%d (%.1f%%), passed=%t",
		attemptID, evaluation.Score, evaluation.TotalPoints, evaluation.PercentageScore, evaluation.Passed)

	if s.events != nil {
		payload := map[string]interface{}{
			"attempt_id":       completed.ID,
			"quiz_id":          completed.QuizID,
			"score":            completed.Score,
			"percentage_score": completed.PercentageScore,
			"passed":           completed.Passed,
		}
		if err := s.events.SendEventToUser(userID, EventAttemptCompleted, payload); err != nil {
			log.Printf("[AttemptService] Не удалось отправить событие %s пользователю %s: %v", EventAttemptCompleted, userID, err)
		}
	}
	return &completed, nil
}

// GetAttempt возвращает попытку её владельцу
func (s *AttemptService) GetAttempt(ctx context.Context, domainID, attemptID, userID string) (*entity.QuizAttempt, error) {
	attempt, err := s.attemptRepo.GetByID(ctx, domainID, attemptID)
	if err != nil {
		return nil, fmt.Errorf("failed to load attempt %s: %w", attemptID, err)
	}
	if attempt.UserID != userID {
		return nil, apperrors.ErrForbidden
	}
	return attempt, nil
}

// ListAttempts возвращает историю попыток пользователя по тесту
func (s *AttemptService) ListAttempts(ctx context.Context, domainID, quizID, userID string) ([]entity.QuizAttempt, error) {
	if _, err := s.quizRepo.GetByID(ctx, domainID, quizID); err != nil {
		return nil, fmt.Errorf("failed to load quiz %s: %w", quizID, err)
	}
	attempts, err := s.attemptRepo.ListByUser(ctx, quizID, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list attempts: %w", err)
	}
	return attempts, nil
}
