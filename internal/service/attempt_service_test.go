package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/course-api/internal/domain/entity"
	"github.com/yourusername/course-api/internal/domain/repository"
	apperrors "github.com/yourusername/course-api/internal/pkg/errors"
)

const (
	testDomainID = "domain-1"
	testQuizID   = "quiz-1"
	testUserID   = "user-1"
)

// ============================================================================
// Хелперы
// ============================================================================

// trueFalseQuestions создаёт n вопросов true/false по 1 баллу, правильный ответ - "t"
func trueFalseQuestions(n int) []entity.Question {
	questions := make([]entity.Question, 0, n)
	for i := 0; i < n; i++ {
		questions = append(questions, entity.Question{
			ID:       fmt.Sprintf("q%d", i+1),
			DomainID: testDomainID,
			Text:     fmt.Sprintf("Statement %d", i+1),
			Type:     entity.QuestionTypeTrueFalse,
			Points:   1,
			Options: entity.QuestionOptions{
				{ID: "t", Text: "True", IsCorrect: true},
				{ID: "f", Text: "False"},
			},
		})
	}
	return questions
}

func questionIDs(questions []entity.Question) entity.StringArray {
	ids := make(entity.StringArray, 0, len(questions))
	for _, q := range questions {
		ids = append(ids, q.ID)
	}
	return ids
}

// answersWithCorrect отвечает правильно на первые correct вопросов, на остальные - неправильно
func answersWithCorrect(questions []entity.Question, correct int) []SubmittedAnswer {
	answers := make([]SubmittedAnswer, 0, len(questions))
	for i, q := range questions {
		option := "f"
		if i < correct {
			option = "t"
		}
		answers = append(answers, SubmittedAnswer{QuestionID: q.ID, Answer: []string{option}, TimeSpent: 5})
	}
	return answers
}

func publishedQuiz(questions []entity.Question) *entity.Quiz {
	return &entity.Quiz{
		ID:          testQuizID,
		DomainID:    testDomainID,
		Title:       "Quiz",
		QuestionIDs: questionIDs(questions),
		Published:   true,
	}
}

type attemptFixture struct {
	quizRepo     *MockQuizRepo
	questionRepo *MockQuestionRepo
	attemptRepo  *MockAttemptRepo
	cache        *memoryCache
	events       *MockEventPublisher
	service      *AttemptService
	now          time.Time
}

func newAttemptFixture() *attemptFixture {
	f := &attemptFixture{
		quizRepo:     new(MockQuizRepo),
		questionRepo: new(MockQuestionRepo),
		attemptRepo:  new(MockAttemptRepo),
		cache:        newMemoryCache(),
		events:       new(MockEventPublisher),
		now:          time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	f.service = NewAttemptService(f.quizRepo, f.questionRepo, f.attemptRepo, f.cache, f.events, time.Minute)
	f.service.now = func() time.Time { return f.now }
	return f
}

// ============================================================================
// Evaluate
// ============================================================================

func TestEvaluate_PassingThreshold(t *testing.T) {
	questions := trueFalseQuestions(10)
	quiz := publishedQuiz(questions)

	result := Evaluate(quiz, questions, answersWithCorrect(questions, 6))
	assert.Equal(t, 6, result.Score)
	assert.Equal(t, 10, result.TotalPoints)
	assert.InDelta(t, 60.0, result.PercentageScore, 0.001)
	assert.True(t, result.Passed, "60% при проходном балле 60 - зачёт")
	assert.Equal(t, 50, result.TimeSpent)

	result = Evaluate(quiz, questions, answersWithCorrect(questions, 5))
	assert.Equal(t, 5, result.Score)
	assert.InDelta(t, 50.0, result.PercentageScore, 0.001)
	assert.False(t, result.Passed)
}

func TestEvaluate_CustomPassingScore(t *testing.T) {
	questions := trueFalseQuestions(4)
	quiz := publishedQuiz(questions)
	passing := 75
	quiz.PassingScore = &passing

	assert.False(t, Evaluate(quiz, questions, answersWithCorrect(questions, 2)).Passed)
	assert.True(t, Evaluate(quiz, questions, answersWithCorrect(questions, 3)).Passed)
}

func TestEvaluate_ZeroTotalPoints(t *testing.T) {
	questions := trueFalseQuestions(2)
	for i := range questions {
		questions[i].Points = 0
	}
	quiz := publishedQuiz(questions)
	zero := 0
	quiz.PassingScore = &zero

	result := Evaluate(quiz, questions, answersWithCorrect(questions, 2))
	assert.Equal(t, 0, result.TotalPoints)
	assert.Equal(t, 0.0, result.PercentageScore)
	assert.True(t, result.Passed)
}

func TestEvaluate_SkipsUnknownAndDuplicateAnswers(t *testing.T) {
	questions := trueFalseQuestions(2)
	quiz := publishedQuiz(questions)

	answers := []SubmittedAnswer{
		{QuestionID: "q1", Answer: []string{"t"}},
		{QuestionID: "q1", Answer: []string{"f"}},
		{QuestionID: "missing", Answer: []string{"t"}},
	}
	result := Evaluate(quiz, questions, answers)
	require.Len(t, result.Answers, 1)
	assert.Equal(t, "q1", result.Answers[0].QuestionID)
	assert.True(t, result.Answers[0].IsCorrect)
	assert.Equal(t, feedbackCorrect, result.Answers[0].Feedback)
	assert.Equal(t, 1, result.Score)
	assert.Equal(t, 2, result.TotalPoints)
}

func TestEvaluate_UnknownQuestionTypeIsSkipped(t *testing.T) {
	questions := trueFalseQuestions(2)
	questions[1].Type = "essay"
	quiz := publishedQuiz(questions)

	result := Evaluate(quiz, questions, answersWithCorrect(questions, 2))
	require.Len(t, result.Answers, 1)
	assert.Equal(t, 1, result.Score)
}

// ============================================================================
// StartQuizAttempt
// ============================================================================

func TestAttemptService_Start_CreatesAttemptWithExpiry(t *testing.T) {
	f := newAttemptFixture()
	ctx := context.Background()
	quiz := publishedQuiz(trueFalseQuestions(1))
	quiz.TimeLimit = 10

	f.quizRepo.On("GetByID", ctx, testDomainID, testQuizID).Return(quiz, nil)
	f.attemptRepo.On("FindInProgress", ctx, testQuizID, testUserID).Return(nil, apperrors.ErrNotFound)
	f.attemptRepo.On("Create", ctx, mock.AnythingOfType("*entity.QuizAttempt")).Return(nil)

	attempt, err := f.service.StartQuizAttempt(ctx, testDomainID, testQuizID, testUserID)
	require.NoError(t, err)
	assert.Equal(t, entity.AttemptStatusInProgress, attempt.Status)
	assert.Equal(t, f.now, attempt.StartedAt)
	require.NotNil(t, attempt.ExpiresAt)
	assert.Equal(t, f.now.Add(10*time.Minute), *attempt.ExpiresAt)
	f.attemptRepo.AssertExpectations(t)
}

func TestAttemptService_Start_ResumesInProgress(t *testing.T) {
	f := newAttemptFixture()
	ctx := context.Background()
	existing := &entity.QuizAttempt{ID: "a-1", QuizID: testQuizID, UserID: testUserID, Status: entity.AttemptStatusInProgress}

	f.quizRepo.On("GetByID", ctx, testDomainID, testQuizID).Return(publishedQuiz(trueFalseQuestions(1)), nil)
	f.attemptRepo.On("FindInProgress", ctx, testQuizID, testUserID).Return(existing, nil)

	attempt, err := f.service.StartQuizAttempt(ctx, testDomainID, testQuizID, testUserID)
	require.NoError(t, err)
	assert.Equal(t, "a-1", attempt.ID)
	f.attemptRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestAttemptService_Start_AttemptLimit(t *testing.T) {
	f := newAttemptFixture()
	ctx := context.Background()
	quiz := publishedQuiz(trueFalseQuestions(1))
	quiz.MaxAttempts = 2

	f.quizRepo.On("GetByID", ctx, testDomainID, testQuizID).Return(quiz, nil)
	f.attemptRepo.On("FindInProgress", ctx, testQuizID, testUserID).Return(nil, apperrors.ErrNotFound)
	f.attemptRepo.On("CountCompleted", ctx, testQuizID, testUserID).Return(int64(2), nil)

	_, err := f.service.StartQuizAttempt(ctx, testDomainID, testQuizID, testUserID)
	assert.ErrorIs(t, err, ErrAttemptLimitReached)
	assert.ErrorIs(t, err, apperrors.ErrConflict)
}

func TestAttemptService_Start_Unpublished(t *testing.T) {
	f := newAttemptFixture()
	ctx := context.Background()
	quiz := publishedQuiz(trueFalseQuestions(1))
	quiz.Published = false

	f.quizRepo.On("GetByID", ctx, testDomainID, testQuizID).Return(quiz, nil)

	_, err := f.service.StartQuizAttempt(ctx, testDomainID, testQuizID, testUserID)
	assert.ErrorIs(t, err, ErrQuizNotPublished)
}

func TestAttemptService_Start_ConcurrentCreateReturnsWinner(t *testing.T) {
	f := newAttemptFixture()
	ctx := context.Background()
	winner := &entity.QuizAttempt{ID: "winner", Status: entity.AttemptStatusInProgress}

	f.quizRepo.On("GetByID", ctx, testDomainID, testQuizID).Return(publishedQuiz(trueFalseQuestions(1)), nil)
	f.attemptRepo.On("FindInProgress", ctx, testQuizID, testUserID).Return(nil, apperrors.ErrNotFound).Once()
	f.attemptRepo.On("Create", ctx, mock.Anything).Return(repository.ErrAttemptAlreadyInProgress)
	f.attemptRepo.On("FindInProgress", ctx, testQuizID, testUserID).Return(winner, nil).Once()

	attempt, err := f.service.StartQuizAttempt(ctx, testDomainID, testQuizID, testUserID)
	require.NoError(t, err)
	assert.Equal(t, "winner", attempt.ID)
}

// ============================================================================
// GetQuizForAttempt
// ============================================================================

func TestAttemptService_GetQuizForAttempt_HidesAnswersAndCaches(t *testing.T) {
	f := newAttemptFixture()
	ctx := context.Background()
	questions := trueFalseQuestions(2)
	quiz := publishedQuiz(questions)

	f.quizRepo.On("GetByID", ctx, testDomainID, testQuizID).Return(quiz, nil).Once()
	f.questionRepo.On("GetByIDs", ctx, testDomainID, []string(quiz.QuestionIDs)).Return(questions, nil).Once()

	view, err := f.service.GetQuizForAttempt(ctx, testDomainID, testQuizID)
	require.NoError(t, err)
	require.Len(t, view.Questions, 2)
	for _, q := range view.Questions {
		for _, opt := range q.Options {
			assert.False(t, opt.IsCorrect)
		}
	}
	assert.True(t, questions[0].Options[0].IsCorrect, "исходный вопрос не должен меняться")

	// второй вызов берётся из кеша
	again, err := f.service.GetQuizForAttempt(ctx, testDomainID, testQuizID)
	require.NoError(t, err)
	assert.Len(t, again.Questions, 2)
	f.quizRepo.AssertNumberOfCalls(t, "GetByID", 1)

	// чужой домен не видит закешированный тест
	_, err = f.service.GetQuizForAttempt(ctx, "other-domain", testQuizID)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

// ============================================================================
// SubmitQuizAttempt
// ============================================================================

func TestAttemptService_Submit_CompletesOnce(t *testing.T) {
	f := newAttemptFixture()
	ctx := context.Background()
	questions := trueFalseQuestions(10)
	quiz := publishedQuiz(questions)
	attempt := &entity.QuizAttempt{ID: "a-1", DomainID: testDomainID, QuizID: testQuizID, UserID: testUserID, Status: entity.AttemptStatusInProgress}

	f.attemptRepo.On("GetByID", ctx, testDomainID, "a-1").Return(attempt, nil)
	f.quizRepo.On("GetByID", ctx, testDomainID, testQuizID).Return(quiz, nil)
	f.questionRepo.On("GetByIDs", ctx, testDomainID, []string(quiz.QuestionIDs)).Return(questions, nil)
	f.attemptRepo.On("Complete", ctx, mock.AnythingOfType("*entity.QuizAttempt")).Return(nil).Once()
	f.attemptRepo.On("Complete", ctx, mock.AnythingOfType("*entity.QuizAttempt")).Return(repository.ErrAttemptNotInProgress).Once()
	f.events.On("SendEventToUser", testUserID, EventAttemptCompleted, mock.Anything).Return(nil).Once()

	completed, err := f.service.SubmitQuizAttempt(ctx, testDomainID, "a-1", testUserID, answersWithCorrect(questions, 6))
	require.NoError(t, err)
	assert.Equal(t, 6, completed.Score)
	assert.True(t, completed.Passed)
	require.NotNil(t, completed.CompletedAt)
	assert.Equal(t, f.now, *completed.CompletedAt)

	// второй submit проигрывает условное обновление
	_, err = f.service.SubmitQuizAttempt(ctx, testDomainID, "a-1", testUserID, answersWithCorrect(questions, 10))
	assert.ErrorIs(t, err, ErrAttemptNotInProgress)
	f.events.AssertExpectations(t)
}

func TestAttemptService_Submit_AlreadyCompleted(t *testing.T) {
	f := newAttemptFixture()
	ctx := context.Background()
	attempt := &entity.QuizAttempt{ID: "a-1", DomainID: testDomainID, QuizID: testQuizID, UserID: testUserID, Status: entity.AttemptStatusCompleted}
	f.attemptRepo.On("GetByID", ctx, testDomainID, "a-1").Return(attempt, nil)

	_, err := f.service.SubmitQuizAttempt(ctx, testDomainID, "a-1", testUserID, nil)
	assert.ErrorIs(t, err, ErrAttemptNotInProgress)
	f.attemptRepo.AssertNotCalled(t, "Complete", mock.Anything, mock.Anything)
}

func TestAttemptService_Submit_Expired(t *testing.T) {
	f := newAttemptFixture()
	ctx := context.Background()
	expiresAt := f.now.Add(-time.Second)
	attempt := &entity.QuizAttempt{ID: "a-1", DomainID: testDomainID, QuizID: testQuizID, UserID: testUserID,
		Status: entity.AttemptStatusInProgress, ExpiresAt: &expiresAt}
	f.attemptRepo.On("GetByID", ctx, testDomainID, "a-1").Return(attempt, nil)

	_, err := f.service.SubmitQuizAttempt(ctx, testDomainID, "a-1", testUserID, nil)
	assert.ErrorIs(t, err, ErrAttemptExpired)
}

func TestAttemptService_Submit_OtherUserForbidden(t *testing.T) {
	f := newAttemptFixture()
	ctx := context.Background()
	attempt := &entity.QuizAttempt{ID: "a-1", DomainID: testDomainID, QuizID: testQuizID, UserID: testUserID, Status: entity.AttemptStatusInProgress}
	f.attemptRepo.On("GetByID", ctx, testDomainID, "a-1").Return(attempt, nil)

	_, err := f.service.SubmitQuizAttempt(ctx, testDomainID, "a-1", "intruder", nil)
	assert.ErrorIs(t, err, apperrors.ErrForbidden)
}

func TestAttemptService_EvaluateQuizSubmission_DoesNotPersist(t *testing.T) {
	f := newAttemptFixture()
	ctx := context.Background()
	questions := trueFalseQuestions(4)
	quiz := publishedQuiz(questions)
	attempt := &entity.QuizAttempt{ID: "a-1", DomainID: testDomainID, QuizID: testQuizID, UserID: testUserID, Status: entity.AttemptStatusInProgress}

	f.attemptRepo.On("GetByID", ctx, testDomainID, "a-1").Return(attempt, nil)
	f.quizRepo.On("GetByID", ctx, testDomainID, testQuizID).Return(quiz, nil)
	f.questionRepo.On("GetByIDs", ctx, testDomainID, []string(quiz.QuestionIDs)).Return(questions, nil)

	result, err := f.service.EvaluateQuizSubmission(ctx, testDomainID, "a-1", answersWithCorrect(questions, 3))
	require.NoError(t, err)
	assert.Equal(t, 3, result.Score)
	assert.InDelta(t, 75.0, result.PercentageScore, 0.001)
	f.attemptRepo.AssertNotCalled(t, "Complete", mock.Anything, mock.Anything)
}

func TestAttemptService_EvaluateQuizSubmission_QuizDeleted(t *testing.T) {
	f := newAttemptFixture()
	ctx := context.Background()
	attempt := &entity.QuizAttempt{ID: "a-1", DomainID: testDomainID, QuizID: testQuizID, UserID: testUserID, Status: entity.AttemptStatusCompleted}

	f.attemptRepo.On("GetByID", ctx, testDomainID, "a-1").Return(attempt, nil)
	f.quizRepo.On("GetByID", ctx, testDomainID, testQuizID).Return(nil, apperrors.ErrNotFound)

	_, err := f.service.EvaluateQuizSubmission(ctx, testDomainID, "a-1", nil)
	assert.ErrorIs(t, err, ErrQuizDeleted)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	f.questionRepo.AssertNotCalled(t, "GetByIDs", mock.Anything, mock.Anything, mock.Anything)
}
