package dto

import (
	"time"

	"github.com/yourusername/course-api/internal/domain/entity"
	"github.com/yourusername/course-api/internal/handler/helper"
)

// AddQuestionRequest - запрос на добавление вопроса к тесту
type AddQuestionRequest struct {
	Text           string                  `json:"text" binding:"required,min=1,max=2000"`
	Type           string                  `json:"type" binding:"required"`
	Points         int                     `json:"points" binding:"omitempty,min=0,max=1000"`
	Options        []helper.QuestionOption `json:"options" binding:"omitempty,dive"`
	CorrectAnswers []string                `json:"correct_answers"`
	Explanation    string                  `json:"explanation" binding:"omitempty,max=2000"`
}

// ToEntity создает вопрос из запроса
func (r *AddQuestionRequest) ToEntity() *entity.Question {
	points := r.Points
	if points == 0 {
		points = 1
	}
	return &entity.Question{
		Text:           r.Text,
		Type:           entity.QuestionType(r.Type),
		Points:         points,
		Options:        helper.ConvertOptionsToEntity(r.Options),
		CorrectAnswers: entity.StringArray(r.CorrectAnswers),
		Explanation:    r.Explanation,
	}
}

// PublishRequest - публикация или снятие теста с публикации
type PublishRequest struct {
	Published *bool `json:"published" binding:"required"`
}

// AnswerRequest - ответ на один вопрос
type AnswerRequest struct {
	QuestionID string   `json:"question_id" binding:"required"`
	Answer     []string `json:"answer"`
	TimeSpent  int      `json:"time_spent" binding:"min=0"`
}

// SubmitAnswersRequest - ответы попытки
type SubmitAnswersRequest struct {
	Answers []AnswerRequest `json:"answers" binding:"dive"`
}

// QuestionResponse - вопрос в ответе клиенту. Поля с правильными ответами
// пустые, если вопрос прошёл через скрытие ответов.
type QuestionResponse struct {
	ID             string                  `json:"id"`
	Text           string                  `json:"text"`
	Type           string                  `json:"type"`
	Points         int                     `json:"points"`
	Options        []entity.QuestionOption `json:"options"`
	CorrectAnswers []string                `json:"correct_answers,omitempty"`
	Explanation    string                  `json:"explanation,omitempty"`
}

// QuizResponse - тест в ответе клиенту
type QuizResponse struct {
	ID            string             `json:"id"`
	Title         string             `json:"title"`
	PassingScore  int                `json:"passing_score"`
	TimeLimit     int                `json:"time_limit"`
	MaxAttempts   int                `json:"max_attempts"`
	Published     bool               `json:"published"`
	QuestionCount int                `json:"question_count"`
	Questions     []QuestionResponse `json:"questions,omitempty"`
	CreatedAt     time.Time          `json:"created_at"`
	UpdatedAt     time.Time          `json:"updated_at"`
}

// AttemptResponse - попытка в ответе клиенту
type AttemptResponse struct {
	ID              string                 `json:"id"`
	QuizID          string                 `json:"quiz_id"`
	UserID          string                 `json:"user_id"`
	Status          string                 `json:"status"`
	StartedAt       time.Time              `json:"started_at"`
	ExpiresAt       *time.Time             `json:"expires_at,omitempty"`
	CompletedAt     *time.Time             `json:"completed_at,omitempty"`
	Score           int                    `json:"score"`
	PercentageScore float64                `json:"percentage_score"`
	Passed          bool                   `json:"passed"`
	TimeSpent       int                    `json:"time_spent"`
	Answers         []entity.AttemptAnswer `json:"answers,omitempty"`
}

// AttemptViewResponse - попытка вместе с тестом без правильных ответов
type AttemptViewResponse struct {
	Attempt *AttemptResponse `json:"attempt"`
	Quiz    *QuizResponse    `json:"quiz"`
}

// NewQuestionResponse создает DTO для вопроса
func NewQuestionResponse(q *entity.Question) QuestionResponse {
	options := make([]entity.QuestionOption, len(q.Options))
	copy(options, q.Options)
	return QuestionResponse{
		ID:             q.ID,
		Text:           q.Text,
		Type:           string(q.Type),
		Points:         q.Points,
		Options:        options,
		CorrectAnswers: q.CorrectAnswers,
		Explanation:    q.Explanation,
	}
}

// NewQuizResponse создает DTO для теста. questions может быть nil.
func NewQuizResponse(quiz *entity.Quiz, questions []entity.Question) *QuizResponse {
	if quiz == nil {
		return nil
	}

	var questionsDTO []QuestionResponse
	if questions != nil {
		questionsDTO = make([]QuestionResponse, len(questions))
		for i := range questions {
			questionsDTO[i] = NewQuestionResponse(&questions[i])
		}
	}

	return &QuizResponse{
		ID:            quiz.ID,
		Title:         quiz.Title,
		PassingScore:  quiz.EffectivePassingScore(),
		TimeLimit:     quiz.TimeLimit,
		MaxAttempts:   quiz.MaxAttempts,
		Published:     quiz.Published,
		QuestionCount: len(quiz.QuestionIDs),
		Questions:     questionsDTO,
		CreatedAt:     quiz.CreatedAt,
		UpdatedAt:     quiz.UpdatedAt,
	}
}

// NewAttemptResponse создает DTO для попытки. Ответы с оценками
// отдаются только по завершённой попытке.
func NewAttemptResponse(attempt *entity.QuizAttempt) *AttemptResponse {
	if attempt == nil {
		return nil
	}
	resp := &AttemptResponse{
		ID:              attempt.ID,
		QuizID:          attempt.QuizID,
		UserID:          attempt.UserID,
		Status:          attempt.Status,
		StartedAt:       attempt.StartedAt,
		ExpiresAt:       attempt.ExpiresAt,
		CompletedAt:     attempt.CompletedAt,
		Score:           attempt.Score,
		PercentageScore: attempt.PercentageScore,
		Passed:          attempt.Passed,
		TimeSpent:       attempt.TimeSpent,
	}
	if !attempt.IsInProgress() {
		resp.Answers = attempt.Answers
	}
	return resp
}

// NewListAttemptResponse создает слайс DTO для списка попыток
func NewListAttemptResponse(attempts []entity.QuizAttempt) []*AttemptResponse {
	list := make([]*AttemptResponse, len(attempts))
	for i := range attempts {
		list[i] = NewAttemptResponse(&attempts[i])
	}
	return list
}
