package repository

import (
	"context"

	"github.com/yourusername/course-api/internal/domain/entity"
)

// QuizRepository определяет методы для работы с тестами
type QuizRepository interface {
	Create(ctx context.Context, quiz *entity.Quiz) error
	GetByID(ctx context.Context, domainID, id string) (*entity.Quiz, error)
	Update(ctx context.Context, quiz *entity.Quiz) error
	// AppendQuestion атомарно добавляет ID вопроса в список question_ids
	AppendQuestion(ctx context.Context, quizID string, question *entity.Question) error
}

// QuestionRepository - вопросы доступны движку попыток только для чтения
type QuestionRepository interface {
	GetByID(ctx context.Context, domainID, id string) (*entity.Question, error)
	GetByIDs(ctx context.Context, domainID string, ids []string) ([]entity.Question, error)
}

// AttemptRepository определяет методы для работы с попытками
type AttemptRepository interface {
	// Create создаёт попытку; ErrAttemptAlreadyInProgress, если уже есть in_progress для (quiz, user)
	Create(ctx context.Context, attempt *entity.QuizAttempt) error
	GetByID(ctx context.Context, domainID, id string) (*entity.QuizAttempt, error)
	FindInProgress(ctx context.Context, quizID, userID string) (*entity.QuizAttempt, error)
	CountCompleted(ctx context.Context, quizID, userID string) (int64, error)
	CountCompletedForQuiz(ctx context.Context, quizID string) (int64, error)
	// Complete атомарно завершает попытку при условии status = in_progress, иначе ErrAttemptNotInProgress
	Complete(ctx context.Context, attempt *entity.QuizAttempt) error
	ListByUser(ctx context.Context, quizID, userID string) ([]entity.QuizAttempt, error)
	ListByQuiz(ctx context.Context, quizID string) ([]entity.QuizAttempt, error)
}
