package postgres

import (
	"context"

	"gorm.io/gorm"

	"github.com/yourusername/course-api/internal/domain/entity"
	"github.com/yourusername/course-api/internal/domain/repository"
)

// AttemptRepo реализует repository.AttemptRepository
type AttemptRepo struct {
	db *gorm.DB
}

// NewAttemptRepo создает новый репозиторий попыток
func NewAttemptRepo(db *gorm.DB) *AttemptRepo {
	return &AttemptRepo{db: db}
}

// Create создает попытку. Вторая in_progress попытка для (quiz, user) отклоняется
// частичным уникальным индексом idx_quiz_attempts_single_in_progress.
func (r *AttemptRepo) Create(ctx context.Context, attempt *entity.QuizAttempt) error {
	if err := r.db.WithContext(ctx).Create(attempt).Error; err != nil {
		if isUniqueViolation(err) {
			return repository.ErrAttemptAlreadyInProgress
		}
		return err
	}
	return nil
}

// GetByID возвращает попытку домена по ID
func (r *AttemptRepo) GetByID(ctx context.Context, domainID, id string) (*entity.QuizAttempt, error) {
	var attempt entity.QuizAttempt
	err := r.db.WithContext(ctx).
		Where("domain_id = ? AND id = ?", domainID, id).
		First(&attempt).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &attempt, nil
}

// FindInProgress возвращает незавершенную попытку пользователя по тесту
func (r *AttemptRepo) FindInProgress(ctx context.Context, quizID, userID string) (*entity.QuizAttempt, error) {
	var attempt entity.QuizAttempt
	err := r.db.WithContext(ctx).
		Where("quiz_id = ? AND user_id = ? AND status = ?", quizID, userID, entity.AttemptStatusInProgress).
		First(&attempt).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &attempt, nil
}

// CountCompleted считает завершенные попытки пользователя по тесту
func (r *AttemptRepo) CountCompleted(ctx context.Context, quizID, userID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&entity.QuizAttempt{}).
		Where("quiz_id = ? AND user_id = ? AND status = ?", quizID, userID, entity.AttemptStatusCompleted).
		Count(&count).Error
	return count, err
}

// CountCompletedForQuiz считает все завершенные попытки теста
func (r *AttemptRepo) CountCompletedForQuiz(ctx context.Context, quizID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&entity.QuizAttempt{}).
		Where("quiz_id = ? AND status = ?", quizID, entity.AttemptStatusCompleted).
		Count(&count).Error
	return count, err
}

// Complete атомарно завершает попытку: WHERE status = 'in_progress'.
// Если строка не обновлена, попытку уже завершил другой запрос.
func (r *AttemptRepo) Complete(ctx context.Context, attempt *entity.QuizAttempt) error {
	result := r.db.WithContext(ctx).Model(&entity.QuizAttempt{}).
		Where("id = ? AND status = ?", attempt.ID, entity.AttemptStatusInProgress).
		Updates(map[string]interface{}{
			"status":           entity.AttemptStatusCompleted,
			"completed_at":     attempt.CompletedAt,
			"answers":          attempt.Answers,
			"score":            attempt.Score,
			"percentage_score": attempt.PercentageScore,
			"passed":           attempt.Passed,
			"time_spent":       attempt.TimeSpent,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return repository.ErrAttemptNotInProgress
	}
	attempt.Status = entity.AttemptStatusCompleted
	return nil
}

// ListByUser возвращает попытки пользователя по тесту, новые первыми
func (r *AttemptRepo) ListByUser(ctx context.Context, quizID, userID string) ([]entity.QuizAttempt, error) {
	var attempts []entity.QuizAttempt
	err := r.db.WithContext(ctx).
		Where("quiz_id = ? AND user_id = ?", quizID, userID).
		Order("started_at DESC").
		Find(&attempts).Error
	return attempts, err
}

// ListByQuiz возвращает все попытки теста (для экспорта)
func (r *AttemptRepo) ListByQuiz(ctx context.Context, quizID string) ([]entity.QuizAttempt, error) {
	var attempts []entity.QuizAttempt
	err := r.db.WithContext(ctx).
		Where("quiz_id = ?", quizID).
		Order("started_at ASC").
		Find(&attempts).Error
	return attempts, err
}
