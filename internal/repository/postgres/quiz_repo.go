package postgres

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/yourusername/course-api/internal/domain/entity"
)

// QuizRepo реализует repository.QuizRepository
type QuizRepo struct {
	db *gorm.DB
}

// NewQuizRepo создает новый репозиторий тестов
func NewQuizRepo(db *gorm.DB) *QuizRepo {
	return &QuizRepo{db: db}
}

// Create создает новый тест
func (r *QuizRepo) Create(ctx context.Context, quiz *entity.Quiz) error {
	return r.db.WithContext(ctx).Create(quiz).Error
}

// GetByID возвращает тест домена по ID
func (r *QuizRepo) GetByID(ctx context.Context, domainID, id string) (*entity.Quiz, error) {
	var quiz entity.Quiz
	err := r.db.WithContext(ctx).
		Where("domain_id = ? AND id = ?", domainID, id).
		First(&quiz).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &quiz, nil
}

// Update обновляет тест целиком
func (r *QuizRepo) Update(ctx context.Context, quiz *entity.Quiz) error {
	return r.db.WithContext(ctx).Save(quiz).Error
}

// AppendQuestion создает вопрос и добавляет его ID в тест в одной транзакции.
// Строка теста блокируется (SELECT ... FOR UPDATE), чтобы параллельные добавления не теряли ID.
func (r *QuizRepo) AppendQuestion(ctx context.Context, quizID string, question *entity.Question) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var quiz entity.Quiz
		if err := lockForUpdate(tx).Where("id = ?", quizID).First(&quiz).Error; err != nil {
			return notFound(err)
		}
		if err := tx.Create(question).Error; err != nil {
			return fmt.Errorf("failed to create question: %w", err)
		}
		ids := append(entity.StringArray{}, quiz.QuestionIDs...)
		ids = append(ids, question.ID)
		return tx.Model(&entity.Quiz{}).
			Where("id = ?", quizID).
			Update("question_ids", ids).Error
	})
}

// lockForUpdate добавляет FOR UPDATE там, где диалект его поддерживает
func lockForUpdate(tx *gorm.DB) *gorm.DB {
	if tx.Dialector.Name() == "postgres" {
		return tx.Set("gorm:query_option", "FOR UPDATE")
	}
	return tx
}

// QuestionRepo реализует repository.QuestionRepository
type QuestionRepo struct {
	db *gorm.DB
}

// NewQuestionRepo создает новый репозиторий вопросов
func NewQuestionRepo(db *gorm.DB) *QuestionRepo {
	return &QuestionRepo{db: db}
}

// GetByID возвращает вопрос домена
func (r *QuestionRepo) GetByID(ctx context.Context, domainID, id string) (*entity.Question, error) {
	var question entity.Question
	err := r.db.WithContext(ctx).
		Where("domain_id = ? AND id = ?", domainID, id).
		First(&question).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &question, nil
}

// GetByIDs возвращает вопросы домена в порядке ids. Отсутствующие ID пропускаются.
func (r *QuestionRepo) GetByIDs(ctx context.Context, domainID string, ids []string) ([]entity.Question, error) {
	if len(ids) == 0 {
		return []entity.Question{}, nil
	}
	var questions []entity.Question
	err := r.db.WithContext(ctx).
		Where("domain_id = ? AND id IN ?", domainID, ids).
		Find(&questions).Error
	if err != nil {
		return nil, err
	}

	byID := make(map[string]entity.Question, len(questions))
	for _, q := range questions {
		byID[q.ID] = q
	}
	ordered := make([]entity.Question, 0, len(questions))
	for _, id := range ids {
		if q, ok := byID[id]; ok {
			ordered = append(ordered, q)
		}
	}
	return ordered, nil
}
