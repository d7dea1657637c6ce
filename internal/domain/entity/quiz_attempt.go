package entity

import (
	"database/sql/driver"
	"encoding/json"
	"time"

	"gorm.io/gorm"
)

// Статусы попытки
const (
	AttemptStatusInProgress = "in_progress"
	AttemptStatusCompleted  = "completed"
)

// AttemptAnswer - результат по одному вопросу попытки
type AttemptAnswer struct {
	QuestionID string   `json:"question_id"`
	Answer     []string `json:"answer"`
	IsCorrect  bool     `json:"is_correct"`
	Score      int      `json:"score"`
	Feedback   string   `json:"feedback"`
	TimeSpent  int      `json:"time_spent"` // секунды
}

// AttemptAnswers хранится в JSONB
type AttemptAnswers []AttemptAnswer

// Scan реализует sql.Scanner
func (a *AttemptAnswers) Scan(value interface{}) error {
	*a = AttemptAnswers{}
	return scanJSON(value, a)
}

// Value реализует driver.Valuer
func (a AttemptAnswers) Value() (driver.Value, error) {
	if len(a) == 0 {
		return []byte("[]"), nil
	}
	return json.Marshal(a)
}

// QuizAttempt - одна попытка одного пользователя пройти один тест
type QuizAttempt struct {
	ID              string         `gorm:"primaryKey;size:36" json:"id"`
	DomainID        string         `gorm:"size:36;not null;index" json:"domain_id"`
	QuizID          string         `gorm:"size:36;not null;index:idx_quiz_attempts_quiz_user" json:"quiz_id"`
	UserID          string         `gorm:"size:36;not null;index:idx_quiz_attempts_quiz_user" json:"user_id"`
	Status          string         `gorm:"size:20;not null;default:'in_progress'" json:"status"`
	StartedAt       time.Time      `gorm:"not null" json:"started_at"`
	ExpiresAt       *time.Time     `json:"expires_at,omitempty"`
	CompletedAt     *time.Time     `json:"completed_at,omitempty"`
	Answers         AttemptAnswers `gorm:"type:jsonb;not null" json:"answers"`
	Score           int            `gorm:"not null;default:0" json:"score"`
	PercentageScore float64        `gorm:"not null;default:0" json:"percentage_score"`
	Passed          bool           `gorm:"not null;default:false" json:"passed"`
	TimeSpent       int            `gorm:"not null;default:0" json:"time_spent"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
}

// TableName определяет имя таблицы для GORM
func (QuizAttempt) TableName() string {
	return "quiz_attempts"
}

// BeforeCreate генерирует ID
func (a *QuizAttempt) BeforeCreate(tx *gorm.DB) error {
	if a.ID == "" {
		a.ID = NewID()
	}
	return nil
}

// IsInProgress проверяет, не завершена ли попытка
func (a *QuizAttempt) IsInProgress() bool {
	return a.Status == AttemptStatusInProgress
}

// IsExpiredAt проверяет, истекло ли время попытки на момент now
func (a *QuizAttempt) IsExpiredAt(now time.Time) bool {
	return a.ExpiresAt != nil && now.After(*a.ExpiresAt)
}
