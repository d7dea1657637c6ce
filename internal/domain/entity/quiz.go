package entity

import (
	"time"

	"gorm.io/gorm"
)

// DefaultPassingScore - проходной процент по умолчанию
const DefaultPassingScore = 60

// Quiz представляет тест, привязанный к домену
type Quiz struct {
	ID           string      `gorm:"primaryKey;size:36" json:"id"`
	DomainID     string      `gorm:"size:36;not null;index" json:"domain_id"`
	Title        string      `gorm:"size:255;not null" json:"title"`
	QuestionIDs  StringArray `gorm:"type:jsonb;not null" json:"question_ids"`
	PassingScore *int        `json:"passing_score,omitempty"`
	TimeLimit    int         `gorm:"not null;default:0" json:"time_limit"` // минуты, 0 - без ограничения
	MaxAttempts  int         `gorm:"not null;default:0" json:"max_attempts"`
	Published    bool        `gorm:"not null;default:false;index" json:"published"`
	CreatedBy    string      `gorm:"size:36;not null;default:''" json:"created_by"`
	CreatedAt    time.Time   `json:"created_at"`
	UpdatedAt    time.Time   `json:"updated_at"`
}

// TableName определяет имя таблицы для GORM
func (Quiz) TableName() string {
	return "quizzes"
}

// BeforeCreate генерирует ID
func (q *Quiz) BeforeCreate(tx *gorm.DB) error {
	if q.ID == "" {
		q.ID = NewID()
	}
	return nil
}

// EffectivePassingScore возвращает проходной процент с учётом значения по умолчанию
func (q *Quiz) EffectivePassingScore() int {
	if q.PassingScore == nil {
		return DefaultPassingScore
	}
	return *q.PassingScore
}

// HasAttemptLimit проверяет, ограничено ли количество попыток
func (q *Quiz) HasAttemptLimit() bool {
	return q.MaxAttempts > 0
}

// TimeLimitDuration возвращает лимит времени попытки (0 - без лимита)
func (q *Quiz) TimeLimitDuration() time.Duration {
	if q.TimeLimit <= 0 {
		return 0
	}
	return time.Duration(q.TimeLimit) * time.Minute
}
