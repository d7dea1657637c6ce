package entity

import (
	"database/sql/driver"
	"encoding/json"
	"time"

	"gorm.io/gorm"
)

// QuestionType - дискриминатор типа вопроса
type QuestionType string

// Поддерживаемые типы вопросов
const (
	QuestionTypeMultipleChoice QuestionType = "multiple_choice"
	QuestionTypeTrueFalse      QuestionType = "true_false"
	QuestionTypeShortAnswer    QuestionType = "short_answer"
)

// QuestionOption - вариант ответа
type QuestionOption struct {
	ID        string `json:"id"`
	Text      string `json:"text"`
	IsCorrect bool   `json:"is_correct,omitempty"`
}

// QuestionOptions хранится в JSONB
type QuestionOptions []QuestionOption

// Scan реализует sql.Scanner
func (o *QuestionOptions) Scan(value interface{}) error {
	*o = QuestionOptions{}
	return scanJSON(value, o)
}

// Value реализует driver.Valuer
func (o QuestionOptions) Value() (driver.Value, error) {
	if len(o) == 0 {
		return []byte("[]"), nil
	}
	return json.Marshal(o)
}

// Question представляет вопрос теста
type Question struct {
	ID             string          `gorm:"primaryKey;size:36" json:"id"`
	DomainID       string          `gorm:"size:36;not null;index" json:"domain_id"`
	Text           string          `gorm:"size:2000;not null" json:"text"`
	Type           QuestionType    `gorm:"size:30;not null" json:"type"`
	Points         int             `gorm:"not null;default:1" json:"points"`
	Options        QuestionOptions `gorm:"type:jsonb;not null" json:"options"`
	CorrectAnswers StringArray     `gorm:"type:jsonb;not null" json:"correct_answers,omitempty"`
	Explanation    string          `gorm:"size:2000;not null;default:''" json:"explanation,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// TableName определяет имя таблицы для GORM
func (Question) TableName() string {
	return "questions"
}

// BeforeCreate генерирует ID
func (q *Question) BeforeCreate(tx *gorm.DB) error {
	if q.ID == "" {
		q.ID = NewID()
	}
	return nil
}

// CorrectOptionIDs возвращает ID правильных вариантов
func (q *Question) CorrectOptionIDs() []string {
	ids := make([]string, 0, len(q.Options))
	for _, opt := range q.Options {
		if opt.IsCorrect {
			ids = append(ids, opt.ID)
		}
	}
	return ids
}

// HasOption проверяет, существует ли вариант с данным ID
func (q *Question) HasOption(optionID string) bool {
	for _, opt := range q.Options {
		if opt.ID == optionID {
			return true
		}
	}
	return false
}

// Clone возвращает глубокую копию вопроса (варианты и ответы копируются)
func (q Question) Clone() Question {
	clone := q
	if q.Options != nil {
		clone.Options = append(QuestionOptions(nil), q.Options...)
	}
	if q.CorrectAnswers != nil {
		clone.CorrectAnswers = append(StringArray(nil), q.CorrectAnswers...)
	}
	return clone
}
