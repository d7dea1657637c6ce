// Package questiontype содержит стратегии оценки и отображения для каждого типа вопроса.
// Набор типов закрыт: неизвестный тип отклоняется при создании вопроса.
package questiontype

import (
	"fmt"

	"github.com/yourusername/course-api/internal/domain/entity"
	apperrors "github.com/yourusername/course-api/internal/pkg/errors"
)

// Provider - стратегия одного типа вопроса
type Provider interface {
	Type() entity.QuestionType
	// CalculateScore возвращает набранные баллы: 0 или question.Points. Чистая функция.
	CalculateScore(answer []string, question *entity.Question) int
	// ProcessForDisplay возвращает копию вопроса; при hideAnswers поля с правильными ответами вырезаются
	ProcessForDisplay(question *entity.Question, hideAnswers bool) entity.Question
	// Validate проверяет вопрос при создании
	Validate(question *entity.Question) error
}

var providers = map[entity.QuestionType]Provider{
	entity.QuestionTypeMultipleChoice: multipleChoice{},
	entity.QuestionTypeTrueFalse:      trueFalse{},
	entity.QuestionTypeShortAnswer:    shortAnswer{},
}

// Get возвращает провайдер для типа вопроса
func Get(t entity.QuestionType) (Provider, bool) {
	p, ok := providers[t]
	return p, ok
}

// Validate находит провайдер и проверяет вопрос. Неизвестный тип - ошибка валидации.
func Validate(question *entity.Question) error {
	p, ok := Get(question.Type)
	if !ok {
		return fmt.Errorf("%w: unknown question type %q", apperrors.ErrValidation, question.Type)
	}
	if question.Text == "" {
		return fmt.Errorf("%w: question text is required", apperrors.ErrValidation)
	}
	if question.Points < 0 {
		return fmt.Errorf("%w: points must not be negative", apperrors.ErrValidation)
	}
	return p.Validate(question)
}

// StripAnswers вырезает поля с правильными ответами. Используется провайдерами и как запасной вариант.
func StripAnswers(question *entity.Question) entity.Question {
	clone := question.Clone()
	clone.CorrectAnswers = nil
	clone.Explanation = ""
	for i := range clone.Options {
		clone.Options[i].IsCorrect = false
	}
	return clone
}

func display(question *entity.Question, hideAnswers bool) entity.Question {
	if hideAnswers {
		return StripAnswers(question)
	}
	return question.Clone()
}

func validationErr(format string, args ...interface{}) error {
	return fmt.Errorf("%w: "+format, append([]interface{}{apperrors.ErrValidation}, args...)...)
}
