package questiontype

import (
	"strings"

	"github.com/yourusername/course-api/internal/domain/entity"
)

// shortAnswer - свободный текст, сравнивается с correct_answers без учёта регистра и пробелов
type shortAnswer struct{}

func (shortAnswer) Type() entity.QuestionType { return entity.QuestionTypeShortAnswer }

func (shortAnswer) CalculateScore(answer []string, question *entity.Question) int {
	if len(answer) == 0 {
		return 0
	}
	given := normalize(strings.Join(answer, " "))
	if given == "" {
		return 0
	}
	for _, expected := range question.CorrectAnswers {
		if normalize(expected) == given {
			return question.Points
		}
	}
	return 0
}

func (shortAnswer) ProcessForDisplay(question *entity.Question, hideAnswers bool) entity.Question {
	return display(question, hideAnswers)
}

func (shortAnswer) Validate(question *entity.Question) error {
	for _, a := range question.CorrectAnswers {
		if normalize(a) != "" {
			return nil
		}
	}
	return validationErr("short answer question needs at least one non-empty correct answer")
}

// normalize: trim, нижний регистр, схлопывание внутренних пробелов
func normalize(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}
