package questiontype

import "github.com/yourusername/course-api/internal/domain/entity"

// multipleChoice - ответ это набор ID вариантов; баллы начисляются только за точное совпадение множеств
type multipleChoice struct{}

func (multipleChoice) Type() entity.QuestionType { return entity.QuestionTypeMultipleChoice }

func (multipleChoice) CalculateScore(answer []string, question *entity.Question) int {
	correct := question.CorrectOptionIDs()
	if len(correct) == 0 {
		return 0
	}

	selected := make(map[string]struct{}, len(answer))
	for _, id := range answer {
		selected[id] = struct{}{}
	}
	if len(selected) != len(correct) {
		return 0
	}
	for _, id := range correct {
		if _, ok := selected[id]; !ok {
			return 0
		}
	}
	return question.Points
}

func (multipleChoice) ProcessForDisplay(question *entity.Question, hideAnswers bool) entity.Question {
	return display(question, hideAnswers)
}

func (multipleChoice) Validate(question *entity.Question) error {
	if len(question.Options) < 2 {
		return validationErr("multiple choice question needs at least two options")
	}
	seen := make(map[string]struct{}, len(question.Options))
	for _, opt := range question.Options {
		if opt.ID == "" {
			return validationErr("option id is required")
		}
		if _, dup := seen[opt.ID]; dup {
			return validationErr("duplicate option id %q", opt.ID)
		}
		seen[opt.ID] = struct{}{}
	}
	if len(question.CorrectOptionIDs()) == 0 {
		return validationErr("at least one option must be correct")
	}
	return nil
}
