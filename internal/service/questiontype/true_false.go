package questiontype

import "github.com/yourusername/course-api/internal/domain/entity"

// trueFalse - два варианта, ровно один правильный; ответ это один ID варианта
type trueFalse struct{}

func (trueFalse) Type() entity.QuestionType { return entity.QuestionTypeTrueFalse }

func (trueFalse) CalculateScore(answer []string, question *entity.Question) int {
	if len(answer) != 1 {
		return 0
	}
	correct := question.CorrectOptionIDs()
	if len(correct) != 1 || answer[0] != correct[0] {
		return 0
	}
	return question.Points
}

func (trueFalse) ProcessForDisplay(question *entity.Question, hideAnswers bool) entity.Question {
	return display(question, hideAnswers)
}

func (trueFalse) Validate(question *entity.Question) error {
	if len(question.Options) != 2 {
		return validationErr("true/false question needs exactly two options")
	}
	if question.Options[0].ID == "" || question.Options[1].ID == "" || question.Options[0].ID == question.Options[1].ID {
		return validationErr("true/false options need distinct ids")
	}
	if len(question.CorrectOptionIDs()) != 1 {
		return validationErr("exactly one option must be correct")
	}
	return nil
}
