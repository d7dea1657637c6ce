package helper

import (
	"strconv"
	"strings"

	"github.com/yourusername/course-api/internal/domain/entity"
)

// QuestionOption - вариант ответа в запросе на создание вопроса
type QuestionOption struct {
	ID        string `json:"id"`
	Text      string `json:"text" binding:"required"`
	IsCorrect bool   `json:"is_correct"`
}

// ConvertOptionsToEntity преобразует варианты из запроса в варианты вопроса.
// Варианты без ID получают порядковый ID ("1", "2", ...).
func ConvertOptionsToEntity(options []QuestionOption) entity.QuestionOptions {
	converted := make(entity.QuestionOptions, len(options))
	for i, opt := range options {
		id := strings.TrimSpace(opt.ID)
		if id == "" {
			id = strconv.Itoa(i + 1)
		}
		converted[i] = entity.QuestionOption{
			ID:        id,
			Text:      strings.TrimSpace(opt.Text),
			IsCorrect: opt.IsCorrect,
		}
	}
	return converted
}
