package model

import (
	"github.com/google/uuid"
)

// QuestionType discriminates how a question is answered.
type QuestionType string

const (
	QuestionTypeMultipleChoice QuestionType = "MULTIPLE_CHOICE"
	QuestionTypeEssay          QuestionType = "ESSAY"
)

// Question is a single exam question as presented to the test-taker.
// The correct answer never reaches the client.
type Question struct {
	ID      uuid.UUID    `json:"id" validate:"required"`
	Prompt  string       `json:"question_text" validate:"required"` // HTML content
	Type    QuestionType `json:"question_type" validate:"required,oneof=MULTIPLE_CHOICE ESSAY"`
	Options []string     `json:"options"`
}

// OptionCount returns the number of selectable options. Essay questions
// have none.
func (q Question) OptionCount() int {
	return len(q.Options)
}
