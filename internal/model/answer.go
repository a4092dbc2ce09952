package model

import (
	"github.com/google/uuid"
)

// AnswerKind discriminates the tagged Answer variant.
type AnswerKind int

const (
	AnswerNone   AnswerKind = iota // left unanswered
	AnswerOption                   // multiple-choice selection
	AnswerText                     // essay text
)

// UnansweredIndex is the reserved wire sentinel for "no option selected",
// distinct from every valid option index.
const UnansweredIndex = -1

// Answer is the test-taker's selection for one question. The zero value
// is Unanswered.
type Answer struct {
	Kind   AnswerKind
	Option int
	Text   string
}

// SelectedOption builds a multiple-choice answer.
func SelectedOption(index int) Answer {
	return Answer{Kind: AnswerOption, Option: index}
}

// FreeText builds an essay answer.
func FreeText(text string) Answer {
	return Answer{Kind: AnswerText, Text: text}
}

// Unanswered is the absent-answer value.
func Unanswered() Answer {
	return Answer{}
}

// Answered reports whether a selection has been made. An empty essay text
// counts as unanswered.
func (a Answer) Answered() bool {
	switch a.Kind {
	case AnswerOption:
		return true
	case AnswerText:
		return a.Text != ""
	default:
		return false
	}
}

// AnswerPair is one entry of the submission payload, aligned with question
// order. AnswerIndex carries UnansweredIndex for essays and blank questions.
type AnswerPair struct {
	QuestionID  uuid.UUID `json:"question_id"`
	AnswerIndex int       `json:"answer_index"`
	AnswerText  string    `json:"answer_text,omitempty"`
}

// SubmitRequest is the payload for POST /results/submit.
type SubmitRequest struct {
	ExamID  uuid.UUID    `json:"exam_id" validate:"required"`
	Answers []AnswerPair `json:"answers" validate:"required,min=1,dive"`
}

// SubmitAck is the server acknowledgement of an accepted submission.
type SubmitAck struct {
	ExamID     uuid.UUID `json:"exam_id"`
	ResultID   uuid.UUID `json:"result_id"`
	ReceivedAt string    `json:"received_at"`
}
