package model

import (
	"github.com/google/uuid"
)

// Exam is the metadata for one takeable exam, as served to students.
type Exam struct {
	ID              uuid.UUID `json:"id" validate:"required"`
	Title           string    `json:"title" validate:"required"`
	DurationMinutes int       `json:"duration_minutes" validate:"required,min=1,max=480"`
}

// LobbyExam is an exam entry in the student lobby, with attempt status overlay.
type LobbyExam struct {
	Exam
	Status     string   `json:"status"`
	FinalScore *float64 `json:"final_score,omitempty"`
}
