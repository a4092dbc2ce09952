package model

import (
	"time"

	"github.com/google/uuid"
)

// Result is a server-computed exam outcome for the current student.
// Scoring happens server-side; the client only displays it.
type Result struct {
	ExamID     uuid.UUID  `json:"exam_id"`
	Score      float64    `json:"score"`
	MaxScore   float64    `json:"max_score"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}
