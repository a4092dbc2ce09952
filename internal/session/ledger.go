package session

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/stemsi/exstem-client/internal/model"
)

// Ledger is the in-memory record of per-question selections for the
// current attempt, keyed by question position. Last write wins. It stores
// only the test-taker's selection — correctness is the server's business.
//
// The Ledger is not safe for concurrent use; the Controller serializes
// all access to it.
type Ledger struct {
	questions []model.Question
	answers   []model.Answer
	// flush is the write-through hook, invoked after every accepted Set.
	// May be nil.
	flush func(position int, questionID uuid.UUID, answer model.Answer)
}

// NewLedger creates an all-unanswered ledger over the given question
// sequence.
func NewLedger(questions []model.Question, flush func(int, uuid.UUID, model.Answer)) *Ledger {
	return &Ledger{
		questions: questions,
		answers:   make([]model.Answer, len(questions)),
		flush:     flush,
	}
}

// Set records the answer for a position. An out-of-range position, an
// out-of-range option index, or an answer kind mismatching the question
// type is a caller bug and returns ErrInvalidArgument — a silent no-op
// here would corrupt the submission payload.
func (l *Ledger) Set(position int, answer model.Answer) error {
	if position < 0 || position >= len(l.questions) {
		return fmt.Errorf("%w: position %d out of range [0,%d)", ErrInvalidArgument, position, len(l.questions))
	}

	q := l.questions[position]
	switch answer.Kind {
	case model.AnswerOption:
		if q.Type != model.QuestionTypeMultipleChoice {
			return fmt.Errorf("%w: option answer for %s question at position %d", ErrInvalidArgument, q.Type, position)
		}
		if answer.Option < 0 || answer.Option >= q.OptionCount() {
			return fmt.Errorf("%w: option %d out of range [0,%d) at position %d", ErrInvalidArgument, answer.Option, q.OptionCount(), position)
		}
	case model.AnswerText:
		if q.Type != model.QuestionTypeEssay {
			return fmt.Errorf("%w: text answer for %s question at position %d", ErrInvalidArgument, q.Type, position)
		}
	case model.AnswerNone:
		// Clearing a selection is always valid.
	default:
		return fmt.Errorf("%w: unknown answer kind %d", ErrInvalidArgument, answer.Kind)
	}

	l.answers[position] = answer
	if l.flush != nil {
		l.flush(position, q.ID, answer)
	}
	return nil
}

// Get returns the current selection for a position, Unanswered when the
// position is out of range.
func (l *Ledger) Get(position int) model.Answer {
	if position < 0 || position >= len(l.answers) {
		return model.Unanswered()
	}
	return l.answers[position]
}

// IsAnswered reports whether a selection exists at the position.
func (l *Ledger) IsAnswered(position int) bool {
	return l.Get(position).Answered()
}

// CompletionCount returns the number of answered positions.
func (l *Ledger) CompletionCount() int {
	count := 0
	for _, a := range l.answers {
		if a.Answered() {
			count++
		}
	}
	return count
}

// Len returns the question count.
func (l *Ledger) Len() int {
	return len(l.questions)
}

// Restore applies previously persisted answers keyed by question ID,
// without re-flushing them. Entries that no longer match a question or
// that fail validation are dropped — a stale store must not poison a
// fresh attempt.
func (l *Ledger) Restore(saved map[uuid.UUID]model.Answer) int {
	byID := make(map[uuid.UUID]int, len(l.questions))
	for i, q := range l.questions {
		byID[q.ID] = i
	}

	flush := l.flush
	l.flush = nil
	defer func() { l.flush = flush }()

	restored := 0
	for qid, answer := range saved {
		pos, ok := byID[qid]
		if !ok {
			continue
		}
		if err := l.Set(pos, answer); err != nil {
			continue
		}
		restored++
	}
	return restored
}
