package session

// QuestionStatus is the tri-state rendering status of one question in the
// jump-to-question control.
type QuestionStatus string

const (
	StatusCurrent    QuestionStatus = "current"
	StatusAnswered   QuestionStatus = "answered"
	StatusUnanswered QuestionStatus = "unanswered"
)

// Navigator tracks the cursor over a fixed question sequence. Out-of-range
// targets clamp silently: a double-click past the last question must not
// crash the session.
//
// Like the Ledger, the Navigator relies on the Controller for
// serialization.
type Navigator struct {
	ledger  *Ledger
	current int
}

// NewNavigator creates a Navigator positioned at the first question.
func NewNavigator(ledger *Ledger) *Navigator {
	return &Navigator{ledger: ledger}
}

// GoTo moves the cursor, clamping to [0, questionCount-1], and returns
// the resulting position.
func (n *Navigator) GoTo(position int) int {
	last := n.ledger.Len() - 1
	if position < 0 {
		position = 0
	}
	if position > last {
		position = last
	}
	n.current = position
	return n.current
}

// Next advances the cursor by one, clamped.
func (n *Navigator) Next() int {
	return n.GoTo(n.current + 1)
}

// Previous moves the cursor back by one, clamped.
func (n *Navigator) Previous() int {
	return n.GoTo(n.current - 1)
}

// Current returns the cursor position.
func (n *Navigator) Current() int {
	return n.current
}

// Statuses returns the per-question tri-state, computed from the cursor
// and the ledger — the Navigator stores no status of its own.
func (n *Navigator) Statuses() []QuestionStatus {
	statuses := make([]QuestionStatus, n.ledger.Len())
	for i := range statuses {
		switch {
		case i == n.current:
			statuses[i] = StatusCurrent
		case n.ledger.IsAnswered(i):
			statuses[i] = StatusAnswered
		default:
			statuses[i] = StatusUnanswered
		}
	}
	return statuses
}
