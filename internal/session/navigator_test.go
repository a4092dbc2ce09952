package session

import (
	"testing"

	"github.com/stemsi/exstem-client/internal/model"
)

func fiveQuestionLedger() *Ledger {
	questions := make([]model.Question, 5)
	for i := range questions {
		questions[i] = mcq("a", "b", "c", "d")
	}
	return NewLedger(questions, nil)
}

func TestNavigatorClampsOutOfRangeTargets(t *testing.T) {
	nav := NewNavigator(fiveQuestionLedger())

	cases := []struct {
		target int
		want   int
	}{
		{-5, 0},
		{0, 0},
		{3, 3},
		{4, 4},
		{99, 4},
	}

	for _, tc := range cases {
		if got := nav.GoTo(tc.target); got != tc.want {
			t.Fatalf("GoTo(%d) = %d, want %d", tc.target, got, tc.want)
		}
		if got := nav.Current(); got != tc.want {
			t.Fatalf("Current() = %d after GoTo(%d), want %d", got, tc.target, tc.want)
		}
	}
}

func TestNavigatorNextPreviousStayInBounds(t *testing.T) {
	nav := NewNavigator(fiveQuestionLedger())

	// Walk back past the start.
	nav.Previous()
	nav.Previous()
	if got := nav.Current(); got != 0 {
		t.Fatalf("Current() = %d after Previous at start, want 0", got)
	}

	// Walk forward past the end.
	for i := 0; i < 10; i++ {
		nav.Next()
	}
	if got := nav.Current(); got != 4 {
		t.Fatalf("Current() = %d after repeated Next, want 4", got)
	}
}

func TestNavigatorStatuses(t *testing.T) {
	ledger := fiveQuestionLedger()
	nav := NewNavigator(ledger)

	if err := ledger.Set(1, model.SelectedOption(0)); err != nil {
		t.Fatal(err)
	}
	if err := ledger.Set(4, model.SelectedOption(3)); err != nil {
		t.Fatal(err)
	}
	nav.GoTo(2)

	want := []QuestionStatus{
		StatusUnanswered,
		StatusAnswered,
		StatusCurrent,
		StatusUnanswered,
		StatusAnswered,
	}
	got := nav.Statuses()
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Statuses()[%d] = %s, want %s", i, got[i], want[i])
		}
	}
}

func TestNavigatorCurrentMasksAnswered(t *testing.T) {
	ledger := fiveQuestionLedger()
	nav := NewNavigator(ledger)

	if err := ledger.Set(0, model.SelectedOption(1)); err != nil {
		t.Fatal(err)
	}

	// The cursor sits on an answered question: current wins.
	if got := nav.Statuses()[0]; got != StatusCurrent {
		t.Fatalf("Statuses()[0] = %s, want %s", got, StatusCurrent)
	}
}
