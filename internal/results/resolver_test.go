package results

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/stemsi/exstem-client/internal/model"
)

type fakeResultsAPI struct {
	calls   int
	batches [][]model.Result
	err     error
}

// FetchMyResults returns the next batch, repeating the last one once the
// script runs out.
func (f *fakeResultsAPI) FetchMyResults(_ context.Context) ([]model.Result, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	if len(f.batches) == 0 {
		return nil, nil
	}
	idx := f.calls - 1
	if idx >= len(f.batches) {
		idx = len(f.batches) - 1
	}
	return f.batches[idx], nil
}

func TestLookupFindsMatchingResult(t *testing.T) {
	examID := uuid.New()
	api := &fakeResultsAPI{batches: [][]model.Result{{
		{ExamID: uuid.New(), Score: 50, MaxScore: 100},
		{ExamID: examID, Score: 90, MaxScore: 100},
	}}}
	resolver := NewResolver(api, 3, time.Millisecond, zerolog.Nop())

	resolution, err := resolver.Lookup(context.Background(), examID)
	if err != nil {
		t.Fatalf("Lookup failed: %v", err)
	}
	if resolution.Status != StatusFound {
		t.Fatalf("Status = %s, want FOUND", resolution.Status)
	}
	if resolution.Result.Score != 90 {
		t.Fatalf("Score = %v, want 90", resolution.Result.Score)
	}
}

func TestLookupAbsenceIsPendingNotError(t *testing.T) {
	api := &fakeResultsAPI{}
	resolver := NewResolver(api, 3, time.Millisecond, zerolog.Nop())

	resolution, err := resolver.Lookup(context.Background(), uuid.New())
	if err != nil {
		t.Fatalf("Lookup on empty results errored: %v", err)
	}
	if resolution.Status != StatusPending {
		t.Fatalf("Status = %s, want PENDING", resolution.Status)
	}
	if resolution.Result != nil {
		t.Fatalf("pending resolution carries a result: %+v", resolution.Result)
	}
}

func TestLookupFailureIsAnError(t *testing.T) {
	api := &fakeResultsAPI{err: errors.New("boom")}
	resolver := NewResolver(api, 3, time.Millisecond, zerolog.Nop())

	if _, err := resolver.Lookup(context.Background(), uuid.New()); err == nil {
		t.Fatal("Lookup swallowed the collaborator error")
	}
}

func TestAwaitPollsUntilFound(t *testing.T) {
	examID := uuid.New()
	api := &fakeResultsAPI{batches: [][]model.Result{
		nil,
		nil,
		{{ExamID: examID, Score: 75, MaxScore: 100}},
	}}
	resolver := NewResolver(api, 5, time.Millisecond, zerolog.Nop())

	resolution, err := resolver.Await(context.Background(), examID)
	if err != nil {
		t.Fatalf("Await failed: %v", err)
	}
	if resolution.Status != StatusFound {
		t.Fatalf("Status = %s, want FOUND", resolution.Status)
	}
	if api.calls != 3 {
		t.Fatalf("polled %d times, want 3", api.calls)
	}
}

func TestAwaitExhaustsBudgetAsPending(t *testing.T) {
	api := &fakeResultsAPI{}
	resolver := NewResolver(api, 3, time.Millisecond, zerolog.Nop())

	resolution, err := resolver.Await(context.Background(), uuid.New())
	if err != nil {
		t.Fatalf("Await errored on pending: %v", err)
	}
	if resolution.Status != StatusPending {
		t.Fatalf("Status = %s, want PENDING after budget exhaustion", resolution.Status)
	}
	if api.calls != 3 {
		t.Fatalf("polled %d times, want exactly the budget of 3", api.calls)
	}
}

func TestAwaitHonorsContextCancellation(t *testing.T) {
	api := &fakeResultsAPI{}
	resolver := NewResolver(api, 10, 50*time.Millisecond, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := resolver.Await(ctx, uuid.New())
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Await = %v, want context.Canceled", err)
	}
}
