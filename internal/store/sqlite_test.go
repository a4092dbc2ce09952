package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/stemsi/exstem-client/internal/model"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()

	path := filepath.Join(t.TempDir(), "attempts.db")
	s, err := NewSQLiteStore(path)
	if err != nil {
		t.Fatalf("NewSQLiteStore failed: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func testKey() AttemptKey {
	return AttemptKey{ExamID: uuid.New(), StudentRef: "student-1"}
}

func TestSQLiteLoadAbsentAttempt(t *testing.T) {
	s := newTestSQLiteStore(t)

	attempt, err := s.Load(context.Background(), testKey())
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if attempt != nil {
		t.Fatalf("Load returned %+v for an absent attempt, want nil", attempt)
	}
}

func TestSQLiteSaveAndLoadRoundTrip(t *testing.T) {
	s := newTestSQLiteStore(t)
	ctx := context.Background()
	key := testKey()

	startedAt := time.Now().Add(-time.Minute).Truncate(time.Second)
	if err := s.SaveStartedAt(ctx, key, startedAt); err != nil {
		t.Fatalf("SaveStartedAt failed: %v", err)
	}

	q1, q2 := uuid.New(), uuid.New()
	if err := s.SaveAnswer(ctx, key, q1, model.SelectedOption(2)); err != nil {
		t.Fatalf("SaveAnswer failed: %v", err)
	}
	if err := s.SaveAnswer(ctx, key, q2, model.FreeText("essay text")); err != nil {
		t.Fatalf("SaveAnswer failed: %v", err)
	}
	// Last write wins per question.
	if err := s.SaveAnswer(ctx, key, q1, model.SelectedOption(0)); err != nil {
		t.Fatalf("SaveAnswer overwrite failed: %v", err)
	}

	attempt, err := s.Load(ctx, key)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if attempt == nil {
		t.Fatal("Load returned nil for a saved attempt")
	}
	if !attempt.StartedAt.Equal(startedAt) {
		t.Fatalf("StartedAt = %v, want %v", attempt.StartedAt, startedAt)
	}
	if len(attempt.Answers) != 2 {
		t.Fatalf("loaded %d answers, want 2", len(attempt.Answers))
	}
	if got := attempt.Answers[q1]; got.Kind != model.AnswerOption || got.Option != 0 {
		t.Fatalf("q1 answer = %+v, want option 0", got)
	}
	if got := attempt.Answers[q2]; got.Kind != model.AnswerText || got.Text != "essay text" {
		t.Fatalf("q2 answer = %+v", got)
	}
}

func TestSQLiteClearDropsAttempt(t *testing.T) {
	s := newTestSQLiteStore(t)
	ctx := context.Background()
	key := testKey()

	if err := s.SaveStartedAt(ctx, key, time.Now()); err != nil {
		t.Fatal(err)
	}
	if err := s.SaveAnswer(ctx, key, uuid.New(), model.SelectedOption(1)); err != nil {
		t.Fatal(err)
	}

	if err := s.Clear(ctx, key); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}

	attempt, err := s.Load(ctx, key)
	if err != nil {
		t.Fatal(err)
	}
	if attempt != nil {
		t.Fatalf("attempt survived Clear: %+v", attempt)
	}
}

func TestSQLiteKeysAreIsolated(t *testing.T) {
	s := newTestSQLiteStore(t)
	ctx := context.Background()

	keyA := AttemptKey{ExamID: uuid.New(), StudentRef: "student-1"}
	keyB := AttemptKey{ExamID: keyA.ExamID, StudentRef: "student-2"}

	if err := s.SaveStartedAt(ctx, keyA, time.Now()); err != nil {
		t.Fatal(err)
	}
	if err := s.SaveAnswer(ctx, keyA, uuid.New(), model.SelectedOption(1)); err != nil {
		t.Fatal(err)
	}

	attempt, err := s.Load(ctx, keyB)
	if err != nil {
		t.Fatal(err)
	}
	if attempt != nil {
		t.Fatal("student-2 sees student-1's attempt")
	}
}

func TestMemoryStoreMirrorsContract(t *testing.T) {
	m := NewMemoryStore()
	ctx := context.Background()
	key := testKey()

	if attempt, err := m.Load(ctx, key); err != nil || attempt != nil {
		t.Fatalf("Load on empty store = (%+v, %v)", attempt, err)
	}

	q := uuid.New()
	if err := m.SaveStartedAt(ctx, key, time.Unix(1000, 0)); err != nil {
		t.Fatal(err)
	}
	if err := m.SaveAnswer(ctx, key, q, model.SelectedOption(3)); err != nil {
		t.Fatal(err)
	}

	attempt, err := m.Load(ctx, key)
	if err != nil || attempt == nil {
		t.Fatalf("Load = (%+v, %v)", attempt, err)
	}
	if got := attempt.Answers[q]; got.Option != 3 {
		t.Fatalf("answer = %+v", got)
	}

	// Load returns a copy: mutating it must not leak back.
	attempt.Answers[q] = model.SelectedOption(0)
	again, _ := m.Load(ctx, key)
	if got := again.Answers[q]; got.Option != 3 {
		t.Fatalf("store mutated through a loaded copy: %+v", got)
	}

	if err := m.Clear(ctx, key); err != nil {
		t.Fatal(err)
	}
	if attempt, _ := m.Load(ctx, key); attempt != nil {
		t.Fatal("attempt survived Clear")
	}
}
