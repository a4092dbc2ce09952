// Package store provides the durable attempt store backing the answer
// ledger's write-through persistence. Answers survive an accidental client
// reload: on mount the controller checks for an unfinished attempt before
// starting fresh.
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/stemsi/exstem-client/internal/model"
)

// AttemptKey identifies one student's attempt at one exam.
type AttemptKey struct {
	ExamID     uuid.UUID
	StudentRef string
}

func (k AttemptKey) String() string {
	return fmt.Sprintf("student:%s:exam:%s", k.StudentRef, k.ExamID)
}

// Attempt is a restorable snapshot of an unfinished attempt.
type Attempt struct {
	StartedAt time.Time
	Answers   map[uuid.UUID]model.Answer
}

// AttemptStore persists in-progress attempt state. Implementations must
// treat SaveAnswer as last-write-wins per (key, questionID).
type AttemptStore interface {
	SaveStartedAt(ctx context.Context, key AttemptKey, startedAt time.Time) error
	SaveAnswer(ctx context.Context, key AttemptKey, questionID uuid.UUID, answer model.Answer) error
	// Load returns the stored attempt, or nil when none exists.
	Load(ctx context.Context, key AttemptKey) (*Attempt, error)
	// Clear drops all attempt state, called once a submission is accepted.
	Clear(ctx context.Context, key AttemptKey) error
	Close() error
}

// savedAnswer is the stored wire form of a ledger answer.
type savedAnswer struct {
	Kind   int    `json:"kind"`
	Option int    `json:"option,omitempty"`
	Text   string `json:"text,omitempty"`
}

func encodeAnswer(a model.Answer) ([]byte, error) {
	return json.Marshal(savedAnswer{Kind: int(a.Kind), Option: a.Option, Text: a.Text})
}

func decodeAnswer(raw []byte) (model.Answer, error) {
	var sa savedAnswer
	if err := json.Unmarshal(raw, &sa); err != nil {
		return model.Answer{}, err
	}
	return model.Answer{Kind: model.AnswerKind(sa.Kind), Option: sa.Option, Text: sa.Text}, nil
}

// ─── In-memory store ────────────────────────────────────────────────

// MemoryStore is a volatile AttemptStore for tests and for running with
// persistence disabled.
type MemoryStore struct {
	mu       sync.Mutex
	attempts map[AttemptKey]*Attempt
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{attempts: make(map[AttemptKey]*Attempt)}
}

func (m *MemoryStore) ensure(key AttemptKey) *Attempt {
	att, ok := m.attempts[key]
	if !ok {
		att = &Attempt{Answers: make(map[uuid.UUID]model.Answer)}
		m.attempts[key] = att
	}
	return att
}

func (m *MemoryStore) SaveStartedAt(_ context.Context, key AttemptKey, startedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ensure(key).StartedAt = startedAt
	return nil
}

func (m *MemoryStore) SaveAnswer(_ context.Context, key AttemptKey, questionID uuid.UUID, answer model.Answer) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ensure(key).Answers[questionID] = answer
	return nil
}

func (m *MemoryStore) Load(_ context.Context, key AttemptKey) (*Attempt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	att, ok := m.attempts[key]
	if !ok {
		return nil, nil
	}

	copied := &Attempt{
		StartedAt: att.StartedAt,
		Answers:   make(map[uuid.UUID]model.Answer, len(att.Answers)),
	}
	for qid, a := range att.Answers {
		copied.Answers[qid] = a
	}
	return copied, nil
}

func (m *MemoryStore) Clear(_ context.Context, key AttemptKey) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.attempts, key)
	return nil
}

func (m *MemoryStore) Close() error { return nil }
