// Package results reconciles an optimistic "submitted" session with the
// eventually-available server-computed score. Scoring may lag submission
// acceptance, so "not yet available" is a normal outcome, distinct from a
// failed lookup.
package results

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/stemsi/exstem-client/internal/model"
)

// Status classifies a resolution outcome.
type Status string

const (
	StatusFound   Status = "FOUND"
	StatusPending Status = "PENDING"
)

// Resolution is the outcome of a result lookup. Result is set only when
// Status is StatusFound.
type Resolution struct {
	Status Status
	Result *model.Result
}

// ResultsAPI is the collaborator surface the resolver consumes.
type ResultsAPI interface {
	FetchMyResults(ctx context.Context) ([]model.Result, error)
}

// Resolver looks up a submitted exam's outcome among the student's
// results.
type Resolver struct {
	api ResultsAPI
	log zerolog.Logger

	// Polling budget for Await.
	attempts int
	backoff  time.Duration
}

// NewResolver creates a Resolver. attempts and backoff bound Await's
// polling: backoff doubles per attempt. Non-positive values get defaults
// (5 attempts from 1s).
func NewResolver(api ResultsAPI, attempts int, backoff time.Duration, log zerolog.Logger) *Resolver {
	if attempts <= 0 {
		attempts = 5
	}
	if backoff <= 0 {
		backoff = time.Second
	}
	return &Resolver{
		api:      api,
		log:      log.With().Str("component", "results").Logger(),
		attempts: attempts,
		backoff:  backoff,
	}
}

// Lookup performs a single result lookup. Absence of a matching entry is
// Pending, not an error.
func (r *Resolver) Lookup(ctx context.Context, examID uuid.UUID) (Resolution, error) {
	all, err := r.api.FetchMyResults(ctx)
	if err != nil {
		return Resolution{}, fmt.Errorf("lookup result: %w", err)
	}

	for i := range all {
		if all[i].ExamID == examID {
			return Resolution{Status: StatusFound, Result: &all[i]}, nil
		}
	}
	return Resolution{Status: StatusPending}, nil
}

// Await polls Lookup with exponential backoff until the result appears,
// the budget is exhausted (returning Pending), or the context is done.
func (r *Resolver) Await(ctx context.Context, examID uuid.UUID) (Resolution, error) {
	delay := r.backoff

	for attempt := 1; ; attempt++ {
		resolution, err := r.Lookup(ctx, examID)
		if err != nil {
			return Resolution{}, err
		}
		if resolution.Status == StatusFound || attempt >= r.attempts {
			return resolution, nil
		}

		r.log.Debug().
			Int("attempt", attempt).
			Dur("delay", delay).
			Str("exam_id", examID.String()).
			Msg("result not yet available")

		select {
		case <-ctx.Done():
			return Resolution{}, ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
	}
}
