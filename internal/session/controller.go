package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/stemsi/exstem-client/internal/model"
	"github.com/stemsi/exstem-client/internal/store"
)

// Phase is the Controller's coarse-grained state.
type Phase string

const (
	PhaseLoading    Phase = "LOADING"
	PhaseReady      Phase = "READY"
	PhaseRunning    Phase = "RUNNING"
	PhaseSubmitting Phase = "SUBMITTING"
	PhaseSubmitted  Phase = "SUBMITTED"
	PhaseFailed     Phase = "FAILED"
)

// Collaborator is the server surface the session consumes. api.Client
// satisfies it.
type Collaborator interface {
	FetchExam(ctx context.Context, examID uuid.UUID) (*model.Exam, error)
	FetchQuestions(ctx context.Context, examID uuid.UUID) ([]model.Question, error)
	SubmitAnswers(ctx context.Context, examID uuid.UUID, answers []model.AnswerPair) (*model.SubmitAck, error)
}

// CredentialSource supplies and pre-flight-checks the bearer credential.
// credential.Store satisfies it.
type CredentialSource interface {
	Token() string
	Check(now time.Time) error
}

// Deps wires the Controller's collaborators.
type Deps struct {
	API         Collaborator
	Credentials CredentialSource
	// Store persists in-progress answers; nil disables write-through and
	// attempt resumption.
	Store      store.AttemptStore
	StudentRef string
	Log        zerolog.Logger

	// TickInterval overrides the timer granularity; zero means one second.
	TickInterval time.Duration
	// Now overrides the clock; nil means time.Now.
	Now func() time.Time
}

// Controller orchestrates one exam attempt: load → run → submit →
// terminal. All session mutation is serialized through its mutex; the
// timer expiry callback and user input converge on the same submit
// transition, with the SUBMITTING phase itself as the double-submission
// guard.
type Controller struct {
	mu sync.Mutex

	examID     uuid.UUID
	exam       *model.Exam
	questions  []model.Question
	ledger     *Ledger
	nav        *Navigator
	timer      *Timer
	phase      Phase
	failedFrom Phase
	cause      string

	startedAt   time.Time
	submittedAt time.Time

	loadStarted bool
	closed      bool

	api   Collaborator
	creds CredentialSource
	store store.AttemptStore
	key   store.AttemptKey
	log   zerolog.Logger

	tick time.Duration
	now  func() time.Time
}

// NewController creates a Controller in the LOADING phase for one exam
// attempt.
func NewController(examID uuid.UUID, deps Deps) *Controller {
	tick := deps.TickInterval
	if tick <= 0 {
		tick = time.Second
	}
	now := deps.Now
	if now == nil {
		now = time.Now
	}

	return &Controller{
		examID: examID,
		phase:  PhaseLoading,
		api:    deps.API,
		creds:  deps.Credentials,
		store:  deps.Store,
		key:    store.AttemptKey{ExamID: examID, StudentRef: deps.StudentRef},
		log:    deps.Log.With().Str("component", "session").Str("exam_id", examID.String()).Logger(),
		tick:   tick,
		now:    now,
	}
}

// ─── Loading ────────────────────────────────────────────────────────

// Load fetches exam metadata and the question sequence, restores any
// unfinished attempt, and auto-starts the session (READY is passed
// through immediately — the reference behavior starts the clock without
// waiting for user action).
//
// Failures are recovered into the FAILED phase with a human-readable
// cause; the returned error restates that cause for the caller's logging
// and is nil on success.
func (c *Controller) Load(ctx context.Context) error {
	c.mu.Lock()
	if c.loadStarted || c.phase != PhaseLoading {
		c.mu.Unlock()
		return fmt.Errorf("%w: session already loaded", ErrSessionLocked)
	}
	c.loadStarted = true

	if err := c.creds.Check(c.now()); err != nil {
		cause := fmt.Sprintf("not authenticated: %v", err)
		c.failLocked(PhaseLoading, cause)
		c.mu.Unlock()
		return errors.New(cause)
	}
	c.mu.Unlock()

	exam, err := c.api.FetchExam(ctx, c.examID)
	if err == nil && exam.DurationMinutes <= 0 {
		err = fmt.Errorf("exam has no duration")
	}

	var questions []model.Question
	if err == nil {
		questions, err = c.api.FetchQuestions(ctx, c.examID)
	}
	if err == nil && len(questions) == 0 {
		err = ErrNoQuestions
	}

	c.mu.Lock()
	if c.closed {
		// Torn down mid-load: discard the response.
		c.mu.Unlock()
		return nil
	}
	if err != nil {
		cause := loadCause(err)
		c.failLocked(PhaseLoading, cause)
		c.mu.Unlock()
		return errors.New(cause)
	}

	c.exam = exam
	c.questions = questions
	c.ledger = NewLedger(questions, c.flushAnswer)
	c.nav = NewNavigator(c.ledger)

	remaining := exam.DurationMinutes * 60
	c.startedAt = c.now()

	if c.store != nil {
		if attempt, loadErr := c.store.Load(ctx, c.key); loadErr != nil {
			c.log.Warn().Err(loadErr).Msg("attempt store unavailable, starting fresh")
		} else if attempt != nil {
			restored := c.ledger.Restore(attempt.Answers)
			if !attempt.StartedAt.IsZero() {
				c.startedAt = attempt.StartedAt
				elapsed := int(c.now().Sub(attempt.StartedAt) / time.Second)
				remaining -= elapsed
				if remaining < 0 {
					remaining = 0
				}
			}
			c.log.Info().Int("restored", restored).Int("remaining_s", remaining).Msg("resumed unfinished attempt")
		}
		if saveErr := c.store.SaveStartedAt(ctx, c.key, c.startedAt); saveErr != nil {
			c.log.Warn().Err(saveErr).Msg("could not persist attempt start time")
		}
	}

	c.timer = newTimer(remaining, c.tick, c.expire)
	c.phase = PhaseReady
	// Auto-start: READY → RUNNING without user action.
	c.phase = PhaseRunning
	timer := c.timer
	c.mu.Unlock()

	c.log.Info().Str("title", exam.Title).Int("questions", len(questions)).Msg("exam session running")

	// Started outside the lock: a resumed attempt whose time is already
	// up expires synchronously, and expiry re-enters the controller.
	timer.Start()
	return nil
}

func loadCause(err error) string {
	if errors.Is(err, ErrNoQuestions) {
		return "exam has no questions"
	}
	return fmt.Sprintf("could not load exam: %v", err)
}

// ─── Answering & navigation ─────────────────────────────────────────

// Answer records the test-taker's selection for a question position.
// Outside RUNNING the session rejects input with ErrSessionLocked;
// invalid positions or options surface loudly as ErrInvalidArgument.
func (c *Controller) Answer(position int, answer model.Answer) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.phase != PhaseRunning {
		return fmt.Errorf("%w: phase is %s", ErrSessionLocked, c.phase)
	}
	return c.ledger.Set(position, answer)
}

// GoTo moves the cursor, clamped to the question range.
func (c *Controller) GoTo(position int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.phase != PhaseRunning {
		return fmt.Errorf("%w: phase is %s", ErrSessionLocked, c.phase)
	}
	c.nav.GoTo(position)
	return nil
}

// Next advances the cursor by one.
func (c *Controller) Next() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.phase != PhaseRunning {
		return fmt.Errorf("%w: phase is %s", ErrSessionLocked, c.phase)
	}
	c.nav.Next()
	return nil
}

// Previous moves the cursor back by one.
func (c *Controller) Previous() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.phase != PhaseRunning {
		return fmt.Errorf("%w: phase is %s", ErrSessionLocked, c.phase)
	}
	c.nav.Previous()
	return nil
}

// ─── Submission ─────────────────────────────────────────────────────

// Submit drives the RUNNING → SUBMITTING → SUBMITTED/FAILED transition.
// It is permitted from any question position, converges with the timer
// expiry path, ignores re-entrant calls while a submission is in flight,
// and may be retried manually after a failed submission — answers are
// preserved and the encoding is deterministic, so the retry payload is
// identical.
func (c *Controller) Submit(ctx context.Context) error {
	return c.submit(ctx, "user")
}

// expire is the timer's expiry notification — the sole trigger for
// automatic submission.
func (c *Controller) expire() {
	c.log.Info().Msg("time expired, submitting automatically")
	if err := c.submit(context.Background(), "timer"); err != nil && !errors.Is(err, ErrSessionLocked) {
		c.log.Error().Err(err).Msg("automatic submission failed")
	}
}

func (c *Controller) submit(ctx context.Context, trigger string) error {
	c.mu.Lock()
	switch {
	case c.phase == PhaseSubmitting:
		// At most one in-flight submission per session.
		c.mu.Unlock()
		return nil
	case c.phase == PhaseRunning:
	case c.phase == PhaseFailed && c.failedFrom == PhaseSubmitting:
		// Manual retry after a failed submit: answers are still held.
	default:
		phase := c.phase
		c.mu.Unlock()
		return fmt.Errorf("%w: cannot submit from phase %s", ErrSessionLocked, phase)
	}

	c.phase = PhaseSubmitting
	pairs := EncodeAnswers(c.questions, c.ledger)
	completion := c.ledger.CompletionCount()
	c.mu.Unlock()

	c.log.Info().
		Str("trigger", trigger).
		Int("answered", completion).
		Int("total", len(pairs)).
		Msg("submitting answers")

	ack, err := c.api.SubmitAnswers(ctx, c.examID, pairs)

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		// Torn down mid-submit: discard the response.
		return nil
	}
	if err != nil {
		c.failLocked(PhaseSubmitting, fmt.Sprintf("submission failed: %v", err))
		return err
	}

	c.phase = PhaseSubmitted
	c.submittedAt = c.now()
	if c.timer != nil {
		c.timer.Pause()
	}
	if c.store != nil {
		if clearErr := c.store.Clear(context.Background(), c.key); clearErr != nil {
			c.log.Warn().Err(clearErr).Msg("could not clear persisted attempt")
		}
	}

	c.log.Info().Str("result_id", ack.ResultID.String()).Msg("submission accepted")
	return nil
}

// ─── Teardown & inspection ──────────────────────────────────────────

// Close tears the session down. In-flight load or submit responses that
// arrive afterwards are discarded rather than applied.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.closed = true
	if c.timer != nil {
		c.timer.Pause()
	}
}

// failLocked transitions to FAILED. Callers hold c.mu.
func (c *Controller) failLocked(from Phase, cause string) {
	c.phase = PhaseFailed
	c.failedFrom = from
	c.cause = cause
	if c.timer != nil {
		c.timer.Pause()
	}
	c.log.Warn().Str("from", string(from)).Str("cause", cause).Msg("session failed")
}

// flushAnswer is the ledger's write-through hook. Persistence is a
// recovery aid, never a correctness dependency: a store failure is
// logged and the in-memory write stands.
func (c *Controller) flushAnswer(_ int, questionID uuid.UUID, answer model.Answer) {
	if c.store == nil {
		return
	}
	if err := c.store.SaveAnswer(context.Background(), c.key, questionID, answer); err != nil {
		c.log.Warn().Err(err).Str("question_id", questionID.String()).Msg("answer write-through failed")
	}
}

// Snapshot is an immutable view of the session for rendering.
type Snapshot struct {
	Phase       Phase
	Cause       string
	Exam        *model.Exam
	Current     int
	Statuses    []QuestionStatus
	Completion  int
	Total       int
	RemainingS  int
	StartedAt   time.Time
	SubmittedAt time.Time
}

// Snapshot returns the current view of the session.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	snap := Snapshot{
		Phase:       c.phase,
		Cause:       c.cause,
		Exam:        c.exam,
		StartedAt:   c.startedAt,
		SubmittedAt: c.submittedAt,
	}
	if c.ledger != nil {
		snap.Current = c.nav.Current()
		snap.Statuses = c.nav.Statuses()
		snap.Completion = c.ledger.CompletionCount()
		snap.Total = c.ledger.Len()
	}
	if c.timer != nil {
		snap.RemainingS = c.timer.Remaining()
	}
	return snap
}

// Question returns the question at a position for rendering, along with
// the current selection.
func (c *Controller) Question(position int) (model.Question, model.Answer, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.ledger == nil || position < 0 || position >= len(c.questions) {
		return model.Question{}, model.Answer{}, false
	}
	return c.questions[position], c.ledger.Get(position), true
}
