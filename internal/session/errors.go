package session

import "errors"

var (
	// ErrInvalidArgument marks ledger misuse: an out-of-range position or
	// option index, or an answer kind that does not match the question
	// type. This is a caller bug, never swallowed.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrSessionLocked is returned for mutation attempts outside the
	// RUNNING phase. The caller's input is rejected, not queued — nothing
	// is lost because the caller still holds it.
	ErrSessionLocked = errors.New("session is not accepting input")

	// ErrNoQuestions marks an exam whose fetched question sequence is
	// empty. Such an exam cannot be taken.
	ErrNoQuestions = errors.New("exam has no questions")
)
