package domain

import (
	"errors"
	"fmt"
)

// ErrorKind classifies failures for callers and transports.
type ErrorKind string

const (
	KindValidation ErrorKind = "validation"
	KindNotFound   ErrorKind = "not_found"
	KindConflict   ErrorKind = "conflict"
	KindInternal   ErrorKind = "internal"
)

// Error is the error type returned across the store, workflow and transport layers.
type Error struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		if e.Message == "" {
			return e.Err.Error()
		}
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches on kind, and on message when the target carries one.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Kind != e.Kind {
		return false
	}
	return t.Message == "" || t.Message == e.Message
}

var (
	// ErrTopicNotFound is returned when a topic id does not exist.
	ErrTopicNotFound = &Error{Kind: KindNotFound, Message: "topic not found"}
	// ErrQuestionNotFound is returned when a question id does not exist.
	ErrQuestionNotFound = &Error{Kind: KindNotFound, Message: "question not found"}
	// ErrTeamNotFound is returned when a team id does not exist.
	ErrTeamNotFound = &Error{Kind: KindNotFound, Message: "team not found"}
	// ErrNoAvailableQuestion means every question in the requested tier is used.
	ErrNoAvailableQuestion = &Error{Kind: KindNotFound, Message: "no available question in tier"}
	// ErrNoActiveTeam is returned when selecting or scoring without a team.
	ErrNoActiveTeam = &Error{Kind: KindValidation, Message: "no active team selected"}
	// ErrNoQuestionDisplayed is returned when revealing or resolving before a selection.
	ErrNoQuestionDisplayed = &Error{Kind: KindValidation, Message: "no question displayed"}
	// ErrInvalidOutcome is returned for outcomes other than correct, incorrect or skip.
	ErrInvalidOutcome = &Error{Kind: KindValidation, Message: "invalid outcome"}
	// ErrQuestionAlreadyUsed is returned when selecting or resolving a question played this round.
	ErrQuestionAlreadyUsed = &Error{Kind: KindConflict, Message: "question already used"}
	// ErrQuestionInProgress is returned when a question is already displayed for the turn.
	ErrQuestionInProgress = &Error{Kind: KindConflict, Message: "a question is already displayed"}
	// ErrTierFull is returned when a topic tier reached its question cap.
	ErrTierFull = &Error{Kind: KindConflict, Message: "point tier is full for topic"}
)

// Validation builds a validation error for malformed or missing input.
func Validation(format string, args ...any) error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

// Internal wraps a storage or infrastructure failure.
func Internal(op string, err error) error {
	if err == nil {
		return nil
	}
	var de *Error
	if errors.As(err, &de) {
		return err
	}
	return &Error{Kind: KindInternal, Message: op, Err: err}
}

// KindOf classifies err; anything that is not a domain error is internal.
func KindOf(err error) ErrorKind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return KindInternal
}

// IsNotFound reports whether err references a missing entity.
func IsNotFound(err error) bool { return KindOf(err) == KindNotFound }

// IsConflict reports whether err rejects an operation on the current game state.
func IsConflict(err error) bool { return err != nil && KindOf(err) == KindConflict }
