package domain

import (
	"errors"
	"fmt"
)

// Kind classifies an Error by how callers are expected to react to it.
type Kind int

const (
	KindUnknown Kind = iota
	// KindValidation is surfaced to the caller as-is.
	KindValidation
	// KindCapacityConflict means a race on the last slot; retry the action once.
	KindCapacityConflict
	// KindNotFound is surfaced to the caller.
	KindNotFound
	// KindExternalGateway is logged and left for the next tick.
	KindExternalGateway
	// KindPersistence aborts the current unit of work.
	KindPersistence
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindCapacityConflict:
		return "capacity_conflict"
	case KindNotFound:
		return "not_found"
	case KindExternalGateway:
		return "external_gateway"
	case KindPersistence:
		return "persistence"
	default:
		return "unknown"
	}
}

// Error is a coded domain error. Code is stable and used as an i18n key
// suffix by adapters ("errors." + Code).
type Error struct {
	Kind    Kind
	Code    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Message
	}
	if e.Message == "" {
		return e.Err.Error()
	}
	return e.Message + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error with the same code, so errors.Is works on
// sentinels that were re-issued with extra detail.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code != "" && t.Code == e.Code
}

func newError(kind Kind, code, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: message}
}

// Domain errors.
var (
	ErrEventNotFound           = newError(KindNotFound, "event_not_found", "event not found")
	ErrParticipantNotFound     = newError(KindNotFound, "participant_not_found", "participant not found")
	ErrParticipantExists       = newError(KindValidation, "participant_exists", "participant already signed up")
	ErrSignupsClosed           = newError(KindValidation, "signups_closed", "sign-ups are closed for this event")
	ErrSignupDeadlinePassed    = newError(KindValidation, "signup_deadline_passed", "sign-up deadline has passed")
	ErrRoleNotAllowed          = newError(KindValidation, "role_not_allowed", "none of your roles may sign up for this event")
	ErrInvalidRole             = newError(KindValidation, "invalid_role", "role is not configured for this event")
	ErrInvalidInterval         = newError(KindValidation, "invalid_interval", "malformed reminder interval")
	ErrInvalidEvent            = newError(KindValidation, "invalid_event", "invalid event")
	ErrDateTimeInPast          = newError(KindValidation, "datetime_in_past", "start time must be in the future")
	ErrInvalidTransition       = newError(KindValidation, "invalid_transition", "invalid event status transition")
	ErrEventNotCompleted       = newError(KindValidation, "event_not_completed", "event is not completed")
	ErrParticipantNotConfirmed = newError(KindValidation, "participant_not_confirmed", "participant is not confirmed")
	ErrParticipantNotQueued    = newError(KindValidation, "participant_not_queued", "participant is neither waitlisted nor pending")
	ErrVoiceNotExtendable      = newError(KindValidation, "voice_not_extendable", "voice channel cannot be extended")
	ErrCapacityConflict        = newError(KindCapacityConflict, "capacity_conflict", "capacity changed concurrently, retry")
)

// Validationf returns a validation error carrying the code of base with extra detail.
func Validationf(base *Error, format string, args ...any) error {
	return &Error{Kind: base.Kind, Code: base.Code, Message: base.Message, Err: fmt.Errorf(format, args...)}
}

// NewGatewayError wraps a messaging gateway failure.
func NewGatewayError(op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: KindExternalGateway, Code: "gateway_failed", Message: op, Err: err}
}

// NewPersistenceError wraps a storage failure unless it already carries a domain kind.
func NewPersistenceError(op string, err error) error {
	if err == nil {
		return nil
	}
	var de *Error
	if errors.As(err, &de) {
		return err
	}
	return &Error{Kind: KindPersistence, Code: "persistence_failed", Message: op, Err: err}
}

// Code returns the domain error code carried by err, or "".
func Code(err error) string {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return ""
}

// KindOf returns the Kind carried by err, or KindUnknown.
func KindOf(err error) Kind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return KindUnknown
}

// IsRetryable reports whether the high-level action should be retried once.
func IsRetryable(err error) bool {
	return KindOf(err) == KindCapacityConflict
}

// Wrap attaches cause to a copy of base, keeping its kind and code.
func Wrap(base *Error, cause error) error {
	return &Error{Kind: base.Kind, Code: base.Code, Message: base.Message, Err: cause}
}
