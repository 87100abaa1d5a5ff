// internal/errors/mapper.go
package errors

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Kind classifies a failure by how the bot reacts to it.
type Kind int

const (
	// KindExternal is a store / photo-adapter / network failure: log, apologize, keep state.
	KindExternal Kind = iota
	// KindValidation is bad user input: re-prompt, never logged as an error.
	KindValidation
	// KindNotFound is a missing profile, match or session.
	KindNotFound
	// KindInvariant is a logic defect upstream, e.g. matching a user with themselves.
	KindInvariant
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindInvariant:
		return "invariant"
	default:
		return "external"
	}
}

// GenericMessage is the only thing a user sees for non-validation failures.
const GenericMessage = "Sorry, something went wrong. Please try again later."

// Error carries a Kind plus a message safe to show for validation failures.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error { return e.Err }

// Validation creates a user-facing validation error.
// msg is shown to the user as-is.
func Validation(msg string) error {
	return &Error{Kind: KindValidation, Msg: msg}
}

// NotFound creates a not-found error.
func NotFound(msg string) error {
	return &Error{Kind: KindNotFound, Msg: msg}
}

// Invariant creates an invariant-violation error.
func Invariant(msg string) error {
	return &Error{Kind: KindInvariant, Msg: msg}
}

// External wraps an infra failure with the operation that hit it.
func External(op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: KindExternal, Msg: op, Err: err}
}

// Map converts repo/infra errors into classified errors.
// Already classified errors pass through untouched.
func Map(err error) error {
	if err == nil {
		return nil
	}

	var e *Error
	if errors.As(err, &e) {
		return err
	}

	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return &Error{Kind: KindNotFound, Msg: "record not found", Err: err}

	case errors.Is(err, redis.Nil):
		return &Error{Kind: KindNotFound, Msg: "key not found", Err: err}

	case errors.Is(err, context.DeadlineExceeded):
		return &Error{Kind: KindExternal, Msg: "request timed out", Err: err}

	case errors.Is(err, context.Canceled):
		return &Error{Kind: KindExternal, Msg: "request was canceled", Err: err}

	default:
		return &Error{Kind: KindExternal, Msg: "internal", Err: err}
	}
}

// KindOf reports the Kind of err after mapping.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(Map(err), &e) {
		return e.Kind
	}
	return KindExternal
}

func IsValidation(err error) bool { return err != nil && KindOf(err) == KindValidation }

func IsNotFound(err error) bool { return err != nil && KindOf(err) == KindNotFound }

// UserMessage returns text that is safe to send to the user.
// Only validation messages leak through; everything else is the generic apology.
func UserMessage(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Kind == KindValidation {
		return e.Msg
	}
	return GenericMessage
}
