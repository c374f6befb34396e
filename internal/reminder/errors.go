package reminder

import (
	"errors"
	"fmt"
)

var (
	ErrMissingEventName     = errors.New("reminder: missing event name")
	ErrMissingRequiredField = errors.New("reminder: missing required date field")
	ErrNoOffsetGiven        = errors.New("reminder: no offset given")
	ErrPastInstant          = errors.New("reminder: instant is not in the future")
	ErrInvalidDate          = errors.New("reminder: date does not exist")
	ErrInvalidField         = errors.New("reminder: field out of range")
)

// FieldError names the option that failed range validation.
type FieldError struct {
	Field string
	Err   error
}

func (e *FieldError) Error() string { return fmt.Sprintf("%s: %v", e.Field, e.Err) }
func (e *FieldError) Unwrap() error { return e.Err }

func invalidField(name string) error {
	return &FieldError{Field: name, Err: ErrInvalidField}
}

// Rejection maps a request error to the user-facing reply text.
// Unknown errors get the generic failure message.
func Rejection(err error, mention string) string {
	switch {
	case errors.Is(err, ErrMissingEventName):
		return "Sorry, " + mention + ", but you didn't put a name for the event. Try again."
	case errors.Is(err, ErrMissingRequiredField):
		return "Sorry, " + mention + ", but you need to add a date for the reminder. Try again."
	case errors.Is(err, ErrNoOffsetGiven):
		return "Sorry, " + mention + ", but you need to add a time for the reminder. Try again."
	case errors.Is(err, ErrPastInstant):
		return "Sorry, " + mention + ", but you can't make a reminder for the past. Try again."
	case errors.Is(err, ErrInvalidDate):
		return "Sorry, " + mention + ", but that date doesn't exist. Try again."
	case errors.Is(err, ErrInvalidField):
		field := "a value"
		var fe *FieldError
		if errors.As(err, &fe) && fe.Field != "" {
			field = "`" + fe.Field + "`"
		}
		return "Sorry, " + mention + ", but " + field + " is out of range. Try again."
	default:
		return "Sorry, " + mention + ". An error occurred. Please try again later."
	}
}
