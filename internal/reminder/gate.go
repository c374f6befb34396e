package reminder

import (
	"strings"
	"time"
	"unicode/utf8"
)

// MaxEventLen matches the command schema's max_length.
const MaxEventLen = 30

// CheckEvent rejects blank or over-long event names. It runs before any date math.
func CheckEvent(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return ErrMissingEventName
	}
	if utf8.RuneCountInString(name) > MaxEventLen {
		return invalidField("event")
	}
	return nil
}

// CheckOffsets rejects an all-zero relative offset before resolution.
func CheckOffsets(o RelativeOffsets) error {
	if o.IsZero() {
		return ErrNoOffsetGiven
	}
	return nil
}

// Validate accepts only instants strictly after now.
func Validate(at, now time.Time) error {
	if !at.After(now) {
		return ErrPastInstant
	}
	return nil
}
