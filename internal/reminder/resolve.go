package reminder

import (
	"errors"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// Report option names, not Go field names.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

func checkRanges(s any) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		return invalidField(verrs[0].Field())
	}
	return err
}

// ResolveAbsolute composes year-(month+1)-day hour:minute in loc.
// Year, month and day are required; hour and minute default to 0.
func ResolveAbsolute(f AbsoluteFields, loc *time.Location) (time.Time, error) {
	if f.Year == nil || f.Month == nil || f.Day == nil || *f.Year == 0 || *f.Day == 0 {
		return time.Time{}, ErrMissingRequiredField
	}
	if err := checkRanges(f); err != nil {
		return time.Time{}, err
	}

	hour, minute := 0, 0
	if f.Hour != nil {
		hour = *f.Hour
	}
	if f.Minute != nil {
		minute = *f.Minute
	}

	month := time.Month(*f.Month + 1)
	t := time.Date(*f.Year, month, *f.Day, hour, minute, 0, 0, loc)
	// time.Date normalizes Feb 30 into March; refuse instead.
	if t.Year() != *f.Year || t.Month() != month || t.Day() != *f.Day {
		return time.Time{}, ErrInvalidDate
	}
	return t, nil
}

// ResolveRelative returns now in loc advanced by whole calendar days, then
// hours, then minutes.
func ResolveRelative(o RelativeOffsets, now time.Time, loc *time.Location) (time.Time, error) {
	if err := checkRanges(o); err != nil {
		return time.Time{}, err
	}
	// Triggers have minute resolution, so the result drops now's seconds.
	n := now.In(loc)
	t := time.Date(n.Year(), n.Month(), n.Day(), n.Hour(), n.Minute(), 0, 0, loc)
	t = t.AddDate(0, 0, int(o.Days))
	t = t.Add(time.Duration(o.Hours) * time.Hour)
	t = t.Add(time.Duration(o.Minutes) * time.Minute)
	return t, nil
}
