package reminder

import (
	"strconv"
	"strings"
	"time"
)

const (
	DateLayout     = "01/02/2006"
	ClockLayout    = "03:04 PM"
	DateTimeLayout = DateLayout + " " + ClockLayout
)

// Amount is one "<n> <noun>" term of a duration phrase.
type Amount struct {
	N    uint
	Noun string
}

// Pluralize renders n with its noun: "" for 0, "1 day", "2 days", "2 boxes".
// Nouns ending in s, x, z, ch or sh take "es"; there is no irregular table.
func Pluralize(n uint, noun string) string {
	switch n {
	case 0:
		return ""
	case 1:
		return "1 " + noun
	}
	suffix := "s"
	if hasSibilantEnding(noun) {
		suffix = "es"
	}
	return strconv.FormatUint(uint64(n), 10) + " " + noun + suffix
}

func hasSibilantEnding(noun string) bool {
	w := strings.ToLower(noun)
	for _, end := range []string{"s", "x", "z", "ch", "sh"} {
		if strings.HasSuffix(w, end) {
			return true
		}
	}
	return false
}

// Enumerate drops zero amounts and joins the rest with ", ".
func Enumerate(amounts []Amount) string {
	parts := make([]string, 0, len(amounts))
	for _, a := range amounts {
		if a.N == 0 {
			continue
		}
		parts = append(parts, Pluralize(a.N, a.Noun))
	}
	return strings.Join(parts, ", ")
}

func FormatDate(t time.Time) string     { return t.Format(DateLayout) }
func FormatClock(t time.Time) string    { return t.Format(ClockLayout) }
func FormatDateTime(t time.Time) string { return t.Format(DateTimeLayout) }
