package data

import (
	"time"

	"github.com/pkg/errors"
)

// DateLayout renders dates as a medium date with a long time, e.g.
// "Jan 2, 2006 at 3:04:05 PM UTC".
const DateLayout = "Jan 2, 2006 at 3:04:05 PM MST"

// FormatDate renders t in UTC so that ParseDate(FormatDate(t)) formats back to
// the same string.
func FormatDate(t time.Time) string {
	return t.UTC().Format(DateLayout)
}

// ParseDate parses a date written by FormatDate.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, errors.Wrapf(err, "parse date %q", s)
	}
	return t.UTC(), nil
}
