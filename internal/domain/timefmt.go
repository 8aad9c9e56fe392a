package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/ncruces/go-strftime"
)

// DefaultTimestampFormat is used by sources that do not set their own.
const DefaultTimestampFormat = "%Y-%m-%d %H:%M:%S.%f"

// utcSuffix is appended to marker values by sources that store it.
const utcSuffix = " UTC"

// usgsLayout renders epoch milliseconds the way the earthquake store expects.
const usgsLayout = "2006-01-02 15:04:05 UTC"

// ParseTimestamp parses value with a strftime-style format. A trailing
// microsecond directive (%f) is optional in the input, and a literal " UTC"
// suffix on the value is tolerated.
func ParseTimestamp(format, value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, fmt.Errorf("empty timestamp")
	}
	base, _ := splitFraction(format)
	if !strings.HasSuffix(base, utcSuffix) {
		value = strings.TrimSuffix(value, utcSuffix)
	}
	layout, err := strftime.Layout(base)
	if err != nil {
		return time.Time{}, fmt.Errorf("timestamp format %q: %w", format, err)
	}
	// time.Parse accepts a fractional second after the seconds field even when
	// the layout does not name one.
	t, err := time.Parse(layout, value)
	if err != nil && strings.Contains(layout, "-0700") {
		// %z also accepts a colon-separated offset such as +02:00.
		if t2, err2 := time.Parse(strings.Replace(layout, "-0700", "Z07:00", 1), value); err2 == nil {
			return t2, nil
		}
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("parse %q with %q: %w", value, format, err)
	}
	return t, nil
}

// FormatTimestamp renders t with a strftime-style format, appending " UTC"
// when withUTC is set.
func FormatTimestamp(format string, t time.Time, withUTC bool) string {
	base, hasFraction := splitFraction(format)
	out := strftime.Format(base, t)
	if hasFraction {
		out += fmt.Sprintf(".%06d", t.Nanosecond()/1000)
	}
	if withUTC && !strings.HasSuffix(out, utcSuffix) {
		out += utcSuffix
	}
	return out
}

// splitFraction removes a trailing ".%f" or "%f" directive.
func splitFraction(format string) (string, bool) {
	for _, suffix := range []string{".%f", "%f"} {
		if strings.HasSuffix(format, suffix) {
			return strings.TrimSuffix(format, suffix), true
		}
	}
	return format, false
}
