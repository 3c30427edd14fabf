package incident

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/s-hit/mshd-backend/internal/datastore/entities"
)

// Form values arrive as free text. Leading numeric prefixes are accepted
// and trailing garbage ignored, so "2级" is category 2 and "121.47E" is 121.47.
var (
	intPrefix   = regexp.MustCompile(`^\s*[+-]?\d+`)
	floatPrefix = regexp.MustCompile(`^\s*[+-]?(\d+(\.\d*)?|\.\d+)([eE][+-]?\d+)?`)
	unixMillis  = regexp.MustCompile(`^\d{13}$`)
)

// observedLayouts are tried in order. Layouts without a zone are read in
// the grouping timezone.
var observedLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006/01/02 15:04:05",
	"2006/01/02",
	entities.DateLayout,
}

// ParseInt reads a leading integer, returning 0 when there is none or it
// does not fit in 32 bits.
func ParseInt(raw string) int {
	m := intPrefix.FindString(raw)
	if m == "" {
		return 0
	}
	v, err := strconv.ParseInt(strings.TrimSpace(m), 10, 32)
	if err != nil {
		return 0
	}
	return int(v)
}

// ParseCategory reads a category code. Anything without a numeric prefix,
// or out of range, is category 0.
func ParseCategory(raw string) Category {
	return Category(ParseInt(raw))
}

// ParseCoordinate reads a longitude or latitude. Zero, non-finite and
// unparseable values are treated as absent.
func ParseCoordinate(raw string) *float64 {
	m := floatPrefix.FindString(raw)
	if m == "" {
		return nil
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(m), 64)
	if err != nil || v == 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

// ParseObservedTime reads the client supplied observation time. Missing,
// unparseable, epoch and future values all become now.
func ParseObservedTime(raw string, now time.Time, loc *time.Location) time.Time {
	t, ok := parseTime(strings.TrimSpace(raw), loc)
	if !ok || t.UnixMilli() == 0 || t.After(now) {
		return now
	}
	return t
}

func parseTime(raw string, loc *time.Location) (time.Time, bool) {
	if raw == "" {
		return time.Time{}, false
	}
	if unixMillis.MatchString(raw) {
		ms, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return time.Time{}, false
		}
		return time.UnixMilli(ms), true
	}
	for _, layout := range observedLayouts {
		if t, err := time.ParseInLocation(layout, raw, loc); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// DayOf truncates t to its calendar day in loc, formatted for storage.
func DayOf(t time.Time, loc *time.Location) string {
	return t.In(loc).Format(entities.DateLayout)
}
