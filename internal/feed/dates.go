package feed

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/araddon/dateparse"
)

// RecentDate stands in for entries that carry neither a published nor an
// updated date. It parses to the current instant.
const RecentDate = "recent"

// Both EDT and EST are read as UTC-5 regardless of daylight saving.
// This is the stored data's fixed policy and must not be corrected.
const easternOffset = "-0500"

var easternReplacer = strings.NewReplacer( //nolint:gochecknoglobals // Immutable.
	"EDT", easternOffset,
	"EST", easternOffset,
)

var dateLayouts = []string{ //nolint:gochecknoglobals // Immutable.
	time.RFC3339Nano,
	time.RFC1123Z,
	time.RFC1123,
	"Mon, 2 Jan 2006 15:04:05 -0700",
	"Mon, 2 Jan 2006 15:04:05 MST",
	"Mon, 02 Jan 2006 15:04 -0700",
	"Mon, 02 Jan 2006 15:04 MST",
	"2 Jan 2006 15:04:05 -0700",
	"02 Jan 2006 15:04:05 MST",
	time.RFC822Z,
	time.RFC822,
	"2006-01-02T15:04:05-0700",
	"2006-01-02T15:04:05 -0700",
	"2006-01-02T15:04:05MST",
	"2006-01-02T15:04:05 MST",
	"2006-01-02 15:04:05-07:00",
	"2006-01-02 15:04:05 -0700",
	"2006-01-02 15:04:05 MST",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseDate turns a feed or stored date string into a UTC instant.
// Strings without zone information are read as UTC.
func ParseDate(value string, now time.Time) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, errors.New("date is empty")
	}

	if strings.EqualFold(value, RecentDate) {
		return now.UTC(), nil
	}

	value = easternReplacer.Replace(value)

	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t.UTC(), nil
		}
	}

	t, err := dateparse.ParseIn(value, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse date %q: %w", value, err)
	}

	return t.UTC(), nil
}

func entryDate(published string, date string) string {
	if strings.TrimSpace(published) != "" {
		return published
	}
	if strings.TrimSpace(date) != "" {
		return date
	}

	return RecentDate
}
