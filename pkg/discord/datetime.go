package discord

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrDateTimeRequired is returned when either field is blank.
var ErrDateTimeRequired = errors.New("date and time are required")

// ParseEventDateTime parses date (JJ/MM/AAAA) and time (HH:MM) in loc.
// Whether the instant lies in the future is for the caller to decide.
func ParseEventDateTime(dateStr, timeStr string, loc *time.Location) (time.Time, error) {
	dateStr = strings.TrimSpace(dateStr)
	timeStr = strings.TrimSpace(timeStr)
	if dateStr == "" || timeStr == "" {
		return time.Time{}, ErrDateTimeRequired
	}
	tDate, err := time.Parse("02/01/2006", dateStr)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q (want DD/MM/YYYY)", dateStr)
	}
	tTime, err := time.Parse("15:04", timeStr)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid time %q (want HH:MM)", timeStr)
	}
	if loc == nil {
		loc = time.UTC
	}
	return time.Date(tDate.Year(), tDate.Month(), tDate.Day(),
		tTime.Hour(), tTime.Minute(), 0, 0, loc), nil
}

func FormatEventDateTime(t time.Time, loc *time.Location) string {
	if t.IsZero() {
		return ""
	}
	if loc != nil {
		t = t.In(loc)
	}
	return t.Format("02/01/2006 15:04 MST")
}

// Timestamp renders a Discord timestamp tag; clients show it in their own zone.
// Style is one of t, T, d, D, f, F, R.
func Timestamp(t time.Time, style string) string {
	if style == "" {
		style = "F"
	}
	return fmt.Sprintf("<t:%d:%s>", t.Unix(), style)
}
