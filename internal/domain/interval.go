package domain

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	intervalPattern = regexp.MustCompile(`^(\d+[wdhms])+$`)
	intervalPart    = regexp.MustCompile(`(\d+)([wdhms])`)
)

// MaxReminderInterval is the longest lead time a reminder may use; the
// dispatcher only looks this far ahead.
const MaxReminderInterval = 24 * time.Hour

var intervalUnits = map[string]time.Duration{
	"w": 7 * 24 * time.Hour,
	"d": 24 * time.Hour,
	"h": time.Hour,
	"m": time.Minute,
	"s": time.Second,
}

// ParseInterval parses a lead time such as "15m", "1h", "1h30m",
// "1d" or "2w". The result is always strictly positive.
func ParseInterval(s string) (time.Duration, error) {
	v := strings.ToLower(strings.TrimSpace(s))
	if !intervalPattern.MatchString(v) {
		return 0, Validationf(ErrInvalidInterval, "%q", s)
	}
	var total time.Duration
	for _, m := range intervalPart.FindAllStringSubmatch(v, -1) {
		n, err := strconv.Atoi(m[1])
		if err != nil {
			return 0, Validationf(ErrInvalidInterval, "%q: %v", s, err)
		}
		total += time.Duration(n) * intervalUnits[m[2]]
	}
	if total <= 0 {
		return 0, Validationf(ErrInvalidInterval, "%q is not positive", s)
	}
	return total, nil
}

// ParseReminderInterval parses s like ParseInterval and rejects lead times
// beyond MaxReminderInterval.
func ParseReminderInterval(s string) (time.Duration, error) {
	d, err := ParseInterval(s)
	if err != nil {
		return 0, err
	}
	if d > MaxReminderInterval {
		return 0, Validationf(ErrInvalidInterval, "%q exceeds %s", s, MaxReminderInterval)
	}
	return d, nil
}
