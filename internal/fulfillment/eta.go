package fulfillment

import (
	"errors"
	"strconv"
	"strings"
	"time"
	"unicode"
)

var ErrInvalidETA = errors.New("invalid ETA format")

// ParseETA turns an admin-entered phrase like "30 minutes" or "1 week" into a
// duration. Months and years are calendar approximations, which is fine for a
// delivery estimate.
func ParseETA(text string) (time.Duration, error) {
	trimmed := strings.ToLower(strings.TrimSpace(text))
	if trimmed == "" {
		return 0, ErrInvalidETA
	}

	digits := strings.TrimLeftFunc(trimmed, unicode.IsSpace)
	end := 0
	for end < len(digits) && digits[end] >= '0' && digits[end] <= '9' {
		end++
	}
	if end == 0 {
		return 0, ErrInvalidETA
	}
	amount, err := strconv.Atoi(digits[:end])
	if err != nil || amount <= 0 {
		return 0, ErrInvalidETA
	}

	unit := strings.TrimSpace(digits[end:])
	var base time.Duration
	switch {
	case strings.Contains(unit, "minute"):
		base = time.Minute
	case strings.Contains(unit, "hour"):
		base = time.Hour
	case strings.Contains(unit, "day"):
		base = 24 * time.Hour
	case strings.Contains(unit, "week"):
		base = 7 * 24 * time.Hour
	case strings.Contains(unit, "month"):
		base = 30 * 24 * time.Hour
	case strings.Contains(unit, "year"):
		base = 365 * 24 * time.Hour
	default:
		return 0, ErrInvalidETA
	}

	return time.Duration(amount) * base, nil
}
