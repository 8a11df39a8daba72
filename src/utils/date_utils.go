package utils

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// DefaultDateFormat is the trade date format printed on brokerage notes.
const DefaultDateFormat = "02/01/2006"

// ParseDate parses a dd/mm/yyyy trade date.
func ParseDate(dateStr string) (time.Time, error) {
	t, err := time.Parse(DefaultDateFormat, strings.TrimSpace(dateStr))
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: %w", dateStr, err)
	}
	return t, nil
}

var (
	expiryFullRe  = regexp.MustCompile(`^(\d{2})/(\d{4})$`)
	expiryShortRe = regexp.MustCompile(`^(\d{2})/(\d{2})$`)
)

// ParseExpiry parses an option expiry in MM/YYYY or MM/YY form, returning
// the first day of the expiry month. Two-digit years are assumed 20xx.
// An empty string is not an error: it returns the zero time.
func ParseExpiry(expiryStr string) (time.Time, error) {
	s := strings.TrimSpace(expiryStr)
	if s == "" {
		return time.Time{}, nil
	}
	if m := expiryFullRe.FindStringSubmatch(s); m != nil {
		return time.Parse("01/2006", m[1] + "/" + m[2])
	}
	if m := expiryShortRe.FindStringSubmatch(s); m != nil {
		return time.Parse("01/2006", m[1] + "/20" + m[2])
	}
	// Full dates occasionally show up in the expiry column.
	if t, err := time.Parse(DefaultDateFormat, s); err == nil {
		return MonthStart(t), nil
	}
	return time.Time{}, fmt.Errorf("invalid expiry %q: expected MM/YYYY or MM/YY", expiryStr)
}

// MonthStart truncates a date to the first day of its month.
func MonthStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
}

// MonthKey formats a date as the sortable "YYYY-MM" month key used by the
// tax ledger.
func MonthKey(t time.Time) string {
	return t.Format("2006-01")
}

// MonthBefore reports whether a falls in a strictly earlier calendar month
// than b.
func MonthBefore(a, b time.Time) bool {
	if a.Year() != b.Year() {
		return a.Year() < b.Year()
	}
	return a.Month() < b.Month()
}
