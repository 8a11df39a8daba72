package utils

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseBRFloat parses a number in Brazilian format ("1.234,56"). Plain
// dot-decimal input ("1234.56") is accepted as well, since some sources
// store values already converted.
func ParseBRFloat(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty number")
	}
	if strings.Contains(s, ",") {
		s = strings.ReplaceAll(s, ".", "")
		s = strings.Replace(s, ",", ".", 1)
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid number %q: %w", s, err)
	}
	return v, nil
}

// ParseBRInt parses an integer quantity, tolerating thousand separators.
func ParseBRInt(s string) (int, error) {
	s = strings.TrimSpace(s)
	if !strings.Contains(s, ",") {
		// quantities never carry dot decimals, only dot thousands
		s = strings.ReplaceAll(s, ".", "")
	}
	v, err := ParseBRFloat(s)
	if err != nil {
		return 0, err
	}
	return int(v), nil
}
