package common

import (
	"fmt"
	"strings"
	"time"
)

// DefaultMaxResults caps list queries when the caller gives no limit.
const DefaultMaxResults = 1000

// ValidateDateFormat validates YYYY-MM-DD date strings. Empty is allowed.
func ValidateDateFormat(dateStr, fieldName string) error {
	if strings.TrimSpace(dateStr) == "" {
		return nil
	}
	if _, err := time.Parse(time.DateOnly, dateStr); err != nil {
		return fmt.Errorf("%w: %s must be in YYYY-MM-DD format, got %q", ErrInvalidDate, fieldName, dateStr)
	}
	return nil
}

// ValidateHourFormat validates HH:MM hour strings. Empty is allowed.
func ValidateHourFormat(hourStr, fieldName string) error {
	if strings.TrimSpace(hourStr) == "" {
		return nil
	}
	if _, err := time.Parse("15:04", hourStr); err != nil {
		return fmt.Errorf("%w: %s must be in HH:MM format, got %q", ErrInvalidHour, fieldName, hourStr)
	}
	return nil
}

// NormalizeMaxResults applies the default list cap.
func NormalizeMaxResults(limit int) int {
	if limit <= 0 {
		return DefaultMaxResults
	}
	return limit
}
