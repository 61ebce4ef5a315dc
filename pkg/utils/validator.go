package utils

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// ValidateEmail validates an email address
func ValidateEmail(email string) error {
	emailRegex := regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)
	if !emailRegex.MatchString(email) {
		return fmt.Errorf("invalid email format: %s", email)
	}
	return nil
}

// ValidateAmount validates a monetary amount expressed as a decimal string
func ValidateAmount(amount string) error {
	value, err := strconv.ParseFloat(strings.TrimSpace(amount), 64)
	if err != nil {
		return fmt.Errorf("invalid amount: %s", amount)
	}

	if value <= 0 {
		return fmt.Errorf("amount must be positive: %s", amount)
	}

	if value > 100000 {
		return fmt.Errorf("amount exceeds maximum limit: %s", amount)
	}

	return nil
}

// SanitizeString removes potentially harmful characters
func SanitizeString(s string) string {
	// Remove control characters and potential SQL injection patterns
	sanitized := regexp.MustCompile(`[\x00-\x1f\x7f]`).ReplaceAllString(s, "")
	return sanitized
}
