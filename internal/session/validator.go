package session

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/garyjia/expense-refund-pipeline/internal/domain/entity"
)

// ValidateSelected is the sole gate between review and confirmation. It is
// stricter than per-field form checks because bulk edits can silently leave
// fields blank: every selected item must be complete before any of them may
// be submitted.
func ValidateSelected(items []*entity.LineItem) error {
	selected := 0
	invalid := 0

	for _, item := range items {
		if item == nil || !item.Selected {
			continue
		}
		selected++
		if !itemComplete(item) {
			invalid++
		}
	}

	if selected == 0 {
		return ErrNoItemsSelected
	}
	if invalid > 0 {
		return fmt.Errorf("%d selected item(s) are missing required fields", invalid)
	}

	return nil
}

// itemComplete checks the required fields of one selected item
func itemComplete(item *entity.LineItem) bool {
	if strings.TrimSpace(item.Title) == "" {
		return false
	}
	if !positiveDecimal(item.Amount) {
		return false
	}
	if !positiveDecimal(item.ExchangeRate) {
		return false
	}
	if strings.TrimSpace(item.SubmittedDate) == "" {
		return false
	}
	if strings.TrimSpace(item.Concept) == "" {
		return false
	}
	return true
}

// positiveDecimal reports whether s parses as a decimal strictly above zero
func positiveDecimal(s string) bool {
	value, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	return err == nil && value > 0
}
