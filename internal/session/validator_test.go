package session

import (
	"testing"

	"github.com/garyjia/expense-refund-pipeline/internal/domain/entity"
	"github.com/stretchr/testify/assert"
)

func completeItem() *entity.LineItem {
	return &entity.LineItem{
		Title:         "Cafe Rio",
		Amount:        "24.90",
		Currency:      "USD",
		Concept:       entity.ConceptMeals,
		SubmittedDate: "2025-03-15",
		ExchangeRate:  "1",
		Selected:      true,
	}
}

func TestValidateSelected_NoItemsSelected(t *testing.T) {
	unselected := completeItem()
	unselected.Selected = false

	err := ValidateSelected([]*entity.LineItem{unselected, nil})

	assert.ErrorIs(t, err, ErrNoItemsSelected)
}

func TestValidateSelected_EmptySlice(t *testing.T) {
	assert.ErrorIs(t, ValidateSelected(nil), ErrNoItemsSelected)
}

func TestValidateSelected_AllComplete(t *testing.T) {
	assert.NoError(t, ValidateSelected([]*entity.LineItem{completeItem(), completeItem()}))
}

func TestValidateSelected_UnselectedItemsAreNotChecked(t *testing.T) {
	broken := &entity.LineItem{Selected: false}

	assert.NoError(t, ValidateSelected([]*entity.LineItem{completeItem(), broken}))
}

func TestValidateSelected_ReportsInvalidCount(t *testing.T) {
	missingTitle := completeItem()
	missingTitle.Title = "  "
	badAmount := completeItem()
	badAmount.Amount = "free"

	err := ValidateSelected([]*entity.LineItem{completeItem(), missingTitle, badAmount})

	assert.EqualError(t, err, "2 selected item(s) are missing required fields")
}

func TestValidateSelected_FieldRules(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*entity.LineItem)
		valid  bool
	}{
		{"zero amount", func(i *entity.LineItem) { i.Amount = "0" }, false},
		{"negative amount", func(i *entity.LineItem) { i.Amount = "-3.50" }, false},
		{"non numeric rate", func(i *entity.LineItem) { i.ExchangeRate = "n/a" }, false},
		{"zero rate", func(i *entity.LineItem) { i.ExchangeRate = "0" }, false},
		{"blank date", func(i *entity.LineItem) { i.SubmittedDate = "" }, false},
		{"blank concept", func(i *entity.LineItem) { i.Concept = " " }, false},
		{"fractional rate", func(i *entity.LineItem) { i.ExchangeRate = "5.1" }, true},
		{"whitespace padded amount", func(i *entity.LineItem) { i.Amount = " 12.00 " }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			item := completeItem()
			tt.mutate(item)

			err := ValidateSelected([]*entity.LineItem{item})
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}
