package models

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// LineItem is one priced row on an Invoice. Amount is always derived from
// Rate and Quantity; callers never set it directly.
type LineItem struct {
	ID          string    `gorm:"type:uuid;primaryKey" json:"id"`
	InvoiceID   string    `gorm:"type:uuid;index;not null" json:"invoiceId"`
	Description string    `gorm:"size:512;not null" json:"description"`
	Quantity    int       `gorm:"not null;default:1" json:"quantity"`
	Rate        string    `gorm:"type:decimal(18,2);not null" json:"rate"`
	Amount      string    `gorm:"type:decimal(18,2);not null" json:"amount"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// ParseRate parses a money string into a decimal. Rates must be non-negative.
func ParseRate(rate string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(rate)
	if err != nil {
		return decimal.Zero, fmt.Errorf("rate %q is not a valid decimal", rate)
	}
	if d.IsNegative() {
		return decimal.Zero, fmt.Errorf("rate %q must not be negative", rate)
	}
	return d, nil
}

// NormalizeQuantity applies the default of 1 for absent or invalid quantities.
func NormalizeQuantity(q int) int {
	if q <= 0 {
		return 1
	}
	return q
}

// ComputeAmount derives rate*quantity rounded to 2 decimals, formatted with
// exactly two fractional digits. Money stays in decimal strings end to end so
// no binary float ever touches it.
func ComputeAmount(rate string, quantity int) (string, error) {
	d, err := ParseRate(rate)
	if err != nil {
		return "", err
	}
	q := decimal.NewFromInt(int64(NormalizeQuantity(quantity)))
	return d.Mul(q).Round(2).StringFixed(2), nil
}

// Recompute refreshes Amount from the item's own Rate and Quantity.
func (li *LineItem) Recompute() error {
	li.Quantity = NormalizeQuantity(li.Quantity)
	amount, err := ComputeAmount(li.Rate, li.Quantity)
	if err != nil {
		return err
	}
	li.Amount = amount
	return nil
}
