package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Invoice status values. Draft is the initial state; Sent is set as a side
// effect of successful email dispatch. Paid and Overdue are user-driven.
const (
	StatusDraft   = "draft"
	StatusSent    = "sent"
	StatusPaid    = "paid"
	StatusOverdue = "overdue"
)

// ValidStatus reports whether s is one of the known invoice statuses.
func ValidStatus(s string) bool {
	switch s {
	case StatusDraft, StatusSent, StatusPaid, StatusOverdue:
		return true
	}
	return false
}

// Invoice is the billing document aggregate. It exclusively owns its line
// items (cascade delete) and carries derived subtotal/tax/total, serialized
// as fixed 2-decimal strings.
type Invoice struct {
	ID            string `gorm:"type:uuid;primaryKey" json:"id"`
	InvoiceNumber string `gorm:"size:64;index" json:"invoiceNumber"`
	Status        string `gorm:"size:16;not null;default:'draft'" json:"status"`

	CompanyName    string `gorm:"size:255;not null" json:"companyName"`
	CompanyEmail   string `gorm:"size:255;not null" json:"companyEmail"`
	CompanyPhone   string `gorm:"size:64" json:"companyPhone"`
	CompanyWebsite string `gorm:"size:255" json:"companyWebsite"`
	CompanyAddress string `gorm:"size:512" json:"companyAddress"`
	// CompanyLogo holds an embeddable opaque reference (a data URI in the
	// reference deployment).
	CompanyLogo string `gorm:"type:text" json:"companyLogo"`

	ClientName    string `gorm:"size:255;not null" json:"clientName"`
	ClientEmail   string `gorm:"size:255;not null" json:"clientEmail"`
	ClientCompany string `gorm:"size:255" json:"clientCompany"`
	ClientPhone   string `gorm:"size:64" json:"clientPhone"`
	ClientAddress string `gorm:"size:512" json:"clientAddress"`

	// Plain calendar dates without timezone, e.g. "2026-08-30".
	InvoiceDate string `gorm:"size:32;not null" json:"invoiceDate"`
	DueDate     string `gorm:"size:32" json:"dueDate"`
	Notes       string `gorm:"type:text" json:"notes"`

	Subtotal string `gorm:"type:decimal(18,2);not null;default:0" json:"subtotal"`
	// Tax is stored explicitly even though no tax engine exists yet, so a
	// future version can compute it without a schema change.
	Tax   string `gorm:"type:decimal(18,2);not null;default:0" json:"tax"`
	Total string `gorm:"type:decimal(18,2);not null;default:0" json:"total"`

	IsHosted            bool `gorm:"not null;default:false" json:"isHosted"`
	IsPasswordProtected bool `gorm:"not null;default:false" json:"isPasswordProtected"`
	// Password is a plaintext usability latch for the public view, not a
	// security boundary. Compared constant-time at the gate.
	Password  string `gorm:"size:255" json:"password,omitempty"`
	HostedURL string `gorm:"size:512" json:"hostedUrl"`

	LineItems []LineItem `gorm:"foreignKey:InvoiceID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"lineItems"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Recalculate re-derives every line item's amount from its own rate and
// quantity, then subtotal, tax and total. This is the only code path that
// produces totals, so they are consistent with the items by construction.
func (inv *Invoice) Recalculate() error {
	subtotal := decimal.Zero
	for i := range inv.LineItems {
		if err := inv.LineItems[i].Recompute(); err != nil {
			return err
		}
		amt, err := decimal.NewFromString(inv.LineItems[i].Amount)
		if err != nil {
			return err
		}
		subtotal = subtotal.Add(amt)
	}
	tax := decimal.Zero
	inv.Subtotal = subtotal.Round(2).StringFixed(2)
	inv.Tax = tax.StringFixed(2)
	inv.Total = subtotal.Add(tax).Round(2).StringFixed(2)
	return nil
}
