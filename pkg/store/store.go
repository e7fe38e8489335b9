// Package store defines the persistence contract for invoices and their line
// items, with an in-memory reference implementation and a postgres-backed one.
package store

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"faktur/models"
)

// ErrNotFound is returned for lookups and mutations on unknown ids. It is an
// expected-miss signal, not an exception: callers branch on it.
var ErrNotFound = errors.New("not found")

// ValidationError carries field-level detail for rejected input. Nothing is
// persisted when one is returned.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", k, e.Fields[k]))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// InvoicePatch is a partial invoice update. Nil fields are left untouched.
// Derived fields (subtotal, tax, total, hostedUrl, line item amounts) are not
// patchable; they are never independently authoritative.
type InvoicePatch struct {
	InvoiceNumber *string `json:"invoiceNumber"`
	Status        *string `json:"status"`

	CompanyName    *string `json:"companyName"`
	CompanyEmail   *string `json:"companyEmail"`
	CompanyPhone   *string `json:"companyPhone"`
	CompanyWebsite *string `json:"companyWebsite"`
	CompanyAddress *string `json:"companyAddress"`
	CompanyLogo    *string `json:"companyLogo"`

	ClientName    *string `json:"clientName"`
	ClientEmail   *string `json:"clientEmail"`
	ClientCompany *string `json:"clientCompany"`
	ClientPhone   *string `json:"clientPhone"`
	ClientAddress *string `json:"clientAddress"`

	InvoiceDate *string `json:"invoiceDate"`
	DueDate     *string `json:"dueDate"`
	Notes       *string `json:"notes"`

	IsHosted            *bool   `json:"isHosted"`
	IsPasswordProtected *bool   `json:"isPasswordProtected"`
	Password            *string `json:"password"`
}

// LineItemPatch is a partial line item update. Patching Rate or Quantity
// recomputes the item's amount and the owning invoice's totals.
type LineItemPatch struct {
	Description *string `json:"description"`
	Quantity    *int    `json:"quantity"`
	Rate        *string `json:"rate"`
}

// Store is the invoice persistence contract. Every write either fully
// applies (ids assigned, totals derived, timestamps stamped) or is rejected
// before any partial state is written. Reads after a completed write on the
// same id always observe it.
type Store interface {
	// Get returns the invoice with its line items, or ErrNotFound.
	Get(id string) (*models.Invoice, error)
	// List returns all invoices with items, newest-created-first.
	List() ([]models.Invoice, error)
	// FindByNumber returns the first invoice with the given number, or
	// ErrNotFound. Number uniqueness is intended but not enforced.
	FindByNumber(number string) (*models.Invoice, error)
	// Create validates inv, assigns ids, derives amounts, totals and the
	// hosted URL, stamps timestamps and persists the invoice with all items.
	Create(inv *models.Invoice) (*models.Invoice, error)
	// Update merges patch over the stored invoice and bumps updatedAt. It
	// never touches line items or recomputes totals.
	Update(id string, patch InvoicePatch) (*models.Invoice, error)
	// Delete removes the invoice and cascades to its line items, reporting
	// whether the invoice existed.
	Delete(id string) (bool, error)

	// AddLineItem appends an item and recomputes the invoice totals.
	AddLineItem(invoiceID string, item models.LineItem) (*models.Invoice, error)
	// UpdateLineItem merges patch over the item, recomputing its amount when
	// rate or quantity change, and recomputes the invoice totals.
	UpdateLineItem(invoiceID, itemID string, patch LineItemPatch) (*models.Invoice, error)
	// DeleteLineItem removes the item and recomputes the invoice totals.
	DeleteLineItem(invoiceID, itemID string) (*models.Invoice, error)
}

// validateNew checks required fields and line item payloads on creation.
// Fail closed: no invoice is persisted without consistent totals.
func validateNew(inv *models.Invoice) error {
	fields := map[string]string{}
	if strings.TrimSpace(inv.CompanyName) == "" {
		fields["companyName"] = "required"
	}
	if strings.TrimSpace(inv.CompanyEmail) == "" {
		fields["companyEmail"] = "required"
	}
	if strings.TrimSpace(inv.ClientName) == "" {
		fields["clientName"] = "required"
	}
	if strings.TrimSpace(inv.ClientEmail) == "" {
		fields["clientEmail"] = "required"
	}
	if strings.TrimSpace(inv.InvoiceDate) == "" {
		fields["invoiceDate"] = "required"
	}
	if inv.Status != "" && !models.ValidStatus(inv.Status) {
		fields["status"] = "unknown status"
	}
	for i := range inv.LineItems {
		li := &inv.LineItems[i]
		if strings.TrimSpace(li.Description) == "" {
			fields[fmt.Sprintf("lineItems[%d].description", i)] = "required"
		}
		if _, err := models.ParseRate(li.Rate); err != nil {
			fields[fmt.Sprintf("lineItems[%d].rate", i)] = err.Error()
		}
	}
	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}

// validateItem checks a single line item to be appended to an invoice.
func validateItem(li *models.LineItem) error {
	fields := map[string]string{}
	if strings.TrimSpace(li.Description) == "" {
		fields["description"] = "required"
	}
	if _, err := models.ParseRate(li.Rate); err != nil {
		fields["rate"] = err.Error()
	}
	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}

// validatePatch rejects patch values that would corrupt the aggregate.
func validatePatch(patch InvoicePatch) error {
	fields := map[string]string{}
	if patch.Status != nil && !models.ValidStatus(*patch.Status) {
		fields["status"] = "unknown status"
	}
	if patch.CompanyName != nil && strings.TrimSpace(*patch.CompanyName) == "" {
		fields["companyName"] = "must not be empty"
	}
	if patch.CompanyEmail != nil && strings.TrimSpace(*patch.CompanyEmail) == "" {
		fields["companyEmail"] = "must not be empty"
	}
	if patch.ClientName != nil && strings.TrimSpace(*patch.ClientName) == "" {
		fields["clientName"] = "must not be empty"
	}
	if patch.ClientEmail != nil && strings.TrimSpace(*patch.ClientEmail) == "" {
		fields["clientEmail"] = "must not be empty"
	}
	if patch.InvoiceDate != nil && strings.TrimSpace(*patch.InvoiceDate) == "" {
		fields["invoiceDate"] = "must not be empty"
	}
	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}

// validateItemPatch mirrors validatePatch for line item patches.
func validateItemPatch(patch LineItemPatch) error {
	fields := map[string]string{}
	if patch.Description != nil && strings.TrimSpace(*patch.Description) == "" {
		fields["description"] = "must not be empty"
	}
	if patch.Rate != nil {
		if _, err := models.ParseRate(*patch.Rate); err != nil {
			fields["rate"] = err.Error()
		}
	}
	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}

// applyPatch merges patch over inv. Caller stamps updatedAt.
func applyPatch(inv *models.Invoice, patch InvoicePatch) {
	if patch.InvoiceNumber != nil {
		inv.InvoiceNumber = *patch.InvoiceNumber
	}
	if patch.Status != nil {
		inv.Status = *patch.Status
	}
	if patch.CompanyName != nil {
		inv.CompanyName = *patch.CompanyName
	}
	if patch.CompanyEmail != nil {
		inv.CompanyEmail = *patch.CompanyEmail
	}
	if patch.CompanyPhone != nil {
		inv.CompanyPhone = *patch.CompanyPhone
	}
	if patch.CompanyWebsite != nil {
		inv.CompanyWebsite = *patch.CompanyWebsite
	}
	if patch.CompanyAddress != nil {
		inv.CompanyAddress = *patch.CompanyAddress
	}
	if patch.CompanyLogo != nil {
		inv.CompanyLogo = *patch.CompanyLogo
	}
	if patch.ClientName != nil {
		inv.ClientName = *patch.ClientName
	}
	if patch.ClientEmail != nil {
		inv.ClientEmail = *patch.ClientEmail
	}
	if patch.ClientCompany != nil {
		inv.ClientCompany = *patch.ClientCompany
	}
	if patch.ClientPhone != nil {
		inv.ClientPhone = *patch.ClientPhone
	}
	if patch.ClientAddress != nil {
		inv.ClientAddress = *patch.ClientAddress
	}
	if patch.InvoiceDate != nil {
		inv.InvoiceDate = *patch.InvoiceDate
	}
	if patch.DueDate != nil {
		inv.DueDate = *patch.DueDate
	}
	if patch.Notes != nil {
		inv.Notes = *patch.Notes
	}
	if patch.IsPasswordProtected != nil {
		inv.IsPasswordProtected = *patch.IsPasswordProtected
	}
	if patch.Password != nil {
		inv.Password = *patch.Password
	}
	if patch.IsHosted != nil {
		inv.IsHosted = *patch.IsHosted
	}
}
