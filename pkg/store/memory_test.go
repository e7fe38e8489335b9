package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"faktur/models"
)

const testBaseURL = "https://invoices.example.com"

func newTestInvoice() *models.Invoice {
	return &models.Invoice{
		InvoiceNumber: "INV-001",
		CompanyName:   "Acme Studio",
		CompanyEmail:  "billing@acme.test",
		ClientName:    "Globex",
		ClientEmail:   "ap@globex.test",
		InvoiceDate:   "2026-08-01",
		LineItems: []models.LineItem{
			{Description: "Web Design", Quantity: 1, Rate: "100.00"},
			{Description: "Logo", Quantity: 1, Rate: "250.00"},
		},
	}
}

func TestCreateDerivesTotals(t *testing.T) {
	m := NewMemory(testBaseURL)
	created, err := m.Create(newTestInvoice())
	require.NoError(t, err)

	assert.NotEmpty(t, created.ID)
	assert.Equal(t, models.StatusDraft, created.Status)
	assert.Equal(t, "350.00", created.Subtotal)
	assert.Equal(t, "0.00", created.Tax)
	assert.Equal(t, "350.00", created.Total)
	require.Len(t, created.LineItems, 2)
	for _, li := range created.LineItems {
		assert.NotEmpty(t, li.ID)
		assert.Equal(t, created.ID, li.InvoiceID)
	}
	assert.Equal(t, "100.00", created.LineItems[0].Amount)
	assert.Equal(t, "250.00", created.LineItems[1].Amount)
}

func TestCreateQuantityMath(t *testing.T) {
	m := NewMemory(testBaseURL)
	inv := newTestInvoice()
	inv.LineItems = []models.LineItem{{Description: "Consulting", Quantity: 3, Rate: "19.99"}}
	created, err := m.Create(inv)
	require.NoError(t, err)
	assert.Equal(t, "59.97", created.LineItems[0].Amount)
	assert.Equal(t, "59.97", created.Total)
}

func TestCreateIgnoresCallerAmounts(t *testing.T) {
	m := NewMemory(testBaseURL)
	inv := newTestInvoice()
	inv.LineItems[0].Amount = "9999.99"
	inv.Subtotal = "1.00"
	inv.Total = "1.00"
	created, err := m.Create(inv)
	require.NoError(t, err)
	assert.Equal(t, "100.00", created.LineItems[0].Amount)
	assert.Equal(t, "350.00", created.Total)
}

func TestCreateEmptyInvoice(t *testing.T) {
	m := NewMemory(testBaseURL)
	inv := newTestInvoice()
	inv.LineItems = nil
	created, err := m.Create(inv)
	require.NoError(t, err)
	assert.Equal(t, "0.00", created.Subtotal)
	assert.Equal(t, "0.00", created.Total)
}

func TestCreateFailsClosed(t *testing.T) {
	m := NewMemory(testBaseURL)
	inv := newTestInvoice()
	inv.LineItems[1].Rate = "not-a-number"

	_, err := m.Create(inv)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "lineItems[1].rate")

	// nothing was persisted
	all, err := m.List()
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestCreateRequiredFields(t *testing.T) {
	m := NewMemory(testBaseURL)
	_, err := m.Create(&models.Invoice{})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	for _, field := range []string{"companyName", "companyEmail", "clientName", "clientEmail", "invoiceDate"} {
		assert.Contains(t, verr.Fields, field)
	}
}

func TestCreateHostedURL(t *testing.T) {
	m := NewMemory(testBaseURL)
	inv := newTestInvoice()
	inv.IsHosted = true
	created, err := m.Create(inv)
	require.NoError(t, err)
	assert.Equal(t, testBaseURL+"/view/"+created.ID, created.HostedURL)

	// unhosted invoices get no URL
	created2, err := m.Create(newTestInvoice())
	require.NoError(t, err)
	assert.Empty(t, created2.HostedURL)
}

func TestGetRoundTrip(t *testing.T) {
	m := NewMemory(testBaseURL)
	created, err := m.Create(newTestInvoice())
	require.NoError(t, err)

	got, err := m.Get(created.ID)
	require.NoError(t, err)
	assert.Equal(t, created, got)
}

func TestGetUnknownID(t *testing.T) {
	m := NewMemory(testBaseURL)
	_, err := m.Get("nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListNewestFirst(t *testing.T) {
	m := NewMemory(testBaseURL)
	first, err := m.Create(newTestInvoice())
	require.NoError(t, err)
	second := newTestInvoice()
	second.InvoiceNumber = "INV-002"
	created2, err := m.Create(second)
	require.NoError(t, err)

	all, err := m.List()
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, created2.ID, all[0].ID)
	assert.Equal(t, first.ID, all[1].ID)
}

func TestFindByNumber(t *testing.T) {
	m := NewMemory(testBaseURL)
	created, err := m.Create(newTestInvoice())
	require.NoError(t, err)

	// duplicate number: first match wins, no uniqueness enforced
	dup := newTestInvoice()
	_, err = m.Create(dup)
	require.NoError(t, err)

	got, err := m.FindByNumber("INV-001")
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)

	_, err = m.FindByNumber("INV-404")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpdateMergesPartialFields(t *testing.T) {
	m := NewMemory(testBaseURL)
	created, err := m.Create(newTestInvoice())
	require.NoError(t, err)

	notes := "net 30"
	status := models.StatusPaid
	updated, err := m.Update(created.ID, InvoicePatch{Notes: &notes, Status: &status})
	require.NoError(t, err)

	assert.Equal(t, "net 30", updated.Notes)
	assert.Equal(t, models.StatusPaid, updated.Status)
	// unspecified fields stay put
	assert.Equal(t, created.CompanyName, updated.CompanyName)
	assert.Equal(t, created.InvoiceDate, updated.InvoiceDate)
	assert.Equal(t, created.LineItems, updated.LineItems)
	// updatedAt strictly increases
	assert.True(t, updated.UpdatedAt.After(created.UpdatedAt))

	got, err := m.Get(created.ID)
	require.NoError(t, err)
	assert.Equal(t, updated, got)
}

func TestUpdateDoesNotRecomputeTotals(t *testing.T) {
	// regression pin: a plain invoice update never touches line items or
	// re-derives totals; only line item operations do
	m := NewMemory(testBaseURL)
	created, err := m.Create(newTestInvoice())
	require.NoError(t, err)

	number := "INV-099"
	updated, err := m.Update(created.ID, InvoicePatch{InvoiceNumber: &number})
	require.NoError(t, err)
	assert.Equal(t, created.Subtotal, updated.Subtotal)
	assert.Equal(t, created.Total, updated.Total)
	assert.Equal(t, created.LineItems, updated.LineItems)
}

func TestUpdateHostingFlag(t *testing.T) {
	m := NewMemory(testBaseURL)
	created, err := m.Create(newTestInvoice())
	require.NoError(t, err)

	hosted := true
	updated, err := m.Update(created.ID, InvoicePatch{IsHosted: &hosted})
	require.NoError(t, err)
	assert.Equal(t, testBaseURL+"/view/"+created.ID, updated.HostedURL)

	hosted = false
	updated, err = m.Update(created.ID, InvoicePatch{IsHosted: &hosted})
	require.NoError(t, err)
	assert.Empty(t, updated.HostedURL)
}

func TestUpdateUnknownID(t *testing.T) {
	m := NewMemory(testBaseURL)
	notes := "x"
	_, err := m.Update("nope", InvoicePatch{Notes: &notes})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpdateRejectsBadStatus(t *testing.T) {
	m := NewMemory(testBaseURL)
	created, err := m.Create(newTestInvoice())
	require.NoError(t, err)

	bad := "cancelled"
	_, err = m.Update(created.ID, InvoicePatch{Status: &bad})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "status")
}

func TestDeleteCascades(t *testing.T) {
	m := NewMemory(testBaseURL)
	created, err := m.Create(newTestInvoice())
	require.NoError(t, err)

	existed, err := m.Delete(created.ID)
	require.NoError(t, err)
	assert.True(t, existed)

	_, err = m.Get(created.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	// the cascaded items are gone too
	_, err = m.DeleteLineItem(created.ID, created.LineItems[0].ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteUnknownID(t *testing.T) {
	m := NewMemory(testBaseURL)
	existed, err := m.Delete("nope")
	require.NoError(t, err)
	assert.False(t, existed)
}

func TestAddLineItemRecomputesTotals(t *testing.T) {
	m := NewMemory(testBaseURL)
	created, err := m.Create(newTestInvoice())
	require.NoError(t, err)

	updated, err := m.AddLineItem(created.ID, models.LineItem{Description: "Hosting", Quantity: 2, Rate: "25.50"})
	require.NoError(t, err)
	require.Len(t, updated.LineItems, 3)
	assert.Equal(t, "51.00", updated.LineItems[2].Amount)
	assert.Equal(t, "401.00", updated.Subtotal)
	assert.Equal(t, "401.00", updated.Total)
	assert.True(t, updated.UpdatedAt.After(created.UpdatedAt))
}

func TestAddLineItemValidation(t *testing.T) {
	m := NewMemory(testBaseURL)
	created, err := m.Create(newTestInvoice())
	require.NoError(t, err)

	_, err = m.AddLineItem(created.ID, models.LineItem{Description: "Bad", Rate: "oops"})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "rate")

	got, err := m.Get(created.ID)
	require.NoError(t, err)
	assert.Len(t, got.LineItems, 2)
}

func TestUpdateLineItemRecomputesAmount(t *testing.T) {
	m := NewMemory(testBaseURL)
	created, err := m.Create(newTestInvoice())
	require.NoError(t, err)

	qty := 4
	updated, err := m.UpdateLineItem(created.ID, created.LineItems[0].ID, LineItemPatch{Quantity: &qty})
	require.NoError(t, err)
	assert.Equal(t, "400.00", updated.LineItems[0].Amount)
	assert.Equal(t, "650.00", updated.Subtotal)
	assert.Equal(t, "650.00", updated.Total)

	rate := "10.00"
	updated, err = m.UpdateLineItem(created.ID, created.LineItems[0].ID, LineItemPatch{Rate: &rate})
	require.NoError(t, err)
	assert.Equal(t, "40.00", updated.LineItems[0].Amount)
	assert.Equal(t, "290.00", updated.Total)
}

func TestUpdateLineItemUnknownItem(t *testing.T) {
	m := NewMemory(testBaseURL)
	created, err := m.Create(newTestInvoice())
	require.NoError(t, err)

	desc := "x"
	_, err = m.UpdateLineItem(created.ID, "nope", LineItemPatch{Description: &desc})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteLineItemRecomputesTotals(t *testing.T) {
	m := NewMemory(testBaseURL)
	created, err := m.Create(newTestInvoice())
	require.NoError(t, err)

	updated, err := m.DeleteLineItem(created.ID, created.LineItems[1].ID)
	require.NoError(t, err)
	require.Len(t, updated.LineItems, 1)
	assert.Equal(t, "100.00", updated.Subtotal)
	assert.Equal(t, "100.00", updated.Total)
}

func TestReturnedInvoicesDoNotAliasStoreState(t *testing.T) {
	m := NewMemory(testBaseURL)
	created, err := m.Create(newTestInvoice())
	require.NoError(t, err)

	created.LineItems[0].Amount = "corrupted"
	created.Total = "corrupted"

	got, err := m.Get(created.ID)
	require.NoError(t, err)
	assert.Equal(t, "100.00", got.LineItems[0].Amount)
	assert.Equal(t, "350.00", got.Total)
}
