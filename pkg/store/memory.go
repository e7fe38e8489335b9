package store

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"faktur/models"
)

// Memory is the reference Store: a single in-process map with a mutex so it
// can back an httptest server. Every mutation is visible to subsequent reads
// immediately. It provides no lost-update protection; multi-process
// deployments use the gorm store.
type Memory struct {
	mu       sync.RWMutex
	baseURL  string
	invoices map[string]*models.Invoice
	seq      map[string]uint64 // creation order tie-break
	nextSeq  uint64
}

// NewMemory returns an empty in-memory store. baseURL is the public prefix
// used to derive hosted view URLs.
func NewMemory(baseURL string) *Memory {
	return &Memory{
		baseURL:  strings.TrimRight(baseURL, "/"),
		invoices: map[string]*models.Invoice{},
		seq:      map[string]uint64{},
	}
}

// hostedURL joins the public base URL with the invoice id.
func hostedURL(baseURL, id string) string {
	return strings.TrimRight(baseURL, "/") + "/view/" + id
}

func (m *Memory) Get(id string) (*models.Invoice, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	inv, ok := m.invoices[id]
	if !ok {
		return nil, ErrNotFound
	}
	return copyInvoice(inv), nil
}

func (m *Memory) List() ([]models.Invoice, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]models.Invoice, 0, len(m.invoices))
	for _, inv := range m.invoices {
		out = append(out, *copyInvoice(inv))
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return m.seq[a.ID] > m.seq[b.ID]
	})
	return out, nil
}

func (m *Memory) FindByNumber(number string) (*models.Invoice, error) {
	all, err := m.List()
	if err != nil {
		return nil, err
	}
	// first match in creation order (oldest first), no uniqueness enforced
	for i := len(all) - 1; i >= 0; i-- {
		if all[i].InvoiceNumber == number {
			return &all[i], nil
		}
	}
	return nil, ErrNotFound
}

func (m *Memory) Create(inv *models.Invoice) (*models.Invoice, error) {
	if err := validateNew(inv); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	stored := copyInvoice(inv)
	stored.ID = uuid.NewString()
	if stored.Status == "" {
		stored.Status = models.StatusDraft
	}
	now := time.Now()
	stored.CreatedAt = now
	stored.UpdatedAt = now
	for i := range stored.LineItems {
		li := &stored.LineItems[i]
		li.ID = uuid.NewString()
		li.InvoiceID = stored.ID
		li.CreatedAt = now
		li.UpdatedAt = now
	}
	if err := stored.Recalculate(); err != nil {
		return nil, err
	}
	if stored.IsHosted {
		stored.HostedURL = hostedURL(m.baseURL, stored.ID)
	}

	m.invoices[stored.ID] = stored
	m.nextSeq++
	m.seq[stored.ID] = m.nextSeq
	return copyInvoice(stored), nil
}

func (m *Memory) Update(id string, patch InvoicePatch) (*models.Invoice, error) {
	if err := validatePatch(patch); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	inv, ok := m.invoices[id]
	if !ok {
		return nil, ErrNotFound
	}
	applyPatch(inv, patch)
	if patch.IsHosted != nil {
		if inv.IsHosted {
			inv.HostedURL = hostedURL(m.baseURL, inv.ID)
		} else {
			inv.HostedURL = ""
		}
	}
	inv.UpdatedAt = m.stamp(inv.UpdatedAt)
	return copyInvoice(inv), nil
}

func (m *Memory) Delete(id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.invoices[id]; !ok {
		return false, nil
	}
	delete(m.invoices, id)
	delete(m.seq, id)
	return true, nil
}

func (m *Memory) AddLineItem(invoiceID string, item models.LineItem) (*models.Invoice, error) {
	if err := validateItem(&item); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	inv, ok := m.invoices[invoiceID]
	if !ok {
		return nil, ErrNotFound
	}
	now := m.stamp(inv.UpdatedAt)
	item.ID = uuid.NewString()
	item.InvoiceID = invoiceID
	item.CreatedAt = now
	item.UpdatedAt = now
	inv.LineItems = append(inv.LineItems, item)
	if err := inv.Recalculate(); err != nil {
		inv.LineItems = inv.LineItems[:len(inv.LineItems)-1]
		return nil, err
	}
	inv.UpdatedAt = now
	return copyInvoice(inv), nil
}

func (m *Memory) UpdateLineItem(invoiceID, itemID string, patch LineItemPatch) (*models.Invoice, error) {
	if err := validateItemPatch(patch); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	inv, ok := m.invoices[invoiceID]
	if !ok {
		return nil, ErrNotFound
	}
	li := findItem(inv, itemID)
	if li == nil {
		return nil, ErrNotFound
	}
	if patch.Description != nil {
		li.Description = *patch.Description
	}
	if patch.Quantity != nil {
		li.Quantity = models.NormalizeQuantity(*patch.Quantity)
	}
	if patch.Rate != nil {
		li.Rate = *patch.Rate
	}
	now := m.stamp(inv.UpdatedAt)
	li.UpdatedAt = now
	if err := inv.Recalculate(); err != nil {
		return nil, err
	}
	inv.UpdatedAt = now
	return copyInvoice(inv), nil
}

func (m *Memory) DeleteLineItem(invoiceID, itemID string) (*models.Invoice, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	inv, ok := m.invoices[invoiceID]
	if !ok {
		return nil, ErrNotFound
	}
	idx := -1
	for i := range inv.LineItems {
		if inv.LineItems[i].ID == itemID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, ErrNotFound
	}
	inv.LineItems = append(inv.LineItems[:idx], inv.LineItems[idx+1:]...)
	if err := inv.Recalculate(); err != nil {
		return nil, err
	}
	inv.UpdatedAt = m.stamp(inv.UpdatedAt)
	return copyInvoice(inv), nil
}

// stamp returns a strictly increasing updatedAt, even when the clock has not
// advanced between two mutations.
func (m *Memory) stamp(prev time.Time) time.Time {
	now := time.Now()
	if !now.After(prev) {
		now = prev.Add(time.Nanosecond)
	}
	return now
}

func findItem(inv *models.Invoice, itemID string) *models.LineItem {
	for i := range inv.LineItems {
		if inv.LineItems[i].ID == itemID {
			return &inv.LineItems[i]
		}
	}
	return nil
}

// copyInvoice deep-copies an invoice so callers never alias store state.
func copyInvoice(inv *models.Invoice) *models.Invoice {
	cp := *inv
	cp.LineItems = make([]models.LineItem, len(inv.LineItems))
	copy(cp.LineItems, inv.LineItems)
	return &cp
}
