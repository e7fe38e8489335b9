package store

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"faktur/models"
)

// Gorm is the postgres-backed Store. Writes run in transactions so an
// invoice is never persisted without its items or totals; per-id reads after
// a committed write always observe it.
type Gorm struct {
	db      *gorm.DB
	baseURL string
}

// NewGorm wraps an opened gorm DB. baseURL is injected at construction, never
// read from the environment mid-operation.
func NewGorm(db *gorm.DB, baseURL string) *Gorm {
	return &Gorm{db: db, baseURL: strings.TrimRight(baseURL, "/")}
}

func (g *Gorm) Get(id string) (*models.Invoice, error) {
	var inv models.Invoice
	err := g.db.Preload("LineItems", func(db *gorm.DB) *gorm.DB {
		return db.Order("created_at ASC")
	}).First(&inv, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &inv, nil
}

func (g *Gorm) List() ([]models.Invoice, error) {
	var invs []models.Invoice
	err := g.db.Preload("LineItems", func(db *gorm.DB) *gorm.DB {
		return db.Order("created_at ASC")
	}).Order("created_at DESC").Find(&invs).Error
	if err != nil {
		return nil, err
	}
	return invs, nil
}

func (g *Gorm) FindByNumber(number string) (*models.Invoice, error) {
	var inv models.Invoice
	err := g.db.Preload("LineItems", func(db *gorm.DB) *gorm.DB {
		return db.Order("created_at ASC")
	}).Where("invoice_number = ?", number).Order("created_at ASC").First(&inv).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &inv, nil
}

func (g *Gorm) Create(inv *models.Invoice) (*models.Invoice, error) {
	if err := validateNew(inv); err != nil {
		return nil, err
	}
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
		stored.HostedURL = hostedURL(g.baseURL, stored.ID)
	}
	if err := g.db.Create(stored).Error; err != nil {
		return nil, err
	}
	return stored, nil
}

func (g *Gorm) Update(id string, patch InvoicePatch) (*models.Invoice, error) {
	if err := validatePatch(patch); err != nil {
		return nil, err
	}
	var out *models.Invoice
	err := g.db.Transaction(func(tx *gorm.DB) error {
		var inv models.Invoice
		if err := tx.First(&inv, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}
		applyPatch(&inv, patch)
		if patch.IsHosted != nil {
			if inv.IsHosted {
				inv.HostedURL = hostedURL(g.baseURL, inv.ID)
			} else {
				inv.HostedURL = ""
			}
		}
		if err := tx.Omit("LineItems").Save(&inv).Error; err != nil {
			return err
		}
		out = &inv
		return nil
	})
	if err != nil {
		return nil, err
	}
	return g.Get(out.ID)
}

func (g *Gorm) Delete(id string) (bool, error) {
	existed := false
	err := g.db.Transaction(func(tx *gorm.DB) error {
		var inv models.Invoice
		if err := tx.First(&inv, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil // existed stays false, no error escapes
			}
			return err
		}
		existed = true
		if err := tx.Where("invoice_id = ?", id).Delete(&models.LineItem{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Invoice{}, "id = ?", id).Error
	})
	if err != nil {
		return false, err
	}
	return existed, nil
}

func (g *Gorm) AddLineItem(invoiceID string, item models.LineItem) (*models.Invoice, error) {
	if err := validateItem(&item); err != nil {
		return nil, err
	}
	err := g.db.Transaction(func(tx *gorm.DB) error {
		inv, err := lockInvoice(tx, invoiceID)
		if err != nil {
			return err
		}
		now := time.Now()
		item.ID = uuid.NewString()
		item.InvoiceID = invoiceID
		item.CreatedAt = now
		item.UpdatedAt = now
		inv.LineItems = append(inv.LineItems, item)
		if err := inv.Recalculate(); err != nil {
			return err
		}
		if err := tx.Create(&inv.LineItems[len(inv.LineItems)-1]).Error; err != nil {
			return err
		}
		return saveTotals(tx, inv)
	})
	if err != nil {
		return nil, err
	}
	return g.Get(invoiceID)
}

func (g *Gorm) UpdateLineItem(invoiceID, itemID string, patch LineItemPatch) (*models.Invoice, error) {
	if err := validateItemPatch(patch); err != nil {
		return nil, err
	}
	err := g.db.Transaction(func(tx *gorm.DB) error {
		inv, err := lockInvoice(tx, invoiceID)
		if err != nil {
			return err
		}
		li := findItem(inv, itemID)
		if li == nil {
			return ErrNotFound
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
		li.UpdatedAt = time.Now()
		if err := inv.Recalculate(); err != nil {
			return err
		}
		if err := tx.Save(li).Error; err != nil {
			return err
		}
		return saveTotals(tx, inv)
	})
	if err != nil {
		return nil, err
	}
	return g.Get(invoiceID)
}

func (g *Gorm) DeleteLineItem(invoiceID, itemID string) (*models.Invoice, error) {
	err := g.db.Transaction(func(tx *gorm.DB) error {
		inv, err := lockInvoice(tx, invoiceID)
		if err != nil {
			return err
		}
		idx := -1
		for i := range inv.LineItems {
			if inv.LineItems[i].ID == itemID {
				idx = i
				break
			}
		}
		if idx < 0 {
			return ErrNotFound
		}
		if err := tx.Delete(&models.LineItem{}, "id = ?", itemID).Error; err != nil {
			return err
		}
		inv.LineItems = append(inv.LineItems[:idx], inv.LineItems[idx+1:]...)
		if err := inv.Recalculate(); err != nil {
			return err
		}
		return saveTotals(tx, inv)
	})
	if err != nil {
		return nil, err
	}
	return g.Get(invoiceID)
}

// lockInvoice loads an invoice with its items inside tx, or ErrNotFound.
func lockInvoice(tx *gorm.DB, id string) (*models.Invoice, error) {
	var inv models.Invoice
	err := tx.Preload("LineItems", func(db *gorm.DB) *gorm.DB {
		return db.Order("created_at ASC")
	}).First(&inv, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &inv, nil
}

// saveTotals persists the recomputed derived columns and bumps updated_at.
func saveTotals(tx *gorm.DB, inv *models.Invoice) error {
	return tx.Model(&models.Invoice{}).Where("id = ?", inv.ID).Updates(map[string]any{
		"subtotal":   inv.Subtotal,
		"tax":        inv.Tax,
		"total":      inv.Total,
		"updated_at": time.Now(),
	}).Error
}
