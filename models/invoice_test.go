package models

import "testing"

func TestRecalculateTotals(t *testing.T) {
	inv := Invoice{
		LineItems: []LineItem{
			{Description: "Web Design", Quantity: 1, Rate: "100.00"},
			{Description: "Logo", Quantity: 1, Rate: "250.00"},
		},
	}
	if err := inv.Recalculate(); err != nil {
		t.Fatalf("recalculate failed: %v", err)
	}
	if inv.Subtotal != "350.00" || inv.Tax != "0.00" || inv.Total != "350.00" {
		t.Fatalf("got subtotal=%q tax=%q total=%q, want 350.00/0.00/350.00", inv.Subtotal, inv.Tax, inv.Total)
	}
}

func TestRecalculateIgnoresStaleAmounts(t *testing.T) {
	// totals are derived from each item's own rate*quantity, never from a
	// caller-supplied amount
	inv := Invoice{
		LineItems: []LineItem{{Description: "Consulting", Quantity: 3, Rate: "19.99", Amount: "1.00"}},
	}
	if err := inv.Recalculate(); err != nil {
		t.Fatalf("recalculate failed: %v", err)
	}
	if inv.LineItems[0].Amount != "59.97" {
		t.Fatalf("item amount = %q, want 59.97", inv.LineItems[0].Amount)
	}
	if inv.Total != "59.97" {
		t.Fatalf("total = %q, want 59.97", inv.Total)
	}
}

func TestRecalculateEmptyInvoice(t *testing.T) {
	var inv Invoice
	if err := inv.Recalculate(); err != nil {
		t.Fatalf("recalculate failed: %v", err)
	}
	if inv.Subtotal != "0.00" || inv.Total != "0.00" {
		t.Fatalf("got subtotal=%q total=%q, want 0.00/0.00", inv.Subtotal, inv.Total)
	}
}

func TestValidStatus(t *testing.T) {
	for _, s := range []string{StatusDraft, StatusSent, StatusPaid, StatusOverdue} {
		if !ValidStatus(s) {
			t.Fatalf("expected %q to be valid", s)
		}
	}
	if ValidStatus("cancelled") {
		t.Fatal("expected unknown status to be invalid")
	}
}
