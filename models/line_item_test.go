package models

import "testing"

func TestComputeAmount(t *testing.T) {
	cases := []struct {
		rate     string
		quantity int
		want     string
	}{
		{"100.00", 1, "100.00"},
		{"19.99", 3, "59.97"},
		{"0.00", 5, "0.00"},
		{"250.00", 0, "250.00"}, // quantity defaults to 1
		{"250.00", -2, "250.00"},
		{"10", 2, "20.00"},
		{"0.105", 2, "0.21"},
	}
	for _, c := range cases {
		got, err := ComputeAmount(c.rate, c.quantity)
		if err != nil {
			t.Fatalf("ComputeAmount(%q, %d) unexpected error: %v", c.rate, c.quantity, err)
		}
		if got != c.want {
			t.Fatalf("ComputeAmount(%q, %d) = %q, want %q", c.rate, c.quantity, got, c.want)
		}
	}
}

func TestComputeAmountRejectsBadRates(t *testing.T) {
	if _, err := ComputeAmount("abc", 1); err == nil {
		t.Fatal("expected error for unparseable rate")
	}
	if _, err := ComputeAmount("-5.00", 1); err == nil {
		t.Fatal("expected error for negative rate")
	}
	if _, err := ComputeAmount("", 1); err == nil {
		t.Fatal("expected error for empty rate")
	}
}

func TestRecomputeRefreshesAmount(t *testing.T) {
	li := LineItem{Description: "Web Design", Quantity: 3, Rate: "19.99", Amount: "999.99"}
	if err := li.Recompute(); err != nil {
		t.Fatalf("recompute failed: %v", err)
	}
	if li.Amount != "59.97" {
		t.Fatalf("amount = %q, want 59.97", li.Amount)
	}
}
