package models

import (
	"testing"
	"time"
)

func TestFormatInvoiceNumber(t *testing.T) {
	cases := []struct {
		invType InvoiceType
		year    int
		month   time.Month
		seq     int
		want    string
	}{
		{InvoiceTypeAppointment, 2026, time.March, 1, "APT-202603-0001"},
		{InvoiceTypePharmacy, 2026, time.December, 42, "PHR-202612-0042"},
		{InvoiceTypeProcedure, 2025, time.January, 9999, "PRC-202501-9999"},
		{InvoiceTypeLabTest, 2026, time.June, 7, "LAB-202606-0007"},
		{InvoiceTypePurchase, 2026, time.June, 10000, "PUR-202606-10000"},
		{InvoiceTypeMixed, 2026, time.September, 3, "MIX-202609-0003"},
	}
	for _, tc := range cases {
		got := FormatInvoiceNumber(tc.invType, tc.year, tc.month, tc.seq)
		if got != tc.want {
			t.Errorf("FormatInvoiceNumber(%s, %d, %s, %d) = %q, want %q",
				tc.invType, tc.year, tc.month, tc.seq, got, tc.want)
		}
	}
}

func TestParseInvoiceType(t *testing.T) {
	if _, ok := ParseInvoiceType("pharmacy"); !ok {
		t.Errorf("pharmacy should parse")
	}
	if _, ok := ParseInvoiceType("grooming"); ok {
		t.Errorf("unknown type should not parse")
	}
}

func TestDeriveStatus(t *testing.T) {
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	future := now.AddDate(0, 0, 7)
	past := now.AddDate(0, 0, -1)

	cases := []struct {
		name       string
		total      float64
		amountPaid float64
		dueDate    time.Time
		want       InvoiceStatus
	}{
		{"unpaid before due", 100, 0, future, StatusIssued},
		{"partially paid before due", 100, 40, future, StatusPartial},
		{"fully paid", 100, 100, future, StatusPaid},
		{"unpaid past due", 100, 0, past, StatusOverdue},
		{"partial past due", 100, 40, past, StatusOverdue},
		{"paid past due stays paid", 100, 100, past, StatusPaid},
		{"zero total unpaid", 0, 0, future, StatusIssued},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := DeriveStatus(tc.total, tc.amountPaid, tc.dueDate, now)
			if got != tc.want {
				t.Errorf("DeriveStatus(%.2f, %.2f) = %s, want %s", tc.total, tc.amountPaid, got, tc.want)
			}
		})
	}
}

func TestIsTerminal(t *testing.T) {
	if !StatusCancelled.IsTerminal() || !StatusRefunded.IsTerminal() {
		t.Errorf("cancelled and refunded are terminal")
	}
	for _, s := range []InvoiceStatus{StatusDraft, StatusIssued, StatusPartial, StatusPaid, StatusOverdue} {
		if s.IsTerminal() {
			t.Errorf("%s must not be terminal", s)
		}
	}
}

func TestPriceItem(t *testing.T) {
	it := LineItem{Quantity: 3, UnitPrice: 33.33, TaxRate: 18}
	PriceItem(&it)

	if it.TotalPrice != 99.99 {
		t.Errorf("expected net 99.99, got %.2f", it.TotalPrice)
	}
	if it.TaxAmount != 18.00 {
		t.Errorf("expected tax 18.00, got %.2f", it.TaxAmount)
	}
}

func TestComputeTotals(t *testing.T) {
	items := []LineItem{
		{Quantity: 1, UnitPrice: 500, TaxRate: 18},
		{Quantity: 2, UnitPrice: 100, TaxRate: 5},
	}
	for i := range items {
		PriceItem(&items[i])
	}

	subtotal, tax, total := ComputeTotals(items, 50)

	if subtotal != 700 {
		t.Errorf("expected subtotal 700, got %.2f", subtotal)
	}
	if tax != 100 {
		t.Errorf("expected tax 100, got %.2f", tax)
	}
	if total != 750 {
		t.Errorf("expected total 750, got %.2f", total)
	}
}

func TestValidPaymentMethod(t *testing.T) {
	for _, m := range []PaymentMethod{MethodCash, MethodCard, MethodUPI, MethodOnline, MethodBank} {
		if !ValidPaymentMethod(m) {
			t.Errorf("%s should be valid", m)
		}
	}
	if ValidPaymentMethod("cheque") {
		t.Errorf("unknown method must be rejected")
	}
}

func TestValidLineItemKind(t *testing.T) {
	for _, k := range []LineItemKind{ItemService, ItemMedicine, ItemProcedure, ItemLabTest} {
		if !ValidLineItemKind(k) {
			t.Errorf("%s should be valid", k)
		}
	}
	if ValidLineItemKind("equipment") {
		t.Errorf("unknown kind must be rejected")
	}
}
