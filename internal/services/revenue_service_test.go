package services

import (
	"context"
	"reflect"
	"testing"
	"time"

	"clinic-backend/internal/models"
	"clinic-backend/internal/timeutil"
)

func reportFixture() (*models.RevenueFilter, []*models.Invoice, map[int]*models.Practitioner) {
	day1 := time.Date(2026, 3, 2, 10, 0, 0, 0, timeutil.IST)
	day2 := time.Date(2026, 3, 3, 15, 30, 0, 0, timeutil.IST)

	filter := &models.RevenueFilter{
		Start: time.Date(2026, 3, 1, 0, 0, 0, 0, timeutil.IST),
		End:   time.Date(2026, 4, 1, 0, 0, 0, 0, timeutil.IST),
	}

	invoices := []*models.Invoice{
		{
			ID: 1, Type: models.InvoiceTypeAppointment, Status: models.StatusPaid,
			PractitionerID: intPtr(1), DepartmentID: intPtr(10),
			IssueDate: day1, Total: 1000, AmountPaid: 1000, BalanceDue: 0,
			Payments: []models.Payment{{Amount: 1000, Method: models.MethodCash}},
		},
		{
			ID: 2, Type: models.InvoiceTypeProcedure, Status: models.StatusPartial,
			PractitionerID: intPtr(2), DepartmentID: intPtr(10),
			IssueDate: day1, Total: 2000, AmountPaid: 500, BalanceDue: 1500,
			Payments: []models.Payment{{Amount: 500, Method: models.MethodUPI}},
		},
		{
			ID: 3, Type: models.InvoiceTypePharmacy, Status: models.StatusPaid,
			IssueDate: day2, Total: 300, AmountPaid: 300, BalanceDue: 0,
			Items:    []models.LineItem{{Kind: models.ItemMedicine, TotalPrice: 300}},
			Payments: []models.Payment{{Amount: 300, Method: models.MethodCash}},
		},
	}

	practitioners := map[int]*models.Practitioner{
		1: {ID: 1, Name: "Dr. Rao", EmploymentType: models.EmploymentVisiting},
		2: {ID: 2, Name: "Dr. Iyer", EmploymentType: models.EmploymentFullTime},
	}
	return filter, invoices, practitioners
}

func TestBuildRevenueReportTotals(t *testing.T) {
	filter, invoices, practitioners := reportFixture()
	commission := NewCommissionService(30)

	report := BuildRevenueReport(filter, invoices, practitioners, commission)

	if report.InvoiceCount != 3 {
		t.Fatalf("expected 3 invoices, got %d", report.InvoiceCount)
	}
	if report.TotalRevenue != 3300 {
		t.Fatalf("expected total 3300, got %.2f", report.TotalRevenue)
	}
	if report.Collected != 1800 {
		t.Fatalf("expected collected 1800, got %.2f", report.Collected)
	}
	if report.Outstanding != 1500 {
		t.Fatalf("expected outstanding 1500, got %.2f", report.Outstanding)
	}

	// Dr. Rao earns 30% of 1000; Dr. Iyer is salaried; pharmacy attributes nothing.
	if report.PractitionerEarning != 300 {
		t.Fatalf("expected practitioner earnings 300, got %.2f", report.PractitionerEarning)
	}
	if report.FacilityShare != 3000 {
		t.Fatalf("expected facility share 3000, got %.2f", report.FacilityShare)
	}
	if report.UnattributedRevenue != 0 {
		t.Fatalf("expected no unattributed gross, got %.2f", report.UnattributedRevenue)
	}

	if report.ByType[models.InvoiceTypeAppointment] != 1000 ||
		report.ByType[models.InvoiceTypeProcedure] != 2000 ||
		report.ByType[models.InvoiceTypePharmacy] != 300 {
		t.Fatalf("unexpected type breakdown: %v", report.ByType)
	}
}

func TestBuildRevenueReportDailyBuckets(t *testing.T) {
	filter, invoices, practitioners := reportFixture()
	report := BuildRevenueReport(filter, invoices, practitioners, NewCommissionService(30))

	if len(report.ByDay) != 2 {
		t.Fatalf("expected 2 day buckets, got %d", len(report.ByDay))
	}
	if report.ByDay[0].Date != "2026-03-02" || report.ByDay[1].Date != "2026-03-03" {
		t.Fatalf("days must be ascending: %s, %s", report.ByDay[0].Date, report.ByDay[1].Date)
	}
	if report.ByDay[0].Revenue != 3000 || report.ByDay[0].InvoiceCount != 2 {
		t.Fatalf("first day bucket wrong: %+v", report.ByDay[0])
	}
	if report.ByDay[1].Collected != 300 {
		t.Fatalf("second day collected wrong: %+v", report.ByDay[1])
	}
}

func TestBuildRevenueReportMethodFilterScopesCollected(t *testing.T) {
	filter, invoices, practitioners := reportFixture()
	filter.Method = models.MethodCash

	report := BuildRevenueReport(filter, invoices, practitioners, NewCommissionService(30))

	// The UPI payment drops out of collected; revenue and count are untouched.
	if report.Collected != 1300 {
		t.Fatalf("expected cash-only collected 1300, got %.2f", report.Collected)
	}
	if report.TotalRevenue != 3300 || report.InvoiceCount != 3 {
		t.Fatalf("invoice set must not shrink under a method filter")
	}
}

func TestBuildRevenueReportIsReferentiallyTransparent(t *testing.T) {
	filter, invoices, practitioners := reportFixture()
	commission := NewCommissionService(30)

	first := BuildRevenueReport(filter, invoices, practitioners, commission)
	second := BuildRevenueReport(filter, invoices, practitioners, commission)

	if !reflect.DeepEqual(first, second) {
		t.Fatalf("same input must fold to the same report")
	}
}

func TestBuildRevenueReportUnattributedInvoice(t *testing.T) {
	filter, _, practitioners := reportFixture()
	invoices := []*models.Invoice{{
		ID: 5, Type: models.InvoiceTypeLabTest, Status: models.StatusIssued,
		IssueDate: filter.Start.Add(24 * time.Hour), Total: 450, BalanceDue: 450,
	}}

	report := BuildRevenueReport(filter, invoices, practitioners, NewCommissionService(30))

	if report.UnattributedRevenue != 450 {
		t.Fatalf("expected unattributed 450, got %.2f", report.UnattributedRevenue)
	}
	if len(report.ByPractitioner) != 0 {
		t.Fatalf("no practitioner rows expected, got %d", len(report.ByPractitioner))
	}
	if report.FacilityShare != 450 {
		t.Fatalf("facility keeps unattributed gross, got %.2f", report.FacilityShare)
	}
}

func TestRevenueReportRejectsInvertedWindow(t *testing.T) {
	store := newMemInvoiceStore()
	practitioners := &memPractitionerStore{practitioners: map[int]*models.Practitioner{}}
	svc := NewRevenueService(store, practitioners, NewCommissionService(30))

	now := timeutil.Now()
	_, err := svc.Report(context.Background(), &models.RevenueFilter{Start: now, End: now.Add(-time.Hour)})
	if err == nil {
		t.Fatalf("expected inverted window to be rejected")
	}
}

func TestRevenueReportExcludesTerminalInvoices(t *testing.T) {
	store := newMemInvoiceStore()
	practitioners := &memPractitionerStore{practitioners: map[int]*models.Practitioner{}}
	invoices := NewInvoiceService(store, practitioners, 7)
	revenue := NewRevenueService(store, practitioners, NewCommissionService(30))
	ctx := context.Background()

	keep, err := invoices.Create(ctx, models.InvoiceTypeAppointment, &models.CreateInvoiceRequest{
		CustomerName: "Asha Verma",
		Items:        []models.LineItemRequest{serviceItem("Consultation", 1, 500, 0)},
	}, 1)
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	void, err := invoices.Create(ctx, models.InvoiceTypeAppointment, &models.CreateInvoiceRequest{
		CustomerName: "Walk-in",
		Items:        []models.LineItemRequest{serviceItem("Consultation", 1, 900, 0)},
	}, 1)
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if _, err := invoices.Cancel(ctx, void.ID); err != nil {
		t.Fatalf("cancel failed: %v", err)
	}

	now := timeutil.Now()
	report, err := revenue.Report(ctx, &models.RevenueFilter{Start: now.Add(-time.Hour), End: now.Add(time.Hour)})
	if err != nil {
		t.Fatalf("report failed: %v", err)
	}
	if report.InvoiceCount != 1 || report.TotalRevenue != keep.Total {
		t.Fatalf("cancelled invoice leaked into report: count %d total %.2f",
			report.InvoiceCount, report.TotalRevenue)
	}
}
