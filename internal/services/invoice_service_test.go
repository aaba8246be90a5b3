package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"clinic-backend/internal/models"
	"clinic-backend/internal/timeutil"
)

func newTestInvoiceService() (*InvoiceService, *memInvoiceStore) {
	store := newMemInvoiceStore()
	practitioners := &memPractitionerStore{practitioners: map[int]*models.Practitioner{
		1: {ID: 1, Name: "Dr. Rao", EmploymentType: models.EmploymentVisiting},
	}}
	return NewInvoiceService(store, practitioners, 7), store
}

func serviceItem(desc string, qty int, price, taxRate float64) models.LineItemRequest {
	return models.LineItemRequest{
		Kind:        models.ItemService,
		Description: desc,
		Quantity:    qty,
		UnitPrice:   price,
		TaxRate:     taxRate,
	}
}

func TestCreateInvoiceAssignsNumberAndTotals(t *testing.T) {
	svc, _ := newTestInvoiceService()

	inv, err := svc.Create(context.Background(), models.InvoiceTypeAppointment, &models.CreateInvoiceRequest{
		CustomerName: "Asha Verma",
		Items: []models.LineItemRequest{
			serviceItem("Consultation", 1, 500, 18),
			serviceItem("Dressing", 2, 100, 18),
		},
	}, 42)
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	if !strings.HasPrefix(inv.InvoiceNumber, "APT-") {
		t.Fatalf("expected APT prefix, got %s", inv.InvoiceNumber)
	}
	if inv.Subtotal != 700 {
		t.Fatalf("expected subtotal 700, got %.2f", inv.Subtotal)
	}
	if inv.Tax != 126 {
		t.Fatalf("expected tax 126, got %.2f", inv.Tax)
	}
	if inv.Total != 826 {
		t.Fatalf("expected total 826, got %.2f", inv.Total)
	}
	if inv.Status != models.StatusIssued {
		t.Fatalf("unpaid invoice should be issued, got %s", inv.Status)
	}
	if inv.BalanceDue != inv.Total {
		t.Fatalf("balance should equal total, got %.2f", inv.BalanceDue)
	}
	if inv.CreatedBy != 42 {
		t.Fatalf("expected actor 42, got %d", inv.CreatedBy)
	}
}

func TestCreateInvoiceSequencePerType(t *testing.T) {
	svc, _ := newTestInvoiceService()
	ctx := context.Background()

	req := func() *models.CreateInvoiceRequest {
		return &models.CreateInvoiceRequest{
			CustomerName: "Walk-in",
			Items:        []models.LineItemRequest{serviceItem("X-Ray", 1, 300, 0)},
		}
	}

	first, err := svc.Create(ctx, models.InvoiceTypeLabTest, req(), 1)
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	second, err := svc.Create(ctx, models.InvoiceTypeLabTest, req(), 1)
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	other, err := svc.Create(ctx, models.InvoiceTypeProcedure, req(), 1)
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	if !strings.HasSuffix(first.InvoiceNumber, "-0001") || !strings.HasSuffix(second.InvoiceNumber, "-0002") {
		t.Fatalf("lab sequence: %s then %s", first.InvoiceNumber, second.InvoiceNumber)
	}
	if !strings.HasSuffix(other.InvoiceNumber, "-0001") {
		t.Fatalf("procedure counter is independent, got %s", other.InvoiceNumber)
	}
}

func TestCreateInvoiceRejectsEmptyItemList(t *testing.T) {
	svc, store := newTestInvoiceService()

	_, err := svc.Create(context.Background(), models.InvoiceTypeAppointment, &models.CreateInvoiceRequest{
		CustomerName: "Asha Verma",
		Items:        []models.LineItemRequest{},
	}, 1)

	var ve *models.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected validation error, got %v", err)
	}
	// No sequence number may be consumed by the rejected request.
	if n := store.seq[models.InvoiceTypeAppointment]; n != 0 {
		t.Fatalf("rejected invoice consumed sequence number %d", n)
	}
}

func TestCreateInvoiceRejectsMedicineItemWithoutBatch(t *testing.T) {
	svc, _ := newTestInvoiceService()

	_, err := svc.Create(context.Background(), models.InvoiceTypeMixed, &models.CreateInvoiceRequest{
		CustomerName: "Asha Verma",
		Items: []models.LineItemRequest{{
			Kind:        models.ItemMedicine,
			Description: "Paracetamol 500mg",
			MedicineID:  intPtr(1),
			Quantity:    10,
			UnitPrice:   2,
		}},
	}, 1)

	var ve *models.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestCreatePurchaseInvoiceAllowsMedicineWithoutBatch(t *testing.T) {
	svc, _ := newTestInvoiceService()

	inv, err := svc.Create(context.Background(), models.InvoiceTypePurchase, &models.CreateInvoiceRequest{
		CustomerName: "MedSupply Pvt Ltd",
		Items: []models.LineItemRequest{{
			Kind:        models.ItemMedicine,
			Description: "Paracetamol 500mg x500",
			MedicineID:  intPtr(1),
			Quantity:    500,
			UnitPrice:   1.2,
		}},
	}, 1)
	if err != nil {
		t.Fatalf("purchase create failed: %v", err)
	}
	if !strings.HasPrefix(inv.InvoiceNumber, "PUR-") {
		t.Fatalf("expected PUR prefix, got %s", inv.InvoiceNumber)
	}
}

func TestCreateInvoiceRejectsStockRefOnServiceItem(t *testing.T) {
	svc, _ := newTestInvoiceService()

	_, err := svc.Create(context.Background(), models.InvoiceTypeAppointment, &models.CreateInvoiceRequest{
		CustomerName: "Asha Verma",
		Items: []models.LineItemRequest{{
			Kind:        models.ItemService,
			Description: "Consultation",
			BatchID:     intPtr(5),
			Quantity:    1,
			UnitPrice:   500,
		}},
	}, 1)

	var ve *models.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestCreateInvoiceRejectsDiscountAboveSubtotal(t *testing.T) {
	svc, _ := newTestInvoiceService()

	_, err := svc.Create(context.Background(), models.InvoiceTypeAppointment, &models.CreateInvoiceRequest{
		CustomerName: "Asha Verma",
		Discount:     600,
		Items:        []models.LineItemRequest{serviceItem("Consultation", 1, 500, 0)},
	}, 1)

	var ve *models.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestCreateInvoiceRejectsUnknownPractitioner(t *testing.T) {
	svc, _ := newTestInvoiceService()

	_, err := svc.Create(context.Background(), models.InvoiceTypeAppointment, &models.CreateInvoiceRequest{
		CustomerName:   "Asha Verma",
		PractitionerID: intPtr(99),
		Items:          []models.LineItemRequest{serviceItem("Consultation", 1, 500, 0)},
	}, 1)

	if !models.IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestCreateInvoiceWithImmediateFullPayment(t *testing.T) {
	svc, _ := newTestInvoiceService()

	inv, err := svc.Create(context.Background(), models.InvoiceTypePharmacy, &models.CreateInvoiceRequest{
		CustomerName: "Walk-in",
		Items:        []models.LineItemRequest{serviceItem("OTC sale", 1, 150, 0)},
		ImmediatePayment: &models.RecordPaymentRequest{
			Amount: 150,
			Method: models.MethodCash,
		},
	}, 1)
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	if inv.Status != models.StatusPaid {
		t.Fatalf("expected paid, got %s", inv.Status)
	}
	if inv.BalanceDue != 0 {
		t.Fatalf("expected zero balance, got %.2f", inv.BalanceDue)
	}
	if len(inv.Payments) != 1 {
		t.Fatalf("expected one payment, got %d", len(inv.Payments))
	}
}

func TestCreateInvoiceRejectsImmediateOverpayment(t *testing.T) {
	svc, _ := newTestInvoiceService()

	_, err := svc.Create(context.Background(), models.InvoiceTypeAppointment, &models.CreateInvoiceRequest{
		CustomerName: "Asha Verma",
		Items:        []models.LineItemRequest{serviceItem("Consultation", 1, 500, 0)},
		ImmediatePayment: &models.RecordPaymentRequest{
			Amount: 501,
			Method: models.MethodUPI,
		},
	}, 1)

	var op *models.OverpaymentError
	if !errors.As(err, &op) {
		t.Fatalf("expected overpayment error, got %v", err)
	}
}

func TestRecordPaymentLifecycle(t *testing.T) {
	svc, store := newTestInvoiceService()
	payments := NewPaymentService(store)
	ctx := context.Background()

	inv, err := svc.Create(ctx, models.InvoiceTypeProcedure, &models.CreateInvoiceRequest{
		CustomerName: "Asha Verma",
		Items:        []models.LineItemRequest{serviceItem("Suturing", 1, 1000, 0)},
	}, 1)
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	inv, err = payments.Record(ctx, inv.ID, &models.RecordPaymentRequest{Amount: 400, Method: models.MethodCash}, 1)
	if err != nil {
		t.Fatalf("partial payment failed: %v", err)
	}
	if inv.Status != models.StatusPartial {
		t.Fatalf("expected partial, got %s", inv.Status)
	}
	if inv.BalanceDue != 600 {
		t.Fatalf("expected balance 600, got %.2f", inv.BalanceDue)
	}

	// Settling the balance exactly flips to paid.
	inv, err = payments.Record(ctx, inv.ID, &models.RecordPaymentRequest{Amount: 600, Method: models.MethodCard}, 1)
	if err != nil {
		t.Fatalf("settling payment failed: %v", err)
	}
	if inv.Status != models.StatusPaid {
		t.Fatalf("expected paid, got %s", inv.Status)
	}

	_, err = payments.Record(ctx, inv.ID, &models.RecordPaymentRequest{Amount: 1, Method: models.MethodCash}, 1)
	var op *models.OverpaymentError
	if !errors.As(err, &op) {
		t.Fatalf("expected overpayment on settled invoice, got %v", err)
	}
}

func TestRecordPaymentValidation(t *testing.T) {
	_, store := newTestInvoiceService()
	payments := NewPaymentService(store)
	ctx := context.Background()

	cases := []struct {
		name string
		req  models.RecordPaymentRequest
	}{
		{"unknown method", models.RecordPaymentRequest{Amount: 10, Method: "barter"}},
		{"zero amount", models.RecordPaymentRequest{Amount: 0, Method: models.MethodCash}},
		{"negative amount", models.RecordPaymentRequest{Amount: -5, Method: models.MethodCash}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := payments.Record(ctx, 1, &tc.req, 1)
			var ve *models.ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}
}

func TestPaymentRejectedOnCancelledInvoice(t *testing.T) {
	svc, store := newTestInvoiceService()
	payments := NewPaymentService(store)
	ctx := context.Background()

	inv, err := svc.Create(ctx, models.InvoiceTypeAppointment, &models.CreateInvoiceRequest{
		CustomerName: "Asha Verma",
		Items:        []models.LineItemRequest{serviceItem("Consultation", 1, 500, 0)},
	}, 1)
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	if _, err := svc.Cancel(ctx, inv.ID); err != nil {
		t.Fatalf("cancel failed: %v", err)
	}

	_, err = payments.Record(ctx, inv.ID, &models.RecordPaymentRequest{Amount: 100, Method: models.MethodCash}, 1)
	var ve *models.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected validation error on terminal invoice, got %v", err)
	}
}

func TestCancelIsNotRepeatable(t *testing.T) {
	svc, _ := newTestInvoiceService()
	ctx := context.Background()

	inv, err := svc.Create(ctx, models.InvoiceTypeAppointment, &models.CreateInvoiceRequest{
		CustomerName: "Asha Verma",
		Items:        []models.LineItemRequest{serviceItem("Consultation", 1, 500, 0)},
	}, 1)
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	if _, err := svc.Cancel(ctx, inv.ID); err != nil {
		t.Fatalf("cancel failed: %v", err)
	}
	if _, err := svc.Refund(ctx, inv.ID); err == nil {
		t.Fatalf("expected terminal transition to be rejected")
	}
}

func TestDueDateFallsBackToDefault(t *testing.T) {
	svc, _ := newTestInvoiceService()

	inv, err := svc.Create(context.Background(), models.InvoiceTypeAppointment, &models.CreateInvoiceRequest{
		CustomerName: "Asha Verma",
		Items:        []models.LineItemRequest{serviceItem("Consultation", 1, 500, 0)},
	}, 1)
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	want := timeutil.Now().AddDate(0, 0, 7)
	if inv.DueDate.Sub(want) > 2e9 || want.Sub(inv.DueDate) > 2e9 {
		t.Fatalf("expected due date near %v, got %v", want, inv.DueDate)
	}
}
