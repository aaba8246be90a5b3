package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"clinic-backend/internal/cache"
	"clinic-backend/internal/metrics"
	"clinic-backend/internal/models"
	"clinic-backend/internal/timeutil"
	"clinic-backend/pkg/utils"
)

// InvoiceService builds invoices: it validates the tagged line items, prices
// them, and hands the assembled aggregate to the store, which persists it and
// the stock deductions atomically.
type InvoiceService struct {
	Store          InvoiceStore
	Practitioners  PractitionerStore
	DefaultDueDays int
}

func NewInvoiceService(store InvoiceStore, practitioners PractitionerStore, defaultDueDays int) *InvoiceService {
	return &InvoiceService{Store: store, Practitioners: practitioners, DefaultDueDays: defaultDueDays}
}

// Create validates and persists a new invoice of the given type. The invoice
// number is assigned inside the store transaction; the returned invoice
// carries it.
func (s *InvoiceService) Create(ctx context.Context, t models.InvoiceType, req *models.CreateInvoiceRequest, actorID int) (*models.Invoice, error) {
	items, err := buildLineItems(t, req.Items)
	if err != nil {
		return nil, err
	}

	subtotal, tax, total := models.ComputeTotals(items, req.Discount)
	if req.Discount > subtotal {
		return nil, models.NewValidationError("discount", "discount exceeds subtotal")
	}

	if req.PractitionerID != nil {
		if _, err := s.Practitioners.Get(ctx, *req.PractitionerID); err != nil {
			return nil, err
		}
	}

	now := timeutil.Now()
	dueDate := dueDateFrom(now, req.DueInDays, s.DefaultDueDays)

	inv := &models.Invoice{
		Type:           t,
		PatientID:      req.PatientID,
		CustomerName:   req.CustomerName,
		CustomerPhone:  req.CustomerPhone,
		PractitionerID: req.PractitionerID,
		DepartmentID:   req.DepartmentID,
		PrescriptionID: req.PrescriptionID,
		AppointmentID:  req.AppointmentID,
		SourceSaleID:   req.SourceSaleID,
		IssueDate:      now,
		DueDate:        dueDate,
		Items:          items,
		Subtotal:       subtotal,
		Discount:       req.Discount,
		Tax:            tax,
		Total:          total,
		CreatedBy:      actorID,
	}

	if req.ImmediatePayment != nil {
		p := req.ImmediatePayment
		if !models.ValidPaymentMethod(p.Method) {
			return nil, models.NewValidationError("method", "unknown payment method")
		}
		if utils.Round2(p.Amount) > total {
			return nil, &models.OverpaymentError{Total: total, Attempted: p.Amount}
		}
		inv.AmountPaid = utils.Round2(p.Amount)
		inv.Payments = []models.Payment{{
			Amount:      inv.AmountPaid,
			Method:      p.Method,
			Reference:   p.Reference,
			CollectedBy: actorID,
			PaidAt:      now,
		}}
	}
	inv.BalanceDue = utils.Round2(total - inv.AmountPaid)
	inv.Status = models.DeriveStatus(total, inv.AmountPaid, dueDate, now)

	created, err := s.Store.Create(ctx, inv)
	if err != nil {
		return nil, err
	}

	metrics.InvoicesCreated.WithLabelValues(string(t)).Inc()
	for _, p := range created.Payments {
		metrics.PaymentsRecorded.WithLabelValues(string(p.Method)).Inc()
		metrics.PaymentAmount.WithLabelValues(string(p.Method)).Add(p.Amount)
	}
	cache.InvalidateRevenueReports(ctx)
	log.Printf("[Invoice] Created %s for %s: total %.2f", created.InvoiceNumber, created.CustomerName, created.Total)
	return created, nil
}

func (s *InvoiceService) Get(ctx context.Context, id int) (*models.Invoice, error) {
	return s.Store.Get(ctx, id)
}

func (s *InvoiceService) List(ctx context.Context, filter *models.InvoiceFilter) ([]*models.Invoice, error) {
	return s.Store.List(ctx, filter)
}

// Cancel voids an unsettled invoice. Refund is the terminal state for settled
// ones; the distinction is the operator's, not derived.
func (s *InvoiceService) Cancel(ctx context.Context, id int) (*models.Invoice, error) {
	inv, err := s.Store.SetTerminalStatus(ctx, id, models.StatusCancelled)
	if err != nil {
		return nil, err
	}
	cache.InvalidateRevenueReports(ctx)
	log.Printf("[Invoice] Cancelled %s", inv.InvoiceNumber)
	return inv, nil
}

func (s *InvoiceService) Refund(ctx context.Context, id int) (*models.Invoice, error) {
	inv, err := s.Store.SetTerminalStatus(ctx, id, models.StatusRefunded)
	if err != nil {
		return nil, err
	}
	cache.InvalidateRevenueReports(ctx)
	log.Printf("[Invoice] Refunded %s", inv.InvoiceNumber)
	return inv, nil
}

// SweepOverdue flips lapsed invoices to overdue. Run periodically.
func (s *InvoiceService) SweepOverdue(ctx context.Context) (int, error) {
	n, err := s.Store.MarkOverdue(ctx)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		log.Printf("[Invoice] Marked %d invoices overdue", n)
	}
	return n, nil
}

// buildLineItems validates the kind-specific fields of each requested item
// and prices it. Medicine items must name their medicine, and outside
// purchase invoices also the batch the stock comes from; other kinds must
// not carry stock references.
func buildLineItems(t models.InvoiceType, reqs []models.LineItemRequest) ([]models.LineItem, error) {
	if len(reqs) == 0 {
		return nil, models.NewValidationError("items", "invoice requires at least one line item")
	}
	items := make([]models.LineItem, 0, len(reqs))
	for i, r := range reqs {
		if !models.ValidLineItemKind(r.Kind) {
			return nil, models.NewValidationError("items", fmt.Sprintf("item %d: unknown kind %q", i, r.Kind))
		}
		if r.Kind == models.ItemMedicine {
			if r.MedicineID == nil {
				return nil, models.NewValidationError("items", fmt.Sprintf("item %d: medicine item requires medicine_id", i))
			}
			if r.BatchID == nil && t != models.InvoiceTypePurchase {
				return nil, models.NewValidationError("items", fmt.Sprintf("item %d: medicine item requires batch_id", i))
			}
		} else if r.MedicineID != nil || r.BatchID != nil {
			return nil, models.NewValidationError("items", fmt.Sprintf("item %d: %s item cannot reference stock", i, r.Kind))
		}

		it := models.LineItem{
			Kind:        r.Kind,
			Description: r.Description,
			ReferenceID: r.ReferenceID,
			MedicineID:  r.MedicineID,
			BatchID:     r.BatchID,
			Quantity:    r.Quantity,
			UnitPrice:   r.UnitPrice,
			TaxRate:     r.TaxRate,
		}
		models.PriceItem(&it)
		items = append(items, it)
	}
	return items, nil
}

// dueDateFrom is shared with the prescription conversion path.
func dueDateFrom(now time.Time, days, fallback int) time.Time {
	if days == 0 {
		days = fallback
	}
	return now.AddDate(0, 0, days)
}
