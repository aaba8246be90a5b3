package services

import (
	"context"
	"log"

	"clinic-backend/internal/cache"
	"clinic-backend/internal/metrics"
	"clinic-backend/internal/models"
	"clinic-backend/internal/timeutil"
	"clinic-backend/pkg/utils"
)

// PaymentService appends settlements to invoices. Overpayment and terminal
// checks happen in the store under the invoice row lock; this layer only
// validates the request shape.
type PaymentService struct {
	Store InvoiceStore
}

func NewPaymentService(store InvoiceStore) *PaymentService {
	return &PaymentService{Store: store}
}

// Record appends a payment and returns the invoice with its re-derived
// status.
func (s *PaymentService) Record(ctx context.Context, invoiceID int, req *models.RecordPaymentRequest, actorID int) (*models.Invoice, error) {
	if !models.ValidPaymentMethod(req.Method) {
		return nil, models.NewValidationError("method", "unknown payment method")
	}
	if req.Amount <= 0 {
		return nil, models.NewValidationError("amount", "payment amount must be positive")
	}

	p := &models.Payment{
		Amount:      utils.Round2(req.Amount),
		Method:      req.Method,
		Reference:   req.Reference,
		CollectedBy: actorID,
		PaidAt:      timeutil.Now(),
	}

	inv, err := s.Store.AddPayment(ctx, invoiceID, p)
	if err != nil {
		return nil, err
	}

	metrics.PaymentsRecorded.WithLabelValues(string(p.Method)).Inc()
	metrics.PaymentAmount.WithLabelValues(string(p.Method)).Add(p.Amount)
	cache.InvalidateRevenueReports(ctx)
	log.Printf("[Payment] %.2f via %s on %s, now %s", p.Amount, p.Method, inv.InvoiceNumber, inv.Status)
	return inv, nil
}
